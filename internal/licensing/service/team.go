package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/pkg/slogx"
)

// MinPasswordLength applies to members created by managers.
const MinPasswordLength = 6

type AddMemberRequest struct {
	Email    string
	Password string
	Name     string
	Role     string
}

type TeamService struct {
	Store      store.Store
	Identities IdentityProvider
	Claims     *ClaimsReconciler

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *TeamService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// AddMember creates a sign-in identity and adds it to the manager's license.
func (s *TeamService) AddMember(ctx context.Context, p domain.Principal, req AddMemberRequest) (domain.Member, error) {
	log := slogx.FromContext(ctx)

	if err := requireElevated(p, "add members"); err != nil {
		return domain.Member{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	role := domain.ParseRole(req.Role)
	if email == "" || name == "" || role == "" || len(req.Password) < MinPasswordLength {
		return domain.Member{}, invalidArgument("email, name and role are required and the password needs at least 6 characters")
	}
	if role == domain.RoleOwner {
		return domain.Member{}, invalidArgument("a license has a single owner")
	}

	before, err := s.Store.Tenants().GetTenant(ctx, p.TenantID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Member{}, notFound("license not found")
	}
	if err != nil {
		log.Error("failed to fetch tenant", slog.Any("error", err))
		return domain.Member{}, internal("get tenant", err)
	}

	actorID, err := s.Identities.CreateIdentity(ctx, NewIdentity{
		Email:       email,
		Password:    req.Password,
		DisplayName: name,
	})
	if errors.Is(err, ErrEmailInUse) {
		return domain.Member{}, ErrAlreadyExists
	}
	if err != nil {
		log.Error("failed to create identity", slog.Any("error", err))
		return domain.Member{}, internal("create identity", err)
	}

	now := s.now()
	m := domain.Member{
		ActorID:  actorID,
		Role:     role,
		Email:    email,
		Nickname: name,
		AddedAt:  now,
	}
	if err := s.Store.Tenants().PutMember(ctx, p.TenantID, m); err != nil {
		log.Error("failed to add member", slog.String("actor_id", actorID), slog.Any("error", err))
		return domain.Member{}, internal("put member", err)
	}

	acc := domain.Account{
		ActorID:     actorID,
		TenantID:    p.TenantID,
		Email:       email,
		DisplayName: name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Accounts().PutAccount(ctx, acc); err != nil {
		log.Error("failed to link member account", slog.String("actor_id", actorID), slog.Any("error", err))
		return domain.Member{}, internal("put account", err)
	}

	after := before.CloneMembers()
	after[actorID] = m
	if err := s.Claims.Reconcile(ctx, p.TenantID, before.Members, after); err != nil {
		log.Error("failed to apply member claims", slog.String("actor_id", actorID), slog.Any("error", err))
	}

	log.Info("team member added",
		slog.String("tenant_id", p.TenantID),
		slog.String("actor_id", actorID),
		slog.String("role", role.String()),
	)
	return m, nil
}

// RemoveMember drops actorID from the manager's license and revokes its claims.
func (s *TeamService) RemoveMember(ctx context.Context, p domain.Principal, actorID string) error {
	log := slogx.FromContext(ctx)

	if err := requireElevated(p, "remove members"); err != nil {
		return err
	}

	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return invalidArgument("member id is required")
	}
	if actorID == p.ActorID {
		return invalidArgument("cannot remove yourself")
	}

	before, err := s.Store.Tenants().GetTenant(ctx, p.TenantID)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("license not found")
	}
	if err != nil {
		return internal("get tenant", err)
	}

	m, ok := before.Member(actorID)
	if !ok {
		return notFound("member not found")
	}
	if m.Role == domain.RoleOwner {
		return permissionDenied("the owner cannot be removed")
	}

	if err := s.Store.Tenants().RemoveMember(ctx, p.TenantID, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("member not found")
		}
		log.Error("failed to remove member", slog.String("actor_id", actorID), slog.Any("error", err))
		return internal("remove member", err)
	}

	// Drop the reverse link so the actor no longer resolves to this license.
	acc, err := s.Store.Accounts().GetAccount(ctx, actorID)
	switch {
	case err == nil && acc.TenantID == p.TenantID:
		acc.TenantID = ""
		acc.UpdatedAt = s.now()
		if err := s.Store.Accounts().PutAccount(ctx, acc); err != nil {
			log.Error("failed to unlink account", slog.String("actor_id", actorID), slog.Any("error", err))
		}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		log.Error("failed to fetch account", slog.String("actor_id", actorID), slog.Any("error", err))
	}

	after := before.CloneMembers()
	delete(after, actorID)
	if err := s.Claims.Reconcile(ctx, p.TenantID, before.Members, after); err != nil {
		log.Error("failed to revoke member claims", slog.String("actor_id", actorID), slog.Any("error", err))
	}

	log.Info("team member removed",
		slog.String("tenant_id", p.TenantID),
		slog.String("actor_id", actorID),
	)
	return nil
}
