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

// Defaults for a freshly provisioned license.
var (
	DefaultFeatures = domain.Features{Export: false, Analysis: false}
	DefaultLimits   = domain.Limits{Smartphone: 1, Desktop: 0}
)

type TenantService struct {
	Store  store.Store
	Claims *ClaimsReconciler

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *TenantService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Provision opens a trial license owned by the principal. The tenant id is
// the owner's actor id, so each actor owns at most one license.
func (s *TenantService) Provision(ctx context.Context, p domain.Principal, email string) (domain.Tenant, error) {
	log := slogx.FromContext(ctx)

	if !p.Authenticated() {
		return domain.Tenant{}, ErrUnauthenticated
	}
	if p.TenantID != "" && p.TenantID != p.ActorID {
		return domain.Tenant{}, invalidArgument("already a member of another license")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = strings.ToLower(strings.TrimSpace(p.Email))
	}
	if email == "" {
		return domain.Tenant{}, invalidArgument("email is required")
	}

	now := s.now()
	owner := domain.Member{
		ActorID:  p.ActorID,
		Role:     domain.RoleOwner,
		Email:    email,
		Nickname: strings.TrimSpace(p.Name),
		AddedAt:  now,
	}
	t := domain.Tenant{
		ID:                 p.ActorID,
		Email:              email,
		SubscriptionStatus: domain.SubscriptionTrial,
		Features:           DefaultFeatures,
		Limits:             DefaultLimits,
		TrialStartedAt:     now,
		TrialEndsAt:        now.Add(domain.TrialPeriod),
		Members:            map[string]domain.Member{p.ActorID: owner},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.Store.Tenants().CreateTenant(ctx, t); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Tenant{}, ErrAlreadyExists
		}
		log.Error("failed to create tenant", slog.String("tenant_id", t.ID), slog.Any("error", err))
		return domain.Tenant{}, internal("create tenant", err)
	}

	acc := domain.Account{
		ActorID:     p.ActorID,
		TenantID:    t.ID,
		Email:       email,
		DisplayName: strings.TrimSpace(p.Name),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Accounts().PutAccount(ctx, acc); err != nil {
		log.Error("failed to link owner account", slog.String("tenant_id", t.ID), slog.Any("error", err))
		return domain.Tenant{}, internal("put account", err)
	}

	if err := s.Claims.Reconcile(ctx, t.ID, nil, t.Members); err != nil {
		log.Error("failed to apply owner claims", slog.String("tenant_id", t.ID), slog.Any("error", err))
	}

	log.Info("tenant provisioned",
		slog.String("tenant_id", t.ID),
		slog.Time("trial_ends_at", t.TrialEndsAt),
	)
	return t, nil
}

// Get returns the principal's license.
func (s *TenantService) Get(ctx context.Context, p domain.Principal) (domain.Tenant, error) {
	tenantID, err := resolveTenant(ctx, s.Store, p)
	if err != nil {
		return domain.Tenant{}, err
	}

	t, err := s.Store.Tenants().GetTenant(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Tenant{}, notFound("license not found")
	}
	if err != nil {
		slogx.FromContext(ctx).Error("failed to fetch tenant", slog.Any("error", err))
		return domain.Tenant{}, internal("get tenant", err)
	}
	return t, nil
}

// ExpireTrials flips lapsed trials to expired.
func (s *TenantService) ExpireTrials(ctx context.Context) (int, error) {
	n, err := s.Store.Tenants().ExpireTrials(ctx, s.now())
	if err != nil {
		return 0, internal("expire trials", err)
	}
	return n, nil
}
