package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/pkg/idx"
	"github.com/geoforest/licensing/pkg/slogx"
)

type ProjectService struct {
	Store store.Store

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *ProjectService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Register records a project under the manager's license. Devices that
// already assigned an id may pass it; otherwise one is minted.
func (s *ProjectService) Register(ctx context.Context, p domain.Principal, projectID, name string) (domain.Project, error) {
	log := slogx.FromContext(ctx)

	if err := requireElevated(p, "register projects"); err != nil {
		return domain.Project{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, invalidArgument("project name is required")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		projectID = idx.New().String()
	}

	now := s.now()
	project := domain.Project{
		ID:        projectID,
		TenantID:  p.TenantID,
		Name:      name,
		Status:    domain.ProjectActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Projects().CreateProject(ctx, project); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Project{}, ErrAlreadyExists
		}
		log.Error("failed to create project", slog.String("project_id", projectID), slog.Any("error", err))
		return domain.Project{}, internal("create project", err)
	}

	log.Info("project registered",
		slog.String("tenant_id", p.TenantID),
		slog.String("project_id", projectID),
	)
	return project, nil
}

// List returns the active projects of the principal's license.
func (s *ProjectService) List(ctx context.Context, p domain.Principal) ([]domain.Project, error) {
	tenantID, err := resolveTenant(ctx, s.Store, p)
	if err != nil {
		return nil, err
	}

	projects, err := s.Store.Projects().ListProjects(ctx, tenantID, false)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list projects", slog.Any("error", err))
		return nil, internal("list projects", err)
	}
	return projects, nil
}

// SoftDelete marks a project deleted. Its pending delegations can no longer
// be issued, but offers already redeemed stay active.
func (s *ProjectService) SoftDelete(ctx context.Context, p domain.Principal, projectID string) error {
	if err := requireElevated(p, "delete projects"); err != nil {
		return err
	}

	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return invalidArgument("project id is required")
	}

	err := s.Store.Projects().SoftDeleteProject(ctx, p.TenantID, projectID, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return notFound("project not found")
	}
	if err != nil {
		slogx.FromContext(ctx).Error("failed to delete project",
			slog.String("project_id", projectID),
			slog.Any("error", err),
		)
		return internal("delete project", err)
	}

	slogx.FromContext(ctx).Info("project deleted",
		slog.String("tenant_id", p.TenantID),
		slog.String("project_id", projectID),
	)
	return nil
}

// Delegated returns the offers the principal's license has redeemed, i.e.
// the projects of other licenses it can now see.
func (s *ProjectService) Delegated(ctx context.Context, p domain.Principal) ([]domain.DelegationOffer, error) {
	tenantID, err := resolveTenant(ctx, s.Store, p)
	if err != nil {
		return nil, err
	}

	offers, err := s.Store.Delegations().ListRedeemed(ctx, tenantID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list received offers", slog.Any("error", err))
		return nil, internal("list redeemed", err)
	}
	return offers, nil
}
