package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type projectsRepo struct {
	client *firestore.Client
}

func (r *projectsRepo) col(tenantID string) *firestore.CollectionRef {
	return tenantRef(r.client, tenantID).Collection(projectsCollection)
}

func (r *projectsRepo) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := r.col(p.TenantID).Doc(p.ID).Create(ctx, projectDoc{
		Name:      p.Name,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	})
	return mapErr(err)
}

func (r *projectsRepo) GetProject(ctx context.Context, tenantID, projectID string) (domain.Project, error) {
	snap, err := r.col(tenantID).Doc(projectID).Get(ctx)
	if err != nil {
		return domain.Project{}, mapErr(err)
	}
	return decodeProject(tenantID, snap)
}

func (r *projectsRepo) ListProjects(ctx context.Context, tenantID string, includeDeleted bool) ([]domain.Project, error) {
	// Status is filtered here rather than in the query so no composite
	// index is needed.
	it := r.col(tenantID).OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer it.Stop()

	var out []domain.Project
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		p, err := decodeProject(tenantID, doc)
		if err != nil {
			return nil, err
		}
		if p.Deleted() && !includeDeleted {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *projectsRepo) SoftDeleteProject(ctx context.Context, tenantID, projectID string, at time.Time) error {
	_, err := r.col(tenantID).Doc(projectID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(domain.ProjectDeleted)},
		{Path: "updatedAt", Value: at.UTC()},
	})
	return mapErr(err)
}

func decodeProject(tenantID string, snap *firestore.DocumentSnapshot) (domain.Project, error) {
	var d projectDoc
	if err := snap.DataTo(&d); err != nil {
		return domain.Project{}, err
	}
	return domain.Project{
		ID:        snap.Ref.ID,
		TenantID:  tenantID,
		Name:      d.Name,
		Status:    domain.ProjectStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

var _ store.Projects = (*projectsRepo)(nil)
