package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type projectsRepo struct {
	c *mongo.Collection
}

func (r *projectsRepo) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := r.c.InsertOne(ctx, projectDoc{
		Key:       projectKey(p.TenantID, p.ID),
		ID:        p.ID,
		TenantID:  p.TenantID,
		Name:      p.Name,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	})
	return mapErr(err)
}

func (r *projectsRepo) GetProject(ctx context.Context, tenantID, projectID string) (domain.Project, error) {
	var d projectDoc
	err := r.c.FindOne(ctx, bson.M{"_id": projectKey(tenantID, projectID)}).Decode(&d)
	if err != nil {
		return domain.Project{}, mapErr(err)
	}
	return d.toDomain(), nil
}

func (r *projectsRepo) ListProjects(ctx context.Context, tenantID string, includeDeleted bool) ([]domain.Project, error) {
	filter := bson.M{"tenant_id": tenantID}
	if !includeDeleted {
		filter["status"] = string(domain.ProjectActive)
	}

	cur, err := r.c.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "project_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []domain.Project
	for cur.Next(ctx) {
		var d projectDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toDomain())
	}
	return out, cur.Err()
}

func (r *projectsRepo) SoftDeleteProject(ctx context.Context, tenantID, projectID string, at time.Time) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": projectKey(tenantID, projectID)},
		bson.M{"$set": bson.M{"status": string(domain.ProjectDeleted), "updated_at": at.UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

var _ store.Projects = (*projectsRepo)(nil)
