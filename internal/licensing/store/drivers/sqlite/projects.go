package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type projectsRepo struct {
	db *sql.DB
}

func (r *projectsRepo) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (tenant_id, id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.TenantID, p.ID, p.Name, string(p.Status), p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	return mapWriteErr(err)
}

func (r *projectsRepo) GetProject(ctx context.Context, tenantID, projectID string) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, id, name, status, created_at, updated_at
		FROM projects WHERE tenant_id = ? AND id = ?`, tenantID, projectID)

	p, err := scanProject(row)
	if err != nil {
		return domain.Project{}, mapNotFound(err)
	}
	return p, nil
}

func (r *projectsRepo) ListProjects(ctx context.Context, tenantID string, includeDeleted bool) ([]domain.Project, error) {
	query := `
		SELECT tenant_id, id, name, status, created_at, updated_at
		FROM projects WHERE tenant_id = ?`
	if !includeDeleted {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *projectsRepo) SoftDeleteProject(ctx context.Context, tenantID, projectID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET status = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		string(domain.ProjectDeleted), at.UTC(), tenantID, projectID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(s rowScanner) (domain.Project, error) {
	var (
		p      domain.Project
		status string
	)
	if err := s.Scan(&p.TenantID, &p.ID, &p.Name, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Project{}, err
	}
	p.Status = domain.ProjectStatus(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

var _ store.Projects = (*projectsRepo)(nil)
