package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type claimsRepo struct {
	db *sql.DB
}

func (r *claimsRepo) PutClaims(ctx context.Context, actorID string, c domain.Capability) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO actor_claims (actor_id, tenant_id, role, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (actor_id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			role = excluded.role,
			updated_at = excluded.updated_at`,
		actorID, c.TenantID, string(c.Role), time.Now().UTC(),
	)
	return mapWriteErr(err)
}

func (r *claimsRepo) ClearClaims(ctx context.Context, actorID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM actor_claims WHERE actor_id = ?`, actorID)
	return err
}

func (r *claimsRepo) GetClaims(ctx context.Context, actorID string) (domain.Capability, error) {
	var (
		c    domain.Capability
		role string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_id, role FROM actor_claims WHERE actor_id = ?`, actorID,
	).Scan(&c.TenantID, &role)
	if err != nil {
		return domain.Capability{}, mapNotFound(err)
	}
	c.Role = domain.Role(role)
	return c, nil
}

var _ store.Claims = (*claimsRepo)(nil)
