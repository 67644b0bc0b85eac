package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type accountsRepo struct {
	db *sql.DB
}

func (r *accountsRepo) PutAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (actor_id, tenant_id, email, display_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (actor_id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			email = excluded.email,
			display_name = excluded.display_name,
			password_hash = COALESCE(excluded.password_hash, accounts.password_hash),
			updated_at = excluded.updated_at`,
		a.ActorID, a.TenantID, normalizeEmail(a.Email), a.DisplayName,
		mapStringNull(a.PasswordHash), a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	return mapWriteErr(err)
}

func (r *accountsRepo) GetAccount(ctx context.Context, actorID string) (domain.Account, error) {
	return r.getOne(ctx, `WHERE actor_id = ?`, actorID)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.getOne(ctx, `WHERE email = ? ORDER BY created_at LIMIT 1`, normalizeEmail(email))
}

func (r *accountsRepo) getOne(ctx context.Context, where string, args ...any) (domain.Account, error) {
	var (
		a    domain.Account
		hash sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT actor_id, tenant_id, email, display_name, password_hash, created_at, updated_at
		FROM accounts `+where, args...,
	).Scan(&a.ActorID, &a.TenantID, &a.Email, &a.DisplayName, &hash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.PasswordHash = mapNullString(hash)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

var _ store.Accounts = (*accountsRepo)(nil)
