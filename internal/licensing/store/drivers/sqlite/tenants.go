package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type tenantsRepo struct {
	db *sql.DB
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tenants (
				id, email, subscription_status, feature_export, feature_analysis,
				limit_smartphone, limit_desktop, trial_started_at, trial_ends_at,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Email, string(t.SubscriptionStatus),
			t.Features.Export, t.Features.Analysis,
			t.Limits.Smartphone, t.Limits.Desktop,
			mapTimeNull(t.TrialStartedAt), mapTimeNull(t.TrialEndsAt),
			t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		)
		if err != nil {
			return mapWriteErr(err)
		}

		for _, m := range t.Members {
			if err := upsertMember(ctx, tx, t.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *tenantsRepo) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	var (
		t            domain.Tenant
		status       string
		trialStarted sql.NullTime
		trialEnds    sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, subscription_status, feature_export, feature_analysis,
		       limit_smartphone, limit_desktop, trial_started_at, trial_ends_at,
		       created_at, updated_at
		FROM tenants WHERE id = ?`, id,
	).Scan(
		&t.ID, &t.Email, &status, &t.Features.Export, &t.Features.Analysis,
		&t.Limits.Smartphone, &t.Limits.Desktop, &trialStarted, &trialEnds,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	t.SubscriptionStatus = domain.SubscriptionStatus(status)
	t.TrialStartedAt = mapNullTime(trialStarted)
	t.TrialEndsAt = mapNullTime(trialEnds)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()

	rows, err := r.db.QueryContext(ctx, `
		SELECT actor_id, role, email, nickname, added_at
		FROM tenant_members WHERE tenant_id = ?`, id)
	if err != nil {
		return domain.Tenant{}, err
	}
	defer rows.Close()

	t.Members = make(map[string]domain.Member)
	for rows.Next() {
		var (
			m    domain.Member
			role string
		)
		if err := rows.Scan(&m.ActorID, &role, &m.Email, &m.Nickname, &m.AddedAt); err != nil {
			return domain.Tenant{}, err
		}
		m.Role = domain.Role(role)
		m.AddedAt = m.AddedAt.UTC()
		t.Members[m.ActorID] = m
	}
	return t, rows.Err()
}

func (r *tenantsRepo) PutMember(ctx context.Context, tenantID string, m domain.Member) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := touchTenant(ctx, tx, tenantID); err != nil {
			return err
		}
		return upsertMember(ctx, tx, tenantID, m)
	})
}

func (r *tenantsRepo) RemoveMember(ctx context.Context, tenantID, actorID string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM tenant_members WHERE tenant_id = ? AND actor_id = ?`,
			tenantID, actorID)
		if err != nil {
			return err
		}
		if err := mustAffect(res); err != nil {
			return err
		}
		return touchTenant(ctx, tx, tenantID)
	})
}

func (r *tenantsRepo) ExpireTrials(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenants
		SET subscription_status = ?, updated_at = ?
		WHERE subscription_status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at < ?`,
		string(domain.SubscriptionExpired), now.UTC(),
		string(domain.SubscriptionTrial), now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func touchTenant(ctx context.Context, q dbtx, tenantID string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE tenants SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), tenantID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func upsertMember(ctx context.Context, q dbtx, tenantID string, m domain.Member) error {
	added := m.AddedAt
	if added.IsZero() {
		added = time.Now()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO tenant_members (tenant_id, actor_id, role, email, nickname, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, actor_id) DO UPDATE SET
			role = excluded.role,
			email = excluded.email,
			nickname = excluded.nickname`,
		tenantID, m.ActorID, string(m.Role), m.Email, m.Nickname, added.UTC(),
	)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

var _ store.Tenants = (*tenantsRepo)(nil)
