package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

const offerColumns = `
	id, code, issuer_tenant_id, status, redeemer_tenant_id, redeemer_label,
	granted_project_ids, granted_project_names, created_at, redeemed_at`

type delegationsRepo struct {
	db *sql.DB
}

func (r *delegationsRepo) CreateOffer(ctx context.Context, o domain.DelegationOffer) error {
	ids, err := encodeList(o.GrantedProjectIDs)
	if err != nil {
		return err
	}
	names, err := encodeList(o.GrantedProjectNames)
	if err != nil {
		return err
	}

	var redeemedAt sql.NullTime
	if o.RedeemedAt != nil {
		redeemedAt = mapTimeNull(*o.RedeemedAt)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO delegation_offers (`+offerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Code, o.IssuerTenantID, string(o.Status),
		mapStringNull(o.RedeemerTenantID), o.RedeemerLabel,
		ids, names, o.CreatedAt.UTC(), redeemedAt,
	)
	return mapWriteErr(err)
}

func (r *delegationsRepo) GetOffer(ctx context.Context, issuerTenantID, offerID string) (domain.DelegationOffer, error) {
	return getOffer(ctx, r.db, issuerTenantID, offerID)
}

func (r *delegationsRepo) FindPendingByCode(ctx context.Context, code string) (domain.DelegationOffer, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+offerColumns+`
		FROM delegation_offers
		WHERE code = ? AND status = 'pending'
		ORDER BY created_at, id
		LIMIT 1`, code)

	o, err := scanOffer(row)
	if err != nil {
		return domain.DelegationOffer{}, mapNotFound(err)
	}
	return o, nil
}

func (r *delegationsRepo) ActivateOffer(
	ctx context.Context,
	issuerTenantID, offerID string,
	red domain.Redemption,
) (domain.DelegationOffer, error) {
	var out domain.DelegationOffer
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		// The status predicate is the compare-and-swap: only one caller can
		// observe the offer as pending.
		res, err := tx.ExecContext(ctx, `
			UPDATE delegation_offers
			SET status = 'active', redeemer_tenant_id = ?, redeemer_label = ?, redeemed_at = ?
			WHERE id = ? AND issuer_tenant_id = ? AND status = 'pending'`,
			red.RedeemerTenantID, red.RedeemerLabel, red.RedeemedAt.UTC(),
			offerID, issuerTenantID,
		)
		if err != nil {
			return err
		}
		if err := mustAffect(res); err != nil {
			if _, getErr := getOffer(ctx, tx, issuerTenantID, offerID); getErr != nil {
				return getErr
			}
			return store.ErrConflict
		}

		out, err = getOffer(ctx, tx, issuerTenantID, offerID)
		return err
	})
	if err != nil {
		return domain.DelegationOffer{}, err
	}
	return out, nil
}

func (r *delegationsRepo) ListIssued(ctx context.Context, issuerTenantID string) ([]domain.DelegationOffer, error) {
	return listOffers(ctx, r.db, `
		SELECT `+offerColumns+`
		FROM delegation_offers
		WHERE issuer_tenant_id = ?
		ORDER BY created_at DESC, id DESC`, issuerTenantID)
}

func (r *delegationsRepo) ListRedeemed(ctx context.Context, redeemerTenantID string) ([]domain.DelegationOffer, error) {
	return listOffers(ctx, r.db, `
		SELECT `+offerColumns+`
		FROM delegation_offers
		WHERE redeemer_tenant_id = ? AND status = 'active'
		ORDER BY redeemed_at DESC, id DESC`, redeemerTenantID)
}

func getOffer(ctx context.Context, q dbtx, issuerTenantID, offerID string) (domain.DelegationOffer, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+offerColumns+`
		FROM delegation_offers WHERE id = ? AND issuer_tenant_id = ?`,
		offerID, issuerTenantID)

	o, err := scanOffer(row)
	if err != nil {
		return domain.DelegationOffer{}, mapNotFound(err)
	}
	return o, nil
}

func listOffers(ctx context.Context, q dbtx, query string, args ...any) ([]domain.DelegationOffer, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DelegationOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOffer(s rowScanner) (domain.DelegationOffer, error) {
	var (
		o          domain.DelegationOffer
		status     string
		redeemer   sql.NullString
		ids, names string
		redeemedAt sql.NullTime
	)
	err := s.Scan(
		&o.ID, &o.Code, &o.IssuerTenantID, &status, &redeemer, &o.RedeemerLabel,
		&ids, &names, &o.CreatedAt, &redeemedAt,
	)
	if err != nil {
		return domain.DelegationOffer{}, err
	}

	o.Status = domain.DelegationStatus(status)
	o.RedeemerTenantID = mapNullString(redeemer)
	o.RedeemedAt = mapNullTimePtr(redeemedAt)
	o.CreatedAt = o.CreatedAt.UTC()

	if o.GrantedProjectIDs, err = decodeList(ids); err != nil {
		return domain.DelegationOffer{}, errors.Join(errors.New("sqlite: decode granted project ids"), err)
	}
	if o.GrantedProjectNames, err = decodeList(names); err != nil {
		return domain.DelegationOffer{}, errors.Join(errors.New("sqlite: decode granted project names"), err)
	}
	return o, nil
}

var _ store.Delegations = (*delegationsRepo)(nil)
