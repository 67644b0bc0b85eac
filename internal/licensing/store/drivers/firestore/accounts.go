package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type accountsRepo struct {
	client *firestore.Client
}

func (r *accountsRepo) PutAccount(ctx context.Context, a domain.Account) error {
	ref := r.client.Collection(accountsCollection).Doc(a.ActorID)

	return mapErr(r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		d := accountDoc{
			TenantID:     a.TenantID,
			Email:        normalizeEmail(a.Email),
			DisplayName:  a.DisplayName,
			PasswordHash: a.PasswordHash,
			CreatedAt:    a.CreatedAt.UTC(),
			UpdatedAt:    a.UpdatedAt.UTC(),
		}

		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var existing accountDoc
			if err := snap.DataTo(&existing); err != nil {
				return err
			}
			d.CreatedAt = existing.CreatedAt
			if d.PasswordHash == "" {
				d.PasswordHash = existing.PasswordHash
			}
		case !errors.Is(mapErr(err), store.ErrNotFound):
			return err
		}
		return tx.Set(ref, d)
	}))
}

func (r *accountsRepo) GetAccount(ctx context.Context, actorID string) (domain.Account, error) {
	snap, err := r.client.Collection(accountsCollection).Doc(actorID).Get(ctx)
	if err != nil {
		return domain.Account{}, mapErr(err)
	}
	return decodeAccount(snap)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	it := r.client.Collection(accountsCollection).
		Where("email", "==", normalizeEmail(email)).
		Limit(1).
		Documents(ctx)
	defer it.Stop()

	doc, err := it.Next()
	if err == iterator.Done {
		return domain.Account{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return decodeAccount(doc)
}

func decodeAccount(snap *firestore.DocumentSnapshot) (domain.Account, error) {
	var d accountDoc
	if err := snap.DataTo(&d); err != nil {
		return domain.Account{}, err
	}
	return domain.Account{
		ActorID:      snap.Ref.ID,
		TenantID:     d.TenantID,
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

type claimsRepo struct {
	client *firestore.Client
}

func (r *claimsRepo) PutClaims(ctx context.Context, actorID string, c domain.Capability) error {
	_, err := r.client.Collection(claimsCollection).Doc(actorID).Set(ctx, claimsDoc{
		TenantID:  c.TenantID,
		Role:      string(c.Role),
		UpdatedAt: time.Now().UTC(),
	})
	return mapErr(err)
}

// ClearClaims deletes the claims document; Firestore deletes of missing
// documents succeed.
func (r *claimsRepo) ClearClaims(ctx context.Context, actorID string) error {
	_, err := r.client.Collection(claimsCollection).Doc(actorID).Delete(ctx)
	return mapErr(err)
}

func (r *claimsRepo) GetClaims(ctx context.Context, actorID string) (domain.Capability, error) {
	snap, err := r.client.Collection(claimsCollection).Doc(actorID).Get(ctx)
	if err != nil {
		return domain.Capability{}, mapErr(err)
	}

	var d claimsDoc
	if err := snap.DataTo(&d); err != nil {
		return domain.Capability{}, err
	}
	return domain.Capability{TenantID: d.TenantID, Role: domain.Role(d.Role)}, nil
}

var (
	_ store.Accounts = (*accountsRepo)(nil)
	_ store.Claims   = (*claimsRepo)(nil)
)
