package firestore

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type delegationsRepo struct {
	client *firestore.Client
}

func (r *delegationsRepo) ref(issuerTenantID, offerID string) *firestore.DocumentRef {
	return tenantRef(r.client, issuerTenantID).Collection(delegationsCollection).Doc(offerID)
}

func (r *delegationsRepo) codeRef(code string) *firestore.DocumentRef {
	return r.client.Collection(codesCollection).Doc(code)
}

// CreateOffer writes the offer together with its code reservation. A second
// pending offer with the same code fails the reservation's Create.
func (r *delegationsRepo) CreateOffer(ctx context.Context, o domain.DelegationOffer) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(tenantRef(r.client, o.IssuerTenantID)); err != nil {
			return err
		}

		if o.Pending() {
			if err := tx.Create(r.codeRef(o.Code), codeDoc{
				IssuerTenantID: o.IssuerTenantID,
				OfferID:        o.ID,
				CreatedAt:      o.CreatedAt.UTC(),
			}); err != nil {
				return err
			}
		}
		return tx.Create(r.ref(o.IssuerTenantID, o.ID), toOfferDoc(o))
	})
	return mapErr(err)
}

func (r *delegationsRepo) GetOffer(ctx context.Context, issuerTenantID, offerID string) (domain.DelegationOffer, error) {
	snap, err := r.ref(issuerTenantID, offerID).Get(ctx)
	if err != nil {
		return domain.DelegationOffer{}, mapErr(err)
	}
	return decodeOffer(snap)
}

// FindPendingByCode searches the delegations of every tenant. The issuer is
// recovered from the parent document, not trusted from the payload.
func (r *delegationsRepo) FindPendingByCode(ctx context.Context, code string) (domain.DelegationOffer, error) {
	it := r.client.CollectionGroup(delegationsCollection).
		Where("code", "==", code).
		Where("status", "==", string(domain.DelegationPending)).
		OrderBy("createdAt", firestore.Asc).
		Limit(1).
		Documents(ctx)
	defer it.Stop()

	doc, err := it.Next()
	if err == iterator.Done {
		return domain.DelegationOffer{}, store.ErrNotFound
	}
	if err != nil {
		return domain.DelegationOffer{}, err
	}
	return decodeOffer(doc)
}

func (r *delegationsRepo) ActivateOffer(
	ctx context.Context,
	issuerTenantID, offerID string,
	red domain.Redemption,
) (domain.DelegationOffer, error) {
	ref := r.ref(issuerTenantID, offerID)

	var out domain.DelegationOffer
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return mapErr(err)
		}

		current, err := decodeOffer(snap)
		if err != nil {
			return err
		}
		if !current.Pending() {
			return store.ErrConflict
		}

		// Reads come before writes in a transaction.
		codeRef := r.codeRef(current.Code)
		reservation, err := tx.Get(codeRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		out = red.Apply(current)
		if err := tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(out.Status)},
			{Path: "redeemerTenantId", Value: out.RedeemerTenantID},
			{Path: "redeemerLabel", Value: out.RedeemerLabel},
			{Path: "redeemedAt", Value: out.RedeemedAt.UTC()},
		}); err != nil {
			return err
		}

		if reservation != nil && reservation.Exists() {
			var c codeDoc
			if err := reservation.DataTo(&c); err != nil {
				return err
			}
			if c.OfferID == offerID {
				return tx.Delete(codeRef)
			}
		}
		return nil
	})
	if err != nil {
		return domain.DelegationOffer{}, mapErr(err)
	}
	return out, nil
}

func (r *delegationsRepo) ListIssued(ctx context.Context, issuerTenantID string) ([]domain.DelegationOffer, error) {
	it := tenantRef(r.client, issuerTenantID).Collection(delegationsCollection).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	return collectOffers(it)
}

func (r *delegationsRepo) ListRedeemed(ctx context.Context, redeemerTenantID string) ([]domain.DelegationOffer, error) {
	it := r.client.CollectionGroup(delegationsCollection).
		Where("redeemerTenantId", "==", redeemerTenantID).
		Where("status", "==", string(domain.DelegationActive)).
		Documents(ctx)

	out, err := collectOffers(it)
	if err != nil {
		return nil, err
	}

	// Sorted here to avoid a composite index on the collection group.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].RedeemedAt, out[j].RedeemedAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
	return out, nil
}

func collectOffers(it *firestore.DocumentIterator) ([]domain.DelegationOffer, error) {
	defer it.Stop()

	var out []domain.DelegationOffer
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		o, err := decodeOffer(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func decodeOffer(snap *firestore.DocumentSnapshot) (domain.DelegationOffer, error) {
	var d offerDoc
	if err := snap.DataTo(&d); err != nil {
		return domain.DelegationOffer{}, err
	}

	o := d.toDomain(snap.Ref.ID)
	if parent := snap.Ref.Parent.Parent; parent != nil {
		o.IssuerTenantID = parent.ID
	}
	return o, nil
}

var _ store.Delegations = (*delegationsRepo)(nil)
