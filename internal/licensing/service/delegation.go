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

// maxCodeAttempts bounds redraws when an insert collides with a pending
// offer's code.
const maxCodeAttempts = 5

// RedeemedGrant is what a successful redemption hands back so the caller can
// surface the issuer's projects.
type RedeemedGrant struct {
	OfferID           string
	IssuerTenantID    string
	GrantedProjectIDs []string
}

type DelegationService struct {
	Store store.Store
	Keys  KeyGenerator

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *DelegationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create issues a single-use code granting projectID to whichever tenant
// redeems it. No two pending offers share a code.
func (s *DelegationService) Create(
	ctx context.Context,
	p domain.Principal,
	projectID string,
	projectName string,
) (string, error) {
	log := slogx.FromContext(ctx)

	if err := requireElevated(p, "delegate projects"); err != nil {
		return "", err
	}

	projectID = strings.TrimSpace(projectID)
	projectName = strings.TrimSpace(projectName)
	if projectID == "" {
		return "", invalidArgument("project id is required")
	}

	// Projects the service knows about must be live. Unknown ids are
	// accepted as-is: devices may delegate projects they have not synced.
	project, err := s.Store.Projects().GetProject(ctx, p.TenantID, projectID)
	switch {
	case err == nil:
		if project.Deleted() {
			return "", invalidArgument("project has been deleted")
		}
		if projectName == "" {
			projectName = project.Name
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		log.Error("failed to fetch project", slog.String("project_id", projectID), slog.Any("error", err))
		return "", internal("get project", err)
	}
	if projectName == "" {
		return "", invalidArgument("project name is required")
	}

	offer, err := s.insertOffer(ctx, p.TenantID, projectID, projectName)
	if err != nil {
		return "", err
	}

	log.Info("delegation offer created",
		slog.String("offer_id", offer.ID),
		slog.String("issuer_tenant_id", offer.IssuerTenantID),
		slog.String("project_id", projectID),
	)
	return offer.Code, nil
}

// insertOffer stores a pending offer under a freshly drawn code. The store
// rejects a code already held by a pending offer, so a collision, including
// one with a concurrent Create, is answered with a new draw.
func (s *DelegationService) insertOffer(
	ctx context.Context,
	tenantID, projectID, projectName string,
) (domain.DelegationOffer, error) {
	log := slogx.FromContext(ctx)

	for range maxCodeAttempts {
		code, err := s.Keys.Generate()
		if err != nil {
			log.Error("failed to generate delegation code", slog.Any("error", err))
			return domain.DelegationOffer{}, internal("generate code", err)
		}

		offer := domain.DelegationOffer{
			ID:                  idx.New().String(),
			Code:                code,
			IssuerTenantID:      tenantID,
			Status:              domain.DelegationPending,
			RedeemerLabel:       domain.AwaitingLinkLabel,
			GrantedProjectIDs:   []string{projectID},
			GrantedProjectNames: []string{projectName},
			CreatedAt:           s.now(),
		}
		if err := offer.Validate(); err != nil {
			return domain.DelegationOffer{}, invalidArgument(err.Error())
		}

		err = s.Store.Delegations().CreateOffer(ctx, offer)
		switch {
		case err == nil:
			return offer, nil
		case errors.Is(err, store.ErrAlreadyExists):
			log.Warn("delegation code collided with a pending offer")
		case errors.Is(err, store.ErrNotFound):
			// tokens from an external issuer can name a license never provisioned here
			return domain.DelegationOffer{}, notFound("license not found")
		default:
			log.Error("failed to create delegation offer",
				slog.String("offer_id", offer.ID),
				slog.Any("error", err),
			)
			return domain.DelegationOffer{}, internal("create offer", err)
		}
	}

	log.Error("no free delegation code", slog.Int("attempts", maxCodeAttempts))
	return domain.DelegationOffer{}, internal("create offer", errors.New("no free code after retries"))
}

// Redeem consumes the pending offer holding rawCode on behalf of the
// principal's tenant. A code can be redeemed once; every later attempt,
// including the loser of a concurrent race, gets ErrNotFound.
func (s *DelegationService) Redeem(
	ctx context.Context,
	p domain.Principal,
	displayFallback string,
	rawCode string,
) (RedeemedGrant, error) {
	log := slogx.FromContext(ctx)

	redeemerTenantID, err := resolveTenant(ctx, s.Store, p)
	if err != nil {
		return RedeemedGrant{}, err
	}

	code := NormalizeCode(rawCode)
	if code == "" {
		return RedeemedGrant{}, invalidArgument("code is required")
	}

	offer, err := s.Store.Delegations().FindPendingByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("redeem attempted with unknown or used code",
			slog.String("redeemer_tenant_id", redeemerTenantID),
		)
		return RedeemedGrant{}, notFound("code is invalid, already used or expired")
	}
	if err != nil {
		log.Error("failed to look up delegation code", slog.Any("error", err))
		return RedeemedGrant{}, internal("find offer", err)
	}

	if offer.IssuerTenantID == redeemerTenantID {
		log.Warn("self-delegation attempted",
			slog.String("offer_id", offer.ID),
			slog.String("tenant_id", redeemerTenantID),
		)
		return RedeemedGrant{}, invalidArgument("cannot link a project of your own license")
	}

	redemption := domain.Redemption{
		RedeemerTenantID: redeemerTenantID,
		RedeemerLabel:    s.redeemerLabel(ctx, redeemerTenantID, p, displayFallback),
		RedeemedAt:       s.now(),
	}

	activated, err := s.Store.Delegations().ActivateOffer(ctx, offer.IssuerTenantID, offer.ID, redemption)
	if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
		log.Warn("delegation offer consumed concurrently",
			slog.String("offer_id", offer.ID),
			slog.String("redeemer_tenant_id", redeemerTenantID),
		)
		return RedeemedGrant{}, notFound("code already used")
	}
	if err != nil {
		log.Error("failed to activate delegation offer",
			slog.String("offer_id", offer.ID),
			slog.Any("error", err),
		)
		return RedeemedGrant{}, internal("activate offer", err)
	}

	log.Info("delegation offer redeemed",
		slog.String("offer_id", activated.ID),
		slog.String("issuer_tenant_id", activated.IssuerTenantID),
		slog.String("redeemer_tenant_id", redeemerTenantID),
	)

	return RedeemedGrant{
		OfferID:           activated.ID,
		IssuerTenantID:    activated.IssuerTenantID,
		GrantedProjectIDs: activated.GrantedProjectIDs,
	}, nil
}

// redeemerLabel picks the friendliest name for the redeeming actor. Lookup
// failures only degrade the label.
func (s *DelegationService) redeemerLabel(
	ctx context.Context,
	tenantID string,
	p domain.Principal,
	displayFallback string,
) string {
	t, err := s.Store.Tenants().GetTenant(ctx, tenantID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Warn("failed to fetch redeemer tenant for label", slog.Any("error", err))
	}
	if err == nil {
		if m, ok := t.Member(p.ActorID); ok && strings.TrimSpace(m.Nickname) != "" {
			return m.Nickname
		}
	}

	for _, candidate := range []string{p.Email, displayFallback} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return domain.ExternalUserLabel
}

// ListIssued returns every offer the principal's tenant has created.
func (s *DelegationService) ListIssued(ctx context.Context, p domain.Principal) ([]domain.DelegationOffer, error) {
	tenantID, err := resolveTenant(ctx, s.Store, p)
	if err != nil {
		return nil, err
	}

	offers, err := s.Store.Delegations().ListIssued(ctx, tenantID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list issued offers", slog.Any("error", err))
		return nil, internal("list issued", err)
	}
	return offers, nil
}
