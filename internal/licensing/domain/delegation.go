package domain

import (
	"errors"
	"time"
)

type DelegationStatus string

const (
	DelegationPending DelegationStatus = "pending"
	DelegationActive  DelegationStatus = "active"
)

const (
	// AwaitingLinkLabel is the redeemer label of an offer nobody has redeemed yet.
	AwaitingLinkLabel = "awaiting link"

	// ExternalUserLabel is the last-resort redeemer label when neither a
	// nickname nor an email is known for the redeeming actor.
	ExternalUserLabel = "external user"
)

var (
	ErrOfferNoProjects       = errors.New("delegation offer grants no projects")
	ErrOfferProjectsMismatch = errors.New("delegation offer project ids and names differ in length")
	ErrOfferSelfDelegation   = errors.New("delegation offer redeemed by its issuer")
	ErrOfferRedeemerState    = errors.New("delegation offer redeemer does not match status")
)

// DelegationOffer grants the projects it lists to whichever tenant redeems
// its code. It moves from pending to active exactly once.
type DelegationOffer struct {
	ID                  string
	Code                string
	IssuerTenantID      string
	Status              DelegationStatus
	RedeemerTenantID    string // empty while pending
	RedeemerLabel       string
	GrantedProjectIDs   []string
	GrantedProjectNames []string
	CreatedAt           time.Time
	RedeemedAt          *time.Time
}

func (o DelegationOffer) Pending() bool { return o.Status == DelegationPending }

// Validate checks the structural invariants of an offer.
func (o DelegationOffer) Validate() error {
	if len(o.GrantedProjectIDs) == 0 {
		return ErrOfferNoProjects
	}
	if len(o.GrantedProjectIDs) != len(o.GrantedProjectNames) {
		return ErrOfferProjectsMismatch
	}
	switch o.Status {
	case DelegationPending:
		if o.RedeemerTenantID != "" || o.RedeemedAt != nil {
			return ErrOfferRedeemerState
		}
	case DelegationActive:
		if o.RedeemerTenantID == "" {
			return ErrOfferRedeemerState
		}
		if o.RedeemerTenantID == o.IssuerTenantID {
			return ErrOfferSelfDelegation
		}
	default:
		return ErrOfferRedeemerState
	}
	return nil
}

// Redemption is the state an offer takes on when it is consumed.
type Redemption struct {
	RedeemerTenantID string
	RedeemerLabel    string
	RedeemedAt       time.Time
}

// Apply returns a copy of o in the active state.
func (r Redemption) Apply(o DelegationOffer) DelegationOffer {
	at := r.RedeemedAt
	o.Status = DelegationActive
	o.RedeemerTenantID = r.RedeemerTenantID
	o.RedeemerLabel = r.RedeemerLabel
	o.RedeemedAt = &at
	return o
}
