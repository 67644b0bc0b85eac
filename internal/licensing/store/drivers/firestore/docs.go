package firestore

import (
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
)

type memberDoc struct {
	Role     string    `firestore:"role"`
	Email    string    `firestore:"email"`
	Nickname string    `firestore:"nickname"`
	AddedAt  time.Time `firestore:"addedAt"`
}

type tenantDoc struct {
	Email              string               `firestore:"email"`
	SubscriptionStatus string               `firestore:"subscriptionStatus"`
	Features           featuresDoc          `firestore:"features"`
	Limits             limitsDoc            `firestore:"limits"`
	TrialStartedAt     *time.Time           `firestore:"trialStartedAt"`
	TrialEndsAt        *time.Time           `firestore:"trialEndsAt"`
	Members            map[string]memberDoc `firestore:"members"`
	CreatedAt          time.Time            `firestore:"createdAt"`
	UpdatedAt          time.Time            `firestore:"updatedAt"`
}

type featuresDoc struct {
	Export   bool `firestore:"export"`
	Analysis bool `firestore:"analysis"`
}

type limitsDoc struct {
	Smartphone int `firestore:"smartphone"`
	Desktop    int `firestore:"desktop"`
}

type projectDoc struct {
	Name      string    `firestore:"name"`
	Status    string    `firestore:"status"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type offerDoc struct {
	Code                string     `firestore:"code"`
	IssuerTenantID      string     `firestore:"issuerTenantId"`
	Status              string     `firestore:"status"`
	RedeemerTenantID    *string    `firestore:"redeemerTenantId"` // null while pending
	RedeemerLabel       string     `firestore:"redeemerLabel"`
	GrantedProjectIDs   []string   `firestore:"grantedProjectIds"`
	GrantedProjectNames []string   `firestore:"grantedProjectNames"`
	CreatedAt           time.Time  `firestore:"createdAt"`
	RedeemedAt          *time.Time `firestore:"redeemedAt"`
}

// codeDoc reserves a code for the pending offer it names.
type codeDoc struct {
	IssuerTenantID string    `firestore:"issuerTenantId"`
	OfferID        string    `firestore:"offerId"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

type accountDoc struct {
	TenantID     string    `firestore:"tenantId"`
	Email        string    `firestore:"email"`
	DisplayName  string    `firestore:"displayName"`
	PasswordHash string    `firestore:"passwordHash,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type claimsDoc struct {
	TenantID  string    `firestore:"tenantId"`
	Role      string    `firestore:"role"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func toMemberDoc(m domain.Member) memberDoc {
	added := m.AddedAt
	if added.IsZero() {
		added = time.Now()
	}
	return memberDoc{
		Role:     string(m.Role),
		Email:    m.Email,
		Nickname: m.Nickname,
		AddedAt:  added.UTC(),
	}
}

func toTenantDoc(t domain.Tenant) tenantDoc {
	members := make(map[string]memberDoc, len(t.Members))
	for id, m := range t.Members {
		members[id] = toMemberDoc(m)
	}
	return tenantDoc{
		Email:              t.Email,
		SubscriptionStatus: string(t.SubscriptionStatus),
		Features:           featuresDoc{Export: t.Features.Export, Analysis: t.Features.Analysis},
		Limits:             limitsDoc{Smartphone: t.Limits.Smartphone, Desktop: t.Limits.Desktop},
		TrialStartedAt:     timePtr(t.TrialStartedAt),
		TrialEndsAt:        timePtr(t.TrialEndsAt),
		Members:            members,
		CreatedAt:          t.CreatedAt.UTC(),
		UpdatedAt:          t.UpdatedAt.UTC(),
	}
}

func (d tenantDoc) toDomain(id string) domain.Tenant {
	members := make(map[string]domain.Member, len(d.Members))
	for actorID, m := range d.Members {
		members[actorID] = domain.Member{
			ActorID:  actorID,
			Role:     domain.Role(m.Role),
			Email:    m.Email,
			Nickname: m.Nickname,
			AddedAt:  m.AddedAt.UTC(),
		}
	}
	return domain.Tenant{
		ID:                 id,
		Email:              d.Email,
		SubscriptionStatus: domain.SubscriptionStatus(d.SubscriptionStatus),
		Features:           domain.Features{Export: d.Features.Export, Analysis: d.Features.Analysis},
		Limits:             domain.Limits{Smartphone: d.Limits.Smartphone, Desktop: d.Limits.Desktop},
		TrialStartedAt:     derefTime(d.TrialStartedAt),
		TrialEndsAt:        derefTime(d.TrialEndsAt),
		Members:            members,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
	}
}

func toOfferDoc(o domain.DelegationOffer) offerDoc {
	return offerDoc{
		Code:                o.Code,
		IssuerTenantID:      o.IssuerTenantID,
		Status:              string(o.Status),
		RedeemerTenantID:    stringPtr(o.RedeemerTenantID),
		RedeemerLabel:       o.RedeemerLabel,
		GrantedProjectIDs:   o.GrantedProjectIDs,
		GrantedProjectNames: o.GrantedProjectNames,
		CreatedAt:           o.CreatedAt.UTC(),
		RedeemedAt:          o.RedeemedAt,
	}
}

func (d offerDoc) toDomain(id string) domain.DelegationOffer {
	var redeemedAt *time.Time
	if d.RedeemedAt != nil {
		redeemedAt = timePtr(*d.RedeemedAt)
	}
	return domain.DelegationOffer{
		ID:                  id,
		Code:                d.Code,
		IssuerTenantID:      d.IssuerTenantID,
		Status:              domain.DelegationStatus(d.Status),
		RedeemerTenantID:    derefString(d.RedeemerTenantID),
		RedeemerLabel:       d.RedeemerLabel,
		GrantedProjectIDs:   d.GrantedProjectIDs,
		GrantedProjectNames: d.GrantedProjectNames,
		CreatedAt:           d.CreatedAt.UTC(),
		RedeemedAt:          redeemedAt,
	}
}
