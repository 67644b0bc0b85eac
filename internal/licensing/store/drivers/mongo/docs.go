package mongo

import (
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
)

type memberDoc struct {
	Role     string    `bson:"role"`
	Email    string    `bson:"email"`
	Nickname string    `bson:"nickname"`
	AddedAt  time.Time `bson:"added_at"`
}

type tenantDoc struct {
	ID                 string               `bson:"_id"`
	Email              string               `bson:"email"`
	SubscriptionStatus string               `bson:"subscription_status"`
	FeatureExport      bool                 `bson:"feature_export"`
	FeatureAnalysis    bool                 `bson:"feature_analysis"`
	LimitSmartphone    int                  `bson:"limit_smartphone"`
	LimitDesktop       int                  `bson:"limit_desktop"`
	TrialStartedAt     *time.Time           `bson:"trial_started_at,omitempty"`
	TrialEndsAt        *time.Time           `bson:"trial_ends_at,omitempty"`
	Members            map[string]memberDoc `bson:"members"`
	CreatedAt          time.Time            `bson:"created_at"`
	UpdatedAt          time.Time            `bson:"updated_at"`
}

type projectDoc struct {
	Key       string    `bson:"_id"`
	ID        string    `bson:"project_id"`
	TenantID  string    `bson:"tenant_id"`
	Name      string    `bson:"name"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type offerDoc struct {
	ID                  string     `bson:"_id"`
	Code                string     `bson:"code"`
	IssuerTenantID      string     `bson:"issuer_tenant_id"`
	Status              string     `bson:"status"`
	RedeemerTenantID    string     `bson:"redeemer_tenant_id,omitempty"`
	RedeemerLabel       string     `bson:"redeemer_label"`
	GrantedProjectIDs   []string   `bson:"granted_project_ids"`
	GrantedProjectNames []string   `bson:"granted_project_names"`
	CreatedAt           time.Time  `bson:"created_at"`
	RedeemedAt          *time.Time `bson:"redeemed_at,omitempty"`
}

type accountDoc struct {
	ActorID      string    `bson:"_id"`
	TenantID     string    `bson:"tenant_id"`
	Email        string    `bson:"email"`
	DisplayName  string    `bson:"display_name"`
	PasswordHash string    `bson:"password_hash,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type claimsDoc struct {
	ActorID   string    `bson:"_id"`
	TenantID  string    `bson:"tenant_id"`
	Role      string    `bson:"role"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// projectKey scopes project ids to their tenant.
func projectKey(tenantID, projectID string) string {
	return tenantID + "/" + projectID
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
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
	return memberDoc{Role: string(m.Role), Email: m.Email, Nickname: m.Nickname, AddedAt: added.UTC()}
}

func toTenantDoc(t domain.Tenant) tenantDoc {
	members := make(map[string]memberDoc, len(t.Members))
	for id, m := range t.Members {
		members[id] = toMemberDoc(m)
	}
	return tenantDoc{
		ID:                 t.ID,
		Email:              t.Email,
		SubscriptionStatus: string(t.SubscriptionStatus),
		FeatureExport:      t.Features.Export,
		FeatureAnalysis:    t.Features.Analysis,
		LimitSmartphone:    t.Limits.Smartphone,
		LimitDesktop:       t.Limits.Desktop,
		TrialStartedAt:     timePtr(t.TrialStartedAt),
		TrialEndsAt:        timePtr(t.TrialEndsAt),
		Members:            members,
		CreatedAt:          t.CreatedAt.UTC(),
		UpdatedAt:          t.UpdatedAt.UTC(),
	}
}

func (d tenantDoc) toDomain() domain.Tenant {
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
		ID:                 d.ID,
		Email:              d.Email,
		SubscriptionStatus: domain.SubscriptionStatus(d.SubscriptionStatus),
		Features:           domain.Features{Export: d.FeatureExport, Analysis: d.FeatureAnalysis},
		Limits:             domain.Limits{Smartphone: d.LimitSmartphone, Desktop: d.LimitDesktop},
		TrialStartedAt:     derefTime(d.TrialStartedAt),
		TrialEndsAt:        derefTime(d.TrialEndsAt),
		Members:            members,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
	}
}

func (d projectDoc) toDomain() domain.Project {
	return domain.Project{
		ID:        d.ID,
		TenantID:  d.TenantID,
		Name:      d.Name,
		Status:    domain.ProjectStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func toOfferDoc(o domain.DelegationOffer) offerDoc {
	return offerDoc{
		ID:                  o.ID,
		Code:                o.Code,
		IssuerTenantID:      o.IssuerTenantID,
		Status:              string(o.Status),
		RedeemerTenantID:    o.RedeemerTenantID,
		RedeemerLabel:       o.RedeemerLabel,
		GrantedProjectIDs:   o.GrantedProjectIDs,
		GrantedProjectNames: o.GrantedProjectNames,
		CreatedAt:           o.CreatedAt.UTC(),
		RedeemedAt:          o.RedeemedAt,
	}
}

func (d offerDoc) toDomain() domain.DelegationOffer {
	var redeemedAt *time.Time
	if d.RedeemedAt != nil {
		redeemedAt = timePtr(*d.RedeemedAt)
	}
	return domain.DelegationOffer{
		ID:                  d.ID,
		Code:                d.Code,
		IssuerTenantID:      d.IssuerTenantID,
		Status:              domain.DelegationStatus(d.Status),
		RedeemerTenantID:    d.RedeemerTenantID,
		RedeemerLabel:       d.RedeemerLabel,
		GrantedProjectIDs:   d.GrantedProjectIDs,
		GrantedProjectNames: d.GrantedProjectNames,
		CreatedAt:           d.CreatedAt.UTC(),
		RedeemedAt:          redeemedAt,
	}
}
