package http

import (
	"slices"
	"strings"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/pkg/licensesdk"
)

func tenantResponse(t domain.Tenant) licensesdk.TenantResponse {
	members := make([]licensesdk.Member, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, memberResponse(m))
	}
	slices.SortFunc(members, func(a, b licensesdk.Member) int {
		if c := a.AddedAt.Compare(b.AddedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ActorID, b.ActorID)
	})

	return licensesdk.TenantResponse{
		ID:                 t.ID,
		Email:              t.Email,
		SubscriptionStatus: string(t.SubscriptionStatus),
		Features: licensesdk.Features{
			Export:   t.Features.Export,
			Analysis: t.Features.Analysis,
		},
		Limits: licensesdk.Limits{
			Smartphone: t.Limits.Smartphone,
			Desktop:    t.Limits.Desktop,
		},
		TrialStartedAt: t.TrialStartedAt,
		TrialEndsAt:    t.TrialEndsAt,
		Members:        members,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func memberResponse(m domain.Member) licensesdk.Member {
	return licensesdk.Member{
		ActorID:  m.ActorID,
		Role:     m.Role.String(),
		Email:    m.Email,
		Nickname: m.Nickname,
		AddedAt:  m.AddedAt,
	}
}

func projectResponse(p domain.Project) licensesdk.Project {
	return licensesdk.Project{
		ID:        p.ID,
		TenantID:  p.TenantID,
		Name:      p.Name,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func delegationResponse(o domain.DelegationOffer) licensesdk.Delegation {
	return licensesdk.Delegation{
		ID:                  o.ID,
		Code:                o.Code,
		IssuerTenantID:      o.IssuerTenantID,
		Status:              string(o.Status),
		RedeemerTenantID:    o.RedeemerTenantID,
		RedeemerLabel:       o.RedeemerLabel,
		GrantedProjectIDs:   o.GrantedProjectIDs,
		GrantedProjectNames: o.GrantedProjectNames,
		CreatedAt:           o.CreatedAt,
		RedeemedAt:          o.RedeemedAt,
	}
}

func delegationList(offers []domain.DelegationOffer) licensesdk.DelegationList {
	out := licensesdk.DelegationList{Delegations: make([]licensesdk.Delegation, len(offers))}
	for i, o := range offers {
		out.Delegations[i] = delegationResponse(o)
	}
	return out
}
