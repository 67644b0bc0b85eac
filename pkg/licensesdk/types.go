package licensesdk

import (
	"time"

	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/jwtx"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse = httpx.ErrorResponse

// ============================================================================
// Local directory
// ============================================================================

type SignUpRequest struct {
	Email    string `json:"email" example:"rita@example.com"`
	Password string `json:"password" example:"hunter22"`
	Name     string `json:"name,omitempty" example:"Rita"`
}

type SignUpResponse struct {
	ActorID string `json:"actor_id" example:"01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"`
}

type TokenRequest struct {
	Email    string `json:"email" example:"rita@example.com"`
	Password string `json:"password" example:"hunter22"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"Bearer"`

	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int `json:"expires_in" example:"3600"`
}

// JWKSResponse lists the keys that sign local access tokens.
type JWKSResponse = jwtx.JWKS

// ============================================================================
// Tenants and team
// ============================================================================

type ProvisionTenantRequest struct {
	// Email defaults to the token's email claim.
	Email string `json:"email,omitempty" example:"billing@example.com"`
}

type Features struct {
	Export   bool `json:"export"`
	Analysis bool `json:"analysis"`
}

type Limits struct {
	Smartphone int `json:"smartphone" example:"1"`
	Desktop    int `json:"desktop" example:"0"`
}

type Member struct {
	ActorID  string    `json:"actor_id"`
	Role     string    `json:"role" example:"manager"`
	Email    string    `json:"email,omitempty"`
	Nickname string    `json:"nickname,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

type TenantResponse struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	SubscriptionStatus string    `json:"subscription_status" example:"trial"`
	Features           Features  `json:"features"`
	Limits             Limits    `json:"limits"`
	TrialStartedAt     time.Time `json:"trial_started_at,omitzero"`
	TrialEndsAt        time.Time `json:"trial_ends_at,omitzero"`
	Members            []Member  `json:"members"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type AddMemberRequest struct {
	Email    string `json:"email" example:"ana@example.com"`
	Password string `json:"password" example:"secret1"`
	Name     string `json:"name" example:"Ana"`
	Role     string `json:"role" example:"member"`
}

// ============================================================================
// Projects
// ============================================================================

type RegisterProjectRequest struct {
	// ID is optional; the server mints one when empty.
	ID   string `json:"id,omitempty" example:"P42"`
	Name string `json:"name" example:"Forest Plot 7"`
}

type Project struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status" example:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProjectList struct {
	Projects []Project `json:"projects"`
}

// ============================================================================
// Delegations
// ============================================================================

type CreateDelegationRequest struct {
	ProjectID string `json:"project_id" example:"P42"`

	// ProjectName defaults to the registered project's name.
	ProjectName string `json:"project_name,omitempty" example:"Forest Plot 7"`
}

type CreateDelegationResponse struct {
	Code string `json:"code" example:"A1B2C3"`
}

type RedeemDelegationRequest struct {
	Code string `json:"code" example:"a1b2c3"`

	// DisplayName labels the redeemer when no nickname or email is known.
	DisplayName string `json:"display_name,omitempty" example:"Field tablet 3"`
}

type RedeemDelegationResponse struct {
	OfferID           string   `json:"offer_id"`
	IssuerTenantID    string   `json:"issuer_tenant_id"`
	GrantedProjectIDs []string `json:"granted_project_ids"`
}

type Delegation struct {
	ID                  string     `json:"id"`
	Code                string     `json:"code"`
	IssuerTenantID      string     `json:"issuer_tenant_id"`
	Status              string     `json:"status" example:"pending"`
	RedeemerTenantID    string     `json:"redeemer_tenant_id,omitempty"`
	RedeemerLabel       string     `json:"redeemer_label" example:"awaiting link"`
	GrantedProjectIDs   []string   `json:"granted_project_ids"`
	GrantedProjectNames []string   `json:"granted_project_names"`
	CreatedAt           time.Time  `json:"created_at"`
	RedeemedAt          *time.Time `json:"redeemed_at,omitempty"`
}

type DelegationList struct {
	Delegations []Delegation `json:"delegations"`
}

// ============================================================================
// Health
// ============================================================================

type HealthChecks struct {
	Store  string `json:"store,omitempty" example:"ok"`
	Signer string `json:"signer,omitempty" example:"ok"`
}

type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime" example:"1h2m3s"`
	Version string        `json:"version" example:"0.1.0"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
