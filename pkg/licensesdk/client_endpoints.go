package licensesdk

import (
	"context"
	"net/http"
	"net/url"
)

// SignUp creates a local directory account. Only available when the server
// runs its own directory.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error) {
	var out SignUpResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signup", false, req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssueToken exchanges local credentials for an access token.
func (c *Client) IssueToken(ctx context.Context, email, password string) (*TokenResponse, error) {
	var out TokenResponse
	req := TokenRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/token", false, req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	var out JWKSResponse
	if err := c.do(ctx, http.MethodGet, "/.well-known/jwks.json", false, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProvisionTenant opens a trial license owned by the caller.
func (c *Client) ProvisionTenant(ctx context.Context, email string) (*TenantResponse, error) {
	var out TenantResponse
	req := ProvisionTenantRequest{Email: email}
	if err := c.do(ctx, http.MethodPost, "/v1/tenants", true, req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTenant(ctx context.Context) (*TenantResponse, error) {
	var out TenantResponse
	if err := c.do(ctx, http.MethodGet, "/v1/tenants/me", true, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddMember(ctx context.Context, req AddMemberRequest) (*Member, error) {
	var out Member
	if err := c.do(ctx, http.MethodPost, "/v1/team/members", true, req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveMember(ctx context.Context, actorID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/team/members/"+url.PathEscape(actorID), true, nil, nil, http.StatusNoContent)
}

func (c *Client) RegisterProject(ctx context.Context, req RegisterProjectRequest) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodPost, "/v1/projects", true, req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out ProjectList
	if err := c.do(ctx, http.MethodGet, "/v1/projects", true, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/projects/"+url.PathEscape(projectID), true, nil, nil, http.StatusNoContent)
}

// CreateDelegation returns a code to share with the tenant that should see
// the project.
func (c *Client) CreateDelegation(ctx context.Context, projectID, projectName string) (string, error) {
	var out CreateDelegationResponse
	req := CreateDelegationRequest{ProjectID: projectID, ProjectName: projectName}
	if err := c.do(ctx, http.MethodPost, "/v1/delegations", true, req, &out, http.StatusCreated); err != nil {
		return "", err
	}
	return out.Code, nil
}

// RedeemDelegation consumes a code. Unknown and already used codes fail
// with IsNotFound.
func (c *Client) RedeemDelegation(ctx context.Context, code, displayName string) (*RedeemDelegationResponse, error) {
	var out RedeemDelegationResponse
	req := RedeemDelegationRequest{Code: code, DisplayName: displayName}
	if err := c.do(ctx, http.MethodPost, "/v1/delegations/redeem", true, req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListIssuedDelegations(ctx context.Context) ([]Delegation, error) {
	var out DelegationList
	if err := c.do(ctx, http.MethodGet, "/v1/delegations/issued", true, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Delegations, nil
}

func (c *Client) ListReceivedDelegations(ctx context.Context) ([]Delegation, error) {
	var out DelegationList
	if err := c.do(ctx, http.MethodGet, "/v1/delegations/received", true, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Delegations, nil
}

func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/livez", false, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/readyz", false, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
