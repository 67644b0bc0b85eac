package domain

// Capability is what an actor is granted inside a tenant. It is published
// to the identity provider so tokens carry the tenant and role.
type Capability struct {
	TenantID string
	Role     Role
}

// ClaimChange is a single grant or revocation produced by reconciling a
// tenant's member map. A nil Grant revokes the actor's claims.
type ClaimChange struct {
	ActorID string
	Grant   *Capability
}

func (c ClaimChange) Revoke() bool { return c.Grant == nil }
