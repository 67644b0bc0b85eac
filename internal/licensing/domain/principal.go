package domain

// Principal is the authenticated caller as seen by services. The identity
// provider vouches for every field; services do not re-validate them.
type Principal struct {
	ActorID  string
	TenantID string
	Role     Role
	Email    string
	Name     string
}

func (p Principal) Authenticated() bool { return p.ActorID != "" }
