package domain

import "time"

type SubscriptionStatus string

const (
	SubscriptionTrial   SubscriptionStatus = "trial"
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// TrialPeriod is how long a freshly provisioned tenant can use the app before
// a subscription is required.
const TrialPeriod = 7 * 24 * time.Hour

type Features struct {
	Export   bool
	Analysis bool
}

// Limits caps how many devices of each kind may be linked to a tenant.
type Limits struct {
	Smartphone int
	Desktop    int
}

// Tenant is a company license. Members are keyed by actor id.
type Tenant struct {
	ID                 string
	Email              string
	SubscriptionStatus SubscriptionStatus
	Features           Features
	Limits             Limits
	TrialStartedAt     time.Time
	TrialEndsAt        time.Time
	Members            map[string]Member
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Member returns the membership of actorID, if any.
func (t Tenant) Member(actorID string) (Member, bool) {
	m, ok := t.Members[actorID]
	return m, ok
}

// CloneMembers returns a copy of the member map so callers can diff before
// and after a mutation.
func (t Tenant) CloneMembers() map[string]Member {
	out := make(map[string]Member, len(t.Members))
	for k, v := range t.Members {
		out[k] = v
	}
	return out
}

type Member struct {
	ActorID  string
	Role     Role
	Email    string
	Nickname string
	AddedAt  time.Time
}
