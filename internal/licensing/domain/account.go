package domain

import "time"

// Account links an authenticated actor back to its home tenant. It is the
// fallback used when a token carries no tenant claim.
type Account struct {
	ActorID      string
	TenantID     string
	Email        string
	DisplayName  string
	PasswordHash string // only set for accounts created in the local directory
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
