package domain

import "time"

// Identity is the caller as proven by a verified token. Role is the claim
// captured at issuance, not a live lookup.
type Identity struct {
	ID        string
	Name      string
	Role      Role
	TokenID   string
	ExpiresAt time.Time // zero for non-expiring tokens
}
