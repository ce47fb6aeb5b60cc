package domain

import "time"

// IntentState tracks a conversion through its write-ahead record.
type IntentState string

const (
	IntentPending   IntentState = "pending"
	IntentCompleted IntentState = "completed"
)

// ConversionIntent is written before any conversion side effect so that a
// crash between steps can be re-driven. ClientID is allocated up front, which
// makes client creation idempotent on replay.
type ConversionIntent struct {
	ID        string
	LeadID    string
	ClientID  string
	UserID    string
	Email     string
	Name      string
	Contact   string
	State     IntentState
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversionResult is the caller-visible outcome. A nil error with warnings
// means the client exists but the credential or lead cleanup did not fully land.
type ConversionResult struct {
	Client      *Client  `json:"client"`
	User        *User    `json:"user"`
	UserUpdated bool     `json:"user_updated"`
	LeadDeleted bool     `json:"lead_deleted"`
	Warnings    []string `json:"warnings,omitempty"`
}
