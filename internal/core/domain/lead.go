package domain

import "time"

// LeadStatus is an open set; the constants below are the ones the UI offers.
type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "new"
	LeadStatusContacted  LeadStatus = "contacted"
	LeadStatusInterested LeadStatus = "interested"
	LeadStatusLost       LeadStatus = "lost"
)

// Lead is an unconverted prospect.
type Lead struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Contact   string     `json:"contact"`
	Status    LeadStatus `json:"status"`
	UserID    string     `json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
