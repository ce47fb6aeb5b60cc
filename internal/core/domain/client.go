package domain

import "time"

// Client is a converted lead. UserID links the credential record whose role was
// flipped during conversion, when one existed.
type Client struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Contact           string    `json:"contact"`
	UserID            string    `json:"user_id,omitempty"`
	Projects          []string  `json:"projects"`
	AssignedStaff     []string  `json:"assigned_staff"`
	ConvertedFromLead string    `json:"converted_from_lead,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
