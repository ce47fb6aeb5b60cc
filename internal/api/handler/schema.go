package handler

import (
	"time"

	"github.com/minicrm/crm-api/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Contact  string `json:"contact"`
	Role     string `json:"role"     validate:"omitempty,role"`
}

type registerResponse struct {
	User *domain.User `json:"user"`
	Lead *domain.Lead `json:"lead,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	Role  domain.Role  `json:"role"`
	User  *domain.User `json:"user"`
}

type identityResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name,omitempty"`
	Role      domain.Role `json:"role"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

type policyResponse struct {
	Roles   []domain.Role                                 `json:"roles"`
	Actions map[domain.Action]map[domain.Role]domain.Scope `json:"actions"`
}

// --- Leads ---

type createLeadRequest struct {
	Name    string `json:"name"    validate:"required"`
	Email   string `json:"email"   validate:"required,email"`
	Contact string `json:"contact"`
	Status  string `json:"status"`
}

type updateLeadRequest struct {
	Name    *string `json:"name"`
	Contact *string `json:"contact"`
	Status  *string `json:"status"`
}

// --- Clients ---

type updateClientRequest struct {
	Name    *string `json:"name"`
	Contact *string `json:"contact"`
}

// --- Staff ---

type createStaffRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Contact  string `json:"contact"`
}

type updateStaffRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"   validate:"omitempty,email"`
	Contact *string `json:"contact"`
}

// --- Projects ---

type createProjectRequest struct {
	Title       string   `json:"title"       validate:"required"`
	Description string   `json:"description"`
	Deadline    string   `json:"deadline"    validate:"required"`
	Client      string   `json:"client"      validate:"required"`
	Staff       []string `json:"staff"`
}

// updateProjectRequest is sparse: absent keys stay nil and are not touched.
type updateProjectRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Deadline    *string   `json:"deadline"`
	Progress    *string   `json:"progress"    validate:"omitempty,progress"`
	Client      *string   `json:"client"`
	Staff       *[]string `json:"staff"`
}
