package ports

import (
	"context"

	"github.com/minicrm/crm-api/internal/core/domain"
)

type CreateLeadInput struct {
	Name    string
	Email   string
	Contact string
	Status  string
}

type LeadService interface {
	Create(ctx context.Context, input CreateLeadInput) (*domain.Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]*domain.Lead, error)
	Update(ctx context.Context, id string, patch LeadPatch) (*domain.Lead, error)
	Delete(ctx context.Context, id string) error
}

type ClientService interface {
	List(ctx context.Context) ([]*domain.Client, error)
	Update(ctx context.Context, id string, patch ClientPatch) (*domain.Client, error)
	// Delete refuses with domain.ErrClientInUse while projects reference the client.
	Delete(ctx context.Context, id string) error
}

type CreateStaffInput struct {
	Name     string
	Email    string
	Password string
	Contact  string
}

type StaffService interface {
	Create(ctx context.Context, input CreateStaffInput) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error)
	// Delete removes the staff user and unassigns them from every project.
	Delete(ctx context.Context, id string) error
}
