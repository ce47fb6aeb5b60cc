package ports

import (
	"context"

	"github.com/minicrm/crm-api/internal/core/domain"
)

type LeadFilter struct {
	Status string // optional
}

type LeadPatch struct {
	Name    *string
	Contact *string
	Status  *domain.LeadStatus
	UserID  *string
}

// LeadRepository persists leads. Emails are expected to be normalized by the caller.
type LeadRepository interface {
	// Create fails with ErrLeadExists when the email is already captured.
	Create(ctx context.Context, lead *domain.Lead) (*domain.Lead, error)
	FindByID(ctx context.Context, id string) (*domain.Lead, error)
	FindByEmail(ctx context.Context, email string) (*domain.Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]*domain.Lead, error)
	Update(ctx context.Context, id string, patch LeadPatch) (*domain.Lead, error)
	// Delete returns ErrLeadNotFound when nothing was removed.
	Delete(ctx context.Context, id string) error
}
