package ports

import (
	"context"

	"github.com/minicrm/crm-api/internal/core/domain"
)

type ClientPatch struct {
	Name    *string
	Contact *string
}

// ClientRepository persists converted clients.
type ClientRepository interface {
	// Create inserts client keeping client.ID when set; ErrClientExists if that
	// id is already stored.
	Create(ctx context.Context, client *domain.Client) (*domain.Client, error)
	FindByID(ctx context.Context, id string) (*domain.Client, error)
	// FindByEmail expects a normalized email; ErrClientNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*domain.Client, error)
	List(ctx context.Context) ([]*domain.Client, error)
	Update(ctx context.Context, id string, patch ClientPatch) (*domain.Client, error)
	Delete(ctx context.Context, id string) error
	// SetAssignments replaces the projects and assigned staff recorded on the
	// client linked to userID. Returns ErrClientNotFound when no client record
	// is linked to that user.
	SetAssignments(ctx context.Context, userID string, projectIDs, staffIDs []string) error
}
