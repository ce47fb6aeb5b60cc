package ports

import (
	"context"
	"time"

	"github.com/minicrm/crm-api/internal/core/domain"
)

type CreateProjectInput struct {
	Title       string
	Description string
	Deadline    time.Time
	ClientID    string
	StaffIDs    []string
}

// ProjectService is the project visibility resolver plus its mutations.
type ProjectService interface {
	ListVisible(ctx context.Context, actor domain.Identity, filter ProjectFilter) ([]*domain.Project, error)
	Get(ctx context.Context, actor domain.Identity, id string) (*domain.Project, error)
	Create(ctx context.Context, actor domain.Identity, input CreateProjectInput) (*domain.Project, error)
	Update(ctx context.Context, actor domain.Identity, id string, patch domain.ProjectPatch) (*domain.Project, error)
	Delete(ctx context.Context, actor domain.Identity, id string) error
}
