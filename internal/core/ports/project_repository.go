package ports

import (
	"context"

	"github.com/minicrm/crm-api/internal/core/domain"
)

// ProjectFilter narrows a project listing. Empty fields apply no constraint;
// visibility scoping is layered on by the service.
type ProjectFilter struct {
	ClientID string
	StaffID  string
	Progress string
}

type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) (*domain.Project, error)
	FindByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]*domain.Project, error)
	// Save overwrites the mutable fields of an existing project.
	Save(ctx context.Context, project *domain.Project) (*domain.Project, error)
	Delete(ctx context.Context, id string) error
	CountByClient(ctx context.Context, clientUserID string) (int64, error)
	// RemoveStaff unassigns staffID from every project and returns how many changed.
	RemoveStaff(ctx context.Context, staffID string) (int64, error)
}
