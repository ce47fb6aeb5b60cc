package ports

import (
	"context"

	"github.com/minicrm/crm-api/internal/core/domain"
)

// UserPatch is a sparse profile update; nil fields are left untouched.
type UserPatch struct {
	Name    *string
	Email   *string
	Contact *string
}

// UserRepository is the credential store.
type UserRepository interface {
	// Create inserts the user; ErrUserExists when the email is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByIDs returns the users among ids that hold role. Unknown or malformed
	// ids are skipped, so callers compare lengths to detect bad references.
	FindByIDs(ctx context.Context, ids []string, role domain.Role) ([]*domain.User, error)
	List(ctx context.Context, role domain.Role) ([]*domain.User, error)
	// Update applies patch to the user with id, only if it currently holds role.
	Update(ctx context.Context, id string, role domain.Role, patch UserPatch) (*domain.User, error)
	SetRoleByID(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	SetRoleByEmail(ctx context.Context, email string, role domain.Role) (*domain.User, error)
	// Delete removes the user with id, only if it currently holds role.
	Delete(ctx context.Context, id string, role domain.Role) error
}
