package ports

import (
	"context"

	"github.com/minicrm/crm-api/internal/core/domain"
)

// TokenService issues and verifies signed session tokens.
type TokenService interface {
	Issue(user *domain.User) (string, error)
	// Verify fails with domain.ErrTokenMissing or domain.ErrTokenInvalid.
	Verify(ctx context.Context, token string) (domain.Identity, error)
	Revoke(ctx context.Context, identity domain.Identity) error
}
