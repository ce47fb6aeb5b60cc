package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

// AdminStore is the slice of the credential store needed to seed an admin.
type AdminStore interface {
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

// EnsureAdmin creates the initial admin account when no admin exists yet and
// reports whether it did. An empty email disables seeding.
func EnsureAdmin(ctx context.Context, users AdminStore, hasher ports.PasswordHasher, name, email, password string, log zerolog.Logger) (bool, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}

	n, err := users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	_, err = users.Create(ctx, &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrUserExists) {
		log.Warn().Str("email", email).Msg("initial admin email belongs to a non-admin account, skipping seed")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create initial admin: %w", err)
	}

	log.Info().Str("email", email).Msg("initial admin created")
	return true, nil
}
