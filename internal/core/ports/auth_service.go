package ports

import (
	"context"

	"github.com/minicrm/crm-api/internal/core/domain"
)

// RegisterInput carries a new account. Role is free-form and validated by the
// service; an empty value means domain.DefaultRole.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Contact  string
	Role     string
}

// RegisterResult reports the created user and, for role=lead, the lead record.
type RegisterResult struct {
	User *domain.User
	Lead *domain.Lead
}

type AuthService interface {
	Register(ctx context.Context, actor domain.Identity, input RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Logout(ctx context.Context, actor domain.Identity) error
}
