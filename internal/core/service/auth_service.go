package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/minicrm/crm-api/internal/api/metrics"
	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

// AuthService implements registration, login and logout.
type AuthService struct {
	users  ports.UserRepository
	leads  ports.LeadRepository
	hasher ports.PasswordHasher
	tokens ports.TokenService
	events ports.EventPublisher
	log    zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	leads ports.LeadRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	events ports.EventPublisher,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		leads:  leads,
		hasher: hasher,
		tokens: tokens,
		events: events,
		log:    log,
	}
}

// Register creates a user, and a matching lead when the role is lead. Staff
// callers may only register leads.
func (s *AuthService) Register(ctx context.Context, actor domain.Identity, in ports.RegisterInput) (*ports.RegisterResult, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, domain.NewValidationError("name, email and password are required")
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && role != domain.RoleLead {
		return nil, fmt.Errorf("register %s as %s: %w", role, actor.Role, domain.ErrForbidden)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		Contact:      strings.TrimSpace(in.Contact),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	result := &ports.RegisterResult{User: user}
	if role == domain.RoleLead {
		lead, err := s.leads.Create(ctx, &domain.Lead{
			Name:      user.Name,
			Email:     user.Email,
			Contact:   user.Contact,
			Status:    domain.LeadStatusNew,
			UserID:    user.ID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if errors.Is(err, domain.ErrLeadExists) {
			// A lead captured earlier for this email now belongs to the new user.
			lead, err = s.leads.FindByEmail(ctx, user.Email)
			if err == nil && lead.UserID != user.ID {
				lead, err = s.leads.Update(ctx, lead.ID, ports.LeadPatch{UserID: &user.ID})
			}
		}
		if err != nil {
			// Roll the credential back so a retry is not blocked by ErrUserExists.
			if delErr := s.users.Delete(ctx, user.ID, domain.RoleLead); delErr != nil {
				s.log.Error().Err(delErr).Str("user_id", user.ID).Msg("failed to roll back user after lead creation error")
			}
			return nil, fmt.Errorf("create lead for %s: %w", email, err)
		}
		result.Lead = lead
	}

	metrics.RegistrationsTotal.WithLabelValues(string(role)).Inc()
	s.log.Info().Str("user_id", user.ID).Str("role", string(role)).Str("by", actor.ID).Msg("user registered")

	s.publish(ctx, domain.Event{
		Type:       domain.EventUserRegistered,
		OccurredAt: now,
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
	})
	return result, nil
}

// Login checks credentials and returns a signed token. Unknown emails and
// wrong passwords are both reported as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return "", nil, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Compare(password, user.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return token, user, nil
}

func (s *AuthService) Logout(ctx context.Context, actor domain.Identity) error {
	if err := s.tokens.Revoke(ctx, actor); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info().Str("user_id", actor.ID).Msg("token revoked")
	return nil
}

func (s *AuthService) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to publish event")
	}
}
