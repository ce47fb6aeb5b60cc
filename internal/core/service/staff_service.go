package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/minicrm/crm-api/internal/api/metrics"
	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

// StaffService manages users holding the staff role.
type StaffService struct {
	users    ports.UserRepository
	projects ports.ProjectRepository
	clients  ports.ClientRepository
	hasher   ports.PasswordHasher
	log      zerolog.Logger
}

func NewStaffService(users ports.UserRepository, projects ports.ProjectRepository, clients ports.ClientRepository, hasher ports.PasswordHasher, log zerolog.Logger) *StaffService {
	return &StaffService{users: users, projects: projects, clients: clients, hasher: hasher, log: log}
}

func (s *StaffService) Create(ctx context.Context, in ports.CreateStaffInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, domain.NewValidationError("name, email and password are required")
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
		Role:         domain.RoleStaff,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues(string(domain.RoleStaff)).Inc()
	s.log.Info().Str("user_id", user.ID).Msg("staff created")
	return user, nil
}

func (s *StaffService) List(ctx context.Context) ([]*domain.User, error) {
	staff, err := s.users.List(ctx, domain.RoleStaff)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	if staff == nil {
		staff = []*domain.User{}
	}
	return staff, nil
}

func (s *StaffService) Update(ctx context.Context, id string, patch ports.UserPatch) (*domain.User, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.NewValidationError("name cannot be empty")
		}
		patch.Name = &name
	}
	if patch.Email != nil {
		email := domain.NormalizeEmail(*patch.Email)
		if email == "" {
			return nil, domain.NewValidationError("email cannot be empty")
		}
		patch.Email = &email
	}
	return s.users.Update(ctx, id, domain.RoleStaff, patch)
}

func (s *StaffService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id, domain.RoleStaff); err != nil {
		return err
	}

	assigned, err := s.projects.List(ctx, ports.ProjectFilter{StaffID: id})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", id).Msg("failed to list projects of deleted staff")
	}

	n, err := s.projects.RemoveStaff(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", id).Msg("staff deleted but project assignments were not cleared")
		return nil
	}

	synced := make(map[string]bool, len(assigned))
	for _, p := range assigned {
		if synced[p.ClientID] {
			continue
		}
		synced[p.ClientID] = true
		if err := syncClientAssignments(ctx, s.projects, s.clients, p.ClientID); err != nil {
			s.log.Warn().Err(err).Str("client", p.ClientID).Msg("failed to sync client assignments")
		}
	}
	s.log.Info().Str("user_id", id).Int64("projects_unassigned", n).Msg("staff deleted")
	return nil
}
