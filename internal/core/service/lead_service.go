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

type LeadService struct {
	leads   ports.LeadRepository
	clients ports.ClientRepository
	log     zerolog.Logger
}

func NewLeadService(leads ports.LeadRepository, clients ports.ClientRepository, log zerolog.Logger) *LeadService {
	return &LeadService{leads: leads, clients: clients, log: log}
}

func (s *LeadService) Create(ctx context.Context, in ports.CreateLeadInput) (*domain.Lead, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, domain.NewValidationError("name and email are required")
	}

	// An address that already converted stays a client; it is not captured again.
	if _, err := s.clients.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("create lead %s: %w", email, domain.ErrClientExists)
	} else if !errors.Is(err, domain.ErrClientNotFound) {
		return nil, fmt.Errorf("create lead: lookup client: %w", err)
	}

	status := domain.LeadStatus(strings.TrimSpace(in.Status))
	if status == "" {
		status = domain.LeadStatusNew
	}

	now := time.Now().UTC()
	lead, err := s.leads.Create(ctx, &domain.Lead{
		Name:      name,
		Email:     email,
		Contact:   strings.TrimSpace(in.Contact),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	s.log.Info().Str("lead_id", lead.ID).Msg("lead created")
	return lead, nil
}

func (s *LeadService) List(ctx context.Context, filter ports.LeadFilter) ([]*domain.Lead, error) {
	leads, err := s.leads.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	if leads == nil {
		leads = []*domain.Lead{}
	}
	return leads, nil
}

func (s *LeadService) Update(ctx context.Context, id string, patch ports.LeadPatch) (*domain.Lead, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.NewValidationError("name cannot be empty")
		}
		patch.Name = &name
	}
	if patch.Status != nil && strings.TrimSpace(string(*patch.Status)) == "" {
		return nil, domain.NewValidationError("status cannot be empty")
	}
	return s.leads.Update(ctx, id, patch)
}

func (s *LeadService) Delete(ctx context.Context, id string) error {
	if err := s.leads.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("lead_id", id).Msg("lead deleted")
	return nil
}
