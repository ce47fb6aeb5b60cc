package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

type ClientService struct {
	clients  ports.ClientRepository
	projects ports.ProjectRepository
	log      zerolog.Logger
}

func NewClientService(clients ports.ClientRepository, projects ports.ProjectRepository, log zerolog.Logger) *ClientService {
	return &ClientService{clients: clients, projects: projects, log: log}
}

func (s *ClientService) List(ctx context.Context) ([]*domain.Client, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	if clients == nil {
		clients = []*domain.Client{}
	}
	return clients, nil
}

func (s *ClientService) Update(ctx context.Context, id string, patch ports.ClientPatch) (*domain.Client, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.NewValidationError("name cannot be empty")
		}
		patch.Name = &name
	}
	return s.clients.Update(ctx, id, patch)
}

// Delete removes the client record. Clients whose user still owns projects
// are refused so no project is left with a dangling owner.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	client, err := s.clients.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if client.UserID != "" {
		n, err := s.projects.CountByClient(ctx, client.UserID)
		if err != nil {
			return fmt.Errorf("count client projects: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("client %s owns %d project(s): %w", id, n, domain.ErrClientInUse)
		}
	}

	if err := s.clients.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("client_id", id).Msg("client deleted")
	return nil
}
