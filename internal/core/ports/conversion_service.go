package ports

import (
	"context"

	"github.com/minicrm/crm-api/internal/core/domain"
)

type ConversionService interface {
	// Convert turns the lead identified by key (lead id or email) into a client.
	Convert(ctx context.Context, key string) (*domain.ConversionResult, error)
	// Resume re-drives a pending intent left behind by an interrupted conversion.
	Resume(ctx context.Context, intent *domain.ConversionIntent) (*domain.ConversionResult, error)
}
