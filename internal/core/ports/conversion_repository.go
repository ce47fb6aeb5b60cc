package ports

import (
	"context"
	"time"

	"github.com/minicrm/crm-api/internal/core/domain"
)

// ConversionRepository is the write-ahead log for lead conversions.
type ConversionRepository interface {
	// CreateIntent fails with ErrConversionInProgress when an intent for the
	// same lead already exists.
	CreateIntent(ctx context.Context, intent *domain.ConversionIntent) (*domain.ConversionIntent, error)
	SaveIntent(ctx context.Context, intent *domain.ConversionIntent) error
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.ConversionIntent, error)
}
