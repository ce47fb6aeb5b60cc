package queue

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/minicrm/crm-api/internal/api/metrics"
	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

const defaultSweepBatch = 50

// RecoverySweeper periodically re-drives conversion intents left pending by an
// interrupted or partially failed conversion.
type RecoverySweeper struct {
	intents     ports.ConversionRepository
	conversions ports.ConversionService
	interval    time.Duration
	after       time.Duration
	batch       int
	log         zerolog.Logger
	now         func() time.Time
}

// NewRecoverySweeper builds a sweeper that runs every interval and only picks
// up intents untouched for at least after.
func NewRecoverySweeper(intents ports.ConversionRepository, conversions ports.ConversionService, interval, after time.Duration, log zerolog.Logger) *RecoverySweeper {
	return &RecoverySweeper{
		intents:     intents,
		conversions: conversions,
		interval:    interval,
		after:       after,
		batch:       defaultSweepBatch,
		log:         log,
		now:         time.Now,
	}
}

// Run sweeps until ctx is cancelled. A non-positive interval disables it.
func (s *RecoverySweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info().Msg("conversion recovery sweep disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error().Err(err).Msg("conversion recovery sweep failed")
			}
		}
	}
}

// SweepOnce resumes one batch of stale pending intents and returns how many
// reached the completed state.
func (s *RecoverySweeper) SweepOnce(ctx context.Context) (int, error) {
	pending, err := s.intents.ListPending(ctx, s.now().Add(-s.after), s.batch)
	if err != nil {
		return 0, err
	}
	metrics.ConversionPendingIntents.Set(float64(len(pending)))

	completed := 0
	for _, intent := range pending {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		if _, err := s.conversions.Resume(ctx, intent); err != nil {
			if errors.Is(err, domain.ErrConversionInProgress) {
				continue
			}
			s.log.Warn().Err(err).Str("intent_id", intent.ID).Str("lead_id", intent.LeadID).Msg("failed to resume conversion")
			continue
		}
		if intent.State == domain.IntentCompleted {
			completed++
		}
	}

	if len(pending) > 0 {
		s.log.Info().Int("pending", len(pending)).Int("completed", completed).Msg("conversion recovery sweep finished")
	}
	return completed, nil
}
