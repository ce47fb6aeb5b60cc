package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/minicrm/crm-api/internal/api/metrics"
	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

// ConversionService moves a lead into the client registry and flips the
// matching user's role. The three collections are not covered by one
// transaction; an intent record written before the first side effect lets the
// recovery sweep finish any conversion that was interrupted.
type ConversionService struct {
	leads   ports.LeadRepository
	clients ports.ClientRepository
	users   ports.UserRepository
	intents ports.ConversionRepository
	locker  ports.Locker
	events  ports.EventPublisher
	newID   func() string
	log     zerolog.Logger
}

// NewConversionService wires the workflow. newID allocates client ids up
// front; locker and events may be nil.
func NewConversionService(
	leads ports.LeadRepository,
	clients ports.ClientRepository,
	users ports.UserRepository,
	intents ports.ConversionRepository,
	locker ports.Locker,
	events ports.EventPublisher,
	newID func() string,
	log zerolog.Logger,
) *ConversionService {
	return &ConversionService{
		leads:   leads,
		clients: clients,
		users:   users,
		intents: intents,
		locker:  locker,
		events:  events,
		newID:   newID,
		log:     log,
	}
}

// Convert resolves key to a lead (by id when key is an object id, otherwise by
// normalized email) and converts it. Once the client exists the call succeeds;
// role and cleanup failures are reported in the result's warnings.
func (s *ConversionService) Convert(ctx context.Context, key string) (*domain.ConversionResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.NewValidationError("lead id or email is required")
	}

	lead, err := s.findLead(ctx, key)
	if err != nil {
		return nil, s.fail(err)
	}

	unlock, err := s.lock(ctx, lead.ID)
	if err != nil {
		return nil, s.fail(err)
	}
	defer unlock()

	// Another conversion may have finished while we waited on the lookup.
	if lead, err = s.leads.FindByID(ctx, lead.ID); err != nil {
		return nil, s.fail(err)
	}

	// A lead captured for an address that is already a client would otherwise
	// produce a second client with the same email.
	if existing, err := s.clients.FindByEmail(ctx, domain.NormalizeEmail(lead.Email)); err == nil {
		return nil, s.fail(fmt.Errorf("convert lead %s: client %s holds %s: %w", lead.ID, existing.ID, existing.Email, domain.ErrClientExists))
	} else if !errors.Is(err, domain.ErrClientNotFound) {
		return nil, s.fail(fmt.Errorf("convert: lookup client: %w", err))
	}

	userID := lead.UserID
	if userID == "" {
		if u, err := s.users.FindByEmail(ctx, lead.Email); err == nil {
			userID = u.ID
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, s.fail(fmt.Errorf("convert: lookup user: %w", err))
		}
	}

	now := time.Now().UTC()
	intent, err := s.intents.CreateIntent(ctx, &domain.ConversionIntent{
		LeadID:    lead.ID,
		ClientID:  s.newID(),
		UserID:    userID,
		Email:     domain.NormalizeEmail(lead.Email),
		Name:      lead.Name,
		Contact:   lead.Contact,
		State:     domain.IntentPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, s.fail(fmt.Errorf("convert: record intent: %w", err))
	}

	result, err := s.apply(ctx, intent)
	if err != nil {
		return nil, s.fail(err)
	}

	outcome := "converted"
	if len(result.Warnings) > 0 {
		outcome = "converted_with_warnings"
	}
	metrics.ConversionsTotal.WithLabelValues(outcome).Inc()
	s.log.Info().
		Str("lead_id", intent.LeadID).
		Str("client_id", result.Client.ID).
		Bool("user_updated", result.UserUpdated).
		Bool("lead_deleted", result.LeadDeleted).
		Int("warnings", len(result.Warnings)).
		Msg("lead converted")

	s.publish(ctx, intent, result)
	return result, nil
}

// Resume re-drives every step of a pending intent. Each step is idempotent so
// replaying a partially applied intent converges on the same state.
func (s *ConversionService) Resume(ctx context.Context, intent *domain.ConversionIntent) (*domain.ConversionResult, error) {
	unlock, err := s.lock(ctx, intent.LeadID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result, err := s.apply(ctx, intent)
	if err != nil {
		return nil, err
	}
	metrics.ConversionsTotal.WithLabelValues("resumed").Inc()
	s.log.Info().
		Str("intent_id", intent.ID).
		Str("lead_id", intent.LeadID).
		Str("state", string(intent.State)).
		Int("attempts", intent.Attempts).
		Msg("conversion intent resumed")

	if intent.State == domain.IntentCompleted {
		s.publish(ctx, intent, result)
	}
	return result, nil
}

func (s *ConversionService) apply(ctx context.Context, intent *domain.ConversionIntent) (*domain.ConversionResult, error) {
	intent.Attempts++
	now := time.Now().UTC()

	client, err := s.clients.Create(ctx, &domain.Client{
		ID:                intent.ClientID,
		Name:              intent.Name,
		Email:             intent.Email,
		Contact:           intent.Contact,
		UserID:            intent.UserID,
		Projects:          []string{},
		AssignedStaff:     []string{},
		ConvertedFromLead: intent.LeadID,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if errors.Is(err, domain.ErrClientExists) {
		client, err = s.clients.FindByID(ctx, intent.ClientID)
	}
	if err != nil {
		intent.LastError = err.Error()
		s.saveIntent(ctx, intent)
		return nil, fmt.Errorf("convert: create client: %w", err)
	}

	result := &domain.ConversionResult{Client: client}
	clean := true

	user, err := s.promoteUser(ctx, intent)
	switch {
	case err == nil:
		result.User = user
		result.UserUpdated = true
	case errors.Is(err, domain.ErrUserNotFound):
		metrics.ConversionWarningsTotal.WithLabelValues("user_missing").Inc()
		result.Warnings = append(result.Warnings, "no user account matches "+intent.Email+"; role left unchanged")
		s.log.Warn().Str("email", intent.Email).Msg("no user found to promote during conversion")
	default:
		clean = false
		metrics.ConversionWarningsTotal.WithLabelValues("user_update").Inc()
		result.Warnings = append(result.Warnings, "user role update failed: "+err.Error())
		s.log.Warn().Err(err).Str("email", intent.Email).Msg("failed to promote user during conversion")
	}

	err = s.leads.Delete(ctx, intent.LeadID)
	switch {
	case err == nil, errors.Is(err, domain.ErrLeadNotFound):
		result.LeadDeleted = true
	default:
		clean = false
		metrics.ConversionWarningsTotal.WithLabelValues("lead_delete").Inc()
		result.Warnings = append(result.Warnings, "lead cleanup failed: "+err.Error())
		s.log.Warn().Err(err).Str("lead_id", intent.LeadID).Msg("failed to delete lead during conversion")
	}

	if clean {
		intent.State = domain.IntentCompleted
		intent.LastError = ""
	} else {
		intent.LastError = strings.Join(result.Warnings, "; ")
	}
	s.saveIntent(ctx, intent)

	return result, nil
}

// promoteUser sets role=client on the credential record, by id when the intent
// knows it and by email otherwise.
func (s *ConversionService) promoteUser(ctx context.Context, intent *domain.ConversionIntent) (*domain.User, error) {
	if intent.UserID != "" {
		user, err := s.users.SetRoleByID(ctx, intent.UserID, domain.RoleClient)
		if !errors.Is(err, domain.ErrUserNotFound) {
			return user, err
		}
	}
	return s.users.SetRoleByEmail(ctx, intent.Email, domain.RoleClient)
}

func (s *ConversionService) findLead(ctx context.Context, key string) (*domain.Lead, error) {
	if isObjectIDHex(key) {
		return s.leads.FindByID(ctx, key)
	}
	return s.leads.FindByEmail(ctx, domain.NormalizeEmail(key))
}

func (s *ConversionService) lock(ctx context.Context, leadID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	key := "convert:lead:" + leadID
	token, ok, err := s.locker.TryLock(ctx, key)
	if err != nil {
		// The unique intent index still rejects a second conversion.
		s.log.Warn().Err(err).Str("lead_id", leadID).Msg("conversion lock unavailable, relying on intent index")
		return func() {}, nil
	}
	if !ok {
		return nil, domain.ErrConversionInProgress
	}
	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn().Err(err).Str("lead_id", leadID).Msg("failed to release conversion lock")
		}
	}, nil
}

func (s *ConversionService) saveIntent(ctx context.Context, intent *domain.ConversionIntent) {
	intent.UpdatedAt = time.Now().UTC()
	if err := s.intents.SaveIntent(ctx, intent); err != nil {
		s.log.Error().Err(err).Str("intent_id", intent.ID).Msg("failed to save conversion intent")
	}
}

func (s *ConversionService) fail(err error) error {
	switch {
	case errors.Is(err, domain.ErrLeadNotFound):
		metrics.ConversionsTotal.WithLabelValues("not_found").Inc()
	case errors.Is(err, domain.ErrConversionInProgress):
		metrics.ConversionsTotal.WithLabelValues("in_progress").Inc()
	case errors.Is(err, domain.ErrClientExists):
		metrics.ConversionsTotal.WithLabelValues("client_exists").Inc()
		s.log.Warn().Err(err).Msg("conversion refused")
	default:
		metrics.ConversionsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("conversion failed")
	}
	return err
}

func (s *ConversionService) publish(ctx context.Context, intent *domain.ConversionIntent, result *domain.ConversionResult) {
	if s.events == nil {
		return
	}
	event := domain.Event{
		Type:       domain.EventLeadConverted,
		OccurredAt: time.Now().UTC(),
		ClientID:   result.Client.ID,
		Email:      intent.Email,
		Name:       intent.Name,
		Role:       domain.RoleClient,
	}
	if result.User != nil {
		event.UserID = result.User.ID
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("lead_id", intent.LeadID).Msg("failed to publish conversion event")
	}
}

// isObjectIDHex reports whether s has the shape of a 12-byte hex object id.
func isObjectIDHex(s string) bool {
	if len(s) != 24 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
