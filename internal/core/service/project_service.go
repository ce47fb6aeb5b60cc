package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/minicrm/crm-api/internal/api/metrics"
	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

// ProjectService resolves which projects a caller may see and change.
type ProjectService struct {
	projects ports.ProjectRepository
	users    ports.UserRepository
	clients  ports.ClientRepository
	log      zerolog.Logger
}

func NewProjectService(projects ports.ProjectRepository, users ports.UserRepository, clients ports.ClientRepository, log zerolog.Logger) *ProjectService {
	return &ProjectService{projects: projects, users: users, clients: clients, log: log}
}

// scopedFilter layers the caller's visibility on top of filter. ok=false means
// the caller sees nothing, either by role or because the requested filter
// contradicts the caller's scope.
func scopedFilter(actor domain.Identity, filter ports.ProjectFilter) (ports.ProjectFilter, bool) {
	switch domain.ScopeFor(actor.Role, domain.ActionReadProjects) {
	case domain.ScopeAll:
		return filter, true
	case domain.ScopeAssigned:
		if filter.StaffID != "" && filter.StaffID != actor.ID {
			return filter, false
		}
		filter.StaffID = actor.ID
		return filter, true
	case domain.ScopeOwn:
		if filter.ClientID != "" && filter.ClientID != actor.ID {
			return filter, false
		}
		filter.ClientID = actor.ID
		return filter, true
	default:
		return filter, false
	}
}

// ListVisible returns all projects for admins, assigned ones for staff and
// owned ones for clients. Any other role gets an empty list.
func (s *ProjectService) ListVisible(ctx context.Context, actor domain.Identity, filter ports.ProjectFilter) ([]*domain.Project, error) {
	if filter.Progress != "" && !domain.Progress(filter.Progress).Valid() {
		return nil, domain.NewValidationError("progress must be one of: not started, in progress, completed")
	}

	scoped, ok := scopedFilter(actor, filter)
	if !ok {
		return []*domain.Project{}, nil
	}

	projects, err := s.projects.List(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	return projects, nil
}

// CanView reports whether actor may read project.
func CanView(actor domain.Identity, project *domain.Project) bool {
	switch domain.ScopeFor(actor.Role, domain.ActionReadProjects) {
	case domain.ScopeAll:
		return true
	case domain.ScopeAssigned:
		return project.HasStaff(actor.ID)
	case domain.ScopeOwn:
		return actor.ID != "" && project.ClientID == actor.ID
	default:
		return false
	}
}

// CanMutate reports whether actor may change the named fields of project.
// Staff reach only progress, and only on projects they are assigned to.
func CanMutate(actor domain.Identity, project *domain.Project, fields []string) bool {
	if domain.Can(actor.Role, domain.ActionUpdateProject) {
		return true
	}
	if domain.ScopeFor(actor.Role, domain.ActionUpdateProjectProgress) != domain.ScopeAssigned {
		return false
	}
	if !project.HasStaff(actor.ID) {
		return false
	}
	for _, f := range fields {
		if f != domain.FieldProgress {
			return false
		}
	}
	return true
}

// Get returns a single project. Projects outside the caller's scope are
// reported as not found.
func (s *ProjectService) Get(ctx context.Context, actor domain.Identity, id string) (*domain.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, project) {
		return nil, domain.ErrProjectNotFound
	}
	return project, nil
}

func (s *ProjectService) Create(ctx context.Context, actor domain.Identity, in ports.CreateProjectInput) (*domain.Project, error) {
	if !domain.Can(actor.Role, domain.ActionCreateProject) {
		return nil, domain.ErrForbidden
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.NewValidationError("title is required")
	}
	staffIDs := dedupe(in.StaffIDs)
	if err := s.validateRefs(ctx, in.ClientID, staffIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project, err := s.projects.Create(ctx, &domain.Project{
		Title:       title,
		Description: in.Description,
		Deadline:    in.Deadline,
		Progress:    domain.ProgressNotStarted,
		ClientID:    in.ClientID,
		StaffIDs:    staffIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.syncClient(ctx, project.ClientID)
	s.log.Info().Str("project_id", project.ID).Str("client", project.ClientID).Int("staff", len(project.StaffIDs)).Msg("project created")
	return project, nil
}

// Update merges patch into the project. Staff patches are reduced to the
// progress field; other fields in a staff patch are dropped without error.
func (s *ProjectService) Update(ctx context.Context, actor domain.Identity, id string, patch domain.ProjectPatch) (*domain.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	requested := patch.Fields()
	effective := patch
	if !domain.Can(actor.Role, domain.ActionUpdateProject) {
		effective = patch.OnlyProgress()
	}

	if !CanMutate(actor, project, effective.Fields()) {
		metrics.ProjectUpdatesTotal.WithLabelValues(string(actor.Role), "forbidden").Inc()
		return nil, domain.ErrForbidden
	}

	if effective.Title != nil && strings.TrimSpace(*effective.Title) == "" {
		return nil, domain.NewValidationError("title cannot be empty")
	}
	if effective.Progress != nil && !effective.Progress.Valid() {
		return nil, domain.NewValidationError("progress must be one of: not started, in progress, completed")
	}
	if effective.ClientID != nil || effective.StaffIDs != nil {
		clientID := project.ClientID
		if effective.ClientID != nil {
			clientID = *effective.ClientID
		}
		staffIDs := project.StaffIDs
		if effective.StaffIDs != nil {
			deduped := dedupe(*effective.StaffIDs)
			effective.StaffIDs = &deduped
			staffIDs = deduped
		}
		if err := s.validateRefs(ctx, clientID, staffIDs); err != nil {
			return nil, err
		}
	}

	result := "applied"
	if len(effective.Fields()) < len(requested) {
		result = "dropped_fields"
		s.log.Debug().Str("project_id", id).Str("user_id", actor.ID).Strs("requested", requested).Msg("non-progress fields dropped from staff update")
	}
	if len(effective.Fields()) == 0 {
		metrics.ProjectUpdatesTotal.WithLabelValues(string(actor.Role), result).Inc()
		return project, nil
	}

	previousClient := project.ClientID
	effective.Apply(project)
	project.UpdatedAt = time.Now().UTC()

	saved, err := s.projects.Save(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if effective.ClientID != nil || effective.StaffIDs != nil {
		s.syncClient(ctx, saved.ClientID)
		if previousClient != saved.ClientID {
			s.syncClient(ctx, previousClient)
		}
	}

	metrics.ProjectUpdatesTotal.WithLabelValues(string(actor.Role), result).Inc()
	return saved, nil
}

func (s *ProjectService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if !domain.Can(actor.Role, domain.ActionDeleteProject) {
		return domain.ErrForbidden
	}
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.syncClient(ctx, project.ClientID)
	s.log.Info().Str("project_id", id).Str("by", actor.ID).Msg("project deleted")
	return nil
}

// validateRefs checks that clientID names a client user and every staff id
// names a staff user.
func (s *ProjectService) validateRefs(ctx context.Context, clientID string, staffIDs []string) error {
	if clientID == "" {
		return domain.NewValidationError("client is required")
	}
	clients, err := s.users.FindByIDs(ctx, []string{clientID}, domain.RoleClient)
	if err != nil {
		return fmt.Errorf("validate client: %w", err)
	}
	if len(clients) != 1 {
		return domain.NewValidationError("invalid client selected")
	}

	if len(staffIDs) == 0 {
		return nil
	}
	staff, err := s.users.FindByIDs(ctx, staffIDs, domain.RoleStaff)
	if err != nil {
		return fmt.Errorf("validate staff: %w", err)
	}
	if len(staff) != len(staffIDs) {
		return domain.NewValidationError("invalid staff selected")
	}
	return nil
}

func (s *ProjectService) syncClient(ctx context.Context, clientUserID string) {
	if err := syncClientAssignments(ctx, s.projects, s.clients, clientUserID); err != nil {
		s.log.Warn().Err(err).Str("client", clientUserID).Msg("failed to sync client assignments")
	}
}

// syncClientAssignments rebuilds the client record's projects and assigned
// staff from the projects it currently owns. Clients created directly as
// users have no record, which is not an error.
func syncClientAssignments(ctx context.Context, projects ports.ProjectRepository, clients ports.ClientRepository, clientUserID string) error {
	if clientUserID == "" {
		return nil
	}
	owned, err := projects.List(ctx, ports.ProjectFilter{ClientID: clientUserID})
	if err != nil {
		return fmt.Errorf("list projects of %s: %w", clientUserID, err)
	}
	projectIDs := make([]string, 0, len(owned))
	var staffIDs []string
	for _, p := range owned {
		projectIDs = append(projectIDs, p.ID)
		staffIDs = append(staffIDs, p.StaffIDs...)
	}
	err = clients.SetAssignments(ctx, clientUserID, projectIDs, dedupe(staffIDs))
	if errors.Is(err, domain.ErrClientNotFound) {
		return nil
	}
	return err
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
