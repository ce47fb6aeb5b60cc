package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

type projectFixture struct {
	users    *stubUserRepo
	clients  *stubClientRepo
	projects *stubProjectRepo
	svc      *ProjectService

	admin   domain.Identity
	staffA  domain.Identity
	staffB  domain.Identity
	clientA domain.Identity
	clientB domain.Identity

	p1 *domain.Project // clientA, staffA
	p2 *domain.Project // clientA, staffB
	p3 *domain.Project // clientB, staffA+staffB
}

func newProjectFixture() *projectFixture {
	seq := &idSeq{}
	f := &projectFixture{
		users:    newStubUserRepo(seq),
		clients:  newStubClientRepo(seq),
		projects: newStubProjectRepo(seq),
	}
	f.svc = NewProjectService(f.projects, f.users, f.clients, zerolog.Nop())

	identity := func(u *domain.User) domain.Identity { return domain.Identity{ID: u.ID, Role: u.Role} }
	f.admin = identity(f.users.put(&domain.User{Email: "admin@example.com", Role: domain.RoleAdmin}))
	f.staffA = identity(f.users.put(&domain.User{Email: "sa@example.com", Role: domain.RoleStaff}))
	f.staffB = identity(f.users.put(&domain.User{Email: "sb@example.com", Role: domain.RoleStaff}))
	f.clientA = identity(f.users.put(&domain.User{Email: "ca@example.com", Role: domain.RoleClient}))
	f.clientB = identity(f.users.put(&domain.User{Email: "cb@example.com", Role: domain.RoleClient}))

	f.p1 = f.projects.put(&domain.Project{Title: "Website", Progress: domain.ProgressNotStarted, ClientID: f.clientA.ID, StaffIDs: []string{f.staffA.ID}})
	f.p2 = f.projects.put(&domain.Project{Title: "App", Progress: domain.ProgressInProgress, ClientID: f.clientA.ID, StaffIDs: []string{f.staffB.ID}})
	f.p3 = f.projects.put(&domain.Project{Title: "Audit", Progress: domain.ProgressCompleted, ClientID: f.clientB.ID, StaffIDs: []string{f.staffA.ID, f.staffB.ID}})
	return f
}

func projectIDs(projects []*domain.Project) []string {
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	slices.Sort(ids)
	return ids
}

func sortedIDs(ids ...string) []string {
	slices.Sort(ids)
	return ids
}

func TestProjectService_ListVisible(t *testing.T) {
	f := newProjectFixture()

	cases := []struct {
		name  string
		actor domain.Identity
		want  []string
	}{
		{"admin sees all", f.admin, sortedIDs(f.p1.ID, f.p2.ID, f.p3.ID)},
		{"staff sees assigned", f.staffA, sortedIDs(f.p1.ID, f.p3.ID)},
		{"client sees own", f.clientA, sortedIDs(f.p1.ID, f.p2.ID)},
		{"lead sees nothing", domain.Identity{ID: "lead-1", Role: domain.RoleLead}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.ListVisible(context.Background(), tc.actor, ports.ProjectFilter{})
			if err != nil {
				t.Fatalf("ListVisible returned error: %v", err)
			}
			if got == nil {
				t.Fatalf("expected empty slice, got nil")
			}
			if ids := projectIDs(got); !slices.Equal(ids, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, ids)
			}
		})
	}
}

func TestProjectService_ListVisible_ClientWithoutProjects(t *testing.T) {
	f := newProjectFixture()
	lonely := f.users.put(&domain.User{Email: "lonely@example.com", Role: domain.RoleClient})

	got, err := f.svc.ListVisible(context.Background(), domain.Identity{ID: lonely.ID, Role: domain.RoleClient}, ports.ProjectFilter{})
	if err != nil {
		t.Fatalf("ListVisible returned error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestProjectService_ListVisible_FiltersIntersectScope(t *testing.T) {
	f := newProjectFixture()

	// A client asking for another client's projects gets nothing.
	got, _ := f.svc.ListVisible(context.Background(), f.clientA, ports.ProjectFilter{ClientID: f.clientB.ID})
	if len(got) != 0 {
		t.Fatalf("expected no projects, got %v", projectIDs(got))
	}

	// Staff filtering by progress stays within their assignments.
	got, _ = f.svc.ListVisible(context.Background(), f.staffA, ports.ProjectFilter{Progress: string(domain.ProgressCompleted)})
	if ids := projectIDs(got); !slices.Equal(ids, []string{f.p3.ID}) {
		t.Fatalf("expected [%s], got %v", f.p3.ID, ids)
	}
	if f.projects.lastFilter.StaffID != f.staffA.ID {
		t.Fatalf("expected staff scope pushed to repository, got %+v", f.projects.lastFilter)
	}

	if _, err := f.svc.ListVisible(context.Background(), f.admin, ports.ProjectFilter{Progress: "paused"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown progress, got %v", err)
	}
}

func TestProjectService_Get_HidesInvisible(t *testing.T) {
	f := newProjectFixture()

	if _, err := f.svc.Get(context.Background(), f.clientB, f.p1.ID); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound for foreign project, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.staffB, f.p1.ID); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound for unassigned staff, got %v", err)
	}
	if p, err := f.svc.Get(context.Background(), f.clientA, f.p1.ID); err != nil || p.ID != f.p1.ID {
		t.Fatalf("expected owner to see project, got %v / %v", p, err)
	}
}

func TestProjectService_Update_StaffOnlyChangesProgress(t *testing.T) {
	f := newProjectFixture()
	title := "Hijacked"
	progress := domain.ProgressInProgress

	got, err := f.svc.Update(context.Background(), f.staffA, f.p1.ID, domain.ProjectPatch{Title: &title, Progress: &progress})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Progress != domain.ProgressInProgress {
		t.Fatalf("expected progress updated, got %s", got.Progress)
	}
	if got.Title != "Website" {
		t.Fatalf("expected title unchanged, got %q", got.Title)
	}

	stored, _ := f.projects.FindByID(context.Background(), f.p1.ID)
	if stored.Title != "Website" || stored.Progress != domain.ProgressInProgress {
		t.Fatalf("unexpected stored project: %+v", stored)
	}
}

func TestProjectService_Update_StaffNonProgressOnlyIsNoop(t *testing.T) {
	f := newProjectFixture()
	title := "Renamed"

	got, err := f.svc.Update(context.Background(), f.staffA, f.p1.ID, domain.ProjectPatch{Title: &title})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Title != "Website" {
		t.Fatalf("expected title unchanged, got %q", got.Title)
	}
	if f.projects.saves != 0 {
		t.Fatalf("expected no write, got %d saves", f.projects.saves)
	}
}

func TestProjectService_Update_Forbidden(t *testing.T) {
	f := newProjectFixture()
	progress := domain.ProgressCompleted
	patch := domain.ProjectPatch{Progress: &progress}

	if _, err := f.svc.Update(context.Background(), f.staffB, f.p1.ID, patch); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unassigned staff, got %v", err)
	}
	if _, err := f.svc.Update(context.Background(), f.clientA, f.p1.ID, patch); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for client, got %v", err)
	}

	stored, _ := f.projects.FindByID(context.Background(), f.p1.ID)
	if stored.Progress != domain.ProgressNotStarted {
		t.Fatalf("expected progress unchanged, got %s", stored.Progress)
	}
}

func TestProjectService_Update_InvalidProgress(t *testing.T) {
	f := newProjectFixture()
	bad := domain.Progress("paused")

	if _, err := f.svc.Update(context.Background(), f.staffA, f.p1.ID, domain.ProjectPatch{Progress: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestProjectService_Update_AdminReassigns(t *testing.T) {
	f := newProjectFixture()
	title := "Website v2"
	staff := []string{f.staffB.ID, f.staffB.ID}

	got, err := f.svc.Update(context.Background(), f.admin, f.p1.ID, domain.ProjectPatch{Title: &title, StaffIDs: &staff})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Title != "Website v2" || !slices.Equal(got.StaffIDs, []string{f.staffB.ID}) {
		t.Fatalf("unexpected project: %+v", got)
	}

	bogus := []string{f.clientB.ID}
	if _, err := f.svc.Update(context.Background(), f.admin, f.p1.ID, domain.ProjectPatch{StaffIDs: &bogus}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for non-staff assignee, got %v", err)
	}
}

func TestProjectService_Update_ReassignMovesClientRecord(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	recA, _ := f.clients.Create(ctx, &domain.Client{Name: "A", Email: "ca@example.com", UserID: f.clientA.ID,
		Projects: []string{f.p1.ID, f.p2.ID}, AssignedStaff: []string{f.staffA.ID, f.staffB.ID}})
	recB, _ := f.clients.Create(ctx, &domain.Client{Name: "B", Email: "cb@example.com", UserID: f.clientB.ID,
		Projects: []string{f.p3.ID}, AssignedStaff: []string{f.staffA.ID, f.staffB.ID}})

	newOwner := f.clientB.ID
	if _, err := f.svc.Update(ctx, f.admin, f.p1.ID, domain.ProjectPatch{ClientID: &newOwner}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	a, _ := f.clients.FindByID(ctx, recA.ID)
	if !slices.Equal(a.Projects, []string{f.p2.ID}) {
		t.Fatalf("expected previous owner to keep only %s, got %v", f.p2.ID, a.Projects)
	}
	if !slices.Equal(a.AssignedStaff, []string{f.staffB.ID}) {
		t.Fatalf("expected previous owner's staff recomputed, got %v", a.AssignedStaff)
	}
	b, _ := f.clients.FindByID(ctx, recB.ID)
	if !slices.Equal(sortedIDs(b.Projects...), sortedIDs(f.p1.ID, f.p3.ID)) {
		t.Fatalf("expected new owner to hold both projects, got %v", b.Projects)
	}
}

func TestProjectService_Update_NotFound(t *testing.T) {
	f := newProjectFixture()
	progress := domain.ProgressCompleted
	if _, err := f.svc.Update(context.Background(), f.admin, "missing", domain.ProjectPatch{Progress: &progress}); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestProjectService_Create(t *testing.T) {
	f := newProjectFixture()
	_, _ = f.clients.Create(context.Background(), &domain.Client{Name: "A Corp", UserID: f.clientA.ID})

	p, err := f.svc.Create(context.Background(), f.admin, ports.CreateProjectInput{
		Title:    " Migration ",
		Deadline: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		ClientID: f.clientA.ID,
		StaffIDs: []string{f.staffA.ID},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if p.Title != "Migration" || p.Progress != domain.ProgressNotStarted {
		t.Fatalf("unexpected project: %+v", p)
	}

	clients, _ := f.clients.List(context.Background())
	if len(clients) != 1 || !slices.Contains(clients[0].Projects, p.ID) || !slices.Contains(clients[0].AssignedStaff, f.staffA.ID) {
		t.Fatalf("expected project attached to client record, got %+v", clients)
	}
}

func TestProjectService_Create_Validation(t *testing.T) {
	f := newProjectFixture()

	cases := []ports.CreateProjectInput{
		{Title: "", ClientID: f.clientA.ID},
		{Title: "No client"},
		{Title: "Staff as client", ClientID: f.staffA.ID},
		{Title: "Client as staff", ClientID: f.clientA.ID, StaffIDs: []string{f.clientB.ID}},
	}
	for _, in := range cases {
		if _, err := f.svc.Create(context.Background(), f.admin, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Create(%+v): expected ErrValidation, got %v", in, err)
		}
	}
}

func TestProjectService_AdminOnlyMutations(t *testing.T) {
	f := newProjectFixture()

	for _, actor := range []domain.Identity{f.staffA, f.clientA, {ID: "l", Role: domain.RoleLead}} {
		if _, err := f.svc.Create(context.Background(), actor, ports.CreateProjectInput{Title: "x", ClientID: f.clientA.ID}); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("Create as %s: expected ErrForbidden, got %v", actor.Role, err)
		}
		if err := f.svc.Delete(context.Background(), actor, f.p1.ID); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("Delete as %s: expected ErrForbidden, got %v", actor.Role, err)
		}
	}

	_, _ = f.clients.Create(context.Background(), &domain.Client{Name: "A", Email: "ca@example.com", UserID: f.clientA.ID,
		Projects: []string{f.p1.ID, f.p2.ID}})
	if err := f.svc.Delete(context.Background(), f.admin, f.p1.ID); err != nil {
		t.Fatalf("admin Delete returned error: %v", err)
	}
	if _, err := f.projects.FindByID(context.Background(), f.p1.ID); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected project removed")
	}
	if rec, _ := f.clients.FindByEmail(context.Background(), "ca@example.com"); slices.Contains(rec.Projects, f.p1.ID) {
		t.Fatalf("expected project detached from client record, got %v", rec.Projects)
	}
}

func TestCanMutate(t *testing.T) {
	project := &domain.Project{ClientID: "c1", StaffIDs: []string{"s1"}}

	cases := []struct {
		name   string
		actor  domain.Identity
		fields []string
		want   bool
	}{
		{"admin any field", domain.Identity{ID: "a", Role: domain.RoleAdmin}, []string{domain.FieldTitle}, true},
		{"assigned staff progress", domain.Identity{ID: "s1", Role: domain.RoleStaff}, []string{domain.FieldProgress}, true},
		{"assigned staff title", domain.Identity{ID: "s1", Role: domain.RoleStaff}, []string{domain.FieldTitle}, false},
		{"unassigned staff", domain.Identity{ID: "s2", Role: domain.RoleStaff}, []string{domain.FieldProgress}, false},
		{"owning client", domain.Identity{ID: "c1", Role: domain.RoleClient}, []string{domain.FieldProgress}, false},
		{"lead", domain.Identity{ID: "l", Role: domain.RoleLead}, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanMutate(tc.actor, project, tc.fields); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
