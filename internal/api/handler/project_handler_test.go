package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/minicrm/crm-api/internal/core/domain"
)

func TestProjectHandler_List_PassesIdentityAndFilters(t *testing.T) {
	stub := &stubProjectService{}
	h := NewProjectHandler(stub)

	c, rec := newContext(http.MethodGet, "/api/projects?client=c1&progress=in+progress", "", &staffIdentity)
	if err := h.List(c); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Fatalf("expected empty array, got %d %q", rec.Code, rec.Body.String())
	}
	if stub.actor.ID != staffIdentity.ID {
		t.Fatalf("expected staff identity, got %+v", stub.actor)
	}
	if stub.filter.ClientID != "c1" || stub.filter.Progress != "in progress" || stub.filter.StaffID != "" {
		t.Fatalf("unexpected filter: %+v", stub.filter)
	}
}

func TestProjectHandler_Get_NotFound(t *testing.T) {
	h := NewProjectHandler(&stubProjectService{err: domain.ErrProjectNotFound})
	c, _ := newContext(http.MethodGet, "/api/projects/p9", "", &staffIdentity)
	if err := h.Get(withParam(c, "id", "p9")); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestProjectHandler_Create(t *testing.T) {
	stub := &stubProjectService{}
	h := NewProjectHandler(stub)

	c, rec := newContext(http.MethodPost, "/api/projects",
		`{"title":"Website","deadline":"2026-09-30","client":"c1","staff":["s1","s2"]}`, &adminIdentity)
	if err := h.Create(c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	want := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	if !stub.created.Deadline.Equal(want) || stub.created.ClientID != "c1" || len(stub.created.StaffIDs) != 2 {
		t.Fatalf("unexpected input: %+v", stub.created)
	}

	for _, body := range []string{
		`{"title":"Website","deadline":"2026-09-30"}`,
		`{"title":"Website","deadline":"next week","client":"c1"}`,
		`{"deadline":"2026-09-30","client":"c1"}`,
	} {
		c, _ := newContext(http.MethodPost, "/api/projects", body, &adminIdentity)
		expectHTTPError(t, h.Create(c), http.StatusBadRequest)
	}
}

func TestProjectHandler_Update_BuildsSparsePatch(t *testing.T) {
	stub := &stubProjectService{}
	h := NewProjectHandler(stub)

	c, _ := newContext(http.MethodPut, "/api/projects/p1",
		`{"progress":"completed","deadline":"2026-10-01T12:00:00+02:00"}`, &staffIdentity)
	if err := h.Update(withParam(c, "id", "p1")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if stub.id != "p1" {
		t.Fatalf("unexpected id %q", stub.id)
	}
	if stub.patch.Progress == nil || *stub.patch.Progress != domain.ProgressCompleted {
		t.Fatalf("expected progress in patch, got %+v", stub.patch)
	}
	if stub.patch.Deadline == nil || !stub.patch.Deadline.Equal(time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected deadline: %v", stub.patch.Deadline)
	}
	if stub.patch.Title != nil || stub.patch.ClientID != nil || stub.patch.StaffIDs != nil {
		t.Fatalf("absent fields must stay nil: %+v", stub.patch)
	}
}

func TestProjectHandler_Update_EmptyStaffListIsExplicit(t *testing.T) {
	stub := &stubProjectService{}
	h := NewProjectHandler(stub)

	c, _ := newContext(http.MethodPut, "/api/projects/p1", `{"staff":[]}`, &adminIdentity)
	if err := h.Update(withParam(c, "id", "p1")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if stub.patch.StaffIDs == nil || len(*stub.patch.StaffIDs) != 0 {
		t.Fatalf("expected an explicit empty staff list, got %+v", stub.patch.StaffIDs)
	}
}

func TestProjectHandler_Update_Forbidden(t *testing.T) {
	h := NewProjectHandler(&stubProjectService{err: domain.ErrForbidden})
	c, _ := newContext(http.MethodPut, "/api/projects/p1", `{"progress":"completed"}`, &staffIdentity)
	if err := h.Update(withParam(c, "id", "p1")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestProjectHandler_Delete(t *testing.T) {
	stub := &stubProjectService{}
	h := NewProjectHandler(stub)

	c, rec := newContext(http.MethodDelete, "/api/projects/p1", "", &adminIdentity)
	if err := h.Delete(withParam(c, "id", "p1")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if rec.Code != http.StatusNoContent || stub.actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected delete: %d %+v", rec.Code, stub.actor)
	}
}

func TestProjectHandler_RequiresIdentity(t *testing.T) {
	h := NewProjectHandler(&stubProjectService{})
	c, _ := newContext(http.MethodGet, "/api/projects", "", nil)
	expectHTTPError(t, h.List(c), http.StatusUnauthorized)
}
