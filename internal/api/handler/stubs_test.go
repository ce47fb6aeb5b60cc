package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/minicrm/crm-api/internal/api/middleware"
	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

var (
	adminIdentity = domain.Identity{ID: "64b7f0c2a1b2c3d4e5f60701", Name: "Ada", Role: domain.RoleAdmin}
	staffIdentity = domain.Identity{ID: "64b7f0c2a1b2c3d4e5f60702", Name: "Sam", Role: domain.RoleStaff}
)

// newContext builds an echo context the way the router would hand it to a
// handler: validator installed, identity set when the route sits behind Auth.
func newContext(method, target, body string, identity *domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if identity != nil {
		c.Set(middleware.IdentityKey, *identity)
	}
	return c, rec
}

func withParam(c echo.Context, name, value string) echo.Context {
	c.SetParamNames(name)
	c.SetParamValues(value)
	return c
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError with %d, got %v", code, err)
	}
	if he.Code != code {
		t.Fatalf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
}

type stubAuthService struct {
	registerFn func(ctx context.Context, actor domain.Identity, in ports.RegisterInput) (*ports.RegisterResult, error)
	loginFn    func(ctx context.Context, email, password string) (string, *domain.User, error)
	loggedOut  []domain.Identity
}

func (s *stubAuthService) Register(ctx context.Context, actor domain.Identity, in ports.RegisterInput) (*ports.RegisterResult, error) {
	return s.registerFn(ctx, actor, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Logout(_ context.Context, actor domain.Identity) error {
	s.loggedOut = append(s.loggedOut, actor)
	return nil
}

type stubLeadService struct {
	created   ports.CreateLeadInput
	filter    ports.LeadFilter
	patch     ports.LeadPatch
	deletedID string
	err       error
}

func (s *stubLeadService) Create(_ context.Context, in ports.CreateLeadInput) (*domain.Lead, error) {
	s.created = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Lead{ID: "l1", Name: in.Name, Email: in.Email, Status: domain.LeadStatusNew}, nil
}

func (s *stubLeadService) List(_ context.Context, filter ports.LeadFilter) ([]*domain.Lead, error) {
	s.filter = filter
	return []*domain.Lead{}, s.err
}

func (s *stubLeadService) Update(_ context.Context, id string, patch ports.LeadPatch) (*domain.Lead, error) {
	s.patch = patch
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Lead{ID: id}, nil
}

func (s *stubLeadService) Delete(_ context.Context, id string) error {
	s.deletedID = id
	return s.err
}

type stubClientService struct {
	patch     ports.ClientPatch
	deletedID string
	err       error
}

func (s *stubClientService) List(context.Context) ([]*domain.Client, error) {
	return []*domain.Client{{ID: "c1", Name: "Acme"}}, s.err
}

func (s *stubClientService) Update(_ context.Context, id string, patch ports.ClientPatch) (*domain.Client, error) {
	s.patch = patch
	return &domain.Client{ID: id}, s.err
}

func (s *stubClientService) Delete(_ context.Context, id string) error {
	s.deletedID = id
	return s.err
}

type stubConversionService struct {
	key    string
	result *domain.ConversionResult
	err    error
}

func (s *stubConversionService) Convert(_ context.Context, key string) (*domain.ConversionResult, error) {
	s.key = key
	return s.result, s.err
}

func (s *stubConversionService) Resume(context.Context, *domain.ConversionIntent) (*domain.ConversionResult, error) {
	return nil, nil
}

type stubStaffService struct {
	created   ports.CreateStaffInput
	patch     ports.UserPatch
	deletedID string
	err       error
}

func (s *stubStaffService) Create(_ context.Context, in ports.CreateStaffInput) (*domain.User, error) {
	s.created = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{ID: "s1", Name: in.Name, Email: in.Email, Role: domain.RoleStaff}, nil
}

func (s *stubStaffService) List(context.Context) ([]*domain.User, error) {
	return []*domain.User{}, s.err
}

func (s *stubStaffService) Update(_ context.Context, id string, patch ports.UserPatch) (*domain.User, error) {
	s.patch = patch
	return &domain.User{ID: id, Role: domain.RoleStaff}, s.err
}

func (s *stubStaffService) Delete(_ context.Context, id string) error {
	s.deletedID = id
	return s.err
}

type stubProjectService struct {
	actor   domain.Identity
	filter  ports.ProjectFilter
	created ports.CreateProjectInput
	patch   domain.ProjectPatch
	id      string
	err     error
}

func (s *stubProjectService) ListVisible(_ context.Context, actor domain.Identity, filter ports.ProjectFilter) ([]*domain.Project, error) {
	s.actor, s.filter = actor, filter
	return []*domain.Project{}, s.err
}

func (s *stubProjectService) Get(_ context.Context, actor domain.Identity, id string) (*domain.Project, error) {
	s.actor, s.id = actor, id
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Project{ID: id}, nil
}

func (s *stubProjectService) Create(_ context.Context, actor domain.Identity, in ports.CreateProjectInput) (*domain.Project, error) {
	s.actor, s.created = actor, in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Project{ID: "p1", Title: in.Title, ClientID: in.ClientID, Progress: domain.ProgressNotStarted}, nil
}

func (s *stubProjectService) Update(_ context.Context, actor domain.Identity, id string, patch domain.ProjectPatch) (*domain.Project, error) {
	s.actor, s.id, s.patch = actor, id, patch
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Project{ID: id}, nil
}

func (s *stubProjectService) Delete(_ context.Context, actor domain.Identity, id string) error {
	s.actor, s.id = actor, id
	return s.err
}
