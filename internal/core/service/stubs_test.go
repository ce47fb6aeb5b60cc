package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories shared by the service tests. All of them are
// safe for concurrent use so the conversion race tests can share them.
// ---------------------------------------------------------------------------

type idSeq struct {
	mu sync.Mutex
	n  int
}

// next returns a 24-char hex id shaped like a Mongo ObjectID.
func (s *idSeq) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%024x", s.n)
}

type stubUserRepo struct {
	mu    sync.Mutex
	seq   *idSeq
	users map[string]*domain.User

	setRoleErr error // if set, SetRoleByID/SetRoleByEmail return this error
}

func newStubUserRepo(seq *idSeq) *stubUserRepo {
	return &stubUserRepo{seq: seq, users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	copy := cloneUser(user)
	if copy.ID == "" {
		copy.ID = r.seq.next()
	}
	r.users[copy.ID] = cloneUser(copy)
	return copy, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByIDs(_ context.Context, ids []string, role domain.Role) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok && u.Role == role {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *stubUserRepo) List(_ context.Context, role domain.Role) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, id string, role domain.Role, patch ports.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Role != role {
		return nil, domain.ErrUserNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Contact != nil {
		u.Contact = *patch.Contact
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) SetRoleByID(_ context.Context, id string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setRoleErr != nil {
		return nil, r.setRoleErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Role = role
	return cloneUser(u), nil
}

func (r *stubUserRepo) SetRoleByEmail(_ context.Context, email string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setRoleErr != nil {
		return nil, r.setRoleErr
	}
	for _, u := range r.users {
		if u.Email == email {
			u.Role = role
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Delete(_ context.Context, id string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Role != role {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *stubUserRepo) put(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = r.seq.next()
	}
	r.users[u.ID] = cloneUser(u)
	return u
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type stubLeadRepo struct {
	mu    sync.Mutex
	seq   *idSeq
	leads map[string]*domain.Lead

	createErr error // if set, Create returns this error
	deleteErr error // if set, Delete returns this error
}

func newStubLeadRepo(seq *idSeq) *stubLeadRepo {
	return &stubLeadRepo{seq: seq, leads: make(map[string]*domain.Lead)}
}

func (r *stubLeadRepo) Create(_ context.Context, lead *domain.Lead) (*domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, l := range r.leads {
		if l.Email == lead.Email {
			return nil, domain.ErrLeadExists
		}
	}
	clone := *lead
	clone.ID = r.seq.next()
	stored := clone
	r.leads[clone.ID] = &stored
	return &clone, nil
}

func (r *stubLeadRepo) FindByID(_ context.Context, id string) (*domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, domain.ErrLeadNotFound
	}
	clone := *l
	return &clone, nil
}

func (r *stubLeadRepo) FindByEmail(_ context.Context, email string) (*domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.leads {
		if l.Email == email {
			clone := *l
			return &clone, nil
		}
	}
	return nil, domain.ErrLeadNotFound
}

func (r *stubLeadRepo) List(_ context.Context, f ports.LeadFilter) ([]*domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Lead
	for _, l := range r.leads {
		if f.Status != "" && string(l.Status) != f.Status {
			continue
		}
		clone := *l
		out = append(out, &clone)
	}
	return out, nil
}

func (r *stubLeadRepo) Update(_ context.Context, id string, patch ports.LeadPatch) (*domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, domain.ErrLeadNotFound
	}
	if patch.Name != nil {
		l.Name = *patch.Name
	}
	if patch.Contact != nil {
		l.Contact = *patch.Contact
	}
	if patch.Status != nil {
		l.Status = *patch.Status
	}
	if patch.UserID != nil {
		l.UserID = *patch.UserID
	}
	clone := *l
	return &clone, nil
}

func (r *stubLeadRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.leads[id]; !ok {
		return domain.ErrLeadNotFound
	}
	delete(r.leads, id)
	return nil
}

func (r *stubLeadRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leads)
}

type stubClientRepo struct {
	mu      sync.Mutex
	seq     *idSeq
	clients map[string]*domain.Client

	createCalls int
}

func newStubClientRepo(seq *idSeq) *stubClientRepo {
	return &stubClientRepo{seq: seq, clients: make(map[string]*domain.Client)}
}

func cloneClient(c *domain.Client) *domain.Client {
	clone := *c
	clone.Projects = slices.Clone(c.Projects)
	clone.AssignedStaff = slices.Clone(c.AssignedStaff)
	return &clone
}

func (r *stubClientRepo) Create(_ context.Context, client *domain.Client) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	copy := cloneClient(client)
	if copy.ID == "" {
		copy.ID = r.seq.next()
	}
	if _, exists := r.clients[copy.ID]; exists {
		return nil, domain.ErrClientExists
	}
	for _, c := range r.clients {
		if copy.Email != "" && c.Email == copy.Email {
			return nil, domain.ErrClientExists
		}
	}
	r.clients[copy.ID] = cloneClient(copy)
	return copy, nil
}

func (r *stubClientRepo) FindByID(_ context.Context, id string) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return cloneClient(c), nil
}

func (r *stubClientRepo) FindByEmail(_ context.Context, email string) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.Email == email {
			return cloneClient(c), nil
		}
	}
	return nil, domain.ErrClientNotFound
}

func (r *stubClientRepo) List(_ context.Context) ([]*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Client
	for _, c := range r.clients {
		out = append(out, cloneClient(c))
	}
	return out, nil
}

func (r *stubClientRepo) Update(_ context.Context, id string, patch ports.ClientPatch) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Contact != nil {
		c.Contact = *patch.Contact
	}
	return cloneClient(c), nil
}

func (r *stubClientRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; !ok {
		return domain.ErrClientNotFound
	}
	delete(r.clients, id)
	return nil
}

func (r *stubClientRepo) SetAssignments(_ context.Context, userID string, projectIDs, staffIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.UserID == userID {
			c.Projects = slices.Clone(projectIDs)
			c.AssignedStaff = slices.Clone(staffIDs)
			return nil
		}
	}
	return domain.ErrClientNotFound
}

func (r *stubClientRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

type stubProjectRepo struct {
	mu       sync.Mutex
	seq      *idSeq
	projects map[string]*domain.Project

	lastFilter ports.ProjectFilter
	saves      int
}

func newStubProjectRepo(seq *idSeq) *stubProjectRepo {
	return &stubProjectRepo{seq: seq, projects: make(map[string]*domain.Project)}
}

func cloneProject(p *domain.Project) *domain.Project {
	clone := *p
	clone.StaffIDs = slices.Clone(p.StaffIDs)
	return &clone
}

func (r *stubProjectRepo) Create(_ context.Context, p *domain.Project) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := cloneProject(p)
	copy.ID = r.seq.next()
	r.projects[copy.ID] = cloneProject(copy)
	return copy, nil
}

func (r *stubProjectRepo) FindByID(_ context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return cloneProject(p), nil
}

// List applies the same filters the real Mongo repo would use.
func (r *stubProjectRepo) List(_ context.Context, f ports.ProjectFilter) ([]*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	var out []*domain.Project
	for _, p := range r.projects {
		if f.ClientID != "" && p.ClientID != f.ClientID {
			continue
		}
		if f.StaffID != "" && !slices.Contains(p.StaffIDs, f.StaffID) {
			continue
		}
		if f.Progress != "" && string(p.Progress) != f.Progress {
			continue
		}
		out = append(out, cloneProject(p))
	}
	return out, nil
}

func (r *stubProjectRepo) Save(_ context.Context, p *domain.Project) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; !ok {
		return nil, domain.ErrProjectNotFound
	}
	r.saves++
	r.projects[p.ID] = cloneProject(p)
	return cloneProject(p), nil
}

func (r *stubProjectRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return domain.ErrProjectNotFound
	}
	delete(r.projects, id)
	return nil
}

func (r *stubProjectRepo) CountByClient(_ context.Context, clientUserID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.projects {
		if p.ClientID == clientUserID {
			n++
		}
	}
	return n, nil
}

func (r *stubProjectRepo) RemoveStaff(_ context.Context, staffID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.projects {
		if slices.Contains(p.StaffIDs, staffID) {
			p.StaffIDs = slices.DeleteFunc(p.StaffIDs, func(s string) bool { return s == staffID })
			n++
		}
	}
	return n, nil
}

func (r *stubProjectRepo) put(p *domain.Project) *domain.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = r.seq.next()
	}
	r.projects[p.ID] = cloneProject(p)
	return p
}

type stubIntentRepo struct {
	mu      sync.Mutex
	seq     *idSeq
	intents map[string]*domain.ConversionIntent // keyed by lead id
}

func newStubIntentRepo(seq *idSeq) *stubIntentRepo {
	return &stubIntentRepo{seq: seq, intents: make(map[string]*domain.ConversionIntent)}
}

func (r *stubIntentRepo) CreateIntent(_ context.Context, intent *domain.ConversionIntent) (*domain.ConversionIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.intents[intent.LeadID]; exists {
		return nil, domain.ErrConversionInProgress
	}
	clone := *intent
	clone.ID = r.seq.next()
	stored := clone
	r.intents[clone.LeadID] = &stored
	return &clone, nil
}

func (r *stubIntentRepo) SaveIntent(_ context.Context, intent *domain.ConversionIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *intent
	r.intents[intent.LeadID] = &clone
	return nil
}

func (r *stubIntentRepo) ListPending(_ context.Context, olderThan time.Time, limit int) ([]*domain.ConversionIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ConversionIntent
	for _, in := range r.intents {
		if in.State == domain.IntentPending && !in.UpdatedAt.After(olderThan) && len(out) < limit {
			clone := *in
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubIntentRepo) get(leadID string) *domain.ConversionIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.intents[leadID]
	if !ok {
		return nil
	}
	clone := *in
	return &clone
}

// stubLocker is a process-local Locker.
type stubLocker struct {
	mu   sync.Mutex
	held map[string]string
	err  error
}

func newStubLocker() *stubLocker {
	return &stubLocker{held: make(map[string]string)}
}

func (l *stubLocker) TryLock(_ context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	token := fmt.Sprintf("tok-%s", key)
	l.held[key] = token
	return token, true, nil
}

func (l *stubLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *stubPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *stubPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.EventType
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// stubRevocations expires entries like Redis does: a positive ttl lapses once
// clock passes the revoke time plus ttl, a zero ttl never lapses.
type stubRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	at      map[string]time.Time
	clock   func() time.Time
	err     error
}

func newStubRevocations() *stubRevocations {
	return &stubRevocations{
		revoked: make(map[string]time.Duration),
		at:      make(map[string]time.Time),
		clock:   time.Now,
	}
}

func (s *stubRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = ttl
	s.at[tokenID] = s.clock()
	return nil
}

func (s *stubRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	ttl, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if ttl > 0 && !s.clock().Before(s.at[tokenID].Add(ttl)) {
		return false, nil
	}
	return true, nil
}

// plainHasher keeps tests fast; bcrypt itself is covered by TestBcryptHasher.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (plainHasher) Compare(p, digest string) bool { return digest == "hashed:"+p }
