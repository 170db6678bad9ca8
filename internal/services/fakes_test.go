package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"visitorpass/internal/domain"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory domain.Store. Transactions are serialized and rolled back by
// restoring a snapshot taken when they began.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	seq  int

	users         map[string]*domain.User
	visitors      map[string]*domain.Visitor
	passes        map[string]*domain.Pass
	notifications map[string]*domain.Notification

	// failNotification makes the next notification insert fail once.
	failNotification error
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]*domain.User),
		visitors:      make(map[string]*domain.Visitor),
		passes:        make(map[string]*domain.Pass),
		notifications: make(map[string]*domain.Notification),
	}
}

func (s *memStore) nextID() string {
	s.seq++
	return strconv.Itoa(s.seq)
}

func (s *memStore) Users() domain.UserRepository                 { return memUsers{s} }
func (s *memStore) Visitors() domain.VisitorRepository           { return memVisitors{s} }
func (s *memStore) Passes() domain.PassRepository                { return memPasses{s} }
func (s *memStore) Notifications() domain.NotificationRepository { return memNotifications{s} }

type memSnapshot struct {
	users         map[string]*domain.User
	visitors      map[string]*domain.Visitor
	passes        map[string]*domain.Pass
	notifications map[string]*domain.Notification
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		users:         make(map[string]*domain.User, len(s.users)),
		visitors:      make(map[string]*domain.Visitor, len(s.visitors)),
		passes:        make(map[string]*domain.Pass, len(s.passes)),
		notifications: make(map[string]*domain.Notification, len(s.notifications)),
	}
	for k, v := range s.users {
		cp := *v
		snap.users[k] = &cp
	}
	for k, v := range s.visitors {
		cp := *v
		snap.visitors[k] = &cp
	}
	for k, v := range s.passes {
		cp := *v
		snap.passes[k] = &cp
	}
	for k, v := range s.notifications {
		cp := *v
		snap.notifications[k] = &cp
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.visitors = snap.visitors
	s.passes = snap.passes
	s.notifications = snap.notifications
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()
	return fn(ctx, s)
}

// seedUser stores a user with a fixed id.
func (s *memStore) seedUser(id, name, email string, role domain.Role) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{ID: id, Name: name, Email: email, Phone: "9876543210", Role: role}
	s.users[id] = u
	return u
}

func (s *memStore) visitor(id string) *domain.Visitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visitors[id]
	if !ok {
		return nil
	}
	cp := *v
	return &cp
}

func (s *memStore) pass(id string) *domain.Pass {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.passes[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (s *memStore) notificationsFor(recipientID string) []*domain.Notification {
	notes, _ := memNotifications{s}.ListByRecipient(context.Background(), recipientID, false)
	return notes
}

func (s *memStore) passCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.passes)
}

func idLess(a, b string) bool {
	ai, _ := strconv.Atoi(a)
	bi, _ := strconv.Atoi(b)
	return ai < bi
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("%w: users_email_key", domain.ErrConflict)
		}
	}
	u.ID = r.s.nextID()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memVisitors struct{ s *memStore }

func (r memVisitors) Create(_ context.Context, v *domain.Visitor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v.ID = r.s.nextID()
	cp := *v
	r.s.visitors[v.ID] = &cp
	return nil
}

func (r memVisitors) GetByID(_ context.Context, id string) (*domain.Visitor, error) {
	if v := r.s.visitor(id); v != nil {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (r memVisitors) GetByIDForUpdate(ctx context.Context, id string) (*domain.Visitor, error) {
	return r.GetByID(ctx, id)
}

func (r memVisitors) FindActiveByContact(_ context.Context, email, phone string) (*domain.Visitor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.visitors {
		if v.Status.IsActive() && (strings.EqualFold(v.Email, email) || v.Phone == phone) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memVisitors) UpdateStatus(_ context.Context, v *domain.Visitor, from domain.VisitorStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.visitors[v.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != from {
		return domain.ErrConflict
	}
	stored.Status = v.Status
	stored.EntryTime = v.EntryTime
	stored.ExitTime = v.ExitTime
	stored.UpdatedAt = v.UpdatedAt
	return nil
}

func (r memVisitors) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.visitors[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.visitors, id)
	for pid, p := range r.s.passes {
		if p.VisitorID == id {
			delete(r.s.passes, pid)
		}
	}
	return nil
}

func inRange(t *time.Time, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if t == nil {
		return false
	}
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

func visitorMatches(v *domain.Visitor, f domain.VisitorFilter) bool {
	if f.HostID != "" && v.HostID != f.HostID {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.CreatedByGuardID != "" && (v.CreatedByGuardID == nil || *v.CreatedByGuardID != f.CreatedByGuardID) {
		return false
	}
	created := v.CreatedAt
	return inRange(&created, f.CreatedFrom, f.CreatedBefore) &&
		(f.CreatedThrough == nil || !created.After(*f.CreatedThrough)) &&
		inRange(v.EntryTime, f.EntryFrom, f.EntryTo) &&
		inRange(v.ExitTime, f.ExitFrom, f.ExitTo)
}

func (r memVisitors) List(_ context.Context, f domain.VisitorFilter) ([]*domain.Visitor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Visitor, 0)
	for _, v := range r.s.visitors {
		if visitorMatches(v, f) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return idLess(out[j].ID, out[i].ID)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*domain.Visitor{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r memVisitors) CountByStatus(_ context.Context, f domain.VisitorFilter) (map[domain.VisitorStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[domain.VisitorStatus]int)
	for _, v := range r.s.visitors {
		if visitorMatches(v, f) {
			counts[v.Status]++
		}
	}
	return counts, nil
}

type memPasses struct{ s *memStore }

// joined fills the visitor-derived fields the SQL repository gets from its join. Caller holds mu.
func (r memPasses) joined(p *domain.Pass) *domain.Pass {
	cp := *p
	if v, ok := r.s.visitors[p.VisitorID]; ok {
		cp.HostID = v.HostID
		cp.VisitorName = v.Name
	}
	return &cp
}

func (r memPasses) Create(_ context.Context, p *domain.Pass) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.visitors[p.VisitorID]; !ok {
		return domain.NewValidationError("visitor_id", "visitor does not exist")
	}
	for _, existing := range r.s.passes {
		if existing.Token == p.Token {
			return fmt.Errorf("%w: passes_qr_code_data_key", domain.ErrConflict)
		}
	}
	p.ID = r.s.nextID()
	cp := *p
	r.s.passes[p.ID] = &cp
	return nil
}

func (r memPasses) GetByID(_ context.Context, id string) (*domain.Pass, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.passes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.joined(p), nil
}

func (r memPasses) GetByIDForUpdate(ctx context.Context, id string) (*domain.Pass, error) {
	return r.GetByID(ctx, id)
}

func (r memPasses) GetByToken(_ context.Context, token string) (*domain.Pass, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.passes {
		if p.Token == token {
			return r.joined(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memPasses) FindOutstanding(_ context.Context, visitorID string, now time.Time) (*domain.Pass, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.passes {
		if p.VisitorID == visitorID && p.Outstanding(now) {
			return r.joined(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memPasses) SetQRCodeURL(_ context.Context, id, url string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.passes[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.QRCodeURL = &url
	return nil
}

func (r memPasses) MarkProcessed(_ context.Context, id string, at time.Time, by string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.passes[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.ApprovedAt != nil {
		return domain.ErrAlreadyProcessed
	}
	p.ApprovedAt = &at
	p.ApprovedBy = &by
	return nil
}

func (r memPasses) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.passes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.passes, id)
	return nil
}

func (r memPasses) DeleteByVisitorID(_ context.Context, visitorID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, p := range r.s.passes {
		if p.VisitorID == visitorID {
			delete(r.s.passes, id)
			n++
		}
	}
	return n, nil
}

func (r memPasses) List(_ context.Context, f domain.PassFilter) ([]*domain.Pass, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Pass, 0)
	for _, p := range r.s.passes {
		j := r.joined(p)
		if f.HostID != "" && j.HostID != f.HostID {
			continue
		}
		if f.VisitorID != "" && j.VisitorID != f.VisitorID {
			continue
		}
		if f.ApprovedBy != "" && (j.ApprovedBy == nil || *j.ApprovedBy != f.ApprovedBy) {
			continue
		}
		created := j.CreatedAt
		if !inRange(&created, f.CreatedFrom, f.CreatedBefore) {
			continue
		}
		if f.CreatedThrough != nil && created.After(*f.CreatedThrough) {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return idLess(out[k].ID, out[i].ID) })
	return out, nil
}

type memNotifications struct{ s *memStore }

func (r memNotifications) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failNotification; err != nil {
		r.s.failNotification = nil
		return err
	}
	n.ID = r.s.nextID()
	cp := *n
	r.s.notifications[n.ID] = &cp
	return nil
}

func (r memNotifications) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool) ([]*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Notification, 0)
	for _, n := range r.s.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out, nil
}

func (r memNotifications) MarkRead(_ context.Context, id, recipientID string, at time.Time) (*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return nil, domain.ErrNotFound
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	cp := *n
	return &cp, nil
}

type fakeCredentials struct {
	mu  sync.Mutex
	n   int
	err error
}

func (f *fakeCredentials) GenerateToken() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.n++
	return fmt.Sprintf("token-%03d", f.n), nil
}

func (f *fakeCredentials) Encode(url string) ([]byte, error) {
	return []byte("png:" + url), nil
}

type fakeArtifacts struct {
	mu       sync.Mutex
	objects  map[string][]byte
	storeErr error
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{objects: make(map[string][]byte)}
}

func (f *fakeArtifacts) Store(_ context.Context, key string, payload []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.objects[key] = payload
	return "https://cdn.test/" + key, nil
}

func (f *fakeArtifacts) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeArtifacts) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return f.err
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subjects...)
}

type fakeEmail struct {
	mu            sync.Mutex
	passes        []*domain.PassIssuedEmailData
	notifications []*domain.HostNotificationEmailData
	err           error
}

func (f *fakeEmail) SendPassIssued(_ context.Context, data *domain.PassIssuedEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passes = append(f.passes, data)
	return f.err
}

func (f *fakeEmail) SendHostNotification(_ context.Context, data *domain.HostNotificationEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, data)
	return f.err
}

// harness wires both lifecycle managers over one memStore with a controllable clock.
type harness struct {
	store     *memStore
	artifacts *fakeArtifacts
	publisher *fakePublisher
	email     *fakeEmail
	visitors  *visitorService
	passes    *passService
	now       time.Time

	admin, host, otherHost, guard, otherGuard *domain.User
}

var errBoom = errors.New("boom")

func newHarness() *harness {
	h := &harness{
		store:     newMemStore(),
		artifacts: newFakeArtifacts(),
		publisher: &fakePublisher{},
		email:     &fakeEmail{},
		now:       time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	h.admin = h.store.seedUser("1", "Admin", "admin@corp.com", domain.RoleAdmin)
	h.host = h.store.seedUser("42", "Priya Host", "host@corp.com", domain.RoleHost)
	h.otherHost = h.store.seedUser("43", "Other Host", "other@corp.com", domain.RoleHost)
	h.guard = h.store.seedUser("7", "Gate Guard", "guard@corp.com", domain.RoleGuard)
	h.otherGuard = h.store.seedUser("8", "Night Guard", "night@corp.com", domain.RoleGuard)
	h.store.seq = 100

	logger := discardLogger()
	notifier := NewNotifier(h.publisher, h.email, nil, logger)
	issuer := NewPassIssuer(&fakeCredentials{}, h.artifacts, h.email, notifier, "https://visitors.test/", nil, logger)
	clock := func() time.Time { return h.now }

	h.visitors = NewVisitorService(h.store, issuer, notifier, logger, 5*time.Second).(*visitorService)
	h.visitors.now = clock
	h.passes = NewPassService(h.store, issuer, notifier, logger, 5*time.Second).(*passService)
	h.passes.now = clock
	return h
}

func actorOf(u *domain.User) domain.Actor {
	return domain.Actor{ID: u.ID, Role: u.Role}
}

func (h *harness) createVisitor(t *testing.T, actor domain.Actor, email, phone string, expiry *time.Time) (*domain.Visitor, *domain.Pass) {
	v, p, err := h.visitors.Create(context.Background(), actor, domain.CreateVisitorInput{
		Name:       "Asha",
		Email:      email,
		Phone:      phone,
		Purpose:    "meeting",
		HostID:     h.host.ID,
		PassExpiry: expiry,
	})
	require.NoError(t, err)
	return v, p
}
