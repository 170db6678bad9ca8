package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"visitorpass/internal/delivery/http/helpers"
	"visitorpass/internal/delivery/http/middleware"
	"visitorpass/internal/domain"

	"github.com/stretchr/testify/require"
)

var (
	admin = domain.Actor{ID: "1", Role: domain.RoleAdmin}
	host  = domain.Actor{ID: "42", Role: domain.RoleHost}
	guard = domain.Actor{ID: "7", Role: domain.RoleGuard}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newRequest builds a request with an optional JSON body and, when actor is non-nil, an authenticated context.
func newRequest(method, target, body string, actor *domain.Actor) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	return req
}

// serve routes req through a mux registered with pattern so path values resolve.
func serve(pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Error)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// fakeVisitorService implements domain.VisitorService for handler tests.
type fakeVisitorService struct {
	lastActor  domain.Actor
	lastInput  domain.CreateVisitorInput
	lastID     string
	lastStatus domain.VisitorStatus
	lastParams domain.VisitorListParams
	lastHostID string

	visitor  *domain.Visitor
	pass     *domain.Pass
	detail   *domain.VisitorWithPasses
	visitors []*domain.Visitor
	details  []*domain.VisitorWithPasses
	stats    *domain.DailyStats
	err      error
}

func (f *fakeVisitorService) Create(ctx context.Context, actor domain.Actor, in domain.CreateVisitorInput) (*domain.Visitor, *domain.Pass, error) {
	f.lastActor, f.lastInput = actor, in
	return f.visitor, f.pass, f.err
}

func (f *fakeVisitorService) GetByID(ctx context.Context, actor domain.Actor, id string) (*domain.VisitorWithPasses, error) {
	f.lastActor, f.lastID = actor, id
	return f.detail, f.err
}

func (f *fakeVisitorService) UpdateStatus(ctx context.Context, actor domain.Actor, id string, status domain.VisitorStatus) (*domain.Visitor, error) {
	f.lastActor, f.lastID, f.lastStatus = actor, id, status
	return f.visitor, f.err
}

func (f *fakeVisitorService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	f.lastActor, f.lastID = actor, id
	return f.err
}

func (f *fakeVisitorService) List(ctx context.Context, actor domain.Actor, params domain.VisitorListParams) ([]*domain.Visitor, error) {
	f.lastActor, f.lastParams = actor, params
	return f.visitors, f.err
}

func (f *fakeVisitorService) ListPendingCreatedBy(ctx context.Context, actor domain.Actor) ([]*domain.VisitorWithPasses, error) {
	f.lastActor = actor
	return f.details, f.err
}

func (f *fakeVisitorService) ListTodaysPending(ctx context.Context, actor domain.Actor) ([]*domain.Visitor, error) {
	f.lastActor = actor
	return f.visitors, f.err
}

func (f *fakeVisitorService) ListTodaysApproved(ctx context.Context, actor domain.Actor) ([]*domain.Visitor, error) {
	f.lastActor = actor
	return f.visitors, f.err
}

func (f *fakeVisitorService) ListApprovedByHost(ctx context.Context, actor domain.Actor, hostID string) ([]*domain.Visitor, error) {
	f.lastActor, f.lastHostID = actor, hostID
	return f.visitors, f.err
}

func (f *fakeVisitorService) DailyStats(ctx context.Context, actor domain.Actor) (*domain.DailyStats, error) {
	f.lastActor = actor
	return f.stats, f.err
}

// fakePassService implements domain.PassService for handler tests.
type fakePassService struct {
	lastActor  domain.Actor
	lastID     string
	lastExpiry time.Time
	lastParams domain.PassListParams

	pass       *domain.Pass
	passes     []*domain.Pass
	redemption *domain.Redemption
	check      *domain.PassVerification
	err        error
}

func (f *fakePassService) Issue(ctx context.Context, actor domain.Actor, visitorID string, expiresAt time.Time) (*domain.Pass, error) {
	f.lastActor, f.lastID, f.lastExpiry = actor, visitorID, expiresAt
	return f.pass, f.err
}

func (f *fakePassService) Redeem(ctx context.Context, actor domain.Actor, passID string) (*domain.Redemption, error) {
	f.lastActor, f.lastID = actor, passID
	return f.redemption, f.err
}

func (f *fakePassService) Delete(ctx context.Context, actor domain.Actor, passID string) error {
	f.lastActor, f.lastID = actor, passID
	return f.err
}

func (f *fakePassService) List(ctx context.Context, actor domain.Actor, params domain.PassListParams) ([]*domain.Pass, error) {
	f.lastActor, f.lastParams = actor, params
	return f.passes, f.err
}

func (f *fakePassService) GetByID(ctx context.Context, actor domain.Actor, passID string) (*domain.Pass, error) {
	f.lastActor, f.lastID = actor, passID
	return f.pass, f.err
}

func (f *fakePassService) Verify(ctx context.Context, actor domain.Actor, token string) (*domain.PassVerification, error) {
	f.lastActor, f.lastID = actor, token
	return f.check, f.err
}

func (f *fakePassService) ScanHistory(ctx context.Context, actor domain.Actor) ([]*domain.Pass, error) {
	f.lastActor = actor
	return f.passes, f.err
}
