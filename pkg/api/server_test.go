package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jakechorley/taskflow-connect/internal/config"
	"github.com/jakechorley/taskflow-connect/pkg/auth"
	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/core/services"
	"github.com/jakechorley/taskflow-connect/pkg/db"
	"github.com/jakechorley/taskflow-connect/pkg/memdb"
)

func TestMain(m *testing.M) {
	auth.HashCost = bcrypt.MinCost
	goleak.VerifyTestMain(m)
}

type testServer struct {
	handler http.Handler
	store   *memdb.DB
	tokens  *auth.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Storage = config.StorageMemory
	cfg.AllowedOrigins = []string{"https://app.example.org"}

	tokens, err := auth.NewTokenIssuer(strings.Repeat("k", 32), time.Hour, time.Hour)
	require.NoError(t, err)

	store := memdb.New()
	srv := NewServer(cfg, store, tokens, nil, zap.NewNop())
	ts := &testServer{handler: srv.Handler(), store: store, tokens: tokens}

	ts.seed(t, "admin", "Ada", model.RoleAdmin)
	ts.seed(t, "alice", "Alice", model.RoleVolunteer)
	ts.seed(t, "bob", "Bob", model.RoleVolunteer)
	return ts
}

func (ts *testServer) seed(t *testing.T, id, name string, role model.Role) {
	t.Helper()
	hash, err := auth.HashPassword("password-" + id)
	require.NoError(t, err)
	require.NoError(t, ts.store.InsertVolunteer(context.Background(), &db.Volunteer{
		ID: id, Name: name, Email: id + "@example.org", Role: role, PasswordHash: hash,
	}))
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) signIn(t *testing.T, id string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"email": id + "@example.org", "password": "password-" + id,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res services.SignInResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/v1/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/v1/me", "not-a-token", nil).Code)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "alice@example.org", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t, "alice")

	rec := ts.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "alice", me["id"])
	assert.NotContains(t, me, "PasswordHash")

	rec = ts.do(t, http.MethodPatch, "/api/v1/me/profile", token, map[string]string{"name": "Alice B"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice B", decodeBody[db.Volunteer](t, rec).Name)
}

func TestAdminOnlyRoutes(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t, "alice")

	rec := ts.do(t, http.MethodPost, "/api/v1/events", token, map[string]string{"name": "Fair", "date": "2030-01-01"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/volunteers", token, map[string]string{"name": "X", "email": "x@example.org", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTeamTaskFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.signIn(t, "admin")
	alice := ts.signIn(t, "alice")
	bob := ts.signIn(t, "bob")

	rec := ts.do(t, http.MethodPost, "/api/v1/events", admin, map[string]string{"name": "Fair", "date": "2030-01-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	event := decodeBody[db.Event](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/events/"+event.ID+"/tasks", admin, map[string]any{
		"name": "Stalls", "type": "Team", "deadline": "2029-12-31", "assignedVolunteerIds": []string{"alice", "bob"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decodeBody[db.Task](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/present", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[services.CompletionResult](t, rec)
	assert.False(t, res.Transitioned)
	assert.Equal(t, model.StatusPending, res.Task.Status)

	rec = ts.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/present", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decodeBody[services.CompletionResult](t, rec)
	assert.True(t, res.Transitioned)
	assert.Equal(t, model.StatusCompleted, res.Task.Status)

	rec = ts.do(t, http.MethodGet, "/api/v1/events/"+event.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[services.EventDetail](t, rec)
	assert.Equal(t, services.Progress{Completed: 1, Total: 1}, detail.Progress)

	rec = ts.do(t, http.MethodGet, "/api/v1/tasks/mine", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]db.Task](t, rec), 1)
}

func TestAssignStaleVersion(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.signIn(t, "admin")

	rec := ts.do(t, http.MethodPost, "/api/v1/events", admin, map[string]string{"name": "Fair", "date": "2030-01-01"})
	event := decodeBody[db.Event](t, rec)
	rec = ts.do(t, http.MethodPost, "/api/v1/events/"+event.ID+"/tasks", admin, map[string]any{
		"name": "Tables", "deadline": "2029-12-31", "assignedVolunteerIds": []string{"alice"},
	})
	task := decodeBody[db.Task](t, rec)

	path := "/api/v1/tasks/" + task.ID + "/assignees"
	rec = ts.do(t, http.MethodPut, path, admin, map[string]any{"assignedVolunteerIds": []string{"bob"}, "version": task.Version})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPut, path, admin, map[string]any{"assignedVolunteerIds": []string{"alice"}, "version": task.Version})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRemapFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.signIn(t, "admin")
	alice := ts.signIn(t, "alice")
	bob := ts.signIn(t, "bob")

	rec := ts.do(t, http.MethodPost, "/api/v1/events", admin, map[string]string{"name": "Fair", "date": "2030-01-01"})
	event := decodeBody[db.Event](t, rec)
	rec = ts.do(t, http.MethodPost, "/api/v1/events/"+event.ID+"/tasks", admin, map[string]any{
		"name": "Raffle", "deadline": "2029-12-31", "assignedVolunteerIds": []string{"alice"},
	})
	task := decodeBody[db.Task](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/remapping-requests", alice, map[string]string{
		"taskId": task.ID, "toVolunteerId": "bob", "reason": "scheduling conflict",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decodeBody[db.RemappingRequest](t, rec)
	assert.Equal(t, model.RequestPending, req.Status)

	rec = ts.do(t, http.MethodGet, "/api/v1/remapping-requests", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]db.RemappingRequest](t, rec), 1)

	decision := "/api/v1/remapping-requests/" + req.ID + "/decision"
	rec = ts.do(t, http.MethodPost, decision, alice, map[string]string{"decision": "Accepted"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, decision, bob, map[string]string{"decision": "Accepted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[services.DecisionResult](t, rec)
	assert.Equal(t, []string{"bob"}, res.Task.AssignedVolunteerIDs)

	rec = ts.do(t, http.MethodPost, decision, admin, map[string]string{"decision": "Rejected"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteTaskWithNotes(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.signIn(t, "admin")

	rec := ts.do(t, http.MethodPost, "/api/v1/events", admin, map[string]string{"name": "Fair", "date": "2030-01-01"})
	event := decodeBody[db.Event](t, rec)
	rec = ts.do(t, http.MethodPost, "/api/v1/events/"+event.ID+"/tasks", admin, map[string]any{"name": "Signs", "deadline": "2029-12-31"})
	task := decodeBody[db.Task](t, rec)

	for _, note := range []string{"Painted", "Hung"} {
		rec = ts.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/notes", admin, map[string]string{"volunteerId": "alice", "note": note})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodDelete, "/api/v1/tasks/"+task.ID, admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/tasks/"+task.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.signIn(t, "admin")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"name": `))
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/events", admin, map[string]string{"name": "Fair", "date": "2030-01-01", "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/meetings/nope/occurrences?count=abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/nowhere", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", db.ErrNotFound), http.StatusNotFound},
		{db.ErrVersionConflict, http.StatusConflict},
		{db.ErrDuplicate, http.StatusConflict},
		{services.ErrRequestClosed, http.StatusConflict},
		{services.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: name", services.ErrInvalidInput), http.StatusBadRequest},
		{services.ErrUnauthenticated, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
