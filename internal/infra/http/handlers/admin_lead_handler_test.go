package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xavierca1/realty-leads/internal/entity"
	"github.com/xavierca1/realty-leads/internal/infra/database"
	"github.com/xavierca1/realty-leads/internal/infra/http/middleware"
	"github.com/xavierca1/realty-leads/internal/usecase"
)

const (
	adminToken = "test-token"
	agentID    = "3f333df6-90a4-4fda-8dd3-9485d27cee36"
)

type stubOwners map[string]*entity.Owner

func (s stubOwners) FindByID(_ context.Context, id string) (*entity.Owner, error) {
	if o, ok := s[id]; ok {
		return o, nil
	}
	return nil, entity.ErrOwnerNotFound
}

type okPinger struct{ err error }

func (p okPinger) PingContext(context.Context) error { return p.err }

func newTestRouter(t *testing.T, limiter middleware.Limiter) (http.Handler, *database.MemoryLeadRepository) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := database.NewMemoryLeadRepository()

	manage := &usecase.ManageLeadUseCase{
		Repo:   repo,
		Owners: stubOwners{agentID: {ID: agentID, Name: "Avi", Email: "avi@example.com"}},
		Logger: logger,
	}
	leads := NewLeadHandler(&stubCapturer{out: &usecase.CaptureLeadOutput{Outcome: usecase.OutcomeDuplicate}}, &recordingDispatcher{}, logger)
	router := NewRouter(RouterConfig{
		AllowedOrigins: []string{"*"},
		AdminToken:     adminToken,
		Limiter:        limiter,
		RetryAfter:     time.Minute,
		Logger:         logger,
	}, leads, NewAdminLeadHandler(manage, logger), NewHealthHandler(okPinger{}, nil, nil, "test"))
	return router, repo
}

func seedLead(t *testing.T, repo *database.MemoryLeadRepository, email string) *entity.Lead {
	t.Helper()
	lead, err := entity.NewLead("Jane", email, entity.SourceContactForm, entity.ListingRef{Kind: entity.ListingNone})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), lead))
	return lead
}

func adminRequest(method, path, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	r.Header.Set("Authorization", "Bearer "+adminToken)
	return r
}

// TestAdminLeadLifecycle - Lista, consulta, atualiza e remove um lead
func TestAdminLeadLifecycle(t *testing.T) {
	router, repo := newTestRouter(t, nil)
	lead := seedLead(t, repo, "jane@example.com")
	seedLead(t, repo, "bob@example.com")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet, "/admin/leads?limit=1", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	var list LeadListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 1, list.Limit)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet, "/admin/leads/"+lead.ID, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jane@example.com")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPatch, "/admin/leads/"+lead.ID, `{"status":"contacted","assignedOwnerId":"`+agentID+`"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := repo.FindByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusContacted, stored.Status)
	assert.Equal(t, agentID, stored.AssignedOwnerID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodDelete, "/admin/leads/"+lead.ID, ""))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet, "/admin/leads/"+lead.ID, ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminLeadErrors(t *testing.T) {
	router, repo := newTestRouter(t, nil)
	lead := seedLead(t, repo, "jane@example.com")

	cases := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"bad limit", adminRequest(http.MethodGet, "/admin/leads?limit=abc", ""), http.StatusBadRequest},
		{"negative offset", adminRequest(http.MethodGet, "/admin/leads?offset=-1", ""), http.StatusBadRequest},
		{"unknown owner", adminRequest(http.MethodPatch, "/admin/leads/"+lead.ID, `{"assignedOwnerId":"ghost"}`), http.StatusBadRequest},
		{"unknown field", adminRequest(http.MethodPatch, "/admin/leads/"+lead.ID, `{"email":"x@example.com"}`), http.StatusBadRequest},
		{"unknown owner id", adminRequest(http.MethodPatch, "/admin/leads/"+lead.ID, `{"assignedOwnerId":"c56a4180-65aa-42ec-a945-5fd21dec0538"}`), http.StatusBadRequest},
		{"missing lead", adminRequest(http.MethodDelete, "/admin/leads/7c9e6679-7425-40de-944b-e07fc1f90ae7", ""), http.StatusNotFound},
		{"malformed id get", adminRequest(http.MethodGet, "/admin/leads/abc", ""), http.StatusNotFound},
		{"malformed id patch", adminRequest(http.MethodPatch, "/admin/leads/abc", `{"status":"contacted"}`), http.StatusNotFound},
		{"malformed id delete", adminRequest(http.MethodDelete, "/admin/leads/abc", ""), http.StatusNotFound},
		{"malformed owner filter", adminRequest(http.MethodGet, "/admin/leads?owner=agent-7", ""), http.StatusBadRequest},
		{"no token", httptest.NewRequest(http.MethodGet, "/admin/leads", nil), http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, tc.req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestIntakeRouteIsRateLimited(t *testing.T) {
	router, _ := newTestRouter(t, middleware.NewMemoryLimiter(1, time.Minute))

	post := func() int {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(`{}`))
		r.RemoteAddr = "203.0.113.5:4000"
		router.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	// admin routes are not limited
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet, "/admin/leads", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

type brokerState bool

func (b brokerState) Healthy() bool { return bool(b) }

type redisState struct{ err error }

func (r redisState) Ping(context.Context) error { return r.err }

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name   string
		h      *HealthHandler
		status int
		deps   map[string]string
	}{
		{
			name:   "database only",
			h:      NewHealthHandler(okPinger{}, nil, nil, "1.0.0"),
			status: http.StatusOK,
			deps:   map[string]string{"database": "healthy", "rabbitmq": "not configured", "redis": "not configured"},
		},
		{
			name:   "all healthy",
			h:      NewHealthHandler(okPinger{}, brokerState(true), redisState{}, "1.0.0"),
			status: http.StatusOK,
			deps:   map[string]string{"database": "healthy", "rabbitmq": "healthy", "redis": "healthy"},
		},
		{
			name:   "broker down",
			h:      NewHealthHandler(okPinger{}, brokerState(false), nil, "1.0.0"),
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "redis down",
			h:      NewHealthHandler(okPinger{}, nil, redisState{err: errors.New("dial tcp: refused")}, "1.0.0"),
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "database down",
			h:      NewHealthHandler(okPinger{err: errors.New("timeout")}, nil, nil, "1.0.0"),
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tc.status, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "1.0.0", resp.Version)
			if tc.deps != nil {
				assert.Equal(t, tc.deps, resp.Dependencies)
			}
		})
	}
}
