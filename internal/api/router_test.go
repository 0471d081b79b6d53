package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/contentsync/internal/config"
	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/service"
	"github.com/timmy/contentsync/internal/source"
)

type fakeAdapters []domain.SourceType

func (f fakeAdapters) List() []domain.SourceType { return f }

type fakeStore struct {
	ensured []string
	runs    []domain.SyncRun
}

func (s *fakeStore) EnsureSource(_ context.Context, orgID string, t domain.SourceType, name string) (*domain.ContentSource, error) {
	s.ensured = append(s.ensured, orgID+"/"+string(t)+"/"+name)
	return &domain.ContentSource{ID: "src-1", OrganizationID: orgID, Type: t, Name: name, SyncStatus: domain.SyncStatusIdle}, nil
}

func (s *fakeStore) ListSyncRuns(context.Context, string, int) ([]domain.SyncRun, error) {
	return s.runs, nil
}

type fakeSyncer struct {
	mu       sync.Mutex
	progress *domain.SyncProgress
	err      error
	opts     source.FetchOptions
	calls    int
}

func (s *fakeSyncer) SyncSource(_ context.Context, _ string, opts source.FetchOptions) (*domain.SyncProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.opts = opts
	return s.progress, s.err
}

func (s *fakeSyncer) GetSyncProgress(sourceID string) (*domain.SyncProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress == nil || s.progress.SourceID != sourceID {
		return nil, false
	}
	return s.progress, true
}

type fakeProcessor struct{}

func (fakeProcessor) ProcessItem(_ context.Context, id string) (*domain.ContentItem, error) {
	if id == "missing" {
		return nil, &domain.ProcessingError{ItemID: id, Err: fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)}
	}
	return &domain.ContentItem{ID: id, ProcessingStatus: domain.ProcessingStatusCompleted}, nil
}

func (fakeProcessor) ProcessItemsBatch(_ context.Context, ids []string, _ service.BatchOptions) *service.BatchResult {
	return &service.BatchResult{Processed: len(ids), Errors: []service.BatchItemError{}}
}

type testEnv struct {
	store  *fakeStore
	syncer *fakeSyncer
	guard  *service.SyncGuard
	router http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:  &fakeStore{},
		syncer: &fakeSyncer{},
		guard:  service.NewSyncGuard(),
	}
	env.router = SetupRouter(&Dependencies{
		Adapters:  fakeAdapters{domain.SourceTypeNotion, domain.SourceTypeSlack},
		Sources:   env.store,
		Syncer:    env.syncer,
		Guard:     env.guard,
		Processor: fakeProcessor{},
	}, &config.ServerConfig{Mode: "test", CORS: config.CORSConfig{AllowAllOrigins: true}})
	return env
}

// guardFree reports whether no sync holds sourceID, leaving the guard as found.
func (e *testEnv) guardFree(sourceID string) bool {
	if !e.guard.TryAcquire(sourceID) {
		return false
	}
	e.guard.Release(sourceID)
	return true
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthAndAdapters(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = env.do(t, http.MethodGet, "/api/v1/adapters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"adapters":["notion","slack"]}`, w.Body.String())
}

func TestRequestIDIsPropagated(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestEnsureSource(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/api/v1/sources/ensure", map[string]string{
		"organization_id": "org-1", "type": "notion",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"org-1/notion/notion"}, env.store.ensured)

	w = env.do(t, http.MethodPost, "/api/v1/sources/ensure", map[string]string{
		"organization_id": "org-1", "type": "dropbox",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/sources/ensure", map[string]string{"type": "notion"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerSync(t *testing.T) {
	env := newTestEnv()
	env.syncer.progress = &domain.SyncProgress{SourceID: "src-1", Status: domain.SyncRunCompleted, ItemsProcessed: 3}

	w := env.do(t, http.MethodPost, "/api/v1/sources/src-1/sync", map[string]interface{}{
		"cursor": "c1", "limit": 25, "since": "2024-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.SyncProgress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 3, got.ItemsProcessed)
	assert.Equal(t, "c1", env.syncer.opts.Cursor)
	assert.Equal(t, 25, env.syncer.opts.Limit)
	require.NotNil(t, env.syncer.opts.Since)
	assert.True(t, env.guardFree("src-1"))
}

func TestTriggerSyncWithoutBody(t *testing.T) {
	env := newTestEnv()
	env.syncer.progress = &domain.SyncProgress{SourceID: "src-1", Status: domain.SyncRunCompleted}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sources/src-1/sync", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTriggerSyncConflict(t *testing.T) {
	env := newTestEnv()
	require.True(t, env.guard.TryAcquire("src-1"))

	w := env.do(t, http.MethodPost, "/api/v1/sources/src-1/sync", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, env.syncer.calls)
}

func TestTriggerSyncErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"source missing", fmt.Errorf("%w: x", domain.ErrSourceNotFound), http.StatusNotFound},
		{"adapter missing", fmt.Errorf("%w: x", domain.ErrAdapterNotFound), http.StatusNotFound},
		{"auth", &domain.SyncError{SourceID: "src-1", Op: "auth", Err: domain.ErrAuth}, http.StatusUnauthorized},
		{"fetch", &domain.SyncError{SourceID: "src-1", Op: "fetch", Err: fmt.Errorf("boom")}, http.StatusBadGateway},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.syncer.err = tt.err
			w := env.do(t, http.MethodPost, "/api/v1/sources/src-1/sync", nil)
			assert.Equal(t, tt.want, w.Code)
			assert.True(t, env.guardFree("src-1"))
		})
	}
}

func TestTriggerSyncAsync(t *testing.T) {
	env := newTestEnv()
	env.syncer.progress = &domain.SyncProgress{SourceID: "src-1", Status: domain.SyncRunCompleted}

	w := env.do(t, http.MethodPost, "/api/v1/sources/src-1/sync", map[string]bool{"async": true})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Eventually(t, func() bool { return env.guardFree("src-1") }, time.Second, 5*time.Millisecond)
}

func TestGetProgress(t *testing.T) {
	env := newTestEnv()
	w := env.do(t, http.MethodGet, "/api/v1/sources/src-1/progress", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.syncer.progress = &domain.SyncProgress{SourceID: "src-1", Status: domain.SyncRunRunning, ItemsProcessed: 7}
	w = env.do(t, http.MethodGet, "/api/v1/sources/src-1/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items_processed":7`)
}

func TestListRuns(t *testing.T) {
	env := newTestEnv()
	w := env.do(t, http.MethodGet, "/api/v1/sources/src-1/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/sources/src-1/runs?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessItemRoutes(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/api/v1/items/item-1/process", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/items/missing/process", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/items/process", map[string]interface{}{"item_ids": []string{"a", "b"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"processed":2,"failed":0,"errors":[]}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/items/process", map[string]interface{}{"item_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
