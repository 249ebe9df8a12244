package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/therealdaud/HealthShield/internal/adapter/http"
	"github.com/therealdaud/HealthShield/internal/domain"
	"github.com/therealdaud/HealthShield/internal/store"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type failingStateReader struct{}

func (failingStateReader) Get(_ context.Context, _ domain.Key) (domain.AlertState, bool, error) {
	return domain.AlertState{}, false, errors.New("connection refused")
}

func newTestServer(readyErr error, states httpadapter.StateReader) *httpadapter.Server {
	if states == nil {
		states = store.NewMemoryStateStore()
	}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, states, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRiskNowReturnsCurrentState(t *testing.T) {
	states := store.NewMemoryStateStore()
	at := time.Date(2026, time.July, 14, 15, 0, 0, 0, time.UTC)
	key := domain.Key{UserID: "user-1", LocationID: "tampa-usf-valet"}
	require.NoError(t, states.Put(context.Background(), key, domain.AlertState{
		Phase:           domain.PhaseAlerting,
		Level:           domain.RiskExtreme,
		LastTransition:  at,
		LastObservation: at,
		LastIndexC:      58.1,
	}))

	srv := newTestServer(nil, states)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/risk/now?user_id=user-1&location_id=tampa-usf-valet", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body["user_id"])
	assert.Equal(t, "alerting", body["phase"])
	assert.Equal(t, "extreme", body["risk_level"])
	assert.Equal(t, 58.1, body["personalized_index_c"])
}

func TestRiskNowRequiresQueryParams(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/risk/now?user_id=user-1", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRiskNowUnknownKeyReturns404(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/risk/now?user_id=nobody&location_id=nowhere", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRiskNowStoreFailureReturns503(t *testing.T) {
	srv := newTestServer(nil, failingStateReader{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/risk/now?user_id=user-1&location_id=loc-1", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
