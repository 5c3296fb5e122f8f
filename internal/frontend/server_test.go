package frontend_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishankoza/svcsync/internal/discovery"
	"github.com/dishankoza/svcsync/internal/dispatch"
	"github.com/dishankoza/svcsync/internal/frontend"
	"github.com/dishankoza/svcsync/internal/hlc"
	"github.com/dishankoza/svcsync/internal/monotime"
	"github.com/dishankoza/svcsync/internal/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedSource monotime.Sample

func (f fixedSource) Load() monotime.Sample { return monotime.Sample(f) }

type harness struct {
	handler    http.Handler
	queue      *registry.Queue
	reconciler *registry.Reconciler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := prometheus.NewRegistry()
	clock := hlc.NewClock(fixedSource{Sec: 100})
	q := registry.NewQueue(4)
	metrics := registry.NewMetrics(reg)
	r := registry.NewReconciler(discovery.NewStatic(map[string][]string{
		"svc-a": {"10.0.0.1"},
	}), registry.WithMetrics(metrics))
	d := dispatch.New(clock, r, q, metrics, reg, nil)

	return &harness{
		handler:    frontend.New(d, r, clock, reg, nil).Handler(),
		queue:      q,
		reconciler: r,
	}
}

func (h *harness) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	h.handler.ServeHTTP(w, req)
	return w
}

func TestTouchAnyPath(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/svc-a/some/deep/path?x=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body frontend.TouchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "svc-a", body.Service)
	assert.Equal(t, hlc.Timestamp{Sec: 100, Counter: 1}, body.Version)
	assert.True(t, body.Queued)
	assert.Equal(t, 1, h.queue.Len())

	w = h.do(http.MethodPost, "/svc-a")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, h.queue.Len())
}

func TestTouchErrors(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/svc-z/x").Code)
	assert.Equal(t, 0, h.queue.Len())
}

func TestTouchQueueFull(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < h.queue.Cap(); i++ {
		require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/svc-a").Code)
	}

	w := h.do(http.MethodGet, "/svc-a")
	require.Equal(t, http.StatusOK, w.Code)
	var body frontend.TouchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Queued)
}

func TestServiceViews(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/svc-a").Code)
	h.queue.Close()
	h.reconciler.Run(h.queue)

	w := h.do(http.MethodGet, "/v1/services")
	require.Equal(t, http.StatusOK, w.Code)
	var list []registry.Service
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, hlc.Timestamp{Sec: 100, Counter: 1}, list[0].Version)

	w = h.do(http.MethodGet, "/v1/services/svc-a")
	require.Equal(t, http.StatusOK, w.Code)
	var svc registry.Service
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &svc))
	assert.Equal(t, "svc-a", svc.Name)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/v1/services/svc-z").Code)
}

func TestClockView(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/svc-a")

	w := h.do(http.MethodGet, "/v1/clock")
	require.Equal(t, http.StatusOK, w.Code)
	var body frontend.ClockResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, hlc.Timestamp{Sec: 100, Counter: 1}, body.Version)
	assert.Equal(t, "(100,0,1)", body.Display)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz").Code)

	h.do(http.MethodGet, "/svc-a")
	w := h.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `svcsync_dispatch_requests_total{result="queued"} 1`)
	assert.Contains(t, w.Body.String(), `svcsync_queue_submissions_total{result="queued"} 1`)
}

func TestRequestID(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/healthz")
	assert.NotEmpty(t, w.Header().Get(frontend.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(frontend.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(frontend.RequestIDHeader))
}
