package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hylla/shopfloor/internal/domain"
)

func TestPrometheusRecorderCountsProductionEvents(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageTransition(domain.StageKindInternal, domain.StatusToDo, domain.StatusInProgress)
	pr.ObserveStageTransition(domain.StageKindInternal, domain.StatusToDo, domain.StatusInProgress)
	pr.ObserveTimerSegment(domain.StageKindInternal, 90*time.Second)
	pr.ObserveTimerSegment(domain.StageKindInternal, 0)
	pr.IncChecklistOp("toggle")
	pr.IncRunPublished()

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.transitions.WithLabelValues("internal", "todo", "in_progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.checklistOps.WithLabelValues("toggle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.runsPublished))
	assert.Equal(t, 1, testutil.CollectAndCount(pr.timerSegments))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveStageTransition(domain.StageKindOutsourced, domain.StatusToDo, domain.StatusOutboundTransit)
		pr.ObserveTimerSegment(domain.StageKindOutsourced, time.Minute)
		pr.IncChecklistOp("add")
		pr.IncRunPublished()
	})
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	router := chi.NewRouter()
	router.Use(pr.Middleware)
	router.Get("/runs/{runID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.httpRequests.WithLabelValues(http.MethodGet, "/runs/{runID}", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pr.httpInFlight))

	srv := httptest.NewServer(HTTPHandler(pr.Registry()))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "shopfloor_http_requests_total"))
}
