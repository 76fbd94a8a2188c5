package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/health", 200, time.Millisecond)
	m.ActivityStarted("aguardos")
	m.ActivityFinished("aguardos")
	m.StageChanged("MOBILIZANDO", "OPERANDO")
	m.SetOperationActive(true)
}

func TestCounters(t *testing.T) {
	is := is.New(t)
	m := New()

	m.ActivityStarted("deslocamentos")
	m.ActivityStarted("deslocamentos")
	m.ActivityFinished("deslocamentos")
	m.StageChanged("MOBILIZANDO", "OPERANDO")
	m.SetOperationActive(true)

	is.Equal(testutil.ToFloat64(m.activityStarted.WithLabelValues("deslocamentos")), 2.0)
	is.Equal(testutil.ToFloat64(m.activityFinished.WithLabelValues("deslocamentos")), 1.0)
	is.Equal(testutil.ToFloat64(m.stageTransitions.WithLabelValues("MOBILIZANDO", "OPERANDO")), 1.0)
	is.Equal(testutil.ToFloat64(m.activeOperation), 1.0)
}

func TestHandlerExposesRegistry(t *testing.T) {
	is := is.New(t)
	m := New()
	m.ObserveRequest(http.MethodGet, "/equipes", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	is.Equal(rec.Code, http.StatusOK)
	is.True(strings.Contains(rec.Body.String(), `fieldops_http_requests_total{method="GET",route="/equipes",status="200"} 1`))
}
