package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.Observe("migrate", "succeeded", 2*time.Second)
	m.Observe("migrate", "timed_out", 600*time.Second)
	m.Observe("migrate", "succeeded", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("migrate", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("migrate", "timed_out")))
}

func TestInFlight(t *testing.T) {
	m := New()
	m.ToolStarted()
	m.ToolStarted()
	m.ToolFinished()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe("backup", "failed", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sqlite2pg_operations_total{operation="backup",status="failed"} 1`)
	assert.Contains(t, string(body), "sqlite2pg_tools_in_flight 0")
}
