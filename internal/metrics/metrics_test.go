// AngelaMos | 2026
// metrics_test.go

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleSnapshot(t *testing.T) {
	m := New()

	m.Lifecycle("ticket", "checked_in")
	m.Lifecycle("ticket", "checked_in")
	m.Lifecycle("ticket", "already_used")
	m.Lifecycle("event", "approved")

	snap, err := m.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 2.0, snap["ticket.checked_in"])
	assert.Equal(t, 1.0, snap["ticket.already_used"])
	assert.Equal(t, 1.0, snap["event.approved"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	m.Lifecycle("event", "submitted")
	snap, err := m.Snapshot()

	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/events/{eventID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body),
		`eventhub_http_requests_total{method="GET",route="/events/{eventID}",status="418"} 3`)
}
