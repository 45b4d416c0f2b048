// AngelaMos | 2026
// server_test.go

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/eventhub/internal/config"
	"github.com/carterperez-dev/eventhub/internal/health"
)

func TestShutdownFailsHealthChecksBeforeStopping(t *testing.T) {
	h := health.NewHandler()
	srv := New(Config{
		ServerConfig: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
		},
		HealthHandler: h,
	})
	h.RegisterRoutes(srv.Router())

	liveness := func() int {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, liveness())
	require.NoError(t, srv.Shutdown(context.Background(), 0))
	assert.Equal(t, http.StatusServiceUnavailable, liveness())
}

func TestShutdownHonoursContext(t *testing.T) {
	srv := New(Config{HealthHandler: health.NewHandler()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, srv.Shutdown(ctx, time.Minute), context.Canceled)
}
