// AngelaMos | 2026
// logger.go

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carterperez-dev/eventhub/internal/core"
)

// Logger writes one structured access log line per request and recovers
// panics into a 500 envelope.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	requestLogger := chimw.RequestLogger(&slogFormatter{logger: logger})

	return func(next http.Handler) http.Handler {
		return requestLogger(recoverer(next))
	}
}

type slogFormatter struct {
	logger *slog.Logger
}

func (f *slogFormatter) NewLogEntry(r *http.Request) chimw.LogEntry {
	return &slogEntry{logger: f.logger, request: r}
}

type slogEntry struct {
	logger  *slog.Logger
	request *http.Request
}

func (e *slogEntry) Write(
	status, bytes int,
	_ http.Header,
	elapsed time.Duration,
	_ any,
) {
	ctx := e.request.Context()

	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}

	attrs := []any{
		"method", e.request.Method,
		"path", e.request.URL.Path,
		"status", status,
		"bytes", bytes,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", GetRequestID(ctx),
		"remote_addr", e.request.RemoteAddr,
	}
	if userID := GetUserID(ctx); userID != "" {
		attrs = append(attrs, "user_id", userID)
	}
	if traceID := core.TraceIDFromContext(ctx); traceID != "" {
		attrs = append(attrs, "trace_id", traceID)
	}

	e.logger.Log(ctx, level, "http request", attrs...)
}

func (e *slogEntry) Panic(v any, stack []byte) {
	e.logger.ErrorContext(e.request.Context(), "http handler panic",
		"panic", v,
		"stack", string(stack),
		"method", e.request.Method,
		"path", e.request.URL.Path,
		"request_id", GetRequestID(e.request.Context()),
	)
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(rec)
				}

				if entry := chimw.GetLogEntry(r); entry != nil {
					entry.Panic(rec, nil)
				}

				core.InternalServerError(w, fmt.Errorf("panic: %v", rec))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
