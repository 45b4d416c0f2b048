// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/eventhub/internal/core"
)

// CountFunc returns row counts keyed by status or role.
type CountFunc func(ctx context.Context) (map[string]int, error)

// Counts adapts a typed count query to CountFunc.
func Counts[K ~string](fn func(ctx context.Context) (map[K]int, error)) CountFunc {
	return func(ctx context.Context) (map[string]int, error) {
		typed, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]int, len(typed))
		for k, v := range typed {
			out[string(k)] = v
		}
		return out, nil
	}
}

type Handler struct {
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
	busPing    func(ctx context.Context) error
	roles      CountFunc
	events     CountFunc
	tickets    CountFunc
	lifecycle  func() (map[string]float64, error)
}

type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
	BusPing    func(ctx context.Context) error
	Roles      CountFunc
	Events     CountFunc
	Tickets    CountFunc
	Lifecycle  func() (map[string]float64, error)
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
		busPing:    cfg.BusPing,
		roles:      cfg.Roles,
		events:     cfg.Events,
		tickets:    cfg.Tickets,
		lifecycle:  cfg.Lifecycle,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticated, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/system", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(adminOnly)

		r.Get("/", h.GetSystemStats)
		r.Get("/db", h.GetDatabaseStats)
		r.Get("/redis", h.GetRedisStats)
		r.Get("/runtime", h.GetRuntimeStats)
		r.Get("/activity", h.GetActivity)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: pingOK(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: pingOK(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
		Bus: BusStatus{
			Healthy: pingOK(ctx, h.busPing),
		},
		Runtime:  runtimeStats(),
		Activity: h.getActivity(ctx),
	}

	core.OK(w, response)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, runtimeStats())
}

func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getActivity(r.Context()))
}

// getActivity gathers what it can. A failed count is logged and left out
// so one slow table does not blank the whole page.
func (h *Handler) getActivity(ctx context.Context) ActivityStats {
	return ActivityStats{
		UsersByRole:     count(ctx, "users", h.roles),
		EventsByStatus:  count(ctx, "events", h.events),
		TicketsByStatus: count(ctx, "tickets", h.tickets),
		Lifecycle:       h.getLifecycle(ctx),
	}
}

func (h *Handler) getLifecycle(ctx context.Context) map[string]float64 {
	if h.lifecycle == nil {
		return nil
	}
	snapshot, err := h.lifecycle()
	if err != nil {
		slog.WarnContext(ctx, "lifecycle snapshot failed", "error", err)
		return nil
	}
	return snapshot
}

func count(ctx context.Context, name string, fn CountFunc) map[string]int {
	if fn == nil {
		return nil
	}
	counts, err := fn(ctx)
	if err != nil {
		slog.WarnContext(ctx, "admin count failed",
			"table", name,
			"error", err,
		)
		return nil
	}
	return counts
}

func pingOK(ctx context.Context, ping func(ctx context.Context) error) bool {
	if ping == nil {
		return true
	}
	return ping(ctx) == nil
}

func runtimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

type SystemStatsResponse struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Bus      BusStatus      `json:"bus"`
	Runtime  RuntimeStats   `json:"runtime"`
	Activity ActivityStats  `json:"activity"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type BusStatus struct {
	Healthy bool `json:"healthy"`
}

type ActivityStats struct {
	UsersByRole     map[string]int     `json:"users_by_role"`
	EventsByStatus  map[string]int     `json:"events_by_status"`
	TicketsByStatus map[string]int     `json:"tickets_by_status"`
	Lifecycle       map[string]float64 `json:"lifecycle"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxIdleTimeClosed  int64  `json:"max_idle_time_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
