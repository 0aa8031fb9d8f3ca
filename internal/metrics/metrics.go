package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the exposure engine.
type Metrics struct {
	RefreshTotal  prometheus.Counter
	RefreshErrors prometheus.Counter
	RefreshDur    prometheus.Histogram

	PositionsGauge *prometheus.GaugeVec // labels: kind=stock|option|cash_like
	GroupsGauge    prometheus.Gauge

	NetExposure   prometheus.Gauge
	PortfolioBeta prometheus.Gauge
	ShortPct      prometheus.Gauge

	// Quote cache
	QuoteCacheHits   prometheus.Counter
	QuoteCacheMisses prometheus.Counter
	BreakerState     prometheus.Gauge // 0=closed, 1=open, 2=half-open
	BreakerTrips     prometheus.Counter

	// Upstream market data API
	ProviderCalls *prometheus.CounterVec // labels: kind=price|bars

	// Gateway
	WSClients prometheus.Gauge

	// Market session state
	MarketState prometheus.Gauge // 0=closed, 1=open
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RefreshTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_refresh_total",
			Help: "Total refresh passes attempted",
		}),
		RefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_refresh_errors_total",
			Help: "Refresh passes aborted by an error",
		}),
		RefreshDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolio_refresh_duration_seconds",
			Help:    "Full recompute pass latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		PositionsGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portfolio_positions",
			Help: "Positions in the latest snapshot (by kind)",
		}, []string{"kind"}),
		GroupsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_groups",
			Help: "Underlying groups in the latest snapshot",
		}),

		NetExposure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_net_market_exposure",
			Help: "Net market exposure of the latest snapshot",
		}),
		PortfolioBeta: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_beta",
			Help: "Beta-weighted portfolio beta of the latest snapshot",
		}),
		ShortPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_short_percentage",
			Help: "Short exposure as a percentage of gross",
		}),

		QuoteCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_quote_cache_hits_total",
			Help: "Quote cache hits",
		}),
		QuoteCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_quote_cache_misses_total",
			Help: "Quote cache misses",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_quote_cache_breaker_state",
			Help: "Quote cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		BreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_quote_cache_breaker_trips_total",
			Help: "Times the quote cache circuit breaker tripped open",
		}),

		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_provider_calls_total",
			Help: "Upstream market data API calls (by kind)",
		}, []string{"kind"}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_ws_clients",
			Help: "Connected WebSocket dashboard clients",
		}),

		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
	}

	prometheus.MustRegister(
		m.RefreshTotal,
		m.RefreshErrors,
		m.RefreshDur,
		m.PositionsGauge,
		m.GroupsGauge,
		m.NetExposure,
		m.PortfolioBeta,
		m.ShortPct,
		m.QuoteCacheHits,
		m.QuoteCacheMisses,
		m.BreakerState,
		m.BreakerTrips,
		m.ProviderCalls,
		m.WSClients,
		m.MarketState,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastRefreshAt  time.Time `json:"last_refresh_at"`
	LastRefreshOK  bool      `json:"last_refresh_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetRefreshResult(at time.Time, ok bool) {
	h.mu.Lock()
	h.LastRefreshAt = at
	h.LastRefreshOK = ok
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Determine overall status
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.RedisConnected || !h.SQLiteOK || !h.LastRefreshOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	refreshAge := ""
	if !h.LastRefreshAt.IsZero() {
		refreshAge = time.Since(h.LastRefreshAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastRefreshAt   string  `json:"last_refresh_at"`
		LastRefreshOK   bool    `json:"last_refresh_ok"`
		RefreshAge      string  `json:"refresh_age"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastRefreshAt:   h.LastRefreshAt.Format(time.RFC3339),
		LastRefreshOK:   h.LastRefreshOK,
		RefreshAge:      refreshAge,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
