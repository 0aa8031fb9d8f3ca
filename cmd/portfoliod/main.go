package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-riskv1/config"
	"portfolio-riskv1/internal/advisor"
	"portfolio-riskv1/internal/gateway"
	"portfolio-riskv1/internal/ingest"
	"portfolio-riskv1/internal/logger"
	"portfolio-riskv1/internal/marketdata"
	"portfolio-riskv1/internal/marketdata/alpaca"
	"portfolio-riskv1/internal/marketdata/cache"
	"portfolio-riskv1/internal/markethours"
	"portfolio-riskv1/internal/metrics"
	"portfolio-riskv1/internal/model"
	"portfolio-riskv1/internal/notification"
	"portfolio-riskv1/internal/portfolio"
	"portfolio-riskv1/internal/rating"
	sqlitestore "portfolio-riskv1/internal/store/sqlite"
	"portfolio-riskv1/pkg/brokerlink"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[portfoliod] starting...")

	cfg := config.Load()
	logger.Init("portfoliod", slog.LevelInfo)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite history + rating store ----
	os.MkdirAll("data", 0o755)
	store, err := sqlitestore.New(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[portfoliod] sqlite init failed: %v", err)
	}
	defer store.Close()
	log.Println("[portfoliod] sqlite store ready")

	// ---- Redis quote cache ----
	qc := cache.New(cfg.RedisAddr, cfg.RedisPassword)
	defer qc.Close()
	qc.Breaker().OnStateChange = func(from, to cache.BreakerState) {
		log.Printf("[portfoliod] quote cache breaker: %s -> %s", from, to)
		prom.BreakerState.Set(float64(to))
		if to == cache.BreakerOpen {
			prom.BreakerTrips.Inc()
		}
	}
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := qc.Ping(pingCtx); err != nil {
		log.Printf("[portfoliod] WARNING: redis unreachable: %v (continuing, breaker will cover it)", err)
	} else {
		log.Println("[portfoliod] redis quote cache ready")
	}
	pingCancel()

	health.StartLivenessChecker(ctx, qc.Client(), store.DB(), 10*time.Second)

	// ---- Market data provider ----
	source := alpaca.New()
	provider := marketdata.NewProvider(marketdata.Config{
		BenchmarkTicker:     cfg.BenchmarkTicker,
		DefaultImpliedVol:   cfg.DefaultIV,
		DefaultRiskFreeRate: cfg.RiskFreeRate,
		BetaLookbackDays:    cfg.BetaLookbackDays,
		QuoteTTL:            cfg.QuoteTTL,
	}, source, qc, store)
	provider.OnCacheHit = func() { prom.QuoteCacheHits.Inc() }
	provider.OnCacheMiss = func() { prom.QuoteCacheMisses.Inc() }
	provider.OnAPICall = func(kind string) { prom.ProviderCalls.WithLabelValues(kind).Inc() }

	// ---- Exposure engine ----
	builder := portfolio.NewBuilder(provider)
	engine := portfolio.NewEngine(builder)
	engine.OnRefresh = func(d time.Duration, err error) {
		prom.RefreshTotal.Inc()
		prom.RefreshDur.Observe(d.Seconds())
		if err != nil {
			prom.RefreshErrors.Inc()
		}
		health.SetRefreshResult(time.Now(), err == nil)
	}

	// ---- Holdings ----
	rows, err := loadHoldings(ctx, cfg)
	if err != nil {
		log.Fatalf("[portfoliod] holdings load failed: %v", err)
	}
	engine.LoadRows(rows)

	// ---- Ratings ----
	ratingSvc := rating.NewService(rating.NewEngine(rating.DefaultConfig()), provider, store, cfg.RatingLookbackDays)

	// ---- Alerting ----
	monitor := notification.NewMonitor(buildNotifier(cfg), cfg.ShortPctThreshold)

	// ---- Advisor (optional) ----
	var adv gateway.Advisor
	if cfg.AnthropicAPIKey != "" {
		svc, err := advisor.New(advisor.Config{APIKey: cfg.AnthropicAPIKey, Model: cfg.AdvisorModel})
		if err != nil {
			log.Printf("[portfoliod] WARNING: advisor disabled: %v", err)
		} else {
			adv = svc
			log.Println("[portfoliod] advisor ready")
		}
	}

	// ---- Gateway ----
	hub := gateway.NewHub()
	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, gateway.Deps{
		Engine:  engine,
		Ratings: store,
		Advisor: adv,
		Start:   time.Now(),
	})
	gwSrv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}
	go func() {
		log.Printf("[portfoliod] gateway listening on %s", cfg.GatewayAddr)
		if err := gwSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[portfoliod] gateway error: %v", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				prom.WSClients.Set(float64(hub.ClientCount()))
			}
		}
	}()

	// ---- Refresh loop ----
	refresh := func() {
		summary, err := engine.Refresh(ctx)
		monitor.RefreshResult(ctx, err)
		if err != nil {
			log.Printf("[portfoliod] refresh failed, previous snapshot stays published: %v", err)
			return
		}

		_, groups, _ := engine.Snapshot()
		hub.BroadcastSummary(summary, groups)
		monitor.CheckSummary(ctx, summary)

		prom.NetExposure.Set(summary.NetMarketExposure)
		prom.PortfolioBeta.Set(summary.PortfolioBeta)
		prom.ShortPct.Set(summary.ShortPercentage)
		prom.GroupsGauge.Set(float64(len(groups)))
		setPositionGauges(prom, summary, groups)

		tickers := make([]string, 0, len(groups))
		for _, g := range groups {
			tickers = append(tickers, g.Underlying)
		}
		ratingSvc.RateAll(ctx, tickers, time.Now())
	}

	go func() {
		// Always run one pass at startup so the dashboard has a snapshot,
		// even outside market hours.
		refresh()

		for {
			now := time.Now()
			if cfg.MarketHoursOnly && !markethours.IsMarketOpen(now) {
				prom.MarketState.Set(0)
				next := markethours.NextOpen(now)
				wait := next.Sub(now)
				log.Printf("[portfoliod] %s", markethours.StatusString(now))
				log.Printf("[portfoliod] refresh idle for %v until %s",
					wait.Truncate(time.Second), next.In(markethours.ET).Format("Mon 15:04"))
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
				continue
			}
			prom.MarketState.Set(1)

			select {
			case <-ctx.Done():
				return
			case <-time.After(cfg.RefreshInterval):
				refresh()
			}
		}
	}()

	log.Println("[portfoliod] ╔══════════════════════════════════════════════════════════╗")
	log.Println("[portfoliod] ║  Portfolio Exposure & Risk Engine                        ║")
	log.Println("[portfoliod] ║                                                          ║")
	log.Println("[portfoliod] ║  [Holdings] → [Classify] → [Price/Delta] → [Aggregate]   ║")
	log.Printf("[portfoliod] ║  Benchmark: %-6s  Refresh: %-10v  Gateway: %-6s ║",
		cfg.BenchmarkTicker, cfg.RefreshInterval, cfg.GatewayAddr)
	log.Println("[portfoliod] ╚══════════════════════════════════════════════════════════╝")
	log.Printf("[portfoliod] %s", markethours.StatusString(time.Now()))

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[portfoliod] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	gwSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	log.Println("[portfoliod] shutdown complete.")
}

// loadHoldings reads the raw book from the configured source.
func loadHoldings(ctx context.Context, cfg *config.Config) ([]model.RawRow, error) {
	if cfg.HoldingsSource == "broker" {
		broker := brokerlink.New(brokerlink.Config{
			APIKey:     cfg.BrokerAPIKey,
			ClientCode: cfg.BrokerClientCode,
			Password:   cfg.BrokerPassword,
			TOTPSecret: cfg.BrokerTOTPSecret,
		})
		log.Println("[portfoliod] pulling holdings from broker")
		return broker.Holdings(ctx)
	}
	log.Printf("[portfoliod] reading holdings from %s", cfg.CSVPath)
	return ingest.ReadFile(cfg.CSVPath)
}

// buildNotifier assembles the alert fan-out from whatever channels are
// configured. The log notifier is always on.
func buildNotifier(cfg *config.Config) notification.Notifier {
	backends := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
		log.Println("[portfoliod] telegram alerts enabled")
	}
	if cfg.AlertWebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.AlertWebhookURL))
		log.Println("[portfoliod] webhook alerts enabled")
	}
	if len(backends) == 1 {
		return backends[0]
	}
	return notification.NewMultiNotifier(backends...)
}

func setPositionGauges(prom *metrics.Metrics, summary *model.PortfolioSummary, groups []model.PortfolioGroup) {
	stocks, options := 0, 0
	for _, g := range groups {
		if g.Stock != nil {
			stocks++
		}
		options += len(g.Options)
	}
	prom.PositionsGauge.WithLabelValues("stock").Set(float64(stocks))
	prom.PositionsGauge.WithLabelValues("option").Set(float64(options))
	prom.PositionsGauge.WithLabelValues("cash_like").Set(float64(len(summary.CashLikePositions)))
}
