// Package marketdata implements the MarketSource port: live prices and beta
// from a broker data API, fronted by a Redis quote cache, with configured
// defaults for the option-pricing inputs that have no live source yet.
package marketdata

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"portfolio-riskv1/internal/model"
)

// Source is the narrow upstream a Provider needs (implemented by the Alpaca
// client; swappable for tests).
type Source interface {
	LatestPrice(ctx context.Context, ticker string) (float64, error)
	DailyCloses(ctx context.Context, ticker string, days int) ([]float64, error)
}

// Config holds the provider's explicit configuration. No process-wide state:
// the engine core never sees environment variables or globals.
type Config struct {
	BenchmarkTicker string // e.g. "SPY" — beta 1.0 by definition

	// Defaults for inputs with no live source. Zero means "not configured":
	// requests then fail with InsufficientDataError rather than inventing a
	// number.
	DefaultImpliedVol   float64 // e.g. 0.30
	DefaultRiskFreeRate float64 // e.g. 0.05

	BetaLookbackDays int           // daily closes fetched per beta estimate
	QuoteTTL         time.Duration // price cache TTL
	BetaTTL          time.Duration // in-memory beta memo TTL
}

// Provider implements model.MarketSource and model.HistorySource.
type Provider struct {
	cfg     Config
	source  Source
	cache   model.QuoteCache   // optional
	history model.HistoryStore // optional fallback for closes

	mu    sync.Mutex
	betas map[string]betaEntry

	// Metrics hooks (optional, set externally).
	OnCacheHit  func()
	OnCacheMiss func()
	OnAPICall   func(kind string)
}

type betaEntry struct {
	beta float64
	at   time.Time
}

// NewProvider wires a Provider. cache and history may be nil.
func NewProvider(cfg Config, source Source, cache model.QuoteCache, history model.HistoryStore) *Provider {
	if cfg.BetaLookbackDays <= 0 {
		cfg.BetaLookbackDays = 180
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 60 * time.Second
	}
	if cfg.BetaTTL <= 0 {
		cfg.BetaTTL = 6 * time.Hour
	}
	return &Provider{
		cfg:     cfg,
		source:  source,
		cache:   cache,
		history: history,
		betas:   make(map[string]betaEntry),
	}
}

// CurrentPrice returns the latest trade price, cache first.
func (p *Provider) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	if p.cache != nil {
		if price, ok, err := p.cache.GetPrice(ctx, ticker); err == nil && ok {
			p.tick(p.OnCacheHit)
			return price, nil
		}
		p.tick(p.OnCacheMiss)
	}

	p.api("price")
	price, err := p.source.LatestPrice(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("latest price %s: %w", ticker, err)
	}
	if price <= 0 {
		return 0, &model.InvalidPriceError{Ticker: ticker, Price: price}
	}

	if p.cache != nil {
		if err := p.cache.SetPrice(ctx, ticker, price, p.cfg.QuoteTTL); err != nil {
			log.Printf("[marketdata] WARNING: cache set %s failed: %v", ticker, err)
		}
	}
	return price, nil
}

// Beta returns a ticker's beta against the configured benchmark.
//
// The benchmark itself short-circuits to exactly 1.0 — by definition, not by
// regression — before any data is touched.
func (p *Provider) Beta(ctx context.Context, ticker string) (float64, error) {
	if ticker == p.cfg.BenchmarkTicker {
		return 1.0, nil
	}

	p.mu.Lock()
	if e, ok := p.betas[ticker]; ok && time.Since(e.at) < p.cfg.BetaTTL {
		p.mu.Unlock()
		return e.beta, nil
	}
	p.mu.Unlock()

	assetCloses, err := p.DailyCloses(ctx, ticker, p.cfg.BetaLookbackDays)
	if err != nil {
		return 0, err
	}
	benchCloses, err := p.DailyCloses(ctx, p.cfg.BenchmarkTicker, p.cfg.BetaLookbackDays)
	if err != nil {
		return 0, err
	}

	beta, err := ComputeBeta(ticker, assetCloses, benchCloses)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	p.betas[ticker] = betaEntry{beta: beta, at: time.Now()}
	p.mu.Unlock()
	return beta, nil
}

// DailyCloses fetches a close series, falling back to the local history store
// when the upstream API has nothing for the ticker.
func (p *Provider) DailyCloses(ctx context.Context, ticker string, days int) ([]float64, error) {
	p.api("bars")
	closes, err := p.source.DailyCloses(ctx, ticker, days)
	if err == nil && len(closes) > 0 {
		if p.history != nil {
			if herr := p.history.SaveCloses(ticker, time.Now(), closes); herr != nil {
				log.Printf("[marketdata] WARNING: history save %s failed: %v", ticker, herr)
			}
		}
		return closes, nil
	}

	if p.history != nil {
		stored, herr := p.history.ReadCloses(ticker, days)
		if herr == nil && len(stored) > 0 {
			log.Printf("[marketdata] serving %d stored closes for %s (upstream: %v)", len(stored), ticker, err)
			return stored, nil
		}
	}

	if err != nil {
		return nil, fmt.Errorf("daily closes %s: %w", ticker, err)
	}
	return nil, &model.InsufficientDataError{Ticker: ticker, Field: "history"}
}

// ImpliedVolatility returns the configured default IV. There is no live
// options-chain source yet; an unset default is an InsufficientDataError, not
// a silent 30%.
func (p *Provider) ImpliedVolatility(_ context.Context, ticker string) (float64, error) {
	if p.cfg.DefaultImpliedVol <= 0 {
		return 0, &model.InsufficientDataError{Ticker: ticker, Field: "implied_volatility"}
	}
	return p.cfg.DefaultImpliedVol, nil
}

// RiskFreeRate returns the configured default rate, same policy as IV.
func (p *Provider) RiskFreeRate(_ context.Context) (float64, error) {
	if p.cfg.DefaultRiskFreeRate <= 0 {
		return 0, &model.InsufficientDataError{Field: "risk_free_rate"}
	}
	return p.cfg.DefaultRiskFreeRate, nil
}

func (p *Provider) tick(fn func()) {
	if fn != nil {
		fn()
	}
}

func (p *Provider) api(kind string) {
	if p.OnAPICall != nil {
		p.OnAPICall(kind)
	}
}
