package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These interfaces decouple the exposure engine from concrete market data and
// storage implementations (Alpaca, Redis, SQLite). Each implementation
// satisfies one or more of these interfaces.

// MarketSource supplies current market data for the exposure engine.
//
// Contract notes:
//   - Beta returns exactly 1.0 for the configured benchmark ticker, by
//     definition. A statistically estimated self-beta drifts to ~0.9–0.99 and
//     is not acceptable.
//   - ImpliedVolatility and RiskFreeRate may come from configured defaults;
//     when no default applies the implementation returns
//     *InsufficientDataError instead of inventing a value.
type MarketSource interface {
	// CurrentPrice returns the latest trade price for a ticker.
	CurrentPrice(ctx context.Context, ticker string) (float64, error)

	// Beta returns the beta of a ticker relative to the benchmark.
	Beta(ctx context.Context, ticker string) (float64, error)

	// ImpliedVolatility returns the IV input for option pricing.
	ImpliedVolatility(ctx context.Context, ticker string) (float64, error)

	// RiskFreeRate returns the annualized risk-free rate.
	RiskFreeRate(ctx context.Context) (float64, error)
}

// HistorySource supplies daily close series, oldest first.
type HistorySource interface {
	DailyCloses(ctx context.Context, ticker string, days int) ([]float64, error)
}

// QuoteCache is a TTL cache in front of the market source.
type QuoteCache interface {
	GetPrice(ctx context.Context, ticker string) (float64, bool, error)
	SetPrice(ctx context.Context, ticker string, price float64, ttl time.Duration) error
	Close() error
}

// HistoryStore persists daily closes for beta lookback reads.
type HistoryStore interface {
	SaveCloses(ticker string, day time.Time, closes []float64) error
	ReadCloses(ticker string, days int) ([]float64, error)
	Close() error
}

// Rating is one scored ticker produced by the rating engine.
type Rating struct {
	Ticker     string    `json:"ticker"`
	Score      float64   `json:"score"` // 0–100
	Trend      float64   `json:"trend"`
	Momentum   float64   `json:"momentum"`
	RSI        float64   `json:"rsi"`
	ComputedAt time.Time `json:"computed_at"`
}

// RatingStore persists and serves stock ratings.
type RatingStore interface {
	SaveRating(r Rating) error
	LatestRatings() ([]Rating, error)
	Close() error
}

// HoldingsSource supplies raw holdings rows (CSV file, broker API, ...).
type HoldingsSource interface {
	Holdings(ctx context.Context) ([]RawRow, error)
}
