// Package rating scores tickers 0–100 from daily closes using streaming
// indicators: trend (fast vs slow SMA), momentum (fast vs slow EMA), and an
// RSI mean-reversion band. The score is a read-only sidecar — exposure math
// never depends on it.
package rating

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"portfolio-riskv1/internal/logger"
	"portfolio-riskv1/internal/model"
)

// Config holds indicator periods and component weights.
type Config struct {
	FastSMA int // trend fast leg
	SlowSMA int // trend slow leg; also the minimum history length
	FastEMA int
	SlowEMA int
	RSI     int

	TrendWeight    float64
	MomentumWeight float64
	RSIWeight      float64
}

// DefaultConfig returns the standard 20/50 SMA, 12/26 EMA, RSI-14 setup.
func DefaultConfig() Config {
	return Config{
		FastSMA: 20, SlowSMA: 50,
		FastEMA: 12, SlowEMA: 26,
		RSI:            14,
		TrendWeight:    0.40,
		MomentumWeight: 0.35,
		RSIWeight:      0.25,
	}
}

// Engine scores close series. Stateless between calls.
type Engine struct {
	cfg Config
}

// NewEngine creates a rating engine; zero-valued config fields fall back to
// DefaultConfig.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.FastSMA <= 0 {
		cfg.FastSMA = def.FastSMA
	}
	if cfg.SlowSMA <= 0 {
		cfg.SlowSMA = def.SlowSMA
	}
	if cfg.FastEMA <= 0 {
		cfg.FastEMA = def.FastEMA
	}
	if cfg.SlowEMA <= 0 {
		cfg.SlowEMA = def.SlowEMA
	}
	if cfg.RSI <= 0 {
		cfg.RSI = def.RSI
	}
	if cfg.TrendWeight+cfg.MomentumWeight+cfg.RSIWeight == 0 {
		cfg.TrendWeight = def.TrendWeight
		cfg.MomentumWeight = def.MomentumWeight
		cfg.RSIWeight = def.RSIWeight
	}
	return &Engine{cfg: cfg}
}

// MinHistory is the shortest close series Rate accepts.
func (e *Engine) MinHistory() int { return e.cfg.SlowSMA }

// Rate scores one ticker from its daily closes, oldest first.
func (e *Engine) Rate(ticker string, closes []float64, now time.Time) (model.Rating, error) {
	if len(closes) < e.MinHistory() {
		return model.Rating{}, &model.InsufficientDataError{Ticker: ticker, Field: "rating_history"}
	}

	smaFast := NewSMA(e.cfg.FastSMA)
	smaSlow := NewSMA(e.cfg.SlowSMA)
	emaFast := NewEMA(e.cfg.FastEMA)
	emaSlow := NewEMA(e.cfg.SlowEMA)
	rsi := NewRSI(e.cfg.RSI)

	for _, c := range closes {
		if c <= 0 {
			return model.Rating{}, fmt.Errorf("rating %s: non-positive close %v", ticker, c)
		}
		smaFast.Update(c)
		smaSlow.Update(c)
		emaFast.Update(c)
		emaSlow.Update(c)
		rsi.Update(c)
	}

	// Trend: fast SMA above slow SMA is bullish. A ±12.5% spread saturates.
	trend := clamp(50+400*spread(smaFast.Value(), smaSlow.Value()), 0, 100)

	// Momentum: fast EMA above slow EMA, saturating at a ±10% spread.
	momentum := clamp(50+500*spread(emaFast.Value(), emaSlow.Value()), 0, 100)

	// RSI mean-reversion band: oversold scores high, overbought scores low.
	rsiVal := rsi.Value()
	rsiScore := clamp(100-rsiVal, 0, 100)

	score := e.cfg.TrendWeight*trend + e.cfg.MomentumWeight*momentum + e.cfg.RSIWeight*rsiScore

	return model.Rating{
		Ticker:     ticker,
		Score:      round2(score),
		Trend:      round2(trend),
		Momentum:   round2(momentum),
		RSI:        round2(rsiVal),
		ComputedAt: now,
	}, nil
}

// Service pulls history, rates tickers, and persists the results.
type Service struct {
	engine       *Engine
	history      model.HistorySource
	store        model.RatingStore // optional
	lookbackDays int
}

// NewService wires the rating pipeline. store may be nil.
func NewService(engine *Engine, history model.HistorySource, store model.RatingStore, lookbackDays int) *Service {
	if lookbackDays < engine.MinHistory() {
		lookbackDays = engine.MinHistory() * 2
	}
	return &Service{engine: engine, history: history, store: store, lookbackDays: lookbackDays}
}

// RateAll scores the given tickers. Tickers with too little history are
// skipped with a warning; the rating pass never fails the refresh. Each
// ticker gets a trace ID so its log lines can be correlated.
func (s *Service) RateAll(ctx context.Context, tickers []string, now time.Time) []model.Rating {
	ratings := make([]model.Rating, 0, len(tickers))
	for _, ticker := range tickers {
		tctx := logger.WithTraceID(ctx, logger.GenerateTraceID(ticker, now))
		closes, err := s.history.DailyCloses(tctx, ticker, s.lookbackDays)
		if err != nil {
			slog.Warn("rating closes fetch failed",
				append([]any{"ticker", ticker, "err", err}, logger.LogWithTrace(tctx)...)...)
			continue
		}
		r, err := s.engine.Rate(ticker, closes, now)
		if err != nil {
			slog.Warn("rating skipped",
				append([]any{"ticker", ticker, "err", err}, logger.LogWithTrace(tctx)...)...)
			continue
		}
		if s.store != nil {
			if err := s.store.SaveRating(r); err != nil {
				slog.Warn("rating save failed",
					append([]any{"ticker", ticker, "err", err}, logger.LogWithTrace(tctx)...)...)
			}
		}
		ratings = append(ratings, r)
	}
	return ratings
}

func spread(fast, slow float64) float64 {
	if slow == 0 {
		return 0
	}
	return (fast - slow) / slow
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
