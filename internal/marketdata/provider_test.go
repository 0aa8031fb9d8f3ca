package marketdata

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"portfolio-riskv1/internal/model"
)

// fakeSource is an in-memory Source for provider tests.
type fakeSource struct {
	prices     map[string]float64
	closes     map[string][]float64
	priceCalls int
	barCalls   int
}

func (f *fakeSource) LatestPrice(_ context.Context, ticker string) (float64, error) {
	f.priceCalls++
	p, ok := f.prices[ticker]
	if !ok {
		return 0, errors.New("no trade")
	}
	return p, nil
}

func (f *fakeSource) DailyCloses(_ context.Context, ticker string, _ int) ([]float64, error) {
	f.barCalls++
	c, ok := f.closes[ticker]
	if !ok {
		return nil, errors.New("no bars")
	}
	return c, nil
}

// series generates n closes following bench moves scaled by beta.
func series(n int, start, beta float64) (asset, bench []float64) {
	asset = make([]float64, n)
	bench = make([]float64, n)
	asset[0], bench[0] = start, start
	for i := 1; i < n; i++ {
		// deterministic alternating benchmark return: +1%, -0.5%, ...
		r := 0.01
		if i%2 == 0 {
			r = -0.005
		}
		bench[i] = bench[i-1] * (1 + r)
		asset[i] = asset[i-1] * (1 + beta*r)
	}
	return asset, bench
}

func TestComputeBeta_ScaledSeries(t *testing.T) {
	asset, bench := series(120, 100, 1.5)
	beta, err := ComputeBeta("TEST", asset, bench)
	if err != nil {
		t.Fatalf("compute beta: %v", err)
	}
	if math.Abs(beta-1.5) > 0.01 {
		t.Errorf("expected beta ≈ 1.5, got %.4f", beta)
	}
}

func TestComputeBeta_InsufficientHistory(t *testing.T) {
	asset, bench := series(5, 100, 1.0)
	_, err := ComputeBeta("THIN", asset, bench)
	var ide *model.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if ide.Ticker != "THIN" {
		t.Errorf("error must name the ticker, got %q", ide.Ticker)
	}
}

func TestProvider_BenchmarkBetaIsExactlyOne(t *testing.T) {
	// The defining invariant: no regression, no drift, exactly 1.0 — even
	// with NO data source behind it.
	p := NewProvider(Config{BenchmarkTicker: "SPY"}, &fakeSource{}, nil, nil)
	beta, err := p.Beta(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("benchmark beta: %v", err)
	}
	if beta != 1.0 {
		t.Errorf("benchmark beta must be exactly 1.0, got %v", beta)
	}
}

func TestProvider_BetaFromHistory(t *testing.T) {
	asset, bench := series(120, 100, 1.2)
	src := &fakeSource{closes: map[string][]float64{"AAPL": asset, "SPY": bench}}
	p := NewProvider(Config{BenchmarkTicker: "SPY"}, src, nil, nil)

	beta, err := p.Beta(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("beta: %v", err)
	}
	if math.Abs(beta-1.2) > 0.01 {
		t.Errorf("expected beta ≈ 1.2, got %.4f", beta)
	}

	// Second call hits the in-memory memo, not the API.
	calls := src.barCalls
	if _, err := p.Beta(context.Background(), "AAPL"); err != nil {
		t.Fatalf("memoized beta: %v", err)
	}
	if src.barCalls != calls {
		t.Errorf("expected beta memo hit, got %d extra bar calls", src.barCalls-calls)
	}
}

func TestProvider_CurrentPriceValidation(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"AAPL": 150, "BAD": 0}}
	p := NewProvider(Config{BenchmarkTicker: "SPY"}, src, nil, nil)

	price, err := p.CurrentPrice(context.Background(), "AAPL")
	if err != nil || price != 150 {
		t.Fatalf("price: %v %v", price, err)
	}

	_, err = p.CurrentPrice(context.Background(), "BAD")
	var ipe *model.InvalidPriceError
	if !errors.As(err, &ipe) {
		t.Fatalf("expected InvalidPriceError for zero upstream price, got %v", err)
	}
}

func TestProvider_DefaultsPolicy(t *testing.T) {
	ctx := context.Background()

	// Configured defaults are served.
	p := NewProvider(Config{BenchmarkTicker: "SPY", DefaultImpliedVol: 0.30, DefaultRiskFreeRate: 0.05}, &fakeSource{}, nil, nil)
	iv, err := p.ImpliedVolatility(ctx, "AAPL")
	if err != nil || iv != 0.30 {
		t.Errorf("configured IV: got %v, %v", iv, err)
	}
	r, err := p.RiskFreeRate(ctx)
	if err != nil || r != 0.05 {
		t.Errorf("configured rate: got %v, %v", r, err)
	}

	// Unconfigured defaults fail fast — no silent 30%/5%.
	bare := NewProvider(Config{BenchmarkTicker: "SPY"}, &fakeSource{}, nil, nil)
	var ide *model.InsufficientDataError
	if _, err := bare.ImpliedVolatility(ctx, "AAPL"); !errors.As(err, &ide) {
		t.Errorf("expected InsufficientDataError for unset IV, got %v", err)
	}
	if _, err := bare.RiskFreeRate(ctx); !errors.As(err, &ide) {
		t.Errorf("expected InsufficientDataError for unset rate, got %v", err)
	}
}

// memHistory is an in-memory HistoryStore.
type memHistory struct {
	closes map[string][]float64
	saved  int
}

func (m *memHistory) SaveCloses(ticker string, _ time.Time, closes []float64) error {
	if m.closes == nil {
		m.closes = make(map[string][]float64)
	}
	m.closes[ticker] = closes
	m.saved++
	return nil
}

func (m *memHistory) ReadCloses(ticker string, _ int) ([]float64, error) {
	return m.closes[ticker], nil
}

func (m *memHistory) Close() error { return nil }

func TestProvider_HistoryFallback(t *testing.T) {
	asset, _ := series(120, 100, 1.0)
	hist := &memHistory{closes: map[string][]float64{"OLD": asset}}
	p := NewProvider(Config{BenchmarkTicker: "SPY"}, &fakeSource{}, nil, hist)

	closes, err := p.DailyCloses(context.Background(), "OLD", 120)
	if err != nil {
		t.Fatalf("history fallback: %v", err)
	}
	if len(closes) != 120 {
		t.Errorf("expected 120 stored closes, got %d", len(closes))
	}

	// Upstream success path writes through to the store.
	src := &fakeSource{closes: map[string][]float64{"NEW": asset}}
	p2 := NewProvider(Config{BenchmarkTicker: "SPY"}, src, nil, hist)
	if _, err := p2.DailyCloses(context.Background(), "NEW", 120); err != nil {
		t.Fatalf("daily closes: %v", err)
	}
	if hist.closes["NEW"] == nil {
		t.Error("closes not written through to history store")
	}
}
