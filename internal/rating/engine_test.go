package rating

import (
	"context"
	"errors"
	"testing"
	"time"

	"portfolio-riskv1/internal/model"
)

var ratedAt = time.Date(2025, 1, 2, 16, 0, 0, 0, time.UTC)

func flatSeries(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func driftSeries(n int, start, dailyReturn float64) []float64 {
	s := make([]float64, n)
	s[0] = start
	for i := 1; i < n; i++ {
		s[i] = s[i-1] * (1 + dailyReturn)
	}
	return s
}

func TestEngine_FlatSeriesIsNeutralTrend(t *testing.T) {
	// A perfectly flat book: SMAs and EMAs coincide (trend=momentum=50) and
	// every delta is zero, which Wilder scores as RSI 100 (rsiScore 0).
	// Score = 0.40*50 + 0.35*50 + 0.25*0 = 37.5
	e := NewEngine(Config{})
	r, err := e.Rate("FLAT", flatSeries(60, 100), ratedAt)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	assertClose(t, "trend", r.Trend, 50, 0.01)
	assertClose(t, "momentum", r.Momentum, 50, 0.01)
	assertClose(t, "rsi", r.RSI, 100, 0.01)
	assertClose(t, "score", r.Score, 37.5, 0.01)
	if !r.ComputedAt.Equal(ratedAt) {
		t.Errorf("ComputedAt not set: %v", r.ComputedAt)
	}
}

func TestEngine_UptrendScoresAboveNeutral(t *testing.T) {
	e := NewEngine(Config{})
	r, err := e.Rate("UP", driftSeries(60, 100, 0.01), ratedAt)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if r.Trend <= 50 {
		t.Errorf("uptrend: expected trend > 50, got %v", r.Trend)
	}
	if r.Momentum <= 50 {
		t.Errorf("uptrend: expected momentum > 50, got %v", r.Momentum)
	}
	if r.RSI != 100 {
		t.Errorf("monotone uptrend: expected RSI 100, got %v", r.RSI)
	}
	if r.Score < 0 || r.Score > 100 {
		t.Errorf("score out of range: %v", r.Score)
	}
}

func TestEngine_DowntrendScoresBelowUptrend(t *testing.T) {
	e := NewEngine(Config{})
	up, err := e.Rate("UP", driftSeries(60, 100, 0.01), ratedAt)
	if err != nil {
		t.Fatalf("rate up: %v", err)
	}
	down, err := e.Rate("DOWN", driftSeries(60, 100, -0.01), ratedAt)
	if err != nil {
		t.Fatalf("rate down: %v", err)
	}
	if down.Trend >= up.Trend || down.Momentum >= up.Momentum {
		t.Errorf("downtrend must score below uptrend: down=%+v up=%+v", down, up)
	}
}

func TestEngine_InsufficientHistory(t *testing.T) {
	e := NewEngine(Config{})
	_, err := e.Rate("THIN", flatSeries(10, 100), ratedAt)
	var ide *model.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if ide.Ticker != "THIN" {
		t.Errorf("error must name the ticker, got %q", ide.Ticker)
	}
}

func TestEngine_NonPositiveCloseFails(t *testing.T) {
	e := NewEngine(Config{})
	closes := flatSeries(60, 100)
	closes[30] = 0
	if _, err := e.Rate("BAD", closes, ratedAt); err == nil {
		t.Error("expected error for non-positive close")
	}
}

// fakeHistory implements model.HistorySource for service tests.
type fakeHistory struct {
	closes map[string][]float64
}

func (f *fakeHistory) DailyCloses(_ context.Context, ticker string, _ int) ([]float64, error) {
	c, ok := f.closes[ticker]
	if !ok {
		return nil, errors.New("no bars")
	}
	return c, nil
}

// fakeRatingStore records saved ratings.
type fakeRatingStore struct {
	saved []model.Rating
}

func (f *fakeRatingStore) SaveRating(r model.Rating) error {
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeRatingStore) LatestRatings() ([]model.Rating, error) { return f.saved, nil }
func (f *fakeRatingStore) Close() error                           { return nil }

func TestService_RateAllSkipsThinTickers(t *testing.T) {
	hist := &fakeHistory{closes: map[string][]float64{
		"AAPL": driftSeries(60, 100, 0.005),
		"THIN": flatSeries(5, 100),
	}}
	store := &fakeRatingStore{}
	svc := NewService(NewEngine(Config{}), hist, store, 120)

	ratings := svc.RateAll(context.Background(), []string{"AAPL", "THIN", "GHOST"}, ratedAt)

	if len(ratings) != 1 {
		t.Fatalf("expected 1 rating (thin and missing tickers skipped), got %d", len(ratings))
	}
	if ratings[0].Ticker != "AAPL" {
		t.Errorf("expected AAPL rated, got %s", ratings[0].Ticker)
	}
	if len(store.saved) != 1 {
		t.Errorf("expected 1 persisted rating, got %d", len(store.saved))
	}
}
