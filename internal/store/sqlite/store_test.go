package sqlite

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"portfolio-riskv1/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ClosesRoundTrip(t *testing.T) {
	s := testStore(t)
	asOf := time.Date(2025, 1, 2, 21, 0, 0, 0, time.UTC)

	written := []float64{100, 101.5, 99.75, 102, 103.25}
	if err := s.SaveCloses("AAPL", asOf, written); err != nil {
		t.Fatalf("save closes: %v", err)
	}

	got, err := s.ReadCloses("AAPL", 10)
	if err != nil {
		t.Fatalf("read closes: %v", err)
	}
	if len(got) != len(written) {
		t.Fatalf("expected %d closes, got %d", len(written), len(got))
	}
	// Oldest first, same order as written.
	for i := range written {
		if math.Abs(got[i]-written[i]) > 1e-9 {
			t.Errorf("close[%d]: expected %v, got %v", i, written[i], got[i])
		}
	}
}

func TestStore_ReadClosesLimit(t *testing.T) {
	s := testStore(t)
	asOf := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	series := make([]float64, 30)
	for i := range series {
		series[i] = 100 + float64(i)
	}
	if err := s.SaveCloses("TSLA", asOf, series); err != nil {
		t.Fatalf("save closes: %v", err)
	}

	got, err := s.ReadCloses("TSLA", 5)
	if err != nil {
		t.Fatalf("read closes: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 closes, got %d", len(got))
	}
	// The 5 most recent, still oldest first: 125..129.
	if got[0] != 125 || got[4] != 129 {
		t.Errorf("expected tail [125..129], got %v", got)
	}
}

func TestStore_SaveClosesIdempotent(t *testing.T) {
	s := testStore(t)
	asOf := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	series := []float64{100, 101, 102}

	// Same series twice must not duplicate rows.
	for i := 0; i < 2; i++ {
		if err := s.SaveCloses("NVDA", asOf, series); err != nil {
			t.Fatalf("save closes: %v", err)
		}
	}

	got, err := s.ReadCloses("NVDA", 100)
	if err != nil {
		t.Fatalf("read closes: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 closes after re-save, got %d", len(got))
	}
}

func TestStore_UnknownTickerIsEmpty(t *testing.T) {
	s := testStore(t)
	got, err := s.ReadCloses("GHOST", 10)
	if err != nil {
		t.Fatalf("read closes: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no closes, got %v", got)
	}
}

func TestStore_RatingsUpsertAndOrder(t *testing.T) {
	s := testStore(t)
	at := time.Date(2025, 1, 2, 16, 0, 0, 0, time.UTC)

	ratings := []model.Rating{
		{Ticker: "AAPL", Score: 72.5, Trend: 60, Momentum: 80, RSI: 55, ComputedAt: at},
		{Ticker: "TSLA", Score: 41.0, Trend: 30, Momentum: 50, RSI: 62, ComputedAt: at},
		{Ticker: "NVDA", Score: 88.0, Trend: 90, Momentum: 85, RSI: 70, ComputedAt: at},
	}
	for _, r := range ratings {
		if err := s.SaveRating(r); err != nil {
			t.Fatalf("save rating %s: %v", r.Ticker, err)
		}
	}

	// Re-rating a ticker replaces its row.
	if err := s.SaveRating(model.Rating{Ticker: "TSLA", Score: 95, Trend: 92, Momentum: 96, RSI: 65, ComputedAt: at.Add(time.Hour)}); err != nil {
		t.Fatalf("re-save rating: %v", err)
	}

	got, err := s.LatestRatings()
	if err != nil {
		t.Fatalf("latest ratings: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 ratings, got %d", len(got))
	}
	// Highest score first.
	if got[0].Ticker != "TSLA" || got[0].Score != 95 {
		t.Errorf("expected updated TSLA first, got %+v", got[0])
	}
	if got[1].Ticker != "NVDA" || got[2].Ticker != "AAPL" {
		t.Errorf("unexpected order: %s, %s", got[1].Ticker, got[2].Ticker)
	}
	if !got[0].ComputedAt.Equal(at.Add(time.Hour)) {
		t.Errorf("computed_at not round-tripped: %v", got[0].ComputedAt)
	}
}
