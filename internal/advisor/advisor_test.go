package advisor

import (
	"strings"
	"testing"
	"time"

	"portfolio-riskv1/internal/model"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty API key")
	}
	if _, err := New(Config{APIKey: "test-key"}); err != nil {
		t.Errorf("unexpected error with key set: %v", err)
	}
}

func TestRenderPrompt_ContainsSummaryFigures(t *testing.T) {
	summary := &model.PortfolioSummary{
		NetMarketExposure:      12500.50,
		PortfolioBeta:          1.234,
		PortfolioEstimateValue: 15000.50,
		ShortPercentage:        22.5,
		CashLikeValue:          2500,
		CashPercentage:         16.7,
		ComputedAt:             time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC),
	}
	groups := []model.PortfolioGroup{
		{Underlying: "AAPL", NetExposure: 15000, BetaAdjustedExposure: 18000},
		{Underlying: "TSLA", NetExposure: -2499.50, BetaAdjustedExposure: -3749.25, CallCount: 1, PutCount: 2, TotalDeltaExposure: -1200},
	}

	prompt := RenderPrompt(summary, groups)

	for _, want := range []string{
		"12500.50",
		"1.234",
		"22.5%",
		"AAPL: net 15000.00",
		"TSLA: net -2499.50",
		"1 calls, 2 puts",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestRenderPrompt_NoGroupsSection(t *testing.T) {
	prompt := RenderPrompt(&model.PortfolioSummary{}, nil)
	if strings.Contains(prompt, "Per-underlying") {
		t.Error("empty book must not render a per-underlying section")
	}
}
