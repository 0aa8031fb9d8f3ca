package model

import "time"

// ExposureBreakdown is an immutable snapshot of one exposure bucket
// (long, short, or options-only). Short buckets store positive magnitudes.
type ExposureBreakdown struct {
	StockExposure       float64 `json:"stock_exposure"`
	StockBetaAdjusted   float64 `json:"stock_beta_adjusted"`
	OptionDeltaExposure float64 `json:"option_delta_exposure"`
	OptionBetaAdjusted  float64 `json:"option_beta_adjusted"`
	TotalExposure       float64 `json:"total_exposure"`
	TotalBetaAdjusted   float64 `json:"total_beta_adjusted"`

	// Per-ticker detail for dashboard drill-down.
	Components map[string]float64 `json:"components,omitempty"`
}

// PortfolioSummary is the portfolio-level result of one full recompute pass.
// A summary is never mutated after construction; the next pass supersedes it.
//
// Invariant: PortfolioEstimateValue == NetMarketExposure + CashLikeValue,
// exactly. No other formula is permitted anywhere in the codebase.
type PortfolioSummary struct {
	NetMarketExposure float64 `json:"net_market_exposure"`
	PortfolioBeta     float64 `json:"portfolio_beta"` // 0.0 for a flat book, by convention

	LongExposure    ExposureBreakdown `json:"long_exposure"`
	ShortExposure   ExposureBreakdown `json:"short_exposure"` // positive magnitudes
	OptionsExposure ExposureBreakdown `json:"options_exposure"`

	ShortPercentage float64 `json:"short_percentage"`

	CashLikePositions []StockPosition `json:"cash_like_positions,omitempty"`
	CashLikeValue     float64         `json:"cash_like_value"`
	CashPercentage    float64         `json:"cash_percentage"`

	PortfolioEstimateValue float64 `json:"portfolio_estimate_value"`

	ComputedAt time.Time `json:"computed_at"`
}
