package model

// PortfolioGroup collects one underlying's stock position (if any) together
// with all option positions written on it. Groups are rebuilt from scratch on
// every recompute pass; they are never patched incrementally, so the derived
// totals can not drift from the positions they were built from.
type PortfolioGroup struct {
	Underlying string           `json:"underlying"`
	Stock      *StockPosition   `json:"stock,omitempty"` // nil for options-only groups
	Options    []OptionPosition `json:"options,omitempty"`

	// Filled in by Aggregate.
	NetExposure          float64 `json:"net_exposure"`           // stock market exposure + Σ option delta exposure
	BetaAdjustedExposure float64 `json:"beta_adjusted_exposure"` // same with beta weighting
	TotalDeltaExposure   float64 `json:"total_delta_exposure"`   // Σ option delta exposure, signed

	// Display-only tallies; not part of any exposure math.
	CallCount int `json:"call_count"`
	PutCount  int `json:"put_count"`
}
