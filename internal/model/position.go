package model

import (
	"fmt"
	"time"
)

// PositionKind discriminates the position variant. The classifier is the only
// producer of Classified values, so downstream code can switch on Kind without
// attribute sniffing.
type PositionKind int

const (
	KindStock PositionKind = iota
	KindOption
)

func (k PositionKind) String() string {
	if k == KindOption {
		return "OPTION"
	}
	return "STOCK"
}

// OptionType is the contract right: CALL or PUT.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// StockPosition is a single equity (or cash-equivalent) holding.
// Derived fields are recomputed together whenever Price or Beta changes.
type StockPosition struct {
	Ticker      string `json:"ticker"`
	Description string `json:"description,omitempty"`
	Quantity    int64  `json:"quantity"` // positive = long, negative = short

	Price float64 `json:"price"`
	Beta  float64 `json:"beta"`

	CashLike bool `json:"cash_like"`

	// Derived
	MarketExposure       float64 `json:"market_exposure"`        // Quantity * Price
	BetaAdjustedExposure float64 `json:"beta_adjusted_exposure"` // MarketExposure * Beta
}

// Recompute refreshes the derived exposure fields from Quantity, Price, Beta.
func (p *StockPosition) Recompute() {
	p.MarketExposure = float64(p.Quantity) * p.Price
	p.BetaAdjustedExposure = p.MarketExposure * p.Beta
}

// MarketValue is Quantity * Price. For cash-like positions this is the value
// that feeds CashLikeValue rather than directional exposure.
func (p *StockPosition) MarketValue() float64 {
	return float64(p.Quantity) * p.Price
}

// OptionPosition is a single option contract holding. One contract controls
// 100 shares of the underlying.
//
// Delta and UnderlyingPrice are only ever written together: a fresh underlying
// price with a stale delta is an inconsistent state that must not escape an
// update.
type OptionPosition struct {
	Symbol     string `json:"symbol"` // raw contract symbol from the export
	Underlying string `json:"underlying"`
	Quantity   int64  `json:"quantity"` // contracts; positive = long, negative = short

	Price  float64    `json:"price"` // option premium per share
	Strike float64    `json:"strike"`
	Expiry time.Time  `json:"expiry"`
	Type   OptionType `json:"type"`

	UnderlyingPrice   float64 `json:"underlying_price"`
	UnderlyingBeta    float64 `json:"underlying_beta"`
	ImpliedVolatility float64 `json:"implied_volatility"`

	// Derived. Delta for calls ∈ [0,1], for puts ∈ [-1,0].
	Delta                float64 `json:"delta"`
	NotionalValue        float64 `json:"notional_value"`         // 100 * |Quantity| * UnderlyingPrice, >= 0
	DeltaExposure        float64 `json:"delta_exposure"`         // Delta * NotionalValue * sign(Quantity)
	BetaAdjustedExposure float64 `json:"beta_adjusted_exposure"` // DeltaExposure * UnderlyingBeta
}

// RecomputeWithDelta refreshes the derived fields for a given delta.
// Delta, notional, delta exposure and beta-adjusted exposure move as one step.
func (p *OptionPosition) RecomputeWithDelta(delta float64) {
	p.Delta = delta
	qty := p.Quantity
	abs := qty
	if abs < 0 {
		abs = -abs
	}
	p.NotionalValue = 100 * float64(abs) * p.UnderlyingPrice
	sign := 1.0
	if qty < 0 {
		sign = -1.0
	}
	p.DeltaExposure = delta * p.NotionalValue * sign
	p.BetaAdjustedExposure = p.DeltaExposure * p.UnderlyingBeta
}

// TimeToExpiry returns the remaining contract life in years at the given
// instant. Expired contracts return 0, never negative.
func (p *OptionPosition) TimeToExpiry(now time.Time) float64 {
	d := p.Expiry.Sub(now)
	if d <= 0 {
		return 0
	}
	return d.Hours() / 24 / 365
}

// ContractLabel renders a human-readable contract description, e.g.
// "AAPL 150 CALL 2025-01-17".
func (p *OptionPosition) ContractLabel() string {
	return fmt.Sprintf("%s %g %s %s", p.Underlying, p.Strike, p.Type, p.Expiry.Format("2006-01-02"))
}

// Classified is the tagged result of classifying one raw row.
// Exactly one of Stock / Option is set, per Kind.
type Classified struct {
	Kind     PositionKind
	Stock    *StockPosition
	Option   *OptionPosition
	CashLike bool
}
