package portfolio

import (
	"time"

	"portfolio-riskv1/internal/model"
	"portfolio-riskv1/internal/pricing"
)

// UpdateStockPrice returns a copy of the position repriced at newPrice.
// Pure value-in/value-out: the input is never mutated, and applying the same
// price twice yields identical results.
func UpdateStockPrice(p model.StockPosition, newPrice float64) (model.StockPosition, error) {
	if newPrice <= 0 {
		return p, &model.InvalidPriceError{Ticker: p.Ticker, Price: newPrice}
	}
	p.Price = newPrice
	p.Recompute()
	return p, nil
}

// UpdateOptionPrice returns a copy of the position repriced against a new
// underlying price at the given instant. Delta, notional, delta exposure and
// beta-adjusted exposure are all recomputed in the same step — the caller can
// never observe a fresh underlying price paired with a stale delta.
func UpdateOptionPrice(p model.OptionPosition, newUnderlyingPrice float64, riskFreeRate float64, now time.Time) (model.OptionPosition, error) {
	if newUnderlyingPrice <= 0 {
		return p, &model.InvalidPriceError{Ticker: p.Underlying, Price: newUnderlyingPrice}
	}

	delta, err := pricing.Delta(p.Type, newUnderlyingPrice, p.Strike, p.TimeToExpiry(now), p.ImpliedVolatility, riskFreeRate)
	if err != nil {
		return p, err
	}

	p.UnderlyingPrice = newUnderlyingPrice
	p.RecomputeWithDelta(delta)
	return p, nil
}
