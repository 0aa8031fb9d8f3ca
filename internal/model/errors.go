package model

import "fmt"

// ParseError reports a malformed option symbol or description that could not
// be classified. It always carries the offending raw value; the classifier
// never downgrades an unparseable option row to a stock position.
type ParseError struct {
	Field  string // which raw field failed, e.g. "symbol", "description"
	Value  string // the offending raw value
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %s", e.Field, e.Value, e.Reason)
}

// InvalidPriceError reports a non-positive price or underlying price. There is
// no default-price substitution: a fabricated price silently corrupts every
// exposure number downstream.
type InvalidPriceError struct {
	Ticker string
	Price  float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %.4f for %s", e.Price, e.Ticker)
}

// InsufficientDataError reports missing market data (beta, volatility,
// risk-free rate, price history) when no configured default applies.
// Propagated rather than defaulted to an arbitrary value.
type InsufficientDataError struct {
	Ticker string
	Field  string // "beta", "implied_volatility", "risk_free_rate", "history"
}

func (e *InsufficientDataError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("insufficient market data: %s", e.Field)
	}
	return fmt.Sprintf("insufficient market data for %s: %s", e.Ticker, e.Field)
}
