package portfolio

import (
	"time"

	"portfolio-riskv1/internal/model"
)

// Summarize combines aggregated groups and cash-like positions into one
// portfolio-level summary.
//
// Long/short attribution happens at the POSITION level, not the group level:
// a covered call group holds a long stock and a short call delta at the same
// time, and each must land in its own bucket. Short buckets store positive
// magnitudes by convention.
//
// This is pure computation over already-validated inputs; nothing here
// returns an error, and nothing upstream is retried or swallowed.
func Summarize(groups []model.PortfolioGroup, cashLike []model.StockPosition, now time.Time) model.PortfolioSummary {
	long := newBreakdown()
	short := newBreakdown()
	options := newBreakdown()

	for gi := range groups {
		g := &groups[gi]

		if g.Stock != nil {
			s := g.Stock
			switch {
			case s.MarketExposure > 0:
				long.StockExposure += s.MarketExposure
				long.StockBetaAdjusted += s.BetaAdjustedExposure
				long.Components[s.Ticker] += s.MarketExposure
			case s.MarketExposure < 0:
				short.StockExposure += -s.MarketExposure
				short.StockBetaAdjusted += -s.BetaAdjustedExposure
				short.Components[s.Ticker] += -s.MarketExposure
			}
		}

		for oi := range g.Options {
			o := &g.Options[oi]
			switch {
			case o.DeltaExposure > 0:
				long.OptionDeltaExposure += o.DeltaExposure
				long.OptionBetaAdjusted += o.BetaAdjustedExposure
				long.Components[o.ContractLabel()] += o.DeltaExposure
			case o.DeltaExposure < 0:
				short.OptionDeltaExposure += -o.DeltaExposure
				short.OptionBetaAdjusted += -o.BetaAdjustedExposure
				short.Components[o.ContractLabel()] += -o.DeltaExposure
			}

			// Options-only view tracks signed delta exposure regardless of
			// which long/short bucket the position landed in.
			options.OptionDeltaExposure += o.DeltaExposure
			options.OptionBetaAdjusted += o.BetaAdjustedExposure
			options.Components[o.ContractLabel()] += o.DeltaExposure
		}
	}

	seal(&long)
	seal(&short)
	seal(&options)

	netMarketExposure := long.TotalExposure - short.TotalExposure

	portfolioBeta := 0.0 // flat book has undefined beta; 0.0 by convention
	if netMarketExposure != 0 {
		portfolioBeta = (long.TotalBetaAdjusted - short.TotalBetaAdjusted) / netMarketExposure
	}

	gross := long.TotalExposure + short.TotalExposure
	shortPct := 0.0
	if gross != 0 {
		shortPct = short.TotalExposure / gross * 100
	}

	cashValue := 0.0
	for i := range cashLike {
		cashValue += cashLike[i].MarketValue()
	}
	cashPct := 0.0
	if denom := cashValue + gross; denom != 0 {
		cashPct = cashValue / denom * 100
	}

	return model.PortfolioSummary{
		NetMarketExposure: netMarketExposure,
		PortfolioBeta:     portfolioBeta,
		LongExposure:      long,
		ShortExposure:     short,
		OptionsExposure:   options,
		ShortPercentage:   shortPct,
		CashLikePositions: cashLike,
		CashLikeValue:     cashValue,
		CashPercentage:    cashPct,

		// The single permitted formula. Ad-hoc variants of this total in
		// different call sites is the historical bug this field exists to end.
		PortfolioEstimateValue: netMarketExposure + cashValue,

		ComputedAt: now,
	}
}

func newBreakdown() model.ExposureBreakdown {
	return model.ExposureBreakdown{Components: make(map[string]float64)}
}

// seal fills the breakdown totals from its parts.
func seal(b *model.ExposureBreakdown) {
	b.TotalExposure = b.StockExposure + b.OptionDeltaExposure
	b.TotalBetaAdjusted = b.StockBetaAdjusted + b.OptionBetaAdjusted
}
