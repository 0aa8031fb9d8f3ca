package portfolio

import "portfolio-riskv1/internal/model"

// Aggregate fills a group's derived metrics from its member positions:
// net exposure, beta-adjusted exposure, total option delta exposure, and the
// display-only call/put tallies.
func Aggregate(g *model.PortfolioGroup) {
	g.NetExposure = 0
	g.BetaAdjustedExposure = 0
	g.TotalDeltaExposure = 0
	g.CallCount = 0
	g.PutCount = 0

	if g.Stock != nil {
		g.NetExposure += g.Stock.MarketExposure
		g.BetaAdjustedExposure += g.Stock.BetaAdjustedExposure
	}

	for i := range g.Options {
		opt := &g.Options[i]
		g.NetExposure += opt.DeltaExposure
		g.BetaAdjustedExposure += opt.BetaAdjustedExposure
		g.TotalDeltaExposure += opt.DeltaExposure
		if opt.Type == model.Put {
			g.PutCount++
		} else {
			g.CallCount++
		}
	}
}

// AggregateAll runs Aggregate over every group in place and returns the slice
// for chaining.
func AggregateAll(groups []model.PortfolioGroup) []model.PortfolioGroup {
	for i := range groups {
		Aggregate(&groups[i])
	}
	return groups
}
