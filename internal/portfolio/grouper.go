package portfolio

import "portfolio-riskv1/internal/model"

// Group collects positions into one PortfolioGroup per underlying ticker.
// Stocks group by their own ticker, options by their underlying. A group with
// only options and no stock position is valid.
//
// Ordering is first-seen (stocks scanned before options), so dashboard
// rendering and tests are reproducible across runs.
func Group(stocks []model.StockPosition, options []model.OptionPosition) []model.PortfolioGroup {
	byUnderlying := make(map[string]int)
	groups := make([]model.PortfolioGroup, 0, len(stocks))

	at := func(underlying string) *model.PortfolioGroup {
		if i, ok := byUnderlying[underlying]; ok {
			return &groups[i]
		}
		groups = append(groups, model.PortfolioGroup{Underlying: underlying})
		byUnderlying[underlying] = len(groups) - 1
		return &groups[len(groups)-1]
	}

	for i := range stocks {
		g := at(stocks[i].Ticker)
		s := stocks[i]
		g.Stock = &s
	}
	for i := range options {
		g := at(options[i].Underlying)
		g.Options = append(g.Options, options[i])
	}

	return groups
}
