// Package portfolio computes per-position exposure, groups related positions
// by underlying, and aggregates portfolio-level summaries.
//
// The whole package is a pure batch transformation: raw rows in, one
// PortfolioSummary out. Every refresh rebuilds the position/group/summary
// graph from scratch so callers can never observe a snapshot that mixes old
// and new prices.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio-riskv1/internal/classify"
	"portfolio-riskv1/internal/model"
	"portfolio-riskv1/internal/pricing"
)

// Builder turns classified raw rows into fully-priced positions using the
// market source for enrichment.
type Builder struct {
	Source     model.MarketSource
	Classifier *classify.Classifier

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewBuilder creates a Builder with the default classifier.
func NewBuilder(source model.MarketSource) *Builder {
	return &Builder{
		Source:     source,
		Classifier: classify.New(),
		Now:        time.Now,
	}
}

// BuildResult carries one pass's positions, already split the way the
// aggregation stage consumes them.
type BuildResult struct {
	Stocks   []model.StockPosition  // directional stock positions
	Options  []model.OptionPosition // option positions
	CashLike []model.StockPosition  // excluded from directional exposure
}

// Build classifies and prices every row. Any classification or market data
// failure aborts the pass: a partial build would feed a partial summary, and
// partial summaries are exactly the inconsistency this engine exists to
// prevent.
func (b *Builder) Build(ctx context.Context, rows []model.RawRow) (*BuildResult, error) {
	now := b.now()
	res := &BuildResult{}

	for _, row := range rows {
		cl, err := b.Classifier.Classify(row)
		if err != nil {
			return nil, err
		}

		switch cl.Kind {
		case model.KindOption:
			opt, err := b.priceOption(ctx, *cl.Option, now)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", cl.Option.Symbol, err)
			}
			res.Options = append(res.Options, opt)

		default:
			stock, err := b.priceStock(ctx, *cl.Stock, row)
			if err != nil {
				return nil, fmt.Errorf("stock %s: %w", cl.Stock.Ticker, err)
			}
			if stock.CashLike {
				res.CashLike = append(res.CashLike, stock)
			} else {
				res.Stocks = append(res.Stocks, stock)
			}
		}
	}

	return res, nil
}

// priceStock fills beta and derived exposures for one stock position.
//
// Cash-like-by-description holdings skip the beta fetch entirely: a money
// market fund has no meaningful return series, and the value would be unused.
func (b *Builder) priceStock(ctx context.Context, stock model.StockPosition, row model.RawRow) (model.StockPosition, error) {
	if stock.Price <= 0 {
		return stock, &model.InvalidPriceError{Ticker: stock.Ticker, Price: stock.Price}
	}

	if stock.CashLike && b.Classifier.IsCashLikeDescription(stock.Description) {
		stock.Beta = row.Beta
		stock.Recompute()
		return stock, nil
	}

	beta, err := b.beta(ctx, stock.Ticker, row)
	if err != nil {
		return stock, err
	}
	stock.Beta = beta

	// The export's beta column may be absent; re-check cash-likeness now that
	// the authoritative beta is known.
	if b.Classifier.IsCashLikeBeta(beta) {
		stock.CashLike = true
	}

	stock.Recompute()
	return stock, nil
}

// priceOption fetches underlying market data and computes delta plus the
// derived exposures in one step.
func (b *Builder) priceOption(ctx context.Context, opt model.OptionPosition, now time.Time) (model.OptionPosition, error) {
	underlyingPrice, err := b.Source.CurrentPrice(ctx, opt.Underlying)
	if err != nil {
		return opt, err
	}
	if underlyingPrice <= 0 {
		return opt, &model.InvalidPriceError{Ticker: opt.Underlying, Price: underlyingPrice}
	}

	underlyingBeta, err := b.Source.Beta(ctx, opt.Underlying)
	if err != nil {
		return opt, err
	}
	iv, err := b.Source.ImpliedVolatility(ctx, opt.Underlying)
	if err != nil {
		return opt, err
	}
	rate, err := b.Source.RiskFreeRate(ctx)
	if err != nil {
		return opt, err
	}

	opt.UnderlyingPrice = underlyingPrice
	opt.UnderlyingBeta = underlyingBeta
	opt.ImpliedVolatility = iv

	delta, err := pricing.Delta(opt.Type, underlyingPrice, opt.Strike, opt.TimeToExpiry(now), iv, rate)
	if err != nil {
		return opt, err
	}
	opt.RecomputeWithDelta(delta)
	return opt, nil
}

// beta resolves a ticker's beta: market source first, export column as the
// fallback when the source has no history for it.
func (b *Builder) beta(ctx context.Context, ticker string, row model.RawRow) (float64, error) {
	beta, err := b.Source.Beta(ctx, ticker)
	if err == nil {
		return beta, nil
	}
	var ide *model.InsufficientDataError
	if errors.As(err, &ide) && row.HasBeta {
		return row.Beta, nil
	}
	return 0, err
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}
