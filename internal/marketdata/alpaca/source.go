// Package alpaca adapts the Alpaca market data API to the marketdata.Source
// interface. Credentials come from the standard APCA_* environment variables
// read by the SDK client.
package alpaca

import (
	"context"
	"fmt"
	"time"

	md "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"portfolio-riskv1/internal/marketdata"
)

// Source implements marketdata.Source on the Alpaca data API.
type Source struct {
	client *md.Client
}

var _ marketdata.Source = (*Source)(nil)

// New creates an Alpaca-backed source.
func New() *Source {
	return &Source{client: md.NewClient(md.ClientOpts{})}
}

// LatestPrice returns the most recent trade price for a ticker.
func (s *Source) LatestPrice(_ context.Context, ticker string) (float64, error) {
	trade, err := s.client.GetLatestTrade(ticker, md.GetLatestTradeRequest{})
	if err != nil {
		return 0, fmt.Errorf("alpaca latest trade %s: %w", ticker, err)
	}
	if trade == nil {
		return 0, fmt.Errorf("alpaca latest trade %s: no trade returned", ticker)
	}
	return trade.Price, nil
}

// DailyCloses returns up to `days` daily closes, oldest first. The request
// window is padded for weekends and holidays.
func (s *Source) DailyCloses(_ context.Context, ticker string, days int) ([]float64, error) {
	start := time.Now().AddDate(0, 0, -(days*3/2 + 5))
	bars, err := s.client.GetBars(ticker, md.GetBarsRequest{
		TimeFrame: md.OneDay,
		Start:     start,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca daily bars %s: %w", ticker, err)
	}

	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes, nil
}
