// cmd/exposure prices a holdings CSV once and prints the portfolio summary.
// It hits the live market data API directly (no Redis, no daemon) so a book
// can be sanity-checked from the command line.
//
// Usage:
//
//	go run ./cmd/exposure --csv holdings.csv --benchmark SPY --json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"portfolio-riskv1/internal/gateway"
	"portfolio-riskv1/internal/ingest"
	"portfolio-riskv1/internal/marketdata"
	"portfolio-riskv1/internal/marketdata/alpaca"
	"portfolio-riskv1/internal/model"
	"portfolio-riskv1/internal/portfolio"
)

func main() {
	log.SetFlags(0)

	csvPath := flag.String("csv", "data/holdings.csv", "Path to holdings CSV export")
	benchmark := flag.String("benchmark", "SPY", "Benchmark ticker for beta estimation")
	iv := flag.Float64("iv", 0.30, "Default implied volatility for option deltas")
	rate := flag.Float64("rate", 0.05, "Risk-free rate for option deltas")
	lookback := flag.Int("lookback", 180, "Daily closes per beta estimate")
	asJSON := flag.Bool("json", false, "Emit the full summary as JSON")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall deadline for the pricing pass")
	flag.Parse()

	rows, err := ingest.ReadFile(*csvPath)
	if err != nil {
		log.Fatalf("exposure: %v", err)
	}

	provider := marketdata.NewProvider(marketdata.Config{
		BenchmarkTicker:     *benchmark,
		DefaultImpliedVol:   *iv,
		DefaultRiskFreeRate: *rate,
		BetaLookbackDays:    *lookback,
	}, alpaca.New(), nil, nil)

	engine := portfolio.NewEngine(portfolio.NewBuilder(provider))
	engine.LoadRows(rows)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	summary, err := engine.Refresh(ctx)
	if err != nil {
		log.Fatalf("exposure: pricing pass failed: %v", err)
	}
	_, groups, _ := engine.Snapshot()

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(struct {
			Summary *model.PortfolioSummary `json:"summary"`
			Groups  []model.PortfolioGroup  `json:"groups"`
		}{summary, groups})
		return
	}

	printSummary(summary, groups)
}

func printSummary(s *model.PortfolioSummary, groups []model.PortfolioGroup) {
	fmt.Printf("Portfolio summary (computed %s)\n\n", s.ComputedAt.Format(time.RFC3339))
	fmt.Printf("  Net market exposure   %14.2f\n", s.NetMarketExposure)
	fmt.Printf("  Portfolio beta        %14.3f\n", s.PortfolioBeta)
	fmt.Printf("  Long exposure         %14.2f\n", s.LongExposure.TotalExposure)
	fmt.Printf("  Short exposure        %14.2f\n", s.ShortExposure.TotalExposure)
	fmt.Printf("  Short percentage      %13.1f%%\n", s.ShortPercentage)
	fmt.Printf("  Cash-like value       %14.2f\n", s.CashLikeValue)
	fmt.Printf("  Portfolio estimate    %14.2f\n", s.PortfolioEstimateValue)
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UNDERLYING\tKIND\tQTY\tPRICE\tBETA\tEXPOSURE\tDELTA")
	for _, p := range gateway.FlattenPositions(groups) {
		delta := ""
		if p.Kind == "OPTION" {
			delta = fmt.Sprintf("%.4f", p.Delta)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%s\n",
			p.Underlying, p.Kind, p.Quantity, p.Price, p.Beta, p.Exposure, delta)
	}
	w.Flush()
}
