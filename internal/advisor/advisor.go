// Package advisor produces AI commentary on the current portfolio summary.
// It is a read-only surface on top of published snapshots: nothing in the
// exposure pipeline depends on it, and a dead API key only breaks the
// /api/advisor endpoint.
package advisor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"portfolio-riskv1/internal/model"
)

const systemPrompt = "You are a portfolio risk analyst. You are given a " +
	"snapshot of a portfolio's exposure summary: net market exposure, " +
	"portfolio beta, long/short breakdowns, options delta exposure, and cash " +
	"allocation. Write a short, plain-language assessment of the portfolio's " +
	"directional risk, concentration, and hedging. Do not give buy or sell " +
	"recommendations. Keep it under 250 words."

// Config configures the advisor.
type Config struct {
	APIKey    string
	Model     string // defaults to claude-sonnet-4-20250514
	MaxTokens int    // defaults to 1024
	Timeout   time.Duration
}

// Service calls the Anthropic API.
type Service struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// New creates an advisor service. Returns an error when no API key is set so
// the caller can leave the endpoint unconfigured instead of failing at
// request time.
func New(cfg Config) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("advisor: API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Service{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		timeout:   cfg.Timeout,
	}, nil
}

// Commentary renders the summary into a prompt and returns the model's
// assessment plus the model name used.
func (s *Service) Commentary(ctx context.Context, summary *model.PortfolioSummary, groups []model.PortfolioGroup) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := RenderPrompt(summary, groups)
	start := time.Now()

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("advisor: API call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", "", fmt.Errorf("advisor: empty response")
	}

	log.Printf("[advisor] commentary generated in %v (%d chars)", time.Since(start).Round(time.Millisecond), out.Len())
	return out.String(), s.model, nil
}

// RenderPrompt flattens the summary into the plain-text digest sent to the
// model. Exported so tests can pin the format without an API key.
func RenderPrompt(summary *model.PortfolioSummary, groups []model.PortfolioGroup) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Portfolio snapshot as of %s\n\n", summary.ComputedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Net market exposure: %.2f\n", summary.NetMarketExposure)
	fmt.Fprintf(&b, "Portfolio beta: %.3f\n", summary.PortfolioBeta)
	fmt.Fprintf(&b, "Portfolio estimated value: %.2f\n", summary.PortfolioEstimateValue)
	fmt.Fprintf(&b, "Long exposure: %.2f (beta-adjusted %.2f)\n",
		summary.LongExposure.TotalExposure, summary.LongExposure.TotalBetaAdjusted)
	fmt.Fprintf(&b, "Short exposure: %.2f (beta-adjusted %.2f)\n",
		summary.ShortExposure.TotalExposure, summary.ShortExposure.TotalBetaAdjusted)
	fmt.Fprintf(&b, "Options delta exposure: %.2f\n", summary.OptionsExposure.TotalExposure)
	fmt.Fprintf(&b, "Short percentage: %.1f%%\n", summary.ShortPercentage)
	fmt.Fprintf(&b, "Cash-like value: %.2f (%.1f%% of portfolio)\n",
		summary.CashLikeValue, summary.CashPercentage)

	if len(groups) > 0 {
		b.WriteString("\nPer-underlying exposures:\n")
		for _, g := range groups {
			fmt.Fprintf(&b, "  %s: net %.2f, beta-adjusted %.2f", g.Underlying, g.NetExposure, g.BetaAdjustedExposure)
			if g.CallCount+g.PutCount > 0 {
				fmt.Fprintf(&b, " (%d calls, %d puts, option delta %.2f)", g.CallCount, g.PutCount, g.TotalDeltaExposure)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
