// Package classify turns raw brokerage export rows into typed positions.
// It is the sole producer of model.Classified values.
package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"portfolio-riskv1/internal/model"
)

// Brokerage exports disagree on option symbology. Two real-world formats are
// supported:
//
//	compact (dash-prefixed):  -AAPL250117C150     (-UNDERLYING yymmdd C|P strike)
//	descriptive (spaced):     AAPL 01/17/2025 150.00 C
//
// Anything that looks like an option but matches neither fails with a
// ParseError. It is never downgraded to a stock position: a mis-filed option
// corrupts every exposure total downstream.
var (
	compactOptRe     = regexp.MustCompile(`^-([A-Z]{1,6})(\d{6})([CP])(\d+(?:\.\d+)?)$`)
	descriptiveOptRe = regexp.MustCompile(`^([A-Z]{1,6})\s+(\d{2}/\d{2}/\d{4})\s+(\d+(?:\.\d+)?)\s+([CP])(?:ALL|UT)?$`)

	// Used only for detection, not extraction: rows whose description carries
	// a CALL/PUT marker are option-like even when the symbol is mangled.
	optionMarkerRe = regexp.MustCompile(`\b(CALL|PUT)\b`)
)

// Classifier classifies raw rows into stock and option positions and flags
// cash-like holdings.
type Classifier struct {
	// CashBetaEpsilon: |beta| at or below this is treated as cash-like.
	CashBetaEpsilon float64
}

// New returns a Classifier with the default cash beta epsilon of 0.1.
func New() *Classifier {
	return &Classifier{CashBetaEpsilon: 0.1}
}

// Classify determines the position variant for one raw row.
//
// The returned positions carry only what the row itself provides; market data
// enrichment (beta, underlying price, IV) and exposure math happen in the
// portfolio builder. CashLike here reflects the row's description and, when
// the export has a beta column, its beta; the builder re-checks once the
// provider's beta is known.
func (c *Classifier) Classify(row model.RawRow) (model.Classified, error) {
	symbol := strings.TrimSpace(row.Symbol)
	if symbol == "" {
		return model.Classified{}, &model.ParseError{Field: "symbol", Value: row.Symbol, Reason: "empty"}
	}

	if looksLikeOption(symbol, row.Description) {
		opt, err := parseOptionSymbol(symbol)
		if err != nil {
			return model.Classified{}, err
		}
		opt.Quantity = row.Quantity
		opt.Price = row.LastPrice
		return model.Classified{Kind: model.KindOption, Option: opt}, nil
	}

	stock := &model.StockPosition{
		Ticker:      symbol,
		Description: row.Description,
		Quantity:    row.Quantity,
		Price:       row.LastPrice,
	}
	cash := c.IsCashLikeDescription(row.Description)
	if !cash && row.HasBeta {
		cash = c.IsCashLikeBeta(row.Beta)
	}
	stock.CashLike = cash

	return model.Classified{Kind: model.KindStock, Stock: stock, CashLike: cash}, nil
}

// IsCashLikeBeta reports whether a beta is close enough to zero to treat the
// holding as cash-equivalent.
func (c *Classifier) IsCashLikeBeta(beta float64) bool {
	if beta < 0 {
		beta = -beta
	}
	return beta <= c.CashBetaEpsilon
}

// looksLikeOption reports whether a row should be parsed as an option
// contract. Dash-prefixed symbols are always option-like; otherwise the
// symbol must match the descriptive layout or the description must carry a
// CALL/PUT marker.
func looksLikeOption(symbol, description string) bool {
	if strings.HasPrefix(symbol, "-") {
		return true
	}
	if descriptiveOptRe.MatchString(symbol) {
		return true
	}
	return optionMarkerRe.MatchString(strings.ToUpper(description))
}

// parseOptionSymbol extracts the contract terms from either supported format.
func parseOptionSymbol(symbol string) (*model.OptionPosition, error) {
	if m := compactOptRe.FindStringSubmatch(symbol); m != nil {
		expiry, err := time.Parse("060102", m[2])
		if err != nil {
			return nil, &model.ParseError{Field: "symbol", Value: symbol, Reason: fmt.Sprintf("bad expiry %q", m[2])}
		}
		strike, err := strconv.ParseFloat(m[4], 64)
		if err != nil || strike <= 0 {
			return nil, &model.ParseError{Field: "symbol", Value: symbol, Reason: fmt.Sprintf("bad strike %q", m[4])}
		}
		return &model.OptionPosition{
			Symbol:     symbol,
			Underlying: m[1],
			Expiry:     expiry.UTC(),
			Strike:     strike,
			Type:       optionType(m[3]),
		}, nil
	}

	if m := descriptiveOptRe.FindStringSubmatch(symbol); m != nil {
		expiry, err := time.Parse("01/02/2006", m[2])
		if err != nil {
			return nil, &model.ParseError{Field: "symbol", Value: symbol, Reason: fmt.Sprintf("bad expiry %q", m[2])}
		}
		strike, err := strconv.ParseFloat(m[3], 64)
		if err != nil || strike <= 0 {
			return nil, &model.ParseError{Field: "symbol", Value: symbol, Reason: fmt.Sprintf("bad strike %q", m[3])}
		}
		return &model.OptionPosition{
			Symbol:     symbol,
			Underlying: m[1],
			Expiry:     expiry.UTC(),
			Strike:     strike,
			Type:       optionType(m[4]),
		}, nil
	}

	return nil, &model.ParseError{Field: "symbol", Value: symbol, Reason: "unrecognized option symbol format"}
}

func optionType(indicator string) model.OptionType {
	if indicator == "P" {
		return model.Put
	}
	return model.Call
}
