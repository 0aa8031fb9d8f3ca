// Package ingest tokenizes brokerage holdings CSV exports into model.RawRow
// records. It owns file-format concerns only; classification and exposure
// math live downstream.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"portfolio-riskv1/internal/model"
)

// Column headers vary across brokerages; these aliases cover the exports seen
// in practice. Matching is case-insensitive on the normalized header.
var columnAliases = map[string][]string{
	"symbol":      {"symbol", "ticker"},
	"description": {"description", "security description", "name"},
	"quantity":    {"quantity", "qty", "shares"},
	"price":       {"last price", "price", "last", "market price"},
	"beta":        {"beta"},
}

// ReadFile parses a holdings CSV from disk.
func ReadFile(path string) ([]model.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()
	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}
	return rows, nil
}

// Read parses a holdings CSV stream. Money fields go through
// shopspring/decimal so "$1,234.56" survives tokenization exactly and is
// converted to float64 only at the boundary.
func Read(r io.Reader) ([]model.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // brokerage footers are ragged
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []model.RawRow
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, ok := parseRecord(rec, cols)
		if !ok {
			continue // footer, disclaimer, or aggregate row
		}
		rows = append(rows, row)
	}

	log.Printf("[ingest] parsed %d holdings rows", len(rows))
	return rows, nil
}

type columnIndex struct {
	symbol, description, quantity, price, beta int // -1 when absent
}

func mapColumns(header []string) (columnIndex, error) {
	idx := columnIndex{symbol: -1, description: -1, quantity: -1, price: -1, beta: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case matches(name, columnAliases["symbol"]):
			idx.symbol = i
		case matches(name, columnAliases["description"]):
			idx.description = i
		case matches(name, columnAliases["quantity"]):
			idx.quantity = i
		case matches(name, columnAliases["price"]):
			idx.price = i
		case matches(name, columnAliases["beta"]):
			idx.beta = i
		}
	}
	if idx.symbol < 0 || idx.quantity < 0 || idx.price < 0 {
		return idx, fmt.Errorf("header missing required columns (symbol/quantity/price): %v", header)
	}
	return idx, nil
}

func matches(name string, aliases []string) bool {
	for _, a := range aliases {
		if name == a {
			return true
		}
	}
	return false
}

// parseRecord converts one CSV record. Returns ok=false for rows that are not
// holdings: blank lines, "Account Total" aggregates, and trailing disclaimer
// text that brokerages append below the data.
func parseRecord(rec []string, cols columnIndex) (model.RawRow, bool) {
	get := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	symbol := get(cols.symbol)
	if symbol == "" {
		return model.RawRow{}, false
	}
	upper := strings.ToUpper(symbol)
	if strings.HasPrefix(upper, "ACCOUNT TOTAL") || strings.HasPrefix(upper, "TOTAL") ||
		strings.HasPrefix(upper, "PENDING ACTIVITY") {
		return model.RawRow{}, false
	}

	qtyDec, err := parseMoney(get(cols.quantity))
	if err != nil {
		return model.RawRow{}, false // disclaimer rows have no numeric quantity
	}
	priceDec, err := parseMoney(get(cols.price))
	if err != nil {
		return model.RawRow{}, false
	}

	row := model.RawRow{
		Symbol:      symbol,
		Description: get(cols.description),
		Quantity:    qtyDec.IntPart(),
		LastPrice:   priceDec.InexactFloat64(),
	}
	if cols.beta >= 0 {
		if b, err := parseMoney(get(cols.beta)); err == nil {
			row.Beta = b.InexactFloat64()
			row.HasBeta = true
		}
	}
	return row, true
}

// parseMoney parses a money/number cell, tolerating "$", thousands commas and
// accounting-style parentheses for negatives.
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "--" || s == "n/a" {
		return decimal.Zero, fmt.Errorf("empty cell")
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}
