package marketdata

import (
	"portfolio-riskv1/internal/model"
)

// minReturnPoints is the smallest overlapping daily-return sample that
// produces a beta worth reporting. Below this the estimate is noise and the
// caller gets InsufficientDataError instead of a fake number.
const minReturnPoints = 20

// ComputeBeta estimates beta as cov(asset, benchmark) / var(benchmark) over
// daily close-to-close returns. Both series are oldest-first closes; only the
// overlapping tail is used.
//
// This is for NON-benchmark tickers only. The benchmark's own beta is 1.0 by
// definition and must never route through here: regressing a series against
// itself with real-world data gaps lands at ~0.90–0.99, not 1.0.
func ComputeBeta(ticker string, assetCloses, benchCloses []float64) (float64, error) {
	assetRet := dailyReturns(assetCloses)
	benchRet := dailyReturns(benchCloses)

	n := len(assetRet)
	if len(benchRet) < n {
		n = len(benchRet)
	}
	if n < minReturnPoints {
		return 0, &model.InsufficientDataError{Ticker: ticker, Field: "history"}
	}

	// Align on the most recent n returns.
	assetRet = assetRet[len(assetRet)-n:]
	benchRet = benchRet[len(benchRet)-n:]

	meanA := mean(assetRet)
	meanB := mean(benchRet)

	var cov, varB float64
	for i := 0; i < n; i++ {
		da := assetRet[i] - meanA
		db := benchRet[i] - meanB
		cov += da * db
		varB += db * db
	}
	if varB == 0 {
		return 0, &model.InsufficientDataError{Ticker: ticker, Field: "history"}
	}
	return cov / varB, nil
}

// dailyReturns converts a close series to simple returns, skipping
// non-positive closes (halts, bad prints).
func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		rets = append(rets, closes[i]/closes[i-1]-1)
	}
	return rets
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
