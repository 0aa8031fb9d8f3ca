// Package pricing implements Black-Scholes option delta. Pure math, no state.
package pricing

import (
	"fmt"
	"math"

	"portfolio-riskv1/internal/model"
)

// Delta computes the Black-Scholes delta of an option.
//
//	d1    = [ln(S/K) + (r + σ²/2)t] / (σ√t)
//	call  = N(d1)
//	put   = N(d1) − 1
//
// timeToExpiryYears <= 0 or vol <= 0 collapses σ√t to zero, which would divide
// by zero in the naive formula. Both degenerate cases use the same explicit
// intrinsic-exercise step function: 1.0 for ITM calls, 0.0 for OTM calls,
// −1.0 for ITM puts, 0.0 for OTM puts. At-the-money counts as OTM.
//
// Non-positive underlying or strike is a programmer error in the inputs and
// returns an error; there is no sentinel value.
func Delta(optType model.OptionType, underlying, strike, timeToExpiryYears, vol, riskFreeRate float64) (float64, error) {
	if underlying <= 0 {
		return 0, fmt.Errorf("black-scholes: non-positive underlying price %g", underlying)
	}
	if strike <= 0 {
		return 0, fmt.Errorf("black-scholes: non-positive strike %g", strike)
	}
	if timeToExpiryYears < 0 {
		return 0, fmt.Errorf("black-scholes: negative time to expiry %g", timeToExpiryYears)
	}
	if vol < 0 {
		return 0, fmt.Errorf("black-scholes: negative volatility %g", vol)
	}

	if timeToExpiryYears == 0 || vol == 0 {
		return intrinsicDelta(optType, underlying, strike), nil
	}

	sqrtT := math.Sqrt(timeToExpiryYears)
	d1 := (math.Log(underlying/strike) + (riskFreeRate+vol*vol/2)*timeToExpiryYears) / (vol * sqrtT)

	if optType == model.Put {
		return normCDF(d1) - 1, nil
	}
	return normCDF(d1), nil
}

// intrinsicDelta is the zero-variance exercise limit.
func intrinsicDelta(optType model.OptionType, underlying, strike float64) float64 {
	if optType == model.Put {
		if underlying < strike {
			return -1.0
		}
		return 0.0
	}
	if underlying > strike {
		return 1.0
	}
	return 0.0
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
