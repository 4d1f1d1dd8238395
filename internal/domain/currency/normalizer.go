// Package currency converts submitted expense amounts into a company's
// base currency using point-in-time exchange rates.
package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrRateUnavailable is returned when no exchange rate exists for the
	// requested pair and date. A submission never proceeds with a
	// fabricated rate.
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	// ErrInvalidAmount is returned for a non-positive amount or a
	// malformed currency code at submission.
	ErrInvalidAmount = errors.New("invalid amount or currency")
)

// RateSource supplies a conversion rate for (from, to) as of a date.
type RateSource interface {
	Rate(ctx context.Context, from, to string, at time.Time) (decimal.Decimal, error)
}

// minorUnits maps ISO 4217 codes to their minor-unit exponent. Currencies
// not listed use the common 2.
var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"ISK": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
	"JOD": 3,
}

// MinorUnits returns the minor-unit exponent for an ISO currency code.
func MinorUnits(code string) int32 {
	if exp, ok := minorUnits[code]; ok {
		return exp
	}
	return 2
}

// Normalize converts amount from its submitted currency into the company
// base currency as of the given date. Same-currency amounts pass through
// unchanged with the rate defined as exactly 1, avoiding a provider
// round-trip and rounding drift. Converted amounts round to the base
// currency's minor-unit precision with round-half-to-even, keeping
// normalization reproducible.
func Normalize(ctx context.Context, rates RateSource, amount decimal.Decimal, code, baseCode string, asOf time.Time) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, amount)
	}
	if !validCode(code) || !validCode(baseCode) {
		return decimal.Zero, fmt.Errorf("%w: currency %q, base %q", ErrInvalidAmount, code, baseCode)
	}

	if code == baseCode {
		return amount, nil
	}

	rate, err := rates.Rate(ctx, code, baseCode, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s->%s at %s: %v", ErrRateUnavailable, code, baseCode, asOf.Format("2006-01-02"), err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s->%s returned non-positive rate %s", ErrRateUnavailable, code, baseCode, rate)
	}

	return amount.Mul(rate).RoundBank(MinorUnits(baseCode)), nil
}

// validCode checks the ISO 4217 shape: exactly three uppercase letters.
func validCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
