// README: Common money value object used across modules.
package types

import (
	"fmt"
	"math"
)

// Money is an amount in the currency's minor unit (cents for USD).
// Arithmetic stays in int64 cents; fractions only appear when applying a
// percentage, and those round half away from zero (math.Round).
type Money struct {
	Amount   int64
	Currency string
}

func USD(cents int64) Money {
	return Money{Amount: cents, Currency: "USD"}
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

// Percent applies pct (e.g. 8 for 8%) rounding half away from zero.
func (m Money) Percent(pct float64) Money {
	return Money{
		Amount:   int64(math.Round(float64(m.Amount) * pct / 100.0)),
		Currency: m.Currency,
	}
}

// Split returns the share and the remainder of an integer percentage split.
// The share truncates toward zero; the remainder absorbs what is left, so
// share+rest always equals the original amount.
func (m Money) Split(pct int64) (share, rest Money) {
	s := m.Amount * pct / 100
	share = Money{Amount: s, Currency: m.Currency}
	rest = Money{Amount: m.Amount - s, Currency: m.Currency}
	return share, rest
}

func (m Money) String() string {
	sign := ""
	a := m.Amount
	if a < 0 {
		sign = "-"
		a = -a
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, a/100, a%100, m.Currency)
}
