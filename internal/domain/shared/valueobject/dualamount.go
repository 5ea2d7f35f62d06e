package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency identifies one leg of the dual ledger.
type Currency string

const (
	USD Currency = "USD" // US Dollar
	LBP Currency = "LBP" // Lebanese Pound
)

// ParseCurrency validates a settlement/pricing currency code.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case USD, LBP:
		return Currency(s), nil
	case "":
		return USD, nil
	}
	return "", fmt.Errorf("unsupported currency %q (expected USD or LBP)", s)
}

// Minor-unit precision per currency leg. USD keeps four decimals because POS
// unit prices carry sub-cent precision; LBP is quantized to two.
var (
	usdExp int32 = 4
	lbpExp int32 = 2
)

// QuantizeUSD rounds to USD ledger precision.
func QuantizeUSD(v decimal.Decimal) decimal.Decimal { return v.Round(usdExp) }

// QuantizeLBP rounds to LBP ledger precision.
func QuantizeLBP(v decimal.Decimal) decimal.Decimal { return v.Round(lbpExp) }

// DualAmount is a monetary value carried simultaneously in both ledger
// currencies. The two legs represent the same economic value at a given
// exchange rate; they are stored side by side so journals can balance exactly
// in each currency without re-deriving at read time.
//
// DualAmount is immutable - all operations return new values.
type DualAmount struct {
	USD decimal.Decimal
	LBP decimal.Decimal
}

// ZeroDual returns a zero-valued dual amount.
func ZeroDual() DualAmount {
	return DualAmount{USD: decimal.Zero, LBP: decimal.Zero}
}

// NewDualAmount builds a dual amount from explicit legs.
func NewDualAmount(usd, lbp decimal.Decimal) DualAmount {
	return DualAmount{USD: usd, LBP: lbp}
}

// Normalize fills a missing leg from the exchange rate (USD→LBP multiplier).
// Clients that only price in one currency send a zero on the other leg; the
// ledger always stores both.
func (a DualAmount) Normalize(rate decimal.Decimal) DualAmount {
	if rate.IsZero() {
		return a
	}
	out := a
	if a.USD.IsZero() && !a.LBP.IsZero() {
		out.USD = a.LBP.Div(rate)
	} else if a.LBP.IsZero() && !a.USD.IsZero() {
		out.LBP = a.USD.Mul(rate)
	}
	return out
}

// Quantize rounds both legs to their ledger precision.
func (a DualAmount) Quantize() DualAmount {
	return DualAmount{USD: QuantizeUSD(a.USD), LBP: QuantizeLBP(a.LBP)}
}

// Add returns the leg-wise sum.
func (a DualAmount) Add(b DualAmount) DualAmount {
	return DualAmount{USD: a.USD.Add(b.USD), LBP: a.LBP.Add(b.LBP)}
}

// Sub returns the leg-wise difference.
func (a DualAmount) Sub(b DualAmount) DualAmount {
	return DualAmount{USD: a.USD.Sub(b.USD), LBP: a.LBP.Sub(b.LBP)}
}

// MulQty scales both legs by a quantity.
func (a DualAmount) MulQty(qty decimal.Decimal) DualAmount {
	return DualAmount{USD: a.USD.Mul(qty), LBP: a.LBP.Mul(qty)}
}

// Neg returns the leg-wise negation.
func (a DualAmount) Neg() DualAmount {
	return DualAmount{USD: a.USD.Neg(), LBP: a.LBP.Neg()}
}

// IsZero reports whether both legs are zero.
func (a DualAmount) IsZero() bool {
	return a.USD.IsZero() && a.LBP.IsZero()
}

// IsNegativeEither reports whether either leg is negative.
func (a DualAmount) IsNegativeEither() bool {
	return a.USD.IsNegative() || a.LBP.IsNegative()
}

// IsPositiveEither reports whether either leg is positive.
func (a DualAmount) IsPositiveEither() bool {
	return a.USD.IsPositive() || a.LBP.IsPositive()
}

// Leg returns the amount in the requested currency.
func (a DualAmount) Leg(c Currency) decimal.Decimal {
	if c == LBP {
		return a.LBP
	}
	return a.USD
}

func (a DualAmount) String() string {
	return fmt.Sprintf("%s USD / %s LBP", a.USD.String(), a.LBP.String())
}
