package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// Payment methods settled immediately; "credit" defers to AR.
const PaymentMethodCredit = "credit"

// Tender tolerance for deciding whether a sale is fully paid. POS tills
// routinely round small change away.
var (
	creditEpsilonUSD = decimal.RequireFromString("0.01")
	creditEpsilonLBP = decimal.RequireFromString("100")
)

// InvoiceLine is one sold item on a sales invoice.
type InvoiceLine struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	Qty        decimal.Decimal
	UnitPrice  valueobject.DualAmount
	Discount   valueobject.DualAmount
	LineTotal  valueobject.DualAmount
	BatchNo    string
	ExpiryDate *time.Time
	// UnitCost is resolved at posting time from the moving-average layer.
	UnitCost valueobject.DualAmount
}

// Payment is one tender line on a sales invoice. Tender is what the cashier
// physically received; Applied is the accounting value settling the invoice
// in the settlement currency with the other leg derived via the exchange
// rate.
type Payment struct {
	ID        uuid.UUID
	Method    string
	Tender    valueobject.DualAmount
	Applied   valueobject.DualAmount
	Reference string
}

// Invoice is the authoritative record of a completed POS sale.
type Invoice struct {
	shared.BaseEntity
	TenantID           uuid.UUID
	InvoiceNo          string
	CustomerID         *uuid.UUID
	Status             DocumentStatus
	Subtotal           valueobject.DualAmount
	DiscountTotal      valueobject.DualAmount
	TaxTotal           valueobject.DualAmount
	Total              valueobject.DualAmount
	ExchangeRate       decimal.Decimal
	PricingCurrency    valueobject.Currency
	SettlementCurrency valueobject.Currency
	WarehouseID        *uuid.UUID
	SourceEventID      uuid.UUID
	DeviceID           uuid.UUID
	ShiftID            *uuid.UUID
	CashierID          *uuid.UUID
	InvoiceDate        time.Time
	DueDate            *time.Time
	SalesChannel       string
	// CreditAmount is the unpaid remainder carried to AR on a credit sale.
	CreditAmount valueobject.DualAmount
	Lines        []InvoiceLine
	Payments     []Payment
}

// IsCreditSale reports whether part of the total settles against AR.
func (i *Invoice) IsCreditSale() bool {
	return i.CreditAmount.IsPositiveEither()
}

// SettledPayments returns the payments that settle immediately, excluding
// credit tender.
func (i *Invoice) SettledPayments() []Payment {
	out := make([]Payment, 0, len(i.Payments))
	for _, p := range i.Payments {
		if p.Method == PaymentMethodCredit {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ComputeCreditAmount derives the unpaid remainder in the settlement
// currency, normalizing the other leg via the exchange rate. Remainders
// within the tender epsilon collapse to zero; payments exceeding the total
// are a payload defect.
func ComputeCreditAmount(total, paid valueobject.DualAmount, settle valueobject.Currency, rate decimal.Decimal) (valueobject.DualAmount, error) {
	var remainder, eps decimal.Decimal
	if settle == valueobject.LBP {
		remainder = total.LBP.Sub(paid.LBP)
		eps = creditEpsilonLBP
	} else {
		remainder = total.USD.Sub(paid.USD)
		eps = creditEpsilonUSD
	}

	if remainder.LessThan(eps.Neg()) {
		return valueobject.ZeroDual(), shared.NewValidationError("PAYMENTS_EXCEED_TOTAL", "payments exceed invoice total")
	}
	if remainder.Abs().LessThanOrEqual(eps) {
		return valueobject.ZeroDual(), nil
	}

	credit := valueobject.ZeroDual()
	if settle == valueobject.LBP {
		credit.LBP = remainder
	} else {
		credit.USD = remainder
	}
	return credit.Normalize(rate).Quantize(), nil
}
