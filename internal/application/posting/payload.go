package posting

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// SaleLinePayload is one item line on a sale or return event.
type SaleLinePayload struct {
	ItemID       uuid.UUID       `json:"item_id"`
	Qty          decimal.Decimal `json:"qty"`
	UnitPriceUSD decimal.Decimal `json:"unit_price_usd"`
	UnitPriceLBP decimal.Decimal `json:"unit_price_lbp"`
	DiscountUSD  decimal.Decimal `json:"discount_amount_usd"`
	DiscountLBP  decimal.Decimal `json:"discount_amount_lbp"`
	LineTotalUSD decimal.Decimal `json:"line_total_usd"`
	LineTotalLBP decimal.Decimal `json:"line_total_lbp"`
	UnitCostUSD  decimal.Decimal `json:"unit_cost_usd"`
	UnitCostLBP  decimal.Decimal `json:"unit_cost_lbp"`
	BatchNo      string          `json:"batch_no"`
	ExpiryDate   string          `json:"expiry_date"`
}

// PaymentPayload is one tender line. Tender fields fall back to amount fields
// for older clients.
type PaymentPayload struct {
	Method    string          `json:"method"`
	TenderUSD decimal.Decimal `json:"tender_usd"`
	TenderLBP decimal.Decimal `json:"tender_lbp"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
	AmountLBP decimal.Decimal `json:"amount_lbp"`
	Reference string          `json:"reference"`
}

// TaxPayload carries the client-declared tax totals.
type TaxPayload struct {
	BaseUSD decimal.Decimal `json:"base_usd"`
	BaseLBP decimal.Decimal `json:"base_lbp"`
	TaxUSD  decimal.Decimal `json:"tax_usd"`
	TaxLBP  decimal.Decimal `json:"tax_lbp"`
}

// SalePayload is the wire body of a sale.completed event.
type SalePayload struct {
	InvoiceNo          string            `json:"invoice_no"`
	ExchangeRate       decimal.Decimal   `json:"exchange_rate"`
	PricingCurrency    string            `json:"pricing_currency"`
	SettlementCurrency string            `json:"settlement_currency"`
	WarehouseID        *uuid.UUID        `json:"warehouse_id"`
	CustomerID         *uuid.UUID        `json:"customer_id"`
	ShiftID            *uuid.UUID        `json:"shift_id"`
	CashierID          *uuid.UUID        `json:"cashier_id"`
	InvoiceDate        string            `json:"invoice_date"`
	CreatedAt          string            `json:"created_at"`
	Lines              []SaleLinePayload `json:"lines"`
	Payments           []PaymentPayload  `json:"payments"`
	Tax                *TaxPayload       `json:"tax"`
}

// ReturnPayload is the wire body of a sale.returned event.
type ReturnPayload struct {
	ReturnNo            string            `json:"return_no"`
	InvoiceID           *uuid.UUID        `json:"invoice_id"`
	ExchangeRate        decimal.Decimal   `json:"exchange_rate"`
	WarehouseID         *uuid.UUID        `json:"warehouse_id"`
	ShiftID             *uuid.UUID        `json:"shift_id"`
	CashierID           *uuid.UUID        `json:"cashier_id"`
	ReturnDate          string            `json:"return_date"`
	CreatedAt           string            `json:"created_at"`
	RefundMethod        string            `json:"refund_method"`
	Reason              string            `json:"reason"`
	ReturnCondition     string            `json:"return_condition"`
	RestockingFeeUSD    decimal.Decimal   `json:"restocking_fee_usd"`
	RestockingFeeLBP    decimal.Decimal   `json:"restocking_fee_lbp"`
	RestockingFeeReason string            `json:"restocking_fee_reason"`
	Tax                 *TaxPayload       `json:"tax"`
	Lines               []SaleLinePayload `json:"lines"`
}

// ReceiptLinePayload is one item line on a purchase.received event.
type ReceiptLinePayload struct {
	ItemID      uuid.UUID       `json:"item_id"`
	Qty         decimal.Decimal `json:"qty"`
	UnitCostUSD decimal.Decimal `json:"unit_cost_usd"`
	UnitCostLBP decimal.Decimal `json:"unit_cost_lbp"`
	BatchNo     string          `json:"batch_no"`
	ExpiryDate  string          `json:"expiry_date"`
}

// ReceiptPayload is the wire body of a purchase.received event.
type ReceiptPayload struct {
	ReceiptNo     string               `json:"receipt_no"`
	SupplierID    *uuid.UUID           `json:"supplier_id"`
	PurchaseOrder string               `json:"purchase_order"`
	ExchangeRate  decimal.Decimal      `json:"exchange_rate"`
	WarehouseID   *uuid.UUID           `json:"warehouse_id"`
	ReceiptDate   string               `json:"receipt_date"`
	CreatedAt     string               `json:"created_at"`
	Lines         []ReceiptLinePayload `json:"lines"`
}

// PurchaseInvoicePayload is the wire body of a purchase.invoice event.
type PurchaseInvoicePayload struct {
	InvoiceNo    string               `json:"invoice_no"`
	SupplierRef  string               `json:"supplier_ref"`
	SupplierID   *uuid.UUID           `json:"supplier_id"`
	ReceiptID    *uuid.UUID           `json:"receipt_id"`
	ExchangeRate decimal.Decimal      `json:"exchange_rate"`
	InvoiceDate  string               `json:"invoice_date"`
	CreatedAt    string               `json:"created_at"`
	Tax          *TaxPayload          `json:"tax"`
	Lines        []ReceiptLinePayload `json:"lines"`
	Payments     []PaymentPayload     `json:"payments"`
}

// CashMovementPayload is the wire body of a pos.cash_movement event.
type CashMovementPayload struct {
	MovementType string          `json:"movement_type"`
	AmountUSD    decimal.Decimal `json:"amount_usd"`
	AmountLBP    decimal.Decimal `json:"amount_lbp"`
	ShiftID      *uuid.UUID      `json:"shift_id"`
	CashierID    *uuid.UUID      `json:"cashier_id"`
	Notes        string          `json:"notes"`
}

func decodePayload(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return shared.NewValidationError("MALFORMED_PAYLOAD", "malformed event payload: "+err.Error())
	}
	return nil
}

// parseDate reads the date prefix of an ISO timestamp or date string.
func parseDate(s string) (time.Time, bool) {
	if len(s) < 10 {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// businessDate resolves the posting date from candidate payload fields,
// falling back to today.
func businessDate(now time.Time, candidates ...string) time.Time {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, ok := parseDate(c); ok {
			return t
		}
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseExpiry(s string) *time.Time {
	if t, ok := parseDate(s); ok {
		return &t
	}
	return nil
}

// tenderAmount prefers the tender field, falling back to the legacy amount
// field.
func (p PaymentPayload) tenderAmount() valueobject.DualAmount {
	usd, lbp := p.TenderUSD, p.TenderLBP
	if usd.IsZero() {
		usd = p.AmountUSD
	}
	if lbp.IsZero() {
		lbp = p.AmountLBP
	}
	return valueobject.NewDualAmount(usd, lbp)
}

// appliedFromTender converts physical tender into the accounting value that
// settles the invoice: folded into the settlement currency at the exchange
// rate, then normalized back to both legs.
func appliedFromTender(tender valueobject.DualAmount, rate decimal.Decimal, settle valueobject.Currency) (valueobject.DualAmount, error) {
	if tender.IsNegativeEither() {
		return valueobject.ZeroDual(), shared.NewValidationError("NEGATIVE_AMOUNT", "amounts must be >= 0")
	}
	if tender.IsZero() {
		return valueobject.ZeroDual(), shared.NewValidationError("MISSING_AMOUNT", "amount is required")
	}

	applied := valueobject.ZeroDual()
	if settle == valueobject.LBP {
		if !tender.USD.IsZero() && rate.IsZero() {
			return valueobject.ZeroDual(), shared.NewValidationError("MISSING_EXCHANGE_RATE",
				"exchange_rate is required for USD tender on a LBP invoice")
		}
		applied.LBP = valueobject.QuantizeLBP(tender.LBP.Add(tender.USD.Mul(rate)))
	} else {
		if !tender.LBP.IsZero() && rate.IsZero() {
			return valueobject.ZeroDual(), shared.NewValidationError("MISSING_EXCHANGE_RATE",
				"exchange_rate is required for LBP tender on a USD invoice")
		}
		usd := tender.USD
		if !rate.IsZero() {
			usd = usd.Add(tender.LBP.Div(rate))
		}
		applied.USD = valueobject.QuantizeUSD(usd)
	}
	return applied.Normalize(rate).Quantize(), nil
}

// taxAmount normalizes the client-declared tax totals; nil tax means zero.
func taxAmount(tax *TaxPayload, rate decimal.Decimal) valueobject.DualAmount {
	if tax == nil {
		return valueobject.ZeroDual()
	}
	return valueobject.NewDualAmount(tax.TaxUSD, tax.TaxLBP).Normalize(rate).Quantize()
}

// paymentsFromPayload converts tender lines into trade payments, dropping
// zero-amount lines.
func paymentsFromPayload(payments []PaymentPayload, rate decimal.Decimal, settle valueobject.Currency) ([]trade.Payment, error) {
	out := make([]trade.Payment, 0, len(payments))
	for _, p := range payments {
		method := normalizeMethod(p.Method)
		tender := p.tenderAmount()
		if tender.IsZero() {
			continue
		}
		applied, err := appliedFromTender(tender, rate, settle)
		if err != nil {
			return nil, err
		}
		out = append(out, trade.Payment{
			ID:        uuid.New(),
			Method:    method,
			Tender:    tender.Quantize(),
			Applied:   applied,
			Reference: p.Reference,
		})
	}
	return out, nil
}

func normalizeMethod(method string) string {
	m := strings.ToLower(strings.TrimSpace(method))
	if m == "" {
		return "cash"
	}
	return m
}
