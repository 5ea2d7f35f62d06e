package posting

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/inventory"
	"github.com/ahtrading/backend/internal/domain/ledger"
	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// SaleResult is a built but not yet persisted sale.
type SaleResult struct {
	Invoice   *trade.Invoice
	Movements []*inventory.StockMovement
	// CostOfGoods is the total outbound cost, posted Dr COGS / Cr Inventory.
	CostOfGoods valueobject.DualAmount
}

// BuildSale turns a validated sale.completed payload plus reference data into
// a posted invoice, its outbound stock movements, and payment records. Pure:
// all reads come from the snapshot.
func BuildSale(tenantID, deviceID, eventID uuid.UUID, p *SalePayload, snap SaleSnapshot, now time.Time) (*SaleResult, error) {
	if len(p.Lines) == 0 {
		return nil, shared.NewValidationError("EMPTY_SALE", "sale event has no lines")
	}
	pricing, err := valueobject.ParseCurrency(p.PricingCurrency)
	if err != nil {
		return nil, shared.NewValidationError("BAD_CURRENCY", err.Error())
	}
	settle, err := valueobject.ParseCurrency(p.SettlementCurrency)
	if err != nil {
		return nil, shared.NewValidationError("BAD_CURRENCY", err.Error())
	}
	rate := p.ExchangeRate
	invoiceDate := businessDate(now, p.InvoiceDate, p.CreatedAt)

	invoice := &trade.Invoice{
		BaseEntity:         shared.NewBaseEntity(),
		TenantID:           tenantID,
		InvoiceNo:          p.InvoiceNo,
		CustomerID:         p.CustomerID,
		Status:             trade.DocumentStatusPosted,
		ExchangeRate:       rate,
		PricingCurrency:    pricing,
		SettlementCurrency: settle,
		WarehouseID:        p.WarehouseID,
		SourceEventID:      eventID,
		DeviceID:           deviceID,
		ShiftID:            p.ShiftID,
		CashierID:          p.CashierID,
		InvoiceDate:        invoiceDate,
		SalesChannel:       "pos",
	}
	if invoice.InvoiceNo == "" {
		invoice.InvoiceNo = snap.InvoiceNo
	}

	subtotal := valueobject.ZeroDual()
	discountTotal := valueobject.ZeroDual()
	costTotal := valueobject.ZeroDual()
	var movements []*inventory.StockMovement

	for i, l := range p.Lines {
		if l.ItemID == uuid.Nil {
			return nil, shared.NewValidationError("MISSING_ITEM", fmt.Sprintf("line %d names no item", i+1))
		}
		if !l.Qty.IsPositive() {
			return nil, shared.NewValidationError("BAD_QTY", fmt.Sprintf("line %d has non-positive quantity", i+1))
		}
		ref, ok := snap.Items[l.ItemID]
		if !ok {
			return nil, shared.NewValidationError("UNKNOWN_ITEM", fmt.Sprintf("line %d references unknown item %s", i+1, l.ItemID))
		}

		lineTotal := valueobject.NewDualAmount(l.LineTotalUSD, l.LineTotalLBP).Normalize(rate).Quantize()
		discount := valueobject.NewDualAmount(l.DiscountUSD, l.DiscountLBP).Normalize(rate).Quantize()
		subtotal = subtotal.Add(lineTotal)
		discountTotal = discountTotal.Add(discount)

		// POS-provided cost wins; otherwise the moving-average layer.
		unitCost := valueobject.NewDualAmount(l.UnitCostUSD, l.UnitCostLBP)
		if unitCost.IsZero() {
			unitCost = ref.CostLayer.AvgCost
		}
		costTotal = costTotal.Add(unitCost.MulQty(l.Qty)).Quantize()

		line := trade.InvoiceLine{
			ID:         uuid.New(),
			ItemID:     l.ItemID,
			Qty:        l.Qty,
			UnitPrice:  valueobject.NewDualAmount(l.UnitPriceUSD, l.UnitPriceLBP).Normalize(rate).Quantize(),
			Discount:   discount,
			LineTotal:  lineTotal,
			BatchNo:    l.BatchNo,
			ExpiryDate: parseExpiry(l.ExpiryDate),
			UnitCost:   unitCost.Quantize(),
		}
		invoice.Lines = append(invoice.Lines, line)

		if p.WarehouseID == nil {
			continue
		}
		allocs, err := allocateOutbound(ref, snap.TenantPolicy, snap.WarehousePolicy, l, invoiceDate)
		if err != nil {
			return nil, err
		}
		for _, a := range allocs {
			mv := inventory.NewOutboundMovement(tenantID, l.ItemID, *p.WarehouseID, a.BatchID, a.Qty,
				unitCost, invoiceDate, string(ledger.SourceSalesInvoice), invoice.ID, "POS sale")
			lineID := line.ID
			mv.SourceLineID = &lineID
			dev := deviceID
			mv.DeviceID = &dev
			movements = append(movements, mv)
		}
	}

	tax := taxAmount(p.Tax, rate)
	total := subtotal.Add(tax).Quantize()
	invoice.Subtotal = subtotal
	invoice.DiscountTotal = discountTotal
	invoice.TaxTotal = tax
	invoice.Total = total

	payments, err := paymentsFromPayload(p.Payments, rate, settle)
	if err != nil {
		return nil, err
	}
	invoice.Payments = payments

	paid := valueobject.ZeroDual()
	for _, pay := range invoice.SettledPayments() {
		paid = paid.Add(pay.Applied)
	}
	credit, err := trade.ComputeCreditAmount(total, paid, settle, rate)
	if err != nil {
		return nil, err
	}
	invoice.CreditAmount = credit

	if invoice.IsCreditSale() {
		if p.CustomerID == nil {
			return nil, shared.NewValidationError("CREDIT_NEEDS_CUSTOMER", "credit sale requires customer_id")
		}
		if snap.Customer == nil {
			return nil, shared.NewValidationError("UNKNOWN_CUSTOMER", "customer not found for credit sale")
		}
		if err := snap.Customer.AssertCreditCapacity(credit); err != nil {
			return nil, err
		}
		if snap.Customer.PaymentTermsDays > 0 {
			due := invoiceDate.AddDate(0, 0, snap.Customer.PaymentTermsDays)
			invoice.DueDate = &due
		}
	}

	return &SaleResult{Invoice: invoice, Movements: movements, CostOfGoods: costTotal}, nil
}

// allocateOutbound picks batches for one outbound line, honoring manual lot
// selection when named or required.
func allocateOutbound(ref ItemRef, tenant inventory.TenantPolicy, warehouse inventory.WarehousePolicy, l SaleLinePayload, date time.Time) ([]inventory.Allocation, error) {
	minExpiry := inventory.MinExpiryDate(ref.Policy, warehouse, date)
	named := l.BatchNo != "" || l.ExpiryDate != ""

	if inventory.ManualLotRequired(ref.Policy, tenant) && !named {
		return nil, shared.NewValidationError("MANUAL_LOT_REQUIRED", "manual lot selection is required for this item")
	}
	if named {
		return inventory.AllocateManual(ref.NamedBatch, ref.NamedBatchOnHand, l.Qty, minExpiry)
	}
	return inventory.AllocateFEFO(
		ref.Stocks,
		l.Qty,
		minExpiry,
		inventory.ResolveAllowNegativeStock(ref.Policy, warehouse, tenant),
		inventory.AllowUnbatchedRemainder(ref.Policy, warehouse),
	)
}
