package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// SalesInvoiceModel is the persistence model for POS sales invoices.
type SalesInvoiceModel struct {
	BaseModel
	TenantID           uuid.UUID            `gorm:"type:uuid;not null;index:idx_invoice_tenant_event,priority:1;uniqueIndex:uq_invoice_no,priority:1"`
	InvoiceNo          string               `gorm:"type:varchar(64);not null;uniqueIndex:uq_invoice_no,priority:2"`
	CustomerID         *uuid.UUID           `gorm:"type:uuid;index"`
	Status             trade.DocumentStatus `gorm:"type:varchar(20);not null;default:draft"`
	SubtotalUSD        decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	SubtotalLBP        decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountTotalUSD   decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountTotalLBP   decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	TaxTotalUSD        decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TaxTotalLBP        decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	TotalUSD           decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TotalLBP           decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	CreditAmountUSD    decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	CreditAmountLBP    decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	ExchangeRate       decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	PricingCurrency    string               `gorm:"type:varchar(3);not null;default:USD"`
	SettlementCurrency string               `gorm:"type:varchar(3);not null;default:USD"`
	WarehouseID        *uuid.UUID           `gorm:"type:uuid"`
	SourceEventID      uuid.UUID            `gorm:"type:uuid;not null;index:idx_invoice_tenant_event,priority:2"`
	DeviceID           uuid.UUID            `gorm:"type:uuid;not null"`
	ShiftID            *uuid.UUID           `gorm:"type:uuid"`
	CashierID          *uuid.UUID           `gorm:"type:uuid"`
	InvoiceDate        time.Time            `gorm:"not null"`
	DueDate            *time.Time
	SalesChannel       string `gorm:"type:varchar(32)"`

	Lines    []SalesInvoiceLineModel    `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Payments []SalesInvoicePaymentModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (SalesInvoiceModel) TableName() string {
	return "sales_invoices"
}

// SalesInvoiceLineModel is one sold item on a sales invoice.
type SalesInvoiceLineModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Qty          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPriceUSD decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPriceLBP decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountUSD  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountLBP  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LineTotalUSD decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotalLBP decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	UnitCostUSD  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCostLBP  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BatchNo      string          `gorm:"type:varchar(64)"`
	ExpiryDate   *time.Time      `gorm:"type:date"`
	LineNo       int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SalesInvoiceLineModel) TableName() string {
	return "sales_invoice_lines"
}

// SalesInvoicePaymentModel is one tender line on a sales invoice.
type SalesInvoicePaymentModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method     string          `gorm:"type:varchar(32);not null"`
	TenderUSD  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TenderLBP  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	AppliedUSD decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AppliedLBP decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Reference  string          `gorm:"type:varchar(128)"`
}

// TableName returns the table name for GORM
func (SalesInvoicePaymentModel) TableName() string {
	return "sales_invoice_payments"
}

// ToDomain converts the persistence model to a domain Invoice with lines and
// payments.
func (m *SalesInvoiceModel) ToDomain() *trade.Invoice {
	inv := &trade.Invoice{
		BaseEntity:         m.BaseModel.ToDomain(),
		TenantID:           m.TenantID,
		InvoiceNo:          m.InvoiceNo,
		CustomerID:         m.CustomerID,
		Status:             m.Status,
		Subtotal:           valueobject.NewDualAmount(m.SubtotalUSD, m.SubtotalLBP),
		DiscountTotal:      valueobject.NewDualAmount(m.DiscountTotalUSD, m.DiscountTotalLBP),
		TaxTotal:           valueobject.NewDualAmount(m.TaxTotalUSD, m.TaxTotalLBP),
		Total:              valueobject.NewDualAmount(m.TotalUSD, m.TotalLBP),
		CreditAmount:       valueobject.NewDualAmount(m.CreditAmountUSD, m.CreditAmountLBP),
		ExchangeRate:       m.ExchangeRate,
		PricingCurrency:    valueobject.Currency(m.PricingCurrency),
		SettlementCurrency: valueobject.Currency(m.SettlementCurrency),
		WarehouseID:        m.WarehouseID,
		SourceEventID:      m.SourceEventID,
		DeviceID:           m.DeviceID,
		ShiftID:            m.ShiftID,
		CashierID:          m.CashierID,
		InvoiceDate:        m.InvoiceDate,
		DueDate:            m.DueDate,
		SalesChannel:       m.SalesChannel,
	}
	for _, lm := range m.Lines {
		inv.Lines = append(inv.Lines, trade.InvoiceLine{
			ID:         lm.ID,
			ItemID:     lm.ItemID,
			Qty:        lm.Qty,
			UnitPrice:  valueobject.NewDualAmount(lm.UnitPriceUSD, lm.UnitPriceLBP),
			Discount:   valueobject.NewDualAmount(lm.DiscountUSD, lm.DiscountLBP),
			LineTotal:  valueobject.NewDualAmount(lm.LineTotalUSD, lm.LineTotalLBP),
			UnitCost:   valueobject.NewDualAmount(lm.UnitCostUSD, lm.UnitCostLBP),
			BatchNo:    lm.BatchNo,
			ExpiryDate: lm.ExpiryDate,
		})
	}
	for _, pm := range m.Payments {
		inv.Payments = append(inv.Payments, trade.Payment{
			ID:        pm.ID,
			Method:    pm.Method,
			Tender:    valueobject.NewDualAmount(pm.TenderUSD, pm.TenderLBP),
			Applied:   valueobject.NewDualAmount(pm.AppliedUSD, pm.AppliedLBP),
			Reference: pm.Reference,
		})
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice
func (m *SalesInvoiceModel) FromDomain(inv *trade.Invoice) {
	m.FromDomainBaseEntity(inv.BaseEntity)
	m.TenantID = inv.TenantID
	m.InvoiceNo = inv.InvoiceNo
	m.CustomerID = inv.CustomerID
	m.Status = inv.Status
	m.SubtotalUSD, m.SubtotalLBP = inv.Subtotal.USD, inv.Subtotal.LBP
	m.DiscountTotalUSD, m.DiscountTotalLBP = inv.DiscountTotal.USD, inv.DiscountTotal.LBP
	m.TaxTotalUSD, m.TaxTotalLBP = inv.TaxTotal.USD, inv.TaxTotal.LBP
	m.TotalUSD, m.TotalLBP = inv.Total.USD, inv.Total.LBP
	m.CreditAmountUSD, m.CreditAmountLBP = inv.CreditAmount.USD, inv.CreditAmount.LBP
	m.ExchangeRate = inv.ExchangeRate
	m.PricingCurrency = string(inv.PricingCurrency)
	m.SettlementCurrency = string(inv.SettlementCurrency)
	m.WarehouseID = inv.WarehouseID
	m.SourceEventID = inv.SourceEventID
	m.DeviceID = inv.DeviceID
	m.ShiftID = inv.ShiftID
	m.CashierID = inv.CashierID
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.SalesChannel = inv.SalesChannel
	m.Lines = m.Lines[:0]
	for i, l := range inv.Lines {
		m.Lines = append(m.Lines, SalesInvoiceLineModel{
			ID:           l.ID,
			InvoiceID:    inv.ID,
			ItemID:       l.ItemID,
			Qty:          l.Qty,
			UnitPriceUSD: l.UnitPrice.USD,
			UnitPriceLBP: l.UnitPrice.LBP,
			DiscountUSD:  l.Discount.USD,
			DiscountLBP:  l.Discount.LBP,
			LineTotalUSD: l.LineTotal.USD,
			LineTotalLBP: l.LineTotal.LBP,
			UnitCostUSD:  l.UnitCost.USD,
			UnitCostLBP:  l.UnitCost.LBP,
			BatchNo:      l.BatchNo,
			ExpiryDate:   l.ExpiryDate,
			LineNo:       i + 1,
		})
	}
	m.Payments = m.Payments[:0]
	for _, p := range inv.Payments {
		m.Payments = append(m.Payments, SalesInvoicePaymentModel{
			ID:         p.ID,
			InvoiceID:  inv.ID,
			Method:     p.Method,
			TenderUSD:  p.Tender.USD,
			TenderLBP:  p.Tender.LBP,
			AppliedUSD: p.Applied.USD,
			AppliedLBP: p.Applied.LBP,
			Reference:  p.Reference,
		})
	}
}

// SalesReturnModel is the persistence model for POS sales returns.
type SalesReturnModel struct {
	BaseModel
	TenantID            uuid.UUID            `gorm:"type:uuid;not null;index:idx_return_tenant_event,priority:1;uniqueIndex:uq_return_no,priority:1"`
	ReturnNo            string               `gorm:"type:varchar(64);not null;uniqueIndex:uq_return_no,priority:2"`
	InvoiceID           *uuid.UUID           `gorm:"type:uuid;index"`
	Status              trade.DocumentStatus `gorm:"type:varchar(20);not null;default:draft"`
	TotalUSD            decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TotalLBP            decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	RestockingFeeUSD    decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	RestockingFeeLBP    decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	ExchangeRate        decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	WarehouseID         *uuid.UUID           `gorm:"type:uuid"`
	SourceEventID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_return_tenant_event,priority:2"`
	DeviceID            uuid.UUID            `gorm:"type:uuid;not null"`
	ShiftID             *uuid.UUID           `gorm:"type:uuid"`
	CashierID           *uuid.UUID           `gorm:"type:uuid"`
	ReturnDate          time.Time            `gorm:"not null"`
	RefundMethod        string               `gorm:"type:varchar(32)"`
	Reason              string               `gorm:"type:varchar(255)"`
	ReturnCondition     string               `gorm:"type:varchar(64)"`
	RestockingFeeReason string               `gorm:"type:varchar(255)"`

	Lines []SalesReturnLineModel `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (SalesReturnModel) TableName() string {
	return "sales_returns"
}

// SalesReturnLineModel is one returned item on a sales return.
type SalesReturnLineModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReturnID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Qty          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPriceUSD decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPriceLBP decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LineTotalUSD decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotalLBP decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	UnitCostUSD  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCostLBP  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BatchNo      string          `gorm:"type:varchar(64)"`
	ExpiryDate   *time.Time      `gorm:"type:date"`
	LineNo       int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SalesReturnLineModel) TableName() string {
	return "sales_return_lines"
}

// ToDomain converts the persistence model to a domain SalesReturn with lines.
func (m *SalesReturnModel) ToDomain() *trade.SalesReturn {
	ret := &trade.SalesReturn{
		BaseEntity:          m.BaseModel.ToDomain(),
		TenantID:            m.TenantID,
		ReturnNo:            m.ReturnNo,
		InvoiceID:           m.InvoiceID,
		Status:              m.Status,
		Total:               valueobject.NewDualAmount(m.TotalUSD, m.TotalLBP),
		RestockingFee:       valueobject.NewDualAmount(m.RestockingFeeUSD, m.RestockingFeeLBP),
		ExchangeRate:        m.ExchangeRate,
		WarehouseID:         m.WarehouseID,
		SourceEventID:       m.SourceEventID,
		DeviceID:            m.DeviceID,
		ShiftID:             m.ShiftID,
		CashierID:           m.CashierID,
		ReturnDate:          m.ReturnDate,
		RefundMethod:        m.RefundMethod,
		Reason:              m.Reason,
		ReturnCondition:     m.ReturnCondition,
		RestockingFeeReason: m.RestockingFeeReason,
	}
	for _, lm := range m.Lines {
		ret.Lines = append(ret.Lines, trade.ReturnLine{
			ID:         lm.ID,
			ItemID:     lm.ItemID,
			Qty:        lm.Qty,
			UnitPrice:  valueobject.NewDualAmount(lm.UnitPriceUSD, lm.UnitPriceLBP),
			LineTotal:  valueobject.NewDualAmount(lm.LineTotalUSD, lm.LineTotalLBP),
			UnitCost:   valueobject.NewDualAmount(lm.UnitCostUSD, lm.UnitCostLBP),
			BatchNo:    lm.BatchNo,
			ExpiryDate: lm.ExpiryDate,
		})
	}
	return ret
}

// FromDomain populates the persistence model from a domain SalesReturn
func (m *SalesReturnModel) FromDomain(ret *trade.SalesReturn) {
	m.FromDomainBaseEntity(ret.BaseEntity)
	m.TenantID = ret.TenantID
	m.ReturnNo = ret.ReturnNo
	m.InvoiceID = ret.InvoiceID
	m.Status = ret.Status
	m.TotalUSD, m.TotalLBP = ret.Total.USD, ret.Total.LBP
	m.RestockingFeeUSD, m.RestockingFeeLBP = ret.RestockingFee.USD, ret.RestockingFee.LBP
	m.ExchangeRate = ret.ExchangeRate
	m.WarehouseID = ret.WarehouseID
	m.SourceEventID = ret.SourceEventID
	m.DeviceID = ret.DeviceID
	m.ShiftID = ret.ShiftID
	m.CashierID = ret.CashierID
	m.ReturnDate = ret.ReturnDate
	m.RefundMethod = ret.RefundMethod
	m.Reason = ret.Reason
	m.ReturnCondition = ret.ReturnCondition
	m.RestockingFeeReason = ret.RestockingFeeReason
	m.Lines = m.Lines[:0]
	for i, l := range ret.Lines {
		m.Lines = append(m.Lines, SalesReturnLineModel{
			ID:           l.ID,
			ReturnID:     ret.ID,
			ItemID:       l.ItemID,
			Qty:          l.Qty,
			UnitPriceUSD: l.UnitPrice.USD,
			UnitPriceLBP: l.UnitPrice.LBP,
			LineTotalUSD: l.LineTotal.USD,
			LineTotalLBP: l.LineTotal.LBP,
			UnitCostUSD:  l.UnitCost.USD,
			UnitCostLBP:  l.UnitCost.LBP,
			BatchNo:      l.BatchNo,
			ExpiryDate:   l.ExpiryDate,
			LineNo:       i + 1,
		})
	}
}

// RefundModel is the persistence model for customer refunds.
type RefundModel struct {
	BaseModel
	TenantID          uuid.UUID          `gorm:"type:uuid;not null;index"`
	ReturnID          uuid.UUID          `gorm:"type:uuid;not null;index"`
	Method            string             `gorm:"type:varchar(32);not null"`
	AmountUSD         decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	AmountLBP         decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0"`
	Status            trade.RefundStatus `gorm:"type:varchar(20);not null;default:pending"`
	BankTransactionID *uuid.UUID         `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (RefundModel) TableName() string {
	return "refunds"
}

// ToDomain converts the persistence model to a domain Refund
func (m *RefundModel) ToDomain() *trade.Refund {
	return &trade.Refund{
		BaseEntity:        m.BaseModel.ToDomain(),
		TenantID:          m.TenantID,
		ReturnID:          m.ReturnID,
		Method:            m.Method,
		Amount:            valueobject.NewDualAmount(m.AmountUSD, m.AmountLBP),
		Status:            m.Status,
		BankTransactionID: m.BankTransactionID,
	}
}

// FromDomain populates the persistence model from a domain Refund
func (m *RefundModel) FromDomain(r *trade.Refund) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.TenantID = r.TenantID
	m.ReturnID = r.ReturnID
	m.Method = r.Method
	m.AmountUSD, m.AmountLBP = r.Amount.USD, r.Amount.LBP
	m.Status = r.Status
	m.BankTransactionID = r.BankTransactionID
}

// GoodsReceiptModel is the persistence model for goods receipts.
type GoodsReceiptModel struct {
	BaseModel
	TenantID      uuid.UUID            `gorm:"type:uuid;not null;index:idx_receipt_tenant_event,priority:1;uniqueIndex:uq_receipt_no,priority:1"`
	ReceiptNo     string               `gorm:"type:varchar(64);not null;uniqueIndex:uq_receipt_no,priority:2"`
	SupplierID    *uuid.UUID           `gorm:"type:uuid;index"`
	PurchaseOrder string               `gorm:"type:varchar(64)"`
	Status        trade.DocumentStatus `gorm:"type:varchar(20);not null;default:draft"`
	TotalUSD      decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TotalLBP      decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	ExchangeRate  decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	WarehouseID   uuid.UUID            `gorm:"type:uuid;not null"`
	SourceEventID uuid.UUID            `gorm:"type:uuid;not null;index:idx_receipt_tenant_event,priority:2"`
	DeviceID      uuid.UUID            `gorm:"type:uuid;not null"`
	ReceiptDate   time.Time            `gorm:"not null"`

	Lines []GoodsReceiptLineModel `gorm:"foreignKey:ReceiptID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (GoodsReceiptModel) TableName() string {
	return "goods_receipts"
}

// GoodsReceiptLineModel is one received item on a goods receipt.
type GoodsReceiptLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReceiptID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Qty         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCostUSD decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCostLBP decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BatchNo     string          `gorm:"type:varchar(64)"`
	ExpiryDate  *time.Time      `gorm:"type:date"`
	LineNo      int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (GoodsReceiptLineModel) TableName() string {
	return "goods_receipt_lines"
}

// ToDomain converts the persistence model to a domain GoodsReceipt with lines.
func (m *GoodsReceiptModel) ToDomain() *trade.GoodsReceipt {
	r := &trade.GoodsReceipt{
		BaseEntity:    m.BaseModel.ToDomain(),
		TenantID:      m.TenantID,
		ReceiptNo:     m.ReceiptNo,
		SupplierID:    m.SupplierID,
		PurchaseOrder: m.PurchaseOrder,
		Status:        m.Status,
		Total:         valueobject.NewDualAmount(m.TotalUSD, m.TotalLBP),
		ExchangeRate:  m.ExchangeRate,
		WarehouseID:   m.WarehouseID,
		SourceEventID: m.SourceEventID,
		DeviceID:      m.DeviceID,
		ReceiptDate:   m.ReceiptDate,
	}
	for _, lm := range m.Lines {
		r.Lines = append(r.Lines, trade.ReceiptLine{
			ID:         lm.ID,
			ItemID:     lm.ItemID,
			Qty:        lm.Qty,
			UnitCost:   valueobject.NewDualAmount(lm.UnitCostUSD, lm.UnitCostLBP),
			BatchNo:    lm.BatchNo,
			ExpiryDate: lm.ExpiryDate,
		})
	}
	return r
}

// FromDomain populates the persistence model from a domain GoodsReceipt
func (m *GoodsReceiptModel) FromDomain(r *trade.GoodsReceipt) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.TenantID = r.TenantID
	m.ReceiptNo = r.ReceiptNo
	m.SupplierID = r.SupplierID
	m.PurchaseOrder = r.PurchaseOrder
	m.Status = r.Status
	m.TotalUSD, m.TotalLBP = r.Total.USD, r.Total.LBP
	m.ExchangeRate = r.ExchangeRate
	m.WarehouseID = r.WarehouseID
	m.SourceEventID = r.SourceEventID
	m.DeviceID = r.DeviceID
	m.ReceiptDate = r.ReceiptDate
	m.Lines = m.Lines[:0]
	for i, l := range r.Lines {
		m.Lines = append(m.Lines, GoodsReceiptLineModel{
			ID:          l.ID,
			ReceiptID:   r.ID,
			ItemID:      l.ItemID,
			Qty:         l.Qty,
			UnitCostUSD: l.UnitCost.USD,
			UnitCostLBP: l.UnitCost.LBP,
			BatchNo:     l.BatchNo,
			ExpiryDate:  l.ExpiryDate,
			LineNo:      i + 1,
		})
	}
}

// SupplierInvoiceModel is the persistence model for supplier invoices.
type SupplierInvoiceModel struct {
	BaseModel
	TenantID      uuid.UUID            `gorm:"type:uuid;not null;index:idx_supplier_inv_tenant_event,priority:1;uniqueIndex:uq_supplier_inv_no,priority:1"`
	InvoiceNo     string               `gorm:"type:varchar(64);not null;uniqueIndex:uq_supplier_inv_no,priority:2"`
	SupplierRef   string               `gorm:"type:varchar(64)"`
	SupplierID    *uuid.UUID           `gorm:"type:uuid;index"`
	ReceiptID     *uuid.UUID           `gorm:"type:uuid;index"`
	Status        trade.DocumentStatus `gorm:"type:varchar(20);not null;default:draft"`
	NetTotalUSD   decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	NetTotalLBP   decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	TaxTotalUSD   decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TaxTotalLBP   decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	TotalUSD      decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TotalLBP      decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	ExchangeRate  decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	SourceEventID uuid.UUID            `gorm:"type:uuid;not null;index:idx_supplier_inv_tenant_event,priority:2"`
	DeviceID      uuid.UUID            `gorm:"type:uuid;not null"`
	InvoiceDate   time.Time            `gorm:"not null"`
	DueDate       *time.Time
	OnHold        bool   `gorm:"not null;default:false"`
	HoldReason    string `gorm:"type:varchar(255)"`

	Lines    []SupplierInvoiceLineModel    `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Payments []SupplierInvoicePaymentModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (SupplierInvoiceModel) TableName() string {
	return "supplier_invoices"
}

// SupplierInvoiceLineModel is one billed item on a supplier invoice.
type SupplierInvoiceLineModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID      *uuid.UUID      `gorm:"type:uuid"`
	Qty          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCostUSD  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCostLBP  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LineTotalUSD decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotalLBP decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BatchNo      string          `gorm:"type:varchar(64)"`
	ExpiryDate   *time.Time      `gorm:"type:date"`
	LineNo       int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SupplierInvoiceLineModel) TableName() string {
	return "supplier_invoice_lines"
}

// SupplierInvoicePaymentModel is a settlement recorded against a supplier invoice.
type SupplierInvoicePaymentModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method    string          `gorm:"type:varchar(32);not null"`
	AmountUSD decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AmountLBP decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (SupplierInvoicePaymentModel) TableName() string {
	return "supplier_invoice_payments"
}

// ToDomain converts the persistence model to a domain SupplierInvoice.
func (m *SupplierInvoiceModel) ToDomain() *trade.SupplierInvoice {
	inv := &trade.SupplierInvoice{
		BaseEntity:    m.BaseModel.ToDomain(),
		TenantID:      m.TenantID,
		InvoiceNo:     m.InvoiceNo,
		SupplierRef:   m.SupplierRef,
		SupplierID:    m.SupplierID,
		ReceiptID:     m.ReceiptID,
		Status:        m.Status,
		NetTotal:      valueobject.NewDualAmount(m.NetTotalUSD, m.NetTotalLBP),
		TaxTotal:      valueobject.NewDualAmount(m.TaxTotalUSD, m.TaxTotalLBP),
		Total:         valueobject.NewDualAmount(m.TotalUSD, m.TotalLBP),
		ExchangeRate:  m.ExchangeRate,
		SourceEventID: m.SourceEventID,
		DeviceID:      m.DeviceID,
		InvoiceDate:   m.InvoiceDate,
		DueDate:       m.DueDate,
		OnHold:        m.OnHold,
		HoldReason:    m.HoldReason,
	}
	for _, lm := range m.Lines {
		inv.Lines = append(inv.Lines, trade.SupplierInvoiceLine{
			ID:         lm.ID,
			ItemID:     lm.ItemID,
			BatchID:    lm.BatchID,
			Qty:        lm.Qty,
			UnitCost:   valueobject.NewDualAmount(lm.UnitCostUSD, lm.UnitCostLBP),
			LineTotal:  valueobject.NewDualAmount(lm.LineTotalUSD, lm.LineTotalLBP),
			BatchNo:    lm.BatchNo,
			ExpiryDate: lm.ExpiryDate,
		})
	}
	for _, pm := range m.Payments {
		inv.Payments = append(inv.Payments, trade.SupplierPayment{
			ID:     pm.ID,
			Method: pm.Method,
			Amount: valueobject.NewDualAmount(pm.AmountUSD, pm.AmountLBP),
		})
	}
	return inv
}

// FromDomain populates the persistence model from a domain SupplierInvoice
func (m *SupplierInvoiceModel) FromDomain(inv *trade.SupplierInvoice) {
	m.FromDomainBaseEntity(inv.BaseEntity)
	m.TenantID = inv.TenantID
	m.InvoiceNo = inv.InvoiceNo
	m.SupplierRef = inv.SupplierRef
	m.SupplierID = inv.SupplierID
	m.ReceiptID = inv.ReceiptID
	m.Status = inv.Status
	m.NetTotalUSD, m.NetTotalLBP = inv.NetTotal.USD, inv.NetTotal.LBP
	m.TaxTotalUSD, m.TaxTotalLBP = inv.TaxTotal.USD, inv.TaxTotal.LBP
	m.TotalUSD, m.TotalLBP = inv.Total.USD, inv.Total.LBP
	m.ExchangeRate = inv.ExchangeRate
	m.SourceEventID = inv.SourceEventID
	m.DeviceID = inv.DeviceID
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.OnHold = inv.OnHold
	m.HoldReason = inv.HoldReason
	m.Lines = m.Lines[:0]
	for i, l := range inv.Lines {
		m.Lines = append(m.Lines, SupplierInvoiceLineModel{
			ID:           l.ID,
			InvoiceID:    inv.ID,
			ItemID:       l.ItemID,
			BatchID:      l.BatchID,
			Qty:          l.Qty,
			UnitCostUSD:  l.UnitCost.USD,
			UnitCostLBP:  l.UnitCost.LBP,
			LineTotalUSD: l.LineTotal.USD,
			LineTotalLBP: l.LineTotal.LBP,
			BatchNo:      l.BatchNo,
			ExpiryDate:   l.ExpiryDate,
			LineNo:       i + 1,
		})
	}
	m.Payments = m.Payments[:0]
	for _, p := range inv.Payments {
		m.Payments = append(m.Payments, SupplierInvoicePaymentModel{
			ID:        p.ID,
			InvoiceID: inv.ID,
			Method:    p.Method,
			AmountUSD: p.Amount.USD,
			AmountLBP: p.Amount.LBP,
		})
	}
}

// CashMovementModel is the persistence model for drawer cash movements. The
// primary key is the originating event ID, so replays collide and are
// ignored.
type CashMovementModel struct {
	BaseModel
	TenantID  uuid.UUID              `gorm:"type:uuid;not null;index"`
	ShiftID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	DeviceID  uuid.UUID              `gorm:"type:uuid;not null;index"`
	Type      trade.CashMovementType `gorm:"type:varchar(20);not null"`
	AmountUSD decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	AmountLBP decimal.Decimal        `gorm:"type:decimal(18,2);not null;default:0"`
	Notes     string                 `gorm:"type:varchar(255)"`
	CashierID *uuid.UUID             `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (CashMovementModel) TableName() string {
	return "cash_movements"
}

// ToDomain converts the persistence model to a domain CashMovement
func (m *CashMovementModel) ToDomain() *trade.CashMovement {
	return &trade.CashMovement{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		ShiftID:    m.ShiftID,
		DeviceID:   m.DeviceID,
		Type:       m.Type,
		Amount:     valueobject.NewDualAmount(m.AmountUSD, m.AmountLBP),
		Notes:      m.Notes,
		CashierID:  m.CashierID,
	}
}

// FromDomain populates the persistence model from a domain CashMovement
func (m *CashMovementModel) FromDomain(cm *trade.CashMovement) {
	m.FromDomainBaseEntity(cm.BaseEntity)
	m.TenantID = cm.TenantID
	m.ShiftID = cm.ShiftID
	m.DeviceID = cm.DeviceID
	m.Type = cm.Type
	m.AmountUSD, m.AmountLBP = cm.Amount.USD, cm.Amount.LBP
	m.Notes = cm.Notes
	m.CashierID = cm.CashierID
}

// CustomerModel is the persistence model for customers' credit profiles.
type CustomerModel struct {
	BaseModel
	TenantID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name             string          `gorm:"type:varchar(255);not null"`
	CreditLimitUSD   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreditLimitLBP   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreditBalanceUSD decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreditBalanceLBP decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentTermsDays int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *trade.Customer {
	return &trade.Customer{
		BaseEntity:       m.BaseModel.ToDomain(),
		TenantID:         m.TenantID,
		Name:             m.Name,
		CreditLimit:      valueobject.NewDualAmount(m.CreditLimitUSD, m.CreditLimitLBP),
		CreditBalance:    valueobject.NewDualAmount(m.CreditBalanceUSD, m.CreditBalanceLBP),
		PaymentTermsDays: m.PaymentTermsDays,
	}
}

// FromDomain populates the persistence model from a domain Customer
func (m *CustomerModel) FromDomain(c *trade.Customer) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.TenantID = c.TenantID
	m.Name = c.Name
	m.CreditLimitUSD, m.CreditLimitLBP = c.CreditLimit.USD, c.CreditLimit.LBP
	m.CreditBalanceUSD, m.CreditBalanceLBP = c.CreditBalance.USD, c.CreditBalance.LBP
	m.PaymentTermsDays = c.PaymentTermsDays
}

// ShiftModel is the persistence model for register shifts. Only the open/
// closed state matters to posting; the full shift lifecycle lives on the
// device.
type ShiftModel struct {
	BaseModel
	TenantID uuid.UUID  `gorm:"type:uuid;not null;index:idx_shift_device,priority:1"`
	DeviceID uuid.UUID  `gorm:"type:uuid;not null;index:idx_shift_device,priority:2"`
	OpenedAt time.Time  `gorm:"not null"`
	ClosedAt *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (ShiftModel) TableName() string {
	return "register_shifts"
}

// SupplierModel is the persistence model for suppliers.
type SupplierModel struct {
	BaseModel
	TenantID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Name             string    `gorm:"type:varchar(255);not null"`
	PaymentTermsDays int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// TenantSettingModel is one tenant-level key/value setting.
type TenantSettingModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_tenant_setting,priority:1"`
	Key      string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_tenant_setting,priority:2"`
	Value    string    `gorm:"type:varchar(255);not null"`
}

// TableName returns the table name for GORM
func (TenantSettingModel) TableName() string {
	return "tenant_settings"
}

// DocNumberModel carries one gap-free per-tenant document number series.
type DocNumberModel struct {
	TenantID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocType    string    `gorm:"type:varchar(8);primaryKey"`
	NextNumber int64     `gorm:"not null;default:1"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocNumberModel) TableName() string {
	return "doc_number_series"
}
