package posting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/domain/trade"
)

func purchaseInvoiceFixture(itemID uuid.UUID) (*PurchaseInvoicePayload, PurchaseInvoiceSnapshot) {
	receiptID := uuid.New()
	receipt := &trade.GoodsReceipt{
		Total: valueobject.NewDualAmount(d("30"), d("2700000")),
		Lines: []trade.ReceiptLine{{ItemID: itemID, Qty: d("10")}},
	}
	receipt.ID = receiptID

	p := &PurchaseInvoicePayload{
		InvoiceNo:    "PI-4001",
		ReceiptID:    &receiptID,
		ExchangeRate: testRate,
		InvoiceDate:  "2025-03-12",
		Lines: []ReceiptLinePayload{{
			ItemID:      itemID,
			Qty:         d("10"),
			UnitCostUSD: d("3"),
		}},
		Tax: &TaxPayload{TaxUSD: d("3.3")},
	}
	snap := PurchaseInvoiceSnapshot{
		InvoiceNo:         "PI-FALLBACK",
		Receipt:           receipt,
		SupplierTermsDays: 30,
		MatchThreshold:    d("0.05"),
	}
	return p, snap
}

func TestBuildPurchaseInvoiceTotals(t *testing.T) {
	itemID := uuid.New()
	p, snap := purchaseInvoiceFixture(itemID)

	res, err := BuildPurchaseInvoice(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.NoError(t, err)
	require.NoError(t, res.Held)

	inv := res.Invoice
	assert.True(t, inv.NetTotal.USD.Equal(d("30")))
	assert.True(t, inv.TaxTotal.USD.Equal(d("3.3")))
	assert.True(t, inv.Total.USD.Equal(d("33.3")))
	assert.False(t, inv.OnHold)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC), *inv.DueDate)
}

func TestBuildPurchaseInvoiceVarianceHold(t *testing.T) {
	itemID := uuid.New()
	p, snap := purchaseInvoiceFixture(itemID)
	p.Lines[0].UnitCostUSD = d("4")

	res, err := BuildPurchaseInvoice(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.NoError(t, err)
	require.Error(t, res.Held)
	var de *shared.DomainError
	require.ErrorAs(t, res.Held, &de)
	assert.Equal(t, "MATCH_VARIANCE_HOLD", de.Code)
	assert.True(t, res.Invoice.OnHold)
	assert.NotEmpty(t, res.Invoice.HoldReason)
}

func TestBuildPurchaseInvoiceUnknownReceipt(t *testing.T) {
	itemID := uuid.New()
	p, snap := purchaseInvoiceFixture(itemID)
	snap.Receipt = nil

	_, err := BuildPurchaseInvoice(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "UNKNOWN_RECEIPT", de.Code)
}

func TestBuildPurchaseInvoiceNoReceiptNoHold(t *testing.T) {
	itemID := uuid.New()
	p, snap := purchaseInvoiceFixture(itemID)
	p.ReceiptID = nil
	snap.Receipt = nil

	res, err := BuildPurchaseInvoice(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.NoError(t, err)
	require.NoError(t, res.Held)
	assert.False(t, res.Invoice.OnHold)
}

func TestBuildPurchaseInvoicePayments(t *testing.T) {
	itemID := uuid.New()
	p, snap := purchaseInvoiceFixture(itemID)
	p.Payments = []PaymentPayload{{Method: "Bank ", TenderUSD: d("33.3")}}

	res, err := BuildPurchaseInvoice(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.NoError(t, err)
	require.Len(t, res.Invoice.Payments, 1)
	assert.Equal(t, "bank", res.Invoice.Payments[0].Method)
	assert.True(t, res.Invoice.Payments[0].Amount.USD.Equal(d("33.3")))
}
