package posting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahtrading/backend/internal/domain/inventory"
	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
	"github.com/ahtrading/backend/internal/domain/trade"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testRate = d("90000")

func testNow() time.Time {
	return time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
}

func untrackedItemRef(avgCostUSD string) ItemRef {
	return ItemRef{
		CostLayer: inventory.CostLayer{
			OnHand:  d("100"),
			AvgCost: valueobject.NewDualAmount(d(avgCostUSD), decimal.Zero).Normalize(testRate),
		},
	}
}

func saleFixture(itemID uuid.UUID) (*SalePayload, SaleSnapshot) {
	wh := uuid.New()
	p := &SalePayload{
		InvoiceNo:          "INV-1001",
		ExchangeRate:       testRate,
		SettlementCurrency: "USD",
		WarehouseID:        &wh,
		InvoiceDate:        "2025-03-10T12:00:00Z",
		Lines: []SaleLinePayload{{
			ItemID:       itemID,
			Qty:          d("2"),
			UnitPriceUSD: d("10"),
			LineTotalUSD: d("20"),
		}},
		Payments: []PaymentPayload{{Method: "cash", TenderUSD: d("22")}},
		Tax:      &TaxPayload{TaxUSD: d("2")},
	}
	snap := SaleSnapshot{
		InvoiceNo:    "INV-FALLBACK",
		TenantPolicy: inventory.DefaultTenantPolicy(),
		Items:        map[uuid.UUID]ItemRef{itemID: untrackedItemRef("4")},
	}
	return p, snap
}

func TestBuildSaleCashSale(t *testing.T) {
	itemID := uuid.New()
	p, snap := saleFixture(itemID)

	res, err := BuildSale(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.NoError(t, err)

	inv := res.Invoice
	assert.Equal(t, "INV-1001", inv.InvoiceNo)
	assert.Equal(t, trade.DocumentStatusPosted, inv.Status)
	assert.True(t, inv.Subtotal.USD.Equal(d("20")))
	assert.True(t, inv.TaxTotal.USD.Equal(d("2")))
	assert.True(t, inv.Total.USD.Equal(d("22")))
	assert.True(t, inv.Total.LBP.Equal(d("1980000")))
	assert.False(t, inv.IsCreditSale())
	assert.Nil(t, inv.DueDate)

	require.Len(t, inv.Payments, 1)
	assert.True(t, inv.Payments[0].Applied.USD.Equal(d("22")))

	require.Len(t, res.Movements, 1)
	mv := res.Movements[0]
	assert.Equal(t, inventory.DirectionOut, mv.Direction())
	assert.True(t, mv.Qty().Equal(d("2")))
	assert.Equal(t, inv.ID, mv.SourceID)

	// 2 units at the 4 USD moving average
	assert.True(t, res.CostOfGoods.USD.Equal(d("8")))
}

func TestBuildSaleFallbackInvoiceNo(t *testing.T) {
	itemID := uuid.New()
	p, snap := saleFixture(itemID)
	p.InvoiceNo = ""

	res, err := BuildSale(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.NoError(t, err)
	assert.Equal(t, "INV-FALLBACK", res.Invoice.InvoiceNo)
}

func TestBuildSaleCreditSale(t *testing.T) {
	itemID := uuid.New()
	custID := uuid.New()
	p, snap := saleFixture(itemID)
	p.CustomerID = &custID
	p.Payments = []PaymentPayload{{Method: "cash", TenderUSD: d("10")}}
	snap.Customer = &trade.Customer{
		CreditLimit:      valueobject.NewDualAmount(d("500"), decimal.Zero),
		PaymentTermsDays: 30,
	}
	snap.Customer.ID = custID

	res, err := BuildSale(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.NoError(t, err)

	inv := res.Invoice
	assert.True(t, inv.IsCreditSale())
	assert.True(t, inv.CreditAmount.USD.Equal(d("12")))
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC), *inv.DueDate)
}

func TestBuildSaleCreditSaleOverLimit(t *testing.T) {
	itemID := uuid.New()
	custID := uuid.New()
	p, snap := saleFixture(itemID)
	p.CustomerID = &custID
	p.Payments = nil
	snap.Customer = &trade.Customer{
		CreditLimit:   valueobject.NewDualAmount(d("20"), decimal.Zero),
		CreditBalance: valueobject.NewDualAmount(d("10"), decimal.Zero),
	}

	_, err := BuildSale(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.Error(t, err)
	assert.True(t, shared.IsPermanent(err))
}

func TestBuildSaleCreditSaleRequiresCustomer(t *testing.T) {
	itemID := uuid.New()
	p, snap := saleFixture(itemID)
	p.Payments = nil

	_, err := BuildSale(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "CREDIT_NEEDS_CUSTOMER", de.Code)
}

func TestBuildSaleManualLotRequired(t *testing.T) {
	itemID := uuid.New()
	p, snap := saleFixture(itemID)
	snap.TenantPolicy.RequireManualLotSelection = true
	ref := snap.Items[itemID]
	ref.Policy.TrackBatches = true
	snap.Items[itemID] = ref

	_, err := BuildSale(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "MANUAL_LOT_REQUIRED", de.Code)
}

func TestBuildSaleInsufficientTrackedStock(t *testing.T) {
	itemID := uuid.New()
	batchID := uuid.New()
	p, snap := saleFixture(itemID)
	allowNeg := false
	ref := snap.Items[itemID]
	ref.Policy.TrackBatches = true
	ref.Policy.AllowNegativeStock = &allowNeg
	ref.Stocks = []inventory.BatchStock{{
		BatchID: &batchID,
		Status:  inventory.BatchStatusAvailable,
		OnHand:  d("1"),
	}}
	snap.Items[itemID] = ref

	_, err := BuildSale(uuid.New(), uuid.New(), uuid.New(), p, snap, testNow())
	require.Error(t, err)
	assert.True(t, shared.IsPermanent(err))
}

func TestBuildSaleEmptyLines(t *testing.T) {
	_, err := BuildSale(uuid.New(), uuid.New(), uuid.New(), &SalePayload{}, SaleSnapshot{}, testNow())
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "EMPTY_SALE", de.Code)
}
