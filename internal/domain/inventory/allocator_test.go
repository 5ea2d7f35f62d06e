package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahtrading/backend/internal/domain/shared"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func expiry(y int, m time.Month, day int) *time.Time {
	t := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func batchStock(expiryDate *time.Time, status BatchStatus, onHand string) BatchStock {
	id := uuid.New()
	return BatchStock{BatchID: &id, ExpiryDate: expiryDate, Status: status, OnHand: d(onHand)}
}

func TestAllocateFEFOEarliestExpiryFirst(t *testing.T) {
	e1 := batchStock(expiry(2026, 9, 1), BatchStatusAvailable, "5")
	e2 := batchStock(expiry(2026, 10, 1), BatchStatusAvailable, "5")
	e3 := batchStock(expiry(2026, 11, 1), BatchStatusAvailable, "5")
	stocks := []BatchStock{e3, e1, e2} // input order must not matter

	allocs, err := AllocateFEFO(stocks, d("7"), nil, true, true)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, *e1.BatchID, *allocs[0].BatchID, "earliest expiry consumed first")
	assert.True(t, allocs[0].Qty.Equal(d("5")), "earliest batch drained fully")
	assert.Equal(t, *e2.BatchID, *allocs[1].BatchID)
	assert.True(t, allocs[1].Qty.Equal(d("2")))
}

func TestAllocateFEFOSkipsQuarantineAndExpired(t *testing.T) {
	quarantined := batchStock(expiry(2026, 9, 1), BatchStatusQuarantine, "10")
	expired := batchStock(expiry(2025, 1, 1), BatchStatusExpired, "10")
	good := batchStock(expiry(2026, 12, 1), BatchStatusAvailable, "10")

	allocs, err := AllocateFEFO([]BatchStock{quarantined, expired, good}, d("4"), nil, true, true)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, *good.BatchID, *allocs[0].BatchID)
}

func TestAllocateFEFOShelfLifeFloor(t *testing.T) {
	tooSoon := batchStock(expiry(2026, 9, 5), BatchStatusAvailable, "10")
	ok := batchStock(expiry(2026, 10, 20), BatchStatusAvailable, "10")
	min := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	allocs, err := AllocateFEFO([]BatchStock{tooSoon, ok}, d("3"), &min, true, true)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, *ok.BatchID, *allocs[0].BatchID)
}

func TestAllocateFEFONoExpiryAllocatedLast(t *testing.T) {
	noExpiry := batchStock(nil, BatchStatusAvailable, "10")
	dated := batchStock(expiry(2026, 9, 1), BatchStatusAvailable, "2")

	allocs, err := AllocateFEFO([]BatchStock{noExpiry, dated}, d("5"), nil, true, true)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, *dated.BatchID, *allocs[0].BatchID)
	assert.True(t, allocs[1].Qty.Equal(d("3")))
}

func TestAllocateFEFOShortfallNegativeDisallowed(t *testing.T) {
	stocks := []BatchStock{batchStock(expiry(2026, 9, 1), BatchStatusAvailable, "2")}

	_, err := AllocateFEFO(stocks, d("5"), nil, false, true)
	require.Error(t, err)
	assert.True(t, shared.IsPermanent(err))
	assert.ErrorContains(t, err, "negative stock disabled")
}

func TestAllocateFEFOShortfallUnbatchedRemainder(t *testing.T) {
	stocks := []BatchStock{batchStock(expiry(2026, 9, 1), BatchStatusAvailable, "2")}

	allocs, err := AllocateFEFO(stocks, d("5"), nil, true, true)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Nil(t, allocs[1].BatchID, "deficit recorded unbatched")
	assert.True(t, allocs[1].Qty.Equal(d("3")))
}

func TestAllocateFEFOShortfallNoUnbatchedForTrackedItems(t *testing.T) {
	stocks := []BatchStock{batchStock(expiry(2026, 9, 1), BatchStatusAvailable, "2")}

	_, err := AllocateFEFO(stocks, d("5"), nil, true, false)
	require.Error(t, err)
	assert.ErrorContains(t, err, "eligible batch stock")
}

func TestAllocateFEFOZeroQty(t *testing.T) {
	allocs, err := AllocateFEFO(nil, decimal.Zero, nil, false, false)
	require.NoError(t, err)
	assert.Nil(t, allocs)
}

func TestAllocateManual(t *testing.T) {
	tenantID, itemID := uuid.New(), uuid.New()
	b := NewBatch(tenantID, itemID, "LOT-7", expiry(2026, 12, 1))

	allocs, err := AllocateManual(b, d("10"), d("4"), nil)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, b.ID, *allocs[0].BatchID)
	assert.True(t, allocs[0].Qty.Equal(d("4")))
}

func TestAllocateManualRejections(t *testing.T) {
	tenantID, itemID := uuid.New(), uuid.New()

	_, err := AllocateManual(nil, d("10"), d("4"), nil)
	require.Error(t, err)
	assert.True(t, shared.IsPermanent(err), "missing batch is not retryable")

	b := NewBatch(tenantID, itemID, "LOT-7", expiry(2026, 9, 5))
	min := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	_, err = AllocateManual(b, d("10"), d("4"), &min)
	assert.ErrorContains(t, err, "shelf-life")

	_, err = AllocateManual(b, d("2"), d("4"), nil)
	assert.ErrorContains(t, err, "insufficient stock")

	b.Status = BatchStatusQuarantine
	_, err = AllocateManual(b, d("10"), d("4"), nil)
	assert.ErrorContains(t, err, "not available")
}
