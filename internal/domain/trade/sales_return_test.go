package trade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundAmountNetOfRestockingFee(t *testing.T) {
	r := &SalesReturn{
		Total:         dual("20", "1790000"),
		RestockingFee: dual("2", "179000"),
	}
	refund := r.RefundAmount()
	assert.True(t, refund.USD.Equal(d("18")))
	assert.True(t, refund.LBP.Equal(d("1611000")))
}

func TestRefundAmountFlooredAtZero(t *testing.T) {
	r := &SalesReturn{
		Total:         dual("2", "179000"),
		RestockingFee: dual("5", "0"),
	}
	refund := r.RefundAmount()
	assert.True(t, refund.USD.IsZero(), "fee larger than total never flips the refund negative")
	assert.True(t, refund.LBP.Equal(d("179000")))
}

func TestRefundLifecycle(t *testing.T) {
	refund := NewRefund(uuid.New(), uuid.New(), "cash", dual("18", "1611000"))
	assert.Equal(t, RefundStatusPending, refund.Status)
	assert.Nil(t, refund.BankTransactionID)

	bankTxn := uuid.New()
	refund.Settle(&bankTxn)
	assert.Equal(t, RefundStatusSettled, refund.Status)
	require.NotNil(t, refund.BankTransactionID)
	assert.Equal(t, bankTxn, *refund.BankTransactionID)
}
