package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dual(usd, lbp string) valueobject.DualAmount {
	return valueobject.NewDualAmount(d(usd), d(lbp))
}

func newTestJournal() *Journal {
	return NewJournal(uuid.New(), "GL-SI-000001", SourceSalesInvoice, uuid.New(),
		time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), d("89500"), "POS sale SI-000001")
}

func TestJournalBalancedBothLegs(t *testing.T) {
	j := newTestJournal()
	cash, sales := uuid.New(), uuid.New()

	j.AddDebit(cash, dual("11.30", "1011350"), "Sales receipt", nil)
	j.AddCredit(sales, dual("10", "895000"), "Sales revenue", nil)
	j.AddCredit(uuid.New(), dual("1.30", "116350"), "VAT payable", nil)

	assert.True(t, j.Balanced())
	require.NoError(t, j.Post())
	assert.Equal(t, JournalStatusPosted, j.Status)
}

func TestJournalDropsZeroLines(t *testing.T) {
	j := newTestJournal()
	j.AddDebit(uuid.New(), valueobject.ZeroDual(), "noop", nil)
	j.AddCredit(uuid.New(), valueobject.ZeroDual(), "noop", nil)
	assert.Empty(t, j.Lines)
}

func TestAutoBalanceAbsorbsSmallResidue(t *testing.T) {
	j := newTestJournal()
	rounding := uuid.New()

	// Debits exceed credits by 0.01 USD / 300 LBP.
	j.AddDebit(uuid.New(), dual("10.01", "895300"), "Sales receipt", nil)
	j.AddCredit(uuid.New(), dual("10", "895000"), "Sales revenue", nil)
	require.False(t, j.Balanced())

	require.NoError(t, j.AutoBalance(rounding))
	assert.True(t, j.Balanced())

	last := j.Lines[len(j.Lines)-1]
	assert.Equal(t, rounding, last.AccountID)
	assert.Equal(t, "Rounding (auto-balance)", last.Memo)
	assert.True(t, last.Credit.USD.Equal(d("0.01")), "residue absorbed as credit")
	assert.True(t, last.Credit.LBP.Equal(d("300")))

	require.NoError(t, j.Post())
}

func TestAutoBalanceDebitSide(t *testing.T) {
	j := newTestJournal()
	rounding := uuid.New()

	// Credits exceed debits.
	j.AddDebit(uuid.New(), dual("10", "895000"), "Sales receipt", nil)
	j.AddCredit(uuid.New(), dual("10.02", "895100"), "Sales revenue", nil)

	require.NoError(t, j.AutoBalance(rounding))
	last := j.Lines[len(j.Lines)-1]
	assert.True(t, last.Debit.USD.Equal(d("0.02")))
	assert.True(t, last.Debit.LBP.Equal(d("100")))
	assert.True(t, j.Balanced())
}

func TestAutoBalanceRejectsLargeResidue(t *testing.T) {
	j := newTestJournal()
	j.AddDebit(uuid.New(), dual("11", "895000"), "Sales receipt", nil)
	j.AddCredit(uuid.New(), dual("10", "895000"), "Sales revenue", nil)

	err := j.AutoBalance(uuid.New())
	require.Error(t, err)
	assert.True(t, shared.IsPermanent(err))
	assert.NotContains(t, lastMemos(j), "Rounding (auto-balance)")
}

func TestAutoBalanceRequiresRoundingAccount(t *testing.T) {
	j := newTestJournal()
	j.AddDebit(uuid.New(), dual("10.01", "895000"), "Sales receipt", nil)
	j.AddCredit(uuid.New(), dual("10", "895000"), "Sales revenue", nil)

	err := j.AutoBalance(uuid.Nil)
	require.Error(t, err)
	assert.True(t, shared.IsPermanent(err))
}

func TestAutoBalanceNoopWhenBalanced(t *testing.T) {
	j := newTestJournal()
	j.AddDebit(uuid.New(), dual("10", "895000"), "Sales receipt", nil)
	j.AddCredit(uuid.New(), dual("10", "895000"), "Sales revenue", nil)

	require.NoError(t, j.AutoBalance(uuid.New()))
	assert.Len(t, j.Lines, 2)
}

func TestPostRejectsEmptyAndImbalanced(t *testing.T) {
	j := newTestJournal()
	require.Error(t, j.Post())

	j.AddDebit(uuid.New(), dual("1", "89500"), "Sales receipt", nil)
	err := j.Post()
	require.Error(t, err)
	assert.True(t, shared.IsPermanent(err))
}

func TestPostIsOneShot(t *testing.T) {
	j := newTestJournal()
	j.AddDebit(uuid.New(), dual("1", "89500"), "Sales receipt", nil)
	j.AddCredit(uuid.New(), dual("1", "89500"), "Sales revenue", nil)
	require.NoError(t, j.Post())
	assert.Error(t, j.Post())
}

func lastMemos(j *Journal) []string {
	memos := make([]string, 0, len(j.Lines))
	for _, l := range j.Lines {
		memos = append(memos, l.Memo)
	}
	return memos
}
