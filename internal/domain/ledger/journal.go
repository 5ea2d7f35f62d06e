package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// JournalStatus represents the lifecycle of a GL journal
type JournalStatus string

const (
	JournalStatusDraft    JournalStatus = "draft"
	JournalStatusPosted   JournalStatus = "posted"
	JournalStatusCanceled JournalStatus = "canceled"
)

// SourceType names the document kind a journal was posted from.
type SourceType string

const (
	SourceSalesInvoice    SourceType = "sales_invoice"
	SourceSalesReturn     SourceType = "sales_return"
	SourceGoodsReceipt    SourceType = "goods_receipt"
	SourceSupplierInvoice SourceType = "supplier_invoice"
	SourceCashMovement    SourceType = "cash_movement"
)

// Auto-balance tolerances. A residue beyond these is a builder bug, not
// quantization noise, and must fail the posting.
var (
	maxRoundingUSD = decimal.RequireFromString("0.05")
	maxRoundingLBP = decimal.RequireFromString("5000")
)

const roundingMemo = "Rounding (auto-balance)"

// JournalLine is one GL entry carrying both currency legs. Exactly one of
// Debit or Credit is non-zero per line.
type JournalLine struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Debit       valueobject.DualAmount
	Credit      valueobject.DualAmount
	Memo        string
	WarehouseID *uuid.UUID
}

// Journal is a balanced dual-currency GL document produced from exactly one
// source document.
type Journal struct {
	shared.BaseEntity
	TenantID     uuid.UUID
	JournalNo    string
	SourceType   SourceType
	SourceID     uuid.UUID
	JournalDate  time.Time
	ExchangeRate decimal.Decimal
	Memo         string
	Status       JournalStatus
	DeviceID     *uuid.UUID
	CashierID    *uuid.UUID
	Lines        []JournalLine
}

// NewJournal creates a draft journal for a source document.
func NewJournal(tenantID uuid.UUID, journalNo string, sourceType SourceType, sourceID uuid.UUID, journalDate time.Time, exchangeRate decimal.Decimal, memo string) *Journal {
	return &Journal{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     tenantID,
		JournalNo:    journalNo,
		SourceType:   sourceType,
		SourceID:     sourceID,
		JournalDate:  journalDate,
		ExchangeRate: exchangeRate,
		Memo:         memo,
		Status:       JournalStatusDraft,
	}
}

// AddDebit appends a debit line. Zero-valued lines are dropped.
func (j *Journal) AddDebit(accountID uuid.UUID, amount valueobject.DualAmount, memo string, warehouseID *uuid.UUID) {
	amount = amount.Quantize()
	if amount.IsZero() {
		return
	}
	j.Lines = append(j.Lines, JournalLine{
		ID:          uuid.New(),
		AccountID:   accountID,
		Debit:       amount,
		Credit:      valueobject.ZeroDual(),
		Memo:        memo,
		WarehouseID: warehouseID,
	})
}

// AddCredit appends a credit line. Zero-valued lines are dropped.
func (j *Journal) AddCredit(accountID uuid.UUID, amount valueobject.DualAmount, memo string, warehouseID *uuid.UUID) {
	amount = amount.Quantize()
	if amount.IsZero() {
		return
	}
	j.Lines = append(j.Lines, JournalLine{
		ID:          uuid.New(),
		AccountID:   accountID,
		Debit:       valueobject.ZeroDual(),
		Credit:      amount,
		Memo:        memo,
		WarehouseID: warehouseID,
	})
}

// Imbalance returns quantized debit-minus-credit per currency leg.
func (j *Journal) Imbalance() valueobject.DualAmount {
	diff := valueobject.ZeroDual()
	for _, l := range j.Lines {
		diff = diff.Add(l.Debit).Sub(l.Credit)
	}
	return diff.Quantize()
}

// Balanced reports whether both legs sum to zero.
func (j *Journal) Balanced() bool {
	return j.Imbalance().IsZero()
}

// AutoBalance absorbs a small quantization residue into the rounding account.
// A residue beyond tolerance fails with a conflict error and leaves the
// journal untouched. When debits exceed credits on either leg the rounding
// line is a credit, otherwise a debit.
func (j *Journal) AutoBalance(roundingAccountID uuid.UUID) error {
	diff := j.Imbalance()
	if diff.IsZero() {
		return nil
	}
	if diff.USD.Abs().GreaterThan(maxRoundingUSD) || diff.LBP.Abs().GreaterThan(maxRoundingLBP) {
		return shared.NewConflictError("JOURNAL_IMBALANCED",
			"journal is imbalanced (too large to auto-balance): "+diff.String())
	}
	if roundingAccountID == uuid.Nil {
		return shared.NewConflictError("MISSING_ACCOUNT_DEFAULT",
			"journal is imbalanced; missing ROUNDING account default")
	}

	abs := valueobject.NewDualAmount(diff.USD.Abs(), diff.LBP.Abs())
	if diff.USD.IsPositive() || diff.LBP.IsPositive() {
		j.AddCredit(roundingAccountID, abs, roundingMemo, nil)
	} else {
		j.AddDebit(roundingAccountID, abs, roundingMemo, nil)
	}
	return nil
}

// Post finalizes a balanced journal. Empty or imbalanced journals are a
// builder defect and rejected.
func (j *Journal) Post() error {
	if j.Status != JournalStatusDraft {
		return shared.NewConflictError("JOURNAL_NOT_DRAFT", "journal already finalized")
	}
	if len(j.Lines) == 0 {
		return shared.NewValidationError("JOURNAL_EMPTY", "journal has no lines")
	}
	if !j.Balanced() {
		return shared.NewConflictError("JOURNAL_IMBALANCED", "journal does not balance: "+j.Imbalance().String())
	}
	j.Status = JournalStatusPosted
	j.Touch()
	return nil
}
