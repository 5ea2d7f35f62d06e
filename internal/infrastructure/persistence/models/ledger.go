package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahtrading/backend/internal/domain/ledger"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// JournalModel is the persistence model for GL journals.
type JournalModel struct {
	BaseModel
	TenantID     uuid.UUID            `gorm:"type:uuid;not null;index:idx_journal_tenant_source,priority:1;uniqueIndex:uq_journal_no,priority:1"`
	JournalNo    string               `gorm:"type:varchar(64);not null;uniqueIndex:uq_journal_no,priority:2"`
	SourceType   ledger.SourceType    `gorm:"type:varchar(32);not null;index:idx_journal_tenant_source,priority:2"`
	SourceID     uuid.UUID            `gorm:"type:uuid;not null;index:idx_journal_tenant_source,priority:3"`
	JournalDate  time.Time            `gorm:"not null"`
	ExchangeRate decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	Memo         string               `gorm:"type:varchar(255)"`
	Status       ledger.JournalStatus `gorm:"type:varchar(20);not null;default:draft"`
	DeviceID     *uuid.UUID           `gorm:"type:uuid"`
	CashierID    *uuid.UUID           `gorm:"type:uuid"`

	Lines []JournalLineModel `gorm:"foreignKey:JournalID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (JournalModel) TableName() string {
	return "gl_journals"
}

// JournalLineModel is one journal entry line carrying both currency legs.
type JournalLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	JournalID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	DebitUSD    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DebitLBP    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreditUSD   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreditLBP   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Memo        string          `gorm:"type:varchar(255)"`
	WarehouseID *uuid.UUID      `gorm:"type:uuid"`
	LineNo      int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "gl_journal_lines"
}

// ToDomain converts the persistence model to a domain Journal with lines.
func (m *JournalModel) ToDomain() *ledger.Journal {
	j := &ledger.Journal{
		BaseEntity:   m.BaseModel.ToDomain(),
		TenantID:     m.TenantID,
		JournalNo:    m.JournalNo,
		SourceType:   m.SourceType,
		SourceID:     m.SourceID,
		JournalDate:  m.JournalDate,
		ExchangeRate: m.ExchangeRate,
		Memo:         m.Memo,
		Status:       m.Status,
		DeviceID:     m.DeviceID,
		CashierID:    m.CashierID,
	}
	for _, lm := range m.Lines {
		j.Lines = append(j.Lines, ledger.JournalLine{
			ID:          lm.ID,
			AccountID:   lm.AccountID,
			Debit:       valueobject.NewDualAmount(lm.DebitUSD, lm.DebitLBP),
			Credit:      valueobject.NewDualAmount(lm.CreditUSD, lm.CreditLBP),
			Memo:        lm.Memo,
			WarehouseID: lm.WarehouseID,
		})
	}
	return j
}

// FromDomain populates the persistence model from a domain Journal
func (m *JournalModel) FromDomain(j *ledger.Journal) {
	m.FromDomainBaseEntity(j.BaseEntity)
	m.TenantID = j.TenantID
	m.JournalNo = j.JournalNo
	m.SourceType = j.SourceType
	m.SourceID = j.SourceID
	m.JournalDate = j.JournalDate
	m.ExchangeRate = j.ExchangeRate
	m.Memo = j.Memo
	m.Status = j.Status
	m.DeviceID = j.DeviceID
	m.CashierID = j.CashierID
	m.Lines = m.Lines[:0]
	for i, l := range j.Lines {
		m.Lines = append(m.Lines, JournalLineModel{
			ID:          l.ID,
			JournalID:   j.ID,
			AccountID:   l.AccountID,
			DebitUSD:    l.Debit.USD,
			DebitLBP:    l.Debit.LBP,
			CreditUSD:   l.Credit.USD,
			CreditLBP:   l.Credit.LBP,
			Memo:        l.Memo,
			WarehouseID: l.WarehouseID,
			LineNo:      i + 1,
		})
	}
}

// AccountDefaultModel maps one posting role or payment method to a concrete
// chart-of-accounts entry for a tenant. Rows with a non-empty PaymentMethod
// carry method mappings; the rest carry role mappings.
type AccountDefaultModel struct {
	BaseModel
	TenantID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_account_default,priority:1"`
	Role          string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_account_default,priority:2"`
	PaymentMethod string    `gorm:"type:varchar(32);not null;default:'';uniqueIndex:uq_account_default,priority:3"`
	AccountID     uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (AccountDefaultModel) TableName() string {
	return "account_defaults"
}

// PeriodLockModel is the persistence model for accounting period locks.
type PeriodLockModel struct {
	BaseModel
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	StartDate time.Time `gorm:"type:date;not null"`
	EndDate   time.Time `gorm:"type:date;not null"`
	Locked    bool      `gorm:"not null;default:true"`
	Reason    string    `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (PeriodLockModel) TableName() string {
	return "period_locks"
}

// ToDomain converts the persistence model to a domain PeriodLock
func (m *PeriodLockModel) ToDomain() *ledger.PeriodLock {
	return &ledger.PeriodLock{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
		Locked:     m.Locked,
		Reason:     m.Reason,
	}
}
