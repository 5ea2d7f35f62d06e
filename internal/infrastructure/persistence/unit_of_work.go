package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/ahtrading/backend/internal/application/posting"
)

// GormUnitOfWork implements posting.UnitOfWork on a single database
// transaction. Every repository in the store set shares the transaction, so
// a posting either commits whole or not at all.
type GormUnitOfWork struct {
	db *Database
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *Database) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Do runs fn inside one transaction, handing it the transactional store set
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s posting.Stores) error) error {
	return u.db.Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewStores(tx))
	})
}

// NewStores builds the posting store set over one database handle. Pass a
// transaction for transactional semantics.
func NewStores(db *gorm.DB) posting.Stores {
	return posting.Stores{
		Events:           NewGormOutboxRepository(db),
		Journals:         NewGormJournalRepository(db),
		Accounts:         NewGormAccountDefaultsRepository(db),
		Periods:          NewGormPeriodLockRepository(db),
		Invoices:         NewGormInvoiceRepository(db),
		Returns:          NewGormSalesReturnRepository(db),
		Receipts:         NewGormGoodsReceiptRepository(db),
		SupplierInvoices: NewGormSupplierInvoiceRepository(db),
		CashMovements:    NewGormCashMovementRepository(db),
		Customers:        NewGormCustomerRepository(db),
		Shifts:           NewGormShiftRepository(db),
		Suppliers:        NewGormSupplierRepository(db),
		Settings:         NewGormSettingsRepository(db),
		Batches:          NewGormBatchRepository(db),
		Stock:            NewGormStockRepository(db),
		Policies:         NewGormPolicyRepository(db),
		Numberer:         NewGormDocumentNumberer(db),
	}
}

var _ posting.UnitOfWork = (*GormUnitOfWork)(nil)
