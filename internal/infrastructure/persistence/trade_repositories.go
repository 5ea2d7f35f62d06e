package persistence

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahtrading/backend/internal/domain/trade"
	"github.com/ahtrading/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements trade.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Save persists an invoice with lines and payments
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *trade.Invoice) error {
	var model models.SalesInvoiceModel
	model.FromDomain(invoice)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID retrieves an invoice with lines and payments
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Invoice, error) {
	var model models.SalesInvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Preload("Payments").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySourceEvent returns the invoice posted for an event, if any
func (r *GormInvoiceRepository) FindBySourceEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*trade.Invoice, error) {
	var model models.SalesInvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Preload("Payments").
		Where("tenant_id = ? AND source_event_id = ?", tenantID, eventID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ trade.InvoiceRepository = (*GormInvoiceRepository)(nil)

func lineOrder(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// GormSalesReturnRepository implements trade.SalesReturnRepository using GORM
type GormSalesReturnRepository struct {
	db *gorm.DB
}

// NewGormSalesReturnRepository creates a new GormSalesReturnRepository
func NewGormSalesReturnRepository(db *gorm.DB) *GormSalesReturnRepository {
	return &GormSalesReturnRepository{db: db}
}

// Save persists a sales return with lines
func (r *GormSalesReturnRepository) Save(ctx context.Context, ret *trade.SalesReturn) error {
	var model models.SalesReturnModel
	model.FromDomain(ret)
	return r.db.WithContext(ctx).Create(&model).Error
}

// SaveRefund persists the refund created for a return
func (r *GormSalesReturnRepository) SaveRefund(ctx context.Context, refund *trade.Refund) error {
	var model models.RefundModel
	model.FromDomain(refund)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindBySourceEvent returns the return posted for an event, if any
func (r *GormSalesReturnRepository) FindBySourceEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*trade.SalesReturn, error) {
	var model models.SalesReturnModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Where("tenant_id = ? AND source_event_id = ?", tenantID, eventID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ReturnedQuantities sums, per item, the quantities already returned against
// an invoice across its posted returns
func (r *GormSalesReturnRepository) ReturnedQuantities(ctx context.Context, tenantID, invoiceID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	var rows []struct {
		ItemID uuid.UUID
		Qty    decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.SalesReturnLineModel{}).
		Select("sales_return_lines.item_id as item_id, SUM(sales_return_lines.qty) as qty").
		Joins("JOIN sales_returns ON sales_returns.id = sales_return_lines.return_id").
		Where("sales_returns.tenant_id = ? AND sales_returns.invoice_id = ? AND sales_returns.status = ?",
			tenantID, invoiceID, trade.DocumentStatusPosted).
		Group("sales_return_lines.item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.ItemID] = row.Qty
	}
	return out, nil
}

var _ trade.SalesReturnRepository = (*GormSalesReturnRepository)(nil)

// GormGoodsReceiptRepository implements trade.GoodsReceiptRepository using GORM
type GormGoodsReceiptRepository struct {
	db *gorm.DB
}

// NewGormGoodsReceiptRepository creates a new GormGoodsReceiptRepository
func NewGormGoodsReceiptRepository(db *gorm.DB) *GormGoodsReceiptRepository {
	return &GormGoodsReceiptRepository{db: db}
}

// Save persists a goods receipt with lines
func (r *GormGoodsReceiptRepository) Save(ctx context.Context, receipt *trade.GoodsReceipt) error {
	var model models.GoodsReceiptModel
	model.FromDomain(receipt)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID retrieves a goods receipt with lines
func (r *GormGoodsReceiptRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.GoodsReceipt, error) {
	var model models.GoodsReceiptModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySourceEvent returns the receipt posted for an event, if any
func (r *GormGoodsReceiptRepository) FindBySourceEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*trade.GoodsReceipt, error) {
	var model models.GoodsReceiptModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Where("tenant_id = ? AND source_event_id = ?", tenantID, eventID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ trade.GoodsReceiptRepository = (*GormGoodsReceiptRepository)(nil)

// GormSupplierInvoiceRepository implements trade.SupplierInvoiceRepository
// using GORM
type GormSupplierInvoiceRepository struct {
	db *gorm.DB
}

// NewGormSupplierInvoiceRepository creates a new GormSupplierInvoiceRepository
func NewGormSupplierInvoiceRepository(db *gorm.DB) *GormSupplierInvoiceRepository {
	return &GormSupplierInvoiceRepository{db: db}
}

// Save persists a supplier invoice with lines and payments
func (r *GormSupplierInvoiceRepository) Save(ctx context.Context, invoice *trade.SupplierInvoice) error {
	var model models.SupplierInvoiceModel
	model.FromDomain(invoice)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindBySourceEvent returns the supplier invoice posted for an event, if any
func (r *GormSupplierInvoiceRepository) FindBySourceEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*trade.SupplierInvoice, error) {
	var model models.SupplierInvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Preload("Payments").
		Where("tenant_id = ? AND source_event_id = ?", tenantID, eventID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID retrieves a supplier invoice within a tenant
func (r *GormSupplierInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.SupplierInvoice, error) {
	var model models.SupplierInvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Preload("Payments").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ReleaseHold clears the match-variance hold on an invoice
func (r *GormSupplierInvoiceRepository) ReleaseHold(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SupplierInvoiceModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"on_hold":     false,
			"hold_reason": "",
			"updated_at":  time.Now(),
		}).Error
}

var _ trade.SupplierInvoiceRepository = (*GormSupplierInvoiceRepository)(nil)

// GormCashMovementRepository implements trade.CashMovementRepository using GORM
type GormCashMovementRepository struct {
	db *gorm.DB
}

// NewGormCashMovementRepository creates a new GormCashMovementRepository
func NewGormCashMovementRepository(db *gorm.DB) *GormCashMovementRepository {
	return &GormCashMovementRepository{db: db}
}

// Save inserts a movement. The movement ID is the originating event ID, so a
// replay hits the primary key and is ignored.
func (r *GormCashMovementRepository) Save(ctx context.Context, movement *trade.CashMovement) error {
	var model models.CashMovementModel
	model.FromDomain(movement)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
}

var _ trade.CashMovementRepository = (*GormCashMovementRepository)(nil)

// GormCustomerRepository implements trade.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by ID within a tenant
func (r *GormCustomerRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateCreditBalance persists the customer's outstanding balance
func (r *GormCustomerRepository) UpdateCreditBalance(ctx context.Context, customer *trade.Customer) error {
	return r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Where("tenant_id = ? AND id = ?", customer.TenantID, customer.ID).
		Updates(map[string]interface{}{
			"credit_balance_usd": customer.CreditBalance.USD,
			"credit_balance_lbp": customer.CreditBalance.LBP,
			"updated_at":         customer.UpdatedAt,
		}).Error
}

var _ trade.CustomerRepository = (*GormCustomerRepository)(nil)

// GormShiftRepository implements trade.ShiftRepository using GORM
type GormShiftRepository struct {
	db *gorm.DB
}

// NewGormShiftRepository creates a new GormShiftRepository
func NewGormShiftRepository(db *gorm.DB) *GormShiftRepository {
	return &GormShiftRepository{db: db}
}

// OpenShiftID returns the open shift for a device, or nil when none
func (r *GormShiftRepository) OpenShiftID(ctx context.Context, tenantID, deviceID uuid.UUID) (*uuid.UUID, error) {
	var model models.ShiftModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND device_id = ? AND closed_at IS NULL", tenantID, deviceID).
		Order("opened_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	id := model.ID
	return &id, nil
}

var _ trade.ShiftRepository = (*GormShiftRepository)(nil)

// GormSupplierRepository implements trade.SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// PaymentTermsDays returns the supplier's net terms; zero means cash terms.
// Unknown suppliers also resolve to zero rather than failing the posting.
func (r *GormSupplierRepository) PaymentTermsDays(ctx context.Context, tenantID, supplierID uuid.UUID) (int, error) {
	var model models.SupplierModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, supplierID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return model.PaymentTermsDays, nil
}

var _ trade.SupplierRepository = (*GormSupplierRepository)(nil)

// Tenant setting keys read by posting.
const settingMatchVarianceThreshold = "purchasing.match_variance_threshold"

// defaultMatchVarianceThreshold is the 3-way-match tolerance applied when a
// tenant has not configured one.
var defaultMatchVarianceThreshold = decimal.RequireFromString("0.05")

// GormSettingsRepository implements trade.SettingsRepository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// MatchVarianceThreshold returns the 3-way-match tolerance ratio
func (r *GormSettingsRepository) MatchVarianceThreshold(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var model models.TenantSettingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND key = ?", tenantID, settingMatchVarianceThreshold).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return defaultMatchVarianceThreshold, nil
		}
		return decimal.Zero, err
	}

	threshold, err := decimal.NewFromString(model.Value)
	if err != nil {
		// A malformed setting falls back rather than blocking postings.
		return defaultMatchVarianceThreshold, nil
	}
	return threshold, nil
}

var _ trade.SettingsRepository = (*GormSettingsRepository)(nil)

// GormDocumentNumberer implements trade.DocumentNumberer with a per-tenant,
// per-type counter row locked for the duration of the allocation. Numbers are
// gap-free only when allocation happens inside the posting transaction.
type GormDocumentNumberer struct {
	db *gorm.DB
}

// NewGormDocumentNumberer creates a new GormDocumentNumberer
func NewGormDocumentNumberer(db *gorm.DB) *GormDocumentNumberer {
	return &GormDocumentNumberer{db: db}
}

// Next allocates the next document number for a tenant and series, e.g.
// SI-000042.
func (n *GormDocumentNumberer) Next(ctx context.Context, tenantID uuid.UUID, docType string) (string, error) {
	var number int64
	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.DocNumberModel
		err := tx.Raw(`
			SELECT * FROM doc_number_series
			WHERE tenant_id = ? AND doc_type = ?
			FOR UPDATE`, tenantID, docType).
			Scan(&row).Error
		if err != nil {
			return err
		}

		if row.TenantID == uuid.Nil {
			number = 1
			return tx.Exec(`
				INSERT INTO doc_number_series (tenant_id, doc_type, next_number, updated_at)
				VALUES (?, ?, 2, now())
				ON CONFLICT (tenant_id, doc_type) DO UPDATE
				SET next_number = doc_number_series.next_number + 1,
				    updated_at = now()`, tenantID, docType).Error
		}

		number = row.NextNumber
		return tx.Exec(`
			UPDATE doc_number_series
			SET next_number = next_number + 1, updated_at = now()
			WHERE tenant_id = ? AND doc_type = ?`, tenantID, docType).Error
	})
	if err != nil {
		return "", err
	}
	return docType + "-" + leftPad(strconv.FormatInt(number, 10), 6), nil
}

func leftPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

var _ trade.DocumentNumberer = (*GormDocumentNumberer)(nil)
