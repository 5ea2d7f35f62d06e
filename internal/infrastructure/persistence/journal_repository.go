package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahtrading/backend/internal/domain/ledger"
	"github.com/ahtrading/backend/internal/infrastructure/persistence/models"
)

// GormJournalRepository implements ledger.JournalRepository using GORM
type GormJournalRepository struct {
	db *gorm.DB
}

// NewGormJournalRepository creates a new GormJournalRepository
func NewGormJournalRepository(db *gorm.DB) *GormJournalRepository {
	return &GormJournalRepository{db: db}
}

// Save persists a journal with all its lines
func (r *GormJournalRepository) Save(ctx context.Context, journal *ledger.Journal) error {
	var model models.JournalModel
	model.FromDomain(journal)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindBySource returns the journal posted for a source document, if any
func (r *GormJournalRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType ledger.SourceType, sourceID uuid.UUID) (*ledger.Journal, error) {
	var model models.JournalModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("tenant_id = ? AND source_type = ? AND source_id = ?", tenantID, sourceType, sourceID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID retrieves a journal with lines
func (r *GormJournalRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Journal, error) {
	var model models.JournalModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ ledger.JournalRepository = (*GormJournalRepository)(nil)

// GormAccountDefaultsRepository implements ledger.AccountDefaultsRepository
// using GORM
type GormAccountDefaultsRepository struct {
	db *gorm.DB
}

// NewGormAccountDefaultsRepository creates a new GormAccountDefaultsRepository
func NewGormAccountDefaultsRepository(db *gorm.DB) *GormAccountDefaultsRepository {
	return &GormAccountDefaultsRepository{db: db}
}

// Defaults loads a tenant's role and payment-method account mappings
func (r *GormAccountDefaultsRepository) Defaults(ctx context.Context, tenantID uuid.UUID) (ledger.AccountDefaults, error) {
	var rows []models.AccountDefaultModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error; err != nil {
		return ledger.AccountDefaults{}, err
	}

	defaults := ledger.AccountDefaults{
		Roles:          make(map[ledger.AccountRole]uuid.UUID),
		PaymentMethods: make(map[string]uuid.UUID),
	}
	for _, row := range rows {
		if row.PaymentMethod != "" {
			defaults.PaymentMethods[row.PaymentMethod] = row.AccountID
			continue
		}
		defaults.Roles[ledger.AccountRole(row.Role)] = row.AccountID
	}
	return defaults, nil
}

var _ ledger.AccountDefaultsRepository = (*GormAccountDefaultsRepository)(nil)

// GormPeriodLockRepository implements ledger.PeriodLockRepository using GORM
type GormPeriodLockRepository struct {
	db *gorm.DB
}

// NewGormPeriodLockRepository creates a new GormPeriodLockRepository
func NewGormPeriodLockRepository(db *gorm.DB) *GormPeriodLockRepository {
	return &GormPeriodLockRepository{db: db}
}

// ActiveLocks returns the locks covering a posting date. Range matching is
// re-checked in the domain; the query just narrows by tenant and date.
func (r *GormPeriodLockRepository) ActiveLocks(ctx context.Context, tenantID uuid.UUID, postingDate time.Time) ([]*ledger.PeriodLock, error) {
	day := time.Date(postingDate.Year(), postingDate.Month(), postingDate.Day(), 0, 0, 0, 0, time.UTC)
	var rows []models.PeriodLockModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND locked = true AND start_date <= ? AND end_date >= ?",
			tenantID, day, day).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	locks := make([]*ledger.PeriodLock, 0, len(rows))
	for i := range rows {
		locks = append(locks, rows[i].ToDomain())
	}
	return locks, nil
}

var _ ledger.PeriodLockRepository = (*GormPeriodLockRepository)(nil)
