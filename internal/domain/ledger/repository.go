package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JournalRepository persists GL journals and their lines.
type JournalRepository interface {
	// Save persists a journal with all its lines.
	Save(ctx context.Context, journal *Journal) error
	// FindBySource returns the journal posted for a source document, if any.
	// Posting is idempotent per source; a second attempt reuses this journal.
	FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType SourceType, sourceID uuid.UUID) (*Journal, error)
	// FindByID retrieves a journal with lines.
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Journal, error)
}

// AccountDefaultsRepository resolves a tenant's role and payment-method
// account mappings.
type AccountDefaultsRepository interface {
	Defaults(ctx context.Context, tenantID uuid.UUID) (AccountDefaults, error)
}

// PeriodLockRepository retrieves period locks relevant to a posting date.
type PeriodLockRepository interface {
	ActiveLocks(ctx context.Context, tenantID uuid.UUID, postingDate time.Time) ([]*PeriodLock, error)
}
