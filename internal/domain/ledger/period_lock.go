package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/shared"
)

// PeriodLock closes an accounting date range against further postings.
type PeriodLock struct {
	shared.BaseEntity
	TenantID  uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Locked    bool
	Reason    string
}

// Covers reports whether the lock applies to a posting date (inclusive range,
// compared by calendar day).
func (p *PeriodLock) Covers(postingDate time.Time) bool {
	if !p.Locked {
		return false
	}
	d := truncateDay(postingDate)
	return !d.Before(truncateDay(p.StartDate)) && !d.After(truncateDay(p.EndDate))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AssertPeriodOpen fails with a conflict error when any lock covers the
// posting date. Locked-period postings need an operator to reopen the period,
// so retrying is pointless.
func AssertPeriodOpen(locks []*PeriodLock, postingDate time.Time) error {
	for _, lock := range locks {
		if lock.Covers(postingDate) {
			return shared.NewConflictError("PERIOD_LOCKED",
				"accounting period is locked for date "+postingDate.Format("2006-01-02"))
		}
	}
	return nil
}
