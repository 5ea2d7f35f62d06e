package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahtrading/backend/internal/domain/shared"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodLockCovers(t *testing.T) {
	lock := &PeriodLock{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   uuid.New(),
		StartDate:  day(2026, 1, 1),
		EndDate:    day(2026, 1, 31),
		Locked:     true,
	}

	assert.True(t, lock.Covers(day(2026, 1, 15)))
	assert.True(t, lock.Covers(day(2026, 1, 1)), "start date inclusive")
	assert.True(t, lock.Covers(day(2026, 1, 31)), "end date inclusive")
	assert.False(t, lock.Covers(day(2026, 2, 1)))
	assert.False(t, lock.Covers(day(2025, 12, 31)))

	// Intraday timestamps compare by calendar day.
	assert.True(t, lock.Covers(time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC)))

	lock.Locked = false
	assert.False(t, lock.Covers(day(2026, 1, 15)))
}

func TestAssertPeriodOpen(t *testing.T) {
	locks := []*PeriodLock{
		{StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 31), Locked: true},
		{StartDate: day(2026, 2, 1), EndDate: day(2026, 2, 28), Locked: false},
	}

	err := AssertPeriodOpen(locks, day(2026, 1, 10))
	require.Error(t, err)
	assert.True(t, shared.IsPermanent(err))
	assert.Contains(t, err.Error(), "2026-01-10")

	assert.NoError(t, AssertPeriodOpen(locks, day(2026, 2, 10)), "unlocked period passes")
	assert.NoError(t, AssertPeriodOpen(nil, day(2026, 3, 1)))
}

func TestAccountDefaults(t *testing.T) {
	cashAcc, cardAcc := uuid.New(), uuid.New()
	defaults := AccountDefaults{
		Roles:          map[AccountRole]uuid.UUID{RoleCash: cashAcc},
		PaymentMethods: map[string]uuid.UUID{"card": cardAcc},
	}

	got, err := defaults.Account(RoleCash)
	require.NoError(t, err)
	assert.Equal(t, cashAcc, got)

	_, err = defaults.Account(RoleSales)
	require.Error(t, err)
	assert.True(t, shared.IsPermanent(err))

	got, err = defaults.PaymentAccount("card")
	require.NoError(t, err)
	assert.Equal(t, cardAcc, got)

	got, err = defaults.PaymentAccount("cash")
	require.NoError(t, err)
	assert.Equal(t, cashAcc, got, "unmapped method falls back to CASH role")
}
