package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayGrowsExponentially(t *testing.T) {
	id := uuid.New()
	prev := time.Duration(0)
	for attempt := 1; attempt <= 8; attempt++ {
		d := BackoffDelay(attempt, id)
		assert.GreaterOrEqual(t, d, time.Duration(1)<<uint(attempt-1)*time.Second,
			"attempt %d below exponential floor", attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d below attempt %d", attempt, attempt-1)
		prev = d
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	id := uuid.New()
	for attempt := 9; attempt <= 20; attempt++ {
		assert.LessOrEqual(t, BackoffDelay(attempt, id), 300*time.Second)
	}
}

func TestBackoffDelayDeterministic(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, BackoffDelay(3, id), BackoffDelay(3, id))
}

func TestBackoffDelayClampsAttemptFloor(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, BackoffDelay(1, id), BackoffDelay(0, id))
	assert.Equal(t, BackoffDelay(1, id), BackoffDelay(-2, id))
}

func TestNextAttemptAtIsInFuture(t *testing.T) {
	now := time.Now()
	next := NextAttemptAt(now, 1, uuid.New())
	assert.True(t, next.After(now))
}
