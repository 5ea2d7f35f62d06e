package outbox

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// maxBackoff caps the retry delay regardless of attempt count.
const maxBackoff = 300 * time.Second

// BackoffDelay returns the delay before the given attempt: exponential in the
// attempt count, capped, plus a deterministic per-event jitter so that a batch
// of events failing together does not retry in lockstep.
func BackoffDelay(attempt int, eventID uuid.UUID) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	secs := int64(1) << uint(attempt-1)
	if secs > int64(maxBackoff/time.Second) {
		secs = int64(maxBackoff / time.Second)
	}

	// Jitter window scales with the delay, between 1 and 30 seconds.
	window := secs / 5
	if window < 1 {
		window = 1
	}
	if window > 30 {
		window = 30
	}
	digest := sha1.Sum([]byte(fmt.Sprintf("%s:%d", eventID, attempt)))
	secs += int64(binary.BigEndian.Uint32(digest[:4]) % uint32(window+1))

	if secs > int64(maxBackoff/time.Second) {
		secs = int64(maxBackoff / time.Second)
	}
	return time.Duration(secs) * time.Second
}

// NextAttemptAt schedules the next retry time after a transient failure.
func NextAttemptAt(now time.Time, attempt int, eventID uuid.UUID) time.Time {
	return now.Add(BackoffDelay(attempt, eventID))
}
