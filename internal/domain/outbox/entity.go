package outbox

import (
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusDispatched Status = "dispatched"
	StatusDead       Status = "dead"
)

const KindPatternSave = "pattern_save"

type Message struct {
	ID            string     `db:"id" json:"id"`
	Kind          string     `db:"kind" json:"kind"`
	Payload       []byte     `db:"payload" json:"payload"`
	Status        Status     `db:"status" json:"status"`
	Attempts      int        `db:"attempts" json:"attempts"`
	NextAttemptAt time.Time  `db:"next_attempt_at" json:"nextAttemptAt"`
	LastError     *string    `db:"last_error" json:"lastError,omitempty"`
	DispatchedAt  *time.Time `db:"dispatched_at" json:"dispatchedAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

// Backoff returns base*2^attempts capped at ceiling.
func Backoff(base, ceiling time.Duration, attempts int) time.Duration {
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	if d > ceiling {
		return ceiling
	}
	return d
}
