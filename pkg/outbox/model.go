// Package outbox implements the transactional outbox pattern: a
// business change and the event describing it are written in the same
// database transaction, and a background relay polls the table and
// publishes to the broker independently of that transaction.
package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Event is one row of an outbox table. EventID is the stable identity
// carried on the wire so a consumer can record it as the dedup key
// once it has applied the event's effect.
type Event struct {
	ID             int64
	EventID        string
	EventType      string
	AggregateType  string
	AggregateID    string
	IdempotencyKey string
	Payload        []byte
	Headers        map[string]string
	Traceparent    string
	OccurredAt     time.Time
	CreatedAt      time.Time
	Status         Status
	RelayID        string
	RetryCount     int
	LastError      *string
}
