package callback

import (
	"context"
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/rail"
	"github.com/google/uuid"
)

// Event types recorded against a transaction's audit trail.
const (
	EventReceived           = "callback.received"
	EventVerified           = "callback.verified"
	EventStateChanged       = "callback.state_changed"
	EventTransitionRejected = "callback.transition_rejected"
	EventAuthFailed         = "callback.auth_failed"
	EventUnmappedCode       = "callback.unmapped_code"
)

// AuditEvent is one append-only audit trail entry. Every delivery leaves at
// least one, including replays and unauthenticated ones.
type AuditEvent struct {
	ID            uuid.UUID
	TransactionID string
	EventType     string
	Rail          rail.Rail
	ResponseCode  string
	FromState     TransactionState
	ToState       TransactionState
	RawPayload    []byte
	CreatedAt     time.Time
}

// StateChange is the event emitted to the notifier when a record transitions.
type StateChange struct {
	TransactionID string           `json:"transaction_id"`
	MerchantID    string           `json:"merchant_id"`
	PreviousState TransactionState `json:"previous_state"`
	NewState      TransactionState `json:"new_state"`
	Timestamp     time.Time        `json:"timestamp"`
}

// UpsertResult is the outcome of one idempotent write. Rejected distinguishes
// a delivery the state machine refused (for example PENDING against an
// unknown record) from legal no-ops such as replays and duplicate reports.
type UpsertResult struct {
	Record        *Record
	Transitioned  bool
	Rejected      bool
	PreviousState TransactionState
}

// Store is the idempotency store port. Implementations must serialize
// concurrent Upserts per transaction ID without holding any cross-key lock.
type Store interface {
	// Upsert creates the record on first sight of a transaction ID, otherwise
	// applies the proposed outcome through the state machine. It returns the
	// stored record's current view and whether a visible transition happened.
	// Illegal or regressive transitions return Transitioned=false with a nil
	// error; only storage trouble is an error.
	Upsert(ctx context.Context, proposed *Record) (*UpsertResult, error)

	// RecordUnverified persists a delivery that failed signature verification.
	// It never moves the visible state.
	RecordUnverified(ctx context.Context, proposed *Record) error

	// GetByTransactionID returns the current-state view for polling clients.
	GetByTransactionID(ctx context.Context, transactionID string) (*Record, error)

	// ListEvents returns the audit trail for a transaction, oldest first.
	ListEvents(ctx context.Context, transactionID string) ([]*AuditEvent, error)

	// ListForReview returns records parked in the unknown state awaiting
	// manual resolution.
	ListForReview(ctx context.Context, limit int) ([]*Record, error)
}
