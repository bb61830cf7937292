package callback

import (
	"strings"
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/errors"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/rail"
)

// Outcome is the canonical result vocabulary every rail's native response
// codes collapse onto.
type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomePending   Outcome = "PENDING"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeExpired   Outcome = "EXPIRED"
	OutcomeDuplicate Outcome = "DUPLICATE"
	OutcomeUnknown   Outcome = "UNKNOWN"
)

// TransactionState represents the callback record's position in the
// reconciliation state machine.
type TransactionState string

const (
	StateReceived  TransactionState = "received"
	StateVerified  TransactionState = "verified"
	StatePending   TransactionState = "pending"
	StateSuccess   TransactionState = "success"
	StateFailed    TransactionState = "failed"
	StateCancelled TransactionState = "cancelled"
	StateExpired   TransactionState = "expired"
	StateUnknown   TransactionState = "unknown"
)

// Envelope is one inbound delivery before decoding. The raw bytes are exactly
// what arrived on the wire; the signature is computed over them, never over a
// re-serialized form.
type Envelope struct {
	Rail       rail.Rail
	RawPayload []byte
	XVerify    string
	ReceivedAt time.Time
}

// Instrument is one entry of a payment-instrument breakdown. Card numbers
// never appear here, only the masked tail.
type Instrument struct {
	Type     string
	Amount   int64
	CardTail string
	Network  string
	Subtype  string
}

// Record is the persisted callback record, keyed by transaction ID.
type Record struct {
	TransactionID       string
	MerchantID          string
	Rail                rail.Rail
	Success             bool
	ResponseCode        string
	Message             string
	Outcome             Outcome
	State               TransactionState
	ProviderReferenceID string
	Amount              int64
	MaskedMobile        string
	MaskedEmail         string
	Context             map[string]string
	Instruments         []Instrument
	RawPayload          []byte
	AuthenticityValid   bool
	ErrorMessage        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// transitions defines the legal state machine moves. Terminal states map to
// an empty slice and absorb everything.
var transitions = map[TransactionState][]TransactionState{
	StateReceived:  {StateVerified},
	StateVerified:  {StatePending, StateSuccess, StateFailed, StateCancelled, StateExpired, StateUnknown},
	StatePending:   {StatePending, StateSuccess, StateFailed, StateCancelled, StateExpired, StateUnknown},
	StateUnknown:   {StateSuccess, StateFailed, StateCancelled, StateExpired},
	StateSuccess:   {},
	StateFailed:    {},
	StateCancelled: {},
	StateExpired:   {},
}

// outcomeStates maps a canonical outcome to the state it drives the record
// toward. OutcomeDuplicate is absent: a duplicate report adds no state.
var outcomeStates = map[Outcome]TransactionState{
	OutcomeSuccess:   StateSuccess,
	OutcomePending:   StatePending,
	OutcomeFailed:    StateFailed,
	OutcomeCancelled: StateCancelled,
	OutcomeExpired:   StateExpired,
	OutcomeUnknown:   StateUnknown,
}

// IsTerminal reports whether the state absorbs further callbacks.
func (s TransactionState) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateCancelled || s == StateExpired
}

// CanTransitionTo checks whether moving to next is a legal state machine move.
func (s TransactionState) CanTransitionTo(next TransactionState) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == next {
			return true
		}
	}
	return false
}

// TargetState returns the state an outcome drives toward. For
// OutcomeDuplicate the second return value is false: duplicates are recorded
// for audit only.
func (o Outcome) TargetState() (TransactionState, bool) {
	s, ok := outcomeStates[o]
	return s, ok
}

// MarkVerified moves a freshly received record past signature verification.
func (r *Record) MarkVerified() error {
	if !r.State.CanTransitionTo(StateVerified) {
		return errors.ErrInvalidStateTransition
	}
	r.State = StateVerified
	r.AuthenticityValid = true
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyOutcome transitions the record according to its canonical outcome.
// It returns false without error when the outcome is a legal no-op (duplicate
// report, regression onto a terminal state, pending after terminal); such
// deliveries are kept as audit entries by the store, but the visible state
// does not move.
func (r *Record) ApplyOutcome(o Outcome) (bool, error) {
	target, drives := o.TargetState()
	if !drives {
		return false, nil
	}
	if r.State.IsTerminal() {
		return false, nil
	}
	if !r.State.CanTransitionTo(target) {
		return false, errors.ErrInvalidStateTransition
	}
	// pending → pending is a legal self-loop but not a visible transition.
	if r.State == target {
		r.UpdatedAt = time.Now().UTC()
		return false, nil
	}
	r.State = target
	r.Outcome = o
	r.UpdatedAt = time.Now().UTC()
	return true, nil
}

// MaskMobile keeps the last four digits of a phone number.
func MaskMobile(mobile string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, mobile)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("X", len(digits)-4) + digits[len(digits)-4:]
}

// MaskEmail keeps the first character of the local part and the full domain.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return ""
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}
