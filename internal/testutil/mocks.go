package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	domainErrors "github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/errors"
	"github.com/google/uuid"
)

// --- Callback Store Mock ---

// MockStore is an in-memory implementation of callback.Store. Its default
// behavior mirrors the idempotent upsert semantics of the PostgreSQL
// repository: first write creates, later writes run through the state machine,
// and every delivery leaves an audit event.
type MockStore struct {
	mu      sync.Mutex
	records map[string]*callback.Record
	events  map[string][]*callback.AuditEvent

	UpsertFunc             func(ctx context.Context, proposed *callback.Record) (*callback.UpsertResult, error)
	RecordUnverifiedFunc   func(ctx context.Context, proposed *callback.Record) error
	GetByTransactionIDFunc func(ctx context.Context, transactionID string) (*callback.Record, error)
	ListEventsFunc         func(ctx context.Context, transactionID string) ([]*callback.AuditEvent, error)
	ListForReviewFunc      func(ctx context.Context, limit int) ([]*callback.Record, error)
}

func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string]*callback.Record),
		events:  make(map[string][]*callback.AuditEvent),
	}
}

func (m *MockStore) Upsert(ctx context.Context, proposed *callback.Record) (*callback.UpsertResult, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, proposed)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.records[proposed.TransactionID]
	if !ok {
		clone := *proposed
		current = &clone
		m.records[proposed.TransactionID] = current
	}

	prev := current.State
	if current.State == callback.StateReceived && proposed.AuthenticityValid {
		_ = current.MarkVerified()
	}
	moved, applyErr := current.ApplyOutcome(proposed.Outcome)
	rejected := false
	switch {
	case applyErr != nil:
		rejected = true
		m.appendEvent(proposed, callback.EventTransitionRejected, prev, prev)
	case moved:
		current.Success = proposed.Success
		current.ResponseCode = proposed.ResponseCode
		current.Message = proposed.Message
		current.Amount = proposed.Amount
		current.MaskedMobile = proposed.MaskedMobile
		current.MaskedEmail = proposed.MaskedEmail
		current.Context = proposed.Context
		current.RawPayload = proposed.RawPayload
		if proposed.ProviderReferenceID != "" {
			current.ProviderReferenceID = proposed.ProviderReferenceID
		}
		if len(proposed.Instruments) > 0 {
			current.Instruments = proposed.Instruments
		}
		m.appendEvent(proposed, callback.EventStateChanged, prev, current.State)
	default:
		m.appendEvent(proposed, callback.EventReceived, prev, current.State)
	}

	view := *current
	return &callback.UpsertResult{
		Record:        &view,
		Transitioned:  moved,
		Rejected:      rejected,
		PreviousState: prev,
	}, nil
}

func (m *MockStore) RecordUnverified(ctx context.Context, proposed *callback.Record) error {
	if m.RecordUnverifiedFunc != nil {
		return m.RecordUnverifiedFunc(ctx, proposed)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[proposed.TransactionID]; !ok {
		clone := *proposed
		m.records[proposed.TransactionID] = &clone
	}
	m.appendEvent(proposed, callback.EventAuthFailed, proposed.State, proposed.State)
	return nil
}

func (m *MockStore) GetByTransactionID(ctx context.Context, transactionID string) (*callback.Record, error) {
	if m.GetByTransactionIDFunc != nil {
		return m.GetByTransactionIDFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[transactionID]
	if !ok {
		return nil, domainErrors.ErrTransactionNotFound
	}
	view := *rec
	return &view, nil
}

func (m *MockStore) ListEvents(ctx context.Context, transactionID string) ([]*callback.AuditEvent, error) {
	if m.ListEventsFunc != nil {
		return m.ListEventsFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*callback.AuditEvent(nil), m.events[transactionID]...), nil
}

func (m *MockStore) ListForReview(ctx context.Context, limit int) ([]*callback.Record, error) {
	if m.ListForReviewFunc != nil {
		return m.ListForReviewFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*callback.Record
	for _, rec := range m.records {
		if rec.State == callback.StateUnknown {
			view := *rec
			out = append(out, &view)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// RecordCount returns how many distinct transactions the store holds
// (test helper, no context needed).
func (m *MockStore) RecordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Seed pre-populates the store with a record.
func (m *MockStore) Seed(rec *callback.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	m.records[rec.TransactionID] = &clone
}

func (m *MockStore) appendEvent(rec *callback.Record, eventType string, from, to callback.TransactionState) {
	m.events[rec.TransactionID] = append(m.events[rec.TransactionID], &callback.AuditEvent{
		ID:            uuid.New(),
		TransactionID: rec.TransactionID,
		EventType:     eventType,
		Rail:          rec.Rail,
		ResponseCode:  rec.ResponseCode,
		FromState:     from,
		ToState:       to,
		RawPayload:    rec.RawPayload,
		CreatedAt:     time.Now().UTC(),
	})
}

// --- Notifier Mock ---

// MockNotifier records published state-change events.
type MockNotifier struct {
	mu     sync.Mutex
	events []callback.StateChange

	PublishStateChangeFunc func(ctx context.Context, event callback.StateChange) error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) PublishStateChange(ctx context.Context, event callback.StateChange) error {
	if m.PublishStateChangeFunc != nil {
		return m.PublishStateChangeFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Published returns a copy of the recorded events.
func (m *MockNotifier) Published() []callback.StateChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]callback.StateChange(nil), m.events...)
}

// --- State Cache Mock ---

// MockStateCache is an in-memory implementation of the read-model cache.
type MockStateCache struct {
	mu      sync.Mutex
	records map[string]*callback.Record

	PutFunc func(ctx context.Context, rec *callback.Record) error
	GetFunc func(ctx context.Context, transactionID string) (*callback.Record, error)
}

func NewMockStateCache() *MockStateCache {
	return &MockStateCache{records: make(map[string]*callback.Record)}
}

func (m *MockStateCache) Put(ctx context.Context, rec *callback.Record) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	m.records[rec.TransactionID] = &clone
	return nil
}

func (m *MockStateCache) Get(ctx context.Context, transactionID string) (*callback.Record, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[transactionID]
	if !ok {
		return nil, nil
	}
	view := *rec
	return &view, nil
}
