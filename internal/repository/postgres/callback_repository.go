package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	domainErrors "github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/errors"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/rail"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `transaction_id, merchant_id, rail, success, response_code, message,
	        outcome, state, provider_reference_id, amount, masked_mobile, masked_email,
	        context, instruments, raw_payload, authenticity_valid, error_message,
	        created_at, updated_at`

// CallbackRepository implements callback.Store using PostgreSQL. Concurrent
// upserts for one transaction ID serialize on the row lock taken by
// SELECT ... FOR UPDATE; unrelated transaction IDs never contend.
type CallbackRepository struct {
	pool *pgxpool.Pool
	tx   *TxManager
}

// NewCallbackRepository creates a new CallbackRepository.
func NewCallbackRepository(pool *pgxpool.Pool) *CallbackRepository {
	return &CallbackRepository{pool: pool, tx: NewTxManager(pool)}
}

func (r *CallbackRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Upsert implements callback.Store. The proposed record arrives verified with
// its canonical outcome set; this applies the outcome through the state
// machine under a per-row lock and appends the audit trail in the same
// transaction.
func (r *CallbackRepository) Upsert(ctx context.Context, proposed *callback.Record) (*callback.UpsertResult, error) {
	result := &callback.UpsertResult{}

	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := r.insertIfAbsent(txCtx, proposed); err != nil {
			return err
		}

		current, err := r.lockRecord(txCtx, proposed.TransactionID)
		if err != nil {
			return err
		}

		prev := current.State

		// A record first seen through a failed signature check sits in
		// received; an authentic delivery for the same ID moves it through
		// verified before the outcome is applied.
		verifiedNow := false
		if current.State == callback.StateReceived && proposed.AuthenticityValid {
			if err := current.MarkVerified(); err == nil {
				verifiedNow = true
			}
		}

		moved, applyErr := current.ApplyOutcome(proposed.Outcome)
		switch {
		case applyErr != nil:
			// Illegal move: keep the delivery as audit, leave state alone.
			result.Rejected = true
			if err := r.addEvent(txCtx, auditEventFor(proposed, callback.EventTransitionRejected, prev, prev)); err != nil {
				return err
			}
		case moved:
			// The stored record mirrors the delivery that drove the
			// transition, not whichever delivery happened to arrive first.
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
			if err := r.updateRecord(txCtx, current); err != nil {
				return err
			}
			if err := r.addEvent(txCtx, auditEventFor(proposed, callback.EventStateChanged, prev, current.State)); err != nil {
				return err
			}
		default:
			// Legal no-op: duplicate report, pending self-loop, or a late
			// callback against a terminal state. A verified upgrade alone
			// still has to land.
			if verifiedNow {
				if err := r.updateRecord(txCtx, current); err != nil {
					return err
				}
				if err := r.addEvent(txCtx, auditEventFor(proposed, callback.EventVerified, prev, current.State)); err != nil {
					return err
				}
			}
			if err := r.addEvent(txCtx, auditEventFor(proposed, callback.EventReceived, prev, current.State)); err != nil {
				return err
			}
		}

		result.Record = current
		result.Transitioned = moved
		result.PreviousState = prev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordUnverified persists a delivery that failed signature verification.
// The record is retained for forensics but never moves past received.
func (r *CallbackRepository) RecordUnverified(ctx context.Context, proposed *callback.Record) error {
	return r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := r.insertIfAbsent(txCtx, proposed); err != nil {
			return err
		}
		return r.addEvent(txCtx, auditEventFor(proposed, callback.EventAuthFailed, proposed.State, proposed.State))
	})
}

// GetByTransactionID retrieves the current-state view of a transaction.
func (r *CallbackRepository) GetByTransactionID(ctx context.Context, transactionID string) (*callback.Record, error) {
	return r.scanRecord(r.db(ctx).QueryRow(ctx,
		`SELECT `+recordColumns+` FROM callback_records WHERE transaction_id = $1`, transactionID))
}

// ListEvents retrieves the audit trail for a transaction, oldest first.
func (r *CallbackRepository) ListEvents(ctx context.Context, transactionID string) ([]*callback.AuditEvent, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, transaction_id, event_type, rail, response_code, from_state, to_state, raw_payload, created_at
		 FROM callback_events WHERE transaction_id = $1 ORDER BY created_at ASC`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list callback events: %w", err)
	}
	defer rows.Close()

	var events []*callback.AuditEvent
	for rows.Next() {
		e := &callback.AuditEvent{}
		var railStr string
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.EventType, &railStr, &e.ResponseCode,
			&e.FromState, &e.ToState, &e.RawPayload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Rail = rail.Rail(railStr)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListForReview returns records parked in the unknown state.
func (r *CallbackRepository) ListForReview(ctx context.Context, limit int) ([]*callback.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+recordColumns+` FROM callback_records WHERE state = $1 ORDER BY created_at ASC LIMIT $2`,
		string(callback.StateUnknown), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list records for review: %w", err)
	}
	defer rows.Close()

	var records []*callback.Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// --- internals ---

func (r *CallbackRepository) insertIfAbsent(ctx context.Context, rec *callback.Record) error {
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	instrumentsJSON, err := json.Marshal(rec.Instruments)
	if err != nil {
		return fmt.Errorf("marshal instruments: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO callback_records
		 (transaction_id, merchant_id, rail, success, response_code, message,
		  outcome, state, provider_reference_id, amount, masked_mobile, masked_email,
		  context, instruments, raw_payload, authenticity_valid, error_message,
		  created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		 ON CONFLICT (transaction_id) DO NOTHING`,
		rec.TransactionID, rec.MerchantID, string(rec.Rail), rec.Success, rec.ResponseCode, rec.Message,
		string(rec.Outcome), string(rec.State), rec.ProviderReferenceID, rec.Amount, rec.MaskedMobile, rec.MaskedEmail,
		contextJSON, instrumentsJSON, rec.RawPayload, rec.AuthenticityValid, rec.ErrorMessage,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert callback record: %w", err)
	}
	return nil
}

func (r *CallbackRepository) lockRecord(ctx context.Context, transactionID string) (*callback.Record, error) {
	return r.scanRecord(r.db(ctx).QueryRow(ctx,
		`SELECT `+recordColumns+` FROM callback_records WHERE transaction_id = $1 FOR UPDATE`, transactionID))
}

func (r *CallbackRepository) updateRecord(ctx context.Context, rec *callback.Record) error {
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	instrumentsJSON, err := json.Marshal(rec.Instruments)
	if err != nil {
		return fmt.Errorf("marshal instruments: %w", err)
	}
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE callback_records SET
		  success=$1, response_code=$2, message=$3, outcome=$4, state=$5,
		  provider_reference_id=$6, amount=$7, masked_mobile=$8, masked_email=$9,
		  context=$10, instruments=$11, raw_payload=$12, authenticity_valid=$13,
		  error_message=$14, updated_at=$15
		 WHERE transaction_id=$16`,
		rec.Success, rec.ResponseCode, rec.Message, string(rec.Outcome), string(rec.State),
		rec.ProviderReferenceID, rec.Amount, rec.MaskedMobile, rec.MaskedEmail,
		contextJSON, instrumentsJSON, rec.RawPayload, rec.AuthenticityValid,
		rec.ErrorMessage, rec.UpdatedAt, rec.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("update callback record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrTransactionNotFound
	}
	return nil
}

func (r *CallbackRepository) addEvent(ctx context.Context, event *callback.AuditEvent) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO callback_events
		 (id, transaction_id, event_type, rail, response_code, from_state, to_state, raw_payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		event.ID, event.TransactionID, event.EventType, string(event.Rail), event.ResponseCode,
		string(event.FromState), string(event.ToState), event.RawPayload,
	)
	if err != nil {
		return fmt.Errorf("insert callback event: %w", err)
	}
	return nil
}

func auditEventFor(rec *callback.Record, eventType string, from, to callback.TransactionState) *callback.AuditEvent {
	return &callback.AuditEvent{
		ID:            uuid.New(),
		TransactionID: rec.TransactionID,
		EventType:     eventType,
		Rail:          rec.Rail,
		ResponseCode:  rec.ResponseCode,
		FromState:     from,
		ToState:       to,
		RawPayload:    rec.RawPayload,
		CreatedAt:     time.Now().UTC(),
	}
}

// scanRecord scans a record from any source implementing the scanner interface.
func (r *CallbackRepository) scanRecord(s scanner) (*callback.Record, error) {
	rec := &callback.Record{}
	var (
		railStr         string
		outcome         string
		state           string
		contextJSON     []byte
		instrumentsJSON []byte
	)
	err := s.Scan(
		&rec.TransactionID, &rec.MerchantID, &railStr, &rec.Success, &rec.ResponseCode, &rec.Message,
		&outcome, &state, &rec.ProviderReferenceID, &rec.Amount, &rec.MaskedMobile, &rec.MaskedEmail,
		&contextJSON, &instrumentsJSON, &rec.RawPayload, &rec.AuthenticityValid, &rec.ErrorMessage,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan callback record: %w", err)
	}

	rec.Rail = rail.Rail(railStr)
	rec.Outcome = callback.Outcome(outcome)
	rec.State = callback.TransactionState(state)
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &rec.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
	}
	if len(instrumentsJSON) > 0 {
		if err := json.Unmarshal(instrumentsJSON, &rec.Instruments); err != nil {
			return nil, fmt.Errorf("unmarshal instruments: %w", err)
		}
	}
	return rec, nil
}
