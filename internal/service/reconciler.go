package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	domainErrors "github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/errors"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/config"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/observability"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/mapper"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/signature"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/pkg/retry"
	"github.com/rs/zerolog"
)

// Notifier receives state-change events for downstream merchant notification.
// Delivery is fire-and-forget from the engine's perspective.
type Notifier interface {
	PublishStateChange(ctx context.Context, event callback.StateChange) error
}

// StateCache is the best-effort current-state read model in front of the store.
type StateCache interface {
	Put(ctx context.Context, rec *callback.Record) error
	Get(ctx context.Context, transactionID string) (*callback.Record, error)
}

// Result is what one processed callback reports back to the transport layer.
type Result struct {
	Record       *callback.Record
	Transitioned bool
}

// Reconciler orchestrates verify → map → persist → notify for inbound
// provider callbacks and serves the polling read path.
type Reconciler struct {
	store    callback.Store
	notifier Notifier
	cache    StateCache
	cfg      config.GatewayConfig
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewReconciler creates a Reconciler. cache and notifier may be nil in tests
// that only exercise the persistence path.
func NewReconciler(
	store callback.Store,
	notifier Notifier,
	cache StateCache,
	cfg config.GatewayConfig,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		store:    store,
		notifier: notifier,
		cache:    cache,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// wirePayload is the provider's callback body. The raw bytes feed the
// signature check; this struct only extracts fields afterwards.
type wirePayload struct {
	Success             bool              `json:"success"`
	Code                string            `json:"code"`
	Message             string            `json:"message"`
	TransactionID       string            `json:"transactionId"`
	MerchantID          string            `json:"merchantId"`
	ProviderReferenceID string            `json:"providerReferenceId"`
	Amount              int64             `json:"amount"`
	MobileNumber        string            `json:"mobileNumber"`
	Email               string            `json:"email"`
	TransactionContext  map[string]string `json:"transactionContext"`
	PaymentInstruments  []wireInstrument  `json:"paymentInstruments"`
}

type wireInstrument struct {
	Type             string `json:"type"`
	Amount           int64  `json:"amount"`
	MaskedCardNumber string `json:"maskedCardNumber"`
	Network          string `json:"network"`
	SubType          string `json:"subType"`
}

// Process runs the reconciliation protocol for one inbound delivery.
//
// Error contract: ErrMalformedPayload means nothing was persisted (no key to
// persist under); ErrSignatureInvalid and ErrUnknownMerchant mean the
// delivery was retained for forensics without a state transition;
// ErrStorageUnavailable means the caller must answer with a retryable status
// and nothing may be reported as recorded.
func (s *Reconciler) Process(ctx context.Context, env callback.Envelope) (*Result, error) {
	start := time.Now()

	payload, err := decodePayload(env.RawPayload)
	if err != nil {
		return nil, err
	}

	rec := recordFromPayload(env, payload)

	merchant, ok := s.cfg.MerchantByID(payload.MerchantID)
	if !ok {
		s.metrics.SignatureFailures.WithLabelValues(env.Rail.String()).Inc()
		if err := s.persistUnverified(ctx, rec); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("merchant %q: %w", payload.MerchantID, domainErrors.ErrUnknownMerchant)
	}

	salt := signature.Salt{Key: merchant.SaltKey, Index: merchant.SaltIndex}
	if !signature.Verify(env.RawPayload, env.XVerify, salt) {
		s.metrics.SignatureFailures.WithLabelValues(env.Rail.String()).Inc()
		if err := s.persistUnverified(ctx, rec); err != nil {
			return nil, err
		}
		s.logger.Warn().
			Str("transaction_id", rec.TransactionID).
			Str("merchant_id", rec.MerchantID).
			Str("rail", env.Rail.String()).
			Msg("callback failed signature verification")
		return nil, domainErrors.ErrSignatureInvalid
	}
	if err := rec.MarkVerified(); err != nil {
		return nil, err
	}

	rec.Outcome = mapper.Map(env.Rail, payload.Code)
	if !mapper.Known(env.Rail, payload.Code) {
		s.metrics.UnmappedCodes.WithLabelValues(env.Rail.String()).Inc()
		s.logger.Warn().
			Str("transaction_id", rec.TransactionID).
			Str("rail", env.Rail.String()).
			Str("code", payload.Code).
			Msg("unmapped response code, parking for manual review")
	}

	result, err := s.upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrStorageUnavailable, err)
	}

	stored := result.Record
	if result.Rejected {
		s.metrics.IllegalTransitions.WithLabelValues(env.Rail.String()).Inc()
	}
	s.metrics.CallbacksTotal.WithLabelValues(env.Rail.String(), string(stored.Outcome)).Inc()
	s.metrics.CallbackDuration.WithLabelValues(env.Rail.String()).Observe(time.Since(start).Seconds())

	s.refreshCache(ctx, stored)

	if result.Transitioned && stored.State.IsTerminal() {
		s.notify(ctx, callback.StateChange{
			TransactionID: stored.TransactionID,
			MerchantID:    stored.MerchantID,
			PreviousState: result.PreviousState,
			NewState:      stored.State,
			Timestamp:     time.Now().UTC(),
		})
	}

	return &Result{Record: stored, Transitioned: result.Transitioned}, nil
}

// Status serves the polling read model: cache first, then the store.
func (s *Reconciler) Status(ctx context.Context, transactionID string) (*callback.Record, error) {
	if s.cache != nil {
		if rec, err := s.cache.Get(ctx, transactionID); err == nil && rec != nil {
			return rec, nil
		}
	}
	rec, err := s.store.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	s.refreshCache(ctx, rec)
	return rec, nil
}

// Events returns a transaction's audit trail.
func (s *Reconciler) Events(ctx context.Context, transactionID string) ([]*callback.AuditEvent, error) {
	if _, err := s.store.GetByTransactionID(ctx, transactionID); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, transactionID)
}

// Review returns records parked in the unknown state.
func (s *Reconciler) Review(ctx context.Context) ([]*callback.Record, error) {
	return s.store.ListForReview(ctx, s.cfg.ReviewPageLimit)
}

// Resolve applies a manually chosen terminal outcome to a transaction parked
// in the unknown state. It runs through the same state machine as callbacks,
// so a record that has since reached a terminal state is left untouched.
func (s *Reconciler) Resolve(ctx context.Context, transactionID string, outcome callback.Outcome) (*Result, error) {
	rec, err := s.store.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	proposed := *rec
	proposed.Outcome = outcome
	proposed.Message = "manually resolved"

	result, err := s.upsert(ctx, &proposed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrStorageUnavailable, err)
	}

	s.refreshCache(ctx, result.Record)
	if result.Transitioned && result.Record.State.IsTerminal() {
		s.notify(ctx, callback.StateChange{
			TransactionID: result.Record.TransactionID,
			MerchantID:    result.Record.MerchantID,
			PreviousState: result.PreviousState,
			NewState:      result.Record.State,
			Timestamp:     time.Now().UTC(),
		})
	}
	return &Result{Record: result.Record, Transitioned: result.Transitioned}, nil
}

// upsert bounds the persistence call by the configured timeout with a short
// backoff retry inside it. Exhaustion surfaces as a transient failure so the
// transport can answer 5xx and induce the provider's webhook retry.
func (s *Reconciler) upsert(ctx context.Context, rec *callback.Record) (*callback.UpsertResult, error) {
	upsertCtx, cancel := context.WithTimeout(ctx, s.cfg.UpsertTimeout)
	defer cancel()

	attempts := s.cfg.UpsertRetries
	if attempts == 0 {
		attempts = 1
	}
	attempt := 0
	return retry.DoWithResult(upsertCtx, retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
	}, func() (*callback.UpsertResult, error) {
		if attempt > 0 {
			s.metrics.StorageRetries.Inc()
		}
		attempt++
		return s.store.Upsert(upsertCtx, rec)
	})
}

func (s *Reconciler) persistUnverified(ctx context.Context, rec *callback.Record) error {
	unverifiedCtx, cancel := context.WithTimeout(ctx, s.cfg.UpsertTimeout)
	defer cancel()
	if err := s.store.RecordUnverified(unverifiedCtx, rec); err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Reconciler) refreshCache(ctx context.Context, rec *callback.Record) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Str("transaction_id", rec.TransactionID).Msg("failed to refresh state cache")
	}
}

func (s *Reconciler) notify(ctx context.Context, event callback.StateChange) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishStateChange(ctx, event); err != nil {
		s.metrics.NotificationsTotal.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).
			Str("transaction_id", event.TransactionID).
			Msg("failed to publish state change")
		return
	}
	s.metrics.NotificationsTotal.WithLabelValues("published").Inc()
}

func decodePayload(raw []byte) (*wirePayload, error) {
	var p wirePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}
	if p.TransactionID == "" {
		return nil, fmt.Errorf("%w: missing transactionId", domainErrors.ErrMalformedPayload)
	}
	if p.MerchantID == "" {
		return nil, fmt.Errorf("%w: missing merchantId", domainErrors.ErrMalformedPayload)
	}
	if p.Amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", domainErrors.ErrMalformedPayload)
	}
	return &p, nil
}

func recordFromPayload(env callback.Envelope, p *wirePayload) *callback.Record {
	instruments := make([]callback.Instrument, 0, len(p.PaymentInstruments))
	for _, wi := range p.PaymentInstruments {
		instruments = append(instruments, callback.Instrument{
			Type:     wi.Type,
			Amount:   wi.Amount,
			CardTail: cardTail(wi.MaskedCardNumber),
			Network:  wi.Network,
			Subtype:  wi.SubType,
		})
	}

	now := env.ReceivedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return &callback.Record{
		TransactionID:       p.TransactionID,
		MerchantID:          p.MerchantID,
		Rail:                env.Rail,
		Success:             p.Success,
		ResponseCode:        p.Code,
		Message:             p.Message,
		Outcome:             callback.OutcomeUnknown,
		State:               callback.StateReceived,
		ProviderReferenceID: p.ProviderReferenceID,
		Amount:              p.Amount,
		MaskedMobile:        callback.MaskMobile(p.MobileNumber),
		MaskedEmail:         callback.MaskEmail(p.Email),
		Context:             p.TransactionContext,
		Instruments:         instruments,
		RawPayload:          env.RawPayload,
		AuthenticityValid:   false,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// cardTail keeps the last four characters of an already-masked card number.
func cardTail(masked string) string {
	if len(masked) <= 4 {
		return masked
	}
	return masked[len(masked)-4:]
}
