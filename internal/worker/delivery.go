package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/config"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/observability"
	infraRedis "github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/redis"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/pkg/retry"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/pkg/txid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// deliveryRefTag prefixes merchant-facing delivery reference IDs.
const deliveryRefTag = "NTF"

// readErrorBackoff spaces out retries after a failed stream read.
const readErrorBackoff = time.Second

// sleepCtx waits for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// merchantNotification is the body POSTed to a merchant's webhook URL.
type merchantNotification struct {
	DeliveryRef   string    `json:"deliveryRef"`
	TransactionID string    `json:"transactionId"`
	PreviousState string    `json:"previousState"`
	NewState      string    `json:"newState"`
	Timestamp     time.Time `json:"timestamp"`
}

// Deliverer consumes state-change events and forwards them to merchant
// webhooks. Failures never propagate back to callback processing: exhausted
// deliveries land on the DLQ stream.
type Deliverer struct {
	consumer *infraRedis.StreamConsumer
	producer *infraRedis.StreamProducer
	redis    *redis.Client
	cfg      config.WorkerConfig
	gateway  config.GatewayConfig
	metrics  *observability.Metrics
	logger   zerolog.Logger
	client   *http.Client

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[int]
}

func NewDeliverer(
	consumer *infraRedis.StreamConsumer,
	producer *infraRedis.StreamProducer,
	redisClient *redis.Client,
	cfg config.WorkerConfig,
	gateway config.GatewayConfig,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Deliverer {
	return &Deliverer{
		consumer: consumer,
		producer: producer,
		redis:    redisClient,
		cfg:      cfg,
		gateway:  gateway,
		metrics:  metrics,
		logger:   logger,
		client:   &http.Client{Timeout: cfg.DeliveryTimeout},
		breakers: make(map[string]*gobreaker.CircuitBreaker[int]),
	}
}

// Run consumes the state-change stream until the context is cancelled.
func (d *Deliverer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := d.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error().Err(err).Msg("failed to read state-change stream")
			if err := sleepCtx(ctx, readErrorBackoff); err != nil {
				return err
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				d.handle(ctx, msg)
			}
		}
	}
}

// RunReclaim periodically takes over messages left pending by dead consumers.
func (d *Deliverer) RunReclaim(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			msgs, err := d.consumer.ClaimStale(ctx, d.cfg.ReclaimMinIdle, d.cfg.BatchSize)
			if err != nil {
				d.logger.Error().Err(err).Msg("failed to reclaim stale deliveries")
				continue
			}
			for _, msg := range msgs {
				d.handle(ctx, msg)
			}
		}
	}
}

func (d *Deliverer) handle(ctx context.Context, msg redis.XMessage) {
	start := time.Now()

	event, err := parseEvent(msg)
	if err != nil {
		d.logger.Error().Err(err).Str("message_id", msg.ID).Msg("dropping unparseable state-change event")
		d.ack(ctx, msg.ID)
		d.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.StateChangeStream, "malformed").Inc()
		return
	}

	// Fence on the message ID so a reclaimed message is not delivered twice
	// by competing consumers.
	lock := infraRedis.NewDeliveryLock(d.redis, msg.ID, d.cfg.DeliveryLockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil || !acquired {
		return
	}
	defer lock.Release(ctx)

	merchant, ok := d.gateway.MerchantByID(event.MerchantID)
	if !ok || merchant.WebhookURL == "" {
		d.logger.Warn().
			Str("merchant_id", event.MerchantID).
			Str("transaction_id", event.TransactionID).
			Msg("no webhook target for merchant, skipping notification")
		d.ack(ctx, msg.ID)
		d.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.StateChangeStream, "skipped").Inc()
		return
	}

	if err := d.deliver(ctx, merchant, event); err != nil {
		d.logger.Error().Err(err).
			Str("transaction_id", event.TransactionID).
			Str("merchant_id", event.MerchantID).
			Msg("merchant notification delivery exhausted, parking on DLQ")
		_ = d.producer.PublishToDLQ(ctx, event.TransactionID, err.Error(), map[string]any{
			"merchant_id":    event.MerchantID,
			"previous_state": string(event.PreviousState),
			"new_state":      string(event.NewState),
			"timestamp":      event.Timestamp,
		})
		d.ack(ctx, msg.ID)
		d.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.StateChangeStream, "dlq").Inc()
		return
	}

	d.ack(ctx, msg.ID)
	d.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.StateChangeStream, "delivered").Inc()
	d.metrics.WorkerProcessingDuration.WithLabelValues(infraRedis.StateChangeStream).Observe(time.Since(start).Seconds())
}

func (d *Deliverer) deliver(ctx context.Context, merchant config.MerchantConfig, event callback.StateChange) error {
	ref, err := txid.New(deliveryRefTag, txid.DefaultAlphabet, 16)
	if err != nil {
		return fmt.Errorf("generate delivery ref: %w", err)
	}

	body, err := json.Marshal(merchantNotification{
		DeliveryRef:   ref,
		TransactionID: event.TransactionID,
		PreviousState: string(event.PreviousState),
		NewState:      string(event.NewState),
		Timestamp:     event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	breaker := d.breakerFor(merchant.MerchantID)
	_, err = breaker.Execute(func() (int, error) {
		return retry.DoWithResult(ctx, retry.Config{
			MaxAttempts:  d.cfg.DeliveryRetries,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		}, func() (int, error) {
			return d.post(ctx, merchant.WebhookURL, body)
		})
	})
	return err
}

func (d *Deliverer) post(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("merchant webhook returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (d *Deliverer) breakerFor(merchantID string) *gobreaker.CircuitBreaker[int] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cb, ok := d.breakers[merchantID]; ok {
		return cb
	}
	threshold := d.cfg.CircuitBreakerThreshold
	if threshold == 0 {
		threshold = 10
	}
	cb := gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        merchantID,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     d.cfg.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			d.metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
	d.breakers[merchantID] = cb
	return cb
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

func (d *Deliverer) ack(ctx context.Context, messageID string) {
	if err := d.consumer.Ack(ctx, messageID); err != nil {
		d.logger.Error().Err(err).Str("message_id", messageID).Msg("failed to ack message")
	}
}

func parseEvent(msg redis.XMessage) (callback.StateChange, error) {
	var event callback.StateChange
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return event, fmt.Errorf("message %s has no payload field", msg.ID)
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return event, fmt.Errorf("unmarshal state change: %w", err)
	}
	return event, nil
}
