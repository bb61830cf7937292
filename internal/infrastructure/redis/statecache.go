package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/rail"
	"github.com/redis/go-redis/v9"
)

// StateCache is the current-state read model for polling clients. It is a
// best-effort cache in front of the store: misses and errors fall through to
// Postgres.
type StateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateCache(client *redis.Client, ttl time.Duration) *StateCache {
	return &StateCache{client: client, ttl: ttl}
}

// cachedState carries every field the polling API serves, so a cache hit and
// a store read answer identically. Only the raw payload stays in Postgres.
type cachedState struct {
	TransactionID       string                    `json:"transaction_id"`
	MerchantID          string                    `json:"merchant_id"`
	Rail                rail.Rail                 `json:"rail"`
	State               callback.TransactionState `json:"state"`
	Outcome             callback.Outcome          `json:"outcome"`
	Success             bool                      `json:"success"`
	ResponseCode        string                    `json:"response_code"`
	Message             string                    `json:"message"`
	Amount              int64                     `json:"amount"`
	ProviderReferenceID string                    `json:"provider_reference_id"`
	MaskedMobile        string                    `json:"masked_mobile,omitempty"`
	MaskedEmail         string                    `json:"masked_email,omitempty"`
	Context             map[string]string         `json:"context,omitempty"`
	Instruments         []cachedInstrument        `json:"instruments,omitempty"`
	AuthenticityValid   bool                      `json:"authenticity_valid"`
	ErrorMessage        string                    `json:"error_message,omitempty"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

type cachedInstrument struct {
	Type     string `json:"type"`
	Amount   int64  `json:"amount"`
	CardTail string `json:"card_tail,omitempty"`
	Network  string `json:"network,omitempty"`
	Subtype  string `json:"subtype,omitempty"`
}

func stateKey(transactionID string) string {
	return fmt.Sprintf("txstate:%s", transactionID)
}

func encodeState(rec *callback.Record) ([]byte, error) {
	instruments := make([]cachedInstrument, 0, len(rec.Instruments))
	for _, in := range rec.Instruments {
		instruments = append(instruments, cachedInstrument{
			Type:     in.Type,
			Amount:   in.Amount,
			CardTail: in.CardTail,
			Network:  in.Network,
			Subtype:  in.Subtype,
		})
	}
	data, err := json.Marshal(cachedState{
		TransactionID:       rec.TransactionID,
		MerchantID:          rec.MerchantID,
		Rail:                rec.Rail,
		State:               rec.State,
		Outcome:             rec.Outcome,
		Success:             rec.Success,
		ResponseCode:        rec.ResponseCode,
		Message:             rec.Message,
		Amount:              rec.Amount,
		ProviderReferenceID: rec.ProviderReferenceID,
		MaskedMobile:        rec.MaskedMobile,
		MaskedEmail:         rec.MaskedEmail,
		Context:             rec.Context,
		Instruments:         instruments,
		AuthenticityValid:   rec.AuthenticityValid,
		ErrorMessage:        rec.ErrorMessage,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal cached state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (*callback.Record, error) {
	var cs cachedState
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("unmarshal cached state: %w", err)
	}
	instruments := make([]callback.Instrument, 0, len(cs.Instruments))
	for _, in := range cs.Instruments {
		instruments = append(instruments, callback.Instrument{
			Type:     in.Type,
			Amount:   in.Amount,
			CardTail: in.CardTail,
			Network:  in.Network,
			Subtype:  in.Subtype,
		})
	}
	return &callback.Record{
		TransactionID:       cs.TransactionID,
		MerchantID:          cs.MerchantID,
		Rail:                cs.Rail,
		State:               cs.State,
		Outcome:             cs.Outcome,
		Success:             cs.Success,
		ResponseCode:        cs.ResponseCode,
		Message:             cs.Message,
		Amount:              cs.Amount,
		ProviderReferenceID: cs.ProviderReferenceID,
		MaskedMobile:        cs.MaskedMobile,
		MaskedEmail:         cs.MaskedEmail,
		Context:             cs.Context,
		Instruments:         instruments,
		AuthenticityValid:   cs.AuthenticityValid,
		ErrorMessage:        cs.ErrorMessage,
		CreatedAt:           cs.CreatedAt,
		UpdatedAt:           cs.UpdatedAt,
	}, nil
}

// Put refreshes the cached view of a record.
func (c *StateCache) Put(ctx context.Context, rec *callback.Record) error {
	data, err := encodeState(rec)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, stateKey(rec.TransactionID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached state: %w", err)
	}
	return nil
}

// Get returns the cached view, or nil on a miss.
func (c *StateCache) Get(ctx context.Context, transactionID string) (*callback.Record, error) {
	data, err := c.client.Get(ctx, stateKey(transactionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached state: %w", err)
	}
	return decodeState(data)
}
