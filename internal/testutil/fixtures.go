package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/rail"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/config"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/signature"
)

// Test merchant signing material shared across suites.
const (
	TestMerchantID = "MERCHANTUAT"
	TestSaltKey    = "099eb0cd-02cf-4e2a-8aca-3e6c6aff0399"
	TestSaltIndex  = "1"
)

// GatewayConfig returns a gateway configuration provisioned with the test
// merchant.
func GatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		Merchants: []config.MerchantConfig{
			{
				MerchantID: TestMerchantID,
				SaltKey:    TestSaltKey,
				SaltIndex:  TestSaltIndex,
				WebhookURL: "http://merchant.test/webhook",
			},
		},
		UpsertTimeout:   2 * time.Second,
		UpsertRetries:   3,
		MaxBodyBytes:    1 << 20,
		StateCacheTTL:   time.Minute,
		ReviewPageLimit: 50,
	}
}

// Payload is a provider callback body under test control. Zero fields fall
// back to plausible defaults in Marshal.
type Payload struct {
	Success             bool              `json:"success"`
	Code                string            `json:"code"`
	Message             string            `json:"message,omitempty"`
	TransactionID       string            `json:"transactionId"`
	MerchantID          string            `json:"merchantId"`
	ProviderReferenceID string            `json:"providerReferenceId,omitempty"`
	Amount              int64             `json:"amount"`
	MobileNumber        string            `json:"mobileNumber,omitempty"`
	Email               string            `json:"email,omitempty"`
	TransactionContext  map[string]string `json:"transactionContext,omitempty"`
}

// Marshal encodes the payload, filling defaults for unset identity fields.
func (p Payload) Marshal(t *testing.T) []byte {
	t.Helper()
	if p.TransactionID == "" {
		p.TransactionID = "TXN12345"
	}
	if p.MerchantID == "" {
		p.MerchantID = TestMerchantID
	}
	if p.Amount == 0 {
		p.Amount = 10000
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

// SignedEnvelope builds an envelope whose X-Verify header is valid for the
// test merchant's salt.
func SignedEnvelope(t *testing.T, r rail.Rail, p Payload) callback.Envelope {
	t.Helper()
	raw := p.Marshal(t)
	return callback.Envelope{
		Rail:       r,
		RawPayload: raw,
		XVerify:    signature.Sign(raw, signature.Salt{Key: TestSaltKey, Index: TestSaltIndex}),
		ReceivedAt: time.Now().UTC(),
	}
}
