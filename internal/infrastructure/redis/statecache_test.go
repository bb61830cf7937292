package redis

import (
	"testing"
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/rail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *callback.Record {
	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	return &callback.Record{
		TransactionID:       "TXN-CACHE-RT-1",
		MerchantID:          "MERCHANTUAT",
		Rail:                rail.DynamicQR,
		Success:             true,
		ResponseCode:        "PAYMENT_SUCCESS",
		Message:             "Your payment is successful.",
		Outcome:             callback.OutcomeSuccess,
		State:               callback.StateSuccess,
		ProviderReferenceID: "T2608301000000001",
		Amount:              25000,
		MaskedMobile:        "XXXXXX7890",
		MaskedEmail:         "p***@example.com",
		Context:             map[string]string{"storeId": "store-7"},
		Instruments: []callback.Instrument{
			{Type: "CARD", Amount: 25000, CardTail: "1234", Network: "VISA", Subtype: "CREDIT_CARD"},
		},
		RawPayload:        []byte(`{"success":true}`),
		AuthenticityValid: true,
		CreatedAt:         created,
		UpdatedAt:         created.Add(2 * time.Second),
	}
}

func TestStateCache_RoundTripPreservesRecord(t *testing.T) {
	rec := sampleRecord()

	data, err := encodeState(rec)
	require.NoError(t, err)
	got, err := decodeState(data)
	require.NoError(t, err)

	assert.Equal(t, rec.TransactionID, got.TransactionID)
	assert.Equal(t, rec.MerchantID, got.MerchantID)
	assert.Equal(t, rec.Rail, got.Rail)
	assert.Equal(t, rec.State, got.State)
	assert.Equal(t, rec.Outcome, got.Outcome)
	assert.Equal(t, rec.Success, got.Success)
	assert.Equal(t, rec.ResponseCode, got.ResponseCode)
	assert.Equal(t, rec.Message, got.Message)
	assert.Equal(t, rec.Amount, got.Amount)
	assert.Equal(t, rec.ProviderReferenceID, got.ProviderReferenceID)
	assert.Equal(t, rec.MaskedMobile, got.MaskedMobile)
	assert.Equal(t, rec.MaskedEmail, got.MaskedEmail)
	assert.Equal(t, rec.Context, got.Context)
	assert.Equal(t, rec.Instruments, got.Instruments)
	assert.True(t, got.AuthenticityValid, "a verified record must stay verified on a cache hit")
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, rec.UpdatedAt.Equal(got.UpdatedAt))
}

func TestStateCache_RawPayloadNeverCached(t *testing.T) {
	data, err := encodeState(sampleRecord())
	require.NoError(t, err)
	got, err := decodeState(data)
	require.NoError(t, err)

	assert.Nil(t, got.RawPayload)
}

func TestStateCache_DecodeGarbage(t *testing.T) {
	_, err := decodeState([]byte(`{not json`))
	assert.Error(t, err)
}
