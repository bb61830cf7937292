package mapper

import (
	"testing"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/rail"
	"github.com/stretchr/testify/assert"
)

func TestMap_IsTotal(t *testing.T) {
	// Unknown codes and unknown rails never fail, they park as UNKNOWN.
	assert.Equal(t, callback.OutcomeUnknown, Map(rail.DynamicQR, "SOME_FUTURE_CODE"))
	assert.Equal(t, callback.OutcomeUnknown, Map(rail.DynamicQR, ""))
	assert.Equal(t, callback.OutcomeUnknown, Map(rail.Rail("NOT_A_RAIL"), "PAYMENT_SUCCESS"))
}

func TestMap_IsDeterministic(t *testing.T) {
	for _, r := range rail.All {
		for code, want := range Codes(r) {
			for i := 0; i < 3; i++ {
				assert.Equal(t, want, Map(r, code), "rail %s code %s", r, code)
			}
		}
	}
}

func TestMap_EveryMappedCodeYieldsDrivenOutcome(t *testing.T) {
	// Every outcome a table produces must either drive the state machine or
	// be the explicit duplicate marker.
	for _, r := range rail.All {
		for code, outcome := range Codes(r) {
			if outcome == callback.OutcomeDuplicate {
				continue
			}
			_, drives := outcome.TargetState()
			assert.True(t, drives, "rail %s code %s outcome %s", r, code, outcome)
		}
	}
}

func TestMap_DynamicQR(t *testing.T) {
	tests := []struct {
		code string
		want callback.Outcome
	}{
		{rail.DQRPaymentSuccess, callback.OutcomeSuccess},
		{rail.DQRPaymentPending, callback.OutcomePending},
		{rail.DQRPaymentError, callback.OutcomeFailed},
		{rail.DQRPaymentDeclined, callback.OutcomeFailed},
		{rail.DQRPaymentCancelled, callback.OutcomeCancelled},
		{rail.DQRTimedOut, callback.OutcomeExpired},
		{rail.DQRExpired, callback.OutcomeExpired},
		{rail.DQRCollectRequestExpired, callback.OutcomeExpired},
		{rail.DQRDuplicateTxnRequest, callback.OutcomeDuplicate},
		{rail.DQRUPIBackboneError, callback.OutcomeFailed},
		{rail.DQRCreditFailed, callback.OutcomeFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Map(rail.DynamicQR, tt.code), tt.code)
	}
}

func TestMap_SameCodeDifferentRails(t *testing.T) {
	// The vocabulary is per rail: EXPIRED exists for DQR but not StaticQR,
	// which spells it QR_EXPIRED.
	assert.Equal(t, callback.OutcomeExpired, Map(rail.DynamicQR, "EXPIRED"))
	assert.Equal(t, callback.OutcomeUnknown, Map(rail.StaticQR, "EXPIRED"))
	assert.Equal(t, callback.OutcomeExpired, Map(rail.StaticQR, rail.StaticQRExpired))
	assert.Equal(t, callback.OutcomeExpired, Map(rail.PaymentLink, rail.LinkExpired))
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(rail.EDC, rail.EDCPaymentSuccess))
	assert.False(t, Known(rail.EDC, "WEIRD_NEW_CODE"))
	assert.False(t, Known(rail.Rail("NOT_A_RAIL"), "PAYMENT_SUCCESS"))
}

func TestCodes_EveryRailMapped(t *testing.T) {
	for _, r := range rail.All {
		assert.NotEmpty(t, Codes(r), "rail %s has no mapping table", r)
	}
}
