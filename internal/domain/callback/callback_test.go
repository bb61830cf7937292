package callback

import (
	"testing"

	domainErrors "github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTerminal(t *testing.T) {
	terminal := []TransactionState{StateSuccess, StateFailed, StateCancelled, StateExpired}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
	}
	nonTerminal := []TransactionState{StateReceived, StateVerified, StatePending, StateUnknown}
	for _, s := range nonTerminal {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    TransactionState
		to      TransactionState
		allowed bool
	}{
		{StateReceived, StateVerified, true},
		{StateReceived, StateSuccess, false},
		{StateVerified, StateSuccess, true},
		{StateVerified, StatePending, true},
		{StateVerified, StateUnknown, true},
		{StateVerified, StateReceived, false},
		{StatePending, StatePending, true},
		{StatePending, StateSuccess, true},
		{StatePending, StateExpired, true},
		{StatePending, StateVerified, false},
		{StateUnknown, StateSuccess, true},
		{StateUnknown, StateFailed, true},
		{StateUnknown, StatePending, false},
		{StateUnknown, StateUnknown, false},
		{StateSuccess, StateFailed, false},
		{StateSuccess, StateSuccess, false},
		{StateFailed, StateSuccess, false},
		{StateExpired, StatePending, false},
		{StateCancelled, StateSuccess, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTargetState_DuplicateDrivesNothing(t *testing.T) {
	_, drives := OutcomeDuplicate.TargetState()
	assert.False(t, drives)

	for _, o := range []Outcome{OutcomeSuccess, OutcomePending, OutcomeFailed, OutcomeCancelled, OutcomeExpired, OutcomeUnknown} {
		_, drives := o.TargetState()
		assert.True(t, drives, o)
	}
}

func TestMarkVerified(t *testing.T) {
	rec := &Record{State: StateReceived}
	require.NoError(t, rec.MarkVerified())
	assert.Equal(t, StateVerified, rec.State)
	assert.True(t, rec.AuthenticityValid)

	// Only a freshly received record can be verified.
	err := rec.MarkVerified()
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
}

func TestApplyOutcome_VisibleTransition(t *testing.T) {
	rec := &Record{State: StateVerified}
	moved, err := rec.ApplyOutcome(OutcomeSuccess)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, StateSuccess, rec.State)
	assert.Equal(t, OutcomeSuccess, rec.Outcome)
}

func TestApplyOutcome_TerminalAbsorbs(t *testing.T) {
	for _, terminal := range []TransactionState{StateSuccess, StateFailed, StateCancelled, StateExpired} {
		for _, o := range []Outcome{OutcomeSuccess, OutcomePending, OutcomeFailed, OutcomeCancelled, OutcomeExpired, OutcomeUnknown, OutcomeDuplicate} {
			rec := &Record{State: terminal}
			moved, err := rec.ApplyOutcome(o)
			assert.NoError(t, err, "%s + %s", terminal, o)
			assert.False(t, moved, "%s + %s", terminal, o)
			assert.Equal(t, terminal, rec.State, "%s + %s", terminal, o)
		}
	}
}

func TestApplyOutcome_PendingSelfLoopIsSilent(t *testing.T) {
	rec := &Record{State: StatePending}
	moved, err := rec.ApplyOutcome(OutcomePending)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, StatePending, rec.State)
}

func TestApplyOutcome_DuplicateIsAuditOnly(t *testing.T) {
	rec := &Record{State: StateVerified}
	moved, err := rec.ApplyOutcome(OutcomeDuplicate)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, StateVerified, rec.State)
}

func TestApplyOutcome_UnknownOnlyResolvesToTerminal(t *testing.T) {
	rec := &Record{State: StateUnknown}
	moved, err := rec.ApplyOutcome(OutcomePending)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
	assert.False(t, moved)
	assert.Equal(t, StateUnknown, rec.State)

	moved, err = rec.ApplyOutcome(OutcomeFailed)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, StateFailed, rec.State)
}

func TestMaskMobile(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9876543210", "XXXXXX3210"},
		{"+91 98765 43210", "XXXXXXXX3210"},
		{"1234", "1234"},
		{"12", "12"},
		{"", ""},
		{"abc", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskMobile(tt.in), tt.in)
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"customer@example.com", "c*******@example.com"},
		{"a@b.io", "a@b.io"},
		{"no-at-sign", ""},
		{"@example.com", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskEmail(tt.in), tt.in)
	}
}
