// Package mapper collapses each rail's native response-code vocabulary onto
// the canonical outcome set. The mapping is data: adding a rail or a code is
// a table edit, not a control-flow change.
package mapper

import (
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/rail"
)

var tables = map[rail.Rail]map[string]callback.Outcome{
	rail.DynamicQR: {
		rail.DQRPaymentSuccess:        callback.OutcomeSuccess,
		rail.DQRPaymentError:          callback.OutcomeFailed,
		rail.DQRPaymentPending:        callback.OutcomePending,
		rail.DQRPaymentDeclined:       callback.OutcomeFailed,
		rail.DQRPaymentCancelled:      callback.OutcomeCancelled,
		rail.DQRTimedOut:              callback.OutcomeExpired,
		rail.DQRTransactionNotFound:   callback.OutcomeFailed,
		rail.DQRBadRequest:            callback.OutcomeFailed,
		rail.DQRAuthorizationFailed:   callback.OutcomeFailed,
		rail.DQRInternalServerError:   callback.OutcomeFailed,
		rail.DQRUPIBackboneError:      callback.OutcomeFailed,
		rail.DQRPSPError:              callback.OutcomeFailed,
		rail.DQRDuplicateTxnRequest:   callback.OutcomeDuplicate,
		rail.DQRExpired:               callback.OutcomeExpired,
		rail.DQRCollectRequestExpired: callback.OutcomeExpired,
		rail.DQRCreditFailed:          callback.OutcomeFailed,
		rail.DQRDebitFailed:           callback.OutcomeFailed,
	},
	rail.StaticQR: {
		rail.StaticQRPaymentSuccess:      callback.OutcomeSuccess,
		rail.StaticQRPaymentError:        callback.OutcomeFailed,
		rail.StaticQRPaymentPending:      callback.OutcomePending,
		rail.StaticQRPaymentDeclined:     callback.OutcomeFailed,
		rail.StaticQRExpired:             callback.OutcomeExpired,
		rail.StaticQRDuplicateTxn:        callback.OutcomeDuplicate,
		rail.StaticQRInternalServerError: callback.OutcomeFailed,
		rail.StaticQRAuthorizationFailed: callback.OutcomeFailed,
	},
	rail.EDC: {
		rail.EDCPaymentSuccess:   callback.OutcomeSuccess,
		rail.EDCPaymentError:     callback.OutcomeFailed,
		rail.EDCPaymentPending:   callback.OutcomePending,
		rail.EDCPaymentCancelled: callback.OutcomeCancelled,
		rail.EDCTimedOut:         callback.OutcomeExpired,
	},
	rail.PaymentLink: {
		rail.LinkPaymentSuccess:   callback.OutcomeSuccess,
		rail.LinkPaymentError:     callback.OutcomeFailed,
		rail.LinkPaymentPending:   callback.OutcomePending,
		rail.LinkPaymentDeclined:  callback.OutcomeFailed,
		rail.LinkPaymentCancelled: callback.OutcomeCancelled,
		rail.LinkExpired:          callback.OutcomeExpired,
		rail.LinkDuplicateTxn:     callback.OutcomeDuplicate,
		rail.LinkInternalError:    callback.OutcomeFailed,
	},
}

// Map translates a rail-native response code to its canonical outcome. It is
// total: unknown rails or codes map to OutcomeUnknown rather than failing,
// since callback delivery must never be rejected for a vocabulary extension.
func Map(r rail.Rail, code string) callback.Outcome {
	table, ok := tables[r]
	if !ok {
		return callback.OutcomeUnknown
	}
	outcome, ok := table[code]
	if !ok {
		return callback.OutcomeUnknown
	}
	return outcome
}

// Known reports whether the code is part of the rail's mapped vocabulary.
// Unmapped codes are still processed, but flagged for manual review.
func Known(r rail.Rail, code string) bool {
	table, ok := tables[r]
	if !ok {
		return false
	}
	_, ok = table[code]
	return ok
}

// Codes returns the mapped vocabulary for a rail. Used by tests and the
// review tooling; the returned map must not be mutated.
func Codes(r rail.Rail) map[string]callback.Outcome {
	return tables[r]
}
