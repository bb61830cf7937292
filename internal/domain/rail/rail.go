package rail

import "strings"

// Rail identifies the payment rail a callback originated from.
type Rail string

const (
	DynamicQR   Rail = "DQR"
	StaticQR    Rail = "STATIC_QR"
	EDC         Rail = "EDC"
	PaymentLink Rail = "PAYMENT_LINK"
)

// All lists every supported rail.
var All = []Rail{DynamicQR, StaticQR, EDC, PaymentLink}

// Parse resolves a path or config token to a Rail. The second return value is
// false for anything outside the supported set.
func Parse(s string) (Rail, bool) {
	switch Rail(strings.ToUpper(strings.TrimSpace(s))) {
	case DynamicQR:
		return DynamicQR, true
	case StaticQR:
		return StaticQR, true
	case EDC:
		return EDC, true
	case PaymentLink:
		return PaymentLink, true
	}
	return "", false
}

func (r Rail) String() string { return string(r) }

// Native response codes per rail. These mirror the provider's vocabulary
// verbatim; records keep the raw string even for codes missing here.

// Dynamic QR codes.
const (
	DQRPaymentSuccess        = "PAYMENT_SUCCESS"
	DQRPaymentError          = "PAYMENT_ERROR"
	DQRPaymentPending        = "PAYMENT_PENDING"
	DQRPaymentDeclined       = "PAYMENT_DECLINED"
	DQRPaymentCancelled      = "PAYMENT_CANCELLED"
	DQRTimedOut              = "TIMED_OUT"
	DQRTransactionNotFound   = "TRANSACTION_NOT_FOUND"
	DQRBadRequest            = "BAD_REQUEST"
	DQRAuthorizationFailed   = "AUTHORIZATION_FAILED"
	DQRInternalServerError   = "INTERNAL_SERVER_ERROR"
	DQRUPIBackboneError      = "UPI_BACKBONE_ERROR"
	DQRPSPError              = "PSP_ERROR"
	DQRDuplicateTxnRequest   = "DUPLICATE_TXN_REQUEST"
	DQRExpired               = "EXPIRED"
	DQRCollectRequestExpired = "COLLECT_REQUEST_EXPIRED"
	DQRCreditFailed          = "CREDIT_FAILED"
	DQRDebitFailed           = "DEBIT_FAILED"
)

// Static QR codes.
const (
	StaticQRPaymentSuccess      = "PAYMENT_SUCCESS"
	StaticQRPaymentError        = "PAYMENT_ERROR"
	StaticQRPaymentPending      = "PAYMENT_PENDING"
	StaticQRPaymentDeclined     = "PAYMENT_DECLINED"
	StaticQRExpired             = "QR_EXPIRED"
	StaticQRDuplicateTxn        = "DUPLICATE_TXN_REQUEST"
	StaticQRInternalServerError = "INTERNAL_SERVER_ERROR"
	StaticQRAuthorizationFailed = "AUTHORIZATION_FAILED"
)

// EDC terminal codes.
const (
	EDCPaymentSuccess   = "PAYMENT_SUCCESS"
	EDCPaymentError     = "PAYMENT_ERROR"
	EDCPaymentPending   = "PAYMENT_PENDING"
	EDCPaymentCancelled = "PAYMENT_CANCELLED"
	EDCTimedOut         = "TRANSACTION_TIMED_OUT"
)

// Payment Link codes.
const (
	LinkPaymentSuccess   = "PAYMENT_SUCCESS"
	LinkPaymentError     = "PAYMENT_ERROR"
	LinkPaymentPending   = "PAYMENT_PENDING"
	LinkPaymentDeclined  = "PAYMENT_DECLINED"
	LinkPaymentCancelled = "PAYMENT_CANCELLED"
	LinkExpired          = "LINK_EXPIRED"
	LinkDuplicateTxn     = "DUPLICATE_TXN_REQUEST"
	LinkInternalError    = "INTERNAL_SERVER_ERROR"
)
