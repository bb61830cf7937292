package controller

import (
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
)

// --- Request DTOs ---

// ResolveRequest is the manual-review resolution input for a transaction
// parked in the unknown state.
type ResolveRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=SUCCESS FAILED CANCELLED EXPIRED"`
}

// --- Response DTOs ---

// CallbackAckResponse is the body returned for an accepted callback. A FAILED
// payment is still a successfully processed callback; HTTP status reflects
// processing, not payment outcome.
type CallbackAckResponse struct {
	TransactionID string `json:"transaction_id"`
	State         string `json:"state"`
	Outcome       string `json:"outcome"`
	Success       bool   `json:"success"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Transitioned  bool   `json:"transitioned"`
}

// InstrumentResponse is one payment-instrument breakdown entry.
type InstrumentResponse struct {
	Type     string `json:"type"`
	Amount   int64  `json:"amount"`
	CardTail string `json:"card_tail,omitempty"`
	Network  string `json:"network,omitempty"`
	Subtype  string `json:"subtype,omitempty"`
}

// TransactionStatusResponse is the polling read-model view of a transaction.
type TransactionStatusResponse struct {
	TransactionID       string               `json:"transaction_id"`
	MerchantID          string               `json:"merchant_id"`
	Rail                string               `json:"rail"`
	State               string               `json:"state"`
	Outcome             string               `json:"outcome"`
	Success             bool                 `json:"success"`
	ResponseCode        string               `json:"response_code"`
	Message             string               `json:"message"`
	Amount              int64                `json:"amount"`
	ProviderReferenceID string               `json:"provider_reference_id,omitempty"`
	MaskedMobile        string               `json:"masked_mobile,omitempty"`
	MaskedEmail         string               `json:"masked_email,omitempty"`
	Context             map[string]string    `json:"context,omitempty"`
	Instruments         []InstrumentResponse `json:"instruments,omitempty"`
	AuthenticityValid   bool                 `json:"authenticity_valid"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// AuditEventResponse is one audit trail entry.
type AuditEventResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	EventType     string    `json:"event_type"`
	Rail          string    `json:"rail"`
	ResponseCode  string    `json:"response_code"`
	FromState     string    `json:"from_state"`
	ToState       string    `json:"to_state"`
	CreatedAt     time.Time `json:"created_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromRecord converts a callback record to its API view.
func FromRecord(rec *callback.Record) *TransactionStatusResponse {
	instruments := make([]InstrumentResponse, 0, len(rec.Instruments))
	for _, in := range rec.Instruments {
		instruments = append(instruments, InstrumentResponse{
			Type:     in.Type,
			Amount:   in.Amount,
			CardTail: in.CardTail,
			Network:  in.Network,
			Subtype:  in.Subtype,
		})
	}
	return &TransactionStatusResponse{
		TransactionID:       rec.TransactionID,
		MerchantID:          rec.MerchantID,
		Rail:                rec.Rail.String(),
		State:               string(rec.State),
		Outcome:             string(rec.Outcome),
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
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

// FromAuditEvent converts an audit event to its API view.
func FromAuditEvent(e *callback.AuditEvent) *AuditEventResponse {
	return &AuditEventResponse{
		ID:            e.ID.String(),
		TransactionID: e.TransactionID,
		EventType:     e.EventType,
		Rail:          e.Rail.String(),
		ResponseCode:  e.ResponseCode,
		FromState:     string(e.FromState),
		ToState:       string(e.ToState),
		CreatedAt:     e.CreatedAt,
	}
}
