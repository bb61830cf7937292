package controller

import (
	"io"
	"net/http"
	"time"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	domainErrors "github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/errors"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/rail"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/service"
	"github.com/go-chi/chi/v5"
)

// XVerifyHeader carries the provider's authenticity digest.
const XVerifyHeader = "X-Verify"

// CallbackController ingests provider server-to-server callbacks.
type CallbackController struct {
	reconciler   *service.Reconciler
	maxBodyBytes int64
}

// NewCallbackController creates a new CallbackController.
func NewCallbackController(reconciler *service.Reconciler, maxBodyBytes int64) *CallbackController {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &CallbackController{reconciler: reconciler, maxBodyBytes: maxBodyBytes}
}

// Receive handles POST /api/v1/callbacks/{rail}.
//
// The body is read once as raw bytes; signature verification and field
// extraction both run over exactly those bytes.
func (h *CallbackController) Receive(w http.ResponseWriter, r *http.Request) {
	railTag, ok := rail.Parse(chi.URLParam(r, "rail"))
	if !ok {
		writeError(w, domainErrors.ErrUnsupportedRail)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		writeError(w, domainErrors.ErrMalformedPayload)
		return
	}
	if len(raw) == 0 {
		writeError(w, domainErrors.ErrMalformedPayload)
		return
	}

	result, err := h.reconciler.Process(r.Context(), callback.Envelope{
		Rail:       railTag,
		RawPayload: raw,
		XVerify:    r.Header.Get(XVerifyHeader),
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// 200 regardless of canonical outcome: the callback itself was processed.
	rec := result.Record
	writeJSON(w, http.StatusOK, CallbackAckResponse{
		TransactionID: rec.TransactionID,
		State:         string(rec.State),
		Outcome:       string(rec.Outcome),
		Success:       rec.Success,
		Code:          rec.ResponseCode,
		Message:       rec.Message,
		Transitioned:  result.Transitioned,
	})
}
