package controller

import (
	"net/http"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/service"
	"github.com/go-chi/chi/v5"
)

// TransactionController serves the polling read model and review tooling.
type TransactionController struct {
	reconciler *service.Reconciler
}

// NewTransactionController creates a new TransactionController.
func NewTransactionController(reconciler *service.Reconciler) *TransactionController {
	return &TransactionController{reconciler: reconciler}
}

// GetStatus handles GET /api/v1/transactions/{transactionId}/status
func (h *TransactionController) GetStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := h.reconciler.Status(r.Context(), chi.URLParam(r, "transactionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromRecord(rec))
}

// GetEvents handles GET /api/v1/transactions/{transactionId}/events
func (h *TransactionController) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.reconciler.Events(r.Context(), chi.URLParam(r, "transactionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]*AuditEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, FromAuditEvent(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListReview handles GET /api/v1/review
func (h *TransactionController) ListReview(w http.ResponseWriter, r *http.Request) {
	records, err := h.reconciler.Review(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]*TransactionStatusResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, FromRecord(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Resolve handles POST /api/v1/review/{transactionId}/resolve
func (h *TransactionController) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.reconciler.Resolve(r.Context(), chi.URLParam(r, "transactionId"), callback.Outcome(req.Outcome))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromRecord(result.Record))
}
