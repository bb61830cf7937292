package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/callback"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/rail"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/infrastructure/observability"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/service"
	"github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

func setupRouter() (*chi.Mux, *testutil.MockStore, *testutil.MockNotifier) {
	store := testutil.NewMockStore()
	notifier := testutil.NewMockNotifier()
	cache := testutil.NewMockStateCache()
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	reconciler := service.NewReconciler(store, notifier, cache, testutil.GatewayConfig(), metrics, zerolog.Nop())

	callbackH := NewCallbackController(reconciler, 1<<20)
	transactionH := NewTransactionController(reconciler)

	r := chi.NewRouter()
	r.Post("/api/v1/callbacks/{rail}", callbackH.Receive)
	r.Get("/api/v1/transactions/{transactionId}/status", transactionH.GetStatus)
	r.Get("/api/v1/transactions/{transactionId}/events", transactionH.GetEvents)
	r.Get("/api/v1/review", transactionH.ListReview)
	r.Post("/api/v1/review/{transactionId}/resolve", transactionH.Resolve)
	return r, store, notifier
}

func postCallback(t *testing.T, router http.Handler, railPath string, env callback.Envelope) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/"+railPath, bytes.NewReader(env.RawPayload))
	req.Header.Set("Content-Type", "application/json")
	if env.XVerify != "" {
		req.Header.Set(XVerifyHeader, env.XVerify)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// --- Callback Ingestion Tests ---

func TestReceive_ValidCallback_Returns200(t *testing.T) {
	router, _, notifier := setupRouter()

	env := testutil.SignedEnvelope(t, rail.DynamicQR, testutil.Payload{
		Success:       true,
		Code:          rail.DQRPaymentSuccess,
		TransactionID: "TXN-HTTP-1",
	})
	w := postCallback(t, router, "DQR", env)

	require.Equal(t, http.StatusOK, w.Code)
	var resp CallbackAckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TXN-HTTP-1", resp.TransactionID)
	assert.Equal(t, "success", resp.State)
	assert.True(t, resp.Transitioned)
	assert.Len(t, notifier.Published(), 1)
}

func TestReceive_FailedPaymentStillReturns200(t *testing.T) {
	router, _, _ := setupRouter()

	env := testutil.SignedEnvelope(t, rail.EDC, testutil.Payload{
		Success:       false,
		Code:          rail.EDCPaymentError,
		TransactionID: "TXN-HTTP-2",
	})
	w := postCallback(t, router, "edc", env)

	require.Equal(t, http.StatusOK, w.Code)
	var resp CallbackAckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.State)
	assert.Equal(t, "FAILED", resp.Outcome)
}

func TestReceive_UnsupportedRail_Returns400(t *testing.T) {
	router, _, _ := setupRouter()

	env := testutil.SignedEnvelope(t, rail.DynamicQR, testutil.Payload{TransactionID: "TXN-X"})
	w := postCallback(t, router, "CARRIER_PIGEON", env)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported_rail")
}

func TestReceive_EmptyBody_Returns400(t *testing.T) {
	router, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/DQR", strings.NewReader(""))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "malformed_payload")
}

func TestReceive_InvalidJSON_Returns400(t *testing.T) {
	router, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/DQR", strings.NewReader("{broken"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceive_TamperedSignature_Returns401(t *testing.T) {
	router, _, _ := setupRouter()

	env := testutil.SignedEnvelope(t, rail.DynamicQR, testutil.Payload{
		Code:          rail.DQRPaymentSuccess,
		TransactionID: "TXN-HTTP-3",
		Amount:        10000,
	})
	env.XVerify = strings.Repeat("0", 64) + "###1"
	w := postCallback(t, router, "DQR", env)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "signature_invalid")
}

func TestReceive_MissingSignatureHeader_Returns401(t *testing.T) {
	router, _, _ := setupRouter()

	env := testutil.SignedEnvelope(t, rail.DynamicQR, testutil.Payload{
		Code:          rail.DQRPaymentSuccess,
		TransactionID: "TXN-HTTP-4",
	})
	env.XVerify = ""
	w := postCallback(t, router, "DQR", env)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReceive_UnknownMerchant_Returns401(t *testing.T) {
	router, _, _ := setupRouter()

	env := testutil.SignedEnvelope(t, rail.DynamicQR, testutil.Payload{
		Code:          rail.DQRPaymentSuccess,
		TransactionID: "TXN-HTTP-5",
		MerchantID:    "MERCHANT_NOBODY",
	})
	w := postCallback(t, router, "DQR", env)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_merchant")
}

func TestReceive_StorageDown_Returns500(t *testing.T) {
	router, store, _ := setupRouter()

	store.UpsertFunc = func(ctx context.Context, proposed *callback.Record) (*callback.UpsertResult, error) {
		return nil, errors.New("connection refused")
	}

	env := testutil.SignedEnvelope(t, rail.DynamicQR, testutil.Payload{
		Code:          rail.DQRPaymentSuccess,
		TransactionID: "TXN-HTTP-6",
	})
	w := postCallback(t, router, "DQR", env)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "retry delivery")
}

func TestReceive_Replay_BothReturn200(t *testing.T) {
	router, store, notifier := setupRouter()

	env := testutil.SignedEnvelope(t, rail.DynamicQR, testutil.Payload{
		Success:       true,
		Code:          rail.DQRPaymentSuccess,
		TransactionID: "TXN-HTTP-7",
	})

	first := postCallback(t, router, "DQR", env)
	require.Equal(t, http.StatusOK, first.Code)

	second := postCallback(t, router, "DQR", env)
	require.Equal(t, http.StatusOK, second.Code)
	var resp CallbackAckResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.False(t, resp.Transitioned)

	assert.Equal(t, 1, store.RecordCount())
	assert.Len(t, notifier.Published(), 1)
}

// --- Read Model Tests ---

func TestGetStatus_Found(t *testing.T) {
	router, _, _ := setupRouter()

	env := testutil.SignedEnvelope(t, rail.PaymentLink, testutil.Payload{
		Success:       true,
		Code:          rail.LinkPaymentSuccess,
		TransactionID: "TXN-HTTP-8",
	})
	require.Equal(t, http.StatusOK, postCallback(t, router, "PAYMENT_LINK", env).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/TXN-HTTP-8/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp TransactionStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TXN-HTTP-8", resp.TransactionID)
	assert.Equal(t, "success", resp.State)
	assert.Equal(t, "PAYMENT_LINK", resp.Rail)
	assert.True(t, resp.AuthenticityValid)
}

func TestGetStatus_Unknown_Returns404(t *testing.T) {
	router, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/TXN-GHOST/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestGetEvents_ReturnsAuditTrail(t *testing.T) {
	router, _, _ := setupRouter()

	env := testutil.SignedEnvelope(t, rail.DynamicQR, testutil.Payload{
		Success:       true,
		Code:          rail.DQRPaymentSuccess,
		TransactionID: "TXN-HTTP-9",
	})
	require.Equal(t, http.StatusOK, postCallback(t, router, "DQR", env).Code)
	require.Equal(t, http.StatusOK, postCallback(t, router, "DQR", env).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/TXN-HTTP-9/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var events []AuditEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, callback.EventStateChanged, events[0].EventType)
	assert.Equal(t, callback.EventReceived, events[1].EventType)
}

// --- Manual Review Tests ---

func TestReview_ListsAndResolvesUnknownRecords(t *testing.T) {
	router, _, notifier := setupRouter()

	env := testutil.SignedEnvelope(t, rail.DynamicQR, testutil.Payload{
		Code:          "WEIRD_NEW_CODE",
		TransactionID: "TXN-HTTP-10",
	})
	require.Equal(t, http.StatusOK, postCallback(t, router, "DQR", env).Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/review", nil)
	listW := httptest.NewRecorder()
	router.ServeHTTP(listW, listReq)
	require.Equal(t, http.StatusOK, listW.Code)
	var parked []TransactionStatusResponse
	require.NoError(t, json.Unmarshal(listW.Body.Bytes(), &parked))
	require.Len(t, parked, 1)
	assert.Equal(t, "unknown", parked[0].State)

	body := strings.NewReader(`{"outcome":"SUCCESS"}`)
	resolveReq := httptest.NewRequest(http.MethodPost, "/api/v1/review/TXN-HTTP-10/resolve", body)
	resolveW := httptest.NewRecorder()
	router.ServeHTTP(resolveW, resolveReq)

	require.Equal(t, http.StatusOK, resolveW.Code)
	var resolved TransactionStatusResponse
	require.NoError(t, json.Unmarshal(resolveW.Body.Bytes(), &resolved))
	assert.Equal(t, "success", resolved.State)
	assert.Len(t, notifier.Published(), 1)
}

func TestResolve_InvalidOutcome_Returns400(t *testing.T) {
	router, _, _ := setupRouter()

	for _, body := range []string{`{"outcome":"PENDING"}`, `{"outcome":""}`, `{}`, `{broken`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/review/TXN-X/resolve", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestResolve_UnknownTransaction_Returns404(t *testing.T) {
	router, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/review/TXN-GHOST/resolve", strings.NewReader(`{"outcome":"FAILED"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
