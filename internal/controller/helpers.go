package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/Naveen-Manyam/payment-middleware-backend-sub001/internal/domain/errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings drives the HTTP status contract: malformed → 400, failed
// verification → 401, unknown transaction → 404, transient storage → 500.
var errorMappings = []errorMapping{
	{domainErrors.ErrMalformedPayload, http.StatusBadRequest, "malformed_payload"},
	{domainErrors.ErrUnsupportedRail, http.StatusBadRequest, "unsupported_rail"},
	{domainErrors.ErrSignatureInvalid, http.StatusUnauthorized, "signature_invalid"},
	{domainErrors.ErrUnknownMerchant, http.StatusUnauthorized, "unknown_merchant"},
	{domainErrors.ErrTransactionNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{domainErrors.ErrStorageUnavailable, http.StatusInternalServerError, "storage_unavailable"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			if m.err == domainErrors.ErrStorageUnavailable {
				// A 500 here is deliberate: the provider must retry a
				// callback that was never durably recorded.
				resp.Error = "storage unavailable, retry delivery"
			}
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
