package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/bridge-ledger/ledger"
)

type ErrorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps ledger errors to http status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrAlreadyProcessed), errors.Is(err, ledger.ErrAlreadyInitialized), errors.Is(err, ledger.ErrRevisionConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrUnauthorized), errors.Is(err, ledger.ErrUntrustedEmitter):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrPaused):
		return http.StatusLocked
	case errors.Is(err, ledger.ErrDailyLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ledger.ErrMalformedMessage), errors.Is(err, ledger.ErrOracleInvalid), errors.Is(err, ledger.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrCapacityExceeded):
		return http.StatusInsufficientStorage
	case errors.Is(err, ledger.ErrOracleStale), errors.Is(err, ledger.ErrNotInitialized), errors.Is(err, ledger.ErrPendingState):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrTokenLedgerFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("[API] Error encoding response: ", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, code int, err error) {
	s.respondFieldError(w, r, code, "", err)
}

func (s *Server) respondFieldError(w http.ResponseWriter, r *http.Request, code int, field string, err error) {
	requestID := middleware.GetReqID(r.Context())
	entry := log.WithFields(log.Fields{"request_id": requestID, "path": r.URL.Path, "code": code})
	if code >= http.StatusInternalServerError {
		entry.Error("[API] Request failed: ", err)
	} else {
		entry.Debug("[API] Request refused: ", err)
	}

	respondJSON(w, &ErrorResponse{
		Status:    "error",
		Message:   err.Error(),
		Field:     field,
		RequestID: requestID,
	}, code)
}

func (s *Server) respondLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, StatusFor(err), err)
}
