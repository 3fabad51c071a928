package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/logging"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Fields  domain.FieldErrors `json:"fields,omitempty"`
}

// kindStatus maps error kinds to response codes, first match wins.
var kindStatus = []struct {
	kind   error
	status int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrState, http.StatusConflict},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrExternalProvider, http.StatusBadGateway},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

type messageBody struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageBody{Message: message})
}

// handleError writes the client-safe form of err. Causes of provider and
// internal errors only reach the log.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context(), s.logger)

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "validation_error",
			Message: "request validation failed",
			Fields:  ve.Fields,
		}})
		return
	}

	var de *domain.Error
	if errors.As(err, &de) {
		status := http.StatusInternalServerError
		for _, ks := range kindStatus {
			if errors.Is(de.Kind, ks.kind) {
				status = ks.status
				break
			}
		}
		if de.Code == "invalid_credentials" {
			status = http.StatusUnauthorized
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", zap.Error(err), zap.String("code", de.Code))
		} else {
			logger.Debug("request rejected", zap.Error(err), zap.String("code", de.Code))
		}
		writeError(w, status, de.Code, de.Message)
		return
	}

	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal", "internal error")
}
