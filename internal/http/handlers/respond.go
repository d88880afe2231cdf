package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = apperr.Validation("invalid_json", "request body is not valid JSON")

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *logging.Logger, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	body := ErrorResponse{Error: kind.String(), Message: "error interno"}

	if ae, ok := apperr.As(err); ok && kind != apperr.KindTransient {
		body.Code = ae.Code
		body.Message = ae.Message
		body.Fields = ae.Fields
	}
	if kind == apperr.KindTransient {
		body.Message = "servicio no disponible, intenta nuevamente"
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	} else {
		logger.Debug("request rejected", "error", err, "status", status, "path", r.URL.Path)
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("empty_body", "request body is required")
		}
		return errInvalidJSON
	}
	return nil
}
