package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/indexnow-studio/backend/internal/domain"
)

var (
	validate = validator.New()
	devMode  bool
)

// SetDevMode controls whether error responses carry the internal cause in a
// "detail" field. Production responses keep the generic message only.
func SetDevMode(enabled bool) {
	devMode = enabled
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Error("failed to encode JSON response", zap.Error(err))
		}
	}
}

// Error writes an error JSON response, using AppError status codes when available.
func Error(w http.ResponseWriter, err error) {
	if appErr, ok := domain.AsAppError(err); ok {
		body := map[string]string{"error": appErr.Message}
		if devMode && appErr.Err != nil {
			body["detail"] = appErr.Err.Error()
		}
		JSON(w, appErr.Code, body)
		return
	}
	zap.L().Error("unhandled error", zap.Error(err))
	body := map[string]string{"error": "internal server error"}
	if devMode {
		body["detail"] = err.Error()
	}
	JSON(w, http.StatusInternalServerError, body)
}

// DecodeJSON decodes a JSON request body into the given struct and runs
// struct-tag validation.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrBadRequest("invalid JSON body")
	}
	if err := validate.Struct(v); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			// Non-struct payloads (e.g. maps) have nothing to validate.
			return nil
		}
		return domain.ErrValidation(err.Error())
	}
	return nil
}
