package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "warden/pkg/domain-errors"
)

var codeStatus = map[dErrors.Code]int{
	dErrors.CodeAccountNotFound:   http.StatusNotFound,
	dErrors.CodeWrongPassword:     http.StatusUnauthorized,
	dErrors.CodeInvalidCredential: http.StatusUnauthorized,
	dErrors.CodeEmailInUse:        http.StatusConflict,
	dErrors.CodeWeakPassword:      http.StatusBadRequest,
	dErrors.CodeInvalidEmail:      http.StatusBadRequest,
	dErrors.CodeTooManyAttempts:   http.StatusTooManyRequests,
	dErrors.CodePopupClosed:       http.StatusBadRequest,
	dErrors.CodeNoActiveSession:   http.StatusUnauthorized,
	dErrors.CodeConflict:          http.StatusConflict,
	dErrors.CodeInvalidInput:      http.StatusBadRequest,
	dErrors.CodeValidation:        http.StatusBadRequest,
	dErrors.CodeNotFound:          http.StatusNotFound,
	dErrors.CodeUnauthorized:      http.StatusUnauthorized,
	dErrors.CodeInternal:          http.StatusInternalServerError,
}

// writeError centralizes domain error translation to HTTP responses so every
// handler returns the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{
		"error":   string(code),
		"message": dErrors.MessageOf(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
