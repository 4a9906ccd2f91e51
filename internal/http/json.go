package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/taskspring/taskspring-api/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
	Field   string
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	body := map[string]string{"error": p.ErrCode, "message": p.Err.Error()}
	if p.Field != "" {
		body["field"] = p.Field
	}
	WriteJSON(w, p.Code, body)
}

// WriteServiceError translates a service-layer error into an HTTP error
// response. Internal errors get a generic message so wrapped causes never
// leak to clients.
func WriteServiceError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status, ok := statusForCode[code]
	if !ok {
		status = http.StatusInternalServerError
		code = apperrors.ErrCodeInternal
	}

	outErr := err
	if status == http.StatusInternalServerError {
		outErr = errors.New("internal server error")
	}

	WriteError(w, ErrorParams{
		Code:    status,
		ErrCode: string(code),
		Err:     outErr,
		Field:   apperrors.GetField(err),
	})
}

var statusForCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeNotFound:   http.StatusNotFound,
	apperrors.ErrCodeForbidden:  http.StatusForbidden,
	apperrors.ErrCodeConflict:   http.StatusConflict,
	apperrors.ErrCodeValidation: http.StatusBadRequest,
	apperrors.ErrCodeTimeout:    http.StatusGatewayTimeout,
	apperrors.ErrCodeCanceled:   http.StatusServiceUnavailable,
	apperrors.ErrCodeInternal:   http.StatusInternalServerError,
}
