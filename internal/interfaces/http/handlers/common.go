// Package handlers implements the HTTP handlers of the chargefix API.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/AAriam/rdkit/internal/interfaces/http/middleware"
	"github.com/AAriam/rdkit/pkg/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeAppError maps an error to its HTTP status via its code. Server-side
// failures are masked with the code's default message.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	resp := ErrorResponse{
		Code:      string(code),
		RequestID: middleware.ContextGetRequestID(r.Context()),
	}
	var appErr *errors.AppError
	switch {
	case status >= http.StatusInternalServerError:
		resp.Message = errors.DefaultMessageForCode(code)
	case stderrors.As(err, &appErr):
		resp.Message = appErr.Message
		resp.Detail = appErr.Detail
	default:
		resp.Message = err.Error()
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads at most maxBytes of JSON body into dst. Unknown fields
// are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.InvalidParam("request body too large")
		case stderrors.Is(err, io.EOF):
			return errors.InvalidParam("request body is empty")
		default:
			return errors.Wrap(err, errors.ErrCodeInvalidParam, "malformed JSON body")
		}
	}
	return nil
}
