// Package httpx holds the chi middleware and response helpers shared
// by every service's HTTP transport: request logging, CORS, and
// mapping a domain error onto the wire shape clients see.
package httpx

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON marshals v as the response body with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as JSON, using its domain Kind to pick the
// status code and message when err is a *domainerrors.Error, and
// falling back to a generic internal-error response otherwise so
// nothing unexpected ever leaks into a response body.
func WriteError(w http.ResponseWriter, err error) {
	var derr *domainerrors.Error
	status := http.StatusInternalServerError
	code := string(domainerrors.KindInternal)
	msg := "internal error"

	if stderrors.As(err, &derr) {
		status = derr.HTTPStatus()
		code = string(derr.Kind)
		msg = derr.Message
	}

	WriteJSON(w, status, errorResponse{Error: msg, Code: code})
}
