// internal/common/errors/http.go
package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body every failed request answers with.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError answers with err's status and public message. Errors that are
// not StandardErrors are reported as internal errors without their details.
func WriteError(w http.ResponseWriter, err error) {
	stdErr, ok := As(err)
	if !ok {
		stdErr = NewInternalError(err)
	}

	resp := ErrorResponse{Error: stdErr.Message}
	if fields, ok := stdErr.Metadata["fields"].(map[string]string); ok {
		resp.Fields = fields
	}
	WriteJSON(w, HTTPStatus(stdErr.Code), resp)
}
