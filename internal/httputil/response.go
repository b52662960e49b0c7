// Package httputil holds the JSON response helpers shared by handlers and middleware.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/R3E-Network/sira_platform/internal/logging"
)

// ErrorResponse is the body written for every failed request. The detail
// field is what browser clients display.
type ErrorResponse struct {
	Detail  string                 `json:"detail"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// WriteJSON writes data as a JSON body with status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes a structured error body.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	resp := ErrorResponse{Detail: message, Code: code, Details: details}
	if r != nil {
		resp.TraceID = logging.GetTraceID(r.Context())
	}
	WriteJSON(w, status, resp)
}

// Unauthorized writes a 401 with a bearer challenge.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Not authenticated"
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteErrorResponse(w, nil, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

// Forbidden writes a 403.
func Forbidden(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "Not enough permissions"
	}
	WriteErrorResponse(w, r, http.StatusForbidden, "FORBIDDEN", message, nil)
}
