// Package response writes this service's JSON bodies. Successful payloads
// travel in the {"data": ...} envelope; errors are {"error": message} with
// the status code, and failed ownership checks get their own shape carrying
// the support id.
package response

import (
	"encoding/json"
	"net/http"

	"fes/internal/models"
)

// JSON wraps data in the envelope and writes it.
func JSON(w http.ResponseWriter, data interface{}) {
	json.NewEncoder(w).Encode(models.APIResponse{Data: data})
}

// Err writes an error message with the given HTTP status code.
func Err(w http.ResponseWriter, msg string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Forbidden writes the 403 body for a failed document ownership check. The
// support id is the only detail disclosed; it never says whose document it
// was.
func Forbidden(w http.ResponseWriter, supportID string) {
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"forbidden": "true", "supportId": supportID})
}

// DecodeBody decodes a JSON request body into the given value.
func DecodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
