// Package server holds the request context keys shared between the root
// middleware, which sets them after session lookup, and the handler
// packages, which read them.
package server

import "net/http"

// ContextKey is the type used for request context keys.
type ContextKey string

const (
	CtxUserID   ContextKey = "userID"
	CtxUsername ContextKey = "username"
)

// UserID extracts the authenticated user from the request context.
func UserID(r *http.Request) (int, bool) {
	id, ok := r.Context().Value(CtxUserID).(int)
	return id, ok
}
