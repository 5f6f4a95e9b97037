package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"fes/internal/server"
)

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		next.ServeHTTP(w, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Exempt paths
		if path == "/" ||
			path == "/auth/login" ||
			path == "/auth/logout" ||
			path == "/forbidden" ||
			path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := sessions.Token(r)
		if !ok {
			unauthorized(w)
			return
		}

		var userID int
		var username string
		var active int
		err := db.QueryRow(`SELECT s.user_id, u.username, u.active FROM sessions s JOIN users u ON s.user_id = u.id
			WHERE s.token = ? AND s.expires_at > CURRENT_TIMESTAMP`, token).Scan(&userID, &username, &active)
		if err != nil {
			unauthorized(w)
			return
		}
		if active == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(403)
			json.NewEncoder(w).Encode(map[string]string{"error": "Account deactivated", "code": "FORBIDDEN"})
			return
		}

		// Sliding window: each authenticated request extends the session.
		sessions.Touch(w, token)

		ctx := context.WithValue(r.Context(), server.CtxUserID, userID)
		ctx = context.WithValue(ctx, server.CtxUsername, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(401)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized", "code": "UNAUTHORIZED"})
}
