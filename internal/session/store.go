// Package session resolves the browser's session cookie and persists the
// typed workflow state between requests. State is read once at request start
// and written back before the response; within a request nothing else
// mutates it.
package session

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"fes/internal/workflow"
)

// CookieName is the session cookie issued at login.
const CookieName = "fes_session"

// Lifetime is the sliding session expiry window.
const Lifetime = 24 * time.Hour

// Store is the sqlite-backed session store.
type Store struct {
	DB *sql.DB
}

// Token extracts the session token from the request cookie.
func (s *Store) Token(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// UserID resolves a session token to its user, refusing expired sessions.
func (s *Store) UserID(token string) (int, bool) {
	var userID int
	err := s.DB.QueryRow(`SELECT user_id FROM sessions WHERE token = ? AND expires_at > CURRENT_TIMESTAMP`,
		token).Scan(&userID)
	if err != nil {
		return 0, false
	}
	return userID, true
}

// Touch extends the session expiry (sliding window) and refreshes the cookie.
func (s *Store) Touch(w http.ResponseWriter, token string) {
	expires := time.Now().Add(Lifetime)
	s.DB.Exec("UPDATE sessions SET expires_at = ? WHERE token = ?",
		expires.Format("2006-01-02 15:04:05"), token)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

// LoadState returns the session's workflow state, or a zero state when none
// has been saved yet.
func (s *Store) LoadState(token string) (workflow.FormState, error) {
	var raw string
	err := s.DB.QueryRow("SELECT state FROM workflow_state WHERE token = ?", token).Scan(&raw)
	if err == sql.ErrNoRows {
		return workflow.FormState{}, nil
	}
	if err != nil {
		return workflow.FormState{}, err
	}
	var st workflow.FormState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		// A corrupt row must not wedge the session; start fresh.
		return workflow.FormState{}, nil
	}
	return st, nil
}

// SaveState upserts the session's workflow state.
func (s *Store) SaveState(token string, st workflow.FormState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(`INSERT INTO workflow_state (token, state, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(token) DO UPDATE SET state=excluded.state, updated_at=CURRENT_TIMESTAMP`,
		token, string(raw))
	return err
}

// ClearState drops the session's workflow state entirely.
func (s *Store) ClearState(token string) error {
	_, err := s.DB.Exec("DELETE FROM workflow_state WHERE token = ?", token)
	return err
}
