package auth

import (
	"database/sql"
	"time"
)

// CSRFLifetime bounds how long an issued token stays valid.
const CSRFLifetime = 4 * time.Hour

// CSRF issues and validates per-user CSRF tokens. Partial-submit actions
// skip the check (they touch only session state); every document-mutating
// action validates the token after the ownership check.
type CSRF struct {
	DB *sql.DB
}

// Issue creates a token bound to the user.
func (c *CSRF) Issue(userID int) (string, error) {
	token := GenerateToken()
	expires := time.Now().Add(CSRFLifetime)
	_, err := c.DB.Exec("INSERT INTO csrf_tokens (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expires.Format("2006-01-02 15:04:05"))
	if err != nil {
		return "", err
	}
	return token, nil
}

// Validate checks a submitted token belongs to the user and has not expired,
// consuming it on success. Tokens are single-use; every page render issues a
// fresh one.
func (c *CSRF) Validate(userID int, token string) bool {
	if token == "" {
		return false
	}
	res, err := c.DB.Exec(`DELETE FROM csrf_tokens
		WHERE token = ? AND user_id = ? AND expires_at > CURRENT_TIMESTAMP`, token, userID)
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// Prune drops expired tokens.
func (c *CSRF) Prune() {
	c.DB.Exec("DELETE FROM csrf_tokens WHERE expires_at < CURRENT_TIMESTAMP")
}
