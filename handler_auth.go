package main

import (
	"net/http"
	"time"

	"fes/internal/auth"
	"fes/internal/response"
	"fes/internal/session"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "Invalid request body", 400)
		return
	}

	var id int
	var passwordHash, displayName string
	var active int
	err := db.QueryRow("SELECT id, password_hash, display_name, active FROM users WHERE username = ?", req.Username).
		Scan(&id, &passwordHash, &displayName, &active)
	if err != nil {
		response.Err(w, "Invalid username or password", 401)
		return
	}
	if !auth.CheckPassword(passwordHash, req.Password) {
		response.Err(w, "Invalid username or password", 401)
		return
	}
	if active == 0 {
		response.Err(w, "Account deactivated", 403)
		return
	}

	// Clean expired sessions
	db.Exec("DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP")
	csrfTokens.Prune()

	// Create session with retry
	var token string
	expires := time.Now().Add(session.Lifetime)
	for i := 0; i < 3; i++ {
		token = auth.GenerateToken()
		_, err = db.Exec("INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
			token, id, expires.Format("2006-01-02 15:04:05"))
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		response.Err(w, "Failed to create session", 500)
		return
	}

	db.Exec("UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?", id)

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})

	response.JSON(w, map[string]interface{}{
		"user": UserResponse{ID: id, Username: req.Username, DisplayName: displayName},
	})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := sessions.Token(r); ok {
		db.Exec("DELETE FROM sessions WHERE token = ?", token)
		sessions.ClearState(token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	response.JSON(w, map[string]string{"status": "ok"})
}

func handleMe(w http.ResponseWriter, r *http.Request) {
	token, ok := sessions.Token(r)
	if !ok {
		unauthorized(w)
		return
	}

	var id int
	var username, displayName string
	err := db.QueryRow(`SELECT u.id, u.username, u.display_name
		FROM sessions s JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > CURRENT_TIMESTAMP`, token).
		Scan(&id, &username, &displayName)
	if err != nil {
		unauthorized(w)
		return
	}

	response.JSON(w, map[string]interface{}{
		"user": UserResponse{ID: id, Username: username, DisplayName: displayName},
	})
}
