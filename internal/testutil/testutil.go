package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"fes/internal/models"
)

// SetupTestDB creates a standard in-memory SQLite database for testing
// with foreign keys enabled, all tables created and reference data seeded.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	createTables(t, testDB)
	seedAdminUser(t, testDB)
	SeedReferenceData(t, testDB)

	return testDB
}

func createTables(t *testing.T, db *sql.DB) {
	t.Helper()
	tables := []struct {
		name string
		ddl  string
	}{
		{"users", `CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_login TIMESTAMP
		)`},
		{"sessions", `CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`},
		{"csrf_tokens", `CREATE TABLE IF NOT EXISTS csrf_tokens (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`},
		{"workflow_state", `CREATE TABLE IF NOT EXISTS workflow_state (
			token TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
		{"documents", `CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			number TEXT UNIQUE NOT NULL,
			type TEXT NOT NULL,
			owner_id INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`},
		{"products", `CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			species TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			commodity_code TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			presentation TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`},
		{"landings", `CREATE TABLE IF NOT EXISTS landings (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			start_date TEXT NOT NULL DEFAULT '',
			date_landed TEXT NOT NULL DEFAULT '',
			fao_area TEXT NOT NULL DEFAULT '',
			high_seas INTEGER NOT NULL DEFAULT 0,
			eezs TEXT NOT NULL DEFAULT '',
			rfmo TEXT NOT NULL DEFAULT '',
			gear_category TEXT NOT NULL DEFAULT '',
			gear_type TEXT NOT NULL DEFAULT '',
			gear_code TEXT NOT NULL DEFAULT '',
			vessel_pln TEXT NOT NULL DEFAULT '',
			vessel_name TEXT NOT NULL DEFAULT '',
			export_weight REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`},
		{"upload_batches", `CREATE TABLE IF NOT EXISTS upload_batches (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			summary TEXT NOT NULL,
			committed INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
		{"species_products", `CREATE TABLE IF NOT EXISTS species_products (
			id TEXT PRIMARY KEY,
			species TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			commodity_code TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active'
		)`},
		{"vessels", `CREATE TABLE IF NOT EXISTS vessels (
			pln TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			home_port TEXT NOT NULL DEFAULT '',
			flag TEXT NOT NULL DEFAULT 'GBR',
			licence_number TEXT NOT NULL DEFAULT '',
			licence_from TEXT NOT NULL DEFAULT '',
			licence_to TEXT NOT NULL DEFAULT ''
		)`},
		{"gear_types", `CREATE TABLE IF NOT EXISTS gear_types (
			category TEXT NOT NULL,
			name TEXT NOT NULL,
			code TEXT NOT NULL,
			PRIMARY KEY (category, name)
		)`},
		{"countries", `CREATE TABLE IF NOT EXISTS countries (
			name TEXT PRIMARY KEY,
			eez_code TEXT NOT NULL DEFAULT ''
		)`},
		{"fao_areas", `CREATE TABLE IF NOT EXISTS fao_areas (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT ''
		)`},
		{"rfmos", `CREATE TABLE IF NOT EXISTS rfmos (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT ''
		)`},
	}

	for _, tbl := range tables {
		if _, err := db.Exec(tbl.ddl); err != nil {
			t.Fatalf("Failed to create %s table: %v", tbl.name, err)
		}
	}
}

func seedAdminUser(t *testing.T, db *sql.DB) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash admin password: %v", err)
	}
	_, err = db.Exec(`INSERT INTO users (username, password_hash, display_name) VALUES (?, ?, ?)`,
		"admin", string(hash), "Administrator")
	if err != nil {
		t.Fatalf("Failed to create default admin user: %v", err)
	}
}

// SeedReferenceData loads the vessel registry, gear taxonomy, country/EEZ
// list, FAO areas, RFMOs and product list the validators look up.
func SeedReferenceData(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []struct {
		query string
		args  [][]interface{}
	}{
		{`INSERT OR IGNORE INTO species_products (id, species, status) VALUES (?, ?, ?)`, [][]interface{}{
			{"PRD238", "Atlantic cod (COD)", "active"},
			{"PRD734", "Haddock (HAD)", "active"},
			{"PRD901", "King scallop (SCE)", "active"},
			{"PRD666", "Common skate (SKA)", "withdrawn"},
			{"PRD777", "European eel (ELE)", "restricted"},
		}},
		{`INSERT OR IGNORE INTO vessels (pln, name, home_port, flag, licence_number, licence_from, licence_to)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, [][]interface{}{
			{"K373", "WIRON 5", "Kirkwall", "GBR", "LIC-10432", "2020-01-01", "2030-12-31"},
			{"PH1100", "GOLDEN BELLS II", "Plymouth", "GBR", "LIC-20981", "2019-06-01", "2029-05-31"},
			{"FR430", "ARTEMIS", "Fraserburgh", "GBR", "LIC-44206", "2018-01-01", "2024-12-31"},
		}},
		{`INSERT OR IGNORE INTO gear_types (category, name, code) VALUES (?, ?, ?)`, [][]interface{}{
			{"Dredges", "Towed dredges (DRB)", "DRB"},
			{"Trawls", "Bottom otter trawls (OTB)", "OTB"},
			{"Trawls", "Beam trawls (TBB)", "TBB"},
			{"Traps", "Pots (FPO)", "FPO"},
		}},
		{`INSERT OR IGNORE INTO countries (name, eez_code) VALUES (?, ?)`, [][]interface{}{
			{"United Kingdom", "GBR"},
			{"Ireland", "IRL"},
			{"Norway", "NOR"},
			{"France", "FRA"},
			{"Iceland", "ISL"},
			{"Denmark", "DNK"},
		}},
		{`INSERT OR IGNORE INTO fao_areas (code, name) VALUES (?, ?)`, [][]interface{}{
			{"FAO27", "Atlantic, Northeast"},
			{"FAO21", "Atlantic, Northwest"},
		}},
		{`INSERT OR IGNORE INTO rfmos (code, name) VALUES (?, ?)`, [][]interface{}{
			{"NEAFC", "North East Atlantic Fisheries Commission"},
			{"NAFO", "Northwest Atlantic Fisheries Organization"},
		}},
	}

	for _, s := range stmts {
		for _, args := range s.args {
			if _, err := db.Exec(s.query, args...); err != nil {
				t.Fatalf("Failed to seed reference data: %v", err)
			}
		}
	}
}

// CreateTestUser creates a test user with the given credentials.
func CreateTestUser(t *testing.T, db *sql.DB, username, password string, active bool) int {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	activeInt := 0
	if active {
		activeInt = 1
	}

	result, err := db.Exec(
		"INSERT INTO users (username, password_hash, display_name, active) VALUES (?, ?, ?, ?)",
		username, string(hash), username+" Display", activeInt,
	)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	id, _ := result.LastInsertId()
	return int(id)
}

// CreateTestSession creates a session token for the given user with default 24h expiry.
func CreateTestSession(t *testing.T, db *sql.DB, userID int) string {
	t.Helper()
	token := "test-session-token-" + time.Now().Format("20060102150405.000000")
	expiresAt := time.Now().Add(24 * time.Hour)

	_, err := db.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return token
}

// LoginAdmin returns a session token for the default admin user.
func LoginAdmin(t *testing.T, db *sql.DB) string {
	t.Helper()
	var adminID int
	err := db.QueryRow("SELECT id FROM users WHERE username = 'admin'").Scan(&adminID)
	if err != nil {
		t.Fatalf("Failed to find admin user: %v", err)
	}
	return CreateTestSession(t, db, adminID)
}

// LoginUser creates a regular user and returns their session token.
func LoginUser(t *testing.T, db *sql.DB, username string) string {
	t.Helper()
	userID := CreateTestUser(t, db, username, "password", true)
	return CreateTestSession(t, db, userID)
}

// IssueCSRF inserts a CSRF token for the user and returns it.
func IssueCSRF(t *testing.T, db *sql.DB, userID int) string {
	t.Helper()
	token := "test-csrf-token-" + time.Now().Format("20060102150405.000000")
	expires := time.Now().Add(time.Hour)
	_, err := db.Exec(
		"INSERT INTO csrf_tokens (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expires.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		t.Fatalf("Failed to issue CSRF token: %v", err)
	}
	return token
}

// AuthedRequest creates an authenticated HTTP request with a session cookie.
func AuthedRequest(method, path string, body []byte, sessionToken string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: "fes_session", Value: sessionToken})
	}

	return req
}

// AuthedFormRequest creates an authenticated form POST the way the landing
// form submits.
func AuthedFormRequest(path, form, sessionToken string) *http.Request {
	req := AuthedRequest("POST", path, []byte(form), sessionToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// AuthedJSONRequest creates an authenticated HTTP request with JSON content type.
func AuthedJSONRequest(method, path string, body interface{}, sessionToken string) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}

	req := AuthedRequest(method, path, bodyBytes, sessionToken)
	req.Header.Set("Content-Type", "application/json")

	return req
}

// AssertStatus checks that the HTTP status code matches expected.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeEnvelope decodes an API response envelope and extracts the data.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode API envelope: %v", err)
	}
	dataBytes, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(dataBytes, v); err != nil {
		t.Fatalf("Failed to decode data from envelope: %v", err)
	}
}
