package main

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"fes/internal/auth"
)

var db *sql.DB

func initDB(path string) error {
	var err error
	db, err = sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return err
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	last_login TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	expires_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS csrf_tokens (
	token TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	expires_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS workflow_state (
	token TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	number TEXT UNIQUE NOT NULL,
	type TEXT NOT NULL,
	owner_id INTEGER NOT NULL REFERENCES users(id),
	status TEXT NOT NULL DEFAULT 'draft',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	species TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	commodity_code TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	presentation TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS landings (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
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
);
CREATE INDEX IF NOT EXISTS idx_landings_document ON landings(document_id);

CREATE TABLE IF NOT EXISTS upload_batches (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	summary TEXT NOT NULL,
	committed INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS species_products (
	id TEXT PRIMARY KEY,
	species TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	commodity_code TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS vessels (
	pln TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	home_port TEXT NOT NULL DEFAULT '',
	flag TEXT NOT NULL DEFAULT 'GBR',
	licence_number TEXT NOT NULL DEFAULT '',
	licence_from TEXT NOT NULL DEFAULT '',
	licence_to TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS gear_types (
	category TEXT NOT NULL,
	name TEXT NOT NULL,
	code TEXT NOT NULL,
	PRIMARY KEY (category, name)
);

CREATE TABLE IF NOT EXISTS countries (
	name TEXT PRIMARY KEY,
	eez_code TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS fao_areas (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS rfmos (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);
`

// seedDB loads the reference datasets and a default admin account on first
// run. Inserts are idempotent.
func seedDB() {
	var userCount int
	db.QueryRow("SELECT COUNT(*) FROM users").Scan(&userCount)
	if userCount == 0 {
		hash, err := auth.HashPassword("admin")
		if err == nil {
			db.Exec("INSERT INTO users (username, password_hash, display_name) VALUES (?, ?, ?)",
				"admin", hash, "Administrator")
		}
	}

	products := [][3]string{
		{"PRD238", "Atlantic cod (COD)", "active"},
		{"PRD734", "Haddock (HAD)", "active"},
		{"PRD557", "European plaice (PLE)", "active"},
		{"PRD901", "King scallop (SCE)", "active"},
		{"PRD112", "Atlantic herring (HER)", "active"},
		{"PRD666", "Common skate (SKA)", "withdrawn"},
		{"PRD777", "European eel (ELE)", "restricted"},
	}
	for _, p := range products {
		db.Exec(`INSERT OR IGNORE INTO species_products (id, species, status) VALUES (?, ?, ?)`,
			p[0], p[1], p[2])
	}

	vessels := [][7]string{
		{"K373", "WIRON 5", "Kirkwall", "GBR", "LIC-10432", "2020-01-01", "2030-12-31"},
		{"PH1100", "GOLDEN BELLS II", "Plymouth", "GBR", "LIC-20981", "2019-06-01", "2029-05-31"},
		{"BM181", "OUR LASS III", "Brixham", "GBR", "LIC-33417", "2021-03-15", "2031-03-14"},
		{"FR430", "ARTEMIS", "Fraserburgh", "GBR", "LIC-44206", "2018-01-01", "2024-12-31"},
	}
	for _, v := range vessels {
		db.Exec(`INSERT OR IGNORE INTO vessels (pln, name, home_port, flag, licence_number, licence_from, licence_to)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, v[0], v[1], v[2], v[3], v[4], v[5], v[6])
	}

	gear := [][3]string{
		{"Dredges", "Towed dredges (DRB)", "DRB"},
		{"Dredges", "Mechanised dredges (HMD)", "HMD"},
		{"Trawls", "Bottom otter trawls (OTB)", "OTB"},
		{"Trawls", "Midwater otter trawls (OTM)", "OTM"},
		{"Trawls", "Beam trawls (TBB)", "TBB"},
		{"Hooks and lines", "Set longlines (LLS)", "LLS"},
		{"Hooks and lines", "Handlines and pole-lines (LHP)", "LHP"},
		{"Traps", "Pots (FPO)", "FPO"},
	}
	for _, g := range gear {
		db.Exec(`INSERT OR IGNORE INTO gear_types (category, name, code) VALUES (?, ?, ?)`,
			g[0], g[1], g[2])
	}

	countries := [][2]string{
		{"United Kingdom", "GBR"},
		{"Ireland", "IRL"},
		{"France", "FRA"},
		{"Norway", "NOR"},
		{"Iceland", "ISL"},
		{"Denmark", "DNK"},
		{"Netherlands", "NLD"},
		{"Spain", "ESP"},
	}
	for _, c := range countries {
		db.Exec(`INSERT OR IGNORE INTO countries (name, eez_code) VALUES (?, ?)`, c[0], c[1])
	}

	faoAreas := [][2]string{
		{"FAO27", "Atlantic, Northeast"},
		{"FAO21", "Atlantic, Northwest"},
		{"FAO34", "Atlantic, Eastern Central"},
		{"FAO87", "Pacific, Southeast"},
	}
	for _, a := range faoAreas {
		db.Exec(`INSERT OR IGNORE INTO fao_areas (code, name) VALUES (?, ?)`, a[0], a[1])
	}

	rfmos := [][2]string{
		{"NEAFC", "North East Atlantic Fisheries Commission"},
		{"NAFO", "Northwest Atlantic Fisheries Organization"},
		{"ICCAT", "International Commission for the Conservation of Atlantic Tunas"},
	}
	for _, r := range rfmos {
		db.Exec(`INSERT OR IGNORE INTO rfmos (code, name) VALUES (?, ?)`, r[0], r[1])
	}
}
