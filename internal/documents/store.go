// Package documents persists export documents, their products and landings,
// and answers the ownership check every mutating workflow transition runs
// before anything else.
package documents

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fes/internal/models"
)

// ErrNotFound is returned when a document, product or landing does not exist.
var ErrNotFound = errors.New("not found")

// AuthError reports that the caller is not authorized for a document. The
// support id is an opaque reference for the forbidden page.
type AuthError struct {
	SupportID string
}

func (e *AuthError) Error() string {
	return "not authorized for document (support id " + e.SupportID + ")"
}

const timeLayout = "2006-01-02 15:04:05"

// Store is the sqlite-backed document store.
type Store struct {
	DB *sql.DB
}

// Create opens a new draft document for the owner.
func (s *Store) Create(ownerID int, docType string) (models.Document, error) {
	now := time.Now().Format(timeLayout)
	doc := models.Document{
		ID:        uuid.NewString(),
		Number:    documentNumber(docType),
		Type:      docType,
		OwnerID:   ownerID,
		Status:    models.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.DB.Exec(`INSERT INTO documents (id, number, type, owner_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Number, doc.Type, doc.OwnerID, doc.Status, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return models.Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func documentNumber(docType string) string {
	prefix := "CC"
	switch docType {
	case models.DocProcessingStatement:
		prefix = "PS"
	case models.DocStorageDocument:
		prefix = "SD"
	}
	ref := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("GBR-%d-%s-%s", time.Now().Year(), prefix, ref)
}

// ByID loads one document.
func (s *Store) ByID(id string) (models.Document, error) {
	var d models.Document
	err := s.DB.QueryRow(`SELECT id, number, type, owner_id, status, created_at, updated_at
		FROM documents WHERE id=?`, id).
		Scan(&d.ID, &d.Number, &d.Type, &d.OwnerID, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Document{}, ErrNotFound
	}
	if err != nil {
		return models.Document{}, err
	}
	return d, nil
}

// ListByOwner lists a user's documents, newest first.
func (s *Store) ListByOwner(ownerID int) ([]models.Document, error) {
	rows, err := s.DB.Query(`SELECT id, number, type, owner_id, status, created_at, updated_at
		FROM documents WHERE owner_id=? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Number, &d.Type, &d.OwnerID, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Authorize checks the caller owns the document. Runs before CSRF and before
// field validation on every transition that touches the store. A failed check
// carries a fresh support id for the forbidden page.
func (s *Store) Authorize(docID string, userID int) error {
	var ownerID int
	err := s.DB.QueryRow("SELECT owner_id FROM documents WHERE id=?", docID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return &AuthError{SupportID: uuid.NewString()}
	}
	if err != nil {
		return err
	}
	if ownerID != userID {
		return &AuthError{SupportID: uuid.NewString()}
	}
	return nil
}

// SetStatus updates the document status (saveAsDraft / saveAndContinue).
func (s *Store) SetStatus(docID, status string) error {
	res, err := s.DB.Exec("UPDATE documents SET status=?, updated_at=? WHERE id=?",
		status, time.Now().Format(timeLayout), docID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddProduct attaches a product entry to a document.
func (s *Store) AddProduct(docID string, p models.Product) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.DB.Exec(`INSERT INTO products (id, document_id, species, description, commodity_code, state, presentation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, docID, p.Species, p.Description, p.CommodityCode, p.State, p.Presentation,
		time.Now().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("add product: %w", err)
	}
	return p.ID, nil
}

// Products lists a document's products.
func (s *Store) Products(docID string) ([]models.Product, error) {
	rows, err := s.DB.Query(`SELECT id, document_id, species, description, commodity_code, state, presentation, created_at
		FROM products WHERE document_id=? ORDER BY created_at`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.Species, &p.Description, &p.CommodityCode, &p.State, &p.Presentation, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProduct removes a product and its landings.
func (s *Store) DeleteProduct(docID, productID string) error {
	if _, err := s.DB.Exec("DELETE FROM landings WHERE document_id=? AND product_id=?", docID, productID); err != nil {
		return err
	}
	res, err := s.DB.Exec("DELETE FROM products WHERE document_id=? AND id=?", docID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLanding inserts a landing and returns its id.
func (s *Store) AddLanding(docID string, l models.Landing) (string, error) {
	return insertLanding(s.DB, docID, l)
}

// AddLandingTx inserts a landing inside the caller's transaction. Bulk
// upload commits use it so the whole batch lands or none of it does.
func (s *Store) AddLandingTx(tx *sql.Tx, docID string, l models.Landing) (string, error) {
	return insertLanding(tx, docID, l)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertLanding(db execer, docID string, l models.Landing) (string, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	eezs, err := json.Marshal(l.EEZs)
	if err != nil {
		return "", err
	}
	now := time.Now().Format(timeLayout)
	_, err = db.Exec(`INSERT INTO landings
		(id, document_id, product_id, start_date, date_landed, fao_area, high_seas, eezs, rfmo,
		 gear_category, gear_type, gear_code, vessel_pln, vessel_name, export_weight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, docID, l.ProductID, l.StartDate, l.DateLanded, l.FaoArea, boolToInt(l.HighSeasArea),
		string(eezs), l.RFMO, l.GearCategory, l.GearType, l.GearCode, l.VesselPLN, l.VesselName,
		l.ExportWeight, now, now)
	if err != nil {
		return "", fmt.Errorf("add landing: %w", err)
	}
	return l.ID, nil
}

// UpdateLanding mutates a landing in place.
func (s *Store) UpdateLanding(docID string, l models.Landing) error {
	eezs, err := json.Marshal(l.EEZs)
	if err != nil {
		return err
	}
	res, err := s.DB.Exec(`UPDATE landings SET
		product_id=?, start_date=?, date_landed=?, fao_area=?, high_seas=?, eezs=?, rfmo=?,
		gear_category=?, gear_type=?, gear_code=?, vessel_pln=?, vessel_name=?, export_weight=?, updated_at=?
		WHERE document_id=? AND id=?`,
		l.ProductID, l.StartDate, l.DateLanded, l.FaoArea, boolToInt(l.HighSeasArea), string(eezs),
		l.RFMO, l.GearCategory, l.GearType, l.GearCode, l.VesselPLN, l.VesselName, l.ExportWeight,
		time.Now().Format(timeLayout), docID, l.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLanding removes one landing.
func (s *Store) DeleteLanding(docID, landingID string) error {
	res, err := s.DB.Exec("DELETE FROM landings WHERE document_id=? AND id=?", docID, landingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Landing loads one landing.
func (s *Store) Landing(docID, landingID string) (models.Landing, error) {
	row := s.DB.QueryRow(`SELECT id, document_id, product_id, start_date, date_landed, fao_area,
		high_seas, eezs, rfmo, gear_category, gear_type, gear_code, vessel_pln, vessel_name,
		export_weight, created_at, updated_at
		FROM landings WHERE document_id=? AND id=?`, docID, landingID)
	l, err := scanLanding(row)
	if err == sql.ErrNoRows {
		return models.Landing{}, ErrNotFound
	}
	return l, err
}

// Landings lists a document's landings in insertion order.
func (s *Store) Landings(docID string) ([]models.Landing, error) {
	rows, err := s.DB.Query(`SELECT id, document_id, product_id, start_date, date_landed, fao_area,
		high_seas, eezs, rfmo, gear_category, gear_type, gear_code, vessel_pln, vessel_name,
		export_weight, created_at, updated_at
		FROM landings WHERE document_id=? ORDER BY created_at, id`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Landing
	for rows.Next() {
		l, err := scanLanding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LandingCount reports the number of landings on a document.
func (s *Store) LandingCount(docID string) (int, error) {
	var n int
	err := s.DB.QueryRow("SELECT COUNT(*) FROM landings WHERE document_id=?", docID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLanding(row rowScanner) (models.Landing, error) {
	var l models.Landing
	var highSeas int
	var eezs string
	err := row.Scan(&l.ID, &l.DocumentID, &l.ProductID, &l.StartDate, &l.DateLanded, &l.FaoArea,
		&highSeas, &eezs, &l.RFMO, &l.GearCategory, &l.GearType, &l.GearCode, &l.VesselPLN,
		&l.VesselName, &l.ExportWeight, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return models.Landing{}, err
	}
	l.HighSeasArea = highSeas != 0
	if eezs != "" {
		if err := json.Unmarshal([]byte(eezs), &l.EEZs); err != nil {
			return models.Landing{}, err
		}
	}
	return l, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
