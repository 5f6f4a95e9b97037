// Package refdata serves the reference lookups the workflow engine depends
// on: vessel registry, gear taxonomy, country/EEZ list, RFMO list and the
// live product list. Lookups degrade to empty results when the store errors
// so the caller can still render the form and surface field-level errors.
package refdata

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"fes/internal/models"
)

const dateLayout = "2006-01-02"

// Service answers reference lookups from the local store.
type Service struct {
	DB  *sql.DB
	Log zerolog.Logger
}

// ProductStatus reports the status of a product id ("active", "withdrawn",
// "restricted") and whether it exists at all.
func (s *Service) ProductStatus(id string) (string, bool) {
	var status string
	err := s.DB.QueryRow("SELECT status FROM species_products WHERE id=?", id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.Log.Warn().Err(err).Str("product", id).Msg("product lookup failed")
		return "", false
	}
	return status, true
}

// Product returns the full product row.
func (s *Service) Product(id string) (models.Product, bool) {
	var p models.Product
	err := s.DB.QueryRow(`SELECT id, species, description, commodity_code, status
		FROM species_products WHERE id=?`, id).
		Scan(&p.ID, &p.Species, &p.Description, &p.CommodityCode, &p.Status)
	if err != nil {
		if err != sql.ErrNoRows {
			s.Log.Warn().Err(err).Str("product", id).Msg("product lookup failed")
		}
		return models.Product{}, false
	}
	return p, true
}

// VesselExists reports whether a PLN is in the registry at all.
func (s *Service) VesselExists(pln string) bool {
	var n int
	if err := s.DB.QueryRow("SELECT COUNT(*) FROM vessels WHERE pln=?", pln).Scan(&n); err != nil {
		s.Log.Warn().Err(err).Str("pln", pln).Msg("vessel lookup failed")
		return false
	}
	return n > 0
}

// VesselByPLN resolves a vessel scoped to a landing date: the snapshot is
// returned only when the vessel's licence covers the date.
func (s *Service) VesselByPLN(pln string, date time.Time) (models.Vessel, bool) {
	var v models.Vessel
	err := s.DB.QueryRow(`SELECT pln, name, home_port, flag, licence_number, licence_from, licence_to
		FROM vessels WHERE pln=?`, pln).
		Scan(&v.PLN, &v.Name, &v.HomePort, &v.Flag, &v.LicenceNumber, &v.LicenceValidFrom, &v.LicenceValidTo)
	if err != nil {
		if err != sql.ErrNoRows {
			s.Log.Warn().Err(err).Str("pln", pln).Msg("vessel lookup failed")
		}
		return models.Vessel{}, false
	}
	from, err1 := time.Parse(dateLayout, v.LicenceValidFrom)
	to, err2 := time.Parse(dateLayout, v.LicenceValidTo)
	if err1 != nil || err2 != nil {
		return models.Vessel{}, false
	}
	if date.Before(from) || date.After(to) {
		return models.Vessel{}, false
	}
	return v, true
}

// VesselsForDate lists vessels licensed on the given date, for the vessel
// picker after a date partial-submit.
func (s *Service) VesselsForDate(date time.Time) []models.Vessel {
	day := date.Format(dateLayout)
	rows, err := s.DB.Query(`SELECT pln, name, home_port, flag, licence_number, licence_from, licence_to
		FROM vessels WHERE licence_from <= ? AND licence_to >= ? ORDER BY pln`, day, day)
	if err != nil {
		s.Log.Warn().Err(err).Msg("vessel list failed")
		return nil
	}
	defer rows.Close()

	var out []models.Vessel
	for rows.Next() {
		var v models.Vessel
		if err := rows.Scan(&v.PLN, &v.Name, &v.HomePort, &v.Flag, &v.LicenceNumber, &v.LicenceValidFrom, &v.LicenceValidTo); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// GearCategories lists the known gear categories.
func (s *Service) GearCategories() []string {
	rows, err := s.DB.Query("SELECT DISTINCT category FROM gear_types ORDER BY category")
	if err != nil {
		s.Log.Warn().Err(err).Msg("gear category list failed")
		return nil
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// GearTypesByCategory is the pure (category) -> type-set dependency behind
// the cascading gear dropdowns.
func (s *Service) GearTypesByCategory(category string) []string {
	rows, err := s.DB.Query("SELECT name FROM gear_types WHERE category=? ORDER BY name", category)
	if err != nil {
		s.Log.Warn().Err(err).Str("category", category).Msg("gear type list failed")
		return nil
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// GearCode resolves the wire code for a category/type pair.
func (s *Service) GearCode(category, gearType string) (string, bool) {
	var code string
	err := s.DB.QueryRow("SELECT code FROM gear_types WHERE category=? AND name=?", category, gearType).Scan(&code)
	if err != nil {
		if err != sql.ErrNoRows {
			s.Log.Warn().Err(err).Str("category", category).Msg("gear code lookup failed")
		}
		return "", false
	}
	return code, true
}

// GearCodeExists reports whether a raw gear code is in the taxonomy.
func (s *Service) GearCodeExists(code string) bool {
	var n int
	if err := s.DB.QueryRow("SELECT COUNT(*) FROM gear_types WHERE code=?", code).Scan(&n); err != nil {
		s.Log.Warn().Err(err).Str("code", code).Msg("gear code lookup failed")
		return false
	}
	return n > 0
}

// EEZExists accepts either the country name or its EEZ code.
func (s *Service) EEZExists(country string) bool {
	var n int
	err := s.DB.QueryRow("SELECT COUNT(*) FROM countries WHERE name=? OR eez_code=?", country, country).Scan(&n)
	if err != nil {
		s.Log.Warn().Err(err).Str("country", country).Msg("eez lookup failed")
		return false
	}
	return n > 0
}

// Countries lists the selectable zones.
func (s *Service) Countries() []string {
	rows, err := s.DB.Query("SELECT name FROM countries ORDER BY name")
	if err != nil {
		s.Log.Warn().Err(err).Msg("country list failed")
		return nil
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			out = append(out, name)
		}
	}
	return out
}

// FaoAreaExists reports whether a catch area code is known.
func (s *Service) FaoAreaExists(code string) bool {
	var n int
	if err := s.DB.QueryRow("SELECT COUNT(*) FROM fao_areas WHERE code=?", code).Scan(&n); err != nil {
		s.Log.Warn().Err(err).Str("code", code).Msg("fao area lookup failed")
		return false
	}
	return n > 0
}

// RFMOExists reports whether an RFMO code is known.
func (s *Service) RFMOExists(code string) bool {
	var n int
	if err := s.DB.QueryRow("SELECT COUNT(*) FROM rfmos WHERE code=?", code).Scan(&n); err != nil {
		s.Log.Warn().Err(err).Str("code", code).Msg("rfmo lookup failed")
		return false
	}
	return n > 0
}
