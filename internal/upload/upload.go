// Package upload validates bulk product-and-landing files. The validator
// walks a fixed pipeline (file checks, parsing, exhaustive per-row
// validation, summary) and has no side effects: committing the accepted
// subset is a separate, explicit call by the controller.
package upload

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"fes/internal/config"
	"fes/internal/models"
	"fes/internal/validation"
)

// File-level terminal errors. When one of these is set no row was validated.
const (
	FileErrTooLarge    = "fileTooLarge"
	FileErrEmpty       = "fileEmpty"
	FileErrTooManyRows = "fileTooManyRows"
	FileErrUnreadable  = "fileUnreadable"
)

// Positional columns. Optional columns may be omitted from the trailing end
// of a row only; a missing trailing column reads as an empty value.
const (
	colProduct = iota
	colDateLanded
	colStartDate
	colFaoArea
	colHighSeas
	colEEZ
	colRFMO
	colVesselPLN
	colGearCode
	colWeight
	columnCount
)

// minColumns is the structural floor per row: product id and date landed
// must at least be present as columns. Shorter rows are rejected
// structurally, but only that row.
const minColumns = 2

// Validator applies the shared field validators to every row of a file.
type Validator struct {
	Ref    validation.Ref
	Limits config.Limits
	Now    func() time.Time
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Validate runs the full pipeline over raw file bytes and always returns a
// complete summary unless a file-level condition short-circuits.
func (v *Validator) Validate(filename string, data []byte) models.UploadSummary {
	summary := models.UploadSummary{
		BatchID:   uuid.NewString(),
		FileName:  filename,
		CreatedAt: v.now().Format("2006-01-02 15:04:05"),
	}

	if int64(len(data)) > v.Limits.MaxUploadBytes {
		summary.FileError = FileErrTooLarge
		return summary
	}

	rows, err := parseRows(filename, data)
	if err != nil {
		summary.FileError = FileErrUnreadable
		return summary
	}
	if len(rows) == 0 {
		summary.FileError = FileErrEmpty
		return summary
	}
	if len(rows) > v.Limits.MaxUploadRows {
		summary.FileError = FileErrTooManyRows
		return summary
	}

	summary.Total = len(rows)
	for i, cols := range rows {
		outcome := v.validateRow(i+1, cols)
		if outcome.Accepted {
			summary.Accepted++
		} else {
			summary.Rejected++
		}
		summary.Rows = append(summary.Rows, outcome)
	}
	return summary
}

// parseRows splits the file into raw rows: spreadsheet rows for .xlsx,
// comma-separated lines otherwise. Blank rows are skipped, not errors.
func parseRows(filename string, data []byte) ([][]string, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return parseExcel(data)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	var rows [][]string
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func parseExcel(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	var rows [][]string
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// validateRow validates one row independently and exhaustively. Every error
// id follows row-<line>-<productId>-<index>-upload-file-error so repeated
// errors for the same row stay individually addressable.
func (v *Validator) validateRow(line int, cols []string) models.RowOutcome {
	outcome := models.RowOutcome{Line: line, Columns: cols}

	if len(cols) < minColumns {
		outcome.Errors = []models.RowError{{
			ID:      errorID(line, "", 0),
			Field:   "row",
			Code:    validation.CodeRowTooShort,
			Message: "the row does not have enough columns",
		}}
		return outcome
	}

	col := func(i int) string {
		if i < len(cols) {
			return strings.TrimSpace(cols[i])
		}
		return ""
	}
	outcome.ProductID = col(colProduct)

	el := &validation.ErrorList{}
	formats := v.Limits.DateFormats
	now := v.now()

	validation.ValidateProduct(el, "product", col(colProduct), v.Ref, true)
	if col(colDateLanded) == "" {
		el.Add("dateLanded", validation.CodeDateMissing, "enter the date landed")
	} else {
		validation.ValidateDate(el, "dateLanded", col(colDateLanded), formats, v.Limits.MaxFutureDaysDraft, now)
	}
	validation.ValidateDate(el, "startDate", col(colStartDate), formats, -1, now)
	validation.ValidateFaoArea(el, "faoArea", col(colFaoArea), v.Ref)
	validation.ValidateEEZs(el, "exclusiveEconomicZone", []string{col(colEEZ)}, v.Ref)
	validation.ValidateRFMO(el, "rfmo", col(colRFMO), v.Ref)
	validation.ValidateVessel(el, "vessel", col(colVesselPLN), col(colDateLanded), formats, v.Ref, true)
	validation.ValidateGearCode(el, "gearCode", col(colGearCode), v.Ref)
	validation.ValidateWeight(el, "weight", col(colWeight), true)

	if el.HasErrors() {
		for i, fe := range el.Summary() {
			outcome.Errors = append(outcome.Errors, models.RowError{
				ID:      errorID(line, outcome.ProductID, i),
				Field:   fe.Field,
				Code:    fe.Code,
				Message: fe.Message,
				Value:   fe.DisplayValue,
			})
		}
		return outcome
	}

	outcome.Accepted = true
	outcome.Landing = v.rowLanding(cols)
	return outcome
}

// rowLanding converts an accepted row into a landing ready for commit.
func (v *Validator) rowLanding(cols []string) *models.Landing {
	col := func(i int) string {
		if i < len(cols) {
			return strings.TrimSpace(cols[i])
		}
		return ""
	}
	l := &models.Landing{
		ProductID:    col(colProduct),
		DateLanded:   col(colDateLanded),
		StartDate:    col(colStartDate),
		FaoArea:      col(colFaoArea),
		HighSeasArea: strings.EqualFold(col(colHighSeas), "yes") || strings.EqualFold(col(colHighSeas), "y"),
		RFMO:         col(colRFMO),
		VesselPLN:    col(colVesselPLN),
		GearCode:     col(colGearCode),
	}
	if zone := col(colEEZ); zone != "" {
		l.EEZs = []string{zone}
	}
	if w, err := strconv.ParseFloat(col(colWeight), 64); err == nil {
		l.ExportWeight = w
	}
	if date, ok := validation.ParseDate(l.DateLanded, v.Limits.DateFormats); ok {
		if vessel, found := v.Ref.VesselByPLN(l.VesselPLN, date); found {
			l.VesselName = vessel.Name
		}
	}
	return l
}

func errorID(line int, productID string, index int) string {
	return fmt.Sprintf("row-%d-%s-%d-upload-file-error", line, productID, index)
}
