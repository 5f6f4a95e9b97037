package upload

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fes/internal/config"
	"fes/internal/models"
	"fes/internal/validation"
)

type fakeRef struct{}

func (fakeRef) ProductStatus(id string) (string, bool) {
	switch id {
	case "PRD238", "PRD734":
		return validation.ProductActive, true
	case "PRD666":
		return validation.ProductWithdrawn, true
	}
	return "", false
}

func (fakeRef) VesselExists(pln string) bool { return pln == "K373" }

func (fakeRef) VesselByPLN(pln string, date time.Time) (models.Vessel, bool) {
	if pln == "K373" {
		return models.Vessel{PLN: "K373", Name: "WIRON 5"}, true
	}
	return models.Vessel{}, false
}

func (fakeRef) GearTypesByCategory(category string) []string { return nil }
func (fakeRef) GearCodeExists(code string) bool              { return code == "DRB" }
func (fakeRef) EEZExists(country string) bool {
	return country == "United Kingdom" || country == "Norway"
}
func (fakeRef) FaoAreaExists(code string) bool { return code == "FAO27" }
func (fakeRef) RFMOExists(code string) bool    { return code == "NEAFC" }

func newValidator() *Validator {
	return &Validator{
		Ref:    fakeRef{},
		Limits: config.Default().Limits,
		Now:    func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) },
	}
}

// goodRow is a complete, valid upload row in positional column order.
const goodRow = "PRD238,02/01/2025,01/01/2025,FAO27,No,United Kingdom,NEAFC,K373,DRB,1500.50"

func TestValidateAcceptsCompleteRow(t *testing.T) {
	v := newValidator()
	summary := v.Validate("landings.csv", []byte(goodRow+"\n"))

	assert.Empty(t, summary.FileError)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 0, summary.Rejected)
	require.Equal(t, 1, len(summary.Rows))

	row := summary.Rows[0]
	require.True(t, row.Accepted)
	require.NotNil(t, row.Landing)
	assert.Equal(t, "PRD238", row.Landing.ProductID)
	assert.Equal(t, "WIRON 5", row.Landing.VesselName)
	assert.Equal(t, []string{"United Kingdom"}, row.Landing.EEZs)
	assert.Equal(t, 1500.50, row.Landing.ExportWeight)
	assert.False(t, row.Landing.HighSeasArea)
	assert.NotEmpty(t, summary.BatchID)
}

func TestFileTooLarge(t *testing.T) {
	v := newValidator()
	v.Limits.MaxUploadBytes = 16

	summary := v.Validate("landings.csv", []byte(goodRow))
	assert.Equal(t, FileErrTooLarge, summary.FileError)
	assert.Equal(t, 0, summary.Total, "no row validation after a terminal file error")
	assert.Empty(t, summary.Rows)
}

func TestFileEmpty(t *testing.T) {
	v := newValidator()

	summary := v.Validate("landings.csv", []byte(""))
	assert.Equal(t, FileErrEmpty, summary.FileError)

	// Whitespace-only rows count as empty too.
	summary = v.Validate("landings.csv", []byte("\n  ,, \n\n"))
	assert.Equal(t, FileErrEmpty, summary.FileError)
}

func TestFileTooManyRows(t *testing.T) {
	v := newValidator()
	v.Limits.MaxUploadRows = 3

	data := strings.Repeat(goodRow+"\n", 4)
	summary := v.Validate("landings.csv", []byte(data))
	assert.Equal(t, FileErrTooManyRows, summary.FileError)
	assert.Empty(t, summary.Rows)
}

func TestRowsValidateIndependently(t *testing.T) {
	v := newValidator()
	data := goodRow + "\n" +
		"PRD238,02/01/2025,01/01/2025,FAO27,No,Atlantis,NEAFC,K373,DRB,1500\n" +
		goodRow + "\n"

	summary := v.Validate("landings.csv", []byte(data))
	assert.Empty(t, summary.FileError)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Accepted)
	assert.Equal(t, 1, summary.Rejected)

	bad := summary.Rows[1]
	assert.False(t, bad.Accepted)
	require.Equal(t, 1, len(bad.Errors))
	assert.Equal(t, validation.CodeEEZUnknown, bad.Errors[0].Code)
	assert.Equal(t, "Atlantis", bad.Errors[0].Value)
}

func TestRowErrorsAreExhaustive(t *testing.T) {
	v := newValidator()
	// Unknown product, bad date, unknown vessel, missing weight: all reported.
	data := "NOPE,99/99/2020,,,,,,ZZ99,,"

	summary := v.Validate("landings.csv", []byte(data))
	require.Equal(t, 1, len(summary.Rows))
	row := summary.Rows[0]
	assert.False(t, row.Accepted)

	codes := map[string]bool{}
	for _, e := range row.Errors {
		codes[e.Code] = true
	}
	assert.True(t, codes[validation.CodeProductUnknown])
	assert.True(t, codes[validation.CodeDateInvalid])
	assert.True(t, codes[validation.CodeVesselNotEnabled])
	assert.True(t, codes[validation.CodeWeightMissing])
}

func TestRowErrorIDFormat(t *testing.T) {
	v := newValidator()
	data := goodRow + "\n" +
		"PRD238,02/01/2025,,,,Atlantis,,K373,,abc\n"

	summary := v.Validate("landings.csv", []byte(data))
	row := summary.Rows[1]
	require.Equal(t, 2, len(row.Errors))
	for i, e := range row.Errors {
		assert.Equal(t, fmt.Sprintf("row-2-PRD238-%d-upload-file-error", i), e.ID)
	}
}

func TestShortRowRejectedStructurally(t *testing.T) {
	v := newValidator()
	data := goodRow + "\nPRD238\n" + goodRow + "\n"

	summary := v.Validate("landings.csv", []byte(data))
	assert.Equal(t, 2, summary.Accepted)
	row := summary.Rows[1]
	require.Equal(t, 1, len(row.Errors))
	assert.Equal(t, validation.CodeRowTooShort, row.Errors[0].Code)
	assert.Equal(t, "row-2--0-upload-file-error", row.Errors[0].ID)
}

func TestTrailingColumnsMayBeOmitted(t *testing.T) {
	v := newValidator()
	// Only product and date landed present: structurally fine, but the
	// missing vessel and weight are field errors.
	summary := v.Validate("landings.csv", []byte("PRD238,02/01/2025"))
	row := summary.Rows[0]
	assert.False(t, row.Accepted)

	codes := map[string]bool{}
	for _, e := range row.Errors {
		codes[e.Code] = true
	}
	assert.True(t, codes[validation.CodeVesselMissing])
	assert.True(t, codes[validation.CodeWeightMissing])
	assert.False(t, codes[validation.CodeRowTooShort])
}

func TestExcelUploadMatchesCSV(t *testing.T) {
	f := excelize.NewFile()
	cols := strings.Split(goodRow, ",")
	for i, val := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, val)
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	f.Close()

	v := newValidator()
	xlsxSummary := v.Validate("landings.xlsx", buf.Bytes())
	csvSummary := v.Validate("landings.csv", []byte(goodRow))

	assert.Empty(t, xlsxSummary.FileError)
	require.Equal(t, 1, len(xlsxSummary.Rows))
	assert.True(t, xlsxSummary.Rows[0].Accepted)
	assert.Equal(t, csvSummary.Rows[0].Landing.ProductID, xlsxSummary.Rows[0].Landing.ProductID)
	assert.Equal(t, csvSummary.Rows[0].Landing.ExportWeight, xlsxSummary.Rows[0].Landing.ExportWeight)
}

func TestUnreadableFile(t *testing.T) {
	v := newValidator()
	summary := v.Validate("landings.xlsx", []byte("this is not a spreadsheet"))
	assert.Equal(t, FileErrUnreadable, summary.FileError)
}

func TestReportRowsFlattenRejectedOnly(t *testing.T) {
	summary := models.UploadSummary{
		Rows: []models.RowOutcome{
			{Line: 1, Accepted: true},
			{Line: 2, ProductID: "PRD238", Errors: []models.RowError{
				{Field: "weight", Message: "must be a positive number", Value: "abc"},
				{Field: "vessel", Message: "is not a registered vessel", Value: "ZZ99"},
			}},
		},
	}
	rows := reportRows(summary)
	require.Equal(t, 2, len(rows))
	assert.Equal(t, []string{"2", "PRD238", "weight", "must be a positive number", "abc"}, rows[0])
}
