package upload

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"

	"fes/internal/models"
)

var reportHeaders = []string{"Row", "Product", "Field", "Error", "Value"}

// reportRows flattens a summary's rejected rows for the error report.
func reportRows(summary models.UploadSummary) [][]string {
	var data [][]string
	for _, row := range summary.Rows {
		if row.Accepted {
			continue
		}
		for _, e := range row.Errors {
			data = append(data, []string{
				strconv.Itoa(row.Line), row.ProductID, e.Field, e.Message, e.Value,
			})
		}
	}
	return data
}

// WriteReportCSV streams the row-error report as a CSV attachment.
func WriteReportCSV(w http.ResponseWriter, summary models.UploadSummary) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=upload-errors.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(reportHeaders); err != nil {
		http.Error(w, "Failed to write CSV headers", 500)
		return
	}
	for _, row := range reportRows(summary) {
		if err := writer.Write(row); err != nil {
			http.Error(w, "Failed to write CSV row", 500)
			return
		}
	}
}

// WriteReportExcel streams the row-error report as a styled spreadsheet.
func WriteReportExcel(w http.ResponseWriter, summary models.UploadSummary) {
	const sheetName = "Upload errors"

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		http.Error(w, "Failed to create sheet", 500)
		return
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		http.Error(w, "Failed to create header style", 500)
		return
	}

	for i, header := range reportHeaders {
		cell := fmt.Sprintf("%s1", string(rune('A'+i)))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range reportRows(summary) {
		for colIdx, value := range row {
			cell := fmt.Sprintf("%s%d", string(rune('A'+colIdx)), rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range reportHeaders {
		col := string(rune('A' + i))
		f.SetColWidth(sheetName, col, col, 18)
	}

	f.DeleteSheet("Sheet1")

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=upload-errors.xlsx")
	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write spreadsheet", 500)
	}
}
