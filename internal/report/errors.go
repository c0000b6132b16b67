package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soriano-mediadores/csvimport/internal/models"
	"github.com/xuri/excelize/v2"
)

var errorReportHeader = []string{"Fila", "Campo", "Mensaje", "Valor"}

// separators would turn the report name into a path
var nameSanitizer = strings.NewReplacer("/", "_", "\\", "_")

// ErrorReportName builds errores_{fileName}_{epochMillis}.{ext}
func ErrorReportName(fileName string, now time.Time, ext string) string {
	return fmt.Sprintf("errores_%s_%d.%s", nameSanitizer.Replace(fileName), now.UnixMilli(), ext)
}

// ErrorReportCSV renders one row per import error under Fila,Campo,Mensaje,Valor
func ErrorReportCSV(errs []models.ImportError) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(errorReportHeader); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	for _, e := range errs {
		row := []string{strconv.Itoa(e.Row), e.Field, e.Message, e.ValueString()}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write report row %d: %w", e.Row, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush report: %w", err)
	}
	return buf.Bytes(), nil
}

// ErrorReportXLSX renders the same table as a single-sheet workbook
func ErrorReportXLSX(errs []models.ImportError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Errores"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(errorReportHeader))
	for i, h := range errorReportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range errs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{e.Row, e.Field, e.Message, e.ValueString()}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", e.Row, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ErrorReport renders errs in format ("csv" or "xlsx") and returns the
// download name and content type along with the payload.
func ErrorReport(errs []models.ImportError, fileName, format string, now time.Time) (name, contentType string, data []byte, err error) {
	switch format {
	case "", "csv":
		data, err = ErrorReportCSV(errs)
		return ErrorReportName(fileName, now, "csv"), "text/csv", data, err
	case "xlsx":
		data, err = ErrorReportXLSX(errs)
		return ErrorReportName(fileName, now, "xlsx"), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data, err
	default:
		return "", "", nil, fmt.Errorf("unsupported report format: %s", format)
	}
}
