package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/soriano-mediadores/csvimport/internal/intake"
	"github.com/soriano-mediadores/csvimport/internal/models"
	"gopkg.in/yaml.v3"
)

// HistoryFormats lists the formats accepted by WriteHistory
var HistoryFormats = []string{"text", "json", "yaml", "csv", "parquet"}

var historyColumns = []string{
	"ID", "Tipo", "Archivo", "Tamaño", "Estado", "Usuario", "Inicio", "Fin",
	"Total", "Procesadas", "Correctas", "Errores", "Duplicadas", "Omitidas", "Revertible",
}

// historyRow is the flat parquet schema of an ImportHistory record
type historyRow struct {
	ID             string `parquet:"id"`
	Type           string `parquet:"type"`
	FileName       string `parquet:"file_name"`
	FileSize       int64  `parquet:"file_size"`
	Status         string `parquet:"status"`
	UserName       string `parquet:"user_name"`
	StartTimeMs    int64  `parquet:"start_time_ms"`
	EndTimeMs      int64  `parquet:"end_time_ms"`
	TotalRows      int64  `parquet:"total_rows"`
	ProcessedRows  int64  `parquet:"processed_rows"`
	SuccessfulRows int64  `parquet:"successful_rows"`
	ErrorRows      int64  `parquet:"error_rows"`
	DuplicateRows  int64  `parquet:"duplicate_rows"`
	SkippedRows    int64  `parquet:"skipped_rows"`
	ErrorCount     int64  `parquet:"error_count"`
	CanRevert      bool   `parquet:"can_revert"`
}

// WriteHistory renders history records in the requested format
func WriteHistory(w io.Writer, items []models.ImportHistory, format string) error {
	switch format {
	case "", "text":
		return writeHistoryText(w, items)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case "csv":
		return writeHistoryCSV(w, items)
	case "parquet":
		return writeHistoryParquet(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeHistoryText(w io.Writer, items []models.ImportHistory) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIPO\tARCHIVO\tTAMAÑO\tESTADO\tCORRECTAS/TOTAL\tERRORES\tUSUARIO\tINICIO\tREVERTIBLE")
	for _, h := range items {
		title := string(h.Type)
		if d, ok := models.TypeDescriptions[h.Type]; ok {
			title = d.Title
		}
		revert := "no"
		if h.CanRevert {
			revert = "sí"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\t%s\n",
			h.ID, title, h.FileName, intake.FormatFileSize(h.FileSize), h.Status,
			h.Stats.SuccessfulRows, h.Stats.TotalRows, h.Stats.ErrorRows,
			h.UserName, h.StartTime.Local().Format("2006-01-02 15:04"), revert)
	}
	return tw.Flush()
}

func writeHistoryCSV(w io.Writer, items []models.ImportHistory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyColumns); err != nil {
		return err
	}
	for _, h := range items {
		r := toHistoryRow(h)
		end := ""
		if h.EndTime != nil {
			end = h.EndTime.UTC().Format(time.RFC3339)
		}
		record := []string{
			r.ID, r.Type, r.FileName, strconv.FormatInt(r.FileSize, 10), r.Status, r.UserName,
			h.StartTime.UTC().Format(time.RFC3339), end,
			strconv.FormatInt(r.TotalRows, 10), strconv.FormatInt(r.ProcessedRows, 10),
			strconv.FormatInt(r.SuccessfulRows, 10), strconv.FormatInt(r.ErrorRows, 10),
			strconv.FormatInt(r.DuplicateRows, 10), strconv.FormatInt(r.SkippedRows, 10),
			strconv.FormatBool(r.CanRevert),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeHistoryParquet(w io.Writer, items []models.ImportHistory) error {
	rows := make([]historyRow, 0, len(items))
	for _, h := range items {
		rows = append(rows, toHistoryRow(h))
	}

	pw := parquet.NewGenericWriter[historyRow](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func toHistoryRow(h models.ImportHistory) historyRow {
	r := historyRow{
		ID:             h.ID,
		Type:           string(h.Type),
		FileName:       h.FileName,
		FileSize:       h.FileSize,
		Status:         string(h.Status),
		UserName:       h.UserName,
		StartTimeMs:    h.StartTime.UnixMilli(),
		TotalRows:      int64(h.Stats.TotalRows),
		ProcessedRows:  int64(h.Stats.ProcessedRows),
		SuccessfulRows: int64(h.Stats.SuccessfulRows),
		ErrorRows:      int64(h.Stats.ErrorRows),
		DuplicateRows:  int64(h.Stats.DuplicateRows),
		SkippedRows:    int64(h.Stats.SkippedRows),
		ErrorCount:     int64(len(h.Errors)),
		CanRevert:      h.CanRevert,
	}
	if h.EndTime != nil {
		r.EndTimeMs = h.EndTime.UnixMilli()
	}
	return r
}
