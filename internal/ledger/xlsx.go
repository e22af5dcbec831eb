package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	timelineSheet = "Timeline"
	timeLayout    = "2006-01-02 15:04:05"
)

// MedicalReportTimelineHeader is the column order of the Timeline sheet
var MedicalReportTimelineHeader = []string{
	"Timestamp",
	"Event Type",
	"Title",
	"Description",
	"Recorded By",
	"Related Items",
	"Evidence",
	"Details",
}

// WriteMedicalReportXLSX renders the report as a workbook with a Summary sheet
// and a Timeline sheet.
func WriteMedicalReportXLSX(r *MedicalReport) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called explicitly on every path

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(timelineSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummary(f, r, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTimeline(f, r, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, r *MedicalReport, headerStyle int) error {
	rows := [][]interface{}{
		{"Subject", r.SubjectID},
		{"Period Start", r.Start.Format(timeLayout)},
		{"Period End", r.End.Format(timeLayout)},
		{"Generated At", r.GeneratedAt.Format(timeLayout)},
		{"Total Entries", r.TotalEntries},
		{"Completed Tasks", r.CompletedTasks},
		{"Alerts", r.Alerts},
		{"Medication Events", r.MedicationEvents},
		{"Triages", r.Triages},
		{"Escalations", r.Escalations},
		{"Emergency Calls", r.EmergencyCalls},
	}

	if err := setRow(f, summarySheet, 1, []interface{}{"Field", "Value"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 30); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func writeTimeline(f *excelize.File, r *MedicalReport, headerStyle int) error {
	for col, header := range MedicalReportTimelineHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(timelineSheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(timelineSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	columnWidths := []float64{
		20, // Timestamp
		22, // Event Type
		36, // Title
		48, // Description
		20, // Recorded By
		30, // Related Items
		30, // Evidence
		48, // Details
	}
	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(timelineSheet, col, col, w); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, e := range r.Entries {
		row := []interface{}{
			e.Timestamp.Format(timeLayout),
			string(e.EventType),
			e.Title,
			e.Description,
			e.RecordedBy,
			strings.Join(e.RelatedItems, ", "),
			evidenceCell(e.Evidence),
			detailsCell(e.Details),
		}
		if err := setRow(f, timelineSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(timelineSheet, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		if v == nil || v == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
		}
	}
	return nil
}

func evidenceCell(ev []models.Evidence) string {
	parts := make([]string, len(ev))
	for i, e := range ev {
		parts[i] = fmt.Sprintf("%s: %s", e.Type, e.Reference)
	}
	return strings.Join(parts, "; ")
}

func detailsCell(d map[string]interface{}) string {
	if len(d) == 0 {
		return ""
	}
	// json.Marshal sorts map keys, so the cell is stable
	b, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return string(b)
}
