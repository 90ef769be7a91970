// Package export renders numbering records as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"docnum/internal/core/numbering"
)

// ContentTypeXLSX is the media type of the workbooks produced here.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const auditSheet = "Audit"

var auditHeaders = []string{
	"Document number", "Sequence", "Period key", "Template",
	"Trigger", "Generated by", "Generated at (UTC)", "Submission", "Series",
}

var auditColWidths = []float64{28, 10, 12, 32, 10, 18, 22, 38, 38}

// AuditWorkbook builds a workbook with one row per audit record. The caller
// closes the returned file.
func AuditWorkbook(records []numbering.AuditRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", auditSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := writeAudit(f, records); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("build audit workbook: %w", err)
	}
	return f, nil
}

func writeAudit(f *excelize.File, records []numbering.AuditRecord) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	header := make([]any, len(auditHeaders))
	for i, h := range auditHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(auditSheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(auditHeaders))
	if err := f.SetCellStyle(auditSheet, "A1", last+"1", headerStyle); err != nil {
		return err
	}

	for i, rec := range records {
		row := []any{
			rec.DocumentNumber,
			rec.SequenceNumber,
			rec.PeriodKey,
			rec.Template,
			string(rec.Trigger),
			rec.GeneratedBy,
			rec.GeneratedAt.UTC().Format(time.DateTime),
			rec.SubmissionID.String(),
			rec.SeriesID.String(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(auditSheet, cell, &row); err != nil {
			return err
		}
	}

	for i, w := range auditColWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(auditSheet, col, col, w); err != nil {
			return err
		}
	}

	return f.SetPanes(auditSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// WriteAudit streams the audit workbook of records to w.
func WriteAudit(w io.Writer, records []numbering.AuditRecord) error {
	f, err := AuditWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write audit workbook: %w", err)
	}
	return nil
}
