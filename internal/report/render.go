package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"github.com/aquagest/apiserver/types"
)

// Format is an output encoding for a report document.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

const (
	xlsxSheet        = "Reporte"
	xlsxHeaderRow    = 5
	pdfMaxCellRunes  = 40
	generatedAtShown = "2006-01-02 15:04:05"
)

// ParseFormat resolves a format name. An empty name means JSON.
func ParseFormat(name string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return FormatJSON, true
	case FormatXLSX:
		return FormatXLSX, true
	case FormatPDF:
		return FormatPDF, true
	}
	return "", false
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Render encodes doc in format f.
func Render(doc types.ReportDocument, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.Marshal(doc)
	case FormatXLSX:
		return RenderXLSX(doc)
	case FormatPDF:
		return RenderPDF(doc)
	}
	return nil, fmt.Errorf("unsupported report format %q", f)
}

// RenderXLSX writes doc to a single-sheet workbook: header block, column
// names on row 5, then one row per record.
func RenderXLSX(doc types.ReportDocument) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	header := [][2]string{
		{"A1", doc.Type},
		{"A2", doc.Description},
		{"A3", "Generado: " + doc.GeneratedAt.Format(generatedAtShown)},
		{"A4", fmt.Sprintf("Total registros: %d (%s)", doc.TotalRecords, doc.System)},
	}
	for _, h := range header {
		if err := f.SetCellValue(xlsxSheet, h[0], h[1]); err != nil {
			return nil, fmt.Errorf("xlsx: write header: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx: style: %w", err)
	}

	for i, column := range doc.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, xlsxHeaderRow)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(xlsxSheet, cell, column); err != nil {
			return nil, fmt.Errorf("xlsx: write column: %w", err)
		}
		if err := f.SetCellStyle(xlsxSheet, cell, cell, bold); err != nil {
			return nil, fmt.Errorf("xlsx: style column: %w", err)
		}
	}

	for r, record := range doc.Records {
		for c, column := range doc.Columns {
			cell, err := excelize.CoordinatesToCellName(c+1, xlsxHeaderRow+1+r)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(xlsxSheet, cell, record[column]); err != nil {
				return nil, fmt.Errorf("xlsx: write record %d: %w", r, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF writes doc as a landscape A4 table.
func RenderPDF(doc types.ReportDocument) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(latin1(doc.Type)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if doc.Description != "" {
		pdf.CellFormat(contentW, 5, tr(doc.Description), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Generado: %s  |  Total registros: %d  |  %s",
		doc.GeneratedAt.Format(generatedAtShown), doc.TotalRecords, doc.System)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	if len(doc.Columns) > 0 {
		colW := contentW / float64(len(doc.Columns))

		pdf.SetFont("Helvetica", "B", 8)
		for _, column := range doc.Columns {
			pdf.CellFormat(colW, 6, tr(column), "B", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 8)
		for _, record := range doc.Records {
			for _, column := range doc.Columns {
				pdf.CellFormat(colW, 5, tr(truncate(latin1(cellText(record[column])))), "", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func cellText(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

// latin1 drops runes the core PDF fonts cannot draw, such as emoji.
func latin1(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r > 0xFF {
			return -1
		}
		return r
	}, s))
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= pdfMaxCellRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:pdfMaxCellRunes-3]) + "..."
}
