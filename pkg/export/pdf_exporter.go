package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth   = 277.0
	lineHeight  = 6.0
	headerSize  = 10
	bodySize    = 9
	titleHeight = 10.0
	margin      = 10.0
)

// PDFExporter renders datasets as a landscape A4 table. Long cells wrap.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	widths, err := columnWidths(data)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, titleHeight, tr(title), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	pdf.SetFont("Arial", "B", headerSize)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], lineHeight+2, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", bodySize)
	for _, row := range data.Rows {
		lines := 1
		for i, header := range data.Headers {
			if n := len(pdf.SplitLines([]byte(tr(row[header])), widths[i]-2)); n > lines {
				lines = n
			}
		}
		height := float64(lines) * lineHeight
		_, pageHeight := pdf.GetPageSize()
		if pdf.GetY()+height > pageHeight-margin {
			pdf.AddPage()
		}
		startX, y := pdf.GetXY()
		x := startX
		for i, header := range data.Headers {
			pdf.Rect(x, y, widths[i], height, "D")
			pdf.MultiCell(widths[i], lineHeight, tr(row[header]), "", "L", false)
			x += widths[i]
			pdf.SetXY(x, y)
		}
		pdf.SetXY(startX, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(data Dataset) ([]float64, error) {
	if len(data.Widths) == 0 {
		widths := make([]float64, len(data.Headers))
		for i := range widths {
			widths[i] = pageWidth / float64(len(data.Headers))
		}
		return widths, nil
	}
	if len(data.Widths) != len(data.Headers) {
		return nil, fmt.Errorf("pdf widths: got %d, want %d", len(data.Widths), len(data.Headers))
	}
	total := sum(data.Widths)
	if total <= 0 {
		return nil, fmt.Errorf("pdf widths must be positive")
	}
	widths := make([]float64, len(data.Widths))
	for i, w := range data.Widths {
		widths[i] = w / total * pageWidth
	}
	return widths, nil
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
