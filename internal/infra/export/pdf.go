package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"voice-journal/internal/domain"
)

func RenderPDF(meta Metadata, thoughts []domain.Thought) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.SetTitle(meta.title(), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(150, 150, 150)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 10, tr(meta.title()))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	if meta.Email != "" {
		pdf.Cell(0, 5, tr("Account: "+meta.Email))
		pdf.Ln(5)
	}
	if !meta.Generated.IsZero() {
		pdf.Cell(0, 5, "Generated: "+meta.local(meta.Generated).Format("2 Jan 2006 15:04"))
		pdf.Ln(5)
	}
	pdf.Cell(0, 5, fmt.Sprintf("Entries: %d", len(thoughts)))
	pdf.Ln(8)

	pdf.SetDrawColor(210, 210, 210)
	pdf.Line(18, pdf.GetY(), 192, pdf.GetY())
	pdf.Ln(6)

	if len(thoughts) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 8, "No entries yet.")
	}

	for _, t := range thoughts {
		if pdf.GetY() > 255 {
			pdf.AddPage()
		}

		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(20, 20, 20)
		pdf.Cell(0, 7, meta.local(t.CreatedAt).Format("Mon 2 Jan 2006, 15:04"))
		pdf.Ln(7)

		details := []string{orUncategorized(t.Category)}
		if len(t.Tags) > 0 {
			details = append(details, "#"+strings.Join(t.Tags, " #"))
		}
		if t.DurationSeconds > 0 {
			details = append(details, formatDuration(t.DurationSeconds))
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(110, 110, 110)
		pdf.Cell(0, 5, tr(strings.Join(details, "  |  ")))
		pdf.Ln(6)

		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(30, 30, 30)
		pdf.MultiCell(0, 5.5, tr(strings.TrimSpace(t.Text())), "", "L", false)
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

