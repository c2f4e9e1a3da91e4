package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth  = 277.0 // A4 landscape minus margins, mm
	rowHeight  = 7.0
	maxCellLen = 40
)

// WritePDF writes a landscape A4 table with a title, generation time and
// page numbers.
func WritePDF(w io.Writer, t Table) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(t.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Página %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	colWidth := pageWidth
	if n := len(t.Headers); n > 0 {
		colWidth = pageWidth / float64(n)
	}
	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(220, 230, 241)
		for _, h := range t.Headers {
			pdf.CellFormat(colWidth, rowHeight, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(t.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, tr("Generado: "+t.GeneratedAt.Format("02-01-2006 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	drawHeader()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range t.Rows {
		if pdf.GetY()+rowHeight > pageHeight-bottom-15 {
			pdf.AddPage()
			drawHeader()
		}
		for _, v := range row {
			pdf.CellFormat(colWidth, rowHeight, tr(clip(Text(v))), "1", 0, align(v), false, 0, "")
		}
		pdf.Ln(-1)
	}

	if t.HasTotal() {
		pdf.SetFont("Helvetica", "B", 9)
		for i := range t.Headers {
			txt := ""
			switch i {
			case 0:
				txt = "Total"
			case t.TotalColumn:
				txt = t.Total.StringFixed(0)
			}
			pdf.CellFormat(colWidth, rowHeight, tr(txt), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if t.Truncated {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Mostrando los primeros %d registros.", len(t.Rows))), "", 1, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("export: pdf: %w", err)
	}
	return pdf.Output(w)
}

func align(v any) string {
	switch v.(type) {
	case int64, float64:
		return "R"
	}
	return "L"
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxCellLen {
		return s
	}
	return string(r[:maxCellLen-1]) + "…"
}
