package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/foxseedlab/meetbot/internal/report"
	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 18.0
	pdfLineHeight = 5.5
	pdfBodySize   = 10.5
)

type PDFRenderer struct {
	outputDir  string
	companions []report.Renderer
}

// NewPDFRenderer renders the primary PDF report. Companion renderers run after
// it and their failures are only logged.
func NewPDFRenderer(outputDir string, companions ...report.Renderer) *PDFRenderer {
	return &PDFRenderer{outputDir: outputDir, companions: companions}
}

func (r *PDFRenderer) Render(ctx context.Context, doc report.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(r.outputDir, reportFileName(doc, ".pdf"))

	pdf := fpdf.New("P", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(reportTitle(doc), true)
	pdf.SetCreator("meetbot", true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(113, 128, 150)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	writePDFHeader(pdf, tr, doc)
	for _, s := range buildSections(doc) {
		writePDFSection(pdf, tr, s)
	}
	writePDFFooter(pdf, tr, doc)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf report: %w", err)
	}
	slog.Info("pdf report generated", "session_id", doc.SessionID, "path", path)

	for _, c := range r.companions {
		if companion, err := c.Render(ctx, doc); err != nil {
			slog.Warn("companion report failed", "session_id", doc.SessionID, "error", err)
		} else {
			slog.Info("companion report generated", "session_id", doc.SessionID, "path", companion)
		}
	}
	return path, nil
}

func writePDFHeader(pdf *fpdf.Fpdf, tr func(string) string, doc report.Document) {
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(26, 54, 93)
	pdf.CellFormat(0, 10, tr(reportTitle(doc)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetTextColor(113, 128, 150)
	pdf.CellFormat(0, 6, tr(reportSubtitle), "", 1, "C", false, 0, "")
	pdfRule(pdf, 0.6)

	for _, row := range metadataRows(doc) {
		pdf.SetFont("Helvetica", "B", pdfBodySize)
		pdf.SetTextColor(74, 85, 104)
		pdf.CellFormat(35, 7, tr(row[0]), "", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", pdfBodySize)
		pdf.SetTextColor(45, 55, 72)
		pdf.CellFormat(0, 7, tr("  "+row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func writePDFSection(pdf *fpdf.Fpdf, tr func(string) string, s section) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(44, 82, 130)
	pdf.CellFormat(0, 8, tr(s.heading), "", 1, "L", false, 0, "")
	pdfRule(pdf, 0.3)

	pdf.SetFont("Helvetica", "", pdfBodySize)
	pdf.SetTextColor(45, 55, 72)
	if s.isEmpty() {
		pdf.SetFont("Helvetica", "I", pdfBodySize)
		pdf.MultiCell(0, pdfLineHeight, tr(s.empty), "", "L", false)
		pdf.Ln(4)
		return
	}
	for _, p := range s.paragraphs {
		pdf.MultiCell(0, pdfLineHeight, tr(p), "", "L", false)
		pdf.Ln(1.5)
	}
	for _, b := range s.bullets {
		pdf.SetX(pdfMargin + 4)
		pdf.MultiCell(0, pdfLineHeight, tr("• "+b), "", "L", false)
	}
	if len(s.rows) > 1 {
		writePDFTable(pdf, tr, s.rows)
	}
	pdf.Ln(4)
}

func writePDFTable(pdf *fpdf.Fpdf, tr func(string) string, rows [][]string) {
	pageW, _ := pdf.GetPageSize()
	width := pageW - 2*pdfMargin
	cols := len(rows[0])
	widths := make([]float64, cols)
	// The first column holds the longest text.
	widths[0] = width * 0.46
	for i := 1; i < cols; i++ {
		widths[i] = (width - widths[0]) / float64(cols-1)
	}
	if cols == 2 {
		widths[0], widths[1] = width*0.6, width*0.4
	}

	pdf.SetFont("Helvetica", "B", 9.5)
	pdf.SetFillColor(45, 55, 72)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(226, 232, 240)
	for i, h := range rows[0] {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(45, 55, 72)
	for n, row := range rows[1:] {
		fill := n%2 == 1
		pdf.SetFillColor(247, 250, 252)
		for i, cell := range row {
			cell = tr(cell)
			if pdf.GetStringWidth(cell) > widths[i]-2 {
				cell = fitPDFText(pdf, cell, widths[i]-2)
			}
			align := "C"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 7, cell, "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

func fitPDFText(pdf *fpdf.Fpdf, s string, width float64) string {
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func writePDFFooter(pdf *fpdf.Fpdf, tr func(string) string, doc report.Document) {
	pdfRule(pdf, 0.6)
	pdf.SetFont("Helvetica", "", 9)
	switch c := doc.Summary.Confidence; {
	case c >= 0.7:
		pdf.SetTextColor(56, 161, 105)
	case c >= 0.4:
		pdf.SetTextColor(214, 158, 46)
	default:
		pdf.SetTextColor(229, 62, 62)
	}
	pdf.CellFormat(0, 6, tr(confidenceLine(doc.Summary.Confidence)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(113, 128, 150)
	pdf.MultiCell(0, 4.5, tr(reportDisclaimer), "", "C", false)
}

func pdfRule(pdf *fpdf.Fpdf, thickness float64) {
	pageW, _ := pdf.GetPageSize()
	y := pdf.GetY() + 1
	pdf.SetDrawColor(226, 232, 240)
	pdf.SetLineWidth(thickness)
	pdf.Line(pdfMargin, y, pageW-pdfMargin, y)
	pdf.SetLineWidth(0.2)
	pdf.Ln(4)
}

func reportFileName(doc report.Document, ext string) string {
	started := doc.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	return fmt.Sprintf("meeting_summary_%d_%s%s", doc.SessionID, started.In(report.SafeLocation(doc.Location)).Format("20060102_150405"), ext)
}
