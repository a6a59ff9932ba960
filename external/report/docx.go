package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/foxseedlab/meetbot/internal/report"
	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	docxFont     = "Times New Roman"
	docxFontSize = 12
)

type DOCXRenderer struct {
	outputDir string
}

func NewDOCXRenderer(outputDir string) *DOCXRenderer {
	return &DOCXRenderer{outputDir: outputDir}
}

func (r *DOCXRenderer) Render(ctx context.Context, doc report.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(r.outputDir, reportFileName(doc, ".docx"))

	d, err := godocx.NewDocument()
	if err != nil {
		return "", fmt.Errorf("create docx: %w", err)
	}
	addDocxRun(d.AddParagraph(""), reportTitle(doc), true, 18)
	addDocxRun(d.AddParagraph(""), reportSubtitle, false, 10)
	for _, row := range metadataRows(doc) {
		p := d.AddParagraph("")
		addDocxRun(p, row[0]+" ", true, docxFontSize)
		addDocxRun(p, row[1], false, docxFontSize)
	}

	for _, s := range buildSections(doc) {
		d.AddParagraph("")
		addDocxRun(d.AddParagraph(""), s.heading, true, 14)
		if s.isEmpty() {
			addDocxRun(d.AddParagraph(""), s.empty, false, docxFontSize)
			continue
		}
		for _, text := range s.paragraphs {
			addDocxRun(d.AddParagraph(""), text, false, docxFontSize)
		}
		for _, b := range s.bullets {
			addDocxRun(d.AddParagraph(""), "• "+b, false, docxFontSize)
		}
		if len(s.rows) > 1 {
			header := s.rows[0]
			for _, row := range s.rows[1:] {
				p := d.AddParagraph("")
				addDocxRun(p, row[0], true, docxFontSize)
				details := make([]string, 0, len(row)-1)
				for i := 1; i < len(row); i++ {
					details = append(details, header[i]+": "+row[i])
				}
				if len(details) > 0 {
					addDocxRun(p, "  ("+strings.Join(details, " | ")+")", false, docxFontSize)
				}
			}
		}
	}
	d.AddParagraph("")
	addDocxRun(d.AddParagraph(""), confidenceLine(doc.Summary.Confidence), false, 10)

	if err := d.SaveTo(path); err != nil {
		return "", fmt.Errorf("write docx report: %w", err)
	}
	return path, nil
}

func addDocxRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(docxFont).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
