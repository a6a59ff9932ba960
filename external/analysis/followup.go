package analysis

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/foxseedlab/meetbot/internal/analysis"
)

const (
	followupMaxPoints    = 5
	followupMaxDecisions = 5
	followupMaxActions   = 10
	sectionRule          = "----------------------------------------"
)

type TemplateFollowupWriter struct {
	senderName  string
	companyName string
}

func NewTemplateFollowupWriter(senderName, companyName string) analysis.FollowupWriter {
	if senderName == "" {
		senderName = "Sunny AI"
	}
	return &TemplateFollowupWriter{senderName: senderName, companyName: companyName}
}

func (w *TemplateFollowupWriter) GenerateFollowup(ctx context.Context, in analysis.FollowupInput) (analysis.FollowupEmail, error) {
	if err := ctx.Err(); err != nil {
		return analysis.FollowupEmail{}, err
	}
	title := in.Title
	if title == "" {
		title = "Team Meeting"
	}
	date := in.MeetingDate.Format("January 02, 2006")
	summary := in.Summary.ExecutiveSummary
	if summary == "" {
		summary = "Meeting summary not available."
	}
	items := in.ActionItems.Items
	if len(items) == 0 {
		items = in.Summary.ActionItems
	}
	if len(items) > followupMaxActions {
		items = items[:followupMaxActions]
	}

	var b strings.Builder
	b.WriteString("Hi Team,\n\n")
	fmt.Fprintf(&b, "Thank you for attending the %s on %s. Below is a summary of our discussion and next steps.\n\n", title, date)
	writeSection(&b, "SUMMARY", []string{summary}, "")
	writeSection(&b, "KEY DISCUSSION POINTS", head(in.Summary.KeyPoints, followupMaxPoints), "• ")
	writeSection(&b, "DECISIONS MADE", head(in.Summary.Decisions, followupMaxDecisions), "✓ ")
	if len(items) > 0 {
		lines := make([]string, 0, len(items)*2)
		for _, item := range items {
			lines = append(lines, "• "+item.Task, fmt.Sprintf("  Owner: %s | Due: %s", orTBD(item.Owner), orTBD(item.Deadline)))
		}
		writeSection(&b, "ACTION ITEMS", lines, "")
	}
	b.WriteString("Please review the action items assigned to you and reach out if you have any questions.\n\n")
	b.WriteString("Best regards,\n")
	b.WriteString(w.senderName + "\n")
	if w.companyName != "" {
		b.WriteString(w.companyName + "\n")
	}
	b.WriteString("\n---\nThis email was automatically generated by Sunny AI Meeting Assistant.")

	body := b.String()
	return analysis.FollowupEmail{
		Subject:             fmt.Sprintf("Follow-up: %s - %s", title, date),
		Body:                body,
		BodyHTML:            textToHTML(body),
		Recipient:           in.Recipient,
		Sender:              w.senderName,
		ActionItemsIncluded: len(items),
	}, nil
}

func writeSection(b *strings.Builder, heading string, lines []string, bullet string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(heading + "\n" + sectionRule + "\n")
	for _, line := range lines {
		b.WriteString(bullet + line + "\n")
	}
	b.WriteString("\n")
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func orTBD(s string) string {
	if s == "" {
		return "TBD"
	}
	return s
}

var htmlHeadings = map[string]string{
	"SUMMARY":               "Summary",
	"KEY DISCUSSION POINTS": "Key Discussion Points",
	"DECISIONS MADE":        "Decisions Made",
	"ACTION ITEMS":          "Action Items",
}

func textToHTML(text string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
h3 { color: #2d3748; margin-top: 20px; border-bottom: 2px solid #f59e0b; padding-bottom: 5px; }
</style>
</head>
<body>
`)
	for _, line := range strings.Split(text, "\n") {
		if line == sectionRule {
			continue
		}
		if title, ok := htmlHeadings[line]; ok {
			b.WriteString("<h3>" + title + "</h3>\n")
			continue
		}
		b.WriteString(html.EscapeString(line) + "<br>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
