package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/report"
)

const (
	defaultTitle     = "MEETING SUMMARY REPORT"
	reportSubtitle   = "Generated by Sunny AI - Autonomous Meeting Assistant"
	reportDisclaimer = "This summary was automatically generated. Please verify important details against the original meeting recording."
)

type section struct {
	heading    string
	paragraphs []string
	bullets    []string
	// rows holds a table whose first row is the header.
	rows  [][]string
	empty string
}

func (s section) isEmpty() bool {
	return len(s.paragraphs) == 0 && len(s.bullets) == 0 && len(s.rows) <= 1
}

func reportTitle(doc report.Document) string {
	if t := strings.TrimSpace(doc.Title); t != "" {
		return t
	}
	return defaultTitle
}

func metadataRows(doc report.Document) [][]string {
	loc := report.SafeLocation(doc.Location)
	return [][]string{
		{"Date:", doc.StartedAt.In(loc).Format("January 02, 2006 at 03:04 PM")},
		{"Platform:", report.PlatformDisplayName(doc.Platform)},
		{"Duration:", report.FormatDuration(doc.DurationSeconds)},
	}
}

func buildSections(doc report.Document) []section {
	sections := []section{}
	if doc.Metrics.TotalWords > 0 {
		sections = append(sections, analyticsSection(doc.Metrics))
	}
	summary := section{heading: "EXECUTIVE SUMMARY", empty: "No executive summary available."}
	if s := strings.TrimSpace(doc.Summary.ExecutiveSummary); s != "" {
		summary.paragraphs = []string{s}
	}
	sections = append(sections, summary)

	if doc.Diarization.NumSpeakers > 0 {
		sections = append(sections, speakerSection(doc.Diarization))
	}
	if len(doc.Topics.Segments) > 0 {
		sections = append(sections, topicSection(doc.Topics))
	}
	if doc.Sentiment.Overall != "" {
		sections = append(sections, sentimentSection(doc.Sentiment))
	}
	sections = append(sections,
		section{heading: "KEY DISCUSSION POINTS", bullets: doc.Summary.KeyPoints, empty: "No key discussion points identified."},
		section{heading: "DECISIONS MADE", bullets: doc.Summary.Decisions, empty: "No explicit decisions recorded during this meeting."},
		actionSection(doc),
		transcriptSection(doc),
	)
	return sections
}

func analyticsSection(m analysis.Metrics) section {
	return section{
		heading: "MEETING ANALYTICS",
		rows: [][]string{
			{"Metric", "Value"},
			{"Total words", fmt.Sprintf("%d", m.TotalWords)},
			{"Words per minute", fmt.Sprintf("%.1f", m.WordsPerMinute)},
			{"Speakers", fmt.Sprintf("%d", m.NumSpeakers)},
			{"Participation balance", fmt.Sprintf("%.0f%%", m.ParticipationBalance*100)},
			{"Topics", fmt.Sprintf("%d", m.NumTopics)},
			{"Decisions", fmt.Sprintf("%d", m.NumDecisions)},
			{"Action items", fmt.Sprintf("%d", m.NumActionItems)},
		},
	}
}

func speakerSection(d analysis.Diarization) section {
	rows := [][]string{{"Speaker", "Speaking time", "Share"}}
	speakers := make([]string, 0, len(d.SpeakerStats))
	for name := range d.SpeakerStats {
		speakers = append(speakers, name)
	}
	sortSpeakers(speakers, d.SpeakerStats)
	for _, name := range speakers {
		st := d.SpeakerStats[name]
		rows = append(rows, []string{name, report.FormatDuration(st.TotalTime), fmt.Sprintf("%.1f%%", st.Percentage)})
	}
	return section{heading: "SPEAKER ANALYSIS", rows: rows}
}

func sortSpeakers(names []string, stats map[string]analysis.SpeakerStat) {
	sort.Slice(names, func(i, j int) bool {
		a, b := stats[names[i]], stats[names[j]]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		return names[i] < names[j]
	})
}

func topicSection(t analysis.Topics) section {
	s := section{heading: "TOPIC TIMELINE"}
	for _, topic := range t.Segments {
		line := fmt.Sprintf("%s %s", report.FormatTimestamp(topic.StartTime), topic.Title)
		if topic.Summary != "" {
			line += ": " + topic.Summary
		}
		s.bullets = append(s.bullets, line)
	}
	return s
}

func sentimentSection(s analysis.Sentiment) section {
	out := section{heading: "SENTIMENT ANALYSIS"}
	out.paragraphs = append(out.paragraphs, fmt.Sprintf("Overall sentiment: %s (confidence %.0f%%)",
		strings.ToUpper(s.Overall[:1])+s.Overall[1:], s.Confidence*100))
	out.paragraphs = append(out.paragraphs, fmt.Sprintf("Positive %.1f%% | Neutral %.1f%% | Negative %.1f%%",
		s.Distribution[analysis.SentimentPositive], s.Distribution[analysis.SentimentNeutral], s.Distribution[analysis.SentimentNegative]))
	if s.ConflictDetected {
		out.paragraphs = append(out.paragraphs, "Potential conflict detected during the discussion.")
	}
	out.bullets = append(out.bullets, s.KeyMoments...)
	return out
}

func actionSection(doc report.Document) section {
	items := doc.ActionItems.Items
	if len(items) == 0 {
		items = doc.Summary.ActionItems
	}
	rows := [][]string{{"Task", "Owner", "Deadline", "Priority"}}
	for _, it := range items {
		rows = append(rows, []string{it.Task, orTBD(it.Owner), orTBD(it.Deadline), orTBD(it.Priority)})
	}
	return section{heading: "ACTION ITEMS", rows: rows, empty: "No action items identified during this meeting."}
}

func transcriptSection(doc report.Document) section {
	s := section{heading: "TRANSCRIPT", empty: "No transcript available."}
	for _, seg := range doc.Transcript.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		line := report.FormatTimestamp(seg.Start) + " "
		if seg.Speaker != "" {
			line += seg.Speaker + ": "
		}
		s.paragraphs = append(s.paragraphs, line+text)
	}
	if len(s.paragraphs) == 0 {
		if text := strings.TrimSpace(doc.Transcript.Text); text != "" {
			s.paragraphs = []string{text}
		}
	}
	return s
}

func confidenceLine(score float64) string {
	return fmt.Sprintf("Summary Confidence Score: %d%%", int(math.Round(score*100)))
}

func orTBD(s string) string {
	if strings.TrimSpace(s) == "" {
		return "TBD"
	}
	return s
}
