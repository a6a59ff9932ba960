package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

type Document struct {
	SessionID       int64
	Title           string
	MeetingURL      string
	Platform        string
	StartedAt       time.Time
	EndedAt         time.Time
	Location        *time.Location
	DurationSeconds float64
	Transcript      transcriber.Transcript
	Summary         analysis.Summary
	Diarization     analysis.Diarization
	Topics          analysis.Topics
	Sentiment       analysis.Sentiment
	ActionItems     analysis.ActionItems
	Metrics         analysis.Metrics
}

type Renderer interface {
	Render(ctx context.Context, doc Document) (string, error)
}

func FormatDuration(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatTimestamp renders an offset in seconds as [HH:MM:SS].
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("[%02d:%02d:%02d]", total/3600, (total%3600)/60, total%60)
}

func SafeLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// PlatformDisplayName turns a platform key such as google_meet into Google Meet.
func PlatformDisplayName(platform string) string {
	if platform == "" {
		return "Unknown"
	}
	parts := strings.Split(platform, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
