package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
)

func TestTemplateFollowupWriter(t *testing.T) {
	in := analysis.FollowupInput{
		Title:       "Weekly Sync",
		MeetingDate: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
		Recipient:   "team@example.com",
		Summary: analysis.Summary{
			ExecutiveSummary: "We agreed on <priorities>.",
			KeyPoints:        []string{"one", "two", "three", "four", "five", "six"},
			Decisions:        []string{"ship it"},
		},
		ActionItems: analysis.ActionItems{Items: []analysis.ActionItem{
			{Task: "Write spec", Owner: "Ana"},
			{Task: "Review budget", Deadline: "2026-03-06"},
		}},
	}
	email, err := NewTemplateFollowupWriter("Sunny AI", "Acme").GenerateFollowup(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.Subject != "Follow-up: Weekly Sync - March 04, 2026" {
		t.Fatalf("unexpected subject %q", email.Subject)
	}
	for _, want := range []string{"SUMMARY", "KEY DISCUSSION POINTS", "DECISIONS MADE", "ACTION ITEMS", "Owner: Ana | Due: TBD", "Owner: TBD | Due: 2026-03-06", "Acme"} {
		if !strings.Contains(email.Body, want) {
			t.Fatalf("expected body to contain %q:\n%s", want, email.Body)
		}
	}
	if strings.Contains(email.Body, "six") {
		t.Fatal("expected key points capped at five")
	}
	if !strings.Contains(email.BodyHTML, "<h3>Action Items</h3>") || !strings.Contains(email.BodyHTML, "&lt;priorities&gt;") {
		t.Fatalf("unexpected html body:\n%s", email.BodyHTML)
	}
	if email.ActionItemsIncluded != 2 || email.Recipient != "team@example.com" {
		t.Fatalf("unexpected metadata: %+v", email)
	}
}
