package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

func newTestExtractor() *PatternActionItemExtractor {
	e := NewPatternActionItemExtractor().(*PatternActionItemExtractor)
	// Wednesday
	e.now = func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }
	return e
}

func TestExtractActionItems_Patterns(t *testing.T) {
	tr := transcriber.Transcript{Text: "Ana will send the budget draft by tomorrow. " +
		"We should fix the login outage asap! " +
		"Nice weather. " +
		"Todo: ok. " +
		"Ben should update the docs when possible."}

	got, err := newTestExtractor().ExtractActionItems(context.Background(), tr, analysis.Summary{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Total != 3 {
		t.Fatalf("expected 3 items, got %+v", got.Items)
	}
	first := got.Items[0]
	if first.Owner != "Ana" || first.Deadline != "2026-03-05" || first.Priority != PriorityMedium || first.ID != 1 {
		t.Fatalf("unexpected first item: %+v", first)
	}
	second := got.Items[1]
	if second.Owner != "" || second.Deadline != "ASAP" || second.Priority != PriorityHigh {
		t.Fatalf("unexpected second item: %+v", second)
	}
	if got.Items[2].Priority != PriorityLow || got.Items[2].Owner != "Ben" {
		t.Fatalf("unexpected third item: %+v", got.Items[2])
	}
	if got.WithOwners != 2 || got.WithDeadlines != 2 {
		t.Fatalf("unexpected counters: owners=%d deadlines=%d", got.WithOwners, got.WithDeadlines)
	}
}

func TestExtractActionItems_MergesAndDedupesSummaryItems(t *testing.T) {
	tr := transcriber.Transcript{Text: "Ana will send the budget draft"}
	summary := analysis.Summary{ActionItems: []analysis.ActionItem{{Task: "Ana will send the budget draft to finance", Owner: "Ana"}}}

	got, err := newTestExtractor().ExtractActionItems(context.Background(), tr, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Total != 1 || got.Items[0].Priority != PriorityMedium {
		t.Fatalf("expected the summary item only, got %+v", got.Items)
	}
}

func TestParseDeadline_EndOf(t *testing.T) {
	e := newTestExtractor()
	if got := e.parseDeadline("by end of week", "end_of"); got != "2026-03-06" {
		t.Fatalf("expected Friday, got %s", got)
	}
	if got := e.parseDeadline("by end of month", "end_of"); got != "2026-03-31" {
		t.Fatalf("expected last day of month, got %s", got)
	}
	if got := e.parseDeadline("by 3/14", "date"); got != "by 3/14" {
		t.Fatalf("expected raw match, got %s", got)
	}
}
