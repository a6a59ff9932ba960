package memory

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/llm"
	"github.com/foxseedlab/meetbot/internal/memory"
)

type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.answer, g.err
}

func newTestIndex(t *testing.T, gen llm.Generator) *SQLiteIndex {
	t.Helper()
	idx, err := NewSQLiteIndex(filepath.Join(t.TempDir(), "nested", "memory.db"), gen)
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func storeSample(t *testing.T, idx *SQLiteIndex, id int64, date time.Time, transcript string, summary analysis.Summary) int {
	t.Helper()
	n, err := idx.StoreMeeting(context.Background(), memory.MeetingContent{
		MeetingID:   id,
		Platform:    "discord",
		MeetingDate: date,
		Transcript:  transcript,
		Summary:     summary,
	})
	if err != nil {
		t.Fatalf("failed to store meeting %d: %v", id, err)
	}
	return n
}

func TestSQLiteIndex_StoreAndSearch(t *testing.T) {
	idx := newTestIndex(t, &fakeGenerator{})
	day := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	n := storeSample(t, idx, 1, day, "we discussed the billing migration and the budget", analysis.Summary{
		ExecutiveSummary: "Billing migration planning",
		Decisions:        []string{"Migrate billing in April"},
	})
	if n != 3 {
		t.Fatalf("expected 3 documents, got %d", n)
	}
	storeSample(t, idx, 2, day.AddDate(0, 0, 1), "hiring plan for the support team", analysis.Summary{})

	hits, err := idx.Search(context.Background(), "billing budget", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %+v", hits)
	}
	if hits[0].DocumentID != "meeting_1_transcript_0" {
		t.Fatalf("expected the transcript chunk with both terms first, got %+v", hits[0])
	}
	for i, h := range hits {
		if h.Score <= 0 || h.Score >= 1 {
			t.Fatalf("score out of range for %s: %v", h.DocumentID, h.Score)
		}
		if i > 0 && h.Score > hits[i-1].Score {
			t.Fatalf("hits not ordered by score: %+v", hits)
		}
	}
	if !hits[0].MeetingDate.Equal(day) || hits[0].Platform != "discord" {
		t.Fatalf("unexpected metadata: %+v", hits[0])
	}

	none, err := idx.Search(context.Background(), "the of and", 10)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no hits for stop words, got %v %v", none, err)
	}
}

func TestSQLiteIndex_StoreReplacesPreviousDocuments(t *testing.T) {
	idx := newTestIndex(t, &fakeGenerator{})
	day := time.Now().UTC()
	storeSample(t, idx, 1, day, strings.Repeat("word ", 1200), analysis.Summary{})
	storeSample(t, idx, 1, day, "short now", analysis.Summary{})

	history, err := idx.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 || history[0].Documents != 1 {
		t.Fatalf("expected one document after restore, got %+v", history)
	}
}

func TestSQLiteIndex_DeleteAndHistory(t *testing.T) {
	idx := newTestIndex(t, &fakeGenerator{})
	day := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	storeSample(t, idx, 1, day, "first meeting", analysis.Summary{})
	storeSample(t, idx, 2, day.AddDate(0, 0, 1), "second meeting", analysis.Summary{})

	history, err := idx.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 || history[0].MeetingID != 2 {
		t.Fatalf("expected newest meeting first, got %+v", history)
	}

	if err := idx.DeleteMeeting(context.Background(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	history, _ = idx.History(context.Background(), 10)
	if len(history) != 1 || history[0].MeetingID != 1 {
		t.Fatalf("expected meeting 2 removed, got %+v", history)
	}
}

func TestSQLiteIndex_Ask(t *testing.T) {
	gen := &fakeGenerator{answer: "  Billing moves in April.  "}
	idx := newTestIndex(t, gen)
	storeSample(t, idx, 1, time.Now(), "billing migration happens in april", analysis.Summary{})

	answer, err := idx.Ask(context.Background(), "When is the billing migration?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Answer != "Billing moves in April." || len(answer.Sources) != 1 {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	if !strings.Contains(gen.prompts[0], "billing migration happens in april") {
		t.Fatalf("expected excerpts in prompt, got %q", gen.prompts[0])
	}

	answer, err = idx.Ask(context.Background(), "quarterly offsite venue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Answer != memory.NoRelevantAnswer {
		t.Fatalf("expected no relevant answer, got %q", answer.Answer)
	}
}

func TestSQLiteIndex_AskWithoutModel(t *testing.T) {
	idx := newTestIndex(t, &fakeGenerator{err: llm.ErrUnavailable})
	storeSample(t, idx, 1, time.Now(), "billing migration happens in april", analysis.Summary{})

	answer, err := idx.Ask(context.Background(), "billing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(answer.Answer, "billing migration happens in april") {
		t.Fatalf("expected excerpts as the answer, got %q", answer.Answer)
	}
}

func TestSQLiteIndex_SearchRanksRareTermsHigher(t *testing.T) {
	idx := newTestIndex(t, &fakeGenerator{})
	day := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	storeSample(t, idx, 1, day, "status update status update status update", analysis.Summary{})
	storeSample(t, idx, 2, day, "status update on the kubernetes upgrade", analysis.Summary{})
	storeSample(t, idx, 3, day, "status update for marketing", analysis.Summary{})

	hits, err := idx.Search(context.Background(), "kubernetes status", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected the limit to apply, got %+v", hits)
	}
	if hits[0].MeetingID != 2 {
		t.Fatalf("expected the meeting mentioning kubernetes first, got %+v", hits[0])
	}
}

func TestSQLiteIndex_SearchIgnoresQuerySyntax(t *testing.T) {
	idx := newTestIndex(t, &fakeGenerator{})
	storeSample(t, idx, 1, time.Now(), "the follow-up is due NEAR friday", analysis.Summary{})

	hits, err := idx.Search(context.Background(), `follow-up "near" AND friday*`, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected one hit, got %+v", hits)
	}
}

func TestScore(t *testing.T) {
	if score(0) != 0 || score(1) != 0 {
		t.Fatal("non-matching ranks must score 0")
	}
	if got := score(-1); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if score(-4) <= score(-1) {
		t.Fatal("better bm25 ranks must score higher")
	}
}

func TestQueryTerms(t *testing.T) {
	got := queryTerms("What did we decide about the Q3 budget, budget?")
	want := []string{"decide", "about", "q3", "budget"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
