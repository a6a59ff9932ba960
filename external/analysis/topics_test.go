package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/foxseedlab/meetbot/internal/llm"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

func longTranscript(paragraphs int) string {
	parts := make([]string, paragraphs)
	for i := range parts {
		parts[i] = "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu nu xi omicron pi rho sigma tau upsilon phi chi psi omega"
	}
	return strings.Join(parts, "\n\n")
}

func TestTopicSegmenter_ShortTranscript(t *testing.T) {
	gen := &fakeGenerator{}
	got, err := NewTopicSegmenter(gen, 10).SegmentTopics(context.Background(), transcriber.Transcript{Text: "too short"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Total != 0 || len(gen.prompts) != 0 {
		t.Fatalf("expected no topics and no model call, got %+v", got)
	}
}

func TestTopicSegmenter_ModelJSON(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`[
		{"title": "Roadmap", "start_percent": 0, "end_percent": 50, "summary": "Q3 plans"},
		{"title": "Hiring", "start_percent": 50, "end_percent": 100, "summary": "Support team"}
	]`}}
	tr := transcriber.Transcript{Text: longTranscript(2), DurationSeconds: 600}
	got, err := NewTopicSegmenter(gen, 10).SegmentTopics(context.Background(), tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Total != 2 || got.Segments[1].StartTime != 300 || got.Segments[1].EndTime != 600 {
		t.Fatalf("unexpected topics: %+v", got.Segments)
	}
	if got.Segments[0].TranscriptExcerpt == "" || len(got.Segments[0].TranscriptExcerpt) > maxTopicExcerptChars {
		t.Fatalf("unexpected excerpt length %d", len(got.Segments[0].TranscriptExcerpt))
	}
}

func TestTopicSegmenter_HeuristicFallback(t *testing.T) {
	tests := []struct {
		name       string
		gen        *fakeGenerator
		paragraphs int
		maxTopics  int
		want       int
		firstTitle string
	}{
		{name: "no model single paragraph", gen: &fakeGenerator{err: llm.ErrUnavailable}, paragraphs: 1, maxTopics: 10, want: 1, firstTitle: "Meeting Discussion"},
		{name: "bad json", gen: &fakeGenerator{responses: []string{"nope"}}, paragraphs: 4, maxTopics: 10, want: 4, firstTitle: "Topic 1: alpha beta gamma delta epsilon..."},
		{name: "grouped paragraphs", gen: &fakeGenerator{err: errors.New("boom")}, paragraphs: 6, maxTopics: 3, want: 3, firstTitle: "Topic 1: alpha beta gamma delta epsilon..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTopicSegmenter(tt.gen, tt.maxTopics).SegmentTopics(context.Background(), transcriber.Transcript{Text: longTranscript(tt.paragraphs)})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Total != tt.want {
				t.Fatalf("expected %d topics, got %d", tt.want, got.Total)
			}
			if got.Segments[0].Title != tt.firstTitle {
				t.Fatalf("unexpected title %q", got.Segments[0].Title)
			}
		})
	}
}
