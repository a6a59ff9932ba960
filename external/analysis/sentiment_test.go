package analysis

import (
	"context"
	"testing"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

func TestKeywordSentiment_Positive(t *testing.T) {
	tr := transcriber.Transcript{Text: "This is great progress. I agree, sounds good. The plan looks excellent and successful."}
	s, err := NewKeywordSentimentAnalyzer().AnalyzeSentiment(context.Background(), tr, analysis.Diarization{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Overall != analysis.SentimentPositive {
		t.Fatalf("expected positive, got %q (%+v)", s.Overall, s.Distribution)
	}
	if s.ConflictDetected {
		t.Fatal("did not expect conflict")
	}
	if s.AgreementLevel != 1 {
		t.Fatalf("expected full agreement, got %v", s.AgreementLevel)
	}
	if s.Tones[ToneAgreement] == 0 {
		t.Fatalf("expected agreement tone, got %v", s.Tones)
	}
}

func TestKeywordSentiment_ConflictAndSpeakers(t *testing.T) {
	tr := transcriber.Transcript{
		Text: "I disagree with this. That won't work, the risk is a problem. Fine.",
		Segments: []transcriber.Segment{
			{Start: 0, End: 2, Text: "I disagree with this."},
			{Start: 2, End: 5, Text: "That won't work, the risk is a problem."},
			{Start: 5, End: 6, Text: "Fine."},
		},
	}
	d := analysis.Diarization{Segments: []analysis.SpeakerSegment{
		{Speaker: "Ana", Start: 0, End: 5},
		{Speaker: "Ben", Start: 5, End: 6},
	}}
	s, err := NewKeywordSentimentAnalyzer().AnalyzeSentiment(context.Background(), tr, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.ConflictDetected {
		t.Fatal("expected conflict")
	}
	if s.AgreementLevel != 0 {
		t.Fatalf("expected agreement 0, got %v", s.AgreementLevel)
	}
	if s.SpeakerSentiment["Ana"] != analysis.SentimentNegative || s.SpeakerSentiment["Ben"] != analysis.SentimentNeutral {
		t.Fatalf("unexpected speaker sentiment: %v", s.SpeakerSentiment)
	}
	if len(s.KeyMoments) == 0 {
		t.Fatal("expected key moments")
	}
	total := s.Distribution[analysis.SentimentPositive] + s.Distribution[analysis.SentimentNeutral] + s.Distribution[analysis.SentimentNegative]
	if total < 99.9 || total > 100.1 {
		t.Fatalf("distribution should sum to 100, got %v", total)
	}
}

func TestKeywordSentiment_EmptyTranscript(t *testing.T) {
	s, err := NewKeywordSentimentAnalyzer().AnalyzeSentiment(context.Background(), transcriber.Transcript{}, analysis.Diarization{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Overall != analysis.SentimentNeutral || s.Confidence != 0 || s.AgreementLevel != 0.5 {
		t.Fatalf("expected neutral default, got %+v", s)
	}
}
