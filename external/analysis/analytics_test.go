package analysis

import (
	"context"
	"testing"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

func TestComputeAnalytics(t *testing.T) {
	in := analysis.AnalyticsInput{
		Transcript: transcriber.Transcript{Text: repeatWords("w", 300), DurationSeconds: 120},
		Diarization: analysis.Diarization{
			NumSpeakers: 2,
			SpeakerStats: map[string]analysis.SpeakerStat{
				"Ana": {TotalTime: 90, SegmentCount: 4},
				"Ben": {TotalTime: 30, SegmentCount: 2},
			},
		},
		Topics:      analysis.Topics{Total: 3},
		Sentiment:   analysis.Sentiment{Overall: analysis.SentimentPositive, Confidence: 0.8, AgreementLevel: 0.75},
		Summary:     analysis.Summary{Decisions: []string{"a", "b"}, Confidence: 0.9},
		ActionItems: analysis.ActionItems{Total: 4},
	}
	m, err := NewMetricsComputer().ComputeAnalytics(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.TotalWords != 300 || m.WordsPerMinute != 150 {
		t.Fatalf("unexpected word metrics: %+v", m)
	}
	if m.MostActiveSpeaker != "Ana" || m.Speakers[0].Percentage != 75 || m.Speakers[1].Percentage != 25 {
		t.Fatalf("unexpected speaker metrics: %+v", m.Speakers)
	}
	// ideal 50, deviation 50, max deviation 100
	if m.ParticipationBalance != 0.5 {
		t.Fatalf("unexpected balance %v", m.ParticipationBalance)
	}
	if m.NumTopics != 3 || m.NumDecisions != 2 || m.NumActionItems != 4 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if m.OverallSentiment != analysis.SentimentPositive || m.SummaryConfidence != 0.9 || m.AgreementLevel != 0.75 {
		t.Fatalf("unexpected carried values: %+v", m)
	}
}

func TestComputeAnalytics_Defaults(t *testing.T) {
	m, err := NewMetricsComputer().ComputeAnalytics(context.Background(), analysis.AnalyticsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ParticipationBalance != 1 || m.OverallSentiment != analysis.SentimentNeutral || m.WordsPerMinute != 0 {
		t.Fatalf("unexpected defaults: %+v", m)
	}
}
