package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/foxseedlab/meetbot/internal/analysis"
)

type MetricsComputer struct{}

func NewMetricsComputer() analysis.AnalyticsComputer {
	return &MetricsComputer{}
}

func (c *MetricsComputer) ComputeAnalytics(ctx context.Context, in analysis.AnalyticsInput) (analysis.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Metrics{}, err
	}
	m := analysis.EmptyMetrics()
	m.DurationSeconds = in.Transcript.DurationSeconds
	m.TotalWords = in.Transcript.WordCount()
	if m.DurationSeconds > 0 {
		m.WordsPerMinute = round1(float64(m.TotalWords) / m.DurationSeconds * 60)
	}

	m.NumSpeakers = in.Diarization.NumSpeakers
	for speaker, stat := range in.Diarization.SpeakerStats {
		pct := 0.0
		if m.DurationSeconds > 0 {
			pct = round1(stat.TotalTime / m.DurationSeconds * 100)
		}
		m.Speakers = append(m.Speakers, analysis.SpeakerMetric{
			Speaker:    speaker,
			TotalTime:  round1(stat.TotalTime),
			Segments:   stat.SegmentCount,
			Percentage: pct,
		})
	}
	sort.Slice(m.Speakers, func(i, j int) bool {
		if m.Speakers[i].TotalTime != m.Speakers[j].TotalTime {
			return m.Speakers[i].TotalTime > m.Speakers[j].TotalTime
		}
		return m.Speakers[i].Speaker < m.Speakers[j].Speaker
	})
	if len(m.Speakers) > 0 {
		m.MostActiveSpeaker = m.Speakers[0].Speaker
	}
	m.ParticipationBalance = participationBalance(m.Speakers)

	m.NumTopics = in.Topics.Total
	m.NumDecisions = len(in.Summary.Decisions)
	m.NumActionItems = in.ActionItems.Total
	if in.Sentiment.Overall != "" {
		m.OverallSentiment = in.Sentiment.Overall
		m.SentimentConfidence = in.Sentiment.Confidence
		m.ConflictDetected = in.Sentiment.ConflictDetected
		m.AgreementLevel = in.Sentiment.AgreementLevel
	}
	m.SummaryConfidence = in.Summary.Confidence
	return m, nil
}

// participationBalance is 1 when everyone spoke equally and approaches 0
// when one speaker dominated.
func participationBalance(speakers []analysis.SpeakerMetric) float64 {
	if len(speakers) < 2 {
		return 1
	}
	ideal := 100 / float64(len(speakers))
	deviation := 0.0
	for _, s := range speakers {
		deviation += math.Abs(s.Percentage - ideal)
	}
	maxDeviation := 2 * (100 - ideal)
	if maxDeviation <= 0 {
		return 1
	}
	return round2(max(0, 1-deviation/maxDeviation))
}
