package session

import (
	"context"
	"errors"
	"strings"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/recording"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

// Enricher runs the post-recording stages in dependency order. Only
// transcription can fail the session.
type Enricher struct {
	transcriber transcriber.Transcriber
	diarizer    analysis.Diarizer
	topics      analysis.TopicSegmenter
	sentiment   analysis.SentimentAnalyzer
	summarizer  analysis.Summarizer
	actions     analysis.ActionItemExtractor
	analytics   analysis.AnalyticsComputer
	features    config.Features
}

func (e *Enricher) Run(ctx context.Context, s *Session, audio recording.AudioHandle) error {
	id := s.id

	s.enterPhase(PhaseTranscribing)
	tr, err := runHard(ctx, id, string(PhaseTranscribing), func(ctx context.Context) (transcriber.Transcript, error) {
		return e.transcriber.Transcribe(ctx, audio)
	})
	if err == nil && strings.TrimSpace(tr.Text) == "" {
		err = transcriber.ErrEmptyTranscript
	}
	if err != nil {
		return newFailure(FailureTranscription, err)
	}
	if tr.DurationSeconds <= 0 {
		tr.DurationSeconds = audio.DurationSeconds()
	}
	s.update(func(sn *Snapshot) {
		sn.Outputs.Transcript = &tr
		if sn.DurationSeconds <= 0 {
			sn.DurationSeconds = tr.DurationSeconds
		}
	})

	s.enterPhase(PhaseDiarizing)
	diarization := runSoft(ctx, id, PhaseDiarizing, e.features.Diarization && e.diarizer != nil, analysis.EmptyDiarization(),
		func(ctx context.Context) (analysis.Diarization, error) {
			return e.diarizer.Diarize(ctx, audio, tr)
		})
	recordStage(s, PhaseDiarizing, diarization, func(o *Outputs) { o.Diarization = diarization })

	s.enterPhase(PhaseSegmentingTopics)
	topics := runSoft(ctx, id, PhaseSegmentingTopics, e.features.Topics && e.topics != nil, analysis.EmptyTopics(),
		func(ctx context.Context) (analysis.Topics, error) {
			return e.topics.SegmentTopics(ctx, tr)
		})
	recordStage(s, PhaseSegmentingTopics, topics, func(o *Outputs) { o.Topics = topics })

	s.enterPhase(PhaseAnalyzingSentiment)
	sentiment := runSoft(ctx, id, PhaseAnalyzingSentiment, e.features.Sentiment && e.sentiment != nil, analysis.EmptySentiment(),
		func(ctx context.Context) (analysis.Sentiment, error) {
			return e.sentiment.AnalyzeSentiment(ctx, tr, diarization.Value)
		})
	recordStage(s, PhaseAnalyzingSentiment, sentiment, func(o *Outputs) { o.Sentiment = sentiment })

	s.enterPhase(PhaseSummarizing)
	summary := runSoft(ctx, id, PhaseSummarizing, e.summarizer != nil, analysis.EmptySummary(),
		func(ctx context.Context) (analysis.Summary, error) {
			return e.summarizer.Summarize(ctx, tr)
		})
	recordStage(s, PhaseSummarizing, summary, func(o *Outputs) { o.Summary = summary })

	s.enterPhase(PhaseExtractingActions)
	actions := runSoft(ctx, id, PhaseExtractingActions, e.features.ActionItems && e.actions != nil, analysis.EmptyActionItems(),
		func(ctx context.Context) (analysis.ActionItems, error) {
			return e.actions.ExtractActionItems(ctx, tr, summary.Value)
		})
	recordStage(s, PhaseExtractingActions, actions, func(o *Outputs) { o.ActionItems = actions })

	s.enterPhase(PhaseGeneratingAnalytics)
	metrics := runSoft(ctx, id, PhaseGeneratingAnalytics, e.features.Analytics && e.analytics != nil, analysis.EmptyMetrics(),
		func(ctx context.Context) (analysis.Metrics, error) {
			return e.analytics.ComputeAnalytics(ctx, analysis.AnalyticsInput{
				Transcript:  tr,
				Diarization: diarization.Value,
				Topics:      topics.Value,
				Sentiment:   sentiment.Value,
				Summary:     summary.Value,
				ActionItems: actions.Value,
			})
		})
	recordStage(s, PhaseGeneratingAnalytics, metrics, func(o *Outputs) { o.Analytics = metrics })
	return nil
}

// recordStage stores a fail-soft result and notes a degraded stage as a
// recovered step error.
func recordStage[T any](s *Session, stage Phase, res *StageResult[T], set func(*Outputs)) {
	s.update(func(sn *Snapshot) {
		set(&sn.Outputs)
		if res.Status == StageDegraded {
			f := newFailure(FailureEnrichment, errors.New(res.Error))
			sn.StepErrors = append(sn.StepErrors, StepError{Step: string(stage), Kind: f.Kind, Message: f.Error()})
		}
	})
}
