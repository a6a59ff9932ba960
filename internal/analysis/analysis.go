package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/meetbot/internal/recording"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

const UnknownSpeaker = "Unknown"

// ErrNotApplicable means the input carries nothing the provider can work
// with. The stage is skipped rather than degraded.
var ErrNotApplicable = errors.New("stage not applicable")

type SpeakerSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text,omitempty"`
}

type SpeakerStat struct {
	TotalTime    float64 `json:"total_time"`
	SegmentCount int     `json:"segment_count"`
	Percentage   float64 `json:"percentage"`
}

type Diarization struct {
	Segments     []SpeakerSegment       `json:"segments"`
	NumSpeakers  int                    `json:"num_speakers"`
	SpeakerStats map[string]SpeakerStat `json:"speaker_stats"`
}

type Topic struct {
	Title             string   `json:"title"`
	StartTime         float64  `json:"start_time"`
	EndTime           float64  `json:"end_time"`
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"key_points"`
	TranscriptExcerpt string   `json:"transcript_excerpt"`
}

type Topics struct {
	Segments []Topic `json:"segments"`
	Total    int     `json:"total_topics"`
}

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

type Sentiment struct {
	Overall          string             `json:"overall_sentiment"`
	Confidence       float64            `json:"confidence"`
	Distribution     map[string]float64 `json:"distribution"`
	Tones            map[string]int     `json:"tones"`
	ConflictDetected bool               `json:"conflict_detected"`
	AgreementLevel   float64            `json:"agreement_level"`
	KeyMoments       []string           `json:"key_moments"`
	SpeakerSentiment map[string]string  `json:"speaker_sentiment"`
}

type ActionItem struct {
	ID       int    `json:"id"`
	Task     string `json:"task"`
	Owner    string `json:"owner,omitempty"`
	Deadline string `json:"deadline,omitempty"`
	Priority string `json:"priority"`
	Context  string `json:"context,omitempty"`
}

type Summary struct {
	ExecutiveSummary string       `json:"executive_summary"`
	KeyPoints        []string     `json:"key_discussion_points"`
	Decisions        []string     `json:"decisions_made"`
	ActionItems      []ActionItem `json:"action_items"`
	Confidence       float64      `json:"confidence_score"`
}

type ActionItems struct {
	Items         []ActionItem `json:"items"`
	Total         int          `json:"total"`
	WithOwners    int          `json:"with_owners"`
	WithDeadlines int          `json:"with_deadlines"`
}

type SpeakerMetric struct {
	Speaker    string  `json:"speaker"`
	TotalTime  float64 `json:"total_time"`
	Segments   int     `json:"segments"`
	Percentage float64 `json:"percentage"`
}

type Metrics struct {
	TotalWords           int             `json:"total_words"`
	DurationSeconds      float64         `json:"duration_seconds"`
	WordsPerMinute       float64         `json:"words_per_minute"`
	NumSpeakers          int             `json:"num_speakers"`
	Speakers             []SpeakerMetric `json:"speakers"`
	MostActiveSpeaker    string          `json:"most_active_speaker"`
	ParticipationBalance float64         `json:"participation_balance"`
	NumTopics            int             `json:"num_topics"`
	NumDecisions         int             `json:"num_decisions"`
	NumActionItems       int             `json:"num_action_items"`
	OverallSentiment     string          `json:"overall_sentiment"`
	SentimentConfidence  float64         `json:"sentiment_confidence"`
	ConflictDetected     bool            `json:"conflict_detected"`
	AgreementLevel       float64         `json:"agreement_level"`
	SummaryConfidence    float64         `json:"summary_confidence"`
}

type FollowupEmail struct {
	Subject             string `json:"subject"`
	Body                string `json:"body"`
	BodyHTML            string `json:"body_html"`
	Recipient           string `json:"recipient"`
	Sender              string `json:"sender"`
	ActionItemsIncluded int    `json:"action_items_included"`
}

func EmptyDiarization() Diarization {
	return Diarization{Segments: []SpeakerSegment{}, SpeakerStats: map[string]SpeakerStat{}}
}

func EmptyTopics() Topics {
	return Topics{Segments: []Topic{}}
}

func EmptySentiment() Sentiment {
	return Sentiment{
		Overall:          SentimentNeutral,
		Distribution:     map[string]float64{SentimentPositive: 0, SentimentNeutral: 100, SentimentNegative: 0},
		Tones:            map[string]int{},
		AgreementLevel:   0.5,
		KeyMoments:       []string{},
		SpeakerSentiment: map[string]string{},
	}
}

func EmptySummary() Summary {
	return Summary{KeyPoints: []string{}, Decisions: []string{}, ActionItems: []ActionItem{}}
}

func EmptyActionItems() ActionItems {
	return ActionItems{Items: []ActionItem{}}
}

func EmptyMetrics() Metrics {
	return Metrics{Speakers: []SpeakerMetric{}, OverallSentiment: SentimentNeutral, ParticipationBalance: 1, AgreementLevel: 0.5}
}

func EmptyFollowup() FollowupEmail {
	return FollowupEmail{}
}

type AnalyticsInput struct {
	Transcript  transcriber.Transcript
	Diarization Diarization
	Topics      Topics
	Sentiment   Sentiment
	Summary     Summary
	ActionItems ActionItems
}

type FollowupInput struct {
	Title       string
	Platform    string
	MeetingDate time.Time
	Recipient   string
	Summary     Summary
	ActionItems ActionItems
	Topics      Topics
}

type Diarizer interface {
	Diarize(ctx context.Context, audio recording.AudioHandle, transcript transcriber.Transcript) (Diarization, error)
}

type TopicSegmenter interface {
	SegmentTopics(ctx context.Context, transcript transcriber.Transcript) (Topics, error)
}

type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, transcript transcriber.Transcript, diarization Diarization) (Sentiment, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, transcript transcriber.Transcript) (Summary, error)
}

type ActionItemExtractor interface {
	ExtractActionItems(ctx context.Context, transcript transcriber.Transcript, summary Summary) (ActionItems, error)
}

type AnalyticsComputer interface {
	ComputeAnalytics(ctx context.Context, input AnalyticsInput) (Metrics, error)
}

type FollowupWriter interface {
	GenerateFollowup(ctx context.Context, input FollowupInput) (FollowupEmail, error)
}
