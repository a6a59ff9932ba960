package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/llm"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

const (
	minTopicTranscriptChars = 100
	maxTopicExcerptChars    = 500
	topicPromptChars        = 6000
)

const topicPrompt = `Analyze this meeting transcript and identify up to %d distinct topics discussed.

Return JSON only, as an array:
[{"title": "3-6 word title", "start_percent": 0, "end_percent": 100, "summary": "1-2 sentences", "key_points": ["..."]}]

Transcript:
%s`

// TopicSegmenter asks the model for topics and falls back to splitting on
// paragraph breaks when the model is unavailable or answers badly.
type TopicSegmenter struct {
	llm       llm.Generator
	maxTopics int
}

func NewTopicSegmenter(generator llm.Generator, maxTopics int) analysis.TopicSegmenter {
	if maxTopics <= 0 {
		maxTopics = 10
	}
	return &TopicSegmenter{llm: generator, maxTopics: maxTopics}
}

type topicJSON struct {
	Title        string   `json:"title"`
	StartPercent float64  `json:"start_percent"`
	EndPercent   float64  `json:"end_percent"`
	Summary      string   `json:"summary"`
	KeyPoints    []string `json:"key_points"`
}

func (s *TopicSegmenter) SegmentTopics(ctx context.Context, transcript transcriber.Transcript) (analysis.Topics, error) {
	text := strings.TrimSpace(transcript.Text)
	if len(text) < minTopicTranscriptChars {
		return analysis.EmptyTopics(), nil
	}
	topics, err := s.fromModel(ctx, text, transcriptEnd(transcript))
	if err != nil {
		if ctx.Err() != nil {
			return analysis.Topics{}, ctx.Err()
		}
		if !errors.Is(err, llm.ErrUnavailable) {
			slog.Warn("model topic segmentation failed; using paragraph heuristic", "error", err)
		}
		topics = s.heuristic(text)
	}
	if len(topics) > s.maxTopics {
		topics = topics[:s.maxTopics]
	}
	return analysis.Topics{Segments: topics, Total: len(topics)}, nil
}

func (s *TopicSegmenter) fromModel(ctx context.Context, text string, duration float64) ([]analysis.Topic, error) {
	out, err := s.llm.Generate(ctx, fmt.Sprintf(topicPrompt, s.maxTopics, truncateChars(text, topicPromptChars)))
	if err != nil {
		return nil, err
	}
	var raw []topicJSON
	if err := json.Unmarshal([]byte(llm.StripCodeFence(out)), &raw); err != nil {
		return nil, fmt.Errorf("parse topics json: %w", err)
	}
	runes := []rune(text)
	topics := make([]analysis.Topic, 0, len(raw))
	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		start := clampPercent(r.StartPercent)
		end := clampPercent(r.EndPercent)
		if end < start {
			end = start
		}
		from := int(start / 100 * float64(len(runes)))
		to := int(end / 100 * float64(len(runes)))
		keyPoints := r.KeyPoints
		if keyPoints == nil {
			keyPoints = []string{}
		}
		topics = append(topics, analysis.Topic{
			Title:             title,
			StartTime:         start / 100 * duration,
			EndTime:           end / 100 * duration,
			Summary:           strings.TrimSpace(r.Summary),
			KeyPoints:         keyPoints,
			TranscriptExcerpt: truncateChars(string(runes[from:to]), maxTopicExcerptChars),
		})
	}
	if len(topics) == 0 {
		return nil, errors.New("model returned no topics")
	}
	return topics, nil
}

func (s *TopicSegmenter) heuristic(text string) []analysis.Topic {
	paragraphs := strings.Split(text, "\n\n")
	if len(paragraphs) < 2 {
		return []analysis.Topic{{
			Title:             "Meeting Discussion",
			Summary:           "Full meeting transcript",
			KeyPoints:         []string{},
			TranscriptExcerpt: truncateChars(text, maxTopicExcerptChars),
		}}
	}
	size := max(1, len(paragraphs)/s.maxTopics)
	var topics []analysis.Topic
	for i := 0; i < len(paragraphs); i += size {
		chunk := strings.Join(paragraphs[i:min(i+size, len(paragraphs))], "\n\n")
		words := strings.Fields(chunk)
		title := strings.Join(words[:min(5, len(words))], " ")
		if len(words) > 5 {
			title += "..."
		}
		topics = append(topics, analysis.Topic{
			Title:             fmt.Sprintf("Topic %d: %s", len(topics)+1, title),
			KeyPoints:         []string{},
			TranscriptExcerpt: truncateChars(chunk, maxTopicExcerptChars),
		})
	}
	return topics
}

func transcriptEnd(t transcriber.Transcript) float64 {
	end := t.DurationSeconds
	for _, seg := range t.Segments {
		end = max(end, seg.End)
	}
	return end
}

func clampPercent(p float64) float64 {
	return min(max(p, 0), 100)
}
