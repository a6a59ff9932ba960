package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/llm"
	"github.com/foxseedlab/meetbot/internal/memory"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

const (
	summaryChunkWords   = 4000
	summaryChunkOverlap = 200
	maxSummaryWords     = 200
	maxKeyPoints        = 10
	// Prompts carry at most this many characters of transcript.
	promptTranscriptChars = 8000
)

var ErrEmptySummary = errors.New("model returned an empty summary")

const summaryPrompt = `You are a meeting assistant. Summarize the meeting transcript below.

Return JSON only, with this shape:
{
  "executive_summary": "at most 200 words, factual, professional",
  "key_discussion_points": ["5-10 single-sentence points"],
  "decisions_made": ["explicit decisions only"],
  "action_items": [{"task": "...", "owner": "name or null", "deadline": "date or null", "priority": "High|Medium|Low"}]
}

Transcript:
%s`

const chunkPrompt = `Summarize this portion of a meeting transcript. Extract:
1. Main topics discussed
2. Any decisions mentioned
3. Any action items or tasks assigned

Transcript portion:
%s

Provide a concise summary:`

type LLMSummarizer struct {
	llm llm.Generator
}

func NewLLMSummarizer(generator llm.Generator) analysis.Summarizer {
	return &LLMSummarizer{llm: generator}
}

type summaryResponse struct {
	ExecutiveSummary string           `json:"executive_summary"`
	KeyPoints        []string         `json:"key_discussion_points"`
	Decisions        []string         `json:"decisions_made"`
	ActionItems      []actionItemJSON `json:"action_items"`
}

type actionItemJSON struct {
	Task     string  `json:"task"`
	Owner    *string `json:"owner"`
	Deadline *string `json:"deadline"`
	Priority string  `json:"priority"`
	Context  string  `json:"context"`
}

func (s *LLMSummarizer) Summarize(ctx context.Context, transcript transcriber.Transcript) (analysis.Summary, error) {
	text := strings.TrimSpace(transcript.Text)
	chunks := memory.Chunk(text, summaryChunkWords, summaryChunkOverlap)
	if len(chunks) > 1 {
		slog.Info("summarizing transcript in chunks", "chunks", len(chunks))
		parts := make([]string, 0, len(chunks))
		for i, chunk := range chunks {
			out, err := s.llm.Generate(ctx, fmt.Sprintf(chunkPrompt, chunk))
			if err != nil {
				return analysis.Summary{}, fmt.Errorf("summarize chunk %d: %w", i+1, err)
			}
			parts = append(parts, fmt.Sprintf("[Part %d]\n%s", i+1, strings.TrimSpace(out)))
		}
		text = strings.Join(parts, "\n\n")
	}

	out, err := s.llm.Generate(ctx, fmt.Sprintf(summaryPrompt, truncateChars(text, promptTranscriptChars)))
	if err != nil {
		return analysis.Summary{}, err
	}
	var resp summaryResponse
	if err := json.Unmarshal([]byte(llm.StripCodeFence(out)), &resp); err != nil {
		return analysis.Summary{}, fmt.Errorf("parse summary json: %w", err)
	}

	summary := analysis.Summary{
		ExecutiveSummary: limitWords(strings.TrimSpace(resp.ExecutiveSummary), maxSummaryWords),
		KeyPoints:        cleanList(resp.KeyPoints, maxKeyPoints),
		Decisions:        cleanList(resp.Decisions, 0),
		ActionItems:      toActionItems(resp.ActionItems),
	}
	if summary.ExecutiveSummary == "" && len(summary.KeyPoints) == 0 {
		return analysis.Summary{}, ErrEmptySummary
	}
	summary.Confidence = SummaryConfidence(summary)
	return summary, nil
}

// SummaryConfidence scores how complete a summary looks, from 0 to 1.
func SummaryConfidence(s analysis.Summary) float64 {
	score := 0.0
	if len(s.ExecutiveSummary) > 50 {
		score += 0.3
	}
	switch {
	case len(s.KeyPoints) >= 3:
		score += 0.3
	case len(s.KeyPoints) > 0:
		score += 0.15
	}
	if len(s.Decisions) > 0 {
		score += 0.2
	}
	if len(s.ActionItems) > 0 {
		detailed := false
		for _, a := range s.ActionItems {
			if a.Owner != "" || a.Deadline != "" {
				detailed = true
				break
			}
		}
		if detailed {
			score += 0.2
		} else {
			score += 0.1
		}
	}
	return min(round2(score), 1.0)
}

var listPrefix = regexp.MustCompile(`^(\d+[.)]\s*|[-•*]\s*)`)

func cleanList(items []string, limit int) []string {
	out := []string{}
	for _, item := range items {
		item = strings.TrimSpace(listPrefix.ReplaceAllString(strings.TrimSpace(item), ""))
		if len(item) <= 5 || strings.Contains(strings.ToLower(item), "no explicit decisions") {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func toActionItems(raw []actionItemJSON) []analysis.ActionItem {
	items := []analysis.ActionItem{}
	for _, r := range raw {
		task := strings.TrimSpace(r.Task)
		if task == "" {
			continue
		}
		items = append(items, analysis.ActionItem{
			ID:       len(items) + 1,
			Task:     task,
			Owner:    nullableString(r.Owner),
			Deadline: nullableString(r.Deadline),
			Priority: normalizePriority(r.Priority),
			Context:  strings.TrimSpace(r.Context),
		})
	}
	return items
}

func nullableString(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

func normalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

func limitWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "..."
}

func truncateChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
