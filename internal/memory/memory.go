package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
)

const (
	ChunkWords   = 500
	ChunkOverlap = 50

	NoRelevantAnswer  = "No relevant information found in meeting history."
	UnavailableAnswer = "Meeting memory is not available."
)

const (
	KindTranscript = "transcript"
	KindSummary    = "summary"
	KindKeyPoint   = "keypoint"
	KindDecision   = "decision"
	KindAction     = "action"
)

type MeetingContent struct {
	MeetingID   int64
	MeetingURL  string
	Platform    string
	MeetingDate time.Time
	Transcript  string
	Summary     analysis.Summary
}

type Document struct {
	ID          string
	MeetingID   int64
	Kind        string
	Content     string
	Platform    string
	MeetingDate time.Time
}

type SearchHit struct {
	DocumentID  string    `json:"document_id"`
	MeetingID   int64     `json:"meeting_id"`
	Kind        string    `json:"kind"`
	Snippet     string    `json:"snippet"`
	Score       float64   `json:"score"`
	Platform    string    `json:"platform"`
	MeetingDate time.Time `json:"meeting_date"`
}

type Answer struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Sources  []SearchHit `json:"sources"`
}

type MeetingEntry struct {
	MeetingID   int64     `json:"meeting_id"`
	Platform    string    `json:"platform"`
	MeetingDate time.Time `json:"meeting_date"`
	Documents   int       `json:"documents"`
}

type Index interface {
	StoreMeeting(ctx context.Context, content MeetingContent) (int, error)
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
	Ask(ctx context.Context, question string) (Answer, error)
	DeleteMeeting(ctx context.Context, meetingID int64) error
	History(ctx context.Context, limit int) ([]MeetingEntry, error)
}

func DocumentID(meetingID int64, kind string, i int) string {
	if kind == KindSummary {
		return fmt.Sprintf("meeting_%d_%s", meetingID, kind)
	}
	return fmt.Sprintf("meeting_%d_%s_%d", meetingID, kind, i)
}

// Documents splits a meeting into indexable documents.
func Documents(c MeetingContent) []Document {
	base := Document{MeetingID: c.MeetingID, Platform: c.Platform, MeetingDate: c.MeetingDate}
	var docs []Document
	add := func(kind string, i int, content string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		d := base
		d.ID = DocumentID(c.MeetingID, kind, i)
		d.Kind = kind
		d.Content = content
		docs = append(docs, d)
	}
	for i, chunk := range Chunk(c.Transcript, ChunkWords, ChunkOverlap) {
		add(KindTranscript, i, chunk)
	}
	add(KindSummary, 0, c.Summary.ExecutiveSummary)
	for i, p := range c.Summary.KeyPoints {
		add(KindKeyPoint, i, p)
	}
	for i, d := range c.Summary.Decisions {
		add(KindDecision, i, d)
	}
	for i, a := range c.Summary.ActionItems {
		text := "Action Item: " + a.Task
		if a.Owner != "" {
			text += " (Assigned to: " + a.Owner + ")"
		}
		add(KindAction, i, text)
	}
	return docs
}

// Chunk splits text into windows of size words overlapping by overlap words.
func Chunk(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = 0
	}
	var chunks []string
	for start := 0; start < len(words); start += size - overlap {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

func Snippet(content string, n int) string {
	r := []rune(content)
	if len(r) <= n {
		return content
	}
	return string(r[:n]) + "..."
}
