package transcriber

import (
	"context"
	"errors"
	"strings"

	"github.com/foxseedlab/meetbot/internal/recording"
)

var ErrEmptyTranscript = errors.New("transcription produced no text")

type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
}

type Transcript struct {
	Text            string    `json:"text"`
	Segments        []Segment `json:"segments"`
	Language        string    `json:"language"`
	DurationSeconds float64   `json:"duration_seconds"`
}

func (t Transcript) WordCount() int {
	return len(strings.Fields(t.Text))
}

// JoinSegments rebuilds the flat text from segment texts.
func JoinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio recording.AudioHandle) (Transcript, error)
}
