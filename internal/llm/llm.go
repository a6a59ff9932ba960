package llm

import (
	"context"
	"errors"
	"strings"
)

var ErrUnavailable = errors.New("language model is not configured")

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StripCodeFence removes a surrounding ```json fence from model output.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
