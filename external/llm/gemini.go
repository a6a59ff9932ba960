package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/foxseedlab/meetbot/internal/llm"
	"google.golang.org/genai"
)

var errEmptyResponse = errors.New("empty response from Gemini")

type generateFunc func(ctx context.Context, apiKey, model, prompt string) (string, error)

// GeminiGenerator calls Gemini with a pool of API keys and moves to the
// next key when one is rate limited.
type GeminiGenerator struct {
	model    string
	apiKeys  []string
	generate generateFunc

	mu         sync.Mutex
	currentKey int
	clients    map[string]*genai.Client
}

func NewGeminiGenerator(apiKeys []string, model string) llm.Generator {
	g := &GeminiGenerator{
		model:   model,
		apiKeys: apiKeys,
		clients: make(map[string]*genai.Client),
	}
	g.generate = g.callGemini
	return g
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if len(g.apiKeys) == 0 {
		return "", llm.ErrUnavailable
	}
	var lastErr error
	for range len(g.apiKeys) {
		idx, key := g.key()
		text, err := g.generate(ctx, key, g.model, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isQuotaError(err) {
			return "", fmt.Errorf("generate content: %w", err)
		}
		slog.Warn("gemini key rate limited; rotating", "key_index", idx+1, "error", err)
		g.rotateKey()
		lastErr = err
	}
	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (g *GeminiGenerator) key() (int, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentKey, g.apiKeys[g.currentKey]
}

func (g *GeminiGenerator) rotateKey() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.currentKey = (g.currentKey + 1) % len(g.apiKeys)
}

func (g *GeminiGenerator) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	g.clients[apiKey] = c
	return c, nil
}

func (g *GeminiGenerator) callGemini(ctx context.Context, apiKey, model, prompt string) (string, error) {
	client, err := g.client(ctx, apiKey)
	if err != nil {
		return "", err
	}
	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var text strings.Builder
		for _, part := range result.Candidates[0].Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
		if text.Len() > 0 {
			return text.String(), nil
		}
	}
	return "", errEmptyResponse
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
