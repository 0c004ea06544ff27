package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LLMNarrator asks a language model to expand the canned guidance into one
// short operator-facing paragraph.
type LLMNarrator struct {
	model llms.Model
}

// NewLLMNarrator builds a narrator backed by the OpenAI API.
func NewLLMNarrator(apiKey string) (*LLMNarrator, error) {
	llm, err := openai.New(
		openai.WithModel("gpt-4o-mini"),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}
	return &LLMNarrator{model: llm}, nil
}

// Narrate produces the narrative text for an insight.
func (n *LLMNarrator) Narrate(ctx context.Context, in Insight) (string, error) {
	prompt := fmt.Sprintf(
		"Write one short paragraph for a factory operator. Item %q is currently %s; "+
			"the recommendation is %s with %s priority. Guidance: %s Suggested note: %s",
		in.Name, in.CurrentStatus, in.RecommendedStatus, in.Priority, in.Summary, in.SuggestedNote,
	)
	out, err := llms.GenerateFromSinglePrompt(ctx, n.model, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
