// Package opinion generates an optional one-sentence audit opinion
// for a completed assessment. The assessment is final before the
// generator runs; the opinion is narrative enrichment only and never
// feeds back into findings or scoring.
package opinion

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kanuni-ai/kanuni/internal/domain"
)

// Generator produces an audit opinion for an assessment.
type Generator interface {
	// Generate returns the opinion text and a confidence in [0,1].
	// An empty opinion with a nil error means the generator declined.
	Generate(ctx context.Context, a *domain.RiskAssessment) (string, float64, error)
}

// New returns a generator for the given configuration. Disabled or
// unconfigured opinion settings yield the no-op generator.
func New(cfg domain.OpinionConfig) Generator {
	if !cfg.Enabled || cfg.APIKey == "" {
		return Noop{}
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client:     openai.NewClient(cfg.APIKey),
		model:      model,
		confidence: 0.92,
	}
}

// Noop is the generator used when opinions are disabled.
type Noop struct{}

// Generate returns no opinion.
func (Noop) Generate(ctx context.Context, a *domain.RiskAssessment) (string, float64, error) {
	return "", 0, nil
}

// OpenAIGenerator produces opinions via the OpenAI chat API.
type OpenAIGenerator struct {
	client     *openai.Client
	model      string
	confidence float64
}

const systemPrompt = "You are a public-procurement audit assistant. " +
	"Given a structured risk assessment, write exactly one sentence " +
	"summarising the audit opinion in plain professional language. " +
	"Do not invent findings beyond those provided."

// Generate asks the model for a one-sentence opinion over the
// assessment's findings and score.
func (g *OpenAIGenerator) Generate(ctx context.Context, a *domain.RiskAssessment) (string, float64, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0,
		MaxTokens:   120,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(a)},
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("opinion generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, nil
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", 0, nil
	}
	return text, g.confidence, nil
}

// BuildPrompt renders the assessment into the user message. Only the
// scored outputs go in; raw document text never leaves the service.
func BuildPrompt(a *domain.RiskAssessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk score: %d/100 (%s)\n", a.RiskScore, a.RiskLevel)
	fmt.Fprintf(&b, "Top concern: %s\n", a.TopConcern)
	if len(a.Findings) > 0 {
		b.WriteString("Findings:\n")
		for _, f := range a.Findings {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", f.Severity, f.Label, f.Text)
		}
	}
	return b.String()
}
