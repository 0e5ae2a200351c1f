// Package content generates platform-specific outreach copy.
package content

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/errs"
	"github.com/xaenox/outreach-router/internal/llm"
	"github.com/xaenox/outreach-router/internal/models"
	"github.com/xaenox/outreach-router/internal/retry"
)

// Attempt records one completion call.
type Attempt struct {
	Number      int     `json:"number"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Prompt      string  `json:"prompt"`
	Output      string  `json:"output"`
	Error       string  `json:"error,omitempty"`
}

// Generation is the outcome of Generate. Attempts is filled on failure too.
type Generation struct {
	Artifact models.ContentArtifact `json:"artifact"`
	Attempts []Attempt              `json:"attempts"`
}

// Generator produces copy for a platform. When retries run out it returns
// errs.ErrExhaustedRetries and a zero Artifact.
type Generator interface {
	Generate(ctx context.Context, platform models.Channel, brief string, temperature *float64) (Generation, error)
}

type artifactJSON struct {
	Headline string `json:"headline"`
	Body     string `json:"body"`
	CTA      string `json:"cta"`
}

type LLMGenerator struct {
	client       llm.Completer
	model        string
	temperatures map[models.Channel]float64
	policy       retry.Policy
	logger       *zap.Logger
}

var _ Generator = (*LLMGenerator)(nil)

// NewLLMGenerator falls back to DefaultTemperatures for platforms missing from temperatures.
func NewLLMGenerator(client llm.Completer, model string, temperatures map[models.Channel]float64, policy retry.Policy, logger *zap.Logger) *LLMGenerator {
	merged := DefaultTemperatures()
	for ch, t := range temperatures {
		merged[ch] = t
	}
	return &LLMGenerator{
		client:       client,
		model:        model,
		temperatures: merged,
		policy:       policy,
		logger:       logger.Named("content"),
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, platform models.Channel, brief string, temperature *float64) (Generation, error) {
	temp := g.temperatureFor(platform, temperature)
	prompt := BuildPrompt(platform, brief)

	var gen Generation
	err := g.policy.Do(ctx, func(n int) error {
		raw, err := g.client.Complete(ctx, llm.Request{
			Model:       g.model,
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: &temp,
			JSON:        true,
		})
		attempt := Attempt{
			Number:      n,
			Model:       g.model,
			Temperature: temp,
			Prompt:      prompt,
			Output:      llm.Sanitize(raw),
		}

		var artifact models.ContentArtifact
		if err == nil {
			artifact, err = parseArtifact(raw, platform)
		}
		if err != nil {
			attempt.Error = err.Error()
		}
		gen.Attempts = append(gen.Attempts, attempt)

		logFields := []zap.Field{
			zap.String("platform", string(platform)),
			zap.String("model", g.model),
			zap.Float64("temperature", temp),
			zap.Int("attempt", n),
			zap.String("prompt", llm.Truncate(prompt, 500)),
			zap.String("output", llm.Truncate(attempt.Output, 500)),
		}
		if err != nil {
			g.logger.Warn("Content generation attempt failed", append(logFields, zap.Error(err))...)
			return err
		}
		g.logger.Info("Content generation attempt succeeded", logFields...)
		gen.Artifact = artifact
		return nil
	})
	if err != nil {
		return Generation{Attempts: gen.Attempts}, fmt.Errorf("%w after %d attempts: %w", errs.ErrExhaustedRetries, len(gen.Attempts), err)
	}
	return gen, nil
}

func (g *LLMGenerator) temperatureFor(platform models.Channel, override *float64) float64 {
	if override != nil {
		return *override
	}
	if t, ok := g.temperatures[platform]; ok {
		return t
	}
	return genericTemperature
}

func parseArtifact(raw string, platform models.Channel) (models.ContentArtifact, error) {
	var out artifactJSON
	if err := llm.DecodeStrict(raw, &out); err != nil {
		return models.ContentArtifact{}, err
	}
	artifact := models.ContentArtifact{
		Headline: strings.TrimSpace(out.Headline),
		Body:     strings.TrimSpace(out.Body),
		CTA:      strings.TrimSpace(out.CTA),
		Platform: platform,
	}
	if artifact.Empty() {
		return models.ContentArtifact{}, fmt.Errorf("%w: headline, body and cta are required", errs.ErrSchema)
	}
	return artifact, nil
}
