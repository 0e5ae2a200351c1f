package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/errs"
	"github.com/xaenox/outreach-router/internal/llm"
	"github.com/xaenox/outreach-router/internal/models"
)

const systemPrompt = `You are an intent classifier for sales and outreach requests. Respond with a single JSON object with exactly these keys:
- "task_type": one of "outreach", "support", "inquiry"
- "urgency": one of "High", "Medium", "Low"
- "category": the industry or product category the request concerns
- "behavioral_segment": a short label for the buyer's behaviour
- "intent_summary": one sentence describing what the user wants
- "confidence_score": a number between 0 and 1`

const defaultConfidence = 0.5

// GPTResponse is the strict wire shape of a classification reply
type GPTResponse struct {
	TaskType          string   `json:"task_type"`
	Urgency           string   `json:"urgency"`
	Category          string   `json:"category"`
	BehavioralSegment string   `json:"behavioral_segment"`
	IntentSummary     string   `json:"intent_summary"`
	ConfidenceScore   *float64 `json:"confidence_score"`
}

type GPTClassifier struct {
	client   llm.Completer
	model    string
	fallback Classifier
	logger   *zap.Logger
}

var _ Classifier = (*GPTClassifier)(nil)

// NewGPTClassifier uses fallback when the model reply is unusable; nil means the plain Fallback.
func NewGPTClassifier(client llm.Completer, model string, fallback Classifier, logger *zap.Logger) *GPTClassifier {
	return &GPTClassifier{
		client:   client,
		model:    model,
		fallback: fallback,
		logger:   logger.Named("classifier"),
	}
}

func (c *GPTClassifier) Classify(ctx context.Context, text string) models.ClassificationResult {
	temperature := 0.0
	response, err := c.client.Complete(ctx, llm.Request{
		Model:       c.model,
		System:      systemPrompt,
		Prompt:      fmt.Sprintf("Classify the following request:\n%s", text),
		Temperature: &temperature,
		JSON:        true,
	})
	if err != nil {
		c.logger.Warn("Failed to get classification response", zap.Error(err))
		return c.fallbackClassification(ctx, text)
	}

	result, err := Parse(response)
	if err != nil {
		c.logger.Warn("Failed to parse classification response",
			zap.Error(err),
			zap.String("response", llm.Truncate(response, 500)))
		return c.fallbackClassification(ctx, text)
	}

	return result
}

// Parse strictly decodes and validates a model reply.
func Parse(response string) (models.ClassificationResult, error) {
	var gptResponse GPTResponse
	if err := llm.DecodeStrict(response, &gptResponse); err != nil {
		return models.ClassificationResult{}, err
	}

	urgency, ok := models.ParseUrgency(gptResponse.Urgency)
	if !ok {
		return models.ClassificationResult{}, fmt.Errorf("%w: unknown urgency %q", errs.ErrSchema, gptResponse.Urgency)
	}

	result := models.ClassificationResult{
		TaskType:          strings.ToLower(strings.TrimSpace(gptResponse.TaskType)),
		Urgency:           urgency,
		Category:          strings.TrimSpace(gptResponse.Category),
		BehavioralSegment: strings.TrimSpace(gptResponse.BehavioralSegment),
		IntentSummary:     strings.TrimSpace(gptResponse.IntentSummary),
		ConfidenceScore:   defaultConfidence,
	}
	if err := Validate(result); err != nil {
		return models.ClassificationResult{}, err
	}

	if gptResponse.ConfidenceScore != nil && !math.IsNaN(*gptResponse.ConfidenceScore) {
		result.ConfidenceScore = clamp01(*gptResponse.ConfidenceScore)
	}
	return result, nil
}

// Validate checks the fields downstream stages rely on.
func Validate(r models.ClassificationResult) error {
	if _, ok := models.ParseUrgency(string(r.Urgency)); !ok {
		return fmt.Errorf("%w: unknown urgency %q", errs.ErrSchema, r.Urgency)
	}
	required := []struct{ name, value string }{
		{"task_type", r.TaskType},
		{"category", r.Category},
		{"behavioral_segment", r.BehavioralSegment},
		{"intent_summary", r.IntentSummary},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: missing %s", errs.ErrSchema, f.name)
		}
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidence %v out of range", errs.ErrSchema, r.ConfidenceScore)
	}
	return nil
}

func (c *GPTClassifier) fallbackClassification(ctx context.Context, text string) models.ClassificationResult {
	if c.fallback != nil {
		return c.fallback.Classify(ctx, text)
	}
	return Fallback(text)
}
