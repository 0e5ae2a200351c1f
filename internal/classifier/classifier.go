package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/outreach-router/internal/models"
)

// Classifier turns free text into a structured intent. It never fails:
// provider and schema problems resolve to a deterministic fallback.
type Classifier interface {
	Classify(ctx context.Context, text string) models.ClassificationResult
}

const fallbackConfidence = 0.4

// Fallback is the deterministic classification used when the model output is unusable.
func Fallback(text string) models.ClassificationResult {
	return models.ClassificationResult{
		TaskType:          "inquiry",
		Urgency:           models.UrgencyMedium,
		Category:          "general",
		BehavioralSegment: "unknown",
		IntentSummary:     fmt.Sprintf("Fallback classification for: %s...", truncateRunes(text, 50)),
		ConfidenceScore:   fallbackConfidence,
	}
}

// RuleClassifier refines the fallback with keyword rules
type RuleClassifier struct {
	categories map[string][]string
	urgent     []string
	taskTypes  map[string][]string
}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		categories: map[string][]string{
			"saas":       {"saas", "software", "subscription", "platform"},
			"fintech":    {"fintech", "bank", "payment", "compliance", "finance"},
			"e-commerce": {"ecommerce", "e-commerce", "shop", "store", "retail", "cart"},
			"healthcare": {"clinic", "hospital", "patient", "health"},
		},
		urgent: []string{"urgent", "urgently", "asap", "immediately", "today", "deadline"},
		taskTypes: map[string][]string{
			"outreach": {"deal", "prospect", "lead", "pitch", "sell", "outreach", "close"},
			"support":  {"issue", "problem", "broken", "help", "support", "bug"},
		},
	}
}

var _ Classifier = (*RuleClassifier)(nil)

// Classify starts from Fallback and overrides the fields a keyword matches.
// Category keys are checked in sorted order so the result is deterministic.
func (c *RuleClassifier) Classify(_ context.Context, text string) models.ClassificationResult {
	result := Fallback(text)
	content := strings.ToLower(text)

	for _, category := range []string{"e-commerce", "fintech", "healthcare", "saas"} {
		if containsAny(content, c.categories[category]) {
			result.Category = category
			break
		}
	}

	if containsAny(content, c.urgent) {
		result.Urgency = models.UrgencyHigh
	}

	for _, taskType := range []string{"outreach", "support"} {
		if containsAny(content, c.taskTypes[taskType]) {
			result.TaskType = taskType
			break
		}
	}

	return result
}

func containsAny(content string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
