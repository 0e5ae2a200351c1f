package classifier

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/errs"
	"github.com/xaenox/outreach-router/internal/llm"
	"github.com/xaenox/outreach-router/internal/models"
)

type fakeCompleter struct {
	response string
	err      error
	last     llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.last = req
	return f.response, f.err
}

func TestGPTClassifierParsesValidResponse(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{response: "```json\n" + `{
		"task_type": "Outreach",
		"urgency": "high",
		"category": "SaaS",
		"behavioral_segment": "decision maker",
		"intent_summary": "Close a deal with a SaaS founder",
		"confidence_score": 1.7
	}` + "\n```"}
	c := NewGPTClassifier(client, "test-model", nil, zap.NewNop())

	got := c.Classify(context.Background(), "Need to close a deal with a SaaS founder urgently")
	want := models.ClassificationResult{
		TaskType:          "outreach",
		Urgency:           models.UrgencyHigh,
		Category:          "SaaS",
		BehavioralSegment: "decision maker",
		IntentSummary:     "Close a deal with a SaaS founder",
		ConfidenceScore:   1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
	}
	if !client.last.JSON {
		t.Error("request did not ask for JSON output")
	}
	if client.last.Model != "test-model" {
		t.Errorf("model = %q, want test-model", client.last.Model)
	}
}

func TestGPTClassifierFallsBack(t *testing.T) {
	t.Parallel()

	text := "We are evaluating vendors for next quarter and would like to learn more about pricing"
	want := Fallback(text)

	tests := []struct {
		name     string
		response string
		err      error
	}{
		{"provider error", "", fmt.Errorf("%w: timeout", errs.ErrProvider)},
		{"malformed json", "{not json", nil},
		{"unknown urgency", `{"task_type":"inquiry","urgency":"Critical","category":"x","behavioral_segment":"y","intent_summary":"z"}`, nil},
		{"missing field", `{"task_type":"inquiry","urgency":"Low","category":"","behavioral_segment":"y","intent_summary":"z"}`, nil},
		{"unknown field", `{"task_type":"inquiry","urgency":"Low","category":"x","behavioral_segment":"y","intent_summary":"z","mood":"happy"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewGPTClassifier(&fakeCompleter{response: tt.response, err: tt.err}, "m", nil, zap.NewNop())
			got := c.Classify(context.Background(), text)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDefaultsConfidence(t *testing.T) {
	t.Parallel()

	got, err := Parse(`{"task_type":"support","urgency":"Low","category":"fintech","behavioral_segment":"existing customer","intent_summary":"Billing help"}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.ConfidenceScore != 0.5 {
		t.Errorf("ConfidenceScore = %v, want 0.5", got.ConfidenceScore)
	}

	got, err = Parse(`{"task_type":"support","urgency":"Low","category":"fintech","behavioral_segment":"b","intent_summary":"s","confidence_score":-3}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.ConfidenceScore != 0 {
		t.Errorf("ConfidenceScore = %v, want 0", got.ConfidenceScore)
	}

	_, err = Parse(`{"urgency":"Sometime"}`)
	if !errors.Is(err, errs.ErrSchema) {
		t.Errorf("Parse() error = %v, want ErrSchema", err)
	}
}

func TestFallback(t *testing.T) {
	t.Parallel()

	got := Fallback("short")
	if got.IntentSummary != "Fallback classification for: short..." {
		t.Errorf("IntentSummary = %q", got.IntentSummary)
	}
	if got.Urgency != models.UrgencyMedium || got.Category != "general" || got.BehavioralSegment != "unknown" {
		t.Errorf("unexpected fallback %+v", got)
	}
	if err := Validate(got); err != nil {
		t.Errorf("fallback does not validate: %v", err)
	}

	long := Fallback("ÄÖÜ" + string(make([]rune, 100)))
	if n := len([]rune(long.IntentSummary)); n != len([]rune("Fallback classification for: ..."))+50 {
		t.Errorf("summary length = %d runes", n)
	}
}

func TestRuleClassifier(t *testing.T) {
	t.Parallel()

	c := NewRuleClassifier()
	got := c.Classify(context.Background(), "Need to close a deal with a SaaS founder urgently")
	if got.Urgency != models.UrgencyHigh {
		t.Errorf("Urgency = %q, want High", got.Urgency)
	}
	if got.Category != "saas" {
		t.Errorf("Category = %q, want saas", got.Category)
	}
	if got.TaskType != "outreach" {
		t.Errorf("TaskType = %q, want outreach", got.TaskType)
	}

	plain := c.Classify(context.Background(), "hello there")
	if diff := cmp.Diff(Fallback("hello there"), plain); diff != "" {
		t.Errorf("no-keyword input should equal Fallback (-want +got):\n%s", diff)
	}

	gpt := NewGPTClassifier(&fakeCompleter{err: errs.ErrProvider}, "m", c, zap.NewNop())
	if got := gpt.Classify(context.Background(), "urgent payment issue"); got.Urgency != models.UrgencyHigh || got.Category != "fintech" {
		t.Errorf("rule fallback not used: %+v", got)
	}
}
