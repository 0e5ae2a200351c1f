package content

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/errs"
	"github.com/xaenox/outreach-router/internal/llm"
	"github.com/xaenox/outreach-router/internal/models"
	"github.com/xaenox/outreach-router/internal/retry"
)

type reply struct {
	text string
	err  error
}

type scriptedCompleter struct {
	mu       sync.Mutex
	replies  []reply
	requests []llm.Request
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return "", errs.ErrProvider
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

type sleepRecorder struct {
	total time.Duration
	calls int
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.total += d
	r.calls++
	return nil
}

func newGenerator(client llm.Completer, rec *sleepRecorder) *LLMGenerator {
	policy := retry.NewExponential(3, time.Second)
	policy.Sleep = rec.sleep
	return NewLLMGenerator(client, "content-model", nil, policy, zap.NewNop())
}

func TestGenerateSuccess(t *testing.T) {
	t.Parallel()

	client := &scriptedCompleter{replies: []reply{
		{text: `{"headline":" Quick question ","body":"Hi Dana, ...","cta":"Call me back"}`},
	}}
	rec := &sleepRecorder{}
	gen, err := newGenerator(client, rec).Generate(context.Background(), models.ChannelCall, "Audience: SaaS Founders", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := models.ContentArtifact{Headline: "Quick question", Body: "Hi Dana, ...", CTA: "Call me back", Platform: models.ChannelCall}
	if diff := cmp.Diff(want, gen.Artifact); diff != "" {
		t.Errorf("artifact mismatch (-want +got):\n%s", diff)
	}
	if len(gen.Attempts) != 1 || gen.Attempts[0].Error != "" {
		t.Errorf("attempts = %+v", gen.Attempts)
	}
	if rec.calls != 0 {
		t.Errorf("slept %d times on success", rec.calls)
	}

	req := client.requests[0]
	if *req.Temperature != 0.5 {
		t.Errorf("temperature = %v, want 0.5 for Call", *req.Temperature)
	}
	if !req.JSON || req.System == "" {
		t.Errorf("request missing JSON mode or system prompt: %+v", req)
	}
	if !strings.Contains(req.Prompt, "objections") || !strings.Contains(req.Prompt, "Audience: SaaS Founders") {
		t.Errorf("prompt = %q", req.Prompt)
	}
}

func TestGenerateRetriesSchemaErrors(t *testing.T) {
	t.Parallel()

	client := &scriptedCompleter{replies: []reply{
		{text: "not json"},
		{text: `{"headline":"","body":"b","cta":"c"}`},
		{text: `{"headline":"h","body":"b","cta":"c"}`},
	}}
	rec := &sleepRecorder{}
	temp := 0.1
	gen, err := newGenerator(client, rec).Generate(context.Background(), models.ChannelEmail, "ctx", &temp)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(gen.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(gen.Attempts))
	}
	if gen.Attempts[0].Error == "" || gen.Attempts[1].Error == "" || gen.Attempts[2].Error != "" {
		t.Errorf("attempt errors = %q, %q, %q", gen.Attempts[0].Error, gen.Attempts[1].Error, gen.Attempts[2].Error)
	}
	if rec.total != 3*time.Second {
		t.Errorf("slept %v, want 3s", rec.total)
	}
	for _, r := range client.requests {
		if *r.Temperature != 0.1 {
			t.Errorf("temperature = %v, want explicit 0.1", *r.Temperature)
		}
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	t.Parallel()

	providerErr := errors.Join(errs.ErrProvider, errors.New("503"))
	client := &scriptedCompleter{replies: []reply{{err: providerErr}, {err: providerErr}, {err: providerErr}}}
	rec := &sleepRecorder{}

	gen, err := newGenerator(client, rec).Generate(context.Background(), models.ChannelLinkedIn, "ctx", nil)
	if !errors.Is(err, errs.ErrExhaustedRetries) {
		t.Fatalf("Generate() error = %v, want ErrExhaustedRetries", err)
	}
	if diff := cmp.Diff(models.ContentArtifact{}, gen.Artifact); diff != "" {
		t.Errorf("artifact should be empty (-want +got):\n%s", diff)
	}
	if len(client.requests) != 3 {
		t.Errorf("requests = %d, want 3", len(client.requests))
	}
	if rec.total != 7*time.Second {
		t.Errorf("total sleep = %v, want 7s", rec.total)
	}
	if len(gen.Attempts) != 3 {
		t.Errorf("recorded attempts = %d, want 3", len(gen.Attempts))
	}
}

func TestBuildPromptUnknownPlatform(t *testing.T) {
	t.Parallel()

	p := BuildPrompt("Fax", "ctx")
	if !strings.Contains(p, "Platform: Fax.") || !strings.HasPrefix(p, baseInstruction) {
		t.Errorf("prompt = %q", p)
	}
}

func TestFallbackArtifact(t *testing.T) {
	t.Parallel()

	got := FallbackArtifact(models.ChannelSMS, "SaaS Founders", "SaaS")
	want := models.ContentArtifact{
		Headline: "Follow-up Inquiry",
		Body:     "Hello SaaS Founders, I wanted to follow up on your recent interest regarding SaaS.",
		CTA:      "Let's connect",
		Platform: models.ChannelSMS,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FallbackArtifact() mismatch (-want +got):\n%s", diff)
	}
}
