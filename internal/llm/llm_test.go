package llm

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/errs"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `  {"a":1}  `, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"control chars", "{\"a\":\x001}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeStrict(t *testing.T) {
	t.Parallel()

	type payload struct {
		Headline string `json:"headline"`
	}

	var p payload
	if err := DecodeStrict("```json\n{\"headline\":\"hi\"}\n```", &p); err != nil {
		t.Fatalf("DecodeStrict() error = %v", err)
	}
	if p.Headline != "hi" {
		t.Errorf("Headline = %q, want hi", p.Headline)
	}

	for _, raw := range []string{
		`{"headline":"hi","extra":true}`,
		`not json`,
		`{"headline":"hi"} {"headline":"again"}`,
	} {
		var p payload
		err := DecodeStrict(raw, &p)
		if !errors.Is(err, errs.ErrSchema) {
			t.Errorf("DecodeStrict(%q) error = %v, want ErrSchema", raw, err)
		}
	}
}

func TestHashEmbedder(t *testing.T) {
	t.Parallel()

	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, _ := e.Embed(ctx, "SaaS founders scaling revenue")
	b, _ := e.Embed(ctx, "saas FOUNDERS, scaling revenue!")
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("embedding not case/punctuation insensitive (-a +b):\n%s", diff)
	}
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", norm)
	}

	empty, _ := e.Embed(ctx, "")
	for _, v := range empty {
		if v != 0 {
			t.Fatalf("empty text produced non-zero vector")
		}
	}
}

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, false, errors.New("kv down")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("kv down")
	}
	m.data[key] = value
	return nil
}

type countingEmbedder struct {
	Embedder
	mu    sync.Mutex
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Embedder.Embed(ctx, text)
}

func TestCachedEmbedder(t *testing.T) {
	t.Parallel()

	inner := &countingEmbedder{Embedder: NewHashEmbedder(16)}
	kv := &memKV{data: map[string][]byte{}}
	c := NewCachedEmbedder(inner, kv, "hash", time.Hour, zap.NewNop())
	ctx := context.Background()

	first, err := c.Embed(ctx, "enterprise fintech")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	second, err := c.Embed(ctx, "enterprise fintech")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached vector differs (-first +second):\n%s", diff)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}

	kv.fail = true
	if _, err := c.Embed(ctx, "retail"); err != nil {
		t.Fatalf("Embed() with failing cache error = %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}

func TestBreakerOpens(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{
		Name:                "test",
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 2,
	}, zap.NewNop())

	calls := 0
	failing := func() error {
		calls++
		return errors.New("boom")
	}
	for i := 0; i < 3; i++ {
		_ = b.Do(failing)
	}

	err := b.Do(failing)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Do() error = %v, want ErrOpenState", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if b.State() != "open" {
		t.Errorf("State() = %q, want open", b.State())
	}

	var nilBreaker *Breaker
	if err := nilBreaker.Do(func() error { return nil }); err != nil {
		t.Errorf("nil breaker Do() error = %v", err)
	}
}
