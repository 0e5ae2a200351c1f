package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

func TestCompleteSendsExplicitZeroTemperature(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(ClientConfig{APIKey: "test", BaseURL: srv.URL}, nil, zap.NewNop())
	zero := 0.0
	got, err := client.Complete(context.Background(), Request{
		Model:       "clf",
		Prompt:      "hello",
		Temperature: &zero,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("Complete() = %q", got)
	}

	temp, ok := body["temperature"].(float64)
	if !ok {
		t.Fatalf("request has no temperature: %v", body)
	}
	if temp <= 0 || temp > 1e-30 {
		t.Errorf("temperature = %v, want a tiny positive value", temp)
	}
}

func TestChatTemperature(t *testing.T) {
	t.Parallel()

	if got := chatTemperature(0.7); got != float32(0.7) {
		t.Errorf("chatTemperature(0.7) = %v", got)
	}
	if got := chatTemperature(0); got <= 0 {
		t.Errorf("chatTemperature(0) = %v, want > 0", got)
	}
}
