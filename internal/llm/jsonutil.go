package llm

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/goccy/go-json"

	"github.com/xaenox/outreach-router/internal/errs"
)

// Sanitize trims whitespace, drops Markdown code fences and strips control characters.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// DecodeStrict parses raw into v, rejecting unknown fields and trailing data.
// Every failure is an errs.ErrSchema.
func DecodeStrict(raw string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(Sanitize(raw))))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSchema, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errs.ErrSchema)
	}
	return nil
}

// Truncate shortens s to at most n runes for logging.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
