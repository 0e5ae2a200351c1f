package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xaenox/outreach-router/internal/models"
)

const sample = `
profiles:
  - id: icp_saas
    name: SaaS Founders
    industry: SaaS
    size: 1-50
    description: Founders of early-stage software companies
    pain_points: closing first enterprise deals
    channel_preferences:
      call: 0.9
      LinkedIn: 0.7
`

func TestLoadProfiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "icps.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	want := []models.ICPProfile{{
		ID:          "icp_saas",
		Name:        "SaaS Founders",
		Industry:    "SaaS",
		Size:        "1-50",
		Description: "Founders of early-stage software companies",
		PainPoints:  "closing first enterprise deals",
		ChannelPreferences: models.ChannelWeights{
			models.ChannelCall:     0.9,
			models.ChannelLinkedIn: 0.7,
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadProfiles() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseProfilesRejects(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing id":      "profiles:\n  - name: x\n",
		"duplicate id":    "profiles:\n  - {id: a, name: x}\n  - {id: a, name: y}\n",
		"unknown channel": "profiles:\n  - {id: a, name: x, channel_preferences: {fax: 1}}\n",
		"weight range":    "profiles:\n  - {id: a, name: x, channel_preferences: {sms: 2}}\n",
		"unknown field":   "profiles:\n  - {id: a, name: x, budget: 10}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseProfiles([]byte(doc)); err == nil {
				t.Error("ParseProfiles() succeeded")
			}
		})
	}
}
