package decision

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xaenox/outreach-router/internal/models"
)

func TestDecideHighUrgencyColdOutreach(t *testing.T) {
	t.Parallel()

	got := NewDefault().Decide(Input{
		Urgency:           models.UrgencyHigh,
		BusinessObjective: "cold outreach",
	})
	if got.Channel != models.ChannelCall && got.Channel != models.ChannelSMS {
		t.Fatalf("Channel = %s, want Call or SMS", got.Channel)
	}

	want := map[models.Channel]float64{
		models.ChannelLinkedIn: 0.28,
		models.ChannelEmail:    0.32,
		models.ChannelCall:     0.48,
		models.ChannelSMS:      0.38,
	}
	for ch, w := range want {
		if math.Abs(got.Scores[ch]-w) > 1e-9 {
			t.Errorf("score[%s] = %v, want %v", ch, got.Scores[ch], w)
		}
	}

	wantReasoning := "Urgency (High) tilted towards Call. | ICP shows preference for None. | " +
		"Objective (cold outreach) favors LinkedIn. | Historical data supports None."
	if got.Reasoning != wantReasoning {
		t.Errorf("Reasoning = %q\nwant %q", got.Reasoning, wantReasoning)
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	t.Parallel()

	in := Input{
		Urgency:              models.UrgencyMedium,
		ICPPreference:        models.ChannelWeights{models.ChannelLinkedIn: 0.8, models.ChannelEmail: 0.6},
		BusinessObjective:    "customer support",
		HistoricalEngagement: models.ChannelWeights{models.ChannelEmail: 0.7, models.ChannelCall: 0.2},
	}
	e := NewDefault()
	first := e.Decide(in)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, e.Decide(in)); diff != "" {
			t.Fatalf("Decide() not deterministic (-first +now):\n%s", diff)
		}
	}
	if first.Channel != models.ChannelEmail {
		t.Errorf("Channel = %s, want Email", first.Channel)
	}
}

func TestDecideCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Input
		want models.Channel
	}{
		{
			name: "low urgency default objective",
			in:   Input{Urgency: models.UrgencyLow, BusinessObjective: "inquiry"},
			want: models.ChannelLinkedIn,
		},
		{
			name: "unknown urgency treated as low",
			in:   Input{Urgency: "Whenever", BusinessObjective: "inquiry"},
			want: models.ChannelLinkedIn,
		},
		{
			name: "icp preference tips medium urgency",
			in: Input{
				Urgency:           models.UrgencyMedium,
				ICPPreference:     models.ChannelWeights{models.ChannelLinkedIn: 1},
				BusinessObjective: "sales",
			},
			want: models.ChannelLinkedIn,
		},
		{
			name: "historical engagement ignored for unknown channels",
			in: Input{
				Urgency:              models.UrgencyHigh,
				HistoricalEngagement: models.ChannelWeights{"Fax": 1},
			},
			want: models.ChannelCall,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDefault().Decide(tt.in)
			if got.Channel != tt.want {
				t.Errorf("Channel = %s, want %s (scores %v)", got.Channel, tt.want, got.Scores)
			}
		})
	}
}

func TestDecideTieBreaksByDeclarationOrder(t *testing.T) {
	t.Parallel()

	flat := models.ChannelWeights{
		models.ChannelLinkedIn: 1, models.ChannelEmail: 1, models.ChannelCall: 1, models.ChannelSMS: 1,
	}
	e := New(Weights{Urgency: 1}, Tables{
		Urgency:        map[models.Urgency]models.ChannelWeights{models.UrgencyLow: flat},
		DefaultUrgency: models.UrgencyLow,
	})
	if got := e.Decide(Input{Urgency: models.UrgencyLow}); got.Channel != models.ChannelLinkedIn {
		t.Errorf("Channel = %s, want LinkedIn", got.Channel)
	}
}

func TestReasoningTieFollowsTableOrder(t *testing.T) {
	t.Parallel()

	// the default objective table scores Email and LinkedIn equally and lists Email first
	got := NewDefault().Decide(Input{
		Urgency:           models.UrgencyLow,
		BusinessObjective: "general question",
	})
	if got.Channel != models.ChannelLinkedIn {
		t.Errorf("Channel = %s, want LinkedIn", got.Channel)
	}
	want := "Objective (general question) favors Email."
	if !strings.Contains(got.Reasoning, want) {
		t.Errorf("Reasoning = %q, want it to contain %q", got.Reasoning, want)
	}
}
