package models

import (
	"strings"
	"time"
)

// Urgency is the classified time pressure of an outreach intent
type Urgency string

const (
	UrgencyHigh   Urgency = "High"
	UrgencyMedium Urgency = "Medium"
	UrgencyLow    Urgency = "Low"
)

// ParseUrgency normalises case and reports whether the value is one of High, Medium, Low.
func ParseUrgency(s string) (Urgency, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return UrgencyHigh, true
	case "medium":
		return UrgencyMedium, true
	case "low":
		return UrgencyLow, true
	}
	return "", false
}

// Channel is a communication medium the decision engine chooses between
type Channel string

const (
	ChannelLinkedIn Channel = "LinkedIn"
	ChannelEmail    Channel = "Email"
	ChannelCall     Channel = "Call"
	ChannelSMS      Channel = "SMS"
)

// Channels is the fixed candidate set in declaration order. Ties resolve to the earlier entry.
var Channels = []Channel{ChannelLinkedIn, ChannelEmail, ChannelCall, ChannelSMS}

// ParseChannel matches a channel name case-insensitively.
func ParseChannel(s string) (Channel, bool) {
	for _, c := range Channels {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

// ChannelWeights maps a channel to a weight in [0,1]. Missing channels count as 0.
type ChannelWeights map[Channel]float64

// Clone returns an independent copy.
func (w ChannelWeights) Clone() ChannelWeights {
	if w == nil {
		return nil
	}
	out := make(ChannelWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// ClassificationResult is the structured intent produced by the classifier
type ClassificationResult struct {
	TaskType          string  `json:"task_type"`
	Urgency           Urgency `json:"urgency"`
	Category          string  `json:"category"`
	BehavioralSegment string  `json:"behavioral_segment"`
	IntentSummary     string  `json:"intent_summary"`
	ConfidenceScore   float64 `json:"confidence_score"`
}

// ICPProfile is a target-audience segment stored in the similarity index
type ICPProfile struct {
	ID                 string         `json:"id" yaml:"id"`
	Name               string         `json:"name" yaml:"name"`
	Industry           string         `json:"industry" yaml:"industry"`
	Size               string         `json:"size" yaml:"size"`
	Description        string         `json:"description" yaml:"description"`
	PainPoints         string         `json:"pain_points" yaml:"pain_points"`
	ChannelPreferences ChannelWeights `json:"channel_preferences" yaml:"channel_preferences"`
	CreatedAt          time.Time      `json:"created_at" yaml:"-"`
}

// EmbeddingText is the text a profile is indexed under.
func (p ICPProfile) EmbeddingText() string {
	return strings.Join([]string{p.Industry, p.Size, p.Description, p.PainPoints}, " ")
}

// Likelihood buckets a match score
type Likelihood string

const (
	LikelihoodHigh   Likelihood = "High"
	LikelihoodMedium Likelihood = "Medium"
	LikelihoodLow    Likelihood = "Low"
)

// LikelihoodFor returns High above 0.8, Medium above 0.5 and Low otherwise.
func LikelihoodFor(score float64) Likelihood {
	switch {
	case score > 0.8:
		return LikelihoodHigh
	case score > 0.5:
		return LikelihoodMedium
	default:
		return LikelihoodLow
	}
}

// ICPMatch is a profile scored against one classification
type ICPMatch struct {
	ProfileID          string         `json:"profile_id"`
	Name               string         `json:"name"`
	Industry           string         `json:"industry,omitempty"`
	Score              float64        `json:"score"`
	Likelihood         Likelihood     `json:"likelihood"`
	ChannelPreferences ChannelWeights `json:"channel_preferences"`
}

// ChannelDecision is the engine's pick plus its explanation
type ChannelDecision struct {
	Channel   Channel             `json:"selected_channel"`
	Scores    map[Channel]float64 `json:"scores"`
	Reasoning string              `json:"reasoning"`
}

// ContentArtifact is the terminal output of a run
type ContentArtifact struct {
	Headline string  `json:"headline"`
	Body     string  `json:"body"`
	CTA      string  `json:"cta"`
	Platform Channel `json:"platform"`
}

// Empty reports whether any of the copy fields is blank.
func (a ContentArtifact) Empty() bool {
	return strings.TrimSpace(a.Headline) == "" ||
		strings.TrimSpace(a.Body) == "" ||
		strings.TrimSpace(a.CTA) == ""
}
