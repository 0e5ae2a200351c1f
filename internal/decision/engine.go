// Package decision picks an outreach channel by weighted multi-factor scoring.
package decision

import (
	"fmt"
	"strings"

	"github.com/xaenox/outreach-router/internal/models"
)

// Weights are the factor weights. The defaults are hand-tuned, not derived.
type Weights struct {
	Urgency    float64
	ICP        float64
	Objective  float64
	Historical float64
}

func DefaultWeights() Weights {
	return Weights{Urgency: 0.40, ICP: 0.25, Objective: 0.20, Historical: 0.15}
}

// ObjectiveRule maps objectives containing any keyword to channel scores.
// Order lists the table's channels as written; the reasoning text breaks ties
// by it.
type ObjectiveRule struct {
	Keywords []string
	Scores   models.ChannelWeights
	Order    []models.Channel
}

// Tables are the per-factor lookup tables, also tunable.
type Tables struct {
	Urgency          map[models.Urgency]models.ChannelWeights
	DefaultUrgency   models.Urgency
	Objectives       []ObjectiveRule
	DefaultObjective ObjectiveRule
}

func DefaultTables() Tables {
	return Tables{
		Urgency: map[models.Urgency]models.ChannelWeights{
			models.UrgencyHigh: {
				models.ChannelCall: 1.0, models.ChannelSMS: 0.8, models.ChannelEmail: 0.4, models.ChannelLinkedIn: 0.2,
			},
			models.UrgencyMedium: {
				models.ChannelEmail: 1.0, models.ChannelLinkedIn: 0.8, models.ChannelSMS: 0.5, models.ChannelCall: 0.3,
			},
			models.UrgencyLow: {
				models.ChannelLinkedIn: 1.0, models.ChannelEmail: 0.7, models.ChannelSMS: 0.2, models.ChannelCall: 0.1,
			},
		},
		DefaultUrgency: models.UrgencyLow,
		Objectives: []ObjectiveRule{
			{
				Keywords: []string{"outreach", "sales"},
				Scores: models.ChannelWeights{
					models.ChannelLinkedIn: 1.0, models.ChannelEmail: 0.8, models.ChannelCall: 0.4, models.ChannelSMS: 0.3,
				},
				Order: []models.Channel{models.ChannelLinkedIn, models.ChannelEmail, models.ChannelCall, models.ChannelSMS},
			},
			{
				Keywords: []string{"support", "service"},
				Scores: models.ChannelWeights{
					models.ChannelEmail: 1.0, models.ChannelCall: 0.7, models.ChannelSMS: 0.6, models.ChannelLinkedIn: 0.3,
				},
				Order: []models.Channel{models.ChannelEmail, models.ChannelCall, models.ChannelSMS, models.ChannelLinkedIn},
			},
		},
		DefaultObjective: ObjectiveRule{
			Scores: models.ChannelWeights{
				models.ChannelEmail: 0.9, models.ChannelLinkedIn: 0.9, models.ChannelCall: 0.5, models.ChannelSMS: 0.5,
			},
			Order: []models.Channel{models.ChannelEmail, models.ChannelLinkedIn, models.ChannelCall, models.ChannelSMS},
		},
	}
}

// Input is everything a decision depends on.
type Input struct {
	Urgency              models.Urgency
	ICPPreference        models.ChannelWeights
	BusinessObjective    string
	HistoricalEngagement models.ChannelWeights
}

// DecisionEngine is a pure function of its input.
type DecisionEngine interface {
	Decide(in Input) models.ChannelDecision
}

type Engine struct {
	weights Weights
	tables  Tables
}

var _ DecisionEngine = (*Engine)(nil)

func New(weights Weights, tables Tables) *Engine {
	return &Engine{weights: weights, tables: tables}
}

func NewDefault() *Engine {
	return New(DefaultWeights(), DefaultTables())
}

func (e *Engine) Decide(in Input) models.ChannelDecision {
	urgencyScores := e.urgencyScores(in.Urgency)
	objective := e.objectiveRule(in.BusinessObjective)
	objectiveScores := objective.Scores

	scores := make(map[models.Channel]float64, len(models.Channels))
	for _, ch := range models.Channels {
		scores[ch] = e.weights.Urgency*urgencyScores[ch] +
			e.weights.ICP*in.ICPPreference[ch] +
			e.weights.Objective*objectiveScores[ch] +
			e.weights.Historical*in.HistoricalEngagement[ch]
	}

	selected, _ := argmax(scores)

	urgencyLabel := in.Urgency
	if _, ok := e.tables.Urgency[urgencyLabel]; !ok {
		urgencyLabel = e.tables.DefaultUrgency
	}
	reasoning := []string{
		fmt.Sprintf("Urgency (%s) tilted towards %s.", urgencyLabel, favored(urgencyScores, nil)),
		fmt.Sprintf("ICP shows preference for %s.", favored(in.ICPPreference, nil)),
		fmt.Sprintf("Objective (%s) favors %s.", in.BusinessObjective, favored(objectiveScores, objective.Order)),
		fmt.Sprintf("Historical data supports %s.", favored(in.HistoricalEngagement, nil)),
	}

	return models.ChannelDecision{
		Channel:   selected,
		Scores:    scores,
		Reasoning: strings.Join(reasoning, " | "),
	}
}

func (e *Engine) urgencyScores(u models.Urgency) models.ChannelWeights {
	if scores, ok := e.tables.Urgency[u]; ok {
		return scores
	}
	return e.tables.Urgency[e.tables.DefaultUrgency]
}

func (e *Engine) objectiveRule(objective string) ObjectiveRule {
	objective = strings.ToLower(objective)
	for _, rule := range e.tables.Objectives {
		for _, kw := range rule.Keywords {
			if strings.Contains(objective, kw) {
				return rule
			}
		}
	}
	return e.tables.DefaultObjective
}

// argmax walks channels in declaration order so the first maximum wins.
func argmax(scores map[models.Channel]float64) (models.Channel, bool) {
	return argmaxIn(scores, models.Channels)
}

func argmaxIn(scores map[models.Channel]float64, order []models.Channel) (models.Channel, bool) {
	var best models.Channel
	bestScore := 0.0
	found := false
	for _, ch := range order {
		s, ok := scores[ch]
		if !ok {
			continue
		}
		if !found || s > bestScore {
			best, bestScore, found = ch, s, true
		}
	}
	return best, found
}

// favored names the top channel of w. Ties go to the first channel in order,
// then to declaration order.
func favored(w models.ChannelWeights, order []models.Channel) string {
	ch, ok := argmaxIn(w, append(append([]models.Channel(nil), order...), models.Channels...))
	if !ok {
		return "None"
	}
	return string(ch)
}
