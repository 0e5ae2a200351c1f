// Package matcher scores classified intents against the ICP index.
package matcher

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/errs"
	"github.com/xaenox/outreach-router/internal/index"
	"github.com/xaenox/outreach-router/internal/llm"
	"github.com/xaenox/outreach-router/internal/models"
)

// Matcher finds the ICP profiles closest to a classification. It never fails;
// an empty index or an embedding failure yields the default profile.
type Matcher interface {
	Match(ctx context.Context, c models.ClassificationResult) models.ICPMatch
	TopMatches(ctx context.Context, c models.ClassificationResult) []models.ICPMatch
}

// Scoring holds the heuristic re-scoring parameters.
type Scoring struct {
	SemanticWeight float64
	IndustryBonus  float64
	UrgencyBonus   float64
	TopK           int
}

func DefaultScoring() Scoring {
	return Scoring{SemanticWeight: 0.7, IndustryBonus: 0.2, UrgencyBonus: 0.1, TopK: 3}
}

const fallbackScore = 0.5

// DefaultProfile is returned when nothing in the index can be matched.
func DefaultProfile() models.ICPProfile {
	return models.ICPProfile{
		ID:          "default_icp",
		Name:        "General Business",
		Industry:    "General",
		Size:        "Any",
		Description: "Catch-all audience used when no specific profile matches.",
		ChannelPreferences: models.ChannelWeights{
			models.ChannelLinkedIn: 0.8,
			models.ChannelEmail:    0.6,
		},
	}
}

type ICPMatcher struct {
	embedder llm.Embedder
	index    index.Index
	catalog  *Catalog
	scoring  Scoring
	fallback models.ICPProfile
	logger   *zap.Logger
}

var _ Matcher = (*ICPMatcher)(nil)

func New(embedder llm.Embedder, idx index.Index, catalog *Catalog, scoring Scoring, logger *zap.Logger) *ICPMatcher {
	if scoring.TopK <= 0 {
		scoring.TopK = 3
	}
	return &ICPMatcher{
		embedder: embedder,
		index:    idx,
		catalog:  catalog,
		scoring:  scoring,
		fallback: DefaultProfile(),
		logger:   logger.Named("matcher"),
	}
}

// QueryText is the text a classification is embedded under.
func QueryText(c models.ClassificationResult) string {
	return strings.Join([]string{c.Category, c.BehavioralSegment, c.IntentSummary}, " ")
}

func (m *ICPMatcher) Match(ctx context.Context, c models.ClassificationResult) models.ICPMatch {
	return m.TopMatches(ctx, c)[0]
}

// TopMatches returns at least one match, best first.
func (m *ICPMatcher) TopMatches(ctx context.Context, c models.ClassificationResult) []models.ICPMatch {
	vector, err := m.embedder.Embed(ctx, QueryText(c))
	if err != nil {
		m.logger.Warn("Failed to embed query, using default profile", zap.Error(err))
		return []models.ICPMatch{m.fallbackMatch()}
	}

	results, err := m.index.Search(vector, 0)
	if err != nil {
		if errors.Is(err, errs.ErrEmptyIndex) {
			m.logger.Info("ICP index is empty, using default profile")
		} else {
			m.logger.Warn("ICP search failed, using default profile", zap.Error(err))
		}
		return []models.ICPMatch{m.fallbackMatch()}
	}

	// insertion order first so the stable sort breaks score ties by it
	sort.Slice(results, func(i, j int) bool { return results[i].Position < results[j].Position })

	matches := make([]models.ICPMatch, 0, len(results))
	for _, r := range results {
		profile, ok := m.catalog.Get(r.ID)
		if !ok {
			m.logger.Warn("Indexed profile missing from catalog", zap.String("icp_id", r.ID))
			continue
		}
		similarity := index.Similarity(m.index.Metric(), r.Distance)
		matches = append(matches, newMatch(profile, m.score(similarity, c, profile)))
	}
	if len(matches) == 0 {
		return []models.ICPMatch{m.fallbackMatch()}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > m.scoring.TopK {
		matches = matches[:m.scoring.TopK]
	}
	return matches
}

func (m *ICPMatcher) score(similarity float64, c models.ClassificationResult, p models.ICPProfile) float64 {
	score := m.scoring.SemanticWeight * similarity
	if industryOverlaps(c.Category, p.Industry) {
		score += m.scoring.IndustryBonus
	}
	if c.Urgency == models.UrgencyHigh {
		score += m.scoring.UrgencyBonus
	}
	return clamp01(score)
}

// industryOverlaps reports whether the category appears inside the industry.
func industryOverlaps(category, industry string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	industry = strings.ToLower(strings.TrimSpace(industry))
	if category == "" || industry == "" {
		return false
	}
	return strings.Contains(industry, category)
}

func (m *ICPMatcher) fallbackMatch() models.ICPMatch {
	return newMatch(m.fallback, fallbackScore)
}

// FallbackMatch is the match for DefaultProfile.
func FallbackMatch() models.ICPMatch {
	return newMatch(DefaultProfile(), fallbackScore)
}

func newMatch(p models.ICPProfile, score float64) models.ICPMatch {
	return models.ICPMatch{
		ProfileID:          p.ID,
		Name:               p.Name,
		Industry:           p.Industry,
		Score:              score,
		Likelihood:         models.LikelihoodFor(score),
		ChannelPreferences: p.ChannelPreferences.Clone(),
	}
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
