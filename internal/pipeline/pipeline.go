// Package pipeline runs the classify, match, decide and generate stages and
// records the completed run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/classifier"
	"github.com/xaenox/outreach-router/internal/content"
	"github.com/xaenox/outreach-router/internal/decision"
	"github.com/xaenox/outreach-router/internal/errs"
	"github.com/xaenox/outreach-router/internal/matcher"
	"github.com/xaenox/outreach-router/internal/models"
	"github.com/xaenox/outreach-router/internal/storage"
)

// Deps are the stage implementations. Engagement may be nil.
type Deps struct {
	Classifier classifier.Classifier
	Matcher    matcher.Matcher
	Decider    decision.DecisionEngine
	Generator  content.Generator
	Store      storage.RunStorage
	Engagement EngagementSource
	Logger     *zap.Logger
}

// Result is everything a run produced.
type Result struct {
	RunID          string                      `json:"run_id"`
	Classification models.ClassificationResult `json:"classification"`
	Match          models.ICPMatch             `json:"match"`
	Candidates     []models.ICPMatch           `json:"candidates"`
	Decision       models.ChannelDecision      `json:"decision"`
	Artifact       models.ContentArtifact      `json:"artifact"`
	UsedFallback   bool                        `json:"used_fallback"`
	Attempts       []content.Attempt           `json:"attempts"`
}

type Pipeline struct {
	deps   Deps
	logger *zap.Logger
}

func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps, logger: deps.Logger.Named("pipeline")}
}

// Run executes the stages in order. It fails only on empty input or when the
// run cannot be persisted; the latter is a *errs.StageError.
func (p *Pipeline) Run(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, eris.Wrap(errs.ErrEmptyInput, "pipeline")
	}

	res := &Result{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", res.RunID))
	start := time.Now()

	stageStart := time.Now()
	res.Classification = p.classify(ctx, log, text)
	log.Info("Stage complete",
		zap.String("stage", errs.StageClassify),
		zap.Duration("took", time.Since(stageStart)),
		zap.String("urgency", string(res.Classification.Urgency)),
		zap.String("category", res.Classification.Category))

	stageStart = time.Now()
	res.Candidates = p.match(ctx, log, res.Classification)
	res.Match = res.Candidates[0]
	log.Info("Stage complete",
		zap.String("stage", errs.StageMatch),
		zap.Duration("took", time.Since(stageStart)),
		zap.String("icp_id", res.Match.ProfileID),
		zap.Float64("score", res.Match.Score))

	stageStart = time.Now()
	res.Decision = p.decide(ctx, log, res.Classification, res.Match)
	log.Info("Stage complete",
		zap.String("stage", errs.StageDecide),
		zap.Duration("took", time.Since(stageStart)),
		zap.String("channel", string(res.Decision.Channel)),
		zap.String("reasoning", res.Decision.Reasoning))

	stageStart = time.Now()
	p.generate(ctx, log, res)
	log.Info("Stage complete",
		zap.String("stage", errs.StageGenerate),
		zap.Duration("took", time.Since(stageStart)),
		zap.Bool("fallback", res.UsedFallback),
		zap.Int("attempts", len(res.Attempts)))

	if err := p.persist(ctx, text, res); err != nil {
		log.Error("Failed to persist run", zap.Error(err))
		return nil, &errs.StageError{Stage: errs.StagePersist, Err: err}
	}

	log.Info("Pipeline run complete", zap.Duration("took", time.Since(start)))
	return res, nil
}

func (p *Pipeline) classify(ctx context.Context, log *zap.Logger, text string) models.ClassificationResult {
	c := p.deps.Classifier.Classify(ctx, text)
	if err := classifier.Validate(c); err != nil {
		log.Warn("Classification failed validation, using fallback", zap.Error(err))
		return classifier.Fallback(text)
	}
	return c
}

func (p *Pipeline) match(ctx context.Context, log *zap.Logger, c models.ClassificationResult) []models.ICPMatch {
	candidates := p.deps.Matcher.TopMatches(ctx, c)
	valid := candidates[:0:0]
	for _, m := range candidates {
		if err := validateMatch(m); err != nil {
			log.Warn("Dropping invalid ICP match", zap.String("icp_id", m.ProfileID), zap.Error(err))
			continue
		}
		valid = append(valid, m)
	}
	if len(valid) == 0 {
		return []models.ICPMatch{matcher.FallbackMatch()}
	}
	return valid
}

func (p *Pipeline) decide(ctx context.Context, log *zap.Logger, c models.ClassificationResult, m models.ICPMatch) models.ChannelDecision {
	in := decision.Input{
		Urgency:              c.Urgency,
		ICPPreference:        m.ChannelPreferences,
		BusinessObjective:    c.TaskType,
		HistoricalEngagement: p.engagement(ctx, log),
	}
	d := p.deps.Decider.Decide(in)
	if _, ok := models.ParseChannel(string(d.Channel)); !ok {
		log.Warn("Decision engine returned unknown channel, using default weights", zap.String("channel", string(d.Channel)))
		return decision.NewDefault().Decide(in)
	}
	return d
}

func (p *Pipeline) engagement(ctx context.Context, log *zap.Logger) models.ChannelWeights {
	if p.deps.Engagement == nil {
		return nil
	}
	w, err := p.deps.Engagement.Engagement(ctx)
	if err != nil {
		log.Warn("Failed to load historical engagement", zap.Error(err))
	}
	return w
}

func (p *Pipeline) generate(ctx context.Context, log *zap.Logger, res *Result) {
	platform := res.Decision.Channel
	brief := fmt.Sprintf("Audience: %s, Intent: %s, Urgency: %s",
		res.Match.Name, res.Classification.IntentSummary, res.Classification.Urgency)

	gen, err := p.deps.Generator.Generate(ctx, platform, brief, nil)
	res.Attempts = gen.Attempts
	switch {
	case errors.Is(err, errs.ErrExhaustedRetries):
		log.Warn("Content generation exhausted retries, using template", zap.Error(err))
	case err != nil:
		log.Error("Content generation failed, using template", zap.Error(err))
	case gen.Artifact.Empty():
		log.Warn("Content generation returned empty copy, using template")
	default:
		res.Artifact = gen.Artifact
		res.Artifact.Platform = platform
		return
	}

	res.Artifact = content.FallbackArtifact(platform, res.Match.Name, res.Classification.Category)
	res.UsedFallback = true
}

func (p *Pipeline) persist(ctx context.Context, text string, res *Result) error {
	campaign := &models.Campaign{
		ID:            res.RunID,
		Intent:        res.Classification.IntentSummary,
		Audience:      res.Match.Name,
		Urgency:       res.Classification.Urgency,
		Channel:       res.Decision.Channel,
		Headline:      res.Artifact.Headline,
		Body:          res.Artifact.Body,
		CTA:           res.Artifact.CTA,
		Platform:      res.Artifact.Platform,
		ICPID:         res.Match.ProfileID,
		PriorityScore: res.Match.Score,
		UsedFallback:  res.UsedFallback,
	}
	audit := &models.AuditRecord{
		RunID:         res.RunID,
		Action:        models.ActionGenerate,
		TaskType:      res.Classification.TaskType,
		InputText:     text,
		OutputText:    res.Artifact.Body,
		Channel:       res.Decision.Channel,
		ICPID:         res.Match.ProfileID,
		PriorityScore: res.Match.Score,
	}
	return p.deps.Store.SaveRun(ctx, campaign, audit)
}

func validateMatch(m models.ICPMatch) error {
	if m.ProfileID == "" || m.Name == "" {
		return fmt.Errorf("%w: match without profile id or name", errs.ErrSchema)
	}
	if m.Score < 0 || m.Score > 1 {
		return fmt.Errorf("%w: match score %v out of range", errs.ErrSchema, m.Score)
	}
	return nil
}
