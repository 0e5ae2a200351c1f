// Package app wires storage, providers and pipeline stages from configuration.
package app

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/classifier"
	"github.com/xaenox/outreach-router/internal/content"
	"github.com/xaenox/outreach-router/internal/decision"
	"github.com/xaenox/outreach-router/internal/export"
	"github.com/xaenox/outreach-router/internal/index"
	"github.com/xaenox/outreach-router/internal/llm"
	"github.com/xaenox/outreach-router/internal/matcher"
	"github.com/xaenox/outreach-router/internal/models"
	"github.com/xaenox/outreach-router/internal/pipeline"
	"github.com/xaenox/outreach-router/internal/retry"
	"github.com/xaenox/outreach-router/internal/storage"
	"github.com/xaenox/outreach-router/pkg/config"
)

// App owns the long-lived resources. Stage settings come from the current
// config snapshot; replacing the config rebuilds the pipeline, while storage,
// the index and the embedder stay for the life of the process.
type App struct {
	holder    *config.Holder
	store     storage.Storage
	completer llm.Completer
	embedder  llm.Embedder
	index     *index.FlatIndex
	files     *index.FileStore
	catalog   *matcher.Catalog
	indexer   *matcher.Indexer
	exporter  *export.Recorder
	pipeline  atomic.Pointer[pipeline.Pipeline]
	closers   []func() error
	logger    *zap.Logger
}

type options struct {
	completer llm.Completer
	store     storage.Storage
	deliverer export.Deliverer
}

type Option func(*options)

// WithCompleter replaces the OpenAI-compatible client.
func WithCompleter(c llm.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithStorage replaces the configured database.
func WithStorage(s storage.Storage) Option {
	return func(o *options) { o.store = s }
}

// WithDeliverer replaces the logging deliverer used for exports.
func WithDeliverer(d export.Deliverer) Option {
	return func(o *options) { o.deliverer = d }
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{holder: config.NewHolder(cfg), logger: logger}

	store := o.store
	if store == nil {
		var err error
		store, err = openStorage(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	a.completer = o.completer
	if a.completer == nil {
		breaker := llm.NewBreaker(breakerConfig("llm", cfg.Breaker), logger)
		a.completer = llm.NewOpenAIClient(clientConfig(cfg.LLM), breaker, logger)
	}

	embedder, err := a.buildEmbedder(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.embedder = embedder

	if err := a.openIndex(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.catalog = matcher.NewCatalog()
	a.indexer = matcher.NewIndexer(a.embedder, a.index, a.catalog, a.store, a.files, logger)
	if err := a.indexer.Restore(ctx); err != nil {
		a.Close()
		return nil, eris.Wrap(err, "restore icp index")
	}

	deliverer := o.deliverer
	if deliverer == nil {
		deliverer = export.NewLogDeliverer(logger)
	}
	a.exporter = export.NewRecorder(a.store, a.store, deliverer, logger)

	a.pipeline.Store(a.buildPipeline(cfg))
	a.holder.Subscribe(func(next config.Config) {
		a.pipeline.Store(a.buildPipeline(next))
		logger.Info("Configuration replaced, pipeline rebuilt")
	})

	return a, nil
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		return storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode,
		}, logger)
	case "sqlite":
		logger.Info("Using SQLite storage", zap.String("path", cfg.SQLitePath))
		return storage.NewSQLiteStorage(ctx, cfg.SQLitePath, logger)
	}
	return nil, eris.Errorf("unknown database driver %q", cfg.Driver)
}

func (a *App) buildEmbedder(ctx context.Context, cfg config.Config) (llm.Embedder, error) {
	var embedder llm.Embedder
	switch cfg.Embedding.Provider {
	case "", "local":
		embedder = llm.NewHashEmbedder(cfg.Embedding.Dimension)
	case "openai":
		breaker := llm.NewBreaker(breakerConfig("embedding", cfg.Breaker), a.logger)
		embedder = llm.NewOpenAIEmbedder(clientConfig(cfg.LLM), cfg.Embedding.Model, cfg.Embedding.Dimension, breaker)
	default:
		return nil, eris.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	if !cfg.Cache.Enabled {
		return embedder, nil
	}
	kv, err := llm.NewRedisKV(cfg.Cache.RedisURL)
	if err != nil {
		return nil, eris.Wrap(err, "parse redis url")
	}
	if err := kv.Ping(ctx); err != nil {
		a.logger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
		kv.Close()
		return embedder, nil
	}
	a.closers = append(a.closers, kv.Close)
	namespace := cfg.Embedding.Provider + ":" + cfg.Embedding.Model
	return llm.NewCachedEmbedder(embedder, kv, namespace, cfg.Cache.TTL, a.logger), nil
}

func (a *App) openIndex(ctx context.Context, cfg config.Config) error {
	metric, err := index.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return err
	}
	dimension := a.embedder.Dimension()

	if cfg.Index.Path == "" {
		a.index = index.NewFlatIndex(dimension, metric)
		return nil
	}

	files, err := index.OpenFileStore(cfg.Index.Path)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, files.Close)
	a.files = files

	a.index, err = files.Load(ctx, dimension, metric)
	if err != nil {
		return eris.Wrap(err, "load index file")
	}
	a.logger.Info("Loaded ICP index", zap.String("path", cfg.Index.Path), zap.Int("vectors", a.index.Len()))
	return nil
}

func (a *App) buildPipeline(cfg config.Config) *pipeline.Pipeline {
	var fallback classifier.Classifier
	if cfg.Classifier.Rules {
		fallback = classifier.NewRuleClassifier()
	}

	scoring := matcher.Scoring{
		SemanticWeight: cfg.Matcher.SemanticWeight,
		IndustryBonus:  cfg.Matcher.IndustryBonus,
		UrgencyBonus:   cfg.Matcher.UrgencyBonus,
		TopK:           cfg.Matcher.TopK,
	}
	weights := decision.Weights{
		Urgency:    cfg.Decision.Urgency,
		ICP:        cfg.Decision.ICP,
		Objective:  cfg.Decision.Objective,
		Historical: cfg.Decision.Historical,
	}

	return pipeline.New(pipeline.Deps{
		Classifier: classifier.NewGPTClassifier(a.completer, cfg.LLM.ClassifierModel, fallback, a.logger),
		Matcher:    matcher.New(a.embedder, a.index, a.catalog, scoring, a.logger),
		Decider:    decision.New(weights, decision.DefaultTables()),
		Generator: content.NewLLMGenerator(a.completer, cfg.LLM.ContentModel,
			channelWeights(cfg.Content.Temperatures, a.logger),
			retry.NewExponential(cfg.Content.MaxAttempts, cfg.Content.BaseDelay),
			a.logger),
		Store:      a.store,
		Engagement: pipeline.NewExportEngagement(a.store, channelWeights(cfg.Engagement.Defaults, a.logger)),
		Logger:     a.logger,
	})
}

// Run executes one pipeline run against the current configuration.
func (a *App) Run(ctx context.Context, text string) (*pipeline.Result, error) {
	return a.pipeline.Load().Run(ctx, text)
}

// Seed reindexes profiles. It must not run concurrently with Run.
func (a *App) Seed(ctx context.Context, profiles []models.ICPProfile) error {
	return a.indexer.Reindex(ctx, profiles)
}

func (a *App) History(ctx context.Context, limit int) ([]*models.Campaign, error) {
	return a.store.ListCampaigns(ctx, limit)
}

func (a *App) Activity(ctx context.Context, filter models.AuditFilter) ([]*models.AuditRecord, error) {
	return a.store.ListAudit(ctx, filter)
}

func (a *App) ExportStats(ctx context.Context) ([]models.ExportStat, error) {
	return a.store.ExportStats(ctx)
}

func (a *App) Export(ctx context.Context, campaignID, destination string) (*models.ExportRecord, error) {
	return a.exporter.Export(ctx, campaignID, destination)
}

// Config returns the current snapshot with credentials masked.
func (a *App) Config() config.Redacted {
	return a.holder.Load().Redacted()
}

// UpdateConfig publishes a new configuration derived from the current one.
func (a *App) UpdateConfig(fn func(config.Config) config.Config) config.Config {
	return a.holder.Update(fn)
}

func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func clientConfig(cfg config.LLMConfig) llm.ClientConfig {
	return llm.ClientConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
	}
}

func breakerConfig(name string, cfg config.BreakerConfig) llm.BreakerConfig {
	return llm.BreakerConfig{
		Name:                name,
		MaxRequests:         cfg.MaxRequests,
		Interval:            cfg.Interval,
		Timeout:             cfg.Timeout,
		ConsecutiveFailures: cfg.ConsecutiveFailures,
		FailureRatio:        cfg.FailureRatio,
		MinRequests:         cfg.MinRequests,
	}
}

// channelWeights converts config keys, which viper lower-cases, into channels.
func channelWeights(m map[string]float64, logger *zap.Logger) models.ChannelWeights {
	out := make(models.ChannelWeights, len(m))
	for name, w := range m {
		ch, ok := models.ParseChannel(name)
		if !ok {
			logger.Warn("Ignoring unknown channel in config", zap.String("channel", name))
			continue
		}
		out[ch] = w
	}
	return out
}
