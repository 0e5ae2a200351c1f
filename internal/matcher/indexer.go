package matcher

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xaenox/outreach-router/internal/index"
	"github.com/xaenox/outreach-router/internal/llm"
	"github.com/xaenox/outreach-router/internal/models"
)

// ProfileStore persists ICP profiles.
type ProfileStore interface {
	SaveICPProfile(ctx context.Context, profile *models.ICPProfile) error
	ListICPProfiles(ctx context.Context) ([]*models.ICPProfile, error)
}

const embedConcurrency = 4

// Indexer writes profiles into the store, the index and the catalog.
// It runs out of band; callers must not reindex while matches are being served.
type Indexer struct {
	embedder llm.Embedder
	index    *index.FlatIndex
	catalog  *Catalog
	store    ProfileStore
	files    *index.FileStore
	logger   *zap.Logger
}

// NewIndexer wires the index maintenance path. files may be nil.
func NewIndexer(embedder llm.Embedder, idx *index.FlatIndex, catalog *Catalog, store ProfileStore, files *index.FileStore, logger *zap.Logger) *Indexer {
	return &Indexer{
		embedder: embedder,
		index:    idx,
		catalog:  catalog,
		store:    store,
		files:    files,
		logger:   logger.Named("indexer"),
	}
}

// Reindex embeds and stores profiles, keeping their input order as index order.
func (x *Indexer) Reindex(ctx context.Context, profiles []models.ICPProfile) error {
	for _, p := range profiles {
		if p.ID == "" {
			return eris.Errorf("profile %q has no id", p.Name)
		}
	}

	vectors, err := x.embedAll(ctx, profiles)
	if err != nil {
		return err
	}

	for i := range profiles {
		p := profiles[i]
		if err := x.store.SaveICPProfile(ctx, &p); err != nil {
			return eris.Wrapf(err, "save profile %s", p.ID)
		}
		if err := x.index.Upsert(p.ID, vectors[i]); err != nil {
			return eris.Wrapf(err, "index profile %s", p.ID)
		}
		x.catalog.Put(p)
	}

	if err := x.save(ctx); err != nil {
		return err
	}

	x.logger.Info("Reindexed ICP profiles",
		zap.Int("profiles", len(profiles)),
		zap.Int("index_size", x.index.Len()))
	return nil
}

// Restore loads stored profiles into the catalog and embeds any the index lacks.
func (x *Indexer) Restore(ctx context.Context) error {
	stored, err := x.store.ListICPProfiles(ctx)
	if err != nil {
		return eris.Wrap(err, "list profiles")
	}

	var missing []models.ICPProfile
	known := make(map[string]struct{}, x.index.Len())
	for _, e := range x.index.Entries() {
		known[e.ID] = struct{}{}
	}
	for _, p := range stored {
		x.catalog.Put(*p)
		if _, ok := known[p.ID]; !ok {
			missing = append(missing, *p)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	vectors, err := x.embedAll(ctx, missing)
	if err != nil {
		return err
	}
	for i, p := range missing {
		if err := x.index.Upsert(p.ID, vectors[i]); err != nil {
			return eris.Wrapf(err, "index profile %s", p.ID)
		}
	}
	x.logger.Info("Embedded profiles missing from index", zap.Int("count", len(missing)))
	return x.save(ctx)
}

func (x *Indexer) embedAll(ctx context.Context, profiles []models.ICPProfile) ([][]float32, error) {
	vectors := make([][]float32, len(profiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i := range profiles {
		i := i
		g.Go(func() error {
			v, err := x.embedder.Embed(gctx, profiles[i].EmbeddingText())
			if err != nil {
				return eris.Wrapf(err, "embed profile %s", profiles[i].ID)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (x *Indexer) save(ctx context.Context) error {
	if x.files == nil {
		return nil
	}
	return eris.Wrap(x.files.Save(ctx, x.index), "save index file")
}
