package pipeline

import (
	"context"

	"github.com/xaenox/outreach-router/internal/models"
	"github.com/xaenox/outreach-router/internal/storage"
)

// EngagementSource supplies historical engagement weights per channel.
type EngagementSource interface {
	Engagement(ctx context.Context) (models.ChannelWeights, error)
}

// ExportEngagement derives engagement from export success ratios and uses
// defaults for channels that have never been exported.
type ExportEngagement struct {
	stats    storage.ExportStorage
	defaults models.ChannelWeights
}

func NewExportEngagement(stats storage.ExportStorage, defaults models.ChannelWeights) *ExportEngagement {
	return &ExportEngagement{stats: stats, defaults: defaults.Clone()}
}

func (e *ExportEngagement) Engagement(ctx context.Context) (models.ChannelWeights, error) {
	stats, err := e.stats.ExportStats(ctx)
	if err != nil {
		return e.defaults.Clone(), err
	}

	out := e.defaults.Clone()
	if out == nil {
		out = make(models.ChannelWeights)
	}
	for _, st := range stats {
		if st.Total == 0 {
			continue
		}
		out[st.Channel] = float64(st.Succeeded) / float64(st.Total)
	}
	return out, nil
}
