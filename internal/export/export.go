// Package export hands finished copy to a delivery collaborator and records each attempt.
package export

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/models"
	"github.com/xaenox/outreach-router/internal/storage"
)

// Deliverer physically sends an artifact. Implementations live outside the core.
type Deliverer interface {
	Deliver(ctx context.Context, channel models.Channel, destination string, artifact models.ContentArtifact) error
}

type Recorder struct {
	runs      storage.RunStorage
	exports   storage.ExportStorage
	deliverer Deliverer
	logger    *zap.Logger
}

func NewRecorder(runs storage.RunStorage, exports storage.ExportStorage, deliverer Deliverer, logger *zap.Logger) *Recorder {
	return &Recorder{
		runs:      runs,
		exports:   exports,
		deliverer: deliverer,
		logger:    logger.Named("export"),
	}
}

// Export delivers a stored campaign once. Call campaigns are queued for a
// caller instead of delivered. A delivery failure is recorded and returned in
// the record, not as an error; errors mean the record itself could not be written.
func (r *Recorder) Export(ctx context.Context, campaignID, destination string) (*models.ExportRecord, error) {
	campaign, err := r.runs.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, eris.Wrapf(err, "load campaign %s", campaignID)
	}

	record := &models.ExportRecord{
		ID:          uuid.NewString(),
		CampaignID:  campaign.ID,
		Channel:     campaign.Channel,
		Destination: destination,
		Status:      models.ExportSuccess,
	}

	artifact := campaign.Artifact()
	if err := r.send(ctx, campaign, destination, artifact); err != nil {
		record.Status = models.ExportFailed
		record.ErrorMessage = err.Error()
		r.logger.Warn("Delivery failed",
			zap.String("campaign_id", campaign.ID),
			zap.String("channel", string(campaign.Channel)),
			zap.Error(err))
	} else if campaign.Channel == models.ChannelCall {
		record.Status = models.ExportQueued
	}

	audit := &models.AuditRecord{
		RunID:         campaign.ID,
		Action:        models.ExportAction(campaign.Channel),
		InputText:     destination,
		OutputText:    artifact.Body,
		Channel:       campaign.Channel,
		ICPID:         campaign.ICPID,
		PriorityScore: campaign.PriorityScore,
	}
	if err := r.exports.SaveExport(ctx, record, audit); err != nil {
		return nil, eris.Wrapf(err, "record export of %s", campaign.ID)
	}

	r.logger.Info("Export recorded",
		zap.String("export_id", record.ID),
		zap.String("campaign_id", campaign.ID),
		zap.String("status", string(record.Status)))
	return record, nil
}

func (r *Recorder) send(ctx context.Context, campaign *models.Campaign, destination string, artifact models.ContentArtifact) error {
	if campaign.Channel != models.ChannelCall {
		return r.deliverer.Deliver(ctx, campaign.Channel, destination, artifact)
	}
	// the script waits in the call queue for a person to dial
	if destination == "" {
		return eris.New("no phone number for call queue")
	}
	r.logger.Info("Call queued",
		zap.String("campaign_id", campaign.ID),
		zap.String("phone", destination),
		zap.Float64("priority", campaign.PriorityScore))
	return nil
}

// LogDeliverer only logs the artifact. It stands in for real channel integrations.
type LogDeliverer struct {
	logger *zap.Logger
}

func NewLogDeliverer(logger *zap.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger.Named("delivery")}
}

func (d *LogDeliverer) Deliver(_ context.Context, channel models.Channel, destination string, artifact models.ContentArtifact) error {
	if destination == "" {
		return eris.Errorf("no destination for %s delivery", channel)
	}
	d.logger.Info("Simulated delivery",
		zap.String("channel", string(channel)),
		zap.String("destination", destination),
		zap.String("headline", artifact.Headline))
	return nil
}
