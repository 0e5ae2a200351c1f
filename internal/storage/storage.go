package storage

import (
	"context"

	"github.com/xaenox/outreach-router/internal/models"
)

const (
	DefaultCampaignLimit = 50
	DefaultAuditLimit    = 100
)

type Storage interface {
	ProfileStorage
	RunStorage
	ExportStorage
	Close() error
}

// ProfileStorage persists ICP profiles.
type ProfileStorage interface {
	SaveICPProfile(ctx context.Context, profile *models.ICPProfile) error
	GetICPProfile(ctx context.Context, id string) (*models.ICPProfile, error)
	ListICPProfiles(ctx context.Context) ([]*models.ICPProfile, error)
}

// RunStorage keeps the history of completed pipeline runs.
type RunStorage interface {
	// SaveRun writes the campaign and its audit record atomically.
	SaveRun(ctx context.Context, campaign *models.Campaign, audit *models.AuditRecord) error
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, limit int) ([]*models.Campaign, error)
	ListAudit(ctx context.Context, filter models.AuditFilter) ([]*models.AuditRecord, error)
}

// ExportStorage records delivery attempts.
type ExportStorage interface {
	SaveExport(ctx context.Context, export *models.ExportRecord, audit *models.AuditRecord) error
	ExportStats(ctx context.Context) ([]models.ExportStat, error)
}
