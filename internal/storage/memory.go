package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/xaenox/outreach-router/internal/errs"
	"github.com/xaenox/outreach-router/internal/models"
)

type MemoryStorage struct {
	mu        sync.RWMutex
	profiles  map[string]*models.ICPProfile
	order     []string
	campaigns []*models.Campaign
	audit     []*models.AuditRecord
	exports   []*models.ExportRecord
	nextAudit int64
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		profiles: make(map[string]*models.ICPProfile),
	}
}

func (s *MemoryStorage) SaveICPProfile(ctx context.Context, profile *models.ICPProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now()
	}
	if _, exists := s.profiles[profile.ID]; !exists {
		s.order = append(s.order, profile.ID)
	}
	s.profiles[profile.ID] = cloneProfile(profile)
	return nil
}

func (s *MemoryStorage) GetICPProfile(ctx context.Context, id string) (*models.ICPProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, exists := s.profiles[id]; exists {
		return cloneProfile(p), nil
	}
	return nil, eris.Wrapf(errs.ErrNotFound, "icp profile %s", id)
}

func (s *MemoryStorage) ListICPProfiles(ctx context.Context) ([]*models.ICPProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.ICPProfile, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, cloneProfile(s.profiles[id]))
	}
	return result, nil
}

func (s *MemoryStorage) SaveRun(ctx context.Context, campaign *models.Campaign, audit *models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now()
	}
	c := *campaign
	s.campaigns = append(s.campaigns, &c)
	s.appendAudit(audit)
	return nil
}

func (s *MemoryStorage) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.campaigns {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, eris.Wrapf(errs.ErrNotFound, "campaign %s", id)
}

// ListCampaigns returns the newest campaigns first.
func (s *MemoryStorage) ListCampaigns(ctx context.Context, limit int) ([]*models.Campaign, error) {
	if limit <= 0 {
		limit = DefaultCampaignLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Campaign, 0, limit)
	for i := len(s.campaigns) - 1; i >= 0 && len(result) < limit; i-- {
		c := *s.campaigns[i]
		result = append(result, &c)
	}
	return result, nil
}

func (s *MemoryStorage) ListAudit(ctx context.Context, filter models.AuditFilter) ([]*models.AuditRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.AuditRecord, 0, limit)
	for i := len(s.audit) - 1; i >= 0 && len(result) < limit; i-- {
		a := s.audit[i]
		if filter.Channel != "" && a.Channel != filter.Channel {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	return result, nil
}

func (s *MemoryStorage) SaveExport(ctx context.Context, export *models.ExportRecord, audit *models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if export.CreatedAt.IsZero() {
		export.CreatedAt = now()
	}
	e := *export
	s.exports = append(s.exports, &e)
	if audit != nil {
		s.appendAudit(audit)
	}
	return nil
}

func (s *MemoryStorage) ExportStats(ctx context.Context) ([]models.ExportStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byChannel := make(map[models.Channel]*models.ExportStat)
	for _, e := range s.exports {
		st, ok := byChannel[e.Channel]
		if !ok {
			st = &models.ExportStat{Channel: e.Channel}
			byChannel[e.Channel] = st
		}
		st.Total++
		if e.Status.Succeeded() {
			st.Succeeded++
		}
	}

	result := make([]models.ExportStat, 0, len(byChannel))
	for _, st := range byChannel {
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Channel < result[j].Channel })
	return result, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

// appendAudit expects s.mu to be held.
func (s *MemoryStorage) appendAudit(audit *models.AuditRecord) {
	s.nextAudit++
	audit.ID = s.nextAudit
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = now()
	}
	a := *audit
	s.audit = append(s.audit, &a)
}

func cloneProfile(p *models.ICPProfile) *models.ICPProfile {
	cp := *p
	cp.ChannelPreferences = p.ChannelPreferences.Clone()
	return &cp
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
