package storage

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xaenox/outreach-router/internal/errs"
	"github.com/xaenox/outreach-router/internal/models"
)

// SQLStorage implements Storage on database/sql. Postgres and SQLite differ only
// in driver, placeholder format and schema file.
type SQLStorage struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger *zap.Logger
}

var _ Storage = (*SQLStorage)(nil)

var profileColumns = []string{
	"id", "name", "industry", "size", "description", "pain_points", "channel_preferences", "created_at",
}

var campaignColumns = []string{
	"id", "intent", "audience", "urgency", "channel", "headline", "body", "cta",
	"platform", "icp_id", "priority_score", "used_fallback", "created_at",
}

var auditColumns = []string{
	"run_id", "action", "task_type", "input_text", "output_text", "channel", "icp_id", "priority_score", "created_at",
}

func newSQLStorage(db *sql.DB, placeholder sq.PlaceholderFormat, logger *zap.Logger) *SQLStorage {
	return &SQLStorage{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger: logger.Named("storage"),
	}
}

func (s *SQLStorage) migrate(ctx context.Context, file string) error {
	migrationSQL, err := migrations.ReadFile(file)
	if err != nil {
		return eris.Wrapf(err, "error reading migrations file %s", file)
	}
	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return eris.Wrap(err, "error executing migrations")
	}
	return nil
}

func (s *SQLStorage) SaveICPProfile(ctx context.Context, profile *models.ICPProfile) error {
	prefs, err := encodePreferences(profile.ChannelPreferences)
	if err != nil {
		return err
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now()
	}

	query, args, err := s.sb.Insert("icp_profiles").
		Columns(profileColumns...).
		Values(profile.ID, profile.Name, profile.Industry, profile.Size, profile.Description,
			profile.PainPoints, prefs, profile.CreatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			industry = excluded.industry,
			size = excluded.size,
			description = excluded.description,
			pain_points = excluded.pain_points,
			channel_preferences = excluded.channel_preferences`).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "error building profile upsert")
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "error saving icp profile %s", profile.ID)
	}
	return nil
}

func (s *SQLStorage) GetICPProfile(ctx context.Context, id string) (*models.ICPProfile, error) {
	query, args, err := s.sb.Select(profileColumns...).From("icp_profiles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "error building profile query")
	}

	p, err := scanProfile(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(errs.ErrNotFound, "icp profile %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "error loading icp profile %s", id)
	}
	return p, nil
}

// ListICPProfiles returns profiles in creation order.
func (s *SQLStorage) ListICPProfiles(ctx context.Context) ([]*models.ICPProfile, error) {
	query, args, err := s.sb.Select(profileColumns...).From("icp_profiles").OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "error building profile query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "error querying icp profiles")
	}
	defer rows.Close()

	var profiles []*models.ICPProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "error scanning icp profile")
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "error iterating icp profiles")
}

func (s *SQLStorage) SaveRun(ctx context.Context, campaign *models.Campaign, audit *models.AuditRecord) error {
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "error starting run transaction")
	}
	defer tx.Rollback()

	query, args, err := s.sb.Insert("campaigns").
		Columns(campaignColumns...).
		Values(campaign.ID, campaign.Intent, campaign.Audience, string(campaign.Urgency), string(campaign.Channel),
			campaign.Headline, campaign.Body, campaign.CTA, string(campaign.Platform), campaign.ICPID,
			campaign.PriorityScore, campaign.UsedFallback, campaign.CreatedAt).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "error building campaign insert")
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "error saving campaign %s", campaign.ID)
	}

	if err := s.insertAudit(ctx, tx, audit); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "error committing run")
}

func (s *SQLStorage) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	query, args, err := s.sb.Select(campaignColumns...).From("campaigns").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "error building campaign query")
	}

	c, err := scanCampaign(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(errs.ErrNotFound, "campaign %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "error loading campaign %s", id)
	}
	return c, nil
}

func (s *SQLStorage) ListCampaigns(ctx context.Context, limit int) ([]*models.Campaign, error) {
	if limit <= 0 {
		limit = DefaultCampaignLimit
	}
	query, args, err := s.sb.Select(campaignColumns...).
		From("campaigns").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "error building campaign query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "error querying campaigns")
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "error scanning campaign")
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, eris.Wrap(rows.Err(), "error iterating campaigns")
}

func (s *SQLStorage) ListAudit(ctx context.Context, filter models.AuditFilter) ([]*models.AuditRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	q := s.sb.Select(append([]string{"id"}, auditColumns...)...).
		From("audit_logs").
		OrderBy("id DESC").
		Limit(uint64(limit))
	if filter.Channel != "" {
		q = q.Where(sq.Eq{"channel": string(filter.Channel)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "error building audit query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "error querying audit logs")
	}
	defer rows.Close()

	var records []*models.AuditRecord
	for rows.Next() {
		a := &models.AuditRecord{}
		var action, channel string
		if err := rows.Scan(&a.ID, &a.RunID, &action, &a.TaskType, &a.InputText, &a.OutputText,
			&channel, &a.ICPID, &a.PriorityScore, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "error scanning audit log")
		}
		a.Action = models.AuditAction(action)
		a.Channel = models.Channel(channel)
		records = append(records, a)
	}
	return records, eris.Wrap(rows.Err(), "error iterating audit logs")
}

func (s *SQLStorage) SaveExport(ctx context.Context, export *models.ExportRecord, audit *models.AuditRecord) error {
	if export.CreatedAt.IsZero() {
		export.CreatedAt = now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "error starting export transaction")
	}
	defer tx.Rollback()

	query, args, err := s.sb.Insert("exports").
		Columns("id", "campaign_id", "channel", "status", "destination", "error_message", "created_at").
		Values(export.ID, export.CampaignID, string(export.Channel), string(export.Status),
			export.Destination, export.ErrorMessage, export.CreatedAt).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "error building export insert")
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "error saving export %s", export.ID)
	}

	if audit != nil {
		if err := s.insertAudit(ctx, tx, audit); err != nil {
			return err
		}
	}
	return eris.Wrap(tx.Commit(), "error committing export")
}

func (s *SQLStorage) ExportStats(ctx context.Context) ([]models.ExportStat, error) {
	query, args, err := s.sb.Select(
		"channel",
		"COUNT(*)",
		"SUM(CASE WHEN status IN ('success', 'queued') THEN 1 ELSE 0 END)",
	).From("exports").GroupBy("channel").OrderBy("channel").ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "error building export stats query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "error querying export stats")
	}
	defer rows.Close()

	var stats []models.ExportStat
	for rows.Next() {
		var st models.ExportStat
		var channel string
		if err := rows.Scan(&channel, &st.Total, &st.Succeeded); err != nil {
			return nil, eris.Wrap(err, "error scanning export stats")
		}
		st.Channel = models.Channel(channel)
		stats = append(stats, st)
	}
	return stats, eris.Wrap(rows.Err(), "error iterating export stats")
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func (s *SQLStorage) insertAudit(ctx context.Context, tx *sql.Tx, audit *models.AuditRecord) error {
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = now()
	}
	query, args, err := s.sb.Insert("audit_logs").
		Columns(auditColumns...).
		Values(audit.RunID, string(audit.Action), audit.TaskType, audit.InputText, audit.OutputText,
			string(audit.Channel), audit.ICPID, audit.PriorityScore, audit.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return eris.Wrap(err, "error building audit insert")
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&audit.ID); err != nil {
		return eris.Wrap(err, "error saving audit log")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.ICPProfile, error) {
	p := &models.ICPProfile{}
	var prefs string
	if err := row.Scan(&p.ID, &p.Name, &p.Industry, &p.Size, &p.Description, &p.PainPoints, &prefs, &p.CreatedAt); err != nil {
		return nil, err
	}
	weights, err := decodePreferences(prefs)
	if err != nil {
		return nil, err
	}
	p.ChannelPreferences = weights
	return p, nil
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	c := &models.Campaign{}
	var urgency, channel, platform string
	if err := row.Scan(&c.ID, &c.Intent, &c.Audience, &urgency, &channel, &c.Headline, &c.Body, &c.CTA,
		&platform, &c.ICPID, &c.PriorityScore, &c.UsedFallback, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Urgency = models.Urgency(urgency)
	c.Channel = models.Channel(channel)
	c.Platform = models.Channel(platform)
	return c, nil
}

func encodePreferences(w models.ChannelWeights) (string, error) {
	if w == nil {
		return "{}", nil
	}
	b, err := json.Marshal(w)
	if err != nil {
		return "", eris.Wrap(err, "error encoding channel preferences")
	}
	return string(b), nil
}

func decodePreferences(s string) (models.ChannelWeights, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var w models.ChannelWeights
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return nil, eris.Wrap(err, "error decoding channel preferences")
	}
	return w, nil
}
