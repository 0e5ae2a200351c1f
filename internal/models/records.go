package models

import (
	"strings"
	"time"
)

// AuditAction names what an audit entry records
type AuditAction string

const (
	ActionGenerate AuditAction = "generate"
)

// ExportAction is the audit action for a delivery attempt on a channel.
func ExportAction(c Channel) AuditAction {
	return AuditAction("export_" + strings.ToLower(string(c)))
}

// AuditRecord is written once per completed run and once per export attempt
type AuditRecord struct {
	ID            int64       `json:"id"`
	RunID         string      `json:"run_id"`
	Action        AuditAction `json:"action"`
	TaskType      string      `json:"task_type"`
	InputText     string      `json:"input_text"`
	OutputText    string      `json:"output_text"`
	Channel       Channel     `json:"channel"`
	ICPID         string      `json:"icp_id"`
	PriorityScore float64     `json:"priority_score"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Campaign is the persisted history entry of one pipeline run
type Campaign struct {
	ID            string    `json:"id"`
	Intent        string    `json:"intent"`
	Audience      string    `json:"audience"`
	Urgency       Urgency   `json:"urgency"`
	Channel       Channel   `json:"channel"`
	Headline      string    `json:"headline"`
	Body          string    `json:"body"`
	CTA           string    `json:"cta"`
	Platform      Channel   `json:"platform"`
	ICPID         string    `json:"icp_id"`
	PriorityScore float64   `json:"priority_score"`
	UsedFallback  bool      `json:"used_fallback"`
	CreatedAt     time.Time `json:"created_at"`
}

// Artifact rebuilds the content artifact stored on the campaign.
func (c Campaign) Artifact() ContentArtifact {
	return ContentArtifact{Headline: c.Headline, Body: c.Body, CTA: c.CTA, Platform: c.Platform}
}

type ExportStatus string

const (
	ExportSuccess ExportStatus = "success"
	ExportFailed  ExportStatus = "failed"
	ExportPending ExportStatus = "pending"
	// ExportQueued marks a call script handed to the call queue.
	ExportQueued  ExportStatus = "queued"
)

// Succeeded counts delivered and queued exports.
func (s ExportStatus) Succeeded() bool {
	return s == ExportSuccess || s == ExportQueued
}

// ExportRecord is one physical delivery attempt
type ExportRecord struct {
	ID           string       `json:"id"`
	CampaignID   string       `json:"campaign_id"`
	Channel      Channel      `json:"channel"`
	Status       ExportStatus `json:"status"`
	Destination  string       `json:"destination"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ExportStat aggregates export attempts per channel
type ExportStat struct {
	Channel   Channel `json:"channel"`
	Total     int     `json:"total"`
	Succeeded int     `json:"succeeded"`
}

// AuditFilter narrows audit listings
type AuditFilter struct {
	Channel Channel
	Limit   int
}
