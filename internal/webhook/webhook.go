package webhook

import (
	"context"
	"time"
)

const ReportWebhookSchemaVersion = "1"

type ReportActionItem struct {
	Task     string `json:"task"`
	Owner    string `json:"owner,omitempty"`
	Deadline string `json:"deadline,omitempty"`
	Priority string `json:"priority"`
}

type ReportWebhookPayload struct {
	SchemaVersion    string             `json:"schema_version"`
	SessionID        int64              `json:"session_id"`
	RecordID         int64              `json:"record_id,omitempty"`
	State            string             `json:"state"`
	Platform         string             `json:"platform"`
	MeetingURL       string             `json:"meeting_url"`
	StartedAt        time.Time          `json:"started_at"`
	EndedAt          time.Time          `json:"ended_at"`
	DurationSeconds  int64              `json:"duration_seconds"`
	ExecutiveSummary string             `json:"executive_summary"`
	ActionItems      []ReportActionItem `json:"action_items"`
	ReportPath       string             `json:"report_path"`
	EmailSent        bool               `json:"email_sent"`
}

type Sender interface {
	SendReport(ctx context.Context, payload ReportWebhookPayload) error
}
