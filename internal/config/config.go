package config

import (
	"fmt"
	"time"
)

const (
	BusyPolicyQueue  = "queue"
	BusyPolicyReject = "reject"
)

type Config struct {
	Env                        string
	HTTPAddr                   string
	BotName                    string
	MaxDurationMin             int
	EndDetectionIntervalSec    int
	WaitingRoomTimeoutSec      int
	BusyPolicy                 string
	DefaultTranscribeLanguage  string
	DatabaseURL                string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	GeminiAPIKeys              []string
	GeminiModel                string
	DiscordToken               string
	OutputDir                  string
	RecordingDir               string
	MemoryDBPath               string
	InboxDir                   string
	SMTPHost                   string
	SMTPPort                   int
	SMTPUsername               string
	SMTPPassword               string
	SMTPFrom                   string
	ReportTimezone             string
	ReportWebhookURL           string
	Features                   Features
}

// Features toggles the optional enrichment stages.
type Features struct {
	Diarization bool
	Topics      bool
	Sentiment   bool
	ActionItems bool
	Analytics   bool
	Memory      bool
	Followup    bool
	MaxTopics   int
	SenderName  string
	CompanyName string
	ReportDOCX  bool
}

func DefaultFeatures() Features {
	return Features{
		Diarization: true,
		Topics:      true,
		Sentiment:   true,
		ActionItems: true,
		Analytics:   true,
		Memory:      true,
		Followup:    true,
		MaxTopics:   10,
		SenderName:  "Sunny AI",
	}
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.MaxDurationMin <= 0 {
		return fmt.Errorf("MAX_DURATION_MIN must be positive, got %d", c.MaxDurationMin)
	}
	if c.EndDetectionIntervalSec <= 0 {
		return fmt.Errorf("END_DETECTION_INTERVAL_SEC must be positive, got %d", c.EndDetectionIntervalSec)
	}
	if c.WaitingRoomTimeoutSec <= 0 {
		return fmt.Errorf("WAITING_ROOM_TIMEOUT_SEC must be positive, got %d", c.WaitingRoomTimeoutSec)
	}
	if c.BusyPolicy != BusyPolicyQueue && c.BusyPolicy != BusyPolicyReject {
		return fmt.Errorf("BUSY_POLICY must be %q or %q, got %q", BusyPolicyQueue, BusyPolicyReject, c.BusyPolicy)
	}
	if (c.SMTPUsername == "") != (c.SMTPPassword == "") {
		return fmt.Errorf("SMTP_USERNAME and SMTP_PASSWORD must be set together")
	}
	if c.ReportTimezone == "" {
		return fmt.Errorf("REPORT_TIMEZONE is required")
	}
	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		return fmt.Errorf("REPORT_TIMEZONE is invalid: %w", err)
	}
	if c.Features.MaxTopics <= 0 {
		return fmt.Errorf("topics.max_topics must be positive, got %d", c.Features.MaxTopics)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DEFAULT_TRANSCRIBE_LANGUAGE", value: c.DefaultTranscribeLanguage},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "OUTPUT_DIR", value: c.OutputDir},
		{name: "RECORDING_DIR", value: c.RecordingDir},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationMin) * time.Minute
}

func (c *Config) EndDetectionInterval() time.Duration {
	return time.Duration(c.EndDetectionIntervalSec) * time.Second
}

func (c *Config) WaitingRoomTimeout() time.Duration {
	return time.Duration(c.WaitingRoomTimeoutSec) * time.Second
}

func (c *Config) EmailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.SMTPPassword != ""
}

// ReportLocation falls back to UTC when the timezone cannot be loaded.
func (c *Config) ReportLocation() *time.Location {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
