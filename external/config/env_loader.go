package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/meetbot/internal/config"
)

type envConfig struct {
	Env                        string   `env:"ENV" envDefault:"production"`
	HTTPAddr                   string   `env:"HTTP_ADDR" envDefault:":8000"`
	BotName                    string   `env:"BOT_NAME" envDefault:"Sunny AI Assistant"`
	MaxDurationMin             int      `env:"MAX_DURATION_MIN" envDefault:"180"`
	EndDetectionIntervalSec    int      `env:"END_DETECTION_INTERVAL_SEC" envDefault:"10"`
	WaitingRoomTimeoutSec      int      `env:"WAITING_ROOM_TIMEOUT_SEC" envDefault:"300"`
	BusyPolicy                 string   `env:"BUSY_POLICY" envDefault:"queue"`
	DefaultTranscribeLanguage  string   `env:"DEFAULT_TRANSCRIBE_LANGUAGE" envDefault:"en-US"`
	DatabaseURL                string   `env:"DATABASE_URL,required"`
	GoogleCloudProjectID       string   `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON string   `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation  string   `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"us"`
	GoogleCloudSpeechModel     string   `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	GeminiAPIKeys              []string `env:"GEMINI_API_KEYS" envSeparator:","`
	GeminiModel                string   `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	DiscordToken               string   `env:"DISCORD_TOKEN"`
	OutputDir                  string   `env:"OUTPUT_DIR" envDefault:"./outputs"`
	RecordingDir               string   `env:"RECORDING_DIR" envDefault:"./recordings"`
	MemoryDBPath               string   `env:"MEMORY_DB_PATH" envDefault:"./outputs/memory.db"`
	InboxDir                   string   `env:"INBOX_DIR"`
	SMTPHost                   string   `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort                   int      `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername               string   `env:"SMTP_USERNAME"`
	SMTPPassword               string   `env:"SMTP_PASSWORD"`
	SMTPFrom                   string   `env:"SMTP_FROM"`
	ReportTimezone             string   `env:"REPORT_TIMEZONE" envDefault:"UTC"`
	ReportWebhookURL           string   `env:"REPORT_WEBHOOK_URL"`
	FeaturesFile               string   `env:"FEATURES_FILE"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	features, err := LoadFeatures(raw.FeaturesFile)
	if err != nil {
		return nil, err
	}

	from := raw.SMTPFrom
	if from == "" {
		from = raw.SMTPUsername
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		HTTPAddr:                   raw.HTTPAddr,
		BotName:                    raw.BotName,
		MaxDurationMin:             raw.MaxDurationMin,
		EndDetectionIntervalSec:    raw.EndDetectionIntervalSec,
		WaitingRoomTimeoutSec:      raw.WaitingRoomTimeoutSec,
		BusyPolicy:                 strings.ToLower(strings.TrimSpace(raw.BusyPolicy)),
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		DatabaseURL:                raw.DatabaseURL,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		GeminiAPIKeys:              cleanKeys(raw.GeminiAPIKeys),
		GeminiModel:                raw.GeminiModel,
		DiscordToken:               raw.DiscordToken,
		OutputDir:                  raw.OutputDir,
		RecordingDir:               raw.RecordingDir,
		MemoryDBPath:               raw.MemoryDBPath,
		InboxDir:                   raw.InboxDir,
		SMTPHost:                   raw.SMTPHost,
		SMTPPort:                   raw.SMTPPort,
		SMTPUsername:               raw.SMTPUsername,
		SMTPPassword:               raw.SMTPPassword,
		SMTPFrom:                   from,
		ReportTimezone:             raw.ReportTimezone,
		ReportWebhookURL:           raw.ReportWebhookURL,
		Features:                   features,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
