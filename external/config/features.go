package config

import (
	"errors"
	"fmt"
	"os"

	internalconfig "github.com/foxseedlab/meetbot/internal/config"
	"gopkg.in/yaml.v3"
)

type toggle struct {
	Enabled *bool `yaml:"enabled"`
}

type featureFile struct {
	Diarization toggle `yaml:"diarization"`
	Topics      struct {
		Enabled   *bool `yaml:"enabled"`
		MaxTopics int   `yaml:"max_topics"`
	} `yaml:"topics"`
	Sentiment   toggle `yaml:"sentiment"`
	ActionItems toggle `yaml:"action_items"`
	Analytics   toggle `yaml:"analytics"`
	Memory      toggle `yaml:"memory"`
	Followup    struct {
		Enabled     *bool  `yaml:"enabled"`
		SenderName  string `yaml:"sender_name"`
		CompanyName string `yaml:"company_name"`
	} `yaml:"followup"`
	Report struct {
		DOCX bool `yaml:"docx"`
	} `yaml:"report"`
}

// LoadFeatures reads the optional feature file. An empty path yields defaults.
func LoadFeatures(path string) (internalconfig.Features, error) {
	features := internalconfig.DefaultFeatures()
	if path == "" {
		return features, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return features, fmt.Errorf("features file %s does not exist", path)
		}
		return features, fmt.Errorf("read features file: %w", err)
	}
	return parseFeatures(b)
}

func parseFeatures(b []byte) (internalconfig.Features, error) {
	features := internalconfig.DefaultFeatures()
	var raw featureFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return features, fmt.Errorf("parse features file: %w", err)
	}

	apply(&features.Diarization, raw.Diarization.Enabled)
	apply(&features.Topics, raw.Topics.Enabled)
	apply(&features.Sentiment, raw.Sentiment.Enabled)
	apply(&features.ActionItems, raw.ActionItems.Enabled)
	apply(&features.Analytics, raw.Analytics.Enabled)
	apply(&features.Memory, raw.Memory.Enabled)
	apply(&features.Followup, raw.Followup.Enabled)
	if raw.Topics.MaxTopics != 0 {
		features.MaxTopics = raw.Topics.MaxTopics
	}
	if raw.Followup.SenderName != "" {
		features.SenderName = raw.Followup.SenderName
	}
	features.CompanyName = raw.Followup.CompanyName
	features.ReportDOCX = raw.Report.DOCX
	return features, nil
}

func apply(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
