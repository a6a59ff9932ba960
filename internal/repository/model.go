package repository

import "time"

type Meeting struct {
	ID              int64
	MeetingURL      string
	Platform        string
	StartTime       time.Time
	EndTime         *time.Time
	DurationSeconds float64
	AudioFile       string
	Transcript      string
	SummaryJSON     []byte
	OutputsJSON     []byte
	PDFPath         string
	EmailSent       bool
	EmailRecipient  string
	CreatedAt       time.Time
}
