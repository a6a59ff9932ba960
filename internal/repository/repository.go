package repository

import (
	"context"
	"time"
)

type SaveMeetingInput struct {
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
	EmailRecipient  string
}

type Repository interface {
	SaveMeeting(ctx context.Context, input SaveMeetingInput) (int64, error)
	GetMeeting(ctx context.Context, id int64) (*Meeting, error)
	ListRecentMeetings(ctx context.Context, limit int) ([]Meeting, error)
	MarkEmailSent(ctx context.Context, id int64, recipient string) error
	UpdateMeetingOutputs(ctx context.Context, id int64, outputsJSON []byte) error
	DeleteMeeting(ctx context.Context, id int64) error
}
