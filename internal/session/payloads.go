package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/report"
	"github.com/foxseedlab/meetbot/internal/repository"
	"github.com/foxseedlab/meetbot/internal/transcriber"
	"github.com/foxseedlab/meetbot/internal/webhook"
)

// storedOutputs is the outputs_json column layout.
type storedOutputs struct {
	Diarization *StageResult[analysis.Diarization]   `json:"diarization,omitempty"`
	Topics      *StageResult[analysis.Topics]        `json:"topics,omitempty"`
	Sentiment   *StageResult[analysis.Sentiment]     `json:"sentiment,omitempty"`
	ActionItems *StageResult[analysis.ActionItems]   `json:"action_items,omitempty"`
	Analytics   *StageResult[analysis.Metrics]       `json:"analytics,omitempty"`
	Followup    *StageResult[analysis.FollowupEmail] `json:"followup,omitempty"`
	Segments    []transcriber.Segment                `json:"segments,omitempty"`
	EndReason   EndReason                            `json:"end_reason,omitempty"`
}

func valueOf[T any](r *StageResult[T], def T) T {
	if r == nil {
		return def
	}
	return r.Value
}

func meetingTitle(snap Snapshot) string {
	return snap.Platform.DisplayName() + " Meeting"
}

func transcriptOf(snap Snapshot) transcriber.Transcript {
	if snap.Outputs.Transcript == nil {
		return transcriber.Transcript{}
	}
	return *snap.Outputs.Transcript
}

// labeledTranscript attaches diarized speakers to transcript segments.
func labeledTranscript(snap Snapshot) transcriber.Transcript {
	tr := transcriptOf(snap)
	d := valueOf(snap.Outputs.Diarization, analysis.EmptyDiarization())
	if d.NumSpeakers > 0 && len(tr.Segments) > 0 {
		tr.Segments = analysis.AlignSpeakers(tr.Segments, d)
	}
	return tr
}

func endedAt(snap Snapshot) time.Time {
	if snap.EndedAt.IsZero() {
		return snap.StartedAt
	}
	return snap.EndedAt
}

func buildReportDocument(snap Snapshot, loc *time.Location) report.Document {
	return report.Document{
		SessionID:       snap.ID,
		MeetingURL:      snap.MeetingURL,
		Platform:        string(snap.Platform),
		StartedAt:       snap.StartedAt,
		EndedAt:         endedAt(snap),
		Location:        loc,
		DurationSeconds: snap.DurationSeconds,
		Transcript:      labeledTranscript(snap),
		Summary:         valueOf(snap.Outputs.Summary, analysis.EmptySummary()),
		Diarization:     valueOf(snap.Outputs.Diarization, analysis.EmptyDiarization()),
		Topics:          valueOf(snap.Outputs.Topics, analysis.EmptyTopics()),
		Sentiment:       valueOf(snap.Outputs.Sentiment, analysis.EmptySentiment()),
		ActionItems:     valueOf(snap.Outputs.ActionItems, analysis.EmptyActionItems()),
		Metrics:         valueOf(snap.Outputs.Analytics, analysis.EmptyMetrics()),
	}
}

func encodeOutputs(snap Snapshot) ([]byte, error) {
	b, err := json.Marshal(storedOutputs{
		Diarization: snap.Outputs.Diarization,
		Topics:      snap.Outputs.Topics,
		Sentiment:   snap.Outputs.Sentiment,
		ActionItems: snap.Outputs.ActionItems,
		Analytics:   snap.Outputs.Analytics,
		Followup:    snap.Outputs.Followup,
		Segments:    labeledTranscript(snap).Segments,
		EndReason:   snap.EndReason,
	})
	if err != nil {
		return nil, fmt.Errorf("encode outputs: %w", err)
	}
	return b, nil
}

func buildMeetingInput(snap Snapshot) (repository.SaveMeetingInput, error) {
	summary, err := json.Marshal(valueOf(snap.Outputs.Summary, analysis.EmptySummary()))
	if err != nil {
		return repository.SaveMeetingInput{}, fmt.Errorf("encode summary: %w", err)
	}
	outputs, err := encodeOutputs(snap)
	if err != nil {
		return repository.SaveMeetingInput{}, err
	}
	end := endedAt(snap)
	return repository.SaveMeetingInput{
		MeetingURL:      snap.MeetingURL,
		Platform:        string(snap.Platform),
		StartTime:       snap.StartedAt,
		EndTime:         &end,
		DurationSeconds: snap.DurationSeconds,
		AudioFile:       snap.AudioPath,
		Transcript:      transcriptOf(snap).Text,
		SummaryJSON:     summary,
		OutputsJSON:     outputs,
		PDFPath:         snap.Outputs.ReportPath,
		EmailRecipient:  snap.Recipient,
	}, nil
}

func buildWebhookPayload(snap Snapshot, final State) webhook.ReportWebhookPayload {
	summary := valueOf(snap.Outputs.Summary, analysis.EmptySummary())
	items := valueOf(snap.Outputs.ActionItems, analysis.EmptyActionItems()).Items
	if len(items) == 0 {
		items = summary.ActionItems
	}
	actionItems := make([]webhook.ReportActionItem, 0, len(items))
	for _, it := range items {
		actionItems = append(actionItems, webhook.ReportActionItem{
			Task:     it.Task,
			Owner:    it.Owner,
			Deadline: it.Deadline,
			Priority: it.Priority,
		})
	}
	end := endedAt(snap)
	duration := int64(snap.DurationSeconds)
	if duration <= 0 {
		duration = int64(end.Sub(snap.StartedAt).Seconds())
	}
	if duration < 0 {
		duration = 0
	}
	return webhook.ReportWebhookPayload{
		SchemaVersion:    webhook.ReportWebhookSchemaVersion,
		SessionID:        snap.ID,
		RecordID:         snap.RecordID,
		State:            string(final),
		Platform:         string(snap.Platform),
		MeetingURL:       snap.MeetingURL,
		StartedAt:        snap.StartedAt,
		EndedAt:          end,
		DurationSeconds:  duration,
		ExecutiveSummary: summary.ExecutiveSummary,
		ActionItems:      actionItems,
		ReportPath:       snap.Outputs.ReportPath,
		EmailSent:        snap.EmailSent,
	}
}
