package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/meeting"
	"github.com/foxseedlab/meetbot/internal/repository"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

// GetStatus returns the live snapshot, or one rebuilt from the stored
// record when the id is not in this process's registry.
func (m *Manager) GetStatus(ctx context.Context, id int64) (Snapshot, error) {
	if s, ok := m.registry.Get(id); ok {
		return s.Snapshot(), nil
	}
	if m.repo == nil {
		return Snapshot{}, ErrSessionNotFound
	}
	rec, err := m.repo.GetMeeting(ctx, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get meeting %d: %w", id, err)
	}
	if rec == nil {
		return Snapshot{}, ErrSessionNotFound
	}
	return snapshotFromRecord(*rec), nil
}

func (m *Manager) Transcript(ctx context.Context, id int64) (transcriber.Transcript, error) {
	snap, err := m.GetStatus(ctx, id)
	if err != nil {
		return transcriber.Transcript{}, err
	}
	if snap.Outputs.Transcript == nil {
		return transcriber.Transcript{}, ErrNotAvailable
	}
	return labeledTranscript(snap), nil
}

func (m *Manager) Summary(ctx context.Context, id int64) (analysis.Summary, error) {
	return stageValue(m, ctx, id, func(o Outputs) *StageResult[analysis.Summary] { return o.Summary })
}

func (m *Manager) Diarization(ctx context.Context, id int64) (analysis.Diarization, error) {
	return stageValue(m, ctx, id, func(o Outputs) *StageResult[analysis.Diarization] { return o.Diarization })
}

func (m *Manager) Topics(ctx context.Context, id int64) (analysis.Topics, error) {
	return stageValue(m, ctx, id, func(o Outputs) *StageResult[analysis.Topics] { return o.Topics })
}

func (m *Manager) Sentiment(ctx context.Context, id int64) (analysis.Sentiment, error) {
	return stageValue(m, ctx, id, func(o Outputs) *StageResult[analysis.Sentiment] { return o.Sentiment })
}

func (m *Manager) ActionItems(ctx context.Context, id int64) (analysis.ActionItems, error) {
	return stageValue(m, ctx, id, func(o Outputs) *StageResult[analysis.ActionItems] { return o.ActionItems })
}

func (m *Manager) Analytics(ctx context.Context, id int64) (analysis.Metrics, error) {
	return stageValue(m, ctx, id, func(o Outputs) *StageResult[analysis.Metrics] { return o.Analytics })
}

func (m *Manager) Followup(ctx context.Context, id int64) (analysis.FollowupEmail, error) {
	f, err := stageValue(m, ctx, id, func(o Outputs) *StageResult[analysis.FollowupEmail] { return o.Followup })
	if err != nil {
		return f, err
	}
	if f.Subject == "" {
		return f, ErrNotAvailable
	}
	return f, nil
}

func (m *Manager) ReportPath(ctx context.Context, id int64) (string, error) {
	snap, err := m.GetStatus(ctx, id)
	if err != nil {
		return "", err
	}
	if snap.Outputs.ReportPath == "" {
		return "", ErrNotAvailable
	}
	return snap.Outputs.ReportPath, nil
}

// ListRecent lists stored meetings, newest first.
func (m *Manager) ListRecent(ctx context.Context, limit int) ([]repository.Meeting, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, MaxRecentLimit)
	if m.repo == nil {
		return []repository.Meeting{}, nil
	}
	return m.repo.ListRecentMeetings(ctx, limit)
}

// Sessions lists the sessions started by this process, newest first.
func (m *Manager) Sessions() []Snapshot {
	list := m.registry.List()
	out := make([]Snapshot, 0, len(list))
	for _, s := range list {
		out = append(out, s.Snapshot())
	}
	return out
}

func stageValue[T any](m *Manager, ctx context.Context, id int64, pick func(Outputs) *StageResult[T]) (T, error) {
	var zero T
	snap, err := m.GetStatus(ctx, id)
	if err != nil {
		return zero, err
	}
	r := pick(snap.Outputs)
	if r == nil {
		return zero, ErrNotAvailable
	}
	return r.Value, nil
}

func snapshotFromRecord(rec repository.Meeting) Snapshot {
	snap := Snapshot{
		ID:              rec.ID,
		MeetingURL:      rec.MeetingURL,
		Recipient:       rec.EmailRecipient,
		Platform:        meeting.Platform(rec.Platform),
		State:           StateCompleted,
		StartedAt:       rec.StartTime,
		AudioPath:       rec.AudioFile,
		DurationSeconds: rec.DurationSeconds,
		RecordID:        rec.ID,
		EmailSent:       rec.EmailSent,
	}
	if rec.EndTime != nil {
		snap.EndedAt = *rec.EndTime
	}
	snap.Outputs.ReportPath = rec.PDFPath

	var stored storedOutputs
	if len(rec.OutputsJSON) > 0 {
		if err := json.Unmarshal(rec.OutputsJSON, &stored); err != nil {
			slog.Warn("failed to decode stored outputs", "record_id", rec.ID, "error", err)
		}
	}
	if rec.Transcript != "" {
		snap.Outputs.Transcript = &transcriber.Transcript{
			Text:            rec.Transcript,
			Segments:        stored.Segments,
			DurationSeconds: rec.DurationSeconds,
		}
	}
	if len(rec.SummaryJSON) > 0 {
		summary := analysis.EmptySummary()
		if err := json.Unmarshal(rec.SummaryJSON, &summary); err != nil {
			slog.Warn("failed to decode stored summary", "record_id", rec.ID, "error", err)
		} else {
			snap.Outputs.Summary = &StageResult[analysis.Summary]{Status: StageSucceeded, Value: summary}
		}
	}
	snap.EndReason = stored.EndReason
	snap.Outputs.Diarization = stored.Diarization
	snap.Outputs.Topics = stored.Topics
	snap.Outputs.Sentiment = stored.Sentiment
	snap.Outputs.ActionItems = stored.ActionItems
	snap.Outputs.Analytics = stored.Analytics
	snap.Outputs.Followup = stored.Followup
	return snap
}

// Wait blocks until the session's driver returns and reports its final snapshot.
func (m *Manager) Wait(ctx context.Context, id int64) (Snapshot, error) {
	s, ok := m.registry.Get(id)
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	select {
	case <-s.Done():
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}
