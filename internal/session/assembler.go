package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/mailer"
	"github.com/foxseedlab/meetbot/internal/memory"
	"github.com/foxseedlab/meetbot/internal/report"
	"github.com/foxseedlab/meetbot/internal/repository"
	"github.com/foxseedlab/meetbot/internal/webhook"
)

// Assembler turns enriched outputs into the report, the stored record, and
// the deliveries. Only report rendering can fail the session.
type Assembler struct {
	renderer report.Renderer
	repo     repository.Repository
	memory   memory.Index
	followup analysis.FollowupWriter
	mailer   mailer.Mailer
	webhook  webhook.Sender
	features config.Features
	location *time.Location
}

func (a *Assembler) Assemble(ctx context.Context, s *Session) error {
	id := s.id

	s.enterPhase(PhaseGeneratingReport)
	path, err := runHard(ctx, id, string(PhaseGeneratingReport), func(ctx context.Context) (string, error) {
		return a.renderer.Render(ctx, buildReportDocument(s.cur, a.location))
	})
	if err != nil {
		return newFailure(FailureReport, err)
	}
	s.update(func(sn *Snapshot) { sn.Outputs.ReportPath = path })

	a.persist(ctx, s)

	s.enterPhase(PhaseStoringMemory)
	recordID := s.cur.RecordID
	stored := runSoft(ctx, id, PhaseStoringMemory, a.features.Memory && a.memory != nil && recordID > 0, 0,
		func(ctx context.Context) (int, error) {
			snap := s.cur
			return a.memory.StoreMeeting(ctx, memory.MeetingContent{
				MeetingID:   recordID,
				MeetingURL:  snap.MeetingURL,
				Platform:    string(snap.Platform),
				MeetingDate: snap.StartedAt,
				Transcript:  transcriptOf(snap).Text,
				Summary:     valueOf(snap.Outputs.Summary, analysis.EmptySummary()),
			})
		})
	recordStage(s, PhaseStoringMemory, stored, func(o *Outputs) { o.Memory = stored })

	s.enterPhase(PhaseGeneratingFollowup)
	followup := runSoft(ctx, id, PhaseGeneratingFollowup, a.features.Followup && a.followup != nil, analysis.EmptyFollowup(),
		func(ctx context.Context) (analysis.FollowupEmail, error) {
			snap := s.cur
			return a.followup.GenerateFollowup(ctx, analysis.FollowupInput{
				Title:       meetingTitle(snap),
				Platform:    string(snap.Platform),
				MeetingDate: snap.StartedAt.In(a.location),
				Recipient:   snap.Recipient,
				Summary:     valueOf(snap.Outputs.Summary, analysis.EmptySummary()),
				ActionItems: valueOf(snap.Outputs.ActionItems, analysis.EmptyActionItems()),
				Topics:      valueOf(snap.Outputs.Topics, analysis.EmptyTopics()),
			})
		})
	recordStage(s, PhaseGeneratingFollowup, followup, func(o *Outputs) { o.Followup = followup })
	if followup.Usable() {
		a.storeFollowup(ctx, s)
	}

	s.enterPhase(PhaseSendingDelivery)
	a.deliver(ctx, s)
	a.notify(ctx, s)
	return nil
}

// persist saves the record once. A failure is kept on the session and the
// in-memory outputs stay servable.
func (a *Assembler) persist(ctx context.Context, s *Session) {
	if a.repo == nil {
		return
	}
	input, err := buildMeetingInput(s.cur)
	if err == nil {
		var recordID int64
		recordID, err = runHard(ctx, s.id, "persistence", func(ctx context.Context) (int64, error) {
			return a.repo.SaveMeeting(ctx, input)
		})
		if err == nil {
			s.update(func(sn *Snapshot) { sn.RecordID = recordID })
			slog.Info("meeting record saved", "session_id", s.id, "record_id", recordID)
			return
		}
	}
	slog.Error("failed to persist meeting record", "session_id", s.id, "error", err)
	s.recordStepError("persistence", newFailure(FailurePersistence, err))
}

// storeFollowup rewrites the stored outputs once the follow-up exists, since
// the record is saved before it is generated.
func (a *Assembler) storeFollowup(ctx context.Context, s *Session) {
	if a.repo == nil || s.cur.RecordID <= 0 {
		return
	}
	outputs, err := encodeOutputs(s.cur)
	if err == nil {
		_, err = runHard(ctx, s.id, "persistence", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.repo.UpdateMeetingOutputs(ctx, s.cur.RecordID, outputs)
		})
	}
	if err != nil {
		slog.Warn("failed to store follow-up email on the meeting record", "session_id", s.id, "record_id", s.cur.RecordID, "error", err)
	}
}

func (a *Assembler) deliver(ctx context.Context, s *Session) {
	snap := s.cur
	if !snap.SendEmail || snap.Recipient == "" || a.mailer == nil {
		return
	}
	date := snap.StartedAt.In(a.location)
	msg := mailer.Message{
		To:             snap.Recipient,
		Subject:        deliverySubject(snap.Platform, date),
		TextBody:       defaultDeliveryText(snap.Platform, date),
		HTMLBody:       defaultDeliveryHTML(snap.Platform, date),
		AttachmentPath: snap.Outputs.ReportPath,
	}
	if f := snap.Outputs.Followup; f.Usable() && f.Value.BodyHTML != "" {
		msg.TextBody = f.Value.Body
		msg.HTMLBody = f.Value.BodyHTML
	}
	_, err := runHard(ctx, s.id, "delivery", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.mailer.Send(ctx, msg)
	})
	if err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			slog.Warn("email requested but delivery is not configured", "session_id", s.id)
		} else {
			slog.Error("failed to deliver meeting report", "session_id", s.id, "recipient", snap.Recipient, "error", err)
		}
		s.recordStepError("delivery", newFailure(FailureDelivery, err))
		return
	}
	s.update(func(sn *Snapshot) { sn.EmailSent = true })
	if snap.RecordID > 0 && a.repo != nil {
		if err := a.repo.MarkEmailSent(ctx, snap.RecordID, snap.Recipient); err != nil {
			slog.Warn("failed to mark email as sent", "session_id", s.id, "record_id", snap.RecordID, "error", err)
		}
	}
}

func (a *Assembler) notify(ctx context.Context, s *Session) {
	if a.webhook == nil {
		return
	}
	payload := buildWebhookPayload(s.cur, StateCompleted)
	_, err := runHard(ctx, s.id, "webhook", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.webhook.SendReport(ctx, payload)
	})
	if err != nil {
		slog.Error("failed to send report webhook", "session_id", s.id, "error", err)
		s.recordStepError("webhook", newFailure(FailureDelivery, err))
	}
}
