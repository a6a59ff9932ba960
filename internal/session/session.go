package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/meeting"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

type Request struct {
	MeetingURL string
	Recipient  string
	SendEmail  bool
}

type EndReason string

const (
	EndReasonStopped            EndReason = "stopped"
	EndReasonMaxDurationReached EndReason = "max_duration_reached"
	EndReasonRemoteEnded        EndReason = "remote_ended"
	EndReasonImported           EndReason = "imported"
)

// Outputs holds one entry per phase. A nil entry has not been produced yet.
// Entries are written once and never modified afterwards, so snapshots can
// share them.
type Outputs struct {
	Transcript  *transcriber.Transcript
	Diarization *StageResult[analysis.Diarization]
	Topics      *StageResult[analysis.Topics]
	Sentiment   *StageResult[analysis.Sentiment]
	Summary     *StageResult[analysis.Summary]
	ActionItems *StageResult[analysis.ActionItems]
	Analytics   *StageResult[analysis.Metrics]
	Memory      *StageResult[int]
	Followup    *StageResult[analysis.FollowupEmail]
	ReportPath  string
}

type StepError struct {
	Step    string      `json:"step"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

type Snapshot struct {
	ID         int64
	MeetingURL string
	Recipient  string
	SendEmail  bool
	Platform   meeting.Platform

	State       State
	Phase       Phase
	Queued      bool
	EndReason   EndReason
	FailureKind FailureKind
	Error       string

	StartedAt       time.Time
	EndedAt         time.Time
	AudioPath       string
	DurationSeconds float64

	Outputs          Outputs
	RecordID         int64
	EmailSent        bool
	PersistenceError string
	StepErrors       []StepError
}

// Status is the caller-facing status string: the phase while processing,
// the state otherwise.
func (s Snapshot) Status() string {
	if s.State == StateProcessing && s.Phase != "" {
		return string(s.Phase)
	}
	return string(s.State)
}

func (s Snapshot) clone() Snapshot {
	s.StepErrors = append([]StepError(nil), s.StepErrors...)
	return s
}

// Session is written only by its driving goroutine; everyone else reads
// the last published snapshot.
type Session struct {
	id   int64
	req  Request
	now  func() time.Time
	snap atomic.Pointer[Snapshot]
	cur  Snapshot

	stopOnce sync.Once
	stopCh   chan struct{}
	liveOnce sync.Once
	liveDone chan struct{}
	done     chan struct{}
}

func newSession(id int64, req Request, platform meeting.Platform, now func() time.Time) *Session {
	s := &Session{
		id:       id,
		req:      req,
		now:      now,
		stopCh:   make(chan struct{}),
		liveDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.cur = Snapshot{
		ID:         id,
		MeetingURL: req.MeetingURL,
		Recipient:  req.Recipient,
		SendEmail:  req.SendEmail,
		Platform:   platform,
		State:      StateIdle,
		StartedAt:  now(),
	}
	s.publish()
	return s
}

func (s *Session) ID() int64 {
	return s.id
}

func (s *Session) Snapshot() Snapshot {
	return *s.snap.Load()
}

// Done is closed when the driving goroutine returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) publish() {
	snap := s.cur.clone()
	s.snap.Store(&snap)
}

func (s *Session) requestStop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// closeLive signals that the session no longer holds the meeting attachment.
func (s *Session) closeLive() {
	s.liveOnce.Do(func() { close(s.liveDone) })
}

func (s *Session) stopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// liveContext is canceled when a stop is requested.
func (s *Session) liveContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (s *Session) transition(to State) bool {
	from := s.cur.State
	if !canTransition(from, to) {
		slog.Warn("rejected session state transition", "session_id", s.id, "from", from, "to", to)
		return false
	}
	s.cur.State = to
	if to != StateIdle {
		s.cur.Queued = false
	}
	if to != StateProcessing {
		s.cur.Phase = ""
	}
	s.publish()
	slog.Info("session state changed", "session_id", s.id, "from", from, "to", to)
	return true
}

func (s *Session) enterPhase(p Phase) {
	if s.cur.State != StateProcessing {
		return
	}
	if phaseIndex(p) < phaseIndex(s.cur.Phase) {
		slog.Warn("rejected backward phase change", "session_id", s.id, "from", s.cur.Phase, "to", p)
		return
	}
	s.cur.Phase = p
	s.publish()
	slog.Debug("session phase changed", "session_id", s.id, "phase", p)
}

func (s *Session) update(fn func(*Snapshot)) {
	fn(&s.cur)
	s.publish()
}

func (s *Session) fail(f *Failure) {
	if s.cur.State.IsTerminal() {
		slog.Warn("ignoring failure after terminal state", "session_id", s.id, "state", s.cur.State, "kind", f.Kind, "error", f.Err)
		return
	}
	s.cur.FailureKind = f.Kind
	s.cur.Error = f.Error()
	if !s.transition(StateError) {
		s.publish()
	}
	slog.Error("session failed", "session_id", s.id, "kind", f.Kind, "error", f.Err)
}

func (s *Session) recordStepError(step string, f *Failure) {
	s.cur.StepErrors = append(s.cur.StepErrors, StepError{Step: step, Kind: f.Kind, Message: f.Error()})
	if f.Kind == FailurePersistence {
		s.cur.PersistenceError = f.Error()
	}
	s.publish()
}

func (s *Session) markLiveEnded(reason EndReason) {
	if s.cur.EndedAt.IsZero() {
		s.cur.EndedAt = s.now()
	}
	s.cur.EndReason = reason
	s.publish()
}
