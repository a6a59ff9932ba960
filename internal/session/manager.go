package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/mailer"
	"github.com/foxseedlab/meetbot/internal/meeting"
	"github.com/foxseedlab/meetbot/internal/memory"
	"github.com/foxseedlab/meetbot/internal/recording"
	"github.com/foxseedlab/meetbot/internal/report"
	"github.com/foxseedlab/meetbot/internal/repository"
	"github.com/foxseedlab/meetbot/internal/transcriber"
	"github.com/foxseedlab/meetbot/internal/webhook"
)

const (
	cleanupTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second

	defaultMaxDuration          = 180 * time.Minute
	defaultEndDetectionInterval = 10 * time.Second
	defaultWaitingRoomTimeout   = 5 * time.Minute
)

type Options struct {
	MaxDuration          time.Duration
	EndDetectionInterval time.Duration
	WaitingRoomTimeout   time.Duration
	BusyPolicy           string
	ReportLocation       *time.Location
	Features             config.Features
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxDuration:          cfg.MaxDuration(),
		EndDetectionInterval: cfg.EndDetectionInterval(),
		WaitingRoomTimeout:   cfg.WaitingRoomTimeout(),
		BusyPolicy:           cfg.BusyPolicy,
		ReportLocation:       cfg.ReportLocation(),
		Features:             cfg.Features,
	}
}

type Dependencies struct {
	Joiner      meeting.Joiner
	Recorder    recording.Recorder
	Transcriber transcriber.Transcriber
	Diarizer    analysis.Diarizer
	Topics      analysis.TopicSegmenter
	Sentiment   analysis.SentimentAnalyzer
	Summarizer  analysis.Summarizer
	ActionItems analysis.ActionItemExtractor
	Analytics   analysis.AnalyticsComputer
	Followup    analysis.FollowupWriter
	Renderer    report.Renderer
	Repository  repository.Repository
	Memory      memory.Index
	Mailer      mailer.Mailer
	Webhook     webhook.Sender
}

// Manager owns the session registry and one driving goroutine per session.
type Manager struct {
	opts      Options
	joiner    meeting.Joiner
	recorder  recording.Recorder
	repo      repository.Repository
	registry  *Registry
	slot      *liveSlot
	monitor   *Monitor
	enricher  *Enricher
	assembler *Assembler
	now       func() time.Time

	baseCtx    context.Context
	cancelBase context.CancelFunc
	// mu orders registration against StopAll so the drain sees every driver.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewManager(opts Options, deps Dependencies) *Manager {
	if opts.ReportLocation == nil {
		opts.ReportLocation = time.UTC
	}
	if opts.BusyPolicy == "" {
		opts.BusyPolicy = config.BusyPolicyQueue
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = defaultMaxDuration
	}
	if opts.EndDetectionInterval <= 0 {
		opts.EndDetectionInterval = defaultEndDetectionInterval
	}
	if opts.WaitingRoomTimeout <= 0 {
		opts.WaitingRoomTimeout = defaultWaitingRoomTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:     opts,
		joiner:   deps.Joiner,
		recorder: deps.Recorder,
		repo:     deps.Repository,
		registry: NewRegistry(),
		slot:     newLiveSlot(),
		monitor:  NewMonitor(opts.EndDetectionInterval, opts.MaxDuration),
		enricher: &Enricher{
			transcriber: deps.Transcriber,
			diarizer:    deps.Diarizer,
			topics:      deps.Topics,
			sentiment:   deps.Sentiment,
			summarizer:  deps.Summarizer,
			actions:     deps.ActionItems,
			analytics:   deps.Analytics,
			features:    opts.Features,
		},
		assembler: &Assembler{
			renderer: deps.Renderer,
			repo:     deps.Repository,
			memory:   deps.Memory,
			followup: deps.Followup,
			mailer:   deps.Mailer,
			webhook:  deps.Webhook,
			features: opts.Features,
			location: opts.ReportLocation,
		},
		now:        time.Now,
		baseCtx:    ctx,
		cancelBase: cancel,
	}
}

// StartSession registers a session and starts driving it in the background.
// It fails only when the manager is closing or, under the reject policy,
// when another session holds the meeting attachment.
func (m *Manager) StartSession(req Request) (Snapshot, error) {
	if m.isClosed() {
		return Snapshot{}, ErrManagerClosed
	}
	holdsSlot := m.slot.tryAcquire()
	if !holdsSlot && m.opts.BusyPolicy == config.BusyPolicyReject {
		slog.Warn("session rejected; meeting connection is busy", "meeting_url", req.MeetingURL)
		return Snapshot{}, ErrResourceBusy
	}

	s := newSession(m.registry.nextID(), req, meeting.DetectPlatform(req.MeetingURL), m.now)
	if !holdsSlot {
		s.update(func(sn *Snapshot) { sn.Queued = true })
	}
	err := m.launch(s, func(ctx context.Context) (*recording.AudioHandle, bool) {
		return m.runLive(ctx, s, holdsSlot)
	})
	if err != nil {
		if holdsSlot {
			m.slot.release()
		}
		return Snapshot{}, err
	}
	slog.Info("session created", "session_id", s.id, "meeting_url", req.MeetingURL, "platform", s.cur.Platform, "queued", !holdsSlot)
	return s.Snapshot(), nil
}

// ImportRecording registers a session for an existing WAV file. It skips the
// live phase and starts directly at processing.
func (m *Manager) ImportRecording(path string) (Snapshot, error) {
	if m.isClosed() {
		return Snapshot{}, ErrManagerClosed
	}
	info, err := recording.ReadWAVInfo(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read recording %s: %w", path, err)
	}
	s := newSession(m.registry.nextID(), Request{MeetingURL: path}, meeting.PlatformImport, m.now)
	handle := recording.AudioHandle{
		Path:       path,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		StartedAt:  s.cur.StartedAt,
		EndedAt:    s.cur.StartedAt,
		Samples:    info.Samples(),
	}
	s.update(func(sn *Snapshot) {
		sn.AudioPath = path
		sn.DurationSeconds = handle.DurationSeconds()
	})
	s.markLiveEnded(EndReasonImported)
	s.closeLive()
	err = m.launch(s, func(context.Context) (*recording.AudioHandle, bool) {
		return &handle, true
	})
	if err != nil {
		return Snapshot{}, err
	}
	slog.Info("recording imported", "session_id", s.id, "path", path, "duration_seconds", handle.DurationSeconds())
	return s.Snapshot(), nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// launch registers s and starts its driver unless the manager is closing.
func (m *Manager) launch(s *Session, live func(ctx context.Context) (*recording.AudioHandle, bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	m.registry.add(s)
	m.wg.Add(1)
	go m.drive(s, live)
	return nil
}

// drive runs one session to a terminal state. live returns the recorded
// audio, or false when the session already ended.
func (m *Manager) drive(s *Session, live func(ctx context.Context) (*recording.AudioHandle, bool)) {
	defer m.wg.Done()
	defer close(s.done)
	defer s.closeLive()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("session worker panicked", "session_id", s.id, "panic", r, "stack", string(debug.Stack()))
			s.fail(newFailure(FailureInternal, fmt.Errorf("panic: %v", r)))
		}
	}()

	audio, ok := live(m.baseCtx)
	if !ok {
		return
	}
	if !s.transition(StateProcessing) {
		return
	}
	if err := m.enricher.Run(m.baseCtx, s, *audio); err != nil {
		s.fail(asFailure(err, FailureTranscription))
		return
	}
	if err := m.assembler.Assemble(m.baseCtx, s); err != nil {
		s.fail(asFailure(err, FailureReport))
		return
	}
	s.transition(StateCompleted)
}

func (m *Manager) runLive(parent context.Context, s *Session, holdsSlot bool) (*recording.AudioHandle, bool) {
	ctx, cancel := s.liveContext(parent)
	defer cancel()
	defer s.closeLive()

	if !holdsSlot {
		if err := m.slot.acquire(ctx); err != nil {
			m.endStopped(s)
			return nil, false
		}
	}
	defer m.slot.release()

	if s.stopRequested() {
		m.endStopped(s)
		return nil, false
	}
	s.transition(StateJoining)
	admission, err := m.joiner.Join(ctx, s.req.MeetingURL)
	if err != nil {
		m.leave(s)
		if s.stopRequested() {
			m.endStopped(s)
			return nil, false
		}
		s.fail(newFailure(FailureJoin, err))
		return nil, false
	}
	switch admission {
	case meeting.AdmissionDenied:
		m.leave(s)
		s.fail(newFailure(FailureAdmissionDenied, ErrAdmissionDenied))
		return nil, false
	case meeting.AdmissionPending:
		err := m.monitor.WaitForAdmission(ctx, s.stopCh, m.joiner, m.opts.WaitingRoomTimeout, s.id)
		if err != nil {
			m.leave(s)
			switch {
			case errors.Is(err, ErrAdmissionTimeout):
				s.fail(newFailure(FailureAdmissionTimeout, err))
			case errors.Is(err, ErrAdmissionDenied):
				s.fail(newFailure(FailureAdmissionDenied, err))
			default:
				m.endStopped(s)
			}
			return nil, false
		}
	}
	s.transition(StateInMeeting)

	handle, err := m.recorder.Start(ctx, s.id)
	if err != nil {
		m.leave(s)
		if s.stopRequested() {
			m.endStopped(s)
			return nil, false
		}
		s.fail(newFailure(FailureRecording, err))
		return nil, false
	}
	s.update(func(sn *Snapshot) { sn.AudioPath = handle.Path })
	s.transition(StateRecording)

	reason := <-m.monitor.Watch(ctx, s.stopCh, m.now(), m.joiner, s.id)
	slog.Info("live phase ended", "session_id", s.id, "reason", reason)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer stopCancel()
	final, stopErr := m.recorder.Stop(stopCtx)
	m.leave(s)
	s.markLiveEnded(reason)

	if reason == EndReasonStopped {
		s.transition(StateStopped)
		return nil, false
	}
	if stopErr == nil && final == nil {
		stopErr = recording.ErrNoAudio
	}
	if stopErr != nil {
		s.fail(newFailure(FailureRecording, stopErr))
		return nil, false
	}
	s.update(func(sn *Snapshot) {
		sn.AudioPath = final.Path
		sn.DurationSeconds = final.DurationSeconds()
	})
	return final, true
}

func (m *Manager) endStopped(s *Session) {
	s.markLiveEnded(EndReasonStopped)
	s.transition(StateStopped)
}

func (m *Manager) leave(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := m.joiner.Leave(ctx); err != nil {
		slog.Warn("failed to leave meeting", "session_id", s.id, "error", err)
	}
}

// StopSession ends the live phase of a session and waits until it has let
// go of the meeting. Sessions that are processing or finished are returned
// unchanged.
func (m *Manager) StopSession(ctx context.Context, id int64) (Snapshot, error) {
	s, ok := m.registry.Get(id)
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	snap := s.Snapshot()
	if snap.State.IsTerminal() || snap.State == StateProcessing {
		return snap, nil
	}
	slog.Info("stop requested", "session_id", id, "state", snap.State)
	s.requestStop()
	select {
	case <-s.liveDone:
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
	return s.Snapshot(), nil
}

// StopAll stops every live session and waits for all drivers to finish.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	for _, s := range m.registry.List() {
		if s.Snapshot().State.IsTerminal() {
			continue
		}
		if _, err := m.StopSession(ctx, s.id); err != nil {
			return err
		}
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.cancelBase()
		return ctx.Err()
	}
}

func (m *Manager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return m.StopAll(ctx)
}

func asFailure(err error, fallback FailureKind) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return newFailure(fallback, err)
}
