package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
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

type mockJoiner struct {
	mu        sync.Mutex
	admission meeting.Admission
	pending   meeting.Admission
	joinErr   error
	ended     bool
	joins     int
	leaves    int
}

func newMockJoiner() *mockJoiner {
	return &mockJoiner{admission: meeting.AdmissionAdmitted, pending: meeting.AdmissionPending}
}

func (j *mockJoiner) Join(_ context.Context, _ string) (meeting.Admission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.joins++
	j.ended = false
	if j.joinErr != nil {
		return "", j.joinErr
	}
	return j.admission, nil
}

func (j *mockJoiner) AdmissionStatus(_ context.Context) (meeting.Admission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pending, nil
}

func (j *mockJoiner) IsEnded(_ context.Context) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ended, nil
}

func (j *mockJoiner) Leave(_ context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.leaves++
	return nil
}

func (j *mockJoiner) setEnded(v bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ended = v
}

func (j *mockJoiner) setPending(a meeting.Admission) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending = a
}

func (j *mockJoiner) counts() (int, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.joins, j.leaves
}

type mockRecorder struct {
	mu       sync.Mutex
	dir      string
	startErr error
	stopErr  error
	active   bool
	started  time.Time
}

func (r *mockRecorder) Start(_ context.Context, sessionID int64) (recording.AudioHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return recording.AudioHandle{}, r.startErr
	}
	if r.active {
		return recording.AudioHandle{}, recording.ErrAlreadyRecording
	}
	r.active = true
	r.started = time.Now()
	return recording.AudioHandle{Path: r.dir + "/meeting.wav", SampleRate: 16000, Channels: 1, StartedAt: r.started}, nil
}

func (r *mockRecorder) Stop(_ context.Context) (*recording.AudioHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return nil, nil
	}
	r.active = false
	if r.stopErr != nil {
		return nil, r.stopErr
	}
	return &recording.AudioHandle{
		Path:       r.dir + "/meeting.wav",
		SampleRate: 16000,
		Channels:   1,
		StartedAt:  r.started,
		EndedAt:    time.Now(),
		Samples:    16000 * 90,
	}, nil
}

func (r *mockRecorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

type mockTranscriber struct {
	text  string
	err   error
	panic bool
	calls atomic.Int32
}

func (m *mockTranscriber) Transcribe(_ context.Context, audio recording.AudioHandle) (transcriber.Transcript, error) {
	m.calls.Add(1)
	if m.panic {
		panic("speech client exploded")
	}
	if m.err != nil {
		return transcriber.Transcript{}, m.err
	}
	return transcriber.Transcript{
		Text: m.text,
		Segments: []transcriber.Segment{
			{Start: 0, End: 4, Text: m.text, Confidence: 0.9},
		},
		Language: "en-US",
	}, nil
}

type mockDiarizer struct {
	err error
}

func (m *mockDiarizer) Diarize(_ context.Context, _ recording.AudioHandle, tr transcriber.Transcript) (analysis.Diarization, error) {
	if m.err != nil {
		return analysis.Diarization{}, m.err
	}
	return analysis.Diarization{
		Segments:     []analysis.SpeakerSegment{{Speaker: "Ana", Start: 0, End: 4, Text: tr.Text}},
		NumSpeakers:  1,
		SpeakerStats: map[string]analysis.SpeakerStat{"Ana": {TotalTime: 4, SegmentCount: 1, Percentage: 100}},
	}, nil
}

type mockSummarizer struct {
	panic bool
}

func (m *mockSummarizer) Summarize(_ context.Context, _ transcriber.Transcript) (analysis.Summary, error) {
	if m.panic {
		panic("model returned garbage")
	}
	return analysis.Summary{
		ExecutiveSummary: "The team agreed to ship on Friday.",
		KeyPoints:        []string{"Release timing"},
		Decisions:        []string{"Ship on Friday"},
		ActionItems:      []analysis.ActionItem{{ID: 1, Task: "Prepare release notes", Owner: "Ana", Priority: "high"}},
		Confidence:       0.8,
	}, nil
}

type mockRenderer struct {
	err   error
	calls atomic.Int32
}

func (m *mockRenderer) Render(_ context.Context, doc report.Document) (string, error) {
	m.calls.Add(1)
	if m.err != nil {
		return "", m.err
	}
	return "/reports/meeting_summary.pdf", nil
}

type mockFollowup struct{}

func (mockFollowup) GenerateFollowup(_ context.Context, in analysis.FollowupInput) (analysis.FollowupEmail, error) {
	return analysis.FollowupEmail{
		Subject:   "Follow-up: " + in.Title,
		Body:      "Hi Team,",
		BodyHTML:  "<p>Hi Team,</p>",
		Recipient: in.Recipient,
	}, nil
}

type mockRepository struct {
	mu        sync.Mutex
	saveErr   error
	nextID    int64
	meetings  map[int64]repository.Meeting
	emailMark map[int64]string
}

func newMockRepository() *mockRepository {
	return &mockRepository{nextID: 1, meetings: map[int64]repository.Meeting{}, emailMark: map[int64]string{}}
}

func (r *mockRepository) SaveMeeting(_ context.Context, in repository.SaveMeetingInput) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return 0, r.saveErr
	}
	id := r.nextID
	r.nextID++
	r.meetings[id] = repository.Meeting{
		ID:              id,
		MeetingURL:      in.MeetingURL,
		Platform:        in.Platform,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		DurationSeconds: in.DurationSeconds,
		AudioFile:       in.AudioFile,
		Transcript:      in.Transcript,
		SummaryJSON:     in.SummaryJSON,
		OutputsJSON:     in.OutputsJSON,
		PDFPath:         in.PDFPath,
		EmailRecipient:  in.EmailRecipient,
		CreatedAt:       time.Now(),
	}
	return id, nil
}

func (r *mockRepository) GetMeeting(_ context.Context, id int64) (*repository.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *mockRepository) ListRecentMeetings(_ context.Context, limit int) ([]repository.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Meeting, 0, len(r.meetings))
	for id := r.nextID - 1; id > 0 && len(out) < limit; id-- {
		if m, ok := r.meetings[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *mockRepository) MarkEmailSent(_ context.Context, id int64, recipient string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emailMark[id] = recipient
	return nil
}

func (r *mockRepository) UpdateMeetingOutputs(_ context.Context, id int64, outputs []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok {
		return errors.New("meeting not found")
	}
	m.OutputsJSON = outputs
	r.meetings[id] = m
	return nil
}

func (r *mockRepository) DeleteMeeting(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.meetings, id)
	return nil
}

func (r *mockRepository) marked(id int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.emailMark[id]
	return v, ok
}

type mockMemory struct {
	mu     sync.Mutex
	stored []memory.MeetingContent
}

func (m *mockMemory) StoreMeeting(_ context.Context, c memory.MeetingContent) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, c)
	return 3, nil
}

func (m *mockMemory) Search(context.Context, string, int) ([]memory.SearchHit, error) {
	return nil, nil
}

func (m *mockMemory) Ask(_ context.Context, q string) (memory.Answer, error) {
	return memory.Answer{Question: q, Answer: memory.NoRelevantAnswer}, nil
}

func (m *mockMemory) DeleteMeeting(context.Context, int64) error {
	return nil
}

func (m *mockMemory) History(context.Context, int) ([]memory.MeetingEntry, error) {
	return nil, nil
}

func (m *mockMemory) storedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stored)
}

type mockMailer struct {
	mu   sync.Mutex
	err  error
	sent []mailer.Message
}

func (m *mockMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockWebhook struct {
	mu       sync.Mutex
	err      error
	payloads []webhook.ReportWebhookPayload
}

func (m *mockWebhook) SendReport(_ context.Context, p webhook.ReportWebhookPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, p)
	return m.err
}

type testEnv struct {
	joiner      *mockJoiner
	recorder    *mockRecorder
	transcriber *mockTranscriber
	diarizer    *mockDiarizer
	summarizer  *mockSummarizer
	renderer    *mockRenderer
	followup    analysis.FollowupWriter
	repo        *mockRepository
	memory      *mockMemory
	mailer      *mockMailer
	webhook     *mockWebhook
	opts        Options
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		joiner:      newMockJoiner(),
		recorder:    &mockRecorder{dir: t.TempDir()},
		transcriber: &mockTranscriber{text: "let's ship the release on friday"},
		diarizer:    &mockDiarizer{},
		summarizer:  &mockSummarizer{},
		renderer:    &mockRenderer{},
		repo:        newMockRepository(),
		memory:      &mockMemory{},
		mailer:      &mockMailer{},
		webhook:     &mockWebhook{},
		opts: Options{
			MaxDuration:          time.Hour,
			EndDetectionInterval: 10 * time.Millisecond,
			WaitingRoomTimeout:   time.Second,
			BusyPolicy:           config.BusyPolicyQueue,
			ReportLocation:       time.UTC,
			Features:             config.DefaultFeatures(),
		},
	}
}

func (e *testEnv) manager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(e.opts, Dependencies{
		Joiner:      e.joiner,
		Recorder:    e.recorder,
		Transcriber: e.transcriber,
		Diarizer:    e.diarizer,
		Summarizer:  e.summarizer,
		Renderer:    e.renderer,
		Followup:    e.followup,
		Repository:  e.repo,
		Memory:      e.memory,
		Mailer:      e.mailer,
		Webhook:     e.webhook,
	})
	t.Cleanup(func() {
		_ = m.Shutdown()
	})
	return m
}

var errBoom = errors.New("boom")

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for condition: %s", msg)
}

func waitForState(t *testing.T, m *Manager, id int64, want State) Snapshot {
	t.Helper()
	var snap Snapshot
	waitUntil(t, 3*time.Second, func() bool {
		var err error
		snap, err = m.GetStatus(context.Background(), id)
		return err == nil && snap.State == want
	}, "session "+string(want))
	return snap
}

func waitDone(t *testing.T, m *Manager, id int64) Snapshot {
	t.Helper()
	s, ok := m.registry.Get(id)
	if !ok {
		t.Fatalf("session %d not registered", id)
	}
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("session %d did not finish; state %s", id, s.Snapshot().State)
	}
	return s.Snapshot()
}
