package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/meetbot/internal/audio"
	"github.com/foxseedlab/meetbot/internal/recording"
)

const (
	audioMixInterval = audio.FrameDuration
	// Packets from one speaker closer than this extend the current span.
	speakerSpanGap = 400 * time.Millisecond
)

type VoiceRecorder struct {
	source      recording.PacketSource
	newMixer    audio.MixerFactory
	dir         string
	now         func() time.Time
	mixInterval time.Duration

	mu     sync.Mutex
	active *activeRecording
}

type activeRecording struct {
	sessionID int64
	path      string
	file      *os.File
	out       *bufio.Writer
	mixer     audio.Mixer
	startedAt time.Time
	cancel    context.CancelFunc
	mixDone   chan struct{}
	recvErr   chan error

	samples  int64
	packets  atomic.Int64
	writeErr error

	spanMu  sync.Mutex
	stopped bool
	spans   []recording.SpeakerSpan
	open    map[string]int
}

func NewVoiceRecorder(source recording.PacketSource, newMixer audio.MixerFactory, dir string) *VoiceRecorder {
	return &VoiceRecorder{
		source:      source,
		newMixer:    newMixer,
		dir:         dir,
		now:         time.Now,
		mixInterval: audioMixInterval,
	}
}

func (r *VoiceRecorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

func (r *VoiceRecorder) Start(_ context.Context, sessionID int64) (recording.AudioHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return recording.AudioHandle{}, recording.ErrAlreadyRecording
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return recording.AudioHandle{}, fmt.Errorf("create recording dir: %w", err)
	}
	startedAt := r.now()
	path := filepath.Join(r.dir, fmt.Sprintf("session_%d_%s.wav", sessionID, startedAt.UTC().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return recording.AudioHandle{}, fmt.Errorf("create recording file: %w", err)
	}
	out := bufio.NewWriterSize(f, 64*1024)
	// Placeholder header; sizes are patched in Stop.
	if _, err := out.Write(recording.WAVHeader(audio.SampleRate, audio.Channels, audio.BitsPerSample, 0)); err != nil {
		f.Close()
		return recording.AudioHandle{}, fmt.Errorf("write wav header: %w", err)
	}

	mixCtx, cancel := context.WithCancel(context.Background())
	rec := &activeRecording{
		sessionID: sessionID,
		path:      path,
		file:      f,
		out:       out,
		mixer:     r.newMixer(),
		startedAt: startedAt,
		cancel:    cancel,
		mixDone:   make(chan struct{}),
		recvErr:   make(chan error, 1),
		open:      make(map[string]int),
	}
	r.active = rec

	go r.receive(rec)
	go r.mixLoop(mixCtx, rec)

	slog.Info("recording started", "session_id", sessionID, "path", path)
	return recording.AudioHandle{
		Path:       path,
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
		StartedAt:  startedAt,
	}, nil
}

func (r *VoiceRecorder) receive(rec *activeRecording) {
	err := r.source.ReceiveAudio(func(speakerID string, opus []byte) {
		if !rec.trackSpeaker(speakerID, r.now().Sub(rec.startedAt)) {
			return
		}
		rec.packets.Add(1)
		rec.mixer.WriteOpusPacket(speakerID, opus)
	})
	if err != nil {
		slog.Error("voice receive failed", "session_id", rec.sessionID, "error", err)
	}
	rec.recvErr <- err
}

func (r *VoiceRecorder) mixLoop(ctx context.Context, rec *activeRecording) {
	defer close(rec.mixDone)
	ticker := time.NewTicker(r.mixInterval)
	statsTicker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer statsTicker.Stop()
	buf := make([]byte, audio.FrameBytes)
	for {
		select {
		case <-ctx.Done():
			return
		case <-statsTicker.C:
			slog.Debug("recording stats",
				"session_id", rec.sessionID,
				"received_opus_packets", rec.packets.Load(),
				"samples", rec.samples)
		case <-ticker.C:
			n, err := rec.mixer.ReadMixedPCM(buf)
			if err != nil {
				slog.Warn("failed to read mixed pcm", "session_id", rec.sessionID, "error", err)
				continue
			}
			if n == 0 {
				continue
			}
			if _, err := rec.out.Write(buf[:n]); err != nil {
				rec.writeErr = err
				slog.Error("failed to write recording", "session_id", rec.sessionID, "error", err)
				return
			}
			rec.samples += int64(n / 2)
		}
	}
}

func (rec *activeRecording) trackSpeaker(speakerID string, at time.Duration) bool {
	rec.spanMu.Lock()
	defer rec.spanMu.Unlock()
	if rec.stopped {
		return false
	}
	start := at.Seconds()
	end := (at + audio.FrameDuration).Seconds()
	if i, ok := rec.open[speakerID]; ok && start-rec.spans[i].End <= speakerSpanGap.Seconds() {
		rec.spans[i].End = end
		return true
	}
	rec.open[speakerID] = len(rec.spans)
	rec.spans = append(rec.spans, recording.SpeakerSpan{SpeakerID: speakerID, Start: start, End: end})
	return true
}

// Stop finalizes the active recording. It returns nil when nothing is
// recording, and ErrNoAudio alongside the handle when no samples were mixed.
func (r *VoiceRecorder) Stop(_ context.Context) (*recording.AudioHandle, error) {
	r.mu.Lock()
	rec := r.active
	r.active = nil
	r.mu.Unlock()
	if rec == nil {
		return nil, nil
	}

	rec.spanMu.Lock()
	rec.stopped = true
	spans := append([]recording.SpeakerSpan(nil), rec.spans...)
	rec.spanMu.Unlock()

	rec.cancel()
	<-rec.mixDone
	rec.mixer.Close()

	handle := &recording.AudioHandle{
		Path:         rec.path,
		SampleRate:   audio.SampleRate,
		Channels:     audio.Channels,
		StartedAt:    rec.startedAt,
		EndedAt:      r.now(),
		Samples:      rec.samples,
		SpeakerSpans: spans,
	}
	sort.SliceStable(handle.SpeakerSpans, func(i, j int) bool {
		return handle.SpeakerSpans[i].Start < handle.SpeakerSpans[j].Start
	})

	if err := rec.finalize(); err != nil {
		return handle, fmt.Errorf("finalize recording: %w", err)
	}
	slog.Info("recording stopped",
		"session_id", rec.sessionID,
		"path", rec.path,
		"samples", rec.samples,
		"received_opus_packets", rec.packets.Load(),
		"speaker_spans", len(spans))

	if rec.samples == 0 {
		select {
		case err := <-rec.recvErr:
			if err != nil {
				return handle, fmt.Errorf("%w: %v", recording.ErrNoAudio, err)
			}
		default:
		}
		return handle, recording.ErrNoAudio
	}
	return handle, nil
}

func (rec *activeRecording) finalize() error {
	var errs []error
	if rec.writeErr != nil {
		errs = append(errs, rec.writeErr)
	}
	if err := rec.out.Flush(); err != nil {
		errs = append(errs, err)
	}
	header := recording.WAVHeader(audio.SampleRate, audio.Channels, audio.BitsPerSample, uint32(rec.samples*2))
	if _, err := rec.file.WriteAt(header, 0); err != nil {
		errs = append(errs, err)
	}
	if err := rec.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
