package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/foxseedlab/meetbot/internal/meeting"
)

var errStopRequested = errors.New("session stop requested")

type endProbe interface {
	IsEnded(ctx context.Context) (bool, error)
}

type admissionProbe interface {
	AdmissionStatus(ctx context.Context) (meeting.Admission, error)
}

// Monitor polls for the end of the live phase and for waiting room admission.
type Monitor struct {
	interval    time.Duration
	maxDuration time.Duration
	now         func() time.Time
}

func NewMonitor(interval, maxDuration time.Duration) *Monitor {
	return &Monitor{interval: interval, maxDuration: maxDuration, now: time.Now}
}

// Watch runs the end detection loop in its own goroutine. The returned
// channel receives exactly one reason.
func (m *Monitor) Watch(ctx context.Context, stop <-chan struct{}, recordingStarted time.Time, probe endProbe, sessionID int64) <-chan EndReason {
	out := make(chan EndReason, 1)
	go func() {
		out <- m.watch(ctx, stop, recordingStarted, probe, sessionID)
	}()
	return out
}

func (m *Monitor) watch(ctx context.Context, stop <-chan struct{}, recordingStarted time.Time, probe endProbe, sessionID int64) EndReason {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return EndReasonStopped
		case <-ctx.Done():
			return EndReasonStopped
		case <-ticker.C:
			if reason, ended := m.check(ctx, stop, recordingStarted, probe, sessionID); ended {
				return reason
			}
		}
	}
}

// check evaluates one tick: stop first, then max duration, then the
// platform's own end signal.
func (m *Monitor) check(ctx context.Context, stop <-chan struct{}, recordingStarted time.Time, probe endProbe, sessionID int64) (EndReason, bool) {
	select {
	case <-stop:
		return EndReasonStopped, true
	default:
	}
	if m.now().Sub(recordingStarted) >= m.maxDuration {
		slog.Info("maximum meeting duration reached", "session_id", sessionID, "max_duration", m.maxDuration.String())
		return EndReasonMaxDurationReached, true
	}
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()
	ended, err := probe.IsEnded(probeCtx)
	if err != nil {
		slog.Warn("end detection probe failed", "session_id", sessionID, "error", err)
		return "", false
	}
	if ended {
		slog.Info("meeting end detected", "session_id", sessionID)
		return EndReasonRemoteEnded, true
	}
	return "", false
}

// WaitForAdmission polls the waiting room until the bot is admitted, denied,
// stopped, or the timeout elapses.
func (m *Monitor) WaitForAdmission(ctx context.Context, stop <-chan struct{}, probe admissionProbe, timeout time.Duration, sessionID int64) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	slog.Info("waiting for meeting admission", "session_id", sessionID, "timeout", timeout.String())
	for {
		select {
		case <-stop:
			return errStopRequested
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrAdmissionTimeout
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, m.interval)
			admission, err := probe.AdmissionStatus(probeCtx)
			cancel()
			if err != nil {
				slog.Warn("admission probe failed", "session_id", sessionID, "error", err)
				continue
			}
			switch admission {
			case meeting.AdmissionAdmitted:
				return nil
			case meeting.AdmissionDenied:
				return ErrAdmissionDenied
			}
		}
	}
}
