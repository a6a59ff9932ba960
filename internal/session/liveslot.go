package session

import "context"

// liveSlot guards the single meeting attachment shared by all sessions.
type liveSlot struct {
	ch chan struct{}
}

func newLiveSlot() *liveSlot {
	return &liveSlot{ch: make(chan struct{}, 1)}
}

func (l *liveSlot) acquire(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *liveSlot) tryAcquire() bool {
	select {
	case l.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *liveSlot) release() {
	select {
	case <-l.ch:
	default:
	}
}
