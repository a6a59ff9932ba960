package meeting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/foxseedlab/meetbot/internal/meeting"
	"github.com/foxseedlab/meetbot/internal/recording"
)

// Router picks the platform adapter for each join and forwards the rest of
// the session's calls to it.
type Router struct {
	adapters map[meeting.Platform]meeting.Joiner

	mu     sync.Mutex
	active meeting.Joiner
}

func NewRouter() *Router {
	return &Router{adapters: make(map[meeting.Platform]meeting.Joiner)}
}

func (r *Router) Register(platform meeting.Platform, adapter meeting.Joiner) {
	r.adapters[platform] = adapter
}

func (r *Router) Join(ctx context.Context, meetingURL string) (meeting.Admission, error) {
	platform := meeting.DetectPlatform(meetingURL)
	adapter, ok := r.adapters[platform]
	if !ok {
		return "", fmt.Errorf("%w: %s", meeting.ErrUnsupportedPlatform, platform)
	}
	admission, err := adapter.Join(ctx, meetingURL)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.active = adapter
	r.mu.Unlock()
	return admission, nil
}

func (r *Router) current() (meeting.Joiner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil, meeting.ErrNotJoined
	}
	return r.active, nil
}

func (r *Router) AdmissionStatus(ctx context.Context) (meeting.Admission, error) {
	adapter, err := r.current()
	if err != nil {
		return "", err
	}
	return adapter.AdmissionStatus(ctx)
}

func (r *Router) IsEnded(ctx context.Context) (bool, error) {
	adapter, err := r.current()
	if err != nil {
		return true, nil
	}
	return adapter.IsEnded(ctx)
}

func (r *Router) Leave(ctx context.Context) error {
	r.mu.Lock()
	adapter := r.active
	r.active = nil
	r.mu.Unlock()
	if adapter == nil {
		return nil
	}
	return adapter.Leave(ctx)
}

func (r *Router) ReceiveAudio(callback func(speakerID string, opus []byte)) error {
	adapter, err := r.current()
	if err != nil {
		return err
	}
	source, ok := adapter.(recording.PacketSource)
	if !ok {
		return recording.ErrNoPacketSource
	}
	return source.ReceiveAudio(callback)
}

func (r *Router) Shutdown() error {
	var errs []error
	for platform, adapter := range r.adapters {
		if c, ok := adapter.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s adapter: %w", platform, err))
			}
		}
	}
	return errors.Join(errs...)
}
