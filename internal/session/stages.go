package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/foxseedlab/meetbot/internal/analysis"
)

type StageStatus string

const (
	StageSucceeded StageStatus = "succeeded"
	StageDegraded  StageStatus = "degraded"
	StageSkipped   StageStatus = "skipped"
)

// StageResult is the outcome of a fail-soft stage. Value always holds a
// usable value: the provider's output on success, the stage default otherwise.
type StageResult[T any] struct {
	Status StageStatus `json:"status"`
	Value  T           `json:"value"`
	Error  string      `json:"error,omitempty"`
}

func (r *StageResult[T]) Usable() bool {
	return r != nil && r.Status == StageSucceeded
}

func skipped[T any](def T) *StageResult[T] {
	return &StageResult[T]{Status: StageSkipped, Value: def}
}

// runSoft calls fn and converts any error or panic into the stage default.
func runSoft[T any](ctx context.Context, sessionID int64, stage Phase, enabled bool, def T, fn func(context.Context) (T, error)) (res *StageResult[T]) {
	if !enabled {
		slog.Debug("stage disabled", "session_id", sessionID, "stage", stage)
		return skipped(def)
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stage panicked", "session_id", sessionID, "stage", stage, "panic", r, "stack", string(debug.Stack()))
			res = &StageResult[T]{Status: StageDegraded, Value: def, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()
	v, err := fn(ctx)
	if errors.Is(err, analysis.ErrNotApplicable) {
		slog.Info("stage skipped", "session_id", sessionID, "stage", stage, "reason", err)
		return skipped(def)
	}
	if err != nil {
		slog.Warn("stage failed; using default", "session_id", sessionID, "stage", stage, "error", err)
		return &StageResult[T]{Status: StageDegraded, Value: def, Error: err.Error()}
	}
	return &StageResult[T]{Status: StageSucceeded, Value: v}
}

// runHard calls fn and converts a panic into an error.
func runHard[T any](ctx context.Context, sessionID int64, stage string, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stage panicked", "session_id", sessionID, "stage", stage, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
