package session

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrResourceBusy     = errors.New("another session is using the meeting connection")
	ErrNotAvailable     = errors.New("result is not available for this session")
	ErrAdmissionDenied  = errors.New("admission to the meeting was denied")
	ErrAdmissionTimeout = errors.New("timed out waiting in the meeting waiting room")
	ErrManagerClosed    = errors.New("session manager is shutting down")
)

type FailureKind string

const (
	FailureJoin             FailureKind = "join_failure"
	FailureAdmissionDenied  FailureKind = "admission_denied"
	FailureAdmissionTimeout FailureKind = "admission_timeout"
	FailureRecording        FailureKind = "recording_failure"
	FailureTranscription    FailureKind = "transcription_failure"
	FailureEnrichment       FailureKind = "enrichment_failure"
	FailureReport           FailureKind = "report_failure"
	FailurePersistence      FailureKind = "persistence_failure"
	FailureDelivery         FailureKind = "delivery_failure"
	FailureResourceBusy     FailureKind = "resource_busy"
	FailureInternal         FailureKind = "internal_error"
)

// Fatal reports whether a failure of this kind ends the session in StateError.
func (k FailureKind) Fatal() bool {
	switch k {
	case FailureEnrichment, FailurePersistence, FailureDelivery:
		return false
	default:
		return true
	}
}

type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// FailureKindOf returns the kind of the first Failure in err's chain.
func FailureKindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
