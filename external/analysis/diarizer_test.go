package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/recording"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

func TestActivityDiarizer_BuildsSpeakersAndStats(t *testing.T) {
	audio := recording.AudioHandle{SpeakerSpans: []recording.SpeakerSpan{
		{SpeakerID: "Ana", Start: 0, End: 3},
		{SpeakerID: "123456", Start: 3, End: 4},
		{SpeakerID: "Ana", Start: 5, End: 6},
	}}
	d, err := NewActivityDiarizer().Diarize(context.Background(), audio, transcriber.Transcript{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.NumSpeakers != 2 || len(d.Segments) != 3 {
		t.Fatalf("unexpected diarization: %+v", d)
	}
	if d.Segments[1].Speaker != "Speaker 2" {
		t.Fatalf("expected numeric id to be labeled by appearance, got %q", d.Segments[1].Speaker)
	}
	ana := d.SpeakerStats["Ana"]
	if ana.TotalTime != 4 || ana.SegmentCount != 2 || ana.Percentage != 80 {
		t.Fatalf("unexpected stats for Ana: %+v", ana)
	}
}

func TestActivityDiarizer_NoActivity(t *testing.T) {
	_, err := NewActivityDiarizer().Diarize(context.Background(), recording.AudioHandle{}, transcriber.Transcript{})
	if !errors.Is(err, ErrNoSpeakerActivity) || !errors.Is(err, analysis.ErrNotApplicable) {
		t.Fatalf("expected ErrNoSpeakerActivity, got %v", err)
	}
}
