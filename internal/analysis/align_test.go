package analysis

import (
	"testing"

	"github.com/foxseedlab/meetbot/internal/transcriber"
)

func TestAlignSpeakers_PicksLargestOverlap(t *testing.T) {
	d := Diarization{Segments: []SpeakerSegment{
		{Speaker: "Speaker 1", Start: 0, End: 4},
		{Speaker: "Speaker 2", Start: 4, End: 10},
	}}
	segs := []transcriber.Segment{
		{Start: 0, End: 3, Text: "hello"},
		{Start: 3, End: 9, Text: "mostly second"},
		{Start: 20, End: 22, Text: "nobody"},
	}

	got := AlignSpeakers(segs, d)
	want := []string{"Speaker 1", "Speaker 2", UnknownSpeaker}
	for i, w := range want {
		if got[i].Speaker != w {
			t.Fatalf("segment %d: expected %q, got %q", i, w, got[i].Speaker)
		}
	}
	if segs[0].Speaker != "" {
		t.Fatal("input segments must not be modified")
	}
}

func TestEmptyDefaults(t *testing.T) {
	if d := EmptyDiarization(); d.NumSpeakers != 0 || d.SpeakerStats == nil {
		t.Fatalf("unexpected diarization default: %+v", d)
	}
	s := EmptySentiment()
	if s.Overall != SentimentNeutral || s.Distribution[SentimentNeutral] != 100 || s.AgreementLevel != 0.5 {
		t.Fatalf("unexpected sentiment default: %+v", s)
	}
	if m := EmptyMetrics(); m.ParticipationBalance != 1 {
		t.Fatalf("unexpected metrics default: %+v", m)
	}
}
