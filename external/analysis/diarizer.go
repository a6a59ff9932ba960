package analysis

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/recording"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

var ErrNoSpeakerActivity = fmt.Errorf("recording has no speaker activity: %w", analysis.ErrNotApplicable)

// ActivityDiarizer derives speaker turns from the per-speaker packet
// activity captured while recording. Imported files carry no activity.
type ActivityDiarizer struct{}

func NewActivityDiarizer() analysis.Diarizer {
	return &ActivityDiarizer{}
}

func (d *ActivityDiarizer) Diarize(ctx context.Context, audio recording.AudioHandle, _ transcriber.Transcript) (analysis.Diarization, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Diarization{}, err
	}
	if len(audio.SpeakerSpans) == 0 {
		return analysis.Diarization{}, ErrNoSpeakerActivity
	}

	labels := make(map[string]string)
	result := analysis.Diarization{
		Segments:     make([]analysis.SpeakerSegment, 0, len(audio.SpeakerSpans)),
		SpeakerStats: make(map[string]analysis.SpeakerStat),
	}
	total := 0.0
	for _, span := range audio.SpeakerSpans {
		label, ok := labels[span.SpeakerID]
		if !ok {
			label = speakerLabel(span.SpeakerID, len(labels)+1)
			labels[span.SpeakerID] = label
		}
		result.Segments = append(result.Segments, analysis.SpeakerSegment{
			Speaker: label,
			Start:   span.Start,
			End:     span.End,
		})
		length := span.End - span.Start
		stat := result.SpeakerStats[label]
		stat.TotalTime += length
		stat.SegmentCount++
		result.SpeakerStats[label] = stat
		total += length
	}
	for label, stat := range result.SpeakerStats {
		if total > 0 {
			stat.Percentage = round1(stat.TotalTime / total * 100)
		}
		result.SpeakerStats[label] = stat
	}
	result.NumSpeakers = len(result.SpeakerStats)
	return result, nil
}

// Numeric ids are unresolved transport ids and get a neutral label.
func speakerLabel(id string, n int) string {
	if _, err := strconv.ParseUint(id, 10, 64); err == nil || id == "" {
		return fmt.Sprintf("Speaker %d", n)
	}
	return id
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
