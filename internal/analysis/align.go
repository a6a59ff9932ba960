package analysis

import "github.com/foxseedlab/meetbot/internal/transcriber"

// AlignSpeakers labels each transcript segment with the diarized speaker
// that overlaps it the most.
func AlignSpeakers(segments []transcriber.Segment, d Diarization) []transcriber.Segment {
	out := make([]transcriber.Segment, len(segments))
	for i, seg := range segments {
		best := UnknownSpeaker
		bestOverlap := 0.0
		for _, ds := range d.Segments {
			overlap := min(seg.End, ds.End) - max(seg.Start, ds.Start)
			if overlap > bestOverlap {
				bestOverlap = overlap
				best = ds.Speaker
			}
		}
		seg.Speaker = best
		out[i] = seg
	}
	return out
}
