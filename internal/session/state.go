package session

type State string

const (
	StateIdle       State = "idle"
	StateJoining    State = "joining"
	StateInMeeting  State = "in_meeting"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateError      State = "error"
	StateStopped    State = "stopped"
)

// Phase names the step running while a session is in StateProcessing.
type Phase string

const (
	PhaseTranscribing        Phase = "transcribing"
	PhaseDiarizing           Phase = "diarizing"
	PhaseSegmentingTopics    Phase = "segmenting_topics"
	PhaseAnalyzingSentiment  Phase = "analyzing_sentiment"
	PhaseSummarizing         Phase = "summarizing"
	PhaseExtractingActions   Phase = "extracting_actions"
	PhaseGeneratingAnalytics Phase = "generating_analytics"
	PhaseGeneratingReport    Phase = "generating_report"
	PhaseStoringMemory       Phase = "storing_memory"
	PhaseGeneratingFollowup  Phase = "generating_followup"
	PhaseSendingDelivery     Phase = "sending_delivery"
)

var processingPhases = []Phase{
	PhaseTranscribing,
	PhaseDiarizing,
	PhaseSegmentingTopics,
	PhaseAnalyzingSentiment,
	PhaseSummarizing,
	PhaseExtractingActions,
	PhaseGeneratingAnalytics,
	PhaseGeneratingReport,
	PhaseStoringMemory,
	PhaseGeneratingFollowup,
	PhaseSendingDelivery,
}

func (s State) rank() int {
	switch s {
	case StateIdle:
		return 0
	case StateJoining:
		return 1
	case StateInMeeting:
		return 2
	case StateRecording:
		return 3
	case StateProcessing:
		return 4
	default:
		return 5
	}
}

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateError || s == StateStopped
}

// IsLive reports whether the session holds the join/record attachment.
func (s State) IsLive() bool {
	return s == StateJoining || s == StateInMeeting || s == StateRecording
}

// canTransition allows forward moves only. Error and Stopped are reachable
// from every non-terminal state.
func canTransition(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateError || to == StateStopped {
		return true
	}
	return to.rank() > from.rank()
}

func phaseIndex(p Phase) int {
	for i, candidate := range processingPhases {
		if candidate == p {
			return i
		}
	}
	return -1
}
