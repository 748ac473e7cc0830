package types

// Decision state constants for a detected duplicate pair
const (
	PairDetected       = "detected"        // Entry state: similarity crossed the suggest threshold
	PairAutoMerged     = "auto_merged"     // Consolidated without review
	PairSuggested      = "suggested"       // Awaiting human confirmation
	PairManuallyMerged = "manually_merged" // Confirmed and consolidated by a human
	PairRejected       = "rejected"        // Declined; not re-suggested in later scans
	PairPostponed      = "postponed"       // Deferred; returns to the pool on the next scan
)

// ValidPairStates contains all valid pair decision states
var ValidPairStates = []string{
	PairDetected,
	PairAutoMerged,
	PairSuggested,
	PairManuallyMerged,
	PairRejected,
	PairPostponed,
}

// IsValidPairState checks if the given state is a valid pair decision state.
func IsValidPairState(state string) bool {
	for _, validState := range ValidPairStates {
		if state == validState {
			return true
		}
	}
	return false
}

// IsTerminalPairState reports whether a pair in this state is finished for
// good. Auto-merged, manually merged, and rejected pairs stay decided;
// postponed pairs come back on the next scan.
func IsTerminalPairState(state string) bool {
	return state == PairAutoMerged || state == PairManuallyMerged || state == PairRejected
}

// IsValidPairTransition validates decision transitions for a detected pair.
//
// Valid transitions:
//
//	(empty) -> detected
//	detected -> auto_merged | suggested
//	suggested -> manually_merged | rejected | postponed
//	postponed -> suggested
//	auto_merged | manually_merged | rejected -> (terminal, no transitions out)
func IsValidPairTransition(currentState, newState string) bool {
	if newState == "" {
		return false
	}

	switch currentState {
	case "":
		return newState == PairDetected

	case PairDetected:
		return newState == PairAutoMerged || newState == PairSuggested

	case PairSuggested:
		return newState == PairManuallyMerged || newState == PairRejected || newState == PairPostponed

	case PairPostponed:
		return newState == PairSuggested

	case PairAutoMerged, PairManuallyMerged, PairRejected:
		return false // Terminal states, no transitions out

	default:
		return false // Unknown current state
	}
}
