package types_test

import (
	"testing"

	"github.com/mgraessle/grist/pkg/types"
)

func TestIsValidPairState(t *testing.T) {
	for _, state := range types.ValidPairStates {
		if !types.IsValidPairState(state) {
			t.Errorf("IsValidPairState(%q) = false, want true", state)
		}
	}
	for _, state := range []string{"", "merged", "DETECTED", "pending"} {
		if types.IsValidPairState(state) {
			t.Errorf("IsValidPairState(%q) = true, want false", state)
		}
	}
}

func TestIsTerminalPairState(t *testing.T) {
	terminal := []string{types.PairAutoMerged, types.PairManuallyMerged, types.PairRejected}
	for _, state := range terminal {
		if !types.IsTerminalPairState(state) {
			t.Errorf("IsTerminalPairState(%q) = false, want true", state)
		}
	}
	open := []string{types.PairDetected, types.PairSuggested, types.PairPostponed, ""}
	for _, state := range open {
		if types.IsTerminalPairState(state) {
			t.Errorf("IsTerminalPairState(%q) = true, want false", state)
		}
	}
}

func TestIsValidPairTransition(t *testing.T) {
	testCases := []struct {
		from, to string
		want     bool
	}{
		{"", types.PairDetected, true},
		{"", types.PairSuggested, false},
		{types.PairDetected, types.PairAutoMerged, true},
		{types.PairDetected, types.PairSuggested, true},
		{types.PairDetected, types.PairRejected, false},
		{types.PairSuggested, types.PairManuallyMerged, true},
		{types.PairSuggested, types.PairRejected, true},
		{types.PairSuggested, types.PairPostponed, true},
		{types.PairSuggested, types.PairAutoMerged, false},
		{types.PairPostponed, types.PairSuggested, true},
		{types.PairPostponed, types.PairRejected, false},
		{types.PairAutoMerged, types.PairSuggested, false},
		{types.PairManuallyMerged, types.PairPostponed, false},
		{types.PairRejected, types.PairSuggested, false},
		{types.PairSuggested, "", false},
		{"bogus", types.PairSuggested, false},
	}

	for _, tc := range testCases {
		if got := types.IsValidPairTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("IsValidPairTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
