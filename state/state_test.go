package state_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Darkness4/debounce-go/state"
	"github.com/stretchr/testify/require"
)

func TestRunTransitions(t *testing.T) {
	// Arrange
	s := state.New()

	// Test
	runID := s.StartRun("button", "released", map[string]string{"room": "lab"})
	require.Equal(t, state.DebounceStateIdle, s.GetSignalState("button"))
	s.SetCandidate("button", "pressed")
	require.Equal(t, state.DebounceStateRacing, s.GetSignalState("button"))
	s.SetNoise("button")
	require.Equal(t, state.DebounceStateIdle, s.GetSignalState("button"))
	s.SetCandidate("button", "pressed")
	s.SetStable("button", "pressed")

	// Assert
	require.NotEmpty(t, runID)
	require.Equal(t, state.DebounceStateStable, s.GetSignalState("button"))
	c := s.Signals["button"]
	require.Equal(t, runID, c.RunID)
	require.Equal(t, "released", c.Baseline)
	require.Equal(t, "pressed", c.Stable)
	require.Empty(t, c.Candidate)
	require.Equal(t, int64(1), c.Noise)
	require.Equal(t, map[string]string{"room": "lab"}, c.Labels)
}

func TestSetSignalError(t *testing.T) {
	// Arrange
	s := state.New()

	// Test
	s.SetSignalError("test", errors.New("error1"))
	s.SetSignalError("test", errors.New("error2"))
	s.SetSignalError("test", nil)

	// Assert
	require.Len(t, s.Signals["test"].Errors, 2)
	require.Equal(t, "error1", s.Signals["test"].Errors[0].Error)
	require.Equal(t, "error2", s.Signals["test"].Errors[1].Error)
	require.Equal(t, state.DebounceStateError, s.GetSignalState("test"))
}

func TestMarshalJSON(t *testing.T) {
	// Arrange
	s := state.New()
	s.SetSignalState("test", state.DebounceStateCanceled)

	// Test
	b, err := json.Marshal(s)
	require.NoError(t, err)
	var out struct {
		Signals map[string]struct {
			State state.DebounceState `json:"state"`
		} `json:"signals"`
	}
	require.NoError(t, json.Unmarshal(b, &out))

	// Assert
	require.Equal(t, state.DebounceStateCanceled, out.Signals["test"].State)
	require.Equal(t, state.DebounceStateUnspecified, s.GetSignalState("unknown"))
}

func TestGetSignal(t *testing.T) {
	// Arrange
	s := state.New()
	s.StartRun("button", "released", nil)
	s.SetSignalError("button", errors.New("boom"))

	// Act
	c, ok := s.GetSignal("button")
	_, missing := s.GetSignal("unknown")

	// Assert
	require.True(t, ok)
	require.False(t, missing)
	require.Equal(t, state.DebounceStateError, c.DebounceState)
	require.Len(t, c.Errors, 1)
	c.Errors[0].Error = "mutated"
	again, _ := s.GetSignal("button")
	require.Equal(t, "boom", again.Errors[0].Error)
}
