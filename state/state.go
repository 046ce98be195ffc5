// Package state implements state for debugging.
package state

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxErrors = 20

// State represents the state of the program.
type State struct {
	Signals map[string]*SignalState `json:"signals"`

	mu sync.RWMutex
}

// SignalState represents the state of a debounced signal.
type SignalState struct {
	DebounceState DebounceState     `json:"state"`
	RunID         string            `json:"run_id,omitempty"`
	Baseline      string            `json:"baseline"`
	Candidate     string            `json:"candidate,omitempty"`
	Stable        string            `json:"stable,omitempty"`
	Noise         int64             `json:"noise"`
	Labels        map[string]string `json:"labels,omitempty"`
	Errors        []SignalError     `json:"errors_log"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// SignalError represents an error while debouncing a signal.
type SignalError struct {
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
}

// DebounceState represents the state of a debounce loop.
type DebounceState int

const (
	// DebounceStateUnspecified is used when the state is unspecified.
	DebounceStateUnspecified DebounceState = iota
	// DebounceStateIdle is used while waiting for the signal to leave its baseline.
	DebounceStateIdle
	// DebounceStateRacing is used while a candidate races the stability wait.
	DebounceStateRacing
	// DebounceStateStable is used when a candidate held for the stability wait.
	DebounceStateStable
	// DebounceStateError is used when the loop failed.
	DebounceStateError
	// DebounceStateCanceled is used when the loop was canceled.
	DebounceStateCanceled
)

// String returns a string representation of a DebounceState.
func (d DebounceState) String() string {
	switch d {
	case DebounceStateUnspecified:
		return "UNSPECIFIED"
	case DebounceStateIdle:
		return "IDLE"
	case DebounceStateRacing:
		return "RACING"
	case DebounceStateStable:
		return "STABLE"
	case DebounceStateError:
		return "ERROR"
	case DebounceStateCanceled:
		return "CANCELED"
	}
	return "UNSPECIFIED"
}

// DebounceStateFromString returns a DebounceState from a string.
func DebounceStateFromString(s string) DebounceState {
	switch s {
	default:
		return DebounceStateUnspecified
	case "IDLE":
		return DebounceStateIdle
	case "RACING":
		return DebounceStateRacing
	case "STABLE":
		return DebounceStateStable
	case "ERROR":
		return DebounceStateError
	case "CANCELED":
		return DebounceStateCanceled
	}
}

// MarshalJSON marshals a DebounceState into a string.
func (d DebounceState) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON unmarshals a string into a DebounceState.
func (d *DebounceState) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	*d = DebounceStateFromString(s)

	return nil
}

var (
	// DefaultState is the default state.
	DefaultState = New()
)

// New creates an empty State.
func New() *State {
	return &State{
		Signals: make(map[string]*SignalState),
	}
}

func (s *State) signal(name string) *SignalState {
	if _, ok := s.Signals[name]; !ok {
		s.Signals[name] = &SignalState{
			Errors: make([]SignalError, 0),
		}
	}
	return s.Signals[name]
}

// GetSignalState returns the state for a signal.
func (s *State) GetSignalState(name string) DebounceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.Signals[name]; ok {
		return c.DebounceState
	}
	return DebounceStateUnspecified
}

// GetSignal returns a copy of the state of a signal.
func (s *State) GetSignal(name string) (SignalState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.Signals[name]
	if !ok {
		return SignalState{}, false
	}
	cp := *c
	cp.Errors = slices.Clone(c.Errors)
	return cp, true
}

// StartRun resets a signal to IDLE from baseline and returns a new run ID.
func (s *State) StartRun(name string, baseline string, labels map[string]string) string {
	runID := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.signal(name)
	c.RunID = runID
	c.Baseline = baseline
	c.Candidate = ""
	c.Labels = labels
	s.set(name, c, DebounceStateIdle)
	return runID
}

// SetCandidate moves a signal to RACING with candidate.
func (s *State) SetCandidate(name string, candidate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.signal(name)
	c.Candidate = candidate
	s.set(name, c, DebounceStateRacing)
}

// SetNoise records a discarded candidate and moves the signal back to IDLE.
func (s *State) SetNoise(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.signal(name)
	c.Noise++
	c.Candidate = ""
	s.set(name, c, DebounceStateIdle)
	recordNoise(context.Background(), name, c.Labels)
}

// SetStable records a stable value.
func (s *State) SetStable(name string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.signal(name)
	c.Stable = value
	c.Candidate = ""
	s.set(name, c, DebounceStateStable)
}

// SetSignalState sets the state for a signal.
func (s *State) SetSignalState(name string, state DebounceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(name, s.signal(name), state)
}

func (s *State) set(name string, c *SignalState, state DebounceState) {
	c.DebounceState = state
	c.UpdatedAt = time.Now().UTC()
	setStateMetrics(context.Background(), name, state, c.Labels)
}

// SetSignalError sets an error for a signal.
func (s *State) SetSignalError(name string, err error) {
	if err == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.signal(name)
	c.Errors = append(c.Errors, SignalError{
		Timestamp: time.Now().UTC().String(),
		Error:     err.Error(),
	})
	if len(c.Errors) > maxErrors {
		c.Errors = c.Errors[len(c.Errors)-maxErrors:]
	}
	s.set(name, c, DebounceStateError)
}

// MarshalJSON marshals a consistent snapshot of the state.
func (s *State) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(struct {
		Signals map[string]*SignalState `json:"signals"`
	}{
		Signals: s.Signals,
	})
}
