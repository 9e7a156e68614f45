package thread

import "sync/atomic"

// Switch is the process-wide enable flag consulted before any processing.
type Switch struct {
	on atomic.Bool
}

// NewSwitch creates a Switch in the given state.
func NewSwitch(enabled bool) *Switch {
	s := &Switch{}
	s.on.Store(enabled)
	return s
}

// Enabled reports whether message processing is on.
func (s *Switch) Enabled() bool { return s.on.Load() }

// Enable turns processing on and reports the previous state.
func (s *Switch) Enable() bool { return s.on.Swap(true) }

// Disable turns processing off and reports the previous state.
func (s *Switch) Disable() bool { return s.on.Swap(false) }
