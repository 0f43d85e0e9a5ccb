package session

import "sync"

// Group aggregates the recording sessions belonging to one question
// instance. It does not own the sessions — it only reads their states to
// decide whether the surrounding form may be submitted and whether each
// session's controls are currently usable.
//
// While one session holds the capture device (Starting, Capturing, or
// Paused) every sibling's controls report disabled, preventing a second
// session from contending for the device. Controls are re-enabled on any
// terminal transition.
//
// All methods are safe for concurrent use.
type Group struct {
	mu       sync.Mutex
	sessions []*Session
	onChange func()
}

// NewGroup creates an empty group. The optional onChange callback is
// invoked (outside the group lock) after any tracked session changes
// state, so the presentation layer can re-query control availability.
func NewGroup(onChange func()) *Group {
	return &Group{onChange: onChange}
}

// Add places s under the group's aggregation and subscribes to its state
// transitions.
func (g *Group) Add(s *Session) {
	g.mu.Lock()
	g.sessions = append(g.sessions, s)
	g.mu.Unlock()
	s.AddStateWatcher(g.onSessionState)
}

// Sessions returns a snapshot of the tracked sessions.
func (g *Group) Sessions() []*Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Session, len(g.sessions))
	copy(out, g.sessions)
	return out
}

// IsAnyRecorded reports whether at least one session holds a finalized
// recording. Gates submission of the surrounding workflow.
func (g *Group) IsAnyRecorded() bool {
	for _, s := range g.Sessions() {
		if s.State() == StateRecorded {
			return true
		}
	}
	return false
}

// ControlsEnabled reports whether the given session's controls are usable.
// Controls are disabled for every session except the one currently holding
// the device.
func (g *Group) ControlsEnabled(s *Session) bool {
	for _, other := range g.Sessions() {
		if other == s {
			continue
		}
		if other.State().engaged() {
			return false
		}
	}
	return true
}

// onSessionState is the per-session state watcher.
func (g *Group) onSessionState(*Session, State) {
	if g.onChange != nil {
		g.onChange()
	}
}
