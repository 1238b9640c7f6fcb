// Package session guards the authenticated pages: the gate state machine,
// auth-state subscriptions and the one-shot flash slots.
package session

import (
	"strings"

	"device-tracking-backend/internal/identity"
)

// State is what the gate knows about the visitor.
type State string

const (
	StateUnknown         State = "unknown"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Action is what the page should do next.
type Action string

const (
	ActionLoading  Action = "loading"
	ActionRender   Action = "render"
	ActionRedirect Action = "redirect"
)

const (
	LoginPath   = "/login"
	DefaultPath = "/dashboard"
)

// RedirectMessage is shown on the login page after a gated page bounced
// the visitor.
var RedirectMessage = Flash{Type: "info", Message: "Please log in to access the dashboard."}

// Decision is the outcome of evaluating the gate for one path.
type Decision struct {
	State    State  `json:"state"`
	Action   Action `json:"action"`
	Location string `json:"location,omitempty"`
	From     string `json:"from,omitempty"`
	Flash    *Flash `json:"flash,omitempty"`
}

// StateOf maps a verified session to a gate state. Sessions without a
// phone number do not count as signed in.
func StateOf(s *identity.Session) State {
	if s == nil || s.PhoneNumber == "" {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

// Decide evaluates the gate for path. from is the page the login view
// should return to.
func Decide(state State, path, from string) Decision {
	d := Decision{State: state}
	switch state {
	case StateAuthenticated:
		if path == LoginPath {
			d.Action = ActionRedirect
			d.Location = SafeReturnPath(from)
			return d
		}
		d.Action = ActionRender
	case StateUnauthenticated:
		if path == LoginPath {
			d.Action = ActionRender
			return d
		}
		flash := RedirectMessage
		d.Action = ActionRedirect
		d.Location = LoginPath
		d.From = path
		d.Flash = &flash
	default:
		d.Action = ActionLoading
	}
	return d
}

// SafeReturnPath keeps redirects on this site. Anything that is not a
// local absolute path falls back to the dashboard.
func SafeReturnPath(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return DefaultPath
	}
	if from == LoginPath || strings.HasPrefix(from, LoginPath+"?") {
		return DefaultPath
	}
	return from
}

// Gate follows one page's view of the auth state. It starts unknown and
// never returns there; while unknown it only asks for a loading indicator.
type Gate struct {
	path  string
	from  string
	state State
}

// NewGate creates a gate for a page at path.
func NewGate(path, from string) *Gate {
	return &Gate{path: path, from: from, state: StateUnknown}
}

// State returns the current state.
func (g *Gate) State() State {
	return g.state
}

// Decision evaluates the gate in its current state.
func (g *Gate) Decision() Decision {
	return Decide(g.state, g.path, g.from)
}

// Transition moves to next and reports whether anything changed.
func (g *Gate) Transition(next State) (Decision, bool) {
	if next == StateUnknown || next == g.state {
		return g.Decision(), false
	}
	g.state = next
	return g.Decision(), true
}
