// File: internal/guard/decide.go

// Package guard decides, per navigation, whether a screen renders or where the user is sent.
package guard

import (
	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/profile"
	"fitcoach_backend/internal/role"
)

// Paths the guard redirects to.
const (
	LoginPath   = "/login"
	WelcomePath = "/welcome"
)

// State classifies the caller for one navigation attempt.
type State string

const (
	StateNoSession     State = "no_session"
	StateSessionNoRole State = "session_no_role"
	// StateAuthenticated is a session on a screen that declares no role.
	StateAuthenticated State = "authenticated"
	StateRoleMatches   State = "role_matches"
	StateRoleMismatch  State = "role_mismatch"
)

// Action is what the adapter should do.
type Action string

const (
	ActionRender   Action = "render"
	ActionRedirect Action = "redirect"
)

// Decision is the outcome of Decide. Target is set only for redirects.
type Decision struct {
	State  State  `json:"state"`
	Action Action `json:"action"`
	Target string `json:"target,omitempty"`
}

// Render reports whether the protected content may be shown.
func (d Decision) Render() bool { return d.Action == ActionRender }

// Decide maps (session, profile, required role) to a Decision. required == role.None means the
// screen only needs a session.
func Decide(session *auth.Session, p *profile.Profile, required role.Role) Decision {
	if session == nil {
		return Decision{State: StateNoSession, Action: ActionRedirect, Target: LoginPath}
	}
	if !required.Valid() {
		return Decision{State: StateAuthenticated, Action: ActionRender}
	}
	// A profile for another user is as good as none.
	if p != nil && p.ID != session.UserID {
		p = nil
	}
	have := role.Of(p)
	switch {
	case !have.Valid():
		return Decision{State: StateSessionNoRole, Action: ActionRedirect, Target: WelcomePath}
	case have == required:
		return Decision{State: StateRoleMatches, Action: ActionRender}
	default:
		return Decision{State: StateRoleMismatch, Action: ActionRedirect, Target: have.Home()}
	}
}
