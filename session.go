package portal

import (
	"fmt"
	"time"
)

// SessionStatus is the readiness of the live session. A session starts
// initializing and becomes ready once the provider's first snapshot
// (identity present or absent) arrives. It never reverts.
type SessionStatus string

const (
	SessionInitializing SessionStatus = "initializing"
	SessionReady        SessionStatus = "ready"
)

// Session is a snapshot of the single live session. Identity is nil
// when no one is signed in.
type Session struct {
	Identity Identity
	Status   SessionStatus
}

// Authenticated reports whether the snapshot carries an identity.
func (s Session) Authenticated() bool {
	return s.Identity != nil
}

func (s Session) String() string {
	who := "<none>"
	if s.Identity != nil {
		who = s.Identity.ID()
	}
	return fmt.Sprintf("identity=%s status=%s", who, s.Status)
}

// SessionTransition is one entry in the store's append-only transition
// log. Cause names the event that produced the snapshot.
type SessionTransition struct {
	Cause      string
	From       Session
	To         Session
	OccurredAt time.Time
}

// transition causes recorded by the session store
const (
	transitionCauseInitialize = "initialize"
	transitionCauseSignOut    = "sign_out"
)
