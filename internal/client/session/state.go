package session

import (
	"time"

	"github.com/dmitrijs2005/mediax/internal/client/models"
)

type State int

const (
	Booting State = iota
	Anonymous
	Authenticating
	Authenticated
	Expiring
)

func (s State) String() string {
	switch s {
	case Booting:
		return "booting"
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expiring:
		return "expiring"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot of the controller. Identity is set only
// in state Authenticated. ExpiresAt is zero when the credential carries no
// readable expiry.
type Session struct {
	State     State
	Identity  *models.Identity
	ExpiresAt time.Time
}

func (s Session) Authenticated() bool {
	return s.State == Authenticated && s.Identity != nil
}

// Policy holds the configurable parts of the login flow.
type Policy struct {
	// RevertOnLoginFailure clears a freshly issued credential when the
	// identity fetch right after login fails. Off by default: the issued
	// credential is kept and the session stays in Authenticating until a
	// RefreshIdentity succeeds or Logout is called.
	RevertOnLoginFailure bool
}
