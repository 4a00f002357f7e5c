// Package session implements the client's session state machine.
//
//	Booting ──Bootstrap──▶ Anonymous | Authenticated
//	Anonymous ──Login──▶ Authenticating ──identity──▶ Authenticated
//	Authenticated ──Logout──▶ Anonymous
//	Authenticated ──HandleAuthFailure / CheckExpiry──▶ Expiring ──▶ Anonymous
//
// Every identity fetch records the generation it started in. Login, Logout
// and expiry bump the generation, so a fetch that completes after any of them
// is discarded instead of resurrecting a session the user already left.
//
// The Controller is the only component that writes the credential store.
// Consumers of protected endpoints report 401s through HandleAuthFailure
// rather than clearing anything themselves.
package session
