// Package common contains shared constants and sentinel errors used across
// mediax client components.
package common

// AuthorizationHeaderName is the HTTP header used to carry the session
// credential on outbound backend requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the credential in the Authorization header.
const BearerPrefix = "Bearer "

// Well-known keys of the local key/value store.
const (
	CredentialKey               = "token"
	PendingVerificationEmailKey = "pendingVerificationEmail"
	ThemeKey                    = "theme"
)
