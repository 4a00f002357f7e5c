// Package gateway is the single chokepoint for calls to the mediax backend.
//
// Every call reads the current credential when it is dispatched and, if one
// is held, sends it as "Authorization: Bearer <credential>". Structured
// bodies are JSON; binary-form bodies (multipart, e.g. profile photos) are
// streamed as-is with their own content type.
//
// Failures are typed: *NetworkError when no response arrived, *HTTPError
// with the decoded {message, requiresVerification, ...} payload otherwise.
// The gateway never decides session validity; a 401 is returned to the
// caller like any other HTTPError.
package gateway
