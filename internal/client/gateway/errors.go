package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// NetworkError means no HTTP response was received: DNS, connect, reset,
// timeout or cancellation.
type NetworkError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError means the backend answered with a non-2xx status.
type HTTPError struct {
	Status  int
	Payload ErrorPayload
}

func (e *HTTPError) Error() string {
	if e.Payload.Message != "" {
		return e.Payload.Message
	}
	return fmt.Sprintf("request failed: %d %s", e.Status, http.StatusText(e.Status))
}

// ErrorPayload is the backend's error body: {message, requiresVerification, ...}.
// Unknown fields land in Extra.
type ErrorPayload struct {
	Message              string
	RequiresVerification bool
	Extra                map[string]any
}

func (p *ErrorPayload) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		switch k {
		case "message":
			if s, ok := v.(string); ok {
				p.Message = s
				continue
			}
		case "requiresVerification":
			if flag, ok := v.(bool); ok {
				p.RequiresVerification = flag
				continue
			}
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}
	return nil
}

// IsUnauthorized reports whether err is a 401 from the backend, i.e. the
// credential was rejected.
func IsUnauthorized(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusUnauthorized
}

// RequiresVerification reports whether the backend refused the call because
// the account's email is not verified yet.
func RequiresVerification(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Payload.RequiresVerification
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
