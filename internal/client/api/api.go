// Package api maps backend REST endpoints onto typed calls made through the
// request gateway. It holds no state and no policy.
package api

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/mediax/internal/client/gateway"
)

// Sender is the part of the gateway the endpoint wrappers need.
type Sender interface {
	Send(ctx context.Context, r gateway.Request) (*gateway.Response, error)
}

// EventsEndpoint is the server-push stream announcing gallery changes.
const EventsEndpoint = "/videos/events"

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func call(ctx context.Context, s Sender, method, endpoint string, body, out any) error {
	resp, err := s.Send(ctx, gateway.Request{Method: method, Endpoint: endpoint, Body: body})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

func get(ctx context.Context, s Sender, endpoint string, out any) error {
	return call(ctx, s, http.MethodGet, endpoint, nil, out)
}
