package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/mediax/internal/common"
	"github.com/dmitrijs2005/mediax/internal/logging"
	"github.com/goccy/go-json"
)

// Encoding selects how a request body is put on the wire.
type Encoding int

const (
	// EncodingStructured marshals Body to JSON.
	EncodingStructured Encoding = iota
	// EncodingBinaryForm streams a *FormBody untouched.
	EncodingBinaryForm
)

// CredentialSource is read on every Send. *credentials.Store satisfies it.
type CredentialSource interface {
	Get() (string, bool)
}

// Observer is notified after every call; status is 0 when no response was
// received.
type Observer func(method string, status int, elapsed time.Duration)

type Request struct {
	Method   string
	Endpoint string
	Body     any
	Encoding Encoding
}

type Response struct {
	Status int
	Body   []byte

	method   string
	endpoint string
}

// Decode unmarshals the response body into v. A body that does not decode
// is reported as a *NetworkError, like a truncated transfer would be.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &NetworkError{Method: r.method, Endpoint: r.endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

type Gateway struct {
	baseURL  string
	creds    CredentialSource
	http     *http.Client
	timeout  time.Duration
	log      logging.Logger
	observer Observer
}

type Option func(*Gateway)

func WithHTTPClient(c *http.Client) Option { return func(g *Gateway) { g.http = c } }

// WithTimeout bounds every Send (but not Stream) with d.
func WithTimeout(d time.Duration) Option { return func(g *Gateway) { g.timeout = d } }

func WithLogger(l logging.Logger) Option { return func(g *Gateway) { g.log = l } }

func WithObserver(o Observer) Option { return func(g *Gateway) { g.observer = o } }

func New(baseURL string, creds CredentialSource, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    http.DefaultClient,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With("component", "gateway")
	return g
}

// URL resolves an endpoint against the base URL.
func (g *Gateway) URL(endpoint string) string {
	return g.baseURL + endpoint
}

// Send performs one backend call. Non-2xx responses become *HTTPError,
// transport failures *NetworkError. Send never touches the credential store
// beyond reading it.
func (g *Gateway) Send(ctx context.Context, r Request) (*Response, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req, err := g.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		g.observe(r.Method, 0, start)
		g.log.Warn(ctx, "request failed", "method", r.Method, "endpoint", r.Endpoint, "error", err)
		return nil, &NetworkError{Method: r.Method, Endpoint: r.Endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	g.observe(r.Method, resp.StatusCode, start)
	if err != nil {
		return nil, &NetworkError{Method: r.Method, Endpoint: r.Endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		he := &HTTPError{Status: resp.StatusCode}
		if len(bytes.TrimSpace(body)) > 0 {
			// A non-JSON error body still yields an HTTPError, just without payload fields.
			_ = json.Unmarshal(body, &he.Payload)
		}
		g.log.Debug(ctx, "request rejected", "method", r.Method, "endpoint", r.Endpoint, "status", resp.StatusCode)
		return nil, he
	}

	return &Response{Status: resp.StatusCode, Body: body, method: r.Method, endpoint: r.Endpoint}, nil
}

// Stream opens a long-lived GET for a server-push endpoint. No timeout is
// applied beyond ctx. The caller owns the returned body.
func (g *Gateway) Stream(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.URL(endpoint), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	g.authorize(req)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: http.MethodGet, Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		he := &HTTPError{Status: resp.StatusCode}
		if body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); len(body) > 0 {
			_ = json.Unmarshal(body, &he.Payload)
		}
		return nil, he
	}
	return resp.Body, nil
}

func (g *Gateway) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)

	switch r.Encoding {
	case EncodingStructured:
		if r.Body != nil {
			b, err := json.Marshal(r.Body)
			if err != nil {
				return nil, fmt.Errorf("encode %s %s body: %w", r.Method, r.Endpoint, err)
			}
			body = bytes.NewReader(b)
		}
		contentType = "application/json"
	case EncodingBinaryForm:
		fb, ok := r.Body.(*FormBody)
		if !ok || fb == nil {
			return nil, fmt.Errorf("%s %s: binary-form body must be *FormBody: %w", r.Method, r.Endpoint, common.ErrorValidation)
		}
		body = fb.Reader
		contentType = fb.ContentType
	default:
		return nil, fmt.Errorf("unknown encoding %d: %w", r.Encoding, common.ErrorValidation)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, g.URL(r.Endpoint), body)
	if err != nil {
		if fb, ok := r.Body.(*FormBody); ok && fb != nil {
			_ = fb.Close()
		}
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	g.authorize(req)
	return req, nil
}

// authorize reads the credential at dispatch time, never earlier.
func (g *Gateway) authorize(req *http.Request) {
	if g.creds == nil {
		return
	}
	if c, ok := g.creds.Get(); ok {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c)
	}
}

func (g *Gateway) observe(method string, status int, start time.Time) {
	if g.observer != nil {
		g.observer(method, status, time.Since(start))
	}
}
