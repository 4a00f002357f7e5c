package livesync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/mediax/internal/logging"
	"github.com/goccy/go-json"
)

// CollectionChanged is the only push type the client reacts to.
const CollectionChanged = "videosUpdated"

// Event kinds passed to the event hook.
const (
	KindUpdate    = "update"
	KindIgnored   = "ignored"
	KindMalformed = "malformed"
)

// ErrStreamEnded is the channel error when the server closed the stream.
var ErrStreamEnded = errors.New("live sync stream ended")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Streamer opens a long-lived server-push response. *gateway.Gateway
// satisfies it.
type Streamer interface {
	Stream(ctx context.Context, endpoint string) (io.ReadCloser, error)
}

// Channel is one live subscription. It never reconnects: after a transport
// failure it stays Errored and the owner has to Open a new one.
type Channel struct {
	log       logging.Logger
	onEvent   func(kind string)
	cancel    context.CancelFunc
	body      io.ReadCloser
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	state   State
	err     error
	handler func()
}

type options struct {
	log            logging.Logger
	connectTimeout time.Duration
	onEvent        func(kind string)
	onUpdate       func()
}

type Option func(*options)

func WithLogger(l logging.Logger) Option { return func(o *options) { o.log = l } }

// WithConnectTimeout bounds how long Open waits for the stream to be
// accepted. It does not limit the stream afterwards.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithUpdateHandler installs the update handler before reading starts, so
// no message can slip past between Open and OnUpdate.
func WithUpdateHandler(fn func()) Option { return func(o *options) { o.onUpdate = fn } }

// WithEventHook is told the kind of every received message.
func WithEventHook(fn func(kind string)) Option { return func(o *options) { o.onEvent = fn } }

// Open connects to endpoint and starts reading. The channel lives until
// Close, a transport failure, or cancellation of ctx.
func Open(ctx context.Context, s Streamer, endpoint string, opts ...Option) (*Channel, error) {
	o := options{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	sctx, cancel := context.WithCancel(ctx)

	var timer *time.Timer
	if o.connectTimeout > 0 {
		timer = time.AfterFunc(o.connectTimeout, cancel)
	}
	body, err := s.Stream(sctx, endpoint)
	if timer != nil && !timer.Stop() {
		if body != nil {
			body.Close()
		}
		cancel()
		return nil, fmt.Errorf("open %s: no response within %s: %w", endpoint, o.connectTimeout, context.DeadlineExceeded)
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open %s: %w", endpoint, err)
	}

	c := &Channel{
		log:     o.log.With("component", "livesync", "endpoint", endpoint),
		onEvent: o.onEvent,
		cancel:  cancel,
		body:    body,
		done:    make(chan struct{}),
		state:   StateOpen,
		handler: o.onUpdate,
	}
	c.log.Info(ctx, "live sync open")
	go c.run(sctx)
	return c, nil
}

// OnUpdate sets the function called once per collection-changed message.
// It runs on the channel's reader goroutine.
func (c *Channel) OnUpdate(fn func()) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err is the transport error that moved the channel to Errored.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the reader goroutine has exited.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Close stops the channel. It is safe to call any number of times, from any
// goroutine, in any state. Only a handler already being dispatched may run
// after Close returns. An Errored channel stays Errored.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.state == StateOpen {
			c.state = StateClosed
		}
		c.handler = nil
		c.mu.Unlock()

		c.cancel()
		c.body.Close()
	})
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer c.body.Close()

	err := readEvents(c.body, c.dispatch)
	if err == nil {
		err = ErrStreamEnded
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return
	}
	if ctx.Err() != nil {
		c.state = StateClosed
		return
	}
	c.state = StateErrored
	c.err = err
	c.log.Warn(ctx, "live sync failed", "error", err)
}

func (c *Channel) dispatch(ev event) {
	if ev.Name != "" && ev.Name != "message" {
		c.observe(KindIgnored)
		return
	}

	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(ev.Data), &msg); err != nil {
		c.log.Debug(context.Background(), "push message ignored", "reason", "malformed")
		c.observe(KindMalformed)
		return
	}
	if msg.Type != CollectionChanged {
		c.observe(KindIgnored)
		return
	}

	c.mu.Lock()
	fn := c.handler
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open {
		return
	}
	c.observe(KindUpdate)
	if fn != nil {
		fn()
	}
}

func (c *Channel) observe(kind string) {
	if c.onEvent != nil {
		c.onEvent(kind)
	}
}
