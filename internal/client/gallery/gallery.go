package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/mediax/internal/client/api"
	"github.com/dmitrijs2005/mediax/internal/client/livesync"
	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/dmitrijs2005/mediax/internal/client/upload"
	"github.com/dmitrijs2005/mediax/internal/common"
	"github.com/dmitrijs2005/mediax/internal/logging"
)

// Videos is the backend surface the gallery uses. *api.Videos satisfies it.
type Videos interface {
	List(ctx context.Context) ([]models.MediaItem, error)
	UpdateTitle(ctx context.Context, id, title string) error
	Remove(ctx context.Context, id string) error
}

// Uploader is satisfied by *upload.Pipeline.
type Uploader interface {
	Upload(ctx context.Context, title string, f upload.File, onProgress func(float64)) (*models.MediaItem, error)
}

// AuthFailureHandler is satisfied by *session.Controller.
type AuthFailureHandler interface {
	HandleAuthFailure(ctx context.Context, err error) bool
}

// State is what a gallery view renders.
type State struct {
	Items    []models.MediaItem
	Err      error
	Loading  bool
	Selected *models.MediaItem
	Live     livesync.State
	LiveErr  error
}

type Deps struct {
	Videos   Videos
	Uploader Uploader
	Streamer livesync.Streamer
	Session  AuthFailureHandler
	Log      logging.Logger
	// SyncOptions are passed to livesync.Open.
	SyncOptions []livesync.Option
}

// ViewModel backs one mounted gallery view. Activate and Deactivate pair
// like mount and unmount; the live channel opened by Activate is closed by
// Deactivate on every path.
type ViewModel struct {
	d   Deps
	log logging.Logger

	mu       sync.Mutex
	st       State
	active   bool
	cancel   context.CancelFunc
	ch       *livesync.Channel
	fetchSeq uint64
	version  uint64

	notifyMu  sync.Mutex
	pending   []published
	draining  bool
	delivered uint64
	subs      map[int]func(State)
	nextSub   int
}

type published struct {
	st  State
	ver uint64
}

func New(d Deps) *ViewModel {
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	return &ViewModel{
		d:    d,
		log:  d.Log.With("component", "gallery"),
		subs: make(map[int]func(State)),
	}
}

// Snapshot returns the current state. Items must not be modified.
func (v *ViewModel) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.st
}

// Subscribe registers fn for state changes. A handler never sees an older
// state after a newer one. Handlers may call back into the view model;
// changes they cause are delivered after the current handler round.
func (v *ViewModel) Subscribe(fn func(State)) (unsubscribe func()) {
	v.notifyMu.Lock()
	id := v.nextSub
	v.nextSub++
	v.subs[id] = fn
	v.notifyMu.Unlock()

	return func() {
		v.notifyMu.Lock()
		delete(v.subs, id)
		v.notifyMu.Unlock()
	}
}

// Activate subscribes to live updates and loads the collection. Updates
// pushed by the server trigger a re-fetch. ctx bounds the whole activation,
// not just this call. The returned error joins the fetch and channel
// failures; the view model stays active either way and Deactivate must
// still be called.
func (v *ViewModel) Activate(ctx context.Context) error {
	v.mu.Lock()
	if v.active {
		v.mu.Unlock()
		return nil
	}
	v.active = true
	actx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()

	openErr := v.openChannel(actx)
	fetchErr := v.Refresh(actx)
	return errors.Join(fetchErr, openErr)
}

// Deactivate closes the live channel and drops any fetch still in flight.
func (v *ViewModel) Deactivate() {
	v.mu.Lock()
	if !v.active {
		v.mu.Unlock()
		return
	}
	v.active = false
	ch, cancel := v.ch, v.cancel
	v.ch, v.cancel = nil, nil
	v.st.Loading = false
	v.st.Live = livesync.StateClosed
	s, ver := v.changedLocked()
	v.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	cancel()
	v.notify(s, ver)
	v.log.Debug(context.Background(), "gallery deactivated")
}

func (v *ViewModel) openChannel(ctx context.Context) error {
	opts := append([]livesync.Option{
		livesync.WithLogger(v.d.Log),
		livesync.WithUpdateHandler(func() {
			if err := v.Refresh(ctx); err != nil {
				v.log.Warn(ctx, "re-fetch after push failed", "error", err)
			}
		}),
	}, v.d.SyncOptions...)

	ch, err := livesync.Open(ctx, v.d.Streamer, api.EventsEndpoint, opts...)

	v.mu.Lock()
	if err != nil {
		v.st.Live, v.st.LiveErr = livesync.StateErrored, err
		s, ver := v.changedLocked()
		v.mu.Unlock()
		v.notify(s, ver)
		if v.d.Session != nil {
			v.d.Session.HandleAuthFailure(ctx, err)
		}
		return fmt.Errorf("live sync: %w", err)
	}
	if !v.active {
		v.mu.Unlock()
		ch.Close()
		return nil
	}
	v.ch = ch
	v.st.Live, v.st.LiveErr = livesync.StateOpen, nil
	s, ver := v.changedLocked()
	v.mu.Unlock()
	v.notify(s, ver)

	go v.watchChannel(ch)
	return nil
}

// watchChannel publishes the channel's terminal state once it stops.
func (v *ViewModel) watchChannel(ch *livesync.Channel) {
	<-ch.Done()

	v.mu.Lock()
	if v.ch != ch {
		v.mu.Unlock()
		return
	}
	v.st.Live, v.st.LiveErr = ch.State(), ch.Err()
	s, ver := v.changedLocked()
	v.mu.Unlock()
	v.notify(s, ver)
}

// Refresh fetches the collection and replaces it wholesale. A result is
// applied only if no later fetch has started and the view is still active.
func (v *ViewModel) Refresh(ctx context.Context) error {
	v.mu.Lock()
	if !v.active {
		v.mu.Unlock()
		return nil
	}
	v.fetchSeq++
	seq := v.fetchSeq
	v.st.Loading = true
	s, ver := v.changedLocked()
	v.mu.Unlock()
	v.notify(s, ver)

	items, err := v.d.Videos.List(ctx)

	v.mu.Lock()
	if !v.active || seq != v.fetchSeq {
		v.mu.Unlock()
		return nil
	}
	v.st.Loading = false
	if err != nil {
		v.st.Err = err
	} else {
		v.st.Items, v.st.Err = items, nil
		v.st.Selected = find(items, selectedID(v.st.Selected))
	}
	s, ver = v.changedLocked()
	v.mu.Unlock()
	v.notify(s, ver)

	if err != nil {
		v.authFailure(ctx, err)
		return fmt.Errorf("fetch videos: %w", err)
	}
	return nil
}

// Select marks the item with id as selected. An empty id clears the
// selection.
func (v *ViewModel) Select(id string) error {
	v.mu.Lock()
	if id == "" {
		v.st.Selected = nil
	} else {
		it := find(v.st.Items, id)
		if it == nil {
			v.mu.Unlock()
			return fmt.Errorf("video %s: %w", id, common.ErrorNotFound)
		}
		v.st.Selected = it
	}
	s, ver := v.changedLocked()
	v.mu.Unlock()
	v.notify(s, ver)
	return nil
}

// Upload runs the upload pipeline and re-fetches on success.
func (v *ViewModel) Upload(ctx context.Context, title string, f upload.File, onProgress func(float64)) (*models.MediaItem, error) {
	item, err := v.d.Uploader.Upload(ctx, title, f, onProgress)
	if err != nil {
		v.authFailure(ctx, err)
		return nil, err
	}
	v.refreshAfterMutation(ctx)
	return item, nil
}

func (v *ViewModel) Rename(ctx context.Context, id, title string) error {
	if title == "" {
		return fmt.Errorf("title is required: %w", common.ErrorValidation)
	}
	if err := v.d.Videos.UpdateTitle(ctx, id, title); err != nil {
		v.authFailure(ctx, err)
		return err
	}
	v.refreshAfterMutation(ctx)
	return nil
}

func (v *ViewModel) Delete(ctx context.Context, id string) error {
	if err := v.d.Videos.Remove(ctx, id); err != nil {
		v.authFailure(ctx, err)
		return err
	}
	v.refreshAfterMutation(ctx)
	return nil
}

func (v *ViewModel) refreshAfterMutation(ctx context.Context) {
	if err := v.Refresh(ctx); err != nil {
		v.log.Warn(ctx, "re-fetch after change failed", "error", err)
	}
}

func (v *ViewModel) authFailure(ctx context.Context, err error) {
	if v.d.Session != nil && v.d.Session.HandleAuthFailure(ctx, err) {
		v.log.Info(ctx, "session ended by backend")
	}
}

func (v *ViewModel) changedLocked() (State, uint64) {
	v.version++
	return v.st, v.version
}

// notify queues s and, unless another goroutine is already delivering,
// drains the queue without holding notifyMu across handlers. States older
// than one already delivered are dropped.
func (v *ViewModel) notify(s State, ver uint64) {
	v.notifyMu.Lock()
	v.pending = append(v.pending, published{st: s, ver: ver})
	if v.draining {
		v.notifyMu.Unlock()
		return
	}
	v.draining = true
	for len(v.pending) > 0 {
		batch := v.pending
		v.pending = nil
		subs := make([]func(State), 0, len(v.subs))
		for _, fn := range v.subs {
			subs = append(subs, fn)
		}
		v.notifyMu.Unlock()

		for _, p := range batch {
			if p.ver <= v.delivered {
				continue
			}
			v.delivered = p.ver
			for _, fn := range subs {
				fn(p.st)
			}
		}
		v.notifyMu.Lock()
	}
	v.draining = false
	v.notifyMu.Unlock()
}

func selectedID(it *models.MediaItem) string {
	if it == nil {
		return ""
	}
	return it.ID
}

func find(items []models.MediaItem, id string) *models.MediaItem {
	if id == "" {
		return nil
	}
	for i := range items {
		if items[i].ID == id {
			it := items[i]
			return &it
		}
	}
	return nil
}
