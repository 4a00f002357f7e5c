package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/mediax/internal/client/api"
	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/dmitrijs2005/mediax/internal/common"
	"github.com/dmitrijs2005/mediax/internal/logging"
	"github.com/google/uuid"
)

// Progress milestones of the overall upload, in [0, 1].
const (
	TransferShare   = 0.90
	CommitIssued    = 0.95
	CommitConfirmed = 1.0
)

// Transfer is one direct upload handed to a StorageProvider.
type Transfer struct {
	Key  string
	File File
	// Progress receives byte counts as the file is read. Providers call it
	// from whatever goroutine reads the body.
	Progress func(sent, total int64)
}

// StorageProvider puts a file into object storage.
type StorageProvider interface {
	Name() string
	// Validate returns a *ConfigError when required settings are missing.
	Validate() error
	Put(ctx context.Context, t Transfer) (*models.StoredObject, error)
}

// Committer registers a stored object with the backend. *api.Videos
// satisfies it.
type Committer interface {
	Save(ctx context.Context, req api.SaveRequest) (*models.MediaItem, error)
}

// Outcome labels passed to the outcome hook.
const (
	OutcomeDone           = "done"
	OutcomeConfigError    = "config_error"
	OutcomeTransferFailed = "transfer_failed"
	OutcomeCommitFailed   = "commit_failed"
)

type Pipeline struct {
	storage         StorageProvider
	committer       Committer
	log             logging.Logger
	transferTimeout time.Duration
	commitTimeout   time.Duration
	newKey          func() string
	onOutcome       func(outcome string, elapsed time.Duration)
}

type Option func(*Pipeline)

func WithLogger(l logging.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithTimeouts bounds the transfer and commit phases separately. Zero
// leaves a phase bounded only by its context.
func WithTimeouts(transfer, commit time.Duration) Option {
	return func(p *Pipeline) {
		p.transferTimeout = transfer
		p.commitTimeout = commit
	}
}

// WithOutcomeHook is called once per upload with one of the Outcome labels.
func WithOutcomeHook(fn func(outcome string, elapsed time.Duration)) Option {
	return func(p *Pipeline) { p.onOutcome = fn }
}

func New(storage StorageProvider, committer Committer, opts ...Option) *Pipeline {
	p := &Pipeline{
		storage:   storage,
		committer: committer,
		log:       logging.Nop(),
		newKey:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "upload")
	return p
}

// Upload transfers f to object storage and registers it under title.
//
// onProgress, if not nil, receives non-decreasing values in [0, 1]: up to
// 0.90 while transferring, 0.95 once the commit is issued and exactly 1.0
// after the backend confirmed it.
//
// Cancelling ctx aborts the transfer with a *TransferError. Once the
// transfer finished the commit is no longer cancellable; if it fails a
// *CommitError is returned and the stored object stays orphaned.
func (p *Pipeline) Upload(ctx context.Context, title string, f File, onProgress func(float64)) (*models.MediaItem, error) {
	return p.Run(ctx, NewTask(title, f), f, onProgress)
}

// Run executes t, which must have been created for f with NewTask.
func (p *Pipeline) Run(ctx context.Context, t *Task, f File, onProgress func(float64)) (*models.MediaItem, error) {
	start := time.Now()
	title := strings.TrimSpace(t.Snapshot().Title)

	item, outcome, err := p.run(ctx, t, title, f, onProgress)
	if p.onOutcome != nil {
		p.onOutcome(outcome, time.Since(start))
	}
	if err != nil {
		t.update(func(s *TaskState) {
			s.Phase = PhaseFailed
			s.Err = err
		})
		return nil, err
	}
	t.update(func(s *TaskState) {
		s.Phase = PhaseDone
		s.Item = item
	})
	return item, nil
}

func (p *Pipeline) run(ctx context.Context, t *Task, title string, f File, onProgress func(float64)) (*models.MediaItem, string, error) {
	if err := p.storage.Validate(); err != nil {
		return nil, OutcomeConfigError, err
	}
	if title == "" {
		return nil, OutcomeConfigError, fmt.Errorf("title is required: %w", common.ErrorValidation)
	}
	if f.Reader == nil {
		return nil, OutcomeConfigError, fmt.Errorf("no file selected: %w", common.ErrorValidation)
	}

	pr := &progress{task: t, fn: onProgress}
	key := p.newKey()
	log := p.log.With("title", title, "key", key, "provider", p.storage.Name())

	t.update(func(s *TaskState) { s.Phase = PhaseTransferring })
	log.Info(ctx, "transfer started", "size", f.Size)

	obj, err := p.transfer(ctx, key, f, pr)
	if err != nil {
		pr.stop()
		log.Warn(ctx, "transfer failed", "error", err)
		return nil, OutcomeTransferFailed, err
	}
	pr.report(TransferShare)

	t.update(func(s *TaskState) { s.Phase = PhaseCommitting })
	pr.report(CommitIssued)

	cctx := context.WithoutCancel(ctx)
	if p.commitTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(cctx, p.commitTimeout)
		defer cancel()
	}
	item, err := p.committer.Save(cctx, api.SaveRequest{
		Title:    title,
		VideoURL: obj.SecureURL,
		PublicID: obj.PublicID,
		Duration: obj.Duration,
	})
	if err != nil {
		log.Error(ctx, "commit failed, stored object is orphaned", "public_id", obj.PublicID, "error", err)
		return nil, OutcomeCommitFailed, &CommitError{Object: *obj, Err: err}
	}
	pr.report(CommitConfirmed)
	log.Info(ctx, "upload committed", "media_id", item.ID)
	return item, OutcomeDone, nil
}

func (p *Pipeline) transfer(ctx context.Context, key string, f File, pr *progress) (*models.StoredObject, error) {
	if p.transferTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.transferTimeout)
		defer cancel()
	}

	obj, err := p.storage.Put(ctx, Transfer{
		Key:  key,
		File: f,
		Progress: func(sent, total int64) {
			if total > 0 {
				pr.report(min(float64(sent)/float64(total), 1) * TransferShare)
			}
		},
	})
	if err != nil {
		var te *TransferError
		if !errors.As(err, &te) {
			err = &TransferError{Provider: p.storage.Name(), Err: err}
		}
		return nil, err
	}
	if obj == nil {
		return nil, &TransferError{Provider: p.storage.Name(), Err: errors.New("provider returned no object")}
	}
	return obj, nil
}

// progress clamps reports into [0, 1], drops any that would go backwards
// and goes silent after stop.
type progress struct {
	mu      sync.Mutex
	last    float64
	started bool
	stopped bool
	task    *Task
	fn      func(float64)
}

func (p *progress) report(v float64) {
	v = min(max(v, 0), 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || (p.started && v <= p.last) {
		return
	}
	p.started = true
	p.last = v
	p.task.update(func(s *TaskState) { s.Progress = v })
	if p.fn != nil {
		p.fn(v)
	}
}

func (p *progress) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
