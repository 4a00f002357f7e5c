package upload

import (
	"slices"
	"sync"

	"github.com/dmitrijs2005/mediax/internal/client/models"
)

type Phase int

const (
	PhasePending Phase = iota
	PhaseTransferring
	PhaseCommitting
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseTransferring:
		return "transferring"
	case PhaseCommitting:
		return "committing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TaskState is a snapshot of a Task.
type TaskState struct {
	Title    string
	FileName string
	Phase    Phase
	Progress float64
	Err      error
	Item     *models.MediaItem
}

// Task tracks one upload. It lives only in memory; an upload whose Task is
// dropped cannot be resumed.
type Task struct {
	mu       sync.Mutex
	state    TaskState
	watchers []func(TaskState)
	done     chan struct{}
}

func NewTask(title string, f File) *Task {
	return &Task{
		state: TaskState{Title: title, FileName: f.Name},
		done:  make(chan struct{}),
	}
}

func (t *Task) Snapshot() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Watch registers fn for every change of the task. fn runs on the
// uploading goroutine.
func (t *Task) Watch(fn func(TaskState)) {
	t.mu.Lock()
	t.watchers = append(t.watchers, fn)
	t.mu.Unlock()
}

// Done is closed once the task reaches PhaseDone or PhaseFailed.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) update(fn func(*TaskState)) {
	t.mu.Lock()
	fn(&t.state)
	s := t.state
	watchers := slices.Clone(t.watchers)
	t.mu.Unlock()

	for _, w := range watchers {
		w(s)
	}
	if s.Phase == PhaseDone || s.Phase == PhaseFailed {
		select {
		case <-t.done:
		default:
			close(t.done)
		}
	}
}
