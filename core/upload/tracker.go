package upload

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core/async"
)

var ErrTaskNotFound = errors.New("upload not found")

type Status string

const (
	StatusUploading Status = "uploading"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Task is the tracked state of one file upload.
type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Type      string `json:"type"`
	Progress  int    `json:"progress"` // percentage in [0,100]
	Status    Status `json:"status"`
	ContentID string `json:"content_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Storage streams a file to a backend, reporting its progress in percent, and returns a content identifier.
type Storage interface {
	Store(ctx context.Context, f File, progress func(percent int)) (string, error)
}

type TrackerOptions struct {
	// Wrap decorates every store operation, eg: with a timeout or a retry policy.
	Wrap func(async.Operation) async.Operation
	// OnChange is called, with the tracker locked, after every task change.
	OnChange func(Task)
}

// Tracker tracks the uploads of one screen. Each upload runs in its own goroutine in the screen's scope;
// one failing upload does not affect the others.
type Tracker struct {
	mu      sync.Mutex
	rule    Rule
	storage Storage
	scope   *async.Scope
	opts    TrackerOptions
	tasks   []*Task
	cancels map[string]context.CancelFunc
}

func NewTracker(rule Rule, storage Storage, scope *async.Scope, opts ...TrackerOptions) *Tracker {
	t := &Tracker{
		rule:    rule,
		storage: storage,
		scope:   scope,
		cancels: make(map[string]context.CancelFunc),
	}
	if len(opts) > 0 {
		t.opts = opts[0]
	}
	return t
}

func (t *Tracker) Rule() Rule { return t.rule }

func newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Add checks f against the rule and starts its upload. A rejected file returns a *RejectedError
// and is not added to the list.
func (t *Tracker) Add(f File) (Task, error) {
	if err := t.rule.Check(f); err != nil {
		return Task{}, err
	}
	if t.scope.Closed() {
		return Task{}, async.ErrScopeClosed
	}

	task := &Task{
		ID:     newID(),
		Name:   f.Name,
		Size:   f.Size,
		Type:   f.Type,
		Status: StatusUploading,
	}
	id := task.ID

	t.mu.Lock()
	t.tasks = append(t.tasks, task)
	t.changed(task)
	snapshot := *task
	t.mu.Unlock()

	var op async.Operation = async.OperationFunc(func(ctx context.Context) (interface{}, error) {
		return t.storage.Store(ctx, f, func(percent int) { t.progress(id, percent) })
	})
	if t.opts.Wrap != nil {
		op = t.opts.Wrap(op)
	}

	err := t.scope.Go(func(ctx context.Context) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		t.mu.Lock()
		if _, ok := t.find(id); !ok { // removed before it started
			t.mu.Unlock()
			return
		}
		t.cancels[id] = cancel
		t.mu.Unlock()

		res, err := op.Run(ctx)
		t.scope.Apply(func() { t.finish(id, res, err) })
	})
	if err != nil {
		t.mu.Lock()
		t.remove(id)
		t.mu.Unlock()
		return Task{}, err
	}
	return snapshot, nil
}

// progress applies a progress report: only strictly greater values count, capped at 100.
func (t *Tracker) progress(id string, percent int) {
	t.scope.Apply(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		task, ok := t.find(id)
		if !ok || task.Status != StatusUploading {
			return
		}
		if percent > 100 {
			percent = 100
		}
		if percent <= task.Progress {
			return
		}
		task.Progress = percent
		t.changed(task)
	})
}

func (t *Tracker) finish(id string, res interface{}, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.cancels, id)
	task, ok := t.find(id)
	if !ok {
		return // removed while uploading
	}
	if err != nil {
		task.Status = StatusError
		task.Error = err.Error()
		t.changed(task)
		return
	}
	if task.Progress < 100 {
		task.Progress = 100
		t.changed(task)
	}
	task.Status = StatusComplete
	task.ContentID, _ = res.(string)
	t.changed(task)
}

// Remove drops a task from the list, cancelling its upload if still running.
func (t *Tracker) Remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.find(id); !ok {
		return ErrTaskNotFound
	}
	if cancel, ok := t.cancels[id]; ok {
		cancel()
		delete(t.cancels, id)
	}
	t.remove(id)
	return nil
}

// Tasks returns a copy of the tasks, in the order they were added.
func (t *Tracker) Tasks() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	tasks := make([]Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		tasks = append(tasks, *task)
	}
	return tasks
}

// Uploading reports whether an upload is still running.
func (t *Tracker) Uploading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, task := range t.tasks {
		if task.Status == StatusUploading {
			return true
		}
	}
	return false
}

// Completed returns the successfully uploaded tasks.
func (t *Tracker) Completed() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	tasks := make([]Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		if task.Status == StatusComplete {
			tasks = append(tasks, *task)
		}
	}
	return tasks
}

func (t *Tracker) find(id string) (*Task, bool) {
	for _, task := range t.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return nil, false
}

func (t *Tracker) remove(id string) {
	for i, task := range t.tasks {
		if task.ID == id {
			t.tasks = append(t.tasks[:i], t.tasks[i+1:]...)
			return
		}
	}
}

func (t *Tracker) changed(task *Task) {
	if t.opts.OnChange != nil {
		t.opts.OnChange(*task)
	}
}
