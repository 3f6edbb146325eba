package portal

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core/async"
	"github.com/trezcool/engsoc/core/upload"
	"github.com/trezcool/engsoc/core/wizard"
)

var ErrNoUploads = errors.New("screen does not accept files")

type Kind string

const (
	KindRegistration Kind = "registration"
	KindSubmission   Kind = "submission"
)

// Screen is a flow mounted by one member. Its goroutines live in its scope until Close.
type Screen struct {
	id      string
	kind    Kind
	owner   string
	subject interface{}
	scope   *async.Scope
	machine *wizard.Machine
	tracker *upload.Tracker // submission screens only
}

// View is what a client renders.
type View struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	wizard.Snapshot
	Subject interface{}   `json:"subject,omitempty"`
	Rule    *upload.Rule  `json:"rule,omitempty"`
	Files   []upload.Task `json:"files,omitempty"`
}

func (s *Screen) ID() string    { return s.id }
func (s *Screen) Kind() Kind    { return s.kind }
func (s *Screen) Owner() string { return s.owner }

func (s *Screen) SetFields(values map[string]interface{}) error {
	return s.machine.Set(values)
}

func (s *Screen) Advance() error {
	return s.machine.Advance()
}

func (s *Screen) Retreat() error {
	return s.machine.Retreat()
}

// AddFile starts the upload of f. Files are accepted until the submission starts:
// the final Advance cannot run while a file is being added.
func (s *Screen) AddFile(f upload.File) (upload.Task, error) {
	if s.tracker == nil {
		return upload.Task{}, ErrNoUploads
	}
	var task upload.Task
	err := s.machine.Edit(func() (err error) {
		task, err = s.tracker.Add(f)
		return err
	})
	return task, err
}

// CheckFile tells whether f would be accepted, without starting an upload.
func (s *Screen) CheckFile(f upload.File) error {
	if s.tracker == nil {
		return ErrNoUploads
	}
	return s.tracker.Rule().Check(f)
}

func (s *Screen) RemoveFile(id string) error {
	if s.tracker == nil {
		return ErrNoUploads
	}
	return s.machine.Edit(func() error {
		return s.tracker.Remove(id)
	})
}

// Wait blocks until no submission is in flight and returns its error.
func (s *Screen) Wait(ctx context.Context) error {
	return s.machine.Wait(ctx)
}

func (s *Screen) View() View {
	v := View{
		ID:       s.id,
		Kind:     s.kind,
		Snapshot: s.machine.Snapshot(),
		Subject:  s.subject,
	}
	if s.tracker != nil {
		rule := s.tracker.Rule()
		v.Rule = &rule
		v.Files = s.tracker.Tasks()
	}
	return v
}

// Close cancels the pending operations of the screen and waits for them.
// In-flight uploads are discarded.
func (s *Screen) Close() {
	s.scope.Close()
}
