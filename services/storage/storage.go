// Package storagesvc implements the backends uploads are streamed to.
package storagesvc

import (
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/async"
	"github.com/trezcool/engsoc/core/upload"
)

const (
	Simulated = "simulated"
	Disk      = "disk"
)

// New returns the storage named by conf.Storage.
func New(conf core.PortalConfig) (upload.Storage, error) {
	switch conf.Storage {
	case Simulated, "":
		return NewSimulated(conf.UploadTickInterval, conf.UploadTickStep), nil
	case Disk:
		return NewDisk(conf.StorageDir)
	default:
		return nil, errors.Errorf("unknown storage %q", conf.Storage)
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newContentID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// SimulatedStorage stores nothing: every tick advances the progress by a fixed step.
type SimulatedStorage struct {
	interval time.Duration
	step     int
	// Fail, when set, is called with the file before its first tick; a non-nil error fails the upload.
	Fail func(upload.File) error
}

var _ upload.Storage = (*SimulatedStorage)(nil)

func NewSimulated(interval time.Duration, step int) *SimulatedStorage {
	if interval <= 0 {
		interval = 300 * time.Millisecond
	}
	if step <= 0 {
		step = 10
	}
	return &SimulatedStorage{interval: interval, step: step}
}

func (s *SimulatedStorage) Store(ctx context.Context, f upload.File, progress func(percent int)) (string, error) {
	if s.Fail != nil {
		if err := s.Fail(f); err != nil {
			return "", err
		}
	}
	var percent int
	err := async.Tick(ctx, s.interval, func() (bool, error) {
		percent += s.step
		if percent > 100 {
			percent = 100
		}
		progress(percent)
		return percent < 100, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "uploading "+f.Name)
	}
	return newContentID(), nil
}

// DiskStorage writes the uploads under a directory, one file per content id.
type DiskStorage struct {
	dir string
}

var _ upload.Storage = (*DiskStorage)(nil)

func NewDisk(dir string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage dir")
	}
	return &DiskStorage{dir: dir}, nil
}

// Path returns where the content is stored.
func (s *DiskStorage) Path(contentID string) string {
	return filepath.Join(s.dir, contentID)
}

// Store copies f.Content, reporting the share of f.Size written. A cancelled upload leaves no file behind.
func (s *DiskStorage) Store(ctx context.Context, f upload.File, progress func(percent int)) (string, error) {
	if f.Content == nil {
		return "", errors.New("no content to store")
	}
	id := newContentID()
	path := s.Path(id)

	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	w := &countingWriter{w: out, total: f.Size, progress: progress}
	_, err = io.Copy(w, &ctxReader{ctx: ctx, r: f.Content})
	if cErr := out.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(err, "writing "+f.Name)
	}
	return id, nil
}

type countingWriter struct {
	w        io.Writer
	written  int64
	total    int64
	progress func(int)
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.written += int64(n)
	if cw.total > 0 {
		cw.progress(int(cw.written * 100 / cw.total))
	}
	return n, err
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
