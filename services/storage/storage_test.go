package storagesvc

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/upload"
)

func TestSimulatedStorage_Store(t *testing.T) {
	s := NewSimulated(time.Millisecond, 30)

	var reports []int
	id, err := s.Store(context.Background(), upload.File{Name: "report.pdf"}, func(p int) { reports = append(reports, p) })
	require.NoError(t, err)
	assert.Len(t, id, 26)
	assert.Equal(t, []int{30, 60, 90, 100}, reports)

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := NewSimulated(time.Hour, 10)
		_, err := s.Store(ctx, upload.File{Name: "report.pdf"}, func(int) {})
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("failing", func(t *testing.T) {
		s := NewSimulated(time.Millisecond, 10)
		s.Fail = func(upload.File) error { return errors.New("storage down") }
		_, err := s.Store(context.Background(), upload.File{Name: "report.pdf"}, func(int) {})
		assert.EqualError(t, err, "storage down")
	})
}

func TestDiskStorage_Store(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewDisk(dir)
	require.NoError(t, err)

	content := bytes.Repeat([]byte("engsoc"), 20000)
	var last int
	id, err := s.Store(context.Background(), upload.File{
		Name:    "design.docx",
		Size:    int64(len(content)),
		Content: bytes.NewReader(content),
	}, func(p int) { last = p })
	require.NoError(t, err)
	assert.Equal(t, 100, last)

	stored, err := os.ReadFile(s.Path(id))
	require.NoError(t, err)
	assert.Equal(t, content, stored)

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Store(ctx, upload.File{Name: "a.pdf", Size: 3, Content: bytes.NewReader([]byte("abc"))}, func(int) {})
		require.Error(t, err)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "only the first upload is kept")
	})

	t.Run("no content", func(t *testing.T) {
		_, err := s.Store(context.Background(), upload.File{Name: "a.pdf"}, func(int) {})
		assert.EqualError(t, err, "no content to store")
	})
}

func TestNew(t *testing.T) {
	conf := core.NewTestConfig().Portal

	s, err := New(conf)
	require.NoError(t, err)
	assert.IsType(t, &SimulatedStorage{}, s)

	conf.Storage = Disk
	conf.StorageDir = t.TempDir()
	s, err = New(conf)
	require.NoError(t, err)
	assert.IsType(t, &DiskStorage{}, s)

	conf.Storage = "s3"
	_, err = New(conf)
	assert.EqualError(t, err, `unknown storage "s3"`)
}
