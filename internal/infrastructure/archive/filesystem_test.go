package archive

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arvi/quotation/internal/infrastructure/printing"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchiver(t *testing.T) (*FileSystemArchiver, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	a, err := NewFileSystemArchiver(fs, &FileSystemConfig{BasePath: "/archive"})
	require.NoError(t, err)
	return a, fs
}

func TestFileSystemArchiver_Archive(t *testing.T) {
	a, fs := newTestArchiver(t)
	created := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	res, err := a.Archive(context.Background(), Entry{
		QuoteNumber: "ARVI/2026/045",
		Filename:    "ARVI_Quotation_ARVI-2026-045.pdf",
		PDF:         []byte("%PDF-1.4 test"),
		CreatedAt:   created,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(13), res.Size)
	assert.True(t, strings.HasPrefix(res.Location, filepath.Join("2026", "03")+string(filepath.Separator)))
	assert.True(t, strings.HasSuffix(res.Location, "_ARVI_Quotation_ARVI-2026-045.pdf"))

	data, err := afero.ReadFile(fs, filepath.Join("/archive", res.Location))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))
	assert.Equal(t, "filesystem", a.Backend())
}

func TestFileSystemArchiver_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{name: "empty pdf", entry: Entry{Filename: "a.pdf"}},
		{name: "missing filename", entry: Entry{PDF: []byte("x")}},
		{name: "path traversal", entry: Entry{Filename: "../a.pdf", PDF: []byte("x")}},
	}

	a, _ := newTestArchiver(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Archive(context.Background(), tt.entry)
			require.Error(t, err)
			assert.Equal(t, printing.ErrCodeStorageFailed, printing.CodeOf(err))
		})
	}
}

func TestFileSystemArchiver_CancelledContext(t *testing.T) {
	a, _ := newTestArchiver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Archive(ctx, Entry{Filename: "a.pdf", PDF: []byte("x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSystemArchiver_CleanupOlderThan(t *testing.T) {
	a, fs := newTestArchiver(t)
	ctx := context.Background()

	oldRes, err := a.Archive(ctx, Entry{Filename: "old.pdf", PDF: []byte("x")})
	require.NoError(t, err)
	newRes, err := a.Archive(ctx, Entry{Filename: "new.pdf", PDF: []byte("y")})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/archive/notes.txt", []byte("keep"), 0o644))

	oldPath := filepath.Join("/archive", oldRes.Location)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, fs.Chtimes(oldPath, past, past))
	require.NoError(t, fs.Chtimes("/archive/notes.txt", past, past))

	deleted, err := a.CleanupOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	exists, _ := afero.Exists(fs, oldPath)
	assert.False(t, exists)
	exists, _ = afero.Exists(fs, filepath.Join("/archive", newRes.Location))
	assert.True(t, exists)
	exists, _ = afero.Exists(fs, "/archive/notes.txt")
	assert.True(t, exists, "only PDFs are removed")
}

func TestFileSystemArchiver_RunCleanupStopsWithContext(t *testing.T) {
	a, _ := newTestArchiver(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		a.RunCleanup(ctx, time.Hour, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not return after cancel")
	}
}
