package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arvi/quotation/internal/infrastructure/printing"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// FileSystemConfig contains configuration for file system archives
type FileSystemConfig struct {
	// BasePath is the root directory for archived PDFs
	// Default: ./storage/quotations
	BasePath string
	// Logger for operations
	Logger *zap.Logger
}

// FileSystemArchiver stores PDFs on a local or in-memory file system
type FileSystemArchiver struct {
	fs     afero.Fs
	config *FileSystemConfig
	logger *zap.Logger
}

// NewFileSystemArchiver creates a file system archiver and its base directory
func NewFileSystemArchiver(fs afero.Fs, config *FileSystemConfig) (*FileSystemArchiver, error) {
	if config == nil {
		config = &FileSystemConfig{}
	}
	if config.BasePath == "" {
		config.BasePath = "./storage/quotations"
	}

	if err := fs.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed,
			fmt.Sprintf("failed to create storage directory: %s", config.BasePath), err)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileSystemArchiver{fs: fs, config: config, logger: logger}, nil
}

// Backend implements Archiver
func (a *FileSystemArchiver) Backend() string { return "filesystem" }

// Archive writes the PDF under {base}/{year}/{month}/{uuid}_{filename}
func (a *FileSystemArchiver) Archive(ctx context.Context, entry Entry) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "operation cancelled", ctx.Err())
	default:
	}

	if len(entry.PDF) == 0 {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "PDF data is empty", nil)
	}
	if entry.Filename == "" || filepath.Base(entry.Filename) != entry.Filename {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "invalid filename: "+entry.Filename, nil)
	}

	rel := filepath.FromSlash(objectKey("", entry))
	fullPath := filepath.Join(a.config.BasePath, rel)

	if err := a.fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to create directory", err)
	}
	if err := afero.WriteFile(a.fs, fullPath, entry.PDF, 0o644); err != nil {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to write PDF file", err)
	}

	a.logger.Info("PDF archived",
		zap.String("path", fullPath),
		zap.String("quote_number", entry.QuoteNumber),
		zap.Int("size", len(entry.PDF)))

	return &Result{Location: rel, Size: int64(len(entry.PDF))}, nil
}

// CleanupOlderThan removes archived PDFs older than age
func (a *FileSystemArchiver) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	deletedCount := 0

	err := afero.Walk(a.fs, a.config.BasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() || filepath.Ext(path) != ".pdf" {
			return nil
		}

		if info.ModTime().Before(cutoff) {
			if err := a.fs.Remove(path); err == nil {
				deletedCount++
				a.logger.Debug("deleted old PDF", zap.String("path", path))
			}
		}
		return nil
	})

	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return deletedCount, printing.NewRenderError(printing.ErrCodeStorageFailed, "cleanup walk failed", err)
	}

	a.logger.Info("cleanup completed",
		zap.Int("deleted", deletedCount),
		zap.Duration("age", age))

	return deletedCount, nil
}

// RunCleanup calls CleanupOlderThan every interval until ctx is done
func (a *FileSystemArchiver) RunCleanup(ctx context.Context, age, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.CleanupOlderThan(ctx, age); err != nil {
				a.logger.Warn("archive cleanup failed", zap.Error(err))
			}
		}
	}
}

// Ensure FileSystemArchiver implements Archiver
var _ Archiver = (*FileSystemArchiver)(nil)
