// Package archive keeps copies of generated quotation PDFs.
package archive

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/arvi/quotation/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Entry is one generated PDF
type Entry struct {
	QuoteNumber string
	Filename    string
	PDF         []byte
	CreatedAt   time.Time
}

// Result describes where an entry was stored
type Result struct {
	Location string
	Size     int64
}

// Archiver stores generated PDFs
type Archiver interface {
	Archive(ctx context.Context, entry Entry) (*Result, error)
	Backend() string
}

// Noop discards every entry
type Noop struct{}

// Archive implements Archiver
func (Noop) Archive(context.Context, Entry) (*Result, error) { return &Result{}, nil }

// Backend implements Archiver
func (Noop) Backend() string { return "none" }

// objectKey builds {prefix}/{year}/{month}/{uuid}_{filename}
func objectKey(prefix string, e Entry) string {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return path.Join(
		prefix,
		fmt.Sprintf("%d", created.Year()),
		fmt.Sprintf("%02d", created.Month()),
		uuid.NewString()+"_"+e.Filename,
	)
}

// New builds the archiver selected by cfg.Backend
func New(ctx context.Context, cfg config.ArchiveConfig, logger *zap.Logger) (Archiver, error) {
	switch cfg.Backend {
	case "", "none":
		return Noop{}, nil
	case "filesystem":
		return NewFileSystemArchiver(afero.NewOsFs(), &FileSystemConfig{BasePath: cfg.Dir, Logger: logger})
	case "s3":
		a, err := NewS3Archiver(ctx, &cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := a.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
}
