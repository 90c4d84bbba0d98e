// Package assets reads the images embedded into rendered quotations.
package assets

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arvi/quotation/internal/infrastructure/printing"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// mimeTypes maps accepted extensions to their data URI media type
var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// Loader builds a filename → data URI map from the first candidate
// directory that contains at least one image.
type Loader struct {
	fs     afero.Fs
	dirs   []string
	logger *zap.Logger
}

// NewLoader creates a loader over fs. dirs are tried in order.
func NewLoader(fs afero.Fs, dirs []string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fs: fs, dirs: dirs, logger: logger}
}

// Load never fails. Missing directories and unreadable files are logged
// and skipped, so the result may be empty.
func (l *Loader) Load(ctx context.Context) map[string]string {
	for _, dir := range l.dirs {
		if ctx.Err() != nil {
			break
		}
		found := l.loadDir(ctx, dir)
		if len(found) > 0 {
			l.logger.Info("assets loaded",
				zap.String("dir", dir),
				zap.Int("count", len(found)))
			return found
		}
	}
	l.logger.Warn("no assets found", zap.Strings("dirs", l.dirs))
	return map[string]string{}
}

func (l *Loader) loadDir(ctx context.Context, dir string) map[string]string {
	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		l.logger.Warn("asset directory unavailable",
			zap.String("dir", dir),
			zap.Error(printing.NewRenderError(printing.ErrCodeAssetReadFailed, "cannot list "+dir, err)))
		return nil
	}

	found := make(map[string]string)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() {
			continue
		}
		mime, ok := mimeTypes[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := afero.ReadFile(l.fs, path)
		if err != nil {
			l.logger.Warn("skipping unreadable asset",
				zap.String("path", path),
				zap.Error(printing.NewRenderError(printing.ErrCodeAssetReadFailed, "cannot read "+path, err)))
			continue
		}
		found[entry.Name()] = DataURI(mime, data)
	}
	return found
}

// DataURI encodes data as a base64 data URI
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Cached loads once and serves the same read-only map afterwards.
type Cached struct {
	loader *Loader
	once   sync.Once
	assets map[string]string
}

// NewCached wraps loader
func NewCached(loader *Loader) *Cached {
	return &Cached{loader: loader}
}

// Load returns the map read by the first call
func (c *Cached) Load(ctx context.Context) map[string]string {
	c.once.Do(func() {
		// a cancelled first request must not leave the cache empty
		c.assets = c.loader.Load(context.WithoutCancel(ctx))
	})
	return c.assets
}

// SearchPaths expands relative paths against the working directory first
// and the executable's directory second. Absolute paths come first, unchanged.
func SearchPaths(paths []string) []string {
	var bases []string
	if wd, err := os.Getwd(); err == nil {
		bases = append(bases, wd)
	}
	if exe, err := os.Executable(); err == nil {
		bases = append(bases, filepath.Dir(exe))
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(paths)*len(bases))
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range paths {
		if filepath.IsAbs(p) {
			add(p)
		}
	}
	for _, base := range bases {
		for _, p := range paths {
			if !filepath.IsAbs(p) {
				add(filepath.Join(base, p))
			}
		}
	}
	return out
}
