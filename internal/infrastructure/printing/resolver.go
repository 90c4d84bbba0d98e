package printing

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Resolver locates a headless browser executable
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
	Name() string
}

// =============================================================================
// Chain
// =============================================================================

// ChainResolver tries resolvers in rank order. The first success is cached
// for the life of the process; failures are not, so a later call may still
// succeed once a browser is installed. One caller walks the chain at a time;
// the others wait for it only as long as their own context allows.
type ChainResolver struct {
	resolvers []Resolver
	logger    *zap.Logger

	turn chan struct{}

	mu     sync.RWMutex
	cached string
}

// NewChainResolver creates a resolver chain
func NewChainResolver(logger *zap.Logger, resolvers ...Resolver) *ChainResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainResolver{resolvers: resolvers, logger: logger, turn: make(chan struct{}, 1)}
}

// Resolve returns the first executable found, or ErrEngineUnavailable
func (c *ChainResolver) Resolve(ctx context.Context) (string, error) {
	if path := c.cachedPath(); path != "" {
		return path, nil
	}

	select {
	case c.turn <- struct{}{}:
	case <-ctx.Done():
		return "", NewRenderError(ErrCodeEngineUnavailable, "engine resolution cancelled", ctx.Err())
	}
	defer func() { <-c.turn }()

	// another caller may have resolved while this one waited
	if path := c.cachedPath(); path != "" {
		return path, nil
	}

	failures := make([]string, 0, len(c.resolvers))
	for _, r := range c.resolvers {
		if err := ctx.Err(); err != nil {
			return "", NewRenderError(ErrCodeEngineUnavailable, "engine resolution cancelled", err)
		}
		path, err := r.Resolve(ctx)
		if err != nil {
			c.logger.Debug("engine resolver failed", zap.String("resolver", r.Name()), zap.Error(err))
			failures = append(failures, r.Name()+": "+err.Error())
			continue
		}
		c.logger.Info("rendering engine resolved",
			zap.String("resolver", r.Name()),
			zap.String("path", path))
		c.mu.Lock()
		c.cached = path
		c.mu.Unlock()
		return path, nil
	}

	return "", NewRenderError(ErrCodeEngineUnavailable,
		"no rendering engine found ("+strings.Join(failures, "; ")+")", nil)
}

func (c *ChainResolver) cachedPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached
}

// Name implements Resolver
func (c *ChainResolver) Name() string { return "chain" }

// =============================================================================
// Explicit override
// =============================================================================

// EnvResolver honours an explicit path from configuration, then from the
// first set environment variable. An override that does not point to an
// executable is reported and skipped.
type EnvResolver struct {
	Fs         afero.Fs
	ConfigPath string
	EnvVars    []string
	Getenv     func(string) string
	Logger     *zap.Logger
}

// Name implements Resolver
func (r *EnvResolver) Name() string { return "env" }

// Resolve implements Resolver
func (r *EnvResolver) Resolve(context.Context) (string, error) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	type candidate struct{ source, path string }
	var candidates []candidate
	if r.ConfigPath != "" {
		candidates = append(candidates, candidate{"render.browser_path", r.ConfigPath})
	}
	for _, key := range r.EnvVars {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			candidates = append(candidates, candidate{key, v})
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no override set")
	}

	for _, c := range candidates {
		if isExecutable(r.Fs, c.path) {
			return c.path, nil
		}
		logger.Warn("ignoring invalid browser override",
			zap.String("source", c.source),
			zap.String("path", c.path))
	}
	return "", fmt.Errorf("no override points to an executable")
}

// =============================================================================
// Well-known install locations
// =============================================================================

// WellKnownResolver checks the usual install paths for the current OS,
// then asks go-rod's launcher to search PATH and its own locations.
type WellKnownResolver struct {
	Fs       afero.Fs
	Paths    []string
	LookPath func() (string, bool)
}

// Name implements Resolver
func (r *WellKnownResolver) Name() string { return "well-known" }

// Resolve implements Resolver
func (r *WellKnownResolver) Resolve(context.Context) (string, error) {
	paths := r.Paths
	if paths == nil {
		paths = wellKnownPaths(runtime.GOOS)
	}
	for _, p := range paths {
		if isExecutable(r.Fs, p) {
			return p, nil
		}
	}

	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = launcher.LookPath
	}
	if p, ok := lookPath(); ok {
		return p, nil
	}
	return "", fmt.Errorf("no browser in %d known locations or PATH", len(paths))
}

func wellKnownPaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
		}
	default:
		return []string{
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/opt/google/chrome/chrome",
			"/snap/bin/chromium",
			"/headless-shell/headless-shell",
		}
	}
}

// =============================================================================
// Bundled download
// =============================================================================

// DownloadResolver fetches a pinned Chromium revision into Dir on first use.
type DownloadResolver struct {
	Enabled  bool
	Dir      string
	Revision int
	Logger   *zap.Logger
	// Fetch overrides the download; used by tests
	Fetch func(ctx context.Context) (string, error)
}

// Name implements Resolver
func (r *DownloadResolver) Name() string { return "download" }

// Resolve implements Resolver
func (r *DownloadResolver) Resolve(ctx context.Context) (string, error) {
	if !r.Enabled {
		return "", fmt.Errorf("download disabled")
	}
	if r.Fetch != nil {
		return r.Fetch(ctx)
	}

	b := launcher.NewBrowser()
	b.Context = ctx
	if r.Dir != "" {
		b.RootDir = r.Dir
	}
	if r.Revision > 0 {
		b.Revision = r.Revision
	}
	if r.Logger != nil {
		b.Logger = rodLogger{r.Logger}
	}

	path, err := b.Get()
	if err != nil {
		return "", fmt.Errorf("download revision %d: %w", b.Revision, err)
	}
	return path, nil
}

// rodLogger adapts zap to the launcher's Println logger
type rodLogger struct {
	logger *zap.Logger
}

func (l rodLogger) Println(v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintln(v...)), zap.String("component", "browser-download"))
}

// isExecutable reports whether path is a regular file with an execute bit.
// Windows has no execute bit, so any regular file qualifies there.
func isExecutable(fs afero.Fs, path string) bool {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	info, err := fs.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// NewDefaultResolver builds the standard env → well-known → download chain
func NewDefaultResolver(env *EnvResolver, download *DownloadResolver, logger *zap.Logger) *ChainResolver {
	return NewChainResolver(logger, env, &WellKnownResolver{Fs: env.Fs}, download)
}
