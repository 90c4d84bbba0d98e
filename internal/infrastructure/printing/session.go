package printing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arvi/quotation/internal/domain/printing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionState is the lifecycle position of a render session
type SessionState int

const (
	StateIdle SessionState = iota
	StateLaunching
	StatePageReady
	StateContentLoaded
	StateCaptured
	StateClosed
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StatePageReady:
		return "page_ready"
	case StateContentLoaded:
		return "content_loaded"
	case StateCaptured:
		return "captured"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// LaunchOptions tell a Browser how to start
type LaunchOptions struct {
	ExecPath  string
	RemoteURL string
	NoSandbox bool
}

// Browser drives one headless browser process with one page.
// Terminate must be safe to call in any state, including before Launch.
type Browser interface {
	Launch(ctx context.Context, opts LaunchOptions) error
	OpenPage(ctx context.Context, viewport printing.Viewport) error
	SetContent(ctx context.Context, html string) error
	PrintPDF(ctx context.Context, params PrintParams) ([]byte, error)
	Screenshot(ctx context.Context, quality int) ([]byte, error)
	Terminate() error
}

// SessionObserver is notified as sessions open and close
type SessionObserver interface {
	SessionOpened(ctx context.Context)
	SessionClosed(ctx context.Context, final SessionState)
}

type noopObserver struct{}

func (noopObserver) SessionOpened(context.Context)               {}
func (noopObserver) SessionClosed(context.Context, SessionState) {}

// SessionConfig configures the session manager
type SessionConfig struct {
	// Resolver locates the browser; unused when RemoteURL is set
	Resolver Resolver
	// RemoteURL attaches to a running browser instead of launching one
	RemoteURL string
	NoSandbox bool

	LaunchTimeout  time.Duration
	LoadTimeout    time.Duration
	CaptureTimeout time.Duration
	SettleDelay    time.Duration

	// MaxConcurrent bounds live sessions; 0 means unbounded
	MaxConcurrent int

	// NewBrowser creates the driver for each session. Default: chromedp
	NewBrowser func() Browser
	Observer   SessionObserver
	Logger     *zap.Logger
}

// SessionManager hands out render sessions, one browser process each.
type SessionManager struct {
	config   SessionConfig
	logger   *zap.Logger
	observer SessionObserver
	slots    chan struct{}
}

// NewSessionManager creates a session manager
func NewSessionManager(config SessionConfig) *SessionManager {
	if config.LaunchTimeout == 0 {
		config.LaunchTimeout = 20 * time.Second
	}
	if config.LoadTimeout == 0 {
		config.LoadTimeout = 25 * time.Second
	}
	if config.CaptureTimeout == 0 {
		config.CaptureTimeout = 30 * time.Second
	}
	if config.NewBrowser == nil {
		logger := config.Logger
		config.NewBrowser = func() Browser { return NewChromedpBrowser(logger) }
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := config.Observer
	if observer == nil {
		observer = noopObserver{}
	}

	m := &SessionManager{config: config, logger: logger, observer: observer}
	if config.MaxConcurrent > 0 {
		m.slots = make(chan struct{}, config.MaxConcurrent)
	}
	return m
}

// Acquire launches a browser and opens one page sized to viewport.
// On failure the session is already closed and the error is returned.
func (m *SessionManager) Acquire(ctx context.Context, viewport printing.Viewport) (*Session, error) {
	release, err := m.reserve(ctx)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:      uuid.NewString(),
		browser: m.config.NewBrowser(),
		manager: m,
		release: release,
		ctx:     context.WithoutCancel(ctx),
	}
	s.logger = m.logger.With(zap.String("session_id", s.id))
	m.observer.SessionOpened(s.ctx)

	if err := s.launch(ctx, viewport); err != nil {
		s.fail(err)
		s.Close()
		return nil, err
	}
	return s, nil
}

// Run acquires a session, hands it to fn and always closes it afterwards.
func (m *SessionManager) Run(ctx context.Context, viewport printing.Viewport, fn func(*Session) error) error {
	s, err := m.Acquire(ctx, viewport)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func (m *SessionManager) reserve(ctx context.Context) (func(), error) {
	if m.slots == nil {
		return func() {}, nil
	}
	select {
	case m.slots <- struct{}{}:
		return func() { <-m.slots }, nil
	case <-ctx.Done():
		return nil, classify(ctx, "waiting for a render slot", ctx.Err())
	}
}

// Session is one browser process and one page, owned by a single export.
type Session struct {
	id      string
	browser Browser
	manager *SessionManager
	logger  *zap.Logger
	release func()
	ctx     context.Context

	mu    sync.Mutex
	state SessionState

	closeOnce sync.Once
	closeErr  error
}

// ID returns the session identifier used in logs
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) launch(ctx context.Context, viewport printing.Viewport) error {
	cfg := s.manager.config
	if err := s.transition(StateIdle, StateLaunching); err != nil {
		return err
	}

	opts := LaunchOptions{RemoteURL: cfg.RemoteURL, NoSandbox: cfg.NoSandbox}
	if opts.RemoteURL == "" {
		if cfg.Resolver == nil {
			return NewRenderError(ErrCodeEngineUnavailable, "no engine resolver configured", nil)
		}
		path, err := cfg.Resolver.Resolve(ctx)
		if err != nil {
			return err
		}
		opts.ExecPath = path
	}

	launchCtx, cancel := context.WithTimeout(ctx, cfg.LaunchTimeout)
	defer cancel()

	if err := s.browser.Launch(launchCtx, opts); err != nil {
		return classify(launchCtx, "browser launch", err)
	}
	if err := s.browser.OpenPage(launchCtx, viewport); err != nil {
		return classify(launchCtx, "page open", err)
	}

	s.logger.Debug("render session ready",
		zap.String("exec_path", opts.ExecPath),
		zap.Bool("remote", opts.RemoteURL != ""),
		zap.Int64("viewport_width", viewport.Width))
	return s.transition(StateLaunching, StatePageReady)
}

// Load injects html into the page without navigating to a URL, waits for
// fonts and images, then lets layout settle.
func (s *Session) Load(ctx context.Context, html string) error {
	if err := s.expect(StatePageReady); err != nil {
		return err
	}
	cfg := s.manager.config

	loadCtx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
	defer cancel()

	if err := s.browser.SetContent(loadCtx, html); err != nil {
		return s.fail(classify(loadCtx, "content load", err))
	}
	if err := sleep(loadCtx, cfg.SettleDelay); err != nil {
		return s.fail(classify(loadCtx, "settle", err))
	}
	return s.transition(StatePageReady, StateContentLoaded)
}

// PrintPDF captures the loaded page as a paginated PDF
func (s *Session) PrintPDF(ctx context.Context, params PrintParams) ([]byte, error) {
	if err := s.expect(StateContentLoaded); err != nil {
		return nil, err
	}
	captureCtx, cancel := context.WithTimeout(ctx, s.manager.config.CaptureTimeout)
	defer cancel()

	data, err := s.browser.PrintPDF(captureCtx, params)
	if err != nil {
		return nil, s.fail(classify(captureCtx, "pdf capture", err))
	}
	if len(data) == 0 {
		return nil, s.fail(NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil))
	}
	return data, s.transition(StateContentLoaded, StateCaptured)
}

// Screenshot captures the full page as a JPEG of the given quality
func (s *Session) Screenshot(ctx context.Context, quality int) ([]byte, error) {
	if err := s.expect(StateContentLoaded); err != nil {
		return nil, err
	}
	captureCtx, cancel := context.WithTimeout(ctx, s.manager.config.CaptureTimeout)
	defer cancel()

	data, err := s.browser.Screenshot(captureCtx, quality)
	if err != nil {
		return nil, s.fail(classify(captureCtx, "screenshot", err))
	}
	if len(data) == 0 {
		return nil, s.fail(NewRenderError(ErrCodeRenderFailed, "screenshot is empty", nil))
	}
	return data, s.transition(StateContentLoaded, StateCaptured)
}

// Close terminates the browser. Only the first call has any effect;
// later calls return the first call's result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		final := s.state
		s.state = StateClosed
		s.mu.Unlock()

		s.closeErr = s.browser.Terminate()
		if s.closeErr != nil {
			s.logger.Warn("browser terminate failed", zap.Error(s.closeErr))
		}
		s.release()
		s.manager.observer.SessionClosed(s.ctx, final)
		s.logger.Debug("render session closed", zap.String("final_state", final.String()))
	})
	return s.closeErr
}

func (s *Session) expect(want SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != want {
		return NewRenderError(ErrCodeRenderFailed,
			fmt.Sprintf("session is %s, expected %s", s.state, want), nil)
	}
	return nil
}

func (s *Session) transition(from, to SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return NewRenderError(ErrCodeRenderFailed,
			fmt.Sprintf("session is %s, cannot move to %s", s.state, to), nil)
	}
	s.state = to
	return nil
}

// fail moves a live session to StateError and returns err
func (s *Session) fail(err error) error {
	s.mu.Lock()
	if s.state != StateClosed {
		s.state = StateError
	}
	s.mu.Unlock()
	return err
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
