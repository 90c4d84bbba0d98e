package printing

import (
	"context"
	"fmt"
	"sync"

	"github.com/arvi/quotation/internal/domain/printing"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// paintWaitScript resolves once web fonts are ready and every image has
// decoded or failed. Broken images must not block the capture.
const paintWaitScript = `(async () => {
  if (document.fonts && document.fonts.ready) { await document.fonts.ready; }
  await Promise.all(Array.from(document.images).map((img) => {
    if (img.complete) { return img.decode ? img.decode().catch(() => {}) : null; }
    return new Promise((resolve) => { img.onload = img.onerror = resolve; });
  }));
  return true;
})()`

// PrintParams holds the parameters for PDF printing, in inches
type PrintParams struct {
	PaperWidth        float64
	PaperHeight       float64
	MarginTop         float64
	MarginRight       float64
	MarginBottom      float64
	MarginLeft        float64
	Scale             float64
	Landscape         bool
	PrintBackground   bool
	PreferCSSPageSize bool
}

// BuildPrintParams converts a page spec in millimeters to print parameters
func BuildPrintParams(spec printing.PageSpec) PrintParams {
	width, height := spec.Paper.Dimensions()
	return PrintParams{
		PaperWidth:        mmToInches(width),
		PaperHeight:       mmToInches(height),
		MarginTop:         mmToInches(float64(spec.Margins.Top)),
		MarginRight:       mmToInches(float64(spec.Margins.Right)),
		MarginBottom:      mmToInches(float64(spec.Margins.Bottom)),
		MarginLeft:        mmToInches(float64(spec.Margins.Left)),
		Scale:             1.0,
		Landscape:         spec.Orientation == printing.OrientationLandscape,
		PrintBackground:   true,
		PreferCSSPageSize: true,
	}
}

// ChromedpBrowser drives Chrome over the DevTools Protocol.
// The browser process lives until Terminate, independent of the
// per-step contexts passed to each call.
type ChromedpBrowser struct {
	logger *zap.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromedpBrowser creates an unlaunched browser driver
func NewChromedpBrowser(logger *zap.Logger) *ChromedpBrowser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromedpBrowser{logger: logger}
}

// allocatorOptions returns the exec allocator flags for server environments
func allocatorOptions(opts LaunchOptions) []chromedp.ExecAllocatorOption {
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		// Font rendering
		chromedp.Flag("font-render-hinting", "none"),
	)
	if opts.ExecPath != "" {
		flags = append(flags, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.NoSandbox {
		flags = append(flags, chromedp.NoSandbox)
	}
	return flags
}

// Launch starts (or attaches to) the browser. The first chromedp.Run
// allocates the process, so it runs on the long-lived browser context and
// ctx only bounds how long we wait for it.
func (b *ChromedpBrowser) Launch(ctx context.Context, opts LaunchOptions) error {
	b.mu.Lock()
	base := context.WithoutCancel(ctx)
	var allocCtx context.Context
	if opts.RemoteURL != "" {
		allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(base, opts.RemoteURL)
	} else {
		allocCtx, b.allocCancel = chromedp.NewExecAllocator(base, allocatorOptions(opts)...)
	}
	b.browserCtx, b.browserCancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			b.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	browserCtx := b.browserCtx
	b.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(browserCtx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OpenPage sizes the single page created at launch
func (b *ChromedpBrowser) OpenPage(ctx context.Context, viewport printing.Viewport) error {
	return b.run(ctx,
		chromedp.EmulateViewport(viewport.Width, viewport.Height, chromedp.EmulateScale(viewport.Scale)),
	)
}

// SetContent replaces the document of about:blank with html and waits for paint
func (b *ChromedpBrowser) SetContent(ctx context.Context, html string) error {
	var painted bool
	return b.run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(paintWaitScript, &painted, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
}

// PrintPDF prints the page with Chrome's own pagination
func (b *ChromedpBrowser) PrintPDF(ctx context.Context, params PrintParams) ([]byte, error) {
	var pdfData []byte
	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(params.PrintBackground).
			WithPaperWidth(params.PaperWidth).
			WithPaperHeight(params.PaperHeight).
			WithMarginTop(params.MarginTop).
			WithMarginRight(params.MarginRight).
			WithMarginBottom(params.MarginBottom).
			WithMarginLeft(params.MarginLeft).
			WithScale(params.Scale).
			WithLandscape(params.Landscape).
			WithPreferCSSPageSize(params.PreferCSSPageSize).
			Do(ctx)
		if err != nil {
			return err
		}
		pdfData = data
		return nil
	}))
	return pdfData, err
}

// Screenshot captures the whole document as a JPEG
func (b *ChromedpBrowser) Screenshot(ctx context.Context, quality int) ([]byte, error) {
	var buf []byte
	if err := b.run(ctx, chromedp.FullScreenshot(&buf, quality)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Terminate closes the browser and releases the allocator. Safe before Launch.
func (b *ChromedpBrowser) Terminate() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browserCtx != nil {
		err = chromedp.Cancel(b.browserCtx)
		b.browserCancel()
		b.browserCtx = nil
	}
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
	return err
}

// run executes actions on the browser context, bounded by ctx
func (b *ChromedpBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	b.mu.Lock()
	browserCtx := b.browserCtx
	b.mu.Unlock()
	if browserCtx == nil {
		return NewRenderError(ErrCodeRenderFailed, "browser not launched", nil)
	}

	runCtx, cancel := context.WithCancel(browserCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return err
	}
	return nil
}

// mmToInches converts millimeters to inches
func mmToInches(mm float64) float64 {
	return mm / 25.4
}

// Ensure ChromedpBrowser implements Browser
var _ Browser = (*ChromedpBrowser)(nil)
