package printing

import (
	"context"
	"fmt"
	"time"

	"github.com/arvi/quotation/internal/domain/printing"
	"go.uber.org/zap"
)

// Export strategies
const (
	StrategyPrint  = "print"
	StrategyRaster = "raster"
)

// Exporter turns a composed document into PDF bytes
type Exporter interface {
	Export(ctx context.Context, doc *RenderedDocument) ([]byte, error)
	Strategy() string
}

// NewExporter returns the exporter for strategy
func NewExporter(strategy string, sessions *SessionManager, jpegQuality int, logger *zap.Logger) (Exporter, error) {
	switch strategy {
	case "", StrategyPrint:
		return NewPrintExporter(sessions, printing.QuotationPage(), logger), nil
	case StrategyRaster:
		return NewRasterExporter(sessions, NewPaginator(printing.QuotationPage()), jpegQuality, logger), nil
	}
	return nil, fmt.Errorf("unknown export strategy %q", strategy)
}

// PrintExporter lets the browser paginate the document with its print engine.
type PrintExporter struct {
	sessions *SessionManager
	params   PrintParams
	logger   *zap.Logger
}

// NewPrintExporter creates a print exporter for page
func NewPrintExporter(sessions *SessionManager, page printing.PageSpec, logger *zap.Logger) *PrintExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrintExporter{sessions: sessions, params: BuildPrintParams(page), logger: logger}
}

// Strategy implements Exporter
func (e *PrintExporter) Strategy() string { return StrategyPrint }

// Export implements Exporter
func (e *PrintExporter) Export(ctx context.Context, doc *RenderedDocument) ([]byte, error) {
	if doc == nil || doc.HTML == "" {
		return nil, NewRenderError(ErrCodeRenderFailed, "document is empty", nil)
	}
	start := time.Now()

	var pdf []byte
	err := e.sessions.Run(ctx, printing.PrintViewport(), func(s *Session) error {
		if err := s.Load(ctx, doc.HTML); err != nil {
			return err
		}
		var err error
		pdf, err = s.PrintPDF(ctx, e.params)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("PDF rendered successfully",
		zap.String("strategy", StrategyPrint),
		zap.String("quote_number", doc.QuoteNumber),
		zap.Int("bytes", len(pdf)),
		zap.Int("pages", estimatePageCount(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

// RasterExporter captures the document as one tall image and slices it onto
// pages. Output matches what a browser client produces when it paginates a
// screenshot itself.
type RasterExporter struct {
	sessions  *SessionManager
	paginator *Paginator
	quality   int
	logger    *zap.Logger
}

// NewRasterExporter creates a raster exporter
func NewRasterExporter(sessions *SessionManager, paginator *Paginator, quality int, logger *zap.Logger) *RasterExporter {
	if quality <= 0 || quality > 100 {
		quality = 92
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RasterExporter{sessions: sessions, paginator: paginator, quality: quality, logger: logger}
}

// Strategy implements Exporter
func (e *RasterExporter) Strategy() string { return StrategyRaster }

// Export implements Exporter
func (e *RasterExporter) Export(ctx context.Context, doc *RenderedDocument) ([]byte, error) {
	if doc == nil || doc.HTML == "" {
		return nil, NewRenderError(ErrCodeRenderFailed, "document is empty", nil)
	}
	start := time.Now()

	var shot []byte
	err := e.sessions.Run(ctx, printing.RasterViewport(), func(s *Session) error {
		if err := s.Load(ctx, doc.HTML); err != nil {
			return err
		}
		var err error
		shot, err = s.Screenshot(ctx, e.quality)
		return err
	})
	if err != nil {
		return nil, err
	}

	pdf, err := e.paginator.Paginate(shot)
	if err != nil {
		return nil, err
	}

	e.logger.Info("PDF rendered successfully",
		zap.String("strategy", StrategyRaster),
		zap.String("quote_number", doc.QuoteNumber),
		zap.Int("image_bytes", len(shot)),
		zap.Int("bytes", len(pdf)),
		zap.Int("pages", estimatePageCount(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

// Ensure both exporters implement Exporter
var (
	_ Exporter = (*PrintExporter)(nil)
	_ Exporter = (*RasterExporter)(nil)
)
