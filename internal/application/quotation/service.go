// Package quotation runs the preview and export pipelines for a submitted quotation.
package quotation

import (
	"context"
	"sync"
	"time"

	"github.com/arvi/quotation/internal/domain/quotation"
	"github.com/arvi/quotation/internal/infrastructure/archive"
	"github.com/arvi/quotation/internal/infrastructure/logger"
	infra "github.com/arvi/quotation/internal/infrastructure/printing"
	"github.com/arvi/quotation/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Composer turns a priced quotation into HTML
type Composer interface {
	Compose(ctx context.Context, doc infra.Document) (*infra.RenderedDocument, error)
}

// ImagePaginator slices a rendered page image into A4 PDF pages
type ImagePaginator interface {
	Paginate(img []byte) ([]byte, error)
}

// ExportRecorder receives one observation per export attempt
type ExportRecorder interface {
	RecordExport(ctx context.Context, strategy string, elapsed time.Duration, err error)
}

// ServiceConfig wires the pipeline stages together
type ServiceConfig struct {
	Calculator quotation.Calculator
	Composer   Composer
	Exporter   infra.Exporter
	Paginator  ImagePaginator
	Archiver   archive.Archiver
	Recorder   ExportRecorder
	// QuotePrefix is the first segment of generated quote numbers (default "ARVI")
	QuotePrefix    string
	ArchiveTimeout time.Duration
	Now            func() time.Time
	Logger         *zap.Logger
}

// ExportResult is a finished PDF ready to be sent to the client
type ExportResult struct {
	PDF         []byte
	Filename    string
	QuoteNumber string
	Strategy    string
}

// Service handles quotation rendering operations
type Service struct {
	config ServiceConfig
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewService creates a new Service
func NewService(config ServiceConfig) *Service {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Archiver == nil {
		config.Archiver = archive.Noop{}
	}
	if config.QuotePrefix == "" {
		config.QuotePrefix = "ARVI"
	}
	if config.ArchiveTimeout == 0 {
		config.ArchiveTimeout = 30 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Service{config: config, logger: config.Logger}
}

// Strategy names the export strategy in use
func (s *Service) Strategy() string {
	return s.config.Exporter.Strategy()
}

// Preview renders the quotation to HTML without starting a browser
func (s *Service) Preview(ctx context.Context, q *quotation.Quotation) (*infra.RenderedDocument, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quotation", "preview")
	defer span.End()
	ctx = s.scope(ctx, q)

	doc, err := s.compose(ctx, q)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.AddEvent(span, "document_composed", telemetry.SpanAttrBytes, len(doc.HTML))
	return doc, nil
}

// Export renders the quotation to PDF with the configured strategy.
// A successful PDF is archived in the background; archive failures are only logged.
func (s *Service) Export(ctx context.Context, q *quotation.Quotation) (*ExportResult, error) {
	strategy := s.config.Exporter.Strategy()
	ctx, span := telemetry.StartServiceSpan(ctx, "quotation", "export",
		telemetry.WithSpanKind(trace.SpanKindInternal),
		telemetry.WithAttribute(telemetry.SpanAttrStrategy, strategy),
		telemetry.WithAttribute(telemetry.SpanAttrItemsCount, itemCount(q)),
	)
	defer span.End()
	ctx = s.scope(ctx, q)
	log := logger.L(ctx)

	start := s.config.Now()
	result, err := s.export(ctx, q)
	elapsed := s.config.Now().Sub(start)
	if s.config.Recorder != nil {
		s.config.Recorder.RecordExport(ctx, strategy, elapsed, err)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("PDF export failed",
			zap.String("strategy", strategy),
			zap.String("code", infra.CodeOf(err)),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuoteNumber, result.QuoteNumber,
		telemetry.SpanAttrBytes, len(result.PDF),
	)
	telemetry.SetOK(span)
	log.Info("PDF exported",
		zap.String("filename", result.Filename),
		zap.String("strategy", strategy),
		zap.Int("bytes", len(result.PDF)),
		zap.Duration("duration", elapsed))

	s.archive(ctx, result)
	return result, nil
}

func (s *Service) export(ctx context.Context, q *quotation.Quotation) (*ExportResult, error) {
	doc, err := s.compose(ctx, q)
	if err != nil {
		return nil, err
	}
	pdf, err := s.config.Exporter.Export(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		PDF:         pdf,
		Filename:    doc.Filename,
		QuoteNumber: doc.QuoteNumber,
		Strategy:    s.config.Exporter.Strategy(),
	}, nil
}

// Paginate builds a PDF from a page image captured by the client
func (s *Service) Paginate(ctx context.Context, img []byte) ([]byte, error) {
	_, span := telemetry.StartServiceSpan(ctx, "quotation", "paginate")
	defer span.End()

	pdf, err := s.config.Paginator.Paginate(img)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("image paginated", zap.Int("image_bytes", len(img)), zap.Int("bytes", len(pdf)))
	return pdf, nil
}

// QuoteNumber suggests a fresh "<prefix>/<year>/<NNN>" quote number
func (s *Service) QuoteNumber() string {
	return quotation.NewQuoteNumber(s.config.QuotePrefix, s.config.Now())
}

// Wait blocks until background archiving finishes or ctx is done
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func itemCount(q *quotation.Quotation) int {
	if q == nil {
		return 0
	}
	return len(q.Items) + len(q.Option2Items)
}

// scope tags the request logger on ctx with the quote number
func (s *Service) scope(ctx context.Context, q *quotation.Quotation) context.Context {
	ctx = logger.WithContext(ctx, logger.FromContextOr(ctx, s.logger))
	if q == nil || q.QuoteNumber == "" {
		return ctx
	}
	return logger.WithQuoteNumber(ctx, q.QuoteNumber)
}

// compose prices both item tables and renders the document
func (s *Service) compose(ctx context.Context, q *quotation.Quotation) (*infra.RenderedDocument, error) {
	if q == nil {
		return nil, quotation.ErrEmptyQuotation
	}

	calc := s.config.Calculator
	doc := infra.Document{
		Quotation: q,
		Items:     calc.Price(q.Items),
		Option2:   calc.Price(q.Option2Items),
	}

	if q.HasClaimedTotals() && !doc.Items.Totals.Matches(q.ClaimedSubtotal, q.ClaimedSurcharge, q.ClaimedGrandTotal) {
		logger.L(ctx).Warn("submitted totals differ from computed totals",
			zap.String("claimed_grand_total", q.ClaimedGrandTotal.Raw()),
			zap.String("grand_total", doc.Items.Totals.GrandTotal.StringFixed(2)))
	}

	return s.config.Composer.Compose(ctx, doc)
}

func (s *Service) archive(ctx context.Context, result *ExportResult) {
	archiver := s.config.Archiver
	if archiver.Backend() == "none" {
		return
	}

	entry := archive.Entry{
		QuoteNumber: result.QuoteNumber,
		Filename:    result.Filename,
		PDF:         result.PDF,
		CreatedAt:   s.config.Now(),
	}
	bg := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(bg, s.config.ArchiveTimeout)
		defer cancel()

		res, err := archiver.Archive(ctx, entry)
		if err != nil {
			s.logger.Warn("failed to archive PDF",
				zap.String("backend", archiver.Backend()),
				zap.String("quote_number", entry.QuoteNumber),
				zap.Error(err))
			return
		}
		s.logger.Debug("PDF archive stored",
			zap.String("backend", archiver.Backend()),
			zap.String("location", res.Location))
	}()
}
