package quotation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	app "github.com/arvi/quotation/internal/application/quotation"
	"github.com/arvi/quotation/internal/domain/quotation"
	"github.com/arvi/quotation/internal/infrastructure/archive"
	"github.com/arvi/quotation/internal/infrastructure/logger"
	infra "github.com/arvi/quotation/internal/infrastructure/printing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type MockComposer struct {
	mock.Mock
}

func (m *MockComposer) Compose(ctx context.Context, doc infra.Document) (*infra.RenderedDocument, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.RenderedDocument), args.Error(1)
}

type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Export(ctx context.Context, doc *infra.RenderedDocument) ([]byte, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockExporter) Strategy() string { return infra.StrategyPrint }

type MockPaginator struct {
	mock.Mock
}

func (m *MockPaginator) Paginate(img []byte) ([]byte, error) {
	args := m.Called(img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type recordingArchiver struct {
	mu      sync.Mutex
	entries []archive.Entry
	err     error
}

func (a *recordingArchiver) Archive(_ context.Context, e archive.Entry) (*archive.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	if a.err != nil {
		return nil, a.err
	}
	return &archive.Result{Location: "mem://" + e.Filename, Size: int64(len(e.PDF))}, nil
}

func (a *recordingArchiver) Backend() string { return "memory" }

func (a *recordingArchiver) Entries() []archive.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]archive.Entry(nil), a.entries...)
}

type recordedExport struct {
	strategy string
	err      error
}

type fakeRecorder struct {
	records []recordedExport
}

func (r *fakeRecorder) RecordExport(_ context.Context, strategy string, _ time.Duration, err error) {
	r.records = append(r.records, recordedExport{strategy: strategy, err: err})
}

// =============================================================================
// Helpers
// =============================================================================

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func scenario(t *testing.T) *quotation.Quotation {
	t.Helper()
	q, err := quotation.Decode([]byte(`{
		"quoteNumber": "ARVI/2026/045",
		"customerName": "Acme Pvt Ltd",
		"items": [
			{"description": "Panel", "unitPrice": "1,000", "qty": 2},
			{"description": "Cable", "unitPrice": 500, "qty": "2"}
		]
	}`))
	require.NoError(t, err)
	return q
}

func renderedScenario() *infra.RenderedDocument {
	return &infra.RenderedDocument{
		HTML:        "<html>quote</html>",
		QuoteNumber: "ARVI/2026/045",
		Filename:    "ARVI_Quotation_ARVI-2026-045.pdf",
	}
}

type fixture struct {
	composer  *MockComposer
	exporter  *MockExporter
	paginator *MockPaginator
	archiver  *recordingArchiver
	recorder  *fakeRecorder
	logs      *observer.ObservedLogs
	service   *app.Service
}

func newFixture(t *testing.T, withArchive bool) *fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	f := &fixture{
		composer:  new(MockComposer),
		exporter:  new(MockExporter),
		paginator: new(MockPaginator),
		recorder:  &fakeRecorder{},
		logs:      logs,
	}
	cfg := app.ServiceConfig{
		Calculator: quotation.NewCalculator(0.18),
		Composer:   f.composer,
		Exporter:   f.exporter,
		Paginator:  f.paginator,
		Recorder:   f.recorder,
		Now:        func() time.Time { return fixedNow },
		Logger:     zap.New(core),
	}
	if withArchive {
		f.archiver = &recordingArchiver{}
		cfg.Archiver = f.archiver
	}
	f.service = app.NewService(cfg)
	return f
}

// =============================================================================
// Tests
// =============================================================================

func TestService_ExportComputesTotals(t *testing.T) {
	f := newFixture(t, false)
	rendered := renderedScenario()

	f.composer.On("Compose", mock.Anything, mock.MatchedBy(func(doc infra.Document) bool {
		totals := doc.Items.Totals
		return totals.Subtotal.Equal(decimal.NewFromInt(3000)) &&
			totals.Surcharge.Equal(decimal.NewFromInt(540)) &&
			totals.GrandTotal.Equal(decimal.NewFromInt(3540)) &&
			doc.Option2.IsEmpty() &&
			doc.Items.Lines[1].SerialNo == "2"
	})).Return(rendered, nil)
	f.exporter.On("Export", mock.Anything, rendered).Return([]byte("%PDF-1.4"), nil)

	result, err := f.service.Export(context.Background(), scenario(t))
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-1.4"), result.PDF)
	assert.Equal(t, "ARVI_Quotation_ARVI-2026-045.pdf", result.Filename)
	assert.Equal(t, "ARVI/2026/045", result.QuoteNumber)
	assert.Equal(t, infra.StrategyPrint, result.Strategy)

	require.Len(t, f.recorder.records, 1)
	assert.NoError(t, f.recorder.records[0].err)
	f.composer.AssertExpectations(t)
	f.exporter.AssertExpectations(t)
}

func TestService_ExportUsesRequestLogger(t *testing.T) {
	f := newFixture(t, false)
	rendered := renderedScenario()
	f.composer.On("Compose", mock.Anything, mock.Anything).Return(rendered, nil)
	f.exporter.On("Export", mock.Anything, rendered).Return([]byte("%PDF-1.4"), nil)

	core, reqLogs := observer.New(zap.InfoLevel)
	ctx := logger.WithContext(context.Background(), zap.New(core).With(zap.String("request_id", "req-1")))

	_, err := f.service.Export(ctx, scenario(t))
	require.NoError(t, err)

	assert.Zero(t, f.logs.FilterMessage("PDF exported").Len())
	entries := reqLogs.FilterMessage("PDF exported").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "ARVI/2026/045", fields["quote_number"])
}

func TestService_ExportSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	f := newFixture(t, false)
	rendered := renderedScenario()
	f.composer.On("Compose", mock.Anything, mock.Anything).Return(rendered, nil)
	f.exporter.On("Export", mock.Anything, rendered).Return([]byte("%PDF-1.4"), nil)

	_, err := f.service.Export(context.Background(), scenario(t))
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "quotation.export", span.Name())
	assert.Equal(t, trace.SpanKindInternal, span.SpanKind())
	assert.Equal(t, codes.Ok, span.Status().Code)

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, infra.StrategyPrint, attrs["strategy"])
	assert.Equal(t, "ARVI/2026/045", attrs["quote_number"])
	assert.Equal(t, "8", attrs["bytes"])
	assert.Equal(t, "2", attrs["items_count"])
}

func TestService_ExportFailure(t *testing.T) {
	f := newFixture(t, true)
	rendered := renderedScenario()
	renderErr := infra.NewRenderError(infra.ErrCodeRenderTimeout, "content load timed out", context.DeadlineExceeded)

	f.composer.On("Compose", mock.Anything, mock.Anything).Return(rendered, nil)
	f.exporter.On("Export", mock.Anything, rendered).Return(nil, renderErr)

	_, err := f.service.Export(context.Background(), scenario(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, infra.ErrRenderTimeout)

	require.Len(t, f.recorder.records, 1)
	assert.Error(t, f.recorder.records[0].err)
	require.NoError(t, f.service.Wait(context.Background()))
	assert.Empty(t, f.archiver.Entries(), "failed exports are never archived")
	assert.Equal(t, 1, f.logs.FilterMessage("PDF export failed").Len())
}

func TestService_ComposeFailureSkipsExport(t *testing.T) {
	f := newFixture(t, false)
	f.composer.On("Compose", mock.Anything, mock.Anything).
		Return(nil, infra.NewRenderError(infra.ErrCodeTemplateNotFound, "no template", nil))

	_, err := f.service.Export(context.Background(), scenario(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, infra.ErrTemplateNotFound)
	f.exporter.AssertNotCalled(t, "Export", mock.Anything, mock.Anything)
}

func TestService_NilQuotation(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.service.Export(context.Background(), nil)
	assert.ErrorIs(t, err, quotation.ErrEmptyQuotation)

	_, err = f.service.Preview(context.Background(), nil)
	assert.ErrorIs(t, err, quotation.ErrEmptyQuotation)

	f.composer.AssertNotCalled(t, "Compose", mock.Anything, mock.Anything)
}

func TestService_ArchivesInBackground(t *testing.T) {
	f := newFixture(t, true)
	rendered := renderedScenario()
	f.composer.On("Compose", mock.Anything, mock.Anything).Return(rendered, nil)
	f.exporter.On("Export", mock.Anything, rendered).Return([]byte("%PDF"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.service.Export(ctx, scenario(t))
	require.NoError(t, err)
	cancel() // request finished; archiving must still complete

	require.NoError(t, f.service.Wait(context.Background()))
	entries := f.archiver.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "ARVI/2026/045", entries[0].QuoteNumber)
	assert.Equal(t, "ARVI_Quotation_ARVI-2026-045.pdf", entries[0].Filename)
	assert.Equal(t, fixedNow, entries[0].CreatedAt)
}

func TestService_ArchiveFailureIsLoggedOnly(t *testing.T) {
	f := newFixture(t, true)
	f.archiver.err = errors.New("disk full")
	rendered := renderedScenario()
	f.composer.On("Compose", mock.Anything, mock.Anything).Return(rendered, nil)
	f.exporter.On("Export", mock.Anything, rendered).Return([]byte("%PDF"), nil)

	result, err := f.service.Export(context.Background(), scenario(t))
	require.NoError(t, err)
	assert.NotEmpty(t, result.PDF)

	require.NoError(t, f.service.Wait(context.Background()))
	assert.Equal(t, 1, f.logs.FilterMessage("failed to archive PDF").Len())
}

func TestService_PreviewLogsTotalsMismatch(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantWarn int
	}{
		{
			name:     "claimed totals agree",
			body:     `{"items":[{"unitPrice":100,"qty":1}],"subtotal":"100.00","gstAmount":"18.00","grandTotal":"118.00"}`,
			wantWarn: 0,
		},
		{
			name:     "claimed grand total disagrees",
			body:     `{"items":[{"unitPrice":100,"qty":1}],"grandTotal":"999"}`,
			wantWarn: 1,
		},
		{
			name:     "no claimed totals",
			body:     `{"items":[{"unitPrice":100,"qty":1}]}`,
			wantWarn: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			f.composer.On("Compose", mock.Anything, mock.Anything).Return(renderedScenario(), nil)

			q, err := quotation.Decode([]byte(tt.body))
			require.NoError(t, err)

			doc, err := f.service.Preview(context.Background(), q)
			require.NoError(t, err)
			assert.Equal(t, "<html>quote</html>", doc.HTML)
			assert.Equal(t, tt.wantWarn, f.logs.FilterMessage("submitted totals differ from computed totals").Len())
			f.exporter.AssertNotCalled(t, "Export", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Option2HasOwnTotals(t *testing.T) {
	f := newFixture(t, false)
	var captured infra.Document
	f.composer.On("Compose", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(infra.Document) }).
		Return(renderedScenario(), nil)

	q, err := quotation.Decode([]byte(`{
		"items": [{"unitPrice": 1000, "qty": 1}],
		"option2Items": [{"unitPrice": 2000, "qty": 1}]
	}`))
	require.NoError(t, err)

	_, err = f.service.Preview(context.Background(), q)
	require.NoError(t, err)

	assert.True(t, captured.Items.Totals.GrandTotal.Equal(decimal.NewFromInt(1180)))
	assert.True(t, captured.Option2.Totals.GrandTotal.Equal(decimal.NewFromInt(2360)))
}

func TestService_Paginate(t *testing.T) {
	f := newFixture(t, false)
	img := []byte{0x89, 'P', 'N', 'G'}
	f.paginator.On("Paginate", img).Return([]byte("%PDF"), nil).Once()
	f.paginator.On("Paginate", []byte("junk")).Return(nil, infra.ErrInvalidImage).Once()

	pdf, err := f.service.Paginate(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), pdf)

	_, err = f.service.Paginate(context.Background(), []byte("junk"))
	assert.ErrorIs(t, err, infra.ErrInvalidImage)
	f.paginator.AssertExpectations(t)
}

func TestService_QuoteNumber(t *testing.T) {
	f := newFixture(t, false)
	assert.Regexp(t, `^ARVI/2026/\d{3}$`, f.service.QuoteNumber())
	assert.Equal(t, infra.StrategyPrint, f.service.Strategy())
}
