package telemetry

import (
	"context"
	"time"

	"github.com/arvi/quotation/internal/infrastructure/printing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RenderMetrics records export outcomes and live browser sessions.
// It satisfies printing.SessionObserver so the session manager can report to it directly.
type RenderMetrics struct {
	exports  *Counter
	duration *Histogram
	sessions *UpDownCounter
}

// NewRenderMetrics registers the render instruments on meter
func NewRenderMetrics(meter metric.Meter) (*RenderMetrics, error) {
	exports, err := NewCounter(meter, "quotation.exports", "PDF exports by strategy and outcome", "{export}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "quotation.export.duration",
		Description: "Time from request to finished PDF",
		Unit:        "s",
		Boundaries:  RenderDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	sessions, err := NewUpDownCounter(meter, "quotation.render.sessions.active", "Browser sessions currently open", "{session}")
	if err != nil {
		return nil, err
	}
	return &RenderMetrics{exports: exports, duration: duration, sessions: sessions}, nil
}

// SessionOpened implements printing.SessionObserver
func (m *RenderMetrics) SessionOpened(ctx context.Context) {
	m.sessions.Add(ctx, 1)
}

// SessionClosed implements printing.SessionObserver
func (m *RenderMetrics) SessionClosed(ctx context.Context, final printing.SessionState) {
	m.sessions.Add(ctx, -1, AttrSessionState.String(final.String()))
}

// RecordExport counts one export and records its duration
func (m *RenderMetrics) RecordExport(ctx context.Context, strategy string, elapsed time.Duration, err error) {
	outcome := "success"
	code := ""
	if err != nil {
		outcome = "failure"
		code = printing.CodeOf(err)
		if code == "" {
			code = printing.ErrCodeRenderFailed
		}
	}
	attrs := []attribute.KeyValue{AttrStrategy.String(strategy), AttrOutcome.String(outcome)}
	if code != "" {
		attrs = append(attrs, AttrErrorCode.String(code))
	}
	m.exports.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, elapsed, AttrStrategy.String(strategy), AttrOutcome.String(outcome))
}

var _ printing.SessionObserver = (*RenderMetrics)(nil)
