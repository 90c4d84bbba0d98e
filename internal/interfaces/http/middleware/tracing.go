package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "quotation-renderer",
		Enabled:     true,
	}
}

// TracingWithConfig returns OpenTelemetry tracing middleware.
// The span name follows the format "HTTP METHOD route_pattern" (e.g., "POST /api/generate-pdf").
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// SpanAttributes tags the active span with the request ID and marks
// 4xx/5xx responses as errors. Place it after TracingWithConfig.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := GetRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		statusCode := c.Writer.Status()
		if statusCode >= http.StatusBadRequest {
			message := "Client Error"
			if statusCode >= http.StatusInternalServerError {
				message = "Internal Server Error"
			}
			span.SetStatus(codes.Error, message)
			span.SetAttributes(attribute.Int("http.status_code", statusCode))
		}
	}
}
