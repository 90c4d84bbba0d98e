package printing

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
)

// Error codes for rendering failures
const (
	ErrCodeTemplateNotFound  = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateInvalid   = "TEMPLATE_INVALID"
	ErrCodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	ErrCodeRenderTimeout     = "RENDER_TIMEOUT"
	ErrCodeRenderFailed      = "RENDER_FAILED"
	ErrCodeAssetReadFailed   = "ASSET_READ_FAILED"
	ErrCodeInvalidImage      = "INVALID_IMAGE"
	ErrCodeStorageFailed     = "STORAGE_FAILED"
)

// Sentinels for errors.Is; they match any RenderError with the same code.
var (
	ErrTemplateNotFound  = &RenderError{Code: ErrCodeTemplateNotFound, Message: "template not found"}
	ErrEngineUnavailable = &RenderError{Code: ErrCodeEngineUnavailable, Message: "rendering engine unavailable"}
	ErrRenderTimeout     = &RenderError{Code: ErrCodeRenderTimeout, Message: "rendering timed out"}
	ErrRenderFailed      = &RenderError{Code: ErrCodeRenderFailed, Message: "rendering failed"}
	ErrInvalidImage      = &RenderError{Code: ErrCodeInvalidImage, Message: "invalid image"}
)

// RenderError represents an error during document rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Is matches any RenderError carrying the same code
func (e *RenderError) Is(target error) bool {
	t, ok := target.(*RenderError)
	return ok && t.Code == e.Code
}

// NewRenderError creates a new RenderError. The cause is annotated with
// the current stack unless it already carries one.
func NewRenderError(code, message string, cause error) *RenderError {
	if cause != nil && !hasStack(cause) {
		cause = errors.WithStack(cause)
	}
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first RenderError in err's chain, or ""
func CodeOf(err error) string {
	var re *RenderError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ""
}

// classify maps a failure inside a session step to a RenderError.
// Deadline expiry on ctx becomes RENDER_TIMEOUT; existing RenderErrors pass through.
func classify(ctx context.Context, step string, err error) error {
	if err == nil {
		return nil
	}
	var re *RenderError
	if stderrors.As(err, &re) {
		return err
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return NewRenderError(ErrCodeRenderTimeout, step+" timed out", err)
	}
	return NewRenderError(ErrCodeRenderFailed, step+" failed", err)
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func hasStack(err error) bool {
	var st stackTracer
	return stderrors.As(err, &st)
}
