package dto

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success   bool               `json:"success"`
	Error     string             `json:"error"`
	Code      string             `json:"code"`
	Details   string             `json:"details,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
	Fields    []ValidationDetail `json:"fields,omitempty"`
	Stack     string             `json:"stack,omitempty"`
}

// ValidationDetail describes one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponse creates an error response
func NewErrorResponse(label, code, details, requestID string) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		Error:     label,
		Code:      code,
		Details:   details,
		RequestID: requestID,
	}
}

// NewValidationErrorResponse creates a 400 body listing rejected fields
func NewValidationErrorResponse(requestID string, fields []ValidationDetail) ErrorResponse {
	resp := NewErrorResponse(ErrorLabel(ErrCodeValidation, ""), ErrCodeValidation, "", requestID)
	resp.Fields = fields
	if len(fields) > 0 {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = f.Field + ": " + f.Message
		}
		resp.Details = strings.Join(parts, "; ")
	}
	return resp
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// WithStack attaches the innermost recorded stack of err, if any
func (r ErrorResponse) WithStack(err error) ErrorResponse {
	var st stackTracer
	if errors.As(err, &st) {
		r.Stack = strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace()))
	}
	return r
}

// HealthResponse is returned by the liveness endpoints
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Renderer  string `json:"renderer"`
	Platform  string `json:"platform"`
}

// QuoteNumberResponse carries a suggested quote number
type QuoteNumberResponse struct {
	QuoteNumber string `json:"quote_number"`
}
