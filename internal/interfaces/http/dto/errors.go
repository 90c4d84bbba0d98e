package dto

import "net/http"

// Request handling error codes
const (
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	ErrCodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited          = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// Rendering error codes, as raised by the printing pipeline
const (
	ErrCodeTemplateNotFound  = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateInvalid   = "TEMPLATE_INVALID"
	ErrCodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	ErrCodeRenderTimeout     = "RENDER_TIMEOUT"
	ErrCodeRenderFailed      = "RENDER_FAILED"
	ErrCodeInvalidImage      = "INVALID_IMAGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInvalidInput:         http.StatusBadRequest,
	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeInvalidImage:         http.StatusBadRequest,
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeMethodNotAllowed:     http.StatusMethodNotAllowed,
	ErrCodePayloadTooLarge:      http.StatusRequestEntityTooLarge,
	ErrCodeUnsupportedMediaType: http.StatusUnsupportedMediaType,
	ErrCodeRateLimited:          http.StatusTooManyRequests,

	// Every rendering fault is a server error; the caller cannot fix it by retrying differently.
	ErrCodeTemplateNotFound:  http.StatusInternalServerError,
	ErrCodeTemplateInvalid:   http.StatusInternalServerError,
	ErrCodeEngineUnavailable: http.StatusInternalServerError,
	ErrCodeRenderTimeout:     http.StatusInternalServerError,
	ErrCodeRenderFailed:      http.StatusInternalServerError,
	ErrCodeInternal:          http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// errorLabels are the stable "error" strings clients match on.
// Codes without an entry use the label chosen by the handler.
var errorLabels = map[string]string{
	ErrCodeValidation:           "Request validation failed",
	ErrCodeNotFound:             "Not found",
	ErrCodeMethodNotAllowed:     "Method not allowed",
	ErrCodeUnsupportedMediaType: "Unsupported media type",
	ErrCodePayloadTooLarge:      "Request body too large",
	ErrCodeRateLimited:          "Too many requests",
	ErrCodeInvalidImage:         "Invalid image",
}

// ErrorLabel returns the stable label for code, or fallback
func ErrorLabel(code, fallback string) string {
	if label, ok := errorLabels[code]; ok {
		return label
	}
	return fallback
}
