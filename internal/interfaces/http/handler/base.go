// Package handler holds the HTTP handlers of the quotation service.
package handler

import (
	"errors"
	"net/http"

	"github.com/arvi/quotation/internal/domain/shared"
	"github.com/arvi/quotation/internal/infrastructure/logger"
	infra "github.com/arvi/quotation/internal/infrastructure/printing"
	"github.com/arvi/quotation/internal/interfaces/http/dto"
	"github.com/arvi/quotation/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	// exposeStack adds the recorded stack trace to error bodies
	exposeStack bool
}

// NewBaseHandler creates a BaseHandler. Stacks should only be exposed outside production.
func NewBaseHandler(exposeStack bool) BaseHandler {
	return BaseHandler{exposeStack: exposeStack}
}

// Error sends an error response, deriving the status code from the error code
func (h *BaseHandler) Error(c *gin.Context, code, label, details string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(label, code, details, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 invalid input response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeInvalidInput, message, message)
}

// HandleError converts err to an error response. fallbackLabel is used
// as the "error" label of server faults that have no label of their own.
func (h *BaseHandler) HandleError(c *gin.Context, err error, fallbackLabel string) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	code, details := dto.ErrCodeInternal, err.Error()

	var maxErr *http.MaxBytesError
	var domainErr *shared.DomainError
	var renderErr *infra.RenderError
	switch {
	case errors.As(err, &maxErr):
		code = dto.ErrCodePayloadTooLarge
	case errors.As(err, &domainErr):
		code, details = domainErr.Code, domainErr.Message
	case errors.As(err, &renderErr):
		code = renderErr.Code
	}

	status := dto.GetHTTPStatus(code)
	label := fallbackLabel
	if status < http.StatusInternalServerError {
		// client faults read better with the message itself
		label = details
	} else {
		logger.GetGinLogger(c).Error(fallbackLabel, zap.String("code", code), zap.Error(err))
	}
	label = dto.ErrorLabel(code, label)

	resp := dto.NewErrorResponse(label, code, details, middleware.GetRequestID(c))
	if h.exposeStack {
		resp = resp.WithStack(err)
	}
	c.JSON(status, resp)
}
