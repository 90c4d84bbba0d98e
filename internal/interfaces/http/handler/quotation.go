package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	app "github.com/arvi/quotation/internal/application/quotation"
	"github.com/arvi/quotation/internal/domain/quotation"
	infra "github.com/arvi/quotation/internal/infrastructure/printing"
	"github.com/arvi/quotation/internal/interfaces/http/dto"
	"github.com/arvi/quotation/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// QuotationService is the application service behind the quotation endpoints
type QuotationService interface {
	Preview(ctx context.Context, q *quotation.Quotation) (*infra.RenderedDocument, error)
	Export(ctx context.Context, q *quotation.Quotation) (*app.ExportResult, error)
	Paginate(ctx context.Context, img []byte) ([]byte, error)
	QuoteNumber() string
}

// Labels used for server faults
const (
	labelGenerateFailed = "Failed to generate PDF"
	labelPreviewFailed  = "Failed to generate preview"
	labelPaginateFailed = "Failed to paginate image"
)

// paginateMediaTypes are the image types POST /paginate accepts
var paginateMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

// QuotationHandlerConfig names the PDFs built from uploaded images
type QuotationHandlerConfig struct {
	FilenamePrefix   string
	DefaultQuoteCode string
	ExposeStack      bool
}

// QuotationHandler handles the render endpoints
type QuotationHandler struct {
	BaseHandler
	service QuotationService
	config  QuotationHandlerConfig
}

// NewQuotationHandler creates a new QuotationHandler
func NewQuotationHandler(service QuotationService, config QuotationHandlerConfig) *QuotationHandler {
	if config.FilenamePrefix == "" {
		config.FilenamePrefix = "ARVI"
	}
	if config.DefaultQuoteCode == "" {
		config.DefaultQuoteCode = "Q001"
	}
	return &QuotationHandler{
		BaseHandler: NewBaseHandler(config.ExposeStack),
		service:     service,
		config:      config,
	}
}

// RegisterRoutes registers the render routes under rg
func (h *QuotationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate-pdf", h.GeneratePDF)
	rg.POST("/preview", h.Preview)
	rg.POST("/paginate", h.Paginate)
	rg.GET("/quote-number", h.QuoteNumber)
}

// GeneratePDF renders the submitted quotation and returns it as a PDF attachment
func (h *QuotationHandler) GeneratePDF(c *gin.Context) {
	q, ok := h.bindQuotation(c, labelGenerateFailed)
	if !ok {
		return
	}

	result, err := h.service.Export(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err, labelGenerateFailed)
		return
	}

	writePDF(c, result.Filename, result.PDF)
}

// Preview renders the submitted quotation to HTML
func (h *QuotationHandler) Preview(c *gin.Context) {
	q, ok := h.bindQuotation(c, labelPreviewFailed)
	if !ok {
		return
	}

	doc, err := h.service.Preview(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err, labelPreviewFailed)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc.HTML))
}

// Paginate lays an uploaded page image across A4 pages.
// The optional quoteNumber query parameter names the returned file.
func (h *QuotationHandler) Paginate(c *gin.Context) {
	if mediaType := c.ContentType(); !paginateMediaTypes[mediaType] {
		h.Error(c, dto.ErrCodeUnsupportedMediaType, dto.ErrorLabel(dto.ErrCodeUnsupportedMediaType, ""),
			fmt.Sprintf("Content-Type %q is not one of image/png, image/jpeg, image/gif", mediaType))
		return
	}

	img, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.HandleError(c, err, labelPaginateFailed)
		return
	}
	if len(img) == 0 {
		h.BadRequest(c, "Image body is required")
		return
	}

	pdf, err := h.service.Paginate(c.Request.Context(), img)
	if err != nil {
		h.HandleError(c, err, labelPaginateFailed)
		return
	}

	filename := quotation.Filename(h.config.FilenamePrefix, c.Query("quoteNumber"), h.config.DefaultQuoteCode)
	writePDF(c, filename, pdf)
}

// QuoteNumber suggests a quote number for a new quotation
func (h *QuotationHandler) QuoteNumber(c *gin.Context) {
	c.JSON(http.StatusOK, dto.QuoteNumberResponse{QuoteNumber: h.service.QuoteNumber()})
}

// bindQuotation reads, decodes and validates the request body.
// It writes the error response itself and reports false on failure.
func (h *QuotationHandler) bindQuotation(c *gin.Context, label string) (*quotation.Quotation, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.HandleError(c, err, label)
		return nil, false
	}

	q, err := quotation.Decode(body)
	if err != nil {
		h.HandleError(c, err, label)
		return nil, false
	}

	if err := binding.Validator.ValidateStruct(q); err != nil {
		if middleware.IsValidationError(err) {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, middleware.FormatValidationErrors(err, middleware.GetRequestID(c)))
			return nil, false
		}
		h.HandleError(c, err, label)
		return nil, false
	}
	return q, true
}

func writePDF(c *gin.Context, filename string, pdf []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Length", strconv.Itoa(len(pdf)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
