package printing

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math"

	"github.com/arvi/quotation/internal/domain/printing"
	"github.com/go-pdf/fpdf"
)

// fpdfImageTypes maps image.DecodeConfig formats to fpdf image types
var fpdfImageTypes = map[string]string{
	"jpeg": "JPG",
	"png":  "PNG",
	"gif":  "GIF",
}

// PageSlice is the part of a tall image shown on one page.
// Y is where the image's top edge is placed on the page; it goes
// negative from the second page on and the page clips to its content box.
type PageSlice struct {
	Index  int
	Y      float64 // mm from the top of the sheet
	Top    float64 // mm from the top of the image
	Height float64 // visible height in mm
}

// Layout is the result of planning a raster document onto pages
type Layout struct {
	ImageWidth  float64 // mm, equals the content width
	ImageHeight float64 // mm, scaled to ImageWidth
	Slices      []PageSlice
}

// Paginator tiles one tall raster image across fixed-size PDF pages.
type Paginator struct {
	spec printing.PageSpec
}

// NewPaginator creates a paginator for spec
func NewPaginator(spec printing.PageSpec) *Paginator {
	return &Paginator{spec: spec}
}

// Plan computes the page slices for an image of widthPx × heightPx.
// Slices cover the image top to bottom with no gap and no overlap.
func (p *Paginator) Plan(widthPx, heightPx int) (Layout, error) {
	if widthPx <= 0 || heightPx <= 0 {
		return Layout{}, NewRenderError(ErrCodeInvalidImage,
			fmt.Sprintf("image has no area (%dx%d)", widthPx, heightPx), nil)
	}

	contentW, usable := p.spec.ContentBox()
	top := float64(p.spec.Margins.Top)
	imgH := float64(heightPx) * contentW / float64(widthPx)

	// tolerance keeps an image of exactly N pages from spilling onto N+1
	pages := int(math.Ceil(imgH/usable - 1e-9))
	if pages < 1 {
		pages = 1
	}

	slices := make([]PageSlice, pages)
	for k := range slices {
		offset := float64(k) * usable
		slices[k] = PageSlice{
			Index:  k,
			Y:      top - offset,
			Top:    offset,
			Height: math.Min(usable, imgH-offset),
		}
	}
	return Layout{ImageWidth: contentW, ImageHeight: imgH, Slices: slices}, nil
}

// Paginate lays a PNG, JPEG or GIF image across as many pages as it needs
// and returns the PDF bytes.
func (p *Paginator) Paginate(img []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidImage, "cannot decode image", err)
	}
	imageType, ok := fpdfImageTypes[format]
	if !ok {
		return nil, NewRenderError(ErrCodeInvalidImage, "unsupported image format "+format, nil)
	}

	layout, err := p.Plan(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	orientation := "P"
	if p.spec.Orientation == printing.OrientationLandscape {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", p.spec.Paper.String(), "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	opts := fpdf.ImageOptions{ImageType: imageType, AllowNegativePosition: true}
	const name = "document"
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))

	left, top := float64(p.spec.Margins.Left), float64(p.spec.Margins.Top)
	_, usable := p.spec.ContentBox()
	for _, s := range layout.Slices {
		pdf.AddPage()
		pdf.ClipRect(left, top, layout.ImageWidth, usable, false)
		pdf.ImageOptions(name, left, s.Y, layout.ImageWidth, layout.ImageHeight, false, opts, 0, "")
		pdf.ClipEnd()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to write PDF", err)
	}
	return buf.Bytes(), nil
}

// estimatePageCount estimates the page count from PDF data
// This is a simple heuristic that counts "/Type /Page" occurrences
func estimatePageCount(pdfData []byte) int {
	count := bytes.Count(pdfData, []byte("/Type /Page"))
	// Each page has one "/Type /Page" but the count also includes "/Type /Pages"
	parentCount := bytes.Count(pdfData, []byte("/Type /Pages"))
	return max(count-parentCount, 1)
}
