package printing

import "github.com/arvi/quotation/internal/domain/shared"

// Margins represents the page margins in millimeters
type Margins struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// NewMargins creates a new Margins value object
func NewMargins(top, right, bottom, left int) (Margins, error) {
	if top < 0 || right < 0 || bottom < 0 || left < 0 {
		return Margins{}, shared.NewDomainError("INVALID_MARGINS", "Margins cannot be negative")
	}
	if top > 100 || right > 100 || bottom > 100 || left > 100 {
		return Margins{}, shared.NewDomainError("INVALID_MARGINS", "Margins cannot exceed 100mm")
	}
	return Margins{Top: top, Right: right, Bottom: bottom, Left: left}, nil
}

// DefaultMargins returns 10mm on every side
func DefaultMargins() Margins {
	return Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}
}

// IsZero returns true if all margins are zero
func (m Margins) IsZero() bool {
	return m.Top == 0 && m.Right == 0 && m.Bottom == 0 && m.Left == 0
}

// Viewport is the CSS pixel surface a document is laid out in before capture.
type Viewport struct {
	Width  int64
	Height int64
	Scale  float64 // device pixel ratio
}

// PrintViewport is the window used when the browser paginates the document itself.
func PrintViewport() Viewport {
	return Viewport{Width: 1200, Height: 800, Scale: 1}
}

// RasterViewport approximates an A4 sheet at 96 DPI, captured at twice the pixel density.
func RasterViewport() Viewport {
	return Viewport{Width: 794, Height: 1123, Scale: 2}
}
