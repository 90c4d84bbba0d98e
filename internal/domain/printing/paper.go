package printing

// PaperSize represents the output sheet size
type PaperSize string

const (
	PaperSizeA4     PaperSize = "A4"     // 210mm x 297mm
	PaperSizeA5     PaperSize = "A5"     // 148mm x 210mm
	PaperSizeLetter PaperSize = "LETTER" // 216mm x 279mm
)

// IsValid checks if the PaperSize is a valid value
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeA5, PaperSizeLetter:
		return true
	}
	return false
}

// String returns the string representation of PaperSize
func (p PaperSize) String() string {
	return string(p)
}

// Dimensions returns the portrait width and height in millimeters
func (p PaperSize) Dimensions() (width, height float64) {
	switch p {
	case PaperSizeA5:
		return 148, 210
	case PaperSizeLetter:
		return 215.9, 279.4
	default:
		return 210, 297
	}
}

// Orientation represents the page orientation
type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// IsValid checks if the Orientation is a valid value
func (o Orientation) IsValid() bool {
	return o == OrientationPortrait || o == OrientationLandscape
}

// PageSpec is the fixed geometry of an exported page.
type PageSpec struct {
	Paper       PaperSize
	Orientation Orientation
	Margins     Margins
}

// QuotationPage is A4 portrait with 10mm margins on every side.
func QuotationPage() PageSpec {
	return PageSpec{
		Paper:       PaperSizeA4,
		Orientation: OrientationPortrait,
		Margins:     DefaultMargins(),
	}
}

// Size returns the oriented sheet size in millimeters
func (s PageSpec) Size() (width, height float64) {
	w, h := s.Paper.Dimensions()
	if s.Orientation == OrientationLandscape {
		return h, w
	}
	return w, h
}

// ContentBox returns the printable width and height inside the margins
func (s PageSpec) ContentBox() (width, height float64) {
	w, h := s.Size()
	return w - float64(s.Margins.Left+s.Margins.Right), h - float64(s.Margins.Top+s.Margins.Bottom)
}
