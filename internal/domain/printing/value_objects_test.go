package printing

import (
	"testing"

	"github.com/arvi/quotation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMargins(t *testing.T) {
	tests := []struct {
		name                     string
		top, right, bottom, left int
		wantErr                  bool
	}{
		{"valid", 10, 10, 10, 10, false},
		{"zero", 0, 0, 0, 0, false},
		{"negative", -1, 10, 10, 10, true},
		{"too large", 10, 101, 10, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMargins(tt.top, tt.right, tt.bottom, tt.left)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, shared.NewDomainError("INVALID_MARGINS", ""))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.top, m.Top)
		})
	}
}

func TestDefaultMargins(t *testing.T) {
	m := DefaultMargins()
	assert.Equal(t, Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}, m)
	assert.False(t, m.IsZero())
	assert.True(t, Margins{}.IsZero())
}

func TestQuotationPage(t *testing.T) {
	spec := QuotationPage()

	w, h := spec.Size()
	assert.Equal(t, 210.0, w)
	assert.Equal(t, 297.0, h)

	cw, ch := spec.ContentBox()
	assert.Equal(t, 190.0, cw)
	assert.Equal(t, 277.0, ch)
}

func TestPageSpec_Landscape(t *testing.T) {
	spec := PageSpec{Paper: PaperSizeA4, Orientation: OrientationLandscape}
	w, h := spec.Size()
	assert.Equal(t, 297.0, w)
	assert.Equal(t, 210.0, h)
}

func TestPaperSize(t *testing.T) {
	assert.True(t, PaperSizeA4.IsValid())
	assert.True(t, PaperSizeLetter.IsValid())
	assert.False(t, PaperSize("A0").IsValid())

	w, h := PaperSizeA5.Dimensions()
	assert.Equal(t, 148.0, w)
	assert.Equal(t, 210.0, h)
	assert.Equal(t, "A4", PaperSizeA4.String())
}

func TestOrientation_IsValid(t *testing.T) {
	assert.True(t, OrientationPortrait.IsValid())
	assert.False(t, Orientation("DIAGONAL").IsValid())
}

func TestViewports(t *testing.T) {
	r := RasterViewport()
	assert.Equal(t, int64(794), r.Width)
	assert.Equal(t, int64(1123), r.Height)
	assert.Equal(t, 2.0, r.Scale)

	p := PrintViewport()
	assert.Equal(t, int64(1200), p.Width)
}
