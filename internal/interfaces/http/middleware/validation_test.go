package middleware

import (
	"errors"
	"testing"

	"github.com/arvi/quotation/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleItem struct {
	Description string `json:"description" binding:"max=5"`
}

type sampleRequest struct {
	QuoteNumber string       `json:"quote_number" binding:"required"`
	Mode        string       `json:"mode" binding:"omitempty,oneof=print raster"`
	Count       int          `json:"count" binding:"gte=1"`
	Items       []sampleItem `json:"items" binding:"dive"`
}

func TestFormatValidationErrors(t *testing.T) {
	SetupValidator()

	err := binding.Validator.ValidateStruct(&sampleRequest{
		Mode:  "fax",
		Count: 0,
		Items: []sampleItem{{Description: "far too long"}},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	resp := FormatValidationErrors(err, "req-1")

	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeValidation, resp.Code)
	assert.Equal(t, "Request validation failed", resp.Error)
	assert.Equal(t, "req-1", resp.RequestID)

	byField := make(map[string]string, len(resp.Fields))
	for _, f := range resp.Fields {
		byField[f.Field] = f.Message
	}
	assert.Equal(t, "This field is required", byField["quote_number"])
	assert.Equal(t, "Must be one of: print raster", byField["mode"])
	assert.Equal(t, "Must be greater than or equal to 1", byField["count"])
	assert.Equal(t, "Must be at most 5 characters", byField["items[0].description"])
	assert.Contains(t, resp.Details, "quote_number: This field is required")
}

func TestFormatValidationErrors_NonValidatorError(t *testing.T) {
	err := errors.New("boom")
	assert.False(t, IsValidationError(err))

	resp := FormatValidationErrors(err, "")
	assert.Equal(t, dto.ErrCodeValidation, resp.Code)
	assert.Empty(t, resp.Fields)
	assert.Empty(t, resp.Details)
}
