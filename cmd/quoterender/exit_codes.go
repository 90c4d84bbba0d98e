package main

import (
	"errors"
	"os"

	"github.com/arvi/quotation/internal/domain/shared"
	"github.com/arvi/quotation/internal/infrastructure/printing"
)

// Exit codes, following md2pdf-style Unix conventions
const (
	ExitSuccess = 0 // Successful render
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or input
	ExitIO      = 3 // Input or output file problems
	ExitBrowser = 4 // Browser could not be found, launched or driven
)

var (
	ErrUsage     = errors.New("usage error")
	ErrReadInput = errors.New("cannot read input")
	ErrWriteOut  = errors.New("cannot write output")
)

// exitCodeFor returns the exit code for err. Callers wrap with %w.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, printing.ErrEngineUnavailable) ||
		errors.Is(err, printing.ErrRenderTimeout) ||
		errors.Is(err, printing.ErrRenderFailed) {
		return ExitBrowser
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOut) {
		return ExitIO
	}

	if errors.Is(err, ErrUsage) ||
		errors.Is(err, shared.ErrInvalidInput) ||
		errors.Is(err, printing.ErrTemplateNotFound) {
		return ExitUsage
	}

	return ExitGeneral
}
