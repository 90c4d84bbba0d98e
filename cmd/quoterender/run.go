package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/arvi/quotation/internal/bootstrap"
	"github.com/arvi/quotation/internal/domain/quotation"
	"github.com/arvi/quotation/internal/infrastructure/config"
	"github.com/arvi/quotation/internal/infrastructure/logger"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

// maxInputSize matches the HTTP body limit default
const maxInputSize = 50 << 20

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if flags.version {
		fmt.Fprintln(stdout, "quoterender", Version)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if flags.strategy != "" {
		cfg.Render.Strategy = flags.strategy
	}

	log := zap.NewNop()
	if flags.verbose {
		log, err = logger.New(&logger.Config{Level: "debug", Format: "console", Output: "stderr"})
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync(log) }()
	}

	q, err := readQuotation(flags.in, flags.format, stdin)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := bootstrap.NewPipeline(ctx, cfg, bootstrap.Options{SkipArchive: true, Logger: log})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var data []byte
	var filename string
	if flags.htmlOnly {
		doc, err := pipeline.Service.Preview(ctx, q)
		if err != nil {
			return err
		}
		data = []byte(doc.HTML)
		filename = strings.TrimSuffix(doc.Filename, ".pdf") + ".html"
	} else {
		result, err := pipeline.Service.Export(ctx, q)
		if err != nil {
			return err
		}
		data, filename = result.PDF, result.Filename
	}

	out := flags.out
	if out == "" {
		out = filename
	}
	if out == "-" {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOut, err)
		}
		return nil
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOut, err)
	}
	fmt.Fprintf(stderr, "wrote %s (%d bytes)\n", out, len(data))
	return nil
}

// readQuotation loads a quotation from path ("-" for stdin). YAML input is
// converted to JSON first so both formats share one decoder.
func readQuotation(path, format string, stdin io.Reader) (*quotation.Quotation, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		defer f.Close()
		r = f
	}

	body, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	if len(body) > maxInputSize {
		return nil, fmt.Errorf("%w: input exceeds %d bytes", ErrReadInput, maxInputSize)
	}

	if format == "yaml" && len(body) > 0 {
		body, err = yaml.YAMLToJSON(body)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid YAML: %v", ErrUsage, err)
		}
	}
	return quotation.Decode(body)
}
