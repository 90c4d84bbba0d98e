package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
)

// cliFlags holds the parsed command line
type cliFlags struct {
	in       string
	out      string
	format   string
	strategy string
	htmlOnly bool
	verbose  bool
	version  bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("quoterender", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: quoterender --in quotation.json [--out file.pdf] [flags]")
		fs.PrintDefaults()
	}

	fs.StringVarP(&f.in, "in", "i", "-", `quotation file, "-" reads stdin`)
	fs.StringVarP(&f.out, "out", "o", "", "output file; default is the generated quotation filename")
	fs.StringVarP(&f.format, "format", "f", "", "input format: json or yaml (default: from the file extension, else json)")
	fs.StringVar(&f.strategy, "strategy", "", "export strategy: print or raster (default: from configuration)")
	fs.BoolVar(&f.htmlOnly, "html-only", false, "write the composed HTML instead of a PDF")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log pipeline progress to stderr")
	fs.BoolVar(&f.version, "version", false, "print the version and exit")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, fs.Args())
	}

	if f.format == "" {
		f.format = formatFromPath(f.in)
	}
	f.format = strings.ToLower(f.format)
	if f.format != "json" && f.format != "yaml" {
		return nil, fmt.Errorf("%w: unknown format %q", ErrUsage, f.format)
	}
	return f, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}
