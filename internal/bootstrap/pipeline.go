// Package bootstrap assembles the rendering pipeline from configuration.
package bootstrap

import (
	"context"
	"fmt"

	app "github.com/arvi/quotation/internal/application/quotation"
	domainprinting "github.com/arvi/quotation/internal/domain/printing"
	"github.com/arvi/quotation/internal/domain/quotation"
	"github.com/arvi/quotation/internal/infrastructure/archive"
	"github.com/arvi/quotation/internal/infrastructure/assets"
	"github.com/arvi/quotation/internal/infrastructure/config"
	"github.com/arvi/quotation/internal/infrastructure/printing"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Options are the runtime pieces the pipeline cannot build from config alone
type Options struct {
	Fs       afero.Fs
	Observer printing.SessionObserver
	Recorder app.ExportRecorder
	// SkipArchive forces the no-op archiver, e.g. for one-shot CLI runs
	SkipArchive bool
	Logger      *zap.Logger
}

// Pipeline is the assembled service plus the parts main needs to manage
type Pipeline struct {
	Service    *app.Service
	Compositor *printing.Compositor
	Archiver   archive.Archiver
}

// NewCompositor builds the document compositor from cfg
func NewCompositor(cfg *config.Config, fs afero.Fs, logger *zap.Logger) *printing.Compositor {
	var source printing.AssetSource
	loader := assets.NewLoader(fs, assets.SearchPaths(cfg.Assets.Dirs), logger.Named("assets"))
	if cfg.Assets.Cache {
		source = assets.NewCached(loader)
	} else {
		source = loader
	}

	formatter := quotation.NewFormatter(cfg.Quotation.Locale, cfg.Quotation.CurrencySymbol)
	return printing.NewCompositor(printing.CompositorConfig{
		Fs:               fs,
		TemplatePaths:    assets.SearchPaths(cfg.Template.Paths),
		EmbeddedFallback: cfg.Template.EmbeddedFallback,
		Assets:           source,
		Formatter:        &formatter,
		CompanyName:      cfg.Document.CompanyName,
		SurchargeLabel:   cfg.Quotation.SurchargeLabel,
		FilenamePrefix:   cfg.Document.FilenamePrefix,
		DefaultQuoteCode: cfg.Document.DefaultQuoteCode,
		Logger:           logger.Named("compositor"),
	})
}

// NewSessionManager builds the browser session manager from cfg
func NewSessionManager(cfg *config.Config, fs afero.Fs, observer printing.SessionObserver, logger *zap.Logger) *printing.SessionManager {
	noSandbox, reason := printing.NoSandbox(cfg.Render.NoSandbox, printing.SystemHost())
	logger.Info("browser sandbox decided",
		zap.Bool("no_sandbox", noSandbox),
		zap.String("reason", reason))

	resolver := printing.NewDefaultResolver(
		&printing.EnvResolver{
			Fs:         fs,
			ConfigPath: cfg.Render.BrowserPath,
			EnvVars:    cfg.Render.BrowserEnvVars,
			Logger:     logger,
		},
		&printing.DownloadResolver{
			Enabled:  cfg.Render.DownloadEnabled,
			Dir:      cfg.Render.DownloadDir,
			Revision: cfg.Render.Revision,
			Logger:   logger,
		},
		logger,
	)

	return printing.NewSessionManager(printing.SessionConfig{
		Resolver:       resolver,
		RemoteURL:      cfg.Render.RemoteURL,
		NoSandbox:      noSandbox,
		LaunchTimeout:  cfg.Render.LaunchTimeout,
		LoadTimeout:    cfg.Render.LoadTimeout,
		CaptureTimeout: cfg.Render.CaptureTimeout,
		SettleDelay:    cfg.Render.SettleDelay,
		MaxConcurrent:  cfg.Render.MaxConcurrent,
		Observer:       observer,
		Logger:         logger,
	})
}

// NewPipeline assembles compositor, exporter, archiver and service
func NewPipeline(ctx context.Context, cfg *config.Config, opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	compositor := NewCompositor(cfg, fs, logger)
	sessions := NewSessionManager(cfg, fs, opts.Observer, logger.Named("render"))

	exporter, err := printing.NewExporter(cfg.Render.Strategy, sessions, cfg.Render.JPEGQuality, logger.Named("export"))
	if err != nil {
		return nil, err
	}

	var archiver archive.Archiver = archive.Noop{}
	if !opts.SkipArchive {
		archiver, err = archive.New(ctx, cfg.Archive, logger.Named("archive"))
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
	}

	service := app.NewService(app.ServiceConfig{
		Calculator:     quotation.NewCalculator(cfg.Quotation.SurchargeRate),
		Composer:       compositor,
		Exporter:       exporter,
		Paginator:      printing.NewPaginator(domainprinting.QuotationPage()),
		Archiver:       archiver,
		Recorder:       opts.Recorder,
		QuotePrefix:    cfg.Document.FilenamePrefix,
		ArchiveTimeout: cfg.Archive.Timeout,
		Logger:         logger.Named("quotation"),
	})

	return &Pipeline{Service: service, Compositor: compositor, Archiver: archiver}, nil
}
