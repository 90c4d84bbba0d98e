package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
	Render    RenderConfig
	Assets    AssetsConfig
	Template  TemplateConfig
	Quotation QuotationConfig
	Document  DocumentConfig
	Archive   ArchiveConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// IsProduction reports whether the service runs with production safeguards
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBackend  string // memory, redis
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// RedisConfig holds Redis connection settings for the shared rate limiter
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	MetricsEnabled    bool
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool
	ExportInterval    time.Duration
}

// RenderConfig controls the headless browser pipeline
type RenderConfig struct {
	Strategy        string // print, raster
	BrowserPath     string // explicit engine override
	BrowserEnvVars  []string
	RemoteURL       string // attach to a running browser instead of launching one
	DownloadEnabled bool
	DownloadDir     string
	Revision        int // pinned download revision, 0 = library default
	NoSandbox       string // auto, true, false
	LaunchTimeout   time.Duration
	LoadTimeout     time.Duration
	CaptureTimeout  time.Duration
	SettleDelay     time.Duration
	MaxConcurrent   int // 0 = unbounded
	JPEGQuality     int // raster strategy capture quality
}

// AssetsConfig controls image asset discovery
type AssetsConfig struct {
	Dirs  []string
	Cache bool
}

// TemplateConfig controls template resolution
type TemplateConfig struct {
	Paths            []string
	EmbeddedFallback bool
}

// QuotationConfig holds pricing rules
type QuotationConfig struct {
	SurchargeRate  float64
	SurchargeLabel string
	CurrencySymbol string
	Locale         string
}

// DocumentConfig controls output naming
type DocumentConfig struct {
	FilenamePrefix   string
	DefaultQuoteCode string
	CompanyName      string
}

// ArchiveConfig controls optional storage of generated PDFs
type ArchiveConfig struct {
	Backend   string // none, filesystem, s3
	Dir       string
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// UsePathStyle addresses buckets as endpoint/bucket (MinIO, RustFS)
	UsePathStyle bool
	Timeout      time.Duration
	// Retention removes filesystem archives older than this; 0 keeps them forever
	Retention time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with QUOTE_ prefix (e.g., QUOTE_RENDER_STRATEGY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("QUOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans whose zero value is not the default need an explicit viper default.
	v.SetDefault("render.download_enabled", true)
	v.SetDefault("assets.cache", true)
	v.SetDefault("template.embedded_fallback", true)
	v.SetDefault("http.rate_limit_enabled", true)
	v.SetDefault("quotation.surcharge_rate", 0.18)

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			RateLimitBackend:  v.GetString("http.rate_limit_backend"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
		Render: RenderConfig{
			Strategy:        v.GetString("render.strategy"),
			BrowserPath:     v.GetString("render.browser_path"),
			BrowserEnvVars:  v.GetStringSlice("render.browser_env_vars"),
			RemoteURL:       v.GetString("render.remote_url"),
			DownloadEnabled: v.GetBool("render.download_enabled"),
			DownloadDir:     v.GetString("render.download_dir"),
			Revision:        v.GetInt("render.revision"),
			NoSandbox:       v.GetString("render.no_sandbox"),
			LaunchTimeout:   v.GetDuration("render.launch_timeout"),
			LoadTimeout:     v.GetDuration("render.load_timeout"),
			CaptureTimeout:  v.GetDuration("render.capture_timeout"),
			SettleDelay:     v.GetDuration("render.settle_delay"),
			MaxConcurrent:   v.GetInt("render.max_concurrent"),
			JPEGQuality:     v.GetInt("render.jpeg_quality"),
		},
		Assets: AssetsConfig{
			Dirs:  v.GetStringSlice("assets.dirs"),
			Cache: v.GetBool("assets.cache"),
		},
		Template: TemplateConfig{
			Paths:            v.GetStringSlice("template.paths"),
			EmbeddedFallback: v.GetBool("template.embedded_fallback"),
		},
		Quotation: QuotationConfig{
			SurchargeRate:  v.GetFloat64("quotation.surcharge_rate"),
			SurchargeLabel: v.GetString("quotation.surcharge_label"),
			CurrencySymbol: v.GetString("quotation.currency_symbol"),
			Locale:         v.GetString("quotation.locale"),
		},
		Document: DocumentConfig{
			FilenamePrefix:   v.GetString("document.filename_prefix"),
			DefaultQuoteCode: v.GetString("document.default_quote_code"),
			CompanyName:      v.GetString("document.company_name"),
		},
		Archive: ArchiveConfig{
			Backend:   v.GetString("archive.backend"),
			Dir:       v.GetString("archive.dir"),
			Bucket:    v.GetString("archive.bucket"),
			Prefix:    v.GetString("archive.prefix"),
			Region:    v.GetString("archive.region"),
			Endpoint:  v.GetString("archive.endpoint"),
			AccessKey: v.GetString("archive.access_key"),
			SecretKey: v.GetString("archive.secret_key"),
			Timeout:   v.GetDuration("archive.timeout"),

			UsePathStyle: v.GetBool("archive.use_path_style"),
			Retention:    v.GetDuration("archive.retention"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "quotation-renderer"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "3000"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	// Exports can take a launch plus the 25s load bound plus capture, so the
	// write timeout has to outlive the whole pipeline.
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 120 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 50 << 20 // 50MB, pasted rich text can carry inline images
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 30
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.RateLimitBackend == "" {
		cfg.HTTP.RateLimitBackend = "memory"
	}
	if len(cfg.HTTP.CORSAllowOrigins) == 0 && cfg.App.Env != "production" {
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}

	if cfg.Render.Strategy == "" {
		cfg.Render.Strategy = "print"
	}
	if len(cfg.Render.BrowserEnvVars) == 0 {
		cfg.Render.BrowserEnvVars = []string{"QUOTE_BROWSER_BIN", "CHROME_PATH", "ROD_BROWSER_BIN"}
	}
	if cfg.Render.NoSandbox == "" {
		cfg.Render.NoSandbox = "auto"
	}
	if cfg.Render.LaunchTimeout == 0 {
		cfg.Render.LaunchTimeout = 20 * time.Second
	}
	if cfg.Render.LoadTimeout == 0 {
		cfg.Render.LoadTimeout = 25 * time.Second
	}
	if cfg.Render.CaptureTimeout == 0 {
		cfg.Render.CaptureTimeout = 30 * time.Second
	}
	if cfg.Render.SettleDelay == 0 {
		cfg.Render.SettleDelay = 500 * time.Millisecond
	}
	if cfg.Render.JPEGQuality == 0 {
		cfg.Render.JPEGQuality = 92
	}

	if len(cfg.Assets.Dirs) == 0 {
		cfg.Assets.Dirs = []string{"public/assets", "assets"}
	}
	if len(cfg.Template.Paths) == 0 {
		cfg.Template.Paths = []string{"views/quotation-template.html", "templates/quotation-template.html"}
	}

	if cfg.Quotation.SurchargeLabel == "" {
		cfg.Quotation.SurchargeLabel = "GST"
	}
	if cfg.Quotation.CurrencySymbol == "" {
		cfg.Quotation.CurrencySymbol = "₹"
	}
	if cfg.Quotation.Locale == "" {
		cfg.Quotation.Locale = "en-IN"
	}

	if cfg.Document.FilenamePrefix == "" {
		cfg.Document.FilenamePrefix = "ARVI"
	}
	if cfg.Document.DefaultQuoteCode == "" {
		cfg.Document.DefaultQuoteCode = "Q001"
	}
	if cfg.Document.CompanyName == "" {
		cfg.Document.CompanyName = "ARVI"
	}

	if cfg.Archive.Backend == "" {
		cfg.Archive.Backend = "none"
	}
	if cfg.Archive.Dir == "" {
		cfg.Archive.Dir = "./storage/quotations"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "quotations"
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}
	if cfg.Archive.Timeout == 0 {
		cfg.Archive.Timeout = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Render.Strategy {
	case "print", "raster":
	default:
		return fmt.Errorf("render.strategy must be 'print' or 'raster', got %q", c.Render.Strategy)
	}
	switch c.Render.NoSandbox {
	case "auto", "true", "false":
	default:
		return fmt.Errorf("render.no_sandbox must be 'auto', 'true' or 'false', got %q", c.Render.NoSandbox)
	}
	if c.Render.MaxConcurrent < 0 {
		return fmt.Errorf("render.max_concurrent cannot be negative")
	}
	if c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100 {
		return fmt.Errorf("render.jpeg_quality must be between 1 and 100, got %d", c.Render.JPEGQuality)
	}

	if c.Quotation.SurchargeRate < 0 || c.Quotation.SurchargeRate > 1 {
		return fmt.Errorf("quotation.surcharge_rate must be between 0.0 and 1.0, got %f", c.Quotation.SurchargeRate)
	}

	switch c.HTTP.RateLimitBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("http.rate_limit_backend must be 'memory' or 'redis', got %q", c.HTTP.RateLimitBackend)
	}

	switch c.Archive.Backend {
	case "none", "filesystem":
	case "s3":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when archive.backend is 's3'")
		}
	default:
		return fmt.Errorf("archive.backend must be 'none', 'filesystem' or 's3', got %q", c.Archive.Backend)
	}

	if c.App.IsProduction() {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}
