package printing

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/arvi/quotation/internal/domain/quotation"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	embeddedTemplatePath = "templates/quotation.html"
	embeddedTemplateKey  = "embedded:" + embeddedTemplatePath
)

// AssetSource supplies the filename → data URI map embedded into documents
type AssetSource interface {
	Load(ctx context.Context) map[string]string
}

// Document is a quotation with its priced item tables, ready to compose
type Document struct {
	Quotation *quotation.Quotation
	Items     quotation.PricedTable
	Option2   quotation.PricedTable
}

// RenderedDocument is a self-contained HTML document and the filename its PDF is served under
type RenderedDocument struct {
	HTML        string
	QuoteNumber string
	Filename    string
}

// CompositorConfig configures the document compositor
type CompositorConfig struct {
	// Fs is searched for TemplatePaths. Default: the OS filesystem
	Fs afero.Fs
	// TemplatePaths are tried in order; the first existing file wins
	TemplatePaths []string
	// EmbeddedFallback uses the built-in template when no path resolves
	EmbeddedFallback bool
	// Assets supplies images; nil means none
	Assets AssetSource
	// Formatter renders amounts. Default: en-IN with the rupee symbol
	Formatter *quotation.Formatter

	CompanyName      string
	SurchargeLabel   string
	FilenamePrefix   string
	DefaultQuoteCode string

	Logger *zap.Logger
}

// Compositor merges a quotation, its totals and the asset map into one HTML document.
// Parsed templates are cached per path and shared between requests.
type Compositor struct {
	config  CompositorConfig
	logger  *zap.Logger
	funcMap template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewCompositor creates a compositor
func NewCompositor(config CompositorConfig) *Compositor {
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	if config.Formatter == nil {
		f := quotation.NewFormatter("en-IN", "₹")
		config.Formatter = &f
	}
	if config.CompanyName == "" {
		config.CompanyName = "ARVI"
	}
	if config.SurchargeLabel == "" {
		config.SurchargeLabel = "GST"
	}
	if config.FilenamePrefix == "" {
		config.FilenamePrefix = config.CompanyName
	}
	if config.DefaultQuoteCode == "" {
		config.DefaultQuoteCode = "Q001"
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Compositor{
		config: config,
		logger: logger,
		cache:  make(map[string]*template.Template),
	}
	c.funcMap = template.FuncMap{
		// Text
		"plainText": plainText,
		"richText":  richText,
		"upper":     strings.ToUpper,
		"trim":      strings.TrimSpace,
		"default":   defaultString,

		// Amounts
		"money":    c.config.Formatter.Amount,
		"currency": c.config.Formatter.Money,
		"percent":  c.config.Formatter.Percent,

		"surchargeLabel": func() string { return c.config.SurchargeLabel },
	}
	return c
}

// Compose renders doc into HTML. The same input always yields byte-identical output.
func (c *Compositor) Compose(ctx context.Context, doc Document) (*RenderedDocument, error) {
	if doc.Quotation == nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "quotation is nil", nil)
	}
	start := time.Now()

	tmpl, err := c.template()
	if err != nil {
		return nil, err
	}

	var assets map[string]string
	if c.config.Assets != nil {
		assets = c.config.Assets.Load(ctx)
	}

	view := &documentView{
		Company:     c.config.CompanyName,
		QuoteNumber: doc.Quotation.QuoteNumber,
		Q:           doc.Quotation,
		Items:       doc.Items,
		Option2:     doc.Option2,
		HasOption2:  !doc.Option2.IsEmpty(),
		assets:      assets,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, NewRenderError(ErrCodeTemplateInvalid, "failed to execute template", err)
	}

	c.logger.Debug("document composed",
		zap.String("quote_number", doc.Quotation.QuoteNumber),
		zap.Int("bytes", buf.Len()),
		zap.Int("assets", len(assets)),
		zap.Duration("duration", time.Since(start)))

	return &RenderedDocument{
		HTML:        buf.String(),
		QuoteNumber: doc.Quotation.QuoteNumber,
		Filename:    quotation.Filename(c.config.FilenamePrefix, doc.Quotation.QuoteNumber, c.config.DefaultQuoteCode),
	}, nil
}

// template returns the parsed template for the first resolvable path
func (c *Compositor) template() (*template.Template, error) {
	key, content, err := c.locate()
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	tmpl, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tmpl, ok := c.cache[key]; ok {
		return tmpl, nil
	}
	if content == nil {
		if content, err = c.read(key); err != nil {
			return nil, err
		}
	}

	tmpl, err = template.New("quotation").Funcs(c.funcMap).Parse(string(content))
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateInvalid, "failed to parse template "+key, err)
	}
	c.cache[key] = tmpl
	c.logger.Info("template loaded", zap.String("template", key))
	return tmpl, nil
}

// locate finds the template key. Content is only read for the embedded copy.
func (c *Compositor) locate() (string, []byte, error) {
	for _, p := range c.config.TemplatePaths {
		if info, err := c.config.Fs.Stat(p); err == nil && !info.IsDir() {
			return p, nil, nil
		}
	}
	if c.config.EmbeddedFallback {
		content, err := templateFS.ReadFile(embeddedTemplatePath)
		if err != nil {
			return "", nil, NewRenderError(ErrCodeTemplateNotFound, "embedded template missing", err)
		}
		return embeddedTemplateKey, content, nil
	}
	return "", nil, NewRenderError(ErrCodeTemplateNotFound,
		"template not found in "+strings.Join(c.config.TemplatePaths, ", "), nil)
}

func (c *Compositor) read(path string) ([]byte, error) {
	content, err := afero.ReadFile(c.config.Fs, path)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateNotFound, "failed to read template "+path, err)
	}
	return content, nil
}

// documentView is the data the template executes against
type documentView struct {
	Company     string
	QuoteNumber string
	Q           *quotation.Quotation
	Items       quotation.PricedTable
	Option2     quotation.PricedTable
	HasOption2  bool

	assets map[string]string
}

// Asset returns the data URI of the first named asset present, or "".
// An empty result selects the template's placeholder branch.
func (v *documentView) Asset(names ...string) template.URL {
	for _, n := range names {
		if uri, ok := v.assets[n]; ok && uri != "" {
			return template.URL(uri)
		}
	}
	return ""
}

// =============================================================================
// Template Functions
// =============================================================================

// plainText escapes s and turns line breaks into <br>
func plainText(s string) template.HTML {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = template.HTMLEscapeString(l)
	}
	return template.HTML(strings.Join(lines, "<br>"))
}

// richText injects s unescaped when it carries markup and falls back to
// plainText otherwise. Callers own the trust decision for this content.
func richText(s string) template.HTML {
	if hasMarkup(s) {
		return template.HTML(s)
	}
	return plainText(s)
}

// voidElements never take a closing tag
var voidElements = map[atom.Atom]bool{
	atom.Br:  true,
	atom.Hr:  true,
	atom.Img: true,
	atom.Wbr: true,
}

// hasMarkup reports whether s reads as editor HTML: a known element that is
// void, self-closing or closed later, a comment, or an entity that decodes.
// Unknown or unclosed tags such as "a<b and c>d" stay plain text.
func hasMarkup(s string) bool {
	if !strings.ContainsAny(s, "<&") {
		return false
	}
	open := map[atom.Atom]int{}
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return false
		case html.CommentToken:
			return true
		case html.TextToken:
			raw := string(z.Raw())
			if strings.Contains(raw, "&") && html.UnescapeString(raw) != raw {
				return true
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == 0 {
				continue
			}
			if tt == html.SelfClosingTagToken || voidElements[a] {
				return true
			}
			open[a]++
		case html.EndTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); a != 0 && open[a] > 0 {
				return true
			}
		}
	}
}

// defaultString returns value, or def when value is blank
func defaultString(def, value string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
