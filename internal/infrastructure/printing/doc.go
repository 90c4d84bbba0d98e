// Package printing turns quotations into PDF documents.
//
// The pipeline has four parts:
//   - Compositor renders a quotation into one self-contained HTML document
//     (images inlined as data URIs, no external requests).
//   - Resolver finds a headless Chrome: explicit override, well-known
//     install paths, then a pinned download.
//   - SessionManager owns browser processes. A Session moves through
//     idle → launching → page_ready → content_loaded → captured → closed
//     and is always closed exactly once.
//   - Exporter produces the PDF, either with Chrome's print engine
//     (PrintExporter) or by slicing a full-page screenshot onto A4 pages
//     (RasterExporter + Paginator).
//
// Example usage:
//
//	sessions := NewSessionManager(SessionConfig{Resolver: resolver, NoSandbox: true})
//	exporter, err := NewExporter(StrategyPrint, sessions, 92, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	doc, err := compositor.Compose(ctx, Document{Quotation: q, Items: table})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pdf, err := exporter.Export(ctx, doc)
package printing
