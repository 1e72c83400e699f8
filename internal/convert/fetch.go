// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/html-converter/internal/httputil"
	"github.com/pdiddy/html-converter/pkg/types"
)

// maxPageBytes bounds how much of a response body is read.
const maxPageBytes = 20 << 20

// Page is a fetched HTML document.
type Page struct {
	// URL is the final URL after redirects.
	URL  *url.URL
	Body []byte
}

// Fetcher downloads pages over HTTP, retrying throttled responses.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
}

// NewFetcher returns a Fetcher configured from cfg. The HTTP client
// timeout is cfg.Timeout; the conversion budget bounds it further through
// the request context.
func NewFetcher(cfg types.ConversionConfig) *Fetcher {
	ua := cfg.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	return &Fetcher{
		client:     &http.Client{Timeout: cfg.Timeout},
		userAgent:  ua,
		maxRetries: cfg.MaxRetries,
	}
}

// Fetch GETs rawURL and returns its body. Only http and https URLs are
// accepted, non-2xx responses are errors, and non-HTML content types
// are rejected.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("unsupported URL %q: missing host", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	if ct := resp.Header.Get("Content-Type"); !isHTML(ct) {
		return nil, fmt.Errorf("unsupported content type %q from %s", ct, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	final := u
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return &Page{URL: final, Body: body}, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}
