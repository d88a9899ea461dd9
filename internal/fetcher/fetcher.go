// Package fetcher implements the browserless acquisition path: one HTTP GET
// whose body is parsed into an in-memory tree. Declarative shadow roots in
// server-rendered markup are kept; shadow roots attached by scripts are not,
// and Pending reports the custom elements that probably needed them.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/shadowq/dom"
)

// Result is the outcome of a fetch.
type Result struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	Truncated   bool
}

// Fetcher performs HTTP GETs.
type Fetcher struct {
	client   *http.Client
	ua       string
	maxBytes int64
	logger   *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.ua = ua
		}
	}
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithMaxBytes caps the body read. Default 10MB.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		ua:       "Mozilla/5.0 (compatible; shadowq/1.0)",
		maxBytes: 10 << 20,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs pageURL. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetcher: %s: status %d", pageURL, resp.StatusCode)
	}

	// One extra byte tells a body of exactly maxBytes from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}
	res := &Result{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if int64(len(body)) > f.maxBytes {
		body = body[:f.maxBytes]
		res.Truncated = true
	}
	res.HTML = string(body)

	f.logger.Debug("fetcher: fetched",
		"url", pageURL, "status", resp.StatusCode,
		"size", len(body), "truncated", res.Truncated)
	return res, nil
}

// Document fetches pageURL and parses it.
func (f *Fetcher) Document(ctx context.Context, pageURL string) (*dom.Document, *Result, error) {
	res, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}
	doc, err := dom.ParseString(res.HTML)
	if err != nil {
		return nil, nil, fmt.Errorf("fetcher: %w", err)
	}
	return doc, res, nil
}

// Pending lists, once each and in document order, the tag names of custom
// elements (names with a hyphen) that have no shadow root. Their shadow
// trees are built by scripts, so only a live browser can resolve selectors
// that cross into them.
func Pending(doc *dom.Document) ([]string, error) {
	hosts := make(map[dom.Element]bool)
	for _, sr := range doc.ShadowRoots() {
		hosts[sr.Host()] = true
	}

	var names []string
	seen := make(map[string]bool)
	visit := func(scope dom.Node) error {
		all, err := scope.QuerySelectorAll("*")
		if err != nil {
			return err
		}
		for _, n := range all {
			el := n.(dom.Element)
			name := el.TagName()
			if !strings.Contains(name, "-") || hosts[el] || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
		return nil
	}

	if err := visit(doc); err != nil {
		return nil, err
	}
	for _, sr := range doc.ShadowRoots() {
		if err := visit(sr); err != nil {
			return nil, err
		}
	}
	return names, nil
}
