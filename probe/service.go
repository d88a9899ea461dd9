// CLAUDE:SUMMARY Orchestrates acquisition (file, inline, fetch, live browser, stored snapshot), selector resolution and rendering.
// Package probe is the service layer of shadowq. It acquires a document
// from a file, inline markup, an HTTP fetch, a live browser tab or a stored
// snapshot, resolves a shadow-piercing selector against it and renders the
// matches. The MCP tools, the HTTP API and the CLI are thin shells over it.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/shadowq/dbopen"
	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/idgen"
	"github.com/hazyhaar/shadowq/internal/fetcher"
	"github.com/hazyhaar/shadowq/livedom"
	"github.com/hazyhaar/shadowq/render"
	"github.com/hazyhaar/shadowq/shadowsel"
	"github.com/hazyhaar/shadowq/snapshot"
)

// Resolution modes.
const (
	ModeQuery   = "query"
	ModeAll     = "all"
	ModeShadow  = "shadow"
	ModeDeep    = "deep"
	ModeDeepAll = "deep-all"
)

var (
	// ErrBadRequest marks requests rejected before any acquisition.
	ErrBadRequest = errors.New("probe: bad request")
	// ErrNotFound is returned for unknown snapshot IDs.
	ErrNotFound = snapshot.ErrNotFound
)

// Request is one resolution.
type Request struct {
	// Source is an http(s) URL, a file path or file:// URL, a snapshot ID
	// (snap_...) or inline markup starting with '<'.
	Source   string `json:"source"`
	Selector string `json:"selector"`
	Mode     string `json:"mode,omitempty"`
	Format   string `json:"format,omitempty"`

	// Live resolves in a browser tab instead of a parsed copy. URL and
	// file sources only.
	Live bool `json:"live,omitempty"`

	// Retries and Delay switch static sources to polled resolution and
	// override the configured bounds for live ones. Delay is a Go
	// duration string such as "50ms".
	Retries int    `json:"retries,omitempty"`
	Delay   string `json:"delay,omitempty"`
}

// Match is one rendered result.
type Match struct {
	Kind    string `json:"kind"`
	Tag     string `json:"tag,omitempty"`
	Content string `json:"content"`
}

// Response is the outcome of a resolution. Zero matches is not an error.
type Response struct {
	Source     string           `json:"source"`
	SourceKind string           `json:"source_kind"`
	Selector   string           `json:"selector"`
	Mode       string           `json:"mode"`
	Format     string           `json:"format"`
	Count      int              `json:"count"`
	Matches    []Match          `json:"matches"`
	Verdict    *fetcher.Verdict `json:"verdict,omitempty"`
	ElapsedMS  int64            `json:"elapsed_ms"`
}

// CaptureRequest stores a page as a snapshot.
type CaptureRequest struct {
	Source string `json:"source"`
	Live   bool   `json:"live,omitempty"`
}

// ListRequest filters stored snapshots.
type ListRequest struct {
	URL   string `json:"url,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Service resolves selectors. It is safe for concurrent use.
type Service struct {
	cfg      *Config
	store    *snapshot.Store
	fetcher  *fetcher.Fetcher
	renderer *render.Renderer
	logger   *slog.Logger

	mu      sync.Mutex
	browser *livedom.Session
}

// Open opens the snapshot store at cfg.DBPath and builds a Service that
// owns it.
func Open(cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()
	store, err := snapshot.Open(cfg.DBPath, dbopen.WithBusyTimeout(5000))
	if err != nil {
		return nil, fmt.Errorf("probe: open: %w", err)
	}
	return New(cfg, store), nil
}

// New builds a Service over an open store.
func New(cfg *Config, store *snapshot.Store) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()
	return &Service{
		cfg:   cfg,
		store: store,
		fetcher: fetcher.New(
			fetcher.WithUserAgent(cfg.Fetch.UserAgent),
			fetcher.WithTimeout(cfg.Fetch.Timeout),
			fetcher.WithMaxBytes(cfg.Fetch.MaxBytes),
			fetcher.WithLogger(cfg.Logger),
		),
		renderer: render.New(),
		logger:   cfg.Logger,
	}
}

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.cfg }

// Close stops the browser, if one was started, and closes the store.
func (s *Service) Close() error {
	s.mu.Lock()
	b := s.browser
	s.browser = nil
	s.mu.Unlock()

	var errs []error
	if b != nil {
		errs = append(errs, b.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

// Resolve acquires req.Source and resolves req.Selector against it.
func (s *Service) Resolve(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	mode, format, opts, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	src, err := s.acquire(ctx, req.Source, req.Live)
	if err != nil {
		return nil, err
	}
	defer src.close()

	// A live tree is still being built by scripts: always poll it.
	if req.Live && len(opts) == 0 {
		opts = []shadowsel.Option{shadowsel.WithParams(s.cfg.Async)}
	}
	polled := len(opts) > 0
	opts = append(opts, shadowsel.WithLogger(s.logger))

	nodes, err := resolve(ctx, src.root, req.Selector, mode, polled, opts)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(nodes))
	for _, n := range nodes {
		content, err := s.renderer.Render(n, format, src.domain)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Kind: n.Kind().String(), Tag: tagOf(n), Content: content})
	}

	resp := &Response{
		Source:     req.Source,
		SourceKind: src.kind,
		Selector:   req.Selector,
		Mode:       mode,
		Format:     string(format),
		Count:      len(matches),
		Matches:    matches,
		ElapsedMS:  time.Since(start).Milliseconds(),
	}
	if src.kind == snapshot.SourceFetch && len(matches) == 0 {
		v, err := fetcher.Detect(src.raw, src.root.(*dom.Document))
		if err == nil && v.NeedsBrowser {
			resp.Verdict = &v
		}
	}
	s.logger.Debug("probe: resolved",
		"source_kind", src.kind, "mode", mode,
		"count", resp.Count, "elapsed_ms", resp.ElapsedMS)
	return resp, nil
}

func (s *Service) validate(req *Request) (string, render.Format, []shadowsel.Option, error) {
	if req == nil || strings.TrimSpace(req.Source) == "" {
		return "", "", nil, fmt.Errorf("%w: source is required", ErrBadRequest)
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeQuery
	}
	switch mode {
	case ModeQuery, ModeAll, ModeShadow, ModeDeep, ModeDeepAll:
	default:
		return "", "", nil, fmt.Errorf("%w: unknown mode %q", ErrBadRequest, req.Mode)
	}
	format, err := render.ParseFormat(req.Format)
	if err != nil {
		return "", "", nil, err
	}
	var opts []shadowsel.Option
	if req.Retries > 0 {
		opts = append(opts, shadowsel.WithRetries(req.Retries))
	}
	if req.Delay != "" {
		d, err := time.ParseDuration(req.Delay)
		if err != nil {
			return "", "", nil, fmt.Errorf("%w: delay: %v", ErrBadRequest, err)
		}
		opts = append(opts, shadowsel.WithDelay(d))
	}
	if len(opts) > 0 {
		opts = append([]shadowsel.Option{shadowsel.WithParams(s.cfg.Async)}, opts...)
	}
	return mode, format, opts, nil
}

// resolve dispatches on mode. polled selects the asynchronous entry points.
func resolve(ctx context.Context, root dom.Node, selector, mode string, polled bool, opts []shadowsel.Option) ([]dom.Node, error) {
	one := func(n dom.Node, err error) ([]dom.Node, error) {
		if err != nil || n == nil {
			return nil, err
		}
		return []dom.Node{n}, nil
	}
	list := func(l dom.NodeList, err error) ([]dom.Node, error) {
		return l, err
	}

	if !polled {
		switch mode {
		case ModeAll:
			return list(shadowsel.QuerySelectorAll(root, selector))
		case ModeShadow:
			return one(shadowsel.ShadowRootQuerySelector(root, selector))
		case ModeDeep:
			return one(shadowsel.DeepQuerySelector(root, selector))
		case ModeDeepAll:
			return list(shadowsel.DeepQuerySelectorAll(root, selector))
		default:
			return one(shadowsel.QuerySelector(root, selector))
		}
	}
	switch mode {
	case ModeAll:
		return list(shadowsel.AsyncQuerySelectorAll(root, selector, opts...).Await(ctx))
	case ModeShadow:
		return one(shadowsel.AsyncShadowRootQuerySelector(root, selector, opts...).Await(ctx))
	case ModeDeep:
		return one(shadowsel.AsyncDeepQuerySelector(root, selector, opts...).Await(ctx))
	case ModeDeepAll:
		return list(shadowsel.AsyncDeepQuerySelectorAll(root, selector, opts...).Await(ctx))
	default:
		return one(shadowsel.AsyncQuerySelector(root, selector, opts...).Await(ctx))
	}
}

func tagOf(n dom.Node) string {
	if t, ok := n.(interface{ TagName() string }); ok {
		return t.TagName()
	}
	return ""
}

// Capture acquires req.Source and stores it. Snapshot sources are rejected.
func (s *Service) Capture(ctx context.Context, req *CaptureRequest) (*snapshot.Snapshot, error) {
	if req == nil || strings.TrimSpace(req.Source) == "" {
		return nil, fmt.Errorf("%w: source is required", ErrBadRequest)
	}
	if strings.HasPrefix(req.Source, snapshot.IDPrefix) {
		return nil, fmt.Errorf("%w: %s is already a snapshot", ErrBadRequest, req.Source)
	}

	src, err := s.acquire(ctx, req.Source, req.Live)
	if err != nil {
		return nil, err
	}
	defer src.close()

	raw := src.raw
	if src.page != nil {
		if raw, err = src.page.Capture(ctx); err != nil {
			return nil, err
		}
	}
	snap := &snapshot.Snapshot{URL: src.url, Source: src.kind, HTML: raw}
	created, err := s.store.Save(ctx, snap)
	if err != nil {
		return nil, err
	}
	s.logger.Info("probe: captured",
		"id", snap.ID, "url", snap.URL, "source", snap.Source,
		"shadow_roots", snap.ShadowRoots, "created", created)
	snap.HTML = ""
	return snap, nil
}

// Snapshot returns a stored snapshot with its HTML.
func (s *Service) Snapshot(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("probe: %s: %w", id, ErrNotFound)
	}
	return snap, nil
}

// List returns stored snapshots, newest first, without their HTML.
func (s *Service) List(ctx context.Context, req *ListRequest) ([]*snapshot.Snapshot, error) {
	if req == nil {
		req = &ListRequest{}
	}
	return s.store.List(ctx, snapshot.ListOptions{URL: req.URL, Limit: req.Limit})
}

// Delete removes a snapshot.
func (s *Service) Delete(ctx context.Context, id string) error {
	id, err := checkID(id)
	if err != nil {
		return err
	}
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("probe: %s: %w", id, ErrNotFound)
	}
	return nil
}

func checkID(id string) (string, error) {
	id, err := idgen.Validate(snapshot.IDPrefix, id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return id, nil
}

// source is an acquired document.
type source struct {
	kind   string
	url    string
	domain string
	raw    string
	root   dom.Node
	page   *livedom.Page
}

func (src *source) close() {
	if src.page != nil {
		src.page.Close()
	}
}

func (s *Service) acquire(ctx context.Context, ref string, live bool) (*source, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, snapshot.IDPrefix):
		if live {
			return nil, fmt.Errorf("%w: live resolution needs a URL or file", ErrBadRequest)
		}
		snap, err := s.Snapshot(ctx, ref)
		if err != nil {
			return nil, err
		}
		doc, err := dom.ParseString(snap.HTML)
		if err != nil {
			return nil, fmt.Errorf("probe: %s: %w", ref, err)
		}
		return &source{kind: snapshot.SourceSnapshot, url: snap.URL, domain: domainOf(snap.URL), raw: snap.HTML, root: doc}, nil

	case strings.HasPrefix(ref, "<"):
		if live {
			return nil, fmt.Errorf("%w: live resolution needs a URL or file", ErrBadRequest)
		}
		doc, err := dom.ParseString(ref)
		if err != nil {
			return nil, fmt.Errorf("probe: inline: %w", err)
		}
		return &source{kind: snapshot.SourceInline, raw: ref, root: doc}, nil

	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		if live {
			return s.openLive(ctx, ref)
		}
		doc, res, err := s.fetcher.Document(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("probe: %w", err)
		}
		return &source{kind: snapshot.SourceFetch, url: ref, domain: domainOf(ref), raw: res.HTML, root: doc}, nil
	}

	path := ref
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		path = u.Path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	if live {
		return s.openLive(ctx, (&url.URL{Scheme: "file", Path: abs}).String())
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("probe: read source: %w", err)
	}
	doc, err := dom.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("probe: %s: %w", abs, err)
	}
	return &source{kind: snapshot.SourceFile, url: "file://" + abs, raw: string(data), root: doc}, nil
}

func (s *Service) openLive(ctx context.Context, pageURL string) (*source, error) {
	b, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	page, err := b.Open(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	return &source{kind: snapshot.SourceLive, url: pageURL, domain: domainOf(pageURL), root: page.Document(), page: page}, nil
}

// session starts the browser on first use. It outlives the request that
// started it.
func (s *Service) session(ctx context.Context) (*livedom.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser != nil {
		return s.browser, nil
	}
	cfg := s.cfg.Browser
	cfg.Logger = s.logger
	b, err := livedom.Start(context.WithoutCancel(ctx), cfg)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	s.browser = b
	return b, nil
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
