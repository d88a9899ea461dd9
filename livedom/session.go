package livedom

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/shadowq/livedom/internal/browser"
)

// Config configures a browser session.
type Config struct {
	// RemoteURL attaches to a running Chrome (ws:// URL or host:port).
	// Empty launches a local one.
	RemoteURL string `yaml:"remote"`

	// Bin overrides the local Chrome binary.
	Bin string `yaml:"bin"`

	Headful bool `yaml:"headful"`
	Stealth bool `yaml:"stealth"`

	// ResourceBlocking lists resource types to block: images, fonts,
	// media, stylesheets.
	ResourceBlocking []string `yaml:"resource_blocking"`

	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`

	Logger *slog.Logger `yaml:"-"`
}

// Session is a running browser.
type Session struct {
	mgr *browser.Manager
}

// Start launches or attaches to Chrome.
func Start(ctx context.Context, cfg Config) (*Session, error) {
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.RemoteURL,
		Bin:              cfg.Bin,
		Headful:          cfg.Headful,
		Stealth:          cfg.Stealth,
		ResourceBlocking: cfg.ResourceBlocking,
		NavigateTimeout:  cfg.NavigateTimeout,
		RecycleInterval:  cfg.RecycleInterval,
		Logger:           cfg.Logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("livedom: start: %w", err)
	}
	return &Session{mgr: mgr}, nil
}

// Open navigates a new tab to url.
func (s *Session) Open(ctx context.Context, url string) (*Page, error) {
	tab, err := browser.OpenTab(ctx, s.mgr, url)
	if err != nil {
		return nil, fmt.Errorf("livedom: open: %w", err)
	}
	return &Page{tab: tab, doc: NewDocument(tab.Page)}, nil
}

// Close shuts the browser down.
func (s *Session) Close() error { return s.mgr.Close() }

// Page is an open tab.
type Page struct {
	tab *browser.Tab
	doc *Document
}

// URL returns the address the tab was opened on.
func (p *Page) URL() string { return p.tab.PageURL }

// Document returns the live document of the tab.
func (p *Page) Document() *Document { return p.doc }

// Capture serialises the tab with its open shadow roots.
func (p *Page) Capture(ctx context.Context) (string, error) {
	return Capture(ctx, p.doc)
}

// Close closes the tab.
func (p *Page) Close() error { return p.tab.Close() }
