// CLAUDE:SUMMARY Chrome lifecycle for live resolution: launch locally or attach to a remote instance, recycle on age, close.
// Package browser owns the Chrome process behind livedom: start it through
// Rod's launcher or connect to a remote DevTools endpoint, hand out the Rod
// browser, and recycle it when it gets old.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Bin is the Chrome binary for local launches. Empty lets the launcher
	// find or download one.
	Bin string

	// Headful shows the browser window on local launches.
	Headful bool

	// Stealth opens tabs through go-rod/stealth.
	Stealth bool

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// RecycleInterval is the maximum lifetime of a Chrome process. Default: 1h.
	RecycleInterval time.Duration

	// NavigateTimeout bounds navigation in OpenTab. Default: 30s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = time.Hour
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages Chrome lifecycle.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance).
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	b, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.browser = b
	m.startAt = time.Now()
	return b, nil
}

// Browser returns the current Rod browser handle, recycling it first when
// it outlived RecycleInterval. Local launches only: a remote browser is
// never recycled.
func (m *Manager) Browser(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser == nil {
		return nil, fmt.Errorf("browser: not started")
	}
	if m.cfg.RemoteURL == "" && time.Since(m.startAt) > m.cfg.RecycleInterval {
		if err := m.recycleLocked(ctx); err != nil {
			return nil, err
		}
	}
	return m.browser, nil
}

// Close shuts down Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanup()
	return nil
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		u, err := launcher.ResolveURL(m.cfg.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("browser: resolve remote: %w", err)
		}
		wsURL = u
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(!m.cfg.Headful)
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		// Anti-detection flags.
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "stealth", m.cfg.Stealth)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return b, nil
}

func (m *Manager) recycleLocked(ctx context.Context) error {
	log := m.cfg.Logger
	log.Info("browser: recycling", "uptime", time.Since(m.startAt))

	m.cleanup()
	b, err := m.launch(ctx)
	if err != nil {
		return fmt.Errorf("browser: relaunch: %w", err)
	}
	m.browser = b
	m.startAt = time.Now()
	return nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.cfg.Logger.Debug("browser: close", "error", err)
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
}
