package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page opened on a URL with stealth and resource blocking
// applied.
type Tab struct {
	Page    *rod.Page
	PageURL string
}

// OpenTab creates a new tab and navigates it to pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b, err := mgr.Browser(ctx)
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		applyResourceBlocking(page, mgr.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL}, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
