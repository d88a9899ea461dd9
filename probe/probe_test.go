package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/shadowq/dbopen"
	"github.com/hazyhaar/shadowq/render"
	"github.com/hazyhaar/shadowq/shadowsel"
	"github.com/hazyhaar/shadowq/snapshot"
)

const shop = `<!DOCTYPE html><html><head><title>Shop</title></head><body>
<x-app>
  <template shadowrootmode="open">
    <nav><a href="/home">Home</a></nav>
    <x-cart>
      <template shadowrootmode="open"><span class="count">3</span><p>Your <b>cart</b></p></template>
    </x-cart>
  </template>
</x-app>
<p class="light">light text</p>
</body></html>`

func testService(t *testing.T) *Service {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(snapshot.Schema))
	return New(&Config{}, snapshot.New(db))
}

func writeFixture(t *testing.T, markup string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(p, []byte(markup), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestResolve_Modes(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	file := writeFixture(t, shop)

	tests := []struct {
		name     string
		req      Request
		count    int
		kind     string
		contains string
	}{
		{"query path", Request{Selector: "x-app$ x-cart$ .count", Format: "text"}, 1, "element", "3"},
		{"all light", Request{Selector: "p", Mode: ModeAll}, 1, "element", "light text"},
		{"shadow root", Request{Selector: "x-app$ x-cart$", Mode: ModeShadow, Format: "text"}, 1, "shadowRoot", "Your cart"},
		{"deep", Request{Selector: ".count", Mode: ModeDeep, Format: "text"}, 1, "element", "3"},
		{"deep all stops at first tree", Request{Selector: "a, p", Mode: ModeDeepAll}, 1, "element", "light text"},
		{"deep into nested root", Request{Selector: "b", Mode: ModeDeepAll, Format: "text"}, 1, "element", "cart"},
		{"alternatives", Request{Selector: "x-app$ .missing, x-app$ nav a", Format: "markdown"}, 1, "element", "[Home](/home)"},
		{"no match", Request{Selector: "x-app$ .missing"}, 0, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.Source = file
			resp, err := s.Resolve(ctx, &req)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if resp.Count != tt.count {
				t.Fatalf("count: got %d, want %d", resp.Count, tt.count)
			}
			if resp.SourceKind != snapshot.SourceFile {
				t.Errorf("source kind: got %q", resp.SourceKind)
			}
			if tt.count == 0 {
				return
			}
			m := resp.Matches[0]
			if m.Kind != tt.kind {
				t.Errorf("kind: got %q, want %q", m.Kind, tt.kind)
			}
			if !strings.Contains(m.Content, tt.contains) {
				t.Errorf("content: got %q, want it to contain %q", m.Content, tt.contains)
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"no source", Request{Selector: "p"}, ErrBadRequest},
		{"bad mode", Request{Source: "<p></p>", Selector: "p", Mode: "sideways"}, ErrBadRequest},
		{"bad format", Request{Source: "<p></p>", Selector: "p", Format: "pdf"}, render.ErrUnknownFormat},
		{"bad delay", Request{Source: "<p></p>", Selector: "p", Delay: "soon"}, ErrBadRequest},
		{"trailing $", Request{Source: "<p></p>", Selector: "p$"}, shadowsel.ErrSyntax},
		{"shadow of document", Request{Source: "<p></p>", Selector: "$ p"}, shadowsel.ErrShadowRootOfDocument},
		{"bad css", Request{Source: "<p></p>", Selector: "p["}, shadowsel.ErrSyntax},
		{"unknown snapshot", Request{Source: snapshot.IDPrefix + "0192f3b4-1c2d-7e3f-8a4b-5c6d7e8f9a0b", Selector: "p"}, ErrNotFound},
		{"malformed snapshot id", Request{Source: "snap_nope", Selector: "p"}, ErrBadRequest},
		{"live inline", Request{Source: "<p></p>", Selector: "p", Live: true}, ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Resolve(ctx, &tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResolve_Polled(t *testing.T) {
	s := testService(t)
	start := time.Now()
	resp, err := s.Resolve(context.Background(), &Request{
		Source:   shop,
		Selector: "x-app$ .never",
		Retries:  3,
		Delay:    "20ms",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("count: got %d, want 0", resp.Count)
	}
	if el := time.Since(start); el < 40*time.Millisecond {
		t.Fatalf("polled resolution returned after %v, want at least 40ms", el)
	}
	if resp.SourceKind != snapshot.SourceInline {
		t.Errorf("source kind: got %q", resp.SourceKind)
	}
}

func TestResolve_FetchVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>Catalogue</p><x-product-list></x-product-list></body></html>`))
	}))
	defer srv.Close()

	s := testService(t)
	resp, err := s.Resolve(context.Background(), &Request{Source: srv.URL, Selector: "x-product-list$ li", Mode: ModeAll})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("count: got %d, want 0", resp.Count)
	}
	if resp.Verdict == nil || !resp.Verdict.NeedsBrowser {
		t.Fatalf("verdict: got %+v, want needs_browser", resp.Verdict)
	}
	if len(resp.Verdict.Pending) != 1 || resp.Verdict.Pending[0] != "x-product-list" {
		t.Errorf("pending: got %v", resp.Verdict.Pending)
	}
}

func TestCaptureListDelete(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	file := writeFixture(t, shop)

	snap, err := s.Capture(ctx, &CaptureRequest{Source: file})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !strings.HasPrefix(snap.ID, snapshot.IDPrefix) {
		t.Fatalf("id: got %q", snap.ID)
	}
	if snap.ShadowRoots != 2 || snap.Title != "Shop" {
		t.Errorf("snapshot: got %+v", snap)
	}

	again, err := s.Capture(ctx, &CaptureRequest{Source: file})
	if err != nil {
		t.Fatalf("capture again: %v", err)
	}
	if again.ID != snap.ID {
		t.Errorf("dedup: got %q, want %q", again.ID, snap.ID)
	}

	resp, err := s.Resolve(ctx, &Request{Source: snap.ID, Selector: "x-app$ x-cart$ .count", Format: "text"})
	if err != nil {
		t.Fatalf("resolve snapshot: %v", err)
	}
	if resp.Count != 1 || resp.Matches[0].Content != "3" || resp.SourceKind != snapshot.SourceSnapshot {
		t.Fatalf("resolve snapshot: got %+v", resp)
	}

	items, err := s.List(ctx, &ListRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("list: got %d, want 1", len(items))
	}

	if _, err := s.Capture(ctx, &CaptureRequest{Source: snap.ID}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("capture snapshot: got %v, want ErrBadRequest", err)
	}

	if err := s.Delete(ctx, snap.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, snap.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete twice: got %v, want ErrNotFound", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "shadowq.yaml")
	yml := `db_path: /tmp/x.db
async:
  retries: 4
  delay: 25ms
browser:
  remote: ws://127.0.0.1:9222
  stealth: true
fetch:
  user_agent: probe-test
`
	if err := os.WriteFile(p, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/x.db" {
		t.Errorf("DBPath: got %q", cfg.DBPath)
	}
	if cfg.Async.Retries != 4 || cfg.Async.Delay != 25*time.Millisecond {
		t.Errorf("Async: got %+v", cfg.Async)
	}
	if cfg.Browser.RemoteURL != "ws://127.0.0.1:9222" || !cfg.Browser.Stealth {
		t.Errorf("Browser: got %+v", cfg.Browser)
	}
	if cfg.Fetch.UserAgent != "probe-test" {
		t.Errorf("UserAgent: got %q", cfg.Fetch.UserAgent)
	}

	// Defaults.
	if cfg.Listen != ":8088" {
		t.Errorf("Listen: got %q, want :8088", cfg.Listen)
	}
	if cfg.Fetch.Timeout != 30*time.Second || cfg.Fetch.MaxBytes != 10<<20 {
		t.Errorf("Fetch defaults: got %+v", cfg.Fetch)
	}
	if cfg.RequestTimeout != 2*time.Minute {
		t.Errorf("RequestTimeout: got %v", cfg.RequestTimeout)
	}
	if cfg.Logger == nil {
		t.Error("Logger: got nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Async != shadowsel.DefaultAsyncParams() {
		t.Errorf("Async: got %+v, want %+v", cfg.Async, shadowsel.DefaultAsyncParams())
	}
	if cfg.DBPath != "shadowq.db" {
		t.Errorf("DBPath: got %q", cfg.DBPath)
	}
}
