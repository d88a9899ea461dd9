package livedom

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/shadowsel"
)

// fixtureHTML attaches its shadow roots from a script after a delay, like a
// custom element upgrading late.
const fixtureHTML = `<!DOCTYPE html><html><body>
<x-list></x-list>
<script>
setTimeout(() => {
	const host = document.querySelector('x-list');
	const root = host.attachShadow({ mode: 'open' });
	root.innerHTML = '<ul><li>one</li><li>two</li></ul><x-leaf></x-leaf>';
	const leaf = root.querySelector('x-leaf').attachShadow({ mode: 'open' });
	leaf.innerHTML = '<b>leaf</b>';
	document.body.appendChild(document.createElement('x-closed')).attachShadow({ mode: 'closed' }).innerHTML = '<i>hidden</i>';
}, 50);
</script>
</body></html>`

// startSession launches Chrome only when SHADOWQ_CHROME is set; it holds a
// binary path, or "remote=<url>" for an existing instance.
func startSession(t *testing.T) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test in short mode")
	}
	env := os.Getenv("SHADOWQ_CHROME")
	if env == "" {
		t.Skip("SHADOWQ_CHROME not set")
	}
	cfg := Config{}
	if remote, ok := strings.CutPrefix(env, "remote="); ok {
		cfg.RemoteURL = remote
	} else if env != "1" {
		cfg.Bin = env
	}
	s, err := Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func openFixture(t *testing.T, s *Session) *Page {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/fixture.html"
	if err := os.WriteFile(path, []byte(fixtureHTML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	p, err := s.Open(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestLive_AsyncResolution(t *testing.T) {
	s := startSession(t)
	p := openFixture(t, s)
	doc := p.Document()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := shadowsel.AsyncQuerySelector(doc, "x-list$ x-leaf$ b",
		shadowsel.WithRetries(100), shadowsel.WithDelay(10*time.Millisecond)).Await(ctx)
	if err != nil || n == nil {
		t.Fatalf("async query: got %v, %v", n, err)
	}
	if txt, _ := n.Text(); txt != "leaf" {
		t.Fatalf("text: got %q", txt)
	}

	items, err := shadowsel.QuerySelectorAll(doc, "x-list$ li")
	if err != nil || len(items) != 2 {
		t.Fatalf("all: got %d, %v", len(items), err)
	}

	closed, err := shadowsel.QuerySelector(doc, "x-closed$ i")
	if err != nil || closed != nil {
		t.Fatalf("closed root: got %v, %v", closed, err)
	}

	a, _ := shadowsel.QuerySelector(doc, "x-list$ li")
	b, _ := shadowsel.DeepQuerySelector(doc, "li")
	if !SameNode(a, b) {
		t.Fatal("path and deep search disagree")
	}

	roots, err := doc.DescendantShadowRoots()
	if err != nil || len(roots) != 1 {
		t.Fatalf("document shadow roots: got %d, %v, want x-list only", len(roots), err)
	}
	nested, err := roots[0].(*ShadowRoot).DescendantShadowRoots()
	if err != nil || len(nested) != 1 {
		t.Fatalf("nested shadow roots: got %d, %v, want x-leaf", len(nested), err)
	}
	if txt, _ := nested[0].Text(); txt != "leaf" {
		t.Fatalf("nested root text: got %q", txt)
	}

	if _, err := doc.QuerySelector("li["); !errors.Is(err, dom.ErrInvalidSelector) {
		t.Fatalf("invalid selector: got %v", err)
	}
}

func TestLive_CaptureRoundTrip(t *testing.T) {
	s := startSession(t)
	p := openFixture(t, s)
	ctx := context.Background()

	if _, err := shadowsel.AsyncQuerySelector(p.Document(), "x-list$ x-leaf$ b",
		shadowsel.WithRetries(100)).Await(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	markup, err := p.Capture(ctx)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("parse capture: %v", err)
	}
	n, err := shadowsel.QuerySelector(doc, "x-list$ x-leaf$ b")
	if err != nil || n == nil {
		t.Fatalf("offline query: got %v, %v\n%s", n, err, markup)
	}
}

func TestClassify(t *testing.T) {
	err := classify("a[", errors.New(`eval: SyntaxError: Failed to execute 'querySelectorAll' on 'Document': 'a[' is not a valid selector.`))
	if !errors.Is(err, dom.ErrInvalidSelector) {
		t.Fatalf("syntax: got %v", err)
	}
	other := errors.New("websocket closed")
	if err := classify("a", other); errors.Is(err, dom.ErrInvalidSelector) || !errors.Is(err, other) {
		t.Fatalf("other: got %v", err)
	}
}
