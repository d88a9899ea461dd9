package traverse

import (
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/shadowsel/internal/path"
	"github.com/hazyhaar/shadowq/shadowsel/internal/poll"
)

const page = `<body>
<section id="outer">
  <template shadowrootmode="open">
    <ul><li>one</li><li>two</li></ul>
    <x-card><template shadowrootmode="open"><p>card</p></template></x-card>
  </template>
</section>
<div class="plain"><li>light</li></div>
</body>`

func parse(t *testing.T, s string) *dom.Document {
	t.Helper()
	d, err := dom.ParseString(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func alts(t *testing.T, sel string) path.Alternatives {
	t.Helper()
	a, err := path.Parse(sel)
	if err != nil {
		t.Fatalf("parse %q: %v", sel, err)
	}
	return a
}

func text(t *testing.T, n dom.Node) string {
	t.Helper()
	if n == nil {
		t.Fatal("nil node")
	}
	s, err := n.Text()
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	return s
}

func TestElement_AcrossBoundaries(t *testing.T) {
	d := parse(t, page)

	tests := []struct{ sel, want string }{
		{"section$ li", "one"},
		{"section$ > ul > li:nth-child(2)", "two"},
		{"section$ x-card$ p", "card"},
		{"div.plain li", "light"},
		{"nope$ li, section$ li", "one"},
	}
	for _, tt := range tests {
		n, err := Element(alts(t, tt.sel), d)
		if err != nil {
			t.Errorf("%q: %v", tt.sel, err)
			continue
		}
		if got := text(t, n); got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.sel, got, tt.want)
		}
	}
}

func TestElement_MissIsNil(t *testing.T) {
	d := parse(t, page)
	for _, sel := range []string{"nope", "section$ nope", "div.plain$ li", "section$ ul$ li"} {
		n, err := Element(alts(t, sel), d)
		if err != nil || n != nil {
			t.Errorf("%q: got %v, %v, want nil", sel, n, err)
		}
	}
}

func TestAll(t *testing.T) {
	d := parse(t, page)
	l, err := All(alts(t, "section$ li"), d)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(l) != 2 {
		t.Fatalf("all: got %d, want 2", len(l))
	}
	empty, err := All(alts(t, "section$ nope"), d)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("all miss: got %#v, %v, want empty list", empty, err)
	}
}

func TestShadowRoot(t *testing.T) {
	d := parse(t, page)
	sr, err := ShadowRoot(alts(t, "section$"), d)
	if err != nil || sr == nil || sr.Kind() != dom.KindShadowRoot {
		t.Fatalf("section$: got %v, %v", sr, err)
	}
	section, _ := d.QuerySelector("section")
	native, _ := section.ShadowRoot()
	if sr != native {
		t.Fatal("shadow root differs from native")
	}

	own, err := ShadowRoot(alts(t, "$"), section)
	if err != nil || own != native {
		t.Fatalf("$ on element: got %v, %v", own, err)
	}

	nested, err := ShadowRoot(alts(t, "section$ x-card$"), d)
	if err != nil || nested == nil {
		t.Fatalf("nested: got %v, %v", nested, err)
	}
}

func TestStartInShadowRoot(t *testing.T) {
	d := parse(t, page)
	section, _ := d.QuerySelector("section")
	n, err := Element(alts(t, "$ li"), section)
	if err != nil {
		t.Fatalf("element: %v", err)
	}
	if got := text(t, n); got != "one" {
		t.Fatalf("got %q, want one", got)
	}

	sr, _ := section.ShadowRoot()
	n, err = Element(alts(t, "x-card$ p"), sr)
	if err != nil || text(t, n) != "card" {
		t.Fatalf("from shadow root: got %v, %v", n, err)
	}
}

func TestCheckRoot(t *testing.T) {
	d := parse(t, page)
	section, _ := d.QuerySelector("section")
	sr, _ := section.ShadowRoot()

	if _, err := Element(alts(t, "$ li"), d); !errors.Is(err, ErrShadowRootOfDocument) {
		t.Fatalf("document: got %v", err)
	}
	if _, err := ShadowRoot(alts(t, "$"), sr); !errors.Is(err, ErrShadowRootOfShadowRoot) {
		t.Fatalf("shadow root: got %v", err)
	}
	// A later bad alternative fails even though the first would match.
	if _, err := Element(alts(t, "section$ li, $ li"), d); !errors.Is(err, ErrShadowRootOfDocument) {
		t.Fatalf("alternatives: got %v", err)
	}
}

func TestPolled_PicksUpLateShadowRoot(t *testing.T) {
	d := parse(t, `<body><x-late></x-late></body>`)
	host, _ := d.QuerySelector("x-late")

	go func() {
		time.Sleep(20 * time.Millisecond)
		sr, err := d.AttachShadow(host.(dom.Element), dom.ShadowOpen)
		if err != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
		d.AppendHTML(sr, `<b>late</b>`)
	}()

	n, err := AsyncElement(alts(t, "x-late$ b"), d, poll.Params{Retries: 50, Delay: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("async: %v", err)
	}
	if got := text(t, n); got != "late" {
		t.Fatalf("got %q, want late", got)
	}
}

func TestPolled_Exhausted(t *testing.T) {
	d := parse(t, page)
	start := time.Now()
	n, err := AsyncElement(alts(t, "section$ nope"), d, poll.Params{Retries: 3, Delay: 10 * time.Millisecond})
	if err != nil || n != nil {
		t.Fatalf("got %v, %v, want nil", n, err)
	}
	if el := time.Since(start); el < 20*time.Millisecond {
		t.Fatalf("elapsed %v, want >= 20ms", el)
	}
	l, err := AsyncAll(alts(t, "nope"), d, poll.Params{Retries: 2})
	if err != nil || len(l) != 0 || l == nil {
		t.Fatalf("async all: got %#v, %v", l, err)
	}
	sr, err := AsyncShadowRoot(alts(t, "div.plain$"), d, poll.Params{Retries: 2})
	if err != nil || sr != nil {
		t.Fatalf("async shadow: got %v, %v", sr, err)
	}
}
