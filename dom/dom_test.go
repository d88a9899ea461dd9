package dom

import (
	"errors"
	"strings"
	"testing"
)

const fixture = `<!DOCTYPE html><html><head><title> Shadow fixture </title></head><body>
<section id="s1">
  <template shadowrootmode="open">
    <ul><li>List item 1</li><li>List item 2</li></ul>
    <x-inner><template shadowrootmode="open"><p class="deep">deep text</p></template></x-inner>
  </template>
  <div>light</div>
</section>
<aside><template shadowrootmode="closed"><p>hidden</p></template></aside>
<template id="inert"><li>not in tree</li></template>
</body></html>`

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := ParseString(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func mustQuery(t *testing.T, n Node, sel string) Node {
	t.Helper()
	got, err := n.QuerySelector(sel)
	if err != nil {
		t.Fatalf("query %q: %v", sel, err)
	}
	if got == nil {
		t.Fatalf("query %q: no match", sel)
	}
	return got
}

func TestParse_DeclarativeShadowRoots(t *testing.T) {
	d := mustParse(t, fixture)

	section := mustQuery(t, d, "section")
	sr, err := section.ShadowRoot()
	if err != nil || sr == nil {
		t.Fatalf("section shadow root: got %v, %v", sr, err)
	}
	if sr.Kind() != KindShadowRoot {
		t.Fatalf("kind: got %v, want shadowRoot", sr.Kind())
	}

	// Shadow content is not part of the light tree.
	if li, _ := d.QuerySelector("li"); li != nil {
		t.Fatalf("light query reached shadow tree: %v", li)
	}

	items, err := sr.QuerySelectorAll("li")
	if err != nil {
		t.Fatalf("query li: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
	if txt, _ := items[1].Text(); txt != "List item 2" {
		t.Fatalf("item text: got %q", txt)
	}

	inner := mustQuery(t, sr, "x-inner")
	innerRoot, _ := inner.ShadowRoot()
	if innerRoot == nil {
		t.Fatal("nested declarative template not adopted")
	}
	mustQuery(t, innerRoot, "p.deep")
}

func TestShadowRoot_ClosedIsHidden(t *testing.T) {
	d := mustParse(t, fixture)
	aside := mustQuery(t, d, "aside")
	sr, err := aside.ShadowRoot()
	if err != nil {
		t.Fatalf("shadow root: %v", err)
	}
	if sr != nil {
		t.Fatal("closed shadow root exposed")
	}
	if n := len(d.ShadowRoots()); n != 3 {
		t.Fatalf("registry: got %d roots, want 3", n)
	}
}

func TestQuery_InertTemplateSkipped(t *testing.T) {
	d := mustParse(t, fixture)
	mustQuery(t, d, "template#inert")
	if li, _ := d.QuerySelector("#inert li"); li != nil {
		t.Fatal("query matched inert template content")
	}
}

func TestQuery_HostScope(t *testing.T) {
	d := mustParse(t, fixture)
	sr, _ := mustQuery(t, d, "section").ShadowRoot()

	tests := []struct {
		sel  string
		want int
	}{
		{":host > ul > li", 2},
		{":host li", 2},
		{":host > li", 0},
		{":host ul, :host x-inner", 2},
		{":host", 0},
		{":host > ul li", 2},
		{":host > ul + x-inner", 1},
		{":host > x-inner li", 0},
		{":host ~ li", 0},
		{"ul > li, :host > x-inner", 3},
	}
	for _, tt := range tests {
		got, err := sr.QuerySelectorAll(tt.sel)
		if err != nil {
			t.Errorf("%q: %v", tt.sel, err)
			continue
		}
		if len(got) != tt.want {
			t.Errorf("%q: got %d, want %d", tt.sel, len(got), tt.want)
		}
	}
}

func TestQuery_ShadowRootIsNotAnElement(t *testing.T) {
	d := mustParse(t, `<x-host><template shadowrootmode="open"><li>top</li><ul><li>nested</li></ul></template></x-host>`)
	sr, _ := mustQuery(t, d, "x-host").ShadowRoot()

	tests := []struct {
		sel  string
		want int
	}{
		{"li", 2},
		{"* > li", 1},
		{":not(ul) > li", 0},
		{"ul > li", 1},
		{"* li", 1},
		{"[data-shadowq-shadow-root] li", 0},
		{":host > li", 1},
	}
	for _, tt := range tests {
		got, err := sr.QuerySelectorAll(tt.sel)
		if err != nil {
			t.Errorf("%q: %v", tt.sel, err)
			continue
		}
		if len(got) != tt.want {
			t.Errorf("%q: got %d, want %d", tt.sel, len(got), tt.want)
		}
	}

	first, err := sr.QuerySelector("* > li")
	if err != nil {
		t.Fatal(err)
	}
	if text, _ := first.Text(); text != "nested" {
		t.Fatalf("* > li: got %q, want nested", text)
	}
}

func TestDescendantShadowRoots(t *testing.T) {
	d := mustParse(t, fixture)
	section := mustQuery(t, d, "section")
	sr, _ := section.ShadowRoot()

	tests := []struct {
		name string
		n    ShadowLister
		want int
	}{
		{"document skips closed aside", d, 1},
		{"host excludes its own root", section.(Element), 0},
		{"shadow root lists nested host", sr.(*ShadowRoot), 1},
	}
	for _, tt := range tests {
		got, err := tt.n.DescendantShadowRoots()
		if err != nil || len(got) != tt.want {
			t.Errorf("%s: got %d, %v, want %d", tt.name, len(got), err, tt.want)
		}
	}
}

func TestQuery_InvalidSelector(t *testing.T) {
	d := mustParse(t, fixture)
	for _, sel := range []string{"", "   ", "div[", "a >"} {
		if _, err := d.QuerySelector(sel); !errors.Is(err, ErrInvalidSelector) {
			t.Errorf("%q: got %v, want ErrInvalidSelector", sel, err)
		}
	}

	sr, _ := mustQuery(t, d, "section").ShadowRoot()
	for _, sel := range []string{":host >", ":host > > li", ":host ~ div[", "li,", ":hostile li"} {
		if _, err := sr.QuerySelectorAll(sel); !errors.Is(err, ErrInvalidSelector) {
			t.Errorf("shadow %q: got %v, want ErrInvalidSelector", sel, err)
		}
	}
}

func TestElement_Identity(t *testing.T) {
	d := mustParse(t, fixture)
	a := mustQuery(t, d, "#s1")
	b := mustQuery(t, d, "section")
	if a != b {
		t.Fatal("same element compared unequal")
	}
	c := mustQuery(t, d, "div")
	if a == c {
		t.Fatal("different elements compared equal")
	}
}

func TestAttachShadow(t *testing.T) {
	d := mustParse(t, `<body><div id="host"></div></body>`)
	host := mustQuery(t, d, "#host").(Element)

	sr, err := d.AttachShadow(host, ShadowOpen)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := d.AttachShadow(host, ShadowOpen); !errors.Is(err, ErrShadowAttached) {
		t.Fatalf("second attach: got %v, want ErrShadowAttached", err)
	}
	if err := d.AppendHTML(sr, `<span>a</span><span>b</span>`); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, _ := host.ShadowRoot()
	if got != Node(sr) {
		t.Fatal("host does not expose attached root")
	}
	spans, _ := sr.QuerySelectorAll(":host > span")
	if len(spans) != 2 {
		t.Fatalf("spans: got %d, want 2", len(spans))
	}
	if sr.Host() != host {
		t.Fatal("host mismatch")
	}
}

func TestAppendHTML_DeclarativeAndRemove(t *testing.T) {
	d := NewDocument()
	if err := d.AppendHTML(d, `<my-card><template shadowrootmode="open"><b>x</b></template></my-card>`); err != nil {
		t.Fatalf("append: %v", err)
	}
	card := mustQuery(t, d, "my-card").(Element)
	sr, _ := card.ShadowRoot()
	if sr == nil {
		t.Fatal("declarative template not adopted on append")
	}
	if err := d.Remove(card); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if n, _ := d.QuerySelector("my-card"); n != nil {
		t.Fatal("removed element still reachable")
	}
	if n := len(d.ShadowRoots()); n != 0 {
		t.Fatalf("registry: got %d roots, want 0", n)
	}
}

func TestSetInnerHTMLAndAttribute(t *testing.T) {
	d := mustParse(t, `<body><ul id="l"><li>old</li></ul></body>`)
	ul := mustQuery(t, d, "#l").(Element)
	if err := d.SetInnerHTML(ul, `<li>a</li><li>b</li>`); err != nil {
		t.Fatalf("set inner: %v", err)
	}
	items, _ := ul.QuerySelectorAll("li")
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
	if err := d.SetAttribute(ul, "data-state", "ready"); err != nil {
		t.Fatalf("set attr: %v", err)
	}
	mustQuery(t, d, `ul[data-state="ready"]`)
}

func TestHTML_RoundTrip(t *testing.T) {
	d := mustParse(t, fixture)
	out, err := d.HTML()
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if !strings.Contains(out, `<template shadowrootmode="open">`) {
		t.Fatalf("shadow root not serialised: %s", out)
	}
	again := mustParse(t, out)
	if got, want := len(again.ShadowRoots()), len(d.ShadowRoots()); got != want {
		t.Fatalf("round trip roots: got %d, want %d", got, want)
	}
	if got := again.Title(); got != "Shadow fixture" {
		t.Fatalf("title: got %q", got)
	}
}

func TestForeignNode(t *testing.T) {
	a := mustParse(t, `<body><p></p></body>`)
	b := mustParse(t, `<body><p></p></body>`)
	p := mustQuery(t, b, "p").(Element)
	if _, err := a.AttachShadow(p, ShadowOpen); !errors.Is(err, ErrForeignNode) {
		t.Fatalf("got %v, want ErrForeignNode", err)
	}
	var zero Element
	if _, err := zero.QuerySelector("p"); !errors.Is(err, ErrForeignNode) {
		t.Fatalf("zero element: got %v", err)
	}
}
