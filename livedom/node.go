// CLAUDE:SUMMARY dom.Node over a live Rod page: documents, elements and open shadow roots backed by CDP remote objects.
// Package livedom implements dom.Node over a page in a real Chrome driven
// by go-rod, so the shadowsel engine can resolve selectors against live
// custom elements that attach their shadow roots asynchronously.
//
// Unlike the in-memory tree, two lookups of the same element return
// distinct handles; use SameNode to compare them.
package livedom

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/shadowq/dom"
)

// Document is the document of a Rod page.
type Document struct {
	page *rod.Page
}

// NewDocument wraps page. Lookups use the page's context.
func NewDocument(page *rod.Page) *Document { return &Document{page: page} }

// Page returns the underlying Rod page.
func (d *Document) Page() *rod.Page { return d.page }

func (d *Document) Kind() dom.Kind { return dom.KindDocument }

func (d *Document) QuerySelector(selector string) (dom.Node, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, classify(selector, err)
	}
	return first(els), nil
}

func (d *Document) QuerySelectorAll(selector string) (dom.NodeList, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, classify(selector, err)
	}
	return wrapAll(els), nil
}

func (d *Document) ShadowRoot() (dom.Node, error) { return nil, nil }

// DescendantShadowRoots finds every open shadow root of the light tree with
// one script evaluation plus one lookup per host.
func (d *Document) DescendantShadowRoots() (dom.NodeList, error) {
	hosts, err := d.page.ElementsByJS(rod.Eval(`() => Array.from(document.querySelectorAll('*')).filter(el => el.shadowRoot)`))
	if err != nil {
		return nil, fmt.Errorf("livedom: shadow hosts: %w", err)
	}
	return openShadowRoots(hosts)
}

func (d *Document) HTML() (string, error) {
	s, err := d.page.HTML()
	if err != nil {
		return "", fmt.Errorf("livedom: document html: %w", err)
	}
	return s, nil
}

func (d *Document) Text() (string, error) {
	res, err := d.page.Eval(`() => document.documentElement.textContent`)
	if err != nil {
		return "", fmt.Errorf("livedom: document text: %w", err)
	}
	return res.Value.Str(), nil
}

// Element is a live element.
type Element struct {
	el *rod.Element
}

// Rod returns the underlying Rod element.
func (e *Element) Rod() *rod.Element { return e.el }

func (e *Element) Kind() dom.Kind { return dom.KindElement }

func (e *Element) QuerySelector(selector string) (dom.Node, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, classify(selector, err)
	}
	return first(els), nil
}

func (e *Element) QuerySelectorAll(selector string) (dom.NodeList, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, classify(selector, err)
	}
	return wrapAll(els), nil
}

// ShadowRoot returns the open shadow root of e, or nil. Closed roots are
// visible to CDP but reported as absent, as element.shadowRoot does.
func (e *Element) ShadowRoot() (dom.Node, error) {
	node, err := e.el.Describe(1, false)
	if err != nil {
		return nil, fmt.Errorf("livedom: describe: %w", err)
	}
	if len(node.ShadowRoots) == 0 || node.ShadowRoots[0].ShadowRootType == proto.DOMShadowRootTypeClosed {
		return nil, nil
	}
	sr, err := e.el.ShadowRoot()
	if err != nil {
		return nil, fmt.Errorf("livedom: shadow root: %w", err)
	}
	return &ShadowRoot{root: sr, host: e}, nil
}

// DescendantShadowRoots lists the open shadow roots hosted below e.
func (e *Element) DescendantShadowRoots() (dom.NodeList, error) {
	return hostedBy(e.el)
}

func (e *Element) HTML() (string, error) {
	s, err := e.el.HTML()
	if err != nil {
		return "", fmt.Errorf("livedom: element html: %w", err)
	}
	return s, nil
}

func (e *Element) Text() (string, error) { return textContent(e.el) }

// ShadowRoot is an open shadow root of a live element.
type ShadowRoot struct {
	root *rod.Element
	host *Element
}

// Host returns the element the shadow root is attached to.
func (s *ShadowRoot) Host() *Element { return s.host }

func (s *ShadowRoot) Kind() dom.Kind { return dom.KindShadowRoot }

func (s *ShadowRoot) QuerySelector(selector string) (dom.Node, error) {
	els, err := s.root.Elements(selector)
	if err != nil {
		return nil, classify(selector, err)
	}
	return first(els), nil
}

func (s *ShadowRoot) QuerySelectorAll(selector string) (dom.NodeList, error) {
	els, err := s.root.Elements(selector)
	if err != nil {
		return nil, classify(selector, err)
	}
	return wrapAll(els), nil
}

func (s *ShadowRoot) ShadowRoot() (dom.Node, error) { return nil, nil }

// DescendantShadowRoots lists the open shadow roots hosted inside s.
func (s *ShadowRoot) DescendantShadowRoots() (dom.NodeList, error) {
	return hostedBy(s.root)
}

func (s *ShadowRoot) HTML() (string, error) {
	res, err := s.root.Eval(`() => this.innerHTML`)
	if err != nil {
		return "", fmt.Errorf("livedom: shadow root html: %w", err)
	}
	return res.Value.Str(), nil
}

func (s *ShadowRoot) Text() (string, error) { return textContent(s.root) }

// SameNode reports whether a and b are handles on the same live node.
func SameNode(a, b dom.Node) bool {
	ra, rb := rodOf(a), rodOf(b)
	if ra == nil || rb == nil {
		return a == b
	}
	da, err := ra.Describe(0, false)
	if err != nil {
		return false
	}
	db, err := rb.Describe(0, false)
	if err != nil {
		return false
	}
	return da.BackendNodeID == db.BackendNodeID
}

func rodOf(n dom.Node) *rod.Element {
	switch v := n.(type) {
	case *Element:
		return v.el
	case *ShadowRoot:
		return v.root
	}
	return nil
}

// hostedBy returns the open shadow roots of the descendants of scope, an
// element or a shadow root. element.shadowRoot is null for closed roots, so
// they are skipped by the script itself.
func hostedBy(scope *rod.Element) (dom.NodeList, error) {
	hosts, err := scope.ElementsByJS(rod.Eval(`() => Array.from(this.querySelectorAll('*')).filter(el => el.shadowRoot)`))
	if err != nil {
		return nil, fmt.Errorf("livedom: shadow hosts: %w", err)
	}
	return openShadowRoots(hosts)
}

func openShadowRoots(hosts rod.Elements) (dom.NodeList, error) {
	out := make(dom.NodeList, 0, len(hosts))
	for _, h := range hosts {
		sr, err := h.ShadowRoot()
		if err != nil {
			return nil, fmt.Errorf("livedom: shadow root: %w", err)
		}
		out = append(out, &ShadowRoot{root: sr, host: &Element{el: h}})
	}
	return out, nil
}

func textContent(el *rod.Element) (string, error) {
	res, err := el.Eval(`() => this.textContent`)
	if err != nil {
		return "", fmt.Errorf("livedom: text: %w", err)
	}
	return res.Value.Str(), nil
}

func first(els rod.Elements) dom.Node {
	if len(els) == 0 {
		return nil
	}
	return &Element{el: els[0]}
}

func wrapAll(els rod.Elements) dom.NodeList {
	out := make(dom.NodeList, 0, len(els))
	for _, el := range els {
		out = append(out, &Element{el: el})
	}
	return out
}

// classify maps a browser-side selector syntax error to dom.ErrInvalidSelector.
func classify(selector string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "is not a valid selector") || strings.Contains(msg, "SyntaxError") {
		return fmt.Errorf("%w: %q: %v", dom.ErrInvalidSelector, selector, err)
	}
	return fmt.Errorf("livedom: query %q: %w", selector, err)
}
