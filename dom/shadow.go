package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ShadowRoot is a shadow tree attached to a host element. Its top-level nodes
// hang off a document node, so selectors see no parent element above them.
type ShadowRoot struct {
	doc  *Document
	host *html.Node
	root *html.Node
	mode ShadowMode
}

func newShadowRoot(d *Document, host *html.Node, mode ShadowMode) *ShadowRoot {
	return &ShadowRoot{
		doc:  d,
		host: host,
		mode: mode,
		root: &html.Node{Type: html.DocumentNode},
	}
}

func (s *ShadowRoot) Kind() Kind { return KindShadowRoot }

// QuerySelector returns the first element of the shadow tree matching
// selector. The selector may start with ":host".
func (s *ShadowRoot) QuerySelector(selector string) (Node, error) {
	s.doc.mu.RLock()
	defer s.doc.mu.RUnlock()
	return s.doc.queryFirst(s.root, selector, true)
}

// QuerySelectorAll returns every element of the shadow tree matching selector.
func (s *ShadowRoot) QuerySelectorAll(selector string) (NodeList, error) {
	s.doc.mu.RLock()
	defer s.doc.mu.RUnlock()
	return s.doc.queryAll(s.root, selector, true)
}

// ShadowRoot always returns nil: shadow roots cannot host shadow roots.
func (s *ShadowRoot) ShadowRoot() (Node, error) { return nil, nil }

// HTML returns the inner HTML of the shadow tree.
func (s *ShadowRoot) HTML() (string, error) {
	s.doc.mu.RLock()
	defer s.doc.mu.RUnlock()
	return s.doc.render(s.root, false)
}

// Text returns the text content of the shadow tree.
func (s *ShadowRoot) Text() (string, error) {
	s.doc.mu.RLock()
	defer s.doc.mu.RUnlock()
	return textContent(s.root), nil
}

// DescendantShadowRoots lists the open shadow roots hosted inside the shadow
// tree.
func (s *ShadowRoot) DescendantShadowRoots() (NodeList, error) {
	s.doc.mu.RLock()
	defer s.doc.mu.RUnlock()
	return s.doc.hostedRoots(s.root), nil
}

// Host returns the element the shadow root is attached to.
func (s *ShadowRoot) Host() Element { return Element{doc: s.doc, n: s.host} }

// Mode returns whether the shadow root is open or closed.
func (s *ShadowRoot) Mode() ShadowMode { return s.mode }

// declarativeMode reports the shadow mode requested by a
// <template shadowrootmode> element.
func declarativeMode(n *html.Node) (ShadowMode, bool) {
	if n.Type != html.ElementNode || n.DataAtom != atom.Template {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key != "shadowrootmode" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(a.Val)) {
		case string(ShadowOpen):
			return ShadowOpen, true
		case string(ShadowClosed):
			return ShadowClosed, true
		}
	}
	return "", false
}

// adoptTemplates converts every declarative shadow template under root into
// an attached shadow root, including templates nested inside the new shadow
// trees. Only the first template of a host is adopted; later ones stay
// ordinary inert templates. Caller holds the write lock or owns d.
func (d *Document) adoptTemplates(root *html.Node) {
	work := []*html.Node{root}
	for len(work) > 0 {
		scope := work[len(work)-1]
		work = work[:len(work)-1]

		var found []*html.Node
		stack := pushChildren(nil, scope)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := declarativeMode(n); ok {
				found = append(found, n)
				continue
			}
			if n.Type == html.ElementNode && n.DataAtom == atom.Template {
				continue
			}
			stack = pushChildren(stack, n)
		}

		for _, tpl := range found {
			host := tpl.Parent
			if host == nil || host.Type != html.ElementNode {
				continue
			}
			if _, taken := d.shadows[host]; taken {
				continue
			}
			mode, _ := declarativeMode(tpl)
			sr := newShadowRoot(d, host, mode)
			host.RemoveChild(tpl)
			for c := tpl.FirstChild; c != nil; {
				next := c.NextSibling
				tpl.RemoveChild(c)
				sr.root.AppendChild(c)
				c = next
			}
			d.shadows[host] = sr
			work = append(work, sr.root)
		}
	}
}

// hostedRoots walks the descendants of scope in document order and collects
// the open shadow roots attached to them. Caller holds the read lock.
func (d *Document) hostedRoots(scope *html.Node) NodeList {
	out := NodeList{}
	stack := pushChildren(nil, scope)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type != html.ElementNode {
			continue
		}
		if sr, ok := d.shadows[n]; ok && sr.mode == ShadowOpen {
			out = append(out, sr)
		}
		if n.DataAtom == atom.Template {
			continue
		}
		stack = pushChildren(stack, n)
	}
	return out
}
