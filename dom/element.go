package dom

import (
	"golang.org/x/net/html"
)

// Element is an element of a Document. It is a small value: two Elements
// compare equal with == exactly when they denote the same element.
type Element struct {
	doc *Document
	n   *html.Node
}

func (e Element) Kind() Kind { return KindElement }

// QuerySelector returns the first light-DOM descendant matching selector.
func (e Element) QuerySelector(selector string) (Node, error) {
	if e.n == nil {
		return nil, ErrForeignNode
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.doc.queryFirst(e.n, selector, false)
}

// QuerySelectorAll returns every light-DOM descendant matching selector.
func (e Element) QuerySelectorAll(selector string) (NodeList, error) {
	if e.n == nil {
		return nil, ErrForeignNode
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.doc.queryAll(e.n, selector, false)
}

// ShadowRoot returns the open shadow root attached to e, or nil when there
// is none or it is closed.
func (e Element) ShadowRoot() (Node, error) {
	if e.n == nil {
		return nil, ErrForeignNode
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	sr, ok := e.doc.shadows[e.n]
	if !ok || sr.mode != ShadowOpen {
		return nil, nil
	}
	return sr, nil
}

// DescendantShadowRoots lists the open shadow roots hosted below e, not
// counting e's own.
func (e Element) DescendantShadowRoots() (NodeList, error) {
	if e.n == nil {
		return nil, ErrForeignNode
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.doc.hostedRoots(e.n), nil
}

// HTML returns the outer HTML of e with its shadow trees serialised as
// declarative templates.
func (e Element) HTML() (string, error) {
	if e.n == nil {
		return "", ErrForeignNode
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.doc.render(e.n, true)
}

// Text returns the text content of e's light subtree.
func (e Element) Text() (string, error) {
	if e.n == nil {
		return "", ErrForeignNode
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return textContent(e.n), nil
}

// TagName returns the lower-case local name.
func (e Element) TagName() string {
	if e.n == nil {
		return ""
	}
	return e.n.Data
}

// Attr returns the value of the named attribute.
func (e Element) Attr(key string) (string, bool) {
	if e.n == nil {
		return "", false
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// ID returns the id attribute, or "".
func (e Element) ID() string {
	v, _ := e.Attr("id")
	return v
}

// Document returns the owning document.
func (e Element) Document() *Document { return e.doc }

// IsZero reports whether e is the zero Element.
func (e Element) IsZero() bool { return e.n == nil }
