// CLAUDE:SUMMARY Document handle: parses HTML, owns the shadow-root registry and the tree lock.
package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is an HTML document plus the shadow trees attached to its
// elements. All reads take a shared lock and all mutations an exclusive one,
// so a document may be changed by one goroutine while another polls it.
type Document struct {
	mu      sync.RWMutex
	root    *html.Node
	shadows map[*html.Node]*ShadowRoot
}

// Parse reads an HTML document. Declarative shadow roots are attached to
// their hosts as they would be by a browser parser.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	d := &Document{root: root, shadows: make(map[*html.Node]*ShadowRoot)}
	d.adoptTemplates(root)
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument returns an empty html/head/body document.
func NewDocument() *Document {
	d, err := ParseString("<!DOCTYPE html><html><head></head><body></body></html>")
	if err != nil {
		// x/net/html never fails on this input.
		panic(err)
	}
	return d
}

func (d *Document) Kind() Kind { return KindDocument }

// QuerySelector returns the first element in document order matching selector.
func (d *Document) QuerySelector(selector string) (Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.queryFirst(d.root, selector, false)
}

// QuerySelectorAll returns every element matching selector in document order.
func (d *Document) QuerySelectorAll(selector string) (NodeList, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.queryAll(d.root, selector, false)
}

// ShadowRoot always returns nil: a document has no shadow root.
func (d *Document) ShadowRoot() (Node, error) { return nil, nil }

// HTML serialises the whole document, shadow roots included.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.render(d.root, true)
}

// Text returns the text content of the document element.
func (d *Document) Text() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n := d.findTag(d.root, atom.Html); n != nil {
		return textContent(n), nil
	}
	return "", nil
}

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() (Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrapTag(atom.Html)
}

// Body returns the <body> element.
func (d *Document) Body() (Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrapTag(atom.Body)
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := d.findTag(d.root, atom.Title)
	if n == nil {
		return ""
	}
	return strings.TrimSpace(textContent(n))
}

// DescendantShadowRoots lists the open shadow roots hosted in the light tree.
func (d *Document) DescendantShadowRoots() (NodeList, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hostedRoots(d.root), nil
}

// ShadowRoots returns every shadow root attached in the document, open or
// closed. A host's light subtree is visited before its shadow tree.
func (d *Document) ShadowRoots() []*ShadowRoot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*ShadowRoot
	stack := []*html.Node{d.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if sr, ok := d.shadows[n]; ok {
			out = append(out, sr)
			stack = append(stack, sr.root)
		}
		stack = pushChildren(stack, n)
	}
	return out
}

func (d *Document) wrapTag(a atom.Atom) (Element, bool) {
	n := d.findTag(d.root, a)
	if n == nil {
		return Element{}, false
	}
	return Element{doc: d, n: n}, true
}

func (d *Document) findTag(root *html.Node, a atom.Atom) *html.Node {
	stack := pushChildren(nil, root)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.ElementNode && n.DataAtom == a {
			return n
		}
		stack = pushChildren(stack, n)
	}
	return nil
}

func (d *Document) wrap(nodes []*html.Node) NodeList {
	out := make(NodeList, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Element{doc: d, n: n})
	}
	return out
}

// pushChildren pushes the children of n onto a LIFO stack so that they pop
// in document order.
func pushChildren(stack []*html.Node, n *html.Node) []*html.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, c)
	}
	return stack
}
