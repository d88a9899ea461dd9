package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AttachShadow attaches an empty shadow root to host.
func (d *Document) AttachShadow(host Element, mode ShadowMode) (*ShadowRoot, error) {
	if host.doc != d || host.n == nil {
		return nil, ErrForeignNode
	}
	if mode != ShadowOpen && mode != ShadowClosed {
		return nil, fmt.Errorf("dom: attach shadow: unknown mode %q", mode)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.shadows[host.n]; taken {
		return nil, ErrShadowAttached
	}
	sr := newShadowRoot(d, host.n, mode)
	d.shadows[host.n] = sr
	return sr, nil
}

// AppendHTML parses markup as a fragment and appends it to parent, which is
// an element or shadow root of d, or d itself (meaning its body).
// Declarative shadow templates in markup are attached.
func (d *Document) AppendHTML(parent Node, markup string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	target, err := d.container(parent)
	if err != nil {
		return err
	}
	return d.appendFragment(target, markup)
}

// SetInnerHTML replaces the children of parent with the parsed markup.
func (d *Document) SetInnerHTML(parent Node, markup string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	target, err := d.container(parent)
	if err != nil {
		return err
	}
	for c := target.FirstChild; c != nil; {
		next := c.NextSibling
		target.RemoveChild(c)
		d.forget(c)
		c = next
	}
	return d.appendFragment(target, markup)
}

// Remove detaches el from its parent. Shadow roots inside the removed
// subtree are dropped with it.
func (d *Document) Remove(el Element) error {
	if el.doc != d || el.n == nil {
		return ErrForeignNode
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if el.n.Parent == nil {
		return nil
	}
	el.n.Parent.RemoveChild(el.n)
	d.forget(el.n)
	return nil
}

// SetAttribute sets or replaces an attribute on el.
func (d *Document) SetAttribute(el Element, key, val string) error {
	if el.doc != d || el.n == nil {
		return ErrForeignNode
	}
	key = strings.ToLower(key)
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, a := range el.n.Attr {
		if a.Namespace == "" && a.Key == key {
			el.n.Attr[i].Val = val
			return nil
		}
	}
	el.n.Attr = append(el.n.Attr, html.Attribute{Key: key, Val: val})
	return nil
}

func (d *Document) container(parent Node) (*html.Node, error) {
	switch p := parent.(type) {
	case *Document:
		if p != d {
			return nil, ErrForeignNode
		}
		if body := d.findTag(d.root, atom.Body); body != nil {
			return body, nil
		}
		return nil, fmt.Errorf("dom: document has no body")
	case Element:
		if p.doc != d || p.n == nil {
			return nil, ErrForeignNode
		}
		return p.n, nil
	case *ShadowRoot:
		if p.doc != d {
			return nil, ErrForeignNode
		}
		return p.root, nil
	default:
		return nil, ErrForeignNode
	}
}

func (d *Document) appendFragment(target *html.Node, markup string) error {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	if target.DataAtom != 0 && target.Namespace == "" {
		ctx = &html.Node{Type: html.ElementNode, Data: target.Data, DataAtom: target.DataAtom}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return fmt.Errorf("dom: parse fragment: %w", err)
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		target.AppendChild(n)
	}
	d.adoptTemplates(target)
	return nil
}

// forget drops the registry entries of every host in the subtree at n.
func (d *Document) forget(n *html.Node) {
	stack := []*html.Node{n}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if sr, ok := d.shadows[c]; ok {
			delete(d.shadows, c)
			stack = append(stack, sr.root)
		}
		stack = pushChildren(stack, c)
	}
}
