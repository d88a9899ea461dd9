package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/shadowq/internal/cssutil"
)

// Compile parses a selector group. When hostScoped is set, a part that
// starts with ":host" is anchored to the shadow root being queried:
// ":host X" matches X anywhere in the shadow tree and ":host > X" requires the
// leftmost compound of X to be a top-level element of it. A bare ":host", or
// one followed by a sibling combinator, matches nothing: the host is not part
// of its own shadow tree.
func Compile(selector string, hostScoped bool) (cascadia.Matcher, error) {
	src := strings.TrimSpace(selector)
	if src == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSelector, selector)
	}
	if !hostScoped {
		m, err := cascadia.ParseGroup(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, selector, err)
		}
		return m, nil
	}

	var group anyOf
	for _, part := range cssutil.TrimAll(cssutil.SplitTopLevel(src, ',')) {
		m, err := compileHostScoped(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, selector, err)
		}
		group = append(group, m)
	}
	return group, nil
}

func compileHostScoped(part string) (cascadia.Matcher, error) {
	if part == "" {
		return nil, errors.New("empty selector")
	}
	rest, ok := strings.CutPrefix(part, HostScope)
	if !ok || (rest != "" && !strings.ContainsRune(" \t\n>+~", rune(rest[0]))) {
		return cascadia.Parse(part)
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return never{}, nil
	}
	switch rest[0] {
	case '>':
		return compileTopLevel(rest[1:])
	case '+', '~':
		if _, err := cascadia.Parse(strings.TrimSpace(rest[1:])); err != nil {
			return nil, err
		}
		return never{}, nil
	}
	return cascadia.Parse(rest)
}

func compileTopLevel(sel string) (cascadia.Matcher, error) {
	parts, combs, ok := cssutil.SplitCompounds(sel)
	if !ok {
		return nil, fmt.Errorf("malformed selector %q", strings.TrimSpace(sel))
	}
	m := topLevel{combs: combs}
	for _, p := range parts {
		c, err := cascadia.Parse(p)
		if err != nil {
			return nil, err
		}
		m.compounds = append(m.compounds, c)
	}
	return m, nil
}

type anyOf []cascadia.Matcher

func (g anyOf) Match(n *html.Node) bool {
	for _, m := range g {
		if m.Match(n) {
			return true
		}
	}
	return false
}

type never struct{}

func (never) Match(*html.Node) bool { return false }

// topLevel matches a complex selector whose leftmost compound must be a
// child of the tree root (a document node). Combinators never leave the
// element tree.
type topLevel struct {
	compounds []cascadia.Sel
	combs     []byte
}

func (t topLevel) Match(n *html.Node) bool {
	return t.matchAt(n, len(t.compounds)-1)
}

func (t topLevel) matchAt(n *html.Node, i int) bool {
	if n == nil || n.Type != html.ElementNode || !t.compounds[i].Match(n) {
		return false
	}
	if i == 0 {
		return n.Parent != nil && n.Parent.Type == html.DocumentNode
	}
	switch t.combs[i-1] {
	case '>':
		return t.matchAt(n.Parent, i-1)
	case ' ':
		for p := n.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
			if t.matchAt(p, i-1) {
				return true
			}
		}
	case '+':
		return t.matchAt(prevElement(n), i-1)
	case '~':
		for p := prevElement(n); p != nil; p = prevElement(p) {
			if t.matchAt(p, i-1) {
				return true
			}
		}
	}
	return false
}

func prevElement(n *html.Node) *html.Node {
	for p := n.PrevSibling; p != nil; p = p.PrevSibling {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

func (d *Document) queryFirst(scope *html.Node, selector string, hostScoped bool) (Node, error) {
	m, err := Compile(selector, hostScoped)
	if err != nil {
		return nil, err
	}
	found := match(scope, m, true)
	if len(found) == 0 {
		return nil, nil
	}
	return Element{doc: d, n: found[0]}, nil
}

func (d *Document) queryAll(scope *html.Node, selector string, hostScoped bool) (NodeList, error) {
	m, err := Compile(selector, hostScoped)
	if err != nil {
		return nil, err
	}
	return d.wrap(match(scope, m, false)), nil
}

// match walks the descendants of scope in document order. Contents of inert
// templates are not part of the tree and are skipped.
func match(scope *html.Node, m cascadia.Matcher, first bool) []*html.Node {
	var out []*html.Node
	stack := pushChildren(nil, scope)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type != html.ElementNode {
			continue
		}
		if m.Match(n) {
			out = append(out, n)
			if first {
				return out
			}
		}
		if n.DataAtom == atom.Template {
			continue
		}
		stack = pushChildren(stack, n)
	}
	return out
}
