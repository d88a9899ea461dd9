// CLAUDE:SUMMARY Walks parsed selector paths across shadow boundaries, synchronously or polling every step.
// Package traverse resolves parsed selector paths against a dom.Node.
//
// The walk takes segment 0 against the root (or the root's shadow root when
// the path starts with "$"), then for every later segment takes the shadow
// root of the previous match and runs a host-scoped query in it. Any miss
// ends the walk with nil; "not found" is never an error.
package traverse

import (
	"errors"

	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/shadowsel/internal/path"
	"github.com/hazyhaar/shadowq/shadowsel/internal/poll"
)

var (
	ErrShadowRootOfDocument   = errors.New("shadow root of the document")
	ErrShadowRootOfShadowRoot = errors.New("shadow root of a shadow root")
)

// CheckRoot rejects paths that would ask root for a shadow root it cannot
// have. It touches no tree content.
func CheckRoot(p path.Path, root dom.Node) error {
	if !p.StartsInShadowRoot() {
		return nil
	}
	switch root.Kind() {
	case dom.KindDocument:
		return ErrShadowRootOfDocument
	case dom.KindShadowRoot:
		return ErrShadowRootOfShadowRoot
	}
	return nil
}

// CheckRoots runs CheckRoot over every alternative.
func CheckRoots(alts path.Alternatives, root dom.Node) error {
	for _, p := range alts {
		if err := CheckRoot(p, root); err != nil {
			return err
		}
	}
	return nil
}

// lookups are the three primitive tree reads a walk is made of.
type lookups struct {
	first  func(scope dom.Node, selector string) (dom.Node, error)
	all    func(scope dom.Node, selector string) (dom.NodeList, error)
	shadow func(el dom.Node) (dom.Node, error)
}

// Resolver walks paths with a given lookup strategy.
type Resolver struct {
	l lookups
}

// Sync returns a resolver that reads the tree once per step.
func Sync() Resolver {
	return Resolver{l: lookups{
		first: func(scope dom.Node, sel string) (dom.Node, error) {
			return scope.QuerySelector(sel)
		},
		all: func(scope dom.Node, sel string) (dom.NodeList, error) {
			return scope.QuerySelectorAll(sel)
		},
		shadow: func(el dom.Node) (dom.Node, error) {
			return el.ShadowRoot()
		},
	}}
}

// Polled returns a resolver that polls every step separately: element
// lookups, shadow root lookups and the final multi-match each get their own
// budget of p.Retries attempts.
func Polled(p poll.Params) Resolver {
	s := Sync().l
	return Resolver{l: lookups{
		first: func(scope dom.Node, sel string) (dom.Node, error) {
			return poll.Poll(func() (dom.Node, error) { return s.first(scope, sel) }, poll.NonNil[dom.Node], nil, p)
		},
		all: func(scope dom.Node, sel string) (dom.NodeList, error) {
			return poll.Poll(func() (dom.NodeList, error) { return s.all(scope, sel) }, poll.NonEmpty[dom.NodeList], dom.NodeList{}, p)
		},
		shadow: func(el dom.Node) (dom.Node, error) {
			return poll.Poll(func() (dom.Node, error) { return s.shadow(el) }, poll.NonNil[dom.Node], nil, p)
		},
	}}
}

// Element returns the first alternative's single match, trying alternatives
// in order until one matches.
func (r Resolver) Element(alts path.Alternatives, root dom.Node) (dom.Node, error) {
	if err := CheckRoots(alts, root); err != nil {
		return nil, err
	}
	for _, p := range alts {
		n, err := r.element(p, root)
		if err != nil || n != nil {
			return n, err
		}
	}
	return nil, nil
}

// All returns the matches of the first alternative that has any.
func (r Resolver) All(alts path.Alternatives, root dom.Node) (dom.NodeList, error) {
	if err := CheckRoots(alts, root); err != nil {
		return nil, err
	}
	for _, p := range alts {
		l, err := r.all(p, root)
		if err != nil {
			return nil, err
		}
		if len(l) > 0 {
			return l, nil
		}
	}
	return dom.NodeList{}, nil
}

// ShadowRoot resolves paths ending in "$" to shadow roots.
func (r Resolver) ShadowRoot(alts path.Alternatives, root dom.Node) (dom.Node, error) {
	if err := CheckRoots(alts, root); err != nil {
		return nil, err
	}
	for _, p := range alts {
		n, err := r.shadowRoot(p, root)
		if err != nil || n != nil {
			return n, err
		}
	}
	return nil, nil
}

func (r Resolver) element(p path.Path, root dom.Node) (dom.Node, error) {
	scope, sel, err := r.lastScope(p, root)
	if err != nil || scope == nil {
		return nil, err
	}
	return r.l.first(scope, sel)
}

func (r Resolver) all(p path.Path, root dom.Node) (dom.NodeList, error) {
	scope, sel, err := r.lastScope(p, root)
	if err != nil {
		return nil, err
	}
	if scope == nil {
		return dom.NodeList{}, nil
	}
	l, err := r.l.all(scope, sel)
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = dom.NodeList{}
	}
	return l, nil
}

func (r Resolver) shadowRoot(p path.Path, root dom.Node) (dom.Node, error) {
	elPath := p[:len(p)-1]
	if len(elPath) == 1 && elPath[0] == "" {
		return r.l.shadow(root)
	}
	el, err := r.element(elPath, root)
	if err != nil || el == nil {
		return nil, err
	}
	return r.l.shadow(el)
}

// lastScope walks all segments but the last and returns the node the last
// segment must be queried from, with the selector to run there. A nil scope
// means the walk missed.
func (r Resolver) lastScope(p path.Path, root dom.Node) (dom.Node, string, error) {
	scope := root
	segs := p
	if p.StartsInShadowRoot() {
		sr, err := r.l.shadow(root)
		if err != nil || sr == nil {
			return nil, "", err
		}
		scope, segs = sr, p[1:]
	}
	for i, seg := range segs {
		sel := scoped(scope, seg)
		if i == len(segs)-1 {
			return scope, sel, nil
		}
		el, err := r.l.first(scope, sel)
		if err != nil || el == nil {
			return nil, "", err
		}
		sr, err := r.l.shadow(el)
		if err != nil || sr == nil {
			return nil, "", err
		}
		scope = sr
	}
	return nil, "", nil
}

// scoped anchors seg to the host when it runs inside a shadow root.
func scoped(scope dom.Node, seg string) string {
	if scope.Kind() == dom.KindShadowRoot {
		return path.HostScoped(seg)
	}
	return seg
}

// Element resolves alts synchronously to a single node.
func Element(alts path.Alternatives, root dom.Node) (dom.Node, error) {
	return Sync().Element(alts, root)
}

// All resolves alts synchronously to a node list.
func All(alts path.Alternatives, root dom.Node) (dom.NodeList, error) {
	return Sync().All(alts, root)
}

// ShadowRoot resolves alts synchronously to a shadow root.
func ShadowRoot(alts path.Alternatives, root dom.Node) (dom.Node, error) {
	return Sync().ShadowRoot(alts, root)
}

// AsyncElement is Element with every step polled. It blocks.
func AsyncElement(alts path.Alternatives, root dom.Node, p poll.Params) (dom.Node, error) {
	return Polled(p).Element(alts, root)
}

// AsyncAll is All with every step polled. It blocks.
func AsyncAll(alts path.Alternatives, root dom.Node, p poll.Params) (dom.NodeList, error) {
	return Polled(p).All(alts, root)
}

// AsyncShadowRoot is ShadowRoot with every step polled. It blocks.
func AsyncShadowRoot(alts path.Alternatives, root dom.Node, p poll.Params) (dom.Node, error) {
	return Polled(p).ShadowRoot(alts, root)
}
