// CLAUDE:SUMMARY Path-free search: finds selector matches anywhere below a root, descending shadow trees with an explicit work-list.
// Package deep finds matches for a plain selector anywhere under a root,
// descending into shadow trees without an explicit "$" path.
//
// Priority: matches in the root's own tree win; then the root's shadow tree;
// then the shadow trees of the root's descendants in document order, each
// searched the same way. The first non-empty result is returned.
package deep

import (
	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/shadowsel/internal/poll"
)

// All returns the matches of selector found first under root, or an empty
// list.
func All(root dom.Node, selector string) (dom.NodeList, error) {
	// LIFO work-list of subtree roots still to search.
	work := []dom.Node{root}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]

		found, err := n.QuerySelectorAll(selector)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found, nil
		}

		next, err := children(n)
		if err != nil {
			return nil, err
		}
		for i := len(next) - 1; i >= 0; i-- {
			work = append(work, next[i])
		}
	}
	return dom.NodeList{}, nil
}

// children lists the shadow roots to search after n came up empty, in the
// order they must be searched. Backends that implement dom.ShadowLister
// answer in one read; otherwise every descendant is asked for its shadow
// root, which costs one round trip per element on a live page.
func children(n dom.Node) ([]dom.Node, error) {
	var out []dom.Node
	if n.Kind() == dom.KindElement {
		sr, err := n.ShadowRoot()
		if err != nil {
			return nil, err
		}
		if sr != nil {
			out = append(out, sr)
		}
	}
	if l, ok := n.(dom.ShadowLister); ok {
		hosted, err := l.DescendantShadowRoots()
		if err != nil {
			return nil, err
		}
		return append(out, hosted...), nil
	}

	descendants, err := n.QuerySelectorAll("*")
	if err != nil {
		return nil, err
	}
	for _, d := range descendants {
		sr, err := d.ShadowRoot()
		if err != nil {
			return nil, err
		}
		if sr != nil {
			out = append(out, sr)
		}
	}
	return out, nil
}

// First returns the first member of All, or nil.
func First(root dom.Node, selector string) (dom.Node, error) {
	l, err := All(root, selector)
	if err != nil {
		return nil, err
	}
	return l.First(), nil
}

// AsyncAll polls the whole search until it yields a match. It blocks.
func AsyncAll(root dom.Node, selector string, p poll.Params) (dom.NodeList, error) {
	return poll.Poll(func() (dom.NodeList, error) {
		return All(root, selector)
	}, poll.NonEmpty[dom.NodeList], dom.NodeList{}, p)
}

// AsyncFirst polls the whole search until it yields a match. It blocks.
func AsyncFirst(root dom.Node, selector string, p poll.Params) (dom.Node, error) {
	l, err := AsyncAll(root, selector, p)
	if err != nil {
		return nil, err
	}
	return l.First(), nil
}
