package shadowsel

import (
	"strings"

	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/shadowsel/internal/deep"
	"github.com/hazyhaar/shadowq/shadowsel/internal/future"
	"github.com/hazyhaar/shadowq/shadowsel/internal/path"
)

func prepareDeep(method string, root dom.Node, selector string) (dom.Node, error) {
	r, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(selector) == "" {
		return nil, syntaxError(method, path.ErrEmptySelector)
	}
	return r, nil
}

// DeepQuerySelector returns the first match of a plain selector found
// anywhere under root, open shadow trees included, or nil.
func DeepQuerySelector(root dom.Node, selector string) (dom.Node, error) {
	const method = "DeepQuerySelector"
	r, err := prepareDeep(method, root, selector)
	if err != nil {
		return nil, err
	}
	n, err := deep.First(r, selector)
	return n, wrapErr(method, err)
}

// DeepQuerySelectorAll returns the matches of the first tree, in search
// order, that has any.
func DeepQuerySelectorAll(root dom.Node, selector string) (dom.NodeList, error) {
	const method = "DeepQuerySelectorAll"
	r, err := prepareDeep(method, root, selector)
	if err != nil {
		return nil, err
	}
	l, err := deep.All(r, selector)
	if err != nil {
		return nil, wrapErr(method, err)
	}
	return l, nil
}

// AsyncDeepQuerySelector polls the whole deep search.
func AsyncDeepQuerySelector(root dom.Node, selector string, opts ...Option) *Future[dom.Node] {
	const method = "AsyncDeepQuerySelector"
	r, err := prepareDeep(method, root, selector)
	if err != nil {
		return future.Rejected[dom.Node](err)
	}
	s := newSettings(opts)
	return future.Go(func() (dom.Node, error) {
		n, err := deep.AsyncFirst(r, selector, s.poll())
		return n, wrapErr(method, err)
	})
}

// AsyncDeepQuerySelectorAll polls the whole deep search.
func AsyncDeepQuerySelectorAll(root dom.Node, selector string, opts ...Option) *Future[dom.NodeList] {
	const method = "AsyncDeepQuerySelectorAll"
	r, err := prepareDeep(method, root, selector)
	if err != nil {
		return future.Rejected[dom.NodeList](err)
	}
	s := newSettings(opts)
	return future.Go(func() (dom.NodeList, error) {
		l, err := deep.AsyncAll(r, selector, s.poll())
		if err != nil {
			return nil, wrapErr(method, err)
		}
		return l, nil
	})
}
