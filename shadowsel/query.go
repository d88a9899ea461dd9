package shadowsel

import (
	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/shadowsel/internal/path"
	"github.com/hazyhaar/shadowq/shadowsel/internal/traverse"
)

// prepare parses selector, validates every alternative with check and
// resolves the root. Nothing in the tree is read.
func prepare(method string, root dom.Node, selector string, check func(path.Path) error) (path.Alternatives, dom.Node, error) {
	r, err := resolveRoot(root)
	if err != nil {
		return nil, nil, err
	}
	alts, err := path.Parse(selector)
	if err != nil {
		return nil, nil, syntaxError(method, err)
	}
	if err := alts.Validate(check); err != nil {
		return nil, nil, syntaxError(method, err)
	}
	if err := traverse.CheckRoots(alts, r); err != nil {
		return nil, nil, syntaxError(method, err)
	}
	return alts, r, nil
}

// QuerySelector returns the first element matched by the selector path, or
// nil. A selector ending in "$" is an error.
func QuerySelector(root dom.Node, selector string) (dom.Node, error) {
	const method = "QuerySelector"
	alts, r, err := prepare(method, root, selector, path.ElementPath)
	if err != nil {
		return nil, err
	}
	n, err := traverse.Element(alts, r)
	return n, wrapErr(method, err)
}

// QuerySelectorAll returns the elements matched by the last segment of the
// first alternative that matches, or an empty list.
func QuerySelectorAll(root dom.Node, selector string) (dom.NodeList, error) {
	const method = "QuerySelectorAll"
	alts, r, err := prepare(method, root, selector, path.ElementPath)
	if err != nil {
		return nil, err
	}
	l, err := traverse.All(alts, r)
	if err != nil {
		return nil, wrapErr(method, err)
	}
	return l, nil
}

// ShadowRootQuerySelector returns the shadow root selected by a path ending
// in "$", or nil.
func ShadowRootQuerySelector(root dom.Node, selector string) (dom.Node, error) {
	const method = "ShadowRootQuerySelector"
	alts, r, err := prepare(method, root, selector, path.ShadowRootPath)
	if err != nil {
		return nil, err
	}
	n, err := traverse.ShadowRoot(alts, r)
	return n, wrapErr(method, err)
}
