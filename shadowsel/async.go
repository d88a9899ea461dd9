package shadowsel

import (
	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/shadowsel/internal/future"
	"github.com/hazyhaar/shadowq/shadowsel/internal/path"
	"github.com/hazyhaar/shadowq/shadowsel/internal/traverse"
)

// AsyncQuerySelector is QuerySelector with every step of the walk polled.
// Structural errors come back as an already rejected future.
func AsyncQuerySelector(root dom.Node, selector string, opts ...Option) *Future[dom.Node] {
	const method = "AsyncQuerySelector"
	alts, r, err := prepare(method, root, selector, path.ElementPath)
	if err != nil {
		return future.Rejected[dom.Node](err)
	}
	s := newSettings(opts)
	return future.Go(func() (dom.Node, error) {
		n, err := traverse.AsyncElement(alts, r, s.poll())
		return n, wrapErr(method, err)
	})
}

// AsyncQuerySelectorAll is QuerySelectorAll with every step polled.
func AsyncQuerySelectorAll(root dom.Node, selector string, opts ...Option) *Future[dom.NodeList] {
	const method = "AsyncQuerySelectorAll"
	alts, r, err := prepare(method, root, selector, path.ElementPath)
	if err != nil {
		return future.Rejected[dom.NodeList](err)
	}
	s := newSettings(opts)
	return future.Go(func() (dom.NodeList, error) {
		l, err := traverse.AsyncAll(alts, r, s.poll())
		if err != nil {
			return nil, wrapErr(method, err)
		}
		return l, nil
	})
}

// AsyncShadowRootQuerySelector is ShadowRootQuerySelector with every step
// polled.
func AsyncShadowRootQuerySelector(root dom.Node, selector string, opts ...Option) *Future[dom.Node] {
	const method = "AsyncShadowRootQuerySelector"
	alts, r, err := prepare(method, root, selector, path.ShadowRootPath)
	if err != nil {
		return future.Rejected[dom.Node](err)
	}
	s := newSettings(opts)
	return future.Go(func() (dom.Node, error) {
		n, err := traverse.AsyncShadowRoot(alts, r, s.poll())
		return n, wrapErr(method, err)
	})
}
