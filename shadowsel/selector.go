package shadowsel

import (
	"strings"

	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/shadowsel/internal/deep"
	"github.com/hazyhaar/shadowq/shadowsel/internal/future"
	"github.com/hazyhaar/shadowq/shadowsel/internal/path"
	"github.com/hazyhaar/shadowq/shadowsel/internal/poll"
	"github.com/hazyhaar/shadowq/shadowsel/internal/traverse"
)

// Selector is a chainable query over a pending subject. It is immutable:
// every method returns a new Selector derived from the receiver's future,
// and every derived Selector inherits the receiver's async parameters.
//
//	items, err := shadowsel.NewSelector(doc).
//		Query("section").
//		Query("article").
//		Query("li").
//		All().Await(ctx)
//
// A strict Selector (NewSelector) fails on structurally invalid requests;
// a lenient one (NewLenientSelector) degrades them to an empty result.
type Selector struct {
	subject *Future[Match]
	strict  bool
	s       settings
}

// NewSelector returns a strict Selector on root, or on the default document
// when root is nil.
func NewSelector(root dom.Node, opts ...Option) *Selector {
	return newRootSelector(root, true, opts)
}

// NewLenientSelector returns a lenient Selector on root.
func NewLenientSelector(root dom.Node, opts ...Option) *Selector {
	return newRootSelector(root, false, opts)
}

func newRootSelector(root dom.Node, strict bool, opts []Option) *Selector {
	sel := &Selector{strict: strict, s: newSettings(opts)}
	r, err := resolveRoot(root)
	if err != nil {
		sel.subject = future.Rejected[Match](err)
		return sel
	}
	sel.subject = future.Resolved(Single(r))
	return sel
}

// FromFuture returns a Selector whose subject is the node f settles with.
func FromFuture(f *Future[dom.Node], strict bool, opts ...Option) *Selector {
	return &Selector{
		subject: future.Then(f, func(n dom.Node) (Match, error) { return Single(n), nil }),
		strict:  strict,
		s:       newSettings(opts),
	}
}

func (sel *Selector) derive(fn func(Match) (Match, error)) *Selector {
	return &Selector{subject: future.Then(sel.subject, fn), strict: sel.strict, s: sel.s}
}

func (sel *Selector) rejected(err error) *Selector {
	return &Selector{subject: future.Rejected[Match](err), strict: sel.strict, s: sel.s}
}

// AsyncParams returns the polling bounds inherited by the whole chain.
func (sel *Selector) AsyncParams() AsyncParams { return sel.s.params }

// Strict reports whether the Selector fails on invalid requests.
func (sel *Selector) Strict() bool { return sel.strict }

// Match returns the pending subject itself.
func (sel *Selector) Match() *Future[Match] { return sel.subject }

// Element settles with the subject node, or the first member of a list
// subject, or nil.
func (sel *Selector) Element() *Future[dom.Node] {
	return future.Then(sel.subject, func(m Match) (dom.Node, error) {
		return m.Node(), nil
	})
}

// All settles with the list subject. A single-node subject is an error for
// a strict Selector and an empty list for a lenient one.
func (sel *Selector) All() *Future[dom.NodeList] {
	return future.Then(sel.subject, func(m Match) (dom.NodeList, error) {
		if m.IsList() {
			return m.List(), nil
		}
		if sel.strict {
			return nil, syntaxError("All", ErrNotAList)
		}
		return dom.NodeList{}, nil
	})
}

// Eq settles with the i-th member of a list subject, or nil.
func (sel *Selector) Eq(i int) *Future[dom.Node] {
	return future.Then(sel.subject, func(m Match) (dom.Node, error) {
		if !m.IsList() {
			return nil, nil
		}
		return m.List().Item(i), nil
	})
}

// ShadowRoot steps into the shadow root of the subject, polling until it is
// attached.
func (sel *Selector) ShadowRoot() *Selector {
	const method = "ShadowRoot"
	return sel.derive(func(m Match) (Match, error) {
		n := m.Node()
		if n == nil {
			return Single(nil), nil
		}
		switch n.Kind() {
		case dom.KindDocument:
			return sel.degrade(method, traverse.ErrShadowRootOfDocument, Single(nil))
		case dom.KindShadowRoot:
			return sel.degrade(method, traverse.ErrShadowRootOfShadowRoot, Single(nil))
		}
		sr, err := poll.Poll(n.ShadowRoot, poll.NonNil[dom.Node], nil, sel.s.poll())
		if err != nil {
			return Match{}, wrapErr(method, err)
		}
		return Single(sr), nil
	})
}

// degrade fails a strict Selector with err and settles a lenient one with
// empty.
func (sel *Selector) degrade(method string, err error, empty Match) (Match, error) {
	if sel.strict {
		return Match{}, syntaxError(method, err)
	}
	return empty, nil
}

// Query advances by one shadow boundary: the selector runs in the document
// for a document subject, and host-scoped inside the shadow root otherwise.
// The selector may itself be a "$" path with "," alternatives. The result
// is always a list subject, so Query("a").Query("b") matches what
// QuerySelectorAll("a$ b") matches.
func (sel *Selector) Query(selector string) *Selector {
	const method = "Query"
	alts, err := path.Parse(selector)
	if err == nil {
		err = alts.Validate(path.ElementPath)
	}
	if err != nil {
		return sel.rejected(syntaxError(method, err))
	}
	return sel.derive(func(m Match) (Match, error) {
		n := m.Node()
		if n == nil {
			return Multi(nil), nil
		}
		run := alts
		if n.Kind() == dom.KindElement {
			for _, p := range alts {
				if p.StartsInShadowRoot() {
					return sel.degrade(method, traverse.ErrShadowRootOfShadowRoot, Multi(nil))
				}
			}
			// The walk starts in the element's own shadow root.
			run = make(path.Alternatives, len(alts))
			for i, p := range alts {
				run[i] = append(path.Path{""}, p...)
			}
		}
		if err := traverse.CheckRoots(run, n); err != nil {
			return sel.degrade(method, err, Multi(nil))
		}
		l, err := traverse.AsyncAll(run, n, sel.s.poll())
		if err != nil {
			return Match{}, wrapErr(method, err)
		}
		return Multi(l), nil
	})
}

// DeepQuery runs a polled deep search from the subject. For a list subject
// one search runs per member and the first to settle with matches wins; a
// member that settles empty never wins over one that finds matches.
func (sel *Selector) DeepQuery(selector string) *Selector {
	const method = "DeepQuery"
	if strings.TrimSpace(selector) == "" {
		return sel.rejected(syntaxError(method, path.ErrEmptySelector))
	}
	p := sel.s.poll()
	return sel.derive(func(m Match) (Match, error) {
		var roots []dom.Node
		switch {
		case m.IsList():
			roots = m.List()
		case m.Node() != nil:
			roots = []dom.Node{m.Node()}
		}
		searches := make([]*Future[dom.NodeList], 0, len(roots))
		for _, r := range roots {
			searches = append(searches, future.Go(func() (dom.NodeList, error) {
				return deep.AsyncAll(r, selector, p)
			}))
		}
		l, err := future.First(searches, poll.NonEmpty[dom.NodeList], dom.NodeList{}).Wait()
		if err != nil {
			return Match{}, wrapErr(method, err)
		}
		return Multi(l), nil
	})
}
