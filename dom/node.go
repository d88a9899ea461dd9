// CLAUDE:SUMMARY Tree interface shared by every resolution backend: node kinds, Node, NodeList, shadow modes.
// Package dom is an in-memory HTML tree with shadow roots.
//
// It parses markup with golang.org/x/net/html, turns declarative shadow roots
// (<template shadowrootmode="open|closed">) into attached shadow trees, and
// answers querySelector / querySelectorAll through cascadia. Shadow trees are
// detached from the light tree, so a plain query never crosses a boundary:
// crossing is the job of the shadowsel package.
//
// The Node interface is also implemented by livedom over a real browser page.
package dom

import "errors"

// Kind identifies what a Node is.
type Kind int

const (
	KindDocument Kind = iota
	KindElement
	KindShadowRoot
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindElement:
		return "element"
	case KindShadowRoot:
		return "shadowRoot"
	}
	return "unknown"
}

// Node is a resolution root: a document, an element or a shadow root.
//
// QuerySelector returns a nil Node (not an error) when nothing matches.
// ShadowRoot returns nil for anything that is not an element with an open
// shadow root.
type Node interface {
	Kind() Kind
	QuerySelector(selector string) (Node, error)
	QuerySelectorAll(selector string) (NodeList, error)
	ShadowRoot() (Node, error)
	HTML() (string, error)
	Text() (string, error)
}

// ShadowLister is implemented by nodes that can list in one read the open
// shadow roots hosted by their descendants, in document order. Roots nested
// inside those shadow trees are not included.
type ShadowLister interface {
	DescendantShadowRoots() (NodeList, error)
}

// NodeList is the result of a multi-match query. An empty, non-nil list
// means "nothing matched".
type NodeList []Node

// First returns the first node, or nil.
func (l NodeList) First() Node {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}

// Item returns the i-th node, or nil when i is out of range.
func (l NodeList) Item(i int) Node {
	if i < 0 || i >= len(l) {
		return nil
	}
	return l[i]
}

// ShadowMode is the encapsulation mode of a shadow root.
type ShadowMode string

const (
	ShadowOpen   ShadowMode = "open"
	ShadowClosed ShadowMode = "closed"
)

// HostScope is the selector token that anchors a query to the host of the
// shadow root it runs in. Backends must accept it at the start of every
// comma-separated part of a selector passed to a shadow root.
const HostScope = ":host"

var (
	// ErrInvalidSelector is returned when a selector does not compile.
	ErrInvalidSelector = errors.New("dom: invalid selector")

	// ErrForeignNode is returned when a node from another document is used.
	ErrForeignNode = errors.New("dom: node belongs to another document")

	// ErrShadowAttached is returned by AttachShadow on an existing host.
	ErrShadowAttached = errors.New("dom: element already hosts a shadow root")
)
