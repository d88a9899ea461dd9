package shadowsel

import "github.com/hazyhaar/shadowq/dom"

// Match is the subject of a Selector: a single node, a node list, or
// nothing.
type Match struct {
	node  dom.Node
	list  dom.NodeList
	multi bool
}

// Single wraps one node; a nil node is an empty match.
func Single(n dom.Node) Match { return Match{node: n} }

// Multi wraps a node list.
func Multi(l dom.NodeList) Match {
	if l == nil {
		l = dom.NodeList{}
	}
	return Match{list: l, multi: true}
}

// IsList reports whether the match came from a multi-match lookup.
func (m Match) IsList() bool { return m.multi }

// Node returns the single node, or the first member of a list.
func (m Match) Node() dom.Node {
	if m.multi {
		return m.list.First()
	}
	return m.node
}

// List returns the node list of a multi match, or nil.
func (m Match) List() dom.NodeList { return m.list }

// Empty reports whether nothing matched.
func (m Match) Empty() bool {
	if m.multi {
		return len(m.list) == 0
	}
	return m.node == nil
}
