package shadowsel

import (
	"sync"

	"github.com/hazyhaar/shadowq/dom"
)

var (
	defaultMu  sync.RWMutex
	defaultDoc dom.Node
)

// SetDefaultDocument sets the root used when a nil root is passed. Passing
// nil clears it.
func SetDefaultDocument(doc dom.Node) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultDoc = doc
}

// DefaultDocument returns the root set with SetDefaultDocument, or nil.
func DefaultDocument() dom.Node {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultDoc
}

func resolveRoot(root dom.Node) (dom.Node, error) {
	if root != nil {
		return root, nil
	}
	if d := DefaultDocument(); d != nil {
		return d, nil
	}
	return nil, ErrNoDocument
}
