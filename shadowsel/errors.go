package shadowsel

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/shadowsel/internal/path"
	"github.com/hazyhaar/shadowq/shadowsel/internal/traverse"
)

// ErrSyntax matches every *SyntaxError through errors.Is.
var ErrSyntax = errors.New("shadowsel: syntax error")

var (
	ErrSelectorEndsInShadowRoot    = errors.New("selector ends in a shadowRoot")
	ErrSelectorMustEndInShadowRoot = errors.New("selector must end in a shadowRoot")
	ErrShadowRootOfDocument        = errors.New("shadowRoot of the document")
	ErrShadowRootOfShadowRoot      = errors.New("shadowRoot of a shadowRoot")
	ErrEmptySelector               = errors.New("empty selector")
	ErrEmptySegment                = errors.New("empty segment")
	ErrNotAList                    = errors.New("subject is not a node list")
)

// ErrNoDocument is returned when a nil root is given and no default
// document was set.
var ErrNoDocument = errors.New("shadowsel: no root and no default document")

// SyntaxError reports a structurally invalid request. It is always raised
// before the tree is read.
type SyntaxError struct {
	Method string
	Err    error
	msg    string
}

func (e *SyntaxError) Error() string { return e.msg }

func (e *SyntaxError) Unwrap() []error { return []error{e.Err, ErrSyntax} }

// counterpart names the method to use instead of method when the selector
// shape is wrong. QuerySelectorAll has none.
var counterpart = map[string]string{
	"QuerySelector":                "ShadowRootQuerySelector",
	"ShadowRootQuerySelector":      "QuerySelector",
	"AsyncQuerySelector":           "AsyncShadowRootQuerySelector",
	"AsyncShadowRootQuerySelector": "AsyncQuerySelector",
}

func syntaxError(method string, err error) *SyntaxError {
	e := &SyntaxError{Method: method}
	switch {
	case errors.Is(err, path.ErrEndsInShadowRoot):
		e.Err = ErrSelectorEndsInShadowRoot
		e.msg = fmt.Sprintf("%s cannot be used with a selector ending in a shadowRoot ($).", method)
		if other, ok := counterpart[method]; ok {
			e.msg += fmt.Sprintf(" If you want to select a shadowRoot, use %s instead.", other)
		}
	case errors.Is(err, path.ErrMustEndInShadowRoot):
		e.Err = ErrSelectorMustEndInShadowRoot
		e.msg = fmt.Sprintf("%s must be used with a selector ending in a shadowRoot ($). If you don't want to select a shadowRoot, use %s instead.", method, counterpart[method])
	case errors.Is(err, traverse.ErrShadowRootOfDocument):
		e.Err = ErrShadowRootOfDocument
		e.msg = "You can not select a shadowRoot ($) of the document."
	case errors.Is(err, traverse.ErrShadowRootOfShadowRoot):
		e.Err = ErrShadowRootOfShadowRoot
		e.msg = "You can not select a shadowRoot ($) of a shadowRoot."
	case errors.Is(err, path.ErrEmptySelector):
		e.Err = ErrEmptySelector
		e.msg = fmt.Sprintf("%s: empty selector", method)
	case errors.Is(err, path.ErrEmptySegment):
		e.Err = ErrEmptySegment
		e.msg = fmt.Sprintf("%s: empty segment between two %q delimiters", method, "$")
	case errors.Is(err, dom.ErrInvalidSelector):
		e.Err = err
		e.msg = fmt.Sprintf("%s: %v", method, err)
	default:
		e.Err = err
		e.msg = fmt.Sprintf("%s: %v", method, err)
	}
	return e
}

// wrapErr turns structural errors from the engine into *SyntaxError and
// passes other errors (a browser backend failing) through with context.
func wrapErr(method string, err error) error {
	if err == nil {
		return nil
	}
	var se *SyntaxError
	if errors.As(err, &se) {
		return err
	}
	if isStructural(err) {
		return syntaxError(method, err)
	}
	return fmt.Errorf("shadowsel: %s: %w", method, err)
}

func isStructural(err error) bool {
	for _, target := range []error{
		path.ErrEndsInShadowRoot,
		path.ErrMustEndInShadowRoot,
		path.ErrEmptySelector,
		path.ErrEmptySegment,
		traverse.ErrShadowRootOfDocument,
		traverse.ErrShadowRootOfShadowRoot,
		dom.ErrInvalidSelector,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
