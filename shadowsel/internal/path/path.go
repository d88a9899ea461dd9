// CLAUDE:SUMMARY Parses "$"/"," selector paths into alternatives of shadow-boundary segments and validates their shape.
// Package path parses the selector path mini-language.
//
// A selector is a list of alternatives separated by top-level commas. Each
// alternative is a list of segments separated by top-level "$"; every segment
// after the first is evaluated inside the shadow root of the element matched
// by the previous one. A trailing "$" selects a shadow root.
package path

import (
	"errors"
	"strings"

	"github.com/hazyhaar/shadowq/dom"
	"github.com/hazyhaar/shadowq/internal/cssutil"
)

// Delimiter separates the segments of a path.
const Delimiter = '$'

var (
	ErrEmptySelector = errors.New("empty selector")
	ErrEmptySegment  = errors.New("empty segment inside a selector path")

	// ErrEndsInShadowRoot is returned by ElementPath.
	ErrEndsInShadowRoot = errors.New("selector ends in a shadowRoot")
	// ErrMustEndInShadowRoot is returned by ShadowRootPath.
	ErrMustEndInShadowRoot = errors.New("selector does not end in a shadowRoot")
)

// Path is one alternative: trimmed segments in evaluation order.
type Path []string

// Alternatives are the comma-separated paths of a selector, in declaration
// order.
type Alternatives []Path

// Parse splits raw into alternatives and segments.
func Parse(raw string) (Alternatives, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptySelector
	}
	var alts Alternatives
	for _, alt := range cssutil.SplitTopLevel(raw, ',') {
		p := Path(cssutil.TrimAll(cssutil.SplitTopLevel(alt, Delimiter)))
		if err := p.check(); err != nil {
			return nil, err
		}
		alts = append(alts, p)
	}
	return alts, nil
}

// check rejects empty segments other than a leading or trailing one, and an
// alternative that is entirely blank.
func (p Path) check() error {
	if len(p) == 1 && p[0] == "" {
		return ErrEmptySelector
	}
	for i := 1; i < len(p)-1; i++ {
		if p[i] == "" {
			return ErrEmptySegment
		}
	}
	return nil
}

// EndsInShadowRoot reports whether the last segment is empty.
func (p Path) EndsInShadowRoot() bool {
	return len(p) > 1 && p[len(p)-1] == ""
}

// StartsInShadowRoot reports whether the first segment is empty, meaning the
// walk begins inside the root's own shadow root.
func (p Path) StartsInShadowRoot() bool {
	return len(p) > 1 && p[0] == ""
}

// ElementPath accepts paths that resolve to elements.
func ElementPath(p Path) error {
	if p.EndsInShadowRoot() {
		return ErrEndsInShadowRoot
	}
	return nil
}

// ShadowRootPath accepts paths that resolve to shadow roots.
func ShadowRootPath(p Path) error {
	if !p.EndsInShadowRoot() {
		return ErrMustEndInShadowRoot
	}
	return nil
}

// Validate runs fn over every alternative and returns the first error.
func (a Alternatives) Validate(fn func(Path) error) error {
	for _, p := range a {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// HostScoped anchors every top-level comma part of segment to the host of
// the shadow root it will run in, so "li" becomes ":host li" and "> ul"
// becomes ":host > ul".
func HostScoped(segment string) string {
	parts := cssutil.TrimAll(cssutil.SplitTopLevel(segment, ','))
	for i, part := range parts {
		if hasHostScope(part) {
			continue
		}
		parts[i] = dom.HostScope + " " + part
	}
	return strings.Join(parts, ", ")
}

func hasHostScope(part string) bool {
	rest, ok := strings.CutPrefix(part, dom.HostScope)
	return ok && (rest == "" || strings.ContainsRune(" \t\n>+~", rune(rest[0])))
}

// String reassembles the path in canonical form.
func (p Path) String() string {
	return strings.Join(p, "$ ")
}
