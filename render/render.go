// CLAUDE:SUMMARY Renders resolved nodes as html, text, markdown or sanitized html for tool and HTTP output.
// Package render turns a resolved node into the string a caller asked for.
// It works on any node that can serialize itself, so in-memory and live
// nodes render the same way.
package render

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Format names an output representation.
type Format string

const (
	FormatHTML     Format = "html"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatSafeHTML Format = "safe-html"
)

// ErrUnknownFormat is returned for a format outside the list above.
var ErrUnknownFormat = errors.New("render: unknown format")

// Source is what render needs from a node.
type Source interface {
	HTML() (string, error)
	Text() (string, error)
}

// Renderer holds the reusable converter and sanitizer.
type Renderer struct {
	md     *converter.Converter
	policy *bluemonday.Policy
}

// New creates a Renderer.
func New() *Renderer {
	return &Renderer{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// ParseFormat maps a user string to a Format. Empty means html.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatHTML, nil
	case FormatHTML, FormatText, FormatMarkdown, FormatSafeHTML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "safe":
		return FormatSafeHTML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Render renders n in format f. domain, when set, resolves relative links
// in markdown output.
func (r *Renderer) Render(n Source, f Format, domain string) (string, error) {
	if f == FormatText {
		text, err := n.Text()
		if err != nil {
			return "", fmt.Errorf("render: text: %w", err)
		}
		return CleanText(text), nil
	}

	markup, err := n.HTML()
	if err != nil {
		return "", fmt.Errorf("render: html: %w", err)
	}
	switch f {
	case FormatHTML, "":
		return markup, nil
	case FormatSafeHTML:
		return r.policy.Sanitize(markup), nil
	case FormatMarkdown:
		var opts []converter.ConvertOptionFunc
		if domain != "" {
			opts = append(opts, converter.WithDomain(domain))
		}
		md, err := r.md.ConvertString(markup, opts...)
		if err != nil {
			return "", fmt.Errorf("render: markdown: %w", err)
		}
		return strings.TrimSpace(md), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// RenderAll renders every node of list in order.
func (r *Renderer) RenderAll(list []Source, f Format, domain string) ([]string, error) {
	out := make([]string, 0, len(list))
	for i, n := range list {
		s, err := r.Render(n, f, domain)
		if err != nil {
			return nil, fmt.Errorf("render: item %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

var multiSpaceRe = regexp.MustCompile(`\s+`)

// CleanText strips zero-width characters, collapses whitespace and trims.
func CleanText(text string) string {
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(text, " "))
}
