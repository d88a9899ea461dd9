// CLAUDE:SUMMARY Serialises a live page including its open shadow roots as declarative <template shadowrootmode> markup.
package livedom

import (
	"context"
	"fmt"
)

// captureJS collects every open shadow root reachable from the document and
// serialises the page with them inlined as declarative templates. Browsers
// without Element.getHTML fall back to plain outerHTML.
const captureJS = `() => {
	const roots = [];
	const walk = (root) => {
		for (const el of root.querySelectorAll('*')) {
			if (el.shadowRoot) {
				roots.push(el.shadowRoot);
				walk(el.shadowRoot);
			}
		}
	};
	walk(document);
	const dt = document.doctype ? '<!DOCTYPE ' + document.doctype.name + '>' : '';
	const html = document.documentElement;
	if (typeof html.getHTML !== 'function') {
		return dt + html.outerHTML;
	}
	const attrs = Array.from(html.attributes)
		.map((a) => ' ' + a.name + '="' + a.value.replace(/&/g, '&amp;').replace(/"/g, '&quot;') + '"')
		.join('');
	return dt + '<html' + attrs + '>' + html.getHTML({ shadowRoots: roots }) + '</html>';
}`

// Capture serialises doc's page. The result parses back with dom.Parse into
// a tree with the same open shadow roots.
func Capture(ctx context.Context, doc *Document) (string, error) {
	res, err := doc.page.Context(ctx).Eval(captureJS)
	if err != nil {
		return "", fmt.Errorf("livedom: capture: %w", err)
	}
	return res.Value.Str(), nil
}
