package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// render serialises n. Shadow roots become <template shadowrootmode> first
// children of their hosts so the output parses back into the same tree.
func (d *Document) render(n *html.Node, outer bool) (string, error) {
	var buf bytes.Buffer
	if outer {
		if err := html.Render(&buf, d.cloneDeep(n)); err != nil {
			return "", fmt.Errorf("dom: render: %w", err)
		}
		return buf.String(), nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, d.cloneDeep(c)); err != nil {
			return "", fmt.Errorf("dom: render: %w", err)
		}
	}
	return buf.String(), nil
}

func (d *Document) cloneDeep(n *html.Node) *html.Node {
	out := cloneNode(n)
	if sr, ok := d.shadows[n]; ok {
		tpl := &html.Node{
			Type:     html.ElementNode,
			Data:     "template",
			DataAtom: atom.Template,
			Attr:     []html.Attribute{{Key: "shadowrootmode", Val: string(sr.mode)}},
		}
		for c := sr.root.FirstChild; c != nil; c = c.NextSibling {
			tpl.AppendChild(d.cloneDeep(c))
		}
		out.AppendChild(tpl)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.AppendChild(d.cloneDeep(c))
	}
	return out
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	return c
}

// textContent concatenates the text nodes of the light subtree of n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	stack := pushChildren(nil, n)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch {
		case c.Type == html.TextNode:
			sb.WriteString(c.Data)
		case c.Type == html.ElementNode && c.DataAtom == atom.Template:
		default:
			stack = pushChildren(stack, c)
		}
	}
	return sb.String()
}
