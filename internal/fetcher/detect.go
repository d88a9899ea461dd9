package fetcher

import (
	"strings"

	"github.com/hazyhaar/shadowq/dom"
)

// Verdict says whether a fetched page can be queried without a browser.
type Verdict struct {
	NeedsBrowser bool     `json:"needs_browser"`
	Reason       string   `json:"reason,omitempty"`
	Pending      []string `json:"pending,omitempty"`
}

var shellMarkers = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
	`<noscript>you need to enable javascript`,
	`<noscript>enable javascript`,
}

// Detect inspects a fetched page. An app shell with almost no text, or
// custom elements whose shadow trees were not server rendered, need a
// browser.
func Detect(raw string, doc *dom.Document) (Verdict, error) {
	lower := strings.ToLower(raw)
	for _, m := range shellMarkers {
		if strings.Contains(lower, m) {
			return Verdict{NeedsBrowser: true, Reason: "app shell"}, nil
		}
	}

	pending, err := Pending(doc)
	if err != nil {
		return Verdict{}, err
	}
	if len(pending) > 0 {
		return Verdict{NeedsBrowser: true, Reason: "script-built shadow roots", Pending: pending}, nil
	}

	if len(raw) >= 256 {
		body, err := doc.Text()
		if err != nil {
			return Verdict{}, err
		}
		text := 0
		for _, r := range body {
			if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
				text++
			}
		}
		// Under 5% visible text is a shell whatever its markup looks like.
		if float64(text)/float64(len(raw)) < 0.05 {
			return Verdict{NeedsBrowser: true, Reason: "sparse text"}, nil
		}
	}
	return Verdict{}, nil
}
