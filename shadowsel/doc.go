// CLAUDE:SUMMARY Package doc for shadowsel: "$"-path selector resolution across shadow roots, polling, deep search, chainable facade.
// Package shadowsel resolves CSS selectors across shadow-DOM boundaries.
//
// A selector path uses "$" to step into the shadow root of the element
// matched so far:
//
//	shadowsel.QuerySelector(doc, "section$ article$ li:nth-of-type(2)")
//
// A trailing "$" selects a shadow root (ShadowRootQuerySelector), a leading
// "$" starts inside the root element's own shadow root, and top-level commas
// separate alternatives tried in order.
//
// The Async variants poll every step of the walk, so content that appears
// after a shadow root attaches late is still found. The Deep variants search
// every reachable open shadow tree for a plain selector. Selector is a lazy,
// chainable facade over all of them.
//
// Roots are dom.Node values: the in-memory dom package or livedom over a
// browser page. A nil root means the document set with SetDefaultDocument.
package shadowsel
