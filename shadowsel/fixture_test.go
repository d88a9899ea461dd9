package shadowsel

import (
	"testing"

	"github.com/hazyhaar/shadowq/dom"
)

// page nests two open shadow roots: section > article > list items, with a
// decoy list in the light DOM and a closed root on the footer.
const page = `<!DOCTYPE html><html><head><title>fixture</title></head><body>
<section id="main">
  <template shadowrootmode="open">
    <h2>Section</h2>
    <article>
      <template shadowrootmode="open">
        <ul>
          <li>List item 1</li>
          <li>List item 2</li>
          <li>List item 3</li>
        </ul>
      </template>
    </article>
    <div class="inner">inner div</div>
  </template>
  <div class="light">light div</div>
</section>
<ul class="decoy"><li>Decoy</li></ul>
<footer><template shadowrootmode="closed"><p>secret</p></template></footer>
</body></html>`

const plain = `<body>
<main><p class="a">one</p><p class="b">two</p><div><p class="a">three</p></div></main>
<ol><li>x</li><li>y</li></ol>
</body>`

func parse(t *testing.T, s string) *dom.Document {
	t.Helper()
	d, err := dom.ParseString(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func mustText(t *testing.T, n dom.Node) string {
	t.Helper()
	if n == nil {
		t.Fatal("nil node")
	}
	s, err := n.Text()
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	return s
}

func nativeShadow(t *testing.T, n dom.Node) dom.Node {
	t.Helper()
	sr, err := n.ShadowRoot()
	if err != nil || sr == nil {
		t.Fatalf("native shadow root: %v, %v", sr, err)
	}
	return sr
}
