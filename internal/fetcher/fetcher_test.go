package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/shadowq/dom"
)

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><x-a><template shadowrootmode="open"><p>hi</p></template></x-a></body></html>`))
	}))
	defer srv.Close()

	f := New(WithUserAgent("test-agent"))
	doc, res, err := f.Document(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotUA != "test-agent" {
		t.Errorf("User-Agent: got %q", gotUA)
	}
	if res.StatusCode != 200 || !strings.HasPrefix(res.ContentType, "text/html") {
		t.Errorf("result: %+v", res)
	}
	if n := len(doc.ShadowRoots()); n != 1 {
		t.Fatalf("shadow roots: got %d, want 1", n)
	}
}

func TestFetch_StatusAndTruncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	f := New(WithMaxBytes(10))
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("404: want error")
	}
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !res.Truncated || len(res.HTML) != 10 {
		t.Fatalf("truncation: truncated=%v len=%d", res.Truncated, len(res.HTML))
	}
}

func TestPending(t *testing.T) {
	doc, err := dom.ParseString(`<body>
<x-ready><template shadowrootmode="open"><x-inner></x-inner></template></x-ready>
<x-lazy></x-lazy><x-lazy></x-lazy>
<div></div>
</body>`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Pending(doc)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	want := []string{"x-lazy", "x-inner"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}
}
