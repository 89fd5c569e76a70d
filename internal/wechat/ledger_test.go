package wechat

// Notes:
// - Restoration is checked by node identity, not by re-serialized markup
// - Out-of-band mutations (a replacement moved elsewhere) are simulated
//   directly on the tree

import (
	"strings"
	"testing"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

func parseDoc(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("html.Parse: %v", err)
	}
	return doc
}

func childrenOf(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func sameNodes(a, b []*html.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// TestLedger - Substitute / RestoreAll
// ---------------------------------------------------------------------------

func TestLedger_RestoreAllRestoresIdentity(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<div id="root"><p id="a">a</p><span id="b">b</span><p id="c">c</p></div>`)
	root := dom.GetElementByID(doc, "root")
	before := childrenOf(root)

	var l Ledger
	for _, id := range []string{"a", "b", "c"} {
		n := dom.GetElementByID(doc, id)
		if !l.Substitute(n, dom.CreateElement("img")) {
			t.Fatalf("Substitute(%s) = false", id)
		}
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	if dom.GetElementByID(doc, "b") != nil {
		t.Fatal("substituted node still attached")
	}

	if got := l.RestoreAll(); got != 3 {
		t.Errorf("RestoreAll() = %d, want 3", got)
	}
	if !sameNodes(childrenOf(root), before) {
		t.Error("children after restore differ from original nodes")
	}
	if l.Len() != 0 {
		t.Errorf("Len() after restore = %d, want 0", l.Len())
	}
}

func TestLedger_NestedSubstitutionsRestoreInReverse(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<div id="root"><section id="outer"><span id="inner">x</span></section></div>`)
	root := dom.GetElementByID(doc, "root")
	outer := dom.GetElementByID(doc, "outer")
	inner := dom.GetElementByID(doc, "inner")

	var l Ledger
	l.Substitute(inner, dom.CreateElement("img"))
	l.Substitute(outer, dom.CreateElement("img"))

	l.RestoreAll()

	if root.FirstChild != outer || outer.FirstChild != inner {
		t.Error("nested substitutions not fully restored")
	}
}

func TestLedger_SkipsMovedReplacement(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<div id="root"><p id="a">a</p></div><div id="other"></div>`)
	a := dom.GetElementByID(doc, "a")
	other := dom.GetElementByID(doc, "other")

	var l Ledger
	img := dom.CreateElement("img")
	l.Substitute(a, img)

	img.Parent.RemoveChild(img)
	other.AppendChild(img)

	if got := l.RestoreAll(); got != 0 {
		t.Errorf("RestoreAll() = %d, want 0", got)
	}
	if a.Parent != nil {
		t.Error("original re-inserted despite moved replacement")
	}
}

func TestLedger_SubstituteRejects(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<div id="root"><p id="a">a</p></div>`)
	a := dom.GetElementByID(doc, "a")

	var l Ledger
	if l.Substitute(dom.CreateElement("p"), dom.CreateElement("img")) {
		t.Error("Substitute(detached) = true, want false")
	}
	if l.Substitute(nil, dom.CreateElement("img")) {
		t.Error("Substitute(nil) = true, want false")
	}

	if !l.Substitute(a, dom.CreateElement("img")) {
		t.Fatal("first Substitute() = false")
	}
	if l.Substitute(a, dom.CreateElement("img")) {
		t.Error("second Substitute() of same original = true, want false")
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestLedger_RemoveRestores(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<div id="root"><nav id="toc" data-toc="true">toc</nav><p>body</p></div>`)
	root := dom.GetElementByID(doc, "root")
	toc := dom.GetElementByID(doc, "toc")

	var l Ledger
	if !l.Remove(toc) {
		t.Fatal("Remove() = false")
	}
	if got := dom.InnerHTML(root); strings.Contains(got, "toc") {
		t.Errorf("toc still rendered: %s", got)
	}

	l.RestoreAll()
	if root.FirstChild != toc {
		t.Error("removed node not restored to its position")
	}
}

func TestLedger_RecordsCopy(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<div id="root"><p id="a">a</p></div>`)
	a := dom.GetElementByID(doc, "a")
	root := dom.GetElementByID(doc, "root")

	var l Ledger
	img := dom.CreateElement("img")
	l.Substitute(a, img)

	recs := l.Records()
	if len(recs) != 1 || recs[0].Original != a || recs[0].Replacement != img || recs[0].Parent != root {
		t.Errorf("Records() = %+v", recs)
	}
}
