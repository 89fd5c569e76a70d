package wechat

import (
	"testing"

	"github.com/go-shiori/dom"
)

const selectorsFixture = `<div id="preview-content-wechat">
<nav data-toc="true"><a href="#heading-0">T</a></nav>
<section data-diagram="true"><svg width="10" height="10"></svg></section>
<section data-diagram="true"><p>no graphic</p></section>
<div data-mermaid="1"><svg viewBox="0 0 4 4"></svg></div>
<p>inline <span class="katex" id="i1">a</span> and <span class="katex" id="i2">b</span></p>
<span class="katex-display" id="d1"><span class="katex" id="nested">c</span></span>
<section data-code-block="true"><pre><code>x</code></pre></section>
</div>`

func TestFindPreviewRoot(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, selectorsFixture)
	root := FindPreviewRoot(doc)
	if root == nil || dom.ID(root) != PreviewRootID {
		t.Fatalf("FindPreviewRoot() = %v", root)
	}
	if FindPreviewRoot(root) != root {
		t.Error("FindPreviewRoot(root) should return root itself")
	}
	if FindPreviewRoot(nil) != nil {
		t.Error("FindPreviewRoot(nil) != nil")
	}
	if FindPreviewRoot(parseDoc(t, `<p>none</p>`)) != nil {
		t.Error("FindPreviewRoot() found a root in a document without one")
	}
}

func TestSelectors(t *testing.T) {
	t.Parallel()

	root := FindPreviewRoot(parseDoc(t, selectorsFixture))

	diagrams := Diagrams(root)
	if len(diagrams) != 2 {
		t.Fatalf("Diagrams() = %d, want 2 (container without svg skipped)", len(diagrams))
	}
	if dom.GetAttribute(diagrams[1].Container, "data-mermaid") != "1" {
		t.Error("Diagrams() lost document order")
	}

	if got := BlockFormulas(root); len(got) != 1 || dom.ID(got[0]) != "d1" {
		t.Errorf("BlockFormulas() = %d nodes", len(got))
	}

	inline := InlineFormulas(root)
	var ids []string
	for _, n := range inline {
		ids = append(ids, dom.ID(n))
	}
	if len(ids) != 2 || ids[0] != "i1" || ids[1] != "i2" {
		t.Errorf("InlineFormulas() ids = %v, want [i1 i2]", ids)
	}

	if got := TOCNodes(root); len(got) != 1 {
		t.Errorf("TOCNodes() = %d, want 1", len(got))
	}
	if got := CodeBlocks(root); len(got) != 1 {
		t.Errorf("CodeBlocks() = %d, want 1", len(got))
	}
}
