package wechat

import (
	"golang.org/x/net/html"
)

// Substitution records that Original was detached from Parent and
// Replacement inserted in its place.
type Substitution struct {
	Original    *html.Node
	Replacement *html.Node
	Parent      *html.Node
}

// Ledger tracks substitutions made during one export run so they can be
// undone in reverse order. The zero value is ready to use.
// A Ledger is not safe for concurrent use.
type Ledger struct {
	records []Substitution
	active  map[*html.Node]struct{}
}

// Record appends a substitution that the caller has already applied.
func (l *Ledger) Record(original, replacement, parent *html.Node) {
	if l.active == nil {
		l.active = make(map[*html.Node]struct{})
	}
	l.records = append(l.records, Substitution{
		Original:    original,
		Replacement: replacement,
		Parent:      parent,
	})
	l.active[original] = struct{}{}
}

// Substitute swaps original for replacement in the tree and records it.
// It returns false without touching the tree when original is detached or
// already substituted.
func (l *Ledger) Substitute(original, replacement *html.Node) bool {
	if original == nil || replacement == nil {
		return false
	}
	parent := original.Parent
	if parent == nil {
		return false
	}
	if _, ok := l.active[original]; ok {
		return false
	}
	if replacement.Parent != nil {
		replacement.Parent.RemoveChild(replacement)
	}

	parent.InsertBefore(replacement, original)
	parent.RemoveChild(original)
	l.Record(original, replacement, parent)
	return true
}

// Remove detaches node and records the removal as a substitution by an empty
// text node, so RestoreAll puts it back like any other swap.
func (l *Ledger) Remove(node *html.Node) bool {
	return l.Substitute(node, &html.Node{Type: html.TextNode})
}

// RestoreAll undoes every recorded substitution, newest first, and empties
// the ledger. A record is skipped when its replacement is no longer a child
// of the recorded parent. It returns the number of nodes restored.
func (l *Ledger) RestoreAll() int {
	restored := 0
	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		if rec.Replacement == nil || rec.Parent == nil || rec.Replacement.Parent != rec.Parent {
			continue
		}
		rec.Parent.InsertBefore(rec.Original, rec.Replacement)
		rec.Parent.RemoveChild(rec.Replacement)
		restored++
	}
	l.records = nil
	l.active = nil
	return restored
}

// Len returns the number of pending substitutions.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns a copy of the pending substitutions in insertion order.
func (l *Ledger) Records() []Substitution {
	out := make([]Substitution, len(l.records))
	copy(out, l.records)
	return out
}
