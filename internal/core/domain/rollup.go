package domain

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Totals aggregates the amounts of a subtree.
type Totals struct {
	Committed Money `json:"committed"`
	Reserved  Money `json:"reserved"`
	Spent     Money `json:"spent"`
}

// Available is Committed - (Reserved + Spent).
func (t Totals) Available() Money {
	return t.Committed.Sub(t.Reserved.Add(t.Spent))
}

func (t Totals) add(l *BudgetLine) Totals {
	return Totals{
		Committed: t.Committed.Add(l.Committed),
		Reserved:  t.Reserved.Add(l.Reserved),
		Spent:     t.Spent.Add(l.Spent),
	}
}

// LineIndex resolves the parent/child relation of a flat line list.
// Lines never own their children; the index is rebuilt from parent ids.
type LineIndex struct {
	byID     map[uuid.UUID]*BudgetLine
	children map[uuid.UUID][]uuid.UUID
	roots    []uuid.UUID
}

// BuildLineIndex indexes lines by id and parent id. It rejects unknown
// parents, level gaps and cycles.
func BuildLineIndex(lines []*BudgetLine) (*LineIndex, error) {
	idx := &LineIndex{
		byID:     make(map[uuid.UUID]*BudgetLine, len(lines)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, l := range lines {
		if _, dup := idx.byID[l.ID]; dup {
			return nil, NewValidationError("lines", fmt.Sprintf("duplicate line %s", l.ID))
		}
		idx.byID[l.ID] = l
	}
	for _, l := range lines {
		if l.ParentID == nil {
			idx.roots = append(idx.roots, l.ID)
			continue
		}
		parent, ok := idx.byID[*l.ParentID]
		if !ok {
			return nil, NewValidationError("parent_id", fmt.Sprintf("line %s references unknown parent %s", l.ID, *l.ParentID))
		}
		if l.Level != parent.Level+1 {
			return nil, NewValidationError("level", fmt.Sprintf("line %s has level %d under a level-%d parent", l.ID, l.Level, parent.Level))
		}
		idx.children[parent.ID] = append(idx.children[parent.ID], l.ID)
	}

	// Every line must be reachable from a root, otherwise parent ids form a cycle.
	seen := make(map[uuid.UUID]bool, len(lines))
	var walk func(id uuid.UUID)
	walk = func(id uuid.UUID) {
		seen[id] = true
		for _, c := range idx.children[id] {
			if !seen[c] {
				walk(c)
			}
		}
	}
	for _, r := range idx.roots {
		walk(r)
	}
	if len(seen) != len(lines) {
		return nil, NewValidationError("parent_id", "line hierarchy contains a cycle")
	}

	idx.sortByCode(idx.roots)
	for _, c := range idx.children {
		idx.sortByCode(c)
	}
	return idx, nil
}

func (x *LineIndex) sortByCode(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return x.byID[ids[i]].Code < x.byID[ids[j]].Code
	})
}

func (x *LineIndex) Line(id uuid.UUID) (*BudgetLine, bool) {
	l, ok := x.byID[id]
	return l, ok
}

func (x *LineIndex) Roots() []uuid.UUID { return x.roots }

func (x *LineIndex) Children(id uuid.UUID) []uuid.UUID { return x.children[id] }

// Rollup sums a line and all of its descendants.
func (x *LineIndex) Rollup(id uuid.UUID) (Totals, error) {
	l, ok := x.byID[id]
	if !ok {
		return Totals{}, NewValidationError("line_id", fmt.Sprintf("unknown line %s", id))
	}
	totals := Totals{}.add(l)
	for _, c := range x.children[id] {
		sub, err := x.Rollup(c)
		if err != nil {
			return Totals{}, err
		}
		totals = Totals{
			Committed: totals.Committed.Add(sub.Committed),
			Reserved:  totals.Reserved.Add(sub.Reserved),
			Spent:     totals.Spent.Add(sub.Spent),
		}
	}
	return totals, nil
}

// GrandTotal sums every line once.
func (x *LineIndex) GrandTotal() Totals {
	var t Totals
	for _, l := range x.byID {
		t = t.add(l)
	}
	return t
}
