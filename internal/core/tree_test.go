package core

import (
	"math"
	"testing"

	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/paths"
	"github.com/lumipallolabs/shr/internal/units"
)

type mapResolver map[paths.ID]string

func (m mapResolver) Resolve(id paths.ID) (string, bool) {
	p, ok := m[id]
	return p, ok
}

const (
	rootID paths.ID = iota + 1
	aID
	bID
	cID
	dID
)

var sample = mapResolver{
	rootID: "/r",
	aID:    "/r/a",
	bID:    "/r/b",
	cID:    "/r/c",
	dID:    "/r/c/d",
}

// sampleEvents is the stream for a (10), b (20) and c/d (5)
func sampleEvents() []event.Event {
	return []event.Event{
		event.Entered(rootID, paths.None),
		event.FileDone(aID, rootID, 10),
		event.FileDone(bID, rootID, 20),
		event.Entered(cID, rootID),
		event.FileDone(dID, cID, 5),
		event.DirDone(cID, 5, 1),
		event.DirDone(rootID, 35, 3),
	}
}

func applyAll(t *Tree, events []event.Event) {
	for _, ev := range events {
		t.Apply(ev)
	}
}

func TestTreeAggregates(t *testing.T) {
	tree := NewTree()
	applyAll(tree, sampleEvents())

	root, _ := tree.Node(rootID)
	if root.Size != 35 || root.Files != 3 || !root.Complete {
		t.Errorf("expected complete root 35/3, got %+v", root)
	}
	synthetic, _ := tree.Node(paths.None)
	if synthetic.Size != 35 || len(synthetic.Children) != 1 {
		t.Errorf("expected synthetic root to hold the scan, got %+v", synthetic)
	}
	if len(root.Children) != 3 {
		t.Errorf("expected 3 children, got %v", root.Children)
	}
	if tree.TotalEntries != 5 || tree.InProgressDirs != 0 || tree.EventsApplied != 7 {
		t.Errorf("unexpected counters: entries=%d inProgress=%d applied=%d",
			tree.TotalEntries, tree.InProgressDirs, tree.EventsApplied)
	}
}

func TestTreeRunningAggregate(t *testing.T) {
	tree := NewTree()
	applyAll(tree, sampleEvents()[:5])

	root, _ := tree.Node(rootID)
	if root.Size != 30 || root.Files != 2 || root.Complete {
		t.Errorf("expected running 30/2 before c completes, got %+v", root)
	}
	c, _ := tree.Node(cID)
	if c.Size != 5 || c.Complete {
		t.Errorf("expected running 5 for c, got %+v", c)
	}
	if tree.InProgressDirs != 2 {
		t.Errorf("expected 2 directories in progress, got %d", tree.InProgressDirs)
	}
}

func TestTreeCompletionPropagatesOnce(t *testing.T) {
	tree := NewTree()
	events := sampleEvents()
	applyAll(tree, events[:6])
	tree.Apply(event.DirDone(cID, 5, 1))
	tree.Apply(events[6])

	synthetic, _ := tree.Node(paths.None)
	if synthetic.Size != 35 {
		t.Errorf("duplicate completion must not be counted twice, got %d", synthetic.Size)
	}
	root, _ := tree.Node(rootID)
	if len(root.Children) != 3 {
		t.Errorf("children must not be duplicated, got %v", root.Children)
	}
}

func TestTreeFocusAffected(t *testing.T) {
	tree := NewTree()
	applyAll(tree, sampleEvents()[:4])
	tree.Goto(cID)
	tree.View(sample, units.ModeSI)

	tree.Apply(event.FileDone(aID, rootID, 10))
	if tree.FocusAffected {
		t.Error("sibling of the focus should not affect the view")
	}

	tree.Apply(event.FileDone(dID, cID, 5))
	if !tree.FocusAffected {
		t.Error("child of the focus should affect the view")
	}

	tree.View(sample, units.ModeSI)
	tree.Apply(event.DirDone(rootID, 35, 3))
	if !tree.FocusAffected {
		t.Error("parent of the focus should affect the view")
	}
}

func TestTreeNavigation(t *testing.T) {
	tree := NewTree()
	applyAll(tree, sampleEvents())

	tree.GotoParent()
	if tree.Focus() != paths.None {
		t.Error("GotoParent at the root must stay at the root")
	}

	tree.Goto(cID)
	tree.GotoParent()
	if tree.Focus() != rootID {
		t.Errorf("expected focus on root dir, got %d", tree.Focus())
	}
	tree.GotoParent()
	tree.GotoParent()
	if tree.Focus() != paths.None {
		t.Errorf("expected synthetic root, got %d", tree.Focus())
	}

	tests := []struct {
		raw  string
		want paths.ID
	}{
		{"4", cID},
		{"999", paths.None},
		{"0", paths.None},
		{"-1", paths.None},
		{"not a number", paths.None},
	}
	for _, tt := range tests {
		tree.Goto(aID)
		tree.GotoPath(tt.raw)
		if tree.Focus() != tt.want {
			t.Errorf("GotoPath(%q) focused %d, want %d", tt.raw, tree.Focus(), tt.want)
		}
	}
}

func TestTreeView(t *testing.T) {
	tree := NewTree()
	applyAll(tree, sampleEvents())
	tree.Goto(rootID)

	v := tree.View(sample, units.ModeBytes)
	if tree.FocusAffected {
		t.Error("View should clear FocusAffected")
	}
	if v.RootSize != 35 {
		t.Errorf("expected root size 35, got %d", v.RootSize)
	}
	if v.Current.Path != "/r" || v.Current.HumanSize != "35B" || v.Current.Ratio != 1 || v.Current.AllRatio != 1 {
		t.Errorf("unexpected current view: %+v", v.Current)
	}

	want := []string{"b", "a", "c"}
	if len(v.Children) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(v.Children))
	}
	for i, name := range want {
		row := v.Children[i]
		if row.Name != name {
			t.Errorf("row %d: expected %s, got %s", i, name, row.Name)
		}
		if row.Ratio < 0 || row.Ratio > 1 || math.IsNaN(row.Ratio) {
			t.Errorf("row %s: ratio out of range: %v", row.Name, row.Ratio)
		}
	}
	if got := v.Children[0].Ratio; got != 20.0/35.0 {
		t.Errorf("expected b ratio 20/35, got %v", got)
	}
}

func TestTreeViewUnknownSizes(t *testing.T) {
	tree := NewTree()
	tree.Apply(event.Entered(rootID, paths.None))
	tree.Apply(event.Entered(cID, rootID))

	v := tree.View(sample, units.ModeSI)
	if v.RootSize != 1 {
		t.Errorf("unknown root size should count as 1, got %d", v.RootSize)
	}
	if v.Current.Ratio != 0 || v.Current.AllRatio != 0 {
		t.Errorf("expected zero ratios, got %+v", v.Current)
	}

	tree.Goto(rootID)
	v = tree.View(sample, units.ModeSI)
	for _, row := range v.Children {
		if row.Ratio != 0 || math.IsNaN(row.AllRatio) {
			t.Errorf("expected zero ratio for unknown sizes, got %+v", row)
		}
	}
}
