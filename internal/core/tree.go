package core

import (
	"path/filepath"

	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/model"
	"github.com/lumipallolabs/shr/internal/paths"
	"github.com/lumipallolabs/shr/internal/units"
)

// Tree rebuilds the aggregate tree from a scan's event stream and tracks the
// navigation focus. It is not safe for concurrent use; Controller guards it.
type Tree struct {
	nodes map[paths.ID]*model.Node
	focus paths.ID

	// FocusAffected is set when an applied event or a navigation changed
	// what View would return. View clears it.
	FocusAffected bool

	TotalEntries   int
	InProgressDirs int
	EventsApplied  int
}

// View is the focused node and its ranked children
type View struct {
	Current  model.CurrentView
	Children []model.ChildView
	RootSize uint64
}

// NewTree creates a tree holding only the synthetic root
func NewTree() *Tree {
	return &Tree{
		nodes: map[paths.ID]*model.Node{paths.None: {}},
	}
}

// NewTreeFromNodes wraps nodes restored from a snapshot. A synthetic root is
// added if missing.
func NewTreeFromNodes(nodes map[paths.ID]*model.Node) *Tree {
	if _, ok := nodes[paths.None]; !ok {
		nodes[paths.None] = &model.Node{}
	}
	t := &Tree{nodes: nodes, TotalEntries: len(nodes) - 1}
	for id, n := range nodes {
		if id != paths.None && !n.IsFile && !n.Complete {
			t.InProgressDirs++
		}
	}
	return t
}

// Node returns the node for id
func (t *Tree) Node(id paths.ID) (*model.Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Nodes returns the backing map. Callers must not modify it.
func (t *Tree) Nodes() map[paths.ID]*model.Node {
	return t.nodes
}

// Focus returns the focused node; paths.None is the synthetic root
func (t *Tree) Focus() paths.ID {
	return t.focus
}

// node returns the node for id, creating it on first reference
func (t *Tree) node(id paths.ID) *model.Node {
	n, ok := t.nodes[id]
	if !ok {
		n = &model.Node{}
		t.nodes[id] = n
		t.TotalEntries++
	}
	return n
}

// link appends id to its parent's children the first time it is seen
func (t *Tree) link(id paths.ID, n *model.Node) *model.Node {
	parent := t.node(n.Parent)
	if !n.Linked {
		parent.Children = append(parent.Children, id)
		n.Linked = true
	}
	return parent
}

// Apply folds one event into the tree
func (t *Tree) Apply(ev event.Event) {
	t.EventsApplied++

	switch ev.Kind {
	case event.DirEntered:
		n := t.node(ev.Path)
		n.Parent = ev.Parent
		t.link(ev.Path, n)
		if !n.Complete {
			t.InProgressDirs++
		}
		t.touch(ev.Path, n)

	case event.FileCompleted:
		n := t.node(ev.Path)
		n.Parent = ev.Parent
		n.IsFile = true
		parent := t.link(ev.Path, n)
		if !n.Complete {
			n.SetTotals(ev.Size, 1)
			n.Complete = true
			parent.AddSize(ev.Size, 1)
		}
		t.touch(ev.Path, n)

	case event.DirCompleted:
		n := t.node(ev.Path)
		wasComplete := n.Complete
		n.SetTotals(ev.Size, ev.NumFiles)
		n.Complete = true
		if !wasComplete {
			if t.InProgressDirs > 0 {
				t.InProgressDirs--
			}
			parent := t.node(n.Parent)
			parent.AddSize(ev.Size, ev.NumFiles)
			if n.Parent == paths.None {
				parent.Complete = true
			}
		}
		t.touch(ev.Path, n)
	}
}

// touch flags the view as stale when id is the focus, a child of the focus,
// or the focus's parent
func (t *Tree) touch(id paths.ID, n *model.Node) {
	if id == t.focus || n.Parent == t.focus {
		t.FocusAffected = true
		return
	}
	if focus, ok := t.nodes[t.focus]; ok && focus.Parent == id {
		t.FocusAffected = true
	}
}

// GotoParent moves the focus one level up. At the root it does nothing.
func (t *Tree) GotoParent() {
	if t.focus == paths.None {
		return
	}
	parent := paths.None
	if n, ok := t.nodes[t.focus]; ok {
		parent = n.Parent
	}
	t.focus = parent
	t.FocusAffected = true
}

// Goto focuses id. Unknown ids focus the root.
func (t *Tree) Goto(id paths.ID) {
	if _, ok := t.nodes[id]; !ok {
		id = paths.None
	}
	t.focus = id
	t.FocusAffected = true
}

// GotoPath focuses a handle given as decimal text. Malformed or unknown
// handles focus the root.
func (t *Tree) GotoPath(raw string) {
	id, ok := paths.ParseID(raw)
	if !ok {
		id = paths.None
	}
	t.Goto(id)
}

// View computes the focused node and its children ranked by share of the
// focused node, and clears FocusAffected
func (t *Tree) View(r event.Resolver, mode units.Mode) View {
	t.FocusAffected = false

	rootSize := model.RootSize(t.nodes[paths.None])
	cur := t.node(t.focus)
	curSize := cur.KnownSize()

	var parentSize uint64
	if t.focus != paths.None {
		parentSize = t.nodes[cur.Parent].KnownSize()
	}

	path, _ := r.Resolve(t.focus)
	v := View{
		RootSize: rootSize,
		Current: model.CurrentView{
			ID:        t.focus,
			Path:      path,
			Size:      curSize,
			HumanSize: units.Format(curSize, mode),
			Files:     cur.Files,
			Ratio:     model.Ratio(curSize, parentSize),
			AllRatio:  model.Ratio(curSize, rootSize),
			IsFile:    cur.IsFile,
			Complete:  cur.Complete,
		},
		Children: make([]model.ChildView, 0, len(cur.Children)),
	}

	for _, id := range cur.Children {
		c := t.nodes[id]
		size := c.KnownSize()
		childPath, _ := r.Resolve(id)
		v.Children = append(v.Children, model.ChildView{
			ID:        id,
			Path:      childPath,
			Name:      filepath.Base(childPath),
			Size:      size,
			HumanSize: units.Format(size, mode),
			Files:     c.Files,
			Ratio:     model.Ratio(size, curSize),
			AllRatio:  model.Ratio(size, rootSize),
			IsFile:    c.IsFile,
			Complete:  c.Complete,
		})
	}
	model.SortByRatio(v.Children)
	return v
}
