package model

import "github.com/lumipallolabs/shr/internal/paths"

// Node is the consumer-side record of one path. Nodes are created on first
// reference and only ever grow while a scan runs.
type Node struct {
	Parent   paths.ID
	Children []paths.ID // insertion order, no duplicates

	// Size is the running aggregate; HasSize is false until something has
	// been measured under this node
	Size    uint64
	HasSize bool
	Files   uint64
	IsFile  bool

	// Linked is set once the node has been appended to its parent's
	// children. Complete is set by the directory's completion event.
	Linked   bool
	Complete bool
}

// AddSize folds a child's contribution into the running aggregate
func (n *Node) AddSize(size, files uint64) {
	n.Size += size
	n.Files += files
	n.HasSize = true
}

// SetTotals replaces the running aggregate with final totals
func (n *Node) SetTotals(size, files uint64) {
	n.Size = size
	n.Files = files
	n.HasSize = true
}

// KnownSize returns the size, or 0 while nothing is known
func (n *Node) KnownSize() uint64 {
	if n == nil || !n.HasSize {
		return 0
	}
	return n.Size
}
