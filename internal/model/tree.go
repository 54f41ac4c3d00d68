package model

import (
	"sort"

	"github.com/lumipallolabs/shr/internal/paths"
)

// CurrentView describes the focused node
type CurrentView struct {
	ID        paths.ID
	Path      string
	Size      uint64
	HumanSize string
	Files     uint64
	Ratio     float64 // share of the parent
	AllRatio  float64 // share of the whole scan
	IsFile    bool
	Complete  bool
}

// ChildView is one row of the rank view
type ChildView struct {
	ID        paths.ID
	Path      string
	Name      string
	Size      uint64
	HumanSize string
	Files     uint64
	Ratio     float64 // share of the focused node
	AllRatio  float64
	IsFile    bool
	Complete  bool
}

// Ratio returns part/whole clamped to [0,1]; 0 when whole is 0
func Ratio(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	r := float64(part) / float64(whole)
	if r > 1 {
		return 1
	}
	return r
}

// RootSize returns the divisor for all-ratios: the root's size, or 1 when it
// is unknown or zero
func RootSize(root *Node) uint64 {
	if size := root.KnownSize(); size > 0 {
		return size
	}
	return 1
}

// SortByRatio sorts rows by share of the parent descending. Equal rows keep
// their input order.
func SortByRatio(rows []ChildView) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Ratio > rows[j].Ratio
	})
}
