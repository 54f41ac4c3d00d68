// Package event defines the scan event protocol and the queue that carries it.
package event

import "github.com/lumipallolabs/shr/internal/paths"

// Kind identifies an event type
type Kind uint8

const (
	// DirEntered is sent when a directory is identified and entered
	DirEntered Kind = iota + 1
	// FileCompleted is sent when a regular file has been measured
	FileCompleted
	// DirCompleted is sent when a directory's whole subtree has been measured
	DirCompleted
)

// String returns the wire tag for the kind
func (k Kind) String() string {
	switch k {
	case DirEntered:
		return "dir"
	case FileCompleted:
		return "fileFinish"
	case DirCompleted:
		return "dirFinish"
	default:
		return "unknown"
	}
}

// Event is one scan notification. Which fields are meaningful depends on Kind:
//
//	DirEntered     Path, Parent
//	FileCompleted  Path, Parent, Size
//	DirCompleted   Path, Size, NumFiles (recursive totals)
//
// Parent is paths.None for the scan root.
type Event struct {
	Kind     Kind
	Path     paths.ID
	Parent   paths.ID
	Size     uint64
	NumFiles uint64
}

// Entered builds a DirEntered event
func Entered(path, parent paths.ID) Event {
	return Event{Kind: DirEntered, Path: path, Parent: parent}
}

// FileDone builds a FileCompleted event
func FileDone(path, parent paths.ID, size uint64) Event {
	return Event{Kind: FileCompleted, Path: path, Parent: parent, Size: size}
}

// DirDone builds a DirCompleted event
func DirDone(path paths.ID, size, numFiles uint64) Event {
	return Event{Kind: DirCompleted, Path: path, Size: size, NumFiles: numFiles}
}

// IsCompletion reports whether the event closes out a path
func (e Event) IsCompletion() bool {
	return e.Kind == FileCompleted || e.Kind == DirCompleted
}
