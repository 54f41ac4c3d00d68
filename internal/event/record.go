package event

import (
	"encoding/json"

	"github.com/lumipallolabs/shr/internal/paths"
)

// Resolver turns path handles back into paths
type Resolver interface {
	Resolve(id paths.ID) (string, bool)
}

// Record is an event with its handles resolved for display. A nil Path or
// Parent means the handle was absent or unknown.
type Record struct {
	Kind     Kind
	Path     *string
	Parent   *string
	Size     uint64
	NumFiles uint64
}

// Resolve converts ev into a display record
func Resolve(ev Event, r Resolver) Record {
	rec := Record{
		Kind:     ev.Kind,
		Path:     lookup(r, ev.Path),
		Size:     ev.Size,
		NumFiles: ev.NumFiles,
	}
	if ev.Kind != DirCompleted {
		rec.Parent = lookup(r, ev.Parent)
	}
	return rec
}

func lookup(r Resolver, id paths.ID) *string {
	p, ok := r.Resolve(id)
	if !ok {
		return nil
	}
	return &p
}

type dirRecord struct {
	Type   string  `json:"type"`
	Path   *string `json:"path"`
	Parent *string `json:"parent"`
}

type fileRecord struct {
	Type   string  `json:"type"`
	Path   *string `json:"path"`
	Parent *string `json:"parent"`
	Size   uint64  `json:"size"`
}

type dirDoneRecord struct {
	Type     string  `json:"type"`
	Path     *string `json:"path"`
	Size     uint64  `json:"size"`
	NumFiles uint64  `json:"numFiles"`
}

// MarshalJSON encodes the record as a tagged object:
//
//	{"type":"dir","path":...,"parent":...}
//	{"type":"fileFinish","path":...,"parent":...,"size":...}
//	{"type":"dirFinish","path":...,"size":...,"numFiles":...}
func (r Record) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case DirEntered:
		return json.Marshal(dirRecord{Type: r.Kind.String(), Path: r.Path, Parent: r.Parent})
	case FileCompleted:
		return json.Marshal(fileRecord{Type: r.Kind.String(), Path: r.Path, Parent: r.Parent, Size: r.Size})
	case DirCompleted:
		return json.Marshal(dirDoneRecord{Type: r.Kind.String(), Path: r.Path, Size: r.Size, NumFiles: r.NumFiles})
	default:
		return nil, &json.UnsupportedValueError{Str: "event kind " + r.Kind.String()}
	}
}
