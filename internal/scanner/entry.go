package scanner

import (
	"os"
	"path/filepath"

	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/logging"
	"github.com/lumipallolabs/shr/internal/paths"
)

type entryKind uint8

const (
	// kindSkip contributes nothing and emits no event: failed metadata,
	// unfollowed or broken symlinks, sockets, devices, fifos
	kindSkip entryKind = iota
	kindFile
	kindDir
)

// entry is a classified filesystem entry. Children of a followed directory
// link are listed under the link's own path, not the target's.
type entry struct {
	kind entryKind
	path string
	size uint64
	key  any // directory identity, set for kindDir
}

// ancestry is the chain of directory identities from the root down to the
// directory being listed. A followed link can only loop by pointing back
// into this chain.
type ancestry struct {
	key    any
	parent *ancestry
}

func (a *ancestry) child(key any) *ancestry {
	return &ancestry{key: key, parent: a}
}

func (a *ancestry) contains(key any) bool {
	for ; a != nil; a = a.parent {
		if a.key == key {
			return true
		}
	}
	return false
}

// outerAncestry returns the directories above root, outermost first. Links
// that climb out of the scan and back over root are cut against it, the
// same way fastwalk checks every lexical parent of a link.
func outerAncestry(root string) *ancestry {
	var dirs []string
	for dir := filepath.Dir(root); ; dir = filepath.Dir(dir) {
		dirs = append(dirs, dir)
		if dir == filepath.Dir(dir) {
			break
		}
	}
	var a *ancestry
	for i := len(dirs) - 1; i >= 0; i-- {
		if info, err := os.Stat(dirs[i]); err == nil {
			a = a.child(dirKey(dirs[i], info))
		}
	}
	return a
}

// scanState is shared by every goroutine of one session
type scanState struct {
	paths    *paths.Interner
	events   *event.Stream
	follow   bool
	progress progressCounters
}

func newScanState(interner *paths.Interner, stream *event.Stream, follow bool) *scanState {
	return &scanState{paths: interner, events: stream, follow: follow}
}

// emit sends ev; a dropped consumer is not an error, the scan keeps measuring
func (s *scanState) emit(ev event.Event) {
	s.events.Send(ev)
}

func (s *scanState) fail(op, path string, err error) {
	s.progress.errors.Add(1)
	logging.Scanner.WithError(err).WithField("op", op).WithField("path", path).Debug("skipping entry")
}

// classify queries metadata for path, following symlinks when enabled.
// parents holds the directories path sits under; a link that resolves to
// one of them is skipped.
func (s *scanState) classify(path string, parents *ancestry) entry {
	info, err := os.Lstat(path)
	if err != nil {
		s.fail("lstat", path, err)
		return entry{kind: kindSkip}
	}

	linked := info.Mode()&os.ModeSymlink != 0
	if linked {
		if !s.follow {
			return entry{kind: kindSkip}
		}
		// Stat resolves the whole chain and reports ELOOP for cycles
		info, err = os.Stat(path)
		if err != nil {
			s.fail("stat", path, err)
			return entry{kind: kindSkip}
		}
	}

	switch {
	case info.Mode().IsRegular():
		size := uint64(info.Size())
		s.progress.files.Add(1)
		s.progress.bytes.Add(int64(size))
		return entry{kind: kindFile, path: path, size: size}
	case info.IsDir():
		key := dirKey(path, info)
		if linked && parents.contains(key) {
			logging.Scanner.WithField("path", path).Debug("link points at an enclosing directory")
			return entry{kind: kindSkip}
		}
		return entry{kind: kindDir, path: path, key: key}
	default:
		return entry{kind: kindSkip}
	}
}

// readDir lists the names under dir. Failures are logged and counted.
func (s *scanState) readDir(dir string) ([]string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.fail("readdir", dir, err)
		return nil, false
	}
	s.progress.dirs.Add(1)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, true
}
