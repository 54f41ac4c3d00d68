// Package paths maps filesystem paths to small stable integer handles.
package paths

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// ID is an interned path handle. Valid IDs are strictly positive.
type ID uint64

// None is the reserved "no parent" handle. The consumer tree uses it for the
// synthetic node above the scan root.
const None ID = 0

// String returns the decimal form accepted by ParseID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a decimal handle. It reports false for malformed input and
// for None.
func ParseID(raw string) (ID, bool) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return None, false
	}
	return ID(n), true
}

const shardCount = 64

type forwardShard struct {
	mu  sync.Mutex
	ids map[string]ID
}

type reverseShard struct {
	mu    sync.RWMutex
	paths map[ID]string
}

// Interner is an append-only bidirectional path table safe for concurrent use.
type Interner struct {
	next    atomic.Uint64
	forward [shardCount]forwardShard
	reverse [shardCount]reverseShard
}

// NewInterner creates an empty interner
func NewInterner() *Interner {
	in := &Interner{}
	for i := range in.forward {
		in.forward[i].ids = make(map[string]ID)
		in.reverse[i].paths = make(map[ID]string)
	}
	return in
}

// Intern returns the handle for path, allocating one on first sight.
func (in *Interner) Intern(path string) ID {
	fs := &in.forward[xxhash.Sum64String(path)%shardCount]

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if id, ok := fs.ids[path]; ok {
		return id
	}
	id := ID(in.next.Add(1))
	fs.ids[path] = id

	// Published before the forward lock is released so a caller that got id
	// from Intern can always resolve it.
	rs := &in.reverse[uint64(id)%shardCount]
	rs.mu.Lock()
	rs.paths[id] = path
	rs.mu.Unlock()

	return id
}

// Resolve returns the path interned under id.
func (in *Interner) Resolve(id ID) (string, bool) {
	if id == None {
		return "", false
	}
	rs := &in.reverse[uint64(id)%shardCount]
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	p, ok := rs.paths[id]
	return p, ok
}

// Len returns the number of interned paths
func (in *Interner) Len() int {
	return int(in.next.Load())
}
