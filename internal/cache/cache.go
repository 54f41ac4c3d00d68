package cache

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/lumipallolabs/shr/internal/core"
	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/model"
	"github.com/lumipallolabs/shr/internal/paths"
)

const timeLayout = "2006-01-02_150405.000"

// Cache handles saving and loading reconstructed trees
type Cache struct {
	dir string
}

// New creates a new cache in the given directory
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Entry is one node of a snapshot. Entries are stored parent-first in
// children order, so replaying them rebuilds the same child lists.
type Entry struct {
	Path     string
	Parent   int // index into Entries, -1 for the scan root
	Size     uint64
	HasSize  bool
	Files    uint64
	IsFile   bool
	Complete bool
}

// Snapshot is the on-disk form of a tree
type Snapshot struct {
	Root      string
	Created   time.Time
	RootSize  uint64
	RootFiles uint64
	Complete  bool
	Entries   []Entry
}

// Loaded is a snapshot turned back into a tree
type Loaded struct {
	Root    string
	Created time.Time
	Tree    *core.Tree
	Paths   *paths.Interner
}

// key names the cache files of one scan root
func key(root string) string {
	return strconv.FormatUint(xxhash.Sum64String(filepath.Clean(root)), 16)
}

// Save writes tree as the newest snapshot for root and returns the file name
func (c *Cache) Save(root string, tree *core.Tree, r event.Resolver) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	snap := NewSnapshot(root, tree, r)
	filename := fmt.Sprintf("%s_%s.gob.gz", key(root), snap.Created.Format(timeLayout))
	path := filepath.Join(c.dir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzWriter)
	if err := encoder.Encode(snap); err != nil {
		gzWriter.Close()
		return "", fmt.Errorf("encode: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	return path, nil
}

// NewSnapshot flattens tree. Nodes unreachable from the synthetic root are
// not stored.
func NewSnapshot(root string, tree *core.Tree, r event.Resolver) *Snapshot {
	snap := &Snapshot{Root: root, Created: time.Now()}
	top, ok := tree.Node(paths.None)
	if !ok {
		return snap
	}
	snap.RootSize, snap.RootFiles, snap.Complete = top.Size, top.Files, top.Complete

	type item struct {
		id     paths.ID
		parent int
	}
	stack := make([]item, 0, len(top.Children))
	for i := len(top.Children) - 1; i >= 0; i-- {
		stack = append(stack, item{id: top.Children[i], parent: -1})
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, ok := tree.Node(it.id)
		if !ok {
			continue
		}
		path, ok := r.Resolve(it.id)
		if !ok {
			continue
		}
		idx := len(snap.Entries)
		snap.Entries = append(snap.Entries, Entry{
			Path:     path,
			Parent:   it.parent,
			Size:     n.Size,
			HasSize:  n.HasSize,
			Files:    n.Files,
			IsFile:   n.IsFile,
			Complete: n.Complete,
		})
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{id: n.Children[i], parent: idx})
		}
	}
	return snap
}

// Restore rebuilds a tree with fresh handles
func (s *Snapshot) Restore() *Loaded {
	interner := paths.NewInterner()
	nodes := map[paths.ID]*model.Node{
		paths.None: {
			Size:     s.RootSize,
			HasSize:  s.RootSize > 0 || s.RootFiles > 0,
			Files:    s.RootFiles,
			Complete: s.Complete,
		},
	}

	ids := make([]paths.ID, len(s.Entries))
	for i, e := range s.Entries {
		id := interner.Intern(e.Path)
		ids[i] = id

		parent := paths.None
		if e.Parent >= 0 && e.Parent < i {
			parent = ids[e.Parent]
		}
		nodes[id] = &model.Node{
			Parent:   parent,
			Size:     e.Size,
			HasSize:  e.HasSize,
			Files:    e.Files,
			IsFile:   e.IsFile,
			Complete: e.Complete,
			Linked:   true,
		}
		nodes[parent].Children = append(nodes[parent].Children, id)
	}

	return &Loaded{
		Root:    s.Root,
		Created: s.Created,
		Tree:    core.NewTreeFromNodes(nodes),
		Paths:   interner,
	}
}

// LoadLatest loads the most recent snapshot for root
func (c *Cache) LoadLatest(root string) (*Loaded, error) {
	latest, err := c.latest(root)
	if err != nil {
		return nil, err
	}
	return Load(latest)
}

// Load reads a snapshot file
func Load(path string) (*Loaded, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gzReader.Close()

	var snap Snapshot
	decoder := gob.NewDecoder(gzReader)
	if err := decoder.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return snap.Restore(), nil
}

// Timestamp returns the timestamp of the latest snapshot for root
func (c *Cache) Timestamp(root string) (time.Time, error) {
	latest, err := c.latest(root)
	if err != nil {
		return time.Time{}, err
	}

	// Extract timestamp from filename
	base := filepath.Base(latest)
	base = strings.TrimSuffix(base, ".gob.gz")
	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid filename")
	}
	return time.ParseInLocation(timeLayout, parts[1], time.Local)
}

func (c *Cache) latest(root string) (string, error) {
	pattern := filepath.Join(c.dir, key(root)+"_*.gob.gz")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("glob: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no cache found for %s", root)
	}

	// Sort to get latest (filenames include timestamp)
	sort.Strings(files)
	return files[len(files)-1], nil
}
