// Package treemodel implements the invariants and operations over the
// flat path -> TreeEntry map that lives inside the root document. It
// never touches storage directly: Put and Remove edit the map in place,
// and callers are responsible for recording those edits through docrepo
// inside one DocumentRepo.Change.
package treemodel

import (
	"sort"

	"github.com/keshon/vfsengine/internal/pathmodel"
	"github.com/keshon/vfsengine/internal/vfstypes"
)

// Tree is the reduced state of a root document: every path currently
// known to the filesystem, keyed by its normalized form.
type Tree map[string]vfstypes.TreeEntry

// New returns a tree containing only the root directory entry, as
// produced by VersionedFs.open_new (spec.md §4.7).
func New(now int64) Tree {
	return Tree{
		pathmodel.Root: {
			Kind:   vfstypes.KindDirectory,
			Parent: "",
			Name:   pathmodel.Root,
			Metadata: vfstypes.Metadata{
				Mode:  0o755,
				Mtime: now,
				Ctime: now,
			},
		},
	}
}

// Get returns the entry at path and whether it exists.
func (t Tree) Get(path string) (vfstypes.TreeEntry, bool) {
	e, ok := t[pathmodel.Normalize(path)]
	return e, ok
}

// Put inserts or replaces the entry at path. The caller guarantees
// spec.md invariants 1-6 hold after the call.
func (t Tree) Put(path string, entry vfstypes.TreeEntry) {
	t[pathmodel.Normalize(path)] = entry
}

// Remove deletes the entry at path only; recursion is a caller concern.
func (t Tree) Remove(path string) {
	delete(t, pathmodel.Normalize(path))
}

// Children returns every entry whose parent is path, in a stable
// (name-sorted) order. Order is unspecified by spec.md but must be
// stable within one snapshot; sorting by name gives that for free.
func (t Tree) Children(path string) []vfstypes.TreeEntry {
	path = pathmodel.Normalize(path)
	var out []vfstypes.TreeEntry
	for _, e := range t {
		if e.Parent == path {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllPaths returns every key in the map, sorted.
func (t Tree) AllPaths() []string {
	out := make([]string, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep-enough copy for a mutator to edit without aliasing
// the pre-mutation snapshot readers may still be holding.
func (t Tree) Clone() Tree {
	clone := make(Tree, len(t))
	for k, v := range t {
		clone[k] = v
	}
	return clone
}

// Walk visits path and every descendant entry depth-first, parents
// before children, in name order. Used by rm(recursive); cp(recursive)
// recurses over Children itself. Exported because any caller doing a recursive tree
// scan would otherwise have to reimplement Children recursion itself.
func (t Tree) Walk(path string, fn func(p string, e vfstypes.TreeEntry) error) error {
	path = pathmodel.Normalize(path)
	entry, ok := t.Get(path)
	if !ok {
		return nil
	}
	if err := fn(path, entry); err != nil {
		return err
	}
	if !entry.IsDir() {
		return nil
	}
	for _, child := range t.Children(path) {
		childPath := pathmodel.Join(path, child.Name)
		if err := t.Walk(childPath, fn); err != nil {
			return err
		}
	}
	return nil
}
