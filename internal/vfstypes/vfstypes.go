// Package vfstypes holds the data-model types shared across the
// versioned filesystem packages (docrepo, treemodel, bodyrouter,
// vfsengine) so none of them has to import another's internals just to
// describe a tree entry.
package vfstypes

// Kind distinguishes a directory entry from a file entry.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Metadata is the subset of POSIX-ish stat fields this engine stores.
// Mode and timestamps are stored but never enforced (spec.md §1 Non-goals).
type Metadata struct {
	Size  uint64
	Mode  uint16
	Mtime int64
	Ctime int64
}

// TreeEntry is the record kept at each normalized path in the root
// document's tree map. Parent is the empty string for the root entry
// (spec.md invariant 1: "parent=absent"); every other entry carries its
// real normalized parent path, which is never empty.
type TreeEntry struct {
	Kind     Kind
	Parent   string
	Name     string
	Metadata Metadata

	// Body: exactly one of these is non-empty for a file entry, and both
	// are empty for a directory entry (spec.md invariants 4 and 5).
	TextDocID string
	BlobHash  string
}

// IsDir reports whether the entry is a directory.
func (e TreeEntry) IsDir() bool { return e.Kind == KindDirectory }

// IsFile reports whether the entry is a file.
func (e TreeEntry) IsFile() bool { return e.Kind == KindFile }

// HasText reports whether the file entry's body is a text document.
func (e TreeEntry) HasText() bool { return e.Kind == KindFile && e.TextDocID != "" }

// HasBlob reports whether the file entry's body is a blob.
func (e TreeEntry) HasBlob() bool { return e.Kind == KindFile && e.BlobHash != "" }

// DirEntry is one row returned by a directory listing.
type DirEntry struct {
	Name string
	Kind Kind
}

// FileStat is the public projection of a TreeEntry returned by Stat.
type FileStat struct {
	Kind     Kind
	Size     uint64
	Mode     uint16
	Mtime    int64
	Ctime    int64
	IsBinary bool
}
