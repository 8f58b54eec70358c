// Package bodyrouter implements the text/binary routing and
// character-level text merge that backs every write() call (spec.md
// §4.6). It decides whether a write's content lands in a per-file CRDT
// text document (via docrepo) or in the content-addressed blob store,
// and on re-write of an existing text file it merges character by
// character instead of replacing the whole document.
package bodyrouter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"github.com/keshon/vfsengine/internal/blobstore"
	"github.com/keshon/vfsengine/internal/docrepo"
	"github.com/keshon/vfsengine/internal/textmerge"
	"github.com/keshon/vfsengine/internal/vfstypes"
)

// Kind is the outcome of Classify.
type Kind int

const (
	KindText Kind = iota
	KindBinary
)

// Content is write() input exactly as the caller supplied it: either a
// string (always text) or raw bytes (text only if strictly valid UTF-8).
// Use TextContent/BytesContent to build one; the zero value classifies
// as empty text.
type Content struct {
	text  *string
	bytes []byte
}

// TextContent wraps a caller-supplied string. Per spec.md §4.6, a string
// argument is never sniffed; it is always text.
func TextContent(s string) Content { return Content{text: &s} }

// BytesContent wraps caller-supplied raw bytes, classified by strict
// UTF-8 validity in Write.
func BytesContent(b []byte) Content { return Content{bytes: b} }

// Classify reports whether content is text or binary, and the decoded
// text when it is.
func Classify(c Content) (kind Kind, text string, raw []byte) {
	if c.text != nil {
		return KindText, *c.text, nil
	}
	if utf8.Valid(c.bytes) {
		return KindText, string(c.bytes), nil
	}
	return KindBinary, "", c.bytes
}

// Body is the pair of document pointers a TreeEntry's file body carries
// (spec.md invariant 4: exactly one of these is set) plus the byte size
// to stamp into the entry's metadata.
type Body struct {
	TextDocID string
	BlobHash  string
	Size      uint64
}

// Result is what Write hands back to the caller: the new body, the
// already-open handle for a text write (so the caller's handle cache
// can record it without a redundant Find), and, when a binary overwrite
// orphaned a text document, the id of the text handle the caller's
// cache must evict (the CRDT document itself is left alone -- see the
// design notes on orphaned text documents).
type Result struct {
	Body           Body
	TextHandle     docrepo.Handle
	EvictTextDocID string
}

// Router routes write() bodies between a text-document repo and a blob
// store, and performs the character-level merge spec.md §4.6 requires
// instead of ever replacing a text document's whole content.
type Router struct {
	docs         *docrepo.Repo
	blobs        *blobstore.Store
	chunkSizeMax int
}

// New returns a Router that creates/merges text documents through docs
// and stores binary bodies through blobs. A binary write larger than
// chunkSizeMax bytes is staged through blobs.SetLarge instead of
// blobs.Set (vfsconfig.Config.ChunkSizeMax); chunkSizeMax <= 0 disables
// the threshold and every binary write uses Set.
func New(docs *docrepo.Repo, blobs *blobstore.Store, chunkSizeMax int) *Router {
	return &Router{docs: docs, blobs: blobs, chunkSizeMax: chunkSizeMax}
}

// Write implements spec.md §4.6's Write(path, content, existing_entry).
// existing, hadExisting describe the file entry being overwritten, or
// the zero value when this is a fresh create.
func (router *Router) Write(existing vfstypes.TreeEntry, hadExisting bool, content Content) (Result, error) {
	kind, text, raw := Classify(content)

	switch kind {
	case KindBinary:
		return router.writeBinary(existing, hadExisting, raw)
	default:
		return router.writeText(existing, hadExisting, text)
	}
}

func (router *Router) writeBinary(existing vfstypes.TreeEntry, hadExisting bool, raw []byte) (Result, error) {
	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])

	var err error
	if router.chunkSizeMax > 0 && len(raw) > router.chunkSizeMax {
		err = router.blobs.SetLarge(hash, raw)
	} else {
		err = router.blobs.Set(hash, raw)
	}
	if err != nil {
		return Result{}, fmt.Errorf("write blob body: %w", err)
	}

	res := Result{Body: Body{BlobHash: hash, Size: uint64(len(raw))}}
	if hadExisting && existing.HasText() {
		// The CRDT document is left in place; only the engine's
		// in-memory handle cache needs to forget it.
		res.EvictTextDocID = existing.TextDocID
	}
	return res, nil
}

func (router *Router) writeText(existing vfstypes.TreeEntry, hadExisting bool, target string) (Result, error) {
	var handle docrepo.Handle
	var err error

	if hadExisting && existing.HasText() {
		handle, err = router.docs.Find(existing.TextDocID, docrepo.KindText)
		if err != nil {
			return Result{}, fmt.Errorf("open text document %q: %w", existing.TextDocID, err)
		}
		if err := router.mergeInto(handle, target); err != nil {
			return Result{}, err
		}
	} else {
		handle = router.docs.CreateText()
		if err := router.seedText(handle, target); err != nil {
			return Result{}, err
		}
	}

	if hadExisting && existing.HasBlob() {
		if err := router.blobs.Delete(existing.BlobHash); err != nil {
			return Result{}, fmt.Errorf("delete superseded blob %q: %w", existing.BlobHash, err)
		}
	}

	return Result{
		Body: Body{
			TextDocID: handle.ID,
			Size:      uint64(len([]byte(target))),
		},
		TextHandle: handle,
	}, nil
}

// seedText records target as a freshly created text document's first
// change. It never skips recording a change the way mergeInto does for
// a no-op rewrite: a document that exists has to have written
// something to get there, even write(p, "") on a brand-new path, so
// file_history is never empty for a file that exists.
func (router *Router) seedText(handle docrepo.Handle, target string) error {
	err := router.docs.Change(handle, nil, func(m *docrepo.Mutation) error {
		m.Splice(0, 0, target)
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed text document %q: %w", handle.ID, err)
	}
	return nil
}

// mergeInto rewrites handle's content to equal target via the minimal
// Myers-diff splice sequence (spec.md §4.6's character-level text
// merge), read and written inside a single docrepo.Change so the diff is
// computed against the exact state it is applied to.
func (router *Router) mergeInto(handle docrepo.Handle, target string) error {
	err := router.docs.Change(handle, nil, func(m *docrepo.Mutation) error {
		current := m.Text()
		if current == target {
			return nil
		}
		for _, s := range textmerge.Diff(current, target) {
			m.Splice(s.Offset, s.Delete, s.Insert)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("merge text document %q: %w", handle.ID, err)
	}
	return nil
}
