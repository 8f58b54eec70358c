// Package docrepo owns the CRDT-style documents that back the
// filesystem's root tree and every per-file text body. Each document is
// a causally ordered, append-only log of Changes; current state is the
// result of replaying that log. Because the engine fixes a single-writer
// model (spec.md §5), causal order reduces to log order, which keeps
// heads/history/view/diff simple without giving up the ability to
// reconstruct any prior state.
package docrepo

import (
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/keshon/vfsengine/internal/docstore"
	"github.com/keshon/vfsengine/internal/pathmodel"
	"github.com/keshon/vfsengine/internal/treemodel"
	"github.com/keshon/vfsengine/internal/vfserrors"
	"github.com/keshon/vfsengine/internal/vfstypes"
)

// Kind distinguishes the two document shapes spec.md §3 defines.
type Kind int

const (
	KindRoot Kind = iota
	KindText
)

// Handle is the durable, opaque identifier for one document. The root
// document's handle is the filesystem's public handle (spec.md §3).
type Handle struct {
	ID   string
	Kind Kind
}

// ChangeId identifies a point in a document's history. It is the 128-bit
// xxh3 fingerprint of the change that produced it -- fast and
// collision-resistant enough for a local, single-writer history browser,
// not a security boundary.
type ChangeId [16]byte

func (c ChangeId) String() string {
	return fmt.Sprintf("%x", c[:])
}

// IsZero reports whether c is the unset ChangeId.
func (c ChangeId) IsZero() bool { return c == ChangeId{} }

// TreePut is the patch payload for inserting or replacing a tree entry.
type TreePut struct {
	Path  string
	Entry vfstypes.TreeEntry
}

// TextSplice is the patch payload for a character-level edit: delete
// DeleteCount runes starting at Offset, then insert Insert at that
// position. Offset/DeleteCount are rune offsets, not byte offsets.
type TextSplice struct {
	Offset      int
	DeleteCount int
	Insert      string
}

// Patch is the closed sum of edits this engine's two document shapes can
// carry. A tree document only ever carries TreePut/TreeRemove; a text
// document only ever carries TextSplice.
type Patch struct {
	TreePut    *TreePut `json:"treePut,omitempty"`
	TreeRemove *string  `json:"treeRemove,omitempty"`
	TextSplice *TextSplice `json:"textSplice,omitempty"`
}

// Change is one committed mutation of a document.
type Change struct {
	ID        ChangeId
	Actor     string
	Seq       uint64
	Timestamp int64
	Message   *string
	Patch     Patch
}

// ChangeRecord is the public projection of a Change returned by History.
type ChangeRecord struct {
	Hash      ChangeId
	Actor     string
	Seq       uint64
	Timestamp int64
	Message   *string
}

// document is the in-memory reduction of one document's change log.
type document struct {
	handle  Handle
	changes []Change

	tree treemodel.Tree // valid when handle.Kind == KindRoot
	text []rune         // valid when handle.Kind == KindText
}

// Repo owns every open document and persists their change logs through a
// StorageBackend. Each method takes the Repo's own mutex for its
// duration; VersionedFs additionally serializes whole operations
// (spec.md §5).
type Repo struct {
	backend docstore.Backend
	actor   string
	clock   func() time.Time

	mu   sync.Mutex
	docs map[string]*document
	next uint64 // monotonic counter used to mint fresh document ids
}

// New constructs a Repo backed by backend, stamping every Change with
// actor (spec.md §4.3: "Changes are tagged with an actor identifier").
func New(backend docstore.Backend, actor string) *Repo {
	return &Repo{
		backend: backend,
		actor:   actor,
		clock:   time.Now,
		docs:    make(map[string]*document),
	}
}

// SetClock overrides the wall-clock source; tests use this for
// deterministic timestamps.
func (r *Repo) SetClock(clock func() time.Time) {
	r.clock = clock
}

func (r *Repo) freshID() string {
	r.next++
	return fmt.Sprintf("%s-%d-%x", r.actor, r.next, xxh3.HashString(fmt.Sprintf("%s/%d", r.actor, r.next)))
}

// CreateRoot allocates a fresh root document with an empty tree.
func (r *Repo) CreateRoot() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := Handle{ID: r.freshID(), Kind: KindRoot}
	r.docs[h.ID] = &document{handle: h, tree: treemodel.Tree{}}
	return h
}

// CreateText allocates a fresh text document with empty content.
func (r *Repo) CreateText() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := Handle{ID: r.freshID(), Kind: KindText}
	r.docs[h.ID] = &document{handle: h, text: []rune{}}
	return h
}

// Find loads an existing document by id and kind, replaying its change
// log from the backend if it is not already resident. It fails with
// ErrDocumentNotFound if the backend has no blocks for id.
func (r *Repo) Find(id string, kind Kind) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := Handle{ID: id, Kind: kind}
	if _, ok := r.docs[id]; ok {
		return h, nil
	}

	blocks, err := r.backend.LoadBlocks(id)
	if err != nil {
		return Handle{}, fmt.Errorf("load document %q: %w", id, err)
	}
	if len(blocks) == 0 {
		return Handle{}, fmt.Errorf("document %q: %w", id, vfserrors.ErrDocumentNotFound)
	}

	changes, err := decodeChangeBlocks(blocks)
	if err != nil {
		return Handle{}, fmt.Errorf("decode document %q: %w", id, vfserrors.ErrStorageFault)
	}

	doc := &document{handle: h}
	if kind == KindRoot {
		doc.tree = treemodel.Tree{}
	} else {
		doc.text = []rune{}
	}
	for _, c := range changes {
		if err := applyPatch(doc, c.Patch); err != nil {
			return Handle{}, fmt.Errorf("replay document %q: %w", id, vfserrors.ErrStorageFault)
		}
		doc.changes = append(doc.changes, c)
	}

	r.docs[id] = doc
	return h, nil
}

// Mutation is the narrow, kind-specific surface a DocumentRepo.Change
// callback is given to edit a document. Only the accessor matching the
// document's kind may be used; the other returns a zero value.
type Mutation struct {
	doc      *document
	patches  []Patch
}

// Tree returns the in-progress tree, valid only when the document is a
// root document. Edits made directly on it are not recorded as patches;
// PutEntry and RemoveEntry are the recording operations, each adding one
// patch per call.
func (m *Mutation) Tree() treemodel.Tree {
	return m.doc.tree
}

// PutEntry records a tree-put patch for path/entry and applies it to the
// in-progress snapshot so subsequent reads within the same mutator
// observe it.
func (m *Mutation) PutEntry(path string, entry vfstypes.TreeEntry) {
	path = pathmodel.Normalize(path)
	m.doc.tree.Put(path, entry)
	m.patches = append(m.patches, Patch{TreePut: &TreePut{Path: path, Entry: entry}})
}

// RemoveEntry records a tree-remove patch for path.
func (m *Mutation) RemoveEntry(path string) {
	path = pathmodel.Normalize(path)
	m.doc.tree.Remove(path)
	p := path
	m.patches = append(m.patches, Patch{TreeRemove: &p})
}

// Text returns the current text content, valid only when the document
// is a text document.
func (m *Mutation) Text() string {
	return string(m.doc.text)
}

// Splice records and applies a character-level text edit.
func (m *Mutation) Splice(offset, deleteCount int, insert string) {
	insertRunes := []rune(insert)
	tail := append([]rune{}, m.doc.text[offset+deleteCount:]...)
	head := append([]rune{}, m.doc.text[:offset]...)
	m.doc.text = append(append(head, insertRunes...), tail...)
	m.patches = append(m.patches, Patch{TextSplice: &TextSplice{
		Offset:      offset,
		DeleteCount: deleteCount,
		Insert:      insert,
	}})
}

// Change applies mutator atomically to the document identified by
// handle: either every patch it records commits, or (if mutator
// returns an error) none do. Changes are persisted through the backend
// before Change returns.
func (r *Repo) Change(handle Handle, message *string, mutator func(*Mutation) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[handle.ID]
	if !ok {
		return fmt.Errorf("change %q: %w", handle.ID, vfserrors.ErrDocumentNotFound)
	}

	// Snapshot pre-state so a failing mutator leaves the document
	// unchanged (spec.md §4.3 failure policy).
	preTree := doc.tree.Clone()
	preText := append([]rune{}, doc.text...)

	m := &Mutation{doc: doc}
	if err := mutator(m); err != nil {
		doc.tree = preTree
		doc.text = preText
		return err
	}
	if len(m.patches) == 0 {
		return nil
	}

	newChanges := make([]Change, 0, len(m.patches))
	for _, p := range m.patches {
		seq := uint64(len(doc.changes)) + uint64(len(newChanges)) + 1
		c := Change{
			Actor:     r.actor,
			Seq:       seq,
			Timestamp: r.clock().UnixNano(),
			Message:   message,
			Patch:     p,
		}
		c.ID = fingerprint(doc.handle.ID, r.actor, seq, p)
		newChanges = append(newChanges, c)
	}

	if err := r.persist(doc.handle.ID, newChanges); err != nil {
		doc.tree = preTree
		doc.text = preText
		return fmt.Errorf("persist document %q: %w", handle.ID, vfserrors.ErrStorageFault)
	}

	doc.changes = append(doc.changes, newChanges...)
	return nil
}

// CurrentTree returns the root document's live reduced state -- the
// same Tree Change's mutator edits in place -- without replaying the
// change log. Callers that only need "the tree as of right now" (every
// VersionedFs operation outside history browsing) should use this
// instead of ViewTree(handle, Heads(handle)), which always replays from
// scratch.
func (r *Repo) CurrentTree(handle Handle) treemodel.Tree {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[handle.ID]
	if !ok || handle.Kind != KindRoot {
		return treemodel.Tree{}
	}
	return doc.tree.Clone()
}

// CurrentText returns a text document's live reduced content without
// replaying the change log.
func (r *Repo) CurrentText(handle Handle) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[handle.ID]
	if !ok || handle.Kind != KindText {
		return ""
	}
	return string(doc.text)
}

// Heads returns the current frontier. Under the single-writer model
// this is always the id of the last committed change, or empty for a
// document with no changes yet.
func (r *Repo) Heads(handle Handle) []ChangeId {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[handle.ID]
	if !ok || len(doc.changes) == 0 {
		return nil
	}
	return []ChangeId{doc.changes[len(doc.changes)-1].ID}
}

// History returns every change in causal order.
func (r *Repo) History(handle Handle) []ChangeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[handle.ID]
	if !ok {
		return nil
	}
	out := make([]ChangeRecord, len(doc.changes))
	for i, c := range doc.changes {
		out[i] = ChangeRecord{Hash: c.ID, Actor: c.Actor, Seq: c.Seq, Timestamp: c.Timestamp, Message: c.Message}
	}
	return out
}

func (r *Repo) indexOf(doc *document, heads []ChangeId) (int, bool) {
	if len(heads) == 0 {
		return -1, false
	}
	target := heads[0]
	for i, c := range doc.changes {
		if c.ID == target {
			return i, true
		}
	}
	return -1, false
}

// ViewTree replays the root document up to and including heads, returning
// an empty tree if heads is unknown (spec.md §7's deliberate forgiveness).
func (r *Repo) ViewTree(handle Handle, heads []ChangeId) treemodel.Tree {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[handle.ID]
	if !ok || handle.Kind != KindRoot {
		return treemodel.Tree{}
	}
	idx, found := r.indexOf(doc, heads)
	if !found {
		return treemodel.Tree{}
	}
	return replayTree(doc.changes[:idx+1])
}

// ViewText replays the text document up to and including heads, returning
// "" if heads is unknown, the document is binary/absent in the caller's
// sense, or the document has no changes.
func (r *Repo) ViewText(handle Handle, heads []ChangeId) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[handle.ID]
	if !ok || handle.Kind != KindText {
		return ""
	}
	idx, found := r.indexOf(doc, heads)
	if !found {
		return ""
	}
	return replayText(doc.changes[:idx+1])
}

// Diff returns the patches after from up to and including to (exclusive
// of from, inclusive of to). Unknown heads yield an empty diff.
func (r *Repo) Diff(handle Handle, from, to []ChangeId) []Patch {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[handle.ID]
	if !ok {
		return nil
	}

	fromIdx := -1
	if len(from) > 0 {
		idx, found := r.indexOf(doc, from)
		if !found {
			return nil
		}
		fromIdx = idx
	}
	toIdx, found := r.indexOf(doc, to)
	if !found {
		return nil
	}
	if toIdx <= fromIdx {
		return nil
	}

	out := make([]Patch, 0, toIdx-fromIdx)
	for i := fromIdx + 1; i <= toIdx; i++ {
		out = append(out, doc.changes[i].Patch)
	}
	return out
}

func replayTree(changes []Change) treemodel.Tree {
	t := treemodel.Tree{}
	for _, c := range changes {
		switch {
		case c.Patch.TreePut != nil:
			t.Put(c.Patch.TreePut.Path, c.Patch.TreePut.Entry)
		case c.Patch.TreeRemove != nil:
			t.Remove(*c.Patch.TreeRemove)
		}
	}
	return t
}

func replayText(changes []Change) string {
	var runes []rune
	for _, c := range changes {
		s := c.Patch.TextSplice
		if s == nil {
			continue
		}
		tail := append([]rune{}, runes[s.Offset+s.DeleteCount:]...)
		head := append([]rune{}, runes[:s.Offset]...)
		runes = append(append(head, []rune(s.Insert)...), tail...)
	}
	return string(runes)
}

func applyPatch(doc *document, p Patch) error {
	switch {
	case p.TreePut != nil:
		if doc.tree == nil {
			return fmt.Errorf("tree patch applied to non-root document")
		}
		doc.tree.Put(p.TreePut.Path, p.TreePut.Entry)
	case p.TreeRemove != nil:
		if doc.tree == nil {
			return fmt.Errorf("tree patch applied to non-root document")
		}
		doc.tree.Remove(*p.TreeRemove)
	case p.TextSplice != nil:
		s := p.TextSplice
		if s.Offset+s.DeleteCount > len(doc.text) {
			return fmt.Errorf("splice out of range")
		}
		tail := append([]rune{}, doc.text[s.Offset+s.DeleteCount:]...)
		head := append([]rune{}, doc.text[:s.Offset]...)
		doc.text = append(append(head, []rune(s.Insert)...), tail...)
	}
	return nil
}

func fingerprint(docID, actor string, seq uint64, p Patch) ChangeId {
	data, _ := encodePatch(p)
	// The document id is part of the input: every document's first change
	// has seq 1 under the same actor, so without it two documents seeded
	// with the same text would share a ChangeId.
	h := xxh3.Hash128([]byte(fmt.Sprintf("%s/%s/%d/", docID, actor, seq)) ).Bytes()
	// Mix in the patch payload as well.
	for i, b := range xxh3.Hash128(data).Bytes() {
		h[i] ^= b
	}
	var id ChangeId
	copy(id[:], h[:])
	return id
}
