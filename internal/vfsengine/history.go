package vfsengine

import (
	"github.com/keshon/vfsengine/internal/docrepo"
	"github.com/keshon/vfsengine/internal/pathmodel"
)

// Snapshot is the return value of TakeSnapshot(): the root heads at the
// moment of the call, an optional caller-supplied label, and the wall
// time the snapshot was taken. The engine itself never persists label
// (spec.md §9 open question: source does not persist snapshot labels).
type Snapshot struct {
	Heads     []docrepo.ChangeId
	Label     string
	Timestamp int64
}

// RootHeads returns the root document's current frontier.
func (e *Engine) RootHeads() []docrepo.ChangeId {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateOpen {
		return nil
	}
	return e.docs.Heads(e.rootHandle)
}

// fileTextHandle resolves path to its text handle, or ok=false if the
// path is absent, a directory, or binary -- every case spec.md §4.7's
// history operations must treat as "no text doc" rather than error.
func (e *Engine) fileTextHandle(path string) (docrepo.Handle, bool) {
	path = pathmodel.Normalize(path)
	entry, ok := e.currentTree().Get(path)
	if !ok || !entry.HasText() {
		return docrepo.Handle{}, false
	}
	handle, err := e.textHandle(entry.TextDocID)
	if err != nil {
		return docrepo.Handle{}, false
	}
	return handle, true
}

// FileHeads returns path's text document's frontier, or empty if path
// has no text doc (absent or binary).
func (e *Engine) FileHeads(path string) []docrepo.ChangeId {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateOpen {
		return nil
	}
	handle, ok := e.fileTextHandle(path)
	if !ok {
		return nil
	}
	return e.docs.Heads(handle)
}

// FileHistory returns path's text document's change history in causal
// order, or empty if path has no text doc.
func (e *Engine) FileHistory(path string) []docrepo.ChangeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateOpen {
		return nil
	}
	handle, ok := e.fileTextHandle(path)
	if !ok {
		return nil
	}
	return e.docs.History(handle)
}

// ViewAt returns path's text content as of heads, or "" if path is
// binary, absent, or heads is unknown.
func (e *Engine) ViewAt(path string, heads []docrepo.ChangeId) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateOpen {
		return ""
	}
	handle, ok := e.fileTextHandle(path)
	if !ok {
		return ""
	}
	return e.docs.ViewText(handle, heads)
}

// Diff returns the structural patches between from and to on path's
// text document, or empty on binary/absent/unknown heads.
func (e *Engine) Diff(path string, from, to []docrepo.ChangeId) []docrepo.Patch {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateOpen {
		return nil
	}
	handle, ok := e.fileTextHandle(path)
	if !ok {
		return nil
	}
	return e.docs.Diff(handle, from, to)
}

// TakeSnapshot returns the current root heads under an optional label.
// Named TakeSnapshot (spec.md §4.7 calls it snapshot) to avoid colliding
// with the Snapshot type above in this package's exported surface.
func (e *Engine) TakeSnapshot(label string) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Heads:     e.docs.Heads(e.rootHandle),
		Label:     label,
		Timestamp: e.clock().UnixNano(),
	}
}
