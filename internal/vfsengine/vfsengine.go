// Package vfsengine implements VersionedFs (spec.md §4.7), the public
// engine on top of docrepo/treemodel/blobstore/bodyrouter: filesystem
// operations, history/view/diff, and the open/close lifecycle that lets
// a filesystem be reopened by a single durable root handle.
package vfsengine

import (
	"sync"
	"time"

	"github.com/keshon/vfsengine/internal/blobstore"
	"github.com/keshon/vfsengine/internal/bodyrouter"
	"github.com/keshon/vfsengine/internal/docrepo"
	"github.com/keshon/vfsengine/internal/vfslog"
)

// State is the engine's lifecycle position (spec.md §4.7's state
// machine: Fresh -> Open -> Closed, Closed terminal).
type State int

const (
	StateFresh State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Engine is VersionedFs. It owns the root-document handle and the cache
// of text-document handles keyed by text_doc_id (spec.md §3's
// Ownership rule); every other piece of CRDT/blob state lives in docs
// and blobs, which Engine treats as collaborators, not internals.
//
// Engine is safe for concurrent use: every public method takes mu,
// matching spec.md §5's single logical task stream -- operations never
// interleave their critical sections even if called from multiple
// goroutines.
type Engine struct {
	mu    sync.Mutex
	state State

	docs   *docrepo.Repo
	blobs  *blobstore.Store
	router *bodyrouter.Router
	log    *vfslog.Logger
	clock  func() time.Time

	rootHandle  docrepo.Handle
	actor       string
	textHandles map[string]docrepo.Handle
}

// RootHandle returns the durable identifier callers must persist
// externally to reopen this filesystem later (spec.md §4.7).
func (e *Engine) RootHandle() docrepo.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rootHandle
}

// State reports the engine's current lifecycle position.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Close transitions the engine to Closed. Every operation after Close
// fails with ErrEngineClosed. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateClosed
	return nil
}

func (e *Engine) evictTextHandle(textDocID string) {
	delete(e.textHandles, textDocID)
}
