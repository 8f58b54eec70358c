package vfsengine

import (
	"fmt"

	"github.com/keshon/vfsengine/internal/bodyrouter"
	"github.com/keshon/vfsengine/internal/docrepo"
	"github.com/keshon/vfsengine/internal/pathmodel"
	"github.com/keshon/vfsengine/internal/treemodel"
	"github.com/keshon/vfsengine/internal/vfserrors"
	"github.com/keshon/vfsengine/internal/vfstypes"
)

func (e *Engine) checkOpen() error {
	if e.state != StateOpen {
		return fmt.Errorf("%w", vfserrors.ErrEngineClosed)
	}
	return nil
}

// currentTree returns the root document's live tree. Callers already
// hold e.mu, so this is never observed mid-mutation.
func (e *Engine) currentTree() treemodel.Tree {
	return e.docs.CurrentTree(e.rootHandle)
}

// textHandle resolves a text document id to an open handle, consulting
// (and populating) the engine's handle cache first.
func (e *Engine) textHandle(id string) (docrepo.Handle, error) {
	if h, ok := e.textHandles[id]; ok {
		return h, nil
	}
	h, err := e.docs.Find(id, docrepo.KindText)
	if err != nil {
		return docrepo.Handle{}, err
	}
	e.textHandles[id] = h
	return h, nil
}

func (e *Engine) readBody(path string, entry vfstypes.TreeEntry) ([]byte, error) {
	switch {
	case entry.HasBlob():
		data, ok, err := e.blobs.Get(entry.BlobHash)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		if !ok {
			return nil, fmt.Errorf("read %q: %w", path, vfserrors.ErrStorageFault)
		}
		return data, nil
	case entry.HasText():
		handle, err := e.textHandle(entry.TextDocID)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		return []byte(e.docs.CurrentText(handle)), nil
	default:
		return nil, fmt.Errorf("read %q: %w", path, vfserrors.ErrStorageFault)
	}
}

// Read returns path's current body as bytes (spec.md §4.7 read).
func (e *Engine) Read(path string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	path = pathmodel.Normalize(path)
	entry, ok := e.currentTree().Get(path)
	if !ok {
		return nil, fmt.Errorf("read %q: %w", path, vfserrors.ErrFileNotFound)
	}
	if entry.IsDir() {
		return nil, fmt.Errorf("read %q: %w", path, vfserrors.ErrIsADirectory)
	}
	return e.readBody(path, entry)
}

// ReadText is a convenience over Read for callers that know the path
// holds (or should hold) text content.
func (e *Engine) ReadText(path string) (string, error) {
	data, err := e.Read(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write implements spec.md §4.6/§4.7's write(path, content).
func (e *Engine) Write(path string, content bodyrouter.Content) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.writeLocked(path, content)
}

// writeLocked performs write() under e.mu, reused by Append.
func (e *Engine) writeLocked(path string, content bodyrouter.Content) error {
	path = pathmodel.Normalize(path)
	tree := e.currentTree()

	if path != pathmodel.Root {
		parentEntry, ok := tree.Get(pathmodel.Parent(path))
		if !ok || !parentEntry.IsDir() {
			return fmt.Errorf("write %q: %w", path, vfserrors.ErrFileNotFound)
		}
	}

	existing, hadExisting := tree.Get(path)
	if hadExisting && existing.IsDir() {
		return fmt.Errorf("write %q: %w", path, vfserrors.ErrIsADirectory)
	}

	result, err := e.router.Write(existing, hadExisting, content)
	if err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	if result.EvictTextDocID != "" {
		e.evictTextHandle(result.EvictTextDocID)
	}
	if result.Body.TextDocID != "" {
		e.textHandles[result.Body.TextDocID] = result.TextHandle
	}

	now := e.clock().UnixNano()
	mode := uint16(0o644)
	ctime := now
	if hadExisting {
		mode = existing.Metadata.Mode
		ctime = existing.Metadata.Ctime
	}
	entry := vfstypes.TreeEntry{
		Kind:      vfstypes.KindFile,
		Parent:    pathmodel.Parent(path),
		Name:      pathmodel.Basename(path),
		Metadata:  vfstypes.Metadata{Size: result.Body.Size, Mode: mode, Mtime: now, Ctime: ctime},
		TextDocID: result.Body.TextDocID,
		BlobHash:  result.Body.BlobHash,
	}

	msg := "write " + path
	if err := e.docs.Change(e.rootHandle, &msg, func(m *docrepo.Mutation) error {
		m.PutEntry(path, entry)
		return nil
	}); err != nil {
		return fmt.Errorf("write %q: %w", path, vfserrors.ErrStorageFault)
	}
	return nil
}

// Append implements spec.md §4.7's append: equivalent to
// write(path, read_text(path) + text), going through the same
// character-level merge so only the suffix becomes a real CRDT
// insertion. If path is absent, it is created with just text.
func (e *Engine) Append(path string, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}

	normalized := pathmodel.Normalize(path)
	entry, ok := e.currentTree().Get(normalized)
	prefix := ""
	if ok {
		if entry.IsDir() {
			return fmt.Errorf("append %q: %w", normalized, vfserrors.ErrIsADirectory)
		}
		body, err := e.readBody(normalized, entry)
		if err != nil {
			return err
		}
		prefix = string(body)
	}

	return e.writeLocked(normalized, bodyrouter.TextContent(prefix+text))
}

// Stat implements spec.md §4.7's stat.
func (e *Engine) Stat(path string) (vfstypes.FileStat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return vfstypes.FileStat{}, err
	}

	path = pathmodel.Normalize(path)
	entry, ok := e.currentTree().Get(path)
	if !ok {
		return vfstypes.FileStat{}, fmt.Errorf("stat %q: %w", path, vfserrors.ErrFileNotFound)
	}
	return vfstypes.FileStat{
		Kind:     entry.Kind,
		Size:     entry.Metadata.Size,
		Mode:     entry.Metadata.Mode,
		Mtime:    entry.Metadata.Mtime,
		Ctime:    entry.Metadata.Ctime,
		IsBinary: entry.HasBlob(),
	}, nil
}

// Exists implements spec.md §4.7's exists; it never fails.
func (e *Engine) Exists(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateOpen {
		return false
	}
	_, ok := e.currentTree().Get(pathmodel.Normalize(path))
	return ok
}

// Readdir implements spec.md §4.7's readdir.
func (e *Engine) Readdir(path string) ([]vfstypes.DirEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	path = pathmodel.Normalize(path)
	tree := e.currentTree()
	entry, ok := tree.Get(path)
	if !ok {
		return nil, fmt.Errorf("readdir %q: %w", path, vfserrors.ErrFileNotFound)
	}
	if !entry.IsDir() {
		return nil, fmt.Errorf("readdir %q: %w", path, vfserrors.ErrNotADirectory)
	}

	children := tree.Children(path)
	out := make([]vfstypes.DirEntry, len(children))
	for i, c := range children {
		out[i] = vfstypes.DirEntry{Name: c.Name, Kind: c.Kind}
	}
	return out, nil
}

// Mkdir implements spec.md §4.7's mkdir. Idempotent when the target is
// already a directory; creates missing parents when recursive.
func (e *Engine) Mkdir(path string, recursive bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}

	path = pathmodel.Normalize(path)
	tree := e.currentTree()

	if existing, ok := tree.Get(path); ok {
		if existing.IsDir() {
			return nil
		}
		return fmt.Errorf("mkdir %q: %w", path, vfserrors.ErrAlreadyExists)
	}

	missing := []string{path}
	cursor := pathmodel.Parent(path)
	for {
		entry, ok := tree.Get(cursor)
		if ok {
			if !entry.IsDir() {
				return fmt.Errorf("mkdir %q: %w", path, vfserrors.ErrNotADirectory)
			}
			break
		}
		if !recursive {
			return fmt.Errorf("mkdir %q: %w", path, vfserrors.ErrFileNotFound)
		}
		missing = append(missing, cursor)
		if cursor == pathmodel.Root {
			break
		}
		cursor = pathmodel.Parent(cursor)
	}

	now := e.clock().UnixNano()
	msg := "mkdir " + path
	return e.commitRoot(&msg, func(m *docrepo.Mutation) error {
		for i := len(missing) - 1; i >= 0; i-- {
			p := missing[i]
			m.PutEntry(p, vfstypes.TreeEntry{
				Kind:     vfstypes.KindDirectory,
				Parent:   pathmodel.Parent(p),
				Name:     pathmodel.Basename(p),
				Metadata: vfstypes.Metadata{Mode: 0o755, Mtime: now, Ctime: now},
			})
		}
		return nil
	})
}

// commitRoot is the common atomic-commit wrapper every structural
// mutation below routes through.
func (e *Engine) commitRoot(message *string, mutate func(*docrepo.Mutation) error) error {
	if err := e.docs.Change(e.rootHandle, message, mutate); err != nil {
		return fmt.Errorf("%w", vfserrors.ErrStorageFault)
	}
	return nil
}

// Rm implements spec.md §4.7's rm.
func (e *Engine) Rm(path string, recursive bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}

	path = pathmodel.Normalize(path)
	tree := e.currentTree()
	entry, ok := tree.Get(path)
	if !ok {
		return fmt.Errorf("rm %q: %w", path, vfserrors.ErrFileNotFound)
	}
	if entry.IsDir() && !recursive {
		return fmt.Errorf("rm %q: %w", path, vfserrors.ErrIsADirectory)
	}

	var toRemove []string
	if err := tree.Walk(path, func(p string, _ vfstypes.TreeEntry) error {
		toRemove = append(toRemove, p)
		return nil
	}); err != nil {
		return fmt.Errorf("rm %q: %w", path, err)
	}

	// Free bodies and evict cached text handles for every file being
	// removed before the tree commit, mirroring write's "blob/body
	// first" ordering in reverse.
	for _, p := range toRemove {
		fileEntry, _ := tree.Get(p)
		if !fileEntry.IsFile() {
			continue
		}
		if err := e.deleteBody(fileEntry); err != nil {
			return fmt.Errorf("rm %q: %w", p, err)
		}
	}

	msg := "rm " + path
	return e.commitRoot(&msg, func(m *docrepo.Mutation) error {
		for i := len(toRemove) - 1; i >= 0; i-- {
			m.RemoveEntry(toRemove[i])
		}
		return nil
	})
}

func (e *Engine) deleteBody(entry vfstypes.TreeEntry) error {
	if entry.HasBlob() {
		if err := e.blobs.Delete(entry.BlobHash); err != nil {
			return err
		}
	}
	if entry.HasText() {
		e.evictTextHandle(entry.TextDocID)
	}
	return nil
}

// Mv implements spec.md §4.7's mv. Only files are supported; directory
// move is refused with NotSupported, matching the source's explicit
// refusal spec.md §9 inherits.
func (e *Engine) Mv(src, dst string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}

	src = pathmodel.Normalize(src)
	dst = pathmodel.Normalize(dst)
	tree := e.currentTree()

	entry, ok := tree.Get(src)
	if !ok {
		return fmt.Errorf("mv %q: %w", src, vfserrors.ErrFileNotFound)
	}
	if entry.IsDir() {
		return fmt.Errorf("mv %q: %w", src, vfserrors.ErrNotSupported)
	}

	dstParent, ok := tree.Get(pathmodel.Parent(dst))
	if !ok || !dstParent.IsDir() {
		return fmt.Errorf("mv %q: %w", dst, vfserrors.ErrFileNotFound)
	}

	now := e.clock().UnixNano()
	moved := entry
	moved.Parent = pathmodel.Parent(dst)
	moved.Name = pathmodel.Basename(dst)
	moved.Metadata.Mtime = now

	msg := fmt.Sprintf("mv %s -> %s", src, dst)
	return e.commitRoot(&msg, func(m *docrepo.Mutation) error {
		m.RemoveEntry(src)
		m.PutEntry(dst, moved)
		return nil
	})
}

// Cp implements spec.md §4.7's cp: files go through read+write, which
// deliberately mints a new body (new text doc or new blob) rather than
// sharing history with the source.
func (e *Engine) Cp(src, dst string, recursive bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}

	src = pathmodel.Normalize(src)
	dst = pathmodel.Normalize(dst)
	tree := e.currentTree()

	entry, ok := tree.Get(src)
	if !ok {
		return fmt.Errorf("cp %q: %w", src, vfserrors.ErrFileNotFound)
	}

	if entry.IsDir() {
		if !recursive {
			return fmt.Errorf("cp %q: %w", src, vfserrors.ErrIsADirectory)
		}
		return e.cpDir(src, dst)
	}
	return e.cpFile(src, dst, entry)
}

func (e *Engine) cpFile(src, dst string, entry vfstypes.TreeEntry) error {
	body, err := e.readBody(src, entry)
	if err != nil {
		return err
	}
	content := bodyrouter.BytesContent(body)
	if entry.HasText() {
		content = bodyrouter.TextContent(string(body))
	}
	return e.writeLocked(dst, content)
}

func (e *Engine) cpDir(src, dst string) error {
	if err := e.mkdirLocked(dst); err != nil {
		return err
	}
	for _, child := range e.currentTree().Children(src) {
		childSrc := pathmodel.Join(src, child.Name)
		childDst := pathmodel.Join(dst, child.Name)
		if child.IsDir() {
			if err := e.cpDir(childSrc, childDst); err != nil {
				return err
			}
			continue
		}
		if err := e.cpFile(childSrc, childDst, child); err != nil {
			return err
		}
	}
	return nil
}

// mkdirLocked is Mkdir's body without the top-level lock, for callers
// (cpDir) that already hold e.mu.
func (e *Engine) mkdirLocked(path string) error {
	tree := e.currentTree()
	if existing, ok := tree.Get(path); ok {
		if existing.IsDir() {
			return nil
		}
		return fmt.Errorf("mkdir %q: %w", path, vfserrors.ErrAlreadyExists)
	}
	now := e.clock().UnixNano()
	msg := "mkdir " + path
	return e.commitRoot(&msg, func(m *docrepo.Mutation) error {
		m.PutEntry(path, vfstypes.TreeEntry{
			Kind:     vfstypes.KindDirectory,
			Parent:   pathmodel.Parent(path),
			Name:     pathmodel.Basename(path),
			Metadata: vfstypes.Metadata{Mode: 0o755, Mtime: now, Ctime: now},
		})
		return nil
	})
}

// Chmod implements spec.md §4.7's chmod: metadata only.
func (e *Engine) Chmod(path string, mode uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}

	path = pathmodel.Normalize(path)
	entry, ok := e.currentTree().Get(path)
	if !ok {
		return fmt.Errorf("chmod %q: %w", path, vfserrors.ErrFileNotFound)
	}
	entry.Metadata.Mode = mode

	msg := "chmod " + path
	return e.commitRoot(&msg, func(m *docrepo.Mutation) error {
		m.PutEntry(path, entry)
		return nil
	})
}

// Utimes implements spec.md §4.7's utimes: only mtime is persisted.
func (e *Engine) Utimes(path string, mtime int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}

	path = pathmodel.Normalize(path)
	entry, ok := e.currentTree().Get(path)
	if !ok {
		return fmt.Errorf("utimes %q: %w", path, vfserrors.ErrFileNotFound)
	}
	entry.Metadata.Mtime = mtime

	msg := "utimes " + path
	return e.commitRoot(&msg, func(m *docrepo.Mutation) error {
		m.PutEntry(path, entry)
		return nil
	})
}
