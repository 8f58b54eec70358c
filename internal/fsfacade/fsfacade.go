// Package fsfacade implements FsFacade (spec.md §4.8): a thin
// translation layer projecting VersionedFs onto the operation set the
// in-process bash interpreter expects. The facade owns no state of its
// own -- every call is a direct pass-through to the underlying engine,
// with symlink/link/readlink stubbed out as NotSupported and
// resolve_path/realpath implemented as pure path arithmetic.
package fsfacade

import (
	"fmt"

	"github.com/keshon/vfsengine/internal/bodyrouter"
	"github.com/keshon/vfsengine/internal/pathmodel"
	"github.com/keshon/vfsengine/internal/vfserrors"
	"github.com/keshon/vfsengine/internal/vfsengine"
	"github.com/keshon/vfsengine/internal/vfstypes"
)

// Facade adapts an *vfsengine.Engine to the bash interpreter's expected
// call shape. It holds no state beyond the engine reference.
type Facade struct {
	engine *vfsengine.Engine
}

// New wraps engine as an FsFacade.
func New(engine *vfsengine.Engine) *Facade {
	return &Facade{engine: engine}
}

// ReadText returns path's body decoded as a string, whether the
// underlying body is a CRDT text document or a UTF-8 blob.
func (f *Facade) ReadText(path string) (string, error) {
	return f.engine.ReadText(path)
}

// ReadBytes returns path's body as raw bytes.
func (f *Facade) ReadBytes(path string) ([]byte, error) {
	return f.engine.Read(path)
}

// Write stores raw bytes at path, classified text/binary by strict
// UTF-8 validity (spec.md §4.6). Interpreters that already know they
// have a string should prefer WriteText so the content is never
// sniffed.
func (f *Facade) Write(path string, data []byte) error {
	return f.engine.Write(path, bodyrouter.BytesContent(data))
}

// WriteText stores s at path as text, unconditionally -- never sniffed
// as binary even if it happens to be empty or ASCII-control-heavy.
func (f *Facade) WriteText(path string, s string) error {
	return f.engine.Write(path, bodyrouter.TextContent(s))
}

// Append implements the bash interpreter's append builtin.
func (f *Facade) Append(path string, text string) error {
	return f.engine.Append(path, text)
}

// Exists never fails.
func (f *Facade) Exists(path string) bool {
	return f.engine.Exists(path)
}

// Stat implements stat.
func (f *Facade) Stat(path string) (vfstypes.FileStat, error) {
	return f.engine.Stat(path)
}

// Lstat is identical to Stat; this filesystem has no symlinks.
func (f *Facade) Lstat(path string) (vfstypes.FileStat, error) {
	return f.engine.Stat(path)
}

// Mkdir implements mkdir.
func (f *Facade) Mkdir(path string, recursive bool) error {
	return f.engine.Mkdir(path, recursive)
}

// Readdir implements readdir.
func (f *Facade) Readdir(path string) ([]vfstypes.DirEntry, error) {
	return f.engine.Readdir(path)
}

// Rm implements rm.
func (f *Facade) Rm(path string, recursive bool) error {
	return f.engine.Rm(path, recursive)
}

// Cp implements cp.
func (f *Facade) Cp(src, dst string, recursive bool) error {
	return f.engine.Cp(src, dst, recursive)
}

// Mv implements mv.
func (f *Facade) Mv(src, dst string) error {
	return f.engine.Mv(src, dst)
}

// Chmod implements chmod.
func (f *Facade) Chmod(path string, mode uint16) error {
	return f.engine.Chmod(path, mode)
}

// Utimes implements utimes. atime is accepted for interface parity
// with the bash interpreter's call shape but discarded -- spec.md §4.7
// persists only mtime.
func (f *Facade) Utimes(path string, atime, mtime int64) error {
	_ = atime
	return f.engine.Utimes(path, mtime)
}

// ResolvePath resolves rel against base the way a shell resolves a
// relative path against a working directory: an absolute rel replaces
// base outright, otherwise rel is joined onto base. Neither argument is
// checked against the tree.
func (f *Facade) ResolvePath(base, rel string) string {
	if rel == "" {
		return pathmodel.Normalize(base)
	}
	if rel[0] == '/' {
		return pathmodel.Normalize(rel)
	}
	return pathmodel.Join(base, rel)
}

// Realpath normalizes path without ever probing the tree for
// existence -- per spec.md §9's open-question resolution, a
// non-existent path is returned normalized, not rejected.
func (f *Facade) Realpath(path string) string {
	return pathmodel.Normalize(path)
}

// Symlink always fails: this filesystem has no symbolic links.
func (f *Facade) Symlink(target, path string) error {
	return fmt.Errorf("symlink %q: %w", path, vfserrors.ErrNotSupported)
}

// Link always fails: this filesystem has no hard links.
func (f *Facade) Link(target, path string) error {
	return fmt.Errorf("link %q: %w", path, vfserrors.ErrNotSupported)
}

// Readlink always fails: this filesystem has no symbolic links.
func (f *Facade) Readlink(path string) (string, error) {
	return "", fmt.Errorf("readlink %q: %w", path, vfserrors.ErrNotSupported)
}
