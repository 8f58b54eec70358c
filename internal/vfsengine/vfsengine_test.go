package vfsengine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/keshon/vfsengine/internal/blobstore"
	"github.com/keshon/vfsengine/internal/bodyrouter"
	"github.com/keshon/vfsengine/internal/docstore"
	"github.com/keshon/vfsengine/internal/vfserrors"
	"github.com/keshon/vfsengine/internal/vfsengine"
)

func newEngine(t *testing.T) *vfsengine.Engine {
	t.Helper()
	blobs, err := blobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	e, err := vfsengine.OpenNew(docstore.NewMemoryBackend(), blobs, "test-actor", 0, nil)
	if err != nil {
		t.Fatalf("open new engine: %v", err)
	}
	return e
}

func TestWriteReadStat(t *testing.T) {
	e := newEngine(t)

	if err := e.Write("/notes.txt", bodyrouter.TextContent("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	text, err := e.ReadText("/notes.txt")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if text != "hello" {
		t.Fatalf("read = %q, want %q", text, "hello")
	}

	stat, err := e.Stat("/notes.txt")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if stat.Size != 5 || stat.IsBinary {
		t.Fatalf("stat = %+v, want size 5 text", stat)
	}
}

func TestWriteRejectsMissingParent(t *testing.T) {
	e := newEngine(t)
	if err := e.Write("/missing/notes.txt", bodyrouter.TextContent("hi")); !vfserrors.Is(err, vfserrors.ErrFileNotFound) {
		t.Fatalf("write under missing parent: err = %v, want FileNotFound", err)
	}
}

func TestVersionedViewAndDiff(t *testing.T) {
	e := newEngine(t)

	if err := e.Write("/a.txt", bodyrouter.TextContent("one")); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	firstHeads := e.FileHeads("/a.txt")

	if err := e.Write("/a.txt", bodyrouter.TextContent("one two")); err != nil {
		t.Fatalf("write 2: %v", err)
	}
	secondHeads := e.FileHeads("/a.txt")

	if got := e.ViewAt("/a.txt", firstHeads); got != "one" {
		t.Fatalf("view at first heads = %q, want %q", got, "one")
	}
	if got := e.ViewAt("/a.txt", secondHeads); got != "one two" {
		t.Fatalf("view at second heads = %q, want %q", got, "one two")
	}

	patches := e.Diff("/a.txt", firstHeads, secondHeads)
	if len(patches) == 0 {
		t.Fatalf("diff between heads returned no patches")
	}
	for _, p := range patches {
		if p.TextSplice == nil {
			t.Fatalf("diff patch %+v is not a text splice", p)
		}
	}
}

func TestMvPreservesHistory(t *testing.T) {
	e := newEngine(t)
	if err := e.Write("/a.txt", bodyrouter.TextContent("content")); err != nil {
		t.Fatalf("write: %v", err)
	}
	beforeHeads := e.FileHeads("/a.txt")

	if err := e.Mv("/a.txt", "/b.txt"); err != nil {
		t.Fatalf("mv: %v", err)
	}

	if e.Exists("/a.txt") {
		t.Fatalf("src still exists after mv")
	}
	afterHeads := e.FileHeads("/b.txt")
	if len(afterHeads) != len(beforeHeads) || afterHeads[0] != beforeHeads[0] {
		t.Fatalf("mv did not preserve body identity: before=%v after=%v", beforeHeads, afterHeads)
	}
}

func TestCpDoesNotCarryHistory(t *testing.T) {
	e := newEngine(t)
	if err := e.Write("/a.txt", bodyrouter.TextContent("content")); err != nil {
		t.Fatalf("write: %v", err)
	}
	srcHeads := e.FileHeads("/a.txt")

	if err := e.Cp("/a.txt", "/b.txt", false); err != nil {
		t.Fatalf("cp: %v", err)
	}
	dstHeads := e.FileHeads("/b.txt")
	if len(srcHeads) == 0 || len(dstHeads) == 0 || srcHeads[0] == dstHeads[0] {
		t.Fatalf("cp shared body identity with source: src=%v dst=%v", srcHeads, dstHeads)
	}
	text, err := e.ReadText("/b.txt")
	if err != nil || text != "content" {
		t.Fatalf("read copy: %q, %v", text, err)
	}
}

func TestMkdirRecursiveAndRmRecursive(t *testing.T) {
	e := newEngine(t)
	if err := e.Mkdir("/a/b/c", true); err != nil {
		t.Fatalf("mkdir recursive: %v", err)
	}
	if err := e.Write("/a/b/c/leaf.txt", bodyrouter.TextContent("x")); err != nil {
		t.Fatalf("write leaf: %v", err)
	}

	if err := e.Mkdir("/a/b/c", true); err != nil {
		t.Fatalf("mkdir on existing dir should be idempotent: %v", err)
	}
	if err := e.Mkdir("/x/y", false); !vfserrors.Is(err, vfserrors.ErrFileNotFound) {
		t.Fatalf("non-recursive mkdir with missing parent: err = %v, want FileNotFound", err)
	}

	if err := e.Rm("/a", false); !vfserrors.Is(err, vfserrors.ErrIsADirectory) {
		t.Fatalf("rm dir without recursive: err = %v, want IsADirectory", err)
	}
	if err := e.Rm("/a", true); err != nil {
		t.Fatalf("rm recursive: %v", err)
	}
	if e.Exists("/a") || e.Exists("/a/b/c/leaf.txt") {
		t.Fatalf("rm recursive left entries behind")
	}
}

func TestBinaryBlobSurvivesReopen(t *testing.T) {
	dataDir := t.TempDir()
	e, err := vfsengine.OpenNewAtDataDir(dataDir, nil)
	if err != nil {
		t.Fatalf("open new at data dir: %v", err)
	}
	raw := []byte{0x00, 0x01, 0xFF, 0xFE, 0x00}
	if err := e.Write("/blob.bin", bodyrouter.BytesContent(raw)); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	stat, err := e.Stat("/blob.bin")
	if err != nil || !stat.IsBinary {
		t.Fatalf("stat binary: %+v, %v", stat, err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := vfsengine.OpenExistingAtDataDir(dataDir, nil)
	if err != nil {
		t.Fatalf("open existing at data dir: %v", err)
	}
	got, err := reopened.Read("/blob.bin")
	if err != nil {
		t.Fatalf("read after reopen: %v", err)
	}
	if string(got) != string(raw) {
		t.Fatalf("read after reopen = %v, want %v", got, raw)
	}
}

func TestOpenNewAtDataDirHonorsConfiguredActorID(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := filepath.Join(dataDir, "config.json")
	if err := os.WriteFile(cfgPath, []byte(`{"actor_id":"seeded-actor"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	e, err := vfsengine.OpenNewAtDataDir(dataDir, nil)
	if err != nil {
		t.Fatalf("open new at data dir: %v", err)
	}
	defer e.Close()

	actorPath := filepath.Join(dataDir, "actor-id")
	got, err := os.ReadFile(actorPath)
	if err != nil {
		t.Fatalf("read actor-id: %v", err)
	}
	if string(got) != "seeded-actor" {
		t.Fatalf("expected config.json's actor_id to seed the persisted actor, got %q", string(got))
	}
}

func TestOpenNewAtDataDirStreamsBinaryAboveConfiguredChunkSize(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := filepath.Join(dataDir, "config.json")
	if err := os.WriteFile(cfgPath, []byte(`{"chunk_size_max":4}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	e, err := vfsengine.OpenNewAtDataDir(dataDir, nil)
	if err != nil {
		t.Fatalf("open new at data dir: %v", err)
	}
	defer e.Close()

	raw := []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0xfd}
	if err := e.Write("/big.bin", bodyrouter.BytesContent(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := e.Read("/big.bin")
	if err != nil || string(got) != string(raw) {
		t.Fatalf("read = %v, %v, want %v", got, err, raw)
	}
}

func TestClosedEngineRejectsOperations(t *testing.T) {
	e := newEngine(t)
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second close should be idempotent: %v", err)
	}
	if _, err := e.Read("/anything"); !vfserrors.Is(err, vfserrors.ErrEngineClosed) {
		t.Fatalf("read after close: err = %v, want EngineClosed", err)
	}
	if e.Exists("/anything") {
		t.Fatalf("exists after close should report false, not panic")
	}
}

func TestEmptyFileRoundTrip(t *testing.T) {
	e := newEngine(t)
	if err := e.Write("/empty.txt", bodyrouter.TextContent("")); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	text, err := e.ReadText("/empty.txt")
	if err != nil || text != "" {
		t.Fatalf("read empty = %q, %v", text, err)
	}
	if history := e.FileHistory("/empty.txt"); len(history) < 1 {
		t.Fatalf("expected a freshly created empty file to have a non-empty history, got %d entries", len(history))
	}
}

func TestWriteOverBinaryEvictsThenFreshTextBody(t *testing.T) {
	e := newEngine(t)
	if err := e.Write("/x", bodyrouter.BytesContent([]byte{0xFF, 0xFE})); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	if err := e.Write("/x", bodyrouter.TextContent("now text")); err != nil {
		t.Fatalf("write text over binary: %v", err)
	}
	stat, err := e.Stat("/x")
	if err != nil || stat.IsBinary {
		t.Fatalf("stat after binary->text: %+v, %v", stat, err)
	}
	text, err := e.ReadText("/x")
	if err != nil || text != "now text" {
		t.Fatalf("read after binary->text = %q, %v", text, err)
	}
}

func TestDirectoryMoveIsNotSupported(t *testing.T) {
	e := newEngine(t)
	if err := e.Mkdir("/dir", false); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := e.Mv("/dir", "/dir2"); !vfserrors.Is(err, vfserrors.ErrNotSupported) {
		t.Fatalf("mv dir: err = %v, want NotSupported", err)
	}
}
