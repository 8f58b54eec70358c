package fsfacade_test

import (
	"testing"

	"github.com/keshon/vfsengine/internal/blobstore"
	"github.com/keshon/vfsengine/internal/docstore"
	"github.com/keshon/vfsengine/internal/fsfacade"
	"github.com/keshon/vfsengine/internal/vfserrors"
	"github.com/keshon/vfsengine/internal/vfsengine"
)

func newFacade(t *testing.T) *fsfacade.Facade {
	t.Helper()
	blobs, err := blobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	e, err := vfsengine.OpenNew(docstore.NewMemoryBackend(), blobs, "test-actor", 0, nil)
	if err != nil {
		t.Fatalf("open new engine: %v", err)
	}
	return fsfacade.New(e)
}

func TestWriteTextReadTextAppend(t *testing.T) {
	f := newFacade(t)
	if err := f.WriteText("/note.txt", "hello"); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if err := f.Append("/note.txt", " world"); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := f.ReadText("/note.txt")
	if err != nil || got != "hello world" {
		t.Fatalf("read text = %q, %v", got, err)
	}
}

func TestWriteSniffsBinaryByUTF8Validity(t *testing.T) {
	f := newFacade(t)
	if err := f.Write("/blob.bin", []byte{0xFF, 0xFE, 0x00}); err != nil {
		t.Fatalf("write: %v", err)
	}
	stat, err := f.Stat("/blob.bin")
	if err != nil || !stat.IsBinary {
		t.Fatalf("stat = %+v, %v, want binary", stat, err)
	}
}

func TestLstatMatchesStat(t *testing.T) {
	f := newFacade(t)
	if err := f.WriteText("/note.txt", "x"); err != nil {
		t.Fatalf("write: %v", err)
	}
	stat, err := f.Stat("/note.txt")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	lstat, err := f.Lstat("/note.txt")
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}
	if stat != lstat {
		t.Fatalf("lstat %+v != stat %+v", lstat, stat)
	}
}

func TestMkdirReaddirRmCpMv(t *testing.T) {
	f := newFacade(t)
	if err := f.Mkdir("/dir", true); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := f.WriteText("/dir/a.txt", "a"); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := f.Readdir("/dir")
	if err != nil || len(entries) != 1 || entries[0].Name != "a.txt" {
		t.Fatalf("readdir = %v, %v", entries, err)
	}

	if err := f.Cp("/dir/a.txt", "/dir/b.txt", false); err != nil {
		t.Fatalf("cp: %v", err)
	}
	if err := f.Mv("/dir/b.txt", "/dir/c.txt"); err != nil {
		t.Fatalf("mv: %v", err)
	}
	if f.Exists("/dir/b.txt") {
		t.Fatalf("mv left src behind")
	}
	if err := f.Rm("/dir", true); err != nil {
		t.Fatalf("rm recursive: %v", err)
	}
	if f.Exists("/dir") {
		t.Fatalf("rm recursive left dir behind")
	}
}

func TestChmodAndUtimes(t *testing.T) {
	f := newFacade(t)
	if err := f.WriteText("/note.txt", "x"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Chmod("/note.txt", 0o600); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if err := f.Utimes("/note.txt", 0, 1234); err != nil {
		t.Fatalf("utimes: %v", err)
	}
	stat, err := f.Stat("/note.txt")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if stat.Mode != 0o600 || stat.Mtime != 1234 {
		t.Fatalf("stat after chmod/utimes = %+v", stat)
	}
}

func TestResolvePathAndRealpath(t *testing.T) {
	f := newFacade(t)

	cases := []struct {
		base, rel, want string
	}{
		{"/a/b", "c", "/a/b/c"},
		{"/a/b", "/c", "/c"},
		{"/a/b", "", "/a/b"},
		{"/a", "../c", "/a/../c"},
	}
	for _, tc := range cases {
		if got := f.ResolvePath(tc.base, tc.rel); got != tc.want {
			t.Errorf("ResolvePath(%q, %q) = %q, want %q", tc.base, tc.rel, got, tc.want)
		}
	}

	if got := f.Realpath("//a//b/"); got != "/a/b" {
		t.Fatalf("realpath = %q, want %q", got, "/a/b")
	}
	if got := f.Realpath("/never/created"); got != "/never/created" {
		t.Fatalf("realpath on absent path = %q, want normalized input unchanged", got)
	}
}

func TestSymlinkFamilyNotSupported(t *testing.T) {
	f := newFacade(t)
	if err := f.Symlink("/target", "/link"); !vfserrors.Is(err, vfserrors.ErrNotSupported) {
		t.Fatalf("symlink: err = %v, want NotSupported", err)
	}
	if err := f.Link("/target", "/link"); !vfserrors.Is(err, vfserrors.ErrNotSupported) {
		t.Fatalf("link: err = %v, want NotSupported", err)
	}
	if _, err := f.Readlink("/link"); !vfserrors.Is(err, vfserrors.ErrNotSupported) {
		t.Fatalf("readlink: err = %v, want NotSupported", err)
	}
}
