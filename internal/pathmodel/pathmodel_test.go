package pathmodel_test

import (
	"testing"

	"github.com/keshon/vfsengine/internal/pathmodel"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/":            "/",
		"":             "/",
		"/a//b/c/":     "/a/b/c",
		"a/b":          "/a/b",
		"///a///b///":  "/a/b",
		"/a/b/c":       "/a/b/c",
	}
	for in, want := range cases {
		if got := pathmodel.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParent(t *testing.T) {
	cases := map[string]string{
		"/":        "/",
		"/a":       "/",
		"/a/b":     "/a",
		"/a/b/c":   "/a/b",
		"/a//b/c/": "/a/b",
	}
	for in, want := range cases {
		if got := pathmodel.Parent(in); got != want {
			t.Errorf("Parent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBasename(t *testing.T) {
	cases := map[string]string{
		"/":      "/",
		"/a":     "a",
		"/a/b":   "b",
		"/a/b/c": "c",
	}
	for in, want := range cases {
		if got := pathmodel.Basename(in); got != want {
			t.Errorf("Basename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		base, rel, want string
	}{
		{"/", "a", "/a"},
		{"/a", "b", "/a/b"},
		{"/a/b", "c/d", "/a/b/c/d"},
	}
	for _, tc := range cases {
		if got := pathmodel.Join(tc.base, tc.rel); got != tc.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tc.base, tc.rel, got, tc.want)
		}
	}
}

func TestSamePathDifferentSpelling(t *testing.T) {
	a := pathmodel.Normalize("/a//b/c/")
	b := pathmodel.Normalize("/a/b/c")
	if a != b {
		t.Fatalf("expected equal normalized forms, got %q and %q", a, b)
	}
}
