// Package pathmodel implements pure path normalization for the versioned
// filesystem's tree keys: a single leading slash, no trailing slash (except
// root), no empty segments, no run of slashes.
package pathmodel

import "strings"

// Root is the normalized form of the filesystem root.
const Root = "/"

// Normalize rewrites p into the canonical tree-key form.
func Normalize(p string) string {
	if p == "" {
		return Root
	}

	segments := strings.Split(p, "/")
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return Root
	}
	return Root + strings.Join(kept, "/")
}

// Parent returns the normalized parent of p. Root is its own parent; this
// sentinel lets recursive mkdir/rm walks terminate without special-casing
// the top of the tree.
func Parent(p string) string {
	p = Normalize(p)
	if p == Root {
		return Root
	}
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return Root
	}
	return p[:idx]
}

// Basename returns the final path segment. Root's basename is root itself.
func Basename(p string) string {
	p = Normalize(p)
	if p == Root {
		return Root
	}
	idx := strings.LastIndex(p, "/")
	return p[idx+1:]
}

// Join normalizes base and appends rel as a new segment, then normalizes
// the result.
func Join(base, rel string) string {
	base = Normalize(base)
	if base == Root {
		return Normalize(rel)
	}
	return Normalize(base + "/" + rel)
}
