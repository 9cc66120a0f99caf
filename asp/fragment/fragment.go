// Package fragment implements the store of named program-text fragments
// and their category index.
package fragment

import "hash/fnv"

// Fragment is a named, immutable block of program text with optional
// category tags. Fragments handed out by Resolve are snapshots: the
// Store may replace or remove its own copy without affecting queries
// that already hold one.
type Fragment struct {
	key        string
	text       string
	hash       uint64
	categories []string
	id         uint32
}

// Key returns the caller-chosen unique key.
func (f *Fragment) Key() string { return f.key }

// Text returns the program text.
func (f *Fragment) Text() string { return f.text }

// Hash returns the 64-bit digest of the text.
func (f *Fragment) Hash() uint64 { return f.hash }

// Categories returns a copy of the fragment's category tags.
func (f *Fragment) Categories() []string {
	out := make([]string, len(f.categories))
	copy(out, f.categories)
	return out
}

// HashText computes the 64-bit FNV-1a digest used for fragment content
// hashing and query fingerprinting.
func HashText(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}
