// Package query assembles a main query text with its resolved fragments
// and derives the combination's 64-bit cache fingerprint.
package query

import (
	"encoding/binary"
	"hash/fnv"
	"strings"

	"github.com/hornetworks/aspcache/asp/fragment"
	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

// MainPartName names the synthetic part carrying the main query text. It
// is appended after the resolved fragments and never enters the store.
const MainPartName = "__query__"

// Query is the ephemeral result of assembling a main query text with its
// resolved fragments. It lives for one lookup/solve cycle; the fragments
// it holds are immutable snapshots.
type Query struct {
	text        string
	fragments   []*fragment.Fragment
	fingerprint uint64
}

// Prepare resolves refs against the store and computes the query
// fingerprint: a streaming FNV-1a 64 digest of the raw query text bytes
// followed by each resolved fragment's 8-byte content hash, in
// content-hash order. The synthetic main part carries hash zero and is
// excluded from the digest; the raw text bytes already cover it.
func Prepare(queryText string, refs []string, store *fragment.Store) (*Query, error) {
	resolved, err := store.Resolve(refs)
	if err != nil {
		return nil, err
	}

	h := fnv.New64a()
	h.Write([]byte(queryText))
	var buf [8]byte
	for _, f := range resolved {
		if f.Hash() == 0 {
			continue
		}
		binary.BigEndian.PutUint64(buf[:], f.Hash())
		h.Write(buf[:])
	}

	return &Query{
		text:        queryText,
		fragments:   resolved,
		fingerprint: h.Sum64(),
	}, nil
}

// Fingerprint identifies the exact combination of query text and
// resolved fragment contents. It is the result cache key.
func (q *Query) Fingerprint() uint64 { return q.fingerprint }

// Fragments returns the resolved fragments in canonical order.
func (q *Query) Fragments() []*fragment.Fragment { return q.fragments }

// Text returns the main query text.
func (q *Query) Text() string { return q.text }

// Parts returns the ordered part list for the solving engine: every
// resolved fragment followed by the synthetic main-query part.
func (q *Query) Parts() []ports.Part {
	parts := make([]ports.Part, 0, len(q.fragments)+1)
	for _, f := range q.fragments {
		parts = append(parts, ports.Part{Name: f.Key(), Text: f.Text()})
	}
	return append(parts, ports.Part{Name: MainPartName, Text: q.text})
}

// Assembled returns the complete program text with parts joined in
// order, for inspection and debugging.
func (q *Query) Assembled() string {
	var sb strings.Builder
	for i, p := range q.Parts() {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
