package fragment

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
	radix "github.com/armon/go-radix"
)

var (
	// ErrEmptyKey is returned when registering a fragment without a key.
	ErrEmptyKey = errors.New("fragment key cannot be empty")

	// ErrUnknownReference is returned in strict mode when a reference
	// matches neither a fragment key nor a category.
	ErrUnknownReference = errors.New("unknown reference")
)

// ResolvePolicy controls how Resolve treats references that match
// neither a fragment key nor a category.
type ResolvePolicy int

const (
	// ResolvePermissive silently ignores unknown references.
	ResolvePermissive ResolvePolicy = iota
	// ResolveStrict fails resolution on the first unknown reference.
	ResolveStrict
)

// Store owns the canonical fragments and keeps two directional indices
// in lock-step: a radix tree from key to fragment (which doubles as an
// ordered listing for inspection) and a bitmap posting list from
// category tag to fragment identity. A single mutex guards the indices;
// fragments themselves are immutable and safe to share once resolved.
type Store struct {
	mu     sync.RWMutex
	keys   *radix.Tree                // fragment key -> *Fragment
	byID   map[uint32]*Fragment       // identity -> fragment
	tags   map[string]*roaring.Bitmap // category tag -> member identities
	nextID uint32
	policy ResolvePolicy
}

// NewStore creates an empty store with the given resolve policy.
func NewStore(policy ResolvePolicy) *Store {
	return &Store{
		keys:   radix.New(),
		byID:   make(map[uint32]*Fragment),
		tags:   make(map[string]*roaring.Bitmap),
		policy: policy,
	}
}

// SetFragment registers content under key, replacing any existing
// fragment after detaching its old category memberships. Replacement
// assigns a fresh identity, so queries holding the previous fragment
// keep an intact snapshot. The cache is deliberately untouched: updated
// content changes the content hash, so future queries fingerprint
// differently and stale results fall out on their own.
func (s *Store) SetFragment(key, content string, categories []string) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.keys.Get(key); ok {
		s.detach(old.(*Fragment))
	}

	frag := &Fragment{
		key:        key,
		text:       content,
		hash:       HashText(content),
		categories: append([]string(nil), categories...),
		id:         s.nextID,
	}
	s.nextID++

	s.keys.Insert(key, frag)
	s.byID[frag.id] = frag
	for _, tag := range frag.categories {
		bm, ok := s.tags[tag]
		if !ok {
			bm = roaring.New()
			s.tags[tag] = bm
		}
		bm.Add(frag.id)
	}
	return nil
}

// RemoveFragment deletes the fragment under key and reports whether
// anything was removed. Fragments already resolved into queries are
// unaffected.
func (s *Store) RemoveFragment(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.keys.Get(key)
	if !ok {
		return false
	}
	s.detach(v.(*Fragment))
	return true
}

// RemoveAll clears every fragment and category index.
func (s *Store) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys = radix.New()
	s.byID = make(map[uint32]*Fragment)
	s.tags = make(map[string]*roaring.Bitmap)
}

// detach removes a fragment from every index, walking the fragment's own
// recorded tag list rather than re-deriving it. Caller holds the lock.
func (s *Store) detach(f *Fragment) {
	for _, tag := range f.categories {
		if bm, ok := s.tags[tag]; ok {
			bm.Remove(f.id)
			if bm.IsEmpty() {
				delete(s.tags, tag)
			}
		}
	}
	s.keys.Delete(f.key)
	delete(s.byID, f.id)
}

// Resolve maps references to a deduplicated fragment list in
// content-hash order. Each reference is tried as an exact key first; a
// key match never falls through to category matching. References
// matching multiple ways contribute each fragment once (dedup is by
// fragment identity, not content hash, so hash-colliding fragments stay
// distinct). Unknown references are ignored under ResolvePermissive and
// fail resolution under ResolveStrict.
func (s *Store) Resolve(refs []string) ([]*Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := roaring.New()
	for _, ref := range refs {
		if v, ok := s.keys.Get(ref); ok {
			matched.Add(v.(*Fragment).id)
			continue
		}
		if bm, ok := s.tags[ref]; ok {
			matched.Or(bm)
			continue
		}
		if s.policy == ResolveStrict {
			return nil, fmt.Errorf("%w: %q", ErrUnknownReference, ref)
		}
	}

	out := make([]*Fragment, 0, matched.GetCardinality())
	it := matched.Iterator()
	for it.HasNext() {
		out = append(out, s.byID[it.Next()])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].hash != out[j].hash {
			return out[i].hash < out[j].hash
		}
		return out[i].id < out[j].id
	})
	return out, nil
}

// Fragment returns the fragment registered under key.
func (s *Store) Fragment(key string) (*Fragment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.keys.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*Fragment), true
}

// Keys returns every registered key with the given prefix in
// lexicographic order. An empty prefix lists all keys.
func (s *Store) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	s.keys.WalkPrefix(prefix, func(k string, _ interface{}) bool {
		out = append(out, k)
		return false
	})
	return out
}

// Categories returns every category tag with at least one member,
// sorted.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.tags))
	for tag := range s.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered fragments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys.Len()
}
