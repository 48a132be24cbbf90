// Package dedup suppresses chunks whose content was already emitted within
// one scope.
package dedup

import (
	"sync"

	"github.com/sevigo/semchunk/schema"
)

// Store maps content hashes to the id of the first chunk that carried them.
// It is safe for concurrent use; Reset is atomic with respect to Apply.
type Store struct {
	mu    sync.Mutex
	seen  map[string]string
	dupes int
}

func NewStore() *Store {
	return &Store{seen: make(map[string]string)}
}

// Claim records hash for chunkID and reports whether it was new.
func (s *Store) Claim(hash, chunkID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[hash]; ok {
		s.dupes++
		return false
	}
	s.seen[hash] = chunkID
	return true
}

// Owner returns the id of the chunk that first claimed hash.
func (s *Store) Owner(hash string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.seen[hash]
	return id, ok
}

// Apply drops duplicates from chunks, in order, and stamps the survivors
// with batchID. The whole slice is processed under one lock so concurrent
// callers cannot interleave within a file.
func (s *Store) Apply(chunks []schema.CodeChunk, batchID string) []schema.CodeChunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]schema.CodeChunk, 0, len(chunks))
	for _, c := range chunks {
		hash := c.ContentHash
		if hash == "" {
			hash = schema.ContentHash(c.Content)
		}
		if _, ok := s.seen[hash]; ok {
			s.dupes++
			continue
		}
		s.seen[hash] = c.ID
		out = append(out, c.WithBatchID(batchID))
	}
	return out
}

// Len returns the number of distinct hashes retained.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Duplicates returns how many chunks were suppressed since the last Reset.
func (s *Store) Duplicates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dupes
}

// Reset forgets every hash.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]string)
	s.dupes = 0
}
