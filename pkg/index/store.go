package index

import (
	"sync/atomic"
)

// Store publishes the current Index. Builders construct a complete Index
// and Swap it in; readers Load a snapshot and use it for one scan, so no
// reader ever sees a half-built table.
type Store struct {
	cur atomic.Pointer[Index]
}

// NewStore returns a store publishing idx, or an empty index when idx is nil.
func NewStore(idx *Index) *Store {
	s := &Store{}
	s.Swap(idx)
	return s
}

// Load returns the current snapshot. It never returns nil.
func (s *Store) Load() *Index {
	if idx := s.cur.Load(); idx != nil {
		return idx
	}
	return Empty()
}

// Swap publishes idx and returns the previous snapshot.
func (s *Store) Swap(idx *Index) *Index {
	if idx == nil {
		idx = Empty()
	}
	return s.cur.Swap(idx)
}
