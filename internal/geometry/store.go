package geometry

import "sync"

// Store is an append-only list of meshes. Meshes are never modified after Add.
type Store struct {
	mu     sync.RWMutex
	meshes []*Mesh
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a mesh and returns its index.
func (s *Store) Add(m *Mesh) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes = append(s.meshes, m)
	return len(s.meshes) - 1
}

// Len returns the number of meshes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meshes)
}

// Snapshot returns the current mesh list. The returned slice must not be modified.
func (s *Store) Snapshot() []*Mesh {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meshes[:len(s.meshes):len(s.meshes)]
}
