package api

import (
	"sort"
	"sync"

	"github.com/samcharles93/tunesmith/internal/composer"
)

// CompositionStore keeps finished compositions in memory.
type CompositionStore struct {
	mu           sync.Mutex
	compositions map[string]*composer.Composition
	// audio caches rendered WAV bytes per composition.
	audio map[string][]byte
}

func NewCompositionStore() *CompositionStore {
	return &CompositionStore{
		compositions: make(map[string]*composer.Composition),
		audio:        make(map[string][]byte),
	}
}

func (s *CompositionStore) Save(c *composer.Composition) {
	s.mu.Lock()
	s.compositions[c.ID] = c
	s.mu.Unlock()
}

func (s *CompositionStore) Get(id string) (*composer.Composition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.compositions[id]
	return c, ok
}

// List returns stored compositions, newest first.
func (s *CompositionStore) List() []*composer.Composition {
	s.mu.Lock()
	out := make([]*composer.Composition, 0, len(s.compositions))
	for _, c := range s.compositions {
		out = append(out, c)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *CompositionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.compositions[id]; !ok {
		return false
	}
	delete(s.compositions, id)
	delete(s.audio, id)
	return true
}

func (s *CompositionStore) Audio(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.audio[id]
	return b, ok
}

// PutAudio is a no-op when the composition was deleted in the meantime.
func (s *CompositionStore) PutAudio(id string, wav []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.compositions[id]; ok {
		s.audio[id] = wav
	}
}
