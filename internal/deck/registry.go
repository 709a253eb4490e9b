package deck

import (
	"sort"
	"sync"
)

// Registry holds the in-memory Deck instances, one per serial. Discovery
// and the HTTP interface share one Registry so both see the same Deck for
// a serial. All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	decks map[string]*Deck
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decks: make(map[string]*Deck)}
}

// Get returns the deck registered for serial.
func (r *Registry) Get(serial string) (*Deck, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decks[serial]
	return d, ok
}

// Register adds d unless a deck with the same serial is already present.
// It returns the registered instance, which callers must use from then on.
func (r *Registry) Register(d *Deck) *Deck {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.decks[d.Serial()]; ok {
		return existing
	}
	r.decks[d.Serial()] = d
	return d
}

// Remove drops the deck for serial.
func (r *Registry) Remove(serial string) {
	r.mu.Lock()
	delete(r.decks, serial)
	r.mu.Unlock()
}

// List returns the registered decks ordered by serial.
func (r *Registry) List() []*Deck {
	r.mu.RLock()
	out := make([]*Deck, 0, len(r.decks))
	for _, d := range r.decks {
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Serial() < out[j].Serial() })
	return out
}

// Len returns the number of registered decks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decks)
}
