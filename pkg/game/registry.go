package game

import (
	"slices"
	"strings"
)

// Registry is the set of live characters in insertion order. It is owned by
// the server's event loop and is not safe for concurrent use.
type Registry struct {
	chars []*Character
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers ch. Adding a character twice is a no-op.
func (r *Registry) Add(ch *Character) {
	if r.Contains(ch) {
		return
	}
	r.chars = append(r.chars, ch)
}

// Remove drops ch if present.
func (r *Registry) Remove(ch *Character) {
	if i := slices.Index(r.chars, ch); i >= 0 {
		r.chars = slices.Delete(r.chars, i, i+1)
	}
}

// Contains reports whether ch is registered.
func (r *Registry) Contains(ch *Character) bool {
	return slices.Contains(r.chars, ch)
}

// Len returns the number of live characters.
func (r *Registry) Len() int {
	return len(r.chars)
}

// All returns a snapshot, safe to iterate while characters come and go.
func (r *Registry) All() []*Character {
	return slices.Clone(r.chars)
}

// FindByName returns the first character whose name matches,
// ignoring case, or nil.
func (r *Registry) FindByName(name string) *Character {
	for _, ch := range r.chars {
		if strings.EqualFold(ch.Name(), name) {
			return ch
		}
	}
	return nil
}
