package dashboard

import (
	"sync"

	"github.com/user/nocview/internal/pipeline"
)

// Page owns one fetched collection and its filter state. The collection is
// only ever replaced as a whole; filter operations never touch it.
type Page[T any] struct {
	name     string
	pipeline *pipeline.Pipeline[T]

	mu     sync.RWMutex
	items  []T
	state  pipeline.State
	loaded bool
}

// NewPage creates an empty page.
func NewPage[T any](name string, p *pipeline.Pipeline[T], pageSize int) *Page[T] {
	return &Page[T]{
		name:     name,
		pipeline: p,
		state:    pipeline.NewState(pageSize),
	}
}

// Name returns the page name.
func (p *Page[T]) Name() string {
	return p.name
}

// Pipeline returns the page pipeline.
func (p *Page[T]) Pipeline() *pipeline.Pipeline[T] {
	return p.pipeline
}

// SetItems replaces the fetched collection.
func (p *Page[T]) SetItems(items []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = items
	p.loaded = true
}

// Items returns the unfiltered collection. Callers must not modify it.
func (p *Page[T]) Items() []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.items
}

// Loaded reports whether the page has received data at least once.
func (p *Page[T]) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// State returns a copy of the filter state.
func (p *Page[T]) State() pipeline.State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Clone()
}

// Update mutates the filter state under the page lock.
func (p *Page[T]) Update(fn func(s *pipeline.State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
}

// SetState replaces the filter state.
func (p *Page[T]) SetState(s pipeline.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s.Clone()
}

// View renders the current page of the filtered collection.
func (p *Page[T]) View() pipeline.View[T] {
	p.mu.RLock()
	items, state := p.items, p.state.Clone()
	p.mu.RUnlock()
	return p.pipeline.View(items, state)
}

// Filtered returns the whole filtered collection, unpaginated.
func (p *Page[T]) Filtered() []T {
	p.mu.RLock()
	items, state := p.items, p.state.Clone()
	p.mu.RUnlock()
	return p.pipeline.Apply(items, state)
}

// NextPage moves forward one page within the filtered result.
func (p *Page[T]) NextPage() {
	total := p.View().TotalPages
	p.Update(func(s *pipeline.State) { s.NextPage(total) })
}

// PrevPage moves back one page.
func (p *Page[T]) PrevPage() {
	p.Update(func(s *pipeline.State) { s.PrevPage() })
}
