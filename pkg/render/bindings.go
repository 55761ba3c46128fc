package render

import "sync"

// Bindings tracks which interactive elements currently have handlers,
// keyed by their data-bind-id ("like:12", "page:3", "layout-toggle").
// Binding an id that is already bound is a no-op.
type Bindings struct {
	mu    sync.Mutex
	bound map[string]struct{}
	fixed map[string]struct{}
}

func NewBindings() *Bindings {
	return &Bindings{
		bound: make(map[string]struct{}),
		fixed: make(map[string]struct{}),
	}
}

// Bind registers a permanent id that survives Sync. It reports whether the
// id was newly bound.
func (b *Bindings) Bind(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.bound[id]; ok {
		return false
	}
	b.bound[id] = struct{}{}
	b.fixed[id] = struct{}{}
	return true
}

// Sync makes the non-permanent bindings match ids, the elements present
// after a render. It returns the ids that were newly bound.
func (b *Bindings) Sync(ids []string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	present := make(map[string]struct{}, len(ids))
	var added []string
	for _, id := range ids {
		if _, dup := present[id]; dup {
			continue
		}
		present[id] = struct{}{}
		if _, ok := b.bound[id]; !ok {
			b.bound[id] = struct{}{}
			added = append(added, id)
		}
	}
	for id := range b.bound {
		if _, keep := present[id]; keep {
			continue
		}
		if _, perm := b.fixed[id]; perm {
			continue
		}
		delete(b.bound, id)
	}
	return added
}

// Bound reports whether id currently has a handler.
func (b *Bindings) Bound(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.bound[id]
	return ok
}

func (b *Bindings) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bound)
}
