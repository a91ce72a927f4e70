package schema

import "sync"

// Registry is the catalog of field types known to the gateway. It is loaded
// from listTypes and consulted when a field definition is edited. Safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*FieldType // id -> type
	order []string              // ids in gateway order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*FieldType)}
}

// Register adds a type, replacing any previous type with the same id.
func (r *Registry) Register(t FieldType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	r.types[t.ID] = &t
}

// Replace swaps the whole catalog for a freshly fetched list.
func (r *Registry) Replace(types []FieldType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = make(map[string]*FieldType, len(types))
	r.order = r.order[:0]
	for i := range types {
		t := types[i]
		if _, ok := r.types[t.ID]; !ok {
			r.order = append(r.order, t.ID)
		}
		r.types[t.ID] = &t
	}
}

// Type returns the type with the given id, or nil if not found.
func (r *Registry) Type(id string) *FieldType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// Has reports whether id is a known type.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[id]
	return ok
}

// Types returns all types in catalog order.
func (r *Registry) Types() []FieldType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FieldType, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.types[id])
	}
	return out
}

// Label returns the display label for a type id, or the id itself.
func (r *Registry) Label(id string) string {
	if t := r.Type(id); t != nil {
		return t.Label()
	}
	return id
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
