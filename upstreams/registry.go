package upstreams

import "sort"

// Registry manages the collection of extractors for lookup by name.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
	}
}

// Register adds an extractor to the registry.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Name()] = e
}

// Get returns an extractor by name and whether it was found.
func (r *Registry) Get(name string) (Extractor, bool) {
	e, ok := r.extractors[name]
	return e, ok
}

// List returns the names of all registered extractors, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
