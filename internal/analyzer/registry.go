package analyzer

import (
	"slices"
	"sync"
)

// Registry maps analyzer names to analyzers and iterates in insertion order.
type Registry struct {
	order  []string
	byName map[string]Analyzer
}

// NewRegistry registers analyzers in the given order. A later analyzer with a
// name already present replaces the earlier one in place.
func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{byName: make(map[string]Analyzer, len(analyzers))}
	for _, a := range analyzers {
		if _, ok := r.byName[a.Name()]; !ok {
			r.order = append(r.order, a.Name())
		}
		r.byName[a.Name()] = a
	}
	return r
}

// Builtin returns a registry holding what, dump-h and dump-T.
func Builtin(opts Options) *Registry {
	return NewRegistry(
		NewWhatAnalyzer(opts),
		NewSectionHeaderAnalyzer(opts),
		NewLoaderSymbolAnalyzer(opts),
	)
}

// Lazy returns a function that builds the built-in registry on its first call
// and returns that same registry afterwards.
func Lazy(opts Options) func() *Registry {
	return sync.OnceValue(func() *Registry { return Builtin(opts) })
}

// Get returns the analyzer registered under name, or false.
func (r *Registry) Get(name string) (Analyzer, bool) {
	a, ok := r.byName[name]
	return a, ok
}

func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

func (r *Registry) All() []Analyzer {
	all := make([]Analyzer, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.byName[name])
	}
	return all
}

// Select returns the analyzers to run in registry order. A non-empty include
// list restricts the set; unknown names in either list are ignored.
func (r *Registry) Select(include, exclude []string) []Analyzer {
	selected := []Analyzer{}
	for _, name := range r.order {
		if len(include) > 0 && !slices.Contains(include, name) {
			continue
		}
		if slices.Contains(exclude, name) {
			continue
		}
		selected = append(selected, r.byName[name])
	}
	return selected
}

// Unknown returns the names that are not registered.
func (r *Registry) Unknown(names []string) []string {
	unknown := []string{}
	for _, name := range names {
		if _, ok := r.byName[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
