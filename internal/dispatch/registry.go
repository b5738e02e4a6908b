package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ErrNoImplementation is returned when neither a value's kind nor any of its
// ancestors has a registered implementation.
var ErrNoImplementation = errors.New("no implementation for source type")

// Kind names a family of values that share an implementation. Concrete Go
// types use their type string (see KindOf); abstract categories are plain
// names such as "columnar".
type Kind string

// Lineage is implemented by values that declare their own ancestry. The
// returned kinds are ordered most specific first and normally start with
// KindOf the value itself.
type Lineage interface {
	Lineage() []Kind
}

// KindOf returns the kind of v's dynamic Go type, e.g. "*memory.Frame".
func KindOf(v any) Kind {
	if v == nil {
		return "<nil>"
	}
	return Kind(reflect.TypeOf(v).String())
}

// KindFor returns the kind of the type parameter T without needing a value.
func KindFor[T any]() Kind {
	return Kind(reflect.TypeFor[T]().String())
}

// Registry associates kinds with implementations of type F. Lookup resolves
// a value's kind first, then walks the declared ancestry breadth first.
//
// Registration is expected during package initialization; the lock keeps
// late registration from racing with lookups but re-registering a kind
// while requests are in flight changes which implementation they see.
type Registry[F any] struct {
	name    string
	mu      sync.RWMutex
	impls   map[Kind]F
	parents map[Kind][]Kind
}

// NewRegistry returns an empty registry. name is used in error messages.
func NewRegistry[F any](name string) *Registry[F] {
	return &Registry[F]{
		name:    name,
		impls:   make(map[Kind]F),
		parents: make(map[Kind][]Kind),
	}
}

// Register associates kind with impl, replacing any previous association.
func (r *Registry[F]) Register(kind Kind, impl F) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.impls[kind] = impl
}

// Derive declares parents as ancestors of kind, most specific first.
// Calling Derive again for the same kind replaces its parent list.
func (r *Registry[F]) Derive(kind Kind, parents ...Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parents[kind] = append([]Kind(nil), parents...)
}

// Lineage returns the lookup order for v: its own lineage (or KindOf(v))
// followed by declared ancestors, breadth first, without duplicates.
func (r *Registry[F]) Lineage(v any) []Kind {
	var seed []Kind
	if l, ok := v.(Lineage); ok {
		seed = l.Lineage()
	}
	if len(seed) == 0 {
		seed = []Kind{KindOf(v)}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.walk(seed)
}

func (r *Registry[F]) walk(seed []Kind) []Kind {
	seen := make(map[Kind]bool, len(seed))
	order := make([]Kind, 0, len(seed))
	queue := append([]Kind(nil), seed...)
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if seen[k] {
			continue
		}
		seen[k] = true
		order = append(order, k)
		queue = append(queue, r.parents[k]...)
	}
	return order
}

// Resolve returns the implementation serving v and the kind it was
// registered under.
func (r *Registry[F]) Resolve(v any) (F, Kind, error) {
	lineage := r.Lineage(v)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range lineage {
		if impl, ok := r.impls[k]; ok {
			return impl, k, nil
		}
	}
	var zero F
	return zero, "", fmt.Errorf("%s: %w: %s", r.name, ErrNoImplementation, KindOf(v))
}

// Has reports whether kind has an implementation registered directly.
func (r *Registry[F]) Has(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.impls[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry[F]) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.impls))
	for k := range r.impls {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Unregister removes kind's implementation. It exists for tests that
// register throwaway kinds on shared registries.
func (r *Registry[F]) Unregister(kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.impls, kind)
}
