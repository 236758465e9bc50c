package xrecord

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry maps Go types to their descriptor tables. Register tables at
// startup; lookups are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]Descriptor)}
}

// Add registers d, replacing any earlier table for the same type.
func (r *Registry) Add(d Descriptor) {
	r.mu.Lock()
	r.byType[d.Type()] = d
	r.mu.Unlock()
}

// Register adds tbl to r and returns it, so it can wrap a table
// declaration:
//
//	var customers = xrecord.Register(reg, xrecord.MustTable(xrecord.TableOf[Customer]()))
func Register[T any](r *Registry, tbl *Table[T]) *Table[T] {
	r.Add(tbl)
	return tbl
}

// Lookup returns the table registered for rt. Pointer types resolve to
// their element type.
func (r *Registry) Lookup(rt reflect.Type) (Descriptor, error) {
	rt = derefPtr(rt)
	r.mu.RLock()
	d, ok := r.byType[rt]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotRegistered, rt)
	}
	return d, nil
}

// TableFor returns the typed table registered for T.
func TableFor[T any](r *Registry) (*Table[T], error) {
	d, err := r.Lookup(typeOf[T]())
	if err != nil {
		return nil, err
	}
	t, ok := d.(*Table[T])
	if !ok {
		return nil, fmt.Errorf("%w: %v has a foreign descriptor %T", ErrNotRegistered, typeOf[T](), d)
	}
	return t, nil
}

// findByName resolves a schema type reference: either the package
// qualified name or the bare type name. A bare name shared by two
// registered types is ambiguous.
func (r *Registry) findByName(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var hit Descriptor
	for rt, d := range r.byType {
		if typeFullName(rt) == name {
			return d, nil
		}
		if rt.Name() == name {
			if hit != nil {
				return nil, fmt.Errorf("%w: type name %q is ambiguous, use the package qualified name", ErrSchema, name)
			}
			hit = d
		}
	}
	if hit == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return hit, nil
}

// Descriptors returns the registered tables ordered by full type name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.byType))
	for _, d := range r.byType {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return typeFullName(out[i].Type()) < typeFullName(out[j].Type())
	})
	return out
}
