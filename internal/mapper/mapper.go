// Package mapper hydrates typed values from qualified-name-keyed property
// bags. Each mapped type declares its fields explicitly through a Schema;
// member names are translated to dictionary names by package naming and
// resolved against a namespace service once per type.
package mapper

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/R3E-Network/mvc_bridge/internal/node"
)

// AfterMapFunc runs after a value has been populated.
type AfterMapFunc[T any] func(ref node.Ref, props node.Properties, v *T) error

// Option configures a Mapper.
type Option[T any] func(*Mapper[T])

// WithAfterMap installs a hook that runs last on every mapped value.
func WithAfterMap[T any](fn AfterMapFunc[T]) Option[T] {
	return func(m *Mapper[T]) {
		m.afterMap = fn
	}
}

// Mapper maps property bags onto values of a single type.
type Mapper[T any] struct {
	cache    *Cache
	afterMap AfterMapFunc[T]

	mu   sync.Mutex
	desc atomic.Pointer[Descriptor[T]]
}

// New returns a mapper bound to schema. Descriptor construction errors are
// returned here so misconfiguration surfaces at startup.
func New[T any](cache *Cache, schema Schema[T], opts ...Option[T]) (*Mapper[T], error) {
	m := NewUnbound(cache, opts...)
	if err := m.Bind(schema); err != nil {
		return nil, err
	}
	return m, nil
}

// NewUnbound returns a mapper without a schema. Map fails until Bind is
// called.
func NewUnbound[T any](cache *Cache, opts ...Option[T]) *Mapper[T] {
	m := &Mapper[T]{cache: cache}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bind sets the mapped schema. Binding the schema already bound is a no-op;
// binding a different one fails with ErrMappedTypeReassigned.
func (m *Mapper[T]) Bind(schema Schema[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.desc.Load(); current != nil {
		if current.name == schema.TypeName() && current.describes(schema) {
			return nil
		}
		return fmt.Errorf("%w: bound to %s, requested %s", ErrMappedTypeReassigned, current.name, schema.TypeName())
	}

	d, err := Describe(m.cache, schema)
	if err != nil {
		return err
	}
	m.desc.Store(d)
	return nil
}

// Descriptor returns the bound descriptor.
func (m *Mapper[T]) Descriptor() (*Descriptor[T], error) {
	d := m.desc.Load()
	if d == nil {
		return nil, ErrNotConfigured
	}
	return d, nil
}

// Map allocates a new T and populates it from props. Only qualified names
// known to the descriptor are read; missing or nil values leave the member
// at its zero value. The identifier slot, if any, is set to ref after all
// properties, then the after-map hook runs.
func (m *Mapper[T]) Map(ref node.Ref, props node.Properties) (*T, error) {
	d := m.desc.Load()
	if d == nil {
		return nil, ErrNotConfigured
	}

	v := new(T)
	if err := d.apply(v, props); err != nil {
		m.record(d.name, "error")
		m.cache.log.WithError(err).WithField("node", ref.String()).Debug("Mapping failed")
		return nil, err
	}

	if d.id != nil {
		*d.id(v) = ref
	}

	if m.afterMap != nil {
		if err := m.afterMap(ref, props, v); err != nil {
			m.record(d.name, "error")
			return nil, fmt.Errorf("map %s: after-map hook: %w", d.name, err)
		}
	}

	m.record(d.name, "success")
	return v, nil
}

// MapAll maps each bag in order. The first failure aborts.
func (m *Mapper[T]) MapAll(refs []node.Ref, props []node.Properties) ([]*T, error) {
	if len(refs) != len(props) {
		return nil, fmt.Errorf("map: %d refs for %d property bags", len(refs), len(props))
	}
	out := make([]*T, 0, len(refs))
	for i := range refs {
		v, err := m.Map(refs[i], props[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *Mapper[T]) record(schema, outcome string) {
	if m.cache != nil && m.cache.recorder != nil {
		m.cache.recorder.RecordMapping(schema, outcome)
	}
}
