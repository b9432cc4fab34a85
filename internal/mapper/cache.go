package mapper

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/R3E-Network/mvc_bridge/internal/namespace"
	"github.com/R3E-Network/mvc_bridge/pkg/logger"
)

// Recorder receives mapping outcomes. *metrics.Metrics implements it.
type Recorder interface {
	RecordMapping(schema, outcome string)
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the logger used for descriptor construction and mapping.
func WithLogger(log *logger.Logger) CacheOption {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRecorder sets the recorder notified of every mapping outcome.
func WithRecorder(r Recorder) CacheOption {
	return func(c *Cache) {
		c.recorder = r
	}
}

// Cache holds the descriptors built against one namespace service. Each
// schema is described once for the cache's lifetime.
type Cache struct {
	ns       namespace.Service
	log      *logger.Logger
	recorder Recorder

	group       singleflight.Group
	mu          sync.RWMutex
	descriptors map[string]any
}

// NewCache returns a descriptor cache resolving names through ns.
func NewCache(ns namespace.Service, opts ...CacheOption) *Cache {
	c := &Cache{
		ns:          ns,
		log:         logger.Discard(),
		descriptors: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Len returns the number of cached descriptors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.descriptors)
}

// Describe returns the descriptor of schema, building it on first use.
// Concurrent first requests for the same schema share one build. The schema
// name identifies the field set: describing a schema whose name is cached
// with different fields fails with ErrInvalidSchema.
func Describe[T any](c *Cache, schema Schema[T]) (*Descriptor[T], error) {
	if c == nil || c.ns == nil {
		return nil, fmt.Errorf("%w: no namespace service", ErrNotConfigured)
	}
	name := schema.TypeName()

	c.mu.RLock()
	cached, ok := c.descriptors[name]
	c.mu.RUnlock()
	if ok {
		return typed(name, cached, schema)
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		c.mu.RLock()
		existing, ok := c.descriptors[name]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		d, err := buildDescriptor(schema, c.ns, c.log)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.descriptors[name] = d
		c.mu.Unlock()

		c.log.WithField("schema", name).WithField("qnames", len(d.qnames)).Debug("Built mapping descriptor")
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return typed(name, v, schema)
}

func typed[T any](name string, v any, schema Schema[T]) (*Descriptor[T], error) {
	d, ok := v.(*Descriptor[T])
	if !ok {
		return nil, fmt.Errorf("%w: schema %s is already described for %T", ErrInvalidSchema, name, v)
	}
	if !d.describes(schema) {
		return nil, fmt.Errorf("%w: schema %s is already described with different fields", ErrInvalidSchema, name)
	}
	return d, nil
}
