// Package appctx provides the application context: a named bean registry
// arranged in a parent/child hierarchy that signals its lifecycle to
// listeners. Events published by a context are also delivered to the
// listeners of every ancestor.
package appctx

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrDuplicateBean = errors.New("bean already registered")
	ErrBeanNotFound  = errors.New("bean not found")
	ErrClosed        = errors.New("context is closed")
)

type listenerEntry struct {
	id       int64
	listener Listener
}

// Context is an application context. It is safe for concurrent use.
type Context struct {
	id      string
	name    string
	parent  *Context
	history *History

	mu        sync.RWMutex
	beans     map[string]any
	order     []string
	listeners []listenerEntry
	nextID    int64
	active    bool
	closed    bool
}

// New creates a root context.
func New(name string) *Context {
	return &Context{
		id:      uuid.NewString(),
		name:    name,
		history: NewHistory(64),
		beans:   make(map[string]any),
	}
}

// NewChild creates a context whose bean lookups fall back to c.
func (c *Context) NewChild(name string) *Context {
	child := New(name)
	child.parent = c
	child.history = c.history
	return child
}

// ID returns the unique id of the context.
func (c *Context) ID() string { return c.id }

// Name returns the display name of the context.
func (c *Context) Name() string { return c.name }

// Parent returns the parent context, or nil for a root.
func (c *Context) Parent() *Context { return c.parent }

// History returns the lifecycle history shared by the hierarchy.
func (c *Context) History() *History { return c.history }

// IsActive reports whether the context has been refreshed and not closed.
func (c *Context) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active && !c.closed
}

// Register adds a named bean. Names are unique within one context; a child
// may shadow a parent's bean.
func (c *Context) Register(name string, bean any) error {
	name = strings.TrimSpace(name)
	if name == "" || bean == nil {
		return fmt.Errorf("bean name and value are required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if _, exists := c.beans[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBean, name)
	}
	c.beans[name] = bean
	c.order = append(c.order, name)
	return nil
}

// Bean returns the named bean from this context or the nearest ancestor.
func (c *Context) Bean(name string) (any, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		ctx.mu.RLock()
		bean, ok := ctx.beans[name]
		ctx.mu.RUnlock()
		if ok {
			return bean, true
		}
	}
	return nil, false
}

// BeanNames lists the names registered directly on c, in registration order.
func (c *Context) BeanNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// BeanOf returns the named bean as a T.
func BeanOf[T any](c *Context, name string) (T, error) {
	var zero T
	bean, ok := c.Bean(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrBeanNotFound, name)
	}
	typed, ok := bean.(T)
	if !ok {
		return zero, fmt.Errorf("bean %s is %T, not %T", name, bean, zero)
	}
	return typed, nil
}

// BeansOf returns every visible bean assignable to T: c's own beans in
// registration order, then those of its ancestors not shadowed by name.
func BeansOf[T any](c *Context) []T {
	var out []T
	seen := make(map[string]struct{})
	for ctx := c; ctx != nil; ctx = ctx.parent {
		ctx.mu.RLock()
		for _, name := range ctx.order {
			if _, shadowed := seen[name]; shadowed {
				continue
			}
			seen[name] = struct{}{}
			if typed, ok := ctx.beans[name].(T); ok {
				out = append(out, typed)
			}
		}
		ctx.mu.RUnlock()
	}
	return out
}

// Subscribe registers a listener and returns its unsubscribe function.
func (c *Context) Subscribe(l Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, listenerEntry{id: id, listener: l})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, entry := range c.listeners {
			if entry.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Refresh marks the context active and publishes EventRefreshed. It may be
// called again to re-signal readiness.
func (c *Context) Refresh() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.active = true
	c.mu.Unlock()

	c.publish(newEvent(EventRefreshed, c))
	return nil
}

// Close deactivates the context and publishes EventClosed. Closing twice is
// a no-op.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.active = false
	c.mu.Unlock()

	c.publish(newEvent(EventClosed, c))
}

// publish delivers ev to the listeners of c and of every ancestor.
// Listeners are notified outside the lock.
func (c *Context) publish(ev Event) {
	c.history.Add(ev)
	for ctx := c; ctx != nil; ctx = ctx.parent {
		ctx.mu.RLock()
		listeners := make([]listenerEntry, len(ctx.listeners))
		copy(listeners, ctx.listeners)
		ctx.mu.RUnlock()

		for _, entry := range listeners {
			entry.listener(ev)
		}
	}
}

func (c *Context) String() string {
	return fmt.Sprintf("%s (%s)", c.name, c.id)
}
