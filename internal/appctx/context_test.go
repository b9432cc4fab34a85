package appctx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

type french struct{}

func (french) Greet() string { return "bonjour" }

func TestRegisterAndLookup(t *testing.T) {
	root := New("root")
	require.NoError(t, root.Register("greeter", english{}))
	assert.ErrorIs(t, root.Register("greeter", french{}), ErrDuplicateBean)
	assert.Error(t, root.Register("", english{}))

	child := root.NewChild("child")
	bean, ok := child.Bean("greeter")
	require.True(t, ok)
	assert.Equal(t, english{}, bean)

	g, err := BeanOf[greeter](child, "greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello", g.Greet())

	_, err = BeanOf[greeter](child, "missing")
	assert.ErrorIs(t, err, ErrBeanNotFound)

	_, err = BeanOf[string](child, "greeter")
	assert.Error(t, err)
}

func TestBeansOf_ShadowingAndOrder(t *testing.T) {
	root := New("root")
	require.NoError(t, root.Register("a", english{}))
	require.NoError(t, root.Register("b", english{}))
	require.NoError(t, root.Register("n", 42))

	child := root.NewChild("child")
	require.NoError(t, child.Register("b", french{}))
	require.NoError(t, child.Register("c", french{}))

	var got []string
	for _, g := range BeansOf[greeter](child) {
		got = append(got, g.Greet())
	}
	assert.Equal(t, []string{"bonjour", "bonjour", "hello"}, got)
	assert.Equal(t, []string{"b", "c"}, child.BeanNames())
	assert.Len(t, BeansOf[greeter](root), 2)
}

func TestRefresh_PropagatesToAncestors(t *testing.T) {
	root := New("root")
	child := root.NewChild("child")

	var mu sync.Mutex
	var seen []*Context
	root.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Type == EventRefreshed {
			seen = append(seen, ev.Context)
		}
	})

	require.NoError(t, child.Refresh())
	require.NoError(t, root.Refresh())

	assert.Equal(t, []*Context{child, root}, seen)
	assert.True(t, child.IsActive())
	assert.Equal(t, 2, root.History().Count())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	c := New("ctx")
	calls := 0
	unsubscribe := c.Subscribe(func(Event) { calls++ })

	require.NoError(t, c.Refresh())
	unsubscribe()
	require.NoError(t, c.Refresh())

	assert.Equal(t, 1, calls)
}

func TestClose(t *testing.T) {
	c := New("ctx")
	var types []EventType
	c.Subscribe(func(ev Event) { types = append(types, ev.Type) })

	require.NoError(t, c.Refresh())
	c.Close()
	c.Close()

	assert.Equal(t, []EventType{EventRefreshed, EventClosed}, types)
	assert.False(t, c.IsActive())
	assert.ErrorIs(t, c.Refresh(), ErrClosed)
	assert.ErrorIs(t, c.Register("x", 1), ErrClosed)
}

func TestHistory_Recent(t *testing.T) {
	h := NewHistory(2)
	c := New("ctx")
	h.Add(newEvent(EventRefreshed, c))
	h.Add(newEvent(EventClosed, c))
	h.Add(newEvent(EventRefreshed, c))

	recent := h.Recent(5)
	require.Len(t, recent, 2)
	assert.Equal(t, EventRefreshed, recent[0].Type)
	assert.Equal(t, EventClosed, recent[1].Type)
	assert.Nil(t, h.Recent(0))
}
