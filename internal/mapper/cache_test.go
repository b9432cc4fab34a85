package mapper

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/mvc_bridge/internal/namespace"
)

type countingService struct {
	namespace.Service
	mu       sync.Mutex
	resolves int
}

func (c *countingService) ResolveQName(s string) (namespace.QName, error) {
	c.mu.Lock()
	c.resolves++
	c.mu.Unlock()
	return c.Service.ResolveQName(s)
}

func TestDescribe_BuildsOncePerSchema(t *testing.T) {
	ns := &countingService{Service: namespace.DefaultRegistry()}
	cache := NewCache(ns)

	var wg sync.WaitGroup
	descs := make([]*Descriptor[document], 16)
	for i := range descs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := Describe(cache, documentSchema())
			assert.NoError(t, err)
			descs[i] = d
		}(i)
	}
	wg.Wait()

	for _, d := range descs[1:] {
		assert.Same(t, descs[0], d)
	}
	// One resolve per member with a qualified candidate.
	assert.Equal(t, 6, ns.resolves)
	assert.Equal(t, 1, cache.Len())
}

func TestDescribe_TypeMismatch(t *testing.T) {
	cache := NewCache(namespace.DefaultRegistry())
	_, err := Describe(cache, Schema[document]{Name: "shared"})
	require.NoError(t, err)

	_, err = Describe(cache, Schema[numbers]{Name: "shared"})
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestDescribe_SameNameDifferentFields(t *testing.T) {
	cache := NewCache(namespace.DefaultRegistry())
	first, err := Describe(cache, documentSchema())
	require.NoError(t, err)

	again, err := Describe(cache, documentSchema())
	require.NoError(t, err)
	assert.Same(t, first, again)

	narrowed := documentSchema()
	narrowed.Fields = narrowed.Fields[:3]
	_, err = Describe(cache, narrowed)
	assert.ErrorIs(t, err, ErrInvalidSchema)

	retyped := documentSchema()
	retyped.Fields[0] = Bind("name", func(d *document) *int64 { return &d.SysNodeDbid })
	_, err = Describe(cache, retyped)
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestDescribe_InvalidSchemas(t *testing.T) {
	cache := NewCache(namespace.DefaultRegistry())

	_, err := Describe(cache, Schema[document]{Name: "dup", Fields: []Field[document]{
		Bind("cmName", func(d *document) *string { return &d.CmName }),
		Bind("cmName", func(d *document) *string { return &d.Name }),
	}})
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = Describe(cache, Schema[document]{Name: "clash", Fields: []Field[document]{
		Bind("cmName", func(d *document) *string { return &d.CmName }),
		Bind("CmName", func(d *document) *string { return &d.Name }),
	}})
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = Describe(cache, Schema[document]{Name: "caseFold", Fields: []Field[document]{
		Bind("aB", func(d *document) *string { return &d.CmName }),
		Bind("ab", func(d *document) *string { return &d.Name }),
	}})
	assert.ErrorIs(t, err, ErrInvalidSchema)
	assert.Equal(t, 0, cache.Len())

	_, err = Describe(cache, Schema[document]{Name: "unbound", Fields: []Field[document]{{}}})
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = Describe[document](nil, documentSchema())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSchemaTypeName(t *testing.T) {
	assert.Equal(t, "mapper.document", Schema[document]{}.TypeName())
	assert.Equal(t, "docs", Schema[document]{Name: "docs"}.TypeName())
}
