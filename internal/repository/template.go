package repository

import (
	"context"
	"fmt"

	"github.com/R3E-Network/mvc_bridge/internal/namespace"
	"github.com/R3E-Network/mvc_bridge/internal/node"
)

// PropertiesMapper maps a node's property bag onto a T. *mapper.Mapper[T]
// implements it.
type PropertiesMapper[T any] interface {
	Map(ref node.Ref, props node.Properties) (*T, error)
}

// Template runs store queries and maps the results.
type Template struct {
	store Store
}

// NewTemplate returns a template over store.
func NewTemplate(store Store) *Template {
	return &Template{store: store}
}

// Store returns the underlying store.
func (t *Template) Store() Store {
	return t.store
}

// QueryForObject loads one node and maps it.
func QueryForObject[T any](ctx context.Context, t *Template, ref node.Ref, m PropertiesMapper[T]) (*T, error) {
	n, err := t.store.GetNode(ctx, ref)
	if err != nil {
		return nil, err
	}
	v, err := m.Map(n.Ref, n.Properties)
	if err != nil {
		return nil, fmt.Errorf("map node %s: %w", n.Ref, err)
	}
	return v, nil
}

// QueryForList loads every node of a type and maps them in store order.
func QueryForList[T any](ctx context.Context, t *Template, nodeType namespace.QName, m PropertiesMapper[T]) ([]*T, error) {
	nodes, err := t.store.ListNodes(ctx, nodeType)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(nodes))
	for _, n := range nodes {
		v, err := m.Map(n.Ref, n.Properties)
		if err != nil {
			return nil, fmt.Errorf("map node %s: %w", n.Ref, err)
		}
		out = append(out, v)
	}
	return out, nil
}
