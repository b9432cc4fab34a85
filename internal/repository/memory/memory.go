// Package memory is an in-process node store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/mvc_bridge/internal/namespace"
	"github.com/R3E-Network/mvc_bridge/internal/node"
	"github.com/R3E-Network/mvc_bridge/internal/repository"
)

// Store keeps nodes in memory. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	nodes map[node.Ref]repository.Node
	now   func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nodes: make(map[node.Ref]repository.Node),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreateNode(_ context.Context, n repository.Node) (repository.Node, error) {
	if n.Ref.IsZero() {
		n.Ref = node.NewRef()
	}
	if n.Ref.Store == "" {
		n.Ref.Store = node.DefaultStore
	}
	now := s.now()
	n.Created = now
	n.Modified = now
	n.Properties = withoutNil(n.Properties)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[n.Ref]; exists {
		return repository.Node{}, fmt.Errorf("node %s already exists", n.Ref)
	}
	s.nodes[n.Ref] = n
	return copyNode(n), nil
}

func (s *Store) GetNode(_ context.Context, ref node.Ref) (repository.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[ref]
	if !ok {
		return repository.Node{}, fmt.Errorf("%w: %s", repository.ErrNotFound, ref)
	}
	return copyNode(n), nil
}

func (s *Store) UpdateProperties(_ context.Context, ref node.Ref, props node.Properties) (repository.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[ref]
	if !ok {
		return repository.Node{}, fmt.Errorf("%w: %s", repository.ErrNotFound, ref)
	}
	merged := n.Properties.Clone()
	if merged == nil {
		merged = make(node.Properties, len(props))
	}
	for k, v := range props {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	n.Properties = merged
	n.Modified = s.now()
	s.nodes[ref] = n
	return copyNode(n), nil
}

func (s *Store) ListNodes(_ context.Context, nodeType namespace.QName) ([]repository.Node, error) {
	s.mu.RLock()
	out := make([]repository.Node, 0)
	for _, n := range s.nodes {
		if n.Type == nodeType {
			out = append(out, copyNode(n))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].Ref.ID < out[j].Ref.ID
	})
	return out, nil
}

func (s *Store) DeleteNode(_ context.Context, ref node.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[ref]; !ok {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, ref)
	}
	delete(s.nodes, ref)
	return nil
}

func copyNode(n repository.Node) repository.Node {
	n.Properties = n.Properties.Clone()
	return n
}

func withoutNil(props node.Properties) node.Properties {
	out := make(node.Properties, len(props))
	for k, v := range props {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
