// Package repository stores content nodes and hydrates them into typed
// values through property mappers.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/mvc_bridge/internal/namespace"
	"github.com/R3E-Network/mvc_bridge/internal/node"
)

// ErrNotFound is returned for unknown node references.
var ErrNotFound = errors.New("node not found")

// Node is a stored content node.
type Node struct {
	Ref        node.Ref
	Type       namespace.QName
	Properties node.Properties
	Created    time.Time
	Modified   time.Time
}

// Store persists nodes.
type Store interface {
	// CreateNode stores n. A zero Ref is replaced by a fresh one.
	CreateNode(ctx context.Context, n Node) (Node, error)
	GetNode(ctx context.Context, ref node.Ref) (Node, error)
	// UpdateProperties merges props into the node. Nil values remove the
	// property.
	UpdateProperties(ctx context.Context, ref node.Ref, props node.Properties) (Node, error)
	// ListNodes returns the nodes of a type, oldest first.
	ListNodes(ctx context.Context, nodeType namespace.QName) ([]Node, error)
	DeleteNode(ctx context.Context, ref node.Ref) error
}
