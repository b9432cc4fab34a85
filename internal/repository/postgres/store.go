// Package postgres is a PostgreSQL node store built on sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/mvc_bridge/internal/namespace"
	"github.com/R3E-Network/mvc_bridge/internal/node"
	"github.com/R3E-Network/mvc_bridge/internal/repository"
)

// Store implements repository.Store on PostgreSQL.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type nodeRow struct {
	Store      string    `db:"store"`
	NodeID     string    `db:"node_id"`
	TypeURI    string    `db:"type_uri"`
	TypeLocal  string    `db:"type_local"`
	CreatedAt  time.Time `db:"created_at"`
	ModifiedAt time.Time `db:"modified_at"`
}

func (r nodeRow) node() repository.Node {
	return repository.Node{
		Ref:        node.Ref{Store: r.Store, ID: r.NodeID},
		Type:       namespace.NewQName(r.TypeURI, r.TypeLocal),
		Properties: node.Properties{},
		Created:    r.CreatedAt,
		Modified:   r.ModifiedAt,
	}
}

type propertyRow struct {
	Store     string `db:"store"`
	NodeID    string `db:"node_id"`
	NsURI     string `db:"ns_uri"`
	LocalName string `db:"local_name"`
	Kind      string `db:"kind"`
	Value     []byte `db:"value"`
}

const (
	selectNode = `
		SELECT store, node_id, type_uri, type_local, created_at, modified_at
		FROM bridge_nodes`
	selectProperties = `
		SELECT store, node_id, ns_uri, local_name, kind, value
		FROM bridge_node_properties`
	upsertProperty = `
		INSERT INTO bridge_node_properties (store, node_id, ns_uri, local_name, kind, value)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (store, node_id, ns_uri, local_name)
		DO UPDATE SET kind = EXCLUDED.kind, value = EXCLUDED.value`
)

// --- repository.Store -------------------------------------------------------

func (s *Store) CreateNode(ctx context.Context, n repository.Node) (repository.Node, error) {
	if n.Ref.IsZero() {
		n.Ref = node.NewRef()
	}
	if n.Ref.Store == "" {
		n.Ref.Store = node.DefaultStore
	}
	now := s.now()
	n.Created = now
	n.Modified = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return repository.Node{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bridge_nodes (store, node_id, type_uri, type_local, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.Ref.Store, n.Ref.ID, n.Type.Namespace, n.Type.Local, n.Created, n.Modified); err != nil {
		return repository.Node{}, err
	}

	props := node.Properties{}
	for _, q := range sortedNames(n.Properties) {
		v := n.Properties[q]
		if v == nil {
			continue
		}
		if err := upsert(ctx, tx, n.Ref, q, v); err != nil {
			return repository.Node{}, err
		}
		props[q] = v
	}

	if err := tx.Commit(); err != nil {
		return repository.Node{}, err
	}
	n.Properties = props
	return n, nil
}

func (s *Store) GetNode(ctx context.Context, ref node.Ref) (repository.Node, error) {
	var row nodeRow
	err := s.db.GetContext(ctx, &row, selectNode+` WHERE store = $1 AND node_id = $2`, ref.Store, ref.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.Node{}, fmt.Errorf("%w: %s", repository.ErrNotFound, ref)
	}
	if err != nil {
		return repository.Node{}, err
	}

	var props []propertyRow
	if err := s.db.SelectContext(ctx, &props, selectProperties+`
		WHERE store = $1 AND node_id = $2
		ORDER BY ns_uri, local_name`, ref.Store, ref.ID); err != nil {
		return repository.Node{}, err
	}

	n := row.node()
	if err := fill(&n, props); err != nil {
		return repository.Node{}, err
	}
	return n, nil
}

func (s *Store) UpdateProperties(ctx context.Context, ref node.Ref, props node.Properties) (repository.Node, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return repository.Node{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `
		UPDATE bridge_nodes SET modified_at = $3
		WHERE store = $1 AND node_id = $2
	`, ref.Store, ref.ID, s.now())
	if err != nil {
		return repository.Node{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return repository.Node{}, fmt.Errorf("%w: %s", repository.ErrNotFound, ref)
	}

	for _, q := range sortedNames(props) {
		v := props[q]
		if v == nil {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM bridge_node_properties
				WHERE store = $1 AND node_id = $2 AND ns_uri = $3 AND local_name = $4
			`, ref.Store, ref.ID, q.Namespace, q.Local); err != nil {
				return repository.Node{}, err
			}
			continue
		}
		if err := upsert(ctx, tx, ref, q, v); err != nil {
			return repository.Node{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return repository.Node{}, err
	}
	return s.GetNode(ctx, ref)
}

func (s *Store) ListNodes(ctx context.Context, nodeType namespace.QName) ([]repository.Node, error) {
	var rows []nodeRow
	if err := s.db.SelectContext(ctx, &rows, selectNode+`
		WHERE type_uri = $1 AND type_local = $2
		ORDER BY created_at, node_id`, nodeType.Namespace, nodeType.Local); err != nil {
		return nil, err
	}

	out := make([]repository.Node, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, len(rows))
	index := make(map[node.Ref]int, len(rows))
	for i, r := range rows {
		ids[i] = r.NodeID
		out = append(out, r.node())
		index[out[i].Ref] = i
	}

	query, args, err := sqlx.In(selectProperties+` WHERE node_id IN (?) ORDER BY node_id, ns_uri, local_name`, ids)
	if err != nil {
		return nil, err
	}
	var props []propertyRow
	if err := s.db.SelectContext(ctx, &props, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	byNode := make(map[int][]propertyRow, len(rows))
	for _, p := range props {
		i, ok := index[node.Ref{Store: p.Store, ID: p.NodeID}]
		if !ok {
			continue
		}
		byNode[i] = append(byNode[i], p)
	}
	for i := range out {
		if err := fill(&out[i], byNode[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) DeleteNode(ctx context.Context, ref node.Ref) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM bridge_nodes WHERE store = $1 AND node_id = $2
	`, ref.Store, ref.ID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, ref)
	}
	return nil
}

// --- helpers ----------------------------------------------------------------

func upsert(ctx context.Context, tx *sqlx.Tx, ref node.Ref, q namespace.QName, v any) error {
	kind, data, err := encodeValue(v)
	if err != nil {
		return fmt.Errorf("property %s: %w", q, err)
	}
	_, err = tx.ExecContext(ctx, upsertProperty, ref.Store, ref.ID, q.Namespace, q.Local, kind, data)
	return err
}

func fill(n *repository.Node, rows []propertyRow) error {
	for _, p := range rows {
		v, err := decodeValue(p.Kind, p.Value)
		if err != nil {
			return fmt.Errorf("node %s property {%s}%s: %w", n.Ref, p.NsURI, p.LocalName, err)
		}
		n.Properties[namespace.NewQName(p.NsURI, p.LocalName)] = v
	}
	return nil
}

func sortedNames(props node.Properties) []namespace.QName {
	names := make([]namespace.QName, 0, len(props))
	for q := range props {
		names = append(names, q)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i].String() < names[j].String()
	})
	return names
}
