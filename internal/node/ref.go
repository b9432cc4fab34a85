// Package node defines repository node identifiers and property bags.
package node

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/R3E-Network/mvc_bridge/internal/namespace"
)

// DefaultStore is the store reference of the primary workspace.
const DefaultStore = "workspace://SpacesStore"

// ErrInvalidRef is returned when a node reference cannot be parsed.
var ErrInvalidRef = errors.New("invalid node reference")

// Ref identifies a node within a store.
type Ref struct {
	Store string
	ID    string
}

// NewRef returns a reference to a fresh node in the default store.
func NewRef() Ref {
	return Ref{Store: DefaultStore, ID: uuid.NewString()}
}

// ParseRef accepts "protocol://identifier/id" or a bare id, which is placed
// in the default store.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("%w: empty", ErrInvalidRef)
	}

	if !strings.Contains(s, "://") {
		if strings.Contains(s, "/") {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
		}
		return Ref{Store: DefaultStore, ID: s}, nil
	}

	idx := strings.LastIndexByte(s, '/')
	store, id := s[:idx], s[idx+1:]
	if id == "" || strings.HasSuffix(store, ":/") {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	return Ref{Store: store, ID: id}, nil
}

// String returns "store/id".
func (r Ref) String() string {
	if r.IsZero() {
		return ""
	}
	store := r.Store
	if store == "" {
		store = DefaultStore
	}
	return store + "/" + r.ID
}

// IsZero reports whether r references nothing.
func (r Ref) IsZero() bool {
	return r.ID == ""
}

// MarshalText implements encoding.TextMarshaler.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ref) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = Ref{}
		return nil
	}
	parsed, err := ParseRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Properties is a qualified-name-keyed property bag.
type Properties map[namespace.QName]any

// Clone returns a shallow copy of p.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
