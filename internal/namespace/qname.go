// Package namespace implements the dictionary service the property mapper
// resolves qualified names against: a prefix table and the set of declared
// properties.
package namespace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQName is returned for strings that are not of the form
	// "prefix:local" or "{uri}local".
	ErrInvalidQName = errors.New("invalid qualified name")
	// ErrUnknownPrefix is returned when a prefix has no registered namespace.
	ErrUnknownPrefix = errors.New("unknown namespace prefix")
)

// QName is a namespace-scoped identifier. Two QNames are equal iff both
// parts match.
type QName struct {
	Namespace string
	Local     string
}

// NewQName returns the QName of local in the namespace uri.
func NewQName(uri, local string) QName {
	return QName{Namespace: uri, Local: local}
}

// String renders the QName in its "{uri}local" form.
func (q QName) String() string {
	return "{" + q.Namespace + "}" + q.Local
}

// IsZero reports whether q is the zero QName.
func (q QName) IsZero() bool {
	return q.Namespace == "" && q.Local == ""
}

// ParseQName parses the "{uri}local" form.
func ParseQName(s string) (QName, error) {
	if !strings.HasPrefix(s, "{") {
		return QName{}, fmt.Errorf("%w: %q", ErrInvalidQName, s)
	}
	end := strings.IndexByte(s, '}')
	if end < 0 || end == len(s)-1 {
		return QName{}, fmt.Errorf("%w: %q", ErrInvalidQName, s)
	}
	return QName{Namespace: s[1:end], Local: s[end+1:]}, nil
}

// SplitPrefixed splits "prefix:local". Both parts must be non-empty.
func SplitPrefixed(s string) (prefix, local string, err error) {
	idx := strings.IndexByte(s, ':')
	if idx <= 0 || idx == len(s)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidQName, s)
	}
	return s[:idx], s[idx+1:], nil
}

// Service is the dictionary contract consumed by the mapper.
type Service interface {
	// ResolveQName resolves "prefix:local" (or "{uri}local") to a QName.
	ResolveQName(prefixed string) (QName, error)
	// HasProperty reports whether the dictionary declares the property.
	HasProperty(name QName) bool
}
