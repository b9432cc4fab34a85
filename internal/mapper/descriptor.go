package mapper

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/mvc_bridge/internal/naming"
	"github.com/R3E-Network/mvc_bridge/internal/namespace"
	"github.com/R3E-Network/mvc_bridge/internal/node"
	"github.com/R3E-Network/mvc_bridge/pkg/logger"
)

// Schema declares the settable members of T. It replaces runtime
// introspection: only listed fields take part in mapping.
type Schema[T any] struct {
	// Name identifies the mapped type. Defaults to the Go type name.
	Name   string
	Fields []Field[T]
	// ID, when set, is the identifier slot assigned from the node reference.
	ID func(*T) *node.Ref
}

// TypeName returns the schema name, defaulting to the Go type name of T.
func (s Schema[T]) TypeName() string {
	if s.Name != "" {
		return s.Name
	}
	var zero T
	return fmt.Sprintf("%T", zero)
}

// Descriptor is the immutable mapping metadata of one schema.
type Descriptor[T any] struct {
	name        string
	fields      []Field[T]
	byLowerName map[string]int
	byQName     map[namespace.QName]int
	qnames      []namespace.QName
	members     map[string]struct{}
	id          func(*T) *node.Ref
}

func buildDescriptor[T any](schema Schema[T], ns namespace.Service, log *logger.Logger) (*Descriptor[T], error) {
	name := schema.TypeName()
	d := &Descriptor[T]{
		name:        name,
		fields:      append([]Field[T](nil), schema.Fields...),
		byLowerName: make(map[string]int),
		byQName:     make(map[namespace.QName]int),
		members:     make(map[string]struct{}),
		id:          schema.ID,
	}

	for i, f := range d.fields {
		if f.member == "" || f.set == nil {
			return nil, fmt.Errorf("%w: %s: field %d is not bound", ErrInvalidSchema, name, i)
		}
		if _, dup := d.members[f.member]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate member %s", ErrInvalidSchema, name, f.member)
		}
		d.members[f.member] = struct{}{}

		for _, key := range naming.CandidateKeys(f.member) {
			if prev, taken := d.byLowerName[key]; taken {
				return nil, fmt.Errorf("%w: %s: members %s and %s share key %q",
					ErrInvalidSchema, name, d.fields[prev].member, f.member, key)
			}
			d.byLowerName[key] = i
		}

		qname, ok := resolveCandidate(ns, f.member, log.WithField("schema", name))
		if !ok {
			continue
		}
		if prev, taken := d.byQName[qname]; taken {
			return nil, fmt.Errorf("%w: %s: members %s and %s both map to %s",
				ErrInvalidSchema, name, d.fields[prev].member, f.member, qname)
		}
		d.byQName[qname] = i
		d.qnames = append(d.qnames, qname)
	}

	sort.Slice(d.qnames, func(i, j int) bool {
		return d.qnames[i].String() < d.qnames[j].String()
	})
	return d, nil
}

// resolveCandidate translates member into a declared qualified name.
// Candidates that do not parse or are not declared are discarded.
func resolveCandidate(ns namespace.Service, member string, log *logrus.Entry) (namespace.QName, bool) {
	candidate, ok := naming.QualifiedCandidate(member)
	if !ok {
		return namespace.QName{}, false
	}

	qname, err := ns.ResolveQName(candidate)
	if err != nil {
		log.WithError(err).WithField("member", member).Debug("Discarding qualified name candidate")
		return namespace.QName{}, false
	}
	if !ns.HasProperty(qname) {
		log.WithFields(logrus.Fields{"member": member, "qname": qname.String()}).
			Debug("Discarding undeclared property")
		return namespace.QName{}, false
	}
	return qname, true
}

// describes reports whether d was built from a schema declaring the same
// members, in the same order and with the same types, as schema.
func (d *Descriptor[T]) describes(schema Schema[T]) bool {
	if len(d.fields) != len(schema.Fields) || (d.id == nil) != (schema.ID == nil) {
		return false
	}
	for i, f := range schema.Fields {
		if d.fields[i].member != f.member || d.fields[i].typeName != f.typeName {
			return false
		}
	}
	return true
}

// Name returns the schema name.
func (d *Descriptor[T]) Name() string {
	return d.name
}

// FieldByName looks a field up by lowercased member name or by its prefixed
// snake_case key.
func (d *Descriptor[T]) FieldByName(name string) (Field[T], bool) {
	i, ok := d.byLowerName[strings.ToLower(name)]
	if !ok {
		return Field[T]{}, false
	}
	return d.fields[i], true
}

// FieldByQName looks a field up by qualified name.
func (d *Descriptor[T]) FieldByQName(q namespace.QName) (Field[T], bool) {
	i, ok := d.byQName[q]
	if !ok {
		return Field[T]{}, false
	}
	return d.fields[i], true
}

// HasMember reports whether member is declared, using its exact name.
func (d *Descriptor[T]) HasMember(member string) bool {
	_, ok := d.members[member]
	return ok
}

// QNames returns the mapped qualified names in a stable order.
func (d *Descriptor[T]) QNames() []namespace.QName {
	return append([]namespace.QName(nil), d.qnames...)
}

// HasID reports whether the schema declares an identifier slot.
func (d *Descriptor[T]) HasID() bool {
	return d.id != nil
}

// Properties extracts the mapped members of v into a property bag. Zero
// values are included.
func (d *Descriptor[T]) Properties(v *T) node.Properties {
	props := make(node.Properties, len(d.qnames))
	for _, q := range d.qnames {
		props[q] = d.fields[d.byQName[q]].Get(v)
	}
	return props
}

// apply assigns the bag values of every mapped qualified name onto v.
// Bag keys without a descriptor entry are ignored.
func (d *Descriptor[T]) apply(v *T, props node.Properties) error {
	for _, q := range d.qnames {
		value, ok := props[q]
		if !ok || value == nil {
			continue
		}
		f := d.fields[d.byQName[q]]
		if err := f.set(v, value); err != nil {
			return &MappingError{
				Schema: d.name,
				Member: f.member,
				QName:  q,
				Value:  value,
				Err:    fmt.Errorf("%w: %T into %s", err, value, f.typeName),
			}
		}
	}
	return nil
}
