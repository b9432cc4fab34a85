package namespace

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Well-known content model namespaces.
const (
	ContentModelURI     = "http://www.alfresco.org/model/content/1.0"
	SystemModelURI      = "http://www.alfresco.org/model/system/1.0"
	ApplicationModelURI = "http://www.alfresco.org/model/application/1.0"
)

// PropertyDef describes a declared property.
type PropertyDef struct {
	Name        QName
	DataType    string
	Description string
}

// Option configures a property registration.
type Option func(*PropertyDef)

// WithDataType sets the dictionary data type, e.g. "d:text".
func WithDataType(dataType string) Option {
	return func(d *PropertyDef) {
		d.DataType = dataType
	}
}

// WithDescription sets the human-readable description of the property.
func WithDescription(desc string) Option {
	return func(d *PropertyDef) {
		d.Description = desc
	}
}

// Registry is an in-memory namespace service. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	prefixes   map[string]string
	properties map[QName]PropertyDef
}

var _ Service = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		prefixes:   make(map[string]string),
		properties: make(map[QName]PropertyDef),
	}
}

// RegisterNamespace maps prefix to uri, replacing any previous mapping.
func (r *Registry) RegisterNamespace(prefix, uri string) error {
	prefix = strings.TrimSpace(prefix)
	uri = strings.TrimSpace(uri)
	if prefix == "" || uri == "" {
		return fmt.Errorf("namespace prefix and uri are required")
	}
	if strings.ContainsAny(prefix, ":{}") {
		return fmt.Errorf("%w: prefix %q", ErrInvalidQName, prefix)
	}

	r.mu.Lock()
	r.prefixes[prefix] = uri
	r.mu.Unlock()
	return nil
}

// NamespaceURI returns the uri registered for prefix.
func (r *Registry) NamespaceURI(prefix string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uri, ok := r.prefixes[prefix]
	return uri, ok
}

// RegisterProperty declares a property. name may be prefixed or "{uri}local".
func (r *Registry) RegisterProperty(name string, opts ...Option) (QName, error) {
	qname, err := r.ResolveQName(name)
	if err != nil {
		return QName{}, err
	}

	def := PropertyDef{Name: qname}
	for _, opt := range opts {
		opt(&def)
	}

	r.mu.Lock()
	r.properties[qname] = def
	r.mu.Unlock()
	return qname, nil
}

// ResolveQName implements Service.
func (r *Registry) ResolveQName(prefixed string) (QName, error) {
	prefixed = strings.TrimSpace(prefixed)
	if strings.HasPrefix(prefixed, "{") {
		return ParseQName(prefixed)
	}

	prefix, local, err := SplitPrefixed(prefixed)
	if err != nil {
		return QName{}, err
	}
	uri, ok := r.NamespaceURI(prefix)
	if !ok {
		return QName{}, fmt.Errorf("%w: %s", ErrUnknownPrefix, prefix)
	}
	return QName{Namespace: uri, Local: local}, nil
}

// HasProperty implements Service.
func (r *Registry) HasProperty(name QName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.properties[name]
	return ok
}

// Property returns the definition of a declared property.
func (r *Registry) Property(name QName) (PropertyDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.properties[name]
	return def, ok
}

// PrefixString renders name as "prefix:local" when its namespace has a
// registered prefix, otherwise in "{uri}local" form.
func (r *Registry) PrefixString(name QName) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	for prefix, uri := range r.prefixes {
		if uri == name.Namespace && (best == "" || prefix < best) {
			best = prefix
		}
	}
	if best == "" {
		return name.String()
	}
	return best + ":" + name.Local
}

// Properties lists the declared properties ordered by namespace and local name.
func (r *Registry) Properties() []PropertyDef {
	r.mu.RLock()
	defs := make([]PropertyDef, 0, len(r.properties))
	for _, def := range r.properties {
		defs = append(defs, def)
	}
	r.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Name.Namespace != defs[j].Name.Namespace {
			return defs[i].Name.Namespace < defs[j].Name.Namespace
		}
		return defs[i].Name.Local < defs[j].Name.Local
	})
	return defs
}

// DefaultRegistry returns a registry preloaded with the core content model.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.RegisterNamespace("cm", ContentModelURI)
	_ = r.RegisterNamespace("sys", SystemModelURI)
	_ = r.RegisterNamespace("app", ApplicationModelURI)

	for _, p := range []struct {
		name, dataType string
	}{
		{"cm:name", "d:text"},
		{"cm:title", "d:mltext"},
		{"cm:description", "d:mltext"},
		{"cm:creator", "d:text"},
		{"cm:created", "d:datetime"},
		{"cm:modifier", "d:text"},
		{"cm:modified", "d:datetime"},
		{"cm:author", "d:text"},
		{"cm:versionLabel", "d:text"},
		{"sys:node-uuid", "d:text"},
		{"sys:node-dbid", "d:long"},
		{"app:icon", "d:text"},
	} {
		_, _ = r.RegisterProperty(p.name, WithDataType(p.dataType))
	}
	return r
}
