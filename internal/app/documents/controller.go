package documents

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/R3E-Network/mvc_bridge/internal/errors"
	"github.com/R3E-Network/mvc_bridge/internal/mapper"
	"github.com/R3E-Network/mvc_bridge/internal/mvc"
	"github.com/R3E-Network/mvc_bridge/internal/namespace"
	"github.com/R3E-Network/mvc_bridge/internal/node"
	"github.com/R3E-Network/mvc_bridge/internal/repository"
)

var (
	cmName     = namespace.NewQName(namespace.ContentModelURI, "name")
	cmCreated  = namespace.NewQName(namespace.ContentModelURI, "created")
	cmModified = namespace.NewQName(namespace.ContentModelURI, "modified")
)

// Controller serves CRUD routes for documents under /documents.
type Controller struct {
	template *repository.Template
	mapper   *mapper.Mapper[Document]
	ns       namespace.Service
	now      func() time.Time
}

var _ mvc.Controller = (*Controller)(nil)

// NewController creates a documents controller.
func NewController(template *repository.Template, m *mapper.Mapper[Document], ns namespace.Service) *Controller {
	return &Controller{
		template: template,
		mapper:   m,
		ns:       ns,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes implements mvc.Controller.
func (c *Controller) RegisterRoutes(r *mvc.Routes) {
	r.Route("/documents", func(r *mvc.Routes) {
		r.Get("/", c.list)
		r.Post("/", c.create)
		r.Get("/{id}", c.get)
		r.Put("/{id}", c.update)
		r.Delete("/{id}", c.delete)
	})
}

func (c *Controller) list(_ http.ResponseWriter, r *http.Request) (any, error) {
	return repository.QueryForList(r.Context(), c.template, NodeType, c.mapper)
}

func (c *Controller) get(_ http.ResponseWriter, r *http.Request) (any, error) {
	ref, err := refParam(r)
	if err != nil {
		return nil, err
	}
	doc, err := repository.QueryForObject(r.Context(), c.template, ref, c.mapper)
	if err != nil {
		return nil, storeError(err, ref)
	}
	return doc, nil
}

func (c *Controller) create(_ http.ResponseWriter, r *http.Request) (any, error) {
	var input map[string]any
	if err := mvc.DecodeBody(r, &input); err != nil {
		return nil, err
	}
	props, err := c.properties(input)
	if err != nil {
		return nil, err
	}
	if name, _ := props[cmName].(string); strings.TrimSpace(name) == "" {
		return nil, apperrors.BadRequest("Property 'cm:name' is required")
	}

	now := c.now()
	props[cmCreated] = now
	props[cmModified] = now

	n, err := c.template.Store().CreateNode(r.Context(), repository.Node{Type: NodeType, Properties: props})
	if err != nil {
		return nil, err
	}
	return c.mapper.Map(n.Ref, n.Properties)
}

func (c *Controller) update(_ http.ResponseWriter, r *http.Request) (any, error) {
	ref, err := refParam(r)
	if err != nil {
		return nil, err
	}
	var input map[string]any
	if err := mvc.DecodeBody(r, &input); err != nil {
		return nil, err
	}
	props, err := c.properties(input)
	if err != nil {
		return nil, err
	}
	if v, ok := props[cmName]; ok {
		if name, _ := v.(string); strings.TrimSpace(name) == "" {
			return nil, apperrors.BadRequest("Property 'cm:name' must not be empty")
		}
	}
	props[cmModified] = c.now()

	n, err := c.template.Store().UpdateProperties(r.Context(), ref, props)
	if err != nil {
		return nil, storeError(err, ref)
	}
	return c.mapper.Map(n.Ref, n.Properties)
}

func (c *Controller) delete(_ http.ResponseWriter, r *http.Request) (any, error) {
	ref, err := refParam(r)
	if err != nil {
		return nil, err
	}
	if err := c.template.Store().DeleteNode(r.Context(), ref); err != nil {
		return nil, storeError(err, ref)
	}
	return nil, nil
}

// properties converts request keys to qualified names and checks each value
// against the mapped member type. Keys may be member names ("cmTitle"),
// snake case keys ("cm_title") or prefixed names ("cm:title"). A null value
// removes the property.
func (c *Controller) properties(input map[string]any) (node.Properties, error) {
	desc, err := c.mapper.Descriptor()
	if err != nil {
		return nil, err
	}

	props := make(node.Properties, len(input))
	var scratch Document
	for key, value := range input {
		q, field, ok := c.lookup(desc, key)
		if !ok {
			return nil, apperrors.BadRequest(fmt.Sprintf("Unknown document property '%s'", key))
		}
		if q == cmCreated || q == cmModified {
			return nil, apperrors.BadRequest(fmt.Sprintf("Property '%s' is maintained by the repository", key))
		}
		if value == nil {
			props[q] = nil
			continue
		}
		if err := field.Set(&scratch, value); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeBadRequest,
				fmt.Sprintf("Invalid value for property '%s'", key), http.StatusBadRequest)
		}
		props[q] = field.Get(&scratch)
	}
	return props, nil
}

func (c *Controller) lookup(desc *mapper.Descriptor[Document], key string) (namespace.QName, mapper.Field[Document], bool) {
	if strings.Contains(key, ":") {
		q, err := c.ns.ResolveQName(key)
		if err != nil {
			return namespace.QName{}, mapper.Field[Document]{}, false
		}
		f, ok := desc.FieldByQName(q)
		return q, f, ok
	}

	f, ok := desc.FieldByName(key)
	if !ok {
		return namespace.QName{}, mapper.Field[Document]{}, false
	}
	for _, q := range desc.QNames() {
		if candidate, _ := desc.FieldByQName(q); candidate.Member() == f.Member() {
			return q, f, true
		}
	}
	return namespace.QName{}, mapper.Field[Document]{}, false
}

func refParam(r *http.Request) (node.Ref, error) {
	id := mvc.URLParam(r, "id")
	ref, err := node.ParseRef(id)
	if err != nil {
		return node.Ref{}, apperrors.Wrap(err, apperrors.CodeBadRequest,
			fmt.Sprintf("Invalid document id '%s'", id), http.StatusBadRequest)
	}
	return ref, nil
}

func storeError(err error, ref node.Ref) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("document", ref.ID)
	}
	return err
}
