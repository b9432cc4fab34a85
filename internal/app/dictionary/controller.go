// Package dictionary exposes the namespace registry through the MVC
// dispatcher.
package dictionary

import (
	"net/http"

	apperrors "github.com/R3E-Network/mvc_bridge/internal/errors"
	"github.com/R3E-Network/mvc_bridge/internal/mvc"
	"github.com/R3E-Network/mvc_bridge/internal/namespace"
)

// Property is the wire form of a declared property.
type Property struct {
	Name        string `json:"name"`
	QName       string `json:"qname"`
	DataType    string `json:"dataType,omitempty"`
	Description string `json:"description,omitempty"`
}

// Controller serves /dictionary/properties.
type Controller struct {
	registry *namespace.Registry
}

// NewController creates a dictionary controller.
func NewController(registry *namespace.Registry) *Controller {
	return &Controller{registry: registry}
}

func (c *Controller) RegisterRoutes(r *mvc.Routes) {
	r.Get("/dictionary/properties", c.list)
	r.Get("/dictionary/properties/{name}", c.get)
}

func (c *Controller) list(_ http.ResponseWriter, _ *http.Request) (any, error) {
	defs := c.registry.Properties()
	out := make([]Property, 0, len(defs))
	for _, def := range defs {
		out = append(out, c.view(def))
	}
	return out, nil
}

func (c *Controller) get(_ http.ResponseWriter, r *http.Request) (any, error) {
	name := mvc.URLParam(r, "name")
	q, err := c.registry.ResolveQName(name)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, "Invalid property name '"+name+"'", http.StatusBadRequest)
	}
	def, ok := c.registry.Property(q)
	if !ok {
		return nil, apperrors.NotFound("property", name)
	}
	return c.view(def), nil
}

func (c *Controller) view(def namespace.PropertyDef) Property {
	return Property{
		Name:        c.registry.PrefixString(def.Name),
		QName:       def.Name.String(),
		DataType:    def.DataType,
		Description: def.Description,
	}
}
