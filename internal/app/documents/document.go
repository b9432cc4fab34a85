// Package documents exposes repository content nodes through the MVC
// dispatcher.
package documents

import (
	"time"

	"github.com/R3E-Network/mvc_bridge/internal/mapper"
	"github.com/R3E-Network/mvc_bridge/internal/namespace"
	"github.com/R3E-Network/mvc_bridge/internal/node"
)

// NodeType is the content type documents are stored as.
var NodeType = namespace.NewQName(namespace.ContentModelURI, "content")

// Document is the typed view of a content node.
type Document struct {
	ID            node.Ref  `json:"id"`
	CmName        string    `json:"name"`
	CmTitle       string    `json:"title,omitempty"`
	CmDescription string    `json:"description,omitempty"`
	CmAuthor      string    `json:"author,omitempty"`
	CmCreator     string    `json:"creator,omitempty"`
	CmCreated     time.Time `json:"created"`
	CmModified    time.Time `json:"modified"`
}

// Schema declares the mapped members of Document.
func Schema() mapper.Schema[Document] {
	return mapper.Schema[Document]{
		Name: "document",
		Fields: []mapper.Field[Document]{
			mapper.Bind("cmName", func(d *Document) *string { return &d.CmName }),
			mapper.Bind("cmTitle", func(d *Document) *string { return &d.CmTitle }),
			mapper.Bind("cmDescription", func(d *Document) *string { return &d.CmDescription }),
			mapper.Bind("cmAuthor", func(d *Document) *string { return &d.CmAuthor }),
			mapper.Bind("cmCreator", func(d *Document) *string { return &d.CmCreator }),
			mapper.Bind("cmCreated", func(d *Document) *time.Time { return &d.CmCreated }),
			mapper.Bind("cmModified", func(d *Document) *time.Time { return &d.CmModified }),
		},
		ID: func(d *Document) *node.Ref { return &d.ID },
	}
}

// NewMapper returns a Document mapper on cache.
func NewMapper(cache *mapper.Cache) (*mapper.Mapper[Document], error) {
	return mapper.New(cache, Schema())
}
