// Package search provides relevance scoring for categories backed by Bleve.
// Which categories match a term is decided by the substring search in
// package category; the storefront uses these scores only to order them.
package search

import (
	"strings"

	"github.com/tradepost/catalog-server/internal/domain"
)

// CategoryDocument is the indexed view of a category.
//
// Ancestor names are denormalized into the document so a match on a parent
// name lifts the score of its children.
type CategoryDocument struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	Description   string   `json:"description,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	AncestorNames []string `json:"ancestor_names,omitempty"`
	Path          string   `json:"path"`
	Level         int      `json:"level"`
	Active        bool     `json:"active"`
}

// NewCategoryDocument builds the document for c.
func NewCategoryDocument(c *domain.Category) *CategoryDocument {
	doc := &CategoryDocument{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Path:        c.Path,
		Level:       c.Level,
		Active:      c.IsActive,
	}
	if c.Metadata != nil {
		doc.Keywords = c.Metadata.Keywords
	}
	for _, a := range c.Ancestors {
		doc.AncestorNames = append(doc.AncestorNames, a.Name)
	}
	return doc
}

// ToMap converts the document to a map keyed by the mapped field names.
func (d *CategoryDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":     d.ID,
		"name":   d.Name,
		"slug":   strings.ReplaceAll(d.Slug, "-", " "),
		"path":   d.Path,
		"level":  float64(d.Level),
		"active": d.Active,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Keywords) > 0 {
		m["keywords"] = d.Keywords
	}
	if len(d.AncestorNames) > 0 {
		m["ancestor_names"] = d.AncestorNames
	}
	return m
}
