package domain

import "slices"

// Category is a node in the marketplace category forest.
// Categories form a hierarchy: Electronics -> Phones -> Android Phones.
//
// Level, Path and Ancestors are denormalized copies of the chain implied by
// ParentID. They are rewritten for the node and all of its descendants
// whenever the node is reparented or renamed.
type Category struct {
	Record
	Name         string        `json:"name"`                  // Display name: "Android Phones"
	Slug         string        `json:"slug"`                  // URL-safe key: "android-phones"
	Description  string        `json:"description,omitempty"` // Markdown
	ParentID     string        `json:"parent_id,omitempty"`   // Empty for root categories
	Level        int           `json:"level"`                 // 0=root, 1=child, 2=grandchild
	Path         string        `json:"path"`                  // Materialized path: "/electronics/phones/android-phones"
	Ancestors    []AncestorRef `json:"ancestors"`             // Root first, immediate parent last
	DisplayOrder int           `json:"display_order"`         // Manual ordering within siblings
	IsActive     bool          `json:"is_active"`             // Inactive categories are hidden from the storefront
	ImageURL     string        `json:"image_url,omitempty"`
	Metadata     *Metadata     `json:"metadata,omitempty"`

	// Read-only aggregates computed by the store when records are loaded.
	ProductCount    int `json:"product_count"`
	ChildrenCount   int `json:"children_count"`
	DescendantCount int `json:"descendant_count"`

	// Children is populated in memory by the tree builder and never persisted.
	Children []*Category `json:"children,omitempty"`
}

// AncestorRef is the lightweight view of an ancestor cached on each category.
type AncestorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Metadata carries SEO fields persisted alongside a category.
type Metadata struct {
	MetaTitle       string   `json:"meta_title,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
}

// Ref returns the ancestor reference describing this category.
func (c *Category) Ref() AncestorRef {
	return AncestorRef{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

// Clone returns a copy of the category without its Children links.
// Slices owned by the category are copied so the clone can be mutated freely.
func (c *Category) Clone() *Category {
	cp := *c
	cp.Children = nil
	cp.Ancestors = slices.Clone(c.Ancestors)
	if c.Metadata != nil {
		md := *c.Metadata
		md.Keywords = slices.Clone(c.Metadata.Keywords)
		cp.Metadata = &md
	}
	return &cp
}
