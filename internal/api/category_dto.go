package api

import (
	"time"

	"github.com/tradepost/catalog-server/internal/category"
	"github.com/tradepost/catalog-server/internal/domain"
)

// AncestorResponse is one entry of a category's lineage.
type AncestorResponse struct {
	ID   string `json:"id" doc:"Category ID"`
	Name string `json:"name" doc:"Category name"`
	Slug string `json:"slug" doc:"URL-safe slug"`
}

// CategoryResponse contains category data in API responses.
type CategoryResponse struct {
	ID              string             `json:"id" doc:"Category ID"`
	Name            string             `json:"name" doc:"Category name"`
	Slug            string             `json:"slug" doc:"URL-safe slug, unique across the catalog"`
	Description     string             `json:"description,omitempty" doc:"Markdown description"`
	ParentID        string             `json:"parent_id,omitempty" doc:"Parent category ID, empty for roots"`
	Level           int                `json:"level" doc:"Depth in the tree, 0 for roots"`
	Path            string             `json:"path" doc:"Slug path, e.g. /electronics/phones"`
	Ancestors       []AncestorResponse `json:"ancestors" doc:"Lineage from the root, nearest ancestor last"`
	DisplayOrder    int                `json:"display_order" doc:"Sort position among siblings"`
	IsActive        bool               `json:"is_active" doc:"Whether the category is shown on the storefront"`
	ImageURL        string             `json:"image_url,omitempty" doc:"Image URL"`
	Metadata        *domain.Metadata   `json:"metadata,omitempty" doc:"SEO metadata"`
	ProductCount    int                `json:"product_count" doc:"Products linked directly"`
	ChildrenCount   int                `json:"children_count" doc:"Direct subcategories"`
	DescendantCount int                `json:"descendant_count" doc:"All subcategories at any depth"`
	CreatedAt       time.Time          `json:"created_at" doc:"Creation time"`
	UpdatedAt       time.Time          `json:"updated_at" doc:"Last update time"`
}

// CategoryTreeNode is a category with its nested subcategories.
type CategoryTreeNode struct {
	CategoryResponse
	Children []CategoryTreeNode `json:"children" doc:"Subcategories in display order"`
}

// VisibleNode is one row of an expandable tree view.
type VisibleNode struct {
	ID          string `json:"id" doc:"Category ID"`
	Name        string `json:"name" doc:"Category name"`
	Depth       int    `json:"depth" doc:"Indentation level"`
	HasChildren bool   `json:"has_children" doc:"Whether the row can be expanded"`
	Expanded    bool   `json:"expanded" doc:"Whether the row is expanded"`
}

// PickerEntryResponse is one option of a parent-category dropdown: the full
// category plus its indented label.
type PickerEntryResponse struct {
	CategoryResponse
	Depth       int    `json:"depth" doc:"Depth relative to the listed roots"`
	DisplayName string `json:"display_name" doc:"Name prefixed with tree glyphs"`
}

func toCategoryResponse(c *domain.Category) CategoryResponse {
	ancestors := make([]AncestorResponse, 0, len(c.Ancestors))
	for _, a := range c.Ancestors {
		ancestors = append(ancestors, AncestorResponse(a))
	}
	return CategoryResponse{
		ID:              c.ID,
		Name:            c.Name,
		Slug:            c.Slug,
		Description:     c.Description,
		ParentID:        c.ParentID,
		Level:           c.Level,
		Path:            c.Path,
		Ancestors:       ancestors,
		DisplayOrder:    c.DisplayOrder,
		IsActive:        c.IsActive,
		ImageURL:        c.ImageURL,
		Metadata:        c.Metadata,
		ProductCount:    c.ProductCount,
		ChildrenCount:   c.ChildrenCount,
		DescendantCount: c.DescendantCount,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func toCategoryResponses(cs []*domain.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCategoryResponse(c))
	}
	return out
}

// toTreeNodes converts roots and their subtrees. Recursion depth is the
// tree height, which BuildTree has already freed of cycles.
func toTreeNodes(roots []*domain.Category) []CategoryTreeNode {
	out := make([]CategoryTreeNode, 0, len(roots))
	for _, c := range roots {
		out = append(out, CategoryTreeNode{
			CategoryResponse: toCategoryResponse(c),
			Children:         toTreeNodes(c.Children),
		})
	}
	return out
}

func toVisibleNodes(a *category.Arena, expanded map[string]bool) []VisibleNode {
	idx := a.Visible(expanded)
	out := make([]VisibleNode, 0, len(idx))
	for _, i := range idx {
		n := a.Nodes[i]
		out = append(out, VisibleNode{
			ID:          n.Category.ID,
			Name:        n.Category.Name,
			Depth:       n.Depth,
			HasChildren: len(n.Children) > 0,
			Expanded:    expanded[n.Category.ID] && len(n.Children) > 0,
		})
	}
	return out
}
