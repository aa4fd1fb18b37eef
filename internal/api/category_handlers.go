package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/tradepost/catalog-server/internal/category"
	"github.com/tradepost/catalog-server/internal/domain"
	"github.com/tradepost/catalog-server/internal/logger"
	"github.com/tradepost/catalog-server/internal/service"
	"github.com/tradepost/catalog-server/internal/store"
)

var identitySecurity = []map[string][]string{{"identity": {}}}

func (s *Server) registerCategoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Description: "Returns every category in tree pre-order",
		Tags:        []string{"Categories"},
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategoryTree",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/tree",
		Summary:     "Get category tree",
		Description: "Returns the nested category forest and the rows visible for the given expanded set",
		Tags:        []string{"Categories"},
	}, s.handleGetCategoryTree)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategoryPicker",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/picker",
		Summary:     "Get parent picker",
		Description: "Returns the forest flattened for a parent dropdown, optionally without a category's subtree",
		Tags:        []string{"Categories"},
	}, s.handleGetCategoryPicker)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/search",
		Summary:     "Search categories",
		Description: "Storefront mode ranks active categories; admin mode is a substring match over all categories",
		Tags:        []string{"Categories"},
	}, s.handleSearchCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "verifyCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/verify",
		Summary:     "Verify category tree",
		Description: "Reports stored categories whose lineage disagrees with their parent chain",
		Tags:        []string{"Categories"},
		Security:    identitySecurity,
	}, s.handleVerifyCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "repairCategories",
		Method:      http.MethodPost,
		Path:        "/api/v1/categories/repair",
		Summary:     "Repair category tree",
		Description: "Rewrites level, ancestors and path of every inconsistent category",
		Tags:        []string{"Categories"},
		Security:    identitySecurity,
	}, s.handleRepairCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexCategories",
		Method:      http.MethodPost,
		Path:        "/api/v1/categories/reindex",
		Summary:     "Rebuild search index",
		Description: "Re-indexes every category for storefront search",
		Tags:        []string{"Categories"},
		Security:    identitySecurity,
	}, s.handleReindexCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategoryBySlug",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/slug/{slug}",
		Summary:     "Get category by slug",
		Description: "Returns a category by slug, optionally with its direct children",
		Tags:        []string{"Categories"},
	}, s.handleGetCategoryBySlug)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategory",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/{id}",
		Summary:     "Get category",
		Description: "Returns a category by ID",
		Tags:        []string{"Categories"},
	}, s.handleGetCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategoryBreadcrumbs",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/{id}/breadcrumbs",
		Summary:     "Get breadcrumbs",
		Description: "Returns the chain from the root down to the category",
		Tags:        []string{"Categories"},
	}, s.handleGetCategoryBreadcrumbs)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategoryDescendants",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/{id}/descendants",
		Summary:     "Get descendants",
		Description: "Returns every category below the given one in pre-order",
		Tags:        []string{"Categories"},
	}, s.handleGetCategoryDescendants)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategorySiblings",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/{id}/siblings",
		Summary:     "Get siblings",
		Description: "Returns the other categories under the same parent",
		Tags:        []string{"Categories"},
	}, s.handleGetCategorySiblings)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategoryProducts",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/{id}/products",
		Summary:     "Get category products",
		Description: "Returns product IDs linked to the category, optionally including its subtree",
		Tags:        []string{"Categories"},
	}, s.handleGetCategoryProducts)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCategory",
		Method:        http.MethodPost,
		Path:          "/api/v1/categories",
		Summary:       "Create category",
		Description:   "Creates a category; the slug defaults to one derived from the name",
		Tags:          []string{"Categories"},
		DefaultStatus: http.StatusCreated,
		Security:      identitySecurity,
	}, s.handleCreateCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCategory",
		Method:      http.MethodPatch,
		Path:        "/api/v1/categories/{id}",
		Summary:     "Update category",
		Description: "Partially updates a category; moving or renaming rewrites the lineage of its subtree",
		Tags:        []string{"Categories"},
		Security:    identitySecurity,
	}, s.handleUpdateCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCategory",
		Method:      http.MethodDelete,
		Path:        "/api/v1/categories/{id}",
		Summary:     "Delete category",
		Description: "Deletes a category without subcategories",
		Tags:        []string{"Categories"},
		Security:    identitySecurity,
	}, s.handleDeleteCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "linkCategoryProduct",
		Method:      http.MethodPost,
		Path:        "/api/v1/categories/{id}/products/{productId}",
		Summary:     "Link product",
		Description: "Attaches a product to a category",
		Tags:        []string{"Categories"},
		Security:    identitySecurity,
	}, s.handleLinkProduct)

	huma.Register(s.api, huma.Operation{
		OperationID: "unlinkCategoryProduct",
		Method:      http.MethodDelete,
		Path:        "/api/v1/categories/{id}/products/{productId}",
		Summary:     "Unlink product",
		Description: "Detaches a product from a category",
		Tags:        []string{"Categories"},
		Security:    identitySecurity,
	}, s.handleUnlinkProduct)
}

// === DTOs ===

type ListCategoriesInput struct {
	ActiveOnly bool `query:"activeOnly" doc:"Hide inactive categories and their subtrees"`
}

type ListCategoriesResponse struct {
	Categories []CategoryResponse `json:"categories" doc:"Categories in tree pre-order"`
	Total      int                `json:"total" doc:"Number of categories"`
}

type ListCategoriesOutput struct {
	Body ListCategoriesResponse
}

type GetCategoryTreeInput struct {
	ActiveOnly bool     `query:"activeOnly" doc:"Hide inactive categories and their subtrees"`
	Expanded   []string `query:"expanded" doc:"Comma-separated IDs of expanded categories"`
	Reveal     string   `query:"reveal" doc:"Expand every ancestor of this category"`
}

type CategoryTreeResponse struct {
	Roots   []CategoryTreeNode `json:"roots" doc:"Root categories with nested children"`
	Visible []VisibleNode      `json:"visible" doc:"Rows to render for the expanded set"`
	Total   int                `json:"total" doc:"Number of categories in the tree"`
}

type CategoryTreeOutput struct {
	Body CategoryTreeResponse
}

type GetCategoryPickerInput struct {
	ExcludeID string `query:"excludeId" doc:"Leave out this category and its subtree"`
}

type CategoryPickerOutput struct {
	Body struct {
		Entries []PickerEntryResponse `json:"entries" doc:"Picker options in tree order"`
	}
}

type SearchCategoriesInput struct {
	Query string `query:"q" doc:"Search term"`
	Limit int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
	Mode  string `query:"mode" default:"storefront" enum:"storefront,admin" doc:"storefront ranks active categories; admin matches all"`
}

type SearchCategoriesResponse struct {
	Query      string             `json:"query" doc:"The search term"`
	Mode       string             `json:"mode" doc:"Search mode used"`
	Categories []CategoryResponse `json:"categories" doc:"Matching categories"`
}

type SearchCategoriesOutput struct {
	Body SearchCategoriesResponse
}

type VerifyCategoriesOutput struct {
	Body struct {
		Consistent bool                 `json:"consistent" doc:"True when no violations were found"`
		Violations []category.Violation `json:"violations" doc:"Inconsistencies found"`
	}
}

type RepairCategoriesOutput struct {
	Body struct {
		Rewritten int `json:"rewritten" doc:"Number of categories rewritten"`
	}
}

type ReindexCategoriesOutput struct {
	Body struct {
		Reindexed bool `json:"reindexed" doc:"True once the index was rebuilt"`
	}
}

type GetCategoryBySlugInput struct {
	Slug         string `path:"slug" doc:"Category slug"`
	WithChildren bool   `query:"withChildren" doc:"Include direct children"`
}

type CategoryWithChildrenOutput struct {
	Body struct {
		CategoryResponse
		Children []CategoryResponse `json:"children,omitempty" doc:"Direct children, when requested"`
	}
}

type GetCategoryInput struct {
	ID string `path:"id" doc:"Category ID"`
}

type CategoryOutput struct {
	Body CategoryResponse
}

type CategoryListOutput struct {
	Body struct {
		Categories []CategoryResponse `json:"categories" doc:"Categories"`
	}
}

type BreadcrumbsOutput struct {
	Body struct {
		Breadcrumbs []AncestorResponse `json:"breadcrumbs" doc:"Chain from the root down to the category"`
	}
}

type GetCategoryProductsInput struct {
	ID                 string `path:"id" doc:"Category ID"`
	Page               int    `query:"page" default:"1" minimum:"1" doc:"1-based page number"`
	PageSize           int    `query:"pageSize" default:"50" minimum:"1" maximum:"500" doc:"Items per page"`
	IncludeDescendants bool   `query:"includeDescendants" doc:"Include products of every subcategory"`
}

type CategoryProductsOutput struct {
	Body store.PageResult[string]
}

type CreateCategoryBody struct {
	Name         string           `json:"name" minLength:"1" maxLength:"255" doc:"Category name"`
	Slug         string           `json:"slug,omitempty" maxLength:"255" doc:"Slug; derived from the name when empty"`
	Description  string           `json:"description,omitempty" maxLength:"1000" doc:"Markdown or HTML description"`
	ParentID     string           `json:"parent_id,omitempty" doc:"Parent category ID; empty creates a root"`
	DisplayOrder int              `json:"display_order,omitempty" doc:"Sort position among siblings"`
	IsActive     *bool            `json:"is_active,omitempty" doc:"Defaults to true"`
	ImageURL     string           `json:"image_url,omitempty" maxLength:"2048" doc:"Image URL"`
	Metadata     *domain.Metadata `json:"metadata,omitempty" doc:"SEO metadata"`
}

type CreateCategoryInput struct {
	Body CreateCategoryBody
}

type UpdateCategoryBody struct {
	Name         *string          `json:"name,omitempty" maxLength:"255" doc:"Category name"`
	Slug         *string          `json:"slug,omitempty" maxLength:"255" doc:"Slug"`
	Description  *string          `json:"description,omitempty" maxLength:"1000" doc:"Description"`
	ParentID     *string          `json:"parent_id,omitempty" doc:"New parent ID; empty string moves the category to the root"`
	DisplayOrder *int             `json:"display_order,omitempty" doc:"Sort position among siblings"`
	IsActive     *bool            `json:"is_active,omitempty" doc:"Storefront visibility"`
	ImageURL     *string          `json:"image_url,omitempty" maxLength:"2048" doc:"Image URL"`
	Metadata     *domain.Metadata `json:"metadata,omitempty" doc:"SEO metadata"`
}

type UpdateCategoryInput struct {
	ID   string `path:"id" doc:"Category ID"`
	Body UpdateCategoryBody
}

type DeleteCategoryOutput struct {
	Body struct {
		ID string `json:"id" doc:"ID of the deleted category"`
	}
}

type ProductLinkInput struct {
	ID        string `path:"id" doc:"Category ID"`
	ProductID string `path:"productId" doc:"Product ID"`
}

type ProductLinkOutput struct {
	Body struct {
		CategoryID string `json:"category_id" doc:"Category ID"`
		ProductID  string `json:"product_id" doc:"Product ID"`
		Linked     bool   `json:"linked" doc:"Whether the product is now linked"`
	}
}

// === Handlers ===

func (s *Server) handleListCategories(ctx context.Context, input *ListCategoriesInput) (*ListCategoriesOutput, error) {
	categories, err := s.services.Categories.List(ctx, input.ActiveOnly)
	if err != nil {
		return nil, err
	}
	return &ListCategoriesOutput{Body: ListCategoriesResponse{
		Categories: toCategoryResponses(categories),
		Total:      len(categories),
	}}, nil
}

func (s *Server) handleGetCategoryTree(ctx context.Context, input *GetCategoryTreeInput) (*CategoryTreeOutput, error) {
	tree, err := s.services.Categories.Tree(ctx, input.ActiveOnly)
	if err != nil {
		return nil, err
	}

	expanded := make(map[string]bool, len(input.Expanded))
	for _, id := range input.Expanded {
		if id = strings.TrimSpace(id); id != "" {
			expanded[id] = true
		}
	}

	arena := category.NewArena(tree)
	if input.Reveal != "" {
		expanded = arena.ExpandTo(expanded, input.Reveal)
	}

	return &CategoryTreeOutput{Body: CategoryTreeResponse{
		Roots:   toTreeNodes(tree.Roots),
		Visible: toVisibleNodes(arena, expanded),
		Total:   tree.Len(),
	}}, nil
}

func (s *Server) handleGetCategoryPicker(ctx context.Context, input *GetCategoryPickerInput) (*CategoryPickerOutput, error) {
	entries, err := s.services.Categories.Picker(ctx, input.ExcludeID)
	if err != nil {
		return nil, err
	}

	out := &CategoryPickerOutput{}
	out.Body.Entries = make([]PickerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out.Body.Entries = append(out.Body.Entries, PickerEntryResponse{
			CategoryResponse: toCategoryResponse(e.Category),
			Depth:            e.Depth,
			DisplayName:      e.DisplayName,
		})
	}
	return out, nil
}

func (s *Server) handleSearchCategories(ctx context.Context, input *SearchCategoriesInput) (*SearchCategoriesOutput, error) {
	var (
		found []*domain.Category
		err   error
	)
	switch input.Mode {
	case "admin":
		if _, err := RequireAdmin(ctx); err != nil {
			return nil, err
		}
		found, err = s.services.Categories.Search(ctx, input.Query, input.Limit)
	default:
		found, err = s.services.Categories.StorefrontSearch(ctx, input.Query, input.Limit)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.searches.WithLabelValues(input.Mode).Inc()

	return &SearchCategoriesOutput{Body: SearchCategoriesResponse{
		Query:      input.Query,
		Mode:       input.Mode,
		Categories: toCategoryResponses(found),
	}}, nil
}

func (s *Server) handleVerifyCategories(ctx context.Context, _ *struct{}) (*VerifyCategoriesOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	violations, err := s.services.Categories.Verify(ctx)
	if err != nil {
		return nil, err
	}

	out := &VerifyCategoriesOutput{}
	out.Body.Consistent = len(violations) == 0
	out.Body.Violations = violations
	return out, nil
}

func (s *Server) handleRepairCategories(ctx context.Context, _ *struct{}) (*RepairCategoriesOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	n, err := s.services.Categories.Repair(ctx)
	s.audit(ctx, "repair", err)
	if err != nil {
		return nil, err
	}

	out := &RepairCategoriesOutput{}
	out.Body.Rewritten = n
	return out, nil
}

func (s *Server) handleReindexCategories(ctx context.Context, _ *struct{}) (*ReindexCategoriesOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Categories.Reindex(ctx); err != nil {
		return nil, err
	}

	out := &ReindexCategoriesOutput{}
	out.Body.Reindexed = true
	return out, nil
}

func (s *Server) handleGetCategoryBySlug(ctx context.Context, input *GetCategoryBySlugInput) (*CategoryWithChildrenOutput, error) {
	c, err := s.services.Categories.GetBySlug(ctx, input.Slug, input.WithChildren)
	if err != nil {
		return nil, err
	}

	out := &CategoryWithChildrenOutput{}
	out.Body.CategoryResponse = toCategoryResponse(c)
	if input.WithChildren {
		out.Body.Children = toCategoryResponses(c.Children)
	}
	return out, nil
}

func (s *Server) handleGetCategory(ctx context.Context, input *GetCategoryInput) (*CategoryOutput, error) {
	c, err := s.services.Categories.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &CategoryOutput{Body: toCategoryResponse(c)}, nil
}

func (s *Server) handleGetCategoryBreadcrumbs(ctx context.Context, input *GetCategoryInput) (*BreadcrumbsOutput, error) {
	crumbs, err := s.services.Categories.Breadcrumbs(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &BreadcrumbsOutput{}
	out.Body.Breadcrumbs = make([]AncestorResponse, 0, len(crumbs))
	for _, b := range crumbs {
		out.Body.Breadcrumbs = append(out.Body.Breadcrumbs, AncestorResponse(b))
	}
	return out, nil
}

func (s *Server) handleGetCategoryDescendants(ctx context.Context, input *GetCategoryInput) (*CategoryListOutput, error) {
	descendants, err := s.services.Categories.Descendants(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &CategoryListOutput{}
	out.Body.Categories = toCategoryResponses(descendants)
	return out, nil
}

func (s *Server) handleGetCategorySiblings(ctx context.Context, input *GetCategoryInput) (*CategoryListOutput, error) {
	siblings, err := s.services.Categories.Siblings(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &CategoryListOutput{}
	out.Body.Categories = toCategoryResponses(siblings)
	return out, nil
}

func (s *Server) handleGetCategoryProducts(ctx context.Context, input *GetCategoryProductsInput) (*CategoryProductsOutput, error) {
	page := store.PageFromNumber(input.Page, input.PageSize)
	result, err := s.services.Categories.ProductsInCategory(ctx, input.ID, input.IncludeDescendants, page)
	if err != nil {
		return nil, err
	}
	return &CategoryProductsOutput{Body: result}, nil
}

func (s *Server) handleCreateCategory(ctx context.Context, input *CreateCategoryInput) (*CategoryOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	c, err := s.services.Categories.Create(ctx, service.CreateCategoryRequest(input.Body))
	s.audit(ctx, "create", err, "name", input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &CategoryOutput{Body: toCategoryResponse(c)}, nil
}

func (s *Server) handleUpdateCategory(ctx context.Context, input *UpdateCategoryInput) (*CategoryOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	c, err := s.services.Categories.Update(ctx, input.ID, service.UpdateCategoryRequest(input.Body))
	s.audit(ctx, "update", err, "category_id", input.ID)
	if err != nil {
		return nil, err
	}
	return &CategoryOutput{Body: toCategoryResponse(c)}, nil
}

func (s *Server) handleDeleteCategory(ctx context.Context, input *GetCategoryInput) (*DeleteCategoryOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	deleted, err := s.services.Categories.Delete(ctx, input.ID)
	s.audit(ctx, "delete", err, "category_id", input.ID)
	if err != nil {
		return nil, err
	}

	out := &DeleteCategoryOutput{}
	out.Body.ID = deleted
	return out, nil
}

func (s *Server) handleLinkProduct(ctx context.Context, input *ProductLinkInput) (*ProductLinkOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.services.Categories.LinkProduct(ctx, input.ID, input.ProductID); err != nil {
		return nil, err
	}
	return productLinkOutput(input, true), nil
}

func (s *Server) handleUnlinkProduct(ctx context.Context, input *ProductLinkInput) (*ProductLinkOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.services.Categories.UnlinkProduct(ctx, input.ID, input.ProductID); err != nil {
		return nil, err
	}
	return productLinkOutput(input, false), nil
}

func productLinkOutput(input *ProductLinkInput, linked bool) *ProductLinkOutput {
	out := &ProductLinkOutput{}
	out.Body.CategoryID = input.ID
	out.Body.ProductID = input.ProductID
	out.Body.Linked = linked
	return out
}

// audit counts a mutation and logs it on the request logger, which already
// carries the request and user IDs.
func (s *Server) audit(ctx context.Context, operation string, err error, attrs ...any) {
	s.metrics.observeMutation(operation, err)

	log := logger.FromContext(ctx, s.logger).With("operation", operation)
	if err != nil {
		log.Debug("category mutation rejected", append(attrs, "error", err)...)
		return
	}
	log.Info("category mutation applied", attrs...)
}
