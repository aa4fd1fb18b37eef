package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradepost/catalog-server/internal/category"
	"github.com/tradepost/catalog-server/internal/domain"
	domainerrors "github.com/tradepost/catalog-server/internal/errors"
	"github.com/tradepost/catalog-server/internal/search"
	"github.com/tradepost/catalog-server/internal/store"
)

func newTestStore(t *testing.T) *store.Badger {
	t.Helper()
	s, err := store.OpenBadger("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestIndex(t *testing.T) *search.CategoryIndex {
	t.Helper()
	index, err := search.NewCategoryIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func newTestCategoryService(t *testing.T) (*CategoryService, *store.Badger) {
	t.Helper()
	s := newTestStore(t)
	return NewCategoryService(s, newTestIndex(t), nil), s
}

func mustCreate(t *testing.T, svc *CategoryService, name, parentID string) *domain.Category {
	t.Helper()
	c, err := svc.Create(context.Background(), CreateCategoryRequest{Name: name, ParentID: parentID})
	require.NoError(t, err)
	return c
}

// scenario creates Apparel > Bags > Clutches and Apparel > Dresses.
func scenario(t *testing.T, svc *CategoryService) (a, b, c, d *domain.Category) {
	t.Helper()
	a = mustCreate(t, svc, "Apparel", "")
	b = mustCreate(t, svc, "Bags", a.ID)
	c = mustCreate(t, svc, "Clutches", b.ID)
	d = mustCreate(t, svc, "Dresses", a.ID)
	return a, b, c, d
}

func requireField(t *testing.T, err error, field string) {
	t.Helper()
	var de *domainerrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, field, de.Field())
}

func ptr[T any](v T) *T { return &v }

func assertConsistent(t *testing.T, svc *CategoryService) {
	t.Helper()
	violations, err := svc.Verify(context.Background())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCreate_ComputesLineage(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()

	root, err := svc.Create(ctx, CreateCategoryRequest{Name: "  Men's & Boys' Wear!! "})
	require.NoError(t, err)
	assert.Equal(t, "Men's & Boys' Wear!!", root.Name)
	assert.Equal(t, "mens-boys-wear", root.Slug)
	assert.Equal(t, 0, root.Level)
	assert.Equal(t, "/mens-boys-wear", root.Path)
	assert.Empty(t, root.Ancestors)
	assert.True(t, root.IsActive)
	assert.True(t, len(root.ID) > 4 && root.ID[:4] == "cat-")

	child, err := svc.Create(ctx, CreateCategoryRequest{Name: "Shirts", ParentID: root.ID, IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, 1, child.Level)
	assert.Equal(t, "/mens-boys-wear/shirts", child.Path)
	assert.Equal(t, []domain.AncestorRef{root.Ref()}, child.Ancestors)
	assert.False(t, child.IsActive)

	crumbs, err := svc.Breadcrumbs(ctx, child.ID)
	require.NoError(t, err)
	assert.Len(t, crumbs, child.Level+1)
}

func TestCreate_ExplicitSlug(t *testing.T) {
	svc, _ := newTestCategoryService(t)

	c, err := svc.Create(context.Background(), CreateCategoryRequest{Name: "Café Supplies", Slug: "horeca"})
	require.NoError(t, err)
	assert.Equal(t, "horeca", c.Slug)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   CreateCategoryRequest
		field string
	}{
		{"missing name", CreateCategoryRequest{}, "name"},
		{"blank name", CreateCategoryRequest{Name: "   "}, "name"},
		{"name without slug characters", CreateCategoryRequest{Name: "!!!"}, "slug"},
		{"malformed slug", CreateCategoryRequest{Name: "Tools", Slug: "Not A Slug"}, "slug"},
		{"long description", CreateCategoryRequest{Name: "Tools", Description: string(make([]byte, 1001))}, "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			require.ErrorIs(t, err, domainerrors.ErrValidation)

			var de *domainerrors.Error
			require.ErrorAs(t, err, &de)
			details, ok := de.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.field)
		})
	}
}

func TestCreate_MissingParent(t *testing.T) {
	svc, _ := newTestCategoryService(t)

	_, err := svc.Create(context.Background(), CreateCategoryRequest{Name: "Orphan", ParentID: "cat-missing"})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	requireField(t, err, "parent_id")
}

func TestCreate_DuplicateSlug(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	mustCreate(t, svc, "Tools", "")

	_, err := svc.Create(context.Background(), CreateCategoryRequest{Name: "TOOLS!"})
	require.ErrorIs(t, err, domainerrors.ErrConflict)
	requireField(t, err, "slug")
}

func TestCreate_ConvertsHTMLDescription(t *testing.T) {
	svc, _ := newTestCategoryService(t)

	c, err := svc.Create(context.Background(), CreateCategoryRequest{
		Name:        "Fasteners",
		Description: "<p>Bolts, <strong>nuts</strong> and screws</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bolts, **nuts** and screws", c.Description)
}

func TestUpdate_RejectsSelfOrDescendantParent(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	a, b, c, _ := scenario(t, svc)

	for _, target := range []string{a.ID, b.ID, c.ID} {
		_, err := svc.Update(ctx, a.ID, UpdateCategoryRequest{ParentID: ptr(target)})
		require.ErrorIs(t, err, domainerrors.ErrConflict, target)
		requireField(t, err, "parent_id")
	}

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ParentID)
	assertConsistent(t, svc)
}

func TestUpdate_ReparentRecomputesSubtree(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	a, b, c, d := scenario(t, svc)

	moved, err := svc.Update(ctx, b.ID, UpdateCategoryRequest{ParentID: ptr(d.ID)})
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Level)
	assert.Equal(t, "/apparel/dresses/bags", moved.Path)

	gotC, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, gotC.Level)
	assert.Equal(t, "/apparel/dresses/bags/clutches", gotC.Path)
	assert.Equal(t, []domain.AncestorRef{a.Ref(), d.Ref(), b.Ref()}, gotC.Ancestors)

	gotD, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotD.ChildrenCount)
	assert.Equal(t, 2, gotD.DescendantCount)

	assertConsistent(t, svc)
}

func TestUpdate_MoveToRoot(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	_, b, c, _ := scenario(t, svc)

	moved, err := svc.Update(ctx, b.ID, UpdateCategoryRequest{ParentID: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Level)
	assert.Equal(t, "/bags", moved.Path)
	assert.Empty(t, moved.Ancestors)

	gotC, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.AncestorRef{b.Ref()}, gotC.Ancestors)
	assertConsistent(t, svc)
}

func TestUpdate_RenamePropagatesToDescendants(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	a, _, c, _ := scenario(t, svc)

	renamed, err := svc.Update(ctx, a.ID, UpdateCategoryRequest{Name: ptr("Clothing")})
	require.NoError(t, err)
	assert.Equal(t, "apparel", renamed.Slug, "rename keeps the slug")

	gotC, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Clothing", gotC.Ancestors[0].Name)
	assert.Equal(t, "/apparel/bags/clutches", gotC.Path)

	_, err = svc.Update(ctx, a.ID, UpdateCategoryRequest{Slug: ptr("clothing")})
	require.NoError(t, err)
	gotC, err = svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "/clothing/bags/clutches", gotC.Path)
	assert.Equal(t, "clothing", gotC.Ancestors[0].Slug)

	assertConsistent(t, svc)
}

func TestUpdate_SlugConflictAndMissingTargets(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	_, b, _, _ := scenario(t, svc)

	_, err := svc.Update(ctx, b.ID, UpdateCategoryRequest{Slug: ptr("dresses")})
	require.ErrorIs(t, err, domainerrors.ErrConflict)
	requireField(t, err, "slug")

	_, err = svc.Update(ctx, b.ID, UpdateCategoryRequest{ParentID: ptr("cat-missing")})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	requireField(t, err, "parent_id")

	_, err = svc.Update(ctx, "cat-missing", UpdateCategoryRequest{Name: ptr("x")})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUpdate_PlainFieldsDoNotTouchDescendants(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	a, b, _, _ := scenario(t, svc)

	before, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, a.ID, UpdateCategoryRequest{
		DisplayOrder: ptr(7),
		IsActive:     ptr(false),
		Metadata:     &domain.Metadata{MetaTitle: "Apparel wholesale"},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.DisplayOrder)
	assert.False(t, updated.IsActive)
	require.NotNil(t, updated.Metadata)

	after, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestDelete_RejectsCategoryWithChildren(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	a, b, _, _ := scenario(t, svc)

	for _, id := range []string{a.ID, b.ID} {
		_, err := svc.Delete(ctx, id)
		require.ErrorIs(t, err, domainerrors.ErrConflict)
		assert.Contains(t, err.Error(), "subcategories")
	}

	tree, err := svc.Tree(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 4, tree.Len())
}

func TestDelete_LeafRemovesProductLinks(t *testing.T) {
	svc, s := newTestCategoryService(t)
	ctx := context.Background()
	_, _, c, _ := scenario(t, svc)
	require.NoError(t, svc.LinkProduct(ctx, c.ID, "prod-1"))

	deleted, err := svc.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, deleted)

	_, err = svc.Get(ctx, c.ID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	page, err := s.ListProductIDs(ctx, []string{c.ID}, store.Page{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = svc.Delete(ctx, c.ID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestReads(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	a, b, c, d := scenario(t, svc)

	list, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID, d.ID}, categoryIDs(list))
	for _, item := range list {
		assert.Nil(t, item.Children)
	}

	descendants, err := svc.Descendants(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID, d.ID}, categoryIDs(descendants))

	siblings, err := svc.Siblings(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{d.ID}, categoryIDs(siblings))

	picker, err := svc.Picker(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, picker, 2)
	assert.Equal(t, "Apparel", picker[0].DisplayName)
	assert.Equal(t, "└─ Dresses", picker[1].DisplayName)

	bySlug, err := svc.GetBySlug(ctx, "apparel", true)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, d.ID}, categoryIDs(bySlug.Children))

	found, err := svc.Search(ctx, "BAG", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, categoryIDs(found))

	_, err = svc.Descendants(ctx, "cat-missing")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestList_ActiveOnlyHidesInactiveSubtrees(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	a, b, _, d := scenario(t, svc)

	_, err := svc.Update(ctx, b.ID, UpdateCategoryRequest{IsActive: ptr(false)})
	require.NoError(t, err)

	list, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, d.ID}, categoryIDs(list))
}

func TestStorefrontSearch(t *testing.T) {
	svc, s := newTestCategoryService(t)
	ctx := context.Background()
	_, b, c, _ := scenario(t, svc)
	_, err := svc.Update(ctx, b.ID, UpdateCategoryRequest{IsActive: ptr(false)})
	require.NoError(t, err)

	found, err := svc.StorefrontSearch(ctx, "dresses", 10)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "Dresses", found[0].Name)

	found, err = svc.StorefrontSearch(ctx, "clutches", 10)
	require.NoError(t, err)
	assert.NotContains(t, categoryIDs(found), c.ID, "hidden below an inactive parent")

	fallback := NewCategoryService(s, nil, nil)
	found, err = fallback.StorefrontSearch(ctx, "dress", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dresses"}, categoryNames(found))
}

func TestStorefrontSearch_MatchesSubstringSearch(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	electronics := mustCreate(t, svc, "Electronics", "")
	mustCreate(t, svc, "Headphones", electronics.ID)
	mustCreate(t, svc, "Phones", electronics.ID)
	mustCreate(t, svc, "Furniture", "")

	for _, term := range []string{"tronic", "lectr", "electronics", "phone", "FURN", "zzz"} {
		storefront, err := svc.StorefrontSearch(ctx, term, 0)
		require.NoError(t, err)
		substring, err := svc.Search(ctx, term, 0)
		require.NoError(t, err)
		assert.ElementsMatch(t, categoryNames(substring), categoryNames(storefront), term)
	}

	// Matches the index scores come ahead of infix-only matches.
	found, err := svc.StorefrontSearch(ctx, "phone", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Phones", "Headphones"}, categoryNames(found))

	found, err = svc.StorefrontSearch(ctx, "phone", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Phones"}, categoryNames(found))
}

func TestProductsInCategory(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	a, b, c, _ := scenario(t, svc)
	require.NoError(t, svc.LinkProduct(ctx, a.ID, "prod-a"))
	require.NoError(t, svc.LinkProduct(ctx, b.ID, "prod-b"))
	require.NoError(t, svc.LinkProduct(ctx, c.ID, "prod-c"))

	direct, err := svc.ProductsInCategory(ctx, a.ID, false, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-a"}, direct.Items)

	all, err := svc.ProductsInCategory(ctx, a.ID, true, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-a", "prod-b", "prod-c"}, all.Items)

	_, err = svc.ProductsInCategory(ctx, "cat-missing", true, store.Page{})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = svc.LinkProduct(ctx, "cat-missing", "prod-x")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	err = svc.LinkProduct(ctx, a.ID, " ")
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestVerifyAndRepair(t *testing.T) {
	svc, s := newTestCategoryService(t)
	ctx := context.Background()
	_, b, c, _ := scenario(t, svc)

	// Corrupt the stored lineage of C behind the service's back.
	stale, err := s.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	stale.Path = "/wrong/path"
	stale.Level = 5
	require.NoError(t, s.UpdateCategories(ctx, stale))

	violations, err := svc.Verify(ctx)
	require.NoError(t, err)
	kinds := map[category.ViolationKind]bool{}
	for _, v := range violations {
		assert.Equal(t, c.ID, v.CategoryID)
		kinds[v.Kind] = true
	}
	assert.True(t, kinds[category.ViolationPath])
	assert.True(t, kinds[category.ViolationLevel])

	n, err := svc.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assertConsistent(t, svc)

	fixed, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Path+"/clutches", fixed.Path)

	n, err = svc.Repair(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConcurrentReparentsNeverFormACycle(t *testing.T) {
	svc, _ := newTestCategoryService(t)
	ctx := context.Background()
	x := mustCreate(t, svc, "Xylophones", "")
	y := mustCreate(t, svc, "Yarn", "")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.Update(ctx, x.ID, UpdateCategoryRequest{ParentID: ptr(y.ID)})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = svc.Update(ctx, y.ID, UpdateCategoryRequest{ParentID: ptr(x.ID)})
	}()
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domainerrors.ErrConflict)
			failed++
		}
	}
	assert.Equal(t, 1, failed, "exactly one reparent wins")
	assertConsistent(t, svc)
}

func categoryIDs(cs []*domain.Category) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func categoryNames(cs []*domain.Category) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}
