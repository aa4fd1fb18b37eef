// Package storetest is a conformance suite run against every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradepost/catalog-server/internal/category"
	"github.com/tradepost/catalog-server/internal/domain"
	"github.com/tradepost/catalog-server/internal/store"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run executes the full suite.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"DuplicateSlug", testDuplicateSlug},
		{"MissingParent", testMissingParent},
		{"ListWithAggregates", testListWithAggregates},
		{"GetChildren", testGetChildren},
		{"UpdateBatch", testUpdateBatch},
		{"UpdateBatchIsAtomic", testUpdateBatchIsAtomic},
		{"DeleteGuardsChildren", testDeleteGuardsChildren},
		{"ProductLinks", testProductLinks},
		{"CategoryRequests", testCategoryRequests},
		{"Messages", testMessages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

// NewCategory builds a category with lineage derived from parent.
func NewCategory(id, name string, parent *domain.Category) *domain.Category {
	c := &domain.Category{
		Record:   domain.Record{ID: id},
		Name:     name,
		Slug:     category.GenerateSlug(name),
		IsActive: true,
		Metadata: &domain.Metadata{MetaTitle: name, Keywords: []string{"b2b", "wholesale"}},
	}
	if parent != nil {
		c.ParentID = parent.ID
	}
	category.LineageOf(parent, c.Slug).Apply(c)
	c.InitTimestamps()
	return c
}

func mustCreate(t *testing.T, s store.Store, cs ...*domain.Category) {
	t.Helper()
	for _, c := range cs {
		require.NoError(t, s.CreateCategory(context.Background(), c), c.ID)
	}
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	root := NewCategory("cat-1", "Electronics", nil)
	root.Description = "Everything with a plug"
	root.DisplayOrder = 3
	root.ImageURL = "https://cdn.example.com/e.png"
	child := NewCategory("cat-2", "Phones", root)
	mustCreate(t, s, root, child)

	got, err := s.GetCategory(ctx, "cat-2")
	require.NoError(t, err)
	assert.Equal(t, "Phones", got.Name)
	assert.Equal(t, "cat-1", got.ParentID)
	assert.Equal(t, 1, got.Level)
	assert.Equal(t, "/electronics/phones", got.Path)
	assert.Equal(t, []domain.AncestorRef{{ID: "cat-1", Name: "Electronics", Slug: "electronics"}}, got.Ancestors)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, []string{"b2b", "wholesale"}, got.Metadata.Keywords)
	assert.WithinDuration(t, child.CreatedAt, got.CreatedAt, time.Millisecond)

	bySlug, err := s.GetCategoryBySlug(ctx, "electronics")
	require.NoError(t, err)
	assert.Equal(t, "cat-1", bySlug.ID)
	assert.Equal(t, "Everything with a plug", bySlug.Description)
	assert.Equal(t, 3, bySlug.DisplayOrder)
	assert.Equal(t, "https://cdn.example.com/e.png", bySlug.ImageURL)
	assert.Empty(t, bySlug.ParentID)
	assert.Empty(t, bySlug.Ancestors)

	_, err = s.GetCategory(ctx, "cat-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetCategoryBySlug(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := s.CountCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testDuplicateSlug(t *testing.T, s store.Store) {
	mustCreate(t, s, NewCategory("cat-1", "Tools", nil))

	err := s.CreateCategory(context.Background(), NewCategory("cat-2", "Tools", nil))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	err = s.CreateCategory(context.Background(), NewCategory("cat-1", "Other", nil))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func testMissingParent(t *testing.T, s store.Store) {
	ghost := NewCategory("cat-ghost", "Ghost", nil)
	c := NewCategory("cat-1", "Child", ghost)

	err := s.CreateCategory(context.Background(), c)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testListWithAggregates(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := NewCategory("cat-a", "Apparel", nil)
	b := NewCategory("cat-b", "Bags", a)
	c := NewCategory("cat-c", "Clutches", b)
	d := NewCategory("cat-d", "Dresses", a)
	mustCreate(t, s, a, b, c, d)
	require.NoError(t, s.LinkProduct(ctx, "cat-b", "prod-1"))
	require.NoError(t, s.LinkProduct(ctx, "cat-b", "prod-2"))

	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)

	byID := map[string]*domain.Category{}
	for _, c := range list {
		byID[c.ID] = c
		assert.Nil(t, c.Children, "store never populates children")
	}
	assert.Equal(t, 2, byID["cat-a"].ChildrenCount)
	assert.Equal(t, 3, byID["cat-a"].DescendantCount)
	assert.Equal(t, 1, byID["cat-b"].ChildrenCount)
	assert.Equal(t, 2, byID["cat-b"].ProductCount)
	assert.Equal(t, 0, byID["cat-c"].DescendantCount)

	tree := category.BuildTree(list)
	assert.Empty(t, category.Verify(tree))
}

func testGetChildren(t *testing.T, s store.Store) {
	ctx := context.Background()
	root := NewCategory("cat-r", "Root", nil)
	z := NewCategory("cat-z", "Zeta", root)
	y := NewCategory("cat-y", "Ypsilon", root)
	y.DisplayOrder = 2
	z.DisplayOrder = 1
	other := NewCategory("cat-o", "Other Root", nil)
	mustCreate(t, s, root, z, y, other)

	children, err := s.GetChildren(ctx, "cat-r")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "cat-z", children[0].ID)
	assert.Equal(t, "cat-y", children[1].ID)

	roots, err := s.GetChildren(ctx, "")
	require.NoError(t, err)
	assert.Len(t, roots, 2)
}

func testUpdateBatch(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := NewCategory("cat-a", "Apparel", nil)
	b := NewCategory("cat-b", "Bags", a)
	c := NewCategory("cat-c", "Clutches", b)
	e := NewCategory("cat-e", "Electronics", nil)
	mustCreate(t, s, a, b, c, e)

	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	tree := category.BuildTree(list)

	moved := tree.Map["cat-b"].Clone()
	moved.ParentID = "cat-e"
	moved.Slug = "bags-and-cases"
	updated := category.Cascade(tree, moved)
	require.NoError(t, s.UpdateCategories(ctx, updated...))

	gotC, err := s.GetCategory(ctx, "cat-c")
	require.NoError(t, err)
	assert.Equal(t, "/electronics/bags-and-cases/clutches", gotC.Path)
	assert.Equal(t, 2, gotC.Level)

	_, err = s.GetCategoryBySlug(ctx, "bags")
	assert.ErrorIs(t, err, store.ErrNotFound)
	gotB, err := s.GetCategoryBySlug(ctx, "bags-and-cases")
	require.NoError(t, err)
	assert.Equal(t, "cat-e", gotB.ParentID)

	gotA, err := s.GetCategory(ctx, "cat-a")
	require.NoError(t, err)
	assert.Equal(t, 0, gotA.ChildrenCount)
	gotE, err := s.GetCategory(ctx, "cat-e")
	require.NoError(t, err)
	assert.Equal(t, 1, gotE.ChildrenCount)
	assert.Equal(t, 2, gotE.DescendantCount)

	all, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, category.Verify(category.BuildTree(all)))
}

func testUpdateBatchIsAtomic(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := NewCategory("cat-a", "Apparel", nil)
	b := NewCategory("cat-b", "Bags", nil)
	mustCreate(t, s, a, b)

	renamed := a.Clone()
	renamed.Name = "Clothing"
	ghost := NewCategory("cat-ghost", "Ghost", nil)

	err := s.UpdateCategories(ctx, renamed, ghost)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.GetCategory(ctx, "cat-a")
	require.NoError(t, err)
	assert.Equal(t, "Apparel", got.Name, "first update rolled back")

	clash := b.Clone()
	clash.Slug = "apparel"
	err = s.UpdateCategories(ctx, clash)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func testDeleteGuardsChildren(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := NewCategory("cat-a", "Apparel", nil)
	b := NewCategory("cat-b", "Bags", a)
	mustCreate(t, s, a, b)
	require.NoError(t, s.LinkProduct(ctx, "cat-b", "prod-1"))

	assert.ErrorIs(t, s.DeleteCategory(ctx, "cat-a"), store.ErrHasChildren)

	require.NoError(t, s.DeleteCategory(ctx, "cat-b"))
	_, err := s.GetCategory(ctx, "cat-b")
	assert.ErrorIs(t, err, store.ErrNotFound)

	page, err := s.ListProductIDs(ctx, []string{"cat-b"}, store.Page{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	require.NoError(t, s.DeleteCategory(ctx, "cat-a"))
	assert.ErrorIs(t, s.DeleteCategory(ctx, "cat-a"), store.ErrNotFound)

	// The slug is free again.
	mustCreate(t, s, NewCategory("cat-a2", "Apparel", nil))
}

func testProductLinks(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := NewCategory("cat-a", "Apparel", nil)
	b := NewCategory("cat-b", "Bags", a)
	mustCreate(t, s, a, b)

	for _, p := range []string{"prod-3", "prod-1", "prod-2"} {
		require.NoError(t, s.LinkProduct(ctx, "cat-a", p))
	}
	require.NoError(t, s.LinkProduct(ctx, "cat-a", "prod-1"), "linking twice is fine")
	require.NoError(t, s.LinkProduct(ctx, "cat-b", "prod-2"))
	require.NoError(t, s.LinkProduct(ctx, "cat-b", "prod-4"))

	assert.ErrorIs(t, s.LinkProduct(ctx, "cat-missing", "prod-1"), store.ErrNotFound)

	first, err := s.ListProductIDs(ctx, []string{"cat-a", "cat-b"}, store.Page{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-1", "prod-2", "prod-3"}, first.Items)
	assert.Equal(t, 4, first.Total)
	assert.True(t, first.HasMore)

	second, err := s.ListProductIDs(ctx, []string{"cat-a", "cat-b"}, store.Page{Offset: 3, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-4"}, second.Items)
	assert.False(t, second.HasMore)

	require.NoError(t, s.UnlinkProduct(ctx, "cat-a", "prod-3"))
	only, err := s.ListProductIDs(ctx, []string{"cat-a"}, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-1", "prod-2"}, only.Items)

	none, err := s.ListProductIDs(ctx, nil, store.Page{})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
}

func testCategoryRequests(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	newReq := func(id, seller string, offset time.Duration) *domain.CategoryRequest {
		r := &domain.CategoryRequest{
			Record:       domain.Record{ID: id, CreatedAt: base.Add(offset), UpdatedAt: base.Add(offset)},
			SellerID:     seller,
			ProposedName: "Solar Panels " + id,
			ProposedSlug: "solar-panels-" + id,
			SellerReason: "We sell a lot of these",
			Status:       domain.CategoryRequestPending,
		}
		require.NoError(t, s.CreateCategoryRequest(ctx, r))
		return r
	}
	r1 := newReq("creq-1", "seller-1", 0)
	newReq("creq-2", "seller-2", time.Minute)
	newReq("creq-3", "seller-1", 2*time.Minute)

	assert.ErrorIs(t, s.CreateCategoryRequest(ctx, r1), store.ErrAlreadyExists)

	got, err := s.GetCategoryRequest(ctx, "creq-1")
	require.NoError(t, err)
	assert.Equal(t, "seller-1", got.SellerID)
	assert.Equal(t, domain.CategoryRequestPending, got.Status)

	all, err := s.ListCategoryRequests(ctx, store.CategoryRequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "creq-3", all[0].ID, "newest first")

	got.Status = domain.CategoryRequestRejected
	got.ReviewerID = "admin-1"
	got.ReviewNote = "duplicate of Energy"
	got.Touch()
	require.NoError(t, s.UpdateCategoryRequest(ctx, got))

	pending, err := s.ListCategoryRequests(ctx, store.CategoryRequestFilter{Status: domain.CategoryRequestPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	mine, err := s.ListCategoryRequests(ctx, store.CategoryRequestFilter{SellerID: "seller-1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	reloaded, err := s.GetCategoryRequest(ctx, "creq-1")
	require.NoError(t, err)
	assert.Equal(t, "duplicate of Energy", reloaded.ReviewNote)

	_, err = s.GetCategoryRequest(ctx, "creq-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateCategoryRequest(ctx, &domain.CategoryRequest{Record: domain.Record{ID: "creq-missing"}}), store.ErrNotFound)
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	send := func(id, from, to string, offset time.Duration) {
		require.NoError(t, s.CreateMessage(ctx, &domain.Message{
			ID: id, SenderID: from, RecipientID: to, Body: "hi " + id, CreatedAt: base.Add(offset),
		}))
	}
	send("msg-1", "buyer", "seller", 0)
	send("msg-2", "seller", "buyer", time.Second)
	send("msg-3", "buyer", "other", 2*time.Second)
	send("msg-4", "buyer", "seller", 3*time.Second)

	all, err := s.ListConversation(ctx, "seller", "buyer", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "msg-1", all[0].ID)
	assert.Equal(t, "msg-4", all[2].ID)

	latest, err := s.ListConversation(ctx, "buyer", "seller", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "msg-2", latest[0].ID)
	assert.Equal(t, "msg-4", latest[1].ID)
}
