package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradepost/catalog-server/internal/domain"
	"github.com/tradepost/catalog-server/internal/store"
)

var (
	errUnique = errors.New("unique violation")
	errFK     = errors.New("foreign key violation")
)

var testDialect = Dialect{
	Name:                  "postgres",
	Placeholder:           sq.Dollar,
	IsUniqueViolation:     func(err error) bool { return errors.Is(err, errUnique) },
	IsForeignKeyViolation: func(err error) bool { return errors.Is(err, errFK) },
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres"), testDialect, nil), mock
}

var categoryRowColumns = append(append([]string{}, categoryColumns...),
	"children_count", "descendant_count", "product_count")

func TestGetCategory(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT c\.id, .* FROM categories c WHERE c\.id = \$1`).
			WithArgs("cat-2").
			WillReturnRows(sqlmock.NewRows(categoryRowColumns).AddRow(
				"cat-2", "Phones", "phones", "", "cat-1", 1, "/electronics/phones",
				`[{"id":"cat-1","name":"Electronics","slug":"electronics"}]`,
				2, true, "", nil,
				"2024-05-01T12:00:00.000000000Z", "2024-05-02T12:00:00.000000000Z",
				3, 7, 11,
			))

		c, err := s.GetCategory(ctx, "cat-2")
		require.NoError(t, err)
		assert.Equal(t, "cat-1", c.ParentID)
		assert.Equal(t, []domain.AncestorRef{{ID: "cat-1", Name: "Electronics", Slug: "electronics"}}, c.Ancestors)
		assert.Nil(t, c.Metadata)
		assert.Equal(t, 3, c.ChildrenCount)
		assert.Equal(t, 7, c.DescendantCount)
		assert.Equal(t, 11, c.ProductCount)
		assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), c.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery(`SELECT c\.id, .* FROM categories c WHERE c\.id = \$1`).
			WithArgs("cat-x").
			WillReturnRows(sqlmock.NewRows(categoryRowColumns))

		_, err := s.GetCategory(ctx, "cat-x")
		assert.ErrorIs(t, err, store.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetChildren_RootsUseIsNull(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM categories c WHERE c\.parent_id IS NULL ORDER BY c\.display_order, c\.name`).
		WillReturnRows(sqlmock.NewRows(categoryRowColumns))

	roots, err := s.GetChildren(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, roots)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCategory_TranslatesConstraintErrors(t *testing.T) {
	s, mock := newMockStore(t)
	c := &domain.Category{Record: domain.Record{ID: "cat-1"}, Name: "Tools", Slug: "tools", Path: "/tools"}

	mock.ExpectExec(`INSERT INTO categories \(id,name,slug,.*\) VALUES \(\$1,\$2,.*\$14\)`).
		WillReturnError(errUnique)
	assert.ErrorIs(t, s.CreateCategory(context.Background(), c), store.ErrAlreadyExists)

	mock.ExpectExec(`INSERT INTO categories`).WillReturnError(errFK)
	assert.ErrorIs(t, s.CreateCategory(context.Background(), c), store.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCategories_RollsBackOnMissingRow(t *testing.T) {
	s, mock := newMockStore(t)
	a := &domain.Category{Record: domain.Record{ID: "cat-a"}, Name: "A", Slug: "a", Path: "/a"}
	b := &domain.Category{Record: domain.Record{ID: "cat-b"}, Name: "B", Slug: "b", Path: "/b"}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE categories SET .* WHERE id = \$13`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE categories SET .* WHERE id = \$13`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.UpdateCategories(context.Background(), a, b)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCategories_Commits(t *testing.T) {
	s, mock := newMockStore(t)
	a := &domain.Category{Record: domain.Record{ID: "cat-a"}, Name: "A", Slug: "a", Path: "/a"}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE categories SET .* WHERE id = \$13`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.UpdateCategories(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCategory(t *testing.T) {
	countChildren := `SELECT COUNT\(\*\) FROM categories WHERE parent_id = \$1`

	t.Run("has children", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(countChildren).WithArgs("cat-a").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectRollback()

		assert.ErrorIs(t, s.DeleteCategory(context.Background(), "cat-a"), store.ErrHasChildren)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaf", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(countChildren).WithArgs("cat-b").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`DELETE FROM category_products WHERE category_id = \$1`).WithArgs("cat-b").
			WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).WithArgs("cat-b").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.DeleteCategory(context.Background(), "cat-b"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(countChildren).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`DELETE FROM category_products`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM categories`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, s.DeleteCategory(context.Background(), "cat-x"), store.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkProduct_IgnoresDuplicates(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO category_products \(category_id,product_id\) VALUES \(\$1,\$2\) ON CONFLICT DO NOTHING`).
		WithArgs("cat-a", "prod-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.LinkProduct(context.Background(), "cat-a", "prod-1"))

	mock.ExpectExec(`INSERT INTO category_products`).WillReturnError(errFK)
	assert.ErrorIs(t, s.LinkProduct(context.Background(), "cat-x", "prod-1"), store.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductIDs(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(DISTINCT product_id\) FROM category_products WHERE category_id IN \(\$1,\$2\)`).
		WithArgs("cat-a", "cat-b").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT DISTINCT product_id FROM category_products WHERE category_id IN \(\$1,\$2\) ORDER BY product_id LIMIT 2 OFFSET 0`).
		WithArgs("cat-a", "cat-b").
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow("prod-1").AddRow("prod-2"))

	page, err := s.ListProductIDs(ctx, []string{"cat-a", "cat-b"}, store.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-1", "prod-2"}, page.Items)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasMore)

	empty, err := s.ListProductIDs(ctx, nil, store.Page{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListConversation_OldestFirst(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM messages WHERE .*recipient_id = \$1 AND sender_id = \$2\)? OR \(?recipient_id = \$3 AND sender_id = \$4.* ORDER BY created_at DESC, id DESC LIMIT 2`).
		WithArgs("bob", "alice", "alice", "bob").
		WillReturnRows(sqlmock.NewRows(messageColumns).
			AddRow("msg-3", "bob", "alice", "third", "", "2024-05-01T12:00:03.000000000Z").
			AddRow("msg-2", "alice", "bob", "second", "", "2024-05-01T12:00:02.000000000Z"))

	msgs, err := s.ListConversation(context.Background(), "alice", "bob", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-2", msgs[0].ID)
	assert.Equal(t, "msg-3", msgs[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTime_ValueSortsLexically(t *testing.T) {
	early, err := Time{time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}.Value()
	require.NoError(t, err)
	late, err := Time{time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)}.Value()
	require.NoError(t, err)

	assert.Less(t, early.(string), late.(string))
	assert.Equal(t, "2024-05-01T12:00:00.000000000Z", early)
}

func TestTime_Scan(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, src := range []any{
		"2024-05-01T12:00:00Z",
		[]byte("2024-05-01T14:00:00+02:00"),
		want.In(time.FixedZone("x", 3600)),
	} {
		var ts Time
		require.NoError(t, ts.Scan(src))
		assert.True(t, want.Equal(ts.Time))
		assert.Equal(t, time.UTC, ts.Location())
	}

	var ts Time
	assert.Error(t, ts.Scan(42))
}

func TestJSON_NullRoundTrip(t *testing.T) {
	v, err := JSON[*domain.Metadata]{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	var md JSON[*domain.Metadata]
	require.NoError(t, md.Scan(nil))
	assert.Nil(t, md.V)

	require.NoError(t, md.Scan([]byte(`{"meta_title":"Tools","keywords":["a"]}`)))
	require.NotNil(t, md.V)
	assert.Equal(t, "Tools", md.V.MetaTitle)

	var _ driver.Valuer = JSON[int]{}
}
