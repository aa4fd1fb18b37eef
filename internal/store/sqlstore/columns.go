package sqlstore

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tradepost/catalog-server/internal/domain"
)

// timeLayout is fixed width so stored text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Time persists as fixed-width UTC text and scans from text or native
// timestamp columns.
type Time struct {
	time.Time
}

// Value implements driver.Valuer.
func (t Time) Value() (driver.Value, error) {
	return t.UTC().Format(timeLayout), nil
}

// Scan implements sql.Scanner.
func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Time", src)
	}
	return nil
}

func (t *Time) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

// JSON persists V as JSON text. A JSON null is stored as SQL NULL.
type JSON[T any] struct {
	V T
}

// Value implements driver.Valuer.
func (j JSON[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (j *JSON[T]) Scan(src any) error {
	var zero T
	j.V = zero
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		return json.Unmarshal([]byte(v), &j.V)
	case []byte:
		return json.Unmarshal(v, &j.V)
	default:
		return fmt.Errorf("cannot scan %T into JSON", src)
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

type categoryRow struct {
	ID           string                     `db:"id"`
	Name         string                     `db:"name"`
	Slug         string                     `db:"slug"`
	Description  string                     `db:"description"`
	ParentID     sql.NullString             `db:"parent_id"`
	Level        int                        `db:"level"`
	Path         string                     `db:"path"`
	Ancestors    JSON[[]domain.AncestorRef] `db:"ancestors"`
	DisplayOrder int                        `db:"display_order"`
	IsActive     bool                       `db:"is_active"`
	ImageURL     string                     `db:"image_url"`
	Metadata     JSON[*domain.Metadata]     `db:"metadata"`
	CreatedAt    Time                       `db:"created_at"`
	UpdatedAt    Time                       `db:"updated_at"`

	ProductCount    int `db:"product_count"`
	ChildrenCount   int `db:"children_count"`
	DescendantCount int `db:"descendant_count"`
}

// categoryColumns lists persisted columns in insert order.
var categoryColumns = []string{
	"id", "name", "slug", "description", "parent_id", "level", "path", "ancestors",
	"display_order", "is_active", "image_url", "metadata", "created_at", "updated_at",
}

func newCategoryRow(c *domain.Category) categoryRow {
	ancestors := c.Ancestors
	if ancestors == nil {
		ancestors = []domain.AncestorRef{}
	}
	return categoryRow{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		Description:  c.Description,
		ParentID:     nullString(c.ParentID),
		Level:        c.Level,
		Path:         c.Path,
		Ancestors:    JSON[[]domain.AncestorRef]{V: ancestors},
		DisplayOrder: c.DisplayOrder,
		IsActive:     c.IsActive,
		ImageURL:     c.ImageURL,
		Metadata:     JSON[*domain.Metadata]{V: c.Metadata},
		CreatedAt:    Time{c.CreatedAt},
		UpdatedAt:    Time{c.UpdatedAt},
	}
}

func (r categoryRow) values() []any {
	return []any{
		r.ID, r.Name, r.Slug, r.Description, r.ParentID, r.Level, r.Path, r.Ancestors,
		r.DisplayOrder, r.IsActive, r.ImageURL, r.Metadata, r.CreatedAt, r.UpdatedAt,
	}
}

// setMap returns every mutable column for an UPDATE.
func (r categoryRow) setMap() map[string]any {
	return map[string]any{
		"name":          r.Name,
		"slug":          r.Slug,
		"description":   r.Description,
		"parent_id":     r.ParentID,
		"level":         r.Level,
		"path":          r.Path,
		"ancestors":     r.Ancestors,
		"display_order": r.DisplayOrder,
		"is_active":     r.IsActive,
		"image_url":     r.ImageURL,
		"metadata":      r.Metadata,
		"updated_at":    r.UpdatedAt,
	}
}

func (r categoryRow) toDomain() *domain.Category {
	c := &domain.Category{
		Record: domain.Record{
			ID:        r.ID,
			CreatedAt: r.CreatedAt.Time,
			UpdatedAt: r.UpdatedAt.Time,
		},
		Name:            r.Name,
		Slug:            r.Slug,
		Description:     r.Description,
		ParentID:        r.ParentID.String,
		Level:           r.Level,
		Path:            r.Path,
		Ancestors:       r.Ancestors.V,
		DisplayOrder:    r.DisplayOrder,
		IsActive:        r.IsActive,
		ImageURL:        r.ImageURL,
		Metadata:        r.Metadata.V,
		ProductCount:    r.ProductCount,
		ChildrenCount:   r.ChildrenCount,
		DescendantCount: r.DescendantCount,
	}
	if c.Ancestors == nil {
		c.Ancestors = []domain.AncestorRef{}
	}
	return c
}

type categoryRequestRow struct {
	ID                string         `db:"id"`
	SellerID          string         `db:"seller_id"`
	ProposedName      string         `db:"proposed_name"`
	ProposedSlug      string         `db:"proposed_slug"`
	ParentCategoryID  sql.NullString `db:"parent_category_id"`
	SellerReason      string         `db:"seller_reason"`
	Status            string         `db:"status"`
	ReviewerID        string         `db:"reviewer_id"`
	ReviewNote        string         `db:"review_note"`
	CreatedCategoryID string         `db:"created_category_id"`
	CreatedAt         Time           `db:"created_at"`
	UpdatedAt         Time           `db:"updated_at"`
}

var categoryRequestColumns = []string{
	"id", "seller_id", "proposed_name", "proposed_slug", "parent_category_id", "seller_reason",
	"status", "reviewer_id", "review_note", "created_category_id", "created_at", "updated_at",
}

func newCategoryRequestRow(r *domain.CategoryRequest) categoryRequestRow {
	return categoryRequestRow{
		ID:                r.ID,
		SellerID:          r.SellerID,
		ProposedName:      r.ProposedName,
		ProposedSlug:      r.ProposedSlug,
		ParentCategoryID:  nullString(r.ParentCategoryID),
		SellerReason:      r.SellerReason,
		Status:            string(r.Status),
		ReviewerID:        r.ReviewerID,
		ReviewNote:        r.ReviewNote,
		CreatedCategoryID: r.CreatedCategoryID,
		CreatedAt:         Time{r.CreatedAt},
		UpdatedAt:         Time{r.UpdatedAt},
	}
}

func (r categoryRequestRow) values() []any {
	return []any{
		r.ID, r.SellerID, r.ProposedName, r.ProposedSlug, r.ParentCategoryID, r.SellerReason,
		r.Status, r.ReviewerID, r.ReviewNote, r.CreatedCategoryID, r.CreatedAt, r.UpdatedAt,
	}
}

func (r categoryRequestRow) toDomain() *domain.CategoryRequest {
	return &domain.CategoryRequest{
		Record: domain.Record{
			ID:        r.ID,
			CreatedAt: r.CreatedAt.Time,
			UpdatedAt: r.UpdatedAt.Time,
		},
		SellerID:          r.SellerID,
		ProposedName:      r.ProposedName,
		ProposedSlug:      r.ProposedSlug,
		ParentCategoryID:  r.ParentCategoryID.String,
		SellerReason:      r.SellerReason,
		Status:            domain.CategoryRequestStatus(r.Status),
		ReviewerID:        r.ReviewerID,
		ReviewNote:        r.ReviewNote,
		CreatedCategoryID: r.CreatedCategoryID,
	}
}

type messageRow struct {
	ID          string `db:"id"`
	SenderID    string `db:"sender_id"`
	RecipientID string `db:"recipient_id"`
	Body        string `db:"body"`
	ClientRef   string `db:"client_ref"`
	CreatedAt   Time   `db:"created_at"`
}

var messageColumns = []string{"id", "sender_id", "recipient_id", "body", "client_ref", "created_at"}

func (r messageRow) toDomain() *domain.Message {
	return &domain.Message{
		ID:          r.ID,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		Body:        r.Body,
		ClientRef:   r.ClientRef,
		CreatedAt:   r.CreatedAt.Time,
	}
}
