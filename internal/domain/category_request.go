package domain

// CategoryRequestStatus is the review state of a seller's category proposal.
type CategoryRequestStatus string

// Category request states.
const (
	CategoryRequestPending  CategoryRequestStatus = "pending"
	CategoryRequestApproved CategoryRequestStatus = "approved"
	CategoryRequestRejected CategoryRequestStatus = "rejected"
)

// IsValid reports whether s is a known status.
func (s CategoryRequestStatus) IsValid() bool {
	switch s {
	case CategoryRequestPending, CategoryRequestApproved, CategoryRequestRejected:
		return true
	}
	return false
}

// CategoryRequest is a seller-submitted proposal for a new category.
// It stays separate from the category tree until an admin approves it.
type CategoryRequest struct {
	Record
	SellerID         string                `json:"seller_id"`
	ProposedName     string                `json:"proposed_name"`
	ProposedSlug     string                `json:"proposed_slug"`
	ParentCategoryID string                `json:"parent_category_id,omitempty"`
	SellerReason     string                `json:"seller_reason,omitempty"`
	Status           CategoryRequestStatus `json:"status"`
	ReviewerID       string                `json:"reviewer_id,omitempty"`
	ReviewNote       string                `json:"review_note,omitempty"`
	// CreatedCategoryID is reserved when approval starts. The category exists
	// once the request is approved.
	CreatedCategoryID string `json:"created_category_id,omitempty"`
}

// IsPending returns true while the request awaits review.
func (r *CategoryRequest) IsPending() bool {
	return r.Status == CategoryRequestPending
}
