package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tradepost/catalog-server/internal/category"
	"github.com/tradepost/catalog-server/internal/domain"
	domainerrors "github.com/tradepost/catalog-server/internal/errors"
	"github.com/tradepost/catalog-server/internal/id"
	"github.com/tradepost/catalog-server/internal/store"
	"github.com/tradepost/catalog-server/internal/validation"
)

// CategoryRequestRepository is the persistence the request workflow needs.
type CategoryRequestRepository interface {
	store.CategoryRequestStore
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
}

// CategoryRequestService runs the seller proposal workflow. Approved
// proposals become categories through CategoryService, so every tree rule
// applies to them too.
type CategoryRequestService struct {
	store      CategoryRequestRepository
	categories *CategoryService
	logger     *slog.Logger
	validator  *validation.Validator

	mu sync.Mutex
}

// NewCategoryRequestService creates the request workflow service.
func NewCategoryRequestService(s CategoryRequestRepository, categories *CategoryService, logger *slog.Logger) *CategoryRequestService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CategoryRequestService{
		store:      s,
		categories: categories,
		logger:     logger,
		validator:  validation.New(),
	}
}

// SubmitCategoryRequest contains a seller's proposal.
type SubmitCategoryRequest struct {
	ProposedName     string `json:"proposed_name" validate:"required,notblank,max=255"`
	ProposedSlug     string `json:"proposed_slug,omitempty" validate:"omitempty,slug,max=255"`
	ParentCategoryID string `json:"parent_category_id,omitempty"`
	SellerReason     string `json:"seller_reason,omitempty" validate:"max=1000"`
}

// Submit records a pending proposal from sellerID.
func (s *CategoryRequestService) Submit(ctx context.Context, sellerID string, req SubmitCategoryRequest) (*domain.CategoryRequest, error) {
	if sellerID == "" {
		return nil, domainerrors.Unauthorized("seller identity required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.ProposedName)
	slug := req.ProposedSlug
	if slug == "" {
		slug = category.GenerateSlug(name)
	}
	if slug == "" {
		return nil, domainerrors.ValidationOn("proposed_slug", "cannot be derived from name; provide a slug")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ParentCategoryID != "" {
		if _, err := s.store.GetCategory(ctx, req.ParentCategoryID); errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundOn("parent_category_id", "parent category not found")
		} else if err != nil {
			return nil, fmt.Errorf("load parent: %w", err)
		}
	}

	if err := s.checkSlugFree(ctx, slug); err != nil {
		return nil, err
	}

	requestID, err := id.Generate(id.PrefixCategoryRequest)
	if err != nil {
		return nil, err
	}
	r := &domain.CategoryRequest{
		Record:           domain.Record{ID: requestID},
		SellerID:         sellerID,
		ProposedName:     name,
		ProposedSlug:     slug,
		ParentCategoryID: req.ParentCategoryID,
		SellerReason:     strings.TrimSpace(req.SellerReason),
		Status:           domain.CategoryRequestPending,
	}
	r.InitTimestamps()

	if err := s.store.CreateCategoryRequest(ctx, r); err != nil {
		return nil, translateStoreError(err, "id", "id")
	}

	s.logger.Info("category request submitted", "id", r.ID, "seller_id", sellerID, "slug", slug)
	return r, nil
}

// checkSlugFree rejects a slug owned by a category or by another pending
// request.
func (s *CategoryRequestService) checkSlugFree(ctx context.Context, slug string) error {
	if _, err := s.store.GetCategoryBySlug(ctx, slug); err == nil {
		return domainerrors.ConflictOn("proposed_slug", "a category with this slug already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check slug: %w", err)
	}

	pending, err := s.store.ListCategoryRequests(ctx, store.CategoryRequestFilter{Status: domain.CategoryRequestPending})
	if err != nil {
		return err
	}
	for _, p := range pending {
		if p.ProposedSlug == slug {
			return domainerrors.ConflictOn("proposed_slug", "a pending request for this slug already exists")
		}
	}
	return nil
}

// List returns requests with the given status, or all when status is empty.
func (s *CategoryRequestService) List(ctx context.Context, status domain.CategoryRequestStatus) ([]*domain.CategoryRequest, error) {
	return s.list(ctx, store.CategoryRequestFilter{Status: status})
}

// ListForSeller returns one seller's requests.
func (s *CategoryRequestService) ListForSeller(ctx context.Context, sellerID string, status domain.CategoryRequestStatus) ([]*domain.CategoryRequest, error) {
	return s.list(ctx, store.CategoryRequestFilter{Status: status, SellerID: sellerID})
}

func (s *CategoryRequestService) list(ctx context.Context, filter store.CategoryRequestFilter) ([]*domain.CategoryRequest, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domainerrors.ValidationOn("status", "must be one of pending, approved, rejected")
	}
	return s.store.ListCategoryRequests(ctx, filter)
}

// Get returns a single request.
func (s *CategoryRequestService) Get(ctx context.Context, requestID string) (*domain.CategoryRequest, error) {
	r, err := s.store.GetCategoryRequest(ctx, requestID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("category request not found")
	}
	return r, err
}

// ApproveOverrides lets the reviewer adjust a proposal while approving it.
type ApproveOverrides struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
	Description string  `json:"description,omitempty"`
	ReviewNote  string  `json:"review_note,omitempty" validate:"max=1000"`
}

// Approve creates the proposed category and marks the request approved.
//
// The category ID is reserved on the request before the category is
// created. When an earlier approval created the category but failed to
// mark the request, approving again adopts that category.
func (s *CategoryRequestService) Approve(ctx context.Context, requestID, reviewerID string, overrides ApproveOverrides) (*domain.CategoryRequest, *domain.Category, error) {
	if err := s.validator.Validate(overrides); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.pending(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	c, err := s.approvedCategory(ctx, r, overrides)
	if err != nil {
		return nil, nil, err
	}

	r.Status = domain.CategoryRequestApproved
	r.ReviewerID = reviewerID
	r.ReviewNote = strings.TrimSpace(overrides.ReviewNote)
	r.CreatedCategoryID = c.ID
	r.Touch()
	if err := s.store.UpdateCategoryRequest(ctx, r); err != nil {
		return nil, nil, fmt.Errorf("mark request approved: %w", err)
	}

	s.logger.Info("category request approved", "id", r.ID, "reviewer_id", reviewerID, "category_id", c.ID)
	return r, c, nil
}

// approvedCategory returns the category reserved for r, creating it when it
// does not exist yet.
func (s *CategoryRequestService) approvedCategory(ctx context.Context, r *domain.CategoryRequest, overrides ApproveOverrides) (*domain.Category, error) {
	if r.CreatedCategoryID != "" {
		existing, err := s.store.GetCategory(ctx, r.CreatedCategoryID)
		if err == nil {
			s.logger.Warn("adopting category from interrupted approval", "id", r.ID, "category_id", existing.ID)
			return existing, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("load reserved category: %w", err)
		}
	} else {
		reserved, err := id.Generate(id.PrefixCategory)
		if err != nil {
			return nil, err
		}
		r.CreatedCategoryID = reserved
		r.Touch()
		if err := s.store.UpdateCategoryRequest(ctx, r); err != nil {
			return nil, fmt.Errorf("reserve category id: %w", err)
		}
	}

	create := CreateCategoryRequest{
		Name:        r.ProposedName,
		Slug:        r.ProposedSlug,
		ParentID:    r.ParentCategoryID,
		Description: overrides.Description,
	}
	if overrides.Name != nil {
		create.Name = *overrides.Name
	}
	if overrides.Slug != nil {
		create.Slug = *overrides.Slug
	}
	if overrides.ParentID != nil {
		create.ParentID = *overrides.ParentID
	}

	c, err := s.categories.create(ctx, create, r.CreatedCategoryID)
	if err != nil {
		return nil, proposalError(err)
	}
	return c, nil
}

// proposalError points category errors at the request fields they came from.
func proposalError(err error) error {
	var de *domainerrors.Error
	if !errors.As(err, &de) {
		return err
	}
	switch de.Field() {
	case "slug":
		return de.OnField("proposed_slug")
	case "parent_id":
		return de.OnField("parent_category_id")
	}
	return err
}

// Reject closes a pending request without creating a category.
func (s *CategoryRequestService) Reject(ctx context.Context, requestID, reviewerID, note string) (*domain.CategoryRequest, error) {
	if len(note) > 1000 {
		return nil, domainerrors.ValidationOn("review_note", "must be at most 1000 characters")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.pending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	r.Status = domain.CategoryRequestRejected
	r.CreatedCategoryID = ""
	r.ReviewerID = reviewerID
	r.ReviewNote = strings.TrimSpace(note)
	r.Touch()
	if err := s.store.UpdateCategoryRequest(ctx, r); err != nil {
		return nil, translateStoreError(err, "id", "id")
	}

	s.logger.Info("category request rejected", "id", r.ID, "reviewer_id", reviewerID)
	return r, nil
}

func (s *CategoryRequestService) pending(ctx context.Context, requestID string) (*domain.CategoryRequest, error) {
	r, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !r.IsPending() {
		return nil, domainerrors.ConflictOn("status", fmt.Sprintf("request is already %s", r.Status))
	}
	return r, nil
}
