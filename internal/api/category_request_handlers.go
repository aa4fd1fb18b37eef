package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/tradepost/catalog-server/internal/domain"
	domainerrors "github.com/tradepost/catalog-server/internal/errors"
	"github.com/tradepost/catalog-server/internal/service"
)

func (s *Server) registerCategoryRequestRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "submitCategoryRequest",
		Method:        http.MethodPost,
		Path:          "/api/v1/category-requests",
		Summary:       "Propose category",
		Description:   "Submits a seller proposal for a new category; an admin reviews it before it joins the tree",
		Tags:          []string{"Category Requests"},
		DefaultStatus: http.StatusCreated,
		Security:      identitySecurity,
	}, s.handleSubmitCategoryRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCategoryRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/category-requests",
		Summary:     "List category requests",
		Description: "Admins see every request; sellers see their own",
		Tags:        []string{"Category Requests"},
		Security:    identitySecurity,
	}, s.handleListCategoryRequests)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCategoryRequest",
		Method:      http.MethodGet,
		Path:        "/api/v1/category-requests/{id}",
		Summary:     "Get category request",
		Description: "Returns a single request; sellers may only read their own",
		Tags:        []string{"Category Requests"},
		Security:    identitySecurity,
	}, s.handleGetCategoryRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "approveCategoryRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/category-requests/{id}/approve",
		Summary:     "Approve category request",
		Description: "Creates the proposed category, optionally with reviewer adjustments",
		Tags:        []string{"Category Requests"},
		Security:    identitySecurity,
	}, s.handleApproveCategoryRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "rejectCategoryRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/category-requests/{id}/reject",
		Summary:     "Reject category request",
		Description: "Closes a pending request without creating a category",
		Tags:        []string{"Category Requests"},
		Security:    identitySecurity,
	}, s.handleRejectCategoryRequest)
}

// === DTOs ===

// CategoryRequestResponse contains a category proposal in API responses.
type CategoryRequestResponse struct {
	ID                string    `json:"id" doc:"Request ID"`
	SellerID          string    `json:"seller_id" doc:"Seller who proposed the category"`
	ProposedName      string    `json:"proposed_name" doc:"Proposed category name"`
	ProposedSlug      string    `json:"proposed_slug" doc:"Proposed slug"`
	ParentCategoryID  string    `json:"parent_category_id,omitempty" doc:"Proposed parent, empty for a root"`
	SellerReason      string    `json:"seller_reason,omitempty" doc:"Why the seller needs the category"`
	Status            string    `json:"status" enum:"pending,approved,rejected" doc:"Review state"`
	ReviewerID        string    `json:"reviewer_id,omitempty" doc:"Admin who reviewed the request"`
	ReviewNote        string    `json:"review_note,omitempty" doc:"Reviewer note"`
	CreatedCategoryID string    `json:"created_category_id,omitempty" doc:"Category created on approval"`
	CreatedAt         time.Time `json:"created_at" doc:"Submission time"`
	UpdatedAt         time.Time `json:"updated_at" doc:"Last update time"`
}

type SubmitCategoryRequestInput struct {
	Body struct {
		ProposedName     string `json:"proposed_name" minLength:"1" maxLength:"255" doc:"Proposed category name"`
		ProposedSlug     string `json:"proposed_slug,omitempty" maxLength:"255" doc:"Proposed slug; derived from the name when empty"`
		ParentCategoryID string `json:"parent_category_id,omitempty" doc:"Proposed parent category"`
		SellerReason     string `json:"seller_reason,omitempty" maxLength:"1000" doc:"Why the category is needed"`
	}
}

type CategoryRequestOutput struct {
	Body CategoryRequestResponse
}

type ListCategoryRequestsInput struct {
	Status string `query:"status" doc:"Filter by review state: pending, approved or rejected"`
}

type ListCategoryRequestsOutput struct {
	Body struct {
		Requests []CategoryRequestResponse `json:"requests" doc:"Requests, newest first"`
		Total    int                       `json:"total" doc:"Number of requests"`
	}
}

type GetCategoryRequestInput struct {
	ID string `path:"id" doc:"Request ID"`
}

type ApproveCategoryRequestInput struct {
	ID   string `path:"id" doc:"Request ID"`
	Body struct {
		Name        *string `json:"name,omitempty" maxLength:"255" doc:"Override the proposed name"`
		Slug        *string `json:"slug,omitempty" maxLength:"255" doc:"Override the proposed slug"`
		ParentID    *string `json:"parent_id,omitempty" doc:"Override the proposed parent; empty creates a root"`
		Description string  `json:"description,omitempty" maxLength:"1000" doc:"Description of the new category"`
		ReviewNote  string  `json:"review_note,omitempty" maxLength:"1000" doc:"Note for the seller"`
	}
}

type ApproveCategoryRequestOutput struct {
	Body struct {
		Request  CategoryRequestResponse `json:"request" doc:"The approved request"`
		Category CategoryResponse        `json:"category" doc:"The created category"`
	}
}

type RejectCategoryRequestInput struct {
	ID   string `path:"id" doc:"Request ID"`
	Body struct {
		ReviewNote string `json:"review_note,omitempty" maxLength:"1000" doc:"Reason for the rejection"`
	}
}

// === Handlers ===

func (s *Server) handleSubmitCategoryRequest(ctx context.Context, input *SubmitCategoryRequestInput) (*CategoryRequestOutput, error) {
	caller, err := RequireSeller(ctx)
	if err != nil {
		return nil, err
	}

	r, err := s.services.Requests.Submit(ctx, caller.UserID, service.SubmitCategoryRequest(input.Body))
	s.metrics.observeMutation("request_submit", err)
	if err != nil {
		return nil, err
	}
	return &CategoryRequestOutput{Body: toCategoryRequestResponse(r)}, nil
}

func (s *Server) handleListCategoryRequests(ctx context.Context, input *ListCategoryRequestsInput) (*ListCategoryRequestsOutput, error) {
	caller, err := RequireSeller(ctx)
	if err != nil {
		return nil, err
	}

	status := domain.CategoryRequestStatus(input.Status)
	var requests []*domain.CategoryRequest
	if caller.Role == RoleAdmin {
		requests, err = s.services.Requests.List(ctx, status)
	} else {
		requests, err = s.services.Requests.ListForSeller(ctx, caller.UserID, status)
	}
	if err != nil {
		return nil, err
	}

	out := &ListCategoryRequestsOutput{}
	out.Body.Requests = make([]CategoryRequestResponse, 0, len(requests))
	for _, r := range requests {
		out.Body.Requests = append(out.Body.Requests, toCategoryRequestResponse(r))
	}
	out.Body.Total = len(requests)
	return out, nil
}

func (s *Server) handleGetCategoryRequest(ctx context.Context, input *GetCategoryRequestInput) (*CategoryRequestOutput, error) {
	caller, err := RequireSeller(ctx)
	if err != nil {
		return nil, err
	}

	r, err := s.services.Requests.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	// Hide other sellers' requests entirely.
	if caller.Role != RoleAdmin && r.SellerID != caller.UserID {
		return nil, domainerrors.NotFound("category request not found")
	}
	return &CategoryRequestOutput{Body: toCategoryRequestResponse(r)}, nil
}

func (s *Server) handleApproveCategoryRequest(ctx context.Context, input *ApproveCategoryRequestInput) (*ApproveCategoryRequestOutput, error) {
	caller, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	r, c, err := s.services.Requests.Approve(ctx, input.ID, caller.UserID, service.ApproveOverrides(input.Body))
	s.metrics.observeMutation("request_approve", err)
	if err != nil {
		return nil, err
	}

	out := &ApproveCategoryRequestOutput{}
	out.Body.Request = toCategoryRequestResponse(r)
	out.Body.Category = toCategoryResponse(c)
	return out, nil
}

func (s *Server) handleRejectCategoryRequest(ctx context.Context, input *RejectCategoryRequestInput) (*CategoryRequestOutput, error) {
	caller, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	r, err := s.services.Requests.Reject(ctx, input.ID, caller.UserID, input.Body.ReviewNote)
	s.metrics.observeMutation("request_reject", err)
	if err != nil {
		return nil, err
	}
	return &CategoryRequestOutput{Body: toCategoryRequestResponse(r)}, nil
}

func toCategoryRequestResponse(r *domain.CategoryRequest) CategoryRequestResponse {
	return CategoryRequestResponse{
		ID:                r.ID,
		SellerID:          r.SellerID,
		ProposedName:      r.ProposedName,
		ProposedSlug:      r.ProposedSlug,
		ParentCategoryID:  r.ParentCategoryID,
		SellerReason:      r.SellerReason,
		Status:            string(r.Status),
		ReviewerID:        r.ReviewerID,
		ReviewNote:        r.ReviewNote,
		CreatedCategoryID: r.CreatedCategoryID,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
