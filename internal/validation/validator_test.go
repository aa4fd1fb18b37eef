package validation_test

import (
	"net/http"
	"strings"
	"testing"

	domainerrors "github.com/tradepost/catalog-server/internal/errors"
	"github.com/tradepost/catalog-server/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	Name        string   `json:"name" validate:"notblank,max=255"`
	Slug        string   `json:"slug,omitempty" validate:"omitempty,slug"`
	Description string   `json:"description,omitempty" validate:"max=1000"`
	ImageURL    string   `json:"image_url,omitempty" validate:"omitempty,url"`
	Keywords    []string `json:"keywords,omitempty" validate:"max=3"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{
		Name:     "Home Appliances",
		Slug:     "home-appliances",
		ImageURL: "https://cdn.example.com/home.png",
	})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       testRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "blank name",
			req:       testRequest{Name: "   "},
			wantField: "name",
			wantMsg:   "is required",
		},
		{
			name:      "name too long",
			req:       testRequest{Name: strings.Repeat("a", 256)},
			wantField: "name",
			wantMsg:   "must not exceed 255 characters",
		},
		{
			name:      "bad slug",
			req:       testRequest{Name: "Tools", Slug: "Power Tools"},
			wantField: "slug",
			wantMsg:   "must contain only lowercase letters, digits and single hyphens",
		},
		{
			name:      "description too long",
			req:       testRequest{Name: "Tools", Description: strings.Repeat("x", 1001)},
			wantField: "description",
			wantMsg:   "must not exceed 1000 characters",
		},
		{
			name:      "bad url",
			req:       testRequest{Name: "Tools", ImageURL: "not a url"},
			wantField: "image_url",
			wantMsg:   "must be a valid URL",
		},
		{
			name:      "too many keywords",
			req:       testRequest{Name: "Tools", Keywords: []string{"a", "b", "c", "d"}},
			wantField: "keywords",
			wantMsg:   "must not contain more than 3 items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{Name: "Tools", ImageURL: "nope"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	details := domainErr.Details.(map[string]string)
	assert.Contains(t, details, "image_url")
	assert.NotContains(t, details, "ImageURL")
}
