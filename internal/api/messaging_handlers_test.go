package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_AndConversation(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/messages", withBody(as("buyer-1", RoleBuyer), map[string]any{
		"recipient_id": "seller-1",
		"body":         "  Is this still available?  ",
		"client_ref":   "tmp-1",
	})...)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	sent := decode[MessageResponse](t, resp).Data
	assert.Equal(t, "buyer-1", sent.SenderID)
	assert.Equal(t, "Is this still available?", sent.Body)
	assert.Equal(t, "tmp-1", sent.ClientRef)

	resp = ts.api.Post("/api/v1/messages", withBody(as("seller-1", RoleSeller), map[string]any{
		"recipient_id": "buyer-1",
		"body":         "Yes",
	})...)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	type conversation struct {
		Messages []MessageResponse `json:"messages"`
	}
	resp = ts.api.Get("/api/v1/messages/seller-1", as("buyer-1", RoleBuyer)...)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got := decode[conversation](t, resp).Data.Messages
	require.Len(t, got, 2)
	assert.Equal(t, sent.ID, got[0].ID)
	assert.Equal(t, "Yes", got[1].Body)

	resp = ts.api.Get("/api/v1/messages/seller-1?limit=1", as("buyer-1", RoleBuyer)...)
	require.Equal(t, http.StatusOK, resp.Code)
	got = decode[conversation](t, resp).Data.Messages
	require.Len(t, got, 1)
	assert.Equal(t, "Yes", got[0].Body)
}

func TestSendMessage_Rejections(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/messages", map[string]any{"recipient_id": "u2", "body": "hi"})
	requireErrorCode(t, resp, http.StatusUnauthorized, "UNAUTHORIZED")

	resp = ts.api.Post("/api/v1/messages", withBody(as("u1", RoleBuyer), map[string]any{"recipient_id": "u1", "body": "me"})...)
	requireErrorCode(t, resp, http.StatusBadRequest, "VALIDATION")

	resp = ts.api.Post("/api/v1/messages", withBody(as("u1", RoleBuyer), map[string]any{"recipient_id": "u2", "body": "   "})...)
	requireErrorCode(t, resp, http.StatusBadRequest, "VALIDATION")
}

func TestPresence(t *testing.T) {
	ts := setupTestServer(t)
	ts.services.Hub.Join(t.Context(), "seller-1")

	resp := ts.api.Get("/api/v1/presence", as("buyer-1", RoleBuyer)...)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	type presence struct {
		Online []string `json:"online"`
	}
	assert.Equal(t, []string{"seller-1"}, decode[presence](t, resp).Data.Online)

	resp = ts.api.Get("/api/v1/presence")
	requireErrorCode(t, resp, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestMessaging_Unconfigured(t *testing.T) {
	ts := setupTestServer(t)
	ts.services.Hub = nil

	resp := ts.api.Get("/api/v1/presence", as("buyer-1", RoleBuyer)...)
	requireErrorCode(t, resp, http.StatusServiceUnavailable, "UNAVAILABLE")
}
