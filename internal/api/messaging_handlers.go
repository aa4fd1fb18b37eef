package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/tradepost/catalog-server/internal/domain"
	domainerrors "github.com/tradepost/catalog-server/internal/errors"
	"github.com/tradepost/catalog-server/internal/messaging"
)

func (s *Server) registerMessagingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "sendMessage",
		Method:        http.MethodPost,
		Path:          "/api/v1/messages",
		Summary:       "Send message",
		Description:   "Sends a direct message from the caller; connected sockets of both users receive it",
		Tags:          []string{"Messaging"},
		DefaultStatus: http.StatusCreated,
		Security:      identitySecurity,
	}, s.handleSendMessage)

	huma.Register(s.api, huma.Operation{
		OperationID: "getConversation",
		Method:      http.MethodGet,
		Path:        "/api/v1/messages/{userId}",
		Summary:     "Get conversation",
		Description: "Returns the latest messages between the caller and another user, oldest first",
		Tags:        []string{"Messaging"},
		Security:    identitySecurity,
	}, s.handleGetConversation)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPresence",
		Method:      http.MethodGet,
		Path:        "/api/v1/presence",
		Summary:     "Get online users",
		Description: "Returns the users with at least one open messaging socket on this instance",
		Tags:        []string{"Messaging"},
		Security:    identitySecurity,
	}, s.handleGetPresence)
}

// MessageResponse contains a direct message in API responses.
type MessageResponse struct {
	ID          string    `json:"id" doc:"Message ID"`
	SenderID    string    `json:"sender_id" doc:"Sender user ID"`
	RecipientID string    `json:"recipient_id" doc:"Recipient user ID"`
	Body        string    `json:"body" doc:"Message text"`
	ClientRef   string    `json:"client_ref,omitempty" doc:"Client reference echoed from the send"`
	CreatedAt   time.Time `json:"created_at" doc:"Send time"`
}

type SendMessageInput struct {
	Body struct {
		RecipientID string `json:"recipient_id" minLength:"1" doc:"Recipient user ID"`
		Body        string `json:"body" minLength:"1" maxLength:"4000" doc:"Message text"`
		ClientRef   string `json:"client_ref,omitempty" maxLength:"128" doc:"Opaque reference echoed back to the sender"`
	}
}

type MessageOutput struct {
	Body MessageResponse
}

type GetConversationInput struct {
	UserID string `path:"userId" doc:"The other participant"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Maximum messages"`
}

type ConversationOutput struct {
	Body struct {
		Messages []MessageResponse `json:"messages" doc:"Messages, oldest first"`
	}
}

type PresenceOutput struct {
	Body struct {
		Online []string `json:"online" doc:"Online user IDs, sorted"`
	}
}

func (s *Server) handleSendMessage(ctx context.Context, input *SendMessageInput) (*MessageOutput, error) {
	caller, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	hub, err := s.hub()
	if err != nil {
		return nil, err
	}

	m, err := hub.SendMessage(ctx, messaging.SendMessageRequest{
		SenderID:    caller.UserID,
		RecipientID: input.Body.RecipientID,
		Body:        input.Body.Body,
		ClientRef:   input.Body.ClientRef,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.messagesSent.Inc()
	return &MessageOutput{Body: toMessageResponse(m)}, nil
}

func (s *Server) handleGetConversation(ctx context.Context, input *GetConversationInput) (*ConversationOutput, error) {
	caller, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	hub, err := s.hub()
	if err != nil {
		return nil, err
	}

	messages, err := hub.Conversation(ctx, caller.UserID, input.UserID, input.Limit)
	if err != nil {
		return nil, err
	}

	out := &ConversationOutput{}
	out.Body.Messages = make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out.Body.Messages = append(out.Body.Messages, toMessageResponse(m))
	}
	return out, nil
}

func (s *Server) handleGetPresence(ctx context.Context, _ *struct{}) (*PresenceOutput, error) {
	if _, err := RequireUser(ctx); err != nil {
		return nil, err
	}
	hub, err := s.hub()
	if err != nil {
		return nil, err
	}

	out := &PresenceOutput{}
	out.Body.Online = hub.Online()
	return out, nil
}

func (s *Server) hub() (*messaging.Hub, error) {
	if s.services == nil || s.services.Hub == nil {
		return nil, domainerrors.Unavailable("messaging is not configured")
	}
	return s.services.Hub, nil
}

func toMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse(*m)
}
