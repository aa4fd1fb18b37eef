package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tradepost/catalog-server/internal/domain"
	domainerrors "github.com/tradepost/catalog-server/internal/errors"
	"github.com/tradepost/catalog-server/internal/http/response"
	"github.com/tradepost/catalog-server/internal/messaging"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxFrameSize = 16 * 1024

	sendBufferSize = 64
)

// Frame types exchanged on the messaging socket.
const (
	FrameMessage  = "message"
	FramePresence = "presence"
	FrameError    = "error"
)

// InboundFrame is what a client writes to the socket.
type InboundFrame struct {
	Type        string `json:"type"`
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`
	ClientRef   string `json:"client_ref,omitempty"`
}

// OutboundFrame is what the server pushes to the socket.
type OutboundFrame struct {
	Type     string                `json:"type"`
	Message  *domain.Message       `json:"message,omitempty"`
	Presence *domain.PresenceEvent `json:"presence,omitempty"`
	Error    *response.ErrorBody   `json:"error,omitempty"`
}

// wsClient is one open messaging socket.
type wsClient struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	logger *slog.Logger
}

// handleWebSocket upgrades an authenticated request to the messaging
// socket. Each user may hold several sockets; presence is announced on the
// first and withdrawn after the last.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	caller, err := RequireUser(r.Context())
	if err != nil {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}
	hub, err := s.hub()
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if !s.limiter.Allow("ws:" + caller.UserID) {
		s.metrics.rateLimited.Inc()
		response.TooManyRequests(w, "Too many connection attempts. Please try again later.", s.logger)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		id:     uuid.New().String(),
		userID: caller.UserID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	c.logger = s.logger.With(
		slog.String("user_id", c.userID),
		slog.String("connection_id", c.id),
	)

	unsubscribe, err := hub.Subscribe(c.userID, messaging.Handlers{
		OnMessage: func(m *domain.Message) {
			c.push(OutboundFrame{Type: FrameMessage, Message: m})
		},
		OnPresence: func(p domain.PresenceEvent) {
			c.push(OutboundFrame{Type: FramePresence, Presence: &p})
		},
	})
	if err != nil {
		c.logger.Error("websocket subscribe failed", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	// Detach from the request context, which ends once the handler returns.
	ctx := context.WithoutCancel(r.Context())
	hub.Join(ctx, c.userID)
	s.metrics.wsConnections.Inc()
	c.logger.Info("websocket connected")

	go c.writePump()
	s.readPump(ctx, hub, c)

	unsubscribe()
	hub.Leave(ctx, c.userID)
	s.metrics.wsConnections.Dec()
	close(c.done)
	c.logger.Info("websocket disconnected")
}

// readPump reads client frames until the connection fails or closes.
func (s *Server) readPump(ctx context.Context, hub *messaging.Hub, c *wsClient) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.pushError(domainerrors.Validation("binary frames are not supported"))
			continue
		}

		var frame InboundFrame
		if err := json.Unmarshal(bytes.TrimSpace(data), &frame); err != nil {
			c.pushError(domainerrors.Validation("malformed frame"))
			continue
		}

		switch frame.Type {
		case FrameMessage:
			if _, err := hub.SendMessage(ctx, messaging.SendMessageRequest{
				SenderID:    c.userID,
				RecipientID: frame.RecipientID,
				Body:        frame.Body,
				ClientRef:   frame.ClientRef,
			}); err != nil {
				c.pushError(err)
				continue
			}
			s.metrics.messagesSent.Inc()
		default:
			c.pushError(domainerrors.ValidationOn("type", "unknown frame type"))
		}
	}
}

// writePump forwards queued frames to the connection and keeps it alive
// with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("websocket ping failed", "error", err)
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// push queues a frame without blocking. A client too slow to drain its
// buffer loses the frame; the message stays in the conversation history.
func (c *wsClient) push(frame OutboundFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("failed to encode frame", "error", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.logger.Warn("websocket send buffer full, dropping frame", "type", frame.Type)
	}
}

func (c *wsClient) pushError(err error) {
	body := &response.ErrorBody{Code: string(domainerrors.CodeInternal), Message: "internal error"}
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		body = &response.ErrorBody{Code: string(domainErr.Code), Message: domainErr.Message, Details: domainErr.Details}
	}
	c.push(OutboundFrame{Type: FrameError, Error: body})
}
