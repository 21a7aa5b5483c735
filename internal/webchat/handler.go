package webchat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/medreferral/medbot/internal/chat"
	"github.com/medreferral/medbot/pkg/logging"
)

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// Handler upgrades to WebSocket and runs chat turns over the socket.
type Handler struct {
	service  *chat.Service
	registry *Registry
	logger   *logging.Logger
}

// NewHandler creates a WebSocket chat handler. The registry must be the
// same one wired into the chat service and notification dispatcher so
// that delayed pushes land on the live connection.
func NewHandler(service *chat.Service, registry *Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:  service,
		registry: registry,
		logger:   logger.Component("webchat"),
	}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation")
	fresh := conversationID == ""

	if fresh {
		id, reply, err := h.service.StartConversation(r.Context())
		if err != nil {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "failed to start conversation"})
			return
		}
		conversationID = id
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", ConversationID: conversationID})
		for i, text := range reply.Messages {
			msg := OutboundMessage{
				Type:      "message",
				Role:      "bot",
				Text:      text,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}
			if i == len(reply.Messages)-1 {
				msg.Options = reply.Options
			}
			_ = websocket.JSON.Send(conn, msg)
		}
	} else {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", ConversationID: conversationID})
		h.replayHistory(r.Context(), conn, conversationID)
	}

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.registry.register(conversationID, wsc)
	defer func() {
		h.registry.unregister(conversationID, wsc)
		close(wsc.done)
	}()

	h.logger.Info("connection opened", "conversation_id", conversationID, "resumed", !fresh)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("connection closed", "conversation_id", conversationID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.processMessage(r.Context(), conversationID, msg.Text)
	}
}

func (h *Handler) processMessage(ctx context.Context, conversationID, text string) {
	h.registry.SendTo(conversationID, OutboundMessage{Type: "typing"})

	reply, err := h.service.ProcessMessage(ctx, conversationID, text)
	if err != nil {
		h.logger.Error("turn failed", "conversation_id", conversationID, "error", err)
		h.registry.SendTo(conversationID, OutboundMessage{
			Type: "error",
			Text: "Sorry, something went wrong. Please try again.",
		})
		return
	}

	h.registry.Send(conversationID, reply.Messages, reply.Options)
}

func (h *Handler) replayHistory(ctx context.Context, conn *websocket.Conn, conversationID string) {
	records, err := h.service.History(ctx, conversationID, 50)
	if err != nil || len(records) == 0 {
		return
	}
	history := make([]HistoryMessage, 0, len(records))
	for _, rec := range records {
		history = append(history, HistoryMessage{
			Role:      rec.Role,
			Text:      rec.Content,
			Timestamp: rec.CreatedAt.Format(time.RFC3339),
		})
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
}
