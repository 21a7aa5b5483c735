// Package webchat carries conversations over WebSocket: one live
// connection per conversation, typing indicators, history replay, and
// server-initiated pushes for delayed follow-ups and email outcomes.
package webchat

import (
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/medreferral/medbot/pkg/logging"
)

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type           string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text           string           `json:"text,omitempty"`
	Role           string           `json:"role,omitempty"` // "bot" or "user"
	Options        []string         `json:"options,omitempty"`
	ConversationID string           `json:"conversationId,omitempty"`
	Timestamp      string           `json:"timestamp,omitempty"`
	Messages       []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history replay.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// Registry tracks the active WebSocket connection per conversation and
// fans server-initiated messages out to it. It satisfies both the chat
// service's follow-up pusher and the notification dispatcher's reply
// pusher.
type Registry struct {
	logger *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // conversationID -> active connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		logger:   logger.Component("webchat"),
		sessions: make(map[string]*wsConn),
	}
}

func (r *Registry) register(conversationID string, wsc *wsConn) {
	r.mu.Lock()
	r.sessions[conversationID] = wsc
	r.mu.Unlock()
}

func (r *Registry) unregister(conversationID string, wsc *wsConn) {
	r.mu.Lock()
	if r.sessions[conversationID] == wsc {
		delete(r.sessions, conversationID)
	}
	r.mu.Unlock()
}

// SendTo delivers one frame to the conversation's connection, if any.
func (r *Registry) SendTo(conversationID string, msg OutboundMessage) {
	r.mu.RLock()
	wsc, ok := r.sessions[conversationID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if err := websocket.JSON.Send(wsc.conn, msg); err != nil {
		r.logger.Debug("send failed", "conversation_id", conversationID, "error", err)
	}
}

// Send pushes a batch of bot messages, attaching options to the last one.
func (r *Registry) Send(conversationID string, messages []string, options []string) {
	for i, text := range messages {
		msg := OutboundMessage{
			Type:      "message",
			Role:      "bot",
			Text:      text,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if i == len(messages)-1 {
			msg.Options = options
		}
		r.SendTo(conversationID, msg)
	}
}

// Push delivers plain bot messages with no options.
func (r *Registry) Push(conversationID string, messages []string) {
	r.Send(conversationID, messages, nil)
}
