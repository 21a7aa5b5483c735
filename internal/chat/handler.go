package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medreferral/medbot/pkg/logging"
)

// Handler exposes the turn pipeline over plain HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler wires the chat service behind the HTTP surface.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger.Component("chat_http")}
}

type startResponse struct {
	ConversationID string   `json:"conversationId"`
	Messages       []string `json:"messages"`
	Options        []string `json:"options,omitempty"`
}

type messageRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

// Start handles POST /chat/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	conversationID, reply, err := h.service.StartConversation(r.Context())
	if err != nil {
		h.logger.Error("failed to start conversation", "error", err)
		http.Error(w, "failed to start conversation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, startResponse{
		ConversationID: conversationID,
		Messages:       reply.Messages,
		Options:        reply.Options,
	})
}

// Message handles POST /chat/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" || req.Message == "" {
		http.Error(w, "conversationId and message required", http.StatusBadRequest)
		return
	}

	reply, err := h.service.ProcessMessage(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		h.logger.Error("turn failed", "conversation_id", req.ConversationID, "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// History handles GET /chat/{conversationID}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "" {
		http.Error(w, "conversation id required", http.StatusBadRequest)
		return
	}

	records, err := h.service.History(r.Context(), conversationID, 200)
	if err != nil {
		h.logger.Error("failed to load history", "conversation_id", conversationID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	type line struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	out := make([]line, 0, len(records))
	for _, rec := range records {
		out = append(out, line{Role: rec.Role, Content: rec.Content})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
