// Package router assembles the HTTP surface: chat, WebSocket, triage,
// mail relay, appointment administration, health, and metrics.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medreferral/medbot/internal/chat"
	"github.com/medreferral/medbot/internal/ledger"
	"github.com/medreferral/medbot/internal/notify"
	"github.com/medreferral/medbot/internal/triage"
	"github.com/medreferral/medbot/internal/webchat"
	"github.com/medreferral/medbot/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	ChatHandler         *chat.Handler
	WebChatHandler      *webchat.Handler
	TriageHandler       *triage.Handler
	RelayHandler        *notify.Handler
	AppointmentsHandler *ledger.Handler
	MetricsHandler      http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/start", cfg.ChatHandler.Start)
			r.Post("/message", cfg.ChatHandler.Message)
			r.Get("/{conversationID}/history", cfg.ChatHandler.History)
		})
	}

	if cfg.WebChatHandler != nil {
		r.Get("/ws", cfg.WebChatHandler.HandleWebSocket)
	}

	if cfg.TriageHandler != nil {
		r.Post("/analyze_symptoms", cfg.TriageHandler.Analyze)
	}

	if cfg.RelayHandler != nil {
		r.Post("/send-appointment-email", cfg.RelayHandler.SendAppointmentEmail)
		r.Post("/send-cancellation-email", cfg.RelayHandler.SendCancellationEmail)
		r.Post("/send-update-email", cfg.RelayHandler.SendUpdateEmail)
	}

	if cfg.AppointmentsHandler != nil {
		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", cfg.AppointmentsHandler.List)
			r.Get("/{appointmentID}", cfg.AppointmentsHandler.Get)
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
