package notify

import (
	"encoding/json"
	"net/http"

	"github.com/medreferral/medbot/pkg/logging"
)

// Handler exposes the mail-relay endpoints: direct, synchronous email
// sends keyed by appointment details.
type Handler struct {
	mailer *Mailer
	logger *logging.Logger
}

// NewHandler wires the mailer behind the relay endpoints.
func NewHandler(mailer *Mailer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{mailer: mailer, logger: logger.Component("mailrelay")}
}

type relayRequest struct {
	Doctor        string `json:"doctor"`
	Day           string `json:"day"`
	Time          string `json:"time"`
	Email         string `json:"email"`
	AppointmentID string `json:"appointmentId"`
	OldDay        string `json:"oldDay,omitempty"`
	OldTime       string `json:"oldTime,omitempty"`
}

type relayResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	CalendarLink string `json:"calendarLink,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SendAppointmentEmail handles POST /send-appointment-email.
func (h *Handler) SendAppointmentEmail(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, KindConfirmation,
		"Appointment confirmation email sent successfully",
		"Failed to send confirmation email")
}

// SendCancellationEmail handles POST /send-cancellation-email.
func (h *Handler) SendCancellationEmail(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, KindCancellation,
		"Cancellation confirmation email sent successfully",
		"Failed to send cancellation email")
}

// SendUpdateEmail handles POST /send-update-email.
func (h *Handler) SendUpdateEmail(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, KindUpdate,
		"Update confirmation email sent successfully",
		"Failed to send update email")
}

func (h *Handler) relay(w http.ResponseWriter, r *http.Request, kind Kind, okMsg, failMsg string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body relayRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if body.Email == "" || body.Doctor == "" {
		http.Error(w, "doctor and email required", http.StatusBadRequest)
		return
	}

	req := &Request{
		Kind:          kind,
		Doctor:        body.Doctor,
		Day:           body.Day,
		Time:          body.Time,
		Email:         body.Email,
		AppointmentID: body.AppointmentID,
		OldDay:        body.OldDay,
		OldTime:       body.OldTime,
	}

	link, err := h.mailer.Send(r.Context(), req)
	if err != nil {
		h.logger.Error("relay send failed", "kind", string(kind), "error", err)
		writeJSON(w, http.StatusInternalServerError, relayResponse{
			Success: false,
			Message: failMsg,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, relayResponse{
		Success:      true,
		Message:      okMsg,
		CalendarLink: link,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
