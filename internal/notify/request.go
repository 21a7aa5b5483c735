package notify

// Kind selects which of the three appointment emails to send.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCancellation Kind = "cancellation"
	KindUpdate       Kind = "update"
)

// Request is one fire-and-forget email job. SuccessMessage and
// FailureMessage are the chat texts pushed back to the conversation after
// the send attempt; the attempt's outcome changes wording only, never
// conversation state.
type Request struct {
	Kind           Kind   `json:"kind"`
	ConversationID string `json:"conversationId"`
	Doctor         string `json:"doctor"`
	Day            string `json:"day"`
	Time           string `json:"time"`
	Email          string `json:"email"`
	AppointmentID  string `json:"appointmentId"`
	OldDay         string `json:"oldDay,omitempty"`
	OldTime        string `json:"oldTime,omitempty"`
	SuccessMessage string `json:"successMessage"`
	FailureMessage string `json:"failureMessage"`
}
