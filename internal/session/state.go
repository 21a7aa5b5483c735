// Package session tracks the transient per-conversation state of an
// in-progress chat flow.
package session

// Mode names the flow-state governing how the next utterance is
// interpreted. The empty mode is the root menu.
type Mode string

const (
	ModeNone               Mode = ""
	ModeSymptoms           Mode = "symptoms"
	ModeSelectDoctor       Mode = "selectDoctor"
	ModeCheckStatus        Mode = "checkStatus"
	ModeCancel             Mode = "cancelAppointment"
	ModeUpdate             Mode = "updateAppointment"
	ModeSelectUpdateOption Mode = "selectUpdateOption"
	ModeUpdateDay          Mode = "updateDay"
	ModeUpdateTime         Mode = "updateTime"
)

// State holds one conversation's transient fields. Stages of the booking
// flow are implicit in which selection fields are populated; Time set
// implies Day and DoctorID set.
type State struct {
	Mode                 Mode   `json:"mode,omitempty"`
	DoctorID             int    `json:"doctorId,omitempty"`
	Day                  string `json:"day,omitempty"`  // lower-case weekday
	Time                 string `json:"time,omitempty"` // canonical slot, e.g. "9:00 AM"
	PendingAppointmentID string `json:"pendingAppointmentId,omitempty"`
}

// Clear resets every field to absent.
func (s *State) Clear() {
	*s = State{}
}

// IsEmpty reports whether no field is set.
func (s *State) IsEmpty() bool {
	return *s == State{}
}
