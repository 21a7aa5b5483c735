package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/medreferral/medbot/internal/ledger"
	"github.com/medreferral/medbot/internal/session"
	"github.com/medreferral/medbot/internal/triage"
	"github.com/medreferral/medbot/pkg/logging"
)

type stubAnalyzer struct {
	result *triage.Result
	err    error
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ string) (*triage.Result, error) {
	return s.result, s.err
}

func newTestEngine(t *testing.T, analyzer triage.Analyzer) (*Engine, *ledger.MemoryStore) {
	t.Helper()
	if analyzer == nil {
		analyzer = &stubAnalyzer{err: errors.New("no analyzer configured")}
	}
	store := ledger.NewMemoryStore()
	eng := New(store, analyzer, logging.New("error"), WithIDSource(func() string { return "test12345" }))
	return eng, store
}

func respond(t *testing.T, e *Engine, state *session.State, input string) *Reply {
	t.Helper()
	reply, err := e.Respond(context.Background(), state, input)
	if err != nil {
		t.Fatalf("Respond(%q) failed: %v", input, err)
	}
	return reply
}

var rootMenuWant = []string{
	"Describe your symptoms",
	"Book an appointment",
	"View available doctors",
	"Check appointment status",
	"Cancel appointment",
	"Update appointment",
}

func assertOptions(t *testing.T, reply *Reply, want []string) {
	t.Helper()
	if len(reply.Options) != len(want) {
		t.Fatalf("got %d options %v, want %d", len(reply.Options), reply.Options, len(want))
	}
	for i, opt := range want {
		if reply.Options[i] != opt {
			t.Fatalf("option[%d] = %q, want %q", i, reply.Options[i], opt)
		}
	}
}

func TestGreeting(t *testing.T) {
	reply := Greeting()
	if len(reply.Messages) != 1 || !strings.Contains(reply.Messages[0], "MedBot") {
		t.Fatalf("unexpected greeting: %v", reply.Messages)
	}
	assertOptions(t, reply, rootMenuWant)
}

func TestDefaultMenu(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	state := &session.State{}

	reply := respond(t, eng, state, "what is the weather")
	if reply.Messages[0] != "How can I help you? Choose an option:" {
		t.Fatalf("unexpected message: %q", reply.Messages[0])
	}
	assertOptions(t, reply, rootMenuWant)
	if !state.IsEmpty() {
		t.Fatalf("default reply must not mutate state: %#v", state)
	}
}

func TestGoBackToMainMenu_ClearsAnyMode(t *testing.T) {
	modes := []session.State{
		{Mode: session.ModeSymptoms},
		{Mode: session.ModeCheckStatus},
		{Mode: session.ModeUpdateTime, PendingAppointmentID: "abc"},
		{DoctorID: 1, Day: "monday", Time: "9:00 AM"},
	}
	for _, start := range modes {
		eng, _ := newTestEngine(t, nil)
		state := start
		reply := respond(t, eng, &state, "Go back to main menu")
		if !state.IsEmpty() {
			t.Fatalf("state not cleared from %#v: %#v", start, state)
		}
		if reply.Messages[0] != "How can I help you today?" {
			t.Fatalf("unexpected message: %q", reply.Messages[0])
		}
		assertOptions(t, reply, rootMenuWant)
	}
}

func TestViewAllDoctorsIntercept(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	state := &session.State{Mode: session.ModeSymptoms}

	reply := respond(t, eng, state, "View all doctors")
	// roster lines between the opener and the booking question
	if len(reply.Messages) != 11 {
		t.Fatalf("got %d messages, want 11", len(reply.Messages))
	}
	if reply.Options[0] != "Book with Dr. Smith (Cardiologist)" {
		t.Fatalf("unexpected first choice: %q", reply.Options[0])
	}
	if state.Mode != session.ModeSymptoms {
		t.Fatalf("intercept must not change mode, got %q", state.Mode)
	}
}

func TestBookWithDoctor_SelectsAndOffersDays(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	state := &session.State{}

	reply := respond(t, eng, state, "Book with Dr. Smith (Cardiologist)")
	if state.DoctorID != 1 {
		t.Fatalf("doctor not selected: %#v", state)
	}
	if reply.Messages[0] != "Great! Let's schedule your appointment with Dr. Smith." {
		t.Fatalf("unexpected message: %q", reply.Messages[0])
	}
	assertOptions(t, reply, []string{"Monday", "Wednesday", "Friday"})
}

func TestDoctorChoice_FromRosterButton(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	state := &session.State{Mode: session.ModeSelectDoctor}

	reply := respond(t, eng, state, "Dr. Brown (Orthopedic)")
	if state.DoctorID != 4 {
		t.Fatalf("doctor not selected: %#v", state)
	}
	assertOptions(t, reply, []string{"Tuesday", "Thursday", "Saturday"})
}

func TestDaySelection_OffersTimeSlots(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	state := &session.State{DoctorID: 1}

	reply := respond(t, eng, state, "Monday")
	if state.Day != "monday" {
		t.Fatalf("day not stored: %#v", state)
	}
	if reply.Messages[0] != "Great! Here are the available time slots for Dr. Smith on monday:" {
		t.Fatalf("unexpected message: %q", reply.Messages[0])
	}
	assertOptions(t, reply, []string{"9:00 AM", "11:00 AM", "1:00 PM", "3:00 PM"})
}

func TestDaySelection_UnavailableWeekdayReprompts(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	state := &session.State{DoctorID: 1} // Dr. Smith: Mon/Wed/Fri

	reply := respond(t, eng, state, "Sunday")
	if state.Day != "" {
		t.Fatalf("unavailable day must not be stored: %#v", state)
	}
	if !strings.Contains(reply.Messages[0], "not available on Sunday") {
		t.Fatalf("unexpected message: %q", reply.Messages[0])
	}
	assertOptions(t, reply, []string{"Monday", "Wednesday", "Friday"})
}

func TestTimeSelection(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTime  string
		wantMsg   string
		wantSlots bool
	}{
		{name: "valid slot", input: "9:00 AM", wantTime: "9:00 AM", wantMsg: "Please provide your email to confirm the appointment:"},
		{name: "valid slot lower case", input: "9:00 am", wantTime: "9:00 AM", wantMsg: "Please provide your email to confirm the appointment:"},
		{name: "well formed but not offered", input: "10:00 AM", wantMsg: "That time slot is not available. Please select from the following time slots:", wantSlots: true},
		{name: "garbage reprompts", input: "around noon", wantMsg: "Please select a valid time slot from the options below:", wantSlots: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _ := newTestEngine(t, nil)
			state := &session.State{DoctorID: 1, Day: "monday"}

			reply := respond(t, eng, state, tt.input)
			if state.Time != tt.wantTime {
				t.Fatalf("state.Time = %q, want %q", state.Time, tt.wantTime)
			}
			if reply.Messages[0] != tt.wantMsg {
				t.Fatalf("message = %q, want %q", reply.Messages[0], tt.wantMsg)
			}
			if tt.wantSlots {
				assertOptions(t, reply, []string{"9:00 AM", "11:00 AM", "1:00 PM", "3:00 PM"})
				if state.Day != "monday" || state.DoctorID != 1 {
					t.Fatalf("re-prompt must keep selections: %#v", state)
				}
			}
		})
	}
}

func TestEmailValidation(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"a@b.com", true},
		{"first.last@clinic.example.org", true},
		{"a@b", false},
		{"a.com", false},
		{"a @b.com", false},
		{"@b.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			eng, store := newTestEngine(t, nil)
			state := &session.State{DoctorID: 1, Day: "monday", Time: "9:00 AM"}

			reply := respond(t, eng, state, tt.email)
			if tt.valid {
				if reply.Notification == nil {
					t.Fatalf("valid email must produce a notification: %v", reply.Messages)
				}
				if !state.IsEmpty() {
					t.Fatalf("booking must clear state: %#v", state)
				}
				if _, err := store.Get(context.Background(), "test12345"); err != nil {
					t.Fatalf("appointment not persisted: %v", err)
				}
				return
			}
			if reply.Messages[0] != "Invalid email format. Please provide a valid email address:" {
				t.Fatalf("unexpected message: %q", reply.Messages[0])
			}
			if state.Time != "9:00 AM" || state.Day != "monday" || state.DoctorID != 1 {
				t.Fatalf("invalid email must keep selections: %#v", state)
			}
		})
	}
}

func TestBookingRoundTrip(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	state := &session.State{}
	ctx := context.Background()

	respond(t, eng, state, "book with dr. smith")
	respond(t, eng, state, "monday")
	respond(t, eng, state, "9:00 AM")
	reply := respond(t, eng, state, "patient@example.com")

	appt, err := store.Get(ctx, "test12345")
	if err != nil {
		t.Fatalf("appointment not persisted: %v", err)
	}
	want := ledger.Appointment{ID: "test12345", Doctor: "Dr. Smith", Day: "Monday", Time: "9:00 AM", Email: "patient@example.com", Status: ledger.StatusConfirmed}
	if *appt != want {
		t.Fatalf("got %#v, want %#v", *appt, want)
	}
	if !state.IsEmpty() {
		t.Fatalf("state not cleared: %#v", state)
	}
	if reply.Notification == nil || reply.Notification.Kind != "confirmation" {
		t.Fatalf("missing confirmation notification: %#v", reply.Notification)
	}
	if !strings.Contains(reply.Notification.SuccessMessage, "Appointment ID: test12345") {
		t.Fatalf("success wording lacks id: %q", reply.Notification.SuccessMessage)
	}
	if !strings.Contains(reply.Notification.FailureMessage, "issue sending the confirmation email") {
		t.Fatalf("unexpected failure wording: %q", reply.Notification.FailureMessage)
	}
	if reply.FollowUp == nil || reply.FollowUp.Messages[0] != "Your appointment is confirmed. We look forward to seeing you!" {
		t.Fatalf("missing closing follow-up: %#v", reply.FollowUp)
	}
}

func TestCheckStatus(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()
	store.Create(ctx, &ledger.Appointment{ID: "abc123xyz", Doctor: "Dr. Smith", Day: "Monday", Time: "9:00 AM", Email: "a@b.com", Status: ledger.StatusConfirmed})

	state := &session.State{}
	reply := respond(t, eng, state, "check appointment status")
	if state.Mode != session.ModeCheckStatus {
		t.Fatalf("mode = %q, want checkStatus", state.Mode)
	}
	if reply.Messages[0] != "Please provide your Appointment ID to check the status:" {
		t.Fatalf("unexpected prompt: %q", reply.Messages[0])
	}

	reply = respond(t, eng, state, "abc123xyz")
	if !strings.Contains(reply.Messages[0], "Doctor: Dr. Smith") || !strings.Contains(reply.Messages[0], "Status: Confirmed") {
		t.Fatalf("unexpected details: %q", reply.Messages[0])
	}
	if !state.IsEmpty() {
		t.Fatalf("state not cleared: %#v", state)
	}
	if reply.FollowUp == nil || reply.FollowUp.Messages[0] != "What else can I help you with?" {
		t.Fatalf("missing root follow-up: %#v", reply.FollowUp)
	}
	assertOptions(t, &Reply{Options: reply.FollowUp.Options}, rootMenuWant)
}

func TestCheckStatus_NotFound(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	state := &session.State{Mode: session.ModeCheckStatus}

	reply := respond(t, eng, state, "nosuchid1")
	if reply.Messages[0] != "No appointment found with this ID. Please check the ID and try again." {
		t.Fatalf("unexpected message: %q", reply.Messages[0])
	}
	if !state.IsEmpty() {
		t.Fatalf("state not cleared: %#v", state)
	}
}

func TestCancelRoundTrip(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()
	store.Create(ctx, &ledger.Appointment{ID: "abc123xyz", Doctor: "Dr. Smith", Day: "Monday", Time: "9:00 AM", Email: "a@b.com", Status: ledger.StatusConfirmed})

	state := &session.State{}
	respond(t, eng, state, "Cancel appointment")
	if state.Mode != session.ModeCancel {
		t.Fatalf("mode = %q, want cancelAppointment", state.Mode)
	}

	reply := respond(t, eng, state, "abc123xyz")
	if _, err := store.Get(ctx, "abc123xyz"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("record not removed, err = %v", err)
	}
	if reply.Notification == nil || reply.Notification.Kind != "cancellation" {
		t.Fatalf("missing cancellation notification: %#v", reply.Notification)
	}
	if !strings.Contains(reply.Notification.SuccessMessage, "Appointment cancelled successfully!") {
		t.Fatalf("unexpected wording: %q", reply.Notification.SuccessMessage)
	}
	if !state.IsEmpty() {
		t.Fatalf("state not cleared: %#v", state)
	}
	if reply.FollowUp == nil {
		t.Fatalf("missing root follow-up")
	}
}

func TestCancel_NotFoundStillResets(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	state := &session.State{Mode: session.ModeCancel}

	reply := respond(t, eng, state, "missing01")
	if reply.Notification != nil {
		t.Fatalf("no notification expected: %#v", reply.Notification)
	}
	if reply.Messages[0] != "No appointment found with this ID. Please check the ID and try again." {
		t.Fatalf("unexpected message: %q", reply.Messages[0])
	}
	if !state.IsEmpty() || reply.FollowUp == nil {
		t.Fatalf("cancel must clear and re-offer menu: %#v", state)
	}
}

func TestUpdateDayRoundTrip(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()
	store.Create(ctx, &ledger.Appointment{ID: "abc123xyz", Doctor: "Dr. Smith", Day: "Monday", Time: "9:00 AM", Email: "a@b.com", Status: ledger.StatusConfirmed})

	state := &session.State{}
	respond(t, eng, state, "Update appointment")
	reply := respond(t, eng, state, "abc123xyz")
	if state.Mode != session.ModeSelectUpdateOption || state.PendingAppointmentID != "abc123xyz" {
		t.Fatalf("unexpected state: %#v", state)
	}
	assertOptions(t, reply, []string{"Update day", "Update time", "Cancel update"})

	reply = respond(t, eng, state, "Update day")
	if state.Mode != session.ModeUpdateDay {
		t.Fatalf("mode = %q, want updateDay", state.Mode)
	}
	assertOptions(t, reply, []string{"Monday", "Wednesday", "Friday"})

	reply = respond(t, eng, state, "Friday")
	appt, err := store.Get(ctx, "abc123xyz")
	if err != nil {
		t.Fatalf("record vanished: %v", err)
	}
	if appt.Day != "Friday" || appt.Time != "9:00 AM" {
		t.Fatalf("unexpected record after update: %#v", appt)
	}
	if reply.Notification == nil || reply.Notification.OldDay != "Monday" {
		t.Fatalf("update notification must carry old day: %#v", reply.Notification)
	}
	if !state.IsEmpty() {
		t.Fatalf("state not cleared: %#v", state)
	}
	if reply.FollowUp == nil || reply.FollowUp.Messages[0] != "Your appointment is updated. We look forward to seeing you!" {
		t.Fatalf("missing closing follow-up: %#v", reply.FollowUp)
	}
}

func TestUpdateTime_StoresCanonicalSlot(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()
	store.Create(ctx, &ledger.Appointment{ID: "abc123xyz", Doctor: "Dr. Smith", Day: "Monday", Time: "9:00 AM", Email: "a@b.com", Status: ledger.StatusConfirmed})

	state := &session.State{Mode: session.ModeSelectUpdateOption, PendingAppointmentID: "abc123xyz"}
	respond(t, eng, state, "Update time")

	reply := respond(t, eng, state, "1:00 pm")
	appt, _ := store.Get(ctx, "abc123xyz")
	if appt.Time != "1:00 PM" {
		t.Fatalf("slot not canonicalized: %q", appt.Time)
	}
	if reply.Notification == nil || reply.Notification.OldTime != "9:00 AM" {
		t.Fatalf("update notification must carry old time: %#v", reply.Notification)
	}
}

func TestUpdateTime_InvalidReprompts(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	store.Create(context.Background(), &ledger.Appointment{ID: "abc123xyz", Doctor: "Dr. Smith", Day: "Monday", Time: "9:00 AM", Email: "a@b.com", Status: ledger.StatusConfirmed})

	state := &session.State{Mode: session.ModeUpdateTime, PendingAppointmentID: "abc123xyz"}
	reply := respond(t, eng, state, "5:00 PM")
	if reply.Messages[0] != "Please select a valid time from the options below:" {
		t.Fatalf("unexpected message: %q", reply.Messages[0])
	}
	if state.Mode != session.ModeUpdateTime {
		t.Fatalf("re-prompt must keep mode: %#v", state)
	}
}

func TestSelectUpdateOption_UnmatchedReprompts(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	store.Create(context.Background(), &ledger.Appointment{ID: "abc123xyz", Doctor: "Dr. Smith", Day: "Monday", Time: "9:00 AM", Email: "a@b.com", Status: ledger.StatusConfirmed})

	state := &session.State{Mode: session.ModeSelectUpdateOption, PendingAppointmentID: "abc123xyz"}
	reply := respond(t, eng, state, "something else")
	assertOptions(t, reply, []string{"Update day", "Update time", "Cancel update"})
	if state.Mode != session.ModeSelectUpdateOption {
		t.Fatalf("re-prompt must keep mode: %#v", state)
	}
}

func TestCancelUpdate(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	store.Create(context.Background(), &ledger.Appointment{ID: "abc123xyz", Doctor: "Dr. Smith", Day: "Monday", Time: "9:00 AM", Email: "a@b.com", Status: ledger.StatusConfirmed})

	state := &session.State{Mode: session.ModeSelectUpdateOption, PendingAppointmentID: "abc123xyz"}
	reply := respond(t, eng, state, "Cancel update")
	if reply.Messages[0] != "Update cancelled. What else can I help you with?" {
		t.Fatalf("unexpected message: %q", reply.Messages[0])
	}
	if !state.IsEmpty() {
		t.Fatalf("state not cleared: %#v", state)
	}
	assertOptions(t, reply, rootMenuWant)
}

func TestUpdate_DoctorNotInDirectory(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	store.Create(context.Background(), &ledger.Appointment{ID: "abc123xyz", Doctor: "Dr. Nobody", Day: "Monday", Time: "9:00 AM", Email: "a@b.com", Status: ledger.StatusConfirmed})

	state := &session.State{Mode: session.ModeUpdate}
	reply := respond(t, eng, state, "abc123xyz")
	if reply.Messages[0] != "Error: Doctor not found. Please try again later." {
		t.Fatalf("unexpected message: %q", reply.Messages[0])
	}
	if !state.IsEmpty() {
		t.Fatalf("state not cleared: %#v", state)
	}
}

func TestSymptoms_RecommendsSpecialists(t *testing.T) {
	analyzer := &stubAnalyzer{result: &triage.Result{
		Recommendation: "Based on your symptoms, you should see a Cardiologist.",
		Specialty:      "Cardiologist",
	}}
	eng, _ := newTestEngine(t, analyzer)
	state := &session.State{Mode: session.ModeSymptoms}

	reply := respond(t, eng, state, "chest pain and shortness of breath")
	if reply.Messages[0] != analyzer.result.Recommendation {
		t.Fatalf("unexpected first message: %q", reply.Messages[0])
	}
	assertOptions(t, reply, []string{"Book with Dr. Smith (Cardiologist)"})
}

func TestSymptoms_NoMatchingSpecialist(t *testing.T) {
	analyzer := &stubAnalyzer{result: &triage.Result{Recommendation: "You should see a Dentist.", Specialty: "Dentist"}}
	eng, _ := newTestEngine(t, analyzer)
	state := &session.State{Mode: session.ModeSymptoms}

	reply := respond(t, eng, state, "toothache")
	assertOptions(t, reply, []string{"View all doctors", "Go back to main menu"})
}

func TestSymptoms_AnalyzerFailure(t *testing.T) {
	eng, _ := newTestEngine(t, &stubAnalyzer{err: errors.New("service down")})
	state := &session.State{Mode: session.ModeSymptoms}

	reply := respond(t, eng, state, "headache")
	if reply.Messages[0] != "I'm having trouble analyzing your symptoms. Would you like to:" {
		t.Fatalf("unexpected message: %q", reply.Messages[0])
	}
	assertOptions(t, reply, []string{"Try describing your symptoms again", "View all doctors", "Go back to main menu"})
}

func TestKeywordFallbacks(t *testing.T) {
	tests := []struct {
		input    string
		wantMode session.Mode
		wantMsg  string
	}{
		{"i have a problem", session.ModeSymptoms, "Please describe your symptoms in detail:"},
		{"what's my status", session.ModeCheckStatus, "Please enter your appointment ID to check the status:"},
		{"i want to cancel", session.ModeCancel, "Please enter your appointment ID to cancel your appointment:"},
		{"update please", session.ModeUpdate, "Please enter your appointment ID to check and update the appointment:"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			eng, _ := newTestEngine(t, nil)
			state := &session.State{}
			reply := respond(t, eng, state, tt.input)
			if state.Mode != tt.wantMode {
				t.Fatalf("mode = %q, want %q", state.Mode, tt.wantMode)
			}
			if reply.Messages[0] != tt.wantMsg {
				t.Fatalf("message = %q, want %q", reply.Messages[0], tt.wantMsg)
			}
		})
	}
}

func TestBookKeyword_OffersRoster(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	state := &session.State{}

	reply := respond(t, eng, state, "I'd like to book something")
	if state.Mode != session.ModeSelectDoctor {
		t.Fatalf("mode = %q, want selectDoctor", state.Mode)
	}
	if len(reply.Options) != 9 || reply.Options[8] != "Dr. Taylor (General Physician)" {
		t.Fatalf("unexpected roster choices: %v", reply.Options)
	}
}

func TestBlankInputIgnored(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	state := &session.State{Mode: session.ModeSymptoms}

	reply := respond(t, eng, state, "   ")
	if len(reply.Messages) != 0 || len(reply.Options) != 0 {
		t.Fatalf("blank input must produce nothing: %#v", reply)
	}
	if state.Mode != session.ModeSymptoms {
		t.Fatalf("blank input must not mutate state: %#v", state)
	}
}
