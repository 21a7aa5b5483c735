// Package engine implements the conversation core: a deterministic,
// explicitly-ordered dispatch that consumes one utterance plus session
// state and produces messages, choice sets, state mutations, and email
// jobs. Rules are evaluated top to bottom; the first match wins.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/medreferral/medbot/internal/directory"
	"github.com/medreferral/medbot/internal/ledger"
	"github.com/medreferral/medbot/internal/notify"
	"github.com/medreferral/medbot/internal/session"
	"github.com/medreferral/medbot/internal/triage"
	"github.com/medreferral/medbot/pkg/logging"
)

// DefaultFollowUpDelay is how long delayed follow-up messages wait after
// the immediate reply.
const DefaultFollowUpDelay = time.Second

var rootMenuOptions = []string{
	"Describe your symptoms",
	"Book an appointment",
	"View available doctors",
	"Check appointment status",
	"Cancel appointment",
	"Update appointment",
}

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var (
	timeSlotPattern = regexp.MustCompile(`^(1[0-2]|0?[1-9]):([0-5][0-9])\s*(AM|PM|am|pm)$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	bookWithPattern = regexp.MustCompile(`book with (dr\.|doctor)\s*`)
)

// Engine drives conversations. It is stateless between turns; everything
// transient lives in the session state passed to Respond.
type Engine struct {
	appointments  ledger.Store
	triage        triage.Analyzer
	log           *logging.Logger
	newID         func() string
	followUpDelay time.Duration
	rules         []rule
}

// Option customizes engine construction.
type Option func(*Engine)

// WithIDSource replaces the appointment id generator.
func WithIDSource(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithFollowUpDelay overrides the delay on follow-up message batches.
func WithFollowUpDelay(d time.Duration) Option {
	return func(e *Engine) { e.followUpDelay = d }
}

type rule struct {
	name string
	fn   func(ctx context.Context, t *turn) (*Reply, error)
}

// turn is the per-utterance working set shared by the dispatch rules.
type turn struct {
	raw   string // trimmed, original casing; used for email capture
	input string // trimmed and lower-cased; used for all other matching
	state *session.State
}

func (t *turn) doctor() (*directory.Doctor, bool) {
	if t.state.DoctorID == 0 {
		return nil, false
	}
	return directory.ByID(t.state.DoctorID)
}

// New creates an engine over the given appointment store and symptom
// analyzer.
func New(appointments ledger.Store, analyzer triage.Analyzer, log *logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		appointments:  appointments,
		triage:        analyzer,
		log:           log.Component("engine"),
		newID:         ledger.NewID,
		followUpDelay: DefaultFollowUpDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rules = []rule{
		{"intercept", e.intercepts},
		{"select_day", e.selectDay},
		{"select_time", e.selectTime},
		{"capture_email", e.captureEmail},
		{"book_with_doctor", e.bookWithDoctor},
		{"doctor_choice", e.doctorChoice},
		{"book_generic", e.bookGeneric},
		{"symptoms", e.symptoms},
		{"view_all_doctors", e.viewAllDoctors},
		{"check_status", e.checkStatus},
		{"cancel", e.cancel},
		{"update", e.update},
		{"select_update_option", e.selectUpdateOption},
		{"update_day", e.updateDay},
		{"update_time", e.updateTime},
		{"keyword_fallback", e.keywordFallback},
		{"default", e.defaultMenu},
	}
	return e
}

// Greeting is the conversation opener: welcome message plus the root menu.
func Greeting() *Reply {
	r := &Reply{Rule: "greeting"}
	r.addMessage("Hello! I'm MedBot, your medical assistant. How can I help you today?")
	r.Options = rootMenu()
	return r
}

// Respond processes one utterance against the session state, mutating the
// state in place. A blank utterance produces an empty reply.
func (e *Engine) Respond(ctx context.Context, state *session.State, utterance string) (*Reply, error) {
	raw := strings.TrimSpace(utterance)
	if raw == "" {
		return &Reply{Rule: "empty"}, nil
	}
	t := &turn{raw: raw, input: strings.ToLower(raw), state: state}

	for _, rl := range e.rules {
		reply, err := rl.fn(ctx, t)
		if err != nil {
			return nil, err
		}
		if reply != nil {
			reply.Rule = rl.name
			e.log.Debug("turn dispatched", "rule", rl.name, "mode", string(state.Mode))
			return reply, nil
		}
	}
	// unreachable: the default rule always matches
	return nil, errors.New("engine: no rule matched")
}

// intercepts handles the three choice-button texts that work in any mode.
func (e *Engine) intercepts(_ context.Context, t *turn) (*Reply, error) {
	switch t.input {
	case "try describing your symptoms again":
		t.state.Mode = session.ModeSymptoms
		r := &Reply{}
		r.addMessage("Please describe your symptoms:")
		return r, nil

	case "view all doctors":
		r := &Reply{}
		r.addMessage("Here are all our available doctors:")
		addRosterLines(r)
		r.addMessage("Would you like to book an appointment with any of these doctors?")
		r.Options = bookingChoices(directory.All())
		return r, nil

	case "go back to main menu":
		t.state.Clear()
		r := &Reply{}
		r.addMessage("How can I help you today?")
		r.Options = rootMenu()
		return r, nil
	}
	return nil, nil
}

// selectDay consumes a weekday while a doctor is chosen and no day is.
// Weekdays outside the doctor's availability re-prompt; anything that is
// not a weekday falls through to later rules.
func (e *Engine) selectDay(_ context.Context, t *turn) (*Reply, error) {
	doc, ok := t.doctor()
	if !ok || t.state.Day != "" {
		return nil, nil
	}
	switch t.state.Mode {
	case session.ModeUpdate, session.ModeCancel, session.ModeCheckStatus:
		return nil, nil
	}
	day, isWeekday := weekdayToken(t.input)
	if !isWeekday {
		return nil, nil
	}
	if !doc.HasDay(capitalize(day)) {
		r := &Reply{}
		r.addMessage(fmt.Sprintf("%s is not available on %s. Please select one of the following days:", doc.Name, capitalize(day)))
		r.Options = append([]string(nil), doc.Days...)
		return r, nil
	}
	t.state.Day = day
	r := &Reply{}
	r.addMessage(fmt.Sprintf("Great! Here are the available time slots for %s on %s:", doc.Name, day))
	r.Options = append([]string(nil), doc.TimeSlots...)
	return r, nil
}

// selectTime consumes a 12-hour time while doctor and day are chosen and no
// time is. "back" and "cancel" fall through; everything else either selects
// a slot or re-prompts.
func (e *Engine) selectTime(_ context.Context, t *turn) (*Reply, error) {
	doc, ok := t.doctor()
	if !ok || t.state.Day == "" || t.state.Time != "" {
		return nil, nil
	}
	if timeSlotPattern.MatchString(t.input) {
		normalized := strings.ToUpper(t.input)
		if doc.HasSlot(normalized) {
			t.state.Time = normalized
			r := &Reply{}
			r.addMessage("Please provide your email to confirm the appointment:")
			return r, nil
		}
		r := &Reply{}
		r.addMessage("That time slot is not available. Please select from the following time slots:")
		r.Options = append([]string(nil), doc.TimeSlots...)
		return r, nil
	}
	if t.input != "back" && t.input != "cancel" {
		r := &Reply{}
		r.addMessage("Please select a valid time slot from the options below:")
		r.Options = append([]string(nil), doc.TimeSlots...)
		return r, nil
	}
	return nil, nil
}

// captureEmail finishes the booking flow: validate the address, persist a
// Confirmed record, queue the confirmation email, clear the session.
func (e *Engine) captureEmail(ctx context.Context, t *turn) (*Reply, error) {
	doc, ok := t.doctor()
	if !ok || t.state.Day == "" || t.state.Time == "" {
		return nil, nil
	}
	if !emailPattern.MatchString(t.raw) {
		r := &Reply{}
		r.addMessage("Invalid email format. Please provide a valid email address:")
		return r, nil
	}

	appt := &ledger.Appointment{
		ID:     e.newID(),
		Doctor: doc.Name,
		Day:    capitalize(t.state.Day),
		Time:   t.state.Time,
		Email:  t.raw,
		Status: ledger.StatusConfirmed,
	}
	if err := e.appointments.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("engine: failed to book appointment: %w", err)
	}

	details := func(tail string) string {
		return fmt.Sprintf("Appointment Confirmed!\nDoctor: %s\nDay: %s\nTime: %s\nEmail: %s\nAppointment ID: %s\n\n%s",
			appt.Doctor, appt.Day, appt.Time, appt.Email, appt.ID, tail)
	}
	r := &Reply{
		Notification: &notify.Request{
			Kind:           notify.KindConfirmation,
			Doctor:         appt.Doctor,
			Day:            appt.Day,
			Time:           appt.Time,
			Email:          appt.Email,
			AppointmentID:  appt.ID,
			SuccessMessage: details("✅ A confirmation email has been sent to your inbox."),
			FailureMessage: details("⚠️ Note: There was an issue sending the confirmation email."),
		},
		FollowUp: e.followUp([]string{"Your appointment is confirmed. We look forward to seeing you!"}, nil),
	}
	t.state.Clear()
	return r, nil
}

// bookWithDoctor handles "book with dr. <name>" / "book with doctor <name>".
func (e *Engine) bookWithDoctor(_ context.Context, t *turn) (*Reply, error) {
	if !strings.Contains(t.input, "book with dr.") && !strings.Contains(t.input, "book with doctor") {
		return nil, nil
	}
	fragment := strings.TrimSpace(bookWithPattern.ReplaceAllString(t.input, ""))
	doc, ok := directory.MatchName(fragment)
	if !ok {
		return nil, nil
	}
	return e.selectDoctor(t, doc), nil
}

// doctorChoice resolves a roster-choice utterance ("Dr. Brown (Orthopedic)"
// or a bare doctor name) while no doctor is selected yet.
func (e *Engine) doctorChoice(_ context.Context, t *turn) (*Reply, error) {
	if t.state.DoctorID != 0 {
		return nil, nil
	}
	switch t.state.Mode {
	case session.ModeNone, session.ModeSelectDoctor, session.ModeSymptoms:
	default:
		return nil, nil
	}
	doc, ok := directory.MatchName(t.input)
	if !ok {
		return nil, nil
	}
	return e.selectDoctor(t, doc), nil
}

func (e *Engine) selectDoctor(t *turn, doc *directory.Doctor) *Reply {
	t.state.DoctorID = doc.ID
	t.state.Day = ""
	t.state.Time = ""
	r := &Reply{}
	r.addMessage(fmt.Sprintf("Great! Let's schedule your appointment with %s.", doc.Name))
	r.addMessage("Please select your preferred day:")
	r.Options = append([]string(nil), doc.Days...)
	return r
}

func (e *Engine) bookGeneric(_ context.Context, t *turn) (*Reply, error) {
	if !strings.Contains(t.input, "book") && !strings.Contains(t.input, "view doctors") {
		return nil, nil
	}
	t.state.Mode = session.ModeSelectDoctor
	r := &Reply{}
	r.addMessage("Please select a doctor to proceed:")
	r.Options = rosterChoices()
	return r, nil
}

// symptoms delegates the utterance to the triage analyzer. Analyzer failure
// downgrades to a retry choice set; it never surfaces as a turn error.
func (e *Engine) symptoms(ctx context.Context, t *turn) (*Reply, error) {
	if t.state.Mode != session.ModeSymptoms {
		return nil, nil
	}
	result, err := e.triage.Analyze(ctx, t.input)
	if err != nil {
		e.log.Warn("symptom analysis failed", "error", err)
		r := &Reply{}
		r.addMessage("I'm having trouble analyzing your symptoms. Would you like to:")
		r.setOptions("Try describing your symptoms again", "View all doctors", "Go back to main menu")
		return r, nil
	}

	r := &Reply{}
	r.addMessage(result.Recommendation)
	matching := directory.BySpecialty(result.Specialty)
	if len(matching) > 0 {
		r.addMessage("Based on your symptoms, here are the recommended specialists:")
		r.Options = bookingChoices(matching)
	} else {
		r.addMessage("I apologize, but we don't have any specialists available for your specific condition at the moment.")
		r.addMessage("Would you like to see other available doctors?")
		r.setOptions("View all doctors", "Go back to main menu")
	}
	return r, nil
}

func (e *Engine) viewAllDoctors(_ context.Context, t *turn) (*Reply, error) {
	if !strings.Contains(t.input, "view all doctors") && !strings.Contains(t.input, "see all doctors") {
		return nil, nil
	}
	r := &Reply{}
	r.addMessage("Here are all our available doctors:")
	addRosterLines(r)
	r.addMessage("Click on a doctor's name to book an appointment:")
	r.Options = rosterChoices()
	return r, nil
}

func (e *Engine) checkStatus(ctx context.Context, t *turn) (*Reply, error) {
	if strings.Contains(t.input, "check appointment") {
		t.state.Mode = session.ModeCheckStatus
		r := &Reply{}
		r.addMessage("Please provide your Appointment ID to check the status:")
		return r, nil
	}
	if t.state.Mode != session.ModeCheckStatus {
		return nil, nil
	}

	r := &Reply{}
	appt, err := e.appointments.Get(ctx, t.input)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		r.addMessage("No appointment found with this ID. Please check the ID and try again.")
	case err != nil:
		return nil, fmt.Errorf("engine: failed to look up appointment: %w", err)
	default:
		r.addMessage(fmt.Sprintf("Here are your appointment details:\nDoctor: %s\nDay: %s\nTime: %s\nStatus: %s",
			appt.Doctor, appt.Day, appt.Time, appt.Status))
	}
	t.state.Clear()
	r.FollowUp = e.rootFollowUp()
	return r, nil
}

func (e *Engine) cancel(ctx context.Context, t *turn) (*Reply, error) {
	if t.input == "cancel appointment" {
		t.state.Clear()
		t.state.Mode = session.ModeCancel
		r := &Reply{}
		r.addMessage("Please provide your Appointment ID to cancel your appointment:")
		return r, nil
	}
	if t.state.Mode != session.ModeCancel {
		return nil, nil
	}

	r := &Reply{}
	appt, err := e.appointments.Remove(ctx, t.input)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		r.addMessage("No appointment found with this ID. Please check the ID and try again.")
	case err != nil:
		return nil, fmt.Errorf("engine: failed to cancel appointment: %w", err)
	default:
		details := fmt.Sprintf("Appointment cancelled successfully!\nPrevious details:\nDoctor: %s\nDay: %s\nTime: %s\n\n",
			appt.Doctor, appt.Day, appt.Time)
		r.Notification = &notify.Request{
			Kind:           notify.KindCancellation,
			Doctor:         appt.Doctor,
			Day:            appt.Day,
			Time:           appt.Time,
			Email:          appt.Email,
			AppointmentID:  t.input,
			SuccessMessage: details + "⚠️ A cancellation confirmation email has been sent to your inbox.",
			FailureMessage: details + "Note: There was an issue sending the cancellation email.",
		}
	}
	t.state.Clear()
	r.FollowUp = e.rootFollowUp()
	return r, nil
}

func (e *Engine) update(ctx context.Context, t *turn) (*Reply, error) {
	if t.input == "update appointment" {
		t.state.Clear()
		t.state.Mode = session.ModeUpdate
		r := &Reply{}
		r.addMessage("Please provide your Appointment ID to update your appointment:")
		return r, nil
	}
	if t.state.Mode != session.ModeUpdate {
		return nil, nil
	}

	appt, err := e.appointments.Get(ctx, t.input)
	if errors.Is(err, ledger.ErrNotFound) {
		r := &Reply{}
		r.addMessage("No appointment found with this ID. Please check the ID and try again.")
		t.state.Clear()
		r.FollowUp = e.rootFollowUp()
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: failed to look up appointment: %w", err)
	}
	if _, ok := directory.ByName(appt.Doctor); !ok {
		r := &Reply{}
		r.addMessage("Error: Doctor not found. Please try again later.")
		t.state.Clear()
		return r, nil
	}

	t.state.PendingAppointmentID = t.input
	t.state.Mode = session.ModeSelectUpdateOption
	r := &Reply{}
	r.addMessage(fmt.Sprintf("Current appointment details:\nDoctor: %s\nDay: %s\nTime: %s\n\nWhat would you like to update?",
		appt.Doctor, appt.Day, appt.Time))
	r.setOptions("Update day", "Update time", "Cancel update")
	return r, nil
}

func (e *Engine) selectUpdateOption(ctx context.Context, t *turn) (*Reply, error) {
	if t.state.Mode != session.ModeSelectUpdateOption {
		return nil, nil
	}
	_, doc, errReply, err := e.pendingAppointment(ctx, t)
	if err != nil || errReply != nil {
		return errReply, err
	}

	r := &Reply{}
	switch t.input {
	case "update day":
		t.state.Mode = session.ModeUpdateDay
		r.addMessage("Please select a new day:")
		r.Options = append([]string(nil), doc.Days...)
	case "update time":
		t.state.Mode = session.ModeUpdateTime
		r.addMessage("Please select a new time:")
		r.Options = append([]string(nil), doc.TimeSlots...)
	case "cancel update":
		t.state.Clear()
		r.addMessage("Update cancelled. What else can I help you with?")
		r.Options = rootMenu()
	default:
		r.addMessage("Please select one of the options below:")
		r.setOptions("Update day", "Update time", "Cancel update")
	}
	return r, nil
}

func (e *Engine) updateDay(ctx context.Context, t *turn) (*Reply, error) {
	if t.state.Mode != session.ModeUpdateDay {
		return nil, nil
	}
	appt, doc, errReply, err := e.pendingAppointment(ctx, t)
	if err != nil || errReply != nil {
		return errReply, err
	}

	day, isWeekday := weekdayToken(t.input)
	if !isWeekday || !doc.HasDay(capitalize(day)) {
		r := &Reply{}
		r.addMessage("Please select a valid day from the options below:")
		r.Options = append([]string(nil), doc.Days...)
		return r, nil
	}

	oldDay := appt.Day
	appt.Day = capitalize(day)
	if err := e.appointments.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("engine: failed to update appointment: %w", err)
	}
	r := &Reply{
		Notification: e.updateNotification(appt, oldDay, ""),
		FollowUp:     e.followUp([]string{"Your appointment is updated. We look forward to seeing you!"}, nil),
	}
	t.state.Clear()
	return r, nil
}

func (e *Engine) updateTime(ctx context.Context, t *turn) (*Reply, error) {
	if t.state.Mode != session.ModeUpdateTime {
		return nil, nil
	}
	appt, doc, errReply, err := e.pendingAppointment(ctx, t)
	if err != nil || errReply != nil {
		return errReply, err
	}

	slot, ok := doc.SlotMatching(t.input)
	if !ok {
		r := &Reply{}
		r.addMessage("Please select a valid time from the options below:")
		r.Options = append([]string(nil), doc.TimeSlots...)
		return r, nil
	}

	oldTime := appt.Time
	appt.Time = slot
	if err := e.appointments.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("engine: failed to update appointment: %w", err)
	}
	r := &Reply{
		Notification: e.updateNotification(appt, "", oldTime),
		FollowUp:     e.followUp([]string{"Your appointment is updated. We look forward to seeing you!"}, nil),
	}
	t.state.Clear()
	return r, nil
}

// pendingAppointment resolves the record under update and its doctor.
// A vanished record or unresolvable doctor produces a terminal reply.
func (e *Engine) pendingAppointment(ctx context.Context, t *turn) (*ledger.Appointment, *directory.Doctor, *Reply, error) {
	appt, err := e.appointments.Get(ctx, t.state.PendingAppointmentID)
	if errors.Is(err, ledger.ErrNotFound) {
		r := &Reply{}
		r.addMessage("No appointment found with this ID. Please check the ID and try again.")
		t.state.Clear()
		r.FollowUp = e.rootFollowUp()
		return nil, nil, r, nil
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("engine: failed to look up appointment: %w", err)
	}
	doc, ok := directory.ByName(appt.Doctor)
	if !ok {
		r := &Reply{}
		r.addMessage("Error: Doctor not found. Please try again later.")
		t.state.Clear()
		return nil, nil, r, nil
	}
	return appt, doc, nil, nil
}

func (e *Engine) updateNotification(appt *ledger.Appointment, oldDay, oldTime string) *notify.Request {
	details := fmt.Sprintf("Appointment updated successfully!\nNew details:\nDoctor: %s\nDay: %s\nTime: %s\n\n",
		appt.Doctor, appt.Day, appt.Time)
	return &notify.Request{
		Kind:           notify.KindUpdate,
		Doctor:         appt.Doctor,
		Day:            appt.Day,
		Time:           appt.Time,
		Email:          appt.Email,
		AppointmentID:  appt.ID,
		OldDay:         oldDay,
		OldTime:        oldTime,
		SuccessMessage: details + "An update confirmation email has been sent to your inbox.",
		FailureMessage: details + "Note: There was an issue sending the update email.",
	}
}

// keywordFallback routes loose keyword mentions when nothing above matched.
func (e *Engine) keywordFallback(_ context.Context, t *turn) (*Reply, error) {
	contains := func(s string) bool { return strings.Contains(t.input, s) }
	r := &Reply{}

	switch {
	case contains("symptoms") || contains("problem") || contains("feeling"):
		t.state.Mode = session.ModeSymptoms
		r.addMessage("Please describe your symptoms in detail:")
	case contains("status"):
		t.state.Mode = session.ModeCheckStatus
		r.addMessage("Please enter your appointment ID to check the status:")
	case contains("cancel"):
		t.state.Mode = session.ModeCancel
		r.addMessage("Please enter your appointment ID to cancel your appointment:")
	case contains("update"):
		t.state.Mode = session.ModeUpdate
		r.addMessage("Please enter your appointment ID to check and update the appointment:")
	case contains("book") || contains("appointment"):
		t.state.Mode = session.ModeSelectDoctor
		r.addMessage("Please select a doctor:")
		r.Options = rosterChoices()
	case contains("doctor") || contains("doctors"):
		r.addMessage("Available Doctors:")
		addRosterLines(r)
		r.addMessage("Click on a doctor's name to book an appointment:")
		r.Options = rosterChoices()
	default:
		return nil, nil
	}
	return r, nil
}

func (e *Engine) defaultMenu(_ context.Context, _ *turn) (*Reply, error) {
	r := &Reply{}
	r.addMessage("How can I help you? Choose an option:")
	r.Options = rootMenu()
	return r, nil
}

func (e *Engine) followUp(messages, options []string) *FollowUp {
	return &FollowUp{
		Delay:    e.followUpDelay,
		DelayMS:  e.followUpDelay.Milliseconds(),
		Messages: messages,
		Options:  options,
	}
}

func (e *Engine) rootFollowUp() *FollowUp {
	return e.followUp([]string{"What else can I help you with?"}, rootMenu())
}

func rootMenu() []string {
	return append([]string(nil), rootMenuOptions...)
}

func rosterChoices() []string {
	all := directory.All()
	out := make([]string, 0, len(all))
	for _, d := range all {
		out = append(out, fmt.Sprintf("%s (%s)", d.Name, d.Specialty))
	}
	return out
}

func bookingChoices(docs []directory.Doctor) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, fmt.Sprintf("Book with %s (%s)", d.Name, d.Specialty))
	}
	return out
}

func addRosterLines(r *Reply) {
	for _, d := range directory.All() {
		r.addMessage(fmt.Sprintf("%s - %s\nAvailable on: %s", d.Name, d.Specialty, strings.Join(d.Days, ", ")))
	}
}

func weekdayToken(input string) (string, bool) {
	for _, d := range weekdays {
		if input == d {
			return d, true
		}
	}
	return "", false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
