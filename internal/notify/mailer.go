package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medreferral/medbot/internal/calendar"
	"github.com/medreferral/medbot/pkg/logging"
)

// Mailer builds the three appointment emails and hands them to an
// EmailSender.
type Mailer struct {
	sender EmailSender
	logger *logging.Logger
	now    func() time.Time
}

// NewMailer wires a sender behind the appointment email templates.
func NewMailer(sender EmailSender, logger *logging.Logger) *Mailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Mailer{sender: sender, logger: logger.Component("mailer"), now: time.Now}
}

// Send builds and sends the email for a request. For confirmations the
// generated Google Calendar link is returned alongside.
func (m *Mailer) Send(ctx context.Context, req *Request) (string, error) {
	if m.sender == nil {
		return "", errors.New("notify: no email sender configured")
	}

	var (
		msg          EmailMessage
		calendarLink string
		err          error
	)
	switch req.Kind {
	case KindConfirmation:
		msg, calendarLink, err = m.confirmationEmail(req)
	case KindCancellation:
		msg = m.cancellationEmail(req)
	case KindUpdate:
		msg = m.updateEmail(req)
	default:
		return "", fmt.Errorf("notify: unknown email kind %q", req.Kind)
	}
	if err != nil {
		return "", err
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		return calendarLink, err
	}
	return calendarLink, nil
}

func (m *Mailer) confirmationEmail(req *Request) (EmailMessage, string, error) {
	link, err := calendar.AppointmentLink(req.Doctor, req.Day, req.Time, m.now())
	if err != nil {
		return EmailMessage{}, "", fmt.Errorf("notify: failed to build calendar link: %w", err)
	}

	html := fmt.Sprintf(`
		<h2>Appointment Confirmation</h2>
		<p>Your appointment has been confirmed with the following details:</p>
		<ul style="list-style-type: none; padding-left: 0;">
			<li><strong>Doctor:</strong> %s</li>
			<li><strong>Day:</strong> %s</li>
			<li><strong>Time:</strong> %s</li>
			<li><strong>Appointment ID:</strong> %s</li>
		</ul>
		<p>Please save your appointment ID for future reference.</p>
		<p><a href="%s" target="_blank" style="display: inline-block; padding: 10px 20px; background-color: #4285f4; color: white; text-decoration: none; border-radius: 5px; margin: 15px 0;">Add to Google Calendar</a></p>
		<p>If you need to reschedule or cancel your appointment, please use our chat interface.</p>
		<br>
		<p>Best regards,</p>
		<p>Medical Referral System Team</p>
	`, req.Doctor, req.Day, req.Time, req.AppointmentID, link)

	return EmailMessage{
		To:      req.Email,
		Subject: "Appointment Confirmation",
		Body: fmt.Sprintf("Your appointment with %s on %s at %s is confirmed. Appointment ID: %s",
			req.Doctor, req.Day, req.Time, req.AppointmentID),
		HTML: html,
	}, link, nil
}

func (m *Mailer) cancellationEmail(req *Request) EmailMessage {
	html := fmt.Sprintf(`
		<h2>Appointment Cancellation Confirmation</h2>
		<p>Dear Patient,</p>
		<p>The following appointment has been cancelled:</p>
		<ul style="list-style-type: none; padding-left: 0;">
			<li><strong>Doctor:</strong> %s</li>
			<li><strong>Day:</strong> %s</li>
			<li><strong>Time:</strong> %s</li>
			<li><strong>Appointment ID:</strong> %s</li>
		</ul>
		<p>If you wish to schedule a new appointment, please visit our chat interface.</p>
		<br>
		<p>Best regards,</p>
		<p>Medical Referral System Team</p>
	`, req.Doctor, req.Day, req.Time, req.AppointmentID)

	return EmailMessage{
		To:      req.Email,
		Subject: "Appointment Cancellation Confirmation",
		Body: fmt.Sprintf("Your appointment with %s on %s at %s has been cancelled. Appointment ID: %s",
			req.Doctor, req.Day, req.Time, req.AppointmentID),
		HTML: html,
	}
}

func (m *Mailer) updateEmail(req *Request) EmailMessage {
	oldDay := req.OldDay
	if oldDay == "" {
		oldDay = req.Day
	}
	oldTime := req.OldTime
	if oldTime == "" {
		oldTime = req.Time
	}

	html := fmt.Sprintf(`
		<h2>Appointment Update Confirmation</h2>
		<p>Dear Patient,</p>
		<p>Your appointment has been rescheduled from %s at %s to:</p>
		<ul style="list-style-type: none; padding-left: 0;">
			<li><strong>Doctor:</strong> %s</li>
			<li><strong>New Day:</strong> %s</li>
			<li><strong>New Time:</strong> %s</li>
			<li><strong>Appointment ID:</strong> %s</li>
		</ul>
		<p>Please save your appointment ID for future reference.</p>
		<p>If you need to make any changes, please use our chat interface.</p>
		<br>
		<p>Best regards,</p>
		<p>Medical Referral System Team</p>
	`, oldDay, oldTime, req.Doctor, req.Day, req.Time, req.AppointmentID)

	return EmailMessage{
		To:      req.Email,
		Subject: "Appointment Update Confirmation",
		Body: fmt.Sprintf("Your appointment with %s has been rescheduled to %s at %s. Appointment ID: %s",
			req.Doctor, req.Day, req.Time, req.AppointmentID),
		HTML: html,
	}
}
