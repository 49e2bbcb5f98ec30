// Package notification renders reminder messages and delivers them over
// email.
package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-gomail/gomail"
	"github.com/rs/zerolog"
)

// Channel is the delivery medium of a notification.
type Channel string

const ChannelEmail Channel = "EMAIL"

func (c Channel) Valid() bool { return c == ChannelEmail }

// Attachment is an optional file sent with the message.
type Attachment struct {
	Name string
	Data []byte
}

type Payload struct {
	Subject    string
	Body       string
	Attachment *Attachment
}

// Sender delivers one rendered payload to one contact address.
type Sender interface {
	Send(ctx context.Context, channel Channel, contact string, payload Payload) error
}

// ErrNoContact is returned when a recipient has no address for the channel.
var ErrNoContact = errors.New("recipient has no contact address for channel")

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template IDs for appointment reminders.
const (
	TemplatePatientReminder      = "appointment-reminder-patient"
	TemplatePractitionerReminder = "appointment-reminder-practitioner"
)

type Template struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the reminder templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplatePatientReminder,
			Subject: "Reminder: dental appointment on {{date}} at {{time}}",
			Body: "Dear {{patient_name}},\n\nThis is a reminder of your {{consult_type}} appointment " +
				"with {{practitioner_name}} on {{date}} from {{time}} to {{end_time}}.\n\n" +
				"If you cannot attend, please contact the practice to reschedule.",
		},
		{
			ID:      TemplatePractitionerReminder,
			Subject: "Upcoming appointment: {{patient_name}} on {{date}} at {{time}}",
			Body: "{{practitioner_name}},\n\nYou have a {{consult_type}} appointment with {{patient_name}} " +
				"on {{date}} from {{time}} to {{end_time}}.\nReason: {{reason}}",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render performs {{key}} replacement using data. Keys present in the
// template but absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (Payload, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return Payload{}, fmt.Errorf("template %q not found", templateID)
	}

	subject, body := t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return Payload{Subject: subject, Body: body}, nil
}

// ---------------------------------------------------------------------------
// SMTP
// ---------------------------------------------------------------------------

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers email through one SMTP relay.
type SMTPSender struct {
	dialer dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, channel Channel, contact string, payload Payload) error {
	if channel != ChannelEmail {
		return fmt.Errorf("smtp: unsupported channel %s", channel)
	}
	if contact == "" {
		return ErrNoContact
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", contact)
	m.SetHeader("Subject", payload.Subject)
	m.SetBody("text/plain", payload.Body)
	if a := payload.Attachment; a != nil {
		m.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(a.Data)
			return err
		}))
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", contact, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no SMTP host is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "notification").Logger()}
}

func (s *LogSender) Send(_ context.Context, channel Channel, contact string, payload Payload) error {
	if contact == "" {
		return ErrNoContact
	}
	s.logger.Info().
		Str("channel", string(channel)).
		Str("to", contact).
		Str("subject", payload.Subject).
		Msg("notification not delivered: no smtp host configured")
	return nil
}

// ---------------------------------------------------------------------------
// Mock Sender (test double)
// ---------------------------------------------------------------------------

// Call records a single call to Send.
type Call struct {
	Channel Channel
	To      string
	Payload Payload
}

// MockSender is a test double for Sender.
type MockSender struct {
	mu         sync.Mutex
	calls      []Call
	ShouldFail bool
	FailError  string
}

// Send records the call and optionally returns an error.
func (m *MockSender) Send(_ context.Context, channel Channel, to string, payload Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Channel: channel, To: to, Payload: payload})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded calls.
func (m *MockSender) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
