// Package notification delivers exam reminders. It holds the message
// templates, an in-memory scheduler that fires due reminders through a push
// sender, and a Kafka scheduler that hands reminders to an external delivery
// service.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Reminder
// ---------------------------------------------------------------------------

// Reminder status values.
const (
	StatusPending   = "pending"
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Reminder is one scheduled local notification about an exam.
type Reminder struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	ScheduledExamID string            `json:"scheduled_exam_id"`
	ExamID          string            `json:"exam_id"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Data            map[string]string `json:"data,omitempty"`
	FireAt          time.Time         `json:"fire_at"`
	Status          string            `json:"status"`
	Attempts        int               `json:"attempts"`
	CreatedAt       time.Time         `json:"created_at"`
	SentAt          *time.Time        `json:"sent_at,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Sender
// ---------------------------------------------------------------------------

// PushSender delivers a rendered reminder to the user's device.
type PushSender interface {
	SendPush(ctx context.Context, userID, title, body string, data map[string]string) error
}

// LogSender writes reminders to the log. It is the development sender.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) SendPush(_ context.Context, userID, title, body string, data map[string]string) error {
	s.Logger.Info().
		Str("user_id", userID).
		Str("title", title).
		Str("exam_id", data["exam_id"]).
		Msg(body)
	return nil
}

// PushCall records a single call to SendPush.
type PushCall struct {
	UserID string
	Title  string
	Body   string
}

// MockPushSender is a test double for PushSender.
type MockPushSender struct {
	mu         sync.Mutex
	calls      []PushCall
	ShouldFail bool
	FailError  string
}

func (m *MockPushSender) SendPush(_ context.Context, userID, title, body string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, PushCall{UserID: userID, Title: title, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded push calls.
func (m *MockPushSender) Calls() []PushCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PushCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template IDs known to the engine.
const (
	TemplateExamReminder = "exam-reminder"
	TemplateShareSummary = "share-summary"
	TemplateWhatsApp     = "whatsapp-schedule"
)

// Template defines a reusable message with {{key}} placeholders.
type Template struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// TemplateEngine manages templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:    TemplateExamReminder,
			Name:  "Exam Reminder",
			Title: "Time to schedule your {{exam_name}}",
			Body:  "Hello, {{patient_name}}! It's almost time for your {{exam_name}} (ideal between {{window_start}}-{{window_end}} weeks). Tap to schedule!",
		},
		{
			ID:    TemplateShareSummary,
			Name:  "Schedule Summary",
			Title: "Prenatal ultrasound schedule",
			Body:  "{{patient_name}} is at {{gestational_age}}, due on {{due_date}}. Completed: {{completed}}, scheduled: {{scheduled}}, pending: {{pending}}, missed: {{missed}}.",
		},
		{
			ID:    TemplateWhatsApp,
			Name:  "WhatsApp Scheduling Request",
			Title: "",
			Body:  "Hello! My name is {{patient_name}} and I would like to schedule the {{exam_name}}. I am at {{gestational_age}} of pregnancy.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render performs {{key}} replacement on a template's title and body. Keys
// absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (title, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	title = t.Title
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		title = strings.ReplaceAll(title, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return title, body, nil
}
