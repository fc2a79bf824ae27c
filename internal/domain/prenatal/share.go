package prenatal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gestcare/gestcare/internal/domain/gestation"
	"github.com/gestcare/gestcare/internal/domain/schedule"
	"github.com/gestcare/gestcare/internal/platform/notification"
)

// ErrNoClinicNumber is returned when no WhatsApp number is configured.
var ErrNoClinicNumber = errors.New("clinic whatsapp number is not configured")

// SummaryExam is one line of the shareable schedule.
type SummaryExam struct {
	Name            string          `json:"name"`
	Status          schedule.Status `json:"status"`
	WindowStartDate string          `json:"window_start_date"`
	WindowEndDate   string          `json:"window_end_date"`
	ScheduledDate   string          `json:"scheduled_date,omitempty"`
	CompletedDate   string          `json:"completed_date,omitempty"`
}

// Summary is a read-only snapshot handed to export and messaging.
type Summary struct {
	PatientName    string                  `json:"patient_name"`
	GestationalAge string                  `json:"gestational_age"`
	DueDate        string                  `json:"due_date"`
	Counts         map[schedule.Status]int `json:"counts"`
	Exams          []SummaryExam           `json:"exams"`
	Text           string                  `json:"text"`
	GeneratedAt    time.Time               `json:"generated_at"`
}

const shareDateLayout = "2006-01-02"

// ShareSummary builds the shareable snapshot of a user's schedule.
func (s *Service) ShareSummary(ctx context.Context, userID string) (*Summary, error) {
	d, err := s.Dashboard(ctx, userID)
	if err != nil {
		return nil, err
	}
	name := s.patientName(ctx, userID)
	counts := schedule.CountByStatus(d.Exams)

	sum := &Summary{
		PatientName:    name,
		GestationalAge: d.Profile.FormattedAge,
		DueDate:        d.Profile.DueDate.Format(shareDateLayout),
		Counts:         counts,
		GeneratedAt:    s.now(),
	}
	for _, e := range d.Exams {
		line := SummaryExam{
			Name:            e.Name,
			Status:          e.Status,
			WindowStartDate: e.WindowStartDate.Format(shareDateLayout),
			WindowEndDate:   e.WindowEndDate.Format(shareDateLayout),
		}
		if e.ScheduledDate != nil {
			line.ScheduledDate = e.ScheduledDate.Format(shareDateLayout)
		}
		if e.CompletedDate != nil {
			line.CompletedDate = e.CompletedDate.Format(shareDateLayout)
		}
		sum.Exams = append(sum.Exams, line)
	}

	_, text, err := s.templates.Render(notification.TemplateShareSummary, map[string]string{
		"patient_name":    name,
		"gestational_age": sum.GestationalAge,
		"due_date":        sum.DueDate,
		"completed":       strconv.Itoa(counts[schedule.StatusCompleted]),
		"scheduled":       strconv.Itoa(counts[schedule.StatusScheduled]),
		"pending":         strconv.Itoa(counts[schedule.StatusPending]),
		"missed":          strconv.Itoa(counts[schedule.StatusMissed]),
	})
	if err != nil {
		return nil, err
	}
	sum.Text = text
	return sum, nil
}

// WhatsAppLink returns a wa.me deep link asking the clinic to book examID.
func (s *Service) WhatsAppLink(ctx context.Context, userID, examID string) (string, error) {
	if s.clinic == "" {
		return "", ErrNoClinicNumber
	}
	d, err := s.Dashboard(ctx, userID)
	if err != nil {
		return "", err
	}
	exam, ok := schedule.Find(d.Exams, examID)
	if !ok {
		return "", schedule.ErrExamNotFound
	}

	_, text, err := s.templates.Render(notification.TemplateWhatsApp, map[string]string{
		"patient_name":    s.patientName(ctx, userID),
		"exam_name":       exam.Name,
		"gestational_age": gestation.FormatGestationalAge(d.Profile.GestationalAge),
	})
	if err != nil {
		return "", err
	}
	return BuildWhatsAppURL(s.clinic, text), nil
}

// BuildWhatsAppURL formats https://wa.me/<digits>?text=<message>.
func BuildWhatsAppURL(phone, message string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, text)
}

func (s *Service) patientName(ctx context.Context, userID string) string {
	p, err := s.repos.Patients.Get(ctx, userID)
	if err != nil {
		return ""
	}
	return p.Name
}
