// Package reminder decides when a user should be nudged to book an exam and
// replaces the user's scheduled reminders with a freshly computed set.
package reminder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gestcare/gestcare/internal/domain/gestation"
	"github.com/gestcare/gestcare/internal/domain/schedule"
	"github.com/gestcare/gestcare/internal/platform/notification"
)

// DefaultHour is the local time-of-day reminders fire at.
const DefaultHour = 9

// SkipReason explains why no reminder was produced for an exam.
type SkipReason string

const (
	SkipNotPending   SkipReason = "not_pending"
	SkipAlreadySent  SkipReason = "already_sent"
	SkipLeadPassed   SkipReason = "lead_window_passed"
	SkipFireTimePast SkipReason = "fire_time_past"
)

// Decision is the outcome of ShouldRemind.
type Decision struct {
	Remind       bool
	ReminderWeek float64
	FireAt       time.Time
	Skip         SkipReason
}

// ShouldRemind decides whether exam needs a reminder at gestational age age.
// The reminder week is the window start minus lead; once the pregnancy has
// reached it no reminder is produced. The fire time is projected forward
// from now and moved to hour:00 local on that day, and is dropped when that
// lands in the past.
func ShouldRemind(exam schedule.ScheduledExam, age float64, lead LeadTime, now time.Time, hour int) Decision {
	d := Decision{ReminderWeek: exam.WindowStartWeeks - float64(lead)}
	switch {
	case exam.Status != schedule.StatusPending:
		d.Skip = SkipNotPending
		return d
	case exam.ReminderSent:
		d.Skip = SkipAlreadySent
		return d
	case age >= d.ReminderWeek:
		d.Skip = SkipLeadPassed
		return d
	}

	fireAt := gestation.AtHour(gestation.AddWeeks(now, d.ReminderWeek-age), hour)
	if fireAt.Before(now) {
		d.Skip = SkipFireTimePast
		return d
	}
	d.Remind = true
	d.FireAt = fireAt
	return d
}

// Scheduler is the notification collaborator reminders are handed to.
type Scheduler interface {
	Schedule(ctx context.Context, r notification.Reminder, fireAt time.Time) (string, error)
	CancelAll(ctx context.Context, userID string) error
}

// Planned is one reminder accepted by the scheduler.
type Planned struct {
	ReminderID      string    `json:"reminder_id"`
	ScheduledExamID string    `json:"scheduled_exam_id"`
	ExamID          string    `json:"exam_id"`
	ExamName        string    `json:"exam_name"`
	ReminderWeek    float64   `json:"reminder_week"`
	FireAt          time.Time `json:"fire_at"`
}

// Result summarises one batch refresh.
type Result struct {
	Scheduled []Planned          `json:"scheduled"`
	Skipped   map[SkipReason]int `json:"skipped"`
}

// Request carries everything a batch refresh needs for one user.
type Request struct {
	UserID      string
	PatientName string
	Age         float64
	Exams       []schedule.ScheduledExam
	Settings    Settings
	Now         time.Time
}

// Planner renders and schedules reminders for a user's exam collection.
type Planner struct {
	scheduler Scheduler
	templates *notification.TemplateEngine
	hour      int
}

// NewPlanner creates a Planner firing reminders at hour:00 local time.
func NewPlanner(s Scheduler, templates *notification.TemplateEngine, hour int) *Planner {
	if templates == nil {
		templates = notification.NewTemplateEngine()
	}
	return &Planner{scheduler: s, templates: templates, hour: hour}
}

// Refresh cancels every existing reminder of the user and schedules a new
// set, so repeated refreshes never accumulate duplicates.
func (p *Planner) Refresh(ctx context.Context, req Request) (Result, error) {
	res := Result{Skipped: make(map[SkipReason]int)}
	if err := p.scheduler.CancelAll(ctx, req.UserID); err != nil {
		return res, fmt.Errorf("cancel reminders for %s: %w", req.UserID, err)
	}
	if !req.Settings.RemindersEnabled {
		return res, nil
	}

	for _, exam := range req.Exams {
		d := ShouldRemind(exam, req.Age, leadFor(req.Settings, exam), req.Now, p.hour)
		if !d.Remind {
			res.Skipped[d.Skip]++
			continue
		}

		r, err := p.render(req, exam)
		if err != nil {
			return res, err
		}
		id, err := p.scheduler.Schedule(ctx, r, d.FireAt)
		if err != nil {
			return res, fmt.Errorf("schedule reminder for %s: %w", exam.ID, err)
		}
		res.Scheduled = append(res.Scheduled, Planned{
			ReminderID:      id,
			ScheduledExamID: exam.ID,
			ExamID:          exam.ExamID,
			ExamName:        exam.Name,
			ReminderWeek:    d.ReminderWeek,
			FireAt:          d.FireAt,
		})
	}
	return res, nil
}

// leadFor picks the user's lead time, falling back to the exam's own
// protocol lead when the settings carry no valid value.
func leadFor(s Settings, exam schedule.ScheduledExam) LeadTime {
	if s.ReminderLeadWeeks.Valid() {
		return s.ReminderLeadWeeks
	}
	if exam.ReminderLeadWeeks > 0 {
		return LeadTime(exam.ReminderLeadWeeks)
	}
	return DefaultLeadTime
}

// Clear cancels every reminder of the user.
func (p *Planner) Clear(ctx context.Context, userID string) error {
	if err := p.scheduler.CancelAll(ctx, userID); err != nil {
		return fmt.Errorf("cancel reminders for %s: %w", userID, err)
	}
	return nil
}

func (p *Planner) render(req Request, exam schedule.ScheduledExam) (notification.Reminder, error) {
	data := map[string]string{
		"patient_name": req.PatientName,
		"exam_name":    exam.Name,
		"window_start": formatWeeks(exam.WindowStartWeeks),
		"window_end":   formatWeeks(exam.WindowEndWeeks),
	}
	title, body, err := p.templates.Render(notification.TemplateExamReminder, data)
	if err != nil {
		return notification.Reminder{}, err
	}
	return notification.Reminder{
		UserID:          req.UserID,
		ScheduledExamID: exam.ID,
		ExamID:          exam.ExamID,
		Title:           title,
		Body:            body,
		Data: map[string]string{
			"scheduled_exam_id": exam.ID,
			"exam_id":           exam.ExamID,
		},
		CreatedAt: req.Now,
	}, nil
}

func formatWeeks(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
