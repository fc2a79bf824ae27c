package schedule

import "time"

// Status is the lifecycle state of a scheduled exam.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
)

var validStatuses = map[Status]bool{
	StatusPending:   true,
	StatusScheduled: true,
	StatusCompleted: true,
	StatusMissed:    true,
}

// ParseStatus validates a status name coming from a request.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, validStatuses[st]
}

// Terminal reports whether no further user transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusMissed
}

// ScheduledExam is a catalog exam instantiated for one user. The window dates
// are fixed when the schedule is generated.
type ScheduledExam struct {
	ID                string     `json:"id"`
	ExamID            string     `json:"exam_id"`
	UserID            string     `json:"user_id"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Preparation       string     `json:"preparation,omitempty"`
	WindowStartWeeks  float64    `json:"window_start_weeks"`
	WindowEndWeeks    float64    `json:"window_end_weeks"`
	WindowStartDate   time.Time  `json:"window_start_date"`
	WindowEndDate     time.Time  `json:"window_end_date"`
	ReminderLeadWeeks int        `json:"reminder_lead_weeks"`
	Status            Status     `json:"status"`
	ScheduledDate     *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate     *time.Time `json:"completed_date,omitempty"`
	ReminderSent      bool       `json:"reminder_sent"`
	ReminderSentAt    *time.Time `json:"reminder_sent_at,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// InWindow reports whether age falls inside the exam's inclusive window.
func (e *ScheduledExam) InWindow(age float64) bool {
	return age >= e.WindowStartWeeks && age <= e.WindowEndWeeks
}

// Overdue reports whether age is past the end of the window.
func (e *ScheduledExam) Overdue(age float64) bool {
	return age > e.WindowEndWeeks
}
