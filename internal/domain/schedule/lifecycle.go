package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrExamNotFound is returned when an id matches no exam in the collection.
	ErrExamNotFound = errors.New("scheduled exam not found")
	// ErrInvalidTransition is returned for a transition the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid exam status transition")
)

// Lifecycle applies user-driven transitions to an exam collection. The
// collection passed in is never modified; a new one is returned.
//
//	pending   -> scheduled, completed
//	scheduled -> scheduled (new date), completed
//	missed    -> completed only when AllowLateCompletion is set
//	completed -> (none)
type Lifecycle struct {
	AllowLateCompletion bool
}

func (l Lifecycle) allowed(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusScheduled || to == StatusCompleted
	case StatusScheduled:
		return to == StatusScheduled || to == StatusCompleted
	case StatusMissed:
		return to == StatusCompleted && l.AllowLateCompletion
	}
	return false
}

// CanTransition reports whether from -> to is permitted.
func (l Lifecycle) CanTransition(from, to Status) bool {
	return l.allowed(from, to)
}

// MarkAsScheduled books an exam for date. A non-nil notes replaces the
// exam's notes; nil keeps them.
func (l Lifecycle) MarkAsScheduled(exams []ScheduledExam, id string, date, now time.Time, notes *string) ([]ScheduledExam, error) {
	return l.apply(exams, id, StatusScheduled, func(e *ScheduledExam) {
		d := date
		e.ScheduledDate = &d
		setNotes(e, notes)
		e.UpdatedAt = now
	})
}

// MarkAsCompleted records the exam as done at now. A scheduled date, if any,
// is kept. Notes behave as in MarkAsScheduled.
func (l Lifecycle) MarkAsCompleted(exams []ScheduledExam, id string, now time.Time, notes *string) ([]ScheduledExam, error) {
	return l.apply(exams, id, StatusCompleted, func(e *ScheduledExam) {
		done := now
		e.CompletedDate = &done
		setNotes(e, notes)
		e.UpdatedAt = now
	})
}

func setNotes(e *ScheduledExam, notes *string) {
	if notes != nil {
		e.Notes = strings.TrimSpace(*notes)
	}
}

// MarkReminderSent records delivery of the exam's reminder. It is not a
// status transition and is accepted for pending and scheduled exams.
func (l Lifecycle) MarkReminderSent(exams []ScheduledExam, id string, at time.Time) ([]ScheduledExam, error) {
	out := clone(exams)
	i := indexOf(out, id)
	if i < 0 {
		return nil, ErrExamNotFound
	}
	if out[i].Status.Terminal() {
		return nil, fmt.Errorf("%w: exam %s is %s", ErrInvalidTransition, id, out[i].Status)
	}
	sent := at
	out[i].ReminderSent = true
	out[i].ReminderSentAt = &sent
	out[i].UpdatedAt = at
	return out, nil
}

func (l Lifecycle) apply(exams []ScheduledExam, id string, to Status, mutate func(*ScheduledExam)) ([]ScheduledExam, error) {
	out := clone(exams)
	i := indexOf(out, id)
	if i < 0 {
		return nil, ErrExamNotFound
	}
	from := out[i].Status
	if !l.allowed(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	out[i].Status = to
	mutate(&out[i])
	return out, nil
}

// Find returns the exam with id.
func Find(exams []ScheduledExam, id string) (ScheduledExam, bool) {
	i := indexOf(exams, id)
	if i < 0 {
		return ScheduledExam{}, false
	}
	return exams[i], true
}

func indexOf(exams []ScheduledExam, id string) int {
	for i := range exams {
		if exams[i].ID == id {
			return i
		}
	}
	return -1
}
