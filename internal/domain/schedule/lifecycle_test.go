package schedule

import (
	"errors"
	"testing"

	"github.com/gestcare/gestcare/internal/domain/protocol"
)

func TestLifecycle_ScheduleThenComplete(t *testing.T) {
	now := date(2024, 6, 1)
	exams := Generate(profileAt(18, now), protocol.Default(), "u1", now)
	id := ScheduledExamID("exam_3", "u1")
	var lc Lifecycle

	booked := date(2024, 6, 20)
	exams, err := lc.MarkAsScheduled(exams, id, booked, now, nil)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	e, _ := Find(exams, id)
	if e.Status != StatusScheduled || e.ScheduledDate == nil || !e.ScheduledDate.Equal(booked) {
		t.Fatalf("unexpected exam after scheduling: %+v", e)
	}

	done := date(2024, 6, 21)
	exams, err = lc.MarkAsCompleted(exams, id, done, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	e, _ = Find(exams, id)
	if e.Status != StatusCompleted || e.CompletedDate == nil || !e.CompletedDate.Equal(done) {
		t.Fatalf("unexpected exam after completing: %+v", e)
	}
	if e.ScheduledDate == nil {
		t.Error("expected scheduled date to be kept")
	}

	if _, err := lc.MarkAsScheduled(exams, id, booked, done, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := lc.MarkAsCompleted(exams, id, done, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected completing twice to fail, got %v", err)
	}
}

func TestLifecycle_CompleteFromPending(t *testing.T) {
	now := date(2024, 6, 1)
	exams := Generate(profileAt(18, now), protocol.Default(), "u1", now)
	id := ScheduledExamID("exam_3", "u1")

	out, err := Lifecycle{}.MarkAsCompleted(exams, id, now, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, _ := Find(out, id)
	if e.ScheduledDate != nil {
		t.Error("expected no scheduled date")
	}
	if orig, _ := Find(exams, id); orig.Status != StatusPending {
		t.Error("input collection was modified")
	}
}

func TestLifecycle_Reschedule(t *testing.T) {
	now := date(2024, 6, 1)
	exams := Generate(profileAt(18, now), protocol.Default(), "u1", now)
	id := ScheduledExamID("exam_3", "u1")
	var lc Lifecycle

	exams, _ = lc.MarkAsScheduled(exams, id, date(2024, 6, 20), now, nil)
	exams, err := lc.MarkAsScheduled(exams, id, date(2024, 6, 25), now, nil)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	e, _ := Find(exams, id)
	if !e.ScheduledDate.Equal(date(2024, 6, 25)) {
		t.Errorf("expected new date, got %v", e.ScheduledDate)
	}
}

func TestLifecycle_Missed(t *testing.T) {
	now := date(2024, 6, 1)
	exams := Generate(profileAt(25, now), protocol.Default(), "u1", now)
	id := ScheduledExamID("exam_1", "u1")

	if _, err := (Lifecycle{}).MarkAsScheduled(exams, id, now, now, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected scheduling a missed exam to fail, got %v", err)
	}
	if _, err := (Lifecycle{}).MarkAsCompleted(exams, id, now, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected late completion to be refused by default, got %v", err)
	}

	out, err := Lifecycle{AllowLateCompletion: true}.MarkAsCompleted(exams, id, now, nil)
	if err != nil {
		t.Fatalf("expected late completion to be allowed: %v", err)
	}
	if e, _ := Find(out, id); e.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", e.Status)
	}
}

func TestLifecycle_UnknownExam(t *testing.T) {
	now := date(2024, 6, 1)
	exams := Generate(profileAt(10, now), protocol.Default(), "u1", now)
	if _, err := (Lifecycle{}).MarkAsCompleted(exams, "nope", now, nil); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("expected ErrExamNotFound, got %v", err)
	}
}

func TestLifecycle_MarkReminderSent(t *testing.T) {
	now := date(2024, 6, 1)
	exams := Generate(profileAt(25, now), protocol.Default(), "u1", now)

	out, err := Lifecycle{}.MarkReminderSent(exams, ScheduledExamID("exam_4", "u1"), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e, _ := Find(out, ScheduledExamID("exam_4", "u1")); !e.ReminderSent || e.ReminderSentAt == nil {
		t.Errorf("expected reminder marked, got %+v", e)
	}
	if _, err := (Lifecycle{}).MarkReminderSent(exams, ScheduledExamID("exam_1", "u1"), now); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected missed exam to refuse reminder mark, got %v", err)
	}
}

func TestLifecycle_Notes(t *testing.T) {
	now := date(2024, 6, 1)
	exams := Generate(profileAt(18, now), protocol.Default(), "u1", now)
	id := ScheduledExamID("exam_3", "u1")
	var lc Lifecycle

	note := "  Clinic on Rua Augusta, bring previous reports "
	exams, err := lc.MarkAsScheduled(exams, id, date(2024, 6, 20), now, &note)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if e, _ := Find(exams, id); e.Notes != "Clinic on Rua Augusta, bring previous reports" {
		t.Fatalf("expected trimmed notes, got %q", e.Notes)
	}

	// nil keeps the notes
	exams, err = lc.MarkAsScheduled(exams, id, date(2024, 6, 25), now, nil)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if e, _ := Find(exams, id); e.Notes == "" {
		t.Fatal("expected notes to survive a reschedule without notes")
	}

	empty := ""
	exams, err = lc.MarkAsCompleted(exams, id, now, &empty)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if e, _ := Find(exams, id); e.Notes != "" {
		t.Errorf("expected notes cleared, got %q", e.Notes)
	}
}

func TestGenerate_CopiesPreparation(t *testing.T) {
	now := date(2024, 6, 1)
	exams := Generate(profileAt(18, now), protocol.Default(), "u1", now)
	for _, e := range exams {
		def, _ := protocol.Default().Get(e.ExamID)
		if e.Preparation == "" || e.Preparation != def.Preparation {
			t.Errorf("exam %s: expected preparation %q, got %q", e.ExamID, def.Preparation, e.Preparation)
		}
	}
}
