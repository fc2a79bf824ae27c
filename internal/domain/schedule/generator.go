package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/gestcare/gestcare/internal/domain/gestation"
	"github.com/gestcare/gestcare/internal/domain/protocol"
)

// ScheduledExamID is the deterministic id of a catalog exam for a user.
func ScheduledExamID(examID, userID string) string {
	return fmt.Sprintf("scheduled_%s_%s", examID, userID)
}

// Generate instantiates every catalog exam for a resolved profile. Exams
// whose window already closed start as missed, the rest as pending. Callers
// generate once per user and never over an existing collection.
func Generate(p gestation.PregnancyProfile, catalog *protocol.Catalog, userID string, now time.Time) []ScheduledExam {
	defs := catalog.Exams()
	out := make([]ScheduledExam, 0, len(defs))
	for _, d := range defs {
		status := StatusPending
		if p.GestationalAge > d.WindowEndWeeks {
			status = StatusMissed
		}
		out = append(out, ScheduledExam{
			ID:                ScheduledExamID(d.ID, userID),
			ExamID:            d.ID,
			UserID:            userID,
			Name:              d.Name,
			Description:       d.Description,
			Preparation:       d.Preparation,
			WindowStartWeeks:  d.WindowStartWeeks,
			WindowEndWeeks:    d.WindowEndWeeks,
			WindowStartDate:   gestation.AddWeeks(p.LastMenstrualPeriod, d.WindowStartWeeks),
			WindowEndDate:     gestation.AddWeeks(p.LastMenstrualPeriod, d.WindowEndWeeks),
			ReminderLeadWeeks: d.ReminderLeadWeeks,
			Status:            status,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	return out
}

// Refresh applies the derived pending -> missed transition for the current
// age. Only pending exams are touched. The input slice is not modified.
func Refresh(exams []ScheduledExam, age float64, now time.Time) ([]ScheduledExam, bool) {
	out := clone(exams)
	changed := false
	for i := range out {
		if out[i].Status == StatusPending && out[i].Overdue(age) {
			out[i].Status = StatusMissed
			out[i].UpdatedAt = now
			changed = true
		}
	}
	return out, changed
}

// SortForDashboard orders exams with those currently in their window first,
// then by window start.
func SortForDashboard(exams []ScheduledExam, age float64) []ScheduledExam {
	out := clone(exams)
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].InWindow(age), out[j].InWindow(age)
		if wi != wj {
			return wi
		}
		return out[i].WindowStartWeeks < out[j].WindowStartWeeks
	})
	return out
}

// FilterByStatus returns exams in status st.
func FilterByStatus(exams []ScheduledExam, st Status) []ScheduledExam {
	var out []ScheduledExam
	for _, e := range exams {
		if e.Status == st {
			out = append(out, e)
		}
	}
	return out
}

// CountByStatus tallies exams per status. Every status is present.
func CountByStatus(exams []ScheduledExam) map[Status]int {
	counts := map[Status]int{
		StatusPending:   0,
		StatusScheduled: 0,
		StatusCompleted: 0,
		StatusMissed:    0,
	}
	for _, e := range exams {
		counts[e.Status]++
	}
	return counts
}

func clone(exams []ScheduledExam) []ScheduledExam {
	out := make([]ScheduledExam, len(exams))
	copy(out, exams)
	return out
}
