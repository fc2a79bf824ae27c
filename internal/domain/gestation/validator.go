package gestation

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Tolerances bound how far independently supplied dating sources may
// disagree before a profile is rejected.
type Tolerances struct {
	LMPDueDateDays  int
	UltrasoundWeeks float64
}

// DefaultTolerances are the clinical defaults: 14 days between LMP and due
// date, 2 weeks between ultrasound and LMP dating.
func DefaultTolerances() Tolerances {
	return Tolerances{LMPDueDateDays: 14, UltrasoundWeeks: 2}
}

// Problem is one human-readable validation failure tied to an input field.
type Problem struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates every problem found in a profile input.
type ValidationError struct {
	Problems []Problem `json:"problems"`
}

func (e *ValidationError) Error() string {
	reasons := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		reasons = append(reasons, p.Field+": "+p.Reason)
	}
	return "invalid pregnancy profile: " + strings.Join(reasons, "; ")
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Problems = append(e.Problems, Problem{Field: field, Reason: fmt.Sprintf(format, args...)})
}

const dateLayout = "2006-01-02"

// ValidateLMP checks that the LMP lies between one year and one week before ref.
func ValidateLMP(lmp, ref time.Time) *Problem {
	switch {
	case lmp.After(ref):
		return &Problem{"last_menstrual_period", "cannot be in the future"}
	case lmp.After(AddDays(ref, -DaysPerWeek)):
		return &Problem{"last_menstrual_period", "must be at least one week ago"}
	case lmp.Before(ref.AddDate(-1, 0, 0)):
		return &Problem{"last_menstrual_period", "cannot be more than one year ago"}
	}
	return nil
}

// ValidateDueDate checks that the due date lies between one week and ten
// months after ref.
func ValidateDueDate(due, ref time.Time) *Problem {
	switch {
	case due.Before(ref):
		return &Problem{"due_date", "is in the past"}
	case due.Before(AddDays(ref, DaysPerWeek)):
		return &Problem{"due_date", "must be at least one week from now"}
	case due.After(ref.AddDate(0, 10, 0)):
		return &Problem{"due_date", "cannot be more than 10 months from now"}
	}
	return nil
}

// ValidateUltrasoundDate checks the scan date against ref and, when known,
// the LMP.
func ValidateUltrasoundDate(scan time.Time, lmp *time.Time, ref time.Time) *Problem {
	switch {
	case scan.After(ref):
		return &Problem{"first_ultrasound_date", "cannot be in the future"}
	case scan.Before(ref.AddDate(-1, 0, 0)):
		return &Problem{"first_ultrasound_date", "cannot be more than one year ago"}
	case lmp != nil && scan.Before(*lmp):
		return &Problem{"first_ultrasound_date", "cannot be before the last menstrual period"}
	}
	return nil
}

// ValidateGestationalAge checks a weeks+days pair as entered by a user.
func ValidateGestationalAge(weeks, days int) *Problem {
	if weeks < 0 || weeks > TermWeeks {
		return &Problem{"gestational_age", fmt.Sprintf("weeks must be between 0 and %d", TermWeeks)}
	}
	if days < 0 || days >= DaysPerWeek {
		return &Problem{"gestational_age", "days must be between 0 and 6"}
	}
	return nil
}

func validateAgeValue(field string, weeks float64) *Problem {
	if math.IsNaN(weeks) || weeks < 0 || weeks > TermWeeks {
		return &Problem{field, fmt.Sprintf("must be between 0 and %d weeks", TermWeeks)}
	}
	return nil
}

// CheckConsistency compares independently supplied sources. It never
// mutates anything and only reports disagreements beyond tol.
func CheckConsistency(in ProfileInput, tol Tolerances) []Problem {
	var ve ValidationError
	if in.LastMenstrualPeriod != nil && in.DueDate != nil {
		expected := DueDateFromLMP(*in.LastMenstrualPeriod)
		diff := int(math.Round(math.Abs(in.DueDate.Sub(expected).Hours()) / 24))
		if diff > tol.LMPDueDateDays {
			ve.add("due_date",
				"%s differs by %d days from %s calculated from the last menstrual period (tolerance %d days)",
				in.DueDate.Format(dateLayout), diff, expected.Format(dateLayout), tol.LMPDueDateDays)
		}
	}
	if in.LastMenstrualPeriod != nil && in.hasUltrasoundAnchor() {
		expected := WeeksBetween(*in.LastMenstrualPeriod, *in.FirstUltrasoundDate)
		supplied := *in.FirstUltrasoundGestationalAge
		if math.Abs(supplied-expected) > tol.UltrasoundWeeks {
			ve.add("first_ultrasound_gestational_age",
				"%.1f weeks differs from %.1f weeks calculated from the last menstrual period (tolerance %.0f weeks)",
				supplied, expected, tol.UltrasoundWeeks)
		}
	}
	return ve.Problems
}

// ValidateProfile runs every field check on the supplied fields plus the
// cross-source consistency checks. It returns a *ValidationError listing all
// problems, or nil.
func ValidateProfile(in ProfileInput, ref time.Time, tol Tolerances) error {
	ve := &ValidationError{}
	collect := func(p *Problem) {
		if p != nil {
			ve.Problems = append(ve.Problems, *p)
		}
	}

	if in.LastMenstrualPeriod != nil {
		collect(ValidateLMP(*in.LastMenstrualPeriod, ref))
	}
	if in.DueDate != nil {
		collect(ValidateDueDate(*in.DueDate, ref))
	}
	if in.FirstUltrasoundDate != nil {
		collect(ValidateUltrasoundDate(*in.FirstUltrasoundDate, in.LastMenstrualPeriod, ref))
	}
	if in.FirstUltrasoundGestationalAge != nil {
		collect(validateAgeValue("first_ultrasound_gestational_age", *in.FirstUltrasoundGestationalAge))
	}
	if in.FirstUltrasoundDate != nil && in.FirstUltrasoundGestationalAge == nil {
		ve.add("first_ultrasound_gestational_age", "is required when first_ultrasound_date is set")
	}
	if in.FirstUltrasoundGestationalAge != nil && in.FirstUltrasoundDate == nil {
		ve.add("first_ultrasound_date", "is required when first_ultrasound_gestational_age is set")
	}
	if in.GestationalAge != nil {
		collect(validateAgeValue("gestational_age", *in.GestationalAge))
	}

	ve.Problems = append(ve.Problems, CheckConsistency(in, tol)...)

	if len(ve.Problems) > 0 {
		return ve
	}
	return nil
}
