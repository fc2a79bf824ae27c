package gestation

import (
	"math"
	"time"
)

// DueDateFromLMP applies Naegele's rule: LMP + 280 days.
func DueDateFromLMP(lmp time.Time) time.Time {
	return AddDays(lmp, TermDays)
}

// LMPFromDueDate is the exact inverse of DueDateFromLMP.
func LMPFromDueDate(due time.Time) time.Time {
	return AddDays(due, -TermDays)
}

// AgeFromLMP returns the clamped gestational age at ref for a given LMP.
func AgeFromLMP(lmp, ref time.Time) float64 {
	return ClampWeeks(WeeksBetween(lmp, ref))
}

// AgeFromDueDate returns the clamped gestational age at ref for a due date.
func AgeFromDueDate(due, ref time.Time) float64 {
	return ClampWeeks(TermWeeks - WeeksBetween(ref, due))
}

// AgeFromUltrasound projects an ultrasound measurement forward to ref.
func AgeFromUltrasound(scanDate time.Time, ageAtScan float64, ref time.Time) float64 {
	return ClampWeeks(ageAtScan + WeeksBetween(scanDate, ref))
}

// Resolve derives a complete profile from partial input at the reference
// time ref. The first available source wins: ultrasound anchor, LMP, due date,
// then a raw gestational age. A supplied LMP is kept; a missing one is
// derived as ref minus the resolved age. The due date is always LMP + 280
// days unless the due date itself was the source. With no usable source the age is 0 and the LMP is ref.
func Resolve(in ProfileInput, ref time.Time) PregnancyProfile {
	var (
		age    float64
		source Source
	)
	switch {
	case in.hasUltrasoundAnchor():
		age = AgeFromUltrasound(*in.FirstUltrasoundDate, *in.FirstUltrasoundGestationalAge, ref)
		source = SourceUltrasound
	case in.LastMenstrualPeriod != nil:
		age = AgeFromLMP(*in.LastMenstrualPeriod, ref)
		source = SourceLMP
	case in.DueDate != nil:
		age = AgeFromDueDate(*in.DueDate, ref)
		source = SourceDueDate
	case in.GestationalAge != nil:
		age = ClampWeeks(*in.GestationalAge)
		source = SourceGestationalAge
	default:
		age = 0
		source = SourceNone
	}

	var lmp time.Time
	if in.LastMenstrualPeriod != nil {
		lmp = *in.LastMenstrualPeriod
	} else {
		lmp = AddWeeks(ref, -age)
	}

	// A supplied due date survives only when it dated the pregnancy.
	due := DueDateFromLMP(lmp)
	if source == SourceDueDate {
		due = *in.DueDate
	}

	created := in.CreatedAt
	if created.IsZero() {
		created = ref
	}

	return PregnancyProfile{
		ID:                            in.ID,
		UserID:                        in.UserID,
		LastMenstrualPeriod:           lmp,
		DueDate:                       due,
		GestationalAge:                age,
		FirstUltrasoundDate:           in.FirstUltrasoundDate,
		FirstUltrasoundGestationalAge: in.FirstUltrasoundGestationalAge,
		Source:                        source,
		CreatedAt:                     created,
		UpdatedAt:                     ref,
	}
}

const ageEpsilon = 1e-9

// Reconcile re-resolves a stored profile against now. The returned flag
// reports whether any derived field moved; callers persist only then. The
// profile's original Source is kept since it records how the pregnancy was
// dated at onboarding.
func Reconcile(p PregnancyProfile, now time.Time) (PregnancyProfile, bool) {
	next := Resolve(p.Input(), now)
	next.Source = p.Source
	if next.Source == "" {
		next.Source = SourceLMP
	}

	changed := math.Abs(next.GestationalAge-p.GestationalAge) > ageEpsilon ||
		!next.LastMenstrualPeriod.Equal(p.LastMenstrualPeriod) ||
		!next.DueDate.Equal(p.DueDate)
	if !changed {
		next.UpdatedAt = p.UpdatedAt
		return next, false
	}
	return next, true
}
