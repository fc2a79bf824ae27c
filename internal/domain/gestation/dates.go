package gestation

import (
	"fmt"
	"math"
	"time"
)

const (
	// TermWeeks is the length of a full-term pregnancy counted from the LMP.
	TermWeeks = 40
	// TermDays is TermWeeks expressed in days (Naegele's rule).
	TermDays = 280
	// DaysPerWeek is the calendar week length used by every conversion.
	DaysPerWeek = 7
	// MaxWeeks bounds every computed gestational age.
	MaxWeeks = 42

	day  = 24 * time.Hour
	week = DaysPerWeek * day
)

// WeeksBetween returns the signed, fractional number of weeks from a to b.
// It is positive when b is after a.
func WeeksBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24 / DaysPerWeek
}

// AddWeeks returns t shifted by a fractional number of weeks.
func AddWeeks(t time.Time, weeks float64) time.Time {
	return t.Add(time.Duration(weeks * float64(week)))
}

// AddDays returns t shifted by whole calendar days.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// ClampWeeks bounds a gestational age to [0, MaxWeeks].
func ClampWeeks(weeks float64) float64 {
	if math.IsNaN(weeks) || weeks < 0 {
		return 0
	}
	if weeks > MaxWeeks {
		return MaxWeeks
	}
	return weeks
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AtHour returns t's calendar day at hour:00 in t's location.
func AtHour(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, t.Location())
}

// DecimalToWeeksAndDays splits a fractional age into completed weeks and
// remaining whole days.
func DecimalToWeeksAndDays(weeks float64) (int, int) {
	if weeks < 0 {
		weeks = 0
	}
	// epsilon absorbs float error from values built by WeeksAndDaysToDecimal
	w := int(math.Floor(weeks + 1e-9))
	d := int(math.Floor((weeks-float64(w))*DaysPerWeek + 1e-9))
	if d < 0 {
		d = 0
	}
	if d >= DaysPerWeek {
		d = DaysPerWeek - 1
	}
	return w, d
}

// WeeksAndDaysToDecimal is the inverse of DecimalToWeeksAndDays.
func WeeksAndDaysToDecimal(weeks, days int) float64 {
	return float64(weeks) + float64(days)/DaysPerWeek
}

// FormatGestationalAge renders an age as "12 weeks and 3 days".
func FormatGestationalAge(weeks float64) string {
	w, d := DecimalToWeeksAndDays(weeks)
	return fmt.Sprintf("%d %s and %d %s", w, plural(w, "week", "weeks"), d, plural(d, "day", "days"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
