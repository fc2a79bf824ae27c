package gestation

import (
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func TestWeeksBetween(t *testing.T) {
	a := date(2024, 1, 1)
	if got := WeeksBetween(a, date(2024, 1, 29)); got != 4 {
		t.Errorf("expected 4 weeks, got %v", got)
	}
	if got := WeeksBetween(date(2024, 1, 29), a); got != -4 {
		t.Errorf("expected -4 weeks, got %v", got)
	}
	if got := WeeksBetween(a, date(2024, 1, 4)); math.Abs(got-3.0/7) > 1e-12 {
		t.Errorf("expected 3/7 weeks, got %v", got)
	}
}

func TestAddWeeksAndDays(t *testing.T) {
	a := date(2024, 1, 1)
	if got := AddWeeks(a, 2); !got.Equal(date(2024, 1, 15)) {
		t.Errorf("expected 2024-01-15, got %v", got)
	}
	if got := AddWeeks(a, 0.5); !got.Equal(a.Add(84 * time.Hour)) {
		t.Errorf("expected half a week later, got %v", got)
	}
	if got := AddDays(a, 280); !got.Equal(date(2024, 10, 7)) {
		t.Errorf("expected 2024-10-07, got %v", got)
	}
}

func TestClampWeeks(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-3, 0},
		{0, 0},
		{12.5, 12.5},
		{42, 42},
		{50, 42},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampWeeks(tt.in); got != tt.want {
			t.Errorf("ClampWeeks(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecimalWeeksAndDays(t *testing.T) {
	w, d := DecimalToWeeksAndDays(WeeksAndDaysToDecimal(12, 3))
	if w != 12 || d != 3 {
		t.Errorf("expected 12w3d, got %dw%dd", w, d)
	}
	w, d = DecimalToWeeksAndDays(-1)
	if w != 0 || d != 0 {
		t.Errorf("expected 0w0d for negative input, got %dw%dd", w, d)
	}
}

func TestFormatGestationalAge(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{WeeksAndDaysToDecimal(12, 3), "12 weeks and 3 days"},
		{WeeksAndDaysToDecimal(1, 1), "1 week and 1 day"},
		{0, "0 weeks and 0 days"},
	}
	for _, tt := range tests {
		if got := FormatGestationalAge(tt.in); got != tt.want {
			t.Errorf("FormatGestationalAge(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAtHour(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	in := time.Date(2024, 5, 10, 22, 45, 0, 0, loc)
	got := AtHour(in, 9)
	want := time.Date(2024, 5, 10, 9, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if !StartOfDay(in).Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, loc)) {
		t.Errorf("unexpected start of day %v", StartOfDay(in))
	}
}
