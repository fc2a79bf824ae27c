package prenatal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gestcare/gestcare/internal/domain/gestation"
	"github.com/gestcare/gestcare/internal/domain/schedule"
	"github.com/gestcare/gestcare/internal/platform/store"
)

// Date accepts either a calendar date ("2024-01-31") or an RFC 3339
// timestamp. Calendar dates are read as local midnight.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format("2006-01-02"))
}

func (d *Date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// ProfileRequest is the onboarding / edit payload. Ages are entered as whole
// weeks plus days.
type ProfileRequest struct {
	Name                 string `json:"name"`
	Phone                string `json:"phone"`
	LastMenstrualPeriod  *Date  `json:"last_menstrual_period"`
	DueDate              *Date  `json:"due_date"`
	FirstUltrasoundDate  *Date  `json:"first_ultrasound_date"`
	FirstUltrasoundWeeks *int   `json:"first_ultrasound_weeks"`
	FirstUltrasoundDays  *int   `json:"first_ultrasound_days"`
	GestationalAgeWeeks  *int   `json:"gestational_age_weeks"`
	GestationalAgeDays   *int   `json:"gestational_age_days"`
}

// toInput converts the request into resolver input, collecting problems in
// the weeks+days pairs.
func (r ProfileRequest) toInput() (gestation.ProfileInput, []gestation.Problem) {
	in := gestation.ProfileInput{
		LastMenstrualPeriod: r.LastMenstrualPeriod.ptr(),
		DueDate:             r.DueDate.ptr(),
		FirstUltrasoundDate: r.FirstUltrasoundDate.ptr(),
	}
	var problems []gestation.Problem

	if r.FirstUltrasoundWeeks != nil {
		days := derefInt(r.FirstUltrasoundDays)
		if p := gestation.ValidateGestationalAge(*r.FirstUltrasoundWeeks, days); p != nil {
			p.Field = "first_ultrasound_gestational_age"
			problems = append(problems, *p)
		} else {
			age := gestation.WeeksAndDaysToDecimal(*r.FirstUltrasoundWeeks, days)
			in.FirstUltrasoundGestationalAge = &age
		}
	}
	if r.GestationalAgeWeeks != nil {
		days := derefInt(r.GestationalAgeDays)
		if p := gestation.ValidateGestationalAge(*r.GestationalAgeWeeks, days); p != nil {
			problems = append(problems, *p)
		} else {
			age := gestation.WeeksAndDaysToDecimal(*r.GestationalAgeWeeks, days)
			in.GestationalAge = &age
		}
	}
	return in, problems
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// ProfileView is a resolved profile plus its derived presentation fields.
type ProfileView struct {
	gestation.PregnancyProfile
	Weeks        int                `json:"weeks"`
	Days         int                `json:"days"`
	FormattedAge string             `json:"formatted_age"`
	Trimester    int                `json:"trimester"`
	DaysUntilDue int                `json:"days_until_due"`
	BabySize     gestation.BabySize `json:"baby_size"`
}

func newProfileView(p gestation.PregnancyProfile, now time.Time) ProfileView {
	w, d := gestation.DecimalToWeeksAndDays(p.GestationalAge)
	trimester := 1
	switch {
	case w >= 28:
		trimester = 3
	case w >= 14:
		trimester = 2
	}
	untilDue := int(gestation.StartOfDay(p.DueDate).Sub(gestation.StartOfDay(now)).Hours() / 24)
	if untilDue < 0 {
		untilDue = 0
	}
	return ProfileView{
		PregnancyProfile: p,
		Weeks:            w,
		Days:             d,
		FormattedAge:     gestation.FormatGestationalAge(p.GestationalAge),
		Trimester:        trimester,
		DaysUntilDue:     untilDue,
		BabySize:         gestation.BabySizeForAge(p.GestationalAge),
	}
}

// Dashboard is the landing view: the profile and the ordered exam list.
type Dashboard struct {
	Profile  ProfileView              `json:"profile"`
	Exams    []schedule.ScheduledExam `json:"exams"`
	NextExam *schedule.ScheduledExam  `json:"next_exam,omitempty"`
}

// -- Patient --

// ErrPatientNotFound is returned when no patient record exists.
var ErrPatientNotFound = errors.New("patient not found")

// Patient holds the contact details used in reminder and share messages.
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const patientKind = "user"

// PatientRepository persists one patient record per user.
type PatientRepository interface {
	Get(ctx context.Context, userID string) (*Patient, error)
	Save(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, userID string) error
}

type patientRepoStore struct {
	s store.Store
}

// NewPatientRepo returns a PatientRepository backed by a key-value store.
func NewPatientRepo(s store.Store) PatientRepository {
	return &patientRepoStore{s: s}
}

func (r *patientRepoStore) Get(ctx context.Context, userID string) (*Patient, error) {
	var p Patient
	err := store.LoadJSON(ctx, r.s, store.Key(userID, patientKind), &p)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoStore) Save(ctx context.Context, p *Patient) error {
	return store.SaveJSON(ctx, r.s, store.Key(p.ID, patientKind), p)
}

func (r *patientRepoStore) Delete(ctx context.Context, userID string) error {
	return r.s.Remove(ctx, store.Key(userID, patientKind))
}
