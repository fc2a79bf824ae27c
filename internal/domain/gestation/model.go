package gestation

import "time"

// Source names the input that determined a profile's gestational age.
type Source string

const (
	SourceUltrasound     Source = "ultrasound"
	SourceLMP            Source = "lmp"
	SourceDueDate        Source = "due_date"
	SourceGestationalAge Source = "gestational_age"
	SourceNone           Source = "none"
)

// PregnancyProfile is the resolved pregnancy state of one user. After
// resolution GestationalAge, LastMenstrualPeriod and DueDate are always set
// and mutually consistent.
type PregnancyProfile struct {
	ID                            string     `json:"id"`
	UserID                        string     `json:"user_id"`
	LastMenstrualPeriod           time.Time  `json:"last_menstrual_period"`
	DueDate                       time.Time  `json:"due_date"`
	GestationalAge                float64    `json:"gestational_age"`
	FirstUltrasoundDate           *time.Time `json:"first_ultrasound_date,omitempty"`
	FirstUltrasoundGestationalAge *float64   `json:"first_ultrasound_gestational_age,omitempty"`
	Source                        Source     `json:"source"`
	CreatedAt                     time.Time  `json:"created_at"`
	UpdatedAt                     time.Time  `json:"updated_at"`
}

// HasUltrasoundAnchor reports whether both ultrasound fields are present.
func (p *PregnancyProfile) HasUltrasoundAnchor() bool {
	return p.FirstUltrasoundDate != nil && p.FirstUltrasoundGestationalAge != nil
}

// Input returns the profile's dating fields as resolver input.
func (p *PregnancyProfile) Input() ProfileInput {
	lmp := p.LastMenstrualPeriod
	due := p.DueDate
	age := p.GestationalAge
	return ProfileInput{
		ID:                            p.ID,
		UserID:                        p.UserID,
		LastMenstrualPeriod:           &lmp,
		DueDate:                       &due,
		GestationalAge:                &age,
		FirstUltrasoundDate:           p.FirstUltrasoundDate,
		FirstUltrasoundGestationalAge: p.FirstUltrasoundGestationalAge,
		CreatedAt:                     p.CreatedAt,
	}
}

// ProfileInput is a partial profile as captured at onboarding or edit time.
// Any subset of the dating fields may be present.
type ProfileInput struct {
	ID                            string     `json:"id,omitempty"`
	UserID                        string     `json:"user_id,omitempty"`
	LastMenstrualPeriod           *time.Time `json:"last_menstrual_period,omitempty"`
	DueDate                       *time.Time `json:"due_date,omitempty"`
	GestationalAge                *float64   `json:"gestational_age,omitempty"`
	FirstUltrasoundDate           *time.Time `json:"first_ultrasound_date,omitempty"`
	FirstUltrasoundGestationalAge *float64   `json:"first_ultrasound_gestational_age,omitempty"`
	CreatedAt                     time.Time  `json:"created_at,omitempty"`
}

func (in ProfileInput) hasUltrasoundAnchor() bool {
	return in.FirstUltrasoundDate != nil && in.FirstUltrasoundGestationalAge != nil
}
