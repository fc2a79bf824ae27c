package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gestcare/gestcare/internal/platform/store"
)

// LeadTime is how many weeks before an exam window opens the user wants to
// be reminded.
type LeadTime int

// DefaultLeadTime applies until the user picks another value.
const DefaultLeadTime LeadTime = 2

var validLeadTimes = map[LeadTime]bool{1: true, 2: true, 4: true}

// ErrInvalidLeadTime is returned for a lead time outside {1, 2, 4}.
var ErrInvalidLeadTime = errors.New("reminder lead time must be 1, 2 or 4 weeks")

// Valid reports whether l is one of the supported lead times.
func (l LeadTime) Valid() bool {
	return validLeadTimes[l]
}

// Settings are the per-user reminder preferences.
type Settings struct {
	ReminderLeadWeeks LeadTime  `json:"reminder_lead_weeks"`
	RemindersEnabled  bool      `json:"reminders_enabled"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings of a user who never changed them.
func DefaultSettings() Settings {
	return Settings{ReminderLeadWeeks: DefaultLeadTime, RemindersEnabled: true}
}

// Validate checks the settings before they are stored.
func (s Settings) Validate() error {
	if !s.ReminderLeadWeeks.Valid() {
		return fmt.Errorf("%w: got %d", ErrInvalidLeadTime, s.ReminderLeadWeeks)
	}
	return nil
}

const settingsKind = "settings"

// SettingsRepository persists one settings blob per user.
type SettingsRepository interface {
	Get(ctx context.Context, userID string) (Settings, error)
	Save(ctx context.Context, userID string, s Settings) error
	Delete(ctx context.Context, userID string) error
}

type settingsRepoStore struct {
	s store.Store
}

// NewSettingsRepo returns a SettingsRepository backed by a key-value store.
// Users without stored settings get DefaultSettings.
func NewSettingsRepo(s store.Store) SettingsRepository {
	return &settingsRepoStore{s: s}
}

func (r *settingsRepoStore) Get(ctx context.Context, userID string) (Settings, error) {
	var s Settings
	err := store.LoadJSON(ctx, r.s, store.Key(userID, settingsKind), &s)
	if errors.Is(err, store.ErrNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	if !s.ReminderLeadWeeks.Valid() {
		s.ReminderLeadWeeks = DefaultLeadTime
	}
	return s, nil
}

func (r *settingsRepoStore) Save(ctx context.Context, userID string, s Settings) error {
	return store.SaveJSON(ctx, r.s, store.Key(userID, settingsKind), s)
}

func (r *settingsRepoStore) Delete(ctx context.Context, userID string) error {
	return r.s.Remove(ctx, store.Key(userID, settingsKind))
}
