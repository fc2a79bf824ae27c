package reminder

import (
	"context"
	"testing"

	"github.com/gestcare/gestcare/internal/platform/store"
)

func TestSettingsRepo(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	repo := NewSettingsRepo(s)

	got, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != DefaultSettings() {
		t.Errorf("expected defaults, got %+v", got)
	}

	if err := repo.Save(ctx, "u1", Settings{ReminderLeadWeeks: 4, RemindersEnabled: true}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ = repo.Get(ctx, "u1")
	if got.ReminderLeadWeeks != 4 {
		t.Errorf("expected lead 4, got %d", got.ReminderLeadWeeks)
	}

	// a corrupted lead time falls back to the default
	_ = s.Save(ctx, store.Key("u2", "settings"), []byte(`{"reminder_lead_weeks":3,"reminders_enabled":true}`))
	got, _ = repo.Get(ctx, "u2")
	if got.ReminderLeadWeeks != DefaultLeadTime {
		t.Errorf("expected default lead, got %d", got.ReminderLeadWeeks)
	}

	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
