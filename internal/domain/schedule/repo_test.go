package schedule

import (
	"context"
	"testing"

	"github.com/gestcare/gestcare/internal/domain/protocol"
	"github.com/gestcare/gestcare/internal/platform/store"
)

func TestRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(store.NewMemory())

	got, err := repo.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty collection, got %d", len(got))
	}

	now := date(2024, 6, 1)
	exams := Generate(profileAt(12, now), protocol.Default(), "u1", now)
	if err := repo.Save(ctx, "u1", exams); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = repo.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 6 || got[0].ID != exams[0].ID || !got[0].WindowStartDate.Equal(exams[0].WindowStartDate) {
		t.Errorf("unexpected collection after reload: %+v", got)
	}

	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = repo.List(ctx, "u1")
	if len(got) != 0 {
		t.Errorf("expected empty collection after delete")
	}
}
