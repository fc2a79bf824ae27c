package gestation

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/gestcare/gestcare/internal/platform/store"
)

func TestProfileRepo(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	repo := NewProfileRepo(s)

	if _, err := repo.Get(ctx, "u1"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	p := Resolve(ProfileInput{ID: "p1", UserID: "u1", LastMenstrualPeriod: ptrTime(date(2024, 1, 1))}, date(2024, 1, 29))
	if err := repo.Save(ctx, &p); err != nil {
		t.Fatalf("save: %v", err)
	}
	// unrelated keys must not show up as users
	_ = s.Save(ctx, store.Key("u2", "settings"), []byte(`{}`))

	got, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.LastMenstrualPeriod.Equal(p.LastMenstrualPeriod) || got.GestationalAge != 4 {
		t.Errorf("unexpected profile %+v", got)
	}

	ids, err := repo.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != "u1" {
		t.Errorf("expected [u1], got %v", ids)
	}

	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "u1"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound after delete, got %v", err)
	}
}

func TestProfileRepo_ListsUserIDsWithColons(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepo(store.NewMemory())
	for _, id := range []string{"google-oauth2:123", "u2"} {
		p := Resolve(ProfileInput{ID: "p-" + id, UserID: id, LastMenstrualPeriod: ptrTime(date(2024, 1, 1))}, date(2024, 1, 29))
		if err := repo.Save(ctx, &p); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	ids, err := repo.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "google-oauth2:123" || ids[1] != "u2" {
		t.Errorf("expected both users, got %v", ids)
	}
}
