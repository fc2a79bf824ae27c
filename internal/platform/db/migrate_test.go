package db

import (
	"testing"
	"testing/fstest"
	"time"
)

func TestLoadMigrations_SortOrder(t *testing.T) {
	src := fstest.MapFS{
		"010_later.sql":   {Data: []byte("SELECT 10;")},
		"002_second.sql":  {Data: []byte("SELECT 2;")},
		"001_first.sql":   {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("notes")},
		"notes_draft.sql": {Data: []byte("SELECT 0;")},
		"999.sql":         {Data: []byte("SELECT 999;")},
	}
	m := NewMigrator(nil, src)

	migs, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	want := []int{1, 2, 10}
	for i, v := range want {
		if migs[i].Version != v {
			t.Errorf("migration %d: expected version %d, got %d", i, v, migs[i].Version)
		}
	}
	if migs[0].SQL != "SELECT 1;" {
		t.Errorf("expected SQL to be loaded, got %q", migs[0].SQL)
	}
}

func TestLoadMigrations_Empty(t *testing.T) {
	m := NewMigrator(nil, fstest.MapFS{})
	migs, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migs) != 0 {
		t.Errorf("expected no migrations, got %d", len(migs))
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	m := NewMigrator(nil, Migrations())
	migs, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migs) == 0 {
		t.Fatal("expected embedded migrations")
	}
	if migs[0].Version != 1 || migs[0].Name != "001_kv_store.sql" {
		t.Errorf("unexpected first migration: %+v", migs[0])
	}
}

func TestPendingAndStatuses(t *testing.T) {
	migs := []Migration{
		{Version: 1, Name: "001_a.sql"},
		{Version: 2, Name: "002_b.sql"},
		{Version: 3, Name: "003_c.sql"},
	}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	done := map[int]time.Time{1: at, 3: at}

	p := pending(migs, done)
	if len(p) != 1 || p[0].Version != 2 {
		t.Errorf("expected only version 2 pending, got %+v", p)
	}

	st := statuses(migs, done)
	if len(st) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(st))
	}
	if !st[0].Applied || st[0].AppliedAt == nil || !st[0].AppliedAt.Equal(at) {
		t.Errorf("expected version 1 applied at %v, got %+v", at, st[0])
	}
	if st[1].Applied || st[1].AppliedAt != nil {
		t.Errorf("expected version 2 pending, got %+v", st[1])
	}
}
