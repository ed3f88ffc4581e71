package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/lingopipe/internal/store"
)

// backends builds each Storage implementation over a temp location.
func backends(t *testing.T) map[string]store.Storage {
	t.Helper()

	sqlite, err := store.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	file, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	return map[string]store.Storage{"sqlite": sqlite, "file": file}
}

func TestStorage_PutGetRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
				t.Errorf("absent key: ok=%v err=%v", ok, err)
			}

			value := []byte(`{"texts":{"greet":"Hello"}}`)
			if err := s.Put(ctx, "diffstate:en:uk", value, 0); err != nil {
				t.Fatalf("Put: %v", err)
			}

			got, ok, err := s.Get(ctx, "diffstate:en:uk")
			if err != nil || !ok {
				t.Fatalf("Get: ok=%v err=%v", ok, err)
			}
			if string(got) != string(value) {
				t.Errorf("value mismatch: %q", got)
			}

			if has, err := s.Has(ctx, "diffstate:en:uk"); err != nil || !has {
				t.Errorf("Has: %v %v", has, err)
			}
		})
	}
}

func TestStorage_Overwrite(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			s.Put(ctx, "k", []byte("v1"), 0)
			if err := s.Put(ctx, "k", []byte("v2"), 0); err != nil {
				t.Fatalf("overwrite: %v", err)
			}

			got, _, _ := s.Get(ctx, "k")
			if string(got) != "v2" {
				t.Errorf("expected v2, got %q", got)
			}
		})
	}
}

func TestStorage_Delete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			s.Put(ctx, "k", []byte("v"), 0)
			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "k"); ok {
				t.Error("key survived delete")
			}

			// Deleting an absent key is not an error.
			if err := s.Delete(ctx, "never-existed"); err != nil {
				t.Errorf("delete absent: %v", err)
			}
		})
	}
}

func TestStorage_Clear(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			s.Put(ctx, "a", []byte("1"), 0)
			s.Put(ctx, "b", []byte("2"), 0)
			if err := s.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			for _, k := range []string{"a", "b"} {
				if _, ok, _ := s.Get(ctx, k); ok {
					t.Errorf("key %s survived clear", k)
				}
			}
		})
	}
}

func TestStorage_TTLExpiry(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.Put(ctx, "ephemeral", []byte("v"), 10*time.Millisecond); err != nil {
				t.Fatalf("Put: %v", err)
			}
			time.Sleep(30 * time.Millisecond)

			if _, ok, err := s.Get(ctx, "ephemeral"); err != nil || ok {
				t.Errorf("expired entry should be absent: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestSQLite_ListAndStats(t *testing.T) {
	db, err := store.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	db.Put(ctx, "a", []byte("1234"), 0)
	db.Put(ctx, "b", []byte("56"), 0)

	entries, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Key != "a" && e.Key != "b" {
			t.Errorf("unexpected key %q", e.Key)
		}
		if e.UpdatedAt.IsZero() {
			t.Errorf("entry %s missing updated timestamp", e.Key)
		}
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 2 || stats.TotalBytes != 6 {
		t.Errorf("stats = %+v, want 2 entries / 6 bytes", stats)
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := store.NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := first.Put(ctx, "persisted", []byte("v"), 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	second, err := store.NewFile(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok, err := second.Get(ctx, "persisted")
	if err != nil || !ok || string(got) != "v" {
		t.Errorf("entry lost across reopen: %q ok=%v err=%v", got, ok, err)
	}
}
