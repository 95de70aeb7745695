package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/storage/memory"
)

const smallDataset = `
concepts:
  - name: Graph
    tags: [math]
    created_days_ago: 3
  - name: Tree
    tags: [math]
    created_days_ago: 1
relationships:
  - from: Tree
    to: Graph
    type: is_a
    weight: 0.9
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "concepts.yaml")
	writeFile(t, path, smallDataset)

	ds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(ds.Concepts) != 2 {
		t.Errorf("len(Concepts) = %d, want 2", len(ds.Concepts))
	}
	if len(ds.Relationships) != 1 {
		t.Errorf("len(Relationships) = %d, want 1", len(ds.Relationships))
	}
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) error = nil, want error")
	}

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "concepts: [")
	if _, err := LoadFile(bad); !errors.Is(err, concept.ErrInvalidDataset) {
		t.Errorf("LoadFile(bad) error = %v, want ErrInvalidDataset", err)
	}
}

func TestSeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("sample", func(t *testing.T) {
		t.Parallel()
		store := memory.NewConceptStore()
		if err := Seed(ctx, store, "", now); err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		n, _, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if want := len(concept.SampleDataset().Concepts); n != want {
			t.Errorf("concepts = %d, want %d", n, want)
		}
	})

	t.Run("file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "concepts.yaml")
		writeFile(t, path, smallDataset)

		store := memory.NewConceptStore()
		if err := Seed(ctx, store, path, now); err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		n, r, _ := store.Count(ctx)
		if n != 2 || r != 1 {
			t.Errorf("Count() = %d, %d, want 2, 1", n, r)
		}
	})
}

func TestNewWatcher_Validation(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, concept.Dataset) error { return nil }
	if _, err := NewWatcher("", noop); err == nil {
		t.Error("NewWatcher(\"\") error = nil, want error")
	}
	if _, err := NewWatcher("x.yaml", nil); err == nil {
		t.Error("NewWatcher(nil reload) error = nil, want error")
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "concepts.yaml")
	writeFile(t, path, "concepts: []\n")

	got := make(chan int, 4)
	w, err := NewWatcher(path, func(_ context.Context, ds concept.Dataset) error {
		got <- len(ds.Concepts)
		return nil
	}, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = w.Stop() }()

	writeFile(t, path, smallDataset)

	select {
	case n := <-got:
		if n != 2 {
			t.Errorf("reloaded concepts = %d, want 2", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload not observed")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "concepts.yaml")
	writeFile(t, path, smallDataset)

	w, err := NewWatcher(path, func(context.Context, concept.Dataset) error { return nil })
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
