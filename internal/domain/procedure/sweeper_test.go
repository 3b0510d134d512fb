package procedure

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cliniops/cliniops/internal/platform/artifact"
)

func TestSweeperDrainsBacklog(t *testing.T) {
	store := artifact.NewMemoryStore()
	if _, err := store.Put(context.Background(), "procedures/a/before.png", strings.NewReader("x"), "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}

	sweeper := NewArtifactSweeper(store, time.Hour, zerolog.Nop())
	sweeper.Add("procedures/a/before.png")
	sweeper.Add("procedures/b/after.png") // already gone; delete is idempotent

	removed, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if sweeper.Pending() != 0 {
		t.Errorf("pending = %d, want 0", sweeper.Pending())
	}
	if store.Len() != 0 {
		t.Errorf("store len = %d, want 0", store.Len())
	}
}

func TestSweeperRequeuesFailures(t *testing.T) {
	store := &failingStore{MemoryStore: artifact.NewMemoryStore(), deleteErr: errors.New("store unavailable")}
	sweeper := NewArtifactSweeper(store, time.Hour, zerolog.Nop())
	sweeper.Add("procedures/a/before.png")

	removed, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if sweeper.Pending() != 1 {
		t.Errorf("pending = %d, want 1 after failed delete", sweeper.Pending())
	}
}

func TestSweeperGivesUpAfterMaxAge(t *testing.T) {
	store := &failingStore{MemoryStore: artifact.NewMemoryStore(), deleteErr: errors.New("store unavailable")}
	sweeper := NewArtifactSweeper(store, time.Nanosecond, zerolog.Nop())
	sweeper.Add("procedures/a/before.png")

	time.Sleep(time.Millisecond)
	if _, err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sweeper.Pending() != 0 {
		t.Errorf("pending = %d, want 0 after giving up", sweeper.Pending())
	}
}
