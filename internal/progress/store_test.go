package progress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xp.json")
	s := NewStore(NewFileRepository(path), opts...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s, path
}

func TestProfileDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	snap := s.Profile(context.Background(), "u1")
	if snap.Experience != 0 || snap.Level != 1 {
		t.Fatalf("expected {0,1}, got {%d,%d}", snap.Experience, snap.Level)
	}
}

func TestAddExperienceLevelUpOnceAtThreshold(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// climb to 99 XP without crossing the level-1 threshold
	for i := 0; i < 33; i++ {
		res, err := s.AddExperience(ctx, "u1", 3)
		if err != nil {
			t.Fatalf("AddExperience: %v", err)
		}
		if res.LeveledUp {
			t.Fatalf("unexpected level-up at %d XP", res.Experience)
		}
	}

	res, err := s.AddExperience(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("AddExperience: %v", err)
	}
	if !res.LeveledUp || res.Level != 2 || res.Experience != 100 {
		t.Fatalf("expected single level-up to 2 at 100 XP, got %+v", res)
	}

	// the very next grant must not fire another level-up signal
	res, err = s.AddExperience(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("AddExperience: %v", err)
	}
	if res.LeveledUp {
		t.Fatalf("level-up fired twice: %+v", res)
	}
}

func TestAddExperienceSingleLevelPerCall(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// 500 XP crosses several thresholds but only one level is gained per call
	res, err := s.AddExperience(ctx, "u1", 500)
	if err != nil {
		t.Fatalf("AddExperience: %v", err)
	}
	if !res.LeveledUp || res.Level != 2 {
		t.Fatalf("expected exactly one level gained, got %+v", res)
	}
}

func TestResolveGuessNoActiveGame(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.ResolveGuess(context.Background(), "u1", 5); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("expected ErrNoActiveGame, got %v", err)
	}
}

func TestGameCorrectGuessAwardsAndClears(t *testing.T) {
	s, _ := newTestStore(t, WithRandSource(func(n int) int { return 6 })) // draws 7
	ctx := context.Background()

	if err := s.StartGame(ctx, "u1"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	res, err := s.ResolveGuess(ctx, "u1", 7)
	if err != nil {
		t.Fatalf("ResolveGuess: %v", err)
	}
	if !res.Correct || res.Grant.Experience != 20 {
		t.Fatalf("expected correct guess with +20 XP, got %+v", res)
	}
	if _, err := s.ResolveGuess(ctx, "u1", 7); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("pending number not cleared after resolve")
	}
}

func TestGameWrongGuessRevealsAndClears(t *testing.T) {
	s, _ := newTestStore(t, WithRandSource(func(n int) int { return 2 })) // draws 3
	ctx := context.Background()

	if err := s.StartGame(ctx, "u1"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	res, err := s.ResolveGuess(ctx, "u1", 9)
	if err != nil {
		t.Fatalf("ResolveGuess: %v", err)
	}
	if res.Correct || res.Number != 3 {
		t.Fatalf("expected wrong guess revealing 3, got %+v", res)
	}
	snap := s.Profile(ctx, "u1")
	if snap.Experience != 0 {
		t.Fatalf("wrong guess must not change XP, got %d", snap.Experience)
	}
	if _, err := s.ResolveGuess(ctx, "u1", 3); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("pending number not cleared after wrong guess")
	}
}

func TestFileRoundTrip(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddExperience(ctx, "u1", 47); err != nil {
		t.Fatalf("AddExperience: %v", err)
	}
	if _, err := s.AddExperience(ctx, "u2", 250); err != nil {
		t.Fatalf("AddExperience: %v", err)
	}

	reloaded := NewStore(NewFileRepository(path))
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s1 := reloaded.Profile(ctx, "u1")
	if s1.Experience != 47 || s1.Level != 1 {
		t.Fatalf("u1 mismatch after reload: %+v", s1)
	}
	s2 := reloaded.Profile(ctx, "u2")
	if s2.Experience != 250 || s2.Level != 2 {
		t.Fatalf("u2 mismatch after reload: %+v", s2)
	}
}

func TestLoadMalformedFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xp.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewStore(NewFileRepository(path))
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load should degrade softly, got %v", err)
	}
	snap := s.Profile(context.Background(), "u1")
	if snap.Experience != 0 || snap.Level != 1 {
		t.Fatalf("expected empty mapping defaults, got %+v", snap)
	}
}
