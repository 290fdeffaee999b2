package progress

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisRepo(t *testing.T) *RedisRepository {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisRepositoryFromClient(rdb)
}

func TestRedisRepoEmptyLoad(t *testing.T) {
	repo := newRedisRepo(t)
	data, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty mapping, got %d entries", len(data))
	}
}

func TestRedisRepoRoundTrip(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()

	s := NewStore(repo)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.AddExperience(ctx, "u1", 105); err != nil {
		t.Fatalf("AddExperience: %v", err)
	}
	if err := s.StartGame(ctx, "u2"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	reloaded := NewStore(repo)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap := reloaded.Profile(ctx, "u1")
	if snap.Experience != 105 || snap.Level != 2 {
		t.Fatalf("u1 mismatch after reload: %+v", snap)
	}
	// u2's pending round survives the reload
	if _, err := reloaded.ResolveGuess(ctx, "u2", 0); errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("pending game lost across reload")
	}
}
