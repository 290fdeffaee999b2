package progress

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
)

var ErrNoActiveGame = errors.New("no active game")

const (
	// XP awarded for a correct guess.
	guessReward = 20
	gameMax     = 10
)

// Store owns the progression mapping. All mutating operations serialize
// through one mutex and write the full mapping back before returning.
type Store struct {
	mu     sync.Mutex
	repo   Repository
	data   map[string]*UserProgress
	intn   func(n int) int
	logger *zap.Logger
}

type StoreOption func(*Store)

// WithRandSource overrides the number draw, for tests.
func WithRandSource(intn func(n int) int) StoreOption {
	return func(s *Store) { s.intn = intn }
}

func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

func NewStore(repo Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo:   repo,
		data:   make(map[string]*UserProgress),
		intn:   rand.IntN,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the mapping from the repository. A missing or malformed
// backing document degrades to an empty mapping instead of failing startup.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warn("progress_load_failed", zap.Error(err))
		data = nil
	}
	if data == nil {
		data = make(map[string]*UserProgress)
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// AddExperience grants amount XP to user, creating the record if absent.
// At most one level is gained per call even when amount crosses several
// thresholds; that quirk is long-standing observed behavior and callers
// depend on the single level-up announcement.
func (s *Store) AddExperience(ctx context.Context, user string, amount int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.grantLocked(user, amount)
	if err := s.persistLocked(ctx); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Store) grantLocked(user string, amount int) Result {
	rec := s.recordLocked(user)
	rec.Experience += amount
	res := Result{Experience: rec.Experience, Level: rec.Level}
	if rec.Experience >= rec.Level*100 {
		rec.Level++
		res.Level = rec.Level
		res.LeveledUp = true
	}
	return res
}

// Profile returns the current snapshot, defaulting to {0,1} for unknown users.
func (s *Store) Profile(ctx context.Context, user string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[user]
	if !ok {
		return Snapshot{Experience: 0, Level: 1}
	}
	return Snapshot{Experience: rec.Experience, Level: rec.Level}
}

// StartGame draws a number in [1,10] and opens a guessing round for user.
// Starting again before resolving replaces the pending number.
func (s *Store) StartGame(ctx context.Context, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.intn(gameMax) + 1
	rec := s.recordLocked(user)
	rec.GameNumber = &n
	return s.persistLocked(ctx)
}

// ResolveGuess closes the round for user. Returns ErrNoActiveGame when no
// round is open. The pending number is cleared either way.
func (s *Store) ResolveGuess(ctx context.Context, user string, guess int) (GuessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[user]
	if !ok || rec.GameNumber == nil {
		return GuessResult{}, ErrNoActiveGame
	}
	number := *rec.GameNumber
	rec.GameNumber = nil

	res := GuessResult{Number: number}
	if guess == number {
		res.Correct = true
		res.Grant = s.grantLocked(user, guessReward)
	}
	if err := s.persistLocked(ctx); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Store) recordLocked(user string) *UserProgress {
	rec, ok := s.data[user]
	if !ok {
		rec = &UserProgress{Experience: 0, Level: 1}
		s.data[user] = rec
	}
	return rec
}

func (s *Store) persistLocked(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.data); err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}
	return nil
}
