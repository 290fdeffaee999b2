package progress

import "context"

// UserProgress is one user's progression record. JSON field names match the
// on-disk format of the original xp.json data, so existing files load as-is.
type UserProgress struct {
	Experience int  `json:"xp"`
	Level      int  `json:"level"`
	GameNumber *int `json:"game,omitempty"`
}

// Snapshot is a read-only view of a user's progression.
type Snapshot struct {
	Experience int
	Level      int
}

// Result reports the outcome of an experience grant.
type Result struct {
	Experience int
	Level      int
	LeveledUp  bool
}

// GuessResult reports the outcome of a resolved guessing round.
type GuessResult struct {
	Correct bool
	Number  int // the drawn number, revealed on a wrong guess
	Grant   Result
}

// Repository persists the full progression mapping.
type Repository interface {
	Load(ctx context.Context) (map[string]*UserProgress, error)
	Save(ctx context.Context, data map[string]*UserProgress) error
}
