package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Entry is one audited event: a moderation action or a level-up.
type Entry struct {
	Kind   string // "mute" | "unmute" | "tagall" | "kick" | "promote" | "demote" | "levelup"
	Chat   string
	Actor  string
	Target string
	Detail string
	OK     bool
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Repository writes audit entries to Postgres. It is optional: the bot runs
// without it when no DATABASE_URL is configured.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Record(ctx context.Context, e Entry) error {
	if r == nil || r.db == nil {
		return nil
	}
	const q = `INSERT INTO crimson_audit (kind, chat, actor, target, detail, ok, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, q,
		strings.TrimSpace(e.Kind), e.Chat, e.Actor, e.Target, e.Detail, e.OK, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
