package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileRepository persists the mapping as a pretty-printed JSON document,
// the same format the bot has always used.
type FileRepository struct {
	path string
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) Load(ctx context.Context) (map[string]*UserProgress, error) {
	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return make(map[string]*UserProgress), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	var data map[string]*UserProgress
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	if data == nil {
		data = make(map[string]*UserProgress)
	}
	return data, nil
}

func (r *FileRepository) Save(ctx context.Context, data map[string]*UserProgress) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := os.WriteFile(r.path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	return nil
}
