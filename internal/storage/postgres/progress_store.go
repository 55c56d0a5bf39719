package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"duelgrounds/internal/progress"
)

// ProgressStore implements progress.Store on a single-row progress table.
// Writes upsert the row; reads of an absent row return the documented
// default of 1. Every failure wraps progress.ErrStore so the engine can
// tell storage trouble apart from its own errors.
type ProgressStore struct {
	db *pgxpool.Pool
}

var _ progress.Store = (*ProgressStore)(nil)

// NewProgressStore creates a ProgressStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the
// progress table migrated.
func NewProgressStore(db *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) level(ctx context.Context, column string) (int, error) {
	// column comes from the fixed call sites below, never from input.
	query := fmt.Sprintf("SELECT %s FROM progress WHERE id = 1", column)
	level := 1
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", progress.ErrStore, column, err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&level); err != nil {
			return 0, fmt.Errorf("%w: scanning %s: %v", progress.ErrStore, column, err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", progress.ErrStore, column, err)
	}
	return level, nil
}

func (s *ProgressStore) setLevel(ctx context.Context, column string, level int) error {
	if level < 1 {
		return progress.ErrInvalidLevel
	}
	query := fmt.Sprintf(`
		INSERT INTO progress (id, %[1]s) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET %[1]s = EXCLUDED.%[1]s, updated_at = NOW()`,
		column,
	)
	if _, err := s.db.Exec(ctx, query, level); err != nil {
		return fmt.Errorf("%w: writing %s: %v", progress.ErrStore, column, err)
	}
	return nil
}

// PlayerLevel returns the persisted player level (default 1).
func (s *ProgressStore) PlayerLevel(ctx context.Context) (int, error) {
	return s.level(ctx, "player_level")
}

// SetPlayerLevel persists the player level.
func (s *ProgressStore) SetPlayerLevel(ctx context.Context, level int) error {
	return s.setLevel(ctx, "player_level", level)
}

// EnemyLevel returns the persisted enemy level (default 1).
func (s *ProgressStore) EnemyLevel(ctx context.Context) (int, error) {
	return s.level(ctx, "enemy_level")
}

// SetEnemyLevel persists the enemy level.
func (s *ProgressStore) SetEnemyLevel(ctx context.Context, level int) error {
	return s.setLevel(ctx, "enemy_level", level)
}

// BestLevel returns the highest recorded player level (default 1).
func (s *ProgressStore) BestLevel(ctx context.Context) (int, error) {
	return s.level(ctx, "best_level")
}

// SetBestLevel persists the best level.
func (s *ProgressStore) SetBestLevel(ctx context.Context, level int) error {
	return s.setLevel(ctx, "best_level", level)
}

// Reset restores player and enemy level to 1. The best level survives a
// reset.
func (s *ProgressStore) Reset(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO progress (id, player_level, enemy_level) VALUES (1, 1, 1)
		ON CONFLICT (id) DO UPDATE SET
			player_level = 1, enemy_level = 1, updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("%w: resetting progress: %v", progress.ErrStore, err)
	}
	return nil
}
