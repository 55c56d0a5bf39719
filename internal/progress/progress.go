// Package progress defines the persisted run-progress contract: the
// player level, enemy level, and best level that survive across matches.
package progress

import (
	"context"
	"errors"
)

// ErrStore marks a persistence failure. Store implementations wrap it so
// callers can distinguish storage trouble from engine errors; an
// in-progress match stays valid and playable when a Store call fails.
var ErrStore = errors.New("progress store unavailable")

// ErrInvalidLevel is returned by setters when the level is below 1.
var ErrInvalidLevel = errors.New("level must be >= 1")

// Store persists run progress. All getters default to 1 when no value has
// ever been written. Every setter must be durable before a subsequent
// read that depends on it returns.
type Store interface {
	// PlayerLevel returns the persisted player level (default 1).
	PlayerLevel(ctx context.Context) (int, error)
	// SetPlayerLevel persists the player level.
	//
	// Precondition: level >= 1.
	SetPlayerLevel(ctx context.Context, level int) error

	// EnemyLevel returns the persisted enemy level (default 1).
	EnemyLevel(ctx context.Context) (int, error)
	// SetEnemyLevel persists the enemy level.
	//
	// Precondition: level >= 1.
	SetEnemyLevel(ctx context.Context, level int) error

	// BestLevel returns the highest player level ever recorded (default 1).
	BestLevel(ctx context.Context) (int, error)
	// SetBestLevel persists the best level.
	//
	// Precondition: level >= 1.
	SetBestLevel(ctx context.Context, level int) error

	// Reset restores player and enemy level to 1. The best level is
	// deliberately left untouched.
	Reset(ctx context.Context) error
}
