package progress

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and for playing without a
// database. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.Mutex
	playerLevel int
	enemyLevel  int
	bestLevel   int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a MemoryStore with all levels at their default of 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{playerLevel: 1, enemyLevel: 1, bestLevel: 1}
}

// PlayerLevel returns the stored player level.
func (s *MemoryStore) PlayerLevel(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerLevel, nil
}

// SetPlayerLevel stores the player level.
func (s *MemoryStore) SetPlayerLevel(ctx context.Context, level int) error {
	if level < 1 {
		return ErrInvalidLevel
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerLevel = level
	return nil
}

// EnemyLevel returns the stored enemy level.
func (s *MemoryStore) EnemyLevel(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enemyLevel, nil
}

// SetEnemyLevel stores the enemy level.
func (s *MemoryStore) SetEnemyLevel(ctx context.Context, level int) error {
	if level < 1 {
		return ErrInvalidLevel
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enemyLevel = level
	return nil
}

// BestLevel returns the stored best level.
func (s *MemoryStore) BestLevel(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bestLevel, nil
}

// SetBestLevel stores the best level.
func (s *MemoryStore) SetBestLevel(ctx context.Context, level int) error {
	if level < 1 {
		return ErrInvalidLevel
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bestLevel = level
	return nil
}

// Reset restores player and enemy level to 1, leaving best level alone.
func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerLevel = 1
	s.enemyLevel = 1
	return nil
}
