package battle_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"duelgrounds/internal/config"
	"duelgrounds/internal/game/battle"
	"duelgrounds/internal/game/rng"
	"duelgrounds/internal/progress"
)

// scriptSrc serves a fixed sequence of draws and fails the test on any
// draw beyond the script. Over-long scripts are fine; a draw the engine
// should have skipped is not.
type scriptSrc struct {
	t      *testing.T
	ints   []int
	floats []float64
	i, f   int
}

func (s *scriptSrc) Intn(n int) int {
	if s.i >= len(s.ints) {
		s.t.Fatalf("unexpected Intn(%d): script exhausted after %d int draws", n, s.i)
	}
	v := s.ints[s.i]
	s.i++
	if v >= n {
		v = n - 1
	}
	return v
}

func (s *scriptSrc) Float64() float64 {
	if s.f >= len(s.floats) {
		s.t.Fatalf("unexpected Float64: script exhausted after %d float draws", s.f)
	}
	v := s.floats[s.f]
	s.f++
	return v
}

// matchConfig is a deterministic baseline: attacks always hit for exactly
// the attack stat, crits never trigger, and the enemy spawns at the
// player's level. Individual tests override what they exercise.
func matchConfig() config.GameConfig {
	return config.GameConfig{
		Player: config.SideConfig{
			Name:         "Hero",
			BaseHP:       100,
			HPGrowth:     1,
			BaseAttack:   20,
			AttackGrowth: 1.2,
			BaseSpeed:    10,
		},
		Enemy: config.SideConfig{
			Name:         "Rival",
			BaseHP:       3,
			HPGrowth:     1,
			BaseAttack:   1,
			AttackGrowth: 0,
			BaseSpeed:    5,
		},
		Balance: config.BalanceConfig{
			HitBase:         1,
			HitSpeedFactor:  0,
			HitMin:          1,
			HitMax:          1,
			DamageMinMult:   1,
			DamageMaxMult:   1,
			CritChance:      0,
			CritMult:        1.5,
			HealMinMult:     2,
			HealMaxMult:     3,
			DefenseConstant: 100,
			EnemyOffsetMin:  0,
			EnemyOffsetMax:  0,
			LevelUpAmount:   1,
		},
	}
}

func eventTypes(events []battle.Event) []battle.EventType {
	types := make([]battle.EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func requireEventTypes(t *testing.T, events []battle.Event, want ...battle.EventType) {
	t.Helper()
	got := eventTypes(events)
	if len(got) != len(want) {
		t.Fatalf("expected event types %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %v, got %v (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestMatch_WinPath(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()
	// Start draws the offset; the attack draws hit, damage span, crit.
	src := &scriptSrc{t: t, ints: []int{0, 0}, floats: []float64{0.5, 0.9}}

	m := battle.NewMatch(matchConfig(), "", src, store, nil)

	events, err := m.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	requireEventTypes(t, events, battle.EventTurnChanged)
	if m.Phase() != battle.PhasePlayerTurn {
		t.Fatalf("expected player turn after Start, got %v", m.Phase())
	}
	if m.Enemy().Name != "Rival" {
		t.Errorf("expected configured enemy name, got %q", m.Enemy().Name)
	}
	// Player level 1: 17 attack against the enemy's 2 HP ends it in one.
	if m.Player().Attack != 17 {
		t.Fatalf("expected player attack 17, got %d", m.Player().Attack)
	}
	if m.Enemy().MaxHP != 2 {
		t.Fatalf("expected enemy max HP 2, got %d", m.Enemy().MaxHP)
	}

	events, err = m.ChooseAttack(ctx)
	if err != nil {
		t.Fatalf("ChooseAttack: %v", err)
	}
	requireEventTypes(t, events,
		battle.EventHit, battle.EventDefeated, battle.EventLeveledUp, battle.EventMatchEnded)

	if events[0].Side != battle.SidePlayer || events[0].Amount != 17 {
		t.Errorf("expected player hit for 17, got %+v", events[0])
	}
	if events[2].NewLevel != 2 {
		t.Errorf("expected level-up to 2, got %d", events[2].NewLevel)
	}
	if events[3].Result != battle.ResultWon {
		t.Errorf("expected won result, got %v", events[3].Result)
	}

	if m.Phase() != battle.PhaseWon || m.Result() != battle.ResultWon {
		t.Errorf("expected terminal won phase, got %v / %v", m.Phase(), m.Result())
	}
	// Undamaged before the level-up, so the delta heal leaves the player full.
	if m.Player().Level != 2 || m.Player().CurrentHP != m.Player().MaxHP {
		t.Errorf("expected full level-2 player, got level %d at %d/%d",
			m.Player().Level, m.Player().CurrentHP, m.Player().MaxHP)
	}

	if level, _ := store.PlayerLevel(ctx); level != 2 {
		t.Errorf("expected persisted player level 2, got %d", level)
	}
	if best, _ := store.BestLevel(ctx); best != 2 {
		t.Errorf("expected persisted best level 2, got %d", best)
	}
}

func TestMatch_LossPath(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()

	cfg := matchConfig()
	cfg.Enemy.BaseAttack = 200
	cfg.Enemy.AttackGrowth = 1
	cfg.Enemy.BaseSpeed = 20 // enemy opens

	// Offset, then the opening enemy attack: hit, damage span, crit.
	src := &scriptSrc{t: t, ints: []int{0, 0}, floats: []float64{0.5, 0.9}}
	m := battle.NewMatch(cfg, "", src, store, nil)

	events, err := m.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// The faster enemy resolves its turn inside Start and one-shots the player.
	requireEventTypes(t, events, battle.EventHit, battle.EventDefeated, battle.EventMatchEnded)
	if events[0].Side != battle.SideEnemy {
		t.Errorf("expected the enemy to open, got %+v", events[0])
	}
	if events[2].Result != battle.ResultLost {
		t.Errorf("expected lost result, got %v", events[2].Result)
	}

	if m.Phase() != battle.PhaseLost || m.Result() != battle.ResultLost {
		t.Errorf("expected terminal lost phase, got %v / %v", m.Phase(), m.Result())
	}
	// A loss never resets progress; reset is a separate operation.
	if level, _ := store.PlayerLevel(ctx); level != 1 {
		t.Errorf("expected player level untouched at 1, got %d", level)
	}
}

func TestMatch_DefendMitigatesTheNextHit(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()

	cfg := matchConfig()
	cfg.Player.BaseDefense = 50
	// The enemy's attack stat is 1; a flat x20 multiplier makes the raw
	// roll exactly 20, which defense 50 at K=100 mitigates to 13.
	cfg.Balance.DamageMinMult = 20
	cfg.Balance.DamageMaxMult = 20

	src := &scriptSrc{t: t, ints: []int{0, 0}, floats: []float64{0.5, 0.9}}
	m := battle.NewMatch(cfg, "", src, store, nil)

	if _, err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	hpBefore := m.Player().CurrentHP

	events, err := m.ChooseDefend(ctx)
	if err != nil {
		t.Fatalf("ChooseDefend: %v", err)
	}
	requireEventTypes(t, events,
		battle.EventDefended, battle.EventTurnChanged, battle.EventHit, battle.EventTurnChanged)

	hit := events[2]
	if hit.Side != battle.SideEnemy || hit.Amount != 13 {
		t.Errorf("expected a mitigated enemy hit for 13, got %+v", hit)
	}
	if got := hpBefore - m.Player().CurrentHP; got != 13 {
		t.Errorf("expected 13 HP lost, got %d", got)
	}
	// The stance lapses when the player's next turn begins.
	if m.Player().IsDefending() {
		t.Error("expected the defend stance to lapse at the player's next turn")
	}
	if m.Phase() != battle.PhasePlayerTurn {
		t.Errorf("expected player turn, got %v", m.Phase())
	}
}

// TestMatch_MissSkipsDamageAndCritDraws relies on the script source
// failing the test on any extra draw: a miss must consume exactly one
// float and nothing else.
func TestMatch_MissSkipsDamageAndCritDraws(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()

	cfg := matchConfig()
	cfg.Balance.HitBase = 0.5
	cfg.Balance.HitMin = 0
	cfg.Balance.HitMax = 1

	// Offset, then one hit draw per side, both misses. No damage or crit
	// draws are scripted on purpose.
	src := &scriptSrc{t: t, ints: []int{0}, floats: []float64{0.9, 0.9}}
	m := battle.NewMatch(cfg, "", src, store, nil)

	if _, err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	playerHP, enemyHP := m.Player().CurrentHP, m.Enemy().CurrentHP

	events, err := m.ChooseAttack(ctx)
	if err != nil {
		t.Fatalf("ChooseAttack: %v", err)
	}
	requireEventTypes(t, events,
		battle.EventMissed, battle.EventTurnChanged, battle.EventMissed, battle.EventTurnChanged)

	if m.Player().CurrentHP != playerHP || m.Enemy().CurrentHP != enemyHP {
		t.Error("expected no HP change after two misses")
	}
	if m.Phase() != battle.PhasePlayerTurn {
		t.Errorf("expected play to continue, got %v", m.Phase())
	}
}

func TestMatch_HealApplies(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()

	// Offset; heal span draw; enemy hit, damage span, crit.
	src := &scriptSrc{t: t, ints: []int{0, 1, 0}, floats: []float64{0.5, 0.9}}
	m := battle.NewMatch(matchConfig(), "", src, store, nil)

	if _, err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Player().CurrentHP = 10

	events, err := m.ChooseHeal(ctx)
	if err != nil {
		t.Fatalf("ChooseHeal: %v", err)
	}
	requireEventTypes(t, events,
		battle.EventHealed, battle.EventTurnChanged, battle.EventHit, battle.EventTurnChanged)

	// Level 1 heal range is [2, 3]; the scripted span draw of 1 gives 3.
	if events[0].Amount != 3 {
		t.Errorf("expected a heal of 3, got %d", events[0].Amount)
	}
	// 10 + 3 healed - 1 from the enemy's counter.
	if m.Player().CurrentHP != 12 {
		t.Errorf("expected 12 HP, got %d", m.Player().CurrentHP)
	}
}

func TestMatch_HealAtFullIsAFreeReprompt(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()

	// Only the offset draw: a full-HP heal must consume nothing.
	src := &scriptSrc{t: t, ints: []int{0}, floats: nil}
	m := battle.NewMatch(matchConfig(), "", src, store, nil)

	if _, err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	events, err := m.ChooseHeal(ctx)
	if err != nil {
		t.Fatalf("ChooseHeal: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %v", eventTypes(events))
	}
	// The turn is not consumed.
	if m.Phase() != battle.PhasePlayerTurn {
		t.Errorf("expected the phase to stay at player turn, got %v", m.Phase())
	}
}

func TestMatch_ActionsOutOfPhase(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()
	src := &scriptSrc{t: t, ints: []int{0, 0}, floats: []float64{0.5, 0.9}}

	m := battle.NewMatch(matchConfig(), "", src, store, nil)

	// Before Start every action is a silent no-op.
	for name, action := range map[string]func(context.Context) ([]battle.Event, error){
		"attack": m.ChooseAttack,
		"heal":   m.ChooseHeal,
		"defend": m.ChooseDefend,
	} {
		events, err := action(ctx)
		if events != nil || err != nil {
			t.Errorf("%s before Start: expected silent no-op, got %v / %v", name, events, err)
		}
	}

	if _, err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.Start(ctx); !errors.Is(err, battle.ErrAlreadyStarted) {
		t.Errorf("second Start: expected ErrAlreadyStarted, got %v", err)
	}

	// Run to the terminal phase, then every action reports ErrMatchEnded.
	if _, err := m.ChooseAttack(ctx); err != nil {
		t.Fatalf("ChooseAttack: %v", err)
	}
	if !m.Phase().Terminal() {
		t.Fatalf("expected a terminal phase, got %v", m.Phase())
	}
	if _, err := m.ChooseAttack(ctx); !errors.Is(err, battle.ErrMatchEnded) {
		t.Errorf("attack after the end: expected ErrMatchEnded, got %v", err)
	}
	if _, err := m.ChooseHeal(ctx); !errors.Is(err, battle.ErrMatchEnded) {
		t.Errorf("heal after the end: expected ErrMatchEnded, got %v", err)
	}
	if _, err := m.ChooseDefend(ctx); !errors.Is(err, battle.ErrMatchEnded) {
		t.Errorf("defend after the end: expected ErrMatchEnded, got %v", err)
	}
}

func TestMatch_TieGoesToThePlayer(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()

	cfg := matchConfig()
	cfg.Enemy.BaseSpeed = cfg.Player.BaseSpeed

	src := &scriptSrc{t: t, ints: []int{0}, floats: nil}
	m := battle.NewMatch(cfg, "", src, store, nil)

	events, err := m.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	requireEventTypes(t, events, battle.EventTurnChanged)
	if events[0].Side != battle.SidePlayer {
		t.Errorf("expected the player to open on a speed tie, got %v", events[0].Side)
	}
}

// TestPropertyMatch_EnemyLevelOffset: for any seed the spawned enemy level
// stays within the configured inclusive offset range around the player level.
func TestPropertyMatch_EnemyLevelOffset(t *testing.T) {
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		store := progress.NewMemoryStore()
		playerLevel := rapid.IntRange(1, 40).Draw(rt, "playerLevel")
		if err := store.SetPlayerLevel(ctx, playerLevel); err != nil {
			rt.Fatalf("seeding player level: %v", err)
		}

		cfg := matchConfig()
		cfg.Balance.EnemyOffsetMin = -1
		cfg.Balance.EnemyOffsetMax = 2
		// Keep the enemy slower so Start stops at the player turn.
		cfg.Player.BaseSpeed = 100

		src := rng.NewSeededSource(rapid.Int64().Draw(rt, "seed"))
		m := battle.NewMatch(cfg, "", src, store, nil)
		if _, err := m.Start(ctx); err != nil {
			rt.Fatalf("Start: %v", err)
		}

		got := m.Enemy().Level
		low := playerLevel - 1
		if low < 1 {
			low = 1
		}
		if got < low || got > playerLevel+2 {
			rt.Errorf("enemy level %d outside [%d, %d] for player level %d",
				got, low, playerLevel+2, playerLevel)
		}
	})
}

func TestMatch_EnemyLevelFlooredAtOne(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore() // player level 1

	cfg := matchConfig()
	cfg.Balance.EnemyOffsetMin = -3
	cfg.Balance.EnemyOffsetMax = -3

	src := &scriptSrc{t: t, ints: []int{0}, floats: nil}
	m := battle.NewMatch(cfg, "", src, store, nil)

	if _, err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if m.Enemy().Level != 1 {
		t.Errorf("expected enemy level floored to 1, got %d", m.Enemy().Level)
	}
	if level, _ := store.EnemyLevel(ctx); level != 1 {
		t.Errorf("expected persisted enemy level 1, got %d", level)
	}
}

// failingStore wraps a working store and fails selected writes the way a
// broken database would.
type failingStore struct {
	progress.Store
	failEnemySet  bool
	failPlayerSet bool
}

func (f *failingStore) SetEnemyLevel(ctx context.Context, level int) error {
	if f.failEnemySet {
		return fmt.Errorf("%w: set enemy level: connection refused", progress.ErrStore)
	}
	return f.Store.SetEnemyLevel(ctx, level)
}

func (f *failingStore) SetPlayerLevel(ctx context.Context, level int) error {
	if f.failPlayerSet {
		return fmt.Errorf("%w: set player level: connection refused", progress.ErrStore)
	}
	return f.Store.SetPlayerLevel(ctx, level)
}

func TestMatch_StartSurvivesPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: progress.NewMemoryStore(), failEnemySet: true}

	src := &scriptSrc{t: t, ints: []int{0, 0}, floats: []float64{0.5, 0.9}}
	m := battle.NewMatch(matchConfig(), "", src, store, nil)

	events, err := m.Start(ctx)
	if !errors.Is(err, progress.ErrStore) {
		t.Fatalf("expected an error wrapping ErrStore, got %v", err)
	}
	// The match stays playable regardless.
	requireEventTypes(t, events, battle.EventTurnChanged)
	if m.Phase() != battle.PhasePlayerTurn {
		t.Fatalf("expected player turn despite the store failure, got %v", m.Phase())
	}

	if _, err := m.ChooseAttack(ctx); err != nil {
		t.Fatalf("ChooseAttack after a store failure: %v", err)
	}
	if m.Phase() != battle.PhaseWon {
		t.Errorf("expected the match to finish normally, got %v", m.Phase())
	}
}

func TestMatch_OutcomeStandsOnPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: progress.NewMemoryStore(), failPlayerSet: true}

	src := &scriptSrc{t: t, ints: []int{0, 0}, floats: []float64{0.5, 0.9}}
	m := battle.NewMatch(matchConfig(), "", src, store, nil)

	if _, err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	events, err := m.ChooseAttack(ctx)
	if !errors.Is(err, progress.ErrStore) {
		t.Fatalf("expected an error wrapping ErrStore, got %v", err)
	}
	// The terminal phase and the event stream are never unwound.
	requireEventTypes(t, events,
		battle.EventHit, battle.EventDefeated, battle.EventLeveledUp, battle.EventMatchEnded)
	if m.Phase() != battle.PhaseWon {
		t.Errorf("expected won phase despite the store failure, got %v", m.Phase())
	}
	if m.Player().Level != 2 {
		t.Errorf("expected the in-memory level-up to stand, got %d", m.Player().Level)
	}
}

func TestPhase_Strings(t *testing.T) {
	tests := []struct {
		phase    battle.Phase
		want     string
		terminal bool
	}{
		{battle.PhaseSetup, "setup", false},
		{battle.PhasePlayerTurn, "player_turn", false},
		{battle.PhaseEnemyTurn, "enemy_turn", false},
		{battle.PhaseWon, "won", true},
		{battle.PhaseLost, "lost", true},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
		if got := tt.phase.Terminal(); got != tt.terminal {
			t.Errorf("Phase %s: Terminal() = %v, want %v", tt.want, got, tt.terminal)
		}
	}
}
