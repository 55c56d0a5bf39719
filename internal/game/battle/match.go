package battle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"duelgrounds/internal/config"
	"duelgrounds/internal/game/rng"
	"duelgrounds/internal/game/stats"
	"duelgrounds/internal/progress"
)

// ErrMatchEnded is returned when an action is chosen on a finished match.
// It is a benign signal, not a failure: presentation layers may deliver
// stale input after the match resolved.
var ErrMatchEnded = errors.New("match already ended")

// ErrAlreadyStarted is returned when Start is called twice on one Match.
var ErrAlreadyStarted = errors.New("match already started")

// Phase is the match state-machine phase.
type Phase int

const (
	PhaseSetup Phase = iota
	PhasePlayerTurn
	PhaseEnemyTurn
	PhaseWon
	PhaseLost
)

// String returns a human-readable phase label.
func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhasePlayerTurn:
		return "player_turn"
	case PhaseEnemyTurn:
		return "enemy_turn"
	case PhaseWon:
		return "won"
	case PhaseLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase has no outgoing transitions.
func (p Phase) Terminal() bool { return p == PhaseWon || p == PhaseLost }

// Match is one 1v1 duel. Phases run Setup -> {PlayerTurn <-> EnemyTurn}
// -> {Won | Lost}; terminal phases are irreversible, a rematch needs a
// fresh Match.
//
// All methods resolve synchronously on the caller's goroutine. A Match is
// not safe for concurrent use; concurrent matches must use independent
// Match instances (they share nothing but the Store).
//
// Invariant: phase is PlayerTurn or EnemyTurn only while both combatants
// have CurrentHP > 0.
type Match struct {
	id        uuid.UUID
	cfg       config.GameConfig
	src       rng.Source
	store     progress.Store
	logger    *zap.Logger
	enemyName string

	phase  Phase
	player *Combatant
	enemy  *Combatant
}

// NewMatch creates a Match in the Setup phase. Nothing is read or
// persisted until Start. An empty enemyName falls back to the configured
// enemy name.
//
// Precondition: cfg passed config.Validate; src and store must be non-nil.
// A nil logger is replaced with a no-op logger.
func NewMatch(cfg config.GameConfig, enemyName string, src rng.Source, store progress.Store, logger *zap.Logger) *Match {
	if logger == nil {
		logger = zap.NewNop()
	}
	if enemyName == "" {
		enemyName = cfg.Enemy.Name
	}
	return &Match{
		id:        uuid.New(),
		cfg:       cfg,
		src:       src,
		store:     store,
		logger:    logger,
		enemyName: enemyName,
		phase:     PhaseSetup,
	}
}

// ID returns the unique match identifier.
func (m *Match) ID() uuid.UUID { return m.id }

// Phase returns the current state-machine phase.
func (m *Match) Phase() Phase { return m.phase }

// Player returns the player combatant (nil before Start).
func (m *Match) Player() *Combatant { return m.player }

// Enemy returns the enemy combatant (nil before Start).
func (m *Match) Enemy() *Combatant { return m.enemy }

// Result returns the final outcome, or ResultNone while undecided.
func (m *Match) Result() Result {
	switch m.phase {
	case PhaseWon:
		return ResultWon
	case PhaseLost:
		return ResultLost
	default:
		return ResultNone
	}
}

// Start performs match setup: reads the persisted player level, spawns
// the enemy at player level plus a uniform offset in the configured
// inclusive range (floored to >= 1), persists the enemy level
// immediately, and determines the opening turn by comparing speed — the
// player goes first on a tie. When the enemy opens, its turn resolves
// before Start returns, so the returned events may already include the
// first exchange.
//
// A persistence failure after the combatants are built is reported as an
// error wrapping progress.ErrStore, but the Match stays valid and
// playable; only a failure to read the player level aborts setup.
//
// Precondition: Start has not been called on this Match.
func (m *Match) Start(ctx context.Context) ([]Event, error) {
	if m.phase != PhaseSetup {
		return nil, ErrAlreadyStarted
	}

	playerLevel, err := m.store.PlayerLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading player level: %w", err)
	}

	span := m.cfg.Balance.EnemyOffsetMax - m.cfg.Balance.EnemyOffsetMin + 1
	offset := m.cfg.Balance.EnemyOffsetMin + m.src.Intn(span)
	enemyLevel := playerLevel + offset
	if enemyLevel < 1 {
		enemyLevel = 1
	}

	m.player = NewCombatant(m.cfg.Player.Name, SidePlayer, playerLevel, growthFromSide(m.cfg.Player))
	m.enemy = NewCombatant(m.enemyName, SideEnemy, enemyLevel, growthFromSide(m.cfg.Enemy))

	// Persist before the first action so an abandoned match still leaves a
	// consistent "current enemy" behind.
	var persistErr error
	if err := m.store.SetEnemyLevel(ctx, enemyLevel); err != nil {
		persistErr = fmt.Errorf("persisting enemy level: %w", err)
	}

	m.logger.Info("match started",
		zap.String("match_id", m.id.String()),
		zap.Int("player_level", playerLevel),
		zap.Int("enemy_level", enemyLevel),
		zap.String("enemy", m.enemyName),
		zap.Int("player_speed", m.player.Speed),
		zap.Int("enemy_speed", m.enemy.Speed),
	)

	var events []Event
	if m.player.Speed >= m.enemy.Speed {
		events = m.handOffToPlayer(events)
		return events, persistErr
	}
	events, err = m.runEnemyTurn(ctx, events)
	if persistErr == nil {
		persistErr = err
	}
	return events, persistErr
}

// ChooseAttack resolves a player attack: a hit-chance roll, then on a hit
// a damage roll applied to the enemy. A miss deals nothing and skips the
// damage and crit rolls entirely. Unless the enemy falls, the enemy turn
// resolves in the same call.
//
// Out of phase this is a silent no-op; on a finished match it returns
// ErrMatchEnded. A non-nil error alongside events is a persistence
// failure wrapping progress.ErrStore.
func (m *Match) ChooseAttack(ctx context.Context) ([]Event, error) {
	if m.phase.Terminal() {
		return nil, ErrMatchEnded
	}
	if m.phase != PhasePlayerTurn {
		return nil, nil
	}

	var events []Event
	chance := HitChance(m.player.Speed, m.enemy.Speed, m.cfg.Balance)
	if !RollHit(m.src, chance) {
		m.logger.Debug("player attack missed",
			zap.String("match_id", m.id.String()),
			zap.Float64("chance", chance),
		)
		events = append(events, Event{
			Type:      EventMissed,
			Side:      SidePlayer,
			Narrative: fmt.Sprintf("%s attacks %s but misses.", m.player.Name, m.enemy.Name),
		})
		return m.handOffToEnemy(ctx, events)
	}

	roll := RollDamage(m.src, m.player.Attack, m.cfg.Balance)
	dealt, defeated := m.enemy.TakeDamage(roll.Amount, m.cfg.Balance.DefenseConstant)
	m.logger.Debug("player attack landed",
		zap.String("match_id", m.id.String()),
		zap.Int("rolled", roll.Amount),
		zap.Int("dealt", dealt),
		zap.Bool("crit", roll.Crit),
		zap.Int("enemy_hp", m.enemy.CurrentHP),
	)
	events = append(events, hitEvent(m.player, m.enemy, dealt, roll.Crit))

	if defeated {
		events = append(events, Event{
			Type:      EventDefeated,
			Side:      SideEnemy,
			Narrative: fmt.Sprintf("%s falls.", m.enemy.Name),
		})
		return m.finish(ctx, ResultWon, events)
	}
	return m.handOffToEnemy(ctx, events)
}

// ChooseHeal resolves a player heal. At full HP the turn is not consumed:
// the phase stays PlayerTurn, no events are emitted, and the caller may
// choose again — an explicit free re-prompt, not a wasted turn.
// Otherwise the heal roll is applied and the enemy turn resolves in the
// same call.
//
// Out of phase this is a silent no-op; on a finished match it returns
// ErrMatchEnded.
func (m *Match) ChooseHeal(ctx context.Context) ([]Event, error) {
	if m.phase.Terminal() {
		return nil, ErrMatchEnded
	}
	if m.phase != PhasePlayerTurn {
		return nil, nil
	}
	if m.player.CurrentHP >= m.player.MaxHP {
		return nil, nil
	}

	amount := RollHeal(m.src, m.player.Level, m.player.MissingHP(), m.cfg.Balance)
	healed := m.player.Heal(amount)
	m.logger.Debug("player healed",
		zap.String("match_id", m.id.String()),
		zap.Int("healed", healed),
		zap.Int("player_hp", m.player.CurrentHP),
	)
	events := []Event{{
		Type:      EventHealed,
		Side:      SidePlayer,
		Amount:    healed,
		Narrative: fmt.Sprintf("%s recovers %d HP.", m.player.Name, healed),
	}}
	return m.handOffToEnemy(ctx, events)
}

// ChooseDefend raises the player's defend stance and hands the turn to
// the enemy. The stance mitigates the next incoming hit and lapses at the
// start of the player's next turn whether or not that hit landed.
//
// Out of phase this is a silent no-op; on a finished match it returns
// ErrMatchEnded.
func (m *Match) ChooseDefend(ctx context.Context) ([]Event, error) {
	if m.phase.Terminal() {
		return nil, ErrMatchEnded
	}
	if m.phase != PhasePlayerTurn {
		return nil, nil
	}

	m.player.StartDefending()
	m.logger.Debug("player defends", zap.String("match_id", m.id.String()))
	events := []Event{{
		Type:      EventDefended,
		Side:      SidePlayer,
		Narrative: fmt.Sprintf("%s braces behind their guard.", m.player.Name),
	}}
	return m.handOffToEnemy(ctx, events)
}

// handOffToPlayer enters the player turn. The player's defend stance from
// the previous cycle lapses here — it protects against exactly one
// incoming hit cycle, regardless of whether that hit landed.
func (m *Match) handOffToPlayer(events []Event) []Event {
	m.player.EndDefending()
	m.phase = PhasePlayerTurn
	return append(events, Event{
		Type:      EventTurnChanged,
		Side:      SidePlayer,
		Narrative: fmt.Sprintf("%s's turn.", m.player.Name),
	})
}

// handOffToEnemy enters the enemy turn and resolves it immediately.
func (m *Match) handOffToEnemy(ctx context.Context, events []Event) ([]Event, error) {
	m.phase = PhaseEnemyTurn
	events = append(events, Event{
		Type:      EventTurnChanged,
		Side:      SideEnemy,
		Narrative: fmt.Sprintf("%s's turn.", m.enemy.Name),
	})
	return m.runEnemyTurn(ctx, events)
}

// runEnemyTurn resolves the enemy action. The enemy always attacks; its
// own stale defend stance (never raised by the current AI, kept for
// symmetry) lapses at the start of its turn. Mitigation against the
// player happens inside TakeDamage, using the defend state the player
// holds at that moment.
func (m *Match) runEnemyTurn(ctx context.Context, events []Event) ([]Event, error) {
	m.enemy.EndDefending()

	chance := HitChance(m.enemy.Speed, m.player.Speed, m.cfg.Balance)
	if !RollHit(m.src, chance) {
		m.logger.Debug("enemy attack missed",
			zap.String("match_id", m.id.String()),
			zap.Float64("chance", chance),
		)
		events = append(events, Event{
			Type:      EventMissed,
			Side:      SideEnemy,
			Narrative: fmt.Sprintf("%s attacks %s but misses.", m.enemy.Name, m.player.Name),
		})
		return m.handOffToPlayer(events), nil
	}

	roll := RollDamage(m.src, m.enemy.Attack, m.cfg.Balance)
	dealt, defeated := m.player.TakeDamage(roll.Amount, m.cfg.Balance.DefenseConstant)
	m.logger.Debug("enemy attack landed",
		zap.String("match_id", m.id.String()),
		zap.Int("rolled", roll.Amount),
		zap.Int("dealt", dealt),
		zap.Bool("crit", roll.Crit),
		zap.Bool("player_defending", m.player.IsDefending()),
		zap.Int("player_hp", m.player.CurrentHP),
	)
	events = append(events, hitEvent(m.enemy, m.player, dealt, roll.Crit))

	if defeated {
		events = append(events, Event{
			Type:      EventDefeated,
			Side:      SidePlayer,
			Narrative: fmt.Sprintf("%s falls.", m.player.Name),
		})
		return m.finish(ctx, ResultLost, events)
	}
	return m.handOffToPlayer(events), nil
}

// finish applies the terminal consequences. On a win the player levels up
// by the configured amount, the new level is persisted, and the best
// level is raised when exceeded. On a loss the current level is only a
// best-level candidate — levels are never reset here; reset is a
// separate, externally-triggered operation.
//
// Persistence failures wrap progress.ErrStore and never unwind the
// terminal phase: the in-memory result stands regardless.
func (m *Match) finish(ctx context.Context, result Result, events []Event) ([]Event, error) {
	var persistErr error
	record := func(err error) {
		if err != nil && persistErr == nil {
			persistErr = err
		}
	}

	switch result {
	case ResultWon:
		m.phase = PhaseWon
		m.player.LevelUp(m.cfg.Balance.LevelUpAmount)
		events = append(events, Event{
			Type:      EventLeveledUp,
			Side:      SidePlayer,
			NewLevel:  m.player.Level,
			Narrative: fmt.Sprintf("%s reaches level %d.", m.player.Name, m.player.Level),
		})
		record(m.store.SetPlayerLevel(ctx, m.player.Level))
		best, err := m.store.BestLevel(ctx)
		record(err)
		if err == nil && m.player.Level > best {
			record(m.store.SetBestLevel(ctx, m.player.Level))
		}
	case ResultLost:
		m.phase = PhaseLost
		best, err := m.store.BestLevel(ctx)
		record(err)
		if err == nil && m.player.Level > best {
			record(m.store.SetBestLevel(ctx, m.player.Level))
		}
	}

	events = append(events, Event{
		Type:      EventMatchEnded,
		Result:    result,
		Narrative: fmt.Sprintf("The duel is over: %s %s.", m.player.Name, result),
	})
	m.logger.Info("match ended",
		zap.String("match_id", m.id.String()),
		zap.String("result", result.String()),
		zap.Int("player_level", m.player.Level),
		zap.Int("player_hp", m.player.CurrentHP),
		zap.Int("enemy_hp", m.enemy.CurrentHP),
	)
	if persistErr != nil {
		m.logger.Warn("persisting outcome failed",
			zap.String("match_id", m.id.String()),
			zap.Error(persistErr),
		)
	}
	return events, persistErr
}

func hitEvent(attacker, target *Combatant, dealt int, crit bool) Event {
	narrative := fmt.Sprintf("%s hits %s for %d damage.", attacker.Name, target.Name, dealt)
	if crit {
		narrative = fmt.Sprintf("%s lands a critical hit on %s for %d damage!", attacker.Name, target.Name, dealt)
	}
	return Event{
		Type:      EventHit,
		Side:      attacker.Side,
		Amount:    dealt,
		Crit:      crit,
		Narrative: narrative,
	}
}

func growthFromSide(s config.SideConfig) stats.Growth {
	return stats.Growth{
		BaseHP:                s.BaseHP,
		HPGrowth:              s.HPGrowth,
		BaseAttack:            s.BaseAttack,
		AttackGrowth:          s.AttackGrowth,
		BaseSpeed:             s.BaseSpeed,
		SpeedGrowthPerLevel:   s.SpeedGrowthPerLevel,
		BaseDefense:           s.BaseDefense,
		DefenseGrowthPerLevel: s.DefenseGrowthPerLevel,
	}
}
