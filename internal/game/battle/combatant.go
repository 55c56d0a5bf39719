// Package battle implements the Duelgrounds 1v1 turn-based combat engine:
// combatant state, action resolution, and the match state machine. All
// resolution is synchronous; each entry point returns the ordered list of
// events it produced so the presentation layer can replay them with its
// own timing.
package battle

import (
	"math"

	"duelgrounds/internal/game/stats"
)

// Side identifies which end of the duel a combatant fights for.
type Side int

const (
	SidePlayer Side = iota
	SideEnemy
)

// String returns a human-readable side label.
func (s Side) String() string {
	switch s {
	case SidePlayer:
		return "player"
	case SideEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// Combatant is one participant in a match. Stats derive from Level via
// stats.Compute and are recomputed whenever the level changes.
//
// Invariant: 0 <= CurrentHP <= MaxHP at all times.
type Combatant struct {
	Name  string
	Side  Side
	Level int

	MaxHP   int
	Attack  int
	Speed   int
	Defense int

	CurrentHP int

	growth    stats.Growth
	defending bool
}

// NewCombatant builds a combatant at the given level with a full heal.
//
// Postcondition: CurrentHP == MaxHP; Level >= 1.
func NewCombatant(name string, side Side, level int, g stats.Growth) *Combatant {
	c := &Combatant{Name: name, Side: side, growth: g}
	c.Initialize(level)
	return c
}

// Initialize recomputes all stats for level and restores full HP. The
// level is clamped to >= 1 before use.
func (c *Combatant) Initialize(level int) {
	if level < 1 {
		level = 1
	}
	c.Level = level
	c.applyDerived(stats.Compute(level, c.growth))
	c.CurrentHP = c.MaxHP
}

// LevelUp raises the level by levels and recomputes stats. Unlike
// Initialize this is not a full heal: the combatant recovers exactly the
// increase in MaxHP, so damage already taken carries over.
//
// Precondition: none; levels <= 0 is a no-op.
// Postcondition: CurrentHP <= MaxHP.
func (c *Combatant) LevelUp(levels int) {
	if levels <= 0 {
		return
	}
	oldMax := c.MaxHP
	c.Level += levels
	c.applyDerived(stats.Compute(c.Level, c.growth))
	if delta := c.MaxHP - oldMax; delta > 0 {
		c.Heal(delta)
	}
	if c.CurrentHP > c.MaxHP {
		c.CurrentHP = c.MaxHP
	}
}

func (c *Combatant) applyDerived(d stats.Derived) {
	c.MaxHP = d.MaxHP
	c.Attack = d.Attack
	c.Speed = d.Speed
	c.Defense = d.Defense
}

// TakeDamage applies amount to CurrentHP and returns the damage actually
// dealt plus whether the combatant is now defeated. While defending, the
// incoming amount is first mitigated to
//
//	max(1, round(amount * defenseK / (defenseK + Defense)))
//
// The defending flag is NOT cleared here: a defend stance lapses at the
// start of the defender's own next turn, not on taking a hit.
//
// Precondition: defenseK > 0 (validated at configuration load).
// Postcondition: 0 <= CurrentHP <= MaxHP.
func (c *Combatant) TakeDamage(amount int, defenseK float64) (dealt int, defeated bool) {
	if amount < 0 {
		amount = 0
	}
	dealt = amount
	if c.defending && amount > 0 {
		mitigated := int(math.Round(float64(amount) * defenseK / (defenseK + float64(c.Defense))))
		if mitigated < 1 {
			mitigated = 1
		}
		dealt = mitigated
	}
	c.CurrentHP -= dealt
	if c.CurrentHP < 0 {
		c.CurrentHP = 0
	}
	return dealt, c.CurrentHP <= 0
}

// Heal restores up to amount HP, capped at MaxHP, and returns the amount
// actually restored. Negative amounts are treated as 0.
//
// Postcondition: 0 <= CurrentHP <= MaxHP.
func (c *Combatant) Heal(amount int) int {
	if amount < 0 {
		amount = 0
	}
	healed := amount
	if c.CurrentHP+healed > c.MaxHP {
		healed = c.MaxHP - c.CurrentHP
	}
	c.CurrentHP += healed
	return healed
}

// StartDefending raises the defend stance.
func (c *Combatant) StartDefending() { c.defending = true }

// EndDefending drops the defend stance. Idempotent.
func (c *Combatant) EndDefending() { c.defending = false }

// IsDefending reports whether the defend stance is raised.
func (c *Combatant) IsDefending() bool { return c.defending }

// IsDefeated reports whether CurrentHP has reached 0.
func (c *Combatant) IsDefeated() bool { return c.CurrentHP <= 0 }

// MissingHP returns MaxHP - CurrentHP.
//
// Postcondition: Returns >= 0.
func (c *Combatant) MissingHP() int { return c.MaxHP - c.CurrentHP }
