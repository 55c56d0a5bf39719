// Package stats derives combatant stats from level and growth curves.
package stats

import "math"

// Growth holds the base stats and growth factors for one combatant side.
// A zero BaseDefense with zero DefenseGrowthPerLevel reproduces the
// defenseless ruleset variant (defense stays 0).
type Growth struct {
	BaseHP                float64
	HPGrowth              float64
	BaseAttack            float64
	AttackGrowth          float64
	BaseSpeed             float64
	SpeedGrowthPerLevel   float64
	BaseDefense           float64
	DefenseGrowthPerLevel float64
}

// Derived holds the four level-derived stats.
//
// Invariant: MaxHP >= 1, Attack >= 1, Speed >= 1, Defense >= 0.
type Derived struct {
	MaxHP   int
	Attack  int
	Speed   int
	Defense int
}

// Compute derives stats for the given level. The rounding conventions are
// deliberately asymmetric and must not be unified: HP rounds down, attack
// rounds up, speed and defense round to nearest. Conservative HP growth
// and generous attack growth keep fights short as levels climb.
//
// Precondition: none; level is clamped to >= 1 before use.
// Postcondition: MaxHP >= 1, Attack >= 1, Speed >= 1, Defense >= 0.
// Deterministic: no randomness, no side effects.
func Compute(level int, g Growth) Derived {
	if level < 1 {
		level = 1
	}
	scale := math.Log(float64(level) + 1)

	maxHP := int(math.Floor(g.BaseHP * scale * g.HPGrowth))
	if maxHP < 1 {
		maxHP = 1
	}

	attack := int(math.Ceil(g.BaseAttack * scale * g.AttackGrowth))
	if attack < 1 {
		attack = 1
	}

	speed := int(math.Round(g.BaseSpeed + g.SpeedGrowthPerLevel*float64(level-1)))
	if speed < 1 {
		speed = 1
	}

	defense := int(math.Round(g.BaseDefense + g.DefenseGrowthPerLevel*float64(level-1)))
	if defense < 0 {
		defense = 0
	}

	return Derived{MaxHP: maxHP, Attack: attack, Speed: speed, Defense: defense}
}
