package battle

import (
	"math"

	"duelgrounds/internal/config"
	"duelgrounds/internal/game/rng"
)

// HitChance computes the probability that an attack lands:
//
//	clamp(hitBase + (attackerSpeed - defenderSpeed) * hitSpeedFactor, hitMin, hitMax)
//
// Deterministic, no randomness.
//
// Postcondition: Returns a value in [b.HitMin, b.HitMax].
func HitChance(attackerSpeed, defenderSpeed int, b config.BalanceConfig) float64 {
	chance := b.HitBase + float64(attackerSpeed-defenderSpeed)*b.HitSpeedFactor
	if chance < b.HitMin {
		chance = b.HitMin
	}
	if chance > b.HitMax {
		chance = b.HitMax
	}
	return chance
}

// RollHit draws a single uniform value in [0, 1); a draw <= chance is a
// hit. On a miss the caller must skip all downstream steps: no crit roll,
// no damage roll, zero damage.
func RollHit(src rng.Source, chance float64) bool {
	return src.Float64() <= chance
}

// DamageRoll is the outcome of one damage computation.
type DamageRoll struct {
	Amount int
	Crit   bool
}

// RollDamage rolls raw damage for an attacker with the given attack stat.
// The roll is a uniform integer in [floor(attack*minMult), ceil(attack*maxMult)]
// inclusive; a degenerate range (low > high) collapses to the high bound.
// The critical roll is an independent draw < critChance, scaling the
// amount by critMult rounded up.
//
// Draw order is fixed for reproducibility: damage span first, then crit.
//
// Precondition: attack >= 1; b validated at configuration load.
// Postcondition: Amount >= 0.
func RollDamage(src rng.Source, attack int, b config.BalanceConfig) DamageRoll {
	low := int(math.Floor(float64(attack) * b.DamageMinMult))
	high := int(math.Ceil(float64(attack) * b.DamageMaxMult))
	if low > high {
		low = high
	}
	amount := low + src.Intn(high-low+1)

	crit := src.Float64() < b.CritChance
	if crit {
		amount = int(math.Ceil(float64(amount) * b.CritMult))
	}
	return DamageRoll{Amount: amount, Crit: crit}
}

// RollHeal rolls a heal amount for a healer at the given level: a uniform
// integer in [floor(level*minMult), ceil(level*maxMult)] inclusive, with a
// degenerate range collapsing to the high bound and both bounds clamped
// to >= 0. When b.MinimumHealOne is set, a computed 0 is raised to 1.
// The result never exceeds missingHP.
//
// Precondition: level >= 1; missingHP >= 0.
// Postcondition: 0 <= result <= missingHP.
func RollHeal(src rng.Source, level, missingHP int, b config.BalanceConfig) int {
	low := int(math.Floor(float64(level) * b.HealMinMult))
	high := int(math.Ceil(float64(level) * b.HealMaxMult))
	if low > high {
		low = high
	}
	if high < 0 {
		high = 0
	}
	if low < 0 {
		low = 0
	}
	amount := low + src.Intn(high-low+1)
	if b.MinimumHealOne && amount < 1 {
		amount = 1
	}
	if amount > missingHP {
		amount = missingHP
	}
	return amount
}
