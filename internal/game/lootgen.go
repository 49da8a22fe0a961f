package game

import (
	"math"
	"time"
)

// LootGenerator decides how many loot items to spawn each tick. Spawn
// pressure builds up the longer the world goes without new loot and the
// larger the shortage of items relative to looters.
type LootGenerator struct {
	period          time.Duration
	probability     float64
	timeWithoutLoot time.Duration
	random          func() float64
}

// NewLootGenerator creates a generator with the given base period and
// per-period spawn probability. The default randomness source is the
// constant 1, which makes spawn counts deterministic.
func NewLootGenerator(period time.Duration, probability float64) *LootGenerator {
	return NewLootGeneratorWithRandom(period, probability, func() float64 { return 1.0 })
}

// NewLootGeneratorWithRandom additionally injects the randomness source;
// random must return values in [0, 1].
func NewLootGeneratorWithRandom(period time.Duration, probability float64, random func() float64) *LootGenerator {
	return &LootGenerator{
		period:      period,
		probability: probability,
		random:      random,
	}
}

// Generate returns the number of items to spawn after delta has passed,
// given the current counts of loot on the ground and of looters. The
// result never exceeds the shortage (looters minus loot). Producing at
// least one item resets the accumulated pressure.
func (g *LootGenerator) Generate(delta time.Duration, lootCount, looterCount int) int {
	g.timeWithoutLoot += delta

	shortage := looterCount - lootCount
	if shortage <= 0 {
		return 0
	}

	ratio := float64(g.timeWithoutLoot) / float64(g.period)
	p := math.Pow(1.0-g.probability, ratio)
	chance := clampFloat((1.0-p)*g.random(), 0.0, 1.0)

	generated := int(math.Round(float64(shortage) * chance))
	if generated > 0 {
		g.timeWithoutLoot = 0
	}
	return generated
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
