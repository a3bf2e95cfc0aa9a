package game

import (
	"github.com/shunskating/skate-server/internal/catalog"
)

// defaultDifficulty is assumed for catalog entries without a difficulty.
const defaultDifficulty = 3

// stanceOffset is added to a trick's base difficulty.
var stanceOffset = map[Stance]int{
	Regular: 0,
	Fakie:   1,
	Nollie:  2,
	Switch:  3,
}

// hitProbability[level][d] is the chance the opponent lands a trick of
// effective difficulty d (index 0 unused).
var hitProbability = map[Level][6]float64{
	Iniciante:         {0, 0.60, 0.40, 0.20, 0.10, 0.05},
	Intermediario:     {0, 0.85, 0.70, 0.50, 0.30, 0.15},
	IntermediarioPlus: {0, 0.95, 0.85, 0.65, 0.45, 0.25},
	Avancado:          {0, 0.98, 0.92, 0.80, 0.60, 0.40},
	Profissional:      {0, 0.99, 0.97, 0.90, 0.75, 0.55},
}

// stanceWeight is one band of the cumulative stance scan.
type stanceWeight struct {
	stance Stance
	chance float64
}

// stanceChance is ordered: the cumulative scan depends on it.
var stanceChance = map[Level][]stanceWeight{
	Iniciante:         {{Regular, 0.85}, {Fakie, 0.10}, {Nollie, 0.04}, {Switch, 0.01}},
	Intermediario:     {{Regular, 0.70}, {Fakie, 0.18}, {Nollie, 0.08}, {Switch, 0.04}},
	IntermediarioPlus: {{Regular, 0.55}, {Fakie, 0.25}, {Nollie, 0.12}, {Switch, 0.08}},
	Avancado:          {{Regular, 0.40}, {Fakie, 0.28}, {Nollie, 0.18}, {Switch, 0.14}},
	Profissional:      {{Regular, 0.30}, {Fakie, 0.28}, {Nollie, 0.22}, {Switch, 0.20}},
}

// skatersByLevel are the opponent names drawn at match start.
var skatersByLevel = map[Level][]string{
	Iniciante:         {"Nathan", "Pedro", "Vitão"},
	Intermediario:     {"Lucas", "Kaique", "Dudu"},
	IntermediarioPlus: {"Angel", "Marquinhos", "Léo"},
	Avancado:          {"Ruan Street", "Kelvin", "Biel"},
	Profissional:      {"Tairan", "Gui Damasceno", "Tiago Lemos"},
}

// EffectiveDifficulty = min(5, base + stance offset). A zero base uses the default.
func EffectiveDifficulty(base int, s Stance) int {
	if base <= 0 {
		base = defaultDifficulty
	}
	d := base + stanceOffset[s]
	if d > 5 {
		d = 5
	}
	return d
}

// HitProbability returns the opponent's landing chance for a trick in a stance.
func HitProbability(level Level, t catalog.Trick, s Stance) float64 {
	table, ok := hitProbability[level]
	if !ok {
		return 0
	}
	return table[EffectiveDifficulty(t.Difficulty, s)]
}

// PickStance maps a uniform draw in [0,1) to a stance using the level's
// cumulative bands, falling back to regular when rounding leaves a gap.
func PickStance(level Level, draw float64) Stance {
	cumulative := 0.0
	for _, w := range stanceChance[level] {
		cumulative += w.chance
		if draw < cumulative {
			return w.stance
		}
	}
	return Regular
}

// pickOpponentName draws a skater for the level.
func pickOpponentName(level Level, rng Rand) string {
	names := skatersByLevel[level]
	if len(names) == 0 {
		return "Adversário"
	}
	return names[rng.Intn(len(names))]
}
