package game

import (
	"github.com/shunskating/skate-server/internal/catalog"
)

// TrickPool tracks which (trick, stance) combinations are still available
// in a match. Tricks is fixed at match start; Used grows until every
// combination is consumed, at which point the pool resets.
type TrickPool struct {
	Tricks []catalog.Trick `json:"tricks"`
	Used   map[string]bool `json:"used"`
}

// Combo is one (trick, stance) pair.
type Combo struct {
	Trick  catalog.Trick
	Stance Stance
}

// NewTrickPool builds a full pool from the game-type trick list.
func NewTrickPool(tricks []catalog.Trick) TrickPool {
	return TrickPool{
		Tricks: append([]catalog.Trick(nil), tricks...),
		Used:   map[string]bool{},
	}
}

func comboKey(trickID string, s Stance) string { return trickID + "_" + string(s) }

// Find returns the pool's trick with the given id.
func (p TrickPool) Find(id string) (catalog.Trick, bool) {
	for _, t := range p.Tricks {
		if t.ID == id {
			return t, true
		}
	}
	return catalog.Trick{}, false
}

// IsAvailable reports whether the combination has not been used yet.
func (p TrickPool) IsAvailable(trickID string, s Stance) bool {
	return !p.Used[comboKey(trickID, s)]
}

// Available lists tricks still unused in the given stance.
func (p TrickPool) Available(s Stance) []catalog.Trick {
	var out []catalog.Trick
	for _, t := range p.Tricks {
		if p.IsAvailable(t.ID, s) {
			out = append(out, t)
		}
	}
	return out
}

// Combos lists every unused combination, tricks outer and stances inner.
func (p TrickPool) Combos() []Combo {
	var out []Combo
	for _, t := range p.Tricks {
		for _, s := range Stances {
			if p.IsAvailable(t.ID, s) {
				out = append(out, Combo{Trick: t, Stance: s})
			}
		}
	}
	return out
}

// Remaining counts unused combinations.
func (p TrickPool) Remaining() int {
	n := 0
	for _, t := range p.Tricks {
		for _, s := range Stances {
			if p.IsAvailable(t.ID, s) {
				n++
			}
		}
	}
	return n
}

// Exhausted reports whether every combination has been used.
func (p TrickPool) Exhausted() bool { return p.Remaining() == 0 }

// MarkUsed consumes a combination.
func (p *TrickPool) MarkUsed(trickID string, s Stance) {
	if p.Used == nil {
		p.Used = map[string]bool{}
	}
	p.Used[comboKey(trickID, s)] = true
}

// Reset makes every combination available again.
func (p *TrickPool) Reset() { p.Used = map[string]bool{} }

func (p TrickPool) clone() TrickPool {
	out := TrickPool{Tricks: p.Tricks, Used: make(map[string]bool, len(p.Used))}
	for k, v := range p.Used {
		out.Used[k] = v
	}
	return out
}
