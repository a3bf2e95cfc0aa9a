// internal/goals/line.go
//
// Goal generation ("metas").
// Responsibilities:
//   - Linha: a sequence of stops that starts and ends on flat ground with
//     park obstacles in between, guaranteeing a slide and a grind.
//   - Daily picks: one flatground, one slide and one grind trick the owner
//     is working on.
//   - Swap: replace a single stop with a trick from another category.
//
// Trick choice prefers tricks the owner has some proficiency in (best
// level ≥ 2 in any stance) or easy tricks (difficulty ≤ 2), never repeating
// a trick name within a line.

package goals

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/shunskating/skate-server/internal/catalog"
)

const flipChance = 0.3

var flips = []string{"Kickflip", "Heelflip", "Shove-it"}

// Names used when a category has nothing eligible.
const (
	defaultFlat   = "Ollie"
	defaultManual = "Manual"
	defaultSlide  = "BS Boardslide"
	defaultGrind  = "FS 50-50"
)

// Stop is one trick of a line.
type Stop struct {
	Number   int    `json:"number"`
	Place    string `json:"place"`
	PlaceID  string `json:"placeId"`
	Category string `json:"category"`
	Trick    string `json:"trick"`
	Entry    string `json:"entry,omitempty"` // e.g. "Kickflip in"
	Exit     string `json:"exit,omitempty"`  // e.g. "Heelflip out"
}

// String renders "Kickflip in BS Boardslide Heelflip out".
func (s Stop) String() string {
	parts := make([]string, 0, 3)
	if s.Entry != "" {
		parts = append(parts, s.Entry)
	}
	parts = append(parts, s.Trick)
	if s.Exit != "" {
		parts = append(parts, s.Exit)
	}
	return strings.Join(parts, " ")
}

// DailyItem is one of the three daily picks.
type DailyItem struct {
	Category  string         `json:"category"`
	Trick     *catalog.Trick `json:"trick"` // nil when the category is empty
	Completed bool           `json:"completed"`
}

// Size bounds the number of stops in a line.
type Size struct{ Min, Max int }

var (
	WeeklySize  = Size{Min: 4, Max: 5}
	MonthlySize = Size{Min: 7, Max: 9}
)

// SizeFor returns the line size for a kind.
func SizeFor(k Kind) Size {
	if k == Monthly {
		return MonthlySize
	}
	return WeeklySize
}

// Proficiency reports the best level an owner has on a trick.
// progress.Levels satisfies it.
type Proficiency interface {
	Best(trickID string) int
}

// Generator draws goals from a catalog. It is not safe for concurrent use.
type Generator struct {
	catalog  *catalog.Catalog
	prof     Proficiency
	settings Settings
	rng      *rand.Rand
}

// NewGenerator builds a generator. A nil Proficiency counts every trick as
// unknown.
func NewGenerator(c *catalog.Catalog, p Proficiency, s Settings, rng *rand.Rand) *Generator {
	return &Generator{catalog: c, prof: p, settings: s.Normalize(), rng: rng}
}

func (g *Generator) best(trickID string) int {
	if g.prof == nil {
		return 0
	}
	return g.prof.Best(trickID)
}

// Line generates a line with a size drawn from sz.
func (g *Generator) Line(sz Size) []Stop {
	n := sz.Min
	if sz.Max > sz.Min {
		n += g.rng.Intn(sz.Max - sz.Min + 1)
	}
	used := map[string]bool{}
	usedPlaces := map[string]bool{}
	hasSlide, hasGrind := false, false

	line := make([]Stop, 0, n)
	for i := 0; i < n; i++ {
		var st Stop
		if i == 0 || i == n-1 {
			st = g.flatStop(used)
		} else {
			// Slots left before the closing flat stop.
			remaining := n - i - 1
			force := ""
			if !hasSlide && remaining <= 2 {
				force = catalog.Slides
			} else if !hasGrind && remaining <= 1 {
				force = catalog.Grinds
			}

			place := g.pickObstacle(usedPlaces, force != "")
			if place == ManualPad {
				st = g.manualStop(used)
			} else {
				usedPlaces[place] = true
				category := catalog.Grinds
				if force == catalog.Slides || (force == "" && !hasSlide && g.rng.Float64() < 0.5) {
					category = catalog.Slides
				}
				if category == catalog.Slides {
					hasSlide = true
				} else {
					hasGrind = true
				}
				st = g.railStop(place, category, used)
				g.addFlips(&st, false)
			}
		}
		st.Number = i + 1
		used[st.Trick] = true
		line = append(line, st)
	}
	return line
}

// Swap replaces stop index with a trick from category (flatground, slides,
// grinds, or conectadas/manuais for the manual pad).
func (g *Generator) Swap(line []Stop, index int, category string) ([]Stop, error) {
	if index < 0 || index >= len(line) {
		return nil, fmt.Errorf("swap %d: %w", index, ErrStopIndex)
	}
	used := map[string]bool{}
	for i, s := range line {
		if i != index {
			used[s.Trick] = true
		}
	}

	cur := line[index]
	var next Stop
	switch category {
	case catalog.Flatground:
		next = g.flatStop(used)
	case catalog.Connected, catalog.Manuals:
		next = g.manualStop(used)
	case catalog.Slides, catalog.Grinds:
		next = g.railStop(g.pickRail(), category, used)
		// Flips carry over from a rail stop; missing ones may be added.
		if cur.PlaceID != Chao && cur.PlaceID != ManualPad {
			next.Entry, next.Exit = cur.Entry, cur.Exit
		}
		g.addFlips(&next, true)
	default:
		return nil, fmt.Errorf("swap %q: %w", category, ErrUnknownCategory)
	}
	next.Number = cur.Number

	out := append([]Stop(nil), line...)
	out[index] = next
	return out, nil
}

// DailyPicks draws one flatground, one slide and one grind trick whose best
// level is between 2 and 4, falling back to an easy trick, then to the
// category's first trick.
func (g *Generator) DailyPicks() []DailyItem {
	cats := []string{catalog.Flatground, catalog.Slides, catalog.Grinds}
	items := make([]DailyItem, 0, len(cats))
	for _, cat := range cats {
		items = append(items, DailyItem{Category: cat, Trick: g.dailyTrick(cat)})
	}
	return items
}

func (g *Generator) dailyTrick(category string) *catalog.Trick {
	all := g.catalog.ByCategory(category)
	var eligible, easy []catalog.Trick
	for _, t := range all {
		if b := g.best(t.ID); b >= 2 && b <= 4 {
			eligible = append(eligible, t)
		}
		if t.Difficulty <= 2 {
			easy = append(easy, t)
		}
	}
	switch {
	case len(eligible) > 0:
		t := eligible[g.rng.Intn(len(eligible))]
		return &t
	case len(easy) > 0:
		t := easy[g.rng.Intn(len(easy))]
		return &t
	case len(all) > 0:
		t := all[0]
		return &t
	}
	return nil
}

func (g *Generator) flatStop(used map[string]bool) Stop {
	return Stop{
		Place:    obstacleName(Chao),
		PlaceID:  Chao,
		Category: catalog.Flatground,
		Trick:    g.pickTrick(g.catalog.ByCategory(catalog.Flatground), used, defaultFlat),
	}
}

func (g *Generator) manualStop(used map[string]bool) Stop {
	pool := append(g.catalog.ByCategory(catalog.Connected), g.catalog.ByCategory(catalog.Manuals)...)
	return Stop{
		Place:    obstacleName(ManualPad),
		PlaceID:  ManualPad,
		Category: catalog.Manuals,
		Trick:    g.pickTrick(pool, used, defaultManual),
	}
}

func (g *Generator) railStop(place, category string, used map[string]bool) Stop {
	fallback := defaultGrind
	if category == catalog.Slides {
		fallback = defaultSlide
	}
	return Stop{
		Place:    obstacleName(place),
		PlaceID:  place,
		Category: category,
		Trick:    g.pickTrick(g.catalog.ByCategory(category), used, fallback),
	}
}

// pickTrick draws uniformly among unused eligible tricks.
func (g *Generator) pickTrick(pool []catalog.Trick, used map[string]bool, fallback string) string {
	var eligible []catalog.Trick
	for _, t := range pool {
		if used[t.Name] {
			continue
		}
		if g.best(t.ID) >= 2 || t.Difficulty <= 2 {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) == 0 {
		return fallback
	}
	return eligible[g.rng.Intn(len(eligible))].Name
}

// pickObstacle chooses a middle-stop obstacle, avoiding repeats. The manual
// pad is skipped when a slide or grind must be placed.
func (g *Generator) pickObstacle(usedPlaces map[string]bool, forcing bool) string {
	var opts []string
	for _, id := range g.settings.Obstacles {
		if id == Chao || usedPlaces[id] {
			continue
		}
		if id == ManualPad && (forcing || !g.settings.Manuals) {
			continue
		}
		opts = append(opts, id)
	}
	if len(opts) == 0 {
		opts = g.rails()
	}
	if len(opts) == 0 {
		return Borda
	}
	return opts[g.rng.Intn(len(opts))]
}

func (g *Generator) pickRail() string {
	rails := g.rails()
	if len(rails) == 0 {
		return Borda
	}
	return rails[g.rng.Intn(len(rails))]
}

// rails lists the configured ledges and rails.
func (g *Generator) rails() []string {
	var out []string
	for _, id := range g.settings.Obstacles {
		if id == Borda || id == Corriborda || id == Corrimao {
			out = append(out, id)
		}
	}
	return out
}

// addFlips adds random flip in/out when enabled. keep leaves existing ones.
func (g *Generator) addFlips(st *Stop, keep bool) {
	if !g.settings.FlipInOut {
		return
	}
	if !(keep && st.Entry != "") && g.rng.Float64() < flipChance {
		st.Entry = flips[g.rng.Intn(len(flips))] + " in"
	}
	if !(keep && st.Exit != "") && g.rng.Float64() < flipChance {
		st.Exit = flips[g.rng.Intn(len(flips))] + " out"
	}
}
