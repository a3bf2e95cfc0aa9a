// internal/catalog/catalog.go
//
// Trick catalog management for the game engine and goal generator.
//
// Responsibilities:
//   - Load the catalog from an environment-provided YAML file or fall back to the embedded default.
//   - Keep per-category lists plus an id index for quick lookups.
//   - Build the trick list for a game type ("livre" or a single category).
//   - Filter lists by difficulty band and float favorites to the top.
//
// Initialization behavior (Init):
//   1. If CATALOG_FILE is set, parse that file.
//   2. Otherwise parse assets/tricks.yaml.
//
// Constraints:
//   • Difficulty is clamped to 1..5; zero means "unknown" and is kept as 0
//     so the engine can apply its own default.
//   • Initialization is run once (sync.Once).
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/shunskating/skate-server/assets"
)

// Category names used by the catalog file.
const (
	Flatground = "flatground"
	Slides     = "slides"
	Grinds     = "grinds"
	Manuals    = "manuais"
	Connected  = "conectadas"

	// GameTypeFree combines every game category into one pool.
	GameTypeFree = "livre"
)

// gameCategories are the categories a S.K.A.T.E. match may draw from.
var gameCategories = []string{Flatground, Slides, Grinds}

// Trick is a single catalog entry.
type Trick struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Difficulty int    `yaml:"difficulty" json:"difficulty"`
	Category   string `yaml:"-" json:"category"`
}

// Catalog is an immutable, parsed trick catalog.
type Catalog struct {
	order      []string           // category order as found in the file
	categories map[string][]Trick // category → tricks
	byID       map[string]Trick
}

// Parse decodes a YAML document of the form `category: [ {id, name, difficulty} ]`.
func Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	c := &Catalog{categories: map[string][]Trick{}, byID: map[string]Trick{}}
	if len(doc.Content) == 0 {
		return c, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("catalog: top level must be a mapping of categories")
	}
	// Walk the mapping by hand to keep the file's category order.
	for i := 0; i+1 < len(root.Content); i += 2 {
		cat := strings.TrimSpace(root.Content[i].Value)
		var tricks []Trick
		if err := root.Content[i+1].Decode(&tricks); err != nil {
			return nil, fmt.Errorf("catalog: category %q: %w", cat, err)
		}
		for j := range tricks {
			t := &tricks[j]
			t.Category = cat
			if t.ID == "" {
				return nil, fmt.Errorf("catalog: category %q entry %d has no id", cat, j)
			}
			if t.Name == "" {
				t.Name = t.ID
			}
			if t.Difficulty > 5 {
				t.Difficulty = 5
			} else if t.Difficulty < 0 {
				t.Difficulty = 0
			}
			if _, dup := c.byID[t.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate trick id %q", t.ID)
			}
			c.byID[t.ID] = *t
		}
		c.order = append(c.order, cat)
		c.categories[cat] = tricks
	}
	return c, nil
}

// Categories returns category names in file order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.order...)
}

// ByCategory returns a copy of the tricks for a category (nil if unknown).
func (c *Catalog) ByCategory(cat string) []Trick {
	list, ok := c.categories[cat]
	if !ok {
		return nil
	}
	return append([]Trick(nil), list...)
}

// Find looks up a trick by id.
func (c *Catalog) Find(id string) (Trick, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// All returns every trick in file order.
func (c *Catalog) All() []Trick {
	var out []Trick
	for _, cat := range c.order {
		out = append(out, c.categories[cat]...)
	}
	return out
}

// ForGameType builds the trick list for a match. "livre" (or empty) merges
// flatground, slides and grinds; anything else must name one category.
func (c *Catalog) ForGameType(gameType string) ([]Trick, error) {
	if gameType == "" || gameType == GameTypeFree {
		var out []Trick
		for _, cat := range gameCategories {
			out = append(out, c.categories[cat]...)
		}
		return out, nil
	}
	list, ok := c.categories[gameType]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown game type %q", gameType)
	}
	return append([]Trick(nil), list...), nil
}

// Difficulty bands accepted by Filter.
const (
	BandAll    = "todas"
	BandEasy   = "facil"         // difficulty ≤ 2
	BandMedium = "intermediaria" // difficulty 3
	BandHard   = "dificil"       // difficulty ≥ 4
)

// ErrUnknownBand is returned by Filter for an unrecognized band.
var ErrUnknownBand = errors.New("catalog: unknown difficulty")

// Filter keeps the tricks in a difficulty band. Empty means BandAll.
func Filter(tricks []Trick, band string) ([]Trick, error) {
	var keep func(int) bool
	switch band {
	case "", BandAll:
		return tricks, nil
	case BandEasy:
		keep = func(d int) bool { return d <= 2 }
	case BandMedium:
		keep = func(d int) bool { return d == 3 }
	case BandHard:
		keep = func(d int) bool { return d >= 4 }
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownBand, band)
	}
	out := []Trick{}
	for _, t := range tricks {
		if keep(t.Difficulty) {
			out = append(out, t)
		}
	}
	return out, nil
}

// FavoritesFirst reorders tricks in place so favorite ids come first,
// keeping the original order within each group.
func FavoritesFirst(tricks []Trick, favorites []string) {
	fav := make(map[string]bool, len(favorites))
	for _, id := range favorites {
		fav[id] = true
	}
	sort.SliceStable(tricks, func(i, j int) bool {
		return fav[tricks[i].ID] && !fav[tricks[j].ID]
	})
}

// Stats returns (categories, tricks) counts.
func (c *Catalog) Stats() (categories int, tricks int) {
	return len(c.order), len(c.byID)
}

// --- process-wide default catalog ---

var (
	initOnce   sync.Once
	defaultCat *Catalog
	initialErr error
)

// Init loads the default catalog exactly once.
// Returns an error if the file cannot be read or parsed, or holds no tricks.
func Init() error {
	initOnce.Do(func() {
		var data []byte
		var err error
		if path := os.Getenv("CATALOG_FILE"); path != "" {
			data, err = os.ReadFile(path)
		} else {
			data, err = assets.TricksYAML()
		}
		if err != nil {
			initialErr = fmt.Errorf("catalog: read: %w", err)
			return
		}
		defaultCat, initialErr = Parse(data)
		if initialErr == nil && len(defaultCat.byID) == 0 {
			initialErr = errors.New("catalog: no tricks loaded")
		}
	})
	return initialErr
}

// Default returns the process-wide catalog, or an empty one when Init failed
// or was never called.
func Default() *Catalog {
	if err := Init(); err != nil || defaultCat == nil {
		return &Catalog{categories: map[string][]Trick{}, byID: map[string]Trick{}}
	}
	return defaultCat
}
