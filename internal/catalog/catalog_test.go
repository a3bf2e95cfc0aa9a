package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunskating/skate-server/assets"
)

const sample = `
flatground:
  - { id: ollie, name: Ollie, difficulty: 1 }
  - { id: kickflip, name: Kickflip, difficulty: 3 }
slides:
  - { id: bs-boardslide, name: BS Boardslide, difficulty: 9 }
grinds:
  - { id: fs-50-50, difficulty: 1 }
manuais:
  - { id: manual, name: Manual, difficulty: 1 }
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{Flatground, Slides, Grinds, Manuals}, c.Categories())

	kf, ok := c.Find("kickflip")
	require.True(t, ok)
	assert.Equal(t, "Kickflip", kf.Name)
	assert.Equal(t, Flatground, kf.Category)

	bs, _ := c.Find("bs-boardslide")
	assert.Equal(t, 5, bs.Difficulty, "difficulty is clamped to 5")

	g, _ := c.Find("fs-50-50")
	assert.Equal(t, "fs-50-50", g.Name, "name defaults to id")

	cats, tricks := c.Stats()
	assert.Equal(t, 4, cats)
	assert.Equal(t, 5, tricks)
}

func TestParse_Errors(t *testing.T) {
	t.Run("duplicate id", func(t *testing.T) {
		_, err := Parse([]byte("flatground:\n  - {id: a}\nslides:\n  - {id: a}\n"))
		assert.Error(t, err)
	})
	t.Run("missing id", func(t *testing.T) {
		_, err := Parse([]byte("flatground:\n  - {name: Ollie}\n"))
		assert.Error(t, err)
	})
	t.Run("not a mapping", func(t *testing.T) {
		_, err := Parse([]byte("- a\n- b\n"))
		assert.Error(t, err)
	})
}

func TestForGameType(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	free, err := c.ForGameType(GameTypeFree)
	require.NoError(t, err)
	assert.Len(t, free, 4, "livre merges flatground, slides and grinds only")

	slides, err := c.ForGameType(Slides)
	require.NoError(t, err)
	require.Len(t, slides, 1)
	assert.Equal(t, "bs-boardslide", slides[0].ID)

	_, err = c.ForGameType("vert")
	assert.Error(t, err)
}

func TestByCategoryReturnsCopy(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	list := c.ByCategory(Flatground)
	list[0].Name = "changed"
	again := c.ByCategory(Flatground)
	assert.Equal(t, "Ollie", again[0].Name)
	assert.Nil(t, c.ByCategory("unknown"))
}

func TestEmbeddedCatalogParses(t *testing.T) {
	data, err := assets.TricksYAML()
	require.NoError(t, err)
	c, err := Parse(data)
	require.NoError(t, err)

	for _, cat := range []string{Flatground, Slides, Grinds, Manuals, Connected} {
		assert.NotEmpty(t, c.ByCategory(cat), cat)
	}
	for _, tr := range c.All() {
		assert.GreaterOrEqual(t, tr.Difficulty, 1, tr.ID)
		assert.LessOrEqual(t, tr.Difficulty, 5, tr.ID)
	}
}

func TestParseFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tricks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	c, err := Parse(data)
	require.NoError(t, err)
	_, ok := c.Find("manual")
	assert.True(t, ok)
}

func TestFilter(t *testing.T) {
	data, err := assets.TricksYAML()
	require.NoError(t, err)
	c, err := Parse(data)
	require.NoError(t, err)
	flat := c.ByCategory(Flatground)

	all, err := Filter(flat, "")
	require.NoError(t, err)
	assert.Len(t, all, len(flat))

	for band, ok := range map[string]func(int) bool{
		BandEasy:   func(d int) bool { return d <= 2 },
		BandMedium: func(d int) bool { return d == 3 },
		BandHard:   func(d int) bool { return d >= 4 },
	} {
		got, err := Filter(flat, band)
		require.NoError(t, err, band)
		require.NotEmpty(t, got, band)
		for _, tr := range got {
			assert.True(t, ok(tr.Difficulty), "%s: %s has difficulty %d", band, tr.ID, tr.Difficulty)
		}
	}

	_, err = Filter(flat, "impossivel")
	assert.ErrorIs(t, err, ErrUnknownBand)
}

func TestFavoritesFirst(t *testing.T) {
	tricks := []Trick{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	FavoritesFirst(tricks, []string{"d", "b", "zzz"})

	ids := make([]string, 0, len(tricks))
	for _, tr := range tricks {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}
