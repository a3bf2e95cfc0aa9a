package progress

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunskating/skate-server/internal/database"
	"github.com/shunskating/skate-server/internal/game"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "skate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Não sei", Label(0))
	assert.Equal(t, "Tá na base", Label(4))
	assert.Empty(t, Label(5))
	assert.Empty(t, Label(-1))
}

func TestLevelsBest(t *testing.T) {
	l := Levels{Key("kickflip", game.Fakie): 3, Key("kickflip", game.Regular): 1}
	assert.Equal(t, 3, l.Best("kickflip"))
	assert.Equal(t, 1, l.Get("kickflip", game.Regular))
	assert.Zero(t, l.Best("heelflip"))
}

func TestStore_SetAndLevels(t *testing.T) {
	ctx := context.Background()
	st := NewStore(newTestDB(t))

	require.NoError(t, st.Set(ctx, "me", "ollie", game.Regular, 4))
	require.NoError(t, st.Set(ctx, "me", "ollie", game.Switch, 1))
	require.NoError(t, st.Set(ctx, "me", "ollie", game.Regular, 2))
	require.NoError(t, st.Set(ctx, "other", "ollie", game.Regular, 3))

	l, err := st.Levels(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, 2, l.Get("ollie", game.Regular))
	assert.Equal(t, 1, l.Get("ollie", game.Switch))
	assert.Len(t, l, 2)

	require.NoError(t, st.Set(ctx, "me", "ollie", game.Switch, 0))
	l, err = st.Levels(ctx, "me")
	require.NoError(t, err)
	assert.Len(t, l, 1)

	assert.ErrorIs(t, st.Set(ctx, "me", "ollie", game.Regular, 5), ErrInvalidLevel)
}

func TestStore_Favorites(t *testing.T) {
	ctx := context.Background()
	st := NewStore(newTestDB(t))

	on, err := st.ToggleFavorite(ctx, "me", "kickflip")
	require.NoError(t, err)
	assert.True(t, on)
	_, err = st.ToggleFavorite(ctx, "me", "heelflip")
	require.NoError(t, err)

	favs, err := st.Favorites(ctx, "me")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"kickflip", "heelflip"}, favs)

	on, err = st.ToggleFavorite(ctx, "me", "kickflip")
	require.NoError(t, err)
	assert.False(t, on)
	favs, err = st.Favorites(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, []string{"heelflip"}, favs)
}

func TestStore_Claim(t *testing.T) {
	ctx := context.Background()
	st := NewStore(newTestDB(t))

	require.NoError(t, st.Set(ctx, "anon", "ollie", game.Regular, 3))
	require.NoError(t, st.Set(ctx, "anon", "kickflip", game.Regular, 1))
	require.NoError(t, st.Set(ctx, "user", "kickflip", game.Regular, 4))
	_, err := st.ToggleFavorite(ctx, "anon", "ollie")
	require.NoError(t, err)

	require.NoError(t, st.Claim(ctx, "anon", "user"))

	l, err := st.Levels(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, 3, l.Get("ollie", game.Regular))
	assert.Equal(t, 4, l.Get("kickflip", game.Regular))

	left, err := st.Levels(ctx, "anon")
	require.NoError(t, err)
	assert.Empty(t, left)

	favs, err := st.Favorites(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, []string{"ollie"}, favs)
}
