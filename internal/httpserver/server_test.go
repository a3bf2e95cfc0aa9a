package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/shunskating/skate-server/assets"
	"github.com/shunskating/skate-server/internal/catalog"
	"github.com/shunskating/skate-server/internal/database"
	"github.com/shunskating/skate-server/internal/store"
)

// constRand returns the same draw forever. At 0.99 the coin shows coroa and
// an iniciante opponent misses everything.
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }
func (c constRand) Intn(int) int      { return 0 }

type testEnv struct {
	ts *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	data, err := assets.TricksYAML()
	require.NoError(t, err)
	cat, err := catalog.Parse(data)
	require.NoError(t, err)

	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := Config{
		JWTSecret:      "test_secret",
		JWTExpires:     time.Hour,
		CookieName:     "skate_token",
		AnonCookieName: "skate_anon",
		ClientOrigin:   "http://localhost:5173",
		GoalsSalt:      "test_salt",
	}
	srv := New(cfg, store.NewMemoryStore(), db, cat, constRand(0.99))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts}
}

// client returns a fresh browser-like client with its own cookie jar.
func (e *testEnv) client(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type matchResp struct {
	Match struct {
		ID              string `json:"id"`
		Phase           string `json:"phase"`
		Opponent        string `json:"opponent"`
		PlayerLetters   int    `json:"playerLetters"`
		OpponentLetters int    `json:"opponentLetters"`
		IsPlayerPulling bool   `json:"isPlayerPulling"`
		Winner          string `json:"winner"`
		PlayerWord      string `json:"playerWord"`
		OpponentWord    string `json:"opponentWord"`
		Remaining       int    `json:"remaining"`
		Available       map[string][]struct {
			ID string `json:"id"`
		} `json:"available"`
	} `json:"match"`
	Events []struct {
		Kind    string `json:"kind"`
		DelayMs int64  `json:"delayMs"`
	} `json:"events"`
}

func (m matchResp) has(kind string) bool {
	for _, e := range m.Events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestHealthAndCatalog(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var health map[string]bool
	assert.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/health", nil, &health))
	assert.True(t, health["ok"])

	var cats struct {
		Categories []struct {
			Name   string `json:"name"`
			Tricks []any  `json:"tricks"`
		} `json:"categories"`
		Stances []string `json:"stances"`
	}
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/catalog", nil, &cats))
	require.NotEmpty(t, cats.Categories)
	assert.Equal(t, catalog.Flatground, cats.Categories[0].Name)
	assert.Equal(t, []string{"regular", "fakie", "nollie", "switch"}, cats.Stances)

	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodGet, "/catalog/skatepark", nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodGet, "/nope", nil, nil))
}

func TestMatch_PlayerWinsAndStatsAreRecorded(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/auth/signup",
		map[string]string{"username": "skater_one", "password": "password123"}, nil))

	var m matchResp
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/matches",
		map[string]string{"level": "iniciante", "category": "flatground"}, &m))
	assert.Equal(t, "coin_toss", m.Match.Phase)
	assert.Equal(t, "Nathan", m.Match.Opponent)
	id := m.Match.ID
	require.NotEmpty(t, id)

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/coin",
		map[string]string{"call": "coroa"}, &m))
	assert.Equal(t, "selecting", m.Match.Phase)
	assert.True(t, m.Match.IsPlayerPulling)
	assert.True(t, m.has("coin_flipped"))

	picks := []struct{ trick, stance string }{
		{"ollie", "regular"}, {"ollie", "fakie"}, {"ollie", "nollie"}, {"ollie", "switch"}, {"shove-it", ""},
	}
	for i, p := range picks {
		require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/trick",
			map[string]string{"trickId": p.trick, "stance": p.stance}, &m), "pick %d", i)
		require.Equal(t, "attempting", m.Match.Phase)
		require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/landed", nil, &m))
		assert.Equal(t, i+1, m.Match.OpponentLetters)
	}

	assert.Equal(t, "match_over", m.Match.Phase)
	assert.Equal(t, "player", m.Match.Winner)
	assert.Equal(t, "-", m.Match.PlayerWord)
	assert.Equal(t, "S-K-A-T-E", m.Match.OpponentWord)
	assert.True(t, m.has("second_chance"), "the opponent gets a retry at four letters")
	assert.True(t, m.has("match_over"))
	var delayed bool
	for _, ev := range m.Events {
		delayed = delayed || ev.DelayMs > 0
	}
	assert.True(t, delayed)

	// Finished matches refuse gameplay.
	assert.Equal(t, http.StatusConflict, e.do(t, c, http.MethodPost, "/matches/"+id+"/landed", nil, nil))

	var stats map[string]any
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/stats/me", nil, &stats))
	assert.EqualValues(t, 1, stats["gamesPlayed"])
	assert.EqualValues(t, 1, stats["wins"])
	assert.EqualValues(t, 1, stats["streak"])

	var mine []matchRow
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/matches/mine", nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, id, mine[0].ID)
	assert.Equal(t, "player", mine[0].Winner)
	assert.Equal(t, 5, mine[0].OpponentLetters)

	var board []leaderRow
	require.Equal(t, http.StatusOK, e.do(t, e.client(t), http.MethodGet, "/leaderboard", nil, &board))
	require.Len(t, board, 1)
	assert.Equal(t, leaderRow{Username: "skater_one", Wins: 1, GamesPlayed: 1, Streak: 1}, board[0])

	var again matchResp
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/matches/"+id+"/rematch", nil, &again))
	assert.NotEqual(t, id, again.Match.ID)
	assert.Equal(t, "coin_toss", again.Match.Phase)
	assert.Equal(t, "Nathan", again.Match.Opponent)
	assert.Zero(t, again.Match.OpponentLetters)
	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodGet, "/matches/"+id, nil, nil))
	assert.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/matches/"+again.Match.ID, nil, nil))
}

func TestMatch_RejectedCommands(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/matches",
		map[string]string{"level": "lendario"}, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/matches",
		map[string]string{"category": "bowl"}, nil))

	var m matchResp
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/matches", nil, &m))
	id := m.Match.ID
	assert.Equal(t, "coin_toss", m.Match.Phase)

	assert.Equal(t, http.StatusConflict, e.do(t, c, http.MethodPost, "/matches/"+id+"/landed", nil, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/matches/"+id+"/coin",
		map[string]string{"call": "talvez"}, nil))

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/coin",
		map[string]string{"call": "coroa"}, &m))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/matches/"+id+"/trick",
		map[string]string{"trickId": "ollie", "stance": "sideways"}, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/matches/"+id+"/trick",
		map[string]string{"trickId": "no-such-trick"}, nil))

	// Other guests cannot see or touch the match.
	other := e.client(t)
	assert.Equal(t, http.StatusNotFound, e.do(t, other, http.MethodGet, "/matches/"+id, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, other, http.MethodDelete, "/matches/"+id, nil, nil))

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodDelete, "/matches/"+id, nil, &m))
	assert.Equal(t, "abandoned", m.Match.Phase)
	assert.True(t, m.has("match_abandoned"))
	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodGet, "/matches/"+id, nil, nil))
}

func TestMatch_UsedComboIsRejected(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var m matchResp
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/matches",
		map[string]string{"category": "flatground"}, &m))
	id := m.Match.ID
	total := m.Match.Remaining
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/coin",
		map[string]string{"call": "coroa"}, &m))
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/trick",
		map[string]string{"trickId": "kickflip"}, &m))
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/landed", nil, &m))

	assert.Equal(t, total-1, m.Match.Remaining)
	for _, tr := range m.Match.Available["regular"] {
		assert.NotEqual(t, "kickflip", tr.ID)
	}
	assert.Equal(t, http.StatusConflict, e.do(t, c, http.MethodPost, "/matches/"+id+"/trick",
		map[string]string{"trickId": "kickflip", "stance": "regular"}, nil))
	assert.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/trick",
		map[string]string{"trickId": "kickflip", "stance": "fakie"}, nil))
}

func TestEventStream(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var m matchResp
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/matches", nil, &m))
	id := m.Match.ID

	u, err := url.Parse(e.ts.URL)
	require.NoError(t, err)
	hdr := http.Header{}
	for _, ck := range c.Jar.Cookies(u) {
		hdr.Add("Cookie", ck.Name+"="+ck.Value)
	}
	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/matches/" + id + "/events"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err, "strangers cannot subscribe")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	type envelope struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	var first envelope
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "match", first.Type)

	// A second tab gets its own snapshot; the first one sees nothing new.
	other, _, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	require.NoError(t, err)
	defer other.Close()
	_ = other.SetReadDeadline(time.Now().Add(5 * time.Second))
	var snap envelope
	require.NoError(t, other.ReadJSON(&snap))
	assert.Equal(t, "match", snap.Type)

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/coin",
		map[string]string{"call": "coroa"}, nil))

	var next envelope
	require.NoError(t, conn.ReadJSON(&next))
	require.Equal(t, "event", next.Type)
	var firstEvent struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(next.Payload, &firstEvent))
	assert.Equal(t, "coin_flipped", firstEvent.Kind)

	var kinds []string
	for {
		var env envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Type == "match" {
			var view struct {
				Phase string `json:"phase"`
			}
			require.NoError(t, json.Unmarshal(env.Payload, &view))
			assert.Equal(t, "selecting", view.Phase)
			break
		}
		require.Equal(t, "event", env.Type)
		var ev struct {
			Kind string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal(env.Payload, &ev))
		kinds = append(kinds, ev.Kind)
	}
	assert.Contains(t, kinds, "turn_started")
}

func TestProgressAndFavorites(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var set map[string]any
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPut, "/progress",
		map[string]any{"trickId": "kickflip", "stance": "fakie", "level": 3}, &set))
	assert.Equal(t, "Tô pegando a base", set["label"])

	var got struct {
		Levels map[string]int `json:"levels"`
		Labels []string       `json:"labels"`
	}
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/progress", nil, &got))
	assert.Equal(t, 3, got.Levels["kickflip_fakie"])
	assert.Len(t, got.Labels, 5)

	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPut, "/progress",
		map[string]any{"trickId": "kickflip", "level": 7}, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPut, "/progress",
		map[string]any{"trickId": "nope", "level": 1}, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPut, "/progress",
		map[string]any{"trickId": "kickflip", "stance": "mongo", "level": 1}, nil))

	var fav map[string]any
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/favorites/kickflip", nil, &fav))
	assert.Equal(t, true, fav["favorite"])
	var favs struct {
		Favorites []string `json:"favorites"`
	}
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/favorites", nil, &favs))
	assert.Equal(t, []string{"kickflip"}, favs.Favorites)
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/favorites/kickflip", nil, &fav))
	assert.Equal(t, false, fav["favorite"])
	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodPost, "/favorites/nope", nil, nil))
}

type goalResp struct {
	Kind      string `json:"kind"`
	Period    string `json:"period"`
	Completed bool   `json:"completed"`
	Swaps     int    `json:"swaps"`
	Line      []struct {
		PlaceID  string `json:"placeId"`
		Category string `json:"category"`
		Trick    string `json:"trick"`
	} `json:"line"`
	Items []struct {
		Category  string `json:"category"`
		Completed bool   `json:"completed"`
	} `json:"items"`
	Stops  []string `json:"stops"`
	Tricks []string `json:"tricks"`
}

func TestGoals(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var week, again goalResp
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/goals/weekly", nil, &week))
	assert.Equal(t, "weekly", week.Kind)
	require.GreaterOrEqual(t, len(week.Line), 4)
	require.LessOrEqual(t, len(week.Line), 5)
	assert.Equal(t, "chao", week.Line[0].PlaceID)
	assert.Equal(t, "chao", week.Line[len(week.Line)-1].PlaceID)
	assert.Len(t, week.Stops, len(week.Line))
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/goals/weekly", nil, &again))
	assert.Equal(t, week.Line, again.Line, "a period keeps its line")

	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodGet, "/goals/yearly", nil, nil))

	var daily goalResp
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/goals/daily", nil, &daily))
	require.Len(t, daily.Items, 3)
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/goals/daily/0/toggle", nil, &daily))
	assert.True(t, daily.Items[0].Completed)
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/goals/daily/9/toggle", nil, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/goals/daily/complete", nil, nil))

	var swapped goalResp
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/goals/weekly/stops/1/swap",
		map[string]string{"category": "flatground"}, &swapped))
	assert.Equal(t, 1, swapped.Swaps)
	assert.Equal(t, "flatground", swapped.Line[1].Category)
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/goals/weekly/stops/1/swap",
		map[string]string{"category": "vert"}, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/goals/weekly/stops/99/swap",
		map[string]string{"category": "flatground"}, nil))

	var done goalResp
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/goals/weekly/complete", nil, &done))
	assert.True(t, done.Completed)
	assert.Equal(t, http.StatusConflict, e.do(t, c, http.MethodPost, "/goals/weekly/complete", nil, nil))
	assert.Equal(t, http.StatusConflict, e.do(t, c, http.MethodPost, "/goals/weekly/stops/1/swap",
		map[string]string{"category": "flatground"}, nil))

	var month goalResp
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/goals/monthly", nil, &month))
	assert.GreaterOrEqual(t, len(month.Line), 7)
	assert.LessOrEqual(t, len(month.Line), 9)
}

func TestCustomGoals(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var line goalResp
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/goals/custom/weekly", nil, &line))
	assert.Equal(t, "custom-weekly", line.Kind)
	assert.Empty(t, line.Tricks)
	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodGet, "/goals/custom/daily", nil, nil))

	add := func(id string) int {
		return e.do(t, c, http.MethodPost, "/goals/custom/weekly/tricks", map[string]string{"trickId": id}, &line)
	}
	require.Equal(t, http.StatusOK, add("ollie"))
	require.Equal(t, http.StatusOK, add("kickflip"))
	assert.Equal(t, http.StatusBadRequest, add("nope"))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/goals/custom/weekly/complete", nil, nil),
		"two tricks are not enough")

	require.Equal(t, http.StatusOK, add("bs-boardslide"))
	require.Equal(t, http.StatusOK, add("manual"))
	assert.Equal(t, []string{"Ollie", "Kickflip", "BS Boardslide", "Manual"}, line.Tricks)
	assert.Equal(t, http.StatusBadRequest, add("heelflip"), "weekly lines stop at four")

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodDelete, "/goals/custom/weekly/tricks/0", nil, &line))
	assert.Equal(t, []string{"Kickflip", "BS Boardslide", "Manual"}, line.Tricks)
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodDelete, "/goals/custom/weekly/tricks/7", nil, nil))

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/goals/custom/weekly/complete", nil, &line))
	assert.True(t, line.Completed)
	assert.Equal(t, http.StatusConflict, e.do(t, c, http.MethodPost, "/goals/custom/weekly/complete", nil, nil))
	assert.Equal(t, http.StatusConflict, add("heelflip"))

	// The generated weekly goal is untouched.
	var week goalResp
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/goals/weekly", nil, &week))
	assert.False(t, week.Completed)
}

func TestCatalogDifficultyAndFavorites(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	type listing struct {
		Tricks []struct {
			ID         string `json:"id"`
			Difficulty int    `json:"difficulty"`
		} `json:"tricks"`
	}
	var hard listing
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/catalog/flatground?difficulty=dificil", nil, &hard))
	require.NotEmpty(t, hard.Tricks)
	for _, tr := range hard.Tricks {
		assert.GreaterOrEqual(t, tr.Difficulty, 4, tr.ID)
	}
	var mid listing
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/catalog/flatground?difficulty=intermediaria", nil, &mid))
	for _, tr := range mid.Tricks {
		assert.Equal(t, 3, tr.Difficulty, tr.ID)
	}
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodGet, "/catalog/flatground?difficulty=x", nil, nil))

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/favorites/laser-flip", nil, nil))
	var all listing
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/catalog/flatground", nil, &all))
	require.NotEmpty(t, all.Tricks)
	assert.Equal(t, "laser-flip", all.Tricks[0].ID)
	assert.Equal(t, "ollie", all.Tricks[1].ID)

	// Someone else's favorites do not reorder the list.
	var fresh listing
	require.Equal(t, http.StatusOK, e.do(t, e.client(t), http.MethodGet, "/catalog/flatground", nil, &fresh))
	assert.Equal(t, "ollie", fresh.Tricks[0].ID)
}

func TestTrickNotesAndLinks(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var note map[string]string
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPut, "/tricks/kickflip/notes",
		map[string]string{"stance": "fakie", "note": "olhar pro nose"}, nil))
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/tricks/kickflip/notes?stance=fakie", nil, &note))
	assert.Equal(t, "olhar pro nose", note["note"])
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/tricks/kickflip/notes", nil, &note))
	assert.Empty(t, note["note"], "notes are per stance")
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodGet, "/tricks/kickflip/notes?stance=mongo", nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodGet, "/tricks/nope/notes", nil, nil))

	var link struct {
		ID    int64  `json:"id"`
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/tricks/kickflip/links",
		map[string]string{"url": "https://example.com/kickflip"}, &link))
	assert.Equal(t, link.URL, link.Title)
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/tricks/kickflip/links",
		map[string]string{"url": "ftp://example.com"}, nil))

	var links struct {
		Links []struct {
			ID int64 `json:"id"`
		} `json:"links"`
	}
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/tricks/kickflip/links", nil, &links))
	require.Len(t, links.Links, 1)

	linkPath := "/tricks/kickflip/links/" + strconv.FormatInt(link.ID, 10)
	assert.Equal(t, http.StatusNotFound, e.do(t, e.client(t), http.MethodDelete, linkPath, nil, nil))
	assert.Equal(t, http.StatusOK, e.do(t, c, http.MethodDelete, linkPath, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodDelete, linkPath, nil, nil))
}

func TestGoalSettings(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	type settingsResp struct {
		Settings struct {
			Obstacles []string `json:"obstacles"`
			FlipInOut bool     `json:"flipInOut"`
			Manuals   bool     `json:"manuals"`
		} `json:"settings"`
	}
	var s settingsResp
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/goals/settings", nil, &s))
	assert.Equal(t, []string{"chao", "manual-pad", "borda"}, s.Settings.Obstacles)
	assert.True(t, s.Settings.Manuals)

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPut, "/goals/settings",
		map[string]any{"obstacles": []string{"corrimao", "xyz"}, "flipInOut": true, "manuals": false}, &s))
	assert.Equal(t, []string{"chao", "corrimao"}, s.Settings.Obstacles)
	assert.True(t, s.Settings.FlipInOut)

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/goals/settings", nil, &s))
	assert.Equal(t, []string{"chao", "corrimao"}, s.Settings.Obstacles)
}

func TestAuth(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	creds := map[string]string{"username": "skater_two", "password": "password123"}

	assert.Equal(t, http.StatusUnauthorized, e.do(t, c, http.MethodGet, "/auth/me", nil, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/auth/signup",
		map[string]string{"username": "ab", "password": "password123"}, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, c, http.MethodPost, "/auth/signup",
		map[string]string{"username": "skater_x", "password": "short"}, nil))

	// Guest progress made before signing up moves to the account.
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPut, "/progress",
		map[string]any{"trickId": "ollie", "stance": "regular", "level": 4}, nil))
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/auth/signup", creds, nil))
	assert.Equal(t, http.StatusConflict, e.do(t, e.client(t), http.MethodPost, "/auth/signup", creds, nil))

	var me authUser
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/auth/me", nil, &me))
	assert.Equal(t, "skater_two", me.Username)

	var prog struct {
		Levels map[string]int `json:"levels"`
	}
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/progress", nil, &prog))
	assert.Equal(t, 4, prog.Levels["ollie_regular"])

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, e.do(t, c, http.MethodGet, "/auth/me", nil, nil))

	other := e.client(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, other, http.MethodPost, "/auth/login",
		map[string]string{"username": "skater_two", "password": "wrong-password"}, nil))
	require.Equal(t, http.StatusOK, e.do(t, other, http.MethodPost, "/auth/login",
		map[string]string{"username": "SKATER_TWO", "password": "password123"}, nil))
	require.Equal(t, http.StatusOK, e.do(t, other, http.MethodGet, "/progress", nil, &prog))
	assert.Equal(t, 4, prog.Levels["ollie_regular"])
}

func TestAuth_LiveMatchFollowsSignup(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var m matchResp
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/matches", nil, &m))
	id := m.Match.ID
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/auth/signup",
		map[string]string{"username": "mid_match", "password": "password123"}, nil))

	assert.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/matches/"+id, nil, nil))
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/coin",
		map[string]string{"call": "coroa"}, &m))
	assert.Equal(t, "selecting", m.Match.Phase)

	// The match now belongs to the account, so logging out hides it.
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/auth/logout", nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, c, http.MethodGet, "/matches/"+id, nil, nil))

	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/auth/login",
		map[string]string{"username": "mid_match", "password": "password123"}, nil))
	assert.Equal(t, http.StatusOK, e.do(t, c, http.MethodGet, "/matches/"+id, nil, nil))
}

func TestMatch_ConcurrentRematchStartsOneMatch(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	var m matchResp
	require.Equal(t, http.StatusCreated, e.do(t, c, http.MethodPost, "/matches", nil, &m))
	id := m.Match.ID
	require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/coin",
		map[string]string{"call": "coroa"}, nil))
	for _, trick := range []string{"ollie", "shove-it", "fs-180", "bs-180", "kickflip"} {
		require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/trick",
			map[string]string{"trickId": trick, "stance": "regular"}, nil), trick)
		require.Equal(t, http.StatusOK, e.do(t, c, http.MethodPost, "/matches/"+id+"/landed", nil, &m))
	}
	require.Equal(t, "match_over", m.Match.Phase)

	statuses := make([]int, 4)
	var g errgroup.Group
	for i := range statuses {
		g.Go(func() error {
			statuses[i] = e.do(t, c, http.MethodPost, "/matches/"+id+"/rematch", nil, nil)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	created := 0
	for _, code := range statuses {
		if code == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusNotFound, code)
		}
	}
	assert.Equal(t, 1, created)
}

func TestValidateSignup(t *testing.T) {
	assert.NoError(t, validateSignup("skate_rat_99", "12345678"))
	assert.Error(t, validateSignup("no spaces", "12345678"))
	assert.Error(t, validateSignup("x", "12345678"))
	assert.Error(t, validateSignup("skater", "1234567"))
	assert.Len(t, genID(), 22)
}
