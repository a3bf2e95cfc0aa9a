package goals

import "errors"

// Obstacle IDs a park can have. Chão (flat ground) is always present.
const (
	Chao       = "chao"
	ManualPad  = "manual-pad"
	Borda      = "borda"
	Corriborda = "corriborda"
	Corrimao   = "corrimao"
)

// Obstacle is a configurable park feature.
type Obstacle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Obstacles lists the park features a line can use besides flat ground.
var Obstacles = []Obstacle{
	{ID: ManualPad, Name: "Manual pad"},
	{ID: Borda, Name: "Borda"},
	{ID: Corriborda, Name: "Corriborda"},
	{ID: Corrimao, Name: "Corrimão"},
}

// Errors returned by the goals package.
var (
	ErrUnknownKind     = errors.New("unknown goal kind")
	ErrUnknownCategory = errors.New("unknown swap category")
	ErrStopIndex       = errors.New("stop index out of range")
	ErrItemIndex       = errors.New("daily item index out of range")
	ErrCompleted       = errors.New("goal already completed")
	ErrNotLine         = errors.New("goal has no generated line")
	ErrUnknownTrick    = errors.New("unknown trick")
	ErrLineFull        = errors.New("custom line is full")
	ErrLineTooShort    = errors.New("custom line is too short")
)

func obstacleName(id string) string {
	if id == Chao {
		return "Chão"
	}
	for _, o := range Obstacles {
		if o.ID == id {
			return o.Name
		}
	}
	return ""
}

// Settings describe the owner's park and line preferences.
type Settings struct {
	Obstacles []string `json:"obstacles"`
	FlipInOut bool     `json:"flipInOut"` // random flip in/out on ledges and rails
	Manuals   bool     `json:"manuals"`   // allow manual pad stops
}

// DefaultSettings is a park with a manual pad and a ledge.
func DefaultSettings() Settings {
	return Settings{Obstacles: []string{Chao, ManualPad, Borda}, Manuals: true}
}

// Normalize drops unknown and duplicate obstacles and makes sure chão is
// present.
func (s Settings) Normalize() Settings {
	seen := map[string]bool{Chao: true}
	out := []string{Chao}
	for _, id := range s.Obstacles {
		if seen[id] || obstacleName(id) == "" {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	s.Obstacles = out
	return s
}
