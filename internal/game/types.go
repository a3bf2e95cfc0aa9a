// internal/game/types.go
//
// Core type definitions for the S.K.A.T.E. turn engine.
// Defines:
//   - Side, Stance, Level, Phase, Role: small string enums.
//   - PendingAttempt: the trick currently being tried and by whom.
//   - Match: the full state of one match, passed by value through Apply.
//   - Command / Event: the engine's input and output vocabulary.

package game

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shunskating/skate-server/internal/catalog"
)

// MaxLetters is the length of S-K-A-T-E; reaching it loses the match.
const MaxLetters = 5

// Side identifies one of the two competitors.
type Side string

const (
	SideNone     Side = ""
	SidePlayer   Side = "player"
	SideOpponent Side = "opponent"
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SidePlayer {
		return SideOpponent
	}
	return SidePlayer
}

// Stance is the base a trick is performed from.
type Stance string

const (
	Regular Stance = "regular"
	Fakie   Stance = "fakie"
	Nollie  Stance = "nollie"
	Switch  Stance = "switch"
)

// Stances lists every stance in difficulty order.
var Stances = []Stance{Regular, Fakie, Nollie, Switch}

// ParseStance accepts a stance name (case-insensitive); empty means regular.
func ParseStance(s string) (Stance, error) {
	v := Stance(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		return Regular, nil
	}
	for _, st := range Stances {
		if v == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStance, s)
}

// Label returns the stance prefix used in trick names ("" for regular).
func (s Stance) Label() string {
	if s == Regular || s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Level is the simulated opponent's skill profile.
type Level string

const (
	Iniciante         Level = "iniciante"
	Intermediario     Level = "intermediario"
	IntermediarioPlus Level = "intermediario_plus"
	Avancado          Level = "avancado"
	Profissional      Level = "profissional"
)

// Levels lists every opponent level from easiest to hardest.
var Levels = []Level{Iniciante, Intermediario, IntermediarioPlus, Avancado, Profissional}

// ParseLevel validates a level name.
func ParseLevel(s string) (Level, error) {
	v := Level(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range Levels {
		if v == l {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Phase is the externally visible state of the turn machine. Opponent
// turns resolve inside a single Apply call, so only phases that wait on
// the human player are ever observed between commands.
type Phase string

const (
	PhaseCoinToss   Phase = "coin_toss"
	PhaseSelecting  Phase = "selecting"
	PhaseAttempting Phase = "attempting"
	PhaseMatchOver  Phase = "match_over"
	PhaseAbandoned  Phase = "abandoned"
)

// Terminal reports whether no further gameplay commands are accepted.
func (p Phase) Terminal() bool { return p == PhaseMatchOver || p == PhaseAbandoned }

// Role of the side making an attempt.
type Role string

const (
	RolePuller Role = "puller"
	RoleCopier Role = "copier"
)

// Coin faces.
const (
	Cara  = "cara"
	Coroa = "coroa"
)

// Errors returned for rejected commands. A rejected command never mutates the match.
var (
	ErrWrongPhase    = errors.New("command not allowed in current phase")
	ErrNotYourTurn   = errors.New("not the player's turn")
	ErrUnknownTrick  = errors.New("trick not in this match's pool")
	ErrComboUsed     = errors.New("trick and stance already used")
	ErrInvalidStance = errors.New("invalid stance")
	ErrInvalidLevel  = errors.New("invalid level")
	ErrEmptyPool     = errors.New("no tricks available for game type")
	ErrInvalidCall   = errors.New("coin call must be cara or coroa")
	ErrUnknownCmd    = errors.New("unknown command")
)

// PendingAttempt is the trick+stance currently being attempted.
type PendingAttempt struct {
	Trick     catalog.Trick `json:"trick"`
	Stance    Stance        `json:"stance"`
	Attempter Side          `json:"attempter"`
	Role      Role          `json:"role"`
	Retry     bool          `json:"retry"` // second-chance attempt
}

// Name is the display name, prefixed by the stance when not regular.
func (p PendingAttempt) Name() string { return TrickName(p.Trick, p.Stance) }

// TrickName renders "Fakie Kickflip" style names.
func TrickName(t catalog.Trick, s Stance) string {
	if l := s.Label(); l != "" {
		return l + " " + t.Name
	}
	return t.Name
}

// Match holds the state of a single S.K.A.T.E. match.
type Match struct {
	ID       string `json:"id"`
	Level    Level  `json:"level"`
	GameType string `json:"gameType"`
	Opponent string `json:"opponent"` // opponent display name

	Phase           Phase  `json:"phase"`
	Coin            string `json:"coin,omitempty"` // coin toss result
	PlayerLetters   int    `json:"playerLetters"`
	OpponentLetters int    `json:"opponentLetters"`
	IsPlayerPulling bool   `json:"isPlayerPulling"`

	PlayerSecondChanceUsed   bool `json:"playerSecondChanceUsed"`
	OpponentSecondChanceUsed bool `json:"opponentSecondChanceUsed"`

	Pool    TrickPool       `json:"pool"`
	Pending *PendingAttempt `json:"pending,omitempty"`
	Winner  Side            `json:"winner,omitempty"`
	History []string        `json:"history"`
	Prompt  string          `json:"prompt"`

	StartedAt time.Time `json:"startedAt"`
}

// Letters returns the letter count for a side.
func (m Match) Letters(s Side) int {
	if s == SidePlayer {
		return m.PlayerLetters
	}
	return m.OpponentLetters
}

// LetterString renders a letter count as "S-K-A" ("-" when empty).
func LetterString(n int) string {
	const word = "SKATE"
	if n <= 0 {
		return "-"
	}
	if n > MaxLetters {
		n = MaxLetters
	}
	return strings.Join(strings.Split(word[:n], ""), "-")
}

// clone returns a deep copy so transitions never alias the caller's state.
func (m Match) clone() Match {
	out := m
	out.History = append([]string(nil), m.History...)
	out.Pool = m.Pool.clone()
	if m.Pending != nil {
		p := *m.Pending
		out.Pending = &p
	}
	return out
}

// CommandKind enumerates the commands Apply accepts.
type CommandKind string

const (
	CmdCallCoin     CommandKind = "call_coin"
	CmdChooseTrick  CommandKind = "choose_trick"
	CmdReportLanded CommandKind = "report_landed"
	CmdReportMissed CommandKind = "report_missed"
	CmdAbandon      CommandKind = "abandon"
	CmdRematch      CommandKind = "rematch"
)

// Command is a discrete player input.
type Command struct {
	Kind    CommandKind
	Call    string // CmdCallCoin
	TrickID string // CmdChooseTrick
	Stance  Stance // CmdChooseTrick
}

func CallCoin(call string) Command { return Command{Kind: CmdCallCoin, Call: call} }
func ChooseTrick(id string, s Stance) Command {
	return Command{Kind: CmdChooseTrick, TrickID: id, Stance: s}
}
func ReportLanded() Command { return Command{Kind: CmdReportLanded} }
func ReportMissed() Command { return Command{Kind: CmdReportMissed} }
func Abandon() Command { return Command{Kind: CmdAbandon} }
func Rematch() Command { return Command{Kind: CmdRematch} }

// EventKind enumerates presentation events.
type EventKind string

const (
	EvMatchStarted     EventKind = "match_started"
	EvCoinFlipped      EventKind = "coin_flipped"
	EvTurnStarted      EventKind = "turn_started"
	EvOpponentThinking EventKind = "opponent_thinking"
	EvTrickAnnounced   EventKind = "trick_announced"
	EvAttemptResolved  EventKind = "attempt_resolved"
	EvSecondChance     EventKind = "second_chance"
	EvLetterAwarded    EventKind = "letter_awarded"
	EvComboUsed        EventKind = "combo_used"
	EvPoolReset        EventKind = "pool_reset"
	EvSpeech           EventKind = "speech"
	EvMatchOver        EventKind = "match_over"
	EvMatchAbandoned   EventKind = "match_abandoned"
)

// Event is one step of the narrative the presentation layer plays back in
// order. Delay is the suggested pause before showing it; the engine never
// waits.
type Event struct {
	Kind            EventKind     `json:"kind"`
	Side            Side          `json:"side,omitempty"`
	TrickID         string        `json:"trickId,omitempty"`
	Trick           string        `json:"trick,omitempty"`
	Category        string        `json:"category,omitempty"`
	Stance          Stance        `json:"stance,omitempty"`
	Landed          bool          `json:"landed"`
	PlayerLetters   int           `json:"playerLetters"`
	OpponentLetters int           `json:"opponentLetters"`
	Text            string        `json:"text,omitempty"`
	Delay           time.Duration `json:"-"`
}
