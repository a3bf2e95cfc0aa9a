// internal/game/engine.go
//
// Turn engine for a single game of S.K.A.T.E. against a simulated opponent.
// Responsibilities:
//   - Create matches in the coin-toss phase (NewMatch).
//   - Apply player commands as pure transitions over a Match value (Apply).
//   - Resolve the opponent's turns inline with the injected Rand until the
//     human player is needed again.
//   - Emit an ordered list of timed presentation events for each transition.
//
// Notes:
//   - Apply never mutates its input; a rejected command returns the input
//     unchanged together with an error.
//   - The player's landings are self-reported; the opponent's are drawn
//     from the level's hit-probability table.
package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/shunskating/skate-server/internal/catalog"
)

// Suggested pauses between presentation events.
const (
	delayCoinFlip   = 1000 * time.Millisecond
	delayCoinReveal = 2000 * time.Millisecond
	delayThinking   = 1500 * time.Millisecond
	delayOutcome    = 2300 * time.Millisecond
	delayRetry      = 1500 * time.Millisecond
	delayNextTurn   = 1000 * time.Millisecond
	delayHandOver   = 2000 * time.Millisecond
	delayGameOver   = 1500 * time.Millisecond
)

// MatchConfig describes a new match.
type MatchConfig struct {
	ID       string
	Level    Level
	GameType string
	Tricks   []catalog.Trick // the game-type pool
	Opponent string          // drawn from the level's skaters when empty
	Now      time.Time
}

// NewMatch starts a match waiting for the coin toss.
func NewMatch(cfg MatchConfig, rng Rand) (Match, []Event, error) {
	if _, ok := hitProbability[cfg.Level]; !ok {
		return Match{}, nil, fmt.Errorf("new match: %w: %q", ErrInvalidLevel, cfg.Level)
	}
	if len(cfg.Tricks) == 0 {
		return Match{}, nil, fmt.Errorf("new match %q: %w", cfg.GameType, ErrEmptyPool)
	}
	name := cfg.Opponent
	if name == "" {
		name = pickOpponentName(cfg.Level, rng)
	}
	now := cfg.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	m := Match{
		ID:        cfg.ID,
		Level:     cfg.Level,
		GameType:  cfg.GameType,
		Opponent:  name,
		Phase:     PhaseCoinToss,
		Pool:      NewTrickPool(cfg.Tricks),
		History:   []string{},
		Prompt:    "Cara ou coroa?",
		StartedAt: now,
	}
	return m, []Event{{Kind: EvMatchStarted, Side: SideOpponent, Text: name}}, nil
}

// Apply runs one command against m and returns the resulting match and the
// events it produced.
func Apply(m Match, cmd Command, rng Rand) (Match, []Event, error) {
	t := &turn{m: m.clone(), rng: rng}
	var err error
	switch cmd.Kind {
	case CmdCallCoin:
		err = t.callCoin(cmd.Call)
	case CmdChooseTrick:
		err = t.chooseTrick(cmd.TrickID, cmd.Stance)
	case CmdReportLanded:
		err = t.report(true)
	case CmdReportMissed:
		err = t.report(false)
	case CmdAbandon:
		err = t.abandon()
	case CmdRematch:
		err = t.rematch()
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCmd, cmd.Kind)
	}
	if err != nil {
		return m, nil, err
	}
	return t.m, t.events, nil
}

// turn accumulates one transition.
type turn struct {
	m      Match
	rng    Rand
	events []Event
}

func (t *turn) emit(e Event, delay time.Duration) {
	e.Delay = delay
	e.PlayerLetters = t.m.PlayerLetters
	e.OpponentLetters = t.m.OpponentLetters
	t.events = append(t.events, e)
}

func (t *turn) say(category string) {
	t.emit(Event{Kind: EvSpeech, Side: SideOpponent, Text: phrase(category, len(t.m.History))}, 0)
}

func (t *turn) log(line string) { t.m.History = append(t.m.History, line) }

func (t *turn) resolved(side Side, p PendingAttempt, landed bool, delay time.Duration) {
	t.emit(Event{
		Kind:     EvAttemptResolved,
		Side:     side,
		TrickID:  p.Trick.ID,
		Trick:    p.Name(),
		Category: p.Trick.Category,
		Stance:   p.Stance,
		Landed:   landed,
	}, delay)
}

// ----------------------------- commands ------------------------------------

func (t *turn) callCoin(call string) error {
	if t.m.Phase != PhaseCoinToss {
		return fmt.Errorf("call coin: %w", ErrWrongPhase)
	}
	call = strings.ToLower(strings.TrimSpace(call))
	if call != Cara && call != Coroa {
		return fmt.Errorf("call coin %q: %w", call, ErrInvalidCall)
	}
	// The draw ignores the call; the call only decides who won it.
	result := Coroa
	if t.rng.Float64() < 0.5 {
		result = Cara
	}
	t.m.Coin = result
	playerWins := call == result

	starter, first := "Você começa!", SidePlayer
	if !playerWins {
		starter, first = t.m.Opponent+" começa!", SideOpponent
	}
	t.log("Deu " + result + ". " + starter)
	t.emit(Event{Kind: EvCoinFlipped, Side: first, Text: "Deu " + strings.ToUpper(result) + "! " + starter}, delayCoinFlip)

	if playerWins {
		t.say(speechStartPlayer)
		t.playerSelects(delayCoinReveal)
	} else {
		t.say(speechStartOpponent)
		t.opponentPulls(delayCoinReveal)
	}
	return nil
}

func (t *turn) chooseTrick(id string, s Stance) error {
	if t.m.Phase != PhaseSelecting {
		return fmt.Errorf("choose trick: %w", ErrWrongPhase)
	}
	if !t.m.IsPlayerPulling {
		return fmt.Errorf("choose trick: %w", ErrNotYourTurn)
	}
	if s == "" {
		s = Regular
	}
	if _, ok := stanceOffset[s]; !ok {
		return fmt.Errorf("choose trick: %w: %q", ErrInvalidStance, s)
	}
	trick, ok := t.m.Pool.Find(id)
	if !ok {
		return fmt.Errorf("choose trick %q: %w", id, ErrUnknownTrick)
	}
	if !t.m.Pool.IsAvailable(id, s) {
		return fmt.Errorf("choose trick %q (%s): %w", id, s, ErrComboUsed)
	}

	t.m.Pending = &PendingAttempt{Trick: trick, Stance: s, Attempter: SidePlayer, Role: RolePuller}
	t.m.Phase = PhaseAttempting
	name := t.m.Pending.Name()
	t.log("Você puxou " + name)
	t.m.Prompt = "Você puxou: " + name + ". Mandou ou errou?"
	t.emit(Event{Kind: EvTrickAnnounced, Side: SidePlayer, TrickID: id, Trick: name,
		Category: trick.Category, Stance: s}, 0)
	t.say(speechYourTurn)
	return nil
}

func (t *turn) report(landed bool) error {
	if t.m.Phase != PhaseAttempting || t.m.Pending == nil {
		return fmt.Errorf("report attempt: %w", ErrWrongPhase)
	}
	if t.m.Pending.Attempter != SidePlayer {
		return fmt.Errorf("report attempt: %w", ErrNotYourTurn)
	}
	p := *t.m.Pending
	t.resolved(SidePlayer, p, landed, 0)

	switch {
	case p.Role == RolePuller && landed:
		t.log("Você mandou ✓")
		t.opponentCopies(p)
	case p.Role == RolePuller:
		// No letter; the combination stays in the pool.
		t.log("Você errou ao puxar ✗")
		t.say(speechOpponentAhead)
		t.opponentPulls(delayHandOver)
	case landed:
		t.log("Você copiou ✓")
		t.consume(p)
		t.say(landedSpeech(EffectiveDifficulty(p.Trick.Difficulty, p.Stance)))
		t.opponentPulls(delayHandOver)
	default:
		t.playerCopyMissed(p)
	}
	return nil
}

func (t *turn) abandon() error {
	if t.m.Phase.Terminal() {
		return fmt.Errorf("abandon: %w", ErrWrongPhase)
	}
	t.m.Phase = PhaseAbandoned
	t.m.Pending = nil
	t.m.Prompt = ""
	t.log("Game abandonado")
	t.emit(Event{Kind: EvMatchAbandoned}, 0)
	return nil
}

func (t *turn) rematch() error {
	if !t.m.Phase.Terminal() {
		return fmt.Errorf("rematch: %w", ErrWrongPhase)
	}
	fresh, events, err := NewMatch(MatchConfig{
		ID:       t.m.ID,
		Level:    t.m.Level,
		GameType: t.m.GameType,
		Tricks:   t.m.Pool.Tricks,
		Opponent: t.m.Opponent,
	}, t.rng)
	if err != nil {
		return err
	}
	t.m = fresh
	t.events = append(t.events, events...)
	return nil
}

// ---------------------------- transitions ----------------------------------

// playerSelects hands the pull to the player.
func (t *turn) playerSelects(delay time.Duration) {
	t.m.Phase = PhaseSelecting
	t.m.IsPlayerPulling = true
	t.m.Pending = nil
	t.refillPool()
	t.m.Prompt = "Sua vez de puxar!"
	t.emit(Event{Kind: EvTurnStarted, Side: SidePlayer, Text: t.m.Prompt}, delay)
}

// playerCopyMissed awards a letter unless the second chance applies.
func (t *turn) playerCopyMissed(p PendingAttempt) {
	if t.grantSecondChance(SidePlayer) {
		t.m.Pending.Retry = true
		t.log("Você errou, mas tem mais uma chance!")
		t.m.Prompt = "Última chance! " + p.Name() + ": mandou ou errou?"
		t.emit(Event{Kind: EvSecondChance, Side: SidePlayer, TrickID: p.Trick.ID, Trick: p.Name(),
			Stance: p.Stance, Text: t.m.Prompt}, delayRetry)
		t.say(speechLastChance)
		return
	}
	t.log("Você errou ✗ (ganhou letra)")
	t.consume(p)
	if t.awardLetter(SidePlayer) {
		return
	}
	t.say(speechPlayerMissed)
	t.opponentPulls(delayHandOver)
}

// opponentPulls resolves a full opponent pull: choose, attempt, and either
// wait for the player's copy or hand the pull back.
func (t *turn) opponentPulls(delay time.Duration) {
	t.m.IsPlayerPulling = false
	t.m.Pending = nil
	t.refillPool()
	opp := t.m.Opponent
	t.emit(Event{Kind: EvTurnStarted, Side: SideOpponent}, delay)
	t.emit(Event{Kind: EvOpponentThinking, Side: SideOpponent, Text: opp + " está puxando..."}, 0)

	c := t.opponentChooses()
	p := PendingAttempt{Trick: c.Trick, Stance: c.Stance, Attempter: SideOpponent, Role: RolePuller}
	name := p.Name()
	t.emit(Event{Kind: EvTrickAnnounced, Side: SideOpponent, TrickID: p.Trick.ID, Trick: name,
		Category: p.Trick.Category, Stance: p.Stance, Text: opp + " vai de " + name + "..."}, delayThinking)

	landed := t.opponentLands(p)
	t.resolved(SideOpponent, p, landed, delayOutcome)
	if !landed {
		// Not consumed: the combination may come up again.
		t.log(opp + " errou ao puxar " + name + " ✗")
		t.say(speechOpponentMissed)
		t.playerSelects(delayNextTurn)
		return
	}
	t.log(opp + " puxou " + name + " ✓")
	t.m.Pending = &PendingAttempt{Trick: p.Trick, Stance: p.Stance, Attempter: SidePlayer, Role: RoleCopier}
	t.m.Phase = PhaseAttempting
	t.m.Prompt = opp + " puxou: " + name + ". Sua vez de copiar!"
	t.say(speechYourTurn)
}

// opponentCopies resolves the opponent's copy of the player's landed trick.
func (t *turn) opponentCopies(p PendingAttempt) {
	opp := t.m.Opponent
	copyAttempt := PendingAttempt{Trick: p.Trick, Stance: p.Stance, Attempter: SideOpponent, Role: RoleCopier}
	t.m.Pending = &copyAttempt
	t.emit(Event{Kind: EvOpponentThinking, Side: SideOpponent, Text: opp + " tentando copiar..."}, delayNextTurn)

	landed := t.opponentLands(copyAttempt)
	t.resolved(SideOpponent, copyAttempt, landed, delayOutcome)
	if landed {
		t.log(opp + " copiou ✓")
		t.consume(copyAttempt)
		t.say(speechOpponentLanded)
		t.playerSelects(delayNextTurn)
		return
	}

	if t.grantSecondChance(SideOpponent) {
		t.m.Pending.Retry = true
		t.emit(Event{Kind: EvSecondChance, Side: SideOpponent, TrickID: p.Trick.ID, Trick: p.Name(),
			Stance: p.Stance, Text: "Errou! Tentando de novo..."}, 0)
		retry := *t.m.Pending
		landed = t.opponentLands(retry)
		t.resolved(SideOpponent, retry, landed, delayRetry)
		if landed {
			t.log(opp + " mandou na segunda! ✓")
			t.consume(retry)
			t.say(speechOpponentLanded)
			t.playerSelects(delayNextTurn)
			return
		}
		t.log(opp + " errou as duas ✗")
	} else {
		t.log(opp + " errou ✗ (ganhou letra)")
	}

	t.consume(copyAttempt)
	if t.awardLetter(SideOpponent) {
		return
	}
	t.say(speechOpponentMissed)
	t.playerSelects(delayNextTurn)
}

// opponentChooses draws a stance from the level's table, then a trick
// uniformly among those still unused in that stance. When the drawn stance
// is exhausted it falls back to any unused combination.
func (t *turn) opponentChooses() Combo {
	stance := PickStance(t.m.Level, t.rng.Float64())
	if avail := t.m.Pool.Available(stance); len(avail) > 0 {
		return Combo{Trick: avail[t.rng.Intn(len(avail))], Stance: stance}
	}
	combos := t.m.Pool.Combos()
	return combos[t.rng.Intn(len(combos))]
}

func (t *turn) opponentLands(p PendingAttempt) bool {
	return t.rng.Float64() < HitProbability(t.m.Level, p.Trick, p.Stance)
}

// grantSecondChance reports (and records) whether side gets a retry: it
// must be one letter from losing and not have used its retry yet.
func (t *turn) grantSecondChance(side Side) bool {
	if t.m.Letters(side) != MaxLetters-1 {
		return false
	}
	if side == SidePlayer {
		if t.m.PlayerSecondChanceUsed {
			return false
		}
		t.m.PlayerSecondChanceUsed = true
		return true
	}
	if t.m.OpponentSecondChanceUsed {
		return false
	}
	t.m.OpponentSecondChanceUsed = true
	return true
}

// awardLetter gives side a letter and ends the match when it spells SKATE.
func (t *turn) awardLetter(side Side) (over bool) {
	if side == SidePlayer {
		t.m.PlayerLetters++
	} else {
		t.m.OpponentLetters++
	}
	n := t.m.Letters(side)
	t.emit(Event{Kind: EvLetterAwarded, Side: side, Text: LetterString(n)}, 0)
	if n >= MaxLetters {
		t.finish()
		return true
	}
	return false
}

func (t *turn) finish() {
	t.m.Phase = PhaseMatchOver
	t.m.Pending = nil
	t.m.Winner = SidePlayer
	if t.m.PlayerLetters > t.m.OpponentLetters {
		t.m.Winner = SideOpponent
	}
	if t.m.Winner == SidePlayer {
		t.m.Prompt = "VOCÊ GANHOU!"
	} else {
		t.m.Prompt = "VOCÊ PERDEU!"
	}
	t.log(fmt.Sprintf("Fim de jogo: você %s, %s %s",
		LetterString(t.m.PlayerLetters), t.m.Opponent, LetterString(t.m.OpponentLetters)))
	t.emit(Event{Kind: EvMatchOver, Side: t.m.Winner, Text: t.m.Prompt}, delayGameOver)
	if t.m.Winner == SidePlayer {
		t.say(speechOpponentLoses)
	} else {
		t.say(speechOpponentWins)
	}
}

func (t *turn) consume(p PendingAttempt) {
	t.m.Pool.MarkUsed(p.Trick.ID, p.Stance)
	t.emit(Event{Kind: EvComboUsed, TrickID: p.Trick.ID, Trick: p.Name(), Stance: p.Stance}, 0)
}

func (t *turn) refillPool() {
	if t.m.Pool.Exhausted() {
		t.m.Pool.Reset()
		t.emit(Event{Kind: EvPoolReset}, 0)
	}
}
