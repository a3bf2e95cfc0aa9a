package game

// Speech categories for the opponent's lines.
const (
	speechStartPlayer    = "inicio_player"
	speechStartOpponent  = "inicio_opponent"
	speechLandedEasy     = "acertou_facil"
	speechLandedMedium   = "acertou_medio"
	speechLandedHard     = "acertou_dificil"
	speechPlayerMissed   = "errou"
	speechYourTurn       = "tentando"
	speechOpponentMissed = "adversario_errou"
	speechOpponentLanded = "adversario_acertou"
	speechOpponentAhead  = "voce_perdendo"
	speechOpponentWins   = "vitoria"
	speechOpponentLoses  = "derrota"
	speechLastChance     = "ultima_chance"
)

var opponentPhrases = map[string][]string{
	speechStartPlayer:    {"Pode puxar, é sua", "Abre o jogo aí", "Vamo ver o que você puxa"},
	speechStartOpponent:  {"Comecei! Bora lá", "Vou abrir o jogo", "Deixa eu puxar uma boa"},
	speechLandedEasy:     {"Boa!", "Firmeza, era fácil mesmo", "Suave pra você também, né?"},
	speechLandedMedium:   {"Eita, mandou também!", "Boa! Ficou limpo", "Tá mandando bem!"},
	speechLandedHard:     {"Você mandou essa?!", "Respeito! Essa é braba", "Que manobra foi essa, mano!"},
	speechPlayerMissed:   {"Opa, essa é minha! Letra pra você!", "Errou! Começa a pressão", "Mais uma letra!"},
	speechYourTurn:       {"Vamo ver se você manda também", "Bora repetir!", "Tua vez!", "Mostra como faz"},
	speechOpponentMissed: {"Ahh errei!", "Essa me pegou", "Vacilei nessa"},
	speechOpponentLanded: {"Mandei!", "Essa foi!", "Tranquilo"},
	speechOpponentAhead:  {"Tô mandando bem hoje!", "Tá difícil pra você, né?", "Hoje tô on fire!"},
	speechOpponentWins:   {"GANHEI! Que game foi esse!", "Boa demais! Foi osso, hein?", "Foi um bom game!"},
	speechOpponentLoses:  {"Ahh perdi! Você mandou bem", "Levou essa! Parabéns", "Da próxima eu ganho!"},
	speechLastChance:     {"Última chance, hein!"},
}

// phrase rotates through a category by n so speech stays deterministic
// without consuming the match's random source.
func phrase(category string, n int) string {
	list := opponentPhrases[category]
	if len(list) == 0 {
		return ""
	}
	if n < 0 {
		n = -n
	}
	return list[n%len(list)]
}

// landedSpeech picks the reaction to the player copying a trick.
func landedSpeech(difficulty int) string {
	switch {
	case difficulty <= 2:
		return speechLandedEasy
	case difficulty >= 4:
		return speechLandedHard
	default:
		return speechLandedMedium
	}
}
