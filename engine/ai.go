package engine

import (
	"sort"
	"strconv"
	"time"
)

// aiPriority ranks special cards for the opponent heuristic. Number
// cards rank by face value, below every special.
var aiPriority = map[string]int{
	ValueWipe:     200,
	ValueBigDraw:  180,
	ValueSwap:     170,
	ValueCopy:     160,
	ValueOverload: 150,
	ValueLock:     140,
	ValueSteal:    130,
	ValueDrain:    120,
	ValueBlock:    110,
	ValueWild:     100,
	ValueSkip:     90,
	ValueReverse:  80,
}

// cardPriority returns the heuristic rank of a card.
func cardPriority(c Card) int {
	if p, ok := aiPriority[c.Value]; ok {
		return p
	}
	n, _ := strconv.Atoi(c.Value)
	return n
}

// scheduleAI arms one AI action after the pacing delay. A zero delay
// runs synchronously. Re-entrant calls while an action is already in
// flight are ignored, so the AI never acts twice without an
// intervening opponent turn except via explicit go-again effects.
// Assumes lock is held by caller.
func (g *Game) scheduleAI() {
	if g.mode != ModeAI || g.currentSeat != SeatOpponent {
		return
	}
	if g.gameOver || g.pending.Type != PendingNone || g.aiThinking {
		return
	}
	g.aiThinking = true
	if g.aiDelay <= 0 {
		g.takeAITurn()
		return
	}
	time.AfterFunc(g.aiDelay, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.takeAITurn()
	})
}

// takeAITurn selects and executes one legal action for the opponent
// seat: the highest-priority playable card, or a draw when nothing is
// playable. Drawing ends the turn like it does for a human.
// Assumes lock is held by caller and aiThinking is set.
func (g *Game) takeAITurn() {
	if g.gameOver || g.currentSeat != SeatOpponent || g.pending.Type != PendingNone {
		g.aiThinking = false
		return
	}

	type play struct {
		card Card
		idx  int
	}
	var playable []play
	for i, c := range g.hands[SeatOpponent] {
		if g.isPlayable(c) {
			playable = append(playable, play{card: c, idx: i})
		}
	}

	if len(playable) == 0 {
		// Draw one card; the turn passes regardless.
		if len(g.deck) == 0 {
			g.reshuffleDeck()
		}
		if len(g.deck) > 0 {
			g.hands[SeatOpponent] = append(g.hands[SeatOpponent], g.popDeck())
		}
		g.passTurn()
		g.aiThinking = false
		g.emitState()
		return
	}

	// Stable sort keeps hand order as the deterministic tie-break.
	sort.SliceStable(playable, func(i, j int) bool {
		return cardPriority(playable[i].card) > cardPriority(playable[j].card)
	})
	chosen := playable[0]

	g.hands[SeatOpponent] = append(g.hands[SeatOpponent][:chosen.idx], g.hands[SeatOpponent][chosen.idx+1:]...)
	g.discard = append(g.discard, chosen.card)
	g.declared[SeatOpponent] = false

	if chosen.card.Color == ColorWild {
		g.lock = ColorLock{}
		g.currentColor = g.chooseAIColor()
		g.currentValue = chosen.card.Value
	} else {
		g.currentColor = chosen.card.Color
		g.currentValue = chosen.card.Value
	}

	// The AI always declares on reaching one card.
	if len(g.hands[SeatOpponent]) == 1 && !g.declared[SeatOpponent] {
		g.declared[SeatOpponent] = true
		g.notify("warning", "AI declared CINCO!")
	}

	g.aiThinking = false
	g.resolveEffect(chosen.card, SeatOpponent, false)
}

// chooseAIColor picks the most frequent color among the opponent
// seat's remaining non-wild cards, skipping a locked-out color. Ties
// break in fixed color order; an empty count falls back to red.
// Assumes lock is held by caller.
func (g *Game) chooseAIColor() Color {
	var counts [4]int
	for _, c := range g.hands[SeatOpponent] {
		for i, pc := range PlayColors {
			if c.Color == pc {
				counts[i]++
			}
		}
	}

	best := -1
	bestCount := -1
	for i, pc := range PlayColors {
		if g.lock.Active() && g.lock.Color != pc {
			continue
		}
		if counts[i] > bestCount {
			best = i
			bestCount = counts[i]
		}
	}
	if best < 0 {
		return ColorRed
	}
	return PlayColors[best]
}
