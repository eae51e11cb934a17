package engine

import "testing"

func TestAIPlaysHighestPriority(t *testing.T) {
	g := fixture(ModeAI)
	g.currentSeat = SeatOpponent
	g.hands[SeatPlayer] = handOf(blue("2", KindNumber), blue("4", KindNumber))
	g.hands[SeatOpponent] = handOf(
		red("9", KindNumber),
		red(ValueDrain, KindPower),
		red("1", KindNumber),
	)

	g.scheduleAI()

	// Drain outranks both numbers and lands on the player.
	if top := g.discard[len(g.discard)-1]; top.Value != ValueDrain {
		t.Fatalf("AI played %v, want the drain", top)
	}
	if n := len(g.hands[SeatPlayer]); n != 4 {
		t.Errorf("player hand = %d after AI drain, want 4", n)
	}
	if g.currentSeat != SeatPlayer {
		t.Error("turn did not return to the player")
	}
}

func TestAIPrefersHighNumber(t *testing.T) {
	g := fixture(ModeAI)
	g.currentSeat = SeatOpponent
	g.hands[SeatPlayer] = handOf(blue("2", KindNumber), blue("4", KindNumber))
	g.hands[SeatOpponent] = handOf(
		red("3", KindNumber),
		red("9", KindNumber),
		blue("5", KindNumber),
	)

	g.scheduleAI()

	if top := g.discard[len(g.discard)-1]; top.Value != "9" {
		t.Fatalf("AI played %v, want red 9", top)
	}
}

func TestAIDrawsWhenStuck(t *testing.T) {
	g := fixture(ModeAI)
	g.currentSeat = SeatOpponent
	g.hands[SeatPlayer] = handOf(blue("2", KindNumber))
	g.hands[SeatOpponent] = handOf(blue("7", KindNumber), blue("8", KindNumber))

	g.scheduleAI()

	if n := len(g.hands[SeatOpponent]); n != 3 {
		t.Errorf("AI hand = %d after stuck draw, want 3", n)
	}
	if g.currentSeat != SeatPlayer {
		t.Error("AI draw did not end its turn")
	}
}

func TestAIPicksDominantWildColor(t *testing.T) {
	g := fixture(ModeAI)
	g.currentSeat = SeatOpponent
	g.hands[SeatPlayer] = handOf(blue("2", KindNumber), blue("4", KindNumber))
	g.hands[SeatOpponent] = handOf(
		wild(ValueWild),
		Card{Color: ColorGreen, Value: "1", Kind: KindNumber},
		Card{Color: ColorGreen, Value: "2", Kind: KindNumber},
		blue("5", KindNumber),
	)
	// Nothing else is playable against red 3, so the wild goes down.
	g.scheduleAI()

	if g.currentColor != ColorGreen {
		t.Errorf("AI chose %s, want green", g.currentColor)
	}
	if g.pending.Type != PendingNone {
		t.Error("AI wild suspended on a color choice")
	}
}

func TestAIDeclaresAtOneCard(t *testing.T) {
	g := fixture(ModeAI)
	g.currentSeat = SeatOpponent
	g.hands[SeatPlayer] = handOf(blue("2", KindNumber), blue("4", KindNumber))
	g.hands[SeatOpponent] = handOf(red("9", KindNumber), red("5", KindNumber))

	g.scheduleAI()

	if n := len(g.hands[SeatOpponent]); n != 1 {
		t.Fatalf("AI hand = %d, want 1", n)
	}
	if !g.declared[SeatOpponent] {
		t.Error("AI reached one card without declaring")
	}
}

func TestAIWins(t *testing.T) {
	var winner Seat
	var fired int
	g := fixture(ModeAI)
	g.cb.OnGameOver = func(w Seat, result string) { winner, fired = w, fired+1 }
	g.currentSeat = SeatOpponent
	g.hands[SeatPlayer] = handOf(blue("2", KindNumber), blue("4", KindNumber))
	g.hands[SeatOpponent] = handOf(red("9", KindNumber))

	g.scheduleAI()

	if !g.gameOver || winner != SeatOpponent || fired != 1 {
		t.Fatalf("gameOver=%v winner=%s fired=%d, want opponent win once", g.gameOver, winner, fired)
	}
}

func TestAIIdleOffTurn(t *testing.T) {
	g := fixture(ModeAI)
	g.hands[SeatPlayer] = handOf(red("7", KindNumber), red("8", KindNumber))
	g.hands[SeatOpponent] = handOf(red("9", KindNumber), red("5", KindNumber))

	g.scheduleAI()

	if len(g.hands[SeatOpponent]) != 2 || len(g.discard) != 1 {
		t.Error("AI acted while it was the player's turn")
	}
}

func TestFullAIGameConservation(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		g := New(ModeAI, seed, Callbacks{})
		g.aiDelay = 0
		g.Start()

		for step := 0; step < 2000 && !g.gameOver; step++ {
			if got := totalCards(g); got != DeckSize {
				t.Fatalf("seed %d step %d: %d cards in play, want %d", seed, step, got, DeckSize)
			}
			switch {
			case g.pending.Type == PendingColor:
				g.ResolveColor(PlayColors[step%len(PlayColors)])
			case g.pending.Type == PendingBlock:
				g.ResolveBlock(step%2 == 0)
			case g.currentSeat == SeatPlayer:
				played := false
				for i, c := range g.hands[SeatPlayer] {
					if g.isPlayable(c) {
						played = g.Play(SeatPlayer, i)
						break
					}
				}
				if !played {
					g.Draw(SeatPlayer)
				}
			case g.currentSeat == SeatOpponent:
				g.scheduleAI()
			}
		}
		if got := totalCards(g); got != DeckSize {
			t.Fatalf("seed %d: %d cards at end, want %d", seed, got, DeckSize)
		}
	}
}
