package engine

import "testing"

// fixture builds a mid-game position with deterministic piles so tests
// can exercise a single rule in isolation.
func fixture(mode Mode) *Game {
	g := New(mode, 99, Callbacks{})
	g.aiDelay = 0
	g.discard = []Card{{Color: ColorRed, Value: "3", Kind: KindNumber}}
	g.currentColor = ColorRed
	g.currentValue = "3"
	for i := 0; i < 20; i++ {
		g.deck = append(g.deck, Card{Color: ColorBlue, Value: "1", Kind: KindNumber})
	}
	return g
}

func totalCards(g *Game) int {
	return len(g.deck) + len(g.discard) + len(g.hands[SeatPlayer]) + len(g.hands[SeatOpponent])
}

func TestStartDealsAndConserves(t *testing.T) {
	g := New(ModeLocal, 123, Callbacks{})
	g.Start()

	if got := totalCards(g); got != DeckSize {
		t.Fatalf("cards after start = %d, want %d", got, DeckSize)
	}
	for seat := SeatPlayer; seat <= SeatOpponent; seat++ {
		if n := len(g.hands[seat]); n != StartingHandSize {
			t.Errorf("seat %s dealt %d cards, want %d", seat, n, StartingHandSize)
		}
	}
	top := g.discard[len(g.discard)-1]
	if top.Color == ColorWild {
		t.Errorf("starting card is wild: %v", top)
	}
	if g.currentColor != top.Color || g.currentValue != top.Value {
		t.Errorf("current %s/%s does not match starting card %v", g.currentColor, g.currentValue, top)
	}
}

func TestStartNeverWildAcrossSeeds(t *testing.T) {
	for seed := uint64(1); seed <= 50; seed++ {
		g := New(ModeLocal, seed, Callbacks{})
		g.Start()
		if top := g.discard[len(g.discard)-1]; top.Color == ColorWild {
			t.Fatalf("seed %d: starting card is wild", seed)
		}
		if got := totalCards(g); got != DeckSize {
			t.Fatalf("seed %d: cards after start = %d, want %d", seed, got, DeckSize)
		}
	}
}

func TestIsPlayableMatching(t *testing.T) {
	g := fixture(ModeLocal)

	cases := []struct {
		card Card
		want bool
	}{
		{Card{Color: ColorRed, Value: "7", Kind: KindNumber}, true},
		{Card{Color: ColorBlue, Value: "3", Kind: KindNumber}, true},
		{Card{Color: ColorBlue, Value: "7", Kind: KindNumber}, false},
		{Card{Color: ColorWild, Value: ValueWild, Kind: KindWild}, true},
		{Card{Color: ColorWild, Value: ValueBigDraw, Kind: KindWild}, true},
		{Card{Color: ColorRed, Value: ValueSkip, Kind: KindAction}, true},
	}
	for _, tc := range cases {
		if got := g.IsPlayable(tc.card); got != tc.want {
			t.Errorf("IsPlayable(%v) = %v, want %v", tc.card, got, tc.want)
		}
	}
}

func TestColorLockExclusivity(t *testing.T) {
	g := fixture(ModeLocal)
	g.lock = ColorLock{Color: ColorGreen, RoundsLeft: 3}

	// Matching value no longer helps: only the locked color and wilds.
	if g.IsPlayable(Card{Color: ColorRed, Value: "3", Kind: KindNumber}) {
		t.Error("lock let through an off-color card matching the value")
	}
	if !g.IsPlayable(Card{Color: ColorGreen, Value: "9", Kind: KindNumber}) {
		t.Error("lock rejected the locked color")
	}
	if !g.IsPlayable(Card{Color: ColorWild, Value: ValueWild, Kind: KindWild}) {
		t.Error("lock rejected a wild")
	}
}

func TestLockExpiresAfterRounds(t *testing.T) {
	g := fixture(ModeLocal)
	g.lock = ColorLock{Color: ColorGreen, RoundsLeft: 2}

	g.passTurn()
	if !g.lock.Active() {
		t.Fatal("lock expired one round early")
	}
	g.passTurn()
	if g.lock.Active() {
		t.Fatal("lock still active after its rounds ran out")
	}
	if g.lock.Color != ColorNone {
		t.Errorf("expired lock color = %s, want none", g.lock.Color)
	}
}

func TestWildPlayClearsLockAndSuspends(t *testing.T) {
	g := fixture(ModeLocal)
	g.lock = ColorLock{Color: ColorGreen, RoundsLeft: 3}
	g.hands[SeatPlayer] = []Card{
		{Color: ColorWild, Value: ValueWild, Kind: KindWild},
		{Color: ColorRed, Value: "8", Kind: KindNumber},
	}
	g.hands[SeatOpponent] = []Card{{Color: ColorBlue, Value: "2", Kind: KindNumber}}

	if !g.Play(SeatPlayer, 0) {
		t.Fatal("wild play rejected")
	}
	if g.lock.Active() {
		t.Error("wild play left the color lock active")
	}
	if g.pending.Type != PendingColor {
		t.Fatalf("pending = %v, want PendingColor", g.pending.Type)
	}

	// Everything but the color choice is rejected while suspended.
	if g.Draw(SeatPlayer) {
		t.Error("Draw succeeded while a color choice was pending")
	}
	if g.ResolveColor(ColorWild) {
		t.Error("ResolveColor accepted a non-playable color")
	}
	if !g.ResolveColor(ColorBlue) {
		t.Fatal("ResolveColor rejected blue")
	}
	if g.currentColor != ColorBlue {
		t.Errorf("current color = %s, want blue", g.currentColor)
	}
	if g.currentSeat != SeatOpponent {
		t.Errorf("turn did not pass after wild resolution")
	}
}

func TestDrawEndsTurn(t *testing.T) {
	g := fixture(ModeLocal)
	g.hands[SeatPlayer] = []Card{{Color: ColorGreen, Value: "9", Kind: KindNumber}}
	g.hands[SeatOpponent] = []Card{{Color: ColorBlue, Value: "2", Kind: KindNumber}}

	before := len(g.hands[SeatPlayer])
	if !g.Draw(SeatPlayer) {
		t.Fatal("draw failed with a stocked deck")
	}
	if len(g.hands[SeatPlayer]) != before+1 {
		t.Errorf("hand grew by %d, want 1", len(g.hands[SeatPlayer])-before)
	}
	if g.currentSeat != SeatOpponent {
		t.Error("turn did not pass after drawing")
	}
	// The drawn card cannot be played this turn even if legal.
	if g.Play(SeatPlayer, len(g.hands[SeatPlayer])-1) {
		t.Error("seat acted again after its draw ended the turn")
	}
}

func TestDrawExhaustedPilesPassesTurn(t *testing.T) {
	g := fixture(ModeLocal)
	g.deck = nil
	g.hands[SeatPlayer] = []Card{{Color: ColorGreen, Value: "9", Kind: KindNumber}}

	// The state still changed (the turn passed), so the draw reports
	// success and callers propagate the new state.
	if !g.Draw(SeatPlayer) {
		t.Error("Draw reported failure for a turn-passing empty draw")
	}
	if len(g.hands[SeatPlayer]) != 1 {
		t.Error("a card appeared out of nowhere")
	}
	if g.currentSeat != SeatOpponent {
		t.Error("turn did not pass on an empty draw")
	}
}

func TestSelectThenPlay(t *testing.T) {
	g := fixture(ModeLocal)
	g.hands[SeatPlayer] = []Card{
		{Color: ColorRed, Value: "7", Kind: KindNumber},
		{Color: ColorRed, Value: "8", Kind: KindNumber},
	}
	g.hands[SeatOpponent] = []Card{{Color: ColorBlue, Value: "2", Kind: KindNumber}}

	if !g.SelectOrPlay(SeatPlayer, 0) {
		t.Fatal("first touch did not select")
	}
	if g.selected != 0 || len(g.hands[SeatPlayer]) != 2 {
		t.Fatal("first touch played instead of selecting")
	}
	// Re-target before confirming.
	if !g.SelectOrPlay(SeatPlayer, 1) {
		t.Fatal("re-selection rejected")
	}
	if !g.SelectOrPlay(SeatPlayer, 1) {
		t.Fatal("confirming touch did not play")
	}
	if len(g.hands[SeatPlayer]) != 1 {
		t.Errorf("hand size = %d after confirmed play, want 1", len(g.hands[SeatPlayer]))
	}
	if g.currentValue != "8" {
		t.Errorf("current value = %s, want 8", g.currentValue)
	}
}

func TestOutOfTurnRejected(t *testing.T) {
	g := fixture(ModeLocal)
	g.hands[SeatPlayer] = []Card{{Color: ColorRed, Value: "7", Kind: KindNumber}}
	g.hands[SeatOpponent] = []Card{{Color: ColorRed, Value: "9", Kind: KindNumber}}

	if g.Play(SeatOpponent, 0) {
		t.Error("off-turn play succeeded")
	}
	if g.Draw(SeatOpponent) {
		t.Error("off-turn draw succeeded")
	}
	if g.currentSeat != SeatPlayer {
		t.Error("rejected actions changed the turn")
	}
}

func TestIllegalPlayIsNoop(t *testing.T) {
	g := fixture(ModeLocal)
	g.hands[SeatPlayer] = []Card{{Color: ColorBlue, Value: "7", Kind: KindNumber}}
	before := totalCards(g)

	if g.Play(SeatPlayer, 0) {
		t.Error("illegal play succeeded")
	}
	if g.Play(SeatPlayer, 5) {
		t.Error("out-of-range play succeeded")
	}
	if totalCards(g) != before {
		t.Error("failed play moved cards")
	}
	if g.currentSeat != SeatPlayer {
		t.Error("failed play passed the turn")
	}
}

func TestDeclareLowHand(t *testing.T) {
	g := fixture(ModeLocal)
	g.hands[SeatPlayer] = []Card{
		{Color: ColorRed, Value: "7", Kind: KindNumber},
		{Color: ColorRed, Value: "8", Kind: KindNumber},
	}

	if g.DeclareLowHand(SeatPlayer) {
		t.Error("declare succeeded with two cards")
	}
	g.hands[SeatPlayer] = g.hands[SeatPlayer][:1]
	if !g.DeclareLowHand(SeatPlayer) {
		t.Fatal("declare failed with exactly one card")
	}
	if !g.declared[SeatPlayer] {
		t.Error("declare did not set the flag")
	}
}

func TestDeclareResetOnPlay(t *testing.T) {
	g := fixture(ModeLocal)
	g.declared[SeatPlayer] = true
	g.hands[SeatPlayer] = []Card{
		{Color: ColorRed, Value: "7", Kind: KindNumber},
		{Color: ColorRed, Value: "8", Kind: KindNumber},
	}
	g.hands[SeatOpponent] = []Card{{Color: ColorBlue, Value: "2", Kind: KindNumber}}

	if !g.Play(SeatPlayer, 0) {
		t.Fatal("play rejected")
	}
	if g.declared[SeatPlayer] {
		t.Error("declared flag survived a play")
	}
}

func TestUndeclaredPenaltyOnlineOnly(t *testing.T) {
	var penalized Seat
	var penaltyCount int
	for _, mode := range []Mode{ModeLocal, ModeOnline} {
		g := fixture(mode)
		g.cb.OnPenaltyDraw = func(seat Seat, count int) {
			penalized = seat
			penaltyCount = count
		}
		penaltyCount = 0
		g.hands[SeatPlayer] = []Card{
			{Color: ColorRed, Value: "7", Kind: KindNumber},
			{Color: ColorRed, Value: "8", Kind: KindNumber},
		}
		g.hands[SeatOpponent] = []Card{{Color: ColorBlue, Value: "2", Kind: KindNumber}}

		if !g.Play(SeatPlayer, 0) {
			t.Fatalf("mode %s: play rejected", mode)
		}
		if mode == ModeOnline {
			if penaltyCount != 2 || penalized != SeatPlayer {
				t.Errorf("online: penalty = %d for %s, want 2 for player", penaltyCount, penalized)
			}
			if len(g.hands[SeatPlayer]) != 3 {
				t.Errorf("online: hand = %d after penalty, want 3", len(g.hands[SeatPlayer]))
			}
		} else {
			if penaltyCount != 0 {
				t.Errorf("mode %s: penalty fired", mode)
			}
			if len(g.hands[SeatPlayer]) != 1 {
				t.Errorf("mode %s: hand = %d, want 1", mode, len(g.hands[SeatPlayer]))
			}
		}
	}
}

func TestDeclaredSeatSkipsPenalty(t *testing.T) {
	g := fixture(ModeOnline)
	g.hands[SeatPlayer] = []Card{{Color: ColorRed, Value: "7", Kind: KindNumber}}
	g.hands[SeatOpponent] = []Card{{Color: ColorBlue, Value: "2", Kind: KindNumber}}
	g.declared[SeatPlayer] = true

	if g.checkWin(SeatPlayer) {
		t.Fatal("checkWin reported game over with one card")
	}
	if len(g.hands[SeatPlayer]) != 1 {
		t.Errorf("declared seat drew a penalty: hand = %d", len(g.hands[SeatPlayer]))
	}
}

func TestWinFiresOnce(t *testing.T) {
	var wins int
	g := fixture(ModeLocal)
	g.cb.OnGameOver = func(winner Seat, result string) { wins++ }
	g.hands[SeatPlayer] = []Card{{Color: ColorRed, Value: "7", Kind: KindNumber}}
	g.hands[SeatOpponent] = []Card{{Color: ColorBlue, Value: "2", Kind: KindNumber}}

	if !g.Play(SeatPlayer, 0) {
		t.Fatal("winning play rejected")
	}
	if !g.gameOver || g.winner != SeatPlayer {
		t.Fatalf("gameOver=%v winner=%s, want player win", g.gameOver, g.winner)
	}
	if wins != 1 {
		t.Fatalf("OnGameOver fired %d times, want 1", wins)
	}

	// Every action is dead after game over.
	if g.Draw(SeatOpponent) || g.Play(SeatOpponent, 0) || g.DeclareLowHand(SeatOpponent) {
		t.Error("action succeeded after game over")
	}
	if wins != 1 {
		t.Errorf("OnGameOver refired: %d", wins)
	}
}

func TestWinOnWildColorResolution(t *testing.T) {
	g := fixture(ModeLocal)
	var wins int
	g.cb.OnGameOver = func(Seat, string) { wins++ }
	g.hands[SeatPlayer] = []Card{wild(ValueWild)}
	g.hands[SeatOpponent] = []Card{{Color: ColorBlue, Value: "2", Kind: KindNumber}}

	if !g.Play(SeatPlayer, 0) {
		t.Fatal("wild play rejected")
	}
	if wins != 0 {
		t.Fatal("win fired before the color was chosen")
	}
	if g.pending.Type != PendingColor {
		t.Fatal("wild play did not suspend on a color choice")
	}

	if !g.ResolveColor(ColorGreen) {
		t.Fatal("color resolution rejected")
	}
	if wins != 1 {
		t.Fatalf("OnGameOver fired %d times, want once", wins)
	}
	if !g.gameOver || g.winner != SeatPlayer {
		t.Error("game did not end with the player winning")
	}
}

func TestWinInAIGame(t *testing.T) {
	var wins int
	var winner Seat
	g := fixture(ModeAI)
	g.cb.OnGameOver = func(w Seat, result string) { winner, wins = w, wins+1 }
	g.hands[SeatPlayer] = []Card{{Color: ColorRed, Value: "7", Kind: KindNumber}}
	g.hands[SeatOpponent] = []Card{{Color: ColorBlue, Value: "2", Kind: KindNumber}}

	if !g.Play(SeatPlayer, 0) {
		t.Fatal("winning play rejected")
	}
	if wins != 1 || winner != SeatPlayer {
		t.Fatalf("OnGameOver fired %d times for %s, want once for player", wins, winner)
	}
	if len(g.hands[SeatOpponent]) != 1 {
		t.Error("AI acted after the game ended")
	}
}

func TestDrawReshufflesExhaustedDeck(t *testing.T) {
	g := fixture(ModeLocal)
	g.deck = nil
	g.discard = []Card{
		{Color: ColorBlue, Value: "1", Kind: KindNumber},
		{Color: ColorGreen, Value: "2", Kind: KindNumber},
		{Color: ColorRed, Value: "3", Kind: KindNumber},
	}
	g.hands[SeatPlayer] = []Card{{Color: ColorGreen, Value: "9", Kind: KindNumber}}

	if !g.Draw(SeatPlayer) {
		t.Fatal("draw failed despite a refillable discard pile")
	}
	if len(g.hands[SeatPlayer]) != 2 {
		t.Errorf("hand = %d after reshuffled draw, want 2", len(g.hands[SeatPlayer]))
	}
	// Top discard stays; one of the two refilled cards was drawn.
	if len(g.discard) != 1 || g.discard[0].Value != "3" {
		t.Errorf("discard after reshuffle = %v, want just red 3", g.discard)
	}
	if len(g.deck) != 1 {
		t.Errorf("deck = %d after reshuffled draw, want 1", len(g.deck))
	}
}

func TestSnapshotDetached(t *testing.T) {
	g := fixture(ModeLocal)
	g.hands[SeatPlayer] = []Card{{Color: ColorRed, Value: "7", Kind: KindNumber}}
	g.hands[SeatOpponent] = []Card{{Color: ColorBlue, Value: "2", Kind: KindNumber}}

	s := g.State()
	if s.HandCounts[SeatPlayer] != 1 || s.HandCounts[SeatOpponent] != 1 {
		t.Fatalf("snapshot counts = %v", s.HandCounts)
	}
	if s.DiscardTop == nil || s.DiscardTop.Value != "3" {
		t.Fatalf("snapshot discard top = %v", s.DiscardTop)
	}

	// Mutating the snapshot must not touch the game.
	s.Hands[SeatPlayer][0] = Card{Color: ColorGreen, Value: "0", Kind: KindNumber}
	if g.hands[SeatPlayer][0].Value != "7" {
		t.Error("snapshot hand aliases engine state")
	}
}
