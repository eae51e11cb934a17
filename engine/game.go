package engine

import (
	"sync"
	"time"
)

// LockRounds is how many turn passes a color lock survives
// (two rounds per seat).
const LockRounds = 4

// StartingHandSize is dealt to each seat at game start.
const StartingHandSize = 7

// ColorLock restricts legal plays to a single color while RoundsLeft
// is positive. Wild cards stay legal and clear the lock when played.
type ColorLock struct {
	Color      Color `json:"color"`
	RoundsLeft int   `json:"roundsLeft"`
}

// Active reports whether the lock currently restricts plays.
func (l ColorLock) Active() bool { return l.RoundsLeft > 0 }

// PendingType describes which external decision the engine is
// suspended on, if any.
type PendingType uint8

const (
	PendingNone PendingType = iota
	PendingColor            // a wild play awaits a color choice
	PendingBlock            // a blockable attack awaits a block decision
)

// Pending holds a suspended resolution. While Type != PendingNone the
// engine rejects every mutation except the matching Resolve call, so
// the suspended state is inspectable and testable without callbacks.
type Pending struct {
	Type     PendingType
	Seat     Seat // seat that must supply the decision
	Card     Card // the wild awaiting a color, or the incoming attack
	Acting   Seat // seat that played Card
	ViaCopy  bool // resolution is a copy re-execution
	BlockIdx int  // index of the defender's block card (PendingBlock)
}

// Callbacks let the UI layer observe the engine. They are invoked with
// the game lock held and must not call back into the Game. Any field
// may be nil.
type Callbacks struct {
	OnStateChange    func(Snapshot)
	OnGameOver       func(winner Seat, result string)
	PlayAnimation    func(effect string, seat Seat)
	ShowNotification func(level, message string)
	OnPenaltyDraw    func(seat Seat, count int)
}

// Game is the authoritative rules engine for one Cinco match. All
// mutable state lives here; there are no package-level singletons.
type Game struct {
	mode Mode
	rng  uint64
	cb   Callbacks

	deck    []Card
	discard []Card
	hands   [2][]Card

	currentColor Color
	currentValue string
	currentSeat  Seat
	direction    int8

	declared  [2]bool
	shield    [2]bool
	lock      ColorLock
	lastPower *Card

	selected int
	pending  Pending
	gameOver bool
	winner   Seat

	aiThinking bool
	aiDelay    time.Duration

	mu sync.Mutex
}

// New creates a game for the given mode. The seed fully determines the
// shuffle order; a zero seed is corrected (xorshift cannot start at 0).
func New(mode Mode, seed uint64, cb Callbacks) *Game {
	if seed == 0 {
		seed = 1
	}
	return &Game{
		mode:      mode,
		rng:       seed,
		cb:        cb,
		direction: 1,
		selected:  -1,
		aiDelay:   time.Second,
	}
}

// SetAIDelay overrides the pacing delay before each AI action. A zero
// or negative delay runs the AI synchronously, which tests rely on.
func (g *Game) SetAIDelay(d time.Duration) {
	g.mu.Lock()
	g.aiDelay = d
	g.mu.Unlock()
}

// Start builds and shuffles a fresh deck, deals both hands, reveals a
// non-wild starting card and applies its effect.
func (g *Game) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.deck = buildDeck()
	g.shuffle(g.deck)
	g.dealInitialCards()
	g.startFirstCard()
	g.emitState()
	g.scheduleAI()
}

// dealInitialCards deals StartingHandSize cards to each seat,
// alternating pops from the shuffled deck.
// Assumes lock is held by caller.
func (g *Game) dealInitialCards() {
	g.hands[SeatPlayer] = make([]Card, 0, StartingHandSize)
	g.hands[SeatOpponent] = make([]Card, 0, StartingHandSize)
	for i := 0; i < StartingHandSize; i++ {
		g.hands[SeatPlayer] = append(g.hands[SeatPlayer], g.popDeck())
		g.hands[SeatOpponent] = append(g.hands[SeatOpponent], g.popDeck())
	}
}

// startFirstCard flips cards until a non-wild one appears. Skipped
// wilds land in the discard pile so the deck total is conserved.
// Assumes lock is held by caller.
func (g *Game) startFirstCard() {
	var first Card
	for {
		if len(g.deck) == 0 {
			g.reshuffleDeck()
			if len(g.deck) == 0 {
				return
			}
		}
		first = g.popDeck()
		g.discard = append(g.discard, first)
		if first.Color != ColorWild {
			break
		}
	}

	g.currentColor = first.Color
	g.currentValue = first.Value

	switch first.Effect() {
	case EffectSkip:
		// First seat loses its turn immediately.
		g.currentSeat = g.currentSeat.Other()
	case EffectReverse:
		g.direction = -g.direction
	case EffectDrain:
		g.drawMultiple(g.currentSeat, 2)
		g.currentSeat = g.currentSeat.Other()
	}
}

// popDeck removes and returns the top draw-pile card.
// Assumes lock is held by caller and the deck is non-empty.
func (g *Game) popDeck() Card {
	c := g.deck[len(g.deck)-1]
	g.deck = g.deck[:len(g.deck)-1]
	return c
}

// isPlayable reports whether the card may legally be played right now.
// Wilds are always legal; while a color lock is active every other
// card must match the locked color; otherwise a card must match the
// current color or value.
// Assumes lock is held by caller.
func (g *Game) isPlayable(card Card) bool {
	if card.Color == ColorWild {
		return true
	}
	if g.lock.Active() && card.Color != g.lock.Color {
		return false
	}
	return card.Color == g.currentColor || card.Value == g.currentValue
}

// IsPlayable is the exported legality check for UI highlighting.
func (g *Game) IsPlayable(card Card) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isPlayable(card)
}

// SelectOrPlay marks the card at idx as selected on first touch and
// plays it when the same index is selected again. Selecting a
// different playable card re-targets the selection. Returns false for
// any action out of turn, out of range or illegal.
func (g *Game) SelectOrPlay(seat Seat, idx int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.seatMayAct(seat) {
		return false
	}
	if idx < 0 || idx >= len(g.hands[seat]) {
		return false
	}
	if g.selected == idx {
		return g.playCard(seat, idx)
	}
	if !g.isPlayable(g.hands[seat][idx]) {
		return false
	}
	g.selected = idx
	g.emitState()
	return true
}

// Play plays the card at idx directly, bypassing the two-tap selection
// flow. Used by the gateway where the client confirms locally.
func (g *Game) Play(seat Seat, idx int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.seatMayAct(seat) {
		return false
	}
	if idx < 0 || idx >= len(g.hands[seat]) {
		return false
	}
	return g.playCard(seat, idx)
}

// seatMayAct gates mutations: the game must be live, nothing pending,
// the seat current, and not a machine-controlled seat.
// Assumes lock is held by caller.
func (g *Game) seatMayAct(seat Seat) bool {
	if g.gameOver || g.pending.Type != PendingNone {
		return false
	}
	if seat != g.currentSeat {
		return false
	}
	if g.machineSeat(seat) {
		return false
	}
	return true
}

// machineSeat reports whether the seat is driven by the built-in AI.
// Assumes lock is held by caller.
func (g *Game) machineSeat(seat Seat) bool {
	return g.mode == ModeAI && seat == SeatOpponent
}

// playCard moves the card from hand to discard and resolves its
// effect. Wild plays suspend on a color choice instead of resolving.
// Assumes lock is held by caller.
func (g *Game) playCard(seat Seat, idx int) bool {
	card := g.hands[seat][idx]
	if !g.isPlayable(card) {
		return false
	}

	g.hands[seat] = append(g.hands[seat][:idx], g.hands[seat][idx+1:]...)
	g.discard = append(g.discard, card)
	g.selected = -1
	g.declared[seat] = false

	if card.Color == ColorWild {
		// A wild play supersedes any active color lock.
		g.lock = ColorLock{}
		g.pending = Pending{Type: PendingColor, Seat: seat, Card: card, Acting: seat}
		g.emitState()
		return true
	}

	g.currentColor = card.Color
	g.currentValue = card.Value
	g.resolveEffect(card, seat, false)
	return true
}

// ResolveColor supplies the color choice for a suspended wild play and
// resumes effect resolution. Returns false when no color choice is
// pending or the color is not one of the four playable colors.
func (g *Game) ResolveColor(color Color) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending.Type != PendingColor {
		return false
	}
	valid := false
	for _, c := range PlayColors {
		if c == color {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	p := g.pending
	g.pending = Pending{}
	g.currentColor = color
	g.currentValue = p.Card.Value
	g.resolveEffect(p.Card, p.Acting, p.ViaCopy)
	return true
}

// ResolveBlock supplies the defender's decision for a suspended
// blockable attack. Accepting consumes the held block card and cancels
// the attack; declining lets it land. Either way the turn passes
// exactly once.
func (g *Game) ResolveBlock(accept bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending.Type != PendingBlock {
		return false
	}

	p := g.pending
	g.pending = Pending{}
	if accept {
		g.consumeBlockCard(p.Seat, p.BlockIdx)
		g.animate("shield_block", p.Seat)
	} else {
		g.applyAttack(p.Card, p.Acting)
	}
	g.finishResolution(p.Card, p.Acting, p.ViaCopy)
	return true
}

// Draw draws one card for the seat. Drawing always ends the turn; the
// drawn card is never offered for play in the same turn. Returns false
// only when the action is rejected outright; a draw against fully
// exhausted piles still passes the turn and reports success, so
// callers mirror the state change.
func (g *Game) Draw(seat Seat) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.seatMayAct(seat) {
		return false
	}

	if len(g.deck) == 0 {
		g.reshuffleDeck()
		if len(g.deck) == 0 {
			// Nothing to draw anywhere; the turn still passes.
			g.passTurn()
			g.emitState()
			g.scheduleAI()
			return true
		}
	}

	g.hands[seat] = append(g.hands[seat], g.popDeck())
	g.passTurn()
	g.emitState()
	g.scheduleAI()
	return true
}

// DeclareLowHand marks the seat as having declared exactly one card
// remaining. Fails without state change for any other hand size.
func (g *Game) DeclareLowHand(seat Seat) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gameOver || g.pending.Type != PendingNone {
		return false
	}
	if len(g.hands[seat]) != 1 {
		g.notify("error", "You can only declare with exactly 1 card left")
		return false
	}
	g.declared[seat] = true
	g.notify("success", "CINCO!")
	g.animate("cinco", seat)
	g.emitState()
	return true
}

// passTurn hands the turn to the other seat and ages the color lock.
// Assumes lock is held by caller.
func (g *Game) passTurn() {
	g.currentSeat = g.currentSeat.Other()
	g.selected = -1
	g.decrementLock()
}

// decrementLock ages the color lock by one turn pass.
// Assumes lock is held by caller.
func (g *Game) decrementLock() {
	if g.lock.RoundsLeft > 0 {
		g.lock.RoundsLeft--
		if g.lock.RoundsLeft == 0 {
			g.lock.Color = ColorNone
		}
	}
}

// drawMultiple moves up to count cards from the draw pile to the
// seat's hand, reshuffling as needed. Stops early only when the piles
// are fully exhausted.
// Assumes lock is held by caller.
func (g *Game) drawMultiple(seat Seat, count int) {
	for i := 0; i < count; i++ {
		if len(g.deck) == 0 {
			g.reshuffleDeck()
			if len(g.deck) == 0 {
				break
			}
		}
		g.hands[seat] = append(g.hands[seat], g.popDeck())
	}
}

// checkWin ends the game when the seat has emptied its hand, and
// otherwise applies the undeclared-low-hand penalty where that policy
// is active (online mode only; AI and local play have no declare
// affordance for the opponent seat). Returns true when the game ended.
// Assumes lock is held by caller.
func (g *Game) checkWin(seat Seat) bool {
	hand := g.hands[seat]
	if len(hand) == 0 {
		g.gameOver = true
		g.winner = seat
		g.emitState()
		if g.cb.OnGameOver != nil {
			g.cb.OnGameOver(seat, "win")
		}
		return true
	}
	if len(hand) == 1 && !g.declared[seat] && g.mode == ModeOnline {
		g.drawMultiple(seat, 2)
		if g.cb.OnPenaltyDraw != nil {
			g.cb.OnPenaltyDraw(seat, 2)
		}
		g.notify("warning", "Forgot to declare CINCO! Draw 2 cards")
	}
	return false
}

// emitState pushes a snapshot to the UI callback.
// Assumes lock is held by caller.
func (g *Game) emitState() {
	if g.cb.OnStateChange != nil {
		g.cb.OnStateChange(g.snapshotLocked())
	}
}

// animate forwards an effect animation hint to the UI.
// Assumes lock is held by caller.
func (g *Game) animate(effect string, seat Seat) {
	if g.cb.PlayAnimation != nil {
		g.cb.PlayAnimation(effect, seat)
	}
}

// notify forwards a user-facing message to the UI.
// Assumes lock is held by caller.
func (g *Game) notify(level, message string) {
	if g.cb.ShowNotification != nil {
		g.cb.ShowNotification(level, message)
	}
}
