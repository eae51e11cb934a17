package engine

// resolveEffect applies the played card's rule and decides whether the
// turn passes. viaCopy marks a copy re-execution: the borrowed effect
// runs as if just played by the acting seat, but must not overwrite
// the last-power pointer with itself.
// Assumes lock is held by caller.
func (g *Game) resolveEffect(card Card, acting Seat, viaCopy bool) {
	switch card.Effect() {
	case EffectSkip:
		g.animate(ValueSkip, acting)
		g.keepTurn(card, acting, viaCopy)

	case EffectReverse:
		g.animate(ValueReverse, acting)
		// With two seats a reversed direction means the acting seat
		// goes again, same as a skip.
		g.direction = -g.direction
		g.keepTurn(card, acting, viaCopy)

	case EffectSteal:
		g.animate(ValueSteal, acting)
		g.keepTurn(card, acting, viaCopy)

	case EffectDrain, EffectOverload, EffectWipe:
		g.resolveBlockable(card, acting, viaCopy)

	case EffectBigDraw:
		// Never blockable, not even by an active shield.
		g.animate(ValueBigDraw, acting)
		g.drawMultiple(acting.Other(), card.Effect().DrawCount())
		g.finishResolution(card, acting, viaCopy)

	case EffectBlock:
		g.animate(ValueBlock, acting)
		g.shield[acting] = true
		g.finishResolution(card, acting, viaCopy)

	case EffectLock:
		g.animate(ValueLock, acting)
		g.lock = ColorLock{Color: g.currentColor, RoundsLeft: LockRounds}
		g.finishResolution(card, acting, viaCopy)

	case EffectSwap:
		g.animate(ValueSwap, acting)
		g.swapRandomCards()
		g.finishResolution(card, acting, viaCopy)

	case EffectCopy:
		if last := g.lastPower; last != nil && last.Effect().Copyable() {
			g.animate(ValueCopy, acting)
			g.resolveEffect(*last, acting, true)
			return
		}
		// Nothing legal to copy; the card resolves as a plain play.
		g.finishResolution(card, acting, viaCopy)

	default:
		// Number cards and plain wilds carry no secondary effect.
		g.finishResolution(card, acting, viaCopy)
	}
}

// keepTurn ends resolution for go-again effects: the acting seat keeps
// the turn, so the color lock does not age.
// Assumes lock is held by caller.
func (g *Game) keepTurn(card Card, acting Seat, viaCopy bool) {
	g.updateLastPower(card, viaCopy)
	if g.checkWin(acting) {
		return
	}
	g.emitState()
	if g.machineSeat(acting) {
		g.scheduleAI()
	}
}

// resolveBlockable runs the ordered resolution of a blockable attack:
// an active shield cancels it outright; otherwise a held block card is
// auto-consumed for machine and remote seats, or suspends for a local
// human decision; otherwise the attack lands. Every branch reaches
// finishResolution exactly once.
// Assumes lock is held by caller.
func (g *Game) resolveBlockable(card Card, acting Seat, viaCopy bool) {
	defender := acting.Other()

	if g.shield[defender] {
		g.shield[defender] = false
		g.animate("shield_block", defender)
		g.finishResolution(card, acting, viaCopy)
		return
	}

	if idx := g.findBlockCard(defender); idx >= 0 {
		if g.machineSeat(defender) || g.mode == ModeOnline {
			// No decision callback reaches this seat; consume the
			// block deterministically.
			g.consumeBlockCard(defender, idx)
			g.animate("shield_block", defender)
			g.finishResolution(card, acting, viaCopy)
			return
		}
		g.pending = Pending{
			Type:     PendingBlock,
			Seat:     defender,
			Card:     card,
			Acting:   acting,
			ViaCopy:  viaCopy,
			BlockIdx: idx,
		}
		g.emitState()
		return
	}

	g.applyAttack(card, acting)
	g.finishResolution(card, acting, viaCopy)
}

// applyAttack lands a drain, overload or wipe on the defender.
// Assumes lock is held by caller.
func (g *Game) applyAttack(card Card, acting Seat) {
	defender := acting.Other()
	switch eff := card.Effect(); eff {
	case EffectDrain, EffectOverload:
		g.animate(card.Value, acting)
		g.drawMultiple(defender, eff.DrawCount())
	case EffectWipe:
		g.animate(ValueWipe, acting)
		g.discardHand(defender)
		g.drawMultiple(defender, 5)
	}
}

// discardHand moves the seat's entire hand into the discard pile,
// beneath the top card so the just-played attack stays on top.
// Assumes lock is held by caller.
func (g *Game) discardHand(seat Seat) {
	if len(g.hands[seat]) == 0 {
		return
	}
	top := g.discard[len(g.discard)-1]
	rest := g.discard[:len(g.discard)-1]
	rest = append(rest, g.hands[seat]...)
	g.discard = append(rest, top)
	g.hands[seat] = g.hands[seat][:0]
}

// findBlockCard returns the index of the first block card in the
// seat's hand, or -1.
// Assumes lock is held by caller.
func (g *Game) findBlockCard(seat Seat) int {
	for i, c := range g.hands[seat] {
		if c.Effect() == EffectBlock {
			return i
		}
	}
	return -1
}

// consumeBlockCard spends a held block card: it leaves the hand and
// goes into the discard pile beneath the top card, keeping the deck
// total constant without disturbing the current color and value.
// Assumes lock is held by caller.
func (g *Game) consumeBlockCard(seat Seat, idx int) {
	if idx < 0 || idx >= len(g.hands[seat]) {
		return
	}
	card := g.hands[seat][idx]
	if card.Effect() != EffectBlock {
		return
	}
	g.hands[seat] = append(g.hands[seat][:idx], g.hands[seat][idx+1:]...)
	top := g.discard[len(g.discard)-1]
	rest := g.discard[:len(g.discard)-1]
	rest = append(rest, card)
	g.discard = append(rest, top)
}

// swapRandomCards exchanges two randomly chosen cards between the
// hands. Requires both hands to hold at least two cards.
// Assumes lock is held by caller.
func (g *Game) swapRandomCards() {
	if len(g.hands[SeatPlayer]) < 2 || len(g.hands[SeatOpponent]) < 2 {
		return
	}
	for i := 0; i < 2; i++ {
		pi := g.randN(len(g.hands[SeatPlayer]))
		oi := g.randN(len(g.hands[SeatOpponent]))
		g.hands[SeatPlayer][pi], g.hands[SeatOpponent][oi] = g.hands[SeatOpponent][oi], g.hands[SeatPlayer][pi]
	}
}

// finishResolution runs the common tail of every non-go-again effect:
// record the last power card, check for a win, pass the turn and wake
// the AI when it is next.
// Assumes lock is held by caller.
func (g *Game) finishResolution(card Card, acting Seat, viaCopy bool) {
	g.updateLastPower(card, viaCopy)
	if g.checkWin(acting) {
		return
	}
	g.passTurn()
	g.emitState()
	g.scheduleAI()
}

// updateLastPower records the card for a later copy play. A copy
// re-execution must not overwrite the pointer with the borrowed
// effect, or chained copies would break.
// Assumes lock is held by caller.
func (g *Game) updateLastPower(card Card, viaCopy bool) {
	if viaCopy {
		return
	}
	if card.Kind == KindPower || card.Kind == KindWild {
		c := card
		g.lastPower = &c
	}
}
