package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zqurashi8/couples-game-hub/engine"
)

// InitializeGame seeds the session tree from the host's freshly
// started engine: the shared state document, both private hands and
// the shared deck. Only the host calls this; it then attaches the
// steady-state listeners.
func (b *Bridge) InitializeGame(ctx context.Context, g *engine.Game) error {
	if b.role != RoleHost {
		return b.listen(ctx)
	}

	snap := g.State()
	ts := b.store.ServerTimestamp(ctx)
	state := b.publicFromSnapshot(snap, discardOf(snap), nil, ts)

	if err := b.store.Write(ctx, b.statePath(), state); err != nil {
		return err
	}
	if err := b.store.Write(ctx, b.handPath(RoleHost), snap.Hands[engine.SeatPlayer]); err != nil {
		return err
	}
	if err := b.store.Write(ctx, b.handPath(RoleGuest), snap.Hands[engine.SeatOpponent]); err != nil {
		return err
	}
	if err := b.store.Write(ctx, b.deckPath(), g.DrawPile()); err != nil {
		return err
	}
	return b.listen(ctx)
}

// JoinResult is what the guest recovered from the session tree. Any
// part the host had not written within the wait window is left empty;
// the caller decides whether a partial join is usable.
type JoinResult struct {
	Hand  []engine.Card
	State *PublicState
	Deck  []engine.Card
}

// JoinGame waits concurrently for the private hand, the state document
// and the shared deck the host seeds, each with its own timeout, then
// attaches the steady-state listeners. A timeout on any wait degrades
// that part to empty instead of failing the join.
func (b *Bridge) JoinGame(ctx context.Context) (*JoinResult, error) {
	res := &JoinResult{}

	type wait struct {
		path string
		done chan struct{}
		data []byte
	}
	waits := []*wait{
		{path: b.handPath(b.role), done: make(chan struct{})},
		{path: b.statePath(), done: make(chan struct{})},
		{path: b.deckPath(), done: make(chan struct{})},
	}

	for _, w := range waits {
		w := w
		fired := false
		unsub, err := b.store.Subscribe(ctx, w.path, func(data []byte) {
			// One-shot: the first non-empty document wins.
			b.mu.Lock()
			if !fired && len(data) > 0 && string(data) != "null" {
				fired = true
				w.data = append([]byte(nil), data...)
				close(w.done)
			}
			b.mu.Unlock()
		})
		if err != nil {
			return nil, err
		}
		defer unsub()
	}

	// A closed channel stays receivable, unlike a fired time.After, so
	// every remaining wait observes the same deadline.
	deadline := make(chan struct{})
	timer := time.AfterFunc(b.joinTimeout, func() { close(deadline) })
	defer timer.Stop()

	for _, w := range waits {
		select {
		case <-w.done:
		case <-deadline:
			b.log.WithField("path", w.path).Warn("timed out waiting for host data")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if waits[0].data != nil {
		if err := json.Unmarshal(waits[0].data, &res.Hand); err != nil {
			b.log.WithError(err).Warn("bad hand document on join")
		}
	}
	if waits[1].data != nil {
		var state PublicState
		if err := json.Unmarshal(waits[1].data, &state); err != nil {
			b.log.WithError(err).Warn("bad state document on join")
		} else {
			res.State = &state
		}
	}
	if waits[2].data != nil {
		if err := json.Unmarshal(waits[2].data, &res.Deck); err != nil {
			b.log.WithError(err).Warn("bad deck document on join")
		}
	}

	if len(res.Hand) > 0 && b.cb.OnHandUpdate != nil {
		b.cb.OnHandUpdate(res.Hand)
	}
	return res, b.listen(ctx)
}

// MirrorPlay publishes a card play: the whole state document with the
// play as the local last action, then the private hand.
func (b *Bridge) MirrorPlay(ctx context.Context, g *engine.Game, card engine.Card) {
	action := &LastAction{
		Type:      "play_card",
		Card:      &card,
		Timestamp: b.store.ServerTimestamp(ctx),
	}
	b.mirror(ctx, g, action, true)
}

// MirrorDraw publishes a draw: turn, counts and the shared deck.
func (b *Bridge) MirrorDraw(ctx context.Context, g *engine.Game) {
	action := &LastAction{
		Type:      "draw_card",
		Timestamp: b.store.ServerTimestamp(ctx),
	}
	b.mirror(ctx, g, action, true)
	b.writeLogged(ctx, b.deckPath(), g.DrawPile())
}

// MirrorDeclare publishes a low-hand declaration.
func (b *Bridge) MirrorDeclare(ctx context.Context, g *engine.Game) {
	action := &LastAction{
		Type:      "say_cinco",
		Timestamp: b.store.ServerTimestamp(ctx),
	}
	b.mirror(ctx, g, action, false)
}

// MirrorGameOver publishes the terminal state document.
func (b *Bridge) MirrorGameOver(ctx context.Context, g *engine.Game) {
	b.mirror(ctx, g, nil, false)
}

// MirrorSync publishes the whole session tree from an authoritative
// engine: the state document, both private hands and the shared deck.
// The gateway calls this after each action it hosts, since a resolved
// effect can move cards between any of the piles. actionType may be
// empty when the update resolves a suspended decision rather than a
// direct action.
func (b *Bridge) MirrorSync(ctx context.Context, g *engine.Game, actor engine.Seat, actionType string, card *engine.Card) {
	snap := g.State()
	ts := b.store.ServerTimestamp(ctx)
	state := b.publicFromSnapshot(snap, discardOf(snap), nil, ts)
	if actionType != "" {
		state.Players[b.seatRole(actor)].LastAction = &LastAction{
			Type:      actionType,
			Card:      card,
			Timestamp: ts,
		}
	}
	b.writeLogged(ctx, b.statePath(), state)
	b.writeLogged(ctx, b.handPath(RoleHost), snap.Hands[engine.SeatPlayer])
	b.writeLogged(ctx, b.handPath(RoleGuest), snap.Hands[engine.SeatOpponent])
	b.writeLogged(ctx, b.deckPath(), g.DrawPile())
}

// mirror writes the state document built from the engine's current
// snapshot, and optionally the local private hand. Store failures are
// logged and dropped: mirroring is fire-and-forget and the next action
// overwrites everything anyway.
func (b *Bridge) mirror(ctx context.Context, g *engine.Game, action *LastAction, withHand bool) {
	snap := g.State()
	ts := b.store.ServerTimestamp(ctx)
	state := b.publicFromSnapshot(snap, discardOf(snap), action, ts)
	b.writeLogged(ctx, b.statePath(), state)
	if withHand {
		b.writeLogged(ctx, b.handPath(b.role), snap.Hands[engine.SeatPlayer])
	}
}

func (b *Bridge) writeLogged(ctx context.Context, path string, value interface{}) {
	if err := b.store.Write(ctx, path, value); err != nil {
		b.log.WithError(err).WithField("path", path).Warn("mirror write failed")
	}
}

// discardOf exposes the public discard view carried by a snapshot. The
// snapshot keeps only the top card; the pile below it is dead
// information, so the wire document carries the top alone and the full
// depth travels as discardCount.
func discardOf(snap engine.Snapshot) []engine.Card {
	if snap.DiscardTop == nil {
		return []engine.Card{}
	}
	return []engine.Card{*snap.DiscardTop}
}
