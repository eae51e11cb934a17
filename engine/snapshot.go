package engine

// Snapshot is a point-in-time copy of the full game state. It is safe
// to retain and serialize; nothing in it aliases engine internals.
type Snapshot struct {
	Mode Mode `json:"mode"`

	DeckCount    int   `json:"deckCount"`
	DiscardCount int   `json:"discardCount"`
	DiscardTop   *Card `json:"discardTop,omitempty"`

	Hands      [2][]Card `json:"hands"`
	HandCounts [2]int    `json:"handCounts"`

	CurrentColor Color  `json:"currentColor"`
	CurrentValue string `json:"currentValue"`
	CurrentSeat  Seat   `json:"currentSeat"`
	Direction    int8   `json:"direction"`

	Lock     ColorLock `json:"lock"`
	Shields  [2]bool   `json:"shields"`
	Declared [2]bool   `json:"declared"`

	Selected    int         `json:"selected"`
	PendingType PendingType `json:"pendingType"`
	PendingSeat Seat        `json:"pendingSeat"`

	AIThinking bool `json:"aiThinking"`
	GameOver   bool `json:"gameOver"`
	Winner     Seat `json:"winner"`

	LastPower *Card `json:"lastPower,omitempty"`
}

// State returns a snapshot of the current game state.
func (g *Game) State() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// DrawPile returns a copy of the draw pile. Online play shares the
// deck through the remote store, so the pile is not hidden there.
func (g *Game) DrawPile() []Card {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Card(nil), g.deck...)
}

// snapshotLocked builds a Snapshot with deep-copied hands.
// Assumes lock is held by caller.
func (g *Game) snapshotLocked() Snapshot {
	s := Snapshot{
		Mode:         g.mode,
		DeckCount:    len(g.deck),
		DiscardCount: len(g.discard),
		CurrentColor: g.currentColor,
		CurrentValue: g.currentValue,
		CurrentSeat:  g.currentSeat,
		Direction:    g.direction,
		Lock:         g.lock,
		Shields:      g.shield,
		Declared:     g.declared,
		Selected:     g.selected,
		PendingType:  g.pending.Type,
		PendingSeat:  g.pending.Seat,
		AIThinking:   g.aiThinking,
		GameOver:     g.gameOver,
		Winner:       g.winner,
	}
	for seat := range g.hands {
		s.Hands[seat] = append([]Card(nil), g.hands[seat]...)
		s.HandCounts[seat] = len(g.hands[seat])
	}
	if len(g.discard) > 0 {
		top := g.discard[len(g.discard)-1]
		s.DiscardTop = &top
	}
	if g.lastPower != nil {
		lp := *g.lastPower
		s.LastPower = &lp
	}
	return s
}
