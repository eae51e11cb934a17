package server

import (
	"context"
	"sync"
	"time"

	"github.com/zqurashi8/couples-game-hub/engine"
	"github.com/zqurashi8/couples-game-hub/internal/bridge"
)

// hostedGame is one online match running on this gateway. The gateway
// owns the authoritative engine for both seats and mirrors every
// action into the remote store through the bridge, so a client can
// resync after reconnecting.
type hostedGame struct {
	srv    *Server
	id     string
	game   *engine.Game
	bridge *bridge.Bridge

	mu       sync.Mutex
	clients  [2]*client // by seat
	started  bool
	finished bool
}

// gameView is the per-seat projection of a hosted game: the viewer's
// own hand plus public information only.
type gameView struct {
	Seat          string            `json:"seat"`
	Hand          []engine.Card     `json:"hand"`
	OpponentCount int               `json:"opponentCount"`
	DeckCount     int               `json:"deckCount"`
	DiscardTop    *engine.Card      `json:"discardTop,omitempty"`
	CurrentColor  string            `json:"currentColor"`
	CurrentValue  string            `json:"currentValue"`
	YourTurn      bool              `json:"yourTurn"`
	Direction     int8              `json:"direction"`
	Lock          engine.ColorLock  `json:"lock"`
	MyShield      bool              `json:"myShield"`
	OppShield     bool              `json:"oppShield"`
	MyDeclared    bool              `json:"myDeclared"`
	OppDeclared   bool              `json:"oppDeclared"`
	Pending       string            `json:"pending,omitempty"`
	PendingYours  bool              `json:"pendingYours,omitempty"`
	GameOver      bool              `json:"gameOver"`
	Winner        string            `json:"winner,omitempty"`
	LastPower     *engine.Card      `json:"lastPower,omitempty"`
}

func viewFromSnapshot(snap engine.Snapshot, seat engine.Seat) gameView {
	other := seat.Other()
	v := gameView{
		Seat:          seat.String(),
		Hand:          snap.Hands[seat],
		OpponentCount: snap.HandCounts[other],
		DeckCount:     snap.DeckCount,
		DiscardTop:    snap.DiscardTop,
		CurrentColor:  snap.CurrentColor.String(),
		CurrentValue:  snap.CurrentValue,
		YourTurn:      snap.CurrentSeat == seat && !snap.GameOver,
		Direction:     snap.Direction,
		Lock:          snap.Lock,
		MyShield:      snap.Shields[seat],
		OppShield:     snap.Shields[other],
		MyDeclared:    snap.Declared[seat],
		OppDeclared:   snap.Declared[other],
		GameOver:      snap.GameOver,
		LastPower:     snap.LastPower,
	}
	switch snap.PendingType {
	case engine.PendingColor:
		v.Pending = "color"
		v.PendingYours = snap.PendingSeat == seat
	case engine.PendingBlock:
		v.Pending = "block"
		v.PendingYours = snap.PendingSeat == seat
	}
	if snap.GameOver {
		v.Winner = snap.Winner.String()
	}
	return v
}

// createHostedGame registers a fresh online match for the session.
func (s *Server) createHostedGame(sessionID string) *hostedGame {
	hg := &hostedGame{
		srv: s,
		id:  sessionID,
	}
	hg.game = engine.New(engine.ModeOnline, uint64(time.Now().UnixNano()), engine.Callbacks{
		OnStateChange:    hg.broadcastState,
		PlayAnimation:    hg.broadcastAnimation,
		ShowNotification: hg.broadcastNotification,
		OnPenaltyDraw:    hg.broadcastPenalty,
	})
	hg.bridge = bridge.New(s.store, sessionID, bridge.RoleHost, bridge.Callbacks{})

	s.gamesMu.Lock()
	s.games[sessionID] = hg
	s.gamesMu.Unlock()
	return hg
}

func (s *Server) lookupHostedGame(sessionID string) *hostedGame {
	s.gamesMu.Lock()
	defer s.gamesMu.Unlock()
	return s.games[sessionID]
}

func (s *Server) dropHostedGame(sessionID string) {
	s.gamesMu.Lock()
	delete(s.games, sessionID)
	s.gamesMu.Unlock()
}

// attach seats a connection. A reconnecting client gets the current
// view immediately.
func (hg *hostedGame) attach(c *client, seat engine.Seat) {
	hg.mu.Lock()
	hg.clients[seat] = c
	started := hg.started
	hg.mu.Unlock()

	c.hosted = hg
	c.seat = seat

	if started {
		c.sendFrame("state", viewFromSnapshot(hg.game.State(), seat))
	}
}

func (hg *hostedGame) detach(c *client) {
	hg.mu.Lock()
	for seat, cl := range hg.clients {
		if cl == c {
			hg.clients[seat] = nil
		}
	}
	empty := hg.clients[0] == nil && hg.clients[1] == nil
	hg.mu.Unlock()

	if empty {
		hg.bridge.Close()
		hg.srv.dropHostedGame(hg.id)
	}
}

// startIfReady deals and seeds the session tree once both seats are
// connected. Safe to call repeatedly.
func (hg *hostedGame) startIfReady(ctx context.Context) {
	hg.mu.Lock()
	ready := !hg.started && hg.clients[0] != nil && hg.clients[1] != nil
	if ready {
		hg.started = true
	}
	hg.mu.Unlock()
	if !ready {
		return
	}

	hg.game.Start()
	if err := hg.bridge.InitializeGame(ctx, hg.game); err != nil {
		hg.srv.log.WithError(err).WithField("session", hg.id).Warn("could not seed session tree")
	}
}

// finishIfOver publishes the terminal state and closes out the session
// after an action ended the game. Runs outside engine callbacks.
func (hg *hostedGame) finishIfOver(ctx context.Context) {
	snap := hg.game.State()
	if !snap.GameOver {
		return
	}

	hg.mu.Lock()
	first := !hg.finished
	hg.finished = true
	clients := hg.clients
	hg.mu.Unlock()
	if !first {
		return
	}

	hg.bridge.MirrorGameOver(ctx, hg.game)
	if err := hg.srv.sessions.End(ctx, hg.id); err != nil {
		hg.srv.log.WithError(err).WithField("session", hg.id).Warn("could not end session")
	}
	for seat, c := range clients {
		if c == nil {
			continue
		}
		c.sendFrame("game_over", map[string]interface{}{
			"winner": snap.Winner.String(),
			"result": "win",
		})
		c.recordResult(engine.Seat(seat) == snap.Winner)
	}
}

func (hg *hostedGame) broadcastState(snap engine.Snapshot) {
	hg.mu.Lock()
	clients := hg.clients
	hg.mu.Unlock()
	for seat, c := range clients {
		if c != nil {
			c.sendFrame("state", viewFromSnapshot(snap, engine.Seat(seat)))
		}
	}
}

func (hg *hostedGame) broadcastAnimation(effect string, seat engine.Seat) {
	hg.broadcast("animation", map[string]string{"effect": effect, "seat": seat.String()})
}

func (hg *hostedGame) broadcastNotification(level, message string) {
	hg.broadcast("notification", map[string]string{"level": level, "message": message})
}

func (hg *hostedGame) broadcastPenalty(seat engine.Seat, count int) {
	hg.broadcast("penalty", map[string]interface{}{"seat": seat.String(), "count": count})
}

func (hg *hostedGame) broadcast(msgType string, payload interface{}) {
	hg.mu.Lock()
	clients := hg.clients
	hg.mu.Unlock()
	for _, c := range clients {
		if c != nil {
			c.sendFrame(msgType, payload)
		}
	}
}
