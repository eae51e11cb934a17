// Package bridge synchronizes one online Cinco match through the
// remote key-value store. Each client runs its own engine and mirrors
// local actions as whole-document writes; inbound documents overwrite
// the derived view wholesale, with no merging. The store is trusted:
// neither side re-validates the other's writes.
package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zqurashi8/couples-game-hub/engine"
	"github.com/zqurashi8/couples-game-hub/internal/store"
)

// Role names a seat on the wire. The host is always player1.
type Role string

const (
	RoleHost  Role = "player1"
	RoleGuest Role = "player2"
)

// Other returns the opposing role.
func (r Role) Other() Role {
	if r == RoleHost {
		return RoleGuest
	}
	return RoleHost
}

// LastAction describes the most recent action a role took, for
// opponent-side notifications.
type LastAction struct {
	Type      string       `json:"type"` // play_card, draw_card, say_cinco
	Card      *engine.Card `json:"card,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// PlayerPublic is the public view of one role: counts and flags only,
// never cards.
type PlayerPublic struct {
	CardCount  int         `json:"cardCount"`
	SaidCinco  bool        `json:"saidCinco"`
	LastAction *LastAction `json:"lastAction,omitempty"`
}

// ActiveEffects carries the shield flags and color lock on the wire.
type ActiveEffects struct {
	Shields   map[Role]bool     `json:"shields"`
	ColorLock *engine.ColorLock `json:"colorLock,omitempty"`
}

// PublicState is the shared game-state document. Hands appear only as
// counts; the full hands live under privateHands/{role}.
type PublicState struct {
	DiscardPile   []engine.Card          `json:"discardPile"`
	DiscardCount  int                    `json:"discardCount"`
	CurrentColor  string                 `json:"currentColor"`
	CurrentValue  string                 `json:"currentValue"`
	CurrentTurn   Role                   `json:"currentTurn"`
	Direction     int                    `json:"direction"`
	ActiveEffects ActiveEffects          `json:"activeEffects"`
	Players       map[Role]*PlayerPublic `json:"players"`
	LastPowerUp   *engine.Card           `json:"lastPowerUp"`
	GameOver      bool                   `json:"gameOver,omitempty"`
	Winner        Role                   `json:"winner,omitempty"`
	Result        string                 `json:"result,omitempty"`
	Timestamp     int64                  `json:"timestamp"`
}

// Callbacks deliver inbound documents to the local game view. Any
// field may be nil. They run on store delivery goroutines.
type Callbacks struct {
	OnStateUpdate    func(PublicState)
	OnHandUpdate     func([]engine.Card)
	OnDeckUpdate     func([]engine.Card)
	OnOpponentAction func(LastAction)
	OnGameOver       func(winner Role, result string)
}

// Bridge mirrors one client's engine into the session tree and feeds
// remote updates back through callbacks.
type Bridge struct {
	store       store.Store
	sessionID   string
	role        Role
	cb          Callbacks
	log         *logrus.Entry
	joinTimeout time.Duration

	mu           sync.Mutex
	unsubs       []func()
	lastOppStamp int64
	gameOverSent bool
}

func New(st store.Store, sessionID string, role Role, cb Callbacks) *Bridge {
	return &Bridge{
		store:       st,
		sessionID:   sessionID,
		role:        role,
		cb:          cb,
		joinTimeout: 15 * time.Second,
		log: logrus.WithFields(logrus.Fields{
			"component": "bridge",
			"session":   sessionID,
			"role":      string(role),
		}),
	}
}

// Role returns the local wire role.
func (b *Bridge) Role() Role { return b.role }

func (b *Bridge) statePath() string { return "sessions/" + b.sessionID + "/gameState" }
func (b *Bridge) deckPath() string  { return "sessions/" + b.sessionID + "/sharedDeck" }
func (b *Bridge) handPath(r Role) string {
	return "sessions/" + b.sessionID + "/privateHands/" + string(r)
}

// seatRole maps a local engine seat to its wire role. The local player
// seat is always the bridge's own role.
func (b *Bridge) seatRole(seat engine.Seat) Role {
	if seat == engine.SeatPlayer {
		return b.role
	}
	return b.role.Other()
}

// publicFromSnapshot projects a local engine snapshot onto the wire
// document, translating seats to roles.
func (b *Bridge) publicFromSnapshot(s engine.Snapshot, discard []engine.Card, action *LastAction, ts int64) PublicState {
	me, opp := b.role, b.role.Other()

	var lock *engine.ColorLock
	if s.Lock.Active() {
		l := s.Lock
		lock = &l
	}

	ps := PublicState{
		DiscardPile:  discard,
		DiscardCount: s.DiscardCount,
		CurrentColor: s.CurrentColor.String(),
		CurrentValue: s.CurrentValue,
		CurrentTurn:  b.seatRole(s.CurrentSeat),
		Direction:    int(s.Direction),
		ActiveEffects: ActiveEffects{
			Shields: map[Role]bool{
				me:  s.Shields[engine.SeatPlayer],
				opp: s.Shields[engine.SeatOpponent],
			},
			ColorLock: lock,
		},
		Players: map[Role]*PlayerPublic{
			me: {
				CardCount: s.HandCounts[engine.SeatPlayer],
				SaidCinco: s.Declared[engine.SeatPlayer],
			},
			opp: {
				CardCount: s.HandCounts[engine.SeatOpponent],
				SaidCinco: s.Declared[engine.SeatOpponent],
			},
		},
		LastPowerUp: s.LastPower,
		Timestamp:   ts,
	}
	if action != nil {
		ps.Players[me].LastAction = action
	}
	if s.GameOver {
		ps.GameOver = true
		ps.Winner = b.seatRole(s.Winner)
		ps.Result = "win"
	}
	return ps
}

// listen attaches the steady-state subscriptions: the shared state
// document, the local private hand and the shared deck. Opponent
// actions are derived from the state document by timestamp.
func (b *Bridge) listen(ctx context.Context) error {
	unsubState, err := b.store.Subscribe(ctx, b.statePath(), b.handleState)
	if err != nil {
		return err
	}
	unsubHand, err := b.store.Subscribe(ctx, b.handPath(b.role), b.handleHand)
	if err != nil {
		unsubState()
		return err
	}
	unsubDeck, err := b.store.Subscribe(ctx, b.deckPath(), b.handleDeck)
	if err != nil {
		unsubState()
		unsubHand()
		return err
	}

	b.mu.Lock()
	b.unsubs = append(b.unsubs, unsubState, unsubHand, unsubDeck)
	b.mu.Unlock()
	return nil
}

func (b *Bridge) handleState(data []byte) {
	var state PublicState
	if err := json.Unmarshal(data, &state); err != nil {
		b.log.WithError(err).Warn("bad state document")
		return
	}
	if b.cb.OnStateUpdate != nil {
		b.cb.OnStateUpdate(state)
	}

	if opp := state.Players[b.role.Other()]; opp != nil && opp.LastAction != nil {
		b.mu.Lock()
		isNew := opp.LastAction.Timestamp > b.lastOppStamp
		if isNew {
			b.lastOppStamp = opp.LastAction.Timestamp
		}
		b.mu.Unlock()
		if isNew && b.cb.OnOpponentAction != nil {
			b.cb.OnOpponentAction(*opp.LastAction)
		}
	}

	if state.GameOver {
		b.mu.Lock()
		first := !b.gameOverSent
		b.gameOverSent = true
		b.mu.Unlock()
		if first && b.cb.OnGameOver != nil {
			b.cb.OnGameOver(state.Winner, state.Result)
		}
	}
}

func (b *Bridge) handleHand(data []byte) {
	var hand []engine.Card
	if err := json.Unmarshal(data, &hand); err != nil {
		b.log.WithError(err).Warn("bad hand document")
		return
	}
	if len(hand) > 0 && b.cb.OnHandUpdate != nil {
		b.cb.OnHandUpdate(hand)
	}
}

func (b *Bridge) handleDeck(data []byte) {
	var deck []engine.Card
	if err := json.Unmarshal(data, &deck); err != nil {
		b.log.WithError(err).Warn("bad deck document")
		return
	}
	if b.cb.OnDeckUpdate != nil {
		b.cb.OnDeckUpdate(deck)
	}
}

// teardown cancels all subscriptions.
func (b *Bridge) teardown() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

// Reconnect rebuilds the subscriptions after a connectivity gap and
// replays the current state and private hand through the callbacks so
// the local view catches up in one step.
func (b *Bridge) Reconnect(ctx context.Context) error {
	b.teardown()
	if err := b.listen(ctx); err != nil {
		return err
	}

	if data, found, err := b.store.ReadOnce(ctx, b.statePath()); err != nil {
		b.log.WithError(err).Warn("reconnect state read failed")
	} else if found {
		b.handleState(data)
	}
	if data, found, err := b.store.ReadOnce(ctx, b.handPath(b.role)); err != nil {
		b.log.WithError(err).Warn("reconnect hand read failed")
	} else if found {
		b.handleHand(data)
	}
	return nil
}

// Close detaches the bridge from the store. The session documents are
// left in place for the other client and for rejoins.
func (b *Bridge) Close() {
	b.teardown()
}
