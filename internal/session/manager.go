// Package session manages multiplayer session lifecycles: short join
// codes, seat assignment, reconnects and status transitions. Session
// metadata lives in the remote store under sessions/{id}/meta, beside
// the game documents the bridge writes.
package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/zqurashi8/couples-game-hub/internal/bridge"
	"github.com/zqurashi8/couples-game-hub/internal/store"
)

// codeAlphabet excludes characters players confuse when reading codes
// aloud (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	CodeLength = 6
	ttlMillis  = 48 * 60 * 60 * 1000
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrExpired   = errors.New("session expired")
	ErrWrongGame = errors.New("session is for a different game")
	ErrFull      = errors.New("session is full")
)

// Player is one seat's metadata.
type Player struct {
	Name            string `json:"name"`
	Connected       bool   `json:"connected"`
	JoinedAt        int64  `json:"joinedAt"`
	LastReconnectAt int64  `json:"lastReconnectAt,omitempty"`
}

// Session is the metadata document for one multiplayer session.
type Session struct {
	GameType    string                  `json:"gameType"`
	CreatedAt   int64                   `json:"createdAt"`
	ExpiresAt   int64                   `json:"expiresAt"`
	Status      Status                  `json:"status"`
	Players     map[bridge.Role]*Player `json:"players"`
	CompletedAt int64                   `json:"completedAt,omitempty"`
}

// Joined is the outcome of a successful create or join.
type Joined struct {
	SessionID    string
	Role         bridge.Role
	OpponentName string
	Reconnected  bool
}

// Manager creates and mutates session metadata. Mutations are
// read-modify-write without transactions: the store is trusted and
// contention on a two-player session code is negligible.
type Manager struct {
	store store.Store
	log   *logrus.Entry
}

func NewManager(st store.Store) *Manager {
	return &Manager{
		store: st,
		log:   logrus.WithField("component", "session"),
	}
}

func metaPath(id string) string { return "sessions/" + id + "/meta" }

// generateCode returns a fresh random join code.
func generateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session code: %w", err)
	}
	code := make([]byte, CodeLength)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}

// Get fetches a session's metadata.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	data, found, err := m.store.ReadOnce(ctx, metaPath(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

// Create opens a new session for gameType with the caller seated as
// host. Codes colliding with a live session are regenerated.
func (m *Manager) Create(ctx context.Context, gameType, playerName string) (*Joined, error) {
	var code string
	for attempt := 0; ; attempt++ {
		c, err := generateCode()
		if err != nil {
			return nil, err
		}
		if _, found, err := m.store.ReadOnce(ctx, metaPath(c)); err != nil {
			return nil, err
		} else if !found {
			code = c
			break
		}
		if attempt >= 5 {
			return nil, errors.New("could not allocate a session code")
		}
	}

	now := m.store.ServerTimestamp(ctx)
	s := Session{
		GameType:  gameType,
		CreatedAt: now,
		ExpiresAt: now + ttlMillis,
		Status:    StatusWaiting,
		Players: map[bridge.Role]*Player{
			bridge.RoleHost: {Name: playerName, Connected: true, JoinedAt: now},
		},
	}
	if err := m.store.Write(ctx, metaPath(code), s); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"session": code, "game": gameType}).Info("session created")
	return &Joined{SessionID: code, Role: bridge.RoleHost}, nil
}

// Join seats the caller as guest, or reconnects them when the guest
// seat already carries the same name.
func (m *Manager) Join(ctx context.Context, id, gameType, playerName string) (*Joined, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := m.store.ServerTimestamp(ctx)
	if s.ExpiresAt < now {
		return nil, ErrExpired
	}
	if s.GameType != gameType {
		return nil, fmt.Errorf("%w: %s", ErrWrongGame, s.GameType)
	}

	host := s.Players[bridge.RoleHost]
	if host == nil {
		return nil, ErrNotFound
	}

	if guest := s.Players[bridge.RoleGuest]; guest != nil {
		if guest.Name != playerName {
			return nil, ErrFull
		}
		guest.Connected = true
		guest.LastReconnectAt = now
		if err := m.store.Write(ctx, metaPath(id), s); err != nil {
			return nil, err
		}
		m.log.WithFields(logrus.Fields{"session": id, "player": playerName}).Info("guest reconnected")
		return &Joined{SessionID: id, Role: bridge.RoleGuest, OpponentName: host.Name, Reconnected: true}, nil
	}

	s.Players[bridge.RoleGuest] = &Player{Name: playerName, Connected: true, JoinedAt: now}
	s.Status = StatusInProgress
	if err := m.store.Write(ctx, metaPath(id), s); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"session": id, "player": playerName}).Info("guest joined")
	return &Joined{SessionID: id, Role: bridge.RoleGuest, OpponentName: host.Name}, nil
}

// Disconnect marks a seat as disconnected without ending the session,
// so the same player can rejoin later.
func (m *Manager) Disconnect(ctx context.Context, id string, role bridge.Role) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	p := s.Players[role]
	if p == nil {
		return ErrNotFound
	}
	p.Connected = false
	return m.store.Write(ctx, metaPath(id), s)
}

// End marks the session completed. Documents stay in place until the
// session expires.
func (m *Manager) End(ctx context.Context, id string) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	s.Status = StatusCompleted
	s.CompletedAt = m.store.ServerTimestamp(ctx)
	return m.store.Write(ctx, metaPath(id), s)
}
