package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zqurashi8/couples-game-hub/engine"
	"github.com/zqurashi8/couples-game-hub/internal/bridge"
)

// wsMessage is the JSON envelope for WebSocket frames in both
// directions.
type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// client is one WebSocket connection. It owns a personal engine for
// AI/local play, or a seat in a hosted online game.
type client struct {
	srv    *Server
	userID uuid.UUID
	log    *logrus.Entry

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	game   *engine.Game
	hosted *hostedGame
	seat   engine.Seat
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c := &client{
		srv:  s,
		send: make(chan []byte, 64),
		log:  s.log.WithField("remote", r.RemoteAddr),
	}
	if s.auth != nil {
		if token := r.URL.Query().Get("token"); token != "" {
			if id, err := s.auth.VerifyToken(token); err == nil {
				c.userID = id
			}
		}
	}

	ctx := r.Context()
	go func() {
		for msg := range c.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendFrame("error", errorPayload{Message: "invalid message"})
			continue
		}
		c.handleMessage(ctx, msg)
	}

	c.detach(context.Background())
}

// sendFrame marshals and queues one outbound frame, dropping it when
// the connection cannot keep up. A detached client swallows frames: an
// armed AI timer or a hosted-game broadcast may still fire after the
// connection is gone.
func (c *client) sendFrame(msgType string, payload interface{}) {
	p, _ := json.Marshal(payload)
	msg, _ := json.Marshal(wsMessage{Type: msgType, Payload: p})
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) handleMessage(ctx context.Context, msg wsMessage) {
	switch msg.Type {
	case "new_game":
		c.handleNewGame(msg.Payload)
	case "create_session":
		c.handleCreateSession(ctx, msg.Payload)
	case "join_session":
		c.handleJoinSession(ctx, msg.Payload)
	case "play":
		c.handlePlay(ctx, msg.Payload)
	case "draw":
		c.handleDraw(ctx)
	case "declare":
		c.handleDeclare(ctx)
	case "choose_color":
		c.handleChooseColor(ctx, msg.Payload)
	case "block":
		c.handleBlock(ctx, msg.Payload)
	default:
		c.sendFrame("error", errorPayload{Message: "unknown message type: " + msg.Type})
	}
}

func parseColor(name string) (engine.Color, bool) {
	for _, col := range engine.PlayColors {
		if col.String() == name {
			return col, true
		}
	}
	return engine.ColorNone, false
}

func parseMode(name string) (engine.Mode, bool) {
	switch name {
	case "ai":
		return engine.ModeAI, true
	case "local":
		return engine.ModeLocal, true
	}
	return engine.ModeAI, false
}

// handleNewGame starts a personal AI or local game on this connection.
func (c *client) handleNewGame(payload json.RawMessage) {
	var req struct {
		Mode string `json:"mode"`
		Seed uint64 `json:"seed"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendFrame("error", errorPayload{Message: "invalid new_game payload"})
		return
	}
	mode, ok := parseMode(req.Mode)
	if !ok {
		c.sendFrame("error", errorPayload{Message: "mode must be ai or local"})
		return
	}
	seed := req.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	c.hosted = nil
	c.seat = engine.SeatPlayer
	c.game = engine.New(mode, seed, c.personalCallbacks())
	c.game.Start()
}

// personalCallbacks stream engine events straight to this connection.
// Personal games are fully client-visible, like the original
// single-device modes, so the full snapshot goes out.
func (c *client) personalCallbacks() engine.Callbacks {
	return engine.Callbacks{
		OnStateChange: func(snap engine.Snapshot) {
			c.sendFrame("state", snap)
		},
		OnGameOver: func(winner engine.Seat, result string) {
			c.sendFrame("game_over", map[string]interface{}{"winner": winner.String(), "result": result})
			c.recordResult(winner == engine.SeatPlayer)
		},
		PlayAnimation: func(effect string, seat engine.Seat) {
			c.sendFrame("animation", map[string]string{"effect": effect, "seat": seat.String()})
		},
		ShowNotification: func(level, message string) {
			c.sendFrame("notification", map[string]string{"level": level, "message": message})
		},
		OnPenaltyDraw: func(seat engine.Seat, count int) {
			c.sendFrame("penalty", map[string]interface{}{"seat": seat.String(), "count": count})
		},
	}
}

// recordResult persists a win/loss for an authenticated user. Runs off
// the engine callback path.
func (c *client) recordResult(won bool) {
	if c.srv.auth == nil || c.userID == uuid.Nil {
		return
	}
	userID := c.userID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.srv.auth.RecordGameResult(ctx, userID, "cinco", won); err != nil {
			c.log.WithError(err).Warn("could not record game result")
		}
	}()
}

func (c *client) handleCreateSession(ctx context.Context, payload json.RawMessage) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.Name == "" {
		c.sendFrame("error", errorPayload{Message: "name is required"})
		return
	}

	joined, err := c.srv.sessions.Create(ctx, "cinco", req.Name)
	if err != nil {
		c.log.WithError(err).Error("session create failed")
		c.sendFrame("error", errorPayload{Message: "could not create session"})
		return
	}

	hg := c.srv.createHostedGame(joined.SessionID)
	hg.attach(c, engine.SeatPlayer)
	c.game = nil

	c.sendFrame("session_created", map[string]interface{}{
		"sessionId": joined.SessionID,
		"role":      string(joined.Role),
	})
}

func (c *client) handleJoinSession(ctx context.Context, payload json.RawMessage) {
	var req struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.Code == "" || req.Name == "" {
		c.sendFrame("error", errorPayload{Message: "code and name are required"})
		return
	}

	joined, err := c.srv.sessions.Join(ctx, req.Code, "cinco", req.Name)
	if err != nil {
		c.sendFrame("error", errorPayload{Message: err.Error()})
		return
	}

	hg := c.srv.lookupHostedGame(joined.SessionID)
	if hg == nil {
		c.sendFrame("error", errorPayload{Message: "session host is not connected"})
		return
	}
	hg.attach(c, engine.SeatOpponent)
	c.game = nil

	c.sendFrame("session_joined", map[string]interface{}{
		"sessionId":    joined.SessionID,
		"role":         string(joined.Role),
		"opponentName": joined.OpponentName,
		"reconnected":  joined.Reconnected,
	})

	hg.startIfReady(ctx)
}

// routeGame picks the engine and seat the next action applies to.
func (c *client) routeGame() (*engine.Game, engine.Seat, *hostedGame) {
	if c.hosted != nil {
		return c.hosted.game, c.seat, c.hosted
	}
	return c.game, engine.SeatPlayer, nil
}

func (c *client) handlePlay(ctx context.Context, payload json.RawMessage) {
	var req struct {
		Index int          `json:"index"`
		Seat  *engine.Seat `json:"seat,omitempty"` // local mode plays both seats
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendFrame("error", errorPayload{Message: "invalid play payload"})
		return
	}

	g, seat, hg := c.routeGame()
	if g == nil {
		c.sendFrame("error", errorPayload{Message: "no active game"})
		return
	}
	if hg == nil && req.Seat != nil {
		seat = *req.Seat
	}

	var card engine.Card
	if snap := g.State(); req.Index >= 0 && req.Index < len(snap.Hands[seat]) {
		card = snap.Hands[seat][req.Index]
	}

	if !g.Play(seat, req.Index) {
		c.sendFrame("rejected", map[string]string{"action": "play"})
		return
	}
	if hg != nil {
		hg.bridge.MirrorSync(ctx, g, seat, "play_card", &card)
		hg.finishIfOver(ctx)
	}
}

func (c *client) handleDraw(ctx context.Context) {
	g, seat, hg := c.routeGame()
	if g == nil {
		c.sendFrame("error", errorPayload{Message: "no active game"})
		return
	}
	if !g.Draw(seat) {
		c.sendFrame("rejected", map[string]string{"action": "draw"})
		return
	}
	if hg != nil {
		hg.bridge.MirrorSync(ctx, g, seat, "draw_card", nil)
	}
}

func (c *client) handleDeclare(ctx context.Context) {
	g, seat, hg := c.routeGame()
	if g == nil {
		c.sendFrame("error", errorPayload{Message: "no active game"})
		return
	}
	if !g.DeclareLowHand(seat) {
		c.sendFrame("rejected", map[string]string{"action": "declare"})
		return
	}
	if hg != nil {
		hg.bridge.MirrorSync(ctx, g, seat, "say_cinco", nil)
	}
}

func (c *client) handleChooseColor(ctx context.Context, payload json.RawMessage) {
	var req struct {
		Color string `json:"color"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendFrame("error", errorPayload{Message: "invalid choose_color payload"})
		return
	}
	color, ok := parseColor(req.Color)
	if !ok {
		c.sendFrame("error", errorPayload{Message: "color must be red, blue, green or yellow"})
		return
	}

	g, seat, hg := c.routeGame()
	if g == nil {
		c.sendFrame("error", errorPayload{Message: "no active game"})
		return
	}
	if !g.ResolveColor(color) {
		c.sendFrame("rejected", map[string]string{"action": "choose_color"})
		return
	}
	// Resolving a wild can finish the game: the card left the hand at
	// play time, but the win check waits for the color.
	if hg != nil {
		hg.bridge.MirrorSync(ctx, g, seat, "", nil)
		hg.finishIfOver(ctx)
	}
}

func (c *client) handleBlock(ctx context.Context, payload json.RawMessage) {
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendFrame("error", errorPayload{Message: "invalid block payload"})
		return
	}

	g, seat, hg := c.routeGame()
	if g == nil {
		c.sendFrame("error", errorPayload{Message: "no active game"})
		return
	}
	if !g.ResolveBlock(req.Accept) {
		c.sendFrame("rejected", map[string]string{"action": "block"})
		return
	}
	if hg != nil {
		hg.bridge.MirrorSync(ctx, g, seat, "", nil)
		hg.finishIfOver(ctx)
	}
}

// detach releases the connection's seat or personal game.
func (c *client) detach(ctx context.Context) {
	if c.hosted != nil {
		c.hosted.detach(c)
		role := bridge.RoleHost
		if c.seat == engine.SeatOpponent {
			role = bridge.RoleGuest
		}
		if err := c.srv.sessions.Disconnect(ctx, c.hosted.id, role); err != nil {
			c.log.WithError(err).Debug("disconnect mark failed")
		}
	}
	c.game = nil
	c.hosted = nil

	// Mark closed before closing the channel so no queued sendFrame can
	// hit the closed channel.
	c.sendMu.Lock()
	c.closed = true
	c.sendMu.Unlock()
	close(c.send)
}
