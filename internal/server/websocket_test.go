package server

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/zqurashi8/couples-game-hub/engine"
	"github.com/zqurashi8/couples-game-hub/internal/config"
	"github.com/zqurashi8/couples-game-hub/internal/store"
)

// A personal AI game keeps its pacing timer running when the
// connection goes away; the late engine callbacks must land on the
// detached client without panicking the process.
func TestDetachedClientSurvivesLateCallbacks(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	srv := New(&config.Config{ListenAddr: ":0"}, st, nil)

	c := &client{
		srv:  srv,
		send: make(chan []byte, 4),
		log:  logrus.WithField("test", "detach"),
	}
	c.game = engine.New(engine.ModeAI, 5, c.personalCallbacks())
	c.game.SetAIDelay(20 * time.Millisecond)
	c.game.Start()

	// Hand the turn to the machine seat so its timer is armed when the
	// client detaches. Start may already have done so; either way a
	// delayed callback is in flight.
	c.game.Draw(engine.SeatPlayer)
	game := c.game
	c.detach(context.Background())

	time.Sleep(100 * time.Millisecond)

	assert.NotPanics(t, func() { c.sendFrame("state", game.State()) })
}

func TestSendFrameAfterDetachIsDropped(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	srv := New(&config.Config{ListenAddr: ":0"}, st, nil)

	c := &client{
		srv:  srv,
		send: make(chan []byte, 1),
		log:  logrus.WithField("test", "detach"),
	}
	c.detach(context.Background())

	assert.NotPanics(t, func() { c.sendFrame("notification", "late") })
	_, open := <-c.send
	assert.False(t, open, "a frame was queued after detach")
}
