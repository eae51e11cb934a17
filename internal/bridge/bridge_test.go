package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zqurashi8/couples-game-hub/engine"
	"github.com/zqurashi8/couples-game-hub/internal/store"
)

func startedGame(t *testing.T) *engine.Game {
	t.Helper()
	g := engine.New(engine.ModeOnline, 7, engine.Callbacks{})
	g.Start()
	return g
}

func TestHostSeedsSessionTree(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	g := startedGame(t)
	host := New(st, "ABC123", RoleHost, Callbacks{})
	defer host.Close()
	require.NoError(t, host.InitializeGame(ctx, g))

	data, found, err := st.ReadOnce(ctx, "sessions/ABC123/gameState")
	require.NoError(t, err)
	require.True(t, found)
	var state PublicState
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, engine.StartingHandSize, state.Players[RoleHost].CardCount)
	assert.Equal(t, engine.StartingHandSize, state.Players[RoleGuest].CardCount)
	assert.NotEmpty(t, state.DiscardPile)
	assert.Equal(t, g.State().DiscardCount, state.DiscardCount)
	assert.False(t, state.GameOver)

	for _, role := range []Role{RoleHost, RoleGuest} {
		data, found, err := st.ReadOnce(ctx, "sessions/ABC123/privateHands/"+string(role))
		require.NoError(t, err)
		require.True(t, found, "hand for %s not written", role)
		var hand []engine.Card
		require.NoError(t, json.Unmarshal(data, &hand))
		assert.Len(t, hand, engine.StartingHandSize)
	}

	_, found, err = st.ReadOnce(ctx, "sessions/ABC123/sharedDeck")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestGuestJoinRecoversHostData(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	g := startedGame(t)
	host := New(st, "ABC123", RoleHost, Callbacks{})
	defer host.Close()
	require.NoError(t, host.InitializeGame(ctx, g))

	var handUpdates [][]engine.Card
	guest := New(st, "ABC123", RoleGuest, Callbacks{
		OnHandUpdate: func(h []engine.Card) { handUpdates = append(handUpdates, h) },
	})
	defer guest.Close()
	guest.joinTimeout = 100 * time.Millisecond

	res, err := guest.JoinGame(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Hand, engine.StartingHandSize)
	require.NotNil(t, res.State)
	assert.Equal(t, engine.StartingHandSize, res.State.Players[RoleGuest].CardCount)
	assert.NotEmpty(t, res.Deck)
	require.NotEmpty(t, handUpdates)
}

func TestGuestJoinTimesOutSoftly(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	guest := New(st, "EMPTY1", RoleGuest, Callbacks{})
	defer guest.Close()
	guest.joinTimeout = 50 * time.Millisecond

	res, err := guest.JoinGame(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Hand)
	assert.Nil(t, res.State)
	assert.Empty(t, res.Deck)
}

func TestMirrorPlayReachesGuest(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	g := startedGame(t)
	host := New(st, "ABC123", RoleHost, Callbacks{})
	defer host.Close()
	require.NoError(t, host.InitializeGame(ctx, g))

	var states []PublicState
	var actions []LastAction
	guest := New(st, "ABC123", RoleGuest, Callbacks{
		OnStateUpdate:    func(s PublicState) { states = append(states, s) },
		OnOpponentAction: func(a LastAction) { actions = append(actions, a) },
	})
	defer guest.Close()
	guest.joinTimeout = 100 * time.Millisecond
	_, err := guest.JoinGame(ctx)
	require.NoError(t, err)

	played := engine.Card{Color: engine.ColorRed, Value: "5", Kind: engine.KindNumber}
	host.MirrorPlay(ctx, g, played)

	require.NotEmpty(t, states)
	require.Len(t, actions, 1)
	assert.Equal(t, "play_card", actions[0].Type)
	require.NotNil(t, actions[0].Card)
	assert.Equal(t, played, *actions[0].Card)
}

func TestMirrorSyncRefreshesWholeTree(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	g := startedGame(t)
	host := New(st, "ABC123", RoleHost, Callbacks{})
	defer host.Close()
	require.NoError(t, host.InitializeGame(ctx, g))

	host.MirrorSync(ctx, g, engine.SeatOpponent, "draw_card", nil)

	snap := g.State()
	for role, seat := range map[Role]engine.Seat{
		RoleHost:  engine.SeatPlayer,
		RoleGuest: engine.SeatOpponent,
	} {
		data, found, err := st.ReadOnce(ctx, "sessions/ABC123/privateHands/"+string(role))
		require.NoError(t, err)
		require.True(t, found)
		var hand []engine.Card
		require.NoError(t, json.Unmarshal(data, &hand))
		assert.Equal(t, snap.Hands[seat], hand, "hand for %s out of sync", role)
	}

	data, found, err := st.ReadOnce(ctx, "sessions/ABC123/sharedDeck")
	require.NoError(t, err)
	require.True(t, found)
	var deck []engine.Card
	require.NoError(t, json.Unmarshal(data, &deck))
	assert.Len(t, deck, snap.DeckCount)

	data, _, err = st.ReadOnce(ctx, "sessions/ABC123/gameState")
	require.NoError(t, err)
	var state PublicState
	require.NoError(t, json.Unmarshal(data, &state))
	require.NotNil(t, state.Players[RoleGuest].LastAction)
	assert.Equal(t, "draw_card", state.Players[RoleGuest].LastAction.Type)
}

func TestOpponentActionDeduplicated(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	g := startedGame(t)
	host := New(st, "ABC123", RoleHost, Callbacks{})
	defer host.Close()
	require.NoError(t, host.InitializeGame(ctx, g))

	var actions []LastAction
	guest := New(st, "ABC123", RoleGuest, Callbacks{
		OnOpponentAction: func(a LastAction) { actions = append(actions, a) },
	})
	defer guest.Close()
	guest.joinTimeout = 100 * time.Millisecond
	_, err := guest.JoinGame(ctx)
	require.NoError(t, err)

	// A declare rewrites the state document but carries the same action
	// timestamp forward only when it is genuinely new.
	host.MirrorDeclare(ctx, g)
	n := len(actions)
	host.MirrorGameOver(ctx, g)
	assert.Equal(t, n, len(actions), "state rewrite without a new action re-fired the callback")
}

func TestGameOverSingleFire(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	g := startedGame(t)
	host := New(st, "ABC123", RoleHost, Callbacks{})
	defer host.Close()
	require.NoError(t, host.InitializeGame(ctx, g))

	fired := 0
	guest := New(st, "ABC123", RoleGuest, Callbacks{
		OnGameOver: func(Role, string) { fired++ },
	})
	defer guest.Close()
	guest.joinTimeout = 100 * time.Millisecond
	_, err := guest.JoinGame(ctx)
	require.NoError(t, err)

	over := PublicState{
		Players:   map[Role]*PlayerPublic{RoleHost: {}, RoleGuest: {}},
		GameOver:  true,
		Winner:    RoleHost,
		Result:    "win",
		Timestamp: st.ServerTimestamp(ctx),
	}
	require.NoError(t, st.Write(ctx, "sessions/ABC123/gameState", over))
	require.NoError(t, st.Write(ctx, "sessions/ABC123/gameState", over))

	assert.Equal(t, 1, fired)
}

func TestReconnectReplaysStateAndHand(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	g := startedGame(t)
	host := New(st, "ABC123", RoleHost, Callbacks{})
	defer host.Close()
	require.NoError(t, host.InitializeGame(ctx, g))

	var states []PublicState
	var hands [][]engine.Card
	guest := New(st, "ABC123", RoleGuest, Callbacks{
		OnStateUpdate: func(s PublicState) { states = append(states, s) },
		OnHandUpdate:  func(h []engine.Card) { hands = append(hands, h) },
	})
	defer guest.Close()

	require.NoError(t, guest.Reconnect(ctx))
	assert.NotEmpty(t, states, "reconnect did not replay the state document")
	assert.NotEmpty(t, hands, "reconnect did not replay the private hand")
}
