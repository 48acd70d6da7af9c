package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomoku-platform/backend/internal/ai"
	"gomoku-platform/backend/internal/events"
	engine "gomoku-platform/backend/internal/game"
	"gomoku-platform/backend/internal/models"
)

type broadcastCall struct {
	destination string
	payload     interface{}
}

type fakeHub struct {
	broadcasts []broadcastCall
	pushes     []broadcastCall
}

func (f *fakeHub) BroadcastTopic(destination string, payload interface{}) {
	f.broadcasts = append(f.broadcasts, broadcastCall{destination, payload})
}

func (f *fakeHub) SendToUser(userID, destination string, payload interface{}) {
	f.pushes = append(f.pushes, broadcastCall{userID + ":" + destination, payload})
}

type publishCall struct {
	topic string
	key   string
	value interface{}
	sync  bool
}

type fakePublisher struct {
	calls []publishCall
}

func (f *fakePublisher) PublishSync(ctx context.Context, topic, key string, v interface{}) error {
	f.calls = append(f.calls, publishCall{topic, key, v, true})
	return nil
}

func (f *fakePublisher) PublishAsync(topic, key string, v interface{}) {
	f.calls = append(f.calls, publishCall{topic, key, v, false})
}

func (f *fakePublisher) moveEvents() []events.GameMoveEvent {
	var evs []events.GameMoveEvent
	for _, c := range f.calls {
		if ev, ok := c.value.(events.GameMoveEvent); ok {
			evs = append(evs, ev)
		}
	}
	return evs
}

// scriptedAI returns queued moves in order, then errors.
type scriptedAI struct {
	moves [][2]int
	err   error
	calls int
}

func (f *scriptedAI) SuggestMove(ctx context.Context, board [][]int, currentPlayer int, difficulty string) (int, int, error) {
	f.calls++
	if f.err != nil {
		return 0, 0, f.err
	}
	if len(f.moves) == 0 {
		return 0, 0, ai.ErrUnavailable
	}
	mv := f.moves[0]
	f.moves = f.moves[1:]
	return mv[0], mv[1], nil
}

func newTestService(t *testing.T, suggester Suggester) (*Service, *engine.Store, *fakeHub, *fakePublisher) {
	t.Helper()
	store := engine.NewStore(time.Hour)
	hub := &fakeHub{}
	pub := &fakePublisher{}
	if suggester == nil {
		suggester = &scriptedAI{err: ai.ErrUnavailable}
	}
	return NewService(store, pub, hub, suggester, time.Second), store, hub, pub
}

func seedPvP(t *testing.T, store *engine.Store, gameID string) {
	t.Helper()
	require.NoError(t, store.Create(engine.NewSession(gameID, engine.HumanVsHuman, "alice", "bob", "")))
}

func TestCreateGame_AIGame(t *testing.T) {
	svc, store, _, pub := newTestService(t, nil)

	session, err := svc.CreateGame(context.Background(), "alice", models.CreateGameRequest{
		GameType: "HUMAN_VS_AI", AIDifficulty: "MEDIUM",
	})
	require.NoError(t, err)
	assert.Equal(t, engine.HumanVsAI, session.GameType)
	assert.Equal(t, "MEDIUM", session.AIDifficulty)
	assert.Equal(t, 1, store.Len())

	require.Len(t, pub.calls, 1)
	assert.True(t, pub.calls[0].sync)
	ev := pub.calls[0].value.(events.MatchCreatedEvent)
	assert.Equal(t, events.SourceAIGame, ev.Source)
	assert.Equal(t, session.GameID, ev.GameID)
}

func TestCreateGame_DirectChallengeNotifiesOpponent(t *testing.T) {
	svc, _, hub, pub := newTestService(t, nil)

	session, err := svc.CreateGame(context.Background(), "alice", models.CreateGameRequest{
		GameType: "HUMAN_VS_HUMAN", OpponentID: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", session.Player2ID)

	ev := pub.calls[0].value.(events.MatchCreatedEvent)
	assert.Equal(t, events.SourceDirectChallenge, ev.Source)

	require.Len(t, hub.pushes, 1)
	assert.Equal(t, "bob:/user/queue/match-found", hub.pushes[0].destination)
}

func TestCreateGame_Validation(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateGame(ctx, "alice", models.CreateGameRequest{GameType: "HUMAN_VS_AI", AIDifficulty: "IMPOSSIBLE"})
	assert.ErrorIs(t, err, engine.ErrInvalidMove)

	_, err = svc.CreateGame(ctx, "alice", models.CreateGameRequest{GameType: "HUMAN_VS_HUMAN", OpponentID: "alice"})
	assert.ErrorIs(t, err, engine.ErrInvalidMove)

	_, err = svc.CreateGame(ctx, "alice", models.CreateGameRequest{GameType: "CHESS"})
	assert.ErrorIs(t, err, engine.ErrInvalidMove)
}

func TestGet_NonParticipantRejected(t *testing.T) {
	svc, store, _, _ := newTestService(t, nil)
	seedPvP(t, store, "g1")

	_, err := svc.Get("g1", "mallory")
	assert.ErrorIs(t, err, engine.ErrNotParticipant)

	session, err := svc.Get("g1", "bob")
	require.NoError(t, err)
	assert.Equal(t, "g1", session.GameID)
}

func TestPlayMove_BroadcastsAndMirrors(t *testing.T) {
	svc, store, hub, pub := newTestService(t, nil)
	seedPvP(t, store, "g1")

	snap, err := svc.PlayMove(context.Background(), "g1", "alice", 7, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentPlayer)

	require.Len(t, hub.broadcasts, 1)
	assert.Equal(t, "/topic/game/g1", hub.broadcasts[0].destination)
	update := hub.broadcasts[0].payload.(Update)
	assert.Equal(t, UpdateMoveMade, update.Type)
	require.NotNil(t, update.LastMove)
	assert.Equal(t, 7, update.LastMove.Row)

	evs := pub.moveEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, events.ActorHuman, evs[0].ActorType)
	assert.Equal(t, "alice", evs[0].PlayerID)
	assert.Equal(t, 1, evs[0].MoveNumber)
	assert.Equal(t, 1, evs[0].BoardAfter[7][7])
	assert.Empty(t, evs[0].Status)
}

func TestPlayMove_IllegalMoveNotBroadcast(t *testing.T) {
	svc, store, hub, pub := newTestService(t, nil)
	seedPvP(t, store, "g1")

	_, err := svc.PlayMove(context.Background(), "g1", "bob", 7, 7)
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)
	assert.Empty(t, hub.broadcasts)
	assert.Empty(t, pub.calls)
}

func TestPlayMove_AIReplyInSameCall(t *testing.T) {
	suggester := &scriptedAI{moves: [][2]int{{0, 0}}}
	svc, _, hub, pub := newTestService(t, suggester)

	created, err := svc.CreateGame(context.Background(), "alice", models.CreateGameRequest{
		GameType: "HUMAN_VS_AI", AIDifficulty: "EASY",
	})
	require.NoError(t, err)

	snap, err := svc.PlayMove(context.Background(), created.GameID, "alice", 7, 7)
	require.NoError(t, err)

	// Human move then AI move: back to the human's turn.
	assert.Equal(t, 1, snap.CurrentPlayer)
	assert.Equal(t, 2, snap.MoveCount)
	assert.Equal(t, 2, snap.Board[0][0])

	assert.Len(t, hub.broadcasts, 2)
	evs := pub.moveEvents()
	require.Len(t, evs, 2)
	assert.Equal(t, events.ActorAI, evs[1].ActorType)
	assert.Empty(t, evs[1].PlayerID)
	assert.Equal(t, "EASY", evs[1].AIDifficulty)
}

func TestPlayMove_AIFailureLeavesHumanMove(t *testing.T) {
	suggester := &scriptedAI{err: ai.ErrUnavailable}
	svc, store, hub, _ := newTestService(t, suggester)

	created, err := svc.CreateGame(context.Background(), "alice", models.CreateGameRequest{
		GameType: "HUMAN_VS_AI", AIDifficulty: "EASY",
	})
	require.NoError(t, err)

	snap, err := svc.PlayMove(context.Background(), created.GameID, "alice", 7, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.MoveCount)
	assert.Equal(t, 2, snap.CurrentPlayer)
	assert.Len(t, hub.broadcasts, 1)

	// Bridge recovers: the stranded AI turn is caught up before the next
	// human move is applied.
	suggester.err = nil
	suggester.moves = [][2]int{{0, 0}}
	snap, err = svc.PlayMove(context.Background(), created.GameID, "alice", 8, 8)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.MoveCount)
	assert.Equal(t, 2, snap.Board[0][0])
	assert.Equal(t, 1, snap.Board[8][8])

	session, err := store.Get(created.GameID)
	require.NoError(t, err)
	assert.Equal(t, 2, session.CurrentPlayer)
}

func TestPlayMove_WinningMoveEmitsTerminalEvent(t *testing.T) {
	svc, store, hub, pub := newTestService(t, nil)
	seedPvP(t, store, "g1")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.PlayMove(ctx, "g1", "alice", 7, 7+i)
		require.NoError(t, err)
		_, err = svc.PlayMove(ctx, "g1", "bob", 8, 7+i)
		require.NoError(t, err)
	}
	snap, err := svc.PlayMove(ctx, "g1", "alice", 7, 11)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCompleted, snap.Status)

	last := hub.broadcasts[len(hub.broadcasts)-1].payload.(Update)
	assert.Equal(t, UpdateCompleted, last.Type)

	evs := pub.moveEvents()
	final := evs[len(evs)-1]
	assert.True(t, final.Terminal())
	assert.Equal(t, "COMPLETED", final.Status)
	assert.Equal(t, "PLAYER", final.WinnerType)
	assert.Equal(t, "alice", final.WinnerID)
	assert.False(t, final.Marker())
}

func TestForfeit_EmitsMarker(t *testing.T) {
	svc, store, hub, pub := newTestService(t, nil)
	seedPvP(t, store, "g1")

	snap, err := svc.Forfeit(context.Background(), "g1", "alice")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusAbandoned, snap.Status)
	assert.Equal(t, "bob", snap.WinnerID)

	update := hub.broadcasts[0].payload.(Update)
	assert.Equal(t, UpdateForfeited, update.Type)

	evs := pub.moveEvents()
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Marker())
	assert.Equal(t, "ABANDONED", evs[0].Status)
	assert.Equal(t, "PLAYER", evs[0].WinnerType)
	assert.Equal(t, "bob", evs[0].WinnerID)
}

func TestHandleAbandoned_EmitsMarkerWithoutWinner(t *testing.T) {
	svc, _, hub, pub := newTestService(t, nil)

	session := engine.NewSession("g1", engine.HumanVsHuman, "alice", "bob", "")
	now := time.Now().UTC()
	session.Status = engine.StatusAbandoned
	session.WinnerType = engine.WinnerNone
	session.EndedAt = &now

	svc.HandleAbandoned(session)

	update := hub.broadcasts[0].payload.(Update)
	assert.Equal(t, UpdateAbandoned, update.Type)

	evs := pub.moveEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, "NONE", evs[0].WinnerType)
	assert.Empty(t, evs[0].WinnerID)
}

func TestHandleSend_Routing(t *testing.T) {
	svc, store, _, _ := newTestService(t, nil)
	seedPvP(t, store, "g1")

	require.NoError(t, svc.HandleSend("alice", "/app/game/g1/move", []byte(`{"row":7,"col":7}`)))

	session, err := store.Get("g1")
	require.NoError(t, err)
	assert.Equal(t, 1, session.MoveCount)

	require.NoError(t, svc.HandleSend("bob", "/app/game/g1/forfeit", nil))
	session, err = store.Get("g1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusAbandoned, session.Status)

	assert.True(t, errors.Is(svc.HandleSend("alice", "/app/chat/g1", nil), ErrBadDestination))
	assert.True(t, errors.Is(svc.HandleSend("alice", "/app/game/g1/dance", nil), ErrBadDestination))
	assert.Error(t, svc.HandleSend("alice", "/app/game/g1/move", []byte("{bad")))
}
