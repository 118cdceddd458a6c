package boardsync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"board-service/internal/board"
	"board-service/internal/mocks"
	"board-service/internal/models"
)

func testRepo() *mocks.BoardRepositoryMock {
	repo := new(mocks.BoardRepositoryMock)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	return repo
}

func receiveEvent(t *testing.T, sub *Subscriber) models.BoardEvent {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return models.BoardEvent{}
	}
}

func TestSubscribeReturnsCurrentSnapshot(t *testing.T) {
	b := board.New("company-1", "Support")
	_, err := board.NewChat(&b, models.Chat{ExternalChatID: "X", Source: models.SourceWashima}, "")
	require.NoError(t, err)

	actor := newActor(b, testRepo())
	defer actor.stop()

	sub := NewSubscriber("u1")
	snap, err := actor.Subscribe(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, b.ID, snap.ID)
	assert.Equal(t, 1, snap.ChatCount())
}

func TestMutationBroadcastsFullSnapshot(t *testing.T) {
	b := board.New("company-1", "Support")
	actor := newActor(b, testRepo())
	defer actor.stop()

	sub := NewSubscriber("u1")
	_, err := actor.Subscribe(context.Background(), sub)
	require.NoError(t, err)

	err = actor.Mutate(context.Background(), "room_create", func(b *models.Board) error {
		_, err := board.NewRoom(b, "Sala 2")
		return err
	})
	require.NoError(t, err)

	event := receiveEvent(t, sub)
	assert.Equal(t, models.EventBoardUpdate, event.Type)
	require.NotNil(t, event.Board)
	assert.Len(t, event.Board.Rooms, 2)
}

func TestRejectedMutationDoesNotEmit(t *testing.T) {
	b := board.New("company-1", "Support")
	actor := newActor(b, testRepo())
	defer actor.stop()

	sub := NewSubscriber("u1")
	_, err := actor.Subscribe(context.Background(), sub)
	require.NoError(t, err)

	err = actor.Mutate(context.Background(), "room_delete", func(b *models.Board) error {
		return board.DeleteRoom(b, b.EntryRoomID)
	})
	assert.ErrorIs(t, err, board.ErrEntryRoomProtected)

	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected broadcast %q after rejected mutation", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMutationsApplyInOrder(t *testing.T) {
	b := board.New("company-1", "Support")
	actor := newActor(b, testRepo())
	defer actor.stop()

	sub := NewSubscriber("u1")
	_, err := actor.Subscribe(context.Background(), sub)
	require.NoError(t, err)

	names := []string{"Sala 2", "Sala 3", "Sala 4"}
	for _, name := range names {
		n := name
		require.NoError(t, actor.Mutate(context.Background(), "room_create", func(b *models.Board) error {
			_, err := board.NewRoom(b, n)
			return err
		}))
	}

	var last models.BoardEvent
	for range names {
		last = receiveEvent(t, sub)
	}
	require.NotNil(t, last.Board)
	require.Len(t, last.Board.Rooms, 4)
	for i, name := range names {
		assert.Equal(t, name, last.Board.Rooms[i+1].Name)
	}
}

func TestReplaceInstallsClientSnapshot(t *testing.T) {
	b := board.New("company-1", "Support")
	actor := newActor(b, testRepo())
	defer actor.stop()

	sub := NewSubscriber("u1")
	snap, err := actor.Subscribe(context.Background(), sub)
	require.NoError(t, err)

	// the client reorders locally and pushes the whole snapshot
	_, err = board.NewRoom(&snap, "Sala 2")
	require.NoError(t, err)
	require.NoError(t, actor.Replace(context.Background(), snap))

	event := receiveEvent(t, sub)
	require.NotNil(t, event.Board)
	assert.Len(t, event.Board.Rooms, 2)
}

func TestReplaceRejectsForeignBoard(t *testing.T) {
	b := board.New("company-1", "Support")
	actor := newActor(b, testRepo())
	defer actor.stop()

	other := board.New("company-1", "Other")
	assert.Error(t, actor.Replace(context.Background(), other))
}

func TestReplaceKeepsServerOwnedFields(t *testing.T) {
	b := board.New("company-1", "Support")
	b.Access = models.Access{UserIDs: []string{"u1"}, DepartmentIDs: []string{"dept-1"}}
	actor := newActor(b, testRepo())
	defer actor.stop()

	sub := NewSubscriber("u1")
	snap, err := actor.Subscribe(context.Background(), sub)
	require.NoError(t, err)

	// a tampered snapshot tries to widen the access list and steal the board
	_, err = board.NewRoom(&snap, "Sala 2")
	require.NoError(t, err)
	snap.CompanyID = "company-2"
	snap.Access = models.Access{UserIDs: []string{"u1", "intruder"}}
	require.NoError(t, actor.Replace(context.Background(), snap))

	after, err := actor.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, after.Rooms, 2)
	assert.Equal(t, "company-1", after.CompanyID)
	assert.Equal(t, []string{"u1"}, after.Access.UserIDs)
	assert.Equal(t, []string{"dept-1"}, after.Access.DepartmentIDs)
}

func TestSnapshotIsDetachedFromActorState(t *testing.T) {
	b := board.New("company-1", "Support")
	_, err := board.NewChat(&b, models.Chat{
		ExternalChatID: "X",
		Source:         models.SourceWashima,
		LastMessage:    json.RawMessage(`{"text":"oi"}`),
	}, "")
	require.NoError(t, err)

	actor := newActor(b, testRepo())
	defer actor.stop()

	snap, err := actor.Snapshot(context.Background())
	require.NoError(t, err)
	snap.EntryRoom().Chats[0].DisplayName = "mutated locally"

	again, err := actor.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.EntryRoom().Chats[0].DisplayName)
}

func TestLaggingSubscriberIsDropped(t *testing.T) {
	b := board.New("company-1", "Support")
	actor := newActor(b, testRepo())
	defer actor.stop()

	lagging := NewSubscriber("slow")
	_, err := actor.Subscribe(context.Background(), lagging)
	require.NoError(t, err)

	// never drain: overflow the buffer and then some
	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, actor.Notify(context.Background(), models.BoardEvent{Type: models.EventBoardUpdate}))
	}

	// a fresh subscriber still gets broadcasts
	healthy := NewSubscriber("fast")
	_, err = actor.Subscribe(context.Background(), healthy)
	require.NoError(t, err)
	require.NoError(t, actor.Mutate(context.Background(), "noop", func(*models.Board) error { return nil }))
	event := receiveEvent(t, healthy)
	assert.Equal(t, models.EventBoardUpdate, event.Type)

	// the dropped subscriber's stream ends so its write loop can exit
	assertStreamCloses(t, lagging)
}

func TestIdleTracksSubscriberCount(t *testing.T) {
	b := board.New("company-1", "Support")
	actor := newActor(b, testRepo())
	defer actor.stop()

	sub := NewSubscriber("u1")
	_, err := actor.Subscribe(context.Background(), sub)
	require.NoError(t, err)

	idle, err := actor.idleFor(context.Background())
	require.NoError(t, err)
	assert.Zero(t, idle)

	actor.Unsubscribe(sub)
	require.Eventually(t, func() bool {
		idle, err := actor.idleFor(context.Background())
		return err == nil && idle > 0
	}, time.Second, 10*time.Millisecond)
}

func TestStoppedActorRejectsEveryCommand(t *testing.T) {
	b := board.New("company-1", "Support")
	actor := newActor(b, testRepo())
	actor.stop()

	// every attempt fails the same way, none is applied, none blocks
	for i := 0; i < 10; i++ {
		err := actor.Mutate(context.Background(), "room_create", func(b *models.Board) error {
			_, err := board.NewRoom(b, "Sala X")
			return err
		})
		assert.ErrorIs(t, err, ErrActorStopped)
	}

	_, err := actor.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrActorStopped)
	_, err = actor.Subscribe(context.Background(), NewSubscriber("late"))
	assert.ErrorIs(t, err, ErrActorStopped)
	_, err = actor.Inbound(context.Background(), models.InboundMessage{Source: models.SourceWashima, ExternalID: "X"})
	assert.ErrorIs(t, err, ErrActorStopped)
}

func TestUnsubscribeClosesEventStream(t *testing.T) {
	b := board.New("company-1", "Support")
	actor := newActor(b, testRepo())
	defer actor.stop()

	sub := NewSubscriber("u1")
	_, err := actor.Subscribe(context.Background(), sub)
	require.NoError(t, err)

	actor.Unsubscribe(sub)
	assertStreamCloses(t, sub)
}

func TestStopClosesSubscriberStreams(t *testing.T) {
	b := board.New("company-1", "Support")
	actor := newActor(b, testRepo())

	subs := []*Subscriber{NewSubscriber("u1"), NewSubscriber("u2")}
	for _, sub := range subs {
		_, err := actor.Subscribe(context.Background(), sub)
		require.NoError(t, err)
	}

	actor.stop()
	for _, sub := range subs {
		assertStreamCloses(t, sub)
	}
}

// assertStreamCloses drains buffered events and fails unless the channel is
// closed underneath them.
func assertStreamCloses(t *testing.T, sub *Subscriber) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event stream never closed")
		}
	}
}
