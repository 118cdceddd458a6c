package board

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"board-service/internal/models"
)

func testBoard(t *testing.T) *models.Board {
	t.Helper()
	b := New("company-1", "Support")
	return &b
}

func testChat(externalID string) models.Chat {
	return models.Chat{
		ExternalChatID: externalID,
		Source:         models.SourceWashima,
		DisplayName:    "Contact " + externalID,
		Phone:          "55" + externalID,
		LastMessage:    json.RawMessage(`{"text":"oi"}`),
	}
}

func TestNewBoardHasSingleEntryRoom(t *testing.T) {
	b := testBoard(t)

	require.Len(t, b.Rooms, 1)
	assert.True(t, b.Rooms[0].EntryPoint)
	assert.Equal(t, b.Rooms[0].ID, b.EntryRoomID)
	assert.Equal(t, DefaultEntryRoomName, b.Rooms[0].Name)
}

func TestNewChatInsertsAtFrontOfEntryRoom(t *testing.T) {
	b := testBoard(t)

	created, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = NewChat(b, testChat("Y"), "")
	require.NoError(t, err)
	assert.True(t, created)

	entry := b.EntryRoom()
	require.Len(t, entry.Chats, 2)
	assert.Equal(t, "Y", entry.Chats[0].ExternalChatID)
	assert.Equal(t, "X", entry.Chats[1].ExternalChatID)
}

func TestNewChatDuplicateIdentityUpdatesInPlace(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)

	update := testChat("X")
	update.LastMessage = json.RawMessage(`{"text":"tudo bem?"}`)
	created, err := NewChat(b, update, "")
	require.NoError(t, err)
	assert.False(t, created)

	entry := b.EntryRoom()
	require.Len(t, entry.Chats, 1)
	assert.JSONEq(t, `{"text":"tudo bem?"}`, string(entry.Chats[0].LastMessage))
	assert.Equal(t, 1, entry.Chats[0].UnreadCount)
}

func TestNewChatDoesNotRestoreArchived(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	chatID := b.EntryRoom().Chats[0].ID
	require.NoError(t, ArchiveChat(b, chatID))

	update := testChat("X")
	update.LastMessage = json.RawMessage(`{"text":"volta"}`)
	created, err := NewChat(b, update, "")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Empty(t, b.EntryRoom().Chats)
	archived := b.Archive.Chats[chatID]
	assert.JSONEq(t, `{"text":"volta"}`, string(archived.LastMessage))
	assert.Equal(t, 1, archived.UnreadCount)
}

func TestUniquenessAcrossRoomsAndArchive(t *testing.T) {
	b := testBoard(t)
	room, err := NewRoom(b, "Sala 2")
	require.NoError(t, err)

	_, err = NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	created, err := NewChat(b, testChat("X"), room.ID)
	require.NoError(t, err)
	assert.False(t, created, "identity already on the board must never insert")

	seen := map[string]int{}
	for _, r := range b.Rooms {
		for _, chat := range r.Chats {
			seen[string(chat.Source)+"/"+chat.ExternalChatID]++
		}
	}
	for _, chat := range b.Archive.Chats {
		seen[string(chat.Source)+"/"+chat.ExternalChatID]++
	}
	for identity, count := range seen {
		assert.Equal(t, 1, count, "identity %s duplicated", identity)
	}
}

func TestMoveChatAcrossRooms(t *testing.T) {
	b := testBoard(t)
	room, err := NewRoom(b, "Sala 2")
	require.NoError(t, err)
	_, err = NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	_, err = NewChat(b, testChat("Y"), "")
	require.NoError(t, err)

	before := b.ChatCount()
	chatID := b.EntryRoom().Chats[1].ID // X

	require.NoError(t, MoveChat(b, chatID, b.EntryRoomID, room.ID, 0))

	assert.Len(t, b.EntryRoom().Chats, 1)
	require.Len(t, b.Room(room.ID).Chats, 1)
	assert.Equal(t, chatID, b.Room(room.ID).Chats[0].ID)
	assert.Equal(t, before, b.ChatCount())
}

func TestMoveChatSelfDropIsNoop(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	_, err = NewChat(b, testChat("Y"), "")
	require.NoError(t, err)

	chatID := b.EntryRoom().Chats[0].ID
	require.NoError(t, MoveChat(b, chatID, b.EntryRoomID, b.EntryRoomID, 0))
	assert.Equal(t, chatID, b.EntryRoom().Chats[0].ID)
}

func TestMoveChatUnknownRoom(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	chatID := b.EntryRoom().Chats[0].ID

	err = MoveChat(b, chatID, b.EntryRoomID, "missing", 0)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestMoveRoomReorders(t *testing.T) {
	b := testBoard(t)
	r2, err := NewRoom(b, "Sala 2")
	require.NoError(t, err)
	_, err = NewRoom(b, "Sala 3")
	require.NoError(t, err)

	require.NoError(t, MoveRoom(b, r2.ID, 2))
	assert.Equal(t, "Sala 3", b.Rooms[1].Name)
	assert.Equal(t, "Sala 2", b.Rooms[2].Name)
}

func TestNewRoomDuplicateName(t *testing.T) {
	b := testBoard(t)
	_, err := NewRoom(b, "Sala 2")
	require.NoError(t, err)

	_, err = NewRoom(b, "Sala 2")
	assert.ErrorIs(t, err, ErrDuplicateRoomName)
}

func TestDeleteRoomCascadesIntoEntry(t *testing.T) {
	b := testBoard(t)
	room, err := NewRoom(b, "Sala 2")
	require.NoError(t, err)
	roomID := room.ID

	// resident entry chat plus two chats in the doomed room
	_, err = NewChat(b, testChat("E"), "")
	require.NoError(t, err)
	_, err = NewChat(b, testChat("A"), roomID)
	require.NoError(t, err)
	_, err = NewChat(b, testChat("B"), roomID)
	require.NoError(t, err)

	b.WashimaSettings = []models.IntegrationSetting{{IntegrationID: "w1", RoomID: roomID}}

	require.NoError(t, DeleteRoom(b, roomID))

	entry := b.EntryRoom()
	require.Len(t, entry.Chats, 3)
	// relative order of the cascaded chats preserved, ahead of residents
	assert.Equal(t, "B", entry.Chats[0].ExternalChatID)
	assert.Equal(t, "A", entry.Chats[1].ExternalChatID)
	assert.Equal(t, "E", entry.Chats[2].ExternalChatID)
	assert.Equal(t, b.EntryRoomID, b.WashimaSettings[0].RoomID)
	assert.Nil(t, b.Room(roomID))
}

func TestDeleteEntryRoomProtected(t *testing.T) {
	b := testBoard(t)
	assert.ErrorIs(t, DeleteRoom(b, b.EntryRoomID), ErrEntryRoomProtected)
}

func TestSetEntryRoomFlipsExactlyOneFlag(t *testing.T) {
	b := testBoard(t)
	room, err := NewRoom(b, "Sala 2")
	require.NoError(t, err)

	require.NoError(t, SetEntryRoom(b, room.ID))

	entryCount := 0
	for _, r := range b.Rooms {
		if r.EntryPoint {
			entryCount++
			assert.Equal(t, b.EntryRoomID, r.ID)
		}
	}
	assert.Equal(t, 1, entryCount)
	assert.Equal(t, room.ID, b.EntryRoomID)
}

func TestArchiveAndRestoreRoundTrip(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	original := b.EntryRoom().Chats[0]

	require.NoError(t, ArchiveChat(b, original.ID))
	assert.Empty(t, b.EntryRoom().Chats)
	assert.Contains(t, b.Archive.Chats, original.ID)

	restored, err := UnarchiveChat(b, original.ID, "")
	require.NoError(t, err)
	assert.Equal(t, original, *restored)
	assert.Empty(t, b.Archive.Chats)
	assert.Equal(t, original.ID, b.EntryRoom().Chats[0].ID)
}

func TestUnarchiveDefaultsToEntryAndFront(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	_, err = NewChat(b, testChat("Y"), "")
	require.NoError(t, err)

	chatID := b.EntryRoom().Chats[1].ID // X
	require.NoError(t, ArchiveChat(b, chatID))

	_, err = UnarchiveChat(b, chatID, "")
	require.NoError(t, err)
	assert.Equal(t, chatID, b.EntryRoom().Chats[0].ID)
}

func TestArchiveChatTwice(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	chatID := b.EntryRoom().Chats[0].ID

	require.NoError(t, ArchiveChat(b, chatID))
	assert.ErrorIs(t, ArchiveChat(b, chatID), ErrChatAlreadyArchived)
}

func TestRemoveChatFromRoomRejectsArchived(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	chatID := b.EntryRoom().Chats[0].ID
	require.NoError(t, ArchiveChat(b, chatID))

	_, err = RemoveChatFromRoom(b, chatID)
	assert.ErrorIs(t, err, ErrChatNotInRoom)
}

func TestCloneChatKeepsIdentityFreshID(t *testing.T) {
	chat := testChat("X")
	chat.ID = "original"

	clone := CloneChat(chat)
	assert.NotEqual(t, chat.ID, clone.ID)
	assert.True(t, chat.SameIdentity(clone))
}

func TestAddCommentAndReply(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	chatID := b.EntryRoom().Chats[0].ID

	parent, err := AddComment(b, chatID, models.CommentForm{AuthorID: "u1", Text: "primeira"})
	require.NoError(t, err)

	reply, err := AddComment(b, chatID, models.CommentForm{AuthorID: "u2", Text: "resposta", ParentID: parent.ID})
	require.NoError(t, err)

	chat := b.EntryRoom().Chats[0]
	require.Len(t, chat.Notes, 1)
	require.Len(t, chat.Notes[0].Replies, 1)
	assert.Equal(t, reply.ID, chat.Notes[0].Replies[0].ID)
}

func TestAddCommentUnknownParent(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	chatID := b.EntryRoom().Chats[0].ID

	_, err = AddComment(b, chatID, models.CommentForm{AuthorID: "u1", Text: "hm", ParentID: "missing"})
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestAddCommentToArchivedChat(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	chatID := b.EntryRoom().Chats[0].ID
	require.NoError(t, ArchiveChat(b, chatID))

	_, err = AddComment(b, chatID, models.CommentForm{AuthorID: "u1", Text: "nota"})
	require.NoError(t, err)
	assert.Len(t, b.Archive.Chats[chatID].Notes, 1)
}

func TestDeleteComment(t *testing.T) {
	b := testBoard(t)
	_, err := NewChat(b, testChat("X"), "")
	require.NoError(t, err)
	chatID := b.EntryRoom().Chats[0].ID

	parent, err := AddComment(b, chatID, models.CommentForm{AuthorID: "u1", Text: "primeira"})
	require.NoError(t, err)
	reply, err := AddComment(b, chatID, models.CommentForm{AuthorID: "u2", Text: "resposta", ParentID: parent.ID})
	require.NoError(t, err)

	require.NoError(t, DeleteComment(b, chatID, reply.ID))
	assert.Empty(t, b.EntryRoom().Chats[0].Notes[0].Replies)

	require.NoError(t, DeleteComment(b, chatID, parent.ID))
	assert.Empty(t, b.EntryRoom().Chats[0].Notes)
}
