package router

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"board-service/internal/board"
	"board-service/internal/models"
)

func inbound(source models.ChatSource, externalID, integrationID string) models.InboundMessage {
	return models.InboundMessage{
		IntegrationID: integrationID,
		Source:        source,
		ExternalID:    externalID,
		Phone:         "5511" + externalID,
		DisplayName:   "Contact " + externalID,
		Payload:       json.RawMessage(`{"text":"oi"}`),
	}
}

func TestRouteNewChatLandsInEntryRoom(t *testing.T) {
	b := board.New("company-1", "Support")

	result, err := Route(&b, inbound(models.SourceWashima, "X", "w1"))
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, b.EntryRoomID, result.RoomID)
	require.Len(t, b.EntryRoom().Chats, 1)
	assert.Equal(t, "X", b.EntryRoom().Chats[0].ExternalChatID)
}

func TestRouteIsDeterministicForRepeatMessages(t *testing.T) {
	b := board.New("company-1", "Support")

	for i := 0; i < 5; i++ {
		_, err := Route(&b, inbound(models.SourceWashima, "X", "w1"))
		require.NoError(t, err)
	}

	require.Len(t, b.EntryRoom().Chats, 1)
	chat := b.EntryRoom().Chats[0]
	assert.Equal(t, 5, chat.UnreadCount, "first message creates, the rest update")
	assert.Equal(t, 1, b.ChatCount())
}

func TestRouteHonorsIntegrationSettings(t *testing.T) {
	b := board.New("company-1", "Support")
	room, err := board.NewRoom(&b, "Sala 2")
	require.NoError(t, err)
	b.WashimaSettings = []models.IntegrationSetting{{IntegrationID: "w1", RoomID: room.ID}}

	result, err := Route(&b, inbound(models.SourceWashima, "X", "w1"))
	require.NoError(t, err)

	assert.Equal(t, room.ID, result.RoomID)
	assert.Len(t, b.Room(room.ID).Chats, 1)
	assert.Empty(t, b.EntryRoom().Chats)
}

func TestRouteSettingForMissingRoomFallsBackToEntry(t *testing.T) {
	b := board.New("company-1", "Support")
	b.WashimaSettings = []models.IntegrationSetting{{IntegrationID: "w1", RoomID: "gone"}}

	result, err := Route(&b, inbound(models.SourceWashima, "X", "w1"))
	require.NoError(t, err)
	assert.Equal(t, b.EntryRoomID, result.RoomID)
}

func TestRouteNagazapFallsBackToPhone(t *testing.T) {
	b := board.New("company-1", "Support")

	first := inbound(models.SourceNagazap, "session-1", "n1")
	first.Phone = "5511999"
	_, err := Route(&b, first)
	require.NoError(t, err)

	// same conversation, new session id, same phone
	second := inbound(models.SourceNagazap, "session-2", "n1")
	second.Phone = "5511999"
	result, err := Route(&b, second)
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Equal(t, 1, b.ChatCount())
}

func TestRouteWashimaNeverMatchesByPhone(t *testing.T) {
	b := board.New("company-1", "Support")

	first := inbound(models.SourceWashima, "A", "w1")
	first.Phone = "5511999"
	_, err := Route(&b, first)
	require.NoError(t, err)

	second := inbound(models.SourceWashima, "B", "w1")
	second.Phone = "5511999"
	result, err := Route(&b, second)
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, 2, b.ChatCount())
}

func TestRouteReportsTriggerOnlyForNewChats(t *testing.T) {
	b := board.New("company-1", "Support")
	room, err := board.NewRoom(&b, "Triagem")
	require.NoError(t, err)
	room.OnNewChat = &models.RoomTrigger{DestinationBoardID: "b2", DestinationRoomID: "r1"}
	b.WashimaSettings = []models.IntegrationSetting{{IntegrationID: "w1", RoomID: room.ID}}

	result, err := Route(&b, inbound(models.SourceWashima, "X", "w1"))
	require.NoError(t, err)
	require.NotNil(t, result.Trigger)
	assert.Equal(t, "b2", result.Trigger.DestinationBoardID)

	result, err = Route(&b, inbound(models.SourceWashima, "X", "w1"))
	require.NoError(t, err)
	assert.Nil(t, result.Trigger, "updates never re-fire the trigger")
}

func TestUnreadOnlySkip(t *testing.T) {
	b := board.New("company-1", "Support")
	b.WashimaSettings = []models.IntegrationSetting{{IntegrationID: "w1", RoomID: b.EntryRoomID, UnreadOnly: true}}

	msg := inbound(models.SourceWashima, "X", "w1")

	// unknown chat: never skipped
	assert.False(t, UnreadOnlySkip(&b, msg))

	_, err := Route(&b, msg)
	require.NoError(t, err)

	// unread chat: still tracked
	assert.False(t, UnreadOnlySkip(&b, msg))

	// operator engaged: unread cleared, board stops tracking
	b.EntryRoom().Chats[0].UnreadCount = 0
	assert.True(t, UnreadOnlySkip(&b, msg))
}

func TestUnreadOnlySkipIgnoredWithoutFlag(t *testing.T) {
	b := board.New("company-1", "Support")
	msg := inbound(models.SourceWashima, "X", "w1")
	_, err := Route(&b, msg)
	require.NoError(t, err)
	b.EntryRoom().Chats[0].UnreadCount = 0

	assert.False(t, UnreadOnlySkip(&b, msg))
}
