// Package router decides where an inbound channel message lands: which
// existing chat it belongs to, or which room a brand-new chat is created in.
package router

import (
	"github.com/google/uuid"

	"board-service/internal/board"
	"board-service/internal/models"
)

// Result describes what routing an inbound message did to the board.
type Result struct {
	Chat    models.Chat
	RoomID  string
	Created bool
	// Trigger is set when the chat is genuinely new and landed in a room
	// with an on-new-chat clone rule. The caller clones into the
	// destination board; the router never touches foreign boards.
	Trigger *models.RoomTrigger
}

// TargetRoom resolves the destination room for an integration, falling back
// to the entry room when no setting matches.
func TargetRoom(b *models.Board, source models.ChatSource, integrationID string) string {
	for _, setting := range b.Settings(source) {
		if setting.IntegrationID == integrationID {
			if b.Room(setting.RoomID) != nil {
				return setting.RoomID
			}
			break
		}
	}
	return b.EntryRoomID
}

// ResolveChat finds the chat an inbound message belongs to. Platform identity
// first; nagazap messages fall back to phone matching because the Business
// API does not keep chat ids stable across sessions.
func ResolveChat(b *models.Board, msg models.InboundMessage) *models.Chat {
	if chat := board.ChatByPlatform(b, msg.Source, msg.ExternalID); chat != nil {
		return chat
	}
	if msg.Source == models.SourceNagazap {
		return board.ChatByPhone(b, msg.Phone)
	}
	return nil
}

// Route applies an inbound message to the board: updates the existing chat
// in place or creates a new one in the configured room. The board is mutated
// but not broadcast; the owning actor does that.
func Route(b *models.Board, msg models.InboundMessage) (Result, error) {
	roomID := TargetRoom(b, msg.Source, msg.IntegrationID)

	chat := ResolveChat(b, msg)
	if chat == nil {
		chat = &models.Chat{
			ID:             uuid.NewString(),
			ExternalChatID: msg.ExternalID,
			Source:         msg.Source,
			DisplayName:    msg.DisplayName,
			Phone:          msg.Phone,
			ProfilePicURL:  msg.ProfilePicURL,
			UnreadCount:    1,
		}
	} else if chat.ExternalChatID != msg.ExternalID {
		// phone-matched nagazap chat seen under a fresh session id
		if err := board.RekeyChat(b, chat.ID, msg.ExternalID); err != nil {
			return Result{}, err
		}
		chat.ExternalChatID = msg.ExternalID
	}

	incoming := *chat
	incoming.LastMessage = msg.Payload
	created, err := board.NewChat(b, incoming, roomID)
	if err != nil {
		return Result{}, err
	}

	settled := board.ChatByPlatform(b, msg.Source, msg.ExternalID)
	if settled == nil {
		settled = &incoming
	}
	result := Result{Chat: *settled, RoomID: roomID, Created: created}
	if created {
		if room := b.Room(roomID); room != nil && room.OnNewChat != nil {
			trigger := *room.OnNewChat
			result.Trigger = &trigger
		}
	}
	return result, nil
}

// UnreadOnlySkip reports whether an integration's unread_only rule suppresses
// routing for this message: once an operator has engaged a chat (zero unread)
// the board stops tracking it. Evaluated by the actor before Route runs.
func UnreadOnlySkip(b *models.Board, msg models.InboundMessage) bool {
	var unreadOnly bool
	for _, setting := range b.Settings(msg.Source) {
		if setting.IntegrationID == msg.IntegrationID {
			unreadOnly = setting.UnreadOnly
			break
		}
	}
	if !unreadOnly {
		return false
	}
	chat := ResolveChat(b, msg)
	return chat != nil && chat.UnreadCount == 0
}
