// Package board implements the invariant-preserving operations on a board
// document. Functions here mutate a single in-memory board and report
// sentinel errors; serialization of concurrent callers and snapshot
// broadcasting are the boardsync package's job.
package board

import (
	"github.com/google/uuid"

	"board-service/internal/models"
)

// DefaultEntryRoomName names the room every new board starts with.
const DefaultEntryRoomName = "Entrada"

// New creates an empty board with its auto-generated entry room.
func New(companyID, name string) models.Board {
	entry := models.Room{
		ID:         uuid.NewString(),
		Name:       DefaultEntryRoomName,
		Chats:      []models.Chat{},
		EntryPoint: true,
	}
	return models.Board{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		Name:        name,
		Rooms:       []models.Room{entry},
		EntryRoomID: entry.ID,
		Archive:     models.Archive{Chats: map[string]models.Chat{}},
	}
}

// ChatByPlatform finds the chat with the given external identity, searching
// rooms first and the archive second.
func ChatByPlatform(b *models.Board, source models.ChatSource, externalID string) *models.Chat {
	for i := range b.Rooms {
		for j := range b.Rooms[i].Chats {
			chat := &b.Rooms[i].Chats[j]
			if chat.Source == source && chat.ExternalChatID == externalID {
				return chat
			}
		}
	}
	for id, chat := range b.Archive.Chats {
		if chat.Source == source && chat.ExternalChatID == externalID {
			archived := b.Archive.Chats[id]
			return &archived
		}
	}
	return nil
}

// ChatByPhone finds a chat by phone number. Fallback identity for channels
// that do not carry a stable chat id across sessions.
func ChatByPhone(b *models.Board, phone string) *models.Chat {
	if phone == "" {
		return nil
	}
	for i := range b.Rooms {
		for j := range b.Rooms[i].Chats {
			if b.Rooms[i].Chats[j].Phone == phone {
				return &b.Rooms[i].Chats[j]
			}
		}
	}
	for id, chat := range b.Archive.Chats {
		if chat.Phone == phone {
			archived := b.Archive.Chats[id]
			return &archived
		}
	}
	return nil
}

// NewChat inserts a chat at the front of the target room, defaulting to the
// entry room. If a chat with the same external identity already exists
// anywhere on the board the call becomes an update-in-place: last message
// refreshed, unread counter bumped, position untouched. Archived chats are
// updated but never auto-restored. Returns whether a new chat was created.
func NewChat(b *models.Board, chat models.Chat, roomID string) (bool, error) {
	// room-resident duplicate: refresh where it sits
	for i := range b.Rooms {
		for j := range b.Rooms[i].Chats {
			existing := &b.Rooms[i].Chats[j]
			if existing.SameIdentity(chat) {
				refresh(existing, chat)
				return false, nil
			}
		}
	}
	// archived duplicate: refresh but keep archived
	for id, archived := range b.Archive.Chats {
		if archived.SameIdentity(chat) {
			refresh(&archived, chat)
			b.Archive.Chats[id] = archived
			return false, nil
		}
	}

	target := b.EntryRoom()
	if roomID != "" {
		target = b.Room(roomID)
	}
	if target == nil {
		return false, ErrRoomNotFound
	}
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	if chat.Notes == nil {
		chat.Notes = []models.Comment{}
	}
	target.Chats = append([]models.Chat{chat}, target.Chats...)
	return true, nil
}

func refresh(existing *models.Chat, incoming models.Chat) {
	existing.LastMessage = incoming.LastMessage
	existing.UnreadCount++
	if incoming.DisplayName != "" {
		existing.DisplayName = incoming.DisplayName
	}
	if incoming.ProfilePicURL != "" {
		existing.ProfilePicURL = incoming.ProfilePicURL
	}
}

// MoveChat removes the chat from the source room and inserts it at toIndex
// in the destination. A drop back onto the same position is a no-op.
func MoveChat(b *models.Board, chatID, fromRoomID, toRoomID string, toIndex int) error {
	from := b.Room(fromRoomID)
	to := b.Room(toRoomID)
	if from == nil || to == nil {
		return ErrRoomNotFound
	}
	idx := from.IndexOfChat(chatID)
	if idx < 0 {
		return ErrChatNotFound
	}
	if fromRoomID == toRoomID && idx == toIndex {
		return nil
	}

	chat := from.Chats[idx]
	from.Chats = append(from.Chats[:idx], from.Chats[idx+1:]...)
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex > len(to.Chats) {
		toIndex = len(to.Chats)
	}
	to.Chats = append(to.Chats[:toIndex], append([]models.Chat{chat}, to.Chats[toIndex:]...)...)
	return nil
}

// MoveRoom reorders the room sequence. The entry room moves like any other.
func MoveRoom(b *models.Board, roomID string, toIndex int) error {
	idx := -1
	for i := range b.Rooms {
		if b.Rooms[i].ID == roomID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrRoomNotFound
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex > len(b.Rooms)-1 {
		toIndex = len(b.Rooms) - 1
	}
	if toIndex == idx {
		return nil
	}

	room := b.Rooms[idx]
	rooms := append(b.Rooms[:idx], b.Rooms[idx+1:]...)
	b.Rooms = append(rooms[:toIndex], append([]models.Room{room}, rooms[toIndex:]...)...)
	return nil
}

// NewRoom appends an empty room. Names are unique within a board.
func NewRoom(b *models.Board, name string) (*models.Room, error) {
	for i := range b.Rooms {
		if b.Rooms[i].Name == name {
			return nil, ErrDuplicateRoomName
		}
	}
	room := models.Room{
		ID:    uuid.NewString(),
		Name:  name,
		Chats: []models.Chat{},
	}
	b.Rooms = append(b.Rooms, room)
	return &b.Rooms[len(b.Rooms)-1], nil
}

// RenameRoom changes a room's name, keeping names unique within the board.
func RenameRoom(b *models.Board, roomID, name string) error {
	for i := range b.Rooms {
		if b.Rooms[i].Name == name && b.Rooms[i].ID != roomID {
			return ErrDuplicateRoomName
		}
	}
	room := b.Room(roomID)
	if room == nil {
		return ErrRoomNotFound
	}
	room.Name = name
	return nil
}

// DeleteRoom removes a non-entry room. Its chats are prepended to the entry
// room in their original relative order, and any integration setting that
// routed to the deleted room is re-pointed at the entry room.
func DeleteRoom(b *models.Board, roomID string) error {
	if roomID == b.EntryRoomID {
		return ErrEntryRoomProtected
	}
	idx := -1
	for i := range b.Rooms {
		if b.Rooms[i].ID == roomID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrRoomNotFound
	}

	orphans := b.Rooms[idx].Chats
	b.Rooms = append(b.Rooms[:idx], b.Rooms[idx+1:]...)

	entry := b.EntryRoom()
	entry.Chats = append(append([]models.Chat{}, orphans...), entry.Chats...)

	repoint := func(settings []models.IntegrationSetting) {
		for i := range settings {
			if settings[i].RoomID == roomID {
				settings[i].RoomID = b.EntryRoomID
			}
		}
	}
	repoint(b.WashimaSettings)
	repoint(b.NagazapSettings)
	return nil
}

// SetEntryRoom flips the entry flag from the current entry room to the given
// one. Atomic from the caller's point of view: the board is never observed
// with zero or two entry rooms.
func SetEntryRoom(b *models.Board, roomID string) error {
	next := b.Room(roomID)
	if next == nil {
		return ErrRoomNotFound
	}
	if current := b.EntryRoom(); current != nil {
		current.EntryPoint = false
	}
	next.EntryPoint = true
	b.EntryRoomID = roomID
	return nil
}

// SetRoomTrigger installs or clears (trigger == nil) a room's on-new-chat
// clone rule.
func SetRoomTrigger(b *models.Board, roomID string, trigger *models.RoomTrigger) error {
	room := b.Room(roomID)
	if room == nil {
		return ErrRoomNotFound
	}
	room.OnNewChat = trigger
	return nil
}

// ArchiveChat pulls a chat out of its room into the archive.
func ArchiveChat(b *models.Board, chatID string) error {
	if b.Archive.Chats == nil {
		b.Archive.Chats = map[string]models.Chat{}
	}
	if _, ok := b.Archive.Chats[chatID]; ok {
		return ErrChatAlreadyArchived
	}
	for i := range b.Rooms {
		room := &b.Rooms[i]
		if idx := room.IndexOfChat(chatID); idx >= 0 {
			b.Archive.Chats[chatID] = room.Chats[idx]
			room.Chats = append(room.Chats[:idx], room.Chats[idx+1:]...)
			return nil
		}
	}
	return ErrChatNotFound
}

// UnarchiveChat restores an archived chat to the front of the given room,
// defaulting to the entry room.
func UnarchiveChat(b *models.Board, chatID, roomID string) (*models.Chat, error) {
	chat, ok := b.Archive.Chats[chatID]
	if !ok {
		return nil, ErrChatNotArchived
	}
	target := b.EntryRoom()
	if roomID != "" {
		target = b.Room(roomID)
	}
	if target == nil {
		return nil, ErrRoomNotFound
	}
	delete(b.Archive.Chats, chatID)
	target.Chats = append([]models.Chat{chat}, target.Chats...)
	return &target.Chats[0], nil
}

// RekeyChat updates a chat's external id in place, wherever it lives. Used
// when a phone-matched nagazap conversation reappears under a fresh session
// id.
func RekeyChat(b *models.Board, chatID, externalID string) error {
	if _, chat := FindChat(b, chatID); chat != nil {
		chat.ExternalChatID = externalID
		return nil
	}
	if archived, ok := b.Archive.Chats[chatID]; ok {
		archived.ExternalChatID = externalID
		b.Archive.Chats[chatID] = archived
		return nil
	}
	return ErrChatNotFound
}

// RemoveChatFromRoom detaches a room-resident chat, the removal half of a
// transfer. Archived chats cannot be transferred.
func RemoveChatFromRoom(b *models.Board, chatID string) (models.Chat, error) {
	for i := range b.Rooms {
		room := &b.Rooms[i]
		if idx := room.IndexOfChat(chatID); idx >= 0 {
			chat := room.Chats[idx]
			room.Chats = append(room.Chats[:idx], room.Chats[idx+1:]...)
			return chat, nil
		}
	}
	if _, ok := b.Archive.Chats[chatID]; ok {
		return models.Chat{}, ErrChatNotInRoom
	}
	return models.Chat{}, ErrChatNotFound
}

// FindChat locates a chat in a room, returning the owning room id.
func FindChat(b *models.Board, chatID string) (string, *models.Chat) {
	for i := range b.Rooms {
		room := &b.Rooms[i]
		if idx := room.IndexOfChat(chatID); idx >= 0 {
			return room.ID, &room.Chats[idx]
		}
	}
	return "", nil
}

// InsertChatFront puts a chat at the front of the given room, defaulting to
// the entry room. The insertion half of a transfer or clone.
func InsertChatFront(b *models.Board, roomID string, chat models.Chat) error {
	target := b.EntryRoom()
	if roomID != "" {
		target = b.Room(roomID)
	}
	if target == nil {
		return ErrRoomNotFound
	}
	target.Chats = append([]models.Chat{chat}, target.Chats...)
	return nil
}

// CloneChat duplicates a chat under a fresh board-local id, keeping the
// external identity and message history reference.
func CloneChat(chat models.Chat) models.Chat {
	clone := chat
	clone.ID = uuid.NewString()
	clone.Notes = append([]models.Comment{}, chat.Notes...)
	return clone
}
