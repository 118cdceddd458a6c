package models

// IntegrationSetting routes messages from one channel integration (a washima
// session or a nagazap business number) into a destination room.
type IntegrationSetting struct {
	IntegrationID string `json:"integration_id"`
	RoomID        string `json:"room_id"`
	UnreadOnly    bool   `json:"unread_only"`
}

// Access lists who may view and mutate a board.
type Access struct {
	UserIDs       []string `json:"user_ids"`
	DepartmentIDs []string `json:"department_ids"`
}

// Archive holds chats removed from room ordering but not destroyed.
type Archive struct {
	Chats map[string]Chat `json:"chats"`
}

// Board is the aggregate the sync engine serializes on: ordered rooms,
// channel routing tables, access control and the archive. It is a plain
// record; the invariant-preserving operations live in the board package.
type Board struct {
	ID              string               `json:"id"`
	CompanyID       string               `json:"company_id"`
	Name            string               `json:"name"`
	Rooms           []Room               `json:"rooms"`
	EntryRoomID     string               `json:"entry_room_id"`
	WashimaSettings []IntegrationSetting `json:"washima_settings"`
	NagazapSettings []IntegrationSetting `json:"nagazap_settings"`
	Access          Access               `json:"access"`
	Archive         Archive              `json:"archive"`
}

// Room returns a pointer into the board's room slice, or nil.
func (b *Board) Room(roomID string) *Room {
	for i := range b.Rooms {
		if b.Rooms[i].ID == roomID {
			return &b.Rooms[i]
		}
	}
	return nil
}

// EntryRoom returns the room new and unrouted chats land in.
func (b *Board) EntryRoom() *Room {
	return b.Room(b.EntryRoomID)
}

// Settings returns the routing table for the given channel.
func (b *Board) Settings(source ChatSource) []IntegrationSetting {
	if source == SourceNagazap {
		return b.NagazapSettings
	}
	return b.WashimaSettings
}

// ChatCount is the number of chats across all rooms, excluding the archive.
func (b *Board) ChatCount() int {
	total := 0
	for i := range b.Rooms {
		total += len(b.Rooms[i].Chats)
	}
	return total
}

// CanAccess reports whether the user or one of their departments is on the
// board's access list.
func (b *Board) CanAccess(userID string, departmentIDs []string) bool {
	for _, id := range b.Access.UserIDs {
		if id == userID {
			return true
		}
	}
	for _, dept := range b.Access.DepartmentIDs {
		for _, id := range departmentIDs {
			if id == dept {
				return true
			}
		}
	}
	return false
}
