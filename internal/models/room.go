package models

// RoomTrigger clones chats that newly arrive in a room into a room of
// another board.
type RoomTrigger struct {
	DestinationBoardID string `json:"destination_board_id"`
	DestinationRoomID  string `json:"destination_room_id"`
}

// Room is an ordered column of chats. Slice order is the visual column order.
type Room struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Chats      []Chat       `json:"chats"`
	EntryPoint bool         `json:"entry_point"`
	OnNewChat  *RoomTrigger `json:"on_new_chat,omitempty"`
}

// IndexOfChat returns the position of a chat in the room, or -1.
func (r *Room) IndexOfChat(chatID string) int {
	for i := range r.Chats {
		if r.Chats[i].ID == chatID {
			return i
		}
	}
	return -1
}
