package client

import (
	"board-service/internal/board"
	"board-service/internal/models"
)

// Droppable spaces: rooms reorder horizontally, chats vertically within and
// across rooms.
const (
	DropTypeRoom = "room"
	DropTypeChat = "chat"
)

// DropEvent is the end state of one pointer-drag gesture.
type DropEvent struct {
	Type         string
	DraggableID  string
	SourceRoomID string
	SourceIndex  int
	DestRoomID   string
	DestIndex    int
}

// Outcome classifies what a drop did to the board.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeRoomReorder
	OutcomeChatReorder
	OutcomeChatMove
)

// ResolveDrop translates a drop gesture into the matching board mutation and
// applies it to the local copy. A drop back onto the origin position is a
// no-op.
func ResolveDrop(b *models.Board, ev DropEvent) (Outcome, error) {
	switch ev.Type {
	case DropTypeRoom:
		if err := board.MoveRoom(b, ev.DraggableID, ev.DestIndex); err != nil {
			return OutcomeNone, err
		}
		if ev.SourceIndex == ev.DestIndex {
			return OutcomeNone, nil
		}
		return OutcomeRoomReorder, nil

	case DropTypeChat:
		if ev.SourceRoomID == ev.DestRoomID && ev.SourceIndex == ev.DestIndex {
			return OutcomeNone, nil
		}
		if err := board.MoveChat(b, ev.DraggableID, ev.SourceRoomID, ev.DestRoomID, ev.DestIndex); err != nil {
			return OutcomeNone, err
		}
		if ev.SourceRoomID == ev.DestRoomID {
			return OutcomeChatReorder, nil
		}
		return OutcomeChatMove, nil

	default:
		return OutcomeNone, nil
	}
}
