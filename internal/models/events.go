package models

// Socket event names exchanged between board clients and the sync engine.
const (
	EventBoardSubscribe   = "board:subscribe"
	EventBoardUnsubscribe = "board:unsubscribe"
	EventBoardUpdate      = "board:update"
	EventChatClone        = "board:room:chat:clone"
	EventChatRemove       = "board:room:chat:remove"
)

// BoardEvent is the frame broadcast to subscribers. Every mutation carries
// the full board snapshot, never a diff; clients replace their cached board
// wholesale.
type BoardEvent struct {
	Type    string       `json:"type"`
	BoardID string       `json:"board_id"`
	Board   *Board       `json:"board,omitempty"`
	Chat    *Chat        `json:"chat,omitempty"`
	Trigger *RoomTrigger `json:"trigger,omitempty"`
}

// ClientFrame is what a connected operator sends upstream: a mutated
// snapshot for rebroadcast, an explicit unsubscribe, or a clone-undo
// request carrying the chat and trigger to revert.
type ClientFrame struct {
	Type    string       `json:"type"`
	Board   *Board       `json:"board,omitempty"`
	Chat    *Chat        `json:"chat,omitempty"`
	Trigger *RoomTrigger `json:"trigger,omitempty"`
}
