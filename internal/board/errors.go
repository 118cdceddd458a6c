package board

import "errors"

// Every operation that returns one of these leaves the board unmutated and
// suppresses the broadcast that would otherwise follow.
var (
	ErrChatNotFound         = errors.New("chat not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrCommentNotFound      = errors.New("comment not found")
	ErrDuplicateRoomName    = errors.New("room name already in use")
	ErrEntryRoomProtected   = errors.New("entry room cannot be deleted")
	ErrChatNotInRoom        = errors.New("chat is archived, not in a room")
	ErrDestinationNotFound  = errors.New("transfer destination not found")
	ErrChatAlreadyArchived  = errors.New("chat already archived")
	ErrChatNotArchived      = errors.New("chat is not archived")
)
