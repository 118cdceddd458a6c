package models

import "time"

// Comment is a note attached to a chat. Replies nest one level only.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Replies   []Comment `json:"replies,omitempty"`
}

// CommentForm is the request body for adding a note to a chat. ParentID set
// means the comment is a reply to an existing top-level note.
type CommentForm struct {
	AuthorID string `json:"author_id"`
	Text     string `json:"text" binding:"required"`
	ParentID string `json:"parent_id,omitempty"`
}
