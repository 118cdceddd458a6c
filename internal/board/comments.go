package board

import (
	"time"

	"github.com/google/uuid"

	"board-service/internal/models"
)

// AddComment appends a note to the chat, or a reply to one of its top-level
// notes when the form carries a parent id. Works on archived chats too.
func AddComment(b *models.Board, chatID string, form models.CommentForm) (*models.Comment, error) {
	comment := models.Comment{
		ID:        uuid.NewString(),
		AuthorID:  form.AuthorID,
		Text:      form.Text,
		CreatedAt: time.Now().UTC(),
	}

	if _, chat := FindChat(b, chatID); chat != nil {
		return attachComment(chat, comment, form.ParentID)
	}
	if archived, ok := b.Archive.Chats[chatID]; ok {
		added, err := attachComment(&archived, comment, form.ParentID)
		if err != nil {
			return nil, err
		}
		b.Archive.Chats[chatID] = archived
		return added, nil
	}
	return nil, ErrChatNotFound
}

func attachComment(chat *models.Chat, comment models.Comment, parentID string) (*models.Comment, error) {
	if parentID == "" {
		chat.Notes = append(chat.Notes, comment)
		return &chat.Notes[len(chat.Notes)-1], nil
	}
	for i := range chat.Notes {
		if chat.Notes[i].ID == parentID {
			chat.Notes[i].Replies = append(chat.Notes[i].Replies, comment)
			return &chat.Notes[i].Replies[len(chat.Notes[i].Replies)-1], nil
		}
	}
	return nil, ErrCommentNotFound
}

// DeleteComment removes a note or reply from the chat.
func DeleteComment(b *models.Board, chatID, commentID string) error {
	if _, chat := FindChat(b, chatID); chat != nil {
		return detachComment(chat, commentID)
	}
	if archived, ok := b.Archive.Chats[chatID]; ok {
		if err := detachComment(&archived, commentID); err != nil {
			return err
		}
		b.Archive.Chats[chatID] = archived
		return nil
	}
	return ErrChatNotFound
}

func detachComment(chat *models.Chat, commentID string) error {
	for i := range chat.Notes {
		if chat.Notes[i].ID == commentID {
			chat.Notes = append(chat.Notes[:i], chat.Notes[i+1:]...)
			return nil
		}
		for j := range chat.Notes[i].Replies {
			if chat.Notes[i].Replies[j].ID == commentID {
				chat.Notes[i].Replies = append(chat.Notes[i].Replies[:j], chat.Notes[i].Replies[j+1:]...)
				return nil
			}
		}
	}
	return ErrCommentNotFound
}
