package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"board-service/internal/board"
	"board-service/internal/models"
)

// GetComments returns a chat's note thread.
func (h *BoardHandler) GetComments(c *gin.Context) {
	boardID := c.Query("board_id")
	chatID := c.Query("chat_id")
	if boardID == "" || chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "board_id and chat_id are required"})
		return
	}

	actor, ok := h.authorizedActor(c, boardID)
	if !ok {
		return
	}
	snap, err := actor.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load board"})
		return
	}

	if _, chat := board.FindChat(&snap, chatID); chat != nil {
		c.JSON(http.StatusOK, gin.H{"comments": chat.Notes})
		return
	}
	if archived, found := snap.Archive.Chats[chatID]; found {
		c.JSON(http.StatusOK, gin.H{"comments": archived.Notes})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
}

// PostComment appends a note or a reply to a chat.
func (h *BoardHandler) PostComment(c *gin.Context) {
	var req struct {
		BoardID string `json:"board_id" binding:"required"`
		ChatID  string `json:"chat_id" binding:"required"`
		models.CommentForm
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AuthorID == "" {
		req.AuthorID = c.GetString("userID")
	}

	actor, ok := h.authorizedActor(c, req.BoardID)
	if !ok {
		return
	}

	var added models.Comment
	err := actor.Mutate(c.Request.Context(), "comment_add", func(b *models.Board) error {
		comment, err := board.AddComment(b, req.ChatID, req.CommentForm)
		if err != nil {
			return err
		}
		added = *comment
		return nil
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": added})
}

// DeleteComment removes a note or reply.
func (h *BoardHandler) DeleteComment(c *gin.Context) {
	boardID := c.Query("board_id")
	chatID := c.Query("chat_id")
	commentID := c.Query("comment_id")
	if boardID == "" || chatID == "" || commentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "board_id, chat_id and comment_id are required"})
		return
	}

	actor, ok := h.authorizedActor(c, boardID)
	if !ok {
		return
	}

	err := actor.Mutate(c.Request.Context(), "comment_delete", func(b *models.Board) error {
		return board.DeleteComment(b, chatID, commentID)
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
