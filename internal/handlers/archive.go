package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"board-service/internal/board"
	"board-service/internal/models"
)

// ListArchive returns the board's archived chats.
func (h *BoardHandler) ListArchive(c *gin.Context) {
	boardID := c.Query("board_id")
	if boardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "board_id is required"})
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

	chats := make([]models.Chat, 0, len(snap.Archive.Chats))
	for _, chat := range snap.Archive.Chats {
		chats = append(chats, chat)
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// ArchiveChat removes a chat from its room into the archive.
func (h *BoardHandler) ArchiveChat(c *gin.Context) {
	var req struct {
		BoardID string `json:"board_id" binding:"required"`
		ChatID  string `json:"chat_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := h.authorizedActor(c, req.BoardID)
	if !ok {
		return
	}

	err := actor.Mutate(c.Request.Context(), "chat_archive", func(b *models.Board) error {
		return board.ArchiveChat(b, req.ChatID)
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RestoreChat puts an archived chat back at the front of a room, the entry
// room when none is given.
func (h *BoardHandler) RestoreChat(c *gin.Context) {
	var req struct {
		BoardID string `json:"board_id" binding:"required"`
		ChatID  string `json:"chat_id" binding:"required"`
		RoomID  string `json:"room_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := h.authorizedActor(c, req.BoardID)
	if !ok {
		return
	}

	var restored models.Chat
	err := actor.Mutate(c.Request.Context(), "chat_restore", func(b *models.Board) error {
		chat, err := board.UnarchiveChat(b, req.ChatID, req.RoomID)
		if err != nil {
			return err
		}
		restored = *chat
		return nil
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": restored})
}
