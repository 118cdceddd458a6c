package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"board-service/internal/models"
)

// Inbound ingests a channel message into a board: the router resolves or
// creates the chat, places it, fires any room trigger, and every subscriber
// gets the refreshed snapshot. This is the seam the washima and nagazap
// collaborators feed.
func (h *BoardHandler) Inbound(c *gin.Context) {
	var req struct {
		BoardID string `json:"board_id" binding:"required"`
		models.InboundMessage
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Source != models.SourceWashima && req.Source != models.SourceNagazap {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
		return
	}

	result, err := h.registry.Inbound(c.Request.Context(), req.BoardID, req.InboundMessage)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chat":    result.Chat,
		"room_id": result.RoomID,
		"created": result.Created,
	})
}
