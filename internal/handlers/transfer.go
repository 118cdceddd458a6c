package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"board-service/internal/boardsync"
)

// TransferChat relocates or duplicates a chat into another board. Both
// boards broadcast their own snapshot afterwards.
func (h *BoardHandler) TransferChat(c *gin.Context) {
	var req boardsync.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := h.authorizedActor(c, req.SourceBoardID); !ok {
		return
	}

	if err := h.registry.TransferChat(c.Request.Context(), req); err != nil {
		abortWith(c, err)
		return
	}

	mode := "moved"
	if req.Copy {
		mode = "copied"
	}
	h.audit.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("chat %s %s from board %s to board %s", req.ChatID, mode, req.SourceBoardID, req.DestinationBoardID),
		requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
