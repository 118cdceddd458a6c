package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"board-service/internal/board"
	"board-service/internal/repositories"
)

// statusFor maps core sentinel errors to HTTP statuses. Anything unknown is
// a 500 from a collaborator, not part of the board state machine.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrBoardNotFound),
		errors.Is(err, board.ErrChatNotFound),
		errors.Is(err, board.ErrRoomNotFound),
		errors.Is(err, board.ErrCommentNotFound),
		errors.Is(err, board.ErrChatNotArchived):
		return http.StatusNotFound
	case errors.Is(err, board.ErrDuplicateRoomName),
		errors.Is(err, board.ErrChatAlreadyArchived),
		errors.Is(err, board.ErrChatNotInRoom):
		return http.StatusConflict
	case errors.Is(err, board.ErrEntryRoomProtected):
		return http.StatusBadRequest
	case errors.Is(err, board.ErrDestinationNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func identity(c *gin.Context) (userID, companyID string, departmentIDs []string) {
	userID = c.GetString("userID")
	companyID = c.GetString("companyID")
	if val, ok := c.Get("departmentIDs"); ok {
		if ids, ok := val.([]string); ok {
			departmentIDs = ids
		}
	}
	return userID, companyID, departmentIDs
}
