package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"board-service/internal/board"
	"board-service/internal/boardsync"
	"board-service/internal/models"
	"board-service/internal/repositories"
	"board-service/internal/telemetry"
)

// BoardHandler manages the board REST surface. Reads go to the store;
// mutations go through the registry so they serialize with live socket
// traffic and broadcast to every subscriber.
type BoardHandler struct {
	repo     repositories.BoardRepository
	registry *boardsync.Registry
	audit    *telemetry.AuditEmitter
}

// NewBoardHandler builds a BoardHandler.
func NewBoardHandler(repo repositories.BoardRepository, registry *boardsync.Registry, audit *telemetry.AuditEmitter) *BoardHandler {
	return &BoardHandler{repo: repo, registry: registry, audit: audit}
}

// ListBoards returns the company's boards visible to the caller.
func (h *BoardHandler) ListBoards(c *gin.Context) {
	userID, companyID, departmentIDs := identity(c)

	boards, err := h.repo.ListByCompany(c.Request.Context(), companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load boards"})
		return
	}

	visible := make([]models.Board, 0, len(boards))
	for _, b := range boards {
		if b.CanAccess(userID, departmentIDs) {
			visible = append(visible, b)
		}
	}
	c.JSON(http.StatusOK, gin.H{"boards": visible})
}

// CreateBoard creates an empty board with its entry room, the creating user
// on the access list.
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, companyID, _ := identity(c)
	b := board.New(companyID, req.Name)
	b.Access.UserIDs = []string{userID}

	if err := h.repo.Create(c.Request.Context(), b); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create board"})
		return
	}
	h.registry.Adopt(b)
	h.audit.Emit(c.Request.Context(), "INFO", fmt.Sprintf("board %q created", req.Name), requestIDFromContext(c), userIDFromContext(c))

	c.JSON(http.StatusCreated, gin.H{"board": b})
}

// UpdateBoard renames a board or replaces its access list and integration
// routing tables.
func (h *BoardHandler) UpdateBoard(c *gin.Context) {
	var req struct {
		BoardID         string                      `json:"board_id" binding:"required"`
		Name            *string                     `json:"name"`
		Access          *models.Access              `json:"access"`
		WashimaSettings []models.IntegrationSetting `json:"washima_settings"`
		NagazapSettings []models.IntegrationSetting `json:"nagazap_settings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := h.authorizedActor(c, req.BoardID)
	if !ok {
		return
	}

	err := actor.Mutate(c.Request.Context(), "board_update", func(b *models.Board) error {
		if req.Name != nil {
			b.Name = *req.Name
		}
		if req.Access != nil {
			b.Access = *req.Access
		}
		if req.WashimaSettings != nil {
			b.WashimaSettings = normalizeSettings(b, req.WashimaSettings)
		}
		if req.NagazapSettings != nil {
			b.NagazapSettings = normalizeSettings(b, req.NagazapSettings)
		}
		return nil
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// normalizeSettings re-points routing rules that reference rooms the board
// no longer has at the entry room.
func normalizeSettings(b *models.Board, settings []models.IntegrationSetting) []models.IntegrationSetting {
	for i := range settings {
		if settings[i].RoomID == "" || b.Room(settings[i].RoomID) == nil {
			settings[i].RoomID = b.EntryRoomID
		}
	}
	return settings
}

// DeleteBoard destroys a board, its chats included.
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	boardID := c.Query("board_id")
	if boardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "board_id is required"})
		return
	}
	if _, ok := h.authorizedActor(c, boardID); !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), boardID); err != nil {
		abortWith(c, err)
		return
	}
	h.registry.Evict(boardID)
	h.audit.Emit(c.Request.Context(), "WARN", fmt.Sprintf("board %s deleted", boardID), requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateRoom adds a named room to the board.
func (h *BoardHandler) CreateRoom(c *gin.Context) {
	var req struct {
		BoardID string `json:"board_id" binding:"required"`
		Name    string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := h.authorizedActor(c, req.BoardID)
	if !ok {
		return
	}

	var created models.Room
	err := actor.Mutate(c.Request.Context(), "room_create", func(b *models.Board) error {
		room, err := board.NewRoom(b, req.Name)
		if err != nil {
			return err
		}
		created = *room
		return nil
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": created})
}

// PatchRoom renames, reorders, re-flags or re-triggers a room.
func (h *BoardHandler) PatchRoom(c *gin.Context) {
	var req struct {
		BoardID      string              `json:"board_id" binding:"required"`
		RoomID       string              `json:"room_id" binding:"required"`
		Name         *string             `json:"name"`
		MoveTo       *int                `json:"move_to"`
		EntryPoint   *bool               `json:"entry_point"`
		Trigger      *models.RoomTrigger `json:"trigger"`
		ClearTrigger bool                `json:"clear_trigger"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := h.authorizedActor(c, req.BoardID)
	if !ok {
		return
	}

	err := actor.Mutate(c.Request.Context(), "room_patch", func(b *models.Board) error {
		if req.Name != nil {
			if err := board.RenameRoom(b, req.RoomID, *req.Name); err != nil {
				return err
			}
		}
		if req.MoveTo != nil {
			if err := board.MoveRoom(b, req.RoomID, *req.MoveTo); err != nil {
				return err
			}
		}
		if req.EntryPoint != nil && *req.EntryPoint {
			if err := board.SetEntryRoom(b, req.RoomID); err != nil {
				return err
			}
		}
		if req.ClearTrigger {
			return board.SetRoomTrigger(b, req.RoomID, nil)
		}
		if req.Trigger != nil {
			return board.SetRoomTrigger(b, req.RoomID, req.Trigger)
		}
		return nil
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DeleteRoom removes a non-entry room, cascading its chats into the entry
// room.
func (h *BoardHandler) DeleteRoom(c *gin.Context) {
	boardID := c.Query("board_id")
	roomID := c.Query("room_id")
	if boardID == "" || roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "board_id and room_id are required"})
		return
	}

	actor, ok := h.authorizedActor(c, boardID)
	if !ok {
		return
	}

	err := actor.Mutate(c.Request.Context(), "room_delete", func(b *models.Board) error {
		return board.DeleteRoom(b, roomID)
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// authorizedActor resolves the board's actor and enforces the access list.
func (h *BoardHandler) authorizedActor(c *gin.Context, boardID string) (*boardsync.Actor, bool) {
	userID, _, departmentIDs := identity(c)

	actor, err := h.registry.Actor(c.Request.Context(), boardID)
	if err != nil {
		if errors.Is(err, repositories.ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "board not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load board"})
		}
		return nil, false
	}

	snap, err := actor.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load board"})
		return nil, false
	}
	if !snap.CanAccess(userID, departmentIDs) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for board"})
		return nil, false
	}
	return actor, true
}
