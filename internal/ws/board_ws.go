package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"board-service/internal/boardsync"
	"board-service/internal/middleware"
	"board-service/internal/models"
	"board-service/internal/observability"
	"board-service/internal/repositories"
)

// BoardWebSocketHandler attaches operators to a board's sync channel: the
// connection subscribes on open, receives the full snapshot after every
// mutation, and feeds client-side mutations back into the owning actor.
type BoardWebSocketHandler struct {
	registry *boardsync.Registry
}

// NewBoardWebSocketHandler constructs a BoardWebSocketHandler.
func NewBoardWebSocketHandler(registry *boardsync.Registry) *BoardWebSocketHandler {
	return &BoardWebSocketHandler{registry: registry}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and subscribes the client to the board.
func (h *BoardWebSocketHandler) Handle(c *gin.Context) {
	boardID := c.Param("board_id")
	if boardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid board id"})
		return
	}

	ctx, span := otel.Tracer("board-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		if q := c.Query("token"); q != "" {
			token = "Bearer " + q
		}
	}
	claims, err := validateBearer(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	actor, err := h.registry.Actor(ctx, boardID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrBoardNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "board not found"})
		return
	}

	sub := boardsync.NewSubscriber(claims.UserID)
	snapshot, err := actor.Subscribe(ctx, sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscription failed"})
		return
	}
	if !snapshot.CanAccess(claims.UserID, claims.DepartmentIDs) {
		actor.Unsubscribe(sub)
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for board"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		actor.Unsubscribe(sub)
		return
	}

	info := newConnInfo(c.Request, claims.UserID, span.SpanContext().TraceID().String())

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishLifecycle(ctx, boardID, info, "ws_connect", "")

	// the subscription snapshot is the client's starting truth
	initial := models.BoardEvent{Type: models.EventBoardUpdate, BoardID: boardID, Board: &snapshot}
	if payload, err := json.Marshal(initial); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}

	// net/http cancels the request context when this handler returns, even
	// for hijacked connections; the session loops keep the trace values but
	// must outlive the handshake
	connCtx := context.WithoutCancel(ctx)
	go h.writeLoop(conn, sub)
	go h.readLoop(connCtx, conn, actor, sub, boardID, info)
}

// writeLoop drains broadcasts into the socket until the actor closes the
// event stream or a write fails. Closing the connection on exit is what
// unblocks the read loop.
func (h *BoardWebSocketHandler) writeLoop(conn *websocket.Conn, sub *boardsync.Subscriber) {
	defer conn.Close()
	for event := range sub.Events() {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Str("board_id", event.BoardID).Msg("broadcast marshal failed")
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (h *BoardWebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, actor *boardsync.Actor, sub *boardsync.Subscriber, boardID string, info ConnInfo) {
	var closeReason string
	defer func() {
		actor.Unsubscribe(sub)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishLifecycle(ctx, boardID, info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				publishLifecycle(ctx, boardID, info, "ws_error", closeReason)
			}
			return
		}

		var frame models.ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Warn().Err(err).Str("board_id", boardID).Str("conn_id", info.ConnID).Msg("bad client frame")
			continue
		}

		switch frame.Type {
		case models.EventBoardUpdate:
			if frame.Board == nil {
				continue
			}
			// the authoritative broadcast after Replace is what confirms
			// (or silently corrects) the client's optimistic state
			if err := actor.Replace(ctx, *frame.Board); err != nil {
				log.Warn().Err(err).Str("board_id", boardID).Str("conn_id", info.ConnID).Msg("board update rejected")
			}
		case models.EventBoardUnsubscribe:
			closeReason = "unsubscribed"
			return
		case models.EventChatRemove:
			if frame.Chat == nil || frame.Trigger == nil {
				continue
			}
			if err := h.registry.UndoClone(ctx, boardID, *frame.Trigger, *frame.Chat); err != nil {
				log.Warn().Err(err).Str("board_id", boardID).Msg("clone undo failed")
			}
		default:
			log.Debug().Str("type", frame.Type).Str("board_id", boardID).Msg("ignoring unknown frame")
		}
	}
}

func publishLifecycle(ctx context.Context, boardID string, info ConnInfo, event, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"board_id":    boardID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.Meta.DeviceID,
			"ip":        info.Meta.IP,
		},
	}

	headers := observability.BuildHeaders(info.Meta.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, "ws_events.boards", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}

func validateBearer(header string) (*middleware.Claims, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) {
		return nil, errors.New("invalid token")
	}
	return middleware.ValidateToken(header[len(prefix):])
}
