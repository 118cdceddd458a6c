// Package client implements the operator-side half of the sync protocol:
// a cached board replaced wholesale on every broadcast, and optimistic
// drag-drop mutations pushed upstream for confirmation.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"board-service/internal/models"
)

// BoardClient is one operator's live view of a board.
type BoardClient struct {
	conn *websocket.Conn

	mu    sync.RWMutex
	board models.Board

	// side-channel acks (clone / clone-undo) for the UI layer
	acks chan models.BoardEvent
}

// Dial connects and waits for the initial snapshot.
func Dial(ctx context.Context, url, token string) (*BoardClient, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	c := &BoardClient{conn: conn, acks: make(chan models.BoardEvent, 8)}

	var event models.BoardEvent
	if err := conn.ReadJSON(&event); err != nil {
		conn.Close()
		return nil, err
	}
	if event.Board != nil {
		c.board = *event.Board
	}
	return c, nil
}

// Board returns the last authoritative or optimistic state.
func (c *BoardClient) Board() models.Board {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.board
}

// Acks streams clone side-effect events for the UI.
func (c *BoardClient) Acks() <-chan models.BoardEvent { return c.acks }

// Listen consumes broadcasts until the connection closes. Every board:update
// received is the complete current truth: it overwrites whatever optimistic
// state the client guessed, so a racing peer's move silently wins.
func (c *BoardClient) Listen(ctx context.Context) error {
	defer close(c.acks)
	for {
		var event models.BoardEvent
		if err := c.conn.ReadJSON(&event); err != nil {
			return err
		}
		switch event.Type {
		case models.EventBoardUpdate:
			if event.Board == nil {
				continue
			}
			c.mu.Lock()
			c.board = *event.Board
			c.mu.Unlock()
		case models.EventChatClone, models.EventChatRemove:
			select {
			case c.acks <- event:
			default:
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Drop applies a drag gesture optimistically and sends the mutated snapshot
// upstream. The authoritative rebroadcast either matches or corrects it.
func (c *BoardClient) Drop(ev DropEvent) (Outcome, error) {
	c.mu.Lock()
	prev := cloneBoard(c.board)
	outcome, err := ResolveDrop(&c.board, ev)
	if err != nil || outcome == OutcomeNone {
		c.mu.Unlock()
		return outcome, err
	}
	snapshot := c.board
	c.mu.Unlock()

	frame := models.ClientFrame{Type: models.EventBoardUpdate, Board: &snapshot}
	if err := c.writeFrame(frame); err != nil {
		// the server never saw the gesture; roll the cache back to the last
		// state it confirmed
		c.mu.Lock()
		c.board = prev
		c.mu.Unlock()
		return outcome, err
	}
	return outcome, nil
}

// PushUpdate sends an arbitrary locally mutated snapshot upstream.
func (c *BoardClient) PushUpdate(b models.Board) error {
	c.mu.Lock()
	c.board = b
	c.mu.Unlock()
	return c.writeFrame(models.ClientFrame{Type: models.EventBoardUpdate, Board: &b})
}

// UndoClone asks the server to revert a trigger clone.
func (c *BoardClient) UndoClone(chat models.Chat, trigger models.RoomTrigger) error {
	return c.writeFrame(models.ClientFrame{
		Type:    models.EventChatRemove,
		Chat:    &chat,
		Trigger: &trigger,
	})
}

// Unsubscribe tells the server to drop the subscription before closing.
func (c *BoardClient) Unsubscribe() error {
	return c.writeFrame(models.ClientFrame{Type: models.EventBoardUnsubscribe})
}

// Close tears the connection down.
func (c *BoardClient) Close() error {
	return c.conn.Close()
}

// cloneBoard detaches the rollback copy from the slices ResolveDrop mutates
// in place.
func cloneBoard(b models.Board) models.Board {
	raw, err := json.Marshal(b)
	if err != nil {
		return b
	}
	var copied models.Board
	if err := json.Unmarshal(raw, &copied); err != nil {
		return b
	}
	return copied
}

func (c *BoardClient) writeFrame(frame models.ClientFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
