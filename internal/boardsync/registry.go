package boardsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"board-service/internal/board"
	"board-service/internal/models"
	"board-service/internal/repositories"
	"board-service/internal/router"
)

// DefaultIdleTimeout is how long an actor survives with zero subscribers
// before the janitor reaps it.
const DefaultIdleTimeout = 5 * time.Minute

// Registry hands out the single live actor for each board, creating it from
// the store on first use and tearing it down after an idle period. It is
// also where operations spanning two boards (transfers, trigger clones) are
// orchestrated, since no actor may reach into another board's state.
type Registry struct {
	repo repositories.BoardRepository
	idle time.Duration

	mu     sync.Mutex
	actors map[string]*Actor

	janitorStop chan struct{}
	janitorOnce sync.Once
}

// NewRegistry builds a registry over the board store.
func NewRegistry(repo repositories.BoardRepository, idle time.Duration) *Registry {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Registry{
		repo:        repo,
		idle:        idle,
		actors:      map[string]*Actor{},
		janitorStop: make(chan struct{}),
	}
}

// Actor returns the live actor for a board, loading the document on a miss.
func (r *Registry) Actor(ctx context.Context, boardID string) (*Actor, error) {
	r.mu.Lock()
	if a, ok := r.actors[boardID]; ok {
		r.mu.Unlock()
		return a, nil
	}
	r.mu.Unlock()

	// load outside the lock; a racing caller may win the insert
	b, err := r.repo.Get(ctx, boardID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors[boardID]; ok {
		return a, nil
	}
	a := newActor(b, r.repo)
	r.actors[boardID] = a
	return a, nil
}

// Adopt registers a freshly created board so its actor starts from the given
// state without a store round trip.
func (r *Registry) Adopt(b models.Board) *Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors[b.ID]; ok {
		return a
	}
	a := newActor(b, r.repo)
	r.actors[b.ID] = a
	return a
}

// Evict stops a board's actor, if live. Used when a board is destroyed.
func (r *Registry) Evict(boardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors[boardID]; ok {
		a.stop()
		delete(r.actors, boardID)
	}
}

// TransferRequest relocates or duplicates a chat across boards.
type TransferRequest struct {
	ChatID             string `json:"chat_id" binding:"required"`
	SourceBoardID      string `json:"source_board_id" binding:"required"`
	DestinationBoardID string `json:"destination_board_id" binding:"required"`
	DestinationRoomID  string `json:"destination_room_id"`
	Copy               bool   `json:"copy"`
}

// TransferChat moves or copies a room-resident chat into another board.
// The source mutation and destination mutation are applied and broadcast
// independently and in sequence; a crash between the two can leave the chat
// duplicated or missing across boards. Accepted inconsistency window, not a
// two-phase commit.
func (r *Registry) TransferChat(ctx context.Context, req TransferRequest) error {
	src, err := r.Actor(ctx, req.SourceBoardID)
	if err != nil {
		return err
	}
	dest, err := r.Actor(ctx, req.DestinationBoardID)
	if err != nil {
		if errors.Is(err, repositories.ErrBoardNotFound) {
			return board.ErrDestinationNotFound
		}
		return err
	}

	var chat models.Chat
	if req.Copy {
		snap, err := src.Snapshot(ctx)
		if err != nil {
			return err
		}
		_, found := board.FindChat(&snap, req.ChatID)
		if found == nil {
			if _, archived := snap.Archive.Chats[req.ChatID]; archived {
				return board.ErrChatNotInRoom
			}
			return board.ErrChatNotFound
		}
		chat = board.CloneChat(*found)
	} else {
		err := src.Mutate(ctx, "transfer_out", func(b *models.Board) error {
			removed, err := board.RemoveChatFromRoom(b, req.ChatID)
			if err != nil {
				return err
			}
			chat = removed
			return nil
		})
		if err != nil {
			return err
		}
	}

	err = dest.Mutate(ctx, "transfer_in", func(b *models.Board) error {
		if req.DestinationRoomID != "" && b.Room(req.DestinationRoomID) == nil {
			return board.ErrDestinationNotFound
		}
		return board.InsertChatFront(b, req.DestinationRoomID, chat)
	})
	if err != nil {
		if !req.Copy {
			// put the chat back so a bad destination does not lose it
			if restoreErr := src.Mutate(ctx, "transfer_restore", func(b *models.Board) error {
				return board.InsertChatFront(b, "", chat)
			}); restoreErr != nil {
				log.Error().Err(restoreErr).
					Str("board_id", req.SourceBoardID).
					Str("chat_id", req.ChatID).
					Msg("transfer rollback failed")
			}
		}
		return err
	}

	if req.Copy {
		// source state unchanged; still rebroadcast so every viewer settles
		// on the same post-transfer picture
		if err := src.Mutate(ctx, "transfer_copy", func(*models.Board) error { return nil }); err != nil {
			return err
		}
	}
	return nil
}

// Inbound routes a channel message into a board and fires any room trigger:
// a genuinely new chat landing in a trigger room is cloned into the
// destination board, and the source board's subscribers get a clone ack.
func (r *Registry) Inbound(ctx context.Context, boardID string, msg models.InboundMessage) (router.Result, error) {
	a, err := r.Actor(ctx, boardID)
	if err != nil {
		return router.Result{}, err
	}
	result, err := a.Inbound(ctx, msg)
	if err != nil || result.Trigger == nil {
		return result, err
	}

	trigger := result.Trigger
	dest, err := r.Actor(ctx, trigger.DestinationBoardID)
	if err != nil {
		log.Warn().Err(err).
			Str("board_id", boardID).
			Str("destination_board_id", trigger.DestinationBoardID).
			Msg("room trigger destination unavailable")
		return result, nil
	}

	clone := board.CloneChat(result.Chat)
	err = dest.Mutate(ctx, "trigger_clone", func(b *models.Board) error {
		roomID := trigger.DestinationRoomID
		if roomID != "" && b.Room(roomID) == nil {
			roomID = ""
		}
		created, err := board.NewChat(b, clone, roomID)
		if err != nil {
			return err
		}
		if !created {
			return errors.New("chat identity already present on destination")
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).
			Str("board_id", boardID).
			Str("destination_board_id", trigger.DestinationBoardID).
			Msg("room trigger clone skipped")
		return result, nil
	}

	_ = a.Notify(ctx, models.BoardEvent{
		Type:    models.EventChatClone,
		Chat:    &clone,
		Trigger: trigger,
	})
	return result, nil
}

// UndoClone removes a trigger-cloned chat from the destination board and
// acks the originating board's subscribers.
func (r *Registry) UndoClone(ctx context.Context, boardID string, trigger models.RoomTrigger, chat models.Chat) error {
	dest, err := r.Actor(ctx, trigger.DestinationBoardID)
	if err != nil {
		return err
	}
	err = dest.Mutate(ctx, "trigger_unclone", func(b *models.Board) error {
		cloned := board.ChatByPlatform(b, chat.Source, chat.ExternalChatID)
		if cloned == nil {
			return board.ErrChatNotFound
		}
		_, err := board.RemoveChatFromRoom(b, cloned.ID)
		return err
	})
	if err != nil {
		return err
	}

	if src, err := r.Actor(ctx, boardID); err == nil {
		_ = src.Notify(ctx, models.BoardEvent{
			Type:    models.EventChatRemove,
			Chat:    &chat,
			Trigger: &trigger,
		})
	}
	return nil
}

// StartJanitor reaps actors that have had no subscribers for the idle
// period. Stops when the context is cancelled.
func (r *Registry) StartJanitor(ctx context.Context) {
	r.janitorOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(r.idle / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					r.reapIdle(ctx)
				case <-ctx.Done():
					return
				case <-r.janitorStop:
					return
				}
			}
		}()
	})
}

func (r *Registry) reapIdle(ctx context.Context) {
	r.mu.Lock()
	candidates := make([]*Actor, 0, len(r.actors))
	for _, a := range r.actors {
		candidates = append(candidates, a)
	}
	r.mu.Unlock()

	for _, a := range candidates {
		idle, err := a.idleFor(ctx)
		if err != nil || idle < r.idle {
			continue
		}
		r.mu.Lock()
		if current, ok := r.actors[a.boardID]; ok && current == a {
			current.stop()
			delete(r.actors, a.boardID)
			log.Info().Str("board_id", a.boardID).Dur("idle", idle).Msg("board actor reaped")
		}
		r.mu.Unlock()
	}
}
