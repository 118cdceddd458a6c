// Package boardsync owns the live state of every open board. One actor
// goroutine per board serializes all mutations and broadcasts the full board
// snapshot to its subscribers after each one; the registry keys actors by
// board id and tears them down once idle.
package boardsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"board-service/internal/models"
	"board-service/internal/observability"
	"board-service/internal/repositories"
	"board-service/internal/router"
)

// ErrActorStopped is returned when a command reaches a torn-down actor.
// Callers go back through the registry for a fresh actor.
var ErrActorStopped = errors.New("board actor stopped")

// Actor is the single owner of one board's state. All access goes through
// its command channel; the loop applies commands FIFO, so every mutation is
// observed in the order it arrived.
type Actor struct {
	boardID string
	repo    repositories.BoardRepository

	cmds chan command
	done chan struct{}

	// stopMu orders stop() against in-flight sends: a command is either
	// enqueued before the stopped flag goes up, and then answered by the
	// loop or by shutdown, or it is refused outright. Nothing in between.
	stopMu  sync.RWMutex
	stopped bool

	// loop-owned state, never touched outside run()
	board       models.Board
	subscribers map[string]*Subscriber
	emptySince  time.Time
}

type command interface{ isCommand() }

type boardReply struct {
	snapshot models.Board
	err      error
}

type subscribeCmd struct {
	sub   *Subscriber
	reply chan boardReply
}

type unsubscribeCmd struct{ id string }

type snapshotCmd struct{ reply chan boardReply }

type mutateCmd struct {
	op    string
	fn    func(*models.Board) error
	reply chan error
}

type replaceCmd struct {
	board models.Board
	reply chan error
}

type inboundCmd struct {
	msg   models.InboundMessage
	reply chan inboundReply
}

type inboundReply struct {
	result router.Result
	err    error
}

type notifyCmd struct{ event models.BoardEvent }

type idleCmd struct{ reply chan time.Duration }

func (subscribeCmd) isCommand()   {}
func (unsubscribeCmd) isCommand() {}
func (snapshotCmd) isCommand()    {}
func (mutateCmd) isCommand()      {}
func (replaceCmd) isCommand()     {}
func (inboundCmd) isCommand()     {}
func (notifyCmd) isCommand()      {}
func (idleCmd) isCommand()        {}

func newActor(b models.Board, repo repositories.BoardRepository) *Actor {
	a := &Actor{
		boardID:     b.ID,
		repo:        repo,
		cmds:        make(chan command, 32),
		done:        make(chan struct{}),
		board:       b,
		subscribers: map[string]*Subscriber{},
		emptySince:  time.Now(),
	}
	go a.run()
	return a
}

// BoardID identifies the board this actor owns.
func (a *Actor) BoardID() string { return a.boardID }

func (a *Actor) run() {
	for {
		select {
		case cmd := <-a.cmds:
			a.handle(cmd)
			if _, isIdleCheck := cmd.(idleCmd); !isIdleCheck && len(a.subscribers) == 0 {
				// command traffic without subscribers still restarts the
				// idle clock, so a board under REST load is not reaped
				a.emptySince = time.Now()
			}
		case <-a.done:
			a.shutdown()
			return
		}
	}
}

// shutdown closes every subscriber stream and answers whatever commands were
// enqueued before the stopped flag went up. No caller blocks on a dead actor.
func (a *Actor) shutdown() {
	for id, sub := range a.subscribers {
		delete(a.subscribers, id)
		close(sub.events)
		observability.DecSubscribers()
	}
	for {
		select {
		case cmd := <-a.cmds:
			refuse(cmd)
		default:
			return
		}
	}
}

func refuse(cmd command) {
	switch c := cmd.(type) {
	case subscribeCmd:
		c.reply <- boardReply{err: ErrActorStopped}
	case snapshotCmd:
		c.reply <- boardReply{err: ErrActorStopped}
	case mutateCmd:
		c.reply <- ErrActorStopped
	case replaceCmd:
		c.reply <- ErrActorStopped
	case inboundCmd:
		c.reply <- inboundReply{err: ErrActorStopped}
	case idleCmd:
		c.reply <- 0
	}
}

func (a *Actor) handle(cmd command) {
	switch c := cmd.(type) {
	case subscribeCmd:
		a.subscribers[c.sub.id] = c.sub
		a.emptySince = time.Time{}
		observability.IncSubscribers()
		c.reply <- boardReply{snapshot: a.snapshot()}

	case unsubscribeCmd:
		if sub, ok := a.subscribers[c.id]; ok {
			delete(a.subscribers, c.id)
			close(sub.events)
			observability.DecSubscribers()
		}
		if len(a.subscribers) == 0 {
			a.emptySince = time.Now()
		}

	case snapshotCmd:
		c.reply <- boardReply{snapshot: a.snapshot()}

	case mutateCmd:
		if err := c.fn(&a.board); err != nil {
			// rejected operations leave the board unmutated; no emit
			c.reply <- err
			return
		}
		observability.IncBoardOp(c.op)
		a.persist()
		a.emit()
		c.reply <- nil

	case replaceCmd:
		if c.board.ID != a.boardID {
			c.reply <- errors.New("board id mismatch")
			return
		}
		// ownership and the access list are server-owned; a client snapshot
		// never rewrites them
		c.board.CompanyID = a.board.CompanyID
		c.board.Access = a.board.Access
		a.board = c.board
		observability.IncBoardOp("update")
		a.persist()
		a.emit()
		c.reply <- nil

	case inboundCmd:
		if router.UnreadOnlySkip(&a.board, c.msg) {
			// operator engaged elsewhere; the board stops tracking this chat
			c.reply <- inboundReply{}
			return
		}
		result, err := router.Route(&a.board, c.msg)
		if err != nil {
			c.reply <- inboundReply{err: err}
			return
		}
		observability.IncBoardOp("inbound")
		a.persist()
		a.emit()
		c.reply <- inboundReply{result: result}

	case notifyCmd:
		c.event.BoardID = a.boardID
		a.broadcast(c.event)

	case idleCmd:
		if len(a.subscribers) > 0 || a.emptySince.IsZero() {
			c.reply <- 0
			return
		}
		c.reply <- time.Since(a.emptySince)
	}
}

// snapshot deep-copies the board so subscribers and callers never share
// mutable state with the loop.
func (a *Actor) snapshot() models.Board {
	raw, err := json.Marshal(a.board)
	if err != nil {
		log.Error().Err(err).Str("board_id", a.boardID).Msg("board snapshot marshal failed")
		return a.board
	}
	var copied models.Board
	if err := json.Unmarshal(raw, &copied); err != nil {
		log.Error().Err(err).Str("board_id", a.boardID).Msg("board snapshot unmarshal failed")
		return a.board
	}
	return copied
}

func (a *Actor) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.repo.Save(ctx, a.board); err != nil {
		log.Error().Err(err).Str("board_id", a.boardID).Msg("board persist failed")
	}
}

// emit broadcasts the whole current board, never a diff.
func (a *Actor) emit() {
	snap := a.snapshot()
	a.broadcast(models.BoardEvent{
		Type:    models.EventBoardUpdate,
		BoardID: a.boardID,
		Board:   &snap,
	})
}

func (a *Actor) broadcast(event models.BoardEvent) {
	observability.IncBroadcast(event.Type)
	for id, sub := range a.subscribers {
		if !sub.push(event) {
			// lagging or dead subscriber: drop it, never retry. Closing the
			// stream is what tells the write loop to go away.
			delete(a.subscribers, id)
			close(sub.events)
			observability.DecSubscribers()
			log.Warn().Str("board_id", a.boardID).Str("subscriber_id", id).Msg("subscriber dropped")
		}
	}
	if len(a.subscribers) == 0 && a.emptySince.IsZero() {
		a.emptySince = time.Now()
	}
}

// send enqueues under the read lock so it cannot race stop(): once the
// stopped flag is observed unset, the command lands in the buffer before
// stop() may proceed, and the loop or shutdown will answer it.
func (a *Actor) send(ctx context.Context, cmd command) error {
	a.stopMu.RLock()
	defer a.stopMu.RUnlock()
	if a.stopped {
		return ErrActorStopped
	}
	select {
	case a.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a subscriber and returns the current snapshot so the
// client starts from the authoritative state.
func (a *Actor) Subscribe(ctx context.Context, sub *Subscriber) (models.Board, error) {
	reply := make(chan boardReply, 1)
	if err := a.send(ctx, subscribeCmd{sub: sub, reply: reply}); err != nil {
		return models.Board{}, err
	}
	select {
	case r := <-reply:
		return r.snapshot, r.err
	case <-ctx.Done():
		return models.Board{}, ctx.Err()
	}
}

// Unsubscribe removes a subscriber and closes its event stream. Safe to call
// for unknown ids and for already-stopped actors.
func (a *Actor) Unsubscribe(sub *Subscriber) {
	_ = a.send(context.Background(), unsubscribeCmd{id: sub.id})
}

// Snapshot returns a copy of the current board state.
func (a *Actor) Snapshot(ctx context.Context) (models.Board, error) {
	reply := make(chan boardReply, 1)
	if err := a.send(ctx, snapshotCmd{reply: reply}); err != nil {
		return models.Board{}, err
	}
	select {
	case r := <-reply:
		return r.snapshot, r.err
	case <-ctx.Done():
		return models.Board{}, ctx.Err()
	}
}

// Mutate applies fn inside the actor loop. On success the board is persisted
// and the new snapshot broadcast; on error nothing is emitted.
func (a *Actor) Mutate(ctx context.Context, op string, fn func(*models.Board) error) error {
	reply := make(chan error, 1)
	if err := a.send(ctx, mutateCmd{op: op, fn: fn, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Replace installs a client-authored snapshot as the authoritative state and
// rebroadcasts it. This is the confirmation half of an optimistic drag-drop;
// server-owned fields on the incoming snapshot are ignored.
func (a *Actor) Replace(ctx context.Context, b models.Board) error {
	reply := make(chan error, 1)
	if err := a.send(ctx, replaceCmd{board: b, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inbound routes one channel message through the board.
func (a *Actor) Inbound(ctx context.Context, msg models.InboundMessage) (router.Result, error) {
	reply := make(chan inboundReply, 1)
	if err := a.send(ctx, inboundCmd{msg: msg, reply: reply}); err != nil {
		return router.Result{}, err
	}
	select {
	case r := <-reply:
		return r.result, r.err
	case <-ctx.Done():
		return router.Result{}, ctx.Err()
	}
}

// Notify broadcasts a side-channel event (clone acks) without touching state.
func (a *Actor) Notify(ctx context.Context, event models.BoardEvent) error {
	return a.send(ctx, notifyCmd{event: event})
}

// idleFor reports how long the actor has gone without subscribers or command
// traffic. Only the registry calls this, through the loop, so no extra
// locking is needed.
func (a *Actor) idleFor(ctx context.Context) (time.Duration, error) {
	reply := make(chan time.Duration, 1)
	if err := a.send(ctx, idleCmd{reply: reply}); err != nil {
		return 0, err
	}
	select {
	case d := <-reply:
		return d, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (a *Actor) stop() {
	a.stopMu.Lock()
	if a.stopped {
		a.stopMu.Unlock()
		return
	}
	a.stopped = true
	a.stopMu.Unlock()
	close(a.done)
}
