package boardsync

import (
	"crypto/rand"
	"encoding/hex"

	"board-service/internal/models"
)

// subscriberBuffer bounds how many undelivered events a subscriber may hold.
// A subscriber that falls this far behind is dropped, same as a dead
// connection: broadcasts are never retried.
const subscriberBuffer = 16

// Subscriber receives full board snapshots from the actor it is registered
// with. Subscription is bookkeeping only, never a lock.
type Subscriber struct {
	id     string
	userID string
	events chan models.BoardEvent
}

// NewSubscriber allocates a subscriber for one connected operator.
func NewSubscriber(userID string) *Subscriber {
	return &Subscriber{
		id:     newSubscriberID(),
		userID: userID,
		events: make(chan models.BoardEvent, subscriberBuffer),
	}
}

// ID is the connection-scoped subscriber id.
func (s *Subscriber) ID() string { return s.id }

// UserID is the operator behind the subscription.
func (s *Subscriber) UserID() string { return s.userID }

// Events is the stream the transport layer drains into the socket.
func (s *Subscriber) Events() <-chan models.BoardEvent { return s.events }

// push delivers without blocking the actor loop.
func (s *Subscriber) push(event models.BoardEvent) bool {
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

func newSubscriberID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
