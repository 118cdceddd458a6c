package ws

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"board-service/internal/observability"
)

// ConnInfo identifies one live socket for lifecycle events and logs.
type ConnInfo struct {
	ConnID      string
	UserID      string
	Meta        observability.RequestMeta
	TraceID     string
	ConnectedAt time.Time
}

func newConnInfo(r *http.Request, userID, traceID string) ConnInfo {
	return ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		Meta:        observability.MetaFromRequest(r),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
