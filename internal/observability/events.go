package observability

import (
	"net"
	"net/http"
	"strings"
)

// EventEnvelope is the shape every event published to the bus shares.
// Consumers bind queues on the routing key and fan out on EventType;
// EventName narrows to the concrete occurrence (ws_connect, ws_error, ...).
// Service and OccurredAt are stamped by PublishEvent.
type EventEnvelope struct {
	EventType  string      `json:"event_type"`
	EventName  string      `json:"event_name"`
	Service    string      `json:"service"`
	OccurredAt string      `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// RequestMeta is the correlation data carried from the HTTP upgrade request
// into socket lifecycle events.
type RequestMeta struct {
	RequestID string
	DeviceID  string
	IP        string
}

// MetaFromRequest extracts correlation headers and the caller's address,
// preferring the first hop of X-Forwarded-For when a proxy sits in front.
func MetaFromRequest(r *http.Request) RequestMeta {
	meta := RequestMeta{
		RequestID: r.Header.Get("X-Request-Id"),
		DeviceID:  r.Header.Get("X-Device-Id"),
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		meta.IP = strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
		return meta
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		meta.IP = host
		return meta
	}
	meta.IP = r.RemoteAddr
	return meta
}

// BuildHeaders maps correlation ids onto AMQP message headers.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
