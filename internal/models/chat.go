package models

import "encoding/json"

// ChatSource identifies the messaging channel a chat originates from.
type ChatSource string

const (
	// SourceWashima is the self-hosted WhatsApp-Web session pool.
	SourceWashima ChatSource = "washima"
	// SourceNagazap is the WhatsApp Business Cloud API integration.
	SourceNagazap ChatSource = "nagazap"
)

// Chat is a conversation card on a board. It is tied to exactly one external
// messaging identity and lives in exactly one room or the board archive.
type Chat struct {
	ID             string          `json:"id"`
	ExternalChatID string          `json:"external_chat_id"`
	Source         ChatSource      `json:"source"`
	DisplayName    string          `json:"display_name"`
	Phone          string          `json:"phone"`
	ProfilePicURL  string          `json:"profile_pic_url,omitempty"`
	LastMessage    json.RawMessage `json:"last_message,omitempty"`
	UnreadCount    int             `json:"unread_count"`
	Notes          []Comment       `json:"notes"`
}

// SameIdentity reports whether both chats reference the same external
// conversation. Board-local ids differ between clones of the same identity.
func (c Chat) SameIdentity(other Chat) bool {
	return c.Source == other.Source && c.ExternalChatID == other.ExternalChatID
}

// InboundMessage is the event the channel collaborators hand to the router:
// a new message for a given external chat identifier. Payload is opaque to
// the core and stored as the chat's last message verbatim.
type InboundMessage struct {
	IntegrationID string          `json:"integration_id"`
	Source        ChatSource      `json:"source"`
	ExternalID    string          `json:"external_chat_id"`
	Phone         string          `json:"phone"`
	DisplayName   string          `json:"display_name"`
	ProfilePicURL string          `json:"profile_pic_url,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}
