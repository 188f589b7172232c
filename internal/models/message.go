package models

// Message senders.
const (
	SenderContact = "contact"
	SenderAgent   = "agent"
)

// Message is a single text message in a conversation. Append-only: after
// creation only the read flag changes.
type Message struct {
	ID        string `json:"id"` // ULID
	ContactID string `json:"contact_id"`
	Content   string `json:"content"`
	Timestamp int64  `json:"ts"` // Unix ms
	Sender    string `json:"sender"`
	IsRead    bool   `json:"is_read"`

	// Provider message id, when the webhook payload carried one.
	// Used for redelivery dedupe; empty means not dedupable.
	ExternalMessageID string `json:"external_message_id,omitempty"`
}
