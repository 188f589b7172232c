package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact represents an external conversation partner, scoped to one account
// and keyed by the provider-specific sender id. At most one contact exists
// per (AccountID, ExternalID) pair.
type Contact struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Avatar          string    `json:"avatar,omitempty"`
	LastMessage     string    `json:"last_message,omitempty"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
	Platform        Platform  `json:"platform"`
	AccountID       uuid.UUID `json:"account_id"`
	Labels          []string  `json:"labels"`
	ExternalID      string    `json:"external_id"`
}
