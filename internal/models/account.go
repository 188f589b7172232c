package models

import (
	"time"

	"github.com/google/uuid"
)

// Account represents one connected provider identity the service receives
// and sends messages on behalf of.
type Account struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Platform    Platform  `json:"platform"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	UnreadCount int       `json:"unread_count"`

	// Platform-specific identifiers. Which one is authoritative for routing
	// depends on Platform; see RoutingKey.
	PageID        string `json:"page_id,omitempty"`
	IGUserID      string `json:"ig_user_id,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
	BusinessID    string `json:"business_id,omitempty"`

	AccessToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
