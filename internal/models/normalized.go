package models

import "time"

// NormalizedMessage is the unified form of one inbound provider message,
// produced by the normalizer and consumed by the conversation state store.
type NormalizedMessage struct {
	Platform   Platform
	RoutingKey string // ig user id / page id / phone number id
	SenderID   string
	SenderName string
	Content    string
	Timestamp  time.Time

	// Provider message id when present; empty disables redelivery dedupe.
	ExternalMessageID string
}
