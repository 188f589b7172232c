// Package normalize maps provider webhook payloads into the unified message
// form. Every function here fails soft: a partial or malformed event yields
// (nil, false), never an error and never a panic, so a bad delivery can't
// corrupt conversation state.
package normalize

import (
	"strconv"
	"time"

	"github.com/solvedigitale/Digitext-last/internal/models"
)

// Meta normalizes one Instagram or Messenger messaging event.
//
// Field paths: sender.id, message.text, sender.name (falling back to the
// sender id). The routing key is recipient.id: the ig user id for Instagram,
// the page id for Messenger. Timestamps are Unix milliseconds.
func Meta(platform models.Platform, ev MessagingEvent) (*models.NormalizedMessage, bool) {
	if ev.Sender == nil || ev.Sender.ID == "" {
		return nil, false
	}
	if ev.Message == nil || ev.Message.Text == "" {
		return nil, false
	}

	name := ev.Sender.Name
	if name == "" {
		name = ev.Sender.ID
	}

	var routingKey string
	if ev.Recipient != nil {
		routingKey = ev.Recipient.ID
	}

	ts := time.Now()
	if ev.Timestamp > 0 {
		ts = time.UnixMilli(ev.Timestamp)
	}

	return &models.NormalizedMessage{
		Platform:          platform,
		RoutingKey:        routingKey,
		SenderID:          ev.Sender.ID,
		SenderName:        name,
		Content:           ev.Message.Text,
		Timestamp:         ts,
		ExternalMessageID: ev.Message.MID,
	}, true
}

// WhatsApp normalizes one WhatsApp Cloud API message.
//
// Field paths: from, text.body, contacts[0].profile.name (falling back to
// the sender id). The routing key is metadata.phone_number_id; without it
// the event is unroutable and dropped here. Timestamps are Unix seconds.
func WhatsApp(value WhatsAppValue, msg WhatsAppMessage) (*models.NormalizedMessage, bool) {
	if msg.From == "" {
		return nil, false
	}
	if msg.Text == nil || msg.Text.Body == "" {
		return nil, false
	}
	if value.Metadata.PhoneNumberID == "" {
		return nil, false
	}

	name := msg.From
	if len(value.Contacts) > 0 && value.Contacts[0].Profile.Name != "" {
		name = value.Contacts[0].Profile.Name
	}

	ts := time.Now()
	if secs, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil && secs > 0 {
		ts = time.UnixMilli(secs * 1000)
	}

	return &models.NormalizedMessage{
		Platform:          models.PlatformWhatsApp,
		RoutingKey:        value.Metadata.PhoneNumberID,
		SenderID:          msg.From,
		SenderName:        name,
		Content:           msg.Text.Body,
		Timestamp:         ts,
		ExternalMessageID: msg.ID,
	}, true
}
