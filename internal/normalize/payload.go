package normalize

// Per-event webhook shapes for the Meta family (Instagram and Messenger
// pages) and the WhatsApp Cloud API. Only the fields normalization reads are
// declared; the enclosing delivery envelopes are decoded by the webhook
// handlers, which keep the raw message objects for broadcasting.

// MessagingEvent is a single messaging event inside a Meta entry.
type MessagingEvent struct {
	Sender    *Party          `json:"sender,omitempty"`
	Recipient *Party          `json:"recipient,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"` // Unix ms
	Message   *MessageContent `json:"message,omitempty"`
}

// Party identifies a sender or recipient in a messaging event.
type Party struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// MessageContent is the message body of a messaging event.
type MessageContent struct {
	MID  string `json:"mid,omitempty"`
	Text string `json:"text,omitempty"`
}

// WhatsAppValue is the delivery context shared by the messages of one
// change: the receiving number's metadata and the sender profiles. The
// messages themselves are decoded individually by the webhook handler.
type WhatsAppValue struct {
	Metadata WhatsAppMetadata  `json:"metadata"`
	Contacts []WhatsAppContact `json:"contacts,omitempty"`
}

// WhatsAppMetadata identifies the receiving business phone number.
type WhatsAppMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number,omitempty"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// WhatsAppContact is the sender profile attached to a delivery.
type WhatsAppContact struct {
	Profile WhatsAppProfile `json:"profile"`
	WaID    string          `json:"wa_id"`
}

// WhatsAppProfile holds the sender's display name.
type WhatsAppProfile struct {
	Name string `json:"name"`
}

// WhatsAppMessage is a single inbound WhatsApp message.
type WhatsAppMessage struct {
	From      string        `json:"from"`
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"` // Unix seconds, as a string
	Type      string        `json:"type,omitempty"`
	Text      *WhatsAppText `json:"text,omitempty"`
}

// WhatsAppText is the text body of a WhatsApp message.
type WhatsAppText struct {
	Body string `json:"body"`
}
