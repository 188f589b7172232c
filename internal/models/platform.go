package models

// Platform identifies one of the supported messaging providers.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformMessenger Platform = "messenger"
	PlatformWhatsApp  Platform = "whatsapp"
)

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformMessenger, PlatformWhatsApp:
		return true
	}
	return false
}

// Topic returns the broadcast topic name for inbound messages on this platform.
func (p Platform) Topic() string {
	return string(p) + "_message"
}

// RoutingKey returns the identifier used to match an inbound event to an
// account: the Instagram user id, the Messenger page id, or the WhatsApp
// phone number id.
func (a *Account) RoutingKey() string {
	switch a.Platform {
	case PlatformInstagram:
		return a.IGUserID
	case PlatformMessenger:
		return a.PageID
	case PlatformWhatsApp:
		return a.PhoneNumberID
	}
	return ""
}
