// Package state holds the in-memory conversation model: accounts, contacts
// and messages. The store is an injected handle, not a process-wide
// singleton, so the resolve-or-create sequence stays testable and the lock
// scope stays visible.
package state

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/solvedigitale/Digitext-last/internal/models"
)

// ApplyResult describes the state mutation performed for one inbound message.
type ApplyResult struct {
	Contact        models.Contact
	Message        models.Message
	ContactCreated bool
}

// ConversationStore is the mutable collection of accounts, contacts and
// messages. All methods are safe for concurrent use: HTTP handlers run in
// parallel, and the at-most-one-contact-per-external-id invariant depends on
// the whole resolve-or-create sequence executing under one lock.
type ConversationStore struct {
	mu       sync.Mutex
	accounts []models.Account
	contacts []models.Contact
	// (accountID, externalID) -> index into contacts
	contactIdx map[contactKey]int
	messages   map[uuid.UUID][]models.Message
}

type contactKey struct {
	accountID  uuid.UUID
	externalID string
}

// NewConversationStore creates an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		contactIdx: make(map[contactKey]int),
		messages:   make(map[uuid.UUID][]models.Message),
	}
}

// AddAccount registers an account. A zero ID is assigned a fresh UUID.
func (s *ConversationStore) AddAccount(a models.Account) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.Must(uuid.NewV7())
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.UpdatedAt = a.CreatedAt
	s.accounts = append(s.accounts, a)
	return a
}

// RemoveAccount deletes an account and its contacts and messages.
func (s *ConversationStore) RemoveAccount(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	accounts := s.accounts[:0]
	for _, a := range s.accounts {
		if a.ID == id {
			found = true
			continue
		}
		accounts = append(accounts, a)
	}
	s.accounts = accounts
	if !found {
		return false
	}

	contacts := make([]models.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		if c.AccountID == id {
			delete(s.messages, c.ID)
			continue
		}
		contacts = append(contacts, c)
	}
	s.contacts = contacts
	s.reindex()
	return true
}

// Accounts returns a snapshot of all registered accounts.
func (s *ConversationStore) Accounts() []models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Apply resolves the target account and contact for a normalized inbound
// message and appends a message record. Returns nil if no account matches
// the routing key; an unroutable event is a no-op, not an error.
func (s *ConversationStore) Apply(n *models.NormalizedMessage) *ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := s.findAccount(n.Platform, n.RoutingKey)
	if account == nil {
		return nil
	}

	key := contactKey{accountID: account.ID, externalID: n.SenderID}
	idx, exists := s.contactIdx[key]

	var contact models.Contact
	if exists {
		c := &s.contacts[idx]
		c.LastMessage = n.Content
		c.LastMessageTime = n.Timestamp
		c.UnreadCount++
		contact = *c
	} else {
		contact = models.Contact{
			ID:              uuid.Must(uuid.NewV7()),
			Name:            n.SenderName,
			Avatar:          placeholderAvatar(n.Platform, n.SenderName),
			LastMessage:     n.Content,
			LastMessageTime: n.Timestamp,
			UnreadCount:     1,
			Platform:        n.Platform,
			AccountID:       account.ID,
			Labels:          []string{},
			ExternalID:      n.SenderID,
		}
		s.contacts = append(s.contacts, contact)
		s.contactIdx[key] = len(s.contacts) - 1
	}

	msg := models.Message{
		ID:                ulid.Make().String(),
		ContactID:         contact.ID.String(),
		Content:           n.Content,
		Timestamp:         n.Timestamp.UnixMilli(),
		Sender:            models.SenderContact,
		IsRead:            false,
		ExternalMessageID: n.ExternalMessageID,
	}
	s.messages[contact.ID] = append(s.messages[contact.ID], msg)

	return &ApplyResult{
		Contact:        contact,
		Message:        msg,
		ContactCreated: !exists,
	}
}

// Contacts returns contacts for one account, or all contacts when
// accountID is uuid.Nil.
func (s *ConversationStore) Contacts(accountID uuid.UUID) []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		if accountID == uuid.Nil || c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out
}

// ContactByID returns a contact by id, or nil.
func (s *ConversationStore) ContactByID(id uuid.UUID) *models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.contacts {
		if s.contacts[i].ID == id {
			c := s.contacts[i]
			return &c
		}
	}
	return nil
}

// Messages returns the message history for a contact, oldest first.
func (s *ConversationStore) Messages(contactID uuid.UUID) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[contactID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}

// MarkRead flips every message of a contact to read and zeroes the unread
// counter. The read flag is the only post-creation message mutation.
func (s *ConversationStore) MarkRead(contactID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.contacts {
		if s.contacts[i].ID == contactID {
			s.contacts[i].UnreadCount = 0
			found = true
			break
		}
	}
	if !found {
		return false
	}

	msgs := s.messages[contactID]
	for i := range msgs {
		msgs[i].IsRead = true
	}
	return true
}

// findAccount matches platform and the platform-authoritative identifier.
// Caller must hold s.mu.
func (s *ConversationStore) findAccount(platform models.Platform, routingKey string) *models.Account {
	if routingKey == "" {
		return nil
	}
	for i := range s.accounts {
		a := &s.accounts[i]
		if a.Platform == platform && a.RoutingKey() == routingKey {
			return a
		}
	}
	return nil
}

// reindex rebuilds the contact lookup index. Caller must hold s.mu.
func (s *ConversationStore) reindex() {
	s.contactIdx = make(map[contactKey]int, len(s.contacts))
	for i, c := range s.contacts {
		s.contactIdx[contactKey{accountID: c.AccountID, externalID: c.ExternalID}] = i
	}
}

// Platform brand colors for generated avatars.
var avatarColors = map[models.Platform]string{
	models.PlatformInstagram: "E1306C",
	models.PlatformMessenger: "0084FF",
	models.PlatformWhatsApp:  "25D366",
}

func placeholderAvatar(platform models.Platform, name string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=%s&color=fff",
		url.QueryEscape(name), avatarColors[platform])
}
