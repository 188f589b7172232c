package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solvedigitale/Digitext-last/internal/config"
	"github.com/solvedigitale/Digitext-last/internal/models"
	"github.com/solvedigitale/Digitext-last/internal/state"
	"github.com/solvedigitale/Digitext-last/internal/store"
)

// fakeRelay records published events instead of writing to sockets.
type fakeRelay struct {
	mu     sync.Mutex
	topics []string
	data   []interface{}
}

func (f *fakeRelay) Publish(topic string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.data = append(f.data, payload)
}

func (f *fakeRelay) ClientCount() int { return 0 }

func (f *fakeRelay) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}

func newTestHandler(t *testing.T) (*Handler, *state.ConversationStore, *fakeRelay) {
	t.Helper()
	cfg := &config.Config{MetaVerifyToken: "sekrit-token"}
	conv := state.NewConversationStore()
	fr := &fakeRelay{}
	h := NewHandler(cfg, nil, nil, conv, fr, store.NewMemoryDeduper(), nil, zerolog.Nop())
	return h, conv, fr
}

func addWhatsAppAccount(conv *state.ConversationStore) models.Account {
	return conv.AddAccount(models.Account{
		Name:          "Support",
		Platform:      models.PlatformWhatsApp,
		PhoneNumberID: "555000111",
	})
}

const whatsAppDelivery = `{
	"object": "whatsapp_business_account",
	"entry": [{"changes": [{"value": {
		"metadata": {"phone_number_id": "555000111"},
		"contacts": [{"profile": {"name": "Mehmet"}, "wa_id": "15551234567"}],
		"messages": [{"from": "15551234567", "id": "wamid.A1", "timestamp": "1700000000", "text": {"body": "hi"}}]
	}}]}]
}`

func TestVerifyWebhookEchoesChallenge(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/meta?hub.mode=subscribe&hub.verify_token=sekrit-token&hub.challenge=CHAL123", nil)
	rec := httptest.NewRecorder()
	h.VerifyWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "CHAL123" {
		t.Fatalf("body = %q, want exact challenge echo", rec.Body.String())
	}
}

func TestVerifyWebhookRejectsMismatch(t *testing.T) {
	h, _, _ := newTestHandler(t)

	cases := []string{
		"/webhooks/meta?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=C",
		"/webhooks/meta?hub.mode=unsubscribe&hub.verify_token=sekrit-token&hub.challenge=C",
		"/webhooks/whatsapp?hub.challenge=C",
	}
	for _, url := range cases {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()
		h.VerifyWebhook(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", url, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("%s: body = %q, want empty", url, rec.Body.String())
		}
	}
}

// Verification must fail when no verify token is configured at all, even if
// the request sends an empty token.
func TestVerifyWebhookEmptyConfiguredToken(t *testing.T) {
	h, _, _ := newTestHandler(t)
	h.cfg.MetaVerifyToken = ""

	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/meta?hub.mode=subscribe&hub.verify_token=&hub.challenge=C", nil)
	rec := httptest.NewRecorder()
	h.VerifyWebhook(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestWhatsAppDeliveryBroadcastsAndStores(t *testing.T) {
	h, conv, fr := newTestHandler(t)
	addWhatsAppAccount(conv)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(whatsAppDelivery))
	rec := httptest.NewRecorder()
	h.WhatsAppEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "EVENT_RECEIVED" {
		t.Fatalf("body = %q", rec.Body.String())
	}

	topics := fr.published()
	if len(topics) != 1 || topics[0] != "whatsapp_message" {
		t.Fatalf("published = %v, want exactly one whatsapp_message", topics)
	}

	contacts := conv.Contacts(uuid.Nil)
	if len(contacts) != 1 {
		t.Fatalf("contacts = %d, want 1", len(contacts))
	}
	if contacts[0].Name != "Mehmet" {
		t.Errorf("contact name = %q", contacts[0].Name)
	}
	msgs := conv.Messages(contacts[0].ID)
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Sender != models.SenderContact {
		t.Errorf("sender = %q", msgs[0].Sender)
	}
}

// A redelivered payload with the same provider message id still broadcasts
// but must not append a second message.
func TestWhatsAppDuplicateRedelivery(t *testing.T) {
	h, conv, fr := newTestHandler(t)
	addWhatsAppAccount(conv)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(whatsAppDelivery))
		h.WhatsAppEvents(httptest.NewRecorder(), req)
	}

	if got := len(fr.published()); got != 2 {
		t.Errorf("broadcasts = %d, want 2 (broadcast is unconditional)", got)
	}

	contacts := conv.Contacts(uuid.Nil)
	if len(contacts) != 1 {
		t.Fatalf("contacts = %d, want 1", len(contacts))
	}
	if msgs := conv.Messages(contacts[0].ID); len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1 after dedupe", len(msgs))
	}
}

// Only a missing discriminator earns the 404. A delivery whose object field
// is present is acknowledged no matter how mangled the entry shape is, so
// the provider never marks it failed.
func TestWhatsAppMalformedEntryStillAcked(t *testing.T) {
	h, conv, fr := newTestHandler(t)

	bodies := []string{
		`{"object": "whatsapp_business_account", "entry": "bogus"}`,
		`{"object": "whatsapp_business_account", "entry": [{"changes": "bogus"}]}`,
		`{"object": "whatsapp_business_account", "entry": [{"changes": [{"value": "bogus"}]}]}`,
		`{"object": "whatsapp_business_account", "entry": [{"changes": [{"value": {"messages": "bogus"}}]}]}`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.WhatsAppEvents(rec, req)

		if rec.Code != http.StatusOK || rec.Body.String() != "EVENT_RECEIVED" {
			t.Errorf("body %q: response = %d %q, want 200 EVENT_RECEIVED", body, rec.Code, rec.Body.String())
		}
	}
	if len(fr.published()) != 0 {
		t.Error("no broadcast expected")
	}
	if len(conv.Contacts(uuid.Nil)) != 0 {
		t.Error("malformed entries must not create contacts")
	}
}

// An off-type field in one message fails its typed decode but must not
// suppress the raw broadcast, for that message or its siblings.
func TestWhatsAppOffTypeMessageStillBroadcasts(t *testing.T) {
	h, conv, fr := newTestHandler(t)
	addWhatsAppAccount(conv)

	body := `{
		"object": "whatsapp_business_account",
		"entry": [{"changes": [{"value": {
			"metadata": {"phone_number_id": "555000111"},
			"contacts": [{"profile": {"name": "Mehmet"}, "wa_id": "15551234567"}],
			"messages": [
				{"from": 123, "text": {"body": "bad sender type"}},
				{"from": "15551234567", "id": "wamid.B2", "timestamp": "1700000000", "text": {"body": "hi"}}
			]
		}}]}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.WhatsAppEvents(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "EVENT_RECEIVED" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
	if topics := fr.published(); len(topics) != 2 {
		t.Fatalf("broadcasts = %v, want one per raw message", topics)
	}

	contacts := conv.Contacts(uuid.Nil)
	if len(contacts) != 1 {
		t.Fatalf("contacts = %d, want 1 from the decodable message", len(contacts))
	}
	msgs := conv.Messages(contacts[0].ID)
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestWhatsAppMissingObjectIs404(t *testing.T) {
	h, _, fr := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(`{"entry": []}`))
	rec := httptest.NewRecorder()
	h.WhatsAppEvents(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if len(fr.published()) != 0 {
		t.Error("no broadcast expected")
	}
}

func TestMetaDeliveryRoutesInstagram(t *testing.T) {
	h, conv, fr := newTestHandler(t)
	conv.AddAccount(models.Account{
		Name:     "Brand IG",
		Platform: models.PlatformInstagram,
		IGUserID: "17841400000000000",
	})

	body := `{
		"object": "instagram",
		"entry": [{"messaging": [{
			"sender": {"id": "ig-user-9"},
			"recipient": {"id": "17841400000000000"},
			"timestamp": 1700000000000,
			"message": {"mid": "mid.1", "text": "merhaba"}
		}]}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.MetaEvents(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "EVENT_RECEIVED" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
	if topics := fr.published(); len(topics) != 1 || topics[0] != "instagram_message" {
		t.Fatalf("published = %v", topics)
	}
	if contacts := conv.Contacts(uuid.Nil); len(contacts) != 1 || contacts[0].Platform != models.PlatformInstagram {
		t.Fatalf("contacts = %+v", contacts)
	}
}

// An unroutable Messenger event still broadcasts; only the state mutation
// is conditional on an account match.
func TestMetaUnroutableStillBroadcasts(t *testing.T) {
	h, conv, fr := newTestHandler(t)

	body := `{
		"object": "page",
		"entry": [{"messaging": [{
			"sender": {"id": "fb-user-1"},
			"recipient": {"id": "page-unknown"},
			"message": {"text": "hello"}
		}]}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.MetaEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if topics := fr.published(); len(topics) != 1 || topics[0] != "messenger_message" {
		t.Fatalf("published = %v", topics)
	}
	if len(conv.Contacts(uuid.Nil)) != 0 {
		t.Error("unroutable event must not create a contact")
	}
}

func TestMetaMalformedEventsAcknowledged(t *testing.T) {
	h, conv, _ := newTestHandler(t)
	conv.AddAccount(models.Account{
		Name:     "Page",
		Platform: models.PlatformMessenger,
		PageID:   "page-1",
	})

	bodies := []string{
		`not json at all`,
		`{"object": "page"}`,
		`{"object": "page", "entry": [{}]}`,
		`{"object": "page", "entry": [{"messaging": [{}]}]}`,
		`{"object": "page", "entry": [{"messaging": [{"sender": {"id": "u"}, "recipient": {"id": "page-1"}}]}]}`,
		`{"object": "something-else", "entry": []}`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.MetaEvents(rec, req)

		if rec.Code != http.StatusOK || rec.Body.String() != "EVENT_RECEIVED" {
			t.Errorf("body %q: response = %d %q", body, rec.Code, rec.Body.String())
		}
	}
	if len(conv.Contacts(uuid.Nil)) != 0 {
		t.Error("malformed events must not create contacts")
	}
}

// Multiple entries and messages fan out one broadcast per message, in
// payload order.
func TestMetaMultipleMessagesFanOut(t *testing.T) {
	h, _, fr := newTestHandler(t)

	body := `{
		"object": "page",
		"entry": [
			{"messaging": [
				{"sender": {"id": "a"}, "message": {"text": "1"}},
				{"sender": {"id": "b"}, "message": {"text": "2"}}
			]},
			{"messaging": [
				{"sender": {"id": "c"}, "message": {"text": "3"}}
			]}
		]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader(body))
	h.MetaEvents(httptest.NewRecorder(), req)

	if got := len(fr.published()); got != 3 {
		t.Fatalf("broadcasts = %d, want 3", got)
	}
}

// The broadcast payload is the provider's raw entry, unknown fields intact.
func TestBroadcastCarriesRawPayload(t *testing.T) {
	h, _, fr := newTestHandler(t)

	body := `{
		"object": "instagram",
		"entry": [{"messaging": [{
			"sender": {"id": "u"},
			"message": {"text": "hi"},
			"vendor_extra": {"nested": true}
		}]}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader(body))
	h.MetaEvents(httptest.NewRecorder(), req)

	fr.mu.Lock()
	defer fr.mu.Unlock()
	if len(fr.data) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(fr.data))
	}
	raw, ok := fr.data[0].(json.RawMessage)
	if !ok {
		t.Fatalf("payload type = %T, want json.RawMessage", fr.data[0])
	}
	if !strings.Contains(string(raw), "vendor_extra") {
		t.Errorf("raw payload lost unknown fields: %s", raw)
	}
}
