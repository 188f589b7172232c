package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/solvedigitale/Digitext-last/internal/metrics"
	"github.com/solvedigitale/Digitext-last/internal/models"
	"github.com/solvedigitale/Digitext-last/internal/normalize"
)

// eventReceived is the fixed acknowledgement body Meta expects for every
// processable delivery.
const eventReceived = "EVENT_RECEIVED"

// VerifyWebhook handles the subscription verification handshake shared by
// the Meta and WhatsApp webhook endpoints: echo the challenge iff the mode
// is "subscribe" and the verify token matches the configured secret.
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.cfg.MetaVerifyToken {
		h.logger.Info().Str("path", r.URL.Path).Msg("webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	h.logger.Warn().Str("path", r.URL.Path).Msg("webhook verification failed")
	w.WriteHeader(http.StatusForbidden)
}

// Raw envelopes keep the provider's message objects verbatim: the relay
// broadcasts the raw entry, while normalization decodes a typed copy.

type rawMetaPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []json.RawMessage `json:"messaging"`
	} `json:"entry"`
}

type rawWhatsAppPayload struct {
	Entry []struct {
		Changes []struct {
			Value json.RawMessage `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type rawWhatsAppValue struct {
	Messages []json.RawMessage `json:"messages"`
}

// MetaEvents handles POST deliveries for the Meta family. The top-level
// object field discriminates Instagram ("instagram") from Messenger
// ("page"). The response is always 200 EVENT_RECEIVED: Meta disables
// webhooks that keep failing, so a malformed body is acknowledged and
// dropped rather than rejected.
func (h *Handler) MetaEvents(w http.ResponseWriter, r *http.Request) {
	defer h.ack(w)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("meta webhook body read failed")
		return
	}

	var payload rawMetaPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn().Err(err).Msg("meta webhook body undecodable")
		return
	}

	var platform models.Platform
	switch payload.Object {
	case "instagram":
		platform = models.PlatformInstagram
	case "page":
		platform = models.PlatformMessenger
	default:
		return
	}

	for _, entry := range payload.Entry {
		for _, raw := range entry.Messaging {
			metrics.WebhookEventsReceived.WithLabelValues(string(platform)).Inc()

			// Broadcast is unconditional; state mutation is not.
			h.relay.Publish(platform.Topic(), raw)

			var ev normalize.MessagingEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				h.dropMalformed(platform)
				continue
			}
			n, ok := normalize.Meta(platform, ev)
			if !ok {
				h.dropMalformed(platform)
				continue
			}
			h.ingest(r, n)
		}
	}
}

// WhatsAppEvents handles POST deliveries from the WhatsApp Cloud API.
// Only the discriminator decides the 404: a body without the top-level
// object field is not a WhatsApp delivery at all. Everything else is
// acknowledged with EVENT_RECEIVED however mangled the rest of the body
// is, so a bad delivery never makes the provider retry or disable the
// subscription.
func (h *Handler) WhatsAppEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("whatsapp webhook body read failed")
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var disc struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(body, &disc); err != nil || disc.Object == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	defer h.ack(w)

	var payload rawWhatsAppPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn().Err(err).Msg("whatsapp webhook entry undecodable")
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			var raw rawWhatsAppValue
			if err := json.Unmarshal(change.Value, &raw); err != nil {
				h.dropMalformed(models.PlatformWhatsApp)
				continue
			}

			// The context decode is tolerant: a mangled metadata or contact
			// block must not suppress the raw broadcasts below.
			var value normalize.WhatsAppValue
			_ = json.Unmarshal(change.Value, &value)

			for _, rawMsg := range raw.Messages {
				metrics.WebhookEventsReceived.WithLabelValues(string(models.PlatformWhatsApp)).Inc()

				// Broadcast is unconditional; state mutation is not.
				h.relay.Publish(models.PlatformWhatsApp.Topic(), rawMsg)

				var msg normalize.WhatsAppMessage
				if err := json.Unmarshal(rawMsg, &msg); err != nil {
					h.dropMalformed(models.PlatformWhatsApp)
					continue
				}
				n, ok := normalize.WhatsApp(value, msg)
				if !ok {
					h.dropMalformed(models.PlatformWhatsApp)
					continue
				}
				h.ingest(r, n)
			}
		}
	}
}

// ingest runs the state-mutation half of the relay: redelivery dedupe, then
// resolve-or-create. Every failure mode degrades to drop-and-log.
func (h *Handler) ingest(r *http.Request, n *models.NormalizedMessage) {
	if n.ExternalMessageID != "" && h.deduper != nil {
		if !h.deduper.FirstDelivery(r.Context(), n.Platform, n.ExternalMessageID) {
			metrics.DroppedEvents.WithLabelValues("duplicate").Inc()
			h.logger.Debug().
				Str("platform", string(n.Platform)).
				Str("message_id", n.ExternalMessageID).
				Msg("duplicate delivery dropped")
			return
		}
	}

	res := h.state.Apply(n)
	if res == nil {
		metrics.DroppedEvents.WithLabelValues("unroutable").Inc()
		h.logger.Warn().
			Str("platform", string(n.Platform)).
			Str("routing_key", n.RoutingKey).
			Msg("no account matches inbound event")
		return
	}

	metrics.MessagesStored.WithLabelValues(string(n.Platform)).Inc()
	if res.ContactCreated {
		metrics.ContactsCreated.WithLabelValues(string(n.Platform)).Inc()
	}

	h.logger.Info().
		Str("platform", string(n.Platform)).
		Str("contact_id", res.Contact.ID.String()).
		Bool("contact_created", res.ContactCreated).
		Msg("message stored")
}

func (h *Handler) dropMalformed(platform models.Platform) {
	metrics.DroppedEvents.WithLabelValues("malformed").Inc()
	h.logger.Debug().Str("platform", string(platform)).Msg("malformed event skipped")
}

func (h *Handler) ack(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(eventReceived))
}
