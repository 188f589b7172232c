package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/solvedigitale/Digitext-last/internal/graph"
)

// Pass-through endpoints for the Graph API. Credentials come from the
// request; WhatsApp calls fall back to the configured env credentials.
// Upstream failures surface as 500 with a generic message; the upstream
// body may contain the caller's token and is only logged.

// GetInstagramAccounts proxies the page -> Instagram accounts lookup.
func (h *Handler) GetInstagramAccounts(w http.ResponseWriter, r *http.Request) {
	accessToken := r.URL.Query().Get("accessToken")
	pageID := r.URL.Query().Get("pageId")
	if accessToken == "" || pageID == "" {
		h.Error(w, http.StatusBadRequest, "Access token and page ID are required")
		return
	}

	data, err := h.graph.GetInstagramAccounts(r.Context(), accessToken, pageID)
	if err != nil {
		h.upstreamError(w, err, "Failed to fetch Instagram accounts")
		return
	}
	h.rawJSON(w, data)
}

// GetPages proxies the managed-pages lookup.
func (h *Handler) GetPages(w http.ResponseWriter, r *http.Request) {
	accessToken := r.URL.Query().Get("accessToken")
	if accessToken == "" {
		h.Error(w, http.StatusBadRequest, "Access token is required")
		return
	}

	data, err := h.graph.GetPages(r.Context(), accessToken)
	if err != nil {
		h.upstreamError(w, err, "Failed to fetch Facebook pages")
		return
	}
	h.rawJSON(w, data)
}

// SendInstagramMessageRequest is the send-instagram-message request body.
type SendInstagramMessageRequest struct {
	AccessToken string `json:"accessToken"`
	IGUserID    string `json:"igUserId"`
	RecipientID string `json:"recipientId"`
	Message     string `json:"message"`
}

// SendInstagramMessage proxies an outbound Instagram message.
func (h *Handler) SendInstagramMessage(w http.ResponseWriter, r *http.Request) {
	var req SendInstagramMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AccessToken == "" || req.IGUserID == "" || req.RecipientID == "" || req.Message == "" {
		h.Error(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	data, err := h.graph.SendInstagramMessage(r.Context(), req.AccessToken, req.IGUserID, req.RecipientID, req.Message)
	if err != nil {
		h.upstreamError(w, err, "Failed to send Instagram message")
		return
	}
	h.rawJSON(w, data)
}

// SendMessengerMessageRequest is the send-messenger-message request body.
type SendMessengerMessageRequest struct {
	AccessToken string `json:"accessToken"`
	PageID      string `json:"pageId"`
	RecipientID string `json:"recipientId"`
	Message     string `json:"message"`
}

// SendMessengerMessage proxies an outbound Messenger message.
func (h *Handler) SendMessengerMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessengerMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AccessToken == "" || req.PageID == "" || req.RecipientID == "" || req.Message == "" {
		h.Error(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	data, err := h.graph.SendMessengerMessage(r.Context(), req.AccessToken, req.PageID, req.RecipientID, req.Message)
	if err != nil {
		h.upstreamError(w, err, "Failed to send Messenger message")
		return
	}
	h.rawJSON(w, data)
}

// SendWhatsAppMessageRequest is the send-message request body.
type SendWhatsAppMessageRequest struct {
	PhoneNumber   string `json:"phoneNumber"`
	Message       string `json:"message"`
	AccessToken   string `json:"accessToken,omitempty"`
	PhoneNumberID string `json:"phoneNumberId,omitempty"`
}

// SendWhatsAppMessage proxies an outbound WhatsApp message.
func (h *Handler) SendWhatsAppMessage(w http.ResponseWriter, r *http.Request) {
	var req SendWhatsAppMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PhoneNumber == "" || req.Message == "" {
		h.Error(w, http.StatusBadRequest, "Phone number and message are required")
		return
	}

	token, numberID := h.whatsAppCredentials(req.AccessToken, req.PhoneNumberID)
	if token == "" || numberID == "" {
		h.Error(w, http.StatusBadRequest, "WhatsApp credentials not configured")
		return
	}

	data, err := h.graph.SendWhatsAppMessage(r.Context(), token, numberID, req.PhoneNumber, req.Message)
	if err != nil {
		h.upstreamError(w, err, "Failed to send WhatsApp message")
		return
	}
	h.rawJSON(w, data)
}

// GetWhatsAppBusinessProfile proxies the business profile lookup.
func (h *Handler) GetWhatsAppBusinessProfile(w http.ResponseWriter, r *http.Request) {
	token, numberID := h.whatsAppCredentials(
		r.URL.Query().Get("accessToken"),
		r.URL.Query().Get("phoneNumberId"),
	)
	if token == "" || numberID == "" {
		h.Error(w, http.StatusBadRequest, "WhatsApp credentials not configured")
		return
	}

	data, err := h.graph.GetWhatsAppBusinessProfile(r.Context(), token, numberID)
	if err != nil {
		h.upstreamError(w, err, "Failed to fetch WhatsApp business profile")
		return
	}
	h.rawJSON(w, data)
}

// whatsAppCredentials resolves per-request credentials with env fallback.
func (h *Handler) whatsAppCredentials(token, numberID string) (string, string) {
	if token == "" {
		token = h.cfg.WhatsAppAccessToken
	}
	if numberID == "" {
		numberID = h.cfg.WhatsAppPhoneNumberID
	}
	return token, numberID
}

func (h *Handler) rawJSON(w http.ResponseWriter, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) upstreamError(w http.ResponseWriter, err error, message string) {
	var ue *graph.UpstreamError
	if errors.As(err, &ue) {
		h.logger.Error().Int("status", ue.StatusCode).Str("body", ue.Body).Msg(message)
	} else {
		h.logger.Error().Err(err).Msg(message)
	}
	h.Error(w, http.StatusInternalServerError, message)
}
