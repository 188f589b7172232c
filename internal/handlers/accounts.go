package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/solvedigitale/Digitext-last/internal/models"
)

// CreateAccountRequest represents the account creation request.
type CreateAccountRequest struct {
	Name          string `json:"name"`
	Platform      string `json:"platform"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	PageID        string `json:"page_id,omitempty"`
	IGUserID      string `json:"ig_user_id,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
	BusinessID    string `json:"business_id,omitempty"`
	AccessToken   string `json:"access_token,omitempty"`
}

// CreateAccount registers a connected provider identity. The account is
// persisted and immediately live for inbound event routing.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	platform := models.Platform(req.Platform)
	if !platform.Valid() {
		h.Error(w, http.StatusBadRequest, "platform must be instagram, messenger or whatsapp")
		return
	}

	account := models.Account{
		Name:          req.Name,
		Platform:      platform,
		AvatarURL:     req.AvatarURL,
		PageID:        req.PageID,
		IGUserID:      req.IGUserID,
		PhoneNumberID: req.PhoneNumberID,
		BusinessID:    req.BusinessID,
		AccessToken:   req.AccessToken,
	}

	// Without the platform-authoritative identifier no inbound event could
	// ever route to this account.
	if account.RoutingKey() == "" {
		h.Error(w, http.StatusBadRequest, "missing routing identifier for platform")
		return
	}

	if h.accounts != nil {
		created, err := h.accounts.CreateAccount(r.Context(), &account)
		if err != nil {
			h.logger.Error().Err(err).Msg("account insert failed")
			h.Error(w, http.StatusInternalServerError, "failed to create account")
			return
		}
		account = *created
	}

	account = h.state.AddAccount(account)
	h.JSON(w, http.StatusCreated, account)
}

// ListAccounts returns all registered accounts. Access tokens are never
// serialized.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]interface{}{
		"accounts": h.state.Accounts(),
	})
}

// DeleteAccount removes an account along with its contacts and messages.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid account ID format")
		return
	}

	if h.accounts != nil {
		if _, err := h.accounts.DeleteAccount(r.Context(), id); err != nil {
			h.logger.Error().Err(err).Msg("account delete failed")
			h.Error(w, http.StatusInternalServerError, "failed to delete account")
			return
		}
	}

	if !h.state.RemoveAccount(id) {
		h.Error(w, http.StatusNotFound, "account not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
