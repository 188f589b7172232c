package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ListContacts returns contacts, optionally filtered by account_id.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	accountID := uuid.Nil
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid account_id format")
			return
		}
		accountID = id
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{
		"contacts": h.state.Contacts(accountID),
	})
}

// GetContactMessages returns the full message history for a contact,
// oldest first.
func (h *Handler) GetContactMessages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid contact ID format")
		return
	}

	contact := h.state.ContactByID(id)
	if contact == nil {
		h.Error(w, http.StatusNotFound, "contact not found")
		return
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{
		"contact":  contact,
		"messages": h.state.Messages(id),
	})
}

// MarkContactRead flips a contact's messages to read and resets the unread
// counter.
func (h *Handler) MarkContactRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid contact ID format")
		return
	}

	if !h.state.MarkRead(id) {
		h.Error(w, http.StatusNotFound, "contact not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
