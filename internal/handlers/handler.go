package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/solvedigitale/Digitext-last/internal/config"
	"github.com/solvedigitale/Digitext-last/internal/graph"
	"github.com/solvedigitale/Digitext-last/internal/state"
	"github.com/solvedigitale/Digitext-last/internal/store"
)

// Publisher broadcasts an event to every connected real-time client.
// Implemented by relay.Hub.
type Publisher interface {
	Publish(topic string, payload interface{})
	ClientCount() int
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	cfg      *config.Config
	accounts store.AccountStore
	redis    *store.RedisStore
	state    *state.ConversationStore
	relay    Publisher
	deduper  store.Deduper
	graph    *graph.Client
	logger   zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(cfg *config.Config, accounts store.AccountStore, redis *store.RedisStore, conv *state.ConversationStore, relay Publisher, deduper store.Deduper, gc *graph.Client, logger zerolog.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		accounts: accounts,
		redis:    redis,
		state:    conv,
		relay:    relay,
		deduper:  deduper,
		graph:    gc,
		logger:   logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
