package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/matchstore"
)

// HistoryHandler serves finished matches and player records
type HistoryHandler struct {
	store matchstore.Reader
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store matchstore.Reader) *HistoryHandler {
	return &HistoryHandler{store: store}
}

type addPlayerRequest struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleListMatches handles GET /api/matches?limit=N
func (h *HistoryHandler) HandleListMatches(w http.ResponseWriter, r *http.Request) {
	limit := matchstore.DefaultMatchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	matches, err := h.store.ListMatches(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Int("limit", limit).Msg("failed to list matches")
		writeError(w, http.StatusInternalServerError, "failed to list matches")
		return
	}
	if matches == nil {
		matches = []matchstore.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// HandleGetMatch handles GET /api/matches/{id}
func (h *HistoryHandler) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	match, err := h.store.GetMatch(r.Context(), id)
	if errors.Is(err, matchstore.ErrMatchNotFound) {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("match_id", id).Msg("failed to get match")
		writeError(w, http.StatusInternalServerError, "failed to get match")
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// HandleListPlayers handles GET /api/players
func (h *HistoryHandler) HandleListPlayers(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListPlayerNames(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list players")
		writeError(w, http.StatusInternalServerError, "failed to list players")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// HandleGetPlayer handles GET /api/players/{name}
func (h *HistoryHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	player, err := h.store.GetPlayer(r.Context(), name)
	if errors.Is(err, matchstore.ErrPlayerNotFound) {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("player", name).Msg("failed to get player")
		writeError(w, http.StatusInternalServerError, "failed to get player")
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// HandleAddPlayer handles POST /api/players
func (h *HistoryHandler) HandleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var req addPlayerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.store.AddPlayer(r.Context(), req.Name)
	switch {
	case errors.Is(err, matchstore.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, matchstore.ErrPlayerExists):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		log.Error().Err(err).Str("player", req.Name).Msg("failed to add player")
		writeError(w, http.StatusInternalServerError, "failed to add player")
	default:
		log.Info().Str("player", req.Name).Msg("player added")
		writeJSON(w, http.StatusCreated, addPlayerRequest{Name: req.Name})
	}
}

// RegisterRoutes registers history routes with an HTTP mux
func (h *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/matches", h.HandleListMatches)
	mux.HandleFunc("GET /api/matches/{id}", h.HandleGetMatch)
	mux.HandleFunc("GET /api/players", h.HandleListPlayers)
	mux.HandleFunc("GET /api/players/{name}", h.HandleGetPlayer)
	mux.HandleFunc("POST /api/players", h.HandleAddPlayer)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
