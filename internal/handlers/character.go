package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/macro-engine/internal/logger"
	"github.com/jwebster45206/macro-engine/pkg/actor"
	"github.com/jwebster45206/macro-engine/pkg/engine"
	"github.com/jwebster45206/macro-engine/pkg/storage"
)

// CreateCharacterRequest starts a session from a character spec in the data dir
type CreateCharacterRequest struct {
	Character string `json:"character"`
}

// CharacterSummary is one entry of the character spec listing
type CharacterSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Abilities []string `json:"abilities"`
}

type CharacterHandler struct {
	storage storage.Storage
	engine  *engine.Engine
	logger  *slog.Logger
}

func NewCharacterHandler(logger *slog.Logger, storage storage.Storage, eng *engine.Engine) *CharacterHandler {
	return &CharacterHandler{
		storage: storage,
		engine:  eng,
		logger:  logger,
	}
}

// ServeHTTP handles HTTP requests for character sessions
// Routes:
// GET /v1/characters               - List character specs
// POST /v1/characters              - Create a session from a spec
// GET /v1/characters/{id}          - Read session
// DELETE /v1/characters/{id}       - Delete session
// POST /v1/characters/{id}/macro   - Run a macro against the session
func (h *CharacterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/characters"), "/")
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, POST")
		}
		return
	}

	parts := strings.Split(path, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid character session ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid character session ID format")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}
	case len(parts) == 2 && parts[1] == "macro":
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleMacro(w, r, id)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *CharacterHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.storage.ListCharacters(r.Context())
	if err != nil {
		h.logger.Error("Failed to list characters", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list characters")
		return
	}

	list := make([]CharacterSummary, 0, len(ids))
	for _, id := range ids {
		spec, err := h.storage.GetCharacterSpec(r.Context(), id)
		if err != nil {
			h.logger.Warn("Failed to load character spec", "error", err, "id", id)
			continue
		}
		summary := CharacterSummary{ID: spec.ID, Name: spec.Name, Abilities: []string{}}
		for abilityID := range spec.Abilities {
			summary.Abilities = append(summary.Abilities, abilityID)
		}
		slices.Sort(summary.Abilities)
		list = append(list, summary)
	}
	writeJSON(w, h.logger, http.StatusOK, list)
}

func (h *CharacterHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid create character request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Character = strings.TrimSpace(req.Character)
	if req.Character == "" {
		writeError(w, h.logger, http.StatusBadRequest, "character is required")
		return
	}

	spec, err := h.storage.GetCharacterSpec(r.Context(), req.Character)
	if err != nil {
		h.logger.Warn("Character spec not available", "character", req.Character, "error", err)
		writeError(w, h.logger, http.StatusNotFound, "Character not found")
		return
	}

	c, err := actor.NewCharacterFromSpec(spec)
	if err != nil {
		h.logger.Error("Failed to build character", "character", req.Character, "error", err)
		writeError(w, h.logger, http.StatusUnprocessableEntity, "Invalid character spec")
		return
	}

	if err := h.storage.SaveCharacter(r.Context(), c.SessionID, c); err != nil {
		logger.WithError(logger.WithSession(h.logger, c.SessionID), err).Error("Failed to save character")
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save character")
		return
	}

	logger.WithSession(h.logger, c.SessionID).Info("Character session created", "character", spec.ID)
	writeJSON(w, h.logger, http.StatusCreated, c)
}

func (h *CharacterHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	c, ok := h.load(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, c)
}

func (h *CharacterHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteCharacter(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete character", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete character")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// load fetches a session and answers 404/500 itself when it cannot
func (h *CharacterHandler) load(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*actor.Character, bool) {
	c, err := h.storage.LoadCharacter(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load character", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load character")
		return nil, false
	}
	if c == nil {
		writeError(w, h.logger, http.StatusNotFound, "Character session not found")
		return nil, false
	}
	return c, true
}
