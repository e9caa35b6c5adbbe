package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/macro-engine/pkg/macro"
	"github.com/jwebster45206/macro-engine/pkg/storage"
)

// MacroSummary is one entry of the macro listing
type MacroSummary struct {
	ID     string `json:"id"`
	Blocks int    `json:"blocks"`
	Valid  bool   `json:"valid"`
}

// MacroDetail is a canonical macro with its validation result
type MacroDetail struct {
	ID      string        `json:"id"`
	Profile macro.Profile `json:"profile"`
	Macro   *macro.Macro  `json:"macro"`
	Errors  []string      `json:"errors"`
}

type MacrosHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewMacrosHandler(logger *slog.Logger, storage storage.Storage) *MacrosHandler {
	return &MacrosHandler{
		storage: storage,
		logger:  logger,
	}
}

// ServeHTTP handles macro file requests
// Routes:
// GET /v1/macros                       - List macros
// GET /v1/macros/{id}?profile=ability  - Fetch one macro in canonical form
func (h *MacrosHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/macros"), "/")
	if id == "" {
		h.handleList(w, r)
		return
	}

	// Security: prevent directory traversal
	if strings.Contains(id, "..") || strings.Contains(id, "/") {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid macro ID")
		return
	}
	h.handleGet(w, r, id)
}

func (h *MacrosHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.storage.ListMacros(r.Context())
	if err != nil {
		h.logger.Error("Failed to list macros", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list macros")
		return
	}

	list := make([]MacroSummary, 0, len(ids))
	for _, id := range ids {
		m, err := h.storage.GetMacro(r.Context(), id)
		if err != nil {
			h.logger.Warn("Failed to load macro", "error", err, "id", id)
			continue
		}
		list = append(list, MacroSummary{
			ID:     id,
			Blocks: len(m.Blocks),
			Valid:  len(macro.Validate(m, macro.ProfileAbility)) == 0,
		})
	}
	writeJSON(w, h.logger, http.StatusOK, list)
}

func (h *MacrosHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	profile := macro.ProfileAbility
	if name := r.URL.Query().Get("profile"); name != "" {
		p, err := macro.ParseProfile(name)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		profile = p
	}

	m, err := h.storage.GetMacro(r.Context(), id)
	if err != nil {
		h.logger.Warn("Macro not available", "error", err, "id", id)
		writeError(w, h.logger, http.StatusNotFound, "Macro not found")
		return
	}

	errs := macro.Validate(m, profile)
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, h.logger, http.StatusOK, MacroDetail{
		ID:      id,
		Profile: profile,
		Macro:   m,
		Errors:  errs,
	})
}
