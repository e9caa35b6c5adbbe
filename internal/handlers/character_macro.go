package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/macro-engine/internal/logger"
	"github.com/jwebster45206/macro-engine/pkg/actor"
	"github.com/jwebster45206/macro-engine/pkg/engine"
	"github.com/jwebster45206/macro-engine/pkg/macro"
)

const (
	ModeApply   = "apply"
	ModePreview = "preview"
)

// MacroRequest selects a macro and how to run it. The macro source is the
// first of Macro, MacroID, the ability's macro, the turn macro and the round
// macro that is set.
// AbilityID also supplies the base judge and damage commands.
type MacroRequest struct {
	AbilityID string          `json:"ability_id,omitempty"`
	MacroID   string          `json:"macro_id,omitempty"`
	Macro     json.RawMessage `json:"macro,omitempty"`
	Mode      string          `json:"mode,omitempty"`    // apply or preview; defaults to preview
	Choices   []int           `json:"choices,omitempty"` // show-choice answers, consumed in order
	Turn      bool            `json:"turn,omitempty"`    // run the turn macro and tick buffs
	Round     bool            `json:"round,omitempty"`   // run the round macro
}

// macroSource is the macro a request resolved to and how it runs.
// Turn buffs tick only when a turn is actually taken.
type macroSource struct {
	name    string
	macro   *macro.Macro
	profile macro.Profile
	tick    bool
}

// sourceFor labels a stored or inline macro. Turn and Round run it under
// the turn profile.
func sourceFor(name string, m *macro.Macro, req MacroRequest) macroSource {
	src := macroSource{name: name, macro: m, profile: macro.ProfileAbility}
	if req.Turn || req.Round {
		src.profile = macro.ProfileTurn
	}
	src.tick = req.Turn
	return src
}

// BuiltCommands are the base commands with the macro's channel effects applied
type BuiltCommands struct {
	Judge  string `json:"judge"`
	Damage string `json:"damage"`
}

type MacroResponse struct {
	SessionID    uuid.UUID             `json:"session_id"`
	Mode         string                `json:"mode"`
	Commands     BuiltCommands         `json:"commands"`
	Effects      engine.CommandEffects `json:"effects"`
	Warnings     []string              `json:"warnings"`
	ExpiredBuffs []actor.ActiveBuff    `json:"expired_buffs,omitempty"`
	Character    *actor.Character      `json:"character"`
}

type ConditionFailureResponse struct {
	Error    string           `json:"error"`
	Failures []engine.Failure `json:"failures"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors"`
}

func (h *CharacterHandler) handleMacro(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	log := logger.WithSession(h.logger, id)

	var req MacroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Invalid macro request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = ModePreview
	}
	if mode != ModeApply && mode != ModePreview {
		writeError(w, h.logger, http.StatusBadRequest, "mode must be apply or preview")
		return
	}

	c, ok := h.load(w, r, id)
	if !ok {
		return
	}

	var ability *actor.AbilitySpec
	if req.AbilityID != "" {
		ab, found := c.Ability(req.AbilityID)
		if !found {
			writeError(w, h.logger, http.StatusNotFound, "Ability not found")
			return
		}
		ability = &ab
	}

	var src macroSource
	switch {
	case len(req.Macro) > 0:
		parsed, err := macro.Parse(req.Macro)
		if err != nil {
			log.Warn("Invalid inline macro", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid macro")
			return
		}
		src = sourceFor("inline", parsed, req)
	case req.MacroID != "":
		loaded, err := h.storage.GetMacro(r.Context(), req.MacroID)
		if err != nil {
			log.Warn("Macro not available", "macro_id", req.MacroID, "error", err)
			writeError(w, h.logger, http.StatusNotFound, "Macro not found")
			return
		}
		src = sourceFor("macro:"+req.MacroID, loaded, req)
	case ability != nil:
		src = macroSource{name: "ability:" + req.AbilityID, macro: ability.Macro, profile: macro.ProfileAbility}
	case req.Turn:
		src = macroSource{name: "turn", macro: c.Spec.TurnMacro, profile: macro.ProfileTurn, tick: true}
	case req.Round:
		src = macroSource{name: "round", macro: c.Spec.RoundMacro, profile: macro.ProfileTurn}
	default:
		writeError(w, h.logger, http.StatusBadRequest, "one of ability_id, macro_id, macro, turn or round is required")
		return
	}
	m := src.macro
	if m == nil {
		m = macro.NewEmptyMacro()
	}
	log = logger.WithMacro(log, src.name, string(src.profile))

	if errs := macro.Validate(m, src.profile); len(errs) > 0 {
		log.Info("Macro rejected", "errors", len(errs))
		writeJSON(w, h.logger, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "macro is invalid",
			Errors: errs,
		})
		return
	}

	resolver := c.Resolver()
	if failures := h.engine.CollectConditionFailures(m.Conditions, resolver, nil); len(failures) > 0 {
		log.Info("Macro conditions not met", "failures", len(failures))
		writeJSON(w, h.logger, http.StatusConflict, ConditionFailureResponse{
			Error:    "macro conditions not met",
			Failures: failures,
		})
		return
	}

	opts := engine.Options{Preview: mode == ModePreview}
	if len(req.Choices) > 0 {
		opts.ChooseOption = engine.ChoiceSequence(req.Choices)
	}
	result := h.engine.ExecuteMacro(m, resolver, opts)

	var judgeBase, damageBase string
	if ability != nil {
		judgeBase, damageBase = ability.JudgeCommand, ability.DamageCommand
	}
	resp := MacroResponse{
		SessionID: c.SessionID,
		Mode:      mode,
		Commands: BuiltCommands{
			Judge:  result.CommandEffects.Judge.Apply(judgeBase),
			Damage: result.CommandEffects.Damage.Apply(damageBase),
		},
		Effects:   result.CommandEffects,
		Warnings:  result.Warnings,
		Character: c,
	}

	if mode == ModeApply {
		if src.tick {
			resp.ExpiredBuffs = c.ExpireBuffs()
		}
		if err := h.storage.SaveCharacter(r.Context(), id, c); err != nil {
			logger.WithError(log, err).Error("Failed to save character")
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to save character")
			return
		}
	}

	log.Info("Macro executed",
		"mode", mode,
		"warnings", len(result.Warnings),
		"expired_buffs", len(resp.ExpiredBuffs))
	writeJSON(w, h.logger, http.StatusOK, resp)
}
