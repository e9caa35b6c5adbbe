package engine

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/macro-engine/pkg/macro"
)

// executeAction dispatches one action. depth counts enclosing show-choice
// branches.
func (x *execution) executeAction(action macro.Action, depth int) {
	switch action.Type {
	case macro.ActionIncrease:
		x.adjust(action, 1)
	case macro.ActionDecrease:
		x.adjust(action, -1)
	case macro.ActionChange:
		x.change(action)
	case macro.ActionAddJudgeDamage:
		x.addJudgeDamage(action)
	case macro.ActionAddEffectText:
		x.addEffectText(action)
	case macro.ActionShowChoice:
		x.showChoice(action, depth)
	default:
		x.engine.warn(x.res, fmt.Sprintf("unsupported action type %q", action.Type))
	}
}

// adjust handles increase (sign 1) and decrease (sign -1)
func (x *execution) adjust(action macro.Action, sign float64) {
	amount, ok := action.Amount.Float()
	if !ok {
		x.engine.warn(x.res, fmt.Sprintf("%s amount %q is not a number", action.Type, action.Amount.String()))
		return
	}
	if x.opts.Preview {
		return
	}
	if action.Target == nil {
		x.engine.warn(x.res, fmt.Sprintf("%s has no target", action.Type))
		return
	}

	st, ok := x.state(*action.Target, action.Type)
	if !ok {
		return
	}
	x.set(*action.Target, st, st.Value+sign*amount)
}

func (x *execution) change(action macro.Action) {
	if n, ok := action.Value.Float(); ok && action.Target != nil && action.Target.Kind.IsState() {
		if x.opts.Preview {
			return
		}
		st, ok := x.state(*action.Target, action.Type)
		if !ok {
			return
		}
		x.set(*action.Target, st, n)
		return
	}

	text := strings.TrimSpace(action.Value.String())
	if text == "" {
		x.engine.warn(x.res, "change has an empty value")
		return
	}
	x.res.CommandEffects.SetReplacement(text, resolveChannels(action.Target))
}

func (x *execution) addJudgeDamage(action macro.Action) {
	text := normalizeSign(action.Value.String())
	if text == "" {
		x.engine.warn(x.res, "add-judge-damage has an empty value")
		return
	}
	x.res.CommandEffects.AddAddition(text, resolveChannels(action.Target))
}

func (x *execution) addEffectText(action macro.Action) {
	text := strings.TrimSpace(action.Text)
	if text == "" {
		x.engine.warn(x.res, "add-effect-text has empty text")
		return
	}
	x.res.CommandEffects.AddEffectText(text)
}

func (x *execution) showChoice(action macro.Action, depth int) {
	if len(action.Options) == 0 {
		x.engine.warn(x.res, fmt.Sprintf("show-choice %q has no options", action.Question))
		return
	}
	if depth >= MaxChoiceDepth {
		x.engine.warn(x.res, fmt.Sprintf("show-choice %q exceeds the maximum nesting depth of %d", action.Question, MaxChoiceDepth))
		return
	}

	chosen, ok := x.choose(action)
	if !ok {
		return
	}

	x.engine.logger.Debug("Choice resolved",
		"question", action.Question,
		"option", chosen.Label,
		"preview", x.opts.Preview)
	for _, nested := range chosen.Actions {
		x.executeAction(nested, depth+1)
	}
}

// choose resolves a show-choice: the caller's ChooseFunc first, then (outside
// preview) the interactive Prompter, then the first option.
func (x *execution) choose(action macro.Action) (*macro.ChoiceOption, bool) {
	options := action.Options

	if x.opts.ChooseOption != nil {
		if sel, ok := x.opts.ChooseOption(&action, options); ok {
			if sel.Option != nil {
				return sel.Option, true
			}
			if sel.Index >= 0 && sel.Index < len(options) {
				return &options[sel.Index], true
			}
			x.engine.warn(x.res, fmt.Sprintf("show-choice %q: selected index %d is out of range", action.Question, sel.Index))
		}
	}

	if x.opts.Preview {
		x.engine.warn(x.res, fmt.Sprintf("show-choice %q skipped in preview mode", action.Question))
		return nil, false
	}

	if x.opts.Prompter != nil {
		if idx, ok := x.opts.Prompter.PromptChoice(action.Question, options); ok {
			if idx >= 0 && idx < len(options) {
				return &options[idx], true
			}
			x.engine.warn(x.res, fmt.Sprintf("show-choice %q: prompted index %d is out of range", action.Question, idx))
		}
	}

	return &options[0], true
}

// state resolves a writable target state, warning when it cannot
func (x *execution) state(t macro.Target, actionType macro.ActionType) (*TargetState, bool) {
	st, ok := x.resolver.TargetState(t)
	if !ok || st == nil {
		x.engine.warn(x.res, fmt.Sprintf("%s target %s could not be resolved", actionType, t.Name()),
			"kind", t.Kind, "id", t.ID)
		return nil, false
	}
	return st, true
}

// set clamps next into the state's bounds and writes it
func (x *execution) set(t macro.Target, st *TargetState, next float64) {
	if st.SetValue == nil {
		x.engine.warn(x.res, fmt.Sprintf("target %s is read-only", t.Name()),
			"kind", t.Kind, "id", t.ID)
		return
	}
	clamped := st.Clamp(next)
	if err := st.SetValue(clamped); err != nil {
		x.engine.warn(x.res, fmt.Sprintf("failed to update %s: %v", t.Name(), err),
			"kind", t.Kind, "id", t.ID)
		return
	}
	x.engine.logger.Debug("Target updated",
		"kind", t.Kind,
		"id", t.ID,
		"from", st.Value,
		"to", clamped)
}
