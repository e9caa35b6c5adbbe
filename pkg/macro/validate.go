package macro

import (
	"fmt"
	"slices"
)

// Profile restricts which action types an editor may place in a macro.
// The engine itself accepts every profile without special-casing.
type Profile string

const (
	// ProfileAbility allows all six action types
	ProfileAbility Profile = "ability"
	// ProfileTurn is used for character-level turn and round macros
	ProfileTurn Profile = "turn"
)

var profileActions = map[Profile][]ActionType{
	ProfileAbility: {
		ActionIncrease, ActionDecrease, ActionChange,
		ActionAddJudgeDamage, ActionAddEffectText, ActionShowChoice,
	},
	ProfileTurn: {ActionIncrease, ActionDecrease, ActionShowChoice},
}

var validOperators = []Operator{OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual}

// ParseProfile maps a profile name to a Profile
func ParseProfile(name string) (Profile, error) {
	p := Profile(name)
	if _, ok := profileActions[p]; !ok {
		return "", fmt.Errorf("unknown profile %q", name)
	}
	return p, nil
}

// Allows reports whether the profile permits the action type
func (p Profile) Allows(t ActionType) bool {
	return slices.Contains(profileActions[p], t)
}

type validator struct {
	profile Profile
	errors  []string
}

// Validate checks a macro for shape problems an editor should reject.
// It returns nil when the macro is valid.
func Validate(m *Macro, profile Profile) []string {
	if m == nil {
		return []string{"macro is nil"}
	}
	if _, ok := profileActions[profile]; !ok {
		profile = ProfileAbility
	}

	v := &validator{profile: profile}
	if m.Version != CurrentVersion {
		v.addError("version: unsupported version %d", m.Version)
	}
	v.validateConditions(m.Conditions, "conditions")

	// A parentConditionId names the condition block guarding the action.
	// Execution links by adjacency, so an id-less guard accepts any parent.
	conditionIDs := make(map[string]bool)
	guard := -1
	for i, b := range m.Blocks {
		path := fmt.Sprintf("blocks[%d]", i)
		switch b.Type {
		case BlockCondition:
			if b.Conditions == nil {
				v.addError("%s: condition block has no conditions", path)
			} else {
				v.validateConditions(*b.Conditions, path+".conditions")
			}
			if b.ID != "" {
				conditionIDs[b.ID] = true
			}
			guard = i
		case BlockAction:
			if b.Action == nil {
				v.addError("%s: action block has no action", path)
			} else {
				v.validateAction(*b.Action, path+".action")
			}
			if b.ParentConditionID != nil {
				v.validateParent(*b.ParentConditionID, m.Blocks, guard, conditionIDs, path)
			}
		default:
			v.addError("%s: unknown block type %q", path, b.Type)
		}
	}

	return v.errors
}

func (v *validator) validateParent(parent string, blocks []Block, guard int, ids map[string]bool, path string) {
	switch {
	case guard < 0:
		v.addError("%s: parentConditionId %q has no earlier condition block", path, parent)
	case blocks[guard].ID == "" || ids[parent]:
	default:
		v.addError("%s: parentConditionId %q does not reference an earlier condition block", path, parent)
	}
}

func (v *validator) validateConditions(c Conditions, path string) {
	want := max(0, len(c.Groups)-1)
	if len(c.GroupConnectors) != want {
		v.addError("%s: expected %d group connectors, got %d", path, want, len(c.GroupConnectors))
	}
	for i, conn := range c.GroupConnectors {
		v.validateConnector(conn, fmt.Sprintf("%s.groupConnectors[%d]", path, i))
	}

	for i, g := range c.Groups {
		gpath := fmt.Sprintf("%s.groups[%d]", path, i)
		if len(g.Conditions) == 0 {
			v.addError("%s: group has no conditions", gpath)
		}
		if g.Connector != "" {
			v.validateConnector(g.Connector, gpath+".connector")
		}
		if len(g.Connectors) > 0 && len(g.Connectors) != len(g.Conditions)-1 {
			v.addError("%s: expected %d connectors, got %d", gpath, len(g.Conditions)-1, len(g.Connectors))
		}
		for j, cond := range g.Conditions {
			cpath := fmt.Sprintf("%s.conditions[%d]", gpath, j)
			v.validateTarget(cond.Target, cpath+".target")
			if !slices.Contains(validOperators, cond.Operator) {
				v.addError("%s: unsupported operator %q", cpath, cond.Operator)
			}
			if _, ok := cond.Value.Float(); !ok {
				v.addError("%s: value %q is not a number", cpath, cond.Value.String())
			}
		}
	}
}

func (v *validator) validateConnector(c Connector, path string) {
	if c != ConnectorAnd && c != ConnectorOr {
		v.addError("%s: unknown connector %q", path, c)
	}
}

func (v *validator) validateTarget(t Target, path string) {
	if !t.Kind.IsState() {
		v.addError("%s: unknown target kind %q", path, t.Kind)
	}
	if t.ID == "" {
		v.addError("%s: target id is required", path)
	}
}

func (v *validator) validateAction(a Action, path string) {
	if !v.profile.Allows(a.Type) {
		if _, known := actionTypes[a.Type]; known {
			v.addError("%s: action type %q is not allowed in %s macros", path, a.Type, v.profile)
		} else {
			v.addError("%s: unknown action type %q", path, a.Type)
		}
		return
	}

	switch a.Type {
	case ActionIncrease, ActionDecrease:
		if a.Target == nil {
			v.addError("%s: target is required", path)
		} else {
			v.validateTarget(*a.Target, path+".target")
		}
		if _, ok := a.Amount.Float(); !ok {
			v.addError("%s: amount %q is not a number", path, a.Amount.String())
		}
	case ActionChange:
		if a.Target == nil {
			v.addError("%s: target is required", path)
		}
		if a.Value.IsZero() {
			v.addError("%s: value is required", path)
		}
	case ActionAddJudgeDamage:
		if a.Value.IsZero() {
			v.addError("%s: value is required", path)
		}
	case ActionAddEffectText:
		if a.Text == "" {
			v.addError("%s: text is required", path)
		}
	case ActionShowChoice:
		if len(a.Options) == 0 {
			v.addError("%s: show-choice has no options", path)
		}
		for i, opt := range a.Options {
			opath := fmt.Sprintf("%s.options[%d]", path, i)
			if opt.Label == "" {
				v.addError("%s: label is required", opath)
			}
			for j, nested := range opt.Actions {
				v.validateAction(nested, fmt.Sprintf("%s.actions[%d]", opath, j))
			}
		}
	}
}

var actionTypes = map[ActionType]bool{
	ActionIncrease:       true,
	ActionDecrease:       true,
	ActionChange:         true,
	ActionAddJudgeDamage: true,
	ActionAddEffectText:  true,
	ActionShowChoice:     true,
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}
