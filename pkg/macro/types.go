package macro

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CurrentVersion is the schema version written by NewEmptyMacro
const CurrentVersion = 1

// TargetKind identifies the kind of quantity a Target points at
type TargetKind string

const (
	KindBuff     TargetKind = "buff"
	KindResource TargetKind = "resource"
	KindAbility  TargetKind = "ability"
)

// IsState reports whether the kind refers to a mutable host quantity
func (k TargetKind) IsState() bool {
	return k == KindBuff || k == KindResource || k == KindAbility
}

// Target identifies a quantity source
type Target struct {
	Kind  TargetKind `json:"kind"`
	ID    string     `json:"id"`
	Label string     `json:"label,omitempty"`
}

// Name returns the label when set, otherwise kind:id
func (t Target) Name() string {
	if t.Label != "" {
		return t.Label
	}
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}

// Operator is a comparison operator used by conditions
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
)

// Connector joins sibling conditions or sibling groups
type Connector string

const (
	ConnectorAnd Connector = "AND"
	ConnectorOr  Connector = "OR"
)

// Value is a JSON scalar that may be written as either a number or a string.
// Editors have historically emitted both 5 and "5" for the same field.
type Value struct {
	Text     string
	Number   float64
	IsNumber bool
}

// NumberValue returns a numeric Value
func NumberValue(n float64) Value {
	return Value{Number: n, IsNumber: true, Text: strconv.FormatFloat(n, 'f', -1, 64)}
}

// TextValue returns a string Value
func TextValue(s string) Value {
	return Value{Text: s}
}

// UnmarshalJSON accepts numbers, strings and null
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberValue(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("value must be a number or a string: %w", err)
	}
	*v = TextValue(s)
	return nil
}

// MarshalJSON writes numbers as JSON numbers and everything else as strings
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNumber {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

// Float returns the value as a finite number. Blank strings are not numeric.
func (v Value) Float() (float64, bool) {
	if v.IsNumber {
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return 0, false
		}
		return v.Number, true
	}
	s := strings.TrimSpace(v.Text)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// String returns the literal text of the value
func (v Value) String() string {
	if v.IsNumber {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// IsZero reports whether the value was never set
func (v Value) IsZero() bool {
	return !v.IsNumber && v.Text == ""
}

// Condition compares a target's current value against a constant
type Condition struct {
	Target   Target   `json:"target"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
}

// ConditionGroup combines conditions with a connector.
// Connectors optionally overrides the connector per adjacent pair.
type ConditionGroup struct {
	Connector  Connector   `json:"connector"`
	Connectors []Connector `json:"connectors,omitempty"`
	Conditions []Condition `json:"conditions"`
}

// PairConnector returns the connector joining conditions i and i+1
func (g ConditionGroup) PairConnector(i int) Connector {
	if i >= 0 && i < len(g.Connectors) && g.Connectors[i] != "" {
		return g.Connectors[i]
	}
	if g.Connector == "" {
		return ConnectorAnd
	}
	return g.Connector
}

// Conditions is a full condition set: groups joined by group connectors
type Conditions struct {
	Groups          []ConditionGroup `json:"groups"`
	GroupConnectors []Connector      `json:"groupConnectors"`
}

// GroupConnector returns the connector joining groups i and i+1
func (c Conditions) GroupConnector(i int) Connector {
	if i >= 0 && i < len(c.GroupConnectors) && c.GroupConnectors[i] != "" {
		return c.GroupConnectors[i]
	}
	return ConnectorAnd
}

// IsEmpty reports whether the set has no groups (vacuously true)
func (c Conditions) IsEmpty() bool {
	return len(c.Groups) == 0
}

// ActionType tags the Action union
type ActionType string

const (
	ActionIncrease       ActionType = "increase"
	ActionDecrease       ActionType = "decrease"
	ActionChange         ActionType = "change"
	ActionAddJudgeDamage ActionType = "add-judge-damage"
	ActionAddEffectText  ActionType = "add-effect-text"
	ActionShowChoice     ActionType = "show-choice"
)

// Action is one step of a macro body. Which fields are meaningful depends on Type:
//
//	increase, decrease: Target, Amount
//	change:             Target, Value
//	add-judge-damage:   Value (Target optional, selects the channel)
//	add-effect-text:    Text
//	show-choice:        Question, Options
type Action struct {
	Type     ActionType     `json:"type"`
	Target   *Target        `json:"target,omitempty"`
	Amount   Value          `json:"amount,omitzero"`
	Value    Value          `json:"value,omitzero"`
	Text     string         `json:"text,omitempty"`
	Question string         `json:"question,omitempty"`
	Options  []ChoiceOption `json:"options,omitempty"`
}

// ChoiceOption is one branch of a show-choice action
type ChoiceOption struct {
	Label   string   `json:"label"`
	Actions []Action `json:"actions"`
}

// BlockType tags a Block
type BlockType string

const (
	BlockCondition BlockType = "condition"
	BlockAction    BlockType = "action"
)

// Block is one unit of a macro body
type Block struct {
	ID                string      `json:"id,omitempty"`
	Type              BlockType   `json:"type"`
	ParentConditionID *string     `json:"parentConditionId"`
	Conditions        *Conditions `json:"conditions,omitempty"`
	Action            *Action     `json:"action,omitempty"`
}

// Macro is the persisted and executed unit.
// Conditions is a pre-guard consulted by callers; Blocks is the body.
type Macro struct {
	Version    int        `json:"version"`
	Conditions Conditions `json:"conditions"`
	Blocks     []Block    `json:"blocks"`
}

// NewEmptyMacro returns the canonical empty macro
func NewEmptyMacro() *Macro {
	return &Macro{
		Version: CurrentVersion,
		Conditions: Conditions{
			Groups:          []ConditionGroup{},
			GroupConnectors: []Connector{},
		},
		Blocks: []Block{},
	}
}
