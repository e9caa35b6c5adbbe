package macro

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RawMacro is the loose shape accepted at ingestion. Three shapes have been
// persisted over time:
//
//	{"blocks": [...]}                    current
//	{"conditions": {...}, "actions": []} guarded action list
//	{"actions": [...]}                   unguarded action list
type RawMacro struct {
	Version    int         `json:"version,omitempty"`
	Conditions *Conditions `json:"conditions,omitempty"`
	Blocks     []rawBlock  `json:"blocks,omitempty"`
	Actions    []Action    `json:"actions,omitempty"`
}

// rawBlock tolerates blocks written without a type tag
type rawBlock struct {
	ID                string      `json:"id,omitempty"`
	Type              BlockType   `json:"type,omitempty"`
	ParentConditionID *string     `json:"parentConditionId"`
	Conditions        *Conditions `json:"conditions,omitempty"`
	Action            *Action     `json:"action,omitempty"`
}

// Parse decodes a macro in any known shape and returns it in canonical form.
// Only malformed JSON is an error; shape problems are left to Validate.
func Parse(data []byte) (*Macro, error) {
	var m Macro
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal macro: %w", err)
	}
	return &m, nil
}

// UnmarshalJSON lets macros embedded in other documents use any known shape
func (m *Macro) UnmarshalJSON(data []byte) error {
	var raw RawMacro
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = *FromRaw(raw)
	return nil
}

// FromRaw converts an already-decoded RawMacro into a canonical Macro
func FromRaw(raw RawMacro) *Macro {
	m := NewEmptyMacro()
	if raw.Version > 0 {
		m.Version = raw.Version
	}
	// A guarded action list keeps its conditions in both places. The
	// pre-guard lets callers refuse the whole macro with a failure report
	// before anything runs; the synthesized block keeps the actions guarded
	// when only Blocks is executed. Both see the same state, so they agree.
	if raw.Conditions != nil {
		m.Conditions = normalizeConditions(*raw.Conditions)
	}
	m.Blocks = NormalizeMacroBlocks(raw)
	return m
}

// NormalizeMacroBlocks canonicalizes the three historical shapes into an
// ordered block sequence. Block type inference happens here and nowhere else.
func NormalizeMacroBlocks(raw RawMacro) []Block {
	if len(raw.Blocks) > 0 {
		blocks := make([]Block, 0, len(raw.Blocks))
		for _, rb := range raw.Blocks {
			b := Block{
				ID:                rb.ID,
				Type:              rb.Type,
				ParentConditionID: rb.ParentConditionID,
				Conditions:        rb.Conditions,
				Action:            rb.Action,
			}
			if b.Type == "" {
				if b.Conditions != nil && b.Action == nil {
					b.Type = BlockCondition
				} else {
					b.Type = BlockAction
				}
			}
			if b.Conditions != nil {
				conds := normalizeConditions(*b.Conditions)
				b.Conditions = &conds
			}
			blocks = append(blocks, b)
		}
		return blocks
	}

	if len(raw.Actions) == 0 {
		return []Block{}
	}

	blocks := make([]Block, 0, len(raw.Actions)+1)
	var parent *string
	if raw.Conditions != nil && !raw.Conditions.IsEmpty() {
		id := uuid.NewString()
		conds := normalizeConditions(*raw.Conditions)
		blocks = append(blocks, Block{
			ID:         id,
			Type:       BlockCondition,
			Conditions: &conds,
		})
		parent = &id
	}

	for i := range raw.Actions {
		action := raw.Actions[i]
		blocks = append(blocks, Block{
			Type:              BlockAction,
			ParentConditionID: parent,
			Action:            &action,
		})
	}
	return blocks
}

// normalizeConditions guarantees non-nil slices so the set serializes as
// {"groups": [], "groupConnectors": []}
func normalizeConditions(c Conditions) Conditions {
	if c.Groups == nil {
		c.Groups = []ConditionGroup{}
	}
	if c.GroupConnectors == nil {
		c.GroupConnectors = []Connector{}
	}
	return c
}
