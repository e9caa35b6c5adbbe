package actor

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/d20"

	"github.com/jwebster45206/macro-engine/pkg/engine"
	"github.com/jwebster45206/macro-engine/pkg/macro"
)

// HPResource is the resource id bound to the d20 actor's hit points
const HPResource = "hp"

// ResourceSpec is a pooled numeric resource such as MP or TP.
// A nil Min means 0; a nil Max means unbounded.
type ResourceSpec struct {
	Name  string   `json:"name,omitempty"`
	Value float64  `json:"value"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Bounds returns the effective lower and upper bounds
func (r *ResourceSpec) Bounds() (float64, float64) {
	lo, hi := 0.0, math.Inf(1)
	if r.Min != nil {
		lo = *r.Min
	}
	if r.Max != nil {
		hi = *r.Max
	}
	return lo, hi
}

// AbilitySpec is an ability with a charge counter and its macro.
// MaxCharges of 0 leaves the counter uncapped.
type AbilitySpec struct {
	Name          string       `json:"name,omitempty"`
	Charges       int          `json:"charges"`
	MaxCharges    int          `json:"max_charges,omitempty"`
	JudgeCommand  string       `json:"judge_command,omitempty"`  // base dice command, e.g. "2d6+4"
	DamageCommand string       `json:"damage_command,omitempty"` // base dice command, e.g. "1d8+2"
	Macro         *macro.Macro `json:"macro,omitempty"`
}

// ActiveBuff is one applied buff instance. Turns <= 0 means it does not expire.
type ActiveBuff struct {
	BuffID string `json:"buff_id"`
	Name   string `json:"name,omitempty"`
	Turns  int    `json:"turns,omitempty"`
}

// CharacterSpec is the serializable specification of a character
type CharacterSpec struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name,omitempty"`
	Description     string                  `json:"description,omitempty"`
	HP              int                     `json:"hp"`
	MaxHP           int                     `json:"max_hp,omitempty"`
	AC              int                     `json:"ac,omitempty"`
	Attributes      map[string]int          `json:"attributes,omitempty"`
	CombatModifiers map[string]int          `json:"combat_modifiers,omitempty"`
	Resources       map[string]ResourceSpec `json:"resources,omitempty"`
	Abilities       map[string]AbilitySpec  `json:"abilities,omitempty"`
	Buffs           []ActiveBuff            `json:"buffs,omitempty"`
	TurnMacro       *macro.Macro            `json:"turn_macro,omitempty"`  // runs at the start of each turn
	RoundMacro      *macro.Macro            `json:"round_macro,omitempty"` // runs at the start of each round

	// hpSet marks HP as explicit. An unset HP of 0 starts at MaxHP; a set
	// HP of 0 is a downed character.
	hpSet bool
}

// Character is the runtime representation of a character in a session
type Character struct {
	SessionID uuid.UUID
	UpdatedAt time.Time
	Spec      *CharacterSpec
	Actor     *d20.Actor // Built at runtime when the character has hit points
}

// Ensure Character can back an engine resolver
var _ engine.TargetRepository = (*Character)(nil)

// NewCharacterFromSpec builds a character session from a spec
func NewCharacterFromSpec(spec *CharacterSpec) (*Character, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}

	c := &Character{
		SessionID: uuid.New(),
		Spec:      spec,
	}
	if err := c.buildActor(); err != nil {
		return nil, err
	}
	return c, nil
}

// buildActor creates the d20 actor backing the hp resource
func (c *Character) buildActor() error {
	spec := c.Spec
	if spec.MaxHP <= 0 {
		c.Actor = nil
		return nil
	}

	attrs := make(map[string]int)
	maps.Copy(attrs, spec.Attributes)

	a, err := d20.NewActor(spec.ID).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(attrs).
		WithCombatModifiers(spec.CombatModifiers).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build actor: %w", err)
	}

	if spec.HP != spec.MaxHP && (spec.HP > 0 || spec.hpSet) {
		if err := a.SetHP(spec.HP); err != nil {
			return fmt.Errorf("failed to set HP: %w", err)
		}
	}

	c.Actor = a
	return nil
}

// LoadCharacterSpec reads a character spec from a JSON file.
// The filename (without .json extension) overrides any ID in the JSON.
func LoadCharacterSpec(path string) (*CharacterSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read character file: %w", err)
	}

	var spec CharacterSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character spec: %w", err)
	}
	spec.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	spec.hpSet = hasField(data, "hp")

	return &spec, nil
}

// hasField reports whether the top-level JSON object carries key
func hasField(data []byte, key string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	_, ok := fields[key]
	return ok
}

// Resolver returns an engine resolver over this character
func (c *Character) Resolver() engine.Resolver {
	return engine.NewRepositoryResolver(c)
}

// LookupResource resolves a pooled resource. The hp resource reads and
// writes the d20 actor.
func (c *Character) LookupResource(id string) (*engine.TargetState, bool) {
	if id == HPResource && c.Actor != nil {
		a := c.Actor
		return &engine.TargetState{
			Value: float64(a.HP()),
			Min:   0,
			Max:   float64(a.MaxHP()),
			SetValue: func(next float64) error {
				return a.SetHP(int(math.Round(next)))
			},
		}, true
	}

	r, ok := c.Spec.Resources[id]
	if !ok {
		return nil, false
	}
	lo, hi := r.Bounds()
	return &engine.TargetState{
		Value: r.Value,
		Min:   lo,
		Max:   hi,
		SetValue: func(next float64) error {
			current := c.Spec.Resources[id]
			current.Value = next
			c.Spec.Resources[id] = current
			return nil
		},
	}, true
}

// LookupAbility resolves an ability's charge counter
func (c *Character) LookupAbility(id string) (*engine.TargetState, bool) {
	ab, ok := c.Spec.Abilities[id]
	if !ok {
		return nil, false
	}
	hi := math.Inf(1)
	if ab.MaxCharges > 0 {
		hi = float64(ab.MaxCharges)
	}
	return &engine.TargetState{
		Value: float64(ab.Charges),
		Min:   0,
		Max:   hi,
		SetValue: func(next float64) error {
			current := c.Spec.Abilities[id]
			current.Charges = int(math.Round(next))
			c.Spec.Abilities[id] = current
			return nil
		},
	}, true
}

// LookupBuff resolves a buff to the number of active instances matching id
// by buff id or name. Buff counts are read-only: there is no write path, so
// the returned state has no SetValue.
func (c *Character) LookupBuff(id string) (*engine.TargetState, bool) {
	if id == "" {
		return nil, false
	}
	return &engine.TargetState{
		Value: float64(c.BuffCount(id)),
		Min:   0,
		Max:   math.Inf(1),
	}, true
}

// BuffCount counts active buffs whose id or name equals id
func (c *Character) BuffCount(id string) int {
	count := 0
	for _, b := range c.Spec.Buffs {
		if b.BuffID == id || (b.Name != "" && b.Name == id) {
			count++
		}
	}
	return count
}

// ExpireBuffs ticks timed buffs down by one turn and drops those that
// reach zero. It returns the expired buffs.
func (c *Character) ExpireBuffs() []ActiveBuff {
	var (
		kept    []ActiveBuff
		expired []ActiveBuff
	)
	for _, b := range c.Spec.Buffs {
		if b.Turns <= 0 {
			kept = append(kept, b)
			continue
		}
		b.Turns--
		if b.Turns == 0 {
			expired = append(expired, b)
			continue
		}
		kept = append(kept, b)
	}
	c.Spec.Buffs = kept
	return expired
}

// Ability returns the named ability
func (c *Character) Ability(id string) (AbilitySpec, bool) {
	ab, ok := c.Spec.Abilities[id]
	return ab, ok
}

// Snapshot returns the CharacterSpec with runtime HP copied back from the actor
func (c *Character) Snapshot() *CharacterSpec {
	spec := *c.Spec
	if c.Actor != nil {
		spec.HP = c.Actor.HP()
		spec.MaxHP = c.Actor.MaxHP()
		spec.hpSet = true
	}
	return &spec
}

// characterJSON is the wire form of a Character
type characterJSON struct {
	SessionID uuid.UUID `json:"session_id"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	*CharacterSpec
}

// MarshalJSON writes the session fields alongside the current spec
func (c *Character) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	return json.Marshal(characterJSON{
		SessionID:     c.SessionID,
		UpdatedAt:     c.UpdatedAt,
		CharacterSpec: c.Snapshot(),
	})
}

// UnmarshalJSON reconstructs a Character and rebuilds its actor
func (c *Character) UnmarshalJSON(data []byte) error {
	aux := characterJSON{CharacterSpec: &CharacterSpec{}}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("failed to unmarshal character: %w", err)
	}

	c.SessionID = aux.SessionID
	c.UpdatedAt = aux.UpdatedAt
	c.Spec = aux.CharacterSpec
	c.Spec.hpSet = hasField(data, "hp")
	if err := c.buildActor(); err != nil {
		return fmt.Errorf("failed to rebuild actor: %w", err)
	}
	return nil
}
