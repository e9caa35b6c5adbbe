package actor

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwebster45206/macro-engine/pkg/engine"
	"github.com/jwebster45206/macro-engine/pkg/macro"
)

func floatPtr(f float64) *float64 { return &f }

func testSpec() *CharacterSpec {
	return &CharacterSpec{
		ID:    "swordsman",
		Name:  "Test Swordsman",
		HP:    15,
		MaxHP: 20,
		AC:    14,
		Attributes: map[string]int{
			"strength": 16,
		},
		Resources: map[string]ResourceSpec{
			"mp": {Name: "MP", Value: 3, Max: floatPtr(10)},
			"tp": {Name: "TP", Value: 0, Min: floatPtr(-5)},
		},
		Abilities: map[string]AbilitySpec{
			"slash": {Name: "Slash", Charges: 1, MaxCharges: 2, JudgeCommand: "2d6+4"},
		},
		Buffs: []ActiveBuff{
			{BuffID: "haste", Name: "Haste", Turns: 2},
			{BuffID: "haste", Name: "Haste", Turns: 1},
			{BuffID: "guard", Name: "Guard"},
		},
	}
}

func TestNewCharacterFromSpec(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}

	if c.Actor == nil {
		t.Fatal("Actor should be built when MaxHP > 0")
	}
	if c.Actor.HP() != 15 {
		t.Errorf("Actor.HP() = %d, want %d", c.Actor.HP(), 15)
	}
	if c.Actor.MaxHP() != 20 {
		t.Errorf("Actor.MaxHP() = %d, want %d", c.Actor.MaxHP(), 20)
	}
	if c.Actor.AC() != 14 {
		t.Errorf("Actor.AC() = %d, want %d", c.Actor.AC(), 14)
	}
	if v, ok := c.Actor.Attribute("strength"); !ok || v != 16 {
		t.Errorf("Actor.Attribute('strength') = %d, %v, want 16, true", v, ok)
	}
	if c.SessionID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("SessionID should be assigned")
	}
}

func TestNewCharacterFromSpec_NoHP(t *testing.T) {
	spec := testSpec()
	spec.HP, spec.MaxHP = 0, 0

	c, err := NewCharacterFromSpec(spec)
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}
	if c.Actor != nil {
		t.Error("Actor should be nil without hit points")
	}
	if _, ok := c.LookupResource(HPResource); ok {
		t.Error("hp should not resolve without an actor")
	}
}

func TestNewCharacterFromSpec_Nil(t *testing.T) {
	if _, err := NewCharacterFromSpec(nil); err == nil {
		t.Error("NewCharacterFromSpec(nil) should return error")
	}
}

func TestCharacter_Lookups(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}
	r := c.Resolver()

	tests := []struct {
		name   string
		target macro.Target
		want   float64
		ok     bool
	}{
		{"resource", macro.Target{Kind: macro.KindResource, ID: "mp"}, 3, true},
		{"hp", macro.Target{Kind: macro.KindResource, ID: "hp"}, 15, true},
		{"ability charges", macro.Target{Kind: macro.KindAbility, ID: "slash"}, 1, true},
		{"buff stack", macro.Target{Kind: macro.KindBuff, ID: "haste"}, 2, true},
		{"buff by name", macro.Target{Kind: macro.KindBuff, ID: "Guard"}, 1, true},
		{"absent buff", macro.Target{Kind: macro.KindBuff, ID: "regen"}, 0, true},
		{"unknown resource", macro.Target{Kind: macro.KindResource, ID: "sp"}, 0, false},
		{"unknown ability", macro.Target{Kind: macro.KindAbility, ID: "thrust"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.TargetValue(tt.target)
			if ok != tt.ok || got != tt.want {
				t.Errorf("TargetValue(%s) = %v, %v, want %v, %v", tt.target.Name(), got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCharacter_ResourceBounds(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}

	mp, _ := c.LookupResource("mp")
	if mp.Min != 0 || mp.Max != 10 {
		t.Errorf("mp bounds = [%v, %v], want [0, 10]", mp.Min, mp.Max)
	}
	tp, _ := c.LookupResource("tp")
	if tp.Min != -5 || !math.IsInf(tp.Max, 1) {
		t.Errorf("tp bounds = [%v, %v], want [-5, +Inf]", tp.Min, tp.Max)
	}
	slash, _ := c.LookupAbility("slash")
	if slash.Max != 2 {
		t.Errorf("slash max = %v, want 2", slash.Max)
	}
	buff, _ := c.LookupBuff("haste")
	if buff.SetValue != nil {
		t.Error("buff state should be read-only")
	}
}

func TestCharacter_ExecuteWritesThrough(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}

	m := &macro.Macro{
		Version: macro.CurrentVersion,
		Blocks: []macro.Block{
			{Type: macro.BlockAction, Action: &macro.Action{
				Type: macro.ActionIncrease, Target: &macro.Target{Kind: macro.KindResource, ID: "mp"}, Amount: macro.NumberValue(20),
			}},
			{Type: macro.BlockAction, Action: &macro.Action{
				Type: macro.ActionDecrease, Target: &macro.Target{Kind: macro.KindAbility, ID: "slash"}, Amount: macro.NumberValue(1),
			}},
			{Type: macro.BlockAction, Action: &macro.Action{
				Type: macro.ActionDecrease, Target: &macro.Target{Kind: macro.KindResource, ID: "hp"}, Amount: macro.NumberValue(4),
			}},
			{Type: macro.BlockAction, Action: &macro.Action{
				Type: macro.ActionIncrease, Target: &macro.Target{Kind: macro.KindBuff, ID: "haste"}, Amount: macro.NumberValue(1),
			}},
		},
	}

	res := engine.New(nil).ExecuteMacro(m, c.Resolver(), engine.Options{})

	if got := c.Spec.Resources["mp"].Value; got != 10 {
		t.Errorf("mp = %v, want 10", got)
	}
	if got := c.Spec.Abilities["slash"].Charges; got != 0 {
		t.Errorf("slash charges = %d, want 0", got)
	}
	if got := c.Actor.HP(); got != 11 {
		t.Errorf("hp = %d, want 11", got)
	}
	if c.BuffCount("haste") != 2 {
		t.Errorf("buff count changed to %d", c.BuffCount("haste"))
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want one read-only warning", res.Warnings)
	}
}

func TestCharacter_ExpireBuffs(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}

	expired := c.ExpireBuffs()
	if len(expired) != 1 || expired[0].BuffID != "haste" {
		t.Errorf("expired = %v, want one haste", expired)
	}
	if c.BuffCount("haste") != 1 {
		t.Errorf("haste count = %d, want 1", c.BuffCount("haste"))
	}
	if c.BuffCount("guard") != 1 {
		t.Error("indefinite buff should not expire")
	}

	c.ExpireBuffs()
	if c.BuffCount("haste") != 0 {
		t.Errorf("haste count = %d, want 0", c.BuffCount("haste"))
	}
}

func TestLoadCharacterSpec(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "mage.json")

	content := `{
		"id": "ignored",
		"name": "Mage",
		"max_hp": 12,
		"hp": 12,
		"resources": {"mp": {"value": 8, "max": 8}},
		"abilities": {
			"fireball": {
				"charges": 1,
				"damage_command": "2d6",
				"macro": {"actions": [{"type": "add-judge-damage", "value": "2"}]}
			}
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	spec, err := LoadCharacterSpec(path)
	if err != nil {
		t.Fatalf("LoadCharacterSpec() error = %v", err)
	}
	if spec.ID != "mage" {
		t.Errorf("ID = %q, want %q", spec.ID, "mage")
	}
	fb := spec.Abilities["fireball"]
	if fb.Macro == nil || len(fb.Macro.Blocks) != 1 {
		t.Fatalf("fireball macro not normalized: %+v", fb.Macro)
	}
	if fb.Macro.Blocks[0].Type != macro.BlockAction {
		t.Errorf("block type = %q, want %q", fb.Macro.Blocks[0].Type, macro.BlockAction)
	}
}

func TestLoadCharacterSpec_Errors(t *testing.T) {
	if _, err := LoadCharacterSpec("/nonexistent/path.json"); err == nil {
		t.Error("LoadCharacterSpec() with nonexistent file should return error")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{invalid"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	if _, err := LoadCharacterSpec(path); err == nil {
		t.Error("LoadCharacterSpec() with invalid JSON should return error")
	}
}

func TestCharacter_JSONRoundTrip(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}
	if err := c.Actor.SetHP(9); err != nil {
		t.Fatalf("SetHP() error = %v", err)
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var restored Character
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if restored.SessionID != c.SessionID {
		t.Errorf("SessionID = %v, want %v", restored.SessionID, c.SessionID)
	}
	if restored.Actor == nil || restored.Actor.HP() != 9 {
		t.Errorf("restored HP mismatch")
	}
	if restored.Spec.Resources["mp"].Value != 3 {
		t.Errorf("mp = %v, want 3", restored.Spec.Resources["mp"].Value)
	}
	if len(restored.Spec.Buffs) != 3 {
		t.Errorf("buffs = %d, want 3", len(restored.Spec.Buffs))
	}
}

func TestCharacter_MarshalNil(t *testing.T) {
	var c *Character
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "null" {
		t.Errorf("MarshalJSON() with nil Character = %q, want %q", string(data), "null")
	}
}

func TestCharacter_DownedHPSurvivesRoundTrip(t *testing.T) {
	c, err := NewCharacterFromSpec(&CharacterSpec{ID: "squire", HP: 5, MaxHP: 20})
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}

	m := &macro.Macro{
		Version: macro.CurrentVersion,
		Blocks: []macro.Block{
			{Type: macro.BlockAction, Action: &macro.Action{
				Type: macro.ActionDecrease, Target: &macro.Target{Kind: macro.KindResource, ID: HPResource}, Amount: macro.NumberValue(10),
			}},
		},
	}
	res := engine.New(nil).ExecuteMacro(m, c.Resolver(), engine.Options{})
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if c.Actor.HP() != 0 {
		t.Fatalf("hp after apply = %d, want 0", c.Actor.HP())
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var restored Character
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if restored.Actor == nil {
		t.Fatal("Actor should be rebuilt from session JSON")
	}
	if restored.Actor.HP() != 0 {
		t.Errorf("restored hp = %d, want 0", restored.Actor.HP())
	}
	if restored.Spec.HP != 0 || restored.Spec.MaxHP != 20 {
		t.Errorf("restored spec hp = %d/%d, want 0/20", restored.Spec.HP, restored.Spec.MaxHP)
	}

	// A second save keeps the character down
	again, err := json.Marshal(&restored)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var twice Character
	if err := json.Unmarshal(again, &twice); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if twice.Actor.HP() != 0 {
		t.Errorf("hp after second round trip = %d, want 0", twice.Actor.HP())
	}
}

func TestLoadCharacterSpec_ExplicitZeroHP(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantHP  int
	}{
		{"missing hp starts full", `{"max_hp": 12}`, 12},
		{"explicit zero stays down", `{"hp": 0, "max_hp": 12}`, 0},
		{"partial hp", `{"hp": 7, "max_hp": 12}`, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "squire.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write test file: %v", err)
			}

			spec, err := LoadCharacterSpec(path)
			if err != nil {
				t.Fatalf("LoadCharacterSpec() error = %v", err)
			}
			c, err := NewCharacterFromSpec(spec)
			if err != nil {
				t.Fatalf("NewCharacterFromSpec() error = %v", err)
			}
			if c.Actor.HP() != tt.wantHP {
				t.Errorf("hp = %d, want %d", c.Actor.HP(), tt.wantHP)
			}
		})
	}
}

func TestCharacter_SnapshotWritesZeroHP(t *testing.T) {
	c, err := NewCharacterFromSpec(&CharacterSpec{ID: "squire", HP: 3, MaxHP: 10})
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}
	if err := c.Actor.SetHP(0); err != nil {
		t.Fatalf("SetHP() error = %v", err)
	}

	data, err := json.Marshal(c.Snapshot())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "squire.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	spec, err := LoadCharacterSpec(path)
	if err != nil {
		t.Fatalf("LoadCharacterSpec() error = %v", err)
	}
	reloaded, err := NewCharacterFromSpec(spec)
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}
	if reloaded.Actor.HP() != 0 {
		t.Errorf("reloaded hp = %d, want 0", reloaded.Actor.HP())
	}
}
