package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwebster45206/macro-engine/pkg/macro"
)

const effectMacro = `{
	"blocks": [
		{"type": "action", "action": {"type": "add-effect-text", "text": "Sparks fly"}}
	]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantFile    string
		wantProfile macro.Profile
		wantErr     bool
	}{
		{"file only", []string{"a.json"}, "a.json", macro.ProfileAbility, false},
		{"profile first", []string{"-profile", "turn", "a.json"}, "a.json", macro.ProfileTurn, false},
		{"profile after file", []string{"a.json", "-profile", "turn"}, "a.json", macro.ProfileTurn, false},
		{"no file", []string{"-profile", "turn"}, "", "", true},
		{"unknown profile", []string{"a.json", "-profile", "round"}, "", "", true},
		{"extra args", []string{"a.json", "b.json"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, profile, err := parseArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if file != tt.wantFile || profile != tt.wantProfile {
				t.Errorf("parseArgs() = %q, %q, want %q, %q", file, profile, tt.wantFile, tt.wantProfile)
			}
		})
	}
}

func TestValidateFile_Macro(t *testing.T) {
	path := writeFile(t, "sparks.json", effectMacro)

	var out bytes.Buffer
	v := &MacroValidator{out: &out}
	if err := v.validateFile(path, macro.ProfileAbility); err != nil {
		t.Fatalf("validateFile() error = %v", err)
	}
	if !strings.Contains(out.String(), "Ability Macro file is valid!") {
		t.Errorf("output = %q", out.String())
	}

	err := v.validateFile(path, macro.ProfileTurn)
	if err == nil {
		t.Fatal("add-effect-text should be rejected in turn macros")
	}
	if !strings.Contains(err.Error(), "not allowed in turn macros") {
		t.Errorf("error = %v", err)
	}
}

func TestValidateFile_LegacyMacro(t *testing.T) {
	path := writeFile(t, "legacy_guard.json", `{
		"conditions": {"groups": [{"conditions": [{"target": {"kind": "resource", "id": "mp"}, "operator": ">=", "value": 2}]}]},
		"actions": [{"type": "decrease", "target": {"kind": "resource", "id": "mp"}, "amount": "2"}]
	}`)

	v := &MacroValidator{out: &bytes.Buffer{}}
	if err := v.validateFile(path, macro.ProfileTurn); err != nil {
		t.Errorf("validateFile() error = %v", err)
	}
}

func TestValidateFile_FileErrors(t *testing.T) {
	v := &MacroValidator{out: &bytes.Buffer{}}

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"extension", "sparks.txt", effectMacro, ".json extension"},
		{"file name", "Power Strike.json", effectMacro, "must be lowercase"},
		{"invalid json", "broken.json", "{invalid", "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			err := v.validateFile(path, macro.ProfileAbility)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateFile() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if err := v.validateFile("/nonexistent/missing.json", macro.ProfileAbility); err == nil {
		t.Error("validateFile() with missing file should return error")
	}
}

func TestValidateFile_Character(t *testing.T) {
	valid := `{
		"name": "Swordsman",
		"hp": 20,
		"max_hp": 20,
		"resources": {"mp": {"value": 3, "max": 10}},
		"abilities": {
			"power-strike": {"charges": 1, "max_charges": 2, "macro": ` + effectMacro + `}
		},
		"buffs": [{"buff_id": "guard", "turns": 1}],
		"turn_macro": {"actions": [{"type": "increase", "target": {"kind": "resource", "id": "mp"}, "amount": 1}]}
	}`

	var out bytes.Buffer
	v := &MacroValidator{out: &out}
	if err := v.validateFile(writeFile(t, "swordsman.json", valid), macro.ProfileAbility); err != nil {
		t.Fatalf("validateFile() error = %v", err)
	}
	if !strings.Contains(out.String(), "Character file is valid!") {
		t.Errorf("output = %q", out.String())
	}

	invalid := `{
		"name": "Broken",
		"hp": 30,
		"max_hp": 20,
		"resources": {"mp": {"value": 12, "max": 10}},
		"abilities": {"Power Strike": {"charges": 3, "max_charges": 2}},
		"buffs": [{"turns": 1}],
		"turn_macro": ` + effectMacro + `,
		"unknown_field": true
	}`
	err := v.validateFile(writeFile(t, "broken.json", invalid), macro.ProfileAbility)
	if err == nil || !strings.Contains(err.Error(), "strict JSON unmarshaling failed") {
		t.Fatalf("validateFile() error = %v, want strict failure", err)
	}

	invalid = strings.Replace(invalid, `,
		"unknown_field": true`, "", 1)
	err = v.validateFile(writeFile(t, "broken.json", invalid), macro.ProfileAbility)
	if err == nil {
		t.Fatal("validateFile() should report character errors")
	}
	for _, want := range []string{
		"hp 30 exceeds max_hp 20",
		"resource mp: value 12 outside [0, 10]",
		"ability ID 'Power Strike'",
		"charges 3 exceed max_charges 2",
		"buffs[0]: buff_id is required",
		"turn_macro.",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestIsValidID(t *testing.T) {
	tests := map[string]bool{
		"power-strike": true,
		"fire_ball":    true,
		"mp":           true,
		"a1":           true,
		"Power":        false,
		"-lead":        false,
		"trail_":       false,
		"has space":    false,
		"":             false,
	}
	for id, want := range tests {
		if got := isValidID(id); got != want {
			t.Errorf("isValidID(%q) = %v, want %v", id, got, want)
		}
	}
}
