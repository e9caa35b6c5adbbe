package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/macro-engine/pkg/actor"
	"github.com/jwebster45206/macro-engine/pkg/macro"
)

func main() {
	filename, profile, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Fprintf(os.Stderr, "Usage: %s <file.json> [-profile ability|turn]\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}

	validator := &MacroValidator{out: os.Stdout}
	if err := validator.validateFile(filename, profile); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs accepts the -profile flag before or after the file name
func parseArgs(args []string) (string, macro.Profile, error) {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	profileName := fs.String("profile", string(macro.ProfileAbility), "macro profile: ability or turn")

	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return "", "", fmt.Errorf("a file name is required")
	}
	filename := rest[0]
	if err := fs.Parse(rest[1:]); err != nil {
		return "", "", err
	}
	if fs.NArg() > 0 {
		return "", "", fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	profile, err := macro.ParseProfile(*profileName)
	if err != nil {
		return "", "", err
	}
	return filename, profile, nil
}

type MacroValidator struct {
	out    io.Writer
	errors []string
}

func (v *MacroValidator) validateFile(filename string, profile macro.Profile) error {
	fmt.Fprintf(v.out, "Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("file must have .json extension: %s", baseName)
	}
	if !isValidID(strings.TrimSuffix(baseName, ".json")) {
		return fmt.Errorf("file name '%s' must be lowercase with - or _ separators (e.g., power-strike.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	kind := "macro"
	if isCharacterDocument(data) {
		kind = "character"
		v.validateCharacter(data, filename)
	} else {
		m, err := macro.Parse(data)
		if err != nil {
			return fmt.Errorf("file %s failed to parse: %w", filename, err)
		}
		v.addErrors("", macro.Validate(m, profile))
		kind = string(profile) + " macro"
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	fmt.Fprintf(v.out, "%s file is valid!\n", cases.Title(language.English).String(kind))
	return nil
}

// isCharacterDocument reports whether data looks like a character spec
// rather than a bare macro
func isCharacterDocument(data []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	for _, k := range []string{"abilities", "resources", "turn_macro", "round_macro", "max_hp"} {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

func (v *MacroValidator) validateCharacter(data []byte, filename string) {
	var spec actor.CharacterSpec
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&spec); err != nil {
		v.errors = append(v.errors, fmt.Sprintf("strict JSON unmarshaling failed: %v", err))
		return
	}

	if spec.MaxHP < 0 || spec.HP < 0 {
		v.errors = append(v.errors, "hp and max_hp must not be negative")
	}
	if spec.MaxHP > 0 && spec.HP > spec.MaxHP {
		v.errors = append(v.errors, fmt.Sprintf("hp %d exceeds max_hp %d", spec.HP, spec.MaxHP))
	}

	for _, id := range sortedKeys(spec.Resources) {
		v.validateIDFormat("resource ID", id)
		r := spec.Resources[id]
		lo, hi := r.Bounds()
		if lo > hi {
			v.errors = append(v.errors, fmt.Sprintf("resource %s: min %v exceeds max %v", id, lo, hi))
		} else if r.Value < lo || r.Value > hi {
			v.errors = append(v.errors, fmt.Sprintf("resource %s: value %v outside [%v, %v]", id, r.Value, lo, hi))
		}
	}
	if _, ok := spec.Resources[actor.HPResource]; ok && spec.MaxHP > 0 {
		v.errors = append(v.errors, "resource hp conflicts with max_hp")
	}

	for _, id := range sortedKeys(spec.Abilities) {
		v.validateIDFormat("ability ID", id)
		ab := spec.Abilities[id]
		if ab.Charges < 0 {
			v.errors = append(v.errors, fmt.Sprintf("ability %s: charges must not be negative", id))
		}
		if ab.MaxCharges > 0 && ab.Charges > ab.MaxCharges {
			v.errors = append(v.errors, fmt.Sprintf("ability %s: charges %d exceed max_charges %d", id, ab.Charges, ab.MaxCharges))
		}
		if ab.Macro != nil {
			v.addErrors("abilities."+id+".macro", macro.Validate(ab.Macro, macro.ProfileAbility))
		}
	}

	for i, b := range spec.Buffs {
		if b.BuffID == "" {
			v.errors = append(v.errors, fmt.Sprintf("buffs[%d]: buff_id is required", i))
		}
	}

	if spec.TurnMacro != nil {
		v.addErrors("turn_macro", macro.Validate(spec.TurnMacro, macro.ProfileTurn))
	}
	if spec.RoundMacro != nil {
		v.addErrors("round_macro", macro.Validate(spec.RoundMacro, macro.ProfileTurn))
	}
}

func (v *MacroValidator) addErrors(prefix string, errs []string) {
	for _, e := range errs {
		if prefix != "" {
			e = prefix + "." + e
		}
		v.errors = append(v.errors, e)
	}
}

func (v *MacroValidator) validateIDFormat(fieldName, id string) {
	if !isValidID(id) {
		v.errors = append(v.errors, fmt.Sprintf("%s '%s' must be lowercase with - or _ separators", fieldName, id))
	}
}

var validIDRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]*[a-z0-9])?$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
